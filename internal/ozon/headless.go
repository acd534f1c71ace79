package ozon

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/proto"

	"github.com/lukman83/pricehound/internal/marketdata"
)

// HeadlessStrategy renders the page with a real browser so that
// script-injected price blocks exist before extraction. Slow; used
// only after the static pass comes back without a price.
type HeadlessStrategy struct{}

func NewHeadlessStrategy() *HeadlessStrategy {
	return &HeadlessStrategy{}
}

func (h *HeadlessStrategy) Name() string { return "headless" }

func (h *HeadlessStrategy) Fetch(ctx context.Context, ref marketdata.Ref) (*marketdata.Snapshot, error) {
	page, cleanup, err := h.openPage(ctx, ref.URL)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	timedPage := page.Timeout(15 * time.Second)
	if err := timedPage.WaitStable(time.Second); err == nil {
		_ = timedPage.WaitDOMStable(2*time.Second, 0.1)
	}

	content, err := page.HTML()
	if err != nil {
		return nil, fmt.Errorf("get page HTML: %w", err)
	}

	snap, err := extractSnapshot(content, ref)
	if err != nil {
		return nil, err
	}
	snap.Strategy = h.Name()
	return snap, nil
}

func (h *HeadlessStrategy) openPage(ctx context.Context, pageURL string) (*rod.Page, func(), error) {
	l := launcher.New().Headless(true).Logger(io.Discard)
	if bin := os.Getenv("ROD_BROWSER_BIN"); bin != "" {
		l = l.Bin(bin)
	}
	controlURL, err := l.Launch()
	if err != nil {
		return nil, nil, fmt.Errorf("launch browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL).Context(ctx)
	if err := browser.Connect(); err != nil {
		l.Kill()
		return nil, nil, fmt.Errorf("connect browser: %w", err)
	}

	page, err := browser.Page(proto.TargetCreateTarget{URL: pageURL})
	if err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("open page: %w", err)
	}

	err = page.SetViewport(&proto.EmulationSetDeviceMetricsOverride{
		Width:  1920,
		Height: 1080,
	})
	if err != nil {
		browser.Close()
		return nil, nil, fmt.Errorf("set viewport: %w", err)
	}

	cleanup := func() {
		page.Close()
		browser.Close()
		l.Cleanup()
	}

	return page, cleanup, nil
}
