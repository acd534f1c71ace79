package watch

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/lukman83/pricehound/internal/marketdata"
	"github.com/lukman83/pricehound/internal/metrics"
)

const fetchTimeout = 25 * time.Second

// SchedulerConfig configures the periodic checker.
type SchedulerConfig struct {
	// Interval between cycles. Default 15 minutes.
	Interval time.Duration
	// MaxConcurrent bounds the per-subscription fan-out inside a
	// cycle. Default 5.
	MaxConcurrent int
	// Limiter throttles marketplace requests across the cycle.
	// Optional.
	Limiter *rate.Limiter
	// Format renders the notification text from a subscription and
	// the fetched price.
	Format func(sub Subscription, price int64) string
}

// Scheduler re-checks every active subscription on a fixed interval
// and fires at most one notification per subscription, deactivating
// it in the same cycle.
type Scheduler struct {
	store    Store
	notifier Notifier
	cfg      SchedulerConfig
	log      *slog.Logger

	// cycleMu enforces at-most-one-concurrent-cycle: a tick that
	// arrives while a cycle is still running is skipped, because
	// interleaved cycles could double-notify.
	cycleMu sync.Mutex
}

func NewScheduler(store Store, notifier Notifier, cfg SchedulerConfig, log *slog.Logger) *Scheduler {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Minute
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = 5
	}
	if cfg.Format == nil {
		cfg.Format = defaultFormat
	}
	if log == nil {
		log = slog.Default()
	}
	return &Scheduler{store: store, notifier: notifier, cfg: cfg, log: log}
}

func defaultFormat(sub Subscription, price int64) string {
	return sub.Title
}

// Serve runs the tick loop until the context is cancelled. Implements
// suture.Service.
func (s *Scheduler) Serve(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	s.log.Info("scheduler started", "interval", s.cfg.Interval)

	for {
		select {
		case <-ctx.Done():
			s.log.Info("scheduler stopping")
			return ctx.Err()
		case <-ticker.C:
			s.RunCycle(ctx)
		}
	}
}

// RunCycle checks every active subscription once. Subscriptions are
// isolated from each other: a failing fetch or store write is logged
// and skipped, never aborting the rest of the cycle.
func (s *Scheduler) RunCycle(ctx context.Context) {
	if !s.cycleMu.TryLock() {
		s.log.Warn("previous cycle still running, skipping tick")
		metrics.CyclesSkipped.Inc()
		return
	}
	defer s.cycleMu.Unlock()

	start := time.Now()

	subs, err := s.store.ListActive(ctx)
	if err != nil {
		s.log.Error("list active subscriptions", "err", err)
		return
	}
	metrics.ActiveSubscriptions.Set(float64(len(subs)))
	if len(subs) == 0 {
		return
	}

	var g errgroup.Group
	g.SetLimit(s.cfg.MaxConcurrent)
	for _, sub := range subs {
		g.Go(func() error {
			s.checkOne(ctx, sub)
			return nil
		})
	}
	_ = g.Wait()

	metrics.CycleDuration.Observe(time.Since(start).Seconds())
	s.log.Info("cycle finished", "subscriptions", len(subs), "took", time.Since(start))
}

func (s *Scheduler) checkOne(ctx context.Context, sub Subscription) {
	if s.cfg.Limiter != nil {
		if err := s.cfg.Limiter.Wait(ctx); err != nil {
			return
		}
	}

	fetcher, err := marketdata.Get(sub.Marketplace)
	if err != nil {
		s.log.Error("no fetcher for subscription", "id", sub.ID, "marketplace", sub.Marketplace)
		return
	}

	fetchCtx, cancel := context.WithTimeout(ctx, fetchTimeout)
	snap, err := fetcher.Fetch(fetchCtx, sub.Ref())
	cancel()
	if err != nil {
		// Transient marketplace trouble must not cancel the watch:
		// skip this cycle only, keep the stored last price.
		s.log.Warn("check failed", "id", sub.ID, "marketplace", sub.Marketplace, "err", err)
		metrics.FetchTotal.WithLabelValues(string(sub.Marketplace), "error").Inc()
		return
	}
	metrics.FetchTotal.WithLabelValues(string(sub.Marketplace), "ok").Inc()

	if sub.LastPrice == nil || *sub.LastPrice != snap.Price {
		if err := s.store.UpdateLastPrice(ctx, sub.ID, &snap.Price); err != nil {
			s.log.Error("update last price", "id", sub.ID, "err", err)
		}
	}

	if snap.Price > sub.TargetPrice {
		return
	}

	// Target met. Delivery trouble is logged on its own and never
	// blocks deactivation, which is what guarantees at-most-once.
	if err := s.notifier.Send(ctx, sub.ChatID, s.cfg.Format(sub, snap.Price)); err != nil {
		s.log.Error("notify failed", "id", sub.ID, "chat", sub.ChatID, "err", err)
		metrics.NotificationsTotal.WithLabelValues("error").Inc()
	} else {
		metrics.NotificationsTotal.WithLabelValues("ok").Inc()
	}
	if err := s.store.Deactivate(ctx, sub.ID); err != nil {
		s.log.Error("deactivate", "id", sub.ID, "err", err)
	}
}
