// Package chat implements the two-step "reference, then target price"
// conversation and the user-facing command handlers.
package chat

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/lukman83/pricehound/internal/marketdata"
	"github.com/lukman83/pricehound/internal/refparse"
	"github.com/lukman83/pricehound/internal/watch"
)

const resolveTimeout = 25 * time.Second

// pendingEntry bridges the two-message flow: the resolved reference
// plus the snapshot shown to the user, waiting for a target price.
type pendingEntry struct {
	ref  marketdata.Ref
	snap *marketdata.Snapshot
}

// session is the per-user conversation state. Its mutex serializes
// transitions for that user; users never block each other.
type session struct {
	mu      sync.Mutex
	pending *pendingEntry
}

// Engine drives the conversation state machine. A user is in
// "awaiting reference" unless a pending entry exists, in which case
// they are in "awaiting price".
type Engine struct {
	parser *refparse.Parser
	store  watch.Store
	log    *slog.Logger

	mu       sync.Mutex
	sessions map[int64]*session
}

func NewEngine(parser *refparse.Parser, store watch.Store, log *slog.Logger) *Engine {
	if log == nil {
		log = slog.Default()
	}
	return &Engine{
		parser:   parser,
		store:    store,
		log:      log,
		sessions: make(map[int64]*session),
	}
}

func (e *Engine) session(userID int64) *session {
	e.mu.Lock()
	defer e.mu.Unlock()
	s, ok := e.sessions[userID]
	if !ok {
		s = &session{}
		e.sessions[userID] = s
	}
	return s
}

// Reset drops any pending entry for the user (used by /start).
func (e *Engine) Reset(userID int64) {
	s := e.session(userID)
	s.mu.Lock()
	s.pending = nil
	s.mu.Unlock()
}

// HandleText processes one free-text message and returns the reply.
func (e *Engine) HandleText(ctx context.Context, userID, chatID int64, text string) string {
	s := e.session(userID)
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.pending == nil {
		return e.handleReference(ctx, s, text)
	}
	return e.handlePrice(ctx, s, userID, chatID, text)
}

func (e *Engine) handleReference(ctx context.Context, s *session, text string) string {
	ref, err := e.parser.Parse(text)
	if err != nil {
		// Unrecognized input is a retry prompt, not an error condition.
		return msgNotUnderstood
	}

	fetcher, err := marketdata.Get(ref.Marketplace)
	if err != nil {
		e.log.Error("fetcher missing", "marketplace", ref.Marketplace)
		return msgFetchFailed("маркетплейс недоступен")
	}

	fetchCtx, cancel := context.WithTimeout(ctx, resolveTimeout)
	snap, err := fetcher.Fetch(fetchCtx, ref)
	cancel()
	if err != nil {
		e.log.Warn("interactive fetch failed", "marketplace", ref.Marketplace, "id", ref.ProductID, "err", err)
		return msgFetchFailed(fetchReason(err))
	}

	s.pending = &pendingEntry{ref: ref, snap: snap}
	return msgFound(snap)
}

func (e *Engine) handlePrice(ctx context.Context, s *session, userID, chatID int64, text string) string {
	target, ok := parseTargetPrice(text)
	if !ok {
		// A fresh reference while a price is pending overwrites the
		// pending entry, last-write-wins.
		if _, err := e.parser.Parse(text); err == nil {
			return e.handleReference(ctx, s, text)
		}
		return msgBadPrice
	}

	pending := s.pending
	sub := &watch.Subscription{
		UserID:      userID,
		ChatID:      chatID,
		Marketplace: pending.ref.Marketplace,
		ProductID:   pending.ref.ProductID,
		URL:         pending.ref.URL,
		Title:       pending.snap.Title,
		TargetPrice: target,
		LastPrice:   &pending.snap.Price,
		Active:      true,
		CreatedAt:   time.Now(),
	}
	if _, err := e.store.Insert(ctx, sub); err != nil {
		e.log.Error("insert subscription", "user", userID, "err", err)
		return msgFetchFailed("не получилось сохранить, попробуй ещё раз")
	}

	s.pending = nil
	return msgCreated(sub)
}

// List renders the chat's subscriptions, newest first.
func (e *Engine) List(ctx context.Context, chatID int64) string {
	subs, err := e.store.ListByChat(ctx, chatID)
	if err != nil {
		e.log.Error("list subscriptions", "chat", chatID, "err", err)
		return msgFetchFailed("не получилось прочитать список")
	}
	return msgList(subs)
}

// Remove deletes one of the chat's own subscriptions by id.
func (e *Engine) Remove(ctx context.Context, chatID int64, arg string) string {
	id, err := strconv.ParseInt(strings.TrimSpace(arg), 10, 64)
	if err != nil {
		return msgRemoved(false)
	}
	ok, err := e.store.DeleteByIDAndChat(ctx, chatID, id)
	if err != nil {
		e.log.Error("delete subscription", "chat", chatID, "id", id, "err", err)
		return msgFetchFailed("не получилось удалить, попробуй ещё раз")
	}
	return msgRemoved(ok)
}

var priceDigitsRe = regexp.MustCompile(`^\d+$`)

// parseTargetPrice accepts a positive integer, tolerating embedded
// spaces and NBSP thousands separators ("4 990").
func parseTargetPrice(text string) (int64, bool) {
	t := strings.NewReplacer(" ", "", " ", "").Replace(strings.TrimSpace(text))
	if !priceDigitsRe.MatchString(t) {
		return 0, false
	}
	n, err := strconv.ParseInt(t, 10, 64)
	if err != nil || n <= 0 {
		return 0, false
	}
	return n, true
}

// fetchReason maps fetch errors to a short user-facing cause without
// leaking transport internals.
func fetchReason(err error) string {
	switch {
	case errors.Is(err, marketdata.ErrPriceUnavailable):
		return "не смог определить цену (возможно, изменилась страница товара)"
	case errors.Is(err, marketdata.ErrNotFound):
		return "товар не найден"
	case errors.Is(err, context.DeadlineExceeded):
		return "маркетплейс не отвечает"
	default:
		return "маркетплейс недоступен"
	}
}
