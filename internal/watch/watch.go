// Package watch holds the subscription model, the store and notifier
// contracts, and the periodic check scheduler.
package watch

import (
	"context"
	"errors"
	"time"

	"github.com/lukman83/pricehound/internal/marketdata"
)

// ErrNotFound is returned by stores for lookups that match nothing.
var ErrNotFound = errors.New("subscription not found")

// Subscription is a persisted watch: tell this chat when this product
// drops to or below the target price. Active flips true→false exactly
// once, on notification; it never flips back.
type Subscription struct {
	ID          int64                  `json:"id"`
	UserID      int64                  `json:"user_id"`
	ChatID      int64                  `json:"chat_id"`
	Marketplace marketdata.Marketplace `json:"marketplace"`
	ProductID   string                 `json:"product_id"`
	URL         string                 `json:"url"`
	Title       string                 `json:"title"`
	TargetPrice int64                  `json:"target_price"`
	LastPrice   *int64                 `json:"last_price,omitempty"`
	Active      bool                   `json:"active"`
	CreatedAt   time.Time              `json:"created_at"`
}

// Ref rebuilds the marketplace reference for re-fetching.
func (s *Subscription) Ref() marketdata.Ref {
	return marketdata.Ref{
		Marketplace: s.Marketplace,
		ProductID:   s.ProductID,
		URL:         s.URL,
	}
}

// Store is the durable record of subscriptions.
type Store interface {
	// Insert assigns an id and persists the subscription.
	Insert(ctx context.Context, sub *Subscription) (int64, error)
	// ListByChat returns the chat's subscriptions, newest first.
	ListByChat(ctx context.Context, chatID int64) ([]Subscription, error)
	// DeleteByIDAndChat removes a subscription only when it belongs to
	// the chat. A foreign id reads as not-found, never as denied.
	DeleteByIDAndChat(ctx context.Context, chatID, id int64) (bool, error)
	// ListActive returns every subscription still being watched.
	ListActive(ctx context.Context) ([]Subscription, error)
	// UpdateLastPrice records the most recent successfully fetched price.
	UpdateLastPrice(ctx context.Context, id int64, price *int64) error
	// Deactivate turns the watch off permanently.
	Deactivate(ctx context.Context, id int64) error
}

// Notifier delivers a text to a chat. Fire-and-forget: failures are
// logged by callers, not retried.
type Notifier interface {
	Send(ctx context.Context, chatID int64, text string) error
}
