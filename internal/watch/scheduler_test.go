package watch

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lukman83/pricehound/internal/marketdata"
)

type memStore struct {
	mu          sync.Mutex
	subs        map[int64]Subscription
	listCalls   int
	listActiveC chan struct{} // optional: signals each ListActive call
}

func newMemStore(subs ...Subscription) *memStore {
	m := &memStore{subs: make(map[int64]Subscription)}
	for _, s := range subs {
		m.subs[s.ID] = s
	}
	return m
}

func (m *memStore) Insert(ctx context.Context, sub *Subscription) (int64, error) {
	return 0, errors.New("not used")
}

func (m *memStore) ListByChat(ctx context.Context, chatID int64) ([]Subscription, error) {
	return nil, errors.New("not used")
}

func (m *memStore) DeleteByIDAndChat(ctx context.Context, chatID, id int64) (bool, error) {
	return false, errors.New("not used")
}

func (m *memStore) ListActive(ctx context.Context) ([]Subscription, error) {
	m.mu.Lock()
	m.listCalls++
	var out []Subscription
	for _, s := range m.subs {
		if s.Active {
			out = append(out, s)
		}
	}
	m.mu.Unlock()
	if m.listActiveC != nil {
		m.listActiveC <- struct{}{}
	}
	return out, nil
}

func (m *memStore) UpdateLastPrice(ctx context.Context, id int64, price *int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subs[id]
	s.LastPrice = price
	m.subs[id] = s
	return nil
}

func (m *memStore) Deactivate(ctx context.Context, id int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	s := m.subs[id]
	s.Active = false
	m.subs[id] = s
	return nil
}

func (m *memStore) get(id int64) Subscription {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.subs[id]
}

type memNotifier struct {
	mu    sync.Mutex
	sent  []string
	chats []int64
	err   error
}

func (n *memNotifier) Send(ctx context.Context, chatID int64, text string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.sent = append(n.sent, text)
	n.chats = append(n.chats, chatID)
	return nil
}

func (n *memNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

// priceFetcher serves a fixed price per product id and errors for ids
// it does not know.
type priceFetcher struct {
	mu     sync.Mutex
	prices map[string]int64
	block  chan struct{} // when set, Fetch waits until closed
}

func (f *priceFetcher) Fetch(ctx context.Context, ref marketdata.Ref) (*marketdata.Snapshot, error) {
	if f.block != nil {
		select {
		case <-f.block:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	p, ok := f.prices[ref.ProductID]
	if !ok {
		return nil, fmt.Errorf("no card for %s", ref.ProductID)
	}
	return &marketdata.Snapshot{Title: "t-" + ref.ProductID, Price: p, URL: ref.URL}, nil
}

func (f *priceFetcher) setPrice(id string, p int64) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.prices[id] = p
}

func sub(id int64, productID string, target int64, last *int64) Subscription {
	return Subscription{
		ID:          id,
		UserID:      id,
		ChatID:      1000 + id,
		Marketplace: marketdata.Wildberries,
		ProductID:   productID,
		URL:         "https://www.wildberries.ru/catalog/" + productID + "/detail.aspx",
		Title:       "t-" + productID,
		TargetPrice: target,
		LastPrice:   last,
		Active:      true,
		CreatedAt:   time.Now(),
	}
}

func newScheduler(store Store, notifier Notifier, f marketdata.Fetcher) *Scheduler {
	marketdata.Register(marketdata.Wildberries, f)
	return NewScheduler(store, notifier, SchedulerConfig{
		Interval:      time.Minute,
		MaxConcurrent: 3,
	}, nil)
}

func TestRunCycle_ThresholdCrossing(t *testing.T) {
	fetcher := &priceFetcher{prices: map[string]int64{"100001": 4990, "100002": 4991}}
	store := newMemStore(
		sub(1, "100001", 4990, nil), // price == target: notify
		sub(2, "100002", 4990, nil), // one ruble above: keep watching
	)
	notifier := &memNotifier{}
	s := newScheduler(store, notifier, fetcher)

	s.RunCycle(context.Background())

	require.Equal(t, 1, notifier.count())
	assert.Equal(t, int64(1001), notifier.chats[0])
	assert.False(t, store.get(1).Active)
	assert.True(t, store.get(2).Active)
	require.NotNil(t, store.get(2).LastPrice)
	assert.Equal(t, int64(4991), *store.get(2).LastPrice)
}

func TestRunCycle_AtMostOneNotification(t *testing.T) {
	fetcher := &priceFetcher{prices: map[string]int64{"100001": 4500}}
	store := newMemStore(sub(1, "100001", 4990, nil))
	notifier := &memNotifier{}
	s := newScheduler(store, notifier, fetcher)

	s.RunCycle(context.Background())
	require.Equal(t, 1, notifier.count())
	assert.False(t, store.get(1).Active)

	// Price drops further; the deactivated watch stays silent.
	fetcher.setPrice("100001", 3000)
	s.RunCycle(context.Background())
	s.RunCycle(context.Background())
	assert.Equal(t, 1, notifier.count())
}

func TestRunCycle_NotifyFailureStillDeactivates(t *testing.T) {
	fetcher := &priceFetcher{prices: map[string]int64{"100001": 100}}
	store := newMemStore(sub(1, "100001", 4990, nil))
	notifier := &memNotifier{err: errors.New("chat unreachable")}
	s := newScheduler(store, notifier, fetcher)

	s.RunCycle(context.Background())

	assert.Equal(t, 0, notifier.count())
	assert.False(t, store.get(1).Active, "delivery trouble must not keep re-notifying")
}

func TestRunCycle_IsolatesFailures(t *testing.T) {
	// Subscription 1 has no card data and fails; 2 and 3 proceed.
	fetcher := &priceFetcher{prices: map[string]int64{"100002": 2000, "100003": 500}}
	last := int64(9000)
	store := newMemStore(
		sub(1, "100001", 100, &last),
		sub(2, "100002", 100, nil),
		sub(3, "100003", 1000, nil),
	)
	notifier := &memNotifier{}
	s := newScheduler(store, notifier, fetcher)

	s.RunCycle(context.Background())

	// Failed fetch never touches last_price.
	require.NotNil(t, store.get(1).LastPrice)
	assert.Equal(t, int64(9000), *store.get(1).LastPrice)
	assert.True(t, store.get(1).Active)

	require.NotNil(t, store.get(2).LastPrice)
	assert.Equal(t, int64(2000), *store.get(2).LastPrice)

	assert.False(t, store.get(3).Active)
	assert.Equal(t, 1, notifier.count())
}

func TestRunCycle_SkipsOverlappingTick(t *testing.T) {
	block := make(chan struct{})
	fetcher := &priceFetcher{prices: map[string]int64{"100001": 100}, block: block}
	store := newMemStore(sub(1, "100001", 4990, nil))
	store.listActiveC = make(chan struct{}, 2)
	notifier := &memNotifier{}
	s := newScheduler(store, notifier, fetcher)

	done := make(chan struct{})
	go func() {
		s.RunCycle(context.Background())
		close(done)
	}()
	<-store.listActiveC // first cycle is now in flight, fetch blocked

	// A tick arriving mid-cycle must not start a second cycle.
	s.RunCycle(context.Background())
	store.mu.Lock()
	calls := store.listCalls
	store.mu.Unlock()
	assert.Equal(t, 1, calls)

	close(block)
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("first cycle never finished")
	}
	assert.Equal(t, 1, notifier.count())
}
