// Package store implements watch.Store on an embedded BadgerDB.
package store

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/dgraph-io/badger/v4"
	"github.com/goccy/go-json"

	"github.com/lukman83/pricehound/internal/watch"
)

// Key layout:
//
//	sub:<id>          -> json Subscription
//	chat:<chat>:<id>  -> id (owner index for listing and scoped delete)
const (
	subKeyPrefix  = "sub:"
	chatKeyPrefix = "chat:"
	seqKey        = "seq:sub"
)

// Badger is a watch.Store backed by a local badger database.
type Badger struct {
	db  *badger.DB
	seq *badger.Sequence
}

// Open opens (or creates) the database under dir. An empty dir opens
// an in-memory instance, used by tests.
func Open(dir string) (*Badger, error) {
	var opts badger.Options
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true)
	} else {
		opts = badger.DefaultOptions(dir)
	}
	opts = opts.WithLogger(nil)

	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := db.GetSequence([]byte(seqKey), 64)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("open id sequence: %w", err)
	}
	return &Badger{db: db, seq: seq}, nil
}

func (b *Badger) Close() error {
	if err := b.seq.Release(); err != nil {
		b.db.Close()
		return err
	}
	return b.db.Close()
}

func subKey(id int64) []byte {
	return fmt.Appendf(nil, "%s%020d", subKeyPrefix, id)
}

func chatKey(chatID, id int64) []byte {
	return fmt.Appendf(nil, "%s%020d:%020d", chatKeyPrefix, chatID, id)
}

func (b *Badger) nextID() (int64, error) {
	id, err := b.seq.Next()
	if err != nil {
		return 0, err
	}
	if id == 0 {
		// Ids are user-visible; start from 1.
		id, err = b.seq.Next()
		if err != nil {
			return 0, err
		}
	}
	return int64(id), nil
}

func (b *Badger) Insert(ctx context.Context, sub *watch.Subscription) (int64, error) {
	id, err := b.nextID()
	if err != nil {
		return 0, fmt.Errorf("next id: %w", err)
	}
	sub.ID = id

	data, err := json.Marshal(sub)
	if err != nil {
		return 0, fmt.Errorf("marshal subscription: %w", err)
	}

	err = b.db.Update(func(txn *badger.Txn) error {
		if err := txn.Set(subKey(id), data); err != nil {
			return err
		}
		return txn.Set(chatKey(sub.ChatID, id), fmt.Appendf(nil, "%d", id))
	})
	if err != nil {
		return 0, fmt.Errorf("insert subscription: %w", err)
	}
	return id, nil
}

func (b *Badger) ListByChat(ctx context.Context, chatID int64) ([]watch.Subscription, error) {
	prefix := fmt.Appendf(nil, "%s%020d:", chatKeyPrefix, chatID)

	var subs []watch.Subscription
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var id int64
			err := it.Item().Value(func(val []byte) error {
				_, err := fmt.Sscanf(string(val), "%d", &id)
				return err
			})
			if err != nil {
				return err
			}
			sub, err := getSub(txn, id)
			if err != nil {
				if errors.Is(err, watch.ErrNotFound) {
					continue // dangling index entry
				}
				return err
			}
			subs = append(subs, *sub)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list by chat: %w", err)
	}

	// Newest first.
	sort.Slice(subs, func(i, j int) bool { return subs[i].ID > subs[j].ID })
	return subs, nil
}

func (b *Badger) DeleteByIDAndChat(ctx context.Context, chatID, id int64) (bool, error) {
	found := false
	err := b.db.Update(func(txn *badger.Txn) error {
		sub, err := getSub(txn, id)
		if errors.Is(err, watch.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		// Someone else's subscription reads as not-found.
		if sub.ChatID != chatID {
			return nil
		}
		if err := txn.Delete(subKey(id)); err != nil {
			return err
		}
		if err := txn.Delete(chatKey(chatID, id)); err != nil {
			return err
		}
		found = true
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("delete subscription: %w", err)
	}
	return found, nil
}

func (b *Badger) ListActive(ctx context.Context) ([]watch.Subscription, error) {
	prefix := []byte(subKeyPrefix)

	var subs []watch.Subscription
	err := b.db.View(func(txn *badger.Txn) error {
		it := txn.NewIterator(badger.DefaultIteratorOptions)
		defer it.Close()

		for it.Seek(prefix); it.ValidForPrefix(prefix); it.Next() {
			var sub watch.Subscription
			err := it.Item().Value(func(val []byte) error {
				return json.Unmarshal(val, &sub)
			})
			if err != nil {
				return err
			}
			if sub.Active {
				subs = append(subs, sub)
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("list active: %w", err)
	}
	return subs, nil
}

func (b *Badger) UpdateLastPrice(ctx context.Context, id int64, price *int64) error {
	return b.mutate(id, func(sub *watch.Subscription) {
		sub.LastPrice = price
	})
}

func (b *Badger) Deactivate(ctx context.Context, id int64) error {
	return b.mutate(id, func(sub *watch.Subscription) {
		sub.Active = false
	})
}

// mutate applies fn to one record inside a single transaction, so
// each write is an atomic record update.
func (b *Badger) mutate(id int64, fn func(*watch.Subscription)) error {
	return b.db.Update(func(txn *badger.Txn) error {
		sub, err := getSub(txn, id)
		if err != nil {
			return err
		}
		fn(sub)
		data, err := json.Marshal(sub)
		if err != nil {
			return fmt.Errorf("marshal subscription: %w", err)
		}
		return txn.Set(subKey(id), data)
	})
}

func getSub(txn *badger.Txn, id int64) (*watch.Subscription, error) {
	item, err := txn.Get(subKey(id))
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, watch.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var sub watch.Subscription
	if err := item.Value(func(val []byte) error {
		return json.Unmarshal(val, &sub)
	}); err != nil {
		return nil, err
	}
	return &sub, nil
}
