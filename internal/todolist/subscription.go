package todolist

import (
	"context"
	"sync"

	"google.golang.org/api/iterator"

	"github.com/ykawasaki/routine-to-do/internal/store"
)

// Subscription is a live feed of snapshots for one user's items. Every
// change in the backing store produces a new full snapshot on Snapshots;
// each is processed to completion before the next is read from the watch.
// Stop cancels the subscription and releases the backing watch. After the
// channel closes, Err reports the terminal watch error, if any. In-flight
// writes are unaffected by Stop.
type Subscription struct {
	ch    chan Snapshot
	done  chan struct{}
	watch store.ItemWatch
	once  sync.Once

	mu  sync.Mutex
	err error
}

// Subscribe registers a standing watch on a user's items. The first
// snapshot, the current item set, is delivered without waiting for a
// change. The caller owns the subscription and must call Stop.
func (s *Service) Subscribe(ctx context.Context, userID string) (*Subscription, error) {
	watch, err := s.store.WatchItems(ctx, userID)
	if err != nil {
		return nil, err
	}

	sub := &Subscription{
		ch:    make(chan Snapshot),
		done:  make(chan struct{}),
		watch: watch,
	}
	go sub.pump(ctx)
	return sub, nil
}

func (sub *Subscription) pump(ctx context.Context) {
	defer close(sub.ch)
	for {
		items, err := sub.watch.Next()
		if err != nil {
			if err != iterator.Done {
				sub.mu.Lock()
				sub.err = err
				sub.mu.Unlock()
			}
			return
		}

		// The watch may hand the same backing slice to several
		// subscribers; sort a copy this pump owns.
		snap := make(Snapshot, len(items))
		copy(snap, items)
		sortItems(snap)
		select {
		case sub.ch <- snap:
		case <-sub.done:
			return
		case <-ctx.Done():
			sub.Stop()
			return
		}
	}
}

// Snapshots yields successive full-set snapshots, ordered ascending by
// due timestamp with ties broken by id. The channel closes when the
// subscription stops or the watch fails permanently.
func (sub *Subscription) Snapshots() <-chan Snapshot {
	return sub.ch
}

// Err returns the terminal watch error, or nil after a clean Stop. Only
// meaningful once Snapshots is closed.
func (sub *Subscription) Err() error {
	sub.mu.Lock()
	defer sub.mu.Unlock()
	return sub.err
}

// Stop cancels the subscription and releases the backing watch. Safe to
// call more than once.
func (sub *Subscription) Stop() {
	sub.once.Do(func() {
		close(sub.done)
		sub.watch.Stop()
	})
}
