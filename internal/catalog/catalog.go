// Package catalog provides access to the celebrity routine catalog: the
// routine templates themselves and the per-user set of purchased routines.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/ykawasaki/routine-to-do/internal/models"
	"github.com/ykawasaki/routine-to-do/internal/store"
)

// ErrRoutineNotFound is returned when no routine has the requested id.
var ErrRoutineNotFound = errors.New("routine not found")

// UnavailableError reports that the backing store could not be reached for
// a catalog read.
type UnavailableError struct {
	Op  string
	Err error
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("catalog unavailable: %s: %v", e.Op, e.Err)
}

func (e *UnavailableError) Unwrap() error { return e.Err }

// PurchaseWriteError reports a failed purchase write.
type PurchaseWriteError struct {
	UserID    string
	RoutineID string
	Err       error
}

func (e *PurchaseWriteError) Error() string {
	return fmt.Sprintf("failed to record purchase of %s for %s: %v", e.RoutineID, e.UserID, e.Err)
}

func (e *PurchaseWriteError) Unwrap() error { return e.Err }

// Catalog reads routine templates and purchases. Templates are immutable
// once fetched, so the full list is cached for the lifetime of the Catalog
// (one per user session); AppendTask invalidates it.
type Catalog struct {
	store store.CatalogStore
	now   func() time.Time

	sf singleflight.Group

	mu       sync.Mutex
	routines []models.Routine
	warnings []store.DecodeWarning
	cached   bool
}

func New(s store.CatalogStore) *Catalog {
	return &Catalog{store: s, now: time.Now}
}

// ListRoutines returns all routine templates. Individually undecodable
// documents are skipped and reported as warnings; the listing only fails
// when the store itself cannot be read. Concurrent calls share one fetch.
func (c *Catalog) ListRoutines(ctx context.Context) ([]models.Routine, []store.DecodeWarning, error) {
	type result struct {
		routines []models.Routine
		warnings []store.DecodeWarning
	}

	v, err, _ := c.sf.Do("routines", func() (interface{}, error) {
		c.mu.Lock()
		if c.cached {
			r := result{routines: c.routines, warnings: c.warnings}
			c.mu.Unlock()
			return r, nil
		}
		c.mu.Unlock()

		routines, warnings, err := c.store.Routines(ctx)
		if err != nil {
			return result{}, &UnavailableError{Op: "list routines", Err: err}
		}

		c.mu.Lock()
		c.routines = routines
		c.warnings = warnings
		c.cached = true
		c.mu.Unlock()
		return result{routines: routines, warnings: warnings}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	r := v.(result)
	return r.routines, r.warnings, nil
}

// Routine returns the single routine with the given id.
func (c *Catalog) Routine(ctx context.Context, routineID string) (models.Routine, error) {
	routines, _, err := c.ListRoutines(ctx)
	if err != nil {
		return models.Routine{}, err
	}
	for _, r := range routines {
		if r.ID == routineID {
			return r, nil
		}
	}
	return models.Routine{}, ErrRoutineNotFound
}

// ListPurchases returns the set of routine ids a user has purchased. A user
// with no purchases gets an empty set.
func (c *Catalog) ListPurchases(ctx context.Context, userID string) (map[string]struct{}, error) {
	ids, err := c.store.PurchasedRoutineIDs(ctx, userID)
	if err != nil {
		return nil, &UnavailableError{Op: "list purchases", Err: err}
	}
	set := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// IsPurchased reports whether a purchase set contains a routine.
func IsPurchased(purchased map[string]struct{}, routineID string) bool {
	_, ok := purchased[routineID]
	return ok
}

// Purchase records that a user unlocked a routine. The write is an upsert
// keyed by the (userID, routineID) pair: purchasing the same routine twice
// leaves exactly one record and returns the original.
func (c *Catalog) Purchase(ctx context.Context, userID, routineID string) (models.Purchase, error) {
	p := models.Purchase{
		UserID:       userID,
		RoutineID:    routineID,
		PurchaseDate: c.now().Unix(),
	}
	saved, err := c.store.SavePurchase(ctx, p)
	if err != nil {
		return models.Purchase{}, &PurchaseWriteError{UserID: userID, RoutineID: routineID, Err: err}
	}
	return saved, nil
}

// AppendTask appends a task to a routine template and drops the cached
// listing so the next read observes it.
func (c *Catalog) AppendTask(ctx context.Context, routineID string, task models.RoutineTask) error {
	if task.Time < 0 || task.Time >= 86400 {
		return fmt.Errorf("task time %d out of range [0, 86400)", task.Time)
	}
	if err := c.store.AppendRoutineTask(ctx, routineID, task); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return ErrRoutineNotFound
		}
		return err
	}

	c.mu.Lock()
	c.cached = false
	c.routines = nil
	c.warnings = nil
	c.mu.Unlock()
	return nil
}
