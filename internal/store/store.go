// Package store provides access to the backing document store: routine and
// purchase collections plus the per-user to-do subcollections. Two
// implementations exist, one on Firestore and an in-memory one used for
// local development and tests.
package store

import (
	"context"
	"errors"

	"github.com/ykawasaki/routine-to-do/internal/models"
)

// ErrNotFound is returned by point reads when no document exists.
var ErrNotFound = errors.New("not found")

// DecodeWarning reports a document that could not be decoded and was
// skipped. Non-fatal: the surrounding read still succeeds.
type DecodeWarning struct {
	DocID string
	Err   error
}

func (w DecodeWarning) Error() string {
	return "skipped undecodable document " + w.DocID + ": " + w.Err.Error()
}

func (w DecodeWarning) Unwrap() error { return w.Err }

// CatalogStore is the slice of the store the routine catalog reads and
// writes.
type CatalogStore interface {
	// Routines returns all routine templates. Individually undecodable
	// documents are skipped and reported in the warning slice.
	Routines(ctx context.Context) ([]models.Routine, []DecodeWarning, error)

	// PurchasedRoutineIDs returns the ids of the routines a user has
	// purchased. A user with no purchases yields an empty slice, not an
	// error.
	PurchasedRoutineIDs(ctx context.Context, userID string) ([]string, error)

	// SavePurchase upserts a purchase keyed by the (UserID, RoutineID)
	// pair and returns the stored record. Writing a pair that already
	// exists leaves the existing record untouched and returns it.
	SavePurchase(ctx context.Context, p models.Purchase) (models.Purchase, error)

	// AppendRoutineTask appends a task to a routine's task array.
	AppendRoutineTask(ctx context.Context, routineID string, task models.RoutineTask) error
}

// TodoStore is the slice of the store the to-do list reads and writes.
type TodoStore interface {
	// Items returns one user's items in no particular order.
	Items(ctx context.Context, userID string) ([]models.ToDoItem, error)

	// Item returns one item, or ErrNotFound.
	Item(ctx context.Context, userID, itemID string) (models.ToDoItem, error)

	// SaveItem writes the whole item, creating or replacing the document.
	SaveItem(ctx context.Context, userID string, item models.ToDoItem) error

	// DeleteItem removes an item. Deleting an id that does not exist is a
	// no-op.
	DeleteItem(ctx context.Context, userID, itemID string) error

	// WatchItems registers a standing watch on one user's items. The
	// returned watch delivers the current item set immediately and a new
	// full set after every change.
	WatchItems(ctx context.Context, userID string) (ItemWatch, error)
}

// UserStore reads user profiles.
type UserStore interface {
	User(ctx context.Context, userID string) (models.User, error)
}

// Store is the full document-store surface. Client and MemStore both
// satisfy it.
type Store interface {
	CatalogStore
	TodoStore
	UserStore
}

// ItemWatch is a standing watch on a user's items. Next blocks until the
// next full item set is available and returns iterator.Done after Stop.
// Stop must be called to release the watch; it is safe to call more than
// once.
type ItemWatch interface {
	Next() ([]models.ToDoItem, error)
	Stop()
}
