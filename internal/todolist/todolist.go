// Package todolist maintains the live, ordered view of one user's to-do
// items and the mutations against it. Snapshots are ordered ascending by
// due timestamp with ties broken by id; the ordering is enforced here so
// it never depends on the backing store's index behavior.
package todolist

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ykawasaki/routine-to-do/internal/models"
	"github.com/ykawasaki/routine-to-do/internal/store"
)

// ValidationError reports a rejected item creation. Field names which
// check failed.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// WriteConflictError reports that the store rejected an item write. The
// in-memory item is left untouched so the live view keeps matching
// durable state.
type WriteConflictError struct {
	ItemID string
	Err    error
}

func (e *WriteConflictError) Error() string {
	return fmt.Sprintf("write conflict on item %s: %v", e.ItemID, e.Err)
}

func (e *WriteConflictError) Unwrap() error { return e.Err }

// Service owns the to-do list operations for all users of one store.
type Service struct {
	store store.TodoStore
	now   func() time.Time
	newID func() string
}

func NewService(s store.TodoStore) *Service {
	return &Service{
		store: s,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Snapshot is a full ordered view of a user's items at one point in time.
type Snapshot []models.ToDoItem

// sortItems orders ascending by due timestamp, ties broken by id.
func sortItems(items []models.ToDoItem) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].DueDate != items[j].DueDate {
			return items[i].DueDate < items[j].DueDate
		}
		return items[i].ID < items[j].ID
	})
}

// Items returns one ordered snapshot without subscribing.
func (s *Service) Items(ctx context.Context, userID string) (Snapshot, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return nil, err
	}
	sortItems(items)
	return items, nil
}

// Item returns a single item, or store.ErrNotFound.
func (s *Service) Item(ctx context.Context, userID, itemID string) (models.ToDoItem, error) {
	return s.store.Item(ctx, userID, itemID)
}

// CreateItem validates and persists a new item. The title must be
// non-empty after trimming and the due date no more than one day in the
// past. Nothing is written when validation fails.
func (s *Service) CreateItem(ctx context.Context, userID, title string, due time.Time) (models.ToDoItem, error) {
	if strings.TrimSpace(title) == "" {
		return models.ToDoItem{}, &ValidationError{Field: "title", Reason: "must not be empty"}
	}
	if due.Before(s.now().Add(-24 * time.Hour)) {
		return models.ToDoItem{}, &ValidationError{Field: "dueDate", Reason: "more than 1 day in the past"}
	}

	item := models.ToDoItem{
		ID:          s.newID(),
		Title:       title,
		DueDate:     due.Unix(),
		CreatedTime: s.now().Unix(),
		IsDone:      false,
	}
	if err := s.store.SaveItem(ctx, userID, item); err != nil {
		return models.ToDoItem{}, &WriteConflictError{ItemID: item.ID, Err: err}
	}
	return item, nil
}

// ToggleDone flips an item's completion flag and writes the whole item
// back. The update is applied only after the store acknowledges the
// write: on failure the unmodified input is returned alongside a
// *WriteConflictError, and subscribers keep seeing the durable state.
func (s *Service) ToggleDone(ctx context.Context, userID string, item models.ToDoItem) (models.ToDoItem, error) {
	updated := item
	updated.IsDone = !item.IsDone
	if err := s.store.SaveItem(ctx, userID, updated); err != nil {
		return item, &WriteConflictError{ItemID: item.ID, Err: err}
	}
	return updated, nil
}

// Toggle loads an item by id and flips it.
func (s *Service) Toggle(ctx context.Context, userID, itemID string) (models.ToDoItem, error) {
	item, err := s.store.Item(ctx, userID, itemID)
	if err != nil {
		return models.ToDoItem{}, err
	}
	return s.ToggleDone(ctx, userID, item)
}

// DeleteItem removes an item. Deleting an id that does not exist is a
// no-op; subscribers observe the removal in the next snapshot.
func (s *Service) DeleteItem(ctx context.Context, userID, itemID string) error {
	return s.store.DeleteItem(ctx, userID, itemID)
}

// FilterByDate returns the items due within the local calendar day of day
// in loc: [local midnight, next local midnight). A zero day is the
// identity projection. The input is never modified.
func FilterByDate(items []models.ToDoItem, day time.Time, loc *time.Location) []models.ToDoItem {
	out := make([]models.ToDoItem, 0, len(items))
	if day.IsZero() {
		out = append(out, items...)
		return out
	}

	if loc == nil {
		loc = time.Local
	}
	y, m, d := day.In(loc).Date()
	start := time.Date(y, m, d, 0, 0, 0, 0, loc)
	end := start.AddDate(0, 0, 1)

	for _, item := range items {
		due := time.Unix(item.DueDate, 0)
		if !due.Before(start) && due.Before(end) {
			out = append(out, item)
		}
	}
	return out
}
