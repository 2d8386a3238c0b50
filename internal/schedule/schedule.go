// Package schedule turns routine templates into concrete dated to-do
// items: each task's seconds-from-midnight offset is rebased onto the
// chosen calendar day and the resulting items are persisted one by one.
package schedule

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/ykawasaki/routine-to-do/internal/models"
)

// ItemWriter is the slice of the store materialization writes to.
type ItemWriter interface {
	SaveItem(ctx context.Context, userID string, item models.ToDoItem) error
}

// TaskFailure identifies one task whose item could not be persisted.
type TaskFailure struct {
	Index    int
	TaskName string
	Err      error
}

// PartialError reports that some, but not necessarily all, of a routine's
// tasks failed to persist. Items for tasks not listed here were saved;
// retrying the failed ones is the caller's call.
type PartialError struct {
	Failed []TaskFailure
}

func (e *PartialError) Error() string {
	names := make([]string, len(e.Failed))
	for i, f := range e.Failed {
		names[i] = fmt.Sprintf("%d (%s)", f.Index, f.TaskName)
	}
	return fmt.Sprintf("failed to save %d of the routine's tasks: %s",
		len(e.Failed), strings.Join(names, ", "))
}

// DueAt rebases a seconds-from-midnight offset onto the calendar day of
// day in loc: local midnight of that day plus the offset as an absolute
// duration. On a day with a DST transition the wall-clock time therefore
// shifts by the transition amount; the offset always measures elapsed
// time since midnight, not a clock face. The template never contributes
// a date of its own.
func DueAt(offset int64, day time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.Local
	}
	y, m, d := day.In(loc).Date()
	midnight := time.Date(y, m, d, 0, 0, 0, 0, loc)
	return midnight.Add(time.Duration(offset) * time.Second)
}

// Materializer creates to-do items from routine templates.
type Materializer struct {
	store ItemWriter
	now   func() time.Time
	newID func() string
}

func NewMaterializer(s ItemWriter) *Materializer {
	return &Materializer{
		store: s,
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Materialize creates one item per task in the routine, due on the given
// calendar day in loc, and persists each individually. The routine itself
// is never modified. Writes are not transactional: on partial failure the
// successfully saved items are returned together with a *PartialError
// naming the tasks that failed. An empty task list yields no items and no
// error. Past days are allowed here; date validation belongs to direct
// item creation.
func (m *Materializer) Materialize(ctx context.Context, userID string, routine models.Routine, day time.Time, loc *time.Location) ([]models.ToDoItem, error) {
	var saved []models.ToDoItem
	var failed []TaskFailure

	for i, task := range routine.Tasks {
		item := models.ToDoItem{
			ID:          m.newID(),
			Title:       task.TaskName,
			DueDate:     DueAt(task.Time, day, loc).Unix(),
			CreatedTime: m.now().Unix(),
			IsDone:      false,
		}
		if err := m.store.SaveItem(ctx, userID, item); err != nil {
			failed = append(failed, TaskFailure{Index: i, TaskName: task.TaskName, Err: err})
			continue
		}
		saved = append(saved, item)
	}

	if len(failed) > 0 {
		return saved, &PartialError{Failed: failed}
	}
	return saved, nil
}
