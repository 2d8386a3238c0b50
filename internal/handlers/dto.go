package handlers

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ykawasaki/routine-to-do/internal/models"
)

// dueTime parses a due date from JSON as epoch seconds, an RFC3339
// datetime, or a date-only string ("2006-01-02", start of that day UTC).
type dueTime struct{ t time.Time }

func (d *dueTime) UnmarshalJSON(data []byte) error {
	var secs int64
	if err := json.Unmarshal(data, &secs); err == nil {
		d.t = time.Unix(secs, 0)
		return nil
	}

	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("dueDate: use epoch seconds, RFC3339 or YYYY-MM-DD")
	}
	raw = strings.TrimSpace(raw)

	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		d.t = t
		return nil
	}
	if t, err := time.Parse("2006-01-02", raw); err == nil {
		d.t = time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
		return nil
	}
	return fmt.Errorf("dueDate: use epoch seconds, RFC3339 or YYYY-MM-DD")
}

func (d dueTime) Time() time.Time { return d.t }

type createTodoRequest struct {
	Title   string  `json:"title"`
	DueDate dueTime `json:"dueDate"`
}

type purchaseRequest struct {
	RoutineID string `json:"routineId"`
}

type materializeRequest struct {
	Date     string `json:"date"`     // YYYY-MM-DD
	Timezone string `json:"timezone"` // IANA name; defaults to UTC
}

type routinesResponse struct {
	Routines []models.Routine `json:"routines"`
	Warnings []string         `json:"warnings,omitempty"`
}

type purchasesResponse struct {
	RoutineIDs []string `json:"routineIds"`
}

type todosResponse struct {
	Items []models.ToDoItem `json:"items"`
}

type materializeResponse struct {
	Items []models.ToDoItem `json:"items"`
}

type materializeFailure struct {
	Index    int    `json:"index"`
	TaskName string `json:"taskName"`
	Reason   string `json:"reason"`
}

type partialMaterializeResponse struct {
	Items  []models.ToDoItem    `json:"items"`
	Failed []materializeFailure `json:"failed"`
}
