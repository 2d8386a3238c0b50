package models

// Routine is a celebrity routine template: a named, ordered list of
// time-of-day tasks. It never carries a calendar date; tasks are rebased
// onto a concrete day at materialization time.
type Routine struct {
	ID            string        `firestore:"-" json:"id"`
	CelebrityName string        `firestore:"celebrityName" json:"celebrityName"`
	Photo         string        `firestore:"photo" json:"photo"`
	Description   string        `firestore:"description" json:"description"`
	Tasks         []RoutineTask `firestore:"tasks" json:"tasks"`
}

// RoutineTask is a single templated task. Time is an offset within a day,
// in seconds from local midnight (0 <= Time < 86400), never an absolute
// timestamp.
type RoutineTask struct {
	Time        int64  `firestore:"time" json:"time"`
	TaskName    string `firestore:"taskName" json:"taskName"`
	Description string `firestore:"description" json:"description"`
}

// Purchase records that a user unlocked a routine. The (UserID, RoutineID)
// pair is the uniqueness key; purchase records are never mutated or deleted.
type Purchase struct {
	UserID       string `firestore:"userId" json:"userId"`
	RoutineID    string `firestore:"routineId" json:"routineId"`
	PurchaseDate int64  `firestore:"purchaseDate" json:"purchaseDate"`
}

// ToDoItem is a single item in a user's to-do list. Timestamps are epoch
// seconds. Only IsDone may change after creation.
type ToDoItem struct {
	ID          string `firestore:"id" json:"id"`
	Title       string `firestore:"title" json:"title"`
	DueDate     int64  `firestore:"dueDate" json:"dueDate"`
	CreatedTime int64  `firestore:"createdTime" json:"createdTime"`
	IsDone      bool   `firestore:"isDone" json:"isDone"`
}

// User is a user profile. Read-only from this service's perspective; the
// identity provider owns the lifecycle.
type User struct {
	ID     string `firestore:"id" json:"id"`
	Name   string `firestore:"name" json:"name"`
	Email  string `firestore:"email" json:"email"`
	Joined int64  `firestore:"joined" json:"joined"`
}
