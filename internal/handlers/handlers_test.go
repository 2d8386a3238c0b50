package handlers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ykawasaki/routine-to-do/internal/catalog"
	"github.com/ykawasaki/routine-to-do/internal/models"
	"github.com/ykawasaki/routine-to-do/internal/schedule"
	"github.com/ykawasaki/routine-to-do/internal/store"
	"github.com/ykawasaki/routine-to-do/internal/todolist"
)

func newTestServer(ms *store.MemStore) *echo.Echo {
	cat := catalog.New(ms)
	todos := todolist.NewService(ms)
	mat := schedule.NewMaterializer(ms)

	e := echo.New()
	NewCatalogHandler(cat).Register(e)
	NewTodoHandler(todos, mat, cat).Register(e)
	NewUserHandler(ms).Register(e)
	return e
}

func do(e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestTodoLifecycle(t *testing.T) {
	e := newTestServer(store.NewMemStore())
	due := time.Now().Add(24 * time.Hour).Unix()

	rec := do(e, http.MethodPost, "/api/users/u1/todos",
		fmt.Sprintf(`{"title":"Buy milk","dueDate":%d}`, due))
	if rec.Code != http.StatusCreated {
		t.Fatalf("create: %d %s", rec.Code, rec.Body)
	}
	var created models.ToDoItem
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if created.Title != "Buy milk" || created.DueDate != due {
		t.Errorf("unexpected item: %+v", created)
	}

	rec = do(e, http.MethodGet, "/api/users/u1/todos", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body)
	}
	var list todosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != created.ID {
		t.Fatalf("unexpected list: %+v", list.Items)
	}

	rec = do(e, http.MethodPost, "/api/users/u1/todos/"+created.ID+"/toggle", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("toggle: %d %s", rec.Code, rec.Body)
	}
	var toggled models.ToDoItem
	if err := json.Unmarshal(rec.Body.Bytes(), &toggled); err != nil {
		t.Fatal(err)
	}
	if !toggled.IsDone {
		t.Error("toggle did not mark item done")
	}

	rec = do(e, http.MethodDelete, "/api/users/u1/todos/"+created.ID, "")
	if rec.Code != http.StatusNoContent {
		t.Fatalf("delete: %d %s", rec.Code, rec.Body)
	}

	rec = do(e, http.MethodGet, "/api/users/u1/todos", "")
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 0 {
		t.Errorf("item survived delete: %+v", list.Items)
	}
}

func TestCreateTodoValidation(t *testing.T) {
	e := newTestServer(store.NewMemStore())

	tests := []struct {
		name string
		body string
	}{
		{"empty title", fmt.Sprintf(`{"title":"","dueDate":%d}`, time.Now().Unix())},
		{"stale due date", fmt.Sprintf(`{"title":"Buy milk","dueDate":%d}`, time.Now().Add(-48*time.Hour).Unix())},
		{"bad due date format", `{"title":"Buy milk","dueDate":"soon"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(e, http.MethodPost, "/api/users/u1/todos", tt.body)
			if rec.Code != http.StatusBadRequest {
				t.Errorf("got %d, want 400: %s", rec.Code, rec.Body)
			}
		})
	}
}

func TestListTodosByDate(t *testing.T) {
	ms := store.NewMemStore()
	day := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	seed := []models.ToDoItem{
		{ID: "in", Title: "on the day", DueDate: day.Add(6 * time.Hour).Unix()},
		{ID: "out", Title: "the day after", DueDate: day.Add(30 * time.Hour).Unix()},
	}
	for _, item := range seed {
		if err := ms.SaveItem(context.Background(), "u1", item); err != nil {
			t.Fatal(err)
		}
	}

	e := newTestServer(ms)
	rec := do(e, http.MethodGet, "/api/users/u1/todos?date=2024-03-10", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("list: %d %s", rec.Code, rec.Body)
	}
	var list todosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 1 || list.Items[0].ID != "in" {
		t.Errorf("unexpected filtered list: %+v", list.Items)
	}

	rec = do(e, http.MethodGet, "/api/users/u1/todos?date=bogus", "")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("bogus date: got %d, want 400", rec.Code)
	}
}

func TestPurchaseAndMaterialize(t *testing.T) {
	ms := store.NewMemStore()
	ms.PutRoutine(models.Routine{
		ID:            "r1",
		CelebrityName: "Morning Person",
		Tasks: []models.RoutineTask{
			{Time: 21600, TaskName: "Cold shower"},
			{Time: 72000, TaskName: "Wind down"},
		},
	})
	e := newTestServer(ms)

	rec := do(e, http.MethodGet, "/api/routines", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("routines: %d %s", rec.Code, rec.Body)
	}
	var routines routinesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &routines); err != nil {
		t.Fatal(err)
	}
	if len(routines.Routines) != 1 {
		t.Fatalf("unexpected catalog: %+v", routines.Routines)
	}

	body := `{"date":"2024-03-10"}`
	rec = do(e, http.MethodPost, "/api/users/u1/routines/r1/materialize", body)
	if rec.Code != http.StatusForbidden {
		t.Fatalf("unpurchased materialize: got %d, want 403", rec.Code)
	}

	rec = do(e, http.MethodPost, "/api/users/u1/purchases", `{"routineId":"r1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("purchase: %d %s", rec.Code, rec.Body)
	}
	rec = do(e, http.MethodPost, "/api/users/u1/purchases", `{"routineId":"r1"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("repeat purchase: %d %s", rec.Code, rec.Body)
	}

	rec = do(e, http.MethodGet, "/api/users/u1/purchases", "")
	var purchases purchasesResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &purchases); err != nil {
		t.Fatal(err)
	}
	if len(purchases.RoutineIDs) != 1 || purchases.RoutineIDs[0] != "r1" {
		t.Fatalf("unexpected purchase set: %+v", purchases.RoutineIDs)
	}

	rec = do(e, http.MethodPost, "/api/users/u1/routines/r1/materialize", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("materialize: %d %s", rec.Code, rec.Body)
	}
	var created materializeResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &created); err != nil {
		t.Fatal(err)
	}
	if len(created.Items) != 2 {
		t.Fatalf("materialized %d items, want 2", len(created.Items))
	}
	want := time.Date(2024, 3, 10, 6, 0, 0, 0, time.UTC).Unix()
	if created.Items[0].DueDate != want {
		t.Errorf("first item due %d, want %d", created.Items[0].DueDate, want)
	}

	rec = do(e, http.MethodGet, "/api/users/u1/todos?date=2024-03-10", "")
	var list todosResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &list); err != nil {
		t.Fatal(err)
	}
	if len(list.Items) != 2 {
		t.Errorf("todo list holds %d items, want 2", len(list.Items))
	}

	rec = do(e, http.MethodPost, "/api/users/u1/routines/r9/materialize", body)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown routine: got %d, want 404", rec.Code)
	}
}

func TestGetUser(t *testing.T) {
	ms := store.NewMemStore()
	ms.PutUser(models.User{ID: "u1", Name: "Ada", Email: "ada@example.com", Joined: 1700000000})
	e := newTestServer(ms)

	rec := do(e, http.MethodGet, "/api/users/u1", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("get user: %d %s", rec.Code, rec.Body)
	}
	var u models.User
	if err := json.Unmarshal(rec.Body.Bytes(), &u); err != nil {
		t.Fatal(err)
	}
	if u.Name != "Ada" {
		t.Errorf("unexpected user: %+v", u)
	}

	rec = do(e, http.MethodGet, "/api/users/nobody", "")
	if rec.Code != http.StatusNotFound {
		t.Errorf("missing user: got %d, want 404", rec.Code)
	}
}

func TestAppendRoutineTask(t *testing.T) {
	ms := store.NewMemStore()
	ms.PutRoutine(models.Routine{ID: "r1"})
	e := newTestServer(ms)

	rec := do(e, http.MethodPost, "/api/routines/r1/tasks", `{"time":21600,"taskName":"Run"}`)
	if rec.Code != http.StatusNoContent {
		t.Fatalf("append: %d %s", rec.Code, rec.Body)
	}

	rec = do(e, http.MethodPost, "/api/routines/r1/tasks", `{"time":90000,"taskName":"Too late"}`)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("out-of-range offset: got %d, want 400", rec.Code)
	}

	rec = do(e, http.MethodPost, "/api/routines/r9/tasks", `{"time":0,"taskName":"X"}`)
	if rec.Code != http.StatusNotFound {
		t.Errorf("unknown routine: got %d, want 404", rec.Code)
	}
}
