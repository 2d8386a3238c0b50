package store

import (
	"context"
	"sync"

	"google.golang.org/api/iterator"

	"github.com/ykawasaki/routine-to-do/internal/models"
)

type purchaseKey struct {
	userID    string
	routineID string
}

// MemStore is an in-memory store with the same contract as Client. It backs
// local development without a Firestore project and the package tests.
type MemStore struct {
	mu        sync.Mutex
	routines  []models.Routine
	purchases map[purchaseKey]models.Purchase
	users     map[string]models.User
	todos     map[string]map[string]models.ToDoItem
	watchers  map[string]map[*memWatch]struct{}
}

func NewMemStore() *MemStore {
	return &MemStore{
		purchases: make(map[purchaseKey]models.Purchase),
		users:     make(map[string]models.User),
		todos:     make(map[string]map[string]models.ToDoItem),
		watchers:  make(map[string]map[*memWatch]struct{}),
	}
}

// PutRoutine inserts or replaces a routine template. Not part of the store
// interfaces; routine content is seeded out of band.
func (m *MemStore) PutRoutine(r models.Routine) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.routines {
		if m.routines[i].ID == r.ID {
			m.routines[i] = r
			return
		}
	}
	m.routines = append(m.routines, r)
}

// PutUser inserts or replaces a user profile.
func (m *MemStore) PutUser(u models.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = u
}

func (m *MemStore) Routines(ctx context.Context) ([]models.Routine, []DecodeWarning, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.Routine, len(m.routines))
	copy(out, m.routines)
	return out, nil, nil
}

func (m *MemStore) PurchasedRoutineIDs(ctx context.Context, userID string) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var ids []string
	for k := range m.purchases {
		if k.userID == userID {
			ids = append(ids, k.routineID)
		}
	}
	return ids, nil
}

func (m *MemStore) SavePurchase(ctx context.Context, p models.Purchase) (models.Purchase, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	key := purchaseKey{userID: p.UserID, routineID: p.RoutineID}
	if existing, ok := m.purchases[key]; ok {
		return existing, nil
	}
	m.purchases[key] = p
	return p, nil
}

func (m *MemStore) AppendRoutineTask(ctx context.Context, routineID string, task models.RoutineTask) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.routines {
		if m.routines[i].ID == routineID {
			m.routines[i].Tasks = append(m.routines[i].Tasks, task)
			return nil
		}
	}
	return ErrNotFound
}

func (m *MemStore) User(ctx context.Context, userID string) (models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	u, ok := m.users[userID]
	if !ok {
		return models.User{}, ErrNotFound
	}
	return u, nil
}

func (m *MemStore) Items(ctx context.Context, userID string) ([]models.ToDoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.itemsLocked(userID), nil
}

func (m *MemStore) itemsLocked(userID string) []models.ToDoItem {
	var items []models.ToDoItem
	for _, item := range m.todos[userID] {
		items = append(items, item)
	}
	return items
}

func (m *MemStore) Item(ctx context.Context, userID, itemID string) (models.ToDoItem, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	item, ok := m.todos[userID][itemID]
	if !ok {
		return models.ToDoItem{}, ErrNotFound
	}
	return item, nil
}

func (m *MemStore) SaveItem(ctx context.Context, userID string, item models.ToDoItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.todos[userID] == nil {
		m.todos[userID] = make(map[string]models.ToDoItem)
	}
	m.todos[userID][item.ID] = item
	m.notifyLocked(userID)
	return nil
}

func (m *MemStore) DeleteItem(ctx context.Context, userID, itemID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.todos[userID][itemID]; !ok {
		return nil
	}
	delete(m.todos[userID], itemID)
	m.notifyLocked(userID)
	return nil
}

func (m *MemStore) WatchItems(ctx context.Context, userID string) (ItemWatch, error) {
	w := &memWatch{
		store:  m,
		userID: userID,
		ch:     make(chan []models.ToDoItem, 1),
		stop:   make(chan struct{}),
	}
	m.mu.Lock()
	if m.watchers[userID] == nil {
		m.watchers[userID] = make(map[*memWatch]struct{})
	}
	m.watchers[userID][w] = struct{}{}
	w.push(m.itemsLocked(userID))
	m.mu.Unlock()
	return w, nil
}

func (m *MemStore) notifyLocked(userID string) {
	items := m.itemsLocked(userID)
	for w := range m.watchers[userID] {
		w.push(items)
	}
}

type memWatch struct {
	store  *MemStore
	userID string
	ch     chan []models.ToDoItem
	stop   chan struct{}
	once   sync.Once
}

// push delivers the latest item set, replacing a not-yet-consumed one.
// Watchers always observe the newest state even if they read slowly.
func (w *memWatch) push(items []models.ToDoItem) {
	for {
		select {
		case w.ch <- items:
			return
		default:
		}
		select {
		case <-w.ch:
		default:
		}
	}
}

func (w *memWatch) Next() ([]models.ToDoItem, error) {
	// A snapshot buffered before Stop must not be delivered after it.
	select {
	case <-w.stop:
		return nil, iterator.Done
	default:
	}
	select {
	case <-w.stop:
		return nil, iterator.Done
	case items := <-w.ch:
		return items, nil
	}
}

func (w *memWatch) Stop() {
	w.once.Do(func() {
		w.store.mu.Lock()
		delete(w.store.watchers[w.userID], w)
		w.store.mu.Unlock()
		close(w.stop)
	})
}
