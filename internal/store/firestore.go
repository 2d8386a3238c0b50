package store

import (
	"context"
	"fmt"
	"log"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/ykawasaki/routine-to-do/internal/models"
)

// Client is the Firestore-backed store. Collection layout:
//
//	routines/{routineId}
//	purchases/{userId}_{routineId}
//	users/{userId}
//	users/{userId}/todos/{itemId}
//
// The purchase document id is derived from the (userId, routineId) pair
// here and nowhere else; callers address purchases by the pair.
type Client struct {
	fs *firestore.Client
}

func NewClient(ctx context.Context, projectID string, opts ...option.ClientOption) (*Client, error) {
	fs, err := firestore.NewClient(ctx, projectID, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Firestore client: %v", err)
	}
	return &Client{fs: fs}, nil
}

func (c *Client) Close() error {
	return c.fs.Close()
}

func (c *Client) todos(userID string) *firestore.CollectionRef {
	return c.fs.Collection("users").Doc(userID).Collection("todos")
}

func purchaseDocID(userID, routineID string) string {
	return userID + "_" + routineID
}

func (c *Client) Routines(ctx context.Context) ([]models.Routine, []DecodeWarning, error) {
	iter := c.fs.Collection("routines").Documents(ctx)
	defer iter.Stop()

	var routines []models.Routine
	var warnings []DecodeWarning
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("failed to iterate routines: %v", err)
		}

		var r models.Routine
		if err := doc.DataTo(&r); err != nil {
			warnings = append(warnings, DecodeWarning{DocID: doc.Ref.ID, Err: err})
			continue
		}
		r.ID = doc.Ref.ID
		routines = append(routines, r)
	}

	return routines, warnings, nil
}

func (c *Client) PurchasedRoutineIDs(ctx context.Context, userID string) ([]string, error) {
	iter := c.fs.Collection("purchases").
		Where("userId", "==", userID).
		Documents(ctx)
	defer iter.Stop()

	var ids []string
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate purchases: %v", err)
		}

		var p models.Purchase
		if err := doc.DataTo(&p); err != nil {
			log.Printf("Skipping undecodable purchase %s: %v", doc.Ref.ID, err)
			continue
		}
		ids = append(ids, p.RoutineID)
	}

	return ids, nil
}

func (c *Client) SavePurchase(ctx context.Context, p models.Purchase) (models.Purchase, error) {
	ref := c.fs.Collection("purchases").Doc(purchaseDocID(p.UserID, p.RoutineID))

	out := p
	err := c.fs.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil && status.Code(err) != codes.NotFound {
			return err
		}
		if err == nil && snap.Exists() {
			// Already purchased: keep the original record.
			return snap.DataTo(&out)
		}
		return tx.Set(ref, p)
	})
	if err != nil {
		return models.Purchase{}, fmt.Errorf("failed to save purchase: %v", err)
	}

	return out, nil
}

func (c *Client) AppendRoutineTask(ctx context.Context, routineID string, task models.RoutineTask) error {
	_, err := c.fs.Collection("routines").Doc(routineID).Update(ctx, []firestore.Update{
		{Path: "tasks", Value: firestore.ArrayUnion(map[string]interface{}{
			"time":        task.Time,
			"taskName":    task.TaskName,
			"description": task.Description,
		})},
	})
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return ErrNotFound
		}
		return fmt.Errorf("failed to append routine task: %v", err)
	}
	return nil
}

func (c *Client) User(ctx context.Context, userID string) (models.User, error) {
	doc, err := c.fs.Collection("users").Doc(userID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.User{}, ErrNotFound
		}
		return models.User{}, fmt.Errorf("failed to get user: %v", err)
	}

	var u models.User
	if err := doc.DataTo(&u); err != nil {
		return models.User{}, fmt.Errorf("failed to unmarshal user: %v", err)
	}
	return u, nil
}

func (c *Client) Items(ctx context.Context, userID string) ([]models.ToDoItem, error) {
	iter := c.todos(userID).Documents(ctx)
	defer iter.Stop()

	var items []models.ToDoItem
	for {
		doc, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate todos: %v", err)
		}

		var item models.ToDoItem
		if err := doc.DataTo(&item); err != nil {
			log.Printf("Skipping undecodable todo %s: %v", doc.Ref.ID, err)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (c *Client) Item(ctx context.Context, userID, itemID string) (models.ToDoItem, error) {
	doc, err := c.todos(userID).Doc(itemID).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return models.ToDoItem{}, ErrNotFound
		}
		return models.ToDoItem{}, fmt.Errorf("failed to get todo: %v", err)
	}

	var item models.ToDoItem
	if err := doc.DataTo(&item); err != nil {
		return models.ToDoItem{}, fmt.Errorf("failed to unmarshal todo: %v", err)
	}
	return item, nil
}

func (c *Client) SaveItem(ctx context.Context, userID string, item models.ToDoItem) error {
	_, err := c.todos(userID).Doc(item.ID).Set(ctx, item)
	if err != nil {
		return fmt.Errorf("failed to save todo: %v", err)
	}
	return nil
}

func (c *Client) DeleteItem(ctx context.Context, userID, itemID string) error {
	// Firestore deletes are no-ops on missing documents, which is exactly
	// the contract ItemWatch consumers rely on.
	_, err := c.todos(userID).Doc(itemID).Delete(ctx)
	if err != nil {
		return fmt.Errorf("failed to delete todo: %v", err)
	}
	return nil
}

func (c *Client) WatchItems(ctx context.Context, userID string) (ItemWatch, error) {
	ctx, cancel := context.WithCancel(ctx)
	snaps := c.todos(userID).
		OrderBy("dueDate", firestore.Asc).
		Snapshots(ctx)
	return &firestoreWatch{ctx: ctx, cancel: cancel, snaps: snaps}, nil
}

// firestoreWatch adapts a Firestore query snapshot iterator to ItemWatch.
// The iterator resubscribes through transient disconnects on its own; only
// permanent failures reach Next's caller.
type firestoreWatch struct {
	ctx    context.Context
	cancel context.CancelFunc
	snaps  *firestore.QuerySnapshotIterator
}

func (w *firestoreWatch) Next() ([]models.ToDoItem, error) {
	snap, err := w.snaps.Next()
	if err != nil {
		select {
		case <-w.ctx.Done():
			return nil, iterator.Done
		default:
		}
		return nil, fmt.Errorf("todo watch failed: %v", err)
	}

	var items []models.ToDoItem
	docs := snap.Documents
	for {
		doc, err := docs.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("failed to iterate todo snapshot: %v", err)
		}

		var item models.ToDoItem
		if err := doc.DataTo(&item); err != nil {
			log.Printf("Skipping undecodable todo %s: %v", doc.Ref.ID, err)
			continue
		}
		items = append(items, item)
	}

	return items, nil
}

func (w *firestoreWatch) Stop() {
	w.cancel()
	w.snaps.Stop()
}
