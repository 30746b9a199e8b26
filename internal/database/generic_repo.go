package database

import (
	"context"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// genericRepository provides CRUD over one slice of the JSON document.
// Entities are keyed by string ids; empty ids get a UUID on create.
type genericRepository[T any] struct {
	store        *JSONStore
	getSlice     func(*JSONData) *[]T
	entityName   string
	getID        func(*T) string
	setID        func(*T, string)
	getName      func(*T) string
	clone        func(T) T
	getCreatedAt func(*T) time.Time
	setCreatedAt func(*T, time.Time)
	setUpdatedAt func(*T, time.Time)
}

// list returns copies of all entities, optionally filtered by a name search
func (r *genericRepository[T]) list(ctx context.Context, search string) ([]T, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	slice := r.getSlice(r.store.data)
	result := make([]T, 0, len(*slice))

	for _, item := range *slice {
		if search == "" || strings.Contains(strings.ToLower(r.getName(&item)), strings.ToLower(search)) {
			result = append(result, r.clone(item))
		}
	}

	sort.SliceStable(result, func(i, j int) bool {
		return r.getName(&result[i]) < r.getName(&result[j])
	})

	return result, nil
}

// getByID returns a copy of a single entity
func (r *genericRepository[T]) getByID(ctx context.Context, id string) (*T, error) {
	r.store.mu.RLock()
	defer r.store.mu.RUnlock()

	slice := r.getSlice(r.store.data)
	for _, item := range *slice {
		if r.getID(&item) == id {
			found := r.clone(item)
			return &found, nil
		}
	}
	return nil, ErrNotFound
}

// create stores a new entity, assigning an id and timestamps
func (r *genericRepository[T]) create(ctx context.Context, entity *T) (*T, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slice := r.getSlice(r.store.data)
	if r.getID(entity) == "" {
		r.setID(entity, uuid.NewString())
	} else {
		for _, existing := range *slice {
			if r.getID(&existing) == r.getID(entity) {
				return nil, ErrAlreadyExists
			}
		}
	}

	now := time.Now().UTC()
	r.setCreatedAt(entity, now)
	r.setUpdatedAt(entity, now)

	*slice = append(*slice, r.clone(*entity))

	if err := r.store.saveUnlocked(); err != nil {
		*slice = (*slice)[:len(*slice)-1]
		return nil, err
	}

	log.Printf("[JSON] Created %s: id=%s", r.entityName, r.getID(entity))
	return entity, nil
}

// update replaces an existing entity, keeping its creation time
func (r *genericRepository[T]) update(ctx context.Context, entity *T) (*T, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slice := r.getSlice(r.store.data)
	id := r.getID(entity)

	for i, existing := range *slice {
		if r.getID(&existing) == id {
			r.setCreatedAt(entity, r.getCreatedAt(&existing))
			r.setUpdatedAt(entity, time.Now().UTC())
			(*slice)[i] = r.clone(*entity)

			if err := r.store.saveUnlocked(); err != nil {
				(*slice)[i] = existing
				return nil, err
			}

			log.Printf("[JSON] Updated %s: id=%s", r.entityName, id)
			return entity, nil
		}
	}

	return nil, ErrNotFound
}

// delete removes an entity by id
func (r *genericRepository[T]) delete(ctx context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	slice := r.getSlice(r.store.data)
	for i, item := range *slice {
		if r.getID(&item) == id {
			previous := *slice
			remaining := make([]T, 0, len(previous)-1)
			remaining = append(remaining, previous[:i]...)
			remaining = append(remaining, previous[i+1:]...)
			*slice = remaining

			if err := r.store.saveUnlocked(); err != nil {
				*slice = previous
				return err
			}

			log.Printf("[JSON] Deleted %s: id=%s", r.entityName, id)
			return nil
		}
	}

	return ErrNotFound
}
