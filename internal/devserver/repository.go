package devserver

import (
	"errors"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/songzhibin97/adminconsole/pkg/console"
)

var (
	errNotFound  = errors.New("not found")
	errDuplicate = errors.New("already exists")
)

// table is an ordered in-memory collection of one entity kind
type table[T console.Entity] struct {
	mu     sync.RWMutex
	order  []string
	rows   map[string]T
	withID func(T, string) T
}

func newTable[T console.Entity](withID func(T, string) T) *table[T] {
	return &table[T]{
		rows:   make(map[string]T),
		withID: withID,
	}
}

// page returns the items of page and the total count.
func (t *table[T]) page(page, limit int) ([]T, int) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	total := len(t.order)
	if limit <= 0 {
		return []T{}, total
	}
	start := total
	if page-1 <= total/limit {
		start = min((page-1)*limit, total)
	}
	end := total
	if limit < total-start {
		end = start + limit
	}

	items := make([]T, 0, end-start)
	for _, id := range t.order[start:end] {
		items = append(items, t.rows[id])
	}
	return items, total
}

func (t *table[T]) all() []T {
	items, _ := t.page(1, t.len())
	return items
}

func (t *table[T]) len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.order)
}

func (t *table[T]) get(id string) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	v, ok := t.rows[id]
	return v, ok
}

func (t *table[T]) find(match func(T) bool) (T, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	for _, id := range t.order {
		if v := t.rows[id]; match(v) {
			return v, true
		}
	}
	var zero T
	return zero, false
}

func (t *table[T]) insert(v T) T {
	id := strings.ReplaceAll(uuid.NewString(), "-", "")[:24]
	v = t.withID(v, id)

	t.mu.Lock()
	defer t.mu.Unlock()
	t.rows[id] = v
	t.order = append(t.order, id)
	return v
}

func (t *table[T]) replace(id string, v T) (T, error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		var zero T
		return zero, errNotFound
	}
	v = t.withID(v, id)
	t.rows[id] = v
	return v, nil
}

func (t *table[T]) remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, ok := t.rows[id]; !ok {
		return errNotFound
	}
	delete(t.rows, id)
	for i, existing := range t.order {
		if existing == id {
			t.order = append(t.order[:i], t.order[i+1:]...)
			break
		}
	}
	return nil
}

// Repository holds the backend's data in memory
type Repository struct {
	Users        *table[console.User]
	Missions     *table[console.Mission]
	Protocols    *table[console.Protocol]
	Mentors      *table[console.Mentor]
	CareerFields *table[console.CareerField]

	hasher *PasswordHasher
	// mu guards hashes and email uniqueness across Users writes.
	mu     sync.Mutex
	hashes map[string]string
}

// NewRepository creates an empty repository
func NewRepository(hasher *PasswordHasher) *Repository {
	return &Repository{
		Users:        newTable(func(u console.User, id string) console.User { u.ID = id; return u }),
		Missions:     newTable(func(m console.Mission, id string) console.Mission { m.ID = id; return m }),
		Protocols:    newTable(func(p console.Protocol, id string) console.Protocol { p.ID = id; return p }),
		Mentors:      newTable(func(m console.Mentor, id string) console.Mentor { m.ID = id; return m }),
		CareerFields: newTable(func(c console.CareerField, id string) console.CareerField { c.ID = id; return c }),
		hasher:       hasher,
		hashes:       make(map[string]string),
	}
}

// CreateUser registers user with its password. The stored user never
// carries the password.
func (r *Repository) CreateUser(user console.User) (console.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	email := strings.ToLower(strings.TrimSpace(user.Email))
	if _, exists := r.Users.find(func(u console.User) bool { return strings.EqualFold(u.Email, email) }); exists {
		return console.User{}, errDuplicate
	}

	hash, err := r.hasher.HashPassword(user.Password)
	if err != nil {
		return console.User{}, err
	}
	if user.Role == "" {
		user.Role = console.RoleUser
	}
	user.Email = email
	user.Password = ""

	created := r.Users.insert(user)
	r.hashes[created.ID] = hash
	return created, nil
}

// UpdateUser replaces the user's fields. The password changes only when a
// new one is given.
func (r *Repository) UpdateUser(id string, user console.User) (console.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.Users.get(id)
	if !ok {
		return console.User{}, errNotFound
	}
	if user.Role == "" {
		user.Role = existing.Role
	}

	if user.Password != "" {
		hash, err := r.hasher.HashPassword(user.Password)
		if err != nil {
			return console.User{}, err
		}
		user.Password = ""
		updated, err := r.Users.replace(id, user)
		if err != nil {
			return console.User{}, err
		}
		r.hashes[id] = hash
		return updated, nil
	}
	return r.Users.replace(id, user)
}

// DeleteUser removes the user and its password.
func (r *Repository) DeleteUser(id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if err := r.Users.remove(id); err != nil {
		return err
	}
	delete(r.hashes, id)
	return nil
}

// Authenticate returns the user owning email when password matches.
func (r *Repository) Authenticate(email, password string) (console.User, error) {
	user, ok := r.Users.find(func(u console.User) bool { return strings.EqualFold(u.Email, strings.TrimSpace(email)) })
	if !ok {
		return console.User{}, errNotFound
	}

	r.mu.Lock()
	hash := r.hashes[user.ID]
	r.mu.Unlock()

	if err := r.hasher.VerifyPassword(password, hash); err != nil {
		return console.User{}, err
	}
	return user, nil
}
