package repositories

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
)

// MemoryUserRepository is an in-memory implementation of UserRepository
// backed by a MemoryStore.
type MemoryUserRepository struct {
	s *MemoryStore
}

// Create adds a new user; username and email must be unused.
func (r *MemoryUserRepository) Create(_ context.Context, user *models.User) error {
	defer r.s.write()()

	for _, u := range r.s.state.users {
		if u.Username == user.Username || u.Email == user.Email {
			return fmt.Errorf("duplicate user %s: %w", user.Username, apperrors.ErrIntegrityViolation)
		}
	}
	if user.ID == "" {
		user.ID = uuid.New().String()
	}
	now := time.Now()
	user.CreatedAt, user.UpdatedAt = now, now
	r.s.state.users[user.ID] = *user
	return nil
}

// Update replaces a stored user.
func (r *MemoryUserRepository) Update(_ context.Context, user *models.User) error {
	defer r.s.write()()

	old, ok := r.s.state.users[user.ID]
	if !ok {
		return apperrors.NotFound("user", "ID", user.ID)
	}
	user.CreatedAt = old.CreatedAt
	user.UpdatedAt = time.Now()
	r.s.state.users[user.ID] = *user
	return nil
}

func (r *MemoryUserRepository) find(key string, value string, match func(models.User) bool) (*models.User, error) {
	defer r.s.read()()

	for _, u := range r.s.state.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, apperrors.NotFound("user", key, value)
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*models.User, error) {
	return r.find("username", username, func(u models.User) bool { return u.Username == username })
}

func (r *MemoryUserRepository) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find("email", email, func(u models.User) bool { return u.Email == email })
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find("ID", id, func(u models.User) bool { return u.ID == id })
}

func (r *MemoryUserRepository) Count(_ context.Context) (int64, error) {
	defer r.s.read()()
	return int64(len(r.s.state.users)), nil
}

func (r *MemoryUserRepository) List(_ context.Context, limit, offset int) ([]models.User, int64, error) {
	defer r.s.read()()

	users := make([]models.User, 0, len(r.s.state.users))
	for _, u := range r.s.state.users {
		users = append(users, u)
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return page(users, limit, offset), int64(len(users)), nil
}

func (r *MemoryUserRepository) Delete(_ context.Context, id string) error {
	defer r.s.write()()

	if _, ok := r.s.state.users[id]; !ok {
		return apperrors.NotFound("user", "ID", id)
	}
	delete(r.s.state.users, id)
	return nil
}
