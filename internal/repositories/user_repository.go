package repositories

import (
	"context"

	"gstbill/internal/models"
)

// UserRepository defines the interface for user data access.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	Count(ctx context.Context) (int64, error)
	// List returns users ordered by username, plus the total count.
	List(ctx context.Context, limit, offset int) ([]models.User, int64, error)
	Delete(ctx context.Context, id string) error
}
