package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/models"
	"gstbill/internal/repositories"
	"gstbill/internal/validation"
)

// UserUpdate carries the profile fields an administrator may change.
type UserUpdate struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
}

// UserService administers operator accounts: listing, profile edits,
// enabling, roles and removal. Returned users never carry the password hash.
type UserService struct {
	userRepo repositories.UserRepository
	validate *validator.Validate
	log      *zap.Logger
}

// NewUserService creates a new UserService.
func NewUserService(userRepo repositories.UserRepository, log *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		validate: validation.New(),
		log:      log,
	}
}

func withoutPassword(u *models.User) *models.User {
	u.Password = ""
	return u
}

// ListUsers returns one page of users ordered by username.
func (s *UserService) ListUsers(ctx context.Context, page, limit int) (*Page[models.User], error) {
	page, limit = clampPage(page, limit)
	users, total, err := s.userRepo.List(ctx, limit, (page-1)*limit)
	if err != nil {
		return nil, err
	}
	for i := range users {
		users[i].Password = ""
	}
	return &Page[models.User]{Items: users, Total: total, Page: page, Limit: limit}, nil
}

// GetUser retrieves a single user by ID.
func (s *UserService) GetUser(ctx context.Context, id string) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return withoutPassword(u), nil
}

// UpdateUser changes the username and email of a user. Both stay unique.
func (s *UserService) UpdateUser(ctx context.Context, id string, in UserUpdate) (*models.User, error) {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.TrimSpace(in.Email)
	if err := validation.Check(s.validate, in); err != nil {
		return nil, err
	}

	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if other, err := s.userRepo.GetByUsername(ctx, in.Username); err == nil && other.ID != id {
		return nil, fmt.Errorf("username '%s' already taken: %w", in.Username, ErrUserExists)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up username: %w", err)
	}
	if other, err := s.userRepo.GetByEmail(ctx, in.Email); err == nil && other.ID != id {
		return nil, fmt.Errorf("email '%s' already registered: %w", in.Email, ErrUserExists)
	} else if err != nil && !errors.Is(err, apperrors.ErrNotFound) {
		return nil, fmt.Errorf("failed to look up email: %w", err)
	}

	u.Username, u.Email = in.Username, in.Email
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	return withoutPassword(u), nil
}

// EnableUser lets a user sign in again.
func (s *UserService) EnableUser(ctx context.Context, id string) (*models.User, error) {
	return s.modify(ctx, id, "user enabled", func(u *models.User) error {
		u.Enabled = true
		return nil
	})
}

// DisableUser refuses further sign-ins. Tokens already issued stay valid
// until they expire.
func (s *UserService) DisableUser(ctx context.Context, id string) (*models.User, error) {
	return s.modify(ctx, id, "user disabled", func(u *models.User) error {
		u.Enabled = false
		return nil
	})
}

// AssignRole gives a user role. It takes effect with the next token.
func (s *UserService) AssignRole(ctx context.Context, id, role string) (*models.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return nil, apperrors.Invalid("role", "must be ADMIN or USER")
	}
	return s.modify(ctx, id, "role assigned", func(u *models.User) error {
		u.Role = role
		return nil
	})
}

// RemoveRole takes role away from a user, who falls back to USER. USER
// itself cannot be removed.
func (s *UserService) RemoveRole(ctx context.Context, id, role string) (*models.User, error) {
	role = strings.ToUpper(strings.TrimSpace(role))
	if !models.ValidRole(role) {
		return nil, apperrors.Invalid("role", "must be ADMIN or USER")
	}
	if role == models.RoleUser {
		return nil, apperrors.Invalid("role", "every account keeps the USER role")
	}
	return s.modify(ctx, id, "role removed", func(u *models.User) error {
		if u.Role != role {
			return apperrors.Invalid("role", "user does not have role "+role)
		}
		u.Role = models.RoleUser
		return nil
	})
}

// DeleteUser removes a user. Invoices keep the creator's ID.
func (s *UserService) DeleteUser(ctx context.Context, id string) error {
	if err := s.userRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete user %s: %w", id, err)
	}
	s.log.Info("user deleted", zap.String("user_id", id))
	return nil
}

func (s *UserService) modify(ctx context.Context, id, msg string, change func(*models.User) error) (*models.User, error) {
	u, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := change(u); err != nil {
		return nil, err
	}
	if err := s.userRepo.Update(ctx, u); err != nil {
		return nil, fmt.Errorf("failed to update user %s: %w", id, err)
	}
	s.log.Info(msg, zap.String("user_id", u.ID), zap.String("role", u.Role), zap.Bool("enabled", u.Enabled))
	return withoutPassword(u), nil
}
