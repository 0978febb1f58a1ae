package handlers

import (
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"gstbill/internal/apperrors"
	"gstbill/internal/middleware"
	"gstbill/internal/models"
	"gstbill/internal/services"
	"gstbill/internal/validation"
)

// AuthHandler handles HTTP requests for authentication and user administration.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
	validate    *validator.Validate
	log         *zap.Logger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService, log *zap.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
		validate:    validation.New(),
		log:         log,
	}
}

// RegisterRoutes registers the public authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/register", h.HandleRegister)
	authRoutes.Post("/login", h.HandleLogin)
}

// RegisterAccountRoutes registers the routes of the signed-in user. router
// must already be behind middleware.AuthRequired.
func (h *AuthHandler) RegisterAccountRoutes(router fiber.Router) {
	accountRoutes := router.Group("/account")
	accountRoutes.Get("/me", h.HandleMe)
	accountRoutes.Put("/password", h.HandleChangePassword)
}

// RegisterAdminRoutes registers user administration under /admin. router
// must already be behind middleware.AuthRequired; every route needs ADMIN.
func (h *AuthHandler) RegisterAdminRoutes(router fiber.Router) {
	userRoutes := router.Group("/admin/users", middleware.RequireRole(models.RoleAdmin))
	userRoutes.Get("/", h.HandleListUsers)
	userRoutes.Get("/:id", h.HandleGetUser)
	userRoutes.Put("/:id", h.HandleUpdateUser)
	userRoutes.Delete("/:id", h.HandleDeleteUser)
	userRoutes.Post("/:id/enable", h.HandleEnableUser)
	userRoutes.Post("/:id/disable", h.HandleDisableUser)
	userRoutes.Post("/:id/roles", h.HandleAssignRole)
	userRoutes.Delete("/:id/roles/:role", h.HandleRemoveRole)
}

// RegisterRequest represents the request body for registration.
type RegisterRequest struct {
	Username string `json:"username" validate:"required,min=3,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=8"`
}

// HandleRegister handles new user registration.
func (h *AuthHandler) HandleRegister(c *fiber.Ctx) error {
	var req RegisterRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	if err := validation.Check(h.validate, req); err != nil {
		return respondError(c, h.log, "Validation failed", err)
	}

	user := req.toUser()
	if err := h.authService.RegisterUser(c.UserContext(), user); err != nil {
		return respondError(c, h.log, "Registration failed", err)
	}

	// For security, do not return the password hash
	user.Password = ""
	return c.Status(fiber.StatusCreated).JSON(fiber.Map{
		"message": "User registered successfully",
		"user":    user,
	})
}

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Username string `json:"username" validate:"required"`
	Password string `json:"password" validate:"required"`
}

// HandleLogin handles user login and issues a JWT token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	if err := validation.Check(h.validate, req); err != nil {
		return respondError(c, h.log, "Validation failed", err)
	}

	token, err := h.authService.LoginUser(c.UserContext(), req.Username, req.Password)
	if err != nil {
		h.log.Info("login failed", zap.String("username", req.Username), zap.Error(err))
		return respondError(c, h.log, "Authentication failed", err)
	}

	return c.JSON(fiber.Map{
		"message": "Login successful",
		"token":   token,
	})
}

// HandleMe returns the identity carried by the request token.
func (h *AuthHandler) HandleMe(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"user_id":  c.Locals(middleware.LocalUserID),
		"username": c.Locals(middleware.LocalUsername),
		"role":     c.Locals(middleware.LocalRole),
	})
}

// ChangePasswordRequest represents the request body for a password change.
type ChangePasswordRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// HandleChangePassword replaces the password of the signed-in user.
func (h *AuthHandler) HandleChangePassword(c *fiber.Ctx) error {
	var req ChangePasswordRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	if err := validation.Check(h.validate, req); err != nil {
		return respondError(c, h.log, "Validation failed", err)
	}

	userID, _ := c.Locals(middleware.LocalUserID).(string)
	if err := h.authService.ChangePassword(c.UserContext(), userID, req.CurrentPassword, req.NewPassword); err != nil {
		return respondError(c, h.log, "Could not change password", err)
	}
	return c.JSON(fiber.Map{
		"message": "Password changed successfully",
	})
}

// HandleListUsers lists users, ?page= and ?limit= paginate.
func (h *AuthHandler) HandleListUsers(c *fiber.Ctx) error {
	page, limit := pageParams(c)
	users, err := h.userService.ListUsers(c.UserContext(), page, limit)
	if err != nil {
		return respondError(c, h.log, "Could not retrieve users", err)
	}
	return c.JSON(users)
}

// HandleGetUser returns a single user.
func (h *AuthHandler) HandleGetUser(c *fiber.Ctx) error {
	user, err := h.userService.GetUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not retrieve user", err)
	}
	return c.JSON(user)
}

// HandleUpdateUser changes a user's username and email.
func (h *AuthHandler) HandleUpdateUser(c *fiber.Ctx) error {
	var req services.UserUpdate
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	user, err := h.userService.UpdateUser(c.UserContext(), c.Params("id"), req)
	if err != nil {
		return respondError(c, h.log, "Could not update user", err)
	}
	return c.JSON(user)
}

// HandleDeleteUser removes a user other than the caller.
func (h *AuthHandler) HandleDeleteUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.isSelf(c, id) {
		return respondError(c, h.log, "Could not delete user", apperrors.Invalid("id", "cannot delete your own account"))
	}
	if err := h.userService.DeleteUser(c.UserContext(), id); err != nil {
		return respondError(c, h.log, "Could not delete user", err)
	}
	return c.JSON(fiber.Map{
		"message": "User deleted successfully",
	})
}

// HandleEnableUser lets a disabled user sign in again.
func (h *AuthHandler) HandleEnableUser(c *fiber.Ctx) error {
	user, err := h.userService.EnableUser(c.UserContext(), c.Params("id"))
	if err != nil {
		return respondError(c, h.log, "Could not enable user", err)
	}
	return c.JSON(user)
}

// HandleDisableUser stops a user other than the caller from signing in.
func (h *AuthHandler) HandleDisableUser(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.isSelf(c, id) {
		return respondError(c, h.log, "Could not disable user", apperrors.Invalid("id", "cannot disable your own account"))
	}
	user, err := h.userService.DisableUser(c.UserContext(), id)
	if err != nil {
		return respondError(c, h.log, "Could not disable user", err)
	}
	return c.JSON(user)
}

// RoleRequest is the body of POST /admin/users/:id/roles.
type RoleRequest struct {
	Role string `json:"role" validate:"required"`
}

// HandleAssignRole gives a user a role.
func (h *AuthHandler) HandleAssignRole(c *fiber.Ctx) error {
	var req RoleRequest
	if err := c.BodyParser(&req); err != nil {
		return invalidBody(c, h.log, err)
	}
	if err := validation.Check(h.validate, req); err != nil {
		return respondError(c, h.log, "Validation failed", err)
	}
	user, err := h.userService.AssignRole(c.UserContext(), c.Params("id"), req.Role)
	if err != nil {
		return respondError(c, h.log, "Could not assign role", err)
	}
	return c.JSON(user)
}

// HandleRemoveRole takes a role away from a user other than the caller.
func (h *AuthHandler) HandleRemoveRole(c *fiber.Ctx) error {
	id := c.Params("id")
	if h.isSelf(c, id) {
		return respondError(c, h.log, "Could not remove role", apperrors.Invalid("id", "cannot change your own roles"))
	}
	user, err := h.userService.RemoveRole(c.UserContext(), id, c.Params("role"))
	if err != nil {
		return respondError(c, h.log, "Could not remove role", err)
	}
	return c.JSON(user)
}

func (h *AuthHandler) isSelf(c *fiber.Ctx, id string) bool {
	self, _ := c.Locals(middleware.LocalUserID).(string)
	return self == id
}

func (r RegisterRequest) toUser() *models.User {
	return &models.User{
		Username: strings.TrimSpace(r.Username),
		Email:    strings.TrimSpace(r.Email),
		Password: r.Password,
	}
}
