package handlers

import (
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/account-service/internal/api/dto"
	"github.com/spec-kit/account-service/internal/auth"
	"github.com/spec-kit/account-service/internal/domain"
	"github.com/spec-kit/account-service/internal/service"
	apperrors "github.com/spec-kit/account-service/pkg/util"
)

// UsersHandler exposes profile endpoints guarded by ownership checks.
type UsersHandler struct {
	users *service.UserService
}

// NewUsersHandler constructs handler.
func NewUsersHandler(users *service.UserService) *UsersHandler {
	return &UsersHandler{users: users}
}

// Get handles GET /users/:id. Owner or admin only.
func (h *UsersHandler) Get(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	targetID := c.Params("id")

	if err := auth.AuthorizeOwnerOrRole(identity, targetID, domain.RoleAdmin); err != nil {
		return err
	}

	user, err := h.users.Get(c.UserContext(), targetID)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(user)}})
}

// Update handles PATCH /users/:id. Owner or admin only.
func (h *UsersHandler) Update(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	targetID := c.Params("id")

	if err := auth.AuthorizeOwnerOrRole(identity, targetID, domain.RoleAdmin); err != nil {
		return err
	}

	var req dto.UpdateProfileRequest
	if err := c.BodyParser(&req); err != nil {
		return apperrors.NewValidationError("invalid payload", nil)
	}
	if req.Name == "" && req.Email == "" {
		return apperrors.NewValidationError("nothing to update", nil)
	}

	user, err := h.users.UpdateProfile(c.UserContext(), targetID, req.Name, req.Email)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"user": dto.NewUserResponse(user)}})
}

// Delete handles DELETE /users/:id. Owner or admin only.
func (h *UsersHandler) Delete(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	targetID := c.Params("id")

	if err := auth.AuthorizeOwnerOrRole(identity, targetID, domain.RoleAdmin); err != nil {
		return err
	}

	if err := h.users.Delete(c.UserContext(), targetID); err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": fiber.Map{"message": "account deleted"}})
}

// List handles GET /users. Admin only.
func (h *UsersHandler) List(c *fiber.Ctx) error {
	identity, _ := auth.IdentityFromContext(c)
	if err := auth.AuthorizeRole(identity, domain.RoleAdmin); err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.Query("page", "1"))
	perPage, _ := strconv.Atoi(c.Query("per_page", "20"))

	users, total, err := h.users.List(c.UserContext(), page, perPage)
	if err != nil {
		return err
	}

	resp := dto.UserListResponse{
		Users:   make([]dto.UserResponse, 0, len(users)),
		Total:   total,
		Page:    page,
		PerPage: perPage,
	}
	for _, user := range users {
		resp.Users = append(resp.Users, dto.NewUserResponse(user))
	}
	return c.JSON(fiber.Map{"data": resp})
}
