package handlers

import (
	"strings"

	"github.com/airmencoders/tron-common-api-sub001/internal/middleware"
	"github.com/airmencoders/tron-common-api-sub001/internal/models"
	"github.com/airmencoders/tron-common-api-sub001/internal/services"
	"github.com/airmencoders/tron-common-api-sub001/pkg/logger"
	"github.com/airmencoders/tron-common-api-sub001/pkg/utils"
	"github.com/gofiber/fiber/v2"
	"gorm.io/gorm"
)

type AuthHandler struct {
	DB    *gorm.DB
	Audit *services.AuditService
}

func NewAuthHandler(db *gorm.DB, audit *services.AuditService) *AuthHandler {
	return &AuthHandler{DB: db, Audit: audit}
}

type registerRequest struct {
	Email     string `json:"email"`
	Password  string `json:"password"`
	FirstName string `json:"firstName"`
	LastName  string `json:"lastName"`
}

func (h *AuthHandler) Register(c *fiber.Ctx) error {
	var req registerRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))
	if email == "" || !strings.Contains(email, "@") {
		return utils.Error(c, fiber.StatusBadRequest, "valid email is required")
	}
	if len(req.Password) < 8 {
		return utils.Error(c, fiber.StatusBadRequest, "password must be at least 8 characters")
	}

	var count int64
	if err := h.DB.Model(&models.DashboardUser{}).Where("email = ?", email).Count(&count).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed checking existing user")
	}
	if count > 0 {
		return utils.Error(c, fiber.StatusConflict, "email already registered")
	}

	hash, err := utils.HashPassword(req.Password)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed hashing password")
	}

	user := models.DashboardUser{
		Email:        email,
		PasswordHash: hash,
		FirstName:    strings.TrimSpace(req.FirstName),
		LastName:     strings.TrimSpace(req.LastName),
		Role:         models.UserRoleUser,
	}
	if err := h.DB.Create(&user).Error; err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed creating user")
	}

	logger.InfoWithUser(user.ID.String(), "user_registered", map[string]interface{}{
		"email": email,
	})

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusCreated, fiber.Map{"user": user, "token": token})
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req loginRequest
	if err := c.BodyParser(&req); err != nil {
		return utils.Error(c, fiber.StatusBadRequest, "invalid request body")
	}

	email := strings.ToLower(strings.TrimSpace(req.Email))

	var user models.DashboardUser
	if err := h.DB.First(&user, "email = ?", email).Error; err != nil {
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	if !utils.CheckPassword(user.PasswordHash, req.Password) {
		logger.WarnWithUser(user.ID.String(), "login_failed", map[string]interface{}{
			"ip": c.IP(),
		})
		return utils.Error(c, fiber.StatusUnauthorized, "invalid credentials")
	}

	token, err := utils.GenerateToken(&user)
	if err != nil {
		return utils.Error(c, fiber.StatusInternalServerError, "failed generating token")
	}

	return utils.Success(c, fiber.StatusOK, fiber.Map{"user": user, "token": token})
}

func (h *AuthHandler) Me(c *fiber.Ctx) error {
	currentUser := middleware.GetCurrentUser(c)
	if currentUser == nil {
		return utils.Error(c, fiber.StatusUnauthorized, "unauthorized")
	}
	return utils.Success(c, fiber.StatusOK, currentUser)
}
