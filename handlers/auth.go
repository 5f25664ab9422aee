package handlers

import (
	"context"
	"errors"
	"net/http"

	"food-order-service/apperrors"
	"food-order-service/metrics"
	"food-order-service/middleware"
	"food-order-service/service"

	"github.com/gin-gonic/gin"
)

type RegisterRequest struct {
	Name     string `json:"name" binding:"required"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Phone    string `json:"phone"`
	Address  string `json:"address"`
}

type LoginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type loginFunc func(ctx context.Context, email, password string) (*service.Session, error)

func sessionBody(s *service.Session) gin.H {
	return gin.H{
		"token":     s.Token,
		"expiresAt": s.ExpiresAt,
		"user":      s.User.View(),
	}
}

// Register creates a new customer account
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	sess, err := h.auth.Register(c.Request.Context(), service.RegisterInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Phone:    req.Phone,
		Address:  req.Address,
	})
	if err != nil {
		h.respondError(c, err)
		return
	}

	body := sessionBody(sess)
	body["message"] = "Account created successfully"
	c.JSON(http.StatusCreated, body)
}

// Login authenticates a user and returns a JWT
func (h *Handler) Login(c *gin.Context) {
	h.login(c, h.auth.Login)
}

// AdminLogin is Login restricted to admin accounts
func (h *Handler) AdminLogin(c *gin.Context) {
	h.login(c, h.auth.AdminLogin)
}

func (h *Handler) login(c *gin.Context, fn loginFunc) {
	var req LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.respondError(c, bindError(err))
		return
	}

	sess, err := fn(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, apperrors.ErrInvalidCredentials) {
			metrics.RecordAuthFailure("credentials")
		}
		h.respondError(c, err)
		return
	}

	body := sessionBody(sess)
	body["message"] = "Login successful"
	c.JSON(http.StatusOK, body)
}

// GetProfile returns the authenticated user's profile
func (h *Handler) GetProfile(c *gin.Context) {
	user := middleware.CurrentUser(c)
	c.JSON(http.StatusOK, gin.H{"user": user.View()})
}
