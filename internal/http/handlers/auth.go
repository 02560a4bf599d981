package handlers

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/Muhsin-Gun/event-API/internal/auth"
	"github.com/Muhsin-Gun/event-API/internal/http/middleware"
	"github.com/Muhsin-Gun/event-API/internal/http/validation"
	"github.com/Muhsin-Gun/event-API/internal/modules/users"
	"github.com/Muhsin-Gun/event-API/internal/shared/apperr"
)

type AuthHandler struct {
	Users  *users.Service
	Repo   *users.Repo
	Reset  *users.ResetService
	Tokens *auth.Tokens
	Logger *slog.Logger

	// ExposeResetLink returns the reset link in the forgot-password response
	// for environments without a configured mailer. Off in production.
	ExposeResetLink bool
}

type registerInput struct {
	Username string `json:"username" binding:"required,min=3,max=64"`
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=8"`
}

func (h *AuthHandler) Register(c *gin.Context) {
	var in registerInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("username, email, password required", validation.FromBindError(err, &in)))
		return
	}

	u, err := h.Users.Register(c.Request.Context(), users.RegisterInput{
		Username: in.Username,
		Email:    in.Email,
		Password: in.Password,
	})
	if err != nil {
		if errors.Is(err, users.ErrEmailTaken) {
			middleware.Fail(c, apperr.ConflictErr("Email already in use"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered",
		"user":    publicUser(u),
	})
}

type loginInput struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

func (h *AuthHandler) Login(c *gin.Context) {
	var in loginInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("email and password required", validation.FromBindError(err, &in)))
		return
	}

	u, err := h.Users.Login(c.Request.Context(), in.Email, in.Password)
	if err != nil {
		if errors.Is(err, users.ErrInvalidCredentials) {
			middleware.Fail(c, apperr.UnauthorizedErr("Invalid credentials"))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	accessToken, err := h.Tokens.SignAccess(u.ID, u.Role)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	refreshToken, err := h.Tokens.SignRefresh(u.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "Login successful",
		"accessToken":  accessToken,
		"refreshToken": refreshToken,
		"user":         publicUser(u),
	})
}

type refreshInput struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// Refresh rotates the refresh token and re-issues an access token with the
// user's current role (the role is re-read so demotions take effect).
func (h *AuthHandler) Refresh(c *gin.Context) {
	var in refreshInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("refreshToken required", validation.FromBindError(err, &in)))
		return
	}

	userID, err := h.Tokens.VerifyRefresh(in.RefreshToken)
	if err != nil {
		middleware.Fail(c, apperr.UnauthorizedErr("invalid or expired token"))
		return
	}

	u, err := h.Repo.GetByID(c.Request.Context(), userID)
	if err != nil {
		middleware.Fail(c, apperr.UnauthorizedErr("invalid or expired token"))
		return
	}

	accessToken, err := h.Tokens.SignAccess(u.ID, u.Role)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}
	refreshToken, err := h.Tokens.SignRefresh(u.ID)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"accessToken": accessToken, "refreshToken": refreshToken})
}

type forgotInput struct {
	Email string `json:"email" binding:"required,email"`
}

func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var in forgotInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("email required", validation.FromBindError(err, &in)))
		return
	}

	link, err := h.Reset.Start(c.Request.Context(), in.Email)
	if err != nil {
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	// Same response whether or not the account exists.
	resp := gin.H{"message": "If that account exists, a reset link has been sent"}
	if h.ExposeResetLink && link != "" {
		resp["link"] = link
	}
	c.JSON(http.StatusOK, resp)
}

type resetInput struct {
	Token       string `json:"token" binding:"required"`
	NewPassword string `json:"newPassword" binding:"required,min=8"`
}

func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var in resetInput
	if err := c.ShouldBindJSON(&in); err != nil {
		middleware.Fail(c, apperr.InvalidErr("token and newPassword required", validation.FromBindError(err, &in)))
		return
	}

	if err := h.Reset.Complete(c.Request.Context(), in.Token, in.NewPassword); err != nil {
		if errors.Is(err, users.ErrResetTokenInvalid) {
			middleware.Fail(c, apperr.InvalidErr("Invalid, expired, or already used token", nil))
			return
		}
		middleware.Fail(c, apperr.Wrap(err))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Password reset successful"})
}

func publicUser(u users.User) gin.H {
	return gin.H{
		"id":       u.ID,
		"username": u.Username,
		"email":    u.Email,
		"role":     u.Role,
	}
}
