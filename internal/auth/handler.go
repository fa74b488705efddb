package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	service  *Service
	sessions *SessionManager
	logger   *zap.Logger
}

func NewHandler(service *Service, sessions *SessionManager, logger *zap.Logger) *Handler {
	return &Handler{service: service, sessions: sessions, logger: logger}
}

type loginForm struct {
	Username string `form:"username"`
	Password string `form:"password"`
}

// LoginPage renders the login form
func (h *Handler) LoginPage(c *gin.Context) {
	c.HTML(http.StatusOK, "login", gin.H{"Title": "Log in"})
}

// Login checks the submitted credentials and binds the user to the session
func (h *Handler) Login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		c.HTML(http.StatusBadRequest, "login", gin.H{"Title": "Log in", "Error": "Please enter your username and password."})
		return
	}
	username := strings.TrimSpace(form.Username)

	userID, err := h.service.Authenticate(c.Request.Context(), username, form.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		c.HTML(http.StatusUnauthorized, "login", gin.H{"Title": "Log in", "Username": username, "Error": "Incorrect username or password."})
		return
	}
	if err != nil {
		h.logger.Error("Failed to authenticate", zap.String("username", username), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Error"})
		return
	}

	if err := h.sessions.Login(c, userID, username); err != nil {
		h.logger.Error("Failed to start session", zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Error"})
		return
	}
	h.logger.Info("User logged in", zap.String("user_id", userID))
	c.Redirect(http.StatusSeeOther, "/")
}

// Logout ends the session
func (h *Handler) Logout(c *gin.Context) {
	if err := h.sessions.Logout(c); err != nil {
		h.logger.Error("Failed to end session", zap.Error(err))
	}
	c.Redirect(http.StatusSeeOther, "/")
}

// RequireLogin redirects anonymous sessions to the login page
func RequireLogin() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !SessionFrom(c).Authenticated() {
			c.Redirect(http.StatusSeeOther, "/login")
			c.Abort()
			return
		}
		c.Next()
	}
}
