package account

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/auth"
)

type Handler struct {
	service *Service
	logger  *zap.Logger
}

func NewHandler(service *Service, logger *zap.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// RegisterRoutes registers the account pages. The router is expected to
// require a logged in session.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/account", h.Account)
	r.GET("/settings", h.Settings)
}

// Account renders the profile page
func (h *Handler) Account(c *gin.Context) {
	userID := auth.SessionFrom(c).UserID

	menu, err := h.service.Menu(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Failed to load account", zap.String("user_id", userID), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Error", "Message": "Error :("})
		return
	}
	c.HTML(http.StatusOK, "account", gin.H{
		"Title":   "Account",
		"Menu":    menu,
		"Profile": menu.Profile,
	})
}

// Settings renders the library settings page
func (h *Handler) Settings(c *gin.Context) {
	ctx := c.Request.Context()
	userID := auth.SessionFrom(c).UserID

	menu, err := h.service.Menu(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load menu", zap.String("user_id", userID), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Error", "Message": "Error :("})
		return
	}
	settings, err := h.service.Settings(ctx, userID)
	if err != nil {
		h.logger.Error("Failed to load settings", zap.String("user_id", userID), zap.Error(err))
		c.HTML(http.StatusInternalServerError, "error", gin.H{"Title": "Error", "Message": "Error :("})
		return
	}
	c.HTML(http.StatusOK, "settings", gin.H{
		"Title":     "Settings",
		"Menu":      menu,
		"Libraries": settings,
	})
}
