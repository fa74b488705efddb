package web

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"photonix/photo-portal/internal/account"
	"photonix/photo-portal/internal/auth"
	"photonix/photo-portal/internal/browse"
	"photonix/photo-portal/internal/events"
	"photonix/photo-portal/internal/onboarding"
)

// Handlers are the feature handlers mounted by NewRouter
type Handlers struct {
	Auth       *auth.Handler
	Onboarding *onboarding.Handler
	Browse     *browse.Handler
	Account    *account.Handler
	Events     *events.Hub
}

// NewRouter builds the gin engine serving the whole portal
func NewRouter(h Handlers, sessions *auth.SessionManager, setup SetupChecker, logger *zap.Logger) (*gin.Engine, error) {
	tmpl, err := Templates()
	if err != nil {
		return nil, err
	}

	router := gin.New()
	router.SetHTMLTemplate(tmpl)
	router.Use(RequestLogger(logger), Recovery(logger))

	router.StaticFS("/static", Static())
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":    "healthy",
			"timestamp": time.Now(),
		})
	})

	app := router.Group("/", sessions.Middleware(), SetupGuard(setup, logger))
	{
		auth.RegisterRoutes(app, h.Auth)
		h.Onboarding.RegisterRoutes(app)

		private := app.Group("", auth.RequireLogin())
		h.Browse.RegisterRoutes(private)
		h.Account.RegisterRoutes(private)
		private.GET("/events", h.Events.Serve)
	}

	router.NoRoute(func(c *gin.Context) {
		c.HTML(http.StatusNotFound, "error", gin.H{"Title": "Not found", "Message": "This page does not exist."})
	})

	return router, nil
}
