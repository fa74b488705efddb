package auth

import "github.com/gin-gonic/gin"

// RegisterRoutes registers Auth routes
func RegisterRoutes(r gin.IRouter, handler *Handler) {
	r.GET("/login", handler.LoginPage)
	r.POST("/login", handler.Login)
	r.GET("/logout", handler.Logout)
}
