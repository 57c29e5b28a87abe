package router

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/handler"
	"campusmart/internal/adapter/api/middleware"
)

func SetupUserRouter(e *echo.Echo, userHandler *handler.UserHandler, authMiddleware *middleware.AuthMiddleware) {
	users := e.Group("/v1/users")
	users.Use(authMiddleware.Authenticate)

	users.GET("/me", userHandler.GetMe)
	users.POST("/me", userHandler.Provision)
	users.PUT("/me/devices", userHandler.RegisterDevice)
}
