package router

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/handler"
	"campusmart/internal/adapter/api/middleware"
)

func SetupListingRouter(e *echo.Echo, likeHandler *handler.LikeHandler, listingHandler *handler.ListingHandler, authMiddleware *middleware.AuthMiddleware) {
	listings := e.Group("/v1/listings")
	listings.Use(authMiddleware.Authenticate)

	listings.GET("/:id/like", likeHandler.GetLikeStatus)
	listings.POST("/:id/like", likeHandler.ToggleLike)
	listings.POST("/:id/sold", listingHandler.MarkSold)
}
