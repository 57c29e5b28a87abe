package handler

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/middleware"
	"campusmart/internal/usecase"
	"campusmart/pkg/response"
)

type LikeHandler struct {
	likeUseCase *usecase.LikeUseCase
}

func NewLikeHandler(likeUseCase *usecase.LikeUseCase) *LikeHandler {
	return &LikeHandler{
		likeUseCase: likeUseCase,
	}
}

type toggleLikeRequest struct {
	CurrentlyLiked bool `json:"currently_liked"`
}

func (h *LikeHandler) ToggleLike(c echo.Context) error {
	var req toggleLikeRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.likeUseCase.ToggleLike(c.Request().Context(), middleware.UserID(c), c.Param("id"), req.CurrentlyLiked)
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}

func (h *LikeHandler) GetLikeStatus(c echo.Context) error {
	result, err := h.likeUseCase.GetLikeStatus(c.Request().Context(), middleware.UserID(c), c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}
