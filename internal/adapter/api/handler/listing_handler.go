package handler

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/middleware"
	"campusmart/internal/usecase"
	"campusmart/pkg/response"
)

type ListingHandler struct {
	listingUseCase *usecase.ListingUseCase
}

func NewListingHandler(listingUseCase *usecase.ListingUseCase) *ListingHandler {
	return &ListingHandler{
		listingUseCase: listingUseCase,
	}
}

type markSoldRequest struct {
	Price  *float64 `json:"price" validate:"omitempty,gt=0"`
	SoldTo string   `json:"sold_to"`
}

func (h *ListingHandler) MarkSold(c echo.Context) error {
	var req markSoldRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	result, err := h.listingUseCase.MarkSold(c.Request().Context(), middleware.UserID(c), c.Param("id"), usecase.MarkSoldInput{
		Price:  req.Price,
		SoldTo: req.SoldTo,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, result)
}
