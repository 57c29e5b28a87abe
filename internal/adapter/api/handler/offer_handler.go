package handler

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/middleware"
	"campusmart/internal/usecase"
	"campusmart/pkg/response"
)

type OfferHandler struct {
	offerUseCase *usecase.OfferUseCase
}

func NewOfferHandler(offerUseCase *usecase.OfferUseCase) *OfferHandler {
	return &OfferHandler{
		offerUseCase: offerUseCase,
	}
}

type counterOfferRequest struct {
	OfferAmount *float64 `json:"offer_amount"`
	Content     string   `json:"content"`
}

func (h *OfferHandler) Accept(c echo.Context) error {
	msg, err := h.offerUseCase.Accept(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msg)
}

func (h *OfferHandler) Reject(c echo.Context) error {
	msg, err := h.offerUseCase.Reject(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msg)
}

func (h *OfferHandler) Rescind(c echo.Context) error {
	msg, err := h.offerUseCase.Rescind(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, msg)
}

// Counter responds to an offer with a new one; the response is the new offer.
func (h *OfferHandler) Counter(c echo.Context) error {
	var req counterOfferRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	msg, err := h.offerUseCase.Counter(c.Request().Context(), middleware.UserID(c), c.Param("id"), c.Param("messageId"), usecase.CounterOfferInput{
		Amount:  req.OfferAmount,
		Content: req.Content,
	})
	if err != nil {
		return response.Error(c, err)
	}
	return response.Created(c, msg)
}
