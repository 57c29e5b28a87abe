package handler

import (
	"github.com/labstack/echo/v4"

	"campusmart/internal/adapter/api/middleware"
	"campusmart/internal/usecase"
	"campusmart/pkg/response"
)

type UserHandler struct {
	userUseCase *usecase.UserUseCase
}

func NewUserHandler(userUseCase *usecase.UserUseCase) *UserHandler {
	return &UserHandler{
		userUseCase: userUseCase,
	}
}

type provisionRequest struct {
	DisplayName string `json:"display_name" validate:"omitempty,max=100"`
	PhotoURL    string `json:"photo_url" validate:"omitempty,url"`
}

// Provision creates the caller's profile on first sign-in. Identity fields come from
// the verified token; the body may override the display name and photo.
func (h *UserHandler) Provision(c echo.Context) error {
	var req provisionRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	input := usecase.ProvisionInput{
		UserID:      middleware.UserID(c),
		DisplayName: req.DisplayName,
		PhotoURL:    req.PhotoURL,
	}
	input.Email, _ = c.Get(middleware.ContextEmail).(string)
	if input.DisplayName == "" {
		input.DisplayName, _ = c.Get(middleware.ContextName).(string)
	}
	if input.PhotoURL == "" {
		input.PhotoURL, _ = c.Get(middleware.ContextPicture).(string)
	}

	user, created, err := h.userUseCase.Provision(c.Request().Context(), input)
	if err != nil {
		return response.Error(c, err)
	}
	if created {
		return response.Created(c, user)
	}
	return response.Success(c, user)
}

func (h *UserHandler) GetMe(c echo.Context) error {
	user, err := h.userUseCase.GetUser(c.Request().Context(), middleware.UserID(c))
	if err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, user)
}

type registerDeviceRequest struct {
	Token string `json:"token" validate:"required"`
}

func (h *UserHandler) RegisterDevice(c echo.Context) error {
	var req registerDeviceRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	if err := h.userUseCase.RegisterDevice(c.Request().Context(), middleware.UserID(c), req.Token); err != nil {
		return response.Error(c, err)
	}
	return response.Success(c, map[string]string{"message": "Device registered"})
}
