package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"

	"dealroom/internal/adapter/api/middleware"
	"dealroom/internal/domain/entity"
	"dealroom/internal/usecase"
	"dealroom/pkg/errors"
	"dealroom/pkg/response"
	"dealroom/pkg/utils"
)

type DealHandler struct {
	dealUseCase *usecase.DealUseCase
	presence    *usecase.PresenceTracker
}

func NewDealHandler(dealUseCase *usecase.DealUseCase, presence *usecase.PresenceTracker) *DealHandler {
	return &DealHandler{
		dealUseCase: dealUseCase,
		presence:    presence,
	}
}

type createDealRequest struct {
	Title       string  `json:"title" validate:"required,max=200"`
	Description string  `json:"description" validate:"max=5000"`
	Price       float64 `json:"price" validate:"required,gt=0"`
	ListingID   string  `json:"listingId"`
	BuyerID     string  `json:"buyerId"`
}

type updateDealRequest struct {
	Title       *string `json:"title" validate:"omitempty,max=200"`
	Description *string `json:"description" validate:"omitempty,max=5000"`
}

type updateStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=pending in-progress completed cancelled"`
}

type updatePriceRequest struct {
	Price float64 `json:"price" validate:"required,gt=0"`
}

func (h *DealHandler) CreateDeal(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req createDealRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	deal, err := h.dealUseCase.Create(c.Request().Context(), principal, usecase.CreateDealInput{
		Title:       req.Title,
		Description: req.Description,
		Price:       req.Price,
		ListingID:   req.ListingID,
		BuyerID:     req.BuyerID,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, deal)
}

// ListDeals supports ?status=, ?open=true, ?page= and ?limit=.
func (h *DealHandler) ListDeals(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	open, _ := strconv.ParseBool(c.QueryParam("open"))
	pagination := utils.GetPaginationParams(c)

	deals, total, err := h.dealUseCase.List(c.Request().Context(), principal, usecase.DealListInput{
		Status: entity.DealStatus(c.QueryParam("status")),
		Open:   open,
		Limit:  pagination.PageSize,
		Offset: pagination.Offset,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Paginated(c, deals, total, pagination.Page, pagination.PageSize)
}

func (h *DealHandler) GetDeal(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	deal, err := h.dealUseCase.Get(c.Request().Context(), principal, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, deal)
}

func (h *DealHandler) UpdateDeal(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req updateDealRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	deal, err := h.dealUseCase.Update(c.Request().Context(), principal, c.Param("id"), usecase.UpdateDealInput{
		Title:       req.Title,
		Description: req.Description,
	})
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, deal)
}

func (h *DealHandler) UpdateStatus(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req updateStatusRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	deal, err := h.dealUseCase.UpdateStatus(c.Request().Context(), principal, c.Param("id"), entity.DealStatus(req.Status))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, deal)
}

func (h *DealHandler) UpdatePrice(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	var req updatePriceRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request body", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	update, err := h.dealUseCase.UpdatePrice(c.Request().Context(), principal, c.Param("id"), req.Price)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, update)
}

func (h *DealHandler) DeleteDeal(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	if err := h.dealUseCase.Delete(c.Request().Context(), principal, c.Param("id")); err != nil {
		return response.Error(c, err)
	}

	return response.NoContent(c)
}

func (h *DealHandler) GetSnapshot(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	snapshot, err := h.dealUseCase.Snapshot(c.Request().Context(), principal, c.Param("id"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, snapshot)
}

// GetPresence lists the principals that joined the deal and have not left.
func (h *DealHandler) GetPresence(c echo.Context) error {
	principal, err := middleware.Principal(c)
	if err != nil {
		return response.Error(c, err)
	}

	ctx := c.Request().Context()
	dealID := c.Param("id")
	if _, err := h.dealUseCase.Authorize(ctx, principal, dealID); err != nil {
		return response.Error(c, err)
	}

	online, err := h.presence.Online(ctx, dealID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"dealId": dealID,
		"online": online,
	})
}
