package handler

import (
	"context"
	"net/http"

	"gamestore/internal/dto"
	"gamestore/internal/middleware"
	"gamestore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type SalesHandler struct{ svc service.SaleService }

func NewSalesHandler(svc service.SaleService) *SalesHandler { return &SalesHandler{svc: svc} }

// Create godoc
// @Summary      Register a sale
// @Description  Checks stock under row locks, derives totals, decrements inventory and stores the sale in one transaction. Retries with the same client_ref return the stored sale.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateSaleRequest true "Sale"
// @Success      201  {object} dto.SaleResponse
// @Failure      404  {object} apierror.APIError "product_not_found"
// @Failure      409  {object} apierror.APIError "insufficient_stock"
// @Failure      422  {object} apierror.APIError "no_inventory_for_branch"
// @Router       /v1/sales [post]
func (h *SalesHandler) Create(c *gin.Context) {
	var req dto.CreateSaleRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.CreateSale(c.Request.Context(), middleware.UserID(c), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// List godoc
// @Summary      List sales
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        branch_id query string false "Branch UUID"
// @Param        status    query string false "pending | completed | cancelled | refunded"
// @Param        date      query string false "YYYY-MM-DD"
// @Success      200  {object} dto.SaleListResponse
// @Router       /v1/sales [get]
func (h *SalesHandler) List(c *gin.Context) {
	var filter dto.SaleFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.ListSales(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *SalesHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetSale(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Complete godoc
// @Summary      Complete a pending sale
// @Tags         sales
// @Produce      json
// @Security     BearerAuth
// @Param        id path string true "Sale UUID"
// @Success      200  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError "invalid_state_transition | insufficient_stock"
// @Router       /v1/sales/{id}/complete [post]
func (h *SalesHandler) Complete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.CompleteSale(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Cancel godoc
// @Summary      Cancel a completed sale
// @Description  Restores every item to the branch inventory.
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                       true  "Sale UUID"
// @Param        body body dto.ChangeSaleStatusRequest  false "Reason"
// @Success      200  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError "invalid_state_transition"
// @Router       /v1/sales/{id}/cancel [post]
func (h *SalesHandler) Cancel(c *gin.Context) {
	h.reverse(c, h.svc.CancelSale)
}

// Refund godoc
// @Summary      Refund a completed sale
// @Tags         sales
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                       true  "Sale UUID"
// @Param        body body dto.ChangeSaleStatusRequest  false "Reason"
// @Success      200  {object} dto.SaleResponse
// @Failure      409  {object} apierror.APIError "invalid_state_transition"
// @Router       /v1/sales/{id}/refund [post]
func (h *SalesHandler) Refund(c *gin.Context) {
	h.reverse(c, h.svc.RefundSale)
}

func (h *SalesHandler) reverse(c *gin.Context, fn func(context.Context, uuid.UUID, string) (*dto.SaleResponse, error)) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.ChangeSaleStatusRequest
	// The reason is optional, an empty body is accepted
	if c.Request.ContentLength > 0 && !bindAndValidate(c, &req) {
		return
	}
	resp, err := fn(c.Request.Context(), id, req.Reason)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
