package handler

import (
	"net/http"
	"strconv"

	"gamestore/internal/apierror"
	"gamestore/internal/dto"
	"gamestore/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

type InventoryHandler struct{ svc service.InventoryService }

func NewInventoryHandler(svc service.InventoryService) *InventoryHandler {
	return &InventoryHandler{svc: svc}
}

// List godoc
// @Summary      List inventory records
// @Description  Active records with their stock classification, filtered by product, branch or low stock.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        product_id     query string false "Product UUID"
// @Param        branch_id      query string false "Branch UUID"
// @Param        low_stock_only query bool   false "Only low_stock and out_of_stock records"
// @Param        page           query int    false "Page (default 1)"
// @Param        limit          query int    false "Page size (default 50)"
// @Success      200  {object} dto.InventoryListResponse
// @Failure      400  {object} apierror.APIError
// @Router       /v1/inventory [get]
func (h *InventoryHandler) List(c *gin.Context) {
	var filter dto.InventoryFilter
	if !bindQuery(c, &filter) {
		return
	}
	resp, err := h.svc.List(c.Request.Context(), filter)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Lookup returns the record of one (product, branch) pair.
func (h *InventoryHandler) Lookup(c *gin.Context) {
	productID, err := uuid.Parse(c.Query("product_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeBadRequest, "product_id is required"))
		return
	}
	branchID, err := uuid.Parse(c.Query("branch_id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeBadRequest, "branch_id is required"))
		return
	}
	resp, err := h.svc.Get(c.Request.Context(), productID, branchID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Alerts godoc
// @Summary      Stock alerts
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        branch_id query string false "Branch UUID"
// @Success      200  {array}  dto.InventoryResponse
// @Router       /v1/inventory/alerts [get]
func (h *InventoryHandler) Alerts(c *gin.Context) {
	var branchID *uuid.UUID
	if raw := c.Query("branch_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, apierror.WithCode(apierror.CodeBadRequest, "invalid branch_id"))
			return
		}
		branchID = &id
	}
	resp, err := h.svc.Alerts(c.Request.Context(), branchID)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Get(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	resp, err := h.svc.GetByID(c.Request.Context(), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Create godoc
// @Summary      Allocate stock to a branch
// @Description  Creates the inventory record of a (product, branch) pair. Non-central branches cannot receive more than the central warehouse holds.
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        body body dto.CreateInventoryRequest true "Allocation"
// @Success      201  {object} dto.InventoryResponse
// @Failure      409  {object} apierror.APIError "duplicate_record"
// @Failure      422  {object} apierror.APIError "invalid_quantity | exceeds_central_stock"
// @Router       /v1/inventory [post]
func (h *InventoryHandler) Create(c *gin.Context) {
	var req dto.CreateInventoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Create(c.Request.Context(), req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusCreated, resp)
}

// Adjust godoc
// @Summary      Adjust an inventory record
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Security     BearerAuth
// @Param        id   path string                      true "Inventory record UUID"
// @Param        body body dto.AdjustInventoryRequest  true "New values"
// @Success      200  {object} dto.InventoryResponse
// @Failure      404  {object} apierror.APIError
// @Failure      422  {object} apierror.APIError
// @Router       /v1/inventory/{id} [put]
func (h *InventoryHandler) Adjust(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	var req dto.AdjustInventoryRequest
	if !bindAndValidate(c, &req) {
		return
	}
	resp, err := h.svc.Adjust(c.Request.Context(), id, req)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

// Delete godoc
// @Summary      Delete an inventory record
// @Description  Purges the record, or archives it when sales reference it. hard=true refuses to archive.
// @Tags         inventory
// @Produce      json
// @Security     BearerAuth
// @Param        id   path  string true  "Inventory record UUID"
// @Param        hard query bool   false "Fail instead of archiving"
// @Success      200  {object} dto.DeleteInventoryResponse
// @Failure      404  {object} apierror.APIError
// @Failure      409  {object} apierror.APIError "has_dependent_sales"
// @Router       /v1/inventory/{id} [delete]
func (h *InventoryHandler) Delete(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	hard, _ := strconv.ParseBool(c.DefaultQuery("hard", "false"))
	resp, err := h.svc.Delete(c.Request.Context(), id, hard)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}

func (h *InventoryHandler) Movements(c *gin.Context) {
	id, ok := parseID(c, "id")
	if !ok {
		return
	}
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	resp, err := h.svc.Movements(c.Request.Context(), id, page, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, resp)
}
