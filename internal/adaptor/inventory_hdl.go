package adaptor

import (
	"encoding/json"
	"net/http"

	"hotel-booking/internal/dto/request"
	"hotel-booking/internal/usecase"
	"hotel-booking/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type InventoryHandler struct {
	service usecase.InventoryService
	log     *zap.Logger
}

func NewInventoryHandler(service usecase.InventoryService, log *zap.Logger) *InventoryHandler {
	return &InventoryHandler{
		service: service,
		log:     log.With(zap.String("handler", "inventory")),
	}
}

func dateRange(r *http.Request) *request.DateRangeRequest {
	query := r.URL.Query()
	return &request.DateRangeRequest{
		From: query.Get("from"),
		To:   query.Get("to"),
	}
}

// GetAvailability handles GET /api/rooms/{roomId}/availability?from&to (public)
func (h *InventoryHandler) GetAvailability(w http.ResponseWriter, r *http.Request) {
	availability, err := h.service.GetAvailability(r.Context(), chi.URLParam(r, "roomId"), dateRange(r))
	if err != nil {
		writeServiceError(w, h.log, err, "get availability")
		return
	}

	utils.ResponseSuccess(w, "success", availability)
}

// GetInventory handles GET /api/rooms/{roomId}/inventory?from&to (public)
func (h *InventoryHandler) GetInventory(w http.ResponseWriter, r *http.Request) {
	rows, err := h.service.GetInventoryByRange(r.Context(), chi.URLParam(r, "roomId"), dateRange(r))
	if err != nil {
		writeServiceError(w, h.log, err, "get inventory")
		return
	}

	utils.ResponseSuccess(w, "success", rows)
}

// GetInventoryByDate handles GET /api/rooms/{roomId}/inventory/{date} (public)
func (h *InventoryHandler) GetInventoryByDate(w http.ResponseWriter, r *http.Request) {
	row, err := h.service.GetInventoryByDate(r.Context(), chi.URLParam(r, "roomId"), chi.URLParam(r, "date"))
	if err != nil {
		writeServiceError(w, h.log, err, "get inventory by date")
		return
	}

	utils.ResponseSuccess(w, "success", row)
}

// ==================== ADMIN METHODS ====================

// CountFuture handles GET /api/admin/rooms/{roomId}/inventory/future-count (admin only)
func (h *InventoryHandler) CountFuture(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CountFutureInventories(r.Context(), chi.URLParam(r, "roomId"))
	if err != nil {
		writeServiceError(w, h.log, err, "count future inventories")
		return
	}

	utils.ResponseSuccess(w, "success", count)
}

// UpdateTotal handles PUT /api/admin/inventory/{id} (admin only)
func (h *InventoryHandler) UpdateTotal(w http.ResponseWriter, r *http.Request) {
	var req request.UpdateInventoryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		utils.ResponseBadRequest(w, "Invalid request body", nil)
		return
	}

	if validationErrors := utils.ValidateStruct(req); len(validationErrors) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", validationErrors)
		return
	}

	row, err := h.service.UpdateInventoryTotal(r.Context(), chi.URLParam(r, "id"), &req)
	if err != nil {
		writeServiceError(w, h.log, err, "update inventory")
		return
	}

	utils.ResponseSuccess(w, "success", row)
}

// Delete handles DELETE /api/admin/inventory/{id} (admin only)
func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteInventory(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeServiceError(w, h.log, err, "delete inventory")
		return
	}

	utils.ResponseSuccess(w, "success", nil)
}
