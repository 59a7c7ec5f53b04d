package ledger

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenfab/lumenfab/internal/platform/httpx"
)

// Handler wires HTTP endpoints for stock queries, adjustments and transfers.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a ledger handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers ledger routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/levels", h.listLevels)
	r.Get("/movements", h.listMovements)
	r.Post("/adjustments", h.adjust)
	r.Post("/transfers", h.transfer)
}

func (h *Handler) listLevels(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "warehouse_id is required")
		return
	}
	levels, err := h.service.Levels(r.Context(), warehouseID)
	if err != nil {
		h.fail(w, "list levels", err)
		return
	}
	httpx.JSON(w, http.StatusOK, levels)
}

func (h *Handler) listMovements(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "warehouse_id is required")
		return
	}
	limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
	movements, err := h.service.Movements(r.Context(), warehouseID, limit)
	if err != nil {
		h.fail(w, "list movements", err)
		return
	}
	httpx.JSON(w, http.StatusOK, movements)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request) {
	var req AdjustRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil || !req.ItemKind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid adjustment request")
		return
	}

	ref := Ref{Type: "adjustment"}
	var err error
	if req.Qty > 0 {
		err = h.service.Increase(r.Context(), req.WarehouseID, req.ItemKind, req.ItemID, req.Qty, ReasonAdjustment, ref)
	} else {
		err = h.service.Decrease(r.Context(), req.WarehouseID, req.ItemKind, req.ItemID, -req.Qty, ReasonAdjustment, ref)
	}
	if err != nil {
		h.fail(w, "adjust stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "applied"})
}

func (h *Handler) transfer(w http.ResponseWriter, r *http.Request) {
	var req TransferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil || !req.ItemKind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "invalid transfer request")
		return
	}
	if err := h.service.Transfer(r.Context(), req); err != nil {
		h.fail(w, "transfer stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
