package purchasing

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenfab/lumenfab/internal/platform/httpx"
)

// Handler wires HTTP endpoints for purchase orders.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a purchasing handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers purchasing routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Post("/approve-batch", h.approveBatch)
	r.Get("/{id}", h.get)
	r.Patch("/{id}", h.update)
	r.Post("/{id}/approve", h.approve)
	r.Post("/{id}/send", h.send)
	r.Post("/{id}/transit", h.markInTransit)
	r.Post("/{id}/receive", h.receive)
	r.Post("/{id}/complete", h.complete)
	r.Post("/{id}/cancel", h.cancel)
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req CreateRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.Create(r.Context(), req)
	if err != nil {
		h.fail(w, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		h.fail(w, "list purchase orders", err)
		return
	}
	httpx.JSON(w, http.StatusOK, orders)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req UpdateRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.Update(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "approve purchase order", h.service.Approve)
}

func (h *Handler) approveBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids" validate:"required,min=1"`
	}
	if !h.bind(w, r, &req) {
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.ApproveBatch(r.Context(), req.IDs))
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "send purchase order", h.service.Send)
}

func (h *Handler) markInTransit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req MarkInTransitRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.service.MarkInTransit(r.Context(), id, req); err != nil {
		h.fail(w, "mark purchase order in transit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": string(StatusInTransit)})
}

func (h *Handler) receive(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req ReceiveRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.Receive(r.Context(), id, req)
	if err != nil {
		h.fail(w, "receive purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "complete purchase order", h.service.Complete)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.simpleTransition(w, r, "cancel purchase order", h.service.Cancel)
}

func (h *Handler) simpleTransition(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id int64) error) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), id); err != nil {
		h.fail(w, op, err)
		return
	}
	order, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid purchase order id")
		return 0, false
	}
	return id, true
}

func (h *Handler) bind(w http.ResponseWriter, r *http.Request, target any) bool {
	if err := httpx.DecodeJSON(r, target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return false
	}
	if err := h.validate.Struct(target); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return false
	}
	return true
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
