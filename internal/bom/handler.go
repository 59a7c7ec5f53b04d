package bom

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenfab/lumenfab/internal/platform/httpx"
)

// Handler wires HTTP endpoints for bill of materials maintenance.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a bom handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers bom routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Put("/", h.define)
	r.Get("/{finishedGoodID}", h.get)
	r.Get("/{finishedGoodID}/requirements", h.resolve)
}

func (h *Handler) define(w http.ResponseWriter, r *http.Request) {
	var req DefineRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	b, err := h.service.Define(r.Context(), req)
	if err != nil {
		h.fail(w, "define bom", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "finishedGoodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid finished good id")
		return
	}
	b, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.fail(w, "get bom", err)
		return
	}
	httpx.JSON(w, http.StatusOK, b)
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "finishedGoodID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid finished good id")
		return
	}
	qty, err := strconv.ParseInt(r.URL.Query().Get("qty"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "qty is required")
		return
	}
	reqs, err := h.service.Resolve(r.Context(), id, qty)
	if err != nil {
		h.fail(w, "resolve bom", err)
		return
	}
	httpx.JSON(w, http.StatusOK, reqs)
}

func (h *Handler) fail(w http.ResponseWriter, op string, err error) {
	h.logger.Error(op, slog.Any("error", err))
	httpx.RespondError(w, err)
}
