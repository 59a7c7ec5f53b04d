package production

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenfab/lumenfab/internal/platform/httpx"
)

// Handler wires HTTP endpoints for production orders and output batches.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a production handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers production routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/", h.list)
	r.Post("/", h.create)
	r.Get("/batches", h.listBatches)
	r.Post("/batches/{id}/ship", h.shipBatch)
	r.Get("/{id}", h.get)
	r.Post("/{id}/plan", h.plan)
	r.Post("/{id}/request-materials", h.requestMaterials)
	r.Post("/{id}/dispatch-materials", h.dispatchMaterials)
	r.Post("/{id}/start", h.start)
	r.Post("/{id}/progress", h.progress)
	r.Post("/{id}/pause", h.pause)
	r.Post("/{id}/resume", h.resume)
	r.Post("/{id}/problem", h.reportProblem)
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
		h.fail(w, "create production order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	orders, err := h.service.List(r.Context(), Status(r.URL.Query().Get("status")))
	if err != nil {
		h.fail(w, "list production orders", err)
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
		h.fail(w, "get production order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) plan(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req PlanRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.Plan(r.Context(), id, req)
	if err != nil {
		h.fail(w, "plan production order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) requestMaterials(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "request materials", h.service.RequestMaterials)
}

func (h *Handler) dispatchMaterials(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "dispatch materials", h.service.DispatchMaterials)
}

func (h *Handler) start(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "start production order", h.service.Start)
}

func (h *Handler) progress(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "mark production order in progress", h.service.MarkInProgress)
}

func (h *Handler) pause(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "pause production order", h.service.Pause)
}

func (h *Handler) resume(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "resume production order", h.service.Resume)
}

func (h *Handler) complete(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "complete production order", h.service.Complete)
}

func (h *Handler) cancel(w http.ResponseWriter, r *http.Request) {
	h.step(w, r, "cancel production order", h.service.Cancel)
}

func (h *Handler) reportProblem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req ProblemRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.ReportProblem(r.Context(), id, req)
	if err != nil {
		h.fail(w, "report production problem", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) listBatches(w http.ResponseWriter, r *http.Request) {
	shippedOnly := r.URL.Query().Get("shipped") == "true"
	batches, err := h.service.ListBatches(r.Context(), shippedOnly)
	if err != nil {
		h.fail(w, "list batches", err)
		return
	}
	httpx.JSON(w, http.StatusOK, batches)
}

func (h *Handler) shipBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	batch, err := h.service.MarkBatchShipped(r.Context(), id)
	if err != nil {
		h.fail(w, "ship batch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) step(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, id int64) (ProductionOrder, error)) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	order, err := fn(r.Context(), id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) id(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
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
