package orders

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenfab/lumenfab/internal/ledger"
	"github.com/lumenfab/lumenfab/internal/platform/httpx"
	"github.com/lumenfab/lumenfab/internal/production"
	"github.com/lumenfab/lumenfab/internal/purchasing"
	"github.com/lumenfab/lumenfab/internal/sales"
	"github.com/lumenfab/lumenfab/internal/shared"
)

// Handler exposes the orchestrator command surface. Every request carries an
// explicit scope in headers; there is no ambient company or actor state.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs the orders handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers the command routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Route("/sales", func(r chi.Router) {
		r.Post("/", h.placeSalesOrder)
		r.Post("/{id}/confirm", h.confirmSalesOrder)
		r.Post("/{id}/cancel", h.cancelSalesOrder)
		r.Post("/{id}/deliver", h.confirmDelivery)
		r.Post("/{id}/invoice", h.issueInvoice)
	})
	r.Route("/production", func(r chi.Router) {
		r.Post("/{id}/plan", h.planProduction)
		r.Post("/{id}/request-materials", h.requestMaterials)
		r.Post("/{id}/issue-materials", h.issueMaterials)
		r.Post("/{id}/start", h.startProduction)
		r.Post("/{id}/pause", h.pauseProduction)
		r.Post("/{id}/resume", h.resumeProduction)
		r.Post("/{id}/complete", h.completeProduction)
		r.Post("/{id}/cancel", h.cancelProduction)
		r.Post("/{id}/problem", h.reportProblem)
	})
	r.Route("/purchase", func(r chi.Router) {
		r.Post("/", h.createPurchaseOrder)
		r.Post("/approve-batch", h.approvePurchaseBatch)
		r.Post("/{id}/approve", h.approvePurchaseOrder)
		r.Post("/{id}/send", h.sendPurchaseOrder)
		r.Post("/{id}/transit", h.markPurchaseInTransit)
		r.Post("/{id}/receive", h.receivePurchaseOrder)
		r.Post("/{id}/complete", h.completePurchaseOrder)
		r.Post("/{id}/cancel", h.cancelPurchaseOrder)
	})
	r.Post("/batches/{id}/ship", h.shipBatch)
	r.Get("/stock", h.currentQuantity)
	r.Post("/stock/transfer", h.transferStock)
}

func (h *Handler) placeSalesOrder(w http.ResponseWriter, r *http.Request) {
	var req sales.CreateRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.PlaceSalesOrder(r.Context(), h.scope(r), req)
	if err != nil {
		h.fail(w, "place sales order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) confirmSalesOrder(w http.ResponseWriter, r *http.Request) {
	h.salesCommand(w, r, "confirm sales order", h.service.ConfirmSalesOrder)
}

func (h *Handler) cancelSalesOrder(w http.ResponseWriter, r *http.Request) {
	h.salesCommand(w, r, "cancel sales order", h.service.CancelSalesOrder)
}

func (h *Handler) confirmDelivery(w http.ResponseWriter, r *http.Request) {
	h.salesCommand(w, r, "confirm delivery", h.service.ConfirmDelivery)
}

func (h *Handler) issueInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	inv, err := h.service.IssueInvoice(r.Context(), h.scope(r), id)
	if err != nil {
		h.fail(w, "issue invoice", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, inv)
}

func (h *Handler) planProduction(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req production.PlanRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.PlanProduction(r.Context(), h.scope(r), id, req)
	if err != nil {
		h.fail(w, "plan production order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) requestMaterials(w http.ResponseWriter, r *http.Request) {
	h.productionCommand(w, r, "request materials", h.service.RequestMaterials)
}

func (h *Handler) issueMaterials(w http.ResponseWriter, r *http.Request) {
	h.productionCommand(w, r, "issue materials", h.service.IssueMaterials)
}

func (h *Handler) startProduction(w http.ResponseWriter, r *http.Request) {
	h.productionCommand(w, r, "start production", h.service.StartProduction)
}

func (h *Handler) pauseProduction(w http.ResponseWriter, r *http.Request) {
	h.productionCommand(w, r, "pause production", h.service.PauseProduction)
}

func (h *Handler) resumeProduction(w http.ResponseWriter, r *http.Request) {
	h.productionCommand(w, r, "resume production", h.service.ResumeProduction)
}

func (h *Handler) completeProduction(w http.ResponseWriter, r *http.Request) {
	h.productionCommand(w, r, "complete production", h.service.CompleteProduction)
}

func (h *Handler) cancelProduction(w http.ResponseWriter, r *http.Request) {
	h.productionCommand(w, r, "cancel production", h.service.CancelProduction)
}

func (h *Handler) reportProblem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req production.ProblemRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.ReportProductionProblem(r.Context(), h.scope(r), id, req)
	if err != nil {
		h.fail(w, "report production problem", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) createPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	var req purchasing.CreateRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.CreatePurchaseOrder(r.Context(), h.scope(r), req)
	if err != nil {
		h.fail(w, "create purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, order)
}

func (h *Handler) approvePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseCommand(w, r, "approve purchase order", h.service.ApprovePurchaseOrder)
}

func (h *Handler) approvePurchaseBatch(w http.ResponseWriter, r *http.Request) {
	var req struct {
		IDs []int64 `json:"ids" validate:"required,min=1"`
	}
	if !h.bind(w, r, &req) {
		return
	}
	httpx.JSON(w, http.StatusOK, h.service.ApprovePurchaseBatch(r.Context(), h.scope(r), req.IDs))
}

func (h *Handler) sendPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseCommand(w, r, "send purchase order", h.service.SendPurchaseOrder)
}

func (h *Handler) markPurchaseInTransit(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req purchasing.MarkInTransitRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.service.MarkPurchaseInTransit(r.Context(), h.scope(r), id, req); err != nil {
		h.fail(w, "mark purchase order in transit", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "IN_TRANSIT"})
}

func (h *Handler) receivePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	var req purchasing.ReceiveRequest
	if !h.bind(w, r, &req) {
		return
	}
	order, err := h.service.ReceivePurchaseOrder(r.Context(), h.scope(r), id, req)
	if err != nil {
		h.fail(w, "receive purchase order", err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) completePurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseCommand(w, r, "complete purchase order", h.service.CompletePurchaseOrder)
}

func (h *Handler) cancelPurchaseOrder(w http.ResponseWriter, r *http.Request) {
	h.purchaseCommand(w, r, "cancel purchase order", h.service.CancelPurchaseOrder)
}

func (h *Handler) shipBatch(w http.ResponseWriter, r *http.Request) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	batch, err := h.service.ShipBatch(r.Context(), h.scope(r), id)
	if err != nil {
		h.fail(w, "ship batch", err)
		return
	}
	httpx.JSON(w, http.StatusOK, batch)
}

func (h *Handler) currentQuantity(w http.ResponseWriter, r *http.Request) {
	warehouseID, err := strconv.ParseInt(r.URL.Query().Get("warehouse_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid warehouse_id")
		return
	}
	itemID, err := strconv.ParseInt(r.URL.Query().Get("item_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item_id")
		return
	}
	kind := ledger.ItemKind(r.URL.Query().Get("item_kind"))
	if !kind.Valid() {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid item_kind")
		return
	}
	qty, err := h.service.CurrentQuantity(r.Context(), warehouseID, kind, itemID)
	if err != nil {
		h.fail(w, "read stock quantity", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]int64{"qty": qty})
}

func (h *Handler) transferStock(w http.ResponseWriter, r *http.Request) {
	var req ledger.TransferRequest
	if !h.bind(w, r, &req) {
		return
	}
	if err := h.service.TransferStock(r.Context(), h.scope(r), req); err != nil {
		h.fail(w, "transfer stock", err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "transferred"})
}

func (h *Handler) salesCommand(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, scope shared.Scope, id int64) (sales.SalesOrder, error)) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	order, err := fn(r.Context(), h.scope(r), id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) productionCommand(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, scope shared.Scope, id int64) (production.ProductionOrder, error)) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	order, err := fn(r.Context(), h.scope(r), id)
	if err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, order)
}

func (h *Handler) purchaseCommand(w http.ResponseWriter, r *http.Request, op string, fn func(ctx context.Context, scope shared.Scope, id int64) error) {
	id, ok := h.id(w, r)
	if !ok {
		return
	}
	if err := fn(r.Context(), h.scope(r), id); err != nil {
		h.fail(w, op, err)
		return
	}
	httpx.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) scope(r *http.Request) shared.Scope {
	companyID, _ := strconv.ParseInt(r.Header.Get("X-Company-ID"), 10, 64)
	actorID, _ := strconv.ParseInt(r.Header.Get("X-Actor-ID"), 10, 64)
	return shared.Scope{CompanyID: companyID, ActorID: actorID}
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
