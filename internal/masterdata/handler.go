package masterdata

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/lumenfab/lumenfab/internal/platform/httpx"
)

// Handler wires HTTP endpoints for the catalog.
type Handler struct {
	logger   *slog.Logger
	service  *Service
	validate *validator.Validate
}

// NewHandler constructs a masterdata handler.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validate: validator.New()}
}

// MountRoutes registers catalog routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/warehouses", h.listWarehouses)
	r.Post("/warehouses", h.createWarehouse)
	r.Get("/customers", h.listCustomers)
	r.Post("/customers", h.createCustomer)
	r.Get("/suppliers", h.listSuppliers)
	r.Post("/suppliers", h.createSupplier)
	r.Get("/raw-materials", h.listRawMaterials)
	r.Post("/raw-materials", h.createRawMaterial)
	r.Get("/finished-goods", h.listFinishedGoods)
	r.Post("/finished-goods", h.createFinishedGood)
	r.Patch("/finished-goods/{id}/replenishment", h.updateReplenishment)
	r.Get("/supplier-offers", h.listSupplierOffers)
	r.Post("/supplier-offers", h.createSupplierOffer)
}

func (h *Handler) createWarehouse(w http.ResponseWriter, r *http.Request) {
	var req CreateWarehouseRequest
	if !h.bind(w, r, &req) {
		return
	}
	wh, err := h.service.CreateWarehouse(r.Context(), req)
	if err != nil {
		h.fail(w, "create warehouse", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, wh)
}

func (h *Handler) listWarehouses(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListWarehouses(r.Context())
	if err != nil {
		h.fail(w, "list warehouses", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createCustomer(w http.ResponseWriter, r *http.Request) {
	var req CreateCustomerRequest
	if !h.bind(w, r, &req) {
		return
	}
	c, err := h.service.CreateCustomer(r.Context(), req)
	if err != nil {
		h.fail(w, "create customer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, c)
}

func (h *Handler) listCustomers(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListCustomers(r.Context())
	if err != nil {
		h.fail(w, "list customers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createSupplier(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierRequest
	if !h.bind(w, r, &req) {
		return
	}
	s, err := h.service.CreateSupplier(r.Context(), req)
	if err != nil {
		h.fail(w, "create supplier", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, s)
}

func (h *Handler) listSuppliers(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListSuppliers(r.Context())
	if err != nil {
		h.fail(w, "list suppliers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createRawMaterial(w http.ResponseWriter, r *http.Request) {
	var req CreateRawMaterialRequest
	if !h.bind(w, r, &req) {
		return
	}
	m, err := h.service.CreateRawMaterial(r.Context(), req)
	if err != nil {
		h.fail(w, "create raw material", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, m)
}

func (h *Handler) listRawMaterials(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListRawMaterials(r.Context())
	if err != nil {
		h.fail(w, "list raw materials", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) createFinishedGood(w http.ResponseWriter, r *http.Request) {
	var req CreateFinishedGoodRequest
	if !h.bind(w, r, &req) {
		return
	}
	g, err := h.service.CreateFinishedGood(r.Context(), req)
	if err != nil {
		h.fail(w, "create finished good", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, g)
}

func (h *Handler) listFinishedGoods(w http.ResponseWriter, r *http.Request) {
	out, err := h.service.ListFinishedGoods(r.Context())
	if err != nil {
		h.fail(w, "list finished goods", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) updateReplenishment(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid finished good id")
		return
	}
	var req UpdateReplenishmentRequest
	if !h.bind(w, r, &req) {
		return
	}
	g, err := h.service.UpdateReplenishment(r.Context(), id, req)
	if err != nil {
		h.fail(w, "update replenishment", err)
		return
	}
	httpx.JSON(w, http.StatusOK, g)
}

func (h *Handler) createSupplierOffer(w http.ResponseWriter, r *http.Request) {
	var req CreateSupplierOfferRequest
	if !h.bind(w, r, &req) {
		return
	}
	o, err := h.service.CreateSupplierOffer(r.Context(), req)
	if err != nil {
		h.fail(w, "create supplier offer", err)
		return
	}
	httpx.JSON(w, http.StatusCreated, o)
}

func (h *Handler) listSupplierOffers(w http.ResponseWriter, r *http.Request) {
	materialID, err := strconv.ParseInt(r.URL.Query().Get("material_id"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "material_id is required")
		return
	}
	out, err := h.service.ListSupplierOffers(r.Context(), materialID)
	if err != nil {
		h.fail(w, "list supplier offers", err)
		return
	}
	httpx.JSON(w, http.StatusOK, out)
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
