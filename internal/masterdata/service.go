package masterdata

import (
	"context"
	"fmt"
)

// Service provides business logic for catalog maintenance.
type Service struct {
	repo RepositoryPort
}

// NewService constructs a masterdata service.
func NewService(repo RepositoryPort) *Service {
	return &Service{repo: repo}
}

func (s *Service) CreateWarehouse(ctx context.Context, req CreateWarehouseRequest) (Warehouse, error) {
	w := Warehouse{Name: req.Name, Location: req.Location}
	id, err := s.repo.CreateWarehouse(ctx, w)
	if err != nil {
		return Warehouse{}, err
	}
	w.ID = id
	return w, nil
}

func (s *Service) ListWarehouses(ctx context.Context) ([]Warehouse, error) {
	return s.repo.ListWarehouses(ctx)
}

func (s *Service) CreateCustomer(ctx context.Context, req CreateCustomerRequest) (Customer, error) {
	c := Customer{Name: req.Name, Email: req.Email, Phone: req.Phone}
	id, err := s.repo.CreateCustomer(ctx, c)
	if err != nil {
		return Customer{}, err
	}
	c.ID = id
	return c, nil
}

func (s *Service) ListCustomers(ctx context.Context) ([]Customer, error) {
	return s.repo.ListCustomers(ctx)
}

func (s *Service) CreateSupplier(ctx context.Context, req CreateSupplierRequest) (Supplier, error) {
	sup := Supplier{Name: req.Name, Email: req.Email, Phone: req.Phone}
	id, err := s.repo.CreateSupplier(ctx, sup)
	if err != nil {
		return Supplier{}, err
	}
	sup.ID = id
	return sup, nil
}

func (s *Service) ListSuppliers(ctx context.Context) ([]Supplier, error) {
	return s.repo.ListSuppliers(ctx)
}

func (s *Service) CreateRawMaterial(ctx context.Context, req CreateRawMaterialRequest) (RawMaterial, error) {
	m := RawMaterial{SKU: req.SKU, Name: req.Name, UnitPrice: req.UnitPrice, StockMinimum: req.StockMinimum}
	id, err := s.repo.CreateRawMaterial(ctx, m)
	if err != nil {
		return RawMaterial{}, err
	}
	m.ID = id
	return m, nil
}

func (s *Service) ListRawMaterials(ctx context.Context) ([]RawMaterial, error) {
	return s.repo.ListRawMaterials(ctx)
}

func (s *Service) CreateFinishedGood(ctx context.Context, req CreateFinishedGoodRequest) (FinishedGood, error) {
	g := FinishedGood{
		SKU:           req.SKU,
		Name:          req.Name,
		UnitPrice:     req.UnitPrice,
		StockMinimum:  req.StockMinimum,
		StockTarget:   req.StockTarget,
		AutoReplenish: req.AutoReplenish,
	}
	id, err := s.repo.CreateFinishedGood(ctx, g)
	if err != nil {
		return FinishedGood{}, err
	}
	g.ID = id
	return g, nil
}

func (s *Service) ListFinishedGoods(ctx context.Context) ([]FinishedGood, error) {
	return s.repo.ListFinishedGoods(ctx)
}

// UpdateReplenishment changes the stock thresholds that drive automatic
// stock build orders. Absent fields keep their stored value.
func (s *Service) UpdateReplenishment(ctx context.Context, id int64, req UpdateReplenishmentRequest) (FinishedGood, error) {
	g, err := s.repo.GetFinishedGood(ctx, id)
	if err != nil {
		return FinishedGood{}, fmt.Errorf("get finished good: %w", err)
	}
	if req.StockMinimum != nil {
		g.StockMinimum = *req.StockMinimum
	}
	if req.StockTarget != nil {
		g.StockTarget = *req.StockTarget
	}
	if req.AutoReplenish != nil {
		g.AutoReplenish = *req.AutoReplenish
	}
	if err := s.repo.UpdateReplenishment(ctx, id, g.StockMinimum, g.StockTarget, g.AutoReplenish); err != nil {
		return FinishedGood{}, err
	}
	return g, nil
}

func (s *Service) CreateSupplierOffer(ctx context.Context, req CreateSupplierOfferRequest) (SupplierOffer, error) {
	if _, err := s.repo.GetSupplier(ctx, req.SupplierID); err != nil {
		return SupplierOffer{}, fmt.Errorf("get supplier: %w", err)
	}
	if _, err := s.repo.GetRawMaterial(ctx, req.MaterialID); err != nil {
		return SupplierOffer{}, fmt.Errorf("get raw material: %w", err)
	}
	o := SupplierOffer{
		SupplierID:   req.SupplierID,
		MaterialID:   req.MaterialID,
		UnitPrice:    req.UnitPrice,
		LeadTimeDays: req.LeadTimeDays,
	}
	id, err := s.repo.CreateSupplierOffer(ctx, o)
	if err != nil {
		return SupplierOffer{}, err
	}
	o.ID = id
	return o, nil
}

func (s *Service) ListSupplierOffers(ctx context.Context, materialID int64) ([]SupplierOffer, error) {
	return s.repo.ListSupplierOffers(ctx, materialID)
}
