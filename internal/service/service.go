// Package service реализует бизнес-логику аптечной кассы: подготовку и проведение продаж,
// приёмку партий и возвраты.
package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/EviternDev/pharma-erp/internal/fefo"
	"github.com/EviternDev/pharma-erp/internal/metrics"
	"github.com/EviternDev/pharma-erp/internal/model"
	"github.com/EviternDev/pharma-erp/internal/money"
	"github.com/EviternDev/pharma-erp/internal/tax"
	"github.com/EviternDev/pharma-erp/internal/validation"
)

// Repository описывает контракт доступа к данным, используемый сервисом.
type Repository interface {
	Close() error
	CreateMedicine(ctx context.Context, m model.Medicine) (int64, error)
	GetMedicine(ctx context.Context, id int64) (*model.Medicine, error)
	CreateBatch(ctx context.Context, b model.Batch) (int64, error)
	SellableBatches(ctx context.Context, medicineID int64, asOf time.Time) ([]model.Batch, error)
	CommitSale(ctx context.Context, draft *model.SaleDraft) (*model.Sale, error)
	GetSale(ctx context.Context, id int64) (*model.Sale, error)
	ReturnSaleItem(ctx context.Context, saleItemID int64, qty int) (*model.SaleReturn, error)
}

// Service содержит бизнес-логику кассы.
type Service struct {
	repo    Repository
	metrics *metrics.Metrics
	now     func() time.Time
}

// NewService создаёт новый сервис с указанным репозиторием. m может быть nil.
func NewService(repo Repository, m *metrics.Metrics) *Service {
	return &Service{
		repo:    repo,
		metrics: m,
		now:     time.Now,
	}
}

// Close закрывает ресурсы сервиса.
func (s *Service) Close() error {
	if s.repo != nil {
		return s.repo.Close()
	}
	return nil
}

// CreateMedicine добавляет препарат в справочник.
func (s *Service) CreateMedicine(ctx context.Context, m model.Medicine) (int64, error) {
	m.Name = strings.TrimSpace(m.Name)
	if m.Name == "" {
		return 0, model.InvalidArgumentf("medicine name is required")
	}
	if m.HSNCode == "" {
		m.HSNCode = model.DefaultHSNCode
	}
	return s.repo.CreateMedicine(ctx, m)
}

// ReceiveBatch принимает партию на склад. Цена продажи выше MRP отклоняется.
func (s *Service) ReceiveBatch(ctx context.Context, b model.Batch) (int64, error) {
	switch {
	case strings.TrimSpace(b.BatchNumber) == "":
		return 0, model.InvalidArgumentf("batch number is required")
	case b.ExpiryDate.IsZero():
		return 0, model.InvalidArgumentf("expiry date is required")
	case b.Quantity < 0:
		return 0, model.InvalidArgumentf("quantity must not be negative, got %d", b.Quantity)
	case b.MRP <= 0:
		return 0, model.InvalidArgumentf("MRP must be positive, got %s", b.MRP)
	case b.SellingPrice <= 0:
		return 0, model.InvalidArgumentf("selling price must be positive, got %s", b.SellingPrice)
	case b.CostPrice < 0:
		return 0, model.InvalidArgumentf("cost price must not be negative, got %s", b.CostPrice)
	}

	med, err := s.repo.GetMedicine(ctx, b.MedicineID)
	if err != nil {
		return 0, err
	}

	if !tax.ValidateNotAboveCeiling(b.SellingPrice, b.MRP) {
		return 0, &model.CeilingViolationError{Item: med.Name, Price: b.SellingPrice, Ceiling: b.MRP}
	}

	return s.repo.CreateBatch(ctx, b)
}

// SellableBatches возвращает годные к продаже партии препарата в порядке FEFO.
// Нулевой asOf означает текущий момент.
func (s *Service) SellableBatches(ctx context.Context, medicineID int64, asOf time.Time) ([]model.Batch, error) {
	if asOf.IsZero() {
		asOf = s.now()
	}
	if _, err := s.repo.GetMedicine(ctx, medicineID); err != nil {
		return nil, err
	}
	return s.repo.SellableBatches(ctx, medicineID, asOf)
}

// GetSale возвращает проведённую продажу.
func (s *Service) GetSale(ctx context.Context, id int64) (*model.Sale, error) {
	return s.repo.GetSale(ctx, id)
}

// ReturnSaleItem возвращает qty единиц строки продажи на склад.
func (s *Service) ReturnSaleItem(ctx context.Context, saleItemID int64, qty int) (*model.SaleReturn, error) {
	if qty <= 0 {
		return nil, model.InvalidArgumentf("return quantity must be positive, got %d", qty)
	}
	return s.repo.ReturnSaleItem(ctx, saleItemID, qty)
}

// CheckoutSale подготавливает продажу и атомарно проводит её.
// При любой ошибке в хранилище ничего не записано.
func (s *Service) CheckoutSale(ctx context.Context, req model.SaleRequest) (*model.Sale, error) {
	start := time.Now()

	draft, err := s.QuoteSale(ctx, req)
	if err != nil {
		s.metrics.SaleFailed(err, time.Since(start))
		return nil, err
	}

	sale, err := s.repo.CommitSale(ctx, draft)
	if err != nil {
		s.metrics.SaleFailed(err, time.Since(start))
		return nil, err
	}

	s.metrics.SaleCommitted(sale.Totals, time.Since(start))
	return sale, nil
}

// QuoteSale рассчитывает продажу без записи: распределяет количество по партиям FEFO,
// делит скидку позиции между партиями, считает строки и итоги счёта.
//
// Позиции одного препарата в запросе расходуют общий остаток: вторая позиция видит
// партии уже за вычетом первой.
func (s *Service) QuoteSale(ctx context.Context, req model.SaleRequest) (*model.SaleDraft, error) {
	if err := validateRequest(&req); err != nil {
		return nil, err
	}

	// Срок годности проверяется на момент проведения, а не на дату из запроса.
	now := s.now()
	if req.SaleDate.IsZero() {
		req.SaleDate = now
	}

	draft := &model.SaleDraft{
		InvoiceNumber: strings.TrimSpace(req.InvoiceNumber),
		CustomerID:    req.CustomerID,
		CustomerGSTIN: req.CustomerGSTIN,
		UserID:        req.UserID,
		PaymentMode:   req.PaymentMode,
		Notes:         req.Notes,
		SaleDate:      req.SaleDate,
	}

	drawn := make(map[int64]int)
	computed := make([]model.LineComputation, 0, len(req.Lines))

	for _, sel := range req.Lines {
		lines, err := s.quoteSelection(ctx, sel, now, drawn)
		if err != nil {
			return nil, err
		}
		for _, l := range lines {
			draft.Lines = append(draft.Lines, l)
			computed = append(computed, l.Line)
		}
	}

	draft.Totals = tax.ComputeInvoiceTotals(computed)
	return draft, nil
}

func (s *Service) quoteSelection(ctx context.Context, sel model.LineSelection, asOf time.Time, drawn map[int64]int) ([]model.DraftLine, error) {
	med, err := s.repo.GetMedicine(ctx, sel.MedicineID)
	if err != nil {
		return nil, err
	}

	batches, err := s.repo.SellableBatches(ctx, sel.MedicineID, asOf)
	if err != nil {
		return nil, err
	}

	byID := make(map[int64]model.Batch, len(batches))
	for i := range batches {
		batches[i].Quantity -= min(drawn[batches[i].ID], batches[i].Quantity)
		byID[batches[i].ID] = batches[i]
	}

	alloc, err := fefo.Allocate(batches, sel.Quantity)
	if err != nil {
		var stockErr *model.InsufficientStockError
		if errors.As(err, &stockErr) {
			stockErr.MedicineID = sel.MedicineID
		}
		return nil, err
	}

	lines := make([]model.DraftLine, 0, len(alloc))
	subtotals := make([]money.Money, 0, len(alloc))
	for _, d := range alloc {
		b := byID[d.BatchID]

		price := b.SellingPrice
		if sel.UnitPrice != nil {
			price = *sel.UnitPrice
		}
		if !tax.ValidateNotAboveCeiling(price, b.MRP) {
			return nil, &model.CeilingViolationError{Item: med.Name, BatchID: b.ID, Price: price, Ceiling: b.MRP}
		}

		lc, err := tax.ComputeLine(price, d.Quantity, med.GSTRate, 0)
		if err != nil {
			return nil, err
		}

		lines = append(lines, model.DraftLine{
			MedicineID:   med.ID,
			MedicineName: med.Name,
			BatchID:      b.ID,
			BatchNumber:  b.BatchNumber,
			MRP:          b.MRP,
			Line:         lc,
		})
		subtotals = append(subtotals, lc.Subtotal)
	}

	shares, err := tax.ApportionDiscount(sel.Discount, subtotals)
	if err != nil {
		return nil, err
	}

	for i := range lines {
		if shares[i] == 0 {
			continue
		}
		lc := lines[i].Line
		lines[i].Line, err = tax.ComputeLine(lc.UnitPrice, lc.Quantity, med.GSTRate, shares[i])
		if err != nil {
			return nil, err
		}
	}

	for _, d := range alloc {
		drawn[d.BatchID] += d.Quantity
	}

	return lines, nil
}

func validateRequest(req *model.SaleRequest) error {
	if len(req.Lines) == 0 {
		return model.InvalidArgumentf("sale has no lines")
	}
	if req.UserID <= 0 {
		return model.InvalidArgumentf("user id is required")
	}

	if req.PaymentMode == "" {
		req.PaymentMode = model.PaymentModeCash
	}
	if !req.PaymentMode.Valid() {
		return model.InvalidArgumentf("unknown payment mode %q", req.PaymentMode)
	}

	req.CustomerGSTIN = strings.ToUpper(strings.TrimSpace(req.CustomerGSTIN))
	if req.CustomerGSTIN != "" && !validation.IsValidGSTIN(req.CustomerGSTIN) {
		return model.InvalidArgumentf("invalid customer GSTIN %q", req.CustomerGSTIN)
	}

	for i, l := range req.Lines {
		switch {
		case l.Quantity <= 0:
			return model.InvalidArgumentf("line %d: quantity must be positive, got %d", i+1, l.Quantity)
		case l.Discount < 0:
			return model.InvalidArgumentf("line %d: discount must not be negative", i+1)
		case l.UnitPrice != nil && *l.UnitPrice < 0:
			return model.InvalidArgumentf("line %d: unit price must not be negative", i+1)
		}
	}
	return nil
}
