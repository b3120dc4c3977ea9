// Package handler содержит HTTP-обработчики API аптечной кассы.
package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/EviternDev/pharma-erp/internal/middleware"
	"github.com/EviternDev/pharma-erp/internal/model"
	"github.com/EviternDev/pharma-erp/internal/validation"
)

// Service определяет контракт бизнес-логики, используемой HTTP-обработчиками.
type Service interface {
	CreateMedicine(ctx context.Context, m model.Medicine) (int64, error)
	ReceiveBatch(ctx context.Context, b model.Batch) (int64, error)
	SellableBatches(ctx context.Context, medicineID int64, asOf time.Time) ([]model.Batch, error)
	QuoteSale(ctx context.Context, req model.SaleRequest) (*model.SaleDraft, error)
	CheckoutSale(ctx context.Context, req model.SaleRequest) (*model.Sale, error)
	GetSale(ctx context.Context, id int64) (*model.Sale, error)
	ReturnSaleItem(ctx context.Context, saleItemID int64, qty int) (*model.SaleReturn, error)
}

// Handler реализует HTTP-обработчики API кассы.
type Handler struct {
	service  Service
	logger   *zap.Logger
	validate *validator.Validate
	metrics  http.Handler
}

// NewHandler создаёт новый экземпляр обработчика HTTP-запросов.
// metricsHandler отдаётся по /metrics; nil отключает этот маршрут.
func NewHandler(s Service, logger *zap.Logger, metricsHandler http.Handler) *Handler {
	return &Handler{
		service:  s,
		logger:   logger,
		validate: newValidator(),
		metrics:  metricsHandler,
	}
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name := strings.SplitN(fld.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})

	err := v.RegisterValidation("gstin", func(fl validator.FieldLevel) bool {
		return validation.IsValidGSTIN(strings.ToUpper(strings.TrimSpace(fl.Field().String())))
	})
	if err != nil {
		panic(fmt.Sprintf("register gstin validation: %v", err))
	}

	return v
}

// decode читает JSON-тело и проверяет его по тегам validate.
// При ошибке ответ уже записан и возвращается false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "malformed JSON body", Code: "invalid_argument"})
		return false
	}

	if err := h.validate.Struct(dst); err != nil {
		var verrs validator.ValidationErrors
		if !errors.As(err, &verrs) {
			writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_argument"})
			return false
		}
		details := make([]fieldError, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, fieldError{Field: fe.Namespace(), Rule: fe.Tag()})
		}
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "request validation failed", Code: "invalid_argument", Details: details})
		return false
	}

	return true
}

func pathID(r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError отображает доменную ошибку в HTTP-ответ.
func (h *Handler) writeError(w http.ResponseWriter, op string, err error) {
	var (
		stockErr   *model.InsufficientStockError
		ceilingErr *model.CeilingViolationError
	)

	switch {
	case errors.As(err, &stockErr):
		writeJSON(w, http.StatusConflict, errorResponse{
			Error: stockErr.Error(),
			Code:  "insufficient_stock",
			Details: stockDetails{
				MedicineID: stockErr.MedicineID,
				Requested:  stockErr.Requested,
				Available:  stockErr.Available,
			},
		})
	case errors.As(err, &ceilingErr):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error: ceilingErr.Error(),
			Code:  "ceiling_violation",
			Details: ceilingDetails{
				Item:       ceilingErr.Item,
				BatchID:    ceilingErr.BatchID,
				PricePaise: ceilingErr.Price.Paise(),
				MRPPaise:   ceilingErr.Ceiling.Paise(),
			},
		})
	case errors.Is(err, model.ErrTransactionFailed):
		h.logger.Error(op+" transaction failed", zap.Error(err))
		writeJSON(w, http.StatusServiceUnavailable, errorResponse{Error: model.ErrTransactionFailed.Error(), Code: "transaction_failed"})
	case errors.Is(err, model.ErrInvalidArgument):
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error(), Code: "invalid_argument"})
	case errors.Is(err, model.ErrNotFound):
		writeJSON(w, http.StatusNotFound, errorResponse{Error: err.Error(), Code: "not_found"})
	default:
		h.logger.Error(op+" error", zap.Error(err))
		writeJSON(w, http.StatusInternalServerError, errorResponse{Error: http.StatusText(http.StatusInternalServerError), Code: "internal"})
	}
}

// CreateMedicine добавляет препарат в справочник.
func (h *Handler) CreateMedicine(w http.ResponseWriter, r *http.Request) {
	var req createMedicineRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.service.CreateMedicine(r.Context(), model.Medicine{
		Name:    req.Name,
		HSNCode: req.HSNCode,
		GSTRate: *req.GSTRate,
	})
	if err != nil {
		h.writeError(w, "create medicine", err)
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// ListSellableBatches возвращает годные к продаже партии препарата в порядке FEFO.
// Необязательный параметр as_of (YYYY-MM-DD) задаёт дату, на которую проверяется срок годности.
func (h *Handler) ListSellableBatches(w http.ResponseWriter, r *http.Request) {
	medicineID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var asOf time.Time
	if raw := r.URL.Query().Get("as_of"); raw != "" {
		var err error
		asOf, err = time.Parse(time.DateOnly, raw)
		if err != nil {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}
	}

	batches, err := h.service.SellableBatches(r.Context(), medicineID, asOf)
	if err != nil {
		h.writeError(w, "list batches", err)
		return
	}

	resp := make([]batchResponse, 0, len(batches))
	for _, b := range batches {
		resp = append(resp, newBatchResponse(b))
	}

	writeJSON(w, http.StatusOK, resp)
}

// ReceiveBatch принимает партию на склад.
func (h *Handler) ReceiveBatch(w http.ResponseWriter, r *http.Request) {
	var req receiveBatchRequest
	if !h.decode(w, r, &req) {
		return
	}

	id, err := h.service.ReceiveBatch(r.Context(), req.toModel())
	if err != nil {
		h.writeError(w, "receive batch", err)
		return
	}

	writeJSON(w, http.StatusCreated, idResponse{ID: id})
}

// saleFromRequest разбирает тело продажи. Кассир из X-Operator-ID используется,
// если user_id в теле не указан.
func (h *Handler) saleFromRequest(w http.ResponseWriter, r *http.Request) (model.SaleRequest, bool) {
	var req saleRequest
	if !h.decode(w, r, &req) {
		return model.SaleRequest{}, false
	}

	sale := req.toModel()
	if sale.UserID == 0 {
		if id, ok := middleware.OperatorIDFromContext(r.Context()); ok {
			sale.UserID = id
		}
	}
	return sale, true
}

// QuoteSale рассчитывает продажу без проведения.
func (h *Handler) QuoteSale(w http.ResponseWriter, r *http.Request) {
	req, ok := h.saleFromRequest(w, r)
	if !ok {
		return
	}

	draft, err := h.service.QuoteSale(r.Context(), req)
	if err != nil {
		h.writeError(w, "quote sale", err)
		return
	}

	writeJSON(w, http.StatusOK, newQuoteResponse(draft))
}

// CreateSale проводит продажу.
func (h *Handler) CreateSale(w http.ResponseWriter, r *http.Request) {
	req, ok := h.saleFromRequest(w, r)
	if !ok {
		return
	}

	sale, err := h.service.CheckoutSale(r.Context(), req)
	if err != nil {
		h.writeError(w, "checkout sale", err)
		return
	}

	h.logger.Info("sale committed",
		zap.Int64("saleID", sale.ID),
		zap.String("invoice", sale.InvoiceNumber),
		zap.Int64("grandTotalPaise", sale.Totals.GrandTotal.Paise()),
	)

	writeJSON(w, http.StatusCreated, newSaleResponse(sale))
}

// GetSale возвращает проведённую продажу.
func (h *Handler) GetSale(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	sale, err := h.service.GetSale(r.Context(), id)
	if err != nil {
		h.writeError(w, "get sale", err)
		return
	}

	writeJSON(w, http.StatusOK, newSaleResponse(sale))
}

// ReturnSaleItem оформляет возврат части строки продажи.
func (h *Handler) ReturnSaleItem(w http.ResponseWriter, r *http.Request) {
	itemID, ok := pathID(r, "id")
	if !ok {
		http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
		return
	}

	var req returnRequest
	if !h.decode(w, r, &req) {
		return
	}

	ret, err := h.service.ReturnSaleItem(r.Context(), itemID, req.Quantity)
	if err != nil {
		h.writeError(w, "return sale item", err)
		return
	}

	writeJSON(w, http.StatusCreated, returnResponse{
		ID:         ret.ID,
		SaleItemID: ret.SaleItemID,
		BatchID:    ret.BatchID,
		Quantity:   ret.Quantity,
		CreatedAt:  ret.CreatedAt.Format(time.RFC3339),
	})
}
