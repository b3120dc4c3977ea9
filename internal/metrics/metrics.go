// Package metrics содержит счётчики Prometheus для проведения продаж.
package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/EviternDev/pharma-erp/internal/model"
)

// Причины отказа в проведении продажи (значения метки reason).
const (
	ReasonInvalidArgument   = "invalid_argument"
	ReasonNotFound          = "not_found"
	ReasonInsufficientStock = "insufficient_stock"
	ReasonCeilingViolation  = "ceiling_violation"
	ReasonTransaction       = "transaction_failed"
	ReasonOther             = "other"
)

// Metrics хранит метрики кассы.
type Metrics struct {
	// SalesCommitted считает число проведённых продаж.
	SalesCommitted prometheus.Counter

	// SalesFailed считает число отклонённых продаж.
	// Labels: reason
	SalesFailed *prometheus.CounterVec

	// RevenuePaise накапливает сумму проведённых счетов с GST, в пайсах.
	RevenuePaise prometheus.Counter

	// GSTCollectedPaise накапливает начисленный GST по проведённым счетам, в пайсах.
	// Labels: component (cgst, sgst)
	GSTCollectedPaise *prometheus.CounterVec

	// CheckoutDuration измеряет длительность подготовки и проведения продажи.
	CheckoutDuration prometheus.Histogram
}

// New регистрирует метрики в registry. nil означает prometheus.DefaultRegisterer.
func New(registry prometheus.Registerer) *Metrics {
	if registry == nil {
		registry = prometheus.DefaultRegisterer
	}

	factory := promauto.With(registry)

	return &Metrics{
		SalesCommitted: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmacy_sales_committed_total",
				Help: "Total number of sales committed",
			},
		),

		SalesFailed: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_sales_failed_total",
				Help: "Total number of sales rejected or rolled back",
			},
			[]string{"reason"},
		),

		RevenuePaise: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "pharmacy_revenue_paise_total",
				Help: "Grand total of committed invoices in paise",
			},
		),

		GSTCollectedPaise: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "pharmacy_gst_collected_paise_total",
				Help: "GST on committed invoices in paise",
			},
			[]string{"component"},
		),

		CheckoutDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "pharmacy_checkout_duration_seconds",
				Help:    "Time taken to stage and commit a sale",
				Buckets: prometheus.DefBuckets,
			},
		),
	}
}

// SaleCommitted учитывает проведённую продажу. Безопасен для nil.
func (m *Metrics) SaleCommitted(totals model.InvoiceTotals, took time.Duration) {
	if m == nil {
		return
	}
	m.SalesCommitted.Inc()
	m.RevenuePaise.Add(float64(totals.GrandTotal.Paise()))
	m.GSTCollectedPaise.WithLabelValues("cgst").Add(float64(totals.CGST.Paise()))
	m.GSTCollectedPaise.WithLabelValues("sgst").Add(float64(totals.SGST.Paise()))
	m.CheckoutDuration.Observe(took.Seconds())
}

// SaleFailed учитывает отклонённую продажу. Безопасен для nil.
func (m *Metrics) SaleFailed(err error, took time.Duration) {
	if m == nil {
		return
	}
	m.SalesFailed.WithLabelValues(Reason(err)).Inc()
	m.CheckoutDuration.Observe(took.Seconds())
}

// Reason относит ошибку к одной из причин отказа.
func Reason(err error) string {
	var (
		stockErr   *model.InsufficientStockError
		ceilingErr *model.CeilingViolationError
	)
	switch {
	case errors.As(err, &stockErr):
		return ReasonInsufficientStock
	case errors.As(err, &ceilingErr):
		return ReasonCeilingViolation
	case errors.Is(err, model.ErrTransactionFailed):
		return ReasonTransaction
	case errors.Is(err, model.ErrInvalidArgument):
		return ReasonInvalidArgument
	case errors.Is(err, model.ErrNotFound):
		return ReasonNotFound
	}
	return ReasonOther
}
