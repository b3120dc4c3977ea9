package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/EviternDev/pharma-erp/internal/model"
)

func TestReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "stock", err: fmt.Errorf("quote: %w", &model.InsufficientStockError{Requested: 3}), want: ReasonInsufficientStock},
		{name: "ceiling", err: &model.CeilingViolationError{Item: "x"}, want: ReasonCeilingViolation},
		{name: "transaction", err: &model.TransactionError{Err: errors.New("conn lost")}, want: ReasonTransaction},
		{name: "invalid", err: model.InvalidArgumentf("qty"), want: ReasonInvalidArgument},
		{name: "not found", err: fmt.Errorf("medicine 1: %w", model.ErrNotFound), want: ReasonNotFound},
		{name: "other", err: errors.New("boom"), want: ReasonOther},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Reason(tt.err))
		})
	}
}

func TestMetrics_SaleCommitted(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SaleCommitted(model.InvoiceTotals{CGST: 514, SGST: 515, TotalGST: 1029, GrandTotal: 9600}, 20*time.Millisecond)
	m.SaleCommitted(model.InvoiceTotals{CGST: 1, SGST: 1, TotalGST: 2, GrandTotal: 400}, 10*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SalesCommitted))
	assert.Equal(t, 10000.0, testutil.ToFloat64(m.RevenuePaise))
	assert.Equal(t, 515.0, testutil.ToFloat64(m.GSTCollectedPaise.WithLabelValues("cgst")))
	assert.Equal(t, 516.0, testutil.ToFloat64(m.GSTCollectedPaise.WithLabelValues("sgst")))
}

func TestMetrics_SaleFailed(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.SaleFailed(&model.InsufficientStockError{Requested: 2}, time.Millisecond)
	m.SaleFailed(&model.InsufficientStockError{Requested: 5}, time.Millisecond)
	m.SaleFailed(&model.TransactionError{Err: errors.New("x")}, time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.SalesFailed.WithLabelValues(ReasonInsufficientStock)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SalesFailed.WithLabelValues(ReasonTransaction)))
	assert.Equal(t, 0.0, testutil.ToFloat64(m.SalesCommitted))
}

func TestMetrics_NilIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.SaleCommitted(model.InvoiceTotals{}, 0)
		m.SaleFailed(errors.New("x"), 0)
	})
}
