package tax

import (
	"math"

	"github.com/EviternDev/pharma-erp/internal/model"
	"github.com/EviternDev/pharma-erp/internal/money"
)

// ComputeLine рассчитывает строку чека. Скидка уменьшает сумму с налогом до выделения базы:
// afterDiscount = unitPrice*qty - discount, taxable = TaxableFromInclusivePrice(afterDiscount),
// total = taxable + GST.
//
// Значения вне допустимого диапазона не исправляются, а возвращаются как ErrInvalidArgument.
func ComputeLine(unitPrice money.Money, qty int, rate model.GSTRate, discount money.Money) (model.LineComputation, error) {
	if qty < 1 {
		return model.LineComputation{}, model.InvalidArgumentf("quantity must be at least 1, got %d", qty)
	}
	if unitPrice.IsNegative() {
		return model.LineComputation{}, model.InvalidArgumentf("negative unit price %s", unitPrice)
	}
	if discount.IsNegative() {
		return model.LineComputation{}, model.InvalidArgumentf("negative discount %s", discount)
	}
	if unitPrice > 0 && int64(qty) > math.MaxInt64/unitPrice.Paise() {
		return model.LineComputation{}, model.InvalidArgumentf("line amount overflows: %s x %d", unitPrice, qty)
	}

	subtotal := unitPrice * money.Money(qty)
	if discount > subtotal {
		return model.LineComputation{}, model.InvalidArgumentf("discount %s exceeds line subtotal %s", discount, subtotal)
	}

	taxable := TaxableFromInclusivePrice(subtotal-discount, rate)
	gst := SplitGST(taxable, rate)

	return model.LineComputation{
		UnitPrice: unitPrice,
		Quantity:  qty,
		Subtotal:  subtotal,
		Discount:  discount,
		Taxable:   taxable,
		GSTRate:   rate,
		CGSTRate:  gst.CGSTRate,
		CGST:      gst.CGST,
		SGSTRate:  gst.SGSTRate,
		SGST:      gst.SGST,
		TotalGST:  gst.Total,
		Total:     taxable + gst.Total,
	}, nil
}

// ComputeInvoiceTotals складывает строки в итоги счёта. Для пустого списка все итоги нулевые.
func ComputeInvoiceTotals(lines []model.LineComputation) model.InvoiceTotals {
	var totals model.InvoiceTotals
	for _, l := range lines {
		totals.Subtotal += l.Subtotal
		totals.Discount += l.Discount
		totals.CGST += l.CGST
		totals.SGST += l.SGST
		totals.GrandTotal += l.Total
	}
	totals.TotalGST = totals.CGST + totals.SGST
	return totals
}
