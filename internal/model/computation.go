package model

import "github.com/EviternDev/pharma-erp/internal/money"

// GSTSplit описывает разложение GST на две равные по ставке половины.
// CGST + SGST всегда равно Total; лишняя пайса нечётной суммы уходит в SGST.
type GSTSplit struct {
	CGSTRate GSTRate
	CGST     money.Money
	SGSTRate GSTRate
	SGST     money.Money
	Total    money.Money
}

// LineComputation содержит расчёт одной строки чека. Сохраняется как снимок и не
// пересчитывается при последующих изменениях ставок или цен.
type LineComputation struct {
	UnitPrice money.Money
	Quantity  int
	Subtotal  money.Money
	Discount  money.Money
	Taxable   money.Money
	GSTRate   GSTRate
	CGSTRate  GSTRate
	CGST      money.Money
	SGSTRate  GSTRate
	SGST      money.Money
	TotalGST  money.Money
	Total     money.Money
}

// InvoiceTotals содержит итоги счёта, точную сумму по строкам.
type InvoiceTotals struct {
	Subtotal   money.Money
	Discount   money.Money
	CGST       money.Money
	SGST       money.Money
	TotalGST   money.Money
	GrandTotal money.Money
}

// Draw указывает, сколько единиц списывается с одной партии.
type Draw struct {
	BatchID  int64
	Quantity int
}

// Allocation хранит упорядоченный список списаний, в сумме равный запрошенному количеству.
type Allocation []Draw

// Total возвращает суммарное количество по всем списаниям.
func (a Allocation) Total() int {
	total := 0
	for _, d := range a {
		total += d.Quantity
	}
	return total
}
