// Package tax реализует расчёт GST для внутриштатных продаж: выделение налоговой базы из цены
// с налогом, разложение налога на CGST и SGST, проверку потолка MRP и итоги по строкам и счёту.
//
// Все суммы целые, в пайсах. Округление до пайсы выполняется half-up от точного рационального значения.
// Функции пакета чистые: не хранят состояния и не пишут в лог.
package tax

import (
	"github.com/shopspring/decimal"

	"github.com/EviternDev/pharma-erp/internal/model"
	"github.com/EviternDev/pharma-erp/internal/money"
)

var hundred = decimal.NewFromInt(100)

// TaxableFromInclusivePrice выделяет налоговую базу из цены, уже включающей GST:
// round(price * 100 / (100 + rate)). При нулевой ставке цена возвращается без деления.
// Ожидает неотрицательную цену; проверка лежит на вызывающей стороне.
func TaxableFromInclusivePrice(price money.Money, rate model.GSTRate) money.Money {
	if rate.IsZero() {
		return price
	}
	num := decimal.NewFromInt(price.Paise()).Mul(hundred)
	den := hundred.Add(rate.Percent())
	return money.Money(roundHalfUp(num, den))
}

// SplitGST считает GST с налоговой базы и делит его на CGST и SGST.
// CGST = floor(total/2), SGST = total - CGST, поэтому CGST + SGST == total всегда.
func SplitGST(taxable money.Money, rate model.GSTRate) model.GSTSplit {
	half := rate.Half()
	if rate.IsZero() {
		return model.GSTSplit{CGSTRate: half, SGSTRate: half}
	}

	num := decimal.NewFromInt(taxable.Paise()).Mul(rate.Percent())
	total := money.Money(roundHalfUp(num, hundred))
	cgst := total / 2

	return model.GSTSplit{
		CGSTRate: half,
		CGST:     cgst,
		SGSTRate: half,
		SGST:     total - cgst,
		Total:    total,
	}
}

// ValidateNotAboveCeiling сообщает, что цена продажи не превышает MRP.
func ValidateNotAboveCeiling(price, ceiling money.Money) bool {
	return price <= ceiling
}

// roundHalfUp делит num на den и округляет до целого. DivRound округляет половину от нуля,
// что для неотрицательных значений совпадает с half-up; банковское округление не используется.
func roundHalfUp(num, den decimal.Decimal) int64 {
	return num.DivRound(den, 0).IntPart()
}
