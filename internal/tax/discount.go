package tax

import (
	"slices"

	"github.com/shopspring/decimal"

	"github.com/EviternDev/pharma-erp/internal/model"
	"github.com/EviternDev/pharma-erp/internal/money"
)

// ApportionDiscount делит скидку позиции между строками разных партий пропорционально их суммам.
// Каждая доля равна целой части точной квоты; оставшиеся пайсы по одной получают строки с наибольшим
// дробным остатком (при равенстве более ранняя строка). Доли в сумме равны скидке и не
// превышают сумму своей строки.
func ApportionDiscount(discount money.Money, subtotals []money.Money) ([]money.Money, error) {
	if discount.IsNegative() {
		return nil, model.InvalidArgumentf("negative discount %s", discount)
	}

	var total money.Money
	for _, s := range subtotals {
		if s.IsNegative() {
			return nil, model.InvalidArgumentf("negative line subtotal %s", s)
		}
		total += s
	}
	if discount > total {
		return nil, model.InvalidArgumentf("discount %s exceeds subtotal %s", discount, total)
	}

	shares := make([]money.Money, len(subtotals))
	if discount == 0 {
		return shares, nil
	}

	d := decimal.NewFromInt(discount.Paise())
	den := decimal.NewFromInt(total.Paise())
	remainders := make([]decimal.Decimal, len(subtotals))

	var assigned money.Money
	for i, s := range subtotals {
		q, r := d.Mul(decimal.NewFromInt(s.Paise())).QuoRem(den, 0)
		shares[i] = money.Money(q.IntPart())
		remainders[i] = r
		assigned += shares[i]
	}

	order := make([]int, len(subtotals))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return remainders[b].Cmp(remainders[a])
	})

	leftover := int(discount - assigned)
	for _, i := range order[:leftover] {
		shares[i]++
	}

	return shares, nil
}
