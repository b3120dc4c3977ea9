// Package money содержит представление денежных сумм в минимальных единицах валюты (пайсах).
package money

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// ErrInvalidAmount возвращается, если строку невозможно преобразовать в сумму в пайсах без потерь.
var ErrInvalidAmount = errors.New("invalid money amount")

// paisePerRupee задаёт количество пайс в одной рупии.
const paisePerRupee = 100

var hundred = decimal.NewFromInt(paisePerRupee)

// Money хранит сумму в пайсах. Отдельный тип не даёт случайно сложить сумму с количеством штук.
type Money int64

// Paise возвращает сумму как целое число пайс.
func (m Money) Paise() int64 {
	return int64(m)
}

// IsNegative сообщает, что сумма меньше нуля.
func (m Money) IsNegative() bool {
	return m < 0
}

// String форматирует сумму в рупиях с двумя знаками после точки, например "94.50".
func (m Money) String() string {
	sign := ""
	v := int64(m)
	if v < 0 {
		sign = "-"
		if v == math.MinInt64 {
			// -MinInt64 не помещается в int64
			return decimal.NewFromInt(v).Div(hundred).StringFixed(2)
		}
		v = -v
	}
	return fmt.Sprintf("%s%d.%02d", sign, v/paisePerRupee, v%paisePerRupee)
}

// Parse разбирает сумму в рупиях ("94.5", "₹ 1,200.00") в пайсы.
// Больше двух значащих знаков после точки считается ошибкой, округление не выполняется.
func Parse(s string) (Money, error) {
	clean := strings.TrimSpace(s)
	clean = strings.TrimPrefix(clean, "₹")
	clean = strings.ReplaceAll(clean, ",", "")
	clean = strings.TrimSpace(clean)
	if clean == "" {
		return 0, fmt.Errorf("%w: empty string", ErrInvalidAmount)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}

	paise := d.Mul(hundred)
	if !paise.IsInteger() {
		return 0, fmt.Errorf("%w: %q has fractional paise", ErrInvalidAmount, s)
	}
	if paise.GreaterThan(decimal.NewFromInt(math.MaxInt64)) || paise.LessThan(decimal.NewFromInt(math.MinInt64)) {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidAmount, s)
	}

	return Money(paise.IntPart()), nil
}

// Sum складывает суммы.
func Sum(amounts ...Money) Money {
	var total Money
	for _, a := range amounts {
		total += a
	}
	return total
}
