package model

import (
	"bytes"
	"fmt"

	"github.com/shopspring/decimal"
)

var two = decimal.NewFromInt(2)

// GSTRate задаёт ставку GST в процентах. Хранится точно и может быть дробной (например 2.5).
type GSTRate struct {
	percent decimal.Decimal
}

// NewGSTRate создаёт ставку из десятичного значения процентов.
func NewGSTRate(percent decimal.Decimal) (GSTRate, error) {
	if percent.IsNegative() {
		return GSTRate{}, fmt.Errorf("%w: negative GST rate %s", ErrInvalidArgument, percent)
	}
	return GSTRate{percent: percent}, nil
}

// ParseGSTRate разбирает ставку из строки вида "5", "12", "2.5".
func ParseGSTRate(s string) (GSTRate, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return GSTRate{}, fmt.Errorf("%w: malformed GST rate %q", ErrInvalidArgument, s)
	}
	return NewGSTRate(d)
}

// MustGSTRate работает как ParseGSTRate, но паникует при ошибке. Для констант и тестов.
func MustGSTRate(s string) GSTRate {
	r, err := ParseGSTRate(s)
	if err != nil {
		panic(err)
	}
	return r
}

// Percent возвращает ставку в процентах.
func (r GSTRate) Percent() decimal.Decimal {
	return r.percent
}

// Half возвращает половину ставки: ставку CGST и она же ставка SGST.
func (r GSTRate) Half() GSTRate {
	return GSTRate{percent: r.percent.Div(two)}
}

// IsZero сообщает, что ставка нулевая.
func (r GSTRate) IsZero() bool {
	return r.percent.IsZero()
}

// Equal сравнивает ставки по значению, без учёта записи ("5" == "5.00").
func (r GSTRate) Equal(other GSTRate) bool {
	return r.percent.Equal(other.percent)
}

func (r GSTRate) String() string {
	return r.percent.String()
}

// MarshalJSON кодирует ставку числом без кавычек.
func (r GSTRate) MarshalJSON() ([]byte, error) {
	return []byte(r.percent.String()), nil
}

// UnmarshalJSON принимает ставку числом или строкой.
func (r *GSTRate) UnmarshalJSON(data []byte) error {
	parsed, err := ParseGSTRate(string(bytes.Trim(data, `"`)))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
