package model

import (
	"errors"
	"fmt"

	"github.com/EviternDev/pharma-erp/internal/money"
)

var (
	// ErrInvalidArgument означает ошибку вызывающей стороны: неверное количество, ставка или сумма. Не повторяется.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrNotFound возвращается, если запрошенная сущность не найдена.
	ErrNotFound = errors.New("not found")
	// ErrTransactionFailed означает, что продажа не проведена, ничего не записано; запрос можно повторить.
	ErrTransactionFailed = errors.New("sale could not be completed, please retry")
)

// InvalidArgumentf создаёт ошибку ErrInvalidArgument с пояснением.
func InvalidArgumentf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidArgument, fmt.Sprintf(format, args...))
}

// InsufficientStockError возвращается, если годного остатка меньше запрошенного.
type InsufficientStockError struct {
	MedicineID int64
	Requested  int
	Available  int
}

func (e *InsufficientStockError) Error() string {
	if e.MedicineID != 0 {
		return fmt.Sprintf("insufficient stock for medicine %d: requested %d, available %d", e.MedicineID, e.Requested, e.Available)
	}
	return fmt.Sprintf("insufficient stock: requested %d, available %d", e.Requested, e.Available)
}

// CeilingViolationError возвращается, если цена продажи выше MRP.
type CeilingViolationError struct {
	Item    string
	BatchID int64
	Price   money.Money
	Ceiling money.Money
}

func (e *CeilingViolationError) Error() string {
	return fmt.Sprintf("selling price %s of %q (batch %d) exceeds MRP %s", e.Price, e.Item, e.BatchID, e.Ceiling)
}

// TransactionError описывает сбой при атомарной записи продажи. Транзакция к этому моменту уже откатана.
type TransactionError struct {
	Err error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s: %v", ErrTransactionFailed, e.Err)
}

func (e *TransactionError) Unwrap() error {
	return e.Err
}

// Is позволяет проверять любой TransactionError через errors.Is(err, ErrTransactionFailed).
func (e *TransactionError) Is(target error) bool {
	return target == ErrTransactionFailed
}
