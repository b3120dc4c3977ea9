// Package model содержит доменные сущности аптечной кассы и складского учёта.
package model

import (
	"time"

	"github.com/EviternDev/pharma-erp/internal/money"
)

// PaymentMode описывает способ оплаты продажи.
type PaymentMode string

const (
	PaymentModeCash   PaymentMode = "cash"
	PaymentModeCard   PaymentMode = "card"
	PaymentModeUPI    PaymentMode = "upi"
	PaymentModeCredit PaymentMode = "credit"
)

// Valid сообщает, что способ оплаты входит в список допустимых.
func (p PaymentMode) Valid() bool {
	switch p {
	case PaymentModeCash, PaymentModeCard, PaymentModeUPI, PaymentModeCredit:
		return true
	}
	return false
}

// DefaultHSNCode задаёт код HSN для лекарственных препаратов по умолчанию.
const DefaultHSNCode = "3004"

// Medicine описывает препарат из справочника и его ставку GST.
type Medicine struct {
	ID        int64
	Name      string
	HSNCode   string
	GSTRate   GSTRate
	CreatedAt time.Time
}

// Batch описывает партию препарата: срок годности, остаток и цены за единицу.
// Партии не удаляются, а только расходуются до нуля или истекают.
type Batch struct {
	ID           int64
	MedicineID   int64
	BatchNumber  string
	ExpiryDate   time.Time
	Quantity     int
	CostPrice    money.Money
	MRP          money.Money
	SellingPrice money.Money
	CreatedAt    time.Time
}

// LineSelection описывает позицию чека, выбранная кассиром: препарат, количество и скидка.
// UnitPrice задаётся, только если цена изменена вручную; иначе берётся цена партии.
type LineSelection struct {
	MedicineID int64
	Quantity   int
	Discount   money.Money
	UnitPrice  *money.Money
}

// SaleRequest описывает полностью сформированный запрос на продажу.
type SaleRequest struct {
	InvoiceNumber string
	CustomerID    *int64
	CustomerGSTIN string
	UserID        int64
	PaymentMode   PaymentMode
	Notes         string
	SaleDate      time.Time
	Lines         []LineSelection
}

// DraftLine описывает рассчитанную строку продажи, привязанная к конкретной партии.
type DraftLine struct {
	MedicineID   int64
	MedicineName string
	BatchID      int64
	BatchNumber  string
	MRP          money.Money
	Line         LineComputation
}

// SaleDraft описывает подготовленную, но ещё не проведённую продажу.
type SaleDraft struct {
	InvoiceNumber string
	CustomerID    *int64
	CustomerGSTIN string
	UserID        int64
	PaymentMode   PaymentMode
	Notes         string
	SaleDate      time.Time
	Lines         []DraftLine
	Totals        InvoiceTotals
}

// Sale описывает проведённую продажу с итогами по счёту.
type Sale struct {
	ID            int64
	InvoiceNumber string
	CustomerID    *int64
	CustomerGSTIN string
	UserID        int64
	SaleDate      time.Time
	PaymentMode   PaymentMode
	Notes         string
	Totals        InvoiceTotals
	Items         []SaleItem
	CreatedAt     time.Time
}

// SaleItem хранит снимок строки продажи на момент проведения.
type SaleItem struct {
	ID               int64
	SaleID           int64
	BatchID          int64
	MedicineID       int64
	Line             LineComputation
	ReturnedQuantity int
}

// SaleReturn описывает возврат части строки продажи на склад.
type SaleReturn struct {
	ID         int64
	SaleItemID int64
	BatchID    int64
	Quantity   int
	CreatedAt  time.Time
}
