package handler

import (
	"time"

	"github.com/EviternDev/pharma-erp/internal/model"
	"github.com/EviternDev/pharma-erp/internal/money"
)

type createMedicineRequest struct {
	Name    string         `json:"name" validate:"required,max=200"`
	HSNCode string         `json:"hsn_code" validate:"omitempty,numeric,min=4,max=8"`
	GSTRate *model.GSTRate `json:"gst_rate" validate:"required"`
}

type receiveBatchRequest struct {
	MedicineID        int64  `json:"medicine_id" validate:"required,gt=0"`
	BatchNumber       string `json:"batch_number" validate:"required,max=64"`
	ExpiryDate        string `json:"expiry_date" validate:"required,datetime=2006-01-02"`
	Quantity          int    `json:"quantity" validate:"gte=0"`
	CostPricePaise    int64  `json:"cost_price_paise" validate:"gte=0"`
	MRPPaise          int64  `json:"mrp_paise" validate:"gt=0"`
	SellingPricePaise int64  `json:"selling_price_paise" validate:"gt=0"`
}

func (r receiveBatchRequest) toModel() model.Batch {
	expiry, _ := time.Parse(time.DateOnly, r.ExpiryDate)
	return model.Batch{
		MedicineID:   r.MedicineID,
		BatchNumber:  r.BatchNumber,
		ExpiryDate:   expiry,
		Quantity:     r.Quantity,
		CostPrice:    money.Money(r.CostPricePaise),
		MRP:          money.Money(r.MRPPaise),
		SellingPrice: money.Money(r.SellingPricePaise),
	}
}

type saleLineRequest struct {
	MedicineID     int64  `json:"medicine_id" validate:"required,gt=0"`
	Quantity       int    `json:"quantity" validate:"required,gt=0"`
	DiscountPaise  int64  `json:"discount_paise" validate:"gte=0"`
	UnitPricePaise *int64 `json:"unit_price_paise" validate:"omitempty,gte=0"`
}

type saleRequest struct {
	InvoiceNumber string            `json:"invoice_number" validate:"omitempty,max=32"`
	CustomerID    *int64            `json:"customer_id" validate:"omitempty,gt=0"`
	CustomerGSTIN string            `json:"customer_gstin" validate:"omitempty,gstin"`
	UserID        int64             `json:"user_id" validate:"omitempty,gt=0"`
	PaymentMode   string            `json:"payment_mode" validate:"omitempty,oneof=cash card upi credit"`
	Notes         string            `json:"notes" validate:"max=500"`
	SaleDate      *time.Time        `json:"sale_date"`
	Lines         []saleLineRequest `json:"lines" validate:"required,min=1,dive"`
}

func (r saleRequest) toModel() model.SaleRequest {
	req := model.SaleRequest{
		InvoiceNumber: r.InvoiceNumber,
		CustomerID:    r.CustomerID,
		CustomerGSTIN: r.CustomerGSTIN,
		UserID:        r.UserID,
		PaymentMode:   model.PaymentMode(r.PaymentMode),
		Notes:         r.Notes,
		Lines:         make([]model.LineSelection, 0, len(r.Lines)),
	}
	if r.SaleDate != nil {
		req.SaleDate = *r.SaleDate
	}
	for _, l := range r.Lines {
		sel := model.LineSelection{
			MedicineID: l.MedicineID,
			Quantity:   l.Quantity,
			Discount:   money.Money(l.DiscountPaise),
		}
		if l.UnitPricePaise != nil {
			p := money.Money(*l.UnitPricePaise)
			sel.UnitPrice = &p
		}
		req.Lines = append(req.Lines, sel)
	}
	return req
}

type returnRequest struct {
	Quantity int `json:"quantity" validate:"required,gt=0"`
}

type idResponse struct {
	ID int64 `json:"id"`
}

type batchResponse struct {
	ID                int64  `json:"id"`
	MedicineID        int64  `json:"medicine_id"`
	BatchNumber       string `json:"batch_number"`
	ExpiryDate        string `json:"expiry_date"`
	Quantity          int    `json:"quantity"`
	MRPPaise          int64  `json:"mrp_paise"`
	MRP               string `json:"mrp"`
	SellingPricePaise int64  `json:"selling_price_paise"`
	SellingPrice      string `json:"selling_price"`
}

func newBatchResponse(b model.Batch) batchResponse {
	return batchResponse{
		ID:                b.ID,
		MedicineID:        b.MedicineID,
		BatchNumber:       b.BatchNumber,
		ExpiryDate:        b.ExpiryDate.Format(time.DateOnly),
		Quantity:          b.Quantity,
		MRPPaise:          b.MRP.Paise(),
		MRP:               b.MRP.String(),
		SellingPricePaise: b.SellingPrice.Paise(),
		SellingPrice:      b.SellingPrice.String(),
	}
}

type lineResponse struct {
	ID               int64         `json:"id,omitempty"`
	MedicineID       int64         `json:"medicine_id"`
	MedicineName     string        `json:"medicine_name,omitempty"`
	BatchID          int64         `json:"batch_id"`
	BatchNumber      string        `json:"batch_number,omitempty"`
	Quantity         int           `json:"quantity"`
	ReturnedQuantity int           `json:"returned_quantity"`
	UnitPricePaise   int64         `json:"unit_price_paise"`
	SubtotalPaise    int64         `json:"subtotal_paise"`
	DiscountPaise    int64         `json:"discount_paise"`
	TaxablePaise     int64         `json:"taxable_paise"`
	GSTRate          model.GSTRate `json:"gst_rate"`
	CGSTRate         model.GSTRate `json:"cgst_rate"`
	CGSTPaise        int64         `json:"cgst_paise"`
	SGSTRate         model.GSTRate `json:"sgst_rate"`
	SGSTPaise        int64         `json:"sgst_paise"`
	TotalPaise       int64         `json:"total_paise"`
	Total            string        `json:"total"`
}

func newLineResponse(l model.LineComputation) lineResponse {
	return lineResponse{
		Quantity:       l.Quantity,
		UnitPricePaise: l.UnitPrice.Paise(),
		SubtotalPaise:  l.Subtotal.Paise(),
		DiscountPaise:  l.Discount.Paise(),
		TaxablePaise:   l.Taxable.Paise(),
		GSTRate:        l.GSTRate,
		CGSTRate:       l.CGSTRate,
		CGSTPaise:      l.CGST.Paise(),
		SGSTRate:       l.SGSTRate,
		SGSTPaise:      l.SGST.Paise(),
		TotalPaise:     l.Total.Paise(),
		Total:          l.Total.String(),
	}
}

type totalsResponse struct {
	SubtotalPaise   int64  `json:"subtotal_paise"`
	DiscountPaise   int64  `json:"discount_paise"`
	CGSTPaise       int64  `json:"cgst_paise"`
	SGSTPaise       int64  `json:"sgst_paise"`
	TotalGSTPaise   int64  `json:"total_gst_paise"`
	GrandTotalPaise int64  `json:"grand_total_paise"`
	GrandTotal      string `json:"grand_total"`
}

func newTotalsResponse(t model.InvoiceTotals) totalsResponse {
	return totalsResponse{
		SubtotalPaise:   t.Subtotal.Paise(),
		DiscountPaise:   t.Discount.Paise(),
		CGSTPaise:       t.CGST.Paise(),
		SGSTPaise:       t.SGST.Paise(),
		TotalGSTPaise:   t.TotalGST.Paise(),
		GrandTotalPaise: t.GrandTotal.Paise(),
		GrandTotal:      t.GrandTotal.String(),
	}
}

type quoteResponse struct {
	Lines  []lineResponse `json:"lines"`
	Totals totalsResponse `json:"totals"`
}

func newQuoteResponse(d *model.SaleDraft) quoteResponse {
	resp := quoteResponse{
		Lines:  make([]lineResponse, 0, len(d.Lines)),
		Totals: newTotalsResponse(d.Totals),
	}
	for _, l := range d.Lines {
		lr := newLineResponse(l.Line)
		lr.MedicineID = l.MedicineID
		lr.MedicineName = l.MedicineName
		lr.BatchID = l.BatchID
		lr.BatchNumber = l.BatchNumber
		resp.Lines = append(resp.Lines, lr)
	}
	return resp
}

type saleResponse struct {
	ID            int64          `json:"id"`
	InvoiceNumber string         `json:"invoice_number"`
	CustomerID    *int64         `json:"customer_id,omitempty"`
	CustomerGSTIN string         `json:"customer_gstin,omitempty"`
	UserID        int64          `json:"user_id"`
	PaymentMode   string         `json:"payment_mode"`
	Notes         string         `json:"notes,omitempty"`
	SaleDate      string         `json:"sale_date"`
	Items         []lineResponse `json:"items"`
	Totals        totalsResponse `json:"totals"`
}

func newSaleResponse(s *model.Sale) saleResponse {
	resp := saleResponse{
		ID:            s.ID,
		InvoiceNumber: s.InvoiceNumber,
		CustomerID:    s.CustomerID,
		CustomerGSTIN: s.CustomerGSTIN,
		UserID:        s.UserID,
		PaymentMode:   string(s.PaymentMode),
		Notes:         s.Notes,
		SaleDate:      s.SaleDate.Format(time.RFC3339),
		Items:         make([]lineResponse, 0, len(s.Items)),
		Totals:        newTotalsResponse(s.Totals),
	}
	for _, it := range s.Items {
		lr := newLineResponse(it.Line)
		lr.ID = it.ID
		lr.MedicineID = it.MedicineID
		lr.BatchID = it.BatchID
		lr.ReturnedQuantity = it.ReturnedQuantity
		resp.Items = append(resp.Items, lr)
	}
	return resp
}

type returnResponse struct {
	ID         int64  `json:"id"`
	SaleItemID int64  `json:"sale_item_id"`
	BatchID    int64  `json:"batch_id"`
	Quantity   int    `json:"quantity"`
	CreatedAt  string `json:"created_at"`
}

type errorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code"`
	Details any    `json:"details,omitempty"`
}

type stockDetails struct {
	MedicineID int64 `json:"medicine_id,omitempty"`
	Requested  int   `json:"requested"`
	Available  int   `json:"available"`
}

type ceilingDetails struct {
	Item       string `json:"item"`
	BatchID    int64  `json:"batch_id,omitempty"`
	PricePaise int64  `json:"price_paise"`
	MRPPaise   int64  `json:"mrp_paise"`
}

type fieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
}
