package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"

	"github.com/EviternDev/pharma-erp/internal/model"
	"github.com/EviternDev/pharma-erp/internal/money"
	"github.com/EviternDev/pharma-erp/internal/tax"
)

// lockedBatch хранит состояние партии, прочитанное под блокировкой строки.
type lockedBatch struct {
	quantity int
	mrp      money.Money
	name     string
}

// CommitSale атомарно проводит подготовленную продажу: блокирует партии, повторно проверяет
// цены по MRP и остатки, выдаёт номер счёта, записывает шапку и строки, списывает остатки.
//
// Транзакция не прерывается отменой ctx вызывающей стороны и ограничена только таймаутом
// репозитория. Ошибки проверки возвращаются как есть (*model.CeilingViolationError,
// *model.InsufficientStockError), любой сбой хранилища как *model.TransactionError.
// В обоих случаях в БД ничего не записано.
func (r *PostgresRepository) CommitSale(ctx context.Context, draft *model.SaleDraft) (*model.Sale, error) {
	if draft == nil || len(draft.Lines) == 0 {
		return nil, model.InvalidArgumentf("sale has no lines")
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.txTimeout)
	defer cancel()

	var sale *model.Sale
	err := r.withRetry(txCtx, func() error {
		var err error
		sale, err = r.commitSale(txCtx, draft)
		return err
	})
	if err != nil {
		var (
			ceilingErr *model.CeilingViolationError
			stockErr   *model.InsufficientStockError
			txErr      *model.TransactionError
		)
		switch {
		case errors.As(err, &ceilingErr), errors.As(err, &stockErr), errors.As(err, &txErr),
			errors.Is(err, model.ErrInvalidArgument):
			return nil, err
		}
		return nil, &model.TransactionError{Err: err}
	}

	return sale, nil
}

func (r *PostgresRepository) commitSale(ctx context.Context, draft *model.SaleDraft) (*model.Sale, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	need := make(map[int64]int, len(draft.Lines))
	ids := make([]int64, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		if _, ok := need[l.BatchID]; !ok {
			ids = append(ids, l.BatchID)
		}
		need[l.BatchID] += l.Line.Quantity
	}
	slices.Sort(ids)

	locked, err := lockBatches(ctx, tx, ids)
	if err != nil {
		return nil, err
	}

	for _, l := range draft.Lines {
		b, ok := locked[l.BatchID]
		if !ok {
			return nil, &model.InsufficientStockError{MedicineID: l.MedicineID, Requested: need[l.BatchID]}
		}
		if !tax.ValidateNotAboveCeiling(l.Line.UnitPrice, b.mrp) {
			return nil, &model.CeilingViolationError{
				Item:    b.name,
				BatchID: l.BatchID,
				Price:   l.Line.UnitPrice,
				Ceiling: b.mrp,
			}
		}
	}

	for _, id := range ids {
		if locked[id].quantity < need[id] {
			return nil, &model.InsufficientStockError{
				MedicineID: medicineForBatch(draft.Lines, id),
				Requested:  need[id],
				Available:  locked[id].quantity,
			}
		}
	}

	invoice := draft.InvoiceNumber
	if invoice == "" {
		invoice, err = nextInvoiceNumber(ctx, tx)
		if err != nil {
			return nil, err
		}
	}

	sale := &model.Sale{
		InvoiceNumber: invoice,
		CustomerID:    draft.CustomerID,
		CustomerGSTIN: draft.CustomerGSTIN,
		UserID:        draft.UserID,
		SaleDate:      draft.SaleDate,
		PaymentMode:   draft.PaymentMode,
		Notes:         draft.Notes,
		Totals:        draft.Totals,
	}

	err = tx.QueryRow(ctx,
		`INSERT INTO sales (invoice_number, customer_id, customer_gstin, user_id, sale_date,
		                    subtotal_paise, discount_paise, total_cgst_paise, total_sgst_paise, total_gst_paise,
		                    grand_total_paise, payment_mode, notes)
		 VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, $11, $12, NULLIF($13, ''))
		 RETURNING id, sale_date, created_at`,
		invoice, draft.CustomerID, draft.CustomerGSTIN, draft.UserID, draft.SaleDate,
		draft.Totals.Subtotal.Paise(), draft.Totals.Discount.Paise(), draft.Totals.CGST.Paise(),
		draft.Totals.SGST.Paise(), draft.Totals.TotalGST.Paise(), draft.Totals.GrandTotal.Paise(),
		string(draft.PaymentMode), draft.Notes,
	).Scan(&sale.ID, &sale.SaleDate, &sale.CreatedAt)
	if err != nil {
		if pgCode(err) == pgerrcode.UniqueViolation {
			return nil, &model.TransactionError{Err: fmt.Errorf("invoice number %q already used", invoice)}
		}
		return nil, fmt.Errorf("insert sale: %w", err)
	}

	sale.Items = make([]model.SaleItem, 0, len(draft.Lines))
	for _, l := range draft.Lines {
		item := model.SaleItem{
			SaleID:     sale.ID,
			BatchID:    l.BatchID,
			MedicineID: l.MedicineID,
			Line:       l.Line,
		}
		c := l.Line
		err = tx.QueryRow(ctx,
			`INSERT INTO sale_items (sale_id, batch_id, medicine_id, quantity, unit_price_paise, subtotal_paise,
			                         discount_paise, taxable_amount_paise, gst_rate, cgst_rate, cgst_amount_paise,
			                         sgst_rate, sgst_amount_paise, total_paise)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9::text::numeric, $10::text::numeric, $11, $12::text::numeric, $13, $14)
			 RETURNING id`,
			sale.ID, l.BatchID, l.MedicineID, c.Quantity, c.UnitPrice.Paise(), c.Subtotal.Paise(),
			c.Discount.Paise(), c.Taxable.Paise(), c.GSTRate.String(), c.CGSTRate.String(), c.CGST.Paise(),
			c.SGSTRate.String(), c.SGST.Paise(), c.Total.Paise(),
		).Scan(&item.ID)
		if err != nil {
			return nil, fmt.Errorf("insert sale item: %w", err)
		}
		sale.Items = append(sale.Items, item)
	}

	for _, id := range ids {
		tag, err := tx.Exec(ctx,
			`UPDATE batches SET quantity = quantity - $2 WHERE id = $1 AND quantity >= $2`,
			id, need[id],
		)
		if err != nil {
			return nil, fmt.Errorf("decrement batch %d: %w", id, err)
		}
		if tag.RowsAffected() != 1 {
			return nil, fmt.Errorf("decrement batch %d: stock changed under lock", id)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit transaction: %w", err)
	}

	return sale, nil
}

// lockBatches блокирует строки партий в порядке возрастания id, чтобы параллельные
// продажи с пересекающимися партиями не взаимоблокировались.
func lockBatches(ctx context.Context, tx pgx.Tx, ids []int64) (map[int64]lockedBatch, error) {
	rows, err := tx.Query(ctx,
		`SELECT b.id, b.quantity, b.mrp_paise, m.name
		 FROM batches b
		 JOIN medicines m ON m.id = b.medicine_id
		 WHERE b.id = ANY($1)
		 ORDER BY b.id
		 FOR UPDATE OF b`,
		ids,
	)
	if err != nil {
		return nil, fmt.Errorf("lock batches: %w", err)
	}
	defer rows.Close()

	locked := make(map[int64]lockedBatch, len(ids))
	for rows.Next() {
		var (
			id int64
			b  lockedBatch
		)
		if err := rows.Scan(&id, &b.quantity, &b.mrp, &b.name); err != nil {
			return nil, fmt.Errorf("scan locked batch: %w", err)
		}
		locked[id] = b
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return locked, nil
}

// nextInvoiceNumber выдаёт следующий номер счёта из единственной строки настроек.
// Строка блокируется UPDATE до конца транзакции; при откате номер не расходуется.
func nextInvoiceNumber(ctx context.Context, tx pgx.Tx) (string, error) {
	var (
		prefix string
		n      int64
	)
	err := tx.QueryRow(ctx,
		`UPDATE pharmacy_settings
		 SET next_invoice_number = next_invoice_number + 1, updated_at = now()
		 WHERE id = 1
		 RETURNING invoice_prefix, next_invoice_number - 1`,
	).Scan(&prefix, &n)
	if err != nil {
		return "", fmt.Errorf("next invoice number: %w", err)
	}
	return FormatInvoiceNumber(prefix, n), nil
}

// FormatInvoiceNumber собирает номер счёта вида INV-000042.
func FormatInvoiceNumber(prefix string, n int64) string {
	return fmt.Sprintf("%s-%06d", prefix, n)
}

func medicineForBatch(lines []model.DraftLine, batchID int64) int64 {
	for _, l := range lines {
		if l.BatchID == batchID {
			return l.MedicineID
		}
	}
	return 0
}

// GetSale возвращает проведённую продажу вместе со строками.
func (r *PostgresRepository) GetSale(ctx context.Context, id int64) (*model.Sale, error) {
	var (
		s     model.Sale
		gstin *string
		notes *string
		mode  string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, invoice_number, customer_id, customer_gstin, user_id, sale_date,
		        subtotal_paise, discount_paise, total_cgst_paise, total_sgst_paise, total_gst_paise, grand_total_paise,
		        payment_mode, notes, created_at
		 FROM sales WHERE id = $1`,
		id,
	).Scan(&s.ID, &s.InvoiceNumber, &s.CustomerID, &gstin, &s.UserID, &s.SaleDate,
		&s.Totals.Subtotal, &s.Totals.Discount, &s.Totals.CGST, &s.Totals.SGST, &s.Totals.TotalGST, &s.Totals.GrandTotal,
		&mode, &notes, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("sale %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get sale: %w", err)
	}
	s.PaymentMode = model.PaymentMode(mode)
	if gstin != nil {
		s.CustomerGSTIN = *gstin
	}
	if notes != nil {
		s.Notes = *notes
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, batch_id, medicine_id, quantity, unit_price_paise, subtotal_paise, discount_paise,
		        taxable_amount_paise, gst_rate::text, cgst_rate::text, cgst_amount_paise, sgst_rate::text,
		        sgst_amount_paise, total_paise, returned_quantity
		 FROM sale_items WHERE sale_id = $1 ORDER BY id`,
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("select sale items: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			it                  model.SaleItem
			rate, cgstR, sgstR string
		)
		if err := rows.Scan(&it.ID, &it.BatchID, &it.MedicineID, &it.Line.Quantity, &it.Line.UnitPrice,
			&it.Line.Subtotal, &it.Line.Discount, &it.Line.Taxable, &rate, &cgstR, &it.Line.CGST, &sgstR,
			&it.Line.SGST, &it.Line.Total, &it.ReturnedQuantity); err != nil {
			return nil, fmt.Errorf("scan sale item: %w", err)
		}
		if it.Line.GSTRate, err = model.ParseGSTRate(rate); err != nil {
			return nil, fmt.Errorf("sale item %d: %w", it.ID, err)
		}
		if it.Line.CGSTRate, err = model.ParseGSTRate(cgstR); err != nil {
			return nil, fmt.Errorf("sale item %d: %w", it.ID, err)
		}
		if it.Line.SGSTRate, err = model.ParseGSTRate(sgstR); err != nil {
			return nil, fmt.Errorf("sale item %d: %w", it.ID, err)
		}
		it.SaleID = s.ID
		it.Line.TotalGST = it.Line.CGST + it.Line.SGST
		s.Items = append(s.Items, it)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return &s, nil
}

// ReturnSaleItem возвращает qty единиц строки продажи на исходную партию.
// Суммарно вернуть можно не больше проданного количества.
func (r *PostgresRepository) ReturnSaleItem(ctx context.Context, itemID int64, qty int) (*model.SaleReturn, error) {
	if qty <= 0 {
		return nil, model.InvalidArgumentf("return quantity must be positive, got %d", qty)
	}

	txCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.txTimeout)
	defer cancel()

	var ret *model.SaleReturn
	err := r.withRetry(txCtx, func() error {
		tx, err := r.pool.Begin(txCtx)
		if err != nil {
			return fmt.Errorf("begin transaction: %w", err)
		}
		defer tx.Rollback(txCtx)

		var (
			batchID            int64
			sold, alreadyTaken int
		)
		err = tx.QueryRow(txCtx,
			`SELECT batch_id, quantity, returned_quantity FROM sale_items WHERE id = $1 FOR UPDATE`,
			itemID,
		).Scan(&batchID, &sold, &alreadyTaken)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return fmt.Errorf("sale item %d: %w", itemID, model.ErrNotFound)
			}
			return fmt.Errorf("lock sale item: %w", err)
		}

		if alreadyTaken+qty > sold {
			return model.InvalidArgumentf("cannot return %d of sale item %d: sold %d, already returned %d",
				qty, itemID, sold, alreadyTaken)
		}

		if _, err := tx.Exec(txCtx,
			`UPDATE sale_items SET returned_quantity = returned_quantity + $2 WHERE id = $1`,
			itemID, qty,
		); err != nil {
			return fmt.Errorf("update sale item: %w", err)
		}

		if _, err := tx.Exec(txCtx,
			`UPDATE batches SET quantity = quantity + $2 WHERE id = $1`,
			batchID, qty,
		); err != nil {
			return fmt.Errorf("restock batch: %w", err)
		}

		res := &model.SaleReturn{SaleItemID: itemID, BatchID: batchID, Quantity: qty}
		if err := tx.QueryRow(txCtx,
			`INSERT INTO sale_returns (sale_item_id, batch_id, quantity) VALUES ($1, $2, $3) RETURNING id, created_at`,
			itemID, batchID, qty,
		).Scan(&res.ID, &res.CreatedAt); err != nil {
			return fmt.Errorf("insert sale return: %w", err)
		}

		if err := tx.Commit(txCtx); err != nil {
			return fmt.Errorf("commit transaction: %w", err)
		}
		ret = res
		return nil
	})
	if err != nil {
		if errors.Is(err, model.ErrNotFound) || errors.Is(err, model.ErrInvalidArgument) {
			return nil, err
		}
		return nil, &model.TransactionError{Err: err}
	}

	return ret, nil
}
