// Package repository содержит реализацию доступа к данным в PostgreSQL.
package repository

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"

	"github.com/EviternDev/pharma-erp/internal/model"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

// DefaultTxTimeout ограничивает одну транзакцию проведения продажи, если таймаут не задан.
const DefaultTxTimeout = 10 * time.Second

// PostgresRepository предоставляет доступ к хранилищу данных в PostgreSQL.
type PostgresRepository struct {
	pool      *pgxpool.Pool
	txTimeout time.Duration
	// retryDelays задаёт паузы между повторами транзакции при конфликте сериализации.
	retryDelays []time.Duration
}

// NewPostgresRepository создаёт новый репозиторий и инициализирует схему БД через миграции.
func NewPostgresRepository(dsn string, txTimeout time.Duration) (*PostgresRepository, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse pool config: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("create pool: %w", err)
	}

	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	if txTimeout <= 0 {
		txTimeout = DefaultTxTimeout
	}

	r := &PostgresRepository{
		pool:        pool,
		txTimeout:   txTimeout,
		retryDelays: []time.Duration{100 * time.Millisecond, 300 * time.Millisecond, 500 * time.Millisecond},
	}

	if err := r.runMigrations(ctx); err != nil {
		pool.Close()
		return nil, err
	}

	return r, nil
}

func (r *PostgresRepository) runMigrations(ctx context.Context) error {
	db := stdlib.OpenDBFromPool(r.pool)
	defer db.Close()

	goose.SetBaseFS(migrationsFS)

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("set dialect: %w", err)
	}

	if err := goose.UpContext(ctx, db, "migrations"); err != nil {
		return fmt.Errorf("run migrations: %w", err)
	}

	return nil
}

// withRetry повторяет fn целиком при конфликте сериализации, взаимоблокировке или обрыве
// соединения. Повтор безопасен: неудачная транзакция уже откатана.
func (r *PostgresRepository) withRetry(ctx context.Context, fn func() error) error {
	var err error

	for i := 0; i <= len(r.retryDelays); i++ {
		err = fn()
		if err == nil {
			return nil
		}

		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}

		if !isRetryable(err) || i == len(r.retryDelays) {
			break
		}

		timer := time.NewTimer(r.retryDelays[i])
		select {
		case <-ctx.Done():
			timer.Stop()
			return err
		case <-timer.C:
		}
	}
	return err
}

func isRetryable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == pgerrcode.SerializationFailure || pgErr.Code == pgerrcode.DeadlockDetected
	}
	return isConnectionError(err)
}

func isConnectionError(err error) bool {
	// Упрощенная проверка на ошибки соединения
	return strings.Contains(err.Error(), "connection refused") ||
		strings.Contains(err.Error(), "broken pipe") ||
		strings.Contains(err.Error(), "connection reset by peer")
}

func pgCode(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	return ""
}

// Close закрывает пул соединений с БД.
func (r *PostgresRepository) Close() error {
	r.pool.Close()
	return nil
}

// CreateMedicine добавляет препарат в справочник.
func (r *PostgresRepository) CreateMedicine(ctx context.Context, m model.Medicine) (int64, error) {
	hsn := m.HSNCode
	if hsn == "" {
		hsn = model.DefaultHSNCode
	}

	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO medicines (name, hsn_code, gst_rate) VALUES ($1, $2, $3::text::numeric) RETURNING id`,
		m.Name, hsn, m.GSTRate.String(),
	).Scan(&id)
	if err != nil {
		if pgCode(err) == pgerrcode.CheckViolation {
			return 0, model.InvalidArgumentf("medicine %q: %v", m.Name, err)
		}
		return 0, fmt.Errorf("create medicine: %w", err)
	}
	return id, nil
}

// GetMedicine возвращает препарат по идентификатору.
func (r *PostgresRepository) GetMedicine(ctx context.Context, id int64) (*model.Medicine, error) {
	var (
		m    model.Medicine
		rate string
	)
	err := r.pool.QueryRow(ctx,
		`SELECT id, name, hsn_code, gst_rate::text, created_at FROM medicines WHERE id = $1`,
		id,
	).Scan(&m.ID, &m.Name, &m.HSNCode, &rate, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("medicine %d: %w", id, model.ErrNotFound)
		}
		return nil, fmt.Errorf("get medicine: %w", err)
	}

	m.GSTRate, err = model.ParseGSTRate(rate)
	if err != nil {
		return nil, fmt.Errorf("medicine %d: %w", id, err)
	}
	return &m, nil
}

// CreateBatch регистрирует поступившую партию препарата.
func (r *PostgresRepository) CreateBatch(ctx context.Context, b model.Batch) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO batches (medicine_id, batch_number, expiry_date, cost_price_paise, mrp_paise, selling_price_paise, quantity)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING id`,
		b.MedicineID, b.BatchNumber, b.ExpiryDate, b.CostPrice.Paise(), b.MRP.Paise(), b.SellingPrice.Paise(), b.Quantity,
	).Scan(&id)
	if err != nil {
		switch pgCode(err) {
		case pgerrcode.ForeignKeyViolation:
			return 0, fmt.Errorf("medicine %d: %w", b.MedicineID, model.ErrNotFound)
		case pgerrcode.CheckViolation:
			return 0, model.InvalidArgumentf("batch %q: %v", b.BatchNumber, err)
		}
		return 0, fmt.Errorf("create batch: %w", err)
	}
	return id, nil
}

// SellableBatches возвращает непросроченные партии препарата с ненулевым остатком,
// отсортированные по сроку годности, а при равном сроке по порядку поступления.
// Партия, срок которой истекает в день asOf, ещё продаётся.
func (r *PostgresRepository) SellableBatches(ctx context.Context, medicineID int64, asOf time.Time) ([]model.Batch, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT id, medicine_id, batch_number, expiry_date, quantity, cost_price_paise, mrp_paise, selling_price_paise, created_at
		 FROM batches
		 WHERE medicine_id = $1 AND quantity > 0 AND expiry_date >= $2::date
		 ORDER BY expiry_date ASC, id ASC`,
		medicineID, asOf.Format(time.DateOnly),
	)
	if err != nil {
		return nil, fmt.Errorf("select batches: %w", err)
	}
	defer rows.Close()

	var res []model.Batch
	for rows.Next() {
		var b model.Batch
		if err := rows.Scan(&b.ID, &b.MedicineID, &b.BatchNumber, &b.ExpiryDate, &b.Quantity,
			&b.CostPrice, &b.MRP, &b.SellingPrice, &b.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		res = append(res, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return res, nil
}
