package repository

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
)

func TestFormatInvoiceNumber(t *testing.T) {
	assert.Equal(t, "INV-000001", FormatInvoiceNumber("INV", 1))
	assert.Equal(t, "INV-000042", FormatInvoiceNumber("INV", 42))
	assert.Equal(t, "PH-1234567", FormatInvoiceNumber("PH", 1234567))
}

func newRetryRepo() *PostgresRepository {
	return &PostgresRepository{retryDelays: []time.Duration{time.Millisecond, time.Millisecond}}
}

func TestWithRetry_RetriesSerializationFailure(t *testing.T) {
	r := newRetryRepo()
	calls := 0

	err := r.withRetry(context.Background(), func() error {
		calls++
		if calls < 3 {
			return fmt.Errorf("update: %w", &pgconn.PgError{Code: pgerrcode.SerializationFailure})
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_GivesUpAfterLastDelay(t *testing.T) {
	r := newRetryRepo()
	calls := 0

	err := r.withRetry(context.Background(), func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.DeadlockDetected}
	})

	var pgErr *pgconn.PgError
	assert.ErrorAs(t, err, &pgErr)
	assert.Equal(t, 3, calls)
}

func TestWithRetry_DoesNotRetryOtherErrors(t *testing.T) {
	r := newRetryRepo()
	calls := 0
	boom := errors.New("boom")

	err := r.withRetry(context.Background(), func() error {
		calls++
		return boom
	})

	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)

	calls = 0
	err = r.withRetry(context.Background(), func() error {
		calls++
		return &pgconn.PgError{Code: pgerrcode.UniqueViolation}
	})
	assert.Error(t, err)
	assert.Equal(t, 1, calls)
}

func TestWithRetry_RetriesConnectionErrors(t *testing.T) {
	r := newRetryRepo()
	calls := 0

	err := r.withRetry(context.Background(), func() error {
		calls++
		if calls == 1 {
			return errors.New("dial tcp: connection refused")
		}
		return nil
	})

	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}
