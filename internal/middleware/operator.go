package middleware

import (
	"context"
	"net/http"
	"strconv"
)

type contextKey string

const operatorIDKey contextKey = "operatorID"

// OperatorHeader задаёт заголовок с идентификатором кассира, проводящего операцию.
const OperatorHeader = "X-Operator-ID"

// Operator переносит идентификатор кассира из заголовка X-Operator-ID в контекст запроса.
// Заголовок необязателен, но если он передан, то должен быть положительным числом.
func Operator(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw := r.Header.Get(OperatorHeader)
		if raw == "" {
			next.ServeHTTP(w, r)
			return
		}

		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || id <= 0 {
			http.Error(w, http.StatusText(http.StatusBadRequest), http.StatusBadRequest)
			return
		}

		next.ServeHTTP(w, r.WithContext(WithOperatorID(r.Context(), id)))
	})
}

// WithOperatorID возвращает контекст с идентификатором кассира.
func WithOperatorID(ctx context.Context, id int64) context.Context {
	return context.WithValue(ctx, operatorIDKey, id)
}

// OperatorIDFromContext извлекает идентификатор кассира из контекста запроса.
func OperatorIDFromContext(ctx context.Context) (int64, bool) {
	id, ok := ctx.Value(operatorIDKey).(int64)
	return id, ok
}
