package db

import (
	"context"
	"net/http"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
)

type contextKey string

const DBConnKey contextKey = "db_conn"

// Acquirer hands out pooled connections. *pgxpool.Pool satisfies it.
type Acquirer interface {
	Acquire(ctx context.Context) (*pgxpool.Conn, error)
}

// ConnMiddleware checks one connection out of the pool for the lifetime of
// the request and stores it on the request context. The connection is
// released when the handler returns, on every path including errors and
// panics recovered further up the chain.
func ConnMiddleware(pool Acquirer) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ctx := c.Request().Context()
			conn, err := pool.Acquire(ctx)
			if err != nil {
				return echo.NewHTTPError(http.StatusServiceUnavailable, "Database unavailable.").SetInternal(err)
			}
			defer conn.Release()

			ctx = context.WithValue(ctx, DBConnKey, conn)
			c.SetRequest(c.Request().WithContext(ctx))

			return next(c)
		}
	}
}

// ConnFromContext retrieves the request-scoped database connection from context.
func ConnFromContext(ctx context.Context) *pgxpool.Conn {
	conn, _ := ctx.Value(DBConnKey).(*pgxpool.Conn)
	return conn
}

// Conn returns the request-scoped connection when one is present, otherwise
// the pool itself. Repositories call it at the start of every operation.
func Conn(ctx context.Context, pool *pgxpool.Pool) Queryable {
	if c := ConnFromContext(ctx); c != nil {
		return c
	}
	return pool
}
