package hospital

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/hnms/hnms/internal/platform/db"
	"github.com/hnms/hnms/internal/platform/query"
	"github.com/hnms/hnms/pkg/pagination"
)

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

const hospitalCols = `id, name, address, phone, email, created_at, updated_at`

func scanHospital(row pgx.Row) (*Hospital, error) {
	var h Hospital
	if err := row.Scan(&h.ID, &h.Name, &h.Address, &h.Phone, &h.Email, &h.CreatedAt, &h.UpdatedAt); err != nil {
		if db.IsNoRows(err) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	return &h, nil
}

func (r *repoPG) Create(ctx context.Context, h *Hospital) error {
	return db.Conn(ctx, r.pool).QueryRow(ctx, `
		INSERT INTO hospitals (name, address, phone, email)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at, updated_at`,
		h.Name, h.Address, h.Phone, h.Email).Scan(&h.ID, &h.CreatedAt, &h.UpdatedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Hospital, error) {
	return scanHospital(db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT `+hospitalCols+` FROM hospitals WHERE id = $1`, id))
}

func (r *repoPG) List(ctx context.Context, p pagination.Params) ([]*Hospital, int, error) {
	conn := db.Conn(ctx, r.pool)
	b := query.New("hospitals", hospitalCols).OrderBy("name ASC, id ASC").Paginate(p)

	countSQL, countArgs, err := b.CountSQL()
	if err != nil {
		return nil, 0, err
	}
	var total int
	if err := conn.QueryRow(ctx, countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, err
	}

	sql, args, err := b.SelectSQL()
	if err != nil {
		return nil, 0, err
	}
	rows, err := conn.Query(ctx, sql, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Hospital
	for rows.Next() {
		h, err := scanHospital(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, h)
	}
	return items, total, rows.Err()
}

func (r *repoPG) Exists(ctx context.Context, id int64) (bool, error) {
	var ok bool
	err := db.Conn(ctx, r.pool).QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM hospitals WHERE id = $1)`, id).Scan(&ok)
	return ok, err
}
