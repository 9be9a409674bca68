package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/department/entity"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

type DepartmentRepo struct {
	db *sqlx.DB
}

func NewDepartmentRepo(db *sqlx.DB) *DepartmentRepo {
	return &DepartmentRepo{db: db}
}

// Create inserts d. Names are unique within a province.
func (r *DepartmentRepo) Create(ctx context.Context, d *entity.Department) error {
	const q = `INSERT INTO departments (id, name, province, description) VALUES ($1, $2, $3, $4) RETURNING created_at`
	err := r.db.QueryRowxContext(ctx, q, d.ID, d.Name, d.Province, d.Description).Scan(&d.CreatedAt)
	return apperr.Store("insert department", err)
}

// List returns departments grouped by province then name. An empty province
// lists all of them.
func (r *DepartmentRepo) List(ctx context.Context, province string) ([]entity.Department, error) {
	b := psql.Select("id", "name", "province", "description", "created_at").
		From("departments").
		OrderBy("province ASC", "name ASC")
	if province != "" {
		b = b.Where(sq.Eq{"province": province})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, apperr.Store("build department list", err)
	}
	out := []entity.Department{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, apperr.Store("list departments", err)
	}
	return out, nil
}

func (r *DepartmentRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM departments WHERE id=$1`, id)
	if err != nil {
		return apperr.Store("delete department", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Store("delete department", err)
	}
	if n == 0 {
		return fmt.Errorf("delete department %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
