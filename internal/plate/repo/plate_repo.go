package repo

import (
	"context"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/apperr"
	"github.com/ovaphlow/pitchfork/service-plaques-go/internal/plate/entity"
)

const columns = `id, nom, post_nom, prenom, district, territoire, secteur, village, province,
	nationalite, adresse, telephone, email, plaque_number, qr_code, created_by, created_at, updated_at`

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PlateRepo provides data access for the plates table using sqlx.
type PlateRepo struct {
	db *sqlx.DB
}

func NewPlateRepo(db *sqlx.DB) *PlateRepo { return &PlateRepo{db: db} }

// Create inserts p and fills CreatedAt from the database clock.
func (r *PlateRepo) Create(ctx context.Context, p *entity.Plate) error {
	const q = `INSERT INTO plates (id, nom, post_nom, prenom, district, territoire, secteur, village, province,
		nationalite, adresse, telephone, email, plaque_number, qr_code, created_by)
	  VALUES (:id, :nom, :post_nom, :prenom, :district, :territoire, :secteur, :village, :province,
		:nationalite, :adresse, :telephone, :email, :plaque_number, :qr_code, :created_by)
	  RETURNING created_at`
	rows, err := r.db.NamedQueryContext(ctx, q, p)
	if err != nil {
		return apperr.Store("insert plate", err)
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return apperr.Store("insert plate", err)
		}
		return fmt.Errorf("insert plate: no row returned: %w", apperr.ErrStore)
	}
	return apperr.Store("insert plate", rows.Scan(&p.CreatedAt))
}

// List returns plates newest first. An empty province lists every province.
func (r *PlateRepo) List(ctx context.Context, province string) ([]entity.Plate, error) {
	b := psql.Select(columns).From("plates").OrderBy("created_at DESC", "id DESC")
	if province != "" {
		b = b.Where(sq.Eq{"province": province})
	}
	q, args, err := b.ToSql()
	if err != nil {
		return nil, apperr.Store("build plate list", err)
	}
	out := []entity.Plate{}
	if err := r.db.SelectContext(ctx, &out, q, args...); err != nil {
		return nil, apperr.Store("list plates", err)
	}
	return out, nil
}

func (r *PlateRepo) GetByID(ctx context.Context, id string) (*entity.Plate, error) {
	q := `SELECT ` + columns + ` FROM plates WHERE id=$1`
	var p entity.Plate
	if err := r.db.GetContext(ctx, &p, q, id); err != nil {
		return nil, apperr.Store("get plate", err)
	}
	return &p, nil
}

// Update rewrites the form fields of id and stamps updated_at. The plate
// number and QR image are left untouched.
func (r *PlateRepo) Update(ctx context.Context, id string, f entity.Fields) (*entity.Plate, error) {
	q, args, err := psql.Update("plates").SetMap(map[string]any{
		"nom":         f.Nom,
		"post_nom":    f.PostNom,
		"prenom":      f.Prenom,
		"district":    f.District,
		"territoire":  f.Territoire,
		"secteur":     f.Secteur,
		"village":     f.Village,
		"province":    f.Province,
		"nationalite": f.Nationalite,
		"adresse":     f.Adresse,
		"telephone":   f.Telephone,
		"email":       f.Email,
		"updated_at":  sq.Expr("NOW()"),
	}).Where(sq.Eq{"id": id}).Suffix("RETURNING " + columns).ToSql()
	if err != nil {
		return nil, apperr.Store("build plate update", err)
	}
	var p entity.Plate
	if err := r.db.GetContext(ctx, &p, q, args...); err != nil {
		return nil, apperr.Store("update plate", err)
	}
	return &p, nil
}

func (r *PlateRepo) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM plates WHERE id=$1`, id)
	if err != nil {
		return apperr.Store("delete plate", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return apperr.Store("delete plate", err)
	}
	if n == 0 {
		return fmt.Errorf("delete plate %s: %w", id, apperr.ErrNotFound)
	}
	return nil
}
