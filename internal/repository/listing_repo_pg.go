package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/jackc/pgx/v5"
)

const listingColumns = `id, owner_id, brand, model, year, seats, daily_price_cents, offer, discounted_price_cents, status, created_at, updated_at`

type ListingFilter struct {
	OwnerID string
	Brand   string
	Model   string
	Year    int
	Status  domain.ListingStatus
	// Offer selects listings on (true) or off (false) discount; nil ignores it.
	Offer *bool
}

// Empty reports whether the filter selects every listing.
func (f ListingFilter) Empty() bool {
	return f == ListingFilter{}
}

type ListingRepository interface {
	Create(ctx context.Context, listing *domain.Listing) error
	GetByID(ctx context.Context, id string) (*domain.Listing, error)
	List(ctx context.Context, filter ListingFilter) ([]domain.Listing, error)
	UpdateStatus(ctx context.Context, id string, status domain.ListingStatus) (*domain.Listing, error)
	Delete(ctx context.Context, id string) error
}

type PGListingRepository struct {
	db DB
}

func NewListingRepository(db DB) ListingRepository {
	return &PGListingRepository{db: db}
}

func scanListing(row rowScanner) (*domain.Listing, error) {
	var l domain.Listing
	if err := row.Scan(&l.ID, &l.OwnerID, &l.Brand, &l.Model, &l.Year, &l.Seats, &l.DailyPriceCents, &l.Offer,
		&l.DiscountedPriceCents, &l.Status, &l.CreatedAt, &l.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &l, nil
}

func (r *PGListingRepository) Create(ctx context.Context, l *domain.Listing) error {
	return r.db.QueryRow(ctx, `INSERT INTO listings (id, owner_id, brand, model, year, seats, daily_price_cents, offer, discounted_price_cents, status)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING created_at, updated_at`,
		l.ID, l.OwnerID, l.Brand, l.Model, l.Year, l.Seats, l.DailyPriceCents, l.Offer, l.DiscountedPriceCents, l.Status).
		Scan(&l.CreatedAt, &l.UpdatedAt)
}

func (r *PGListingRepository) GetByID(ctx context.Context, id string) (*domain.Listing, error) {
	return scanListing(r.db.QueryRow(ctx, `SELECT `+listingColumns+` FROM listings WHERE id=$1`, id))
}

func (r *PGListingRepository) List(ctx context.Context, filter ListingFilter) ([]domain.Listing, error) {
	query, args := buildListingQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	listings := make([]domain.Listing, 0)
	for rows.Next() {
		l, err := scanListing(rows)
		if err != nil {
			return nil, err
		}
		listings = append(listings, *l)
	}
	return listings, rows.Err()
}

func (r *PGListingRepository) UpdateStatus(ctx context.Context, id string, status domain.ListingStatus) (*domain.Listing, error) {
	return scanListing(r.db.QueryRow(ctx, `UPDATE listings SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+listingColumns, status, id))
}

func (r *PGListingRepository) Delete(ctx context.Context, id string) error {
	cmd, err := r.db.Exec(ctx, `DELETE FROM listings WHERE id=$1`, id)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return domain.ErrNotFound
	}
	return nil
}

func buildListingQuery(f ListingFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.OwnerID != "" {
		add("owner_id=$%d", f.OwnerID)
	}
	if f.Brand != "" {
		add("brand ILIKE $%d", "%"+f.Brand+"%")
	}
	if f.Model != "" {
		add("model ILIKE $%d", "%"+f.Model+"%")
	}
	if f.Year != 0 {
		add("year=$%d", f.Year)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if f.Offer != nil {
		add("offer=$%d", *f.Offer)
	}

	query := `SELECT ` + listingColumns + ` FROM listings`
	if len(conds) > 0 {
		query += " WHERE " + strings.Join(conds, " AND ")
	}
	return query + " ORDER BY created_at DESC", args
}

var _ ListingRepository = (*PGListingRepository)(nil)
