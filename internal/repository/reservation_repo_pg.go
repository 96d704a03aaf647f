package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

const confirmationCodeConstraint = "reservations_confirmation_code_key"

const reservationColumns = `id, listing_id, renter_id, start_date, end_date, status, confirmation_code, total_price_cents, email, name, phone, make, model, created_at, updated_at`

type ReservationFilter struct {
	ListingID        string
	RenterID         string
	Status           domain.ReservationStatus
	ConfirmationCode int
	// From and To bound the rental period: start_date >= From and end_date <= To.
	From          time.Time
	To            time.Time
	MinPriceCents int64
	MaxPriceCents int64
	Make          string
	Model         string
	PendingFirst  bool
}

type ReservationRepository interface {
	ListActiveByListing(ctx context.Context, listingID string) ([]domain.Reservation, error)
	ConfirmationCodeExists(ctx context.Context, code int) (bool, error)
	CreateIfAvailable(ctx context.Context, reservation *domain.Reservation) error
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
	GetByConfirmationCode(ctx context.Context, code int) (*domain.Reservation, error)
	Activate(ctx context.Context, id string) (*domain.Reservation, error)
	UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (*domain.Reservation, error)
	FinishEndedBefore(ctx context.Context, deadline time.Time) ([]domain.Reservation, error)
	List(ctx context.Context, filter ReservationFilter) ([]domain.Reservation, error)
}

type PGReservationRepository struct {
	db DB
}

func NewReservationRepository(db DB) ReservationRepository {
	return &PGReservationRepository{db: db}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanReservation(row rowScanner) (*domain.Reservation, error) {
	var r domain.Reservation
	if err := row.Scan(&r.ID, &r.ListingID, &r.RenterID, &r.StartDate, &r.EndDate, &r.Status, &r.ConfirmationCode,
		&r.TotalPriceCents, &r.Email, &r.Name, &r.Phone, &r.Make, &r.Model, &r.CreatedAt, &r.UpdatedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return &r, nil
}

func collectReservations(rows pgx.Rows) ([]domain.Reservation, error) {
	defer rows.Close()

	reservations := make([]domain.Reservation, 0)
	for rows.Next() {
		r, err := scanReservation(rows)
		if err != nil {
			return nil, err
		}
		reservations = append(reservations, *r)
	}
	return reservations, rows.Err()
}

func (r *PGReservationRepository) ListActiveByListing(ctx context.Context, listingID string) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE listing_id=$1 AND status=$2 ORDER BY start_date`,
		listingID, domain.ReservationStatusActive)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *PGReservationRepository) ConfirmationCodeExists(ctx context.Context, code int) (bool, error) {
	var exists bool
	err := r.db.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM reservations WHERE confirmation_code=$1)`, code).Scan(&exists)
	return exists, err
}

// CreateIfAvailable inserts the reservation only if the listing is bookable and no active
// reservation overlaps its dates. The listing row lock serialises concurrent bookings.
func (r *PGReservationRepository) CreateIfAvailable(ctx context.Context, res *domain.Reservation) error {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return err
	}
	defer tx.Rollback(ctx)

	if err := lockBookableListing(ctx, tx, res.ListingID); err != nil {
		return err
	}
	if err := ensureNoActiveOverlap(ctx, tx, res.ListingID, res.ID, res.Range()); err != nil {
		return err
	}

	err = tx.QueryRow(ctx, `INSERT INTO reservations (id, listing_id, renter_id, start_date, end_date, status, confirmation_code, total_price_cents, email, name, phone, make, model)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING created_at, updated_at`,
		res.ID, res.ListingID, res.RenterID, res.StartDate, res.EndDate, res.Status, res.ConfirmationCode,
		res.TotalPriceCents, res.Email, res.Name, res.Phone, res.Make, res.Model).
		Scan(&res.CreatedAt, &res.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err, confirmationCodeConstraint) {
			return domain.ErrConfirmationCodeTaken
		}
		return err
	}

	return tx.Commit(ctx)
}

func (r *PGReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	return scanReservation(r.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1`, id))
}

func (r *PGReservationRepository) GetByConfirmationCode(ctx context.Context, code int) (*domain.Reservation, error) {
	return scanReservation(r.db.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE confirmation_code=$1`, code))
}

// Activate moves a pending reservation to active after re-checking the listing for overlaps.
func (r *PGReservationRepository) Activate(ctx context.Context, id string) (*domain.Reservation, error) {
	tx, err := r.db.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return nil, err
	}
	defer tx.Rollback(ctx)

	current, err := scanReservation(tx.QueryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id=$1 FOR UPDATE`, id))
	if err != nil {
		return nil, err
	}
	if !current.Status.CanTransition(domain.ReservationStatusActive, true) {
		return nil, fmt.Errorf("%w: %s -> %s", domain.ErrInvalidTransition, current.Status, domain.ReservationStatusActive)
	}
	if _, err := tx.Exec(ctx, `SELECT 1 FROM listings WHERE id=$1 FOR UPDATE`, current.ListingID); err != nil {
		return nil, err
	}
	if err := ensureNoActiveOverlap(ctx, tx, current.ListingID, current.ID, current.Range()); err != nil {
		return nil, err
	}

	updated, err := scanReservation(tx.QueryRow(ctx, `UPDATE reservations SET status=$1, updated_at=now() WHERE id=$2 RETURNING `+reservationColumns,
		domain.ReservationStatusActive, id))
	if err != nil {
		return nil, err
	}
	if err := tx.Commit(ctx); err != nil {
		return nil, err
	}
	return updated, nil
}

// UpdateStatus changes the status only while it still equals from.
func (r *PGReservationRepository) UpdateStatus(ctx context.Context, id string, from, to domain.ReservationStatus) (*domain.Reservation, error) {
	updated, err := scanReservation(r.db.QueryRow(ctx, `UPDATE reservations SET status=$1, updated_at=now() WHERE id=$2 AND status=$3 RETURNING `+reservationColumns,
		to, id, from))
	if errors.Is(err, domain.ErrNotFound) {
		if _, getErr := r.GetByID(ctx, id); getErr != nil {
			return nil, getErr
		}
		return nil, fmt.Errorf("%w: reservation is no longer %s", domain.ErrInvalidTransition, from)
	}
	return updated, err
}

func (r *PGReservationRepository) FinishEndedBefore(ctx context.Context, deadline time.Time) ([]domain.Reservation, error) {
	rows, err := r.db.Query(ctx, `UPDATE reservations SET status=$1, updated_at=now() WHERE status=$2 AND end_date < $3 RETURNING `+reservationColumns,
		domain.ReservationStatusFinished, domain.ReservationStatusActive, deadline)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func (r *PGReservationRepository) List(ctx context.Context, filter ReservationFilter) ([]domain.Reservation, error) {
	query, args := buildReservationQuery(filter)
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	return collectReservations(rows)
}

func buildReservationQuery(f ReservationFilter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		conds = append(conds, fmt.Sprintf(cond, len(args)))
	}

	if f.ListingID != "" {
		add("listing_id=$%d", f.ListingID)
	}
	if f.RenterID != "" {
		add("renter_id=$%d", f.RenterID)
	}
	if f.Status != "" {
		add("status=$%d", f.Status)
	}
	if f.ConfirmationCode != 0 {
		add("confirmation_code=$%d", f.ConfirmationCode)
	}
	if !f.From.IsZero() {
		add("start_date >= $%d", f.From)
	}
	if !f.To.IsZero() {
		add("end_date <= $%d", f.To)
	}
	if f.MinPriceCents > 0 {
		add("total_price_cents >= $%d", f.MinPriceCents)
	}
	if f.MaxPriceCents > 0 {
		add("total_price_cents <= $%d", f.MaxPriceCents)
	}
	if f.Make != "" {
		add("make ILIKE $%d", "%"+f.Make+"%")
	}
	if f.Model != "" {
		add("model ILIKE $%d", "%"+f.Model+"%")
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + reservationColumns + ` FROM reservations`)
	if len(conds) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(conds, " AND "))
	}
	if f.PendingFirst {
		b.WriteString(" ORDER BY (status = 'pending') DESC, created_at DESC")
	} else {
		b.WriteString(" ORDER BY created_at DESC")
	}
	return b.String(), args
}

func lockBookableListing(ctx context.Context, tx pgx.Tx, listingID string) error {
	var status domain.ListingStatus
	if err := tx.QueryRow(ctx, `SELECT status FROM listings WHERE id=$1 FOR UPDATE`, listingID).Scan(&status); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return domain.ErrNotFound
		}
		return err
	}
	if status != domain.ListingStatusAvailable {
		return domain.ErrListingUnavailable
	}
	return nil
}

func ensureNoActiveOverlap(ctx context.Context, tx pgx.Tx, listingID, excludeID string, rng domain.DateRange) error {
	var overlaps bool
	err := tx.QueryRow(ctx, `SELECT EXISTS (
			SELECT 1 FROM reservations
			WHERE listing_id=$1 AND status=$2 AND id<>$3 AND start_date <= $5 AND end_date >= $4
		)`, listingID, domain.ReservationStatusActive, excludeID, rng.Start, rng.End).Scan(&overlaps)
	if err != nil {
		return err
	}
	if overlaps {
		return domain.ErrDateRangeUnavailable
	}
	return nil
}

func isUniqueViolation(err error, constraint string) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505" && pgErr.ConstraintName == constraint
}

var _ ReservationRepository = (*PGReservationRepository)(nil)
