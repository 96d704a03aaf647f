package repository

import (
	"context"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pashagolub/pgxmock/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewReservationRepository(t *testing.T) {
	pool := &pgxpool.Pool{}
	repo := NewReservationRepository(pool)
	assert.NotNil(t, repo)
}

func TestBuildReservationQuery_NoFilter(t *testing.T) {
	query, args := buildReservationQuery(ReservationFilter{})

	assert.Equal(t, `SELECT `+reservationColumns+` FROM reservations ORDER BY created_at DESC`, query)
	assert.Empty(t, args)
}

func TestBuildReservationQuery_AllFilters(t *testing.T) {
	from := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

	query, args := buildReservationQuery(ReservationFilter{
		RenterID:         "user-1",
		Status:           domain.ReservationStatusActive,
		ConfirmationCode: 12345,
		From:             from,
		To:               to,
		MinPriceCents:    1000,
		MaxPriceCents:    90000,
		Make:             "toy",
		PendingFirst:     true,
	})

	assert.Contains(t, query, "WHERE renter_id=$1 AND status=$2 AND confirmation_code=$3 AND start_date >= $4 AND end_date <= $5 AND total_price_cents >= $6 AND total_price_cents <= $7 AND make ILIKE $8")
	assert.Contains(t, query, "ORDER BY (status = 'pending') DESC, created_at DESC")
	assert.Equal(t, []any{"user-1", domain.ReservationStatusActive, 12345, from, to, int64(1000), int64(90000), "%toy%"}, args)
}

func TestIsUniqueViolation(t *testing.T) {
	err := &pgconn.PgError{Code: "23505", ConstraintName: confirmationCodeConstraint}

	assert.True(t, isUniqueViolation(err, confirmationCodeConstraint))
	assert.False(t, isUniqueViolation(err, "listings_pkey"))
	assert.False(t, isUniqueViolation(errors.New("boom"), confirmationCodeConstraint))
}

const (
	txListingID     = "4b1c6a52-90f1-4a4e-9d7a-3f3b0a8e5c11"
	txReservationID = "9e0d2f0c-1b7e-4f57-8a3c-2d9c4a6b7e22"
)

var (
	lockListingSQL   = regexp.QuoteMeta(`SELECT status FROM listings WHERE id=$1 FOR UPDATE`)
	overlapSQL       = regexp.QuoteMeta(`WHERE listing_id=$1 AND status=$2 AND id<>$3 AND start_date <= $5 AND end_date >= $4`)
	insertSQL        = regexp.QuoteMeta(`INSERT INTO reservations`)
	selectForUpdate  = regexp.QuoteMeta(`FROM reservations WHERE id=$1 FOR UPDATE`)
	lockListingExec  = regexp.QuoteMeta(`SELECT 1 FROM listings WHERE id=$1 FOR UPDATE`)
	activateSQL      = regexp.QuoteMeta(`UPDATE reservations SET status=$1, updated_at=now() WHERE id=$2 RETURNING`)
	reservationStart = time.Date(2024, 6, 6, 0, 0, 0, 0, time.UTC)
	reservationEnd   = time.Date(2024, 6, 7, 0, 0, 0, 0, time.UTC)
)

func newMockRepo(t *testing.T) (pgxmock.PgxPoolIface, ReservationRepository) {
	t.Helper()
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	t.Cleanup(mock.Close)
	return mock, NewReservationRepository(mock)
}

func newReservation(status domain.ReservationStatus) *domain.Reservation {
	return &domain.Reservation{
		ID:               txReservationID,
		ListingID:        txListingID,
		RenterID:         "renter-1",
		StartDate:        reservationStart,
		EndDate:          reservationEnd,
		Status:           status,
		ConfirmationCode: 54321,
		TotalPriceCents:  30000,
		Email:            "renter@example.com",
		Name:             "Rita",
		Phone:            "+972500000000",
		Make:             "Toyota",
		Model:            "Corolla",
	}
}

func insertArgs(r *domain.Reservation) []any {
	return []any{r.ID, r.ListingID, r.RenterID, r.StartDate, r.EndDate, r.Status, r.ConfirmationCode,
		r.TotalPriceCents, r.Email, r.Name, r.Phone, r.Make, r.Model}
}

func reservationRow(r *domain.Reservation) *pgxmock.Rows {
	columns := strings.Split(strings.ReplaceAll(reservationColumns, " ", ""), ",")
	return pgxmock.NewRows(columns).AddRow(r.ID, r.ListingID, r.RenterID, r.StartDate, r.EndDate, r.Status, r.ConfirmationCode,
		r.TotalPriceCents, r.Email, r.Name, r.Phone, r.Make, r.Model, r.CreatedAt, r.UpdatedAt)
}

func expectListingLock(mock pgxmock.PgxPoolIface, status domain.ListingStatus) {
	mock.ExpectQuery(lockListingSQL).WithArgs(txListingID).
		WillReturnRows(pgxmock.NewRows([]string{"status"}).AddRow(status))
}

func expectOverlapCheck(mock pgxmock.PgxPoolIface, overlaps bool) {
	mock.ExpectQuery(overlapSQL).
		WithArgs(txListingID, domain.ReservationStatusActive, txReservationID, reservationStart, reservationEnd).
		WillReturnRows(pgxmock.NewRows([]string{"exists"}).AddRow(overlaps))
}

func TestCreateIfAvailable_Inserts(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()
	res := newReservation(domain.ReservationStatusActive)
	created := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectBeginTx(pgx.TxOptions{})
	expectListingLock(mock, domain.ListingStatusAvailable)
	expectOverlapCheck(mock, false)
	mock.ExpectQuery(insertSQL).WithArgs(insertArgs(res)...).
		WillReturnRows(pgxmock.NewRows([]string{"created_at", "updated_at"}).AddRow(created, created))
	mock.ExpectCommit()

	require.NoError(t, repo.CreateIfAvailable(ctx, res))
	assert.Equal(t, created, res.CreatedAt)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIfAvailable_OverlapStopsWrite(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBeginTx(pgx.TxOptions{})
	expectListingLock(mock, domain.ListingStatusAvailable)
	expectOverlapCheck(mock, true)
	mock.ExpectRollback()

	err := repo.CreateIfAvailable(ctx, newReservation(domain.ReservationStatusActive))
	assert.ErrorIs(t, err, domain.ErrDateRangeUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateIfAvailable_ListingNotBookable(t *testing.T) {
	testCases := []struct {
		name    string
		setup   func(mock pgxmock.PgxPoolIface)
		wantErr error
	}{
		{
			name:    "not available",
			setup:   func(mock pgxmock.PgxPoolIface) { expectListingLock(mock, domain.ListingStatusNotAvailable) },
			wantErr: domain.ErrListingUnavailable,
		},
		{
			name: "missing",
			setup: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(lockListingSQL).WithArgs(txListingID).WillReturnError(pgx.ErrNoRows)
			},
			wantErr: domain.ErrNotFound,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			mock, repo := newMockRepo(t)
			mock.ExpectBeginTx(pgx.TxOptions{})
			tc.setup(mock)
			mock.ExpectRollback()

			err := repo.CreateIfAvailable(context.Background(), newReservation(domain.ReservationStatusPending))
			assert.ErrorIs(t, err, tc.wantErr)
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestCreateIfAvailable_CodeCollision(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()
	res := newReservation(domain.ReservationStatusPending)

	mock.ExpectBeginTx(pgx.TxOptions{})
	expectListingLock(mock, domain.ListingStatusAvailable)
	expectOverlapCheck(mock, false)
	mock.ExpectQuery(insertSQL).WithArgs(insertArgs(res)...).
		WillReturnError(&pgconn.PgError{Code: "23505", ConstraintName: confirmationCodeConstraint})
	mock.ExpectRollback()

	err := repo.CreateIfAvailable(ctx, res)
	assert.ErrorIs(t, err, domain.ErrConfirmationCodeTaken)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_PromotesPending(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()
	pending := newReservation(domain.ReservationStatusPending)
	active := newReservation(domain.ReservationStatusActive)

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery(selectForUpdate).WithArgs(txReservationID).WillReturnRows(reservationRow(pending))
	mock.ExpectExec(lockListingExec).WithArgs(txListingID).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	expectOverlapCheck(mock, false)
	mock.ExpectQuery(activateSQL).WithArgs(domain.ReservationStatusActive, txReservationID).
		WillReturnRows(reservationRow(active))
	mock.ExpectCommit()

	got, err := repo.Activate(ctx, txReservationID)
	require.NoError(t, err)
	assert.Equal(t, domain.ReservationStatusActive, got.Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_OverlapKeepsPending(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery(selectForUpdate).WithArgs(txReservationID).
		WillReturnRows(reservationRow(newReservation(domain.ReservationStatusPending)))
	mock.ExpectExec(lockListingExec).WithArgs(txListingID).WillReturnResult(pgxmock.NewResult("SELECT", 1))
	expectOverlapCheck(mock, true)
	mock.ExpectRollback()

	_, err := repo.Activate(ctx, txReservationID)
	assert.ErrorIs(t, err, domain.ErrDateRangeUnavailable)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestActivate_RejectsNonPending(t *testing.T) {
	mock, repo := newMockRepo(t)
	ctx := context.Background()

	mock.ExpectBeginTx(pgx.TxOptions{})
	mock.ExpectQuery(selectForUpdate).WithArgs(txReservationID).
		WillReturnRows(reservationRow(newReservation(domain.ReservationStatusCanceled)))
	mock.ExpectRollback()

	_, err := repo.Activate(ctx, txReservationID)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.NoError(t, mock.ExpectationsWereMet())
}
