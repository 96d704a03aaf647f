package worker

import (
	"context"
	"log"
	"time"

	"github.com/Domenick1991/carrental/internal/domain"
	"github.com/Domenick1991/carrental/internal/kafka"
	"github.com/Domenick1991/carrental/internal/service/reservation"
)

// Worker runs the background duties of the reservation service: finishing rentals
// whose last day has passed and auditing listings after every activation.
type Worker struct {
	reservations reservation.ReservationUseCase
	now          func() time.Time
}

func New(reservations reservation.ReservationUseCase) *Worker {
	return &Worker{reservations: reservations, now: time.Now}
}

// Sweep finishes every active reservation that ended before today.
func (w *Worker) Sweep(ctx context.Context) (int, error) {
	finished, err := w.reservations.FinishExpired(ctx, w.now())
	if err != nil {
		return 0, err
	}
	if len(finished) > 0 {
		log.Printf("finished %d reservations", len(finished))
	}
	return len(finished), nil
}

// RunSweeps calls Sweep every interval until ctx is done. Errors are logged, not fatal.
func (w *Worker) RunSweeps(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if _, err := w.Sweep(ctx); err != nil {
				log.Printf("finish sweep error: %v", err)
			}
		}
	}
}

// HandleEvent audits the listing whenever a reservation becomes active, either by
// confirmation or by a paid booking created directly as active.
func (w *Worker) HandleEvent(ctx context.Context, event kafka.ReservationEvent) error {
	if !becameActive(event) {
		return nil
	}

	conflicts, err := w.reservations.DetectConflicts(ctx, event.ListingID)
	if err != nil {
		log.Printf("detect conflicts for listing %s: %v", event.ListingID, err)
		return nil
	}
	for _, c := range conflicts {
		log.Printf("DOUBLE BOOKING on listing %s: %s (%s) overlaps %s (%s)",
			event.ListingID, c.First.ID, c.First.Range(), c.Second.ID, c.Second.Range())
	}
	return nil
}

func becameActive(event kafka.ReservationEvent) bool {
	switch event.Type {
	case kafka.EventReservationActivated:
		return true
	case kafka.EventReservationCreated:
		return event.Status == string(domain.ReservationStatusActive)
	default:
		return false
	}
}
