package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventReservationCreated   = "reservation_created"
	EventReservationActivated = "reservation_activated"
	EventReservationCanceled  = "reservation_canceled"
	EventReservationFinished  = "reservation_finished"
)

type ReservationEvent struct {
	Type             string    `json:"type"`
	ReservationID    string    `json:"reservation_id"`
	ListingID        string    `json:"listing_id"`
	RenterID         string    `json:"renter_id"`
	ConfirmationCode int       `json:"confirmation_code"`
	Status           string    `json:"status"`
	StartDate        time.Time `json:"start_date"`
	EndDate          time.Time `json:"end_date"`
	TotalPriceCents  int64     `json:"total_price_cents"`
	OccurredAt       time.Time `json:"occurred_at"`
}

type Producer struct {
	brokers []string
	writer  *kafka.Writer
}

func NewProducer(brokers []string) *Producer {
	writer := &kafka.Writer{
		Addr:         kafka.TCP(brokers...),
		Balancer:     &kafka.Hash{},
		BatchTimeout: 50 * time.Millisecond,
		RequiredAcks: kafka.RequireOne,
		Async:        false,
	}

	return &Producer{
		brokers: brokers,
		writer:  writer,
	}
}

// Publish writes payload as JSON. Keys are listing IDs so a listing's events stay ordered.
func (p *Producer) Publish(ctx context.Context, topic, key string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	message := kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, message); err != nil {
		return fmt.Errorf("failed to write message to Kafka: %w", err)
	}

	log.Printf("published to kafka topic=%s key=%s", topic, key)
	return nil
}

func (p *Producer) Close() error {
	if p.writer != nil {
		return p.writer.Close()
	}
	return nil
}

func (p *Producer) CheckConnection(ctx context.Context) error {
	if len(p.brokers) == 0 {
		return fmt.Errorf("no kafka brokers configured")
	}
	conn, err := kafka.DialContext(ctx, "tcp", p.brokers[0])
	if err != nil {
		return fmt.Errorf("failed to connect to Kafka: %w", err)
	}
	defer conn.Close()

	if _, err := conn.Brokers(); err != nil {
		return fmt.Errorf("failed to read brokers: %w", err)
	}
	return nil
}

// DecodeReservationEvent parses a message produced by Publish.
func DecodeReservationEvent(msg kafka.Message) (ReservationEvent, error) {
	var event ReservationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return ReservationEvent{}, fmt.Errorf("decode reservation event: %w", err)
	}
	return event, nil
}
