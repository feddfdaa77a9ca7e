package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats.go"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"
)

// ReservationLog appends one human-readable line per reservation event.
type ReservationLog struct {
	path string
	mu   sync.Mutex
}

func NewReservationLog(path string) *ReservationLog {
	return &ReservationLog{path: path}
}

// HandleMessage decodes a raw event body and appends it to the log.
func (l *ReservationLog) HandleMessage(body []byte) error {
	var ev ReservationCreatedEvent
	if err := json.Unmarshal(body, &ev); err != nil {
		return fmt.Errorf("unmarshal: %w", err)
	}
	return l.Append(ev)
}

func (l *ReservationLog) Append(ev ReservationCreatedEvent) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return fmt.Errorf("open log file: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(FormatLine(ev)); err != nil {
		return fmt.Errorf("write log: %w", err)
	}
	return nil
}

// FormatLine renders ev as a single log line ending in a newline.
func FormatLine(ev ReservationCreatedEvent) string {
	seats := make([]string, 0, len(ev.Tickets))
	for _, t := range ev.Tickets {
		seats = append(seats, fmt.Sprintf("%s@%s#%d:R%dS%d", t.PlayTitle, t.ShowTime, t.PerformanceID, t.Row, t.Seat))
	}
	return fmt.Sprintf("[%s] Reservation created | reservation_id=%d | user_id=%d | tickets=%d | seats=[%s]\n",
		ev.CreatedAt, ev.ReservationID, ev.UserID, len(ev.Tickets), strings.Join(seats, ","))
}

// ConsumeRabbit consumes the queue until ctx is cancelled, reconnecting with
// exponential backoff whenever the broker goes away. Messages that cannot be
// handled are rejected without requeue to avoid tight redelivery loops.
func ConsumeRabbit(ctx context.Context, url, queue string, sink *ReservationLog, log *zap.Logger) error {
	if queue == "" {
		queue = DefaultRabbitQueue
	}
	log = log.Named("rabbitmq-consumer")

	backoff := time.Second
	for {
		if ctx.Err() != nil {
			return nil
		}
		conn, err := amqp.Dial(url)
		if err != nil {
			log.Warn("dial failed", zap.Error(err), zap.Duration("retry_in", backoff))
			if !sleep(ctx, backoff) {
				return nil
			}
			if backoff < 30*time.Second {
				backoff *= 2
			}
			continue
		}
		backoff = time.Second

		err = consumeLoop(ctx, conn, queue, sink, log)
		_ = conn.Close()
		if err == nil {
			return nil
		}
		log.Warn("consume loop ended, reconnecting", zap.Error(err))
		if !sleep(ctx, 2*time.Second) {
			return nil
		}
	}
}

func consumeLoop(ctx context.Context, conn *amqp.Connection, queue string, sink *ReservationLog, log *zap.Logger) error {
	ch, err := conn.Channel()
	if err != nil {
		return fmt.Errorf("channel open: %w", err)
	}
	defer func() { _ = ch.Close() }()

	if err := ch.Qos(50, 0, false); err != nil {
		log.Warn("set QoS failed", zap.Error(err))
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		return fmt.Errorf("queue declare: %w", err)
	}
	msgs, err := ch.Consume(queue, "", false, false, false, false, nil)
	if err != nil {
		return fmt.Errorf("queue consume: %w", err)
	}
	log.Info("consuming", zap.String("queue", queue))

	for {
		select {
		case <-ctx.Done():
			return nil
		case d, ok := <-msgs:
			if !ok {
				return errors.New("deliveries channel closed")
			}
			if err := sink.HandleMessage(d.Body); err != nil {
				log.Error("handle message failed", zap.Error(err), zap.String("message_id", d.MessageId))
				_ = d.Nack(false, false)
				continue
			}
			_ = d.Ack(false)
		}
	}
}

// ConsumeNATS subscribes to subject and blocks until ctx is cancelled.
// Reconnects are handled by the nats connection itself.
func ConsumeNATS(ctx context.Context, nc *nats.Conn, subject string, sink *ReservationLog, log *zap.Logger) error {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	log = log.Named("nats-consumer")

	sub, err := nc.Subscribe(subject, func(m *nats.Msg) {
		if err := sink.HandleMessage(m.Data); err != nil {
			log.Error("handle message failed", zap.Error(err), zap.String("subject", m.Subject))
		}
	})
	if err != nil {
		return fmt.Errorf("subscribe %s: %w", subject, err)
	}
	log.Info("consuming", zap.String("subject", subject))

	<-ctx.Done()
	return sub.Drain()
}

func sleep(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}
