package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

// DefaultNATSSubject is the subject reservation events are published on.
const DefaultNATSSubject = "theatre.reservation.created"

// ConnectNATS opens a connection that keeps reconnecting in the background.
func ConnectNATS(url, name string, log *zap.Logger) (*nats.Conn, error) {
	log = log.Named("nats")
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				log.Warn("disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			log.Info("reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	)
}

// NATSPublisher publishes events on a core NATS subject.
type NATSPublisher struct {
	nc      *nats.Conn
	subject string
	log     *zap.Logger
}

func NewNATSPublisher(nc *nats.Conn, subject string, log *zap.Logger) *NATSPublisher {
	if subject == "" {
		subject = DefaultNATSSubject
	}
	return &NATSPublisher{nc: nc, subject: subject, log: log.Named("nats")}
}

func (p *NATSPublisher) PublishReservationCreated(ctx context.Context, ev ReservationCreatedEvent) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	msg := nats.NewMsg(p.subject)
	msg.Data = data
	msg.Header.Set("Content-Type", "application/json")
	msg.Header.Set(nats.MsgIdHdr, ev.EventID)

	if err := p.nc.PublishMsg(msg); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	// flush so a broken connection surfaces here rather than being lost
	if _, ok := ctx.Deadline(); !ok {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, 2*time.Second)
		defer cancel()
	}
	if err := p.nc.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush: %w", err)
	}
	p.log.Debug("event published", zap.String("subject", p.subject), zap.Uint64("reservation_id", ev.ReservationID))
	return nil
}

func (p *NATSPublisher) Close() error {
	p.nc.Close()
	return nil
}
