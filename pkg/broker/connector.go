// NATS connection used by Mechat to export chat domain events to other services.

package broker

import (
	"Mechat/pkg/log"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/nats-io/nats.go"
)

// Publisher exports domain events, implementations must not block on slow consumers.
type Publisher interface {
	// Publish sends payload encoded as JSON on subject.
	Publish(ctx context.Context, subject string, payload any) error
	// Close drains pending publishes and releases the connection.
	Close(ctx context.Context) error
}

// NatsBroker is a Publisher backed by a core NATS connection.
type NatsBroker struct {
	conn   *nats.Conn
	logger log.Logger
}

// Returns a new NATS connection wrapped up by NatsBroker.
// The client reconnects forever in the background, publishes during an outage are buffered by nats.go.
func NewNatsConnection(ctx context.Context, logger log.Logger, url, name string) (*NatsBroker, error) {
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(500 * time.Millisecond),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(3 * time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn().Err(err).Msg("NATS connection lost")
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info().Msgf("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}
	conn, cnterr := nats.Connect(url, opts...)
	if cnterr != nil {
		logger.WithCtx(ctx).Error().Err(cnterr).Msg("Error occured during nats.Connect() in broker.NewNatsConnection")
		return nil, cnterr
	}
	logger.WithCtx(ctx).Info().Msgf("Connection to NATS Successful: %s", conn.ConnectedUrl())
	return &NatsBroker{conn: conn, logger: logger}, nil
}

func (b *NatsBroker) Publish(ctx context.Context, subject string, payload any) error {
	data, mrserr := json.Marshal(payload)
	if mrserr != nil {
		return mrserr
	}
	return b.conn.Publish(subject, data)
}

func (b *NatsBroker) Close(ctx context.Context) error {
	return b.conn.Drain()
}

// Subject builds a dot separated NATS subject, empty tokens and dots inside tokens are replaced.
func Subject(tokens ...string) string {
	clean := make([]string, 0, len(tokens))
	for _, token := range tokens {
		token = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(strings.TrimSpace(token))
		if token == "" {
			token = "_"
		}
		clean = append(clean, token)
	}
	return strings.Join(clean, ".")
}

// Noop is the Publisher used when no NATS server is configured.
type Noop struct{}

func (Noop) Publish(ctx context.Context, subject string, payload any) error { return nil }

func (Noop) Close(ctx context.Context) error { return nil }
