package nats

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"

	"github.com/wricardo/cube-blast-game/game/engine"
	"github.com/wricardo/cube-blast-game/game/service"
)

// DefaultSubjectPrefix is the root of every published subject
const DefaultSubjectPrefix = "cubeblast"

// Conn is the subset of *nats.Conn the publisher needs
type Conn interface {
	Publish(subject string, data []byte) error
}

// TurnMessage is the payload published for every turn
type TurnMessage struct {
	SessionID string             `json:"session_id"`
	Level     int                `json:"level"`
	Turn      *engine.TurnResult `json:"turn"`
	Events    []engine.Event     `json:"events"`
	Timestamp time.Time          `json:"timestamp"`
}

// Publisher fans turn results out over NATS. It implements service.EventPublisher.
type Publisher struct {
	conn   Conn
	prefix string
	logger *zap.Logger
}

// Connect dials a NATS server with reconnect handling logged through logger
func Connect(url string, logger *zap.Logger) (*nats.Conn, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts := []nats.Option{
		nats.Name("cube-blast-game"),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2 * time.Second),
		nats.DisconnectErrHandler(func(nc *nats.Conn, err error) {
			logger.Warn("nats disconnected", zap.Error(err))
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("nats reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}

	conn, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to nats at %s: %w", url, err)
	}
	return conn, nil
}

// NewPublisher creates a publisher writing under prefix (DefaultSubjectPrefix when empty)
func NewPublisher(conn Conn, prefix string, logger *zap.Logger) *Publisher {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Publisher{conn: conn, prefix: prefix, logger: logger}
}

// Subject returns the subject turns of a session are published on: {prefix}.session.{id}.turn
func (p *Publisher) Subject(sessionID string) string {
	return fmt.Sprintf("%s.session.%s.turn", p.prefix, sessionID)
}

// PublishTurn publishes one turn result
func (p *Publisher) PublishTurn(ctx context.Context, sessionID string, result *service.TapResult) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := TurnMessage{
		SessionID: sessionID,
		Turn:      result.Turn,
		Events:    result.Events,
		Timestamp: time.Now(),
	}
	if result.Board != nil {
		msg.Level = result.Board.LevelNumber
	}

	data, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal turn: %w", err)
	}

	subject := p.Subject(sessionID)
	if err := p.conn.Publish(subject, data); err != nil {
		return fmt.Errorf("failed to publish on %s: %w", subject, err)
	}
	p.logger.Debug("turn published", zap.String("subject", subject), zap.Int("bytes", len(data)))
	return nil
}
