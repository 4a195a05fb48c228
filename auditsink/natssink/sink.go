// Package natssink publishes gateAuth audit events to NATS subjects.
package natssink

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	gateAuth "github.com/MrEthical07/gateAuth"
	natspkg "github.com/nats-io/nats.go"
)

// DefaultSubjectPrefix is used when no prefix is given.
const DefaultSubjectPrefix = "gateauth.audit"

// Publisher is the subset of *nats.Conn the sink uses.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Sink implements gateAuth.AuditSink. Each event is published as JSON on
// "<prefix>.<event type>".
type Sink struct {
	pub     Publisher
	prefix  string
	onError func(error)
	conn    *natspkg.Conn
}

var _ gateAuth.AuditSink = (*Sink)(nil)

// New wraps pub. onError may be nil.
func New(pub Publisher, prefix string, onError func(error)) *Sink {
	prefix = strings.TrimSuffix(strings.TrimSpace(prefix), ".")
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &Sink{pub: pub, prefix: prefix, onError: onError}
}

// Connect dials url and returns a sink that owns the connection.
func Connect(url, prefix string, onError func(error), opts ...natspkg.Option) (*Sink, error) {
	opts = append([]natspkg.Option{natspkg.Name("gateauth-audit")}, opts...)
	nc, err := natspkg.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("natssink: connect: %w", err)
	}
	s := New(nc, prefix, onError)
	s.conn = nc
	return s, nil
}

// Subject returns the subject an event type is published on.
func (s *Sink) Subject(eventType string) string {
	if eventType == "" {
		eventType = "unknown"
	}
	return s.prefix + "." + eventType
}

func (s *Sink) Emit(_ context.Context, event gateAuth.AuditEvent) {
	data, err := json.Marshal(event)
	if err != nil {
		s.fail(fmt.Errorf("natssink: encode: %w", err))
		return
	}
	if err := s.pub.Publish(s.Subject(event.EventType), data); err != nil {
		s.fail(fmt.Errorf("natssink: publish: %w", err))
	}
}

// Close drains and closes the connection opened by [Connect].
func (s *Sink) Close() error {
	if s.conn == nil {
		return nil
	}
	return s.conn.Drain()
}

func (s *Sink) fail(err error) {
	if s.onError != nil {
		s.onError(err)
	}
}
