package gateAuth

import (
	"io"
	"log/slog"
	"time"

	internalaudit "github.com/MrEthical07/gateAuth/internal/audit"
)

// AuthTokens is returned by [Engine.Login] and [Engine.Refresh].
//
// RefreshToken is empty when a refresh was served from the one-retry grace on
// the superseded secret; the client keeps the token it already holds.
type AuthTokens struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
	SessionID    string `json:"sessionId"`
}

// Principal is the output of a successful token verification.
type Principal struct {
	Provider  string `json:"provider"`
	Subject   string `json:"subject"`
	SessionID string `json:"sessionId,omitempty"`
	Email     string `json:"email,omitempty"`
}

// SessionInfo is a read-only view of a stored session without its digests.
type SessionInfo struct {
	SessionID    string
	CreatedAt    time.Time
	ExpiresAt    time.Time
	RevokedAfter time.Time
	Version      uint64
	Rotatable    bool
}

// AuditSink receives audit events from the Engine's dispatcher.
type AuditSink = internalaudit.Sink

// AuditEvent is the serialized shape of one audit record.
type AuditEvent = internalaudit.Event

// NoOpSink discards every event.
type NoOpSink = internalaudit.NoOpSink

// ChannelSink forwards events to a buffered channel.
type ChannelSink = internalaudit.ChannelSink

// JSONWriterSink writes one JSON document per line.
type JSONWriterSink = internalaudit.JSONWriterSink

// SlogSink logs events through a *slog.Logger.
type SlogSink = internalaudit.SlogSink

// MultiSink fans each event out to every sink in order.
type MultiSink = internalaudit.MultiSink

// NewChannelSink returns a [ChannelSink] with the given buffer.
func NewChannelSink(buffer int) *ChannelSink {
	return internalaudit.NewChannelSink(buffer)
}

// NewJSONWriterSink returns a [JSONWriterSink] writing to w.
func NewJSONWriterSink(w io.Writer) *JSONWriterSink {
	return internalaudit.NewJSONWriterSink(w)
}

// NewSlogSink returns a [SlogSink] writing to logger, or slog.Default when nil.
func NewSlogSink(logger *slog.Logger) *SlogSink {
	return internalaudit.NewSlogSink(logger)
}
