package session

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"
)

const (
	sessionFormatVersionCurrent = 1

	flagHasPrevious byte = 1 << 0
)

// Encode renders the session in the compact binary form stored by [RedisStore].
// Version is kept outside the blob so the CAS script can compare it without decoding.
func Encode(s *Session) ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(1 + 1 + len(s.SessionID) + 32 + 1 + 32 + 24)

	buf.WriteByte(sessionFormatVersionCurrent)

	if len(s.SessionID) == 0 || len(s.SessionID) > 255 {
		return nil, errors.New("invalid session id length")
	}
	buf.WriteByte(byte(len(s.SessionID)))
	buf.WriteString(s.SessionID)

	buf.Write(s.CurrentHash[:])

	var flags byte
	if s.HasPrevious {
		flags |= flagHasPrevious
	}
	buf.WriteByte(flags)
	buf.Write(s.PreviousHash[:])

	for _, ts := range []time.Time{s.CreatedAt, s.ExpiresAt, s.RevokedAfter} {
		if err := binary.Write(&buf, binary.BigEndian, encodeTime(ts)); err != nil {
			return nil, err
		}
	}

	return buf.Bytes(), nil
}

// Decode parses a blob produced by [Encode]. Version is not part of the blob.
func Decode(data []byte) (*Session, error) {
	reader := bytes.NewReader(data)

	version, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if version != sessionFormatVersionCurrent {
		return nil, fmt.Errorf("%w: unsupported session schema version %d", ErrCorrupt, version)
	}

	s := &Session{}

	sidLen, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	if sidLen == 0 {
		return nil, fmt.Errorf("%w: empty session id", ErrCorrupt)
	}
	sid := make([]byte, sidLen)
	if _, err := io.ReadFull(reader, sid); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.SessionID = string(sid)

	if _, err := io.ReadFull(reader, s.CurrentHash[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	flags, err := reader.ReadByte()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	s.HasPrevious = flags&flagHasPrevious != 0

	if _, err := io.ReadFull(reader, s.PreviousHash[:]); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}

	var stamps [3]int64
	for i := range stamps {
		if err := binary.Read(reader, binary.BigEndian, &stamps[i]); err != nil {
			return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
		}
	}
	s.CreatedAt = decodeTime(stamps[0])
	s.ExpiresAt = decodeTime(stamps[1])
	s.RevokedAfter = decodeTime(stamps[2])

	if reader.Len() != 0 {
		return nil, fmt.Errorf("%w: trailing bytes", ErrCorrupt)
	}

	return s, nil
}

// zero time is stored as 0 so "never revoked" survives a round trip.
func encodeTime(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func decodeTime(ms int64) time.Time {
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
