package models

import (
	"encoding/json"
	"fmt"
	"strconv"
	"time"
)

// MessageRole identifies who sent an internal message
type MessageRole string

const (
	MessageRoleCustomer MessageRole = "customer"
	MessageRoleAgent    MessageRole = "agent"
	MessageRoleSystem   MessageRole = "system"
)

// Message classification tags
const (
	MessageTypeFirstContact = "first_contact"
	MessageTypeFollowUp     = "follow_up"
	MessageTypeReminder     = "reminder"
	MessageTypeReply        = "reply"
)

// InternalMessageRecord is a message as recorded by our own log
type InternalMessageRecord struct {
	ID          string      `json:"id" db:"id"`
	Text        string      `json:"text" db:"text"`
	PhoneNumber string      `json:"phone_number" db:"phone_number"`
	SentAt      time.Time   `json:"sent_at" db:"sent_at"`
	Role        MessageRole `json:"role" db:"role"`
	MessageType string      `json:"message_type" db:"message_type"`
}

// IsFirstContact reports whether the record opens a conversation
func (r InternalMessageRecord) IsFirstContact() bool {
	return r.MessageType == MessageTypeFirstContact
}

// ExternalMessageRecord is a message as reported by the messaging provider
type ExternalMessageRecord struct {
	Text        string    `json:"text"`
	Timestamp   time.Time `json:"timestamp"`
	PhoneNumber string    `json:"phone_number"`
	Direction   string    `json:"direction,omitempty"`
	HasMedia    bool      `json:"has_media,omitempty"`
}

// externalMessageWire accepts both provider encodings of a message
type externalMessageWire struct {
	Text        string          `json:"text"`
	Body        string          `json:"body"`
	Timestamp   json.RawMessage `json:"timestamp"`
	PhoneNumber string          `json:"phone_number"`
	Direction   string          `json:"direction"`
	Role        string          `json:"role"`
	HasMedia    bool            `json:"has_media"`
}

// UnmarshalJSON accepts the message text under either "text" or "body"
// and a timestamp given as RFC3339 or unix seconds.
func (m *ExternalMessageRecord) UnmarshalJSON(data []byte) error {
	var wire externalMessageWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}

	ts, err := ParseTimestamp(wire.Timestamp)
	if err != nil {
		return err
	}

	m.Text = wire.Text
	if m.Text == "" {
		m.Text = wire.Body
	}
	m.Timestamp = ts
	m.PhoneNumber = wire.PhoneNumber
	m.Direction = wire.Direction
	if m.Direction == "" {
		m.Direction = wire.Role
	}
	m.HasMedia = wire.HasMedia
	return nil
}

// ParseTimestamp decodes a JSON timestamp that is either a string
// (RFC3339) or a number of seconds since the unix epoch.
func ParseTimestamp(raw json.RawMessage) (time.Time, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return time.Time{}, nil
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return ParseTimestampValue(s)
	}

	var n float64
	if err := json.Unmarshal(raw, &n); err != nil {
		return time.Time{}, fmt.Errorf("invalid timestamp %s", string(raw))
	}
	return ParseTimestampValue(n)
}

// ParseTimestampValue converts a decoded JSON value into a UTC time
func ParseTimestampValue(v any) (time.Time, error) {
	switch t := v.(type) {
	case nil:
		return time.Time{}, nil
	case time.Time:
		return t.UTC(), nil
	case float64:
		sec := int64(t)
		nsec := int64((t - float64(sec)) * 1e9)
		return time.Unix(sec, nsec).UTC(), nil
	case string:
		if t == "" {
			return time.Time{}, nil
		}
		if parsed, err := time.Parse(time.RFC3339Nano, t); err == nil {
			return parsed.UTC(), nil
		}
		if n, err := strconv.ParseFloat(t, 64); err == nil {
			return ParseTimestampValue(n)
		}
		return time.Time{}, fmt.Errorf("invalid timestamp %q", t)
	default:
		return time.Time{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}
