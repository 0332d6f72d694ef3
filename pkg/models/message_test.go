package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExternalMessageRecord_UnmarshalJSON(t *testing.T) {
	t.Run("text and rfc3339 timestamp", func(t *testing.T) {
		var m ExternalMessageRecord
		require.NoError(t, json.Unmarshal([]byte(`{"text":"hi","timestamp":"2024-03-01T12:00:00+02:00","phone_number":"1555","direction":"outbound"}`), &m))

		assert.Equal(t, "hi", m.Text)
		assert.Equal(t, time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC), m.Timestamp)
		assert.Equal(t, time.UTC, m.Timestamp.Location())
		assert.Equal(t, "1555", m.PhoneNumber)
		assert.Equal(t, "outbound", m.Direction)
	})

	t.Run("body and unix timestamp", func(t *testing.T) {
		var m ExternalMessageRecord
		require.NoError(t, json.Unmarshal([]byte(`{"body":"hello","timestamp":1709294400,"role":"agent","has_media":true}`), &m))

		assert.Equal(t, "hello", m.Text)
		assert.Equal(t, time.Unix(1709294400, 0).UTC(), m.Timestamp)
		assert.Equal(t, "agent", m.Direction)
		assert.True(t, m.HasMedia)
	})

	t.Run("text wins over body", func(t *testing.T) {
		var m ExternalMessageRecord
		require.NoError(t, json.Unmarshal([]byte(`{"text":"a","body":"b"}`), &m))
		assert.Equal(t, "a", m.Text)
		assert.True(t, m.Timestamp.IsZero())
	})

	t.Run("invalid timestamp", func(t *testing.T) {
		var m ExternalMessageRecord
		assert.Error(t, json.Unmarshal([]byte(`{"text":"a","timestamp":"yesterday"}`), &m))
	})
}

func TestParseTimestampValue(t *testing.T) {
	tests := []struct {
		name    string
		input   any
		want    time.Time
		wantErr bool
	}{
		{"nil", nil, time.Time{}, false},
		{"empty string", "", time.Time{}, false},
		{"rfc3339", "2024-03-01T12:00:00Z", time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"numeric string", "1709294400", time.Unix(1709294400, 0).UTC(), false},
		{"fractional seconds", 1709294400.5, time.Unix(1709294400, 500000000).UTC(), false},
		{"time value", time.Date(2024, 3, 1, 14, 0, 0, 0, time.FixedZone("X", 7200)), time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC), false},
		{"garbage", "soon", time.Time{}, true},
		{"unsupported type", true, time.Time{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseTimestampValue(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.True(t, tt.want.Equal(got), "want %v got %v", tt.want, got)
		})
	}
}

func TestInternalMessageRecord_IsFirstContact(t *testing.T) {
	assert.True(t, InternalMessageRecord{MessageType: MessageTypeFirstContact}.IsFirstContact())
	assert.False(t, InternalMessageRecord{MessageType: MessageTypeReminder}.IsFirstContact())
	assert.False(t, InternalMessageRecord{}.IsFirstContact())
}
