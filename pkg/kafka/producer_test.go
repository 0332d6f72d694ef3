package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error { return nil }

func TestProducer_PublishReconciliationCompleted(t *testing.T) {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})

	t.Run("writes keyed event", func(t *testing.T) {
		writer := &fakeWriter{}
		p := newProducer(writer, "reconciliations", logger)

		err := p.PublishReconciliationCompleted(context.Background(), &ReconciliationCompletedEvent{
			RunID:     "run-1",
			Mode:      "numbers",
			Matched:   2,
			MatchRate: "66.67%",
		})
		require.NoError(t, err)
		require.Len(t, writer.messages, 1)

		msg := writer.messages[0]
		assert.Equal(t, []byte("run-1"), msg.Key)
		assert.Equal(t, "event_type", msg.Headers[0].Key)
		assert.Equal(t, []byte(EventReconciliationCompleted), msg.Headers[0].Value)

		var decoded ReconciliationCompletedEvent
		require.NoError(t, json.Unmarshal(msg.Value, &decoded))
		assert.Equal(t, EventReconciliationCompleted, decoded.EventType)
		assert.Equal(t, 2, decoded.Matched)
		assert.False(t, decoded.Timestamp.IsZero())
	})

	t.Run("returns writer errors", func(t *testing.T) {
		p := newProducer(&fakeWriter{err: errors.New("broker down")}, "reconciliations", logger)
		err := p.PublishReconciliationCompleted(context.Background(), &ReconciliationCompletedEvent{RunID: "run-2"})
		require.Error(t, err)
	})
}
