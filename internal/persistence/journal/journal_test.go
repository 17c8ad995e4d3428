package journal

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/hedgerow/hedgerow/internal/core/events/bus"
)

func TestRoundTrip(t *testing.T) {
	dir := t.TempDir()
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)

	w, err := New(dir, 0xdeadbeef, start)
	require.NoError(t, err)

	require.NoError(t, w.Append(Record{
		Frame: 1, Topic: "physics.contact", Timestamp: start,
		Data: map[string]any{"a": 1, "b": 2},
	}))
	require.NoError(t, w.Append(Record{
		Frame: 2, Topic: "zone.transition", Timestamp: start.Add(time.Second),
	}))
	require.NoError(t, w.Close())

	header, records, err := Read(w.Path())
	require.NoError(t, err)
	require.Equal(t, "00000000deadbeef", header.ConfigDigest)
	require.Equal(t, start, header.StartedAt)

	require.Len(t, records, 2)
	require.EqualValues(t, 1, records[0].Frame)
	require.Equal(t, "physics.contact", records[0].Topic)

	var payload map[string]int
	require.NoError(t, json.Unmarshal(records[0].Data.(json.RawMessage), &payload))
	require.Equal(t, map[string]int{"a": 1, "b": 2}, payload)

	require.Equal(t, "zone.transition", records[1].Topic)
	require.Nil(t, records[1].Data)
}

func TestAppendAfterClose(t *testing.T) {
	w, err := New(t.TempDir(), 1, time.Now())
	require.NoError(t, err)
	require.NoError(t, w.Close())
	require.ErrorIs(t, w.Append(Record{Topic: "late"}), ErrClosed)
	require.NoError(t, w.Close()) // idempotent
}

func TestAttachJournalsBusEvents(t *testing.T) {
	w, err := New(t.TempDir(), 7, time.Now())
	require.NoError(t, err)

	b := bus.New()
	sub, err := w.Attach(b)
	require.NoError(t, err)

	require.NoError(t, b.Publish(bus.NewEvent("fence.crossed", 41, map[string]any{"dir": 1})))
	require.NoError(t, sub.Cancel())
	require.NoError(t, w.Close())

	_, records, err := Read(w.Path())
	require.NoError(t, err)
	require.Len(t, records, 1)
	require.Equal(t, "fence.crossed", records[0].Topic)
	require.EqualValues(t, 41, records[0].Frame)
}
