package gateway

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourusername/runbattle/internal/race"
)

func newTestHandler(t *testing.T) (*Handler, *Hub) {
	t.Helper()
	hub := NewHub(nil, testLogger())
	t.Cleanup(hub.Close)
	handler := NewHandler(nil, hub, DefaultHandlerConfig(), clockwork.NewFakeClock(), testLogger())
	return handler, hub
}

func TestTranslatePositionMessage(t *testing.T) {
	handler, _ := newTestHandler(t)
	userID := uuid.New()
	client := &Client{SessionID: uuid.New(), UserID: userID}

	raw := []byte(`{
		"type": "position",
		"data": {"lat": -6.2, "lng": 106.8, "accuracy_m": 8.5, "client_time": 1757000000000}
	}`)

	ev, err := handler.translate(client, raw)
	require.NoError(t, err)

	assert.Equal(t, race.EventPosition, ev.Type)
	assert.Equal(t, userID, ev.ParticipantID)
	assert.InDelta(t, -6.2, ev.Sample.Lat, 1e-9)
	assert.InDelta(t, 106.8, ev.Sample.Lng, 1e-9)
	assert.InDelta(t, 8.5, ev.Sample.AccuracyM, 1e-9)
	assert.Equal(t, time.UnixMilli(1757000000000).UTC(), ev.Sample.ClientTime)
}

func TestTranslateFinishClaimMessage(t *testing.T) {
	handler, _ := newTestHandler(t)
	client := &Client{SessionID: uuid.New(), UserID: uuid.New()}

	raw := []byte(`{
		"type": "finish_claim",
		"data": {"total_distance_m": 5003.2, "total_time_ms": 1500000, "avg_pace_min_km": 5.0}
	}`)

	ev, err := handler.translate(client, raw)
	require.NoError(t, err)
	require.NotNil(t, ev.Claim)

	assert.Equal(t, race.EventFinishClaim, ev.Type)
	assert.InDelta(t, 5003.2, ev.Claim.TotalDistanceM, 1e-9)
	assert.Equal(t, int64(1500000), ev.Claim.TotalTimeMs)
}

func TestTranslateBareMessages(t *testing.T) {
	handler, _ := newTestHandler(t)
	client := &Client{SessionID: uuid.New(), UserID: uuid.New()}

	ev, err := handler.translate(client, []byte(`{"type": "quit"}`))
	require.NoError(t, err)
	assert.Equal(t, race.EventQuit, ev.Type)

	ev, err = handler.translate(client, []byte(`{"type": "ready"}`))
	require.NoError(t, err)
	assert.Equal(t, race.EventReady, ev.Type)
}

func TestTranslateRejectsInvalidMessages(t *testing.T) {
	handler, _ := newTestHandler(t)
	client := &Client{SessionID: uuid.New(), UserID: uuid.New()}

	cases := []struct {
		name string
		raw  string
	}{
		{"not json", `{{{`},
		{"unknown type", `{"type": "teleport"}`},
		{"missing type", `{"data": {}}`},
		{"latitude out of range", `{"type": "position", "data": {"lat": 91, "lng": 0, "accuracy_m": 5, "client_time": 1757000000000}}`},
		{"negative accuracy", `{"type": "position", "data": {"lat": 0, "lng": 0, "accuracy_m": -1, "client_time": 1757000000000}}`},
		{"position data not json", `{"type": "position", "data": 42}`},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := handler.translate(client, []byte(tc.raw))
			assert.Error(t, err)
		})
	}
}
