package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMatchCreated_WireFormat(t *testing.T) {
	event := MatchCreated{
		RoomID:     "room-1",
		User1ID:    "u1",
		User2ID:    "u2",
		QuestionID: "q7",
		Complexity: "medium",
		MatchedAt:  time.Date(2023, 10, 1, 12, 0, 0, 0, time.UTC),
	}

	data, err := json.Marshal(event)
	require.NoError(t, err)

	// The collaboration relay consumes these field names as-is.
	assert.JSONEq(t, `{
		"room_id": "room-1",
		"user1_id": "u1",
		"user2_id": "u2",
		"question_id": "q7",
		"complexity": "medium",
		"matched_at": "2023-10-01T12:00:00Z"
	}`, string(data))
}

func TestNopPublisher_DropsEvents(t *testing.T) {
	var p Publisher = NopPublisher{}
	assert.NoError(t, p.MatchCreated(context.Background(), MatchCreated{RoomID: "room-1"}))
}

func TestDefaultNATSConfig(t *testing.T) {
	config := DefaultNATSConfig()
	assert.Equal(t, nats.DefaultURL, config.URL)
	assert.Equal(t, "matching.match.created", config.Subject)
	assert.Equal(t, -1, config.MaxReconnects)
	assert.Equal(t, 2*time.Second, config.ReconnectWait)
}
