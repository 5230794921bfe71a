package server

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/randutil"
)

func TestMessageRoundTrip(t *testing.T) {
	t.Parallel()

	value := 17
	msg, err := NewMessage(MessageTypePlaceBid, PlaceBidPayload{Seat: 2, Value: &value})
	require.NoError(t, err)

	data, err := json.Marshal(msg)
	require.NoError(t, err)

	// The envelope carries exactly type and payload.
	var envelope map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &envelope))
	assert.Len(t, envelope, 2)
	assert.Contains(t, envelope, "type")
	assert.Contains(t, envelope, "payload")

	var decoded Message
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, MessageTypePlaceBid, decoded.Type)

	var payload PlaceBidPayload
	require.NoError(t, decoded.ParsePayload(&payload))
	assert.Equal(t, 2, payload.Seat)
	require.NotNil(t, payload.Value)
	assert.Equal(t, 17, *payload.Value)
}

func TestMessagePassBidHasNullValue(t *testing.T) {
	t.Parallel()

	var decoded Message
	require.NoError(t, json.Unmarshal(
		[]byte(`{"type":"place_bid","payload":{"seat":1,"value":null}}`), &decoded))

	var payload PlaceBidPayload
	require.NoError(t, decoded.ParsePayload(&payload))
	assert.Equal(t, 1, payload.Seat)
	assert.Nil(t, payload.Value)
}

func TestParsePayloadMissing(t *testing.T) {
	t.Parallel()

	msg := &Message{Type: MessageTypeRequestState}
	var payload IdentifyPayload
	err := msg.ParsePayload(&payload)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no payload")
}

func TestNewStateMessageTailoring(t *testing.T) {
	t.Parallel()

	engine, err := game.New("msg-test", game.Config{}, game.WithRNG(randutil.New(7)))
	require.NoError(t, err)
	_, err = engine.AddPlayer("alice", "Alice", 0)
	require.NoError(t, err)
	_, err = engine.AddPlayer("bob", "Bob", 1)
	require.NoError(t, err)
	require.NoError(t, engine.StartRound(true))

	decode := func(t *testing.T, msg *Message) StateSnapshotPayload {
		t.Helper()
		var payload StateSnapshotPayload
		require.NoError(t, msg.ParsePayload(&payload))
		return payload
	}

	t.Run("public view carries no hand", func(t *testing.T) {
		msg, err := NewStateMessage(engine, -1)
		require.NoError(t, err)
		assert.Equal(t, MessageTypeStateSnapshot, msg.Type)

		payload := decode(t, msg)
		assert.Nil(t, payload.OwnerSeat)
		assert.Empty(t, payload.OwnerHand)
		assert.Equal(t, game.StateBidding, payload.State)
		assert.Equal(t, 4, payload.Seats)
		for _, count := range payload.HandCounts {
			assert.Equal(t, 8, count)
		}
	})

	t.Run("seat view carries that hand only", func(t *testing.T) {
		msg, err := NewStateMessage(engine, 0)
		require.NoError(t, err)

		payload := decode(t, msg)
		require.NotNil(t, payload.OwnerSeat)
		assert.Equal(t, 0, *payload.OwnerSeat)
		assert.Len(t, payload.OwnerHand, 8)
		assert.ElementsMatch(t, engine.HandFor(0), payload.OwnerHand)
	})
}
