package mq

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/streadway/amqp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sumo-arena/internal/game"
)

type fakeChannel struct {
	published []amqp.Publishing
	keys      []string
	err       error
	closed    bool
}

func (f *fakeChannel) Publish(_, key string, _, _ bool, msg amqp.Publishing) error {
	if f.err != nil {
		return f.err
	}
	f.keys = append(f.keys, key)
	f.published = append(f.published, msg)
	return nil
}

func (f *fakeChannel) Close() error {
	f.closed = true
	return nil
}

func TestPublisherSendsPersistentResult(t *testing.T) {
	ch := &fakeChannel{}
	p := newPublisher(ch, "match_results")
	ended := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)

	err := p.RecordMatchResult(context.Background(), game.Summary{
		MatchID:  "m-1",
		WinnerID: "east",
		LoserID:  "west",
		Duration: 21.5,
		EndedAt:  ended,
		Log:      []game.Event{{Type: game.EventTachiai}},
	})
	require.NoError(t, err)
	require.Len(t, ch.published, 1)

	msg := ch.published[0]
	assert.Equal(t, "match_results", ch.keys[0])
	assert.Equal(t, uint8(amqp.Persistent), msg.DeliveryMode)
	assert.Equal(t, "m-1", msg.MessageId)

	var body ResultMessage
	require.NoError(t, json.Unmarshal(msg.Body, &body))
	assert.Equal(t, "east", body.WinnerID)
	assert.Equal(t, ended.Unix(), body.Timestamp)
	require.NotNil(t, body.Summary)
	assert.Len(t, body.Summary.Log, 1)

	require.NoError(t, p.Close())
	assert.True(t, ch.closed)
}

func TestPublisherWrapsFailure(t *testing.T) {
	boom := errors.New("channel closed")
	p := newPublisher(&fakeChannel{err: boom}, "q")

	err := p.RecordMatchResult(context.Background(), game.Summary{MatchID: "m-2"})
	require.Error(t, err)
	assert.True(t, errors.Is(err, boom))
}
