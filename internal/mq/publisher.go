// Package mq publishes finished bouts to a durable AMQP queue.
package mq

import (
	"context"
	"sync"
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"
	"github.com/streadway/amqp"

	"sumo-arena/internal/game"
)

// ResultMessage is the queue payload for one finished bout
type ResultMessage struct {
	MatchID   string        `json:"match_id"`
	WinnerID  string        `json:"winner_id"`
	LoserID   string        `json:"loser_id"`
	Duration  float64       `json:"duration"`
	Timestamp int64         `json:"timestamp"`
	Summary   *game.Summary `json:"summary"`
}

// channel is the part of *amqp.Channel the publisher needs
type channel interface {
	Publish(exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// Publisher sends result messages. amqp channels are not safe for
// concurrent publishing, so sends are serialized.
type Publisher struct {
	mu    sync.Mutex
	conn  *amqp.Connection
	ch    channel
	queue string
}

// Dial connects and declares the durable queue
func Dial(url, queue string) (*Publisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, eris.Wrap(err, "mq connect")
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, eris.Wrap(err, "mq channel")
	}
	if _, err := ch.QueueDeclare(queue, true, false, false, false, nil); err != nil {
		conn.Close()
		return nil, eris.Wrapf(err, "mq declare %s", queue)
	}
	return &Publisher{conn: conn, ch: ch, queue: queue}, nil
}

func newPublisher(ch channel, queue string) *Publisher {
	return &Publisher{ch: ch, queue: queue}
}

// RecordMatchResult publishes the summary as a persistent message
func (p *Publisher) RecordMatchResult(_ context.Context, s game.Summary) error {
	body, err := json.Marshal(newResultMessage(s))
	if err != nil {
		return eris.Wrap(err, "encode result")
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	err = p.ch.Publish("", p.queue, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    s.MatchID,
		Timestamp:    s.EndedAt,
		Body:         body,
	})
	return eris.Wrapf(err, "publish match %s", s.MatchID)
}

// Close releases the channel and connection
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	err := p.ch.Close()
	if p.conn != nil {
		if cerr := p.conn.Close(); err == nil {
			err = cerr
		}
	}
	return err
}

func newResultMessage(s game.Summary) ResultMessage {
	ts := s.EndedAt
	if ts.IsZero() {
		ts = time.Now()
	}
	return ResultMessage{
		MatchID:   s.MatchID,
		WinnerID:  s.WinnerID,
		LoserID:   s.LoserID,
		Duration:  s.Duration,
		Timestamp: ts.Unix(),
		Summary:   &s,
	}
}
