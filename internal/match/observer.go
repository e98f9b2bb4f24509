package match

import (
	"time"

	"github.com/goccy/go-json"
	"github.com/rotisserie/eris"

	"sumo-arena/internal/game"
)

var (
	// ErrObserverClosed is returned by Send once the connection is gone
	ErrObserverClosed = eris.New("observer closed")
	// ErrObserverSlow is returned by Send when the outbound buffer is full
	ErrObserverSlow = eris.New("observer buffer full")
)

// Observer is one attached connection. Send must never block.
type Observer interface {
	Send(msg []byte) error
	Close() error
}

// Outbound event names
const (
	EventState = "match:state"
	EventOver  = "match:over"
	EventEnded = "match:ended"
)

// Envelope is the wire frame sent to observers
type Envelope struct {
	Event   string      `json:"event"`
	MatchID string      `json:"matchId"`
	Data    interface{} `json:"data,omitempty"`
	Sent    int64       `json:"sent"`
}

func encodeSnapshot(event, matchID string, snap game.Snapshot) ([]byte, error) {
	return encode(Envelope{Event: event, MatchID: matchID, Data: snap, Sent: time.Now().UnixMilli()})
}

func encode(env Envelope) ([]byte, error) {
	b, err := json.Marshal(env)
	return b, eris.Wrap(err, "encode envelope")
}
