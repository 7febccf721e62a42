package proxy

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/gorilla/websocket"

	"ledgerjack/internal/episode"
)

const (
	wsWriteTimeout    = 10 * time.Second
	wsReconnectMin    = time.Second
	wsReconnectMax    = 30 * time.Second
	wsReconnectFactor = 2
)

// wsEnvelope is the JSON frame exchanged with a node's block feed.
// type is one of "block", "unwind", "submit".
type wsEnvelope struct {
	Type       string `json:"type"`
	Height     uint64 `json:"height,omitempty"`
	AcceptedAt uint64 `json:"accepted_at,omitempty"`
	Txs        []wsTx `json:"txs,omitempty"`
	Payload    string `json:"payload,omitempty"`
	Fee        uint64 `json:"fee,omitempty"`
}

type wsTx struct {
	ID      string `json:"id"`
	Payload string `json:"payload"`
}

// WSSource subscribes to a ledger node's websocket block feed and
// submits payloads over the same connection. It reconnects with
// exponential backoff; the clock is injected so tests can drive the
// backoff timers.
type WSSource struct {
	url    string
	clock  quartz.Clock
	logger *log.Logger

	mu   sync.Mutex
	conn *websocket.Conn
}

// NewWSSource creates a source for the node at url.
func NewWSSource(url string, clock quartz.Clock, logger *log.Logger) *WSSource {
	return &WSSource{
		url:    url,
		clock:  clock,
		logger: logger.WithPrefix("ws"),
	}
}

// Subscribe implements Source. The read loop owns the connection and
// redials on failure until ctx is cancelled.
func (s *WSSource) Subscribe(ctx context.Context) (<-chan Event, error) {
	if err := s.dial(ctx); err != nil {
		return nil, err
	}
	ch := make(chan Event, 64)
	go s.readLoop(ctx, ch)
	return ch, nil
}

// Submit implements Submitter by sending the payload to the node. The
// transaction id is the payload hash by protocol convention, so it is
// known before the node even answers.
func (s *WSSource) Submit(ctx context.Context, payload []byte, fee uint64) (episode.TxID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return episode.TxID{}, fmt.Errorf("ws: not connected")
	}
	frame := wsEnvelope{
		Type:    "submit",
		Payload: hex.EncodeToString(payload),
		Fee:     fee,
	}
	if err := s.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout)); err != nil {
		return episode.TxID{}, err
	}
	if err := s.conn.WriteJSON(frame); err != nil {
		return episode.TxID{}, fmt.Errorf("ws: submitting payload: %w", err)
	}
	return TxIDFor(payload), nil
}

func (s *WSSource) dial(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, s.url, nil)
	if err != nil {
		return fmt.Errorf("ws: dialing %s: %w", s.url, err)
	}
	s.mu.Lock()
	s.conn = conn
	s.mu.Unlock()
	s.logger.Info("Connected", "url", s.url)
	return nil
}

func (s *WSSource) readLoop(ctx context.Context, ch chan<- Event) {
	defer close(ch)
	backoff := wsReconnectMin
	for {
		err := s.pump(ctx, ch)
		if ctx.Err() != nil {
			return
		}
		s.logger.Warn("Connection lost, reconnecting", "error", err, "backoff", backoff)

		timer := s.clock.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
		backoff *= wsReconnectFactor
		if backoff > wsReconnectMax {
			backoff = wsReconnectMax
		}

		if err := s.dial(ctx); err != nil {
			continue
		}
		backoff = wsReconnectMin
	}
}

// pump reads frames until the connection fails.
func (s *WSSource) pump(ctx context.Context, ch chan<- Event) error {
	s.mu.Lock()
	conn := s.conn
	s.mu.Unlock()
	if conn == nil {
		return fmt.Errorf("ws: not connected")
	}
	for {
		_, data, err := conn.ReadMessage()
		if err != nil {
			return err
		}
		var frame wsEnvelope
		if err := json.Unmarshal(data, &frame); err != nil {
			s.logger.Warn("Malformed frame", "error", err)
			continue
		}
		ev, ok := s.toEvent(frame)
		if !ok {
			continue
		}
		select {
		case ch <- ev:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (s *WSSource) toEvent(frame wsEnvelope) (Event, bool) {
	switch frame.Type {
	case "block":
		block := &Block{Height: frame.Height, AcceptedAt: frame.AcceptedAt}
		for _, tx := range frame.Txs {
			idBytes, err := hex.DecodeString(tx.ID)
			if err != nil || len(idBytes) != len(episode.TxID{}) {
				s.logger.Warn("Malformed tx id", "id", tx.ID)
				continue
			}
			payload, err := hex.DecodeString(tx.Payload)
			if err != nil {
				s.logger.Warn("Malformed tx payload", "id", tx.ID)
				continue
			}
			var id episode.TxID
			copy(id[:], idBytes)
			block.Txs = append(block.Txs, Tx{ID: id, Payload: payload})
		}
		return Event{Block: block}, true
	case "unwind":
		return Event{Unwind: &episode.Unwind{Height: frame.Height}}, true
	default:
		s.logger.Debug("Ignoring frame", "type", frame.Type)
		return Event{}, false
	}
}
