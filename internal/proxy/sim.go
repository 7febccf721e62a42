package proxy

import (
	"context"
	"sync"

	"github.com/coder/quartz"

	"ledgerjack/internal/episode"
)

// SimSource is an in-process simulated ledger used by tests and by
// `play --sim`. Every submitted payload is accepted immediately in its
// own block; Reorg discards accepted blocks above a height and notifies
// subscribers to unwind. It is safe for concurrent use.
type SimSource struct {
	mu     sync.Mutex
	clock  quartz.Clock
	height uint64
	subs   []chan Event
}

// NewSimSource creates a simulated ledger reading time from clock.
func NewSimSource(clock quartz.Clock) *SimSource {
	return &SimSource{clock: clock}
}

// Subscribe implements Source. The returned channel delivers every
// block accepted after the call.
func (s *SimSource) Subscribe(ctx context.Context) (<-chan Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ch := make(chan Event, 64)
	s.subs = append(s.subs, ch)
	go func() {
		<-ctx.Done()
		s.drop(ch)
	}()
	return ch, nil
}

// Submit implements Submitter: the payload is accepted at the next
// height and broadcast to all subscribers. The fee is accepted and
// ignored; a simulated ledger has no miners to pay.
func (s *SimSource) Submit(ctx context.Context, payload []byte, fee uint64) (episode.TxID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := TxIDFor(payload)
	s.height++
	block := &Block{
		Height:     s.height,
		AcceptedAt: uint64(s.clock.Now().Unix()),
		Txs:        []Tx{{ID: id, Payload: payload}},
	}
	s.broadcast(Event{Block: block})
	return id, nil
}

// Reorg discards everything accepted above height and tells subscribers
// to unwind to it.
func (s *SimSource) Reorg(height uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if height >= s.height {
		return
	}
	s.height = height
	s.broadcast(Event{Unwind: &episode.Unwind{Height: height}})
}

// Height returns the current accepted height.
func (s *SimSource) Height() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.height
}

func (s *SimSource) broadcast(ev Event) {
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
			// Subscriber fell behind; a real node would drop it too.
		}
	}
}

func (s *SimSource) drop(ch chan Event) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for i, sub := range s.subs {
		if sub == ch {
			s.subs = append(s.subs[:i], s.subs[i+1:]...)
			close(ch)
			return
		}
	}
}
