// Package proxy connects the replication engine to a ledger: it watches
// the ordered transaction stream, picks out episode-tagged payloads by
// prefix and transaction-id pattern, and feeds decoded messages to the
// engine. Reorganization notices become unwind inputs. The ledger
// itself sits behind the Source interface; consensus is somebody
// else's problem.
package proxy

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/charmbracelet/log"

	"ledgerjack/internal/episode"
	"ledgerjack/internal/randutil"
	"ledgerjack/internal/wire"
)

// Tx is an accepted ledger transaction with its embedded payload.
type Tx struct {
	ID      episode.TxID
	Payload []byte
}

// Block is a batch of accepted transactions at one height.
type Block struct {
	Height     uint64
	AcceptedAt uint64
	Txs        []Tx
}

// Event is one ledger notification: an accepted block or an unwind
// notice after a reorg. Exactly one field is set.
type Event struct {
	Block  *Block
	Unwind *episode.Unwind
}

// Source is a subscription to the ledger's accepted-transaction stream.
type Source interface {
	Subscribe(ctx context.Context) (<-chan Event, error)
}

// Submitter submits a raw payload to the ledger, paying fee, and
// returns the id the carrying transaction will have.
type Submitter interface {
	Submit(ctx context.Context, payload []byte, fee uint64) (episode.TxID, error)
}

// TxIDFor computes the transaction id a payload will be carried under.
// The minimal ledger protocol spoken here defines it as the SHA-256 of
// the payload, which is what lets the generator grind payload nonces
// until the id matches the routing pattern.
func TxIDFor(payload []byte) episode.TxID {
	return episode.TxID(sha256.Sum256(payload))
}

// PatternLen is the number of fixed id bits in a routing pattern.
const PatternLen = 10

// PatternBit pins one bit of a transaction id: bit number Pos (MSB
// first over the 256-bit id) must equal Bit.
type PatternBit struct {
	Pos uint16
	Bit uint8
}

// Pattern is the bit-pattern a transaction id must satisfy to be
// considered episode traffic. It keeps the proxy from decoding every
// transaction on the ledger.
type Pattern [PatternLen]PatternBit

// Matches reports whether id satisfies every pinned bit.
func (p Pattern) Matches(id episode.TxID) bool {
	for _, pb := range p {
		bit := (id[pb.Pos/8] >> (7 - pb.Pos%8)) & 1
		if bit != pb.Bit {
			return false
		}
	}
	return true
}

// DerivePattern derives the routing pattern deterministically from the
// payload prefix, so the two never have to be configured separately.
// Positions are distinct and sorted for stable display.
func DerivePattern(prefix uint32) Pattern {
	rng := randutil.New(int64(prefix))
	var p Pattern
	used := make(map[uint16]bool)
	for i := 0; i < PatternLen; {
		pos := uint16(rng.IntN(256))
		if used[pos] {
			continue
		}
		used[pos] = true
		p[i] = PatternBit{Pos: pos, Bit: uint8(rng.IntN(2))}
		i++
	}
	for i := 1; i < PatternLen; i++ {
		for j := i; j > 0 && p[j].Pos < p[j-1].Pos; j-- {
			p[j], p[j-1] = p[j-1], p[j]
		}
	}
	return p
}

// payload layout: 4-byte big-endian prefix, 8-byte nonce, message body.
const (
	prefixSize = 4
	nonceSize  = 8
	headerLen  = prefixSize + nonceSize
)

// AssemblePayload builds the on-ledger payload for a message body.
func AssemblePayload(prefix uint32, nonce uint64, body []byte) []byte {
	payload := make([]byte, headerLen+len(body))
	binary.BigEndian.PutUint32(payload[0:prefixSize], prefix)
	binary.BigEndian.PutUint64(payload[prefixSize:headerLen], nonce)
	copy(payload[headerLen:], body)
	return payload
}

// Filter decides which transactions carry episode traffic.
type Filter struct {
	Prefix  uint32
	Pattern Pattern
}

// NewFilter builds a filter for prefix with its derived pattern.
func NewFilter(prefix uint32) Filter {
	return Filter{Prefix: prefix, Pattern: DerivePattern(prefix)}
}

// Extract returns the message body carried by tx, or false when the
// transaction is not episode traffic for this filter.
func (f Filter) Extract(tx Tx) ([]byte, bool) {
	if !f.Pattern.Matches(tx.ID) {
		return nil, false
	}
	if len(tx.Payload) < headerLen {
		return nil, false
	}
	if binary.BigEndian.Uint32(tx.Payload[0:prefixSize]) != f.Prefix {
		return nil, false
	}
	return tx.Payload[headerLen:], true
}

// Proxy pumps filtered, decoded ledger traffic into the engine's input
// channel.
type Proxy struct {
	source Source
	filter Filter
	out    chan<- episode.Input
	ready  chan struct{}
	logger *log.Logger
}

// New creates a proxy feeding out from source through filter.
func New(source Source, filter Filter, out chan<- episode.Input, logger *log.Logger) *Proxy {
	return &Proxy{
		source: source,
		filter: filter,
		out:    out,
		ready:  make(chan struct{}),
		logger: logger.WithPrefix("proxy"),
	}
}

// Ready is closed once the proxy is subscribed. Submitting before then
// can race the subscription and miss one's own announcement.
func (p *Proxy) Ready() <-chan struct{} {
	return p.ready
}

// Run subscribes and pumps until ctx is cancelled or the source closes.
func (p *Proxy) Run(ctx context.Context) error {
	events, err := p.source.Subscribe(ctx)
	if err != nil {
		return err
	}
	close(p.ready)
	p.logger.Info("Listening for episode traffic", "prefix", p.filter.Prefix)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			p.handle(ctx, ev)
		}
	}
}

func (p *Proxy) handle(ctx context.Context, ev Event) {
	if ev.Unwind != nil {
		p.logger.Info("Ledger reorg", "height", ev.Unwind.Height)
		p.send(ctx, episode.Input{Unwind: ev.Unwind})
		return
	}
	if ev.Block == nil {
		return
	}
	for _, tx := range ev.Block.Txs {
		body, ok := p.filter.Extract(tx)
		if !ok {
			continue
		}
		var msg episode.Message
		if err := wire.Unmarshal(body, &msg); err != nil {
			p.logger.Warn("Undecodable episode payload", "tx", tx.ID, "error", err)
			continue
		}
		p.logger.Debug("Episode payload accepted", "tx", tx.ID, "episode", msg.EpisodeID, "height", ev.Block.Height)
		p.send(ctx, episode.Input{
			Msg: &msg,
			Meta: episode.Metadata{
				TxID:       tx.ID,
				AcceptedAt: ev.Block.AcceptedAt,
				Height:     ev.Block.Height,
			},
		})
	}
}

func (p *Proxy) send(ctx context.Context, in episode.Input) {
	select {
	case p.out <- in:
	case <-ctx.Done():
	}
}
