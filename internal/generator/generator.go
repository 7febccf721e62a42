// Package generator builds the ledger payloads that carry episode
// messages: wire-encode the message, wrap it with the routing prefix,
// then grind the nonce until the resulting transaction id satisfies the
// proxy's bit-pattern, so that listeners cheaply recognize episode
// traffic.
package generator

import (
	"context"
	"fmt"

	"github.com/charmbracelet/log"

	"ledgerjack/internal/episode"
	"ledgerjack/internal/proxy"
	"ledgerjack/internal/wire"
)

// maxNonce bounds the grind. Ten fixed bits need ~1024 attempts on
// average; a million gives cryptographically negligible failure odds.
const maxNonce = 1 << 20

// Generator builds and submits pattern-matching payloads.
type Generator struct {
	filter proxy.Filter
	fee    uint64
	logger *log.Logger
}

// New creates a generator for the given routing filter and fee.
func New(filter proxy.Filter, fee uint64, logger *log.Logger) *Generator {
	return &Generator{filter: filter, fee: fee, logger: logger.WithPrefix("generator")}
}

// BuildPayload encodes msg and grinds a nonce until the payload's
// transaction id matches the routing pattern. Returns the payload and
// the id it will be accepted under.
func (g *Generator) BuildPayload(msg episode.Message) ([]byte, episode.TxID, error) {
	body, err := wire.Marshal(msg)
	if err != nil {
		return nil, episode.TxID{}, fmt.Errorf("encoding message: %w", err)
	}
	for nonce := uint64(0); nonce < maxNonce; nonce++ {
		payload := proxy.AssemblePayload(g.filter.Prefix, nonce, body)
		id := proxy.TxIDFor(payload)
		if g.filter.Pattern.Matches(id) {
			g.logger.Debug("Payload ground", "nonce", nonce, "tx", id, "episode", msg.EpisodeID)
			return payload, id, nil
		}
	}
	return nil, episode.TxID{}, fmt.Errorf("no matching nonce in %d attempts", maxNonce)
}

// Submit builds the payload for msg and submits it via sub.
func (g *Generator) Submit(ctx context.Context, sub proxy.Submitter, msg episode.Message) (episode.TxID, error) {
	payload, want, err := g.BuildPayload(msg)
	if err != nil {
		return episode.TxID{}, err
	}
	id, err := sub.Submit(ctx, payload, g.fee)
	if err != nil {
		return episode.TxID{}, err
	}
	if id != want {
		return episode.TxID{}, fmt.Errorf("ledger reported tx %s, expected %s", id, want)
	}
	g.logger.Info("Submitted", "tx", id, "episode", msg.EpisodeID, "fee", g.fee)
	return id, nil
}
