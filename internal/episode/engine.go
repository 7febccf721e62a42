package episode

import (
	"context"
	"errors"

	"github.com/charmbracelet/log"

	"ledgerjack/internal/wire"
)

// Input is one unit of work for the engine: either a decoded episode
// message with the metadata of the transaction that carried it, or an
// unwind notice after a ledger reorganization. Exactly one of Msg and
// Unwind is set.
type Input struct {
	Msg    *Message
	Meta   Metadata
	Unwind *Unwind
}

// Unwind tells the engine that every transaction accepted above Height
// has been discarded by the ledger and its commands must be undone.
type Unwind struct {
	Height uint64
}

type applied[R any] struct {
	txID     TxID
	height   uint64
	rollback R
}

type entry[C, R any, E Episode[C, R]] struct {
	ep      E
	created uint64
	applied []applied[R]
}

// Engine replays ordered ledger commands through episode instances and
// keeps them reversible. It owns all episode state: one run loop
// serializes execution across episodes, so episodes need no locking.
// Distinct engines are fully independent.
type Engine[C, R any, E Episode[C, R]] struct {
	factory  Factory[C, R, E]
	in       <-chan Input
	handlers []EventHandler[C, R, E]
	episodes map[ID]*entry[C, R, E]
	logger   *log.Logger
}

// NewEngine creates an engine consuming inputs from in. The factory is
// invoked once per NewEpisode message; handlers fire synchronously
// after every state mutation.
func NewEngine[C, R any, E Episode[C, R]](logger *log.Logger, factory Factory[C, R, E], in <-chan Input, handlers ...EventHandler[C, R, E]) *Engine[C, R, E] {
	return &Engine[C, R, E]{
		factory:  factory,
		in:       in,
		handlers: handlers,
		episodes: make(map[ID]*entry[C, R, E]),
		logger:   logger.WithPrefix("engine"),
	}
}

// Run processes inputs until ctx is cancelled or the input channel
// closes.
func (e *Engine[C, R, E]) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case in, ok := <-e.in:
			if !ok {
				return nil
			}
			if in.Unwind != nil {
				e.unwind(in.Unwind.Height)
				continue
			}
			if in.Msg != nil {
				e.dispatch(in.Msg, in.Meta)
			}
		}
	}
}

func (e *Engine[C, R, E]) dispatch(msg *Message, meta Metadata) {
	switch msg.Kind {
	case KindNewEpisode:
		e.handleNewEpisode(msg, meta)
	case KindSignedCommand, KindUnsignedCommand:
		e.handleCommand(msg, meta)
	default:
		e.logger.Warn("Unknown message kind", "kind", msg.Kind, "tx", meta.TxID)
	}
}

func (e *Engine[C, R, E]) handleNewEpisode(msg *Message, meta Metadata) {
	if _, exists := e.episodes[msg.EpisodeID]; exists {
		e.logger.Warn("Episode id collision, ignoring announcement", "episode", msg.EpisodeID, "tx", meta.TxID)
		return
	}
	ep := e.factory(msg.Participants, meta)
	e.episodes[msg.EpisodeID] = &entry[C, R, E]{ep: ep, created: meta.Height}
	e.logger.Info("Episode initialized", "episode", msg.EpisodeID, "participants", len(msg.Participants), "height", meta.Height)
	for _, h := range e.handlers {
		h.OnInitialize(msg.EpisodeID, ep)
	}
}

func (e *Engine[C, R, E]) handleCommand(msg *Message, meta Metadata) {
	ent, ok := e.episodes[msg.EpisodeID]
	if !ok {
		e.logger.Debug("Command for unknown episode", "episode", msg.EpisodeID, "tx", meta.TxID)
		return
	}
	authorization, err := msg.Authorization()
	if err != nil {
		if errors.Is(err, ErrBadSignature) {
			e.logger.Warn("Dropping command with bad signature", "episode", msg.EpisodeID, "tx", meta.TxID)
		} else {
			e.logger.Warn("Dropping malformed command", "episode", msg.EpisodeID, "tx", meta.TxID, "error", err)
		}
		return
	}
	var cmd C
	if err := wire.Unmarshal(msg.Command, &cmd); err != nil {
		e.logger.Warn("Dropping undecodable command", "episode", msg.EpisodeID, "tx", meta.TxID, "error", err)
		return
	}
	rb, err := ent.ep.Execute(cmd, authorization, meta)
	if err != nil {
		e.logger.Debug("Command rejected", "episode", msg.EpisodeID, "tx", meta.TxID, "error", err)
		return
	}
	ent.applied = append(ent.applied, applied[R]{txID: meta.TxID, height: meta.Height, rollback: rb})
	e.logger.Debug("Command applied", "episode", msg.EpisodeID, "tx", meta.TxID, "height", meta.Height)
	for _, h := range e.handlers {
		h.OnCommand(msg.EpisodeID, ent.ep, cmd, authorization, meta)
	}
}

// unwind undoes, newest first, every command accepted above height, and
// drops episodes whose announcement itself was discarded.
func (e *Engine[C, R, E]) unwind(height uint64) {
	for id, ent := range e.episodes {
		if ent.created > height {
			e.logger.Info("Episode discarded by reorg", "episode", id, "created", ent.created, "height", height)
			delete(e.episodes, id)
			continue
		}
		rolled := false
		for len(ent.applied) > 0 {
			last := ent.applied[len(ent.applied)-1]
			if last.height <= height {
				break
			}
			ent.applied = ent.applied[:len(ent.applied)-1]
			if !ent.ep.Rollback(last.rollback) {
				e.logger.Error("Rollback refused, episode state may have diverged", "episode", id, "tx", last.txID)
			}
			rolled = true
			for _, h := range e.handlers {
				h.OnRollback(id, ent.ep)
			}
		}
		if rolled {
			e.logger.Info("Episode unwound", "episode", id, "height", height)
		}
	}
}
