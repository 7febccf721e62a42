package proxy

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ledgerjack/internal/episode"
	"ledgerjack/internal/pki"
	"ledgerjack/internal/wire"
)

const testPrefix uint32 = 858598618

func TestDerivePatternIsStable(t *testing.T) {
	a := DerivePattern(testPrefix)
	b := DerivePattern(testPrefix)
	assert.Equal(t, a, b)

	c := DerivePattern(testPrefix + 1)
	assert.NotEqual(t, a, c)

	seen := make(map[uint16]bool)
	for _, pb := range a {
		assert.False(t, seen[pb.Pos], "positions must be distinct")
		seen[pb.Pos] = true
		assert.LessOrEqual(t, pb.Bit, uint8(1))
	}
}

func TestFilterExtract(t *testing.T) {
	filter := NewFilter(testPrefix)
	body := []byte("episode traffic")

	// Grind a payload that matches, the way the generator does.
	var payload []byte
	var id episode.TxID
	found := false
	for nonce := uint64(0); nonce < 1<<20; nonce++ {
		payload = AssemblePayload(testPrefix, nonce, body)
		id = TxIDFor(payload)
		if filter.Pattern.Matches(id) {
			found = true
			break
		}
	}
	require.True(t, found)

	got, ok := filter.Extract(Tx{ID: id, Payload: payload})
	require.True(t, ok)
	assert.Equal(t, body, got)

	// Wrong prefix, same pattern-matching id.
	wrong := AssemblePayload(testPrefix+1, 0, body)
	_, ok = filter.Extract(Tx{ID: id, Payload: wrong})
	assert.False(t, ok)

	// Non-matching id is skipped without looking at the payload.
	_, ok = filter.Extract(Tx{ID: episode.TxID{}, Payload: payload})
	if filter.Pattern.Matches(episode.TxID{}) {
		t.Skip("zero id happens to match the derived pattern")
	}
	assert.False(t, ok)

	// Truncated payload.
	_, ok = filter.Extract(Tx{ID: id, Payload: payload[:4]})
	assert.False(t, ok)
}

func TestSimSourceDeliversSubmissions(t *testing.T) {
	sim := NewSimSource(quartz.NewMock(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := sim.Subscribe(ctx)
	require.NoError(t, err)

	id, err := sim.Submit(ctx, []byte("payload"), 5000)
	require.NoError(t, err)
	assert.Equal(t, TxIDFor([]byte("payload")), id)

	ev := <-events
	require.NotNil(t, ev.Block)
	assert.Equal(t, uint64(1), ev.Block.Height)
	require.Len(t, ev.Block.Txs, 1)
	assert.Equal(t, id, ev.Block.Txs[0].ID)

	sim.Reorg(0)
	ev = <-events
	require.NotNil(t, ev.Unwind)
	assert.Equal(t, uint64(0), ev.Unwind.Height)
	assert.Equal(t, uint64(0), sim.Height())
}

func TestSimSourceReorgAtOrAboveTipIsNoop(t *testing.T) {
	sim := NewSimSource(quartz.NewMock(t))
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	events, err := sim.Subscribe(ctx)
	require.NoError(t, err)

	sim.Reorg(5)
	select {
	case ev := <-events:
		t.Fatalf("unexpected event %+v", ev)
	case <-time.After(10 * time.Millisecond):
	}
}

func TestProxyFeedsEngineInputs(t *testing.T) {
	logger := log.New(io.Discard)
	sim := NewSimSource(quartz.NewMock(t))
	filter := NewFilter(testPrefix)
	inputs := make(chan episode.Input, 16)
	prx := New(sim, filter, inputs, logger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = prx.Run(ctx) }()
	<-prx.Ready()

	// A real episode message, wrapped the way the generator wraps it.
	pub, _, err := pki.GenerateKeyPair()
	require.NoError(t, err)
	msg := episode.NewEpisodeMessage(7, []pki.PubKey{pub})
	body, err := wire.Marshal(msg)
	require.NoError(t, err)

	var payload []byte
	for nonce := uint64(0); ; nonce++ {
		payload = AssemblePayload(testPrefix, nonce, body)
		if filter.Pattern.Matches(TxIDFor(payload)) {
			break
		}
	}
	_, err = sim.Submit(ctx, payload, 5000)
	require.NoError(t, err)

	// Unrelated traffic must not reach the engine.
	_, err = sim.Submit(ctx, []byte("noise"), 5000)
	require.NoError(t, err)

	sim.Reorg(1)

	in := <-inputs
	require.NotNil(t, in.Msg)
	assert.Equal(t, episode.ID(7), in.Msg.EpisodeID)
	assert.Equal(t, uint64(1), in.Meta.Height)
	assert.Equal(t, TxIDFor(payload), in.Meta.TxID)

	in = <-inputs
	require.NotNil(t, in.Unwind)
	assert.Equal(t, uint64(1), in.Unwind.Height)
}
