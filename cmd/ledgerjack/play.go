package main

import (
	"context"
	"fmt"
	rand "math/rand/v2"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"ledgerjack/cmd/ledgerjack/shared"
	"ledgerjack/internal/blackjack"
	"ledgerjack/internal/config"
	"ledgerjack/internal/episode"
	"ledgerjack/internal/generator"
	"ledgerjack/internal/keyfile"
	"ledgerjack/internal/pki"
	"ledgerjack/internal/proxy"
	"ledgerjack/internal/randutil"
	"ledgerjack/internal/tui"
)

// PlayCmd runs an interactive blackjack session against a ledger.
type PlayCmd struct {
	PrivateKey  string `kong:"short='k',help='Hex game private key. Generated and printed when omitted.'"`
	KeyFile     string `kong:"help='Read the game private key from this file (see keygen --out)',type='path'"`
	OpponentKey string `kong:"short='o',help='Hex opponent public key. When set, this side announces the episode.'"`
	NodeURL     string `kong:"help='Websocket URL of the ledger node block feed'"`
	Sim         bool   `kong:"help='Play against an in-process simulated ledger'"`
	Seed        *int64 `kong:"help='Fixed shuffle seed instead of tx-derived seeds. Replicas with other seeds will diverge; debugging only.'"`
	Config      string `kong:"default='ledgerjack.hcl',help='HCL config file'"`
	LogFile     string `kong:"default='ledgerjack.log',help='Log file (the TUI owns the terminal)'"`
	Debug       bool   `kong:"help='Enable debug logging'"`
}

// ledgerNode is what the session needs from a ledger: a feed to watch
// and a way to submit. Both the websocket client and the simulator
// satisfy it.
type ledgerNode interface {
	proxy.Source
	proxy.Submitter
}

func (c *PlayCmd) Run() error {
	logger, closeLog := shared.SetupFileLogger(c.LogFile, c.Debug)
	defer closeLog()

	cfg, err := config.Load(c.Config)
	if err != nil {
		return err
	}
	if c.NodeURL != "" {
		cfg.Network.NodeURL = c.NodeURL
	}

	var priv pki.PrivateKey
	switch {
	case c.KeyFile != "":
		priv, err = keyfile.Read(c.KeyFile)
		if err != nil {
			return err
		}
	default:
		privHex := c.PrivateKey
		if privHex == "" {
			privHex = cfg.Game.PrivateKey
		}
		if privHex == "" {
			pub, fresh, err := pki.GenerateKeyPair()
			if err != nil {
				return err
			}
			fmt.Printf("Generated game keypair.\n  public key:  %s\n  private key: %s\n", pub, fresh)
			fmt.Println("Rerun with --private-key (or put it in the config file) to play.")
			return nil
		}
		priv, err = pki.ParsePrivateKey(privHex)
		if err != nil {
			return err
		}
	}
	playerPub := priv.Public()

	opponentHex := c.OpponentKey
	if opponentHex == "" {
		opponentHex = cfg.Game.OpponentKey
	}
	var opponent *pki.PubKey
	if opponentHex != "" {
		pk, err := pki.ParsePubKey(opponentHex)
		if err != nil {
			return err
		}
		opponent = &pk
	}

	var node ledgerNode
	if c.Sim {
		node = proxy.NewSimSource(quartz.NewReal())
		if opponent == nil {
			// Nobody to play against in-process; seat a phantom dealer.
			dealerPub, _, err := pki.GenerateKeyPair()
			if err != nil {
				return err
			}
			opponent = &dealerPub
		}
	} else {
		node = proxy.NewWSSource(cfg.Network.NodeURL, quartz.NewReal(), logger)
	}

	return c.session(logger, cfg, node, priv, playerPub, opponent)
}

func (c *PlayCmd) session(logger *log.Logger, cfg *config.Config, node ledgerNode, priv pki.PrivateKey, playerPub pki.PubKey, opponent *pki.PubKey) error {
	ctx, cancel := context.WithCancel(shared.SetupSignalHandler(logger))
	defer cancel()
	g, ctx := errgroup.WithContext(ctx)

	filter := proxy.NewFilter(cfg.Network.Prefix)
	gen := generator.New(filter, cfg.Network.Fee, logger)
	inputs := make(chan episode.Input, 64)

	submit := func(id episode.ID, cmd blackjack.Command) error {
		msg, err := episode.NewSignedCommand(id, cmd, priv)
		if err != nil {
			return err
		}
		_, err = gen.Submit(ctx, node, msg)
		return err
	}

	program := tea.NewProgram(tui.New(logger, submit), tea.WithAltScreen())
	bridge := tui.NewBridge(program, playerPub)

	opts := []blackjack.Option{blackjack.WithLogger(logger)}
	if c.Seed != nil {
		seed := *c.Seed
		logger.Warn("Using a fixed shuffle seed; other replicas will diverge", "seed", seed)
		opts = append(opts, blackjack.WithShuffler(func(episode.Metadata) *rand.Rand {
			return randutil.New(seed)
		}))
	}
	factory := func(participants []pki.PubKey, meta episode.Metadata) *blackjack.Episode {
		return blackjack.New(participants, meta, opts...)
	}
	engine := episode.NewEngine[blackjack.Command, blackjack.Rollback](logger, factory, inputs, bridge)
	prx := proxy.New(node, filter, inputs, logger)

	g.Go(func() error { return ignoreCancel(engine.Run(ctx)) })
	g.Go(func() error { return ignoreCancel(prx.Run(ctx)) })

	// When an opponent key is given, this side announces the episode.
	if opponent != nil {
		initiator := *opponent
		g.Go(func() error {
			select {
			case <-ctx.Done():
				return nil
			case <-prx.Ready():
			}
			id := episode.ID(rand.Uint32())
			logger.Info("Announcing episode", "episode", id, "player", playerPub.Short(), "dealer", initiator.Short())
			_, err := gen.Submit(ctx, node, episode.NewEpisodeMessage(id, []pki.PubKey{playerPub, initiator}))
			return err
		})
	}

	// The TUI owns the foreground; everything stops when it exits.
	g.Go(func() error {
		defer cancel()
		_, err := program.Run()
		return err
	})
	go func() {
		<-ctx.Done()
		program.Quit()
	}()

	return g.Wait()
}

func ignoreCancel(err error) error {
	if err == context.Canceled {
		return nil
	}
	return err
}
