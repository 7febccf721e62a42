package main

import (
	"github.com/alecthomas/kong"
)

// version is set by ldflags during build
var version = "dev"

type CLI struct {
	Version kong.VersionFlag `short:"v" help:"Show version"`
	Play    PlayCmd          `cmd:"" help:"Play blackjack over a ledger"`
	Keygen  KeygenCmd        `cmd:"" help:"Generate a game keypair"`
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("ledgerjack"),
		kong.Description("Blackjack as a ledger-replicated state machine"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)
	err := ctx.Run()
	ctx.FatalIfErrorf(err)
}
