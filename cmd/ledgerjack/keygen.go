package main

import (
	"fmt"

	"ledgerjack/cmd/ledgerjack/shared"
	"ledgerjack/internal/keyfile"
	"ledgerjack/internal/pki"
)

// KeygenCmd generates a fresh game keypair.
type KeygenCmd struct {
	Out   string `help:"Write the private key to this file (mode 0600) instead of printing it." type:"path"`
	Debug bool   `help:"Enable debug logging."`
}

func (c *KeygenCmd) Run() error {
	logger := shared.SetupLogger(c.Debug)

	pub, priv, err := pki.GenerateKeyPair()
	if err != nil {
		return err
	}
	fmt.Printf("public key:  %s\n", pub)
	if c.Out != "" {
		if err := keyfile.Write(c.Out, priv); err != nil {
			return err
		}
		logger.Info("Private key written", "path", c.Out)
	} else {
		fmt.Printf("private key: %s\n", priv)
	}
	fmt.Println("\nShare the public key with your opponent; keep the private key to yourself.")
	return nil
}
