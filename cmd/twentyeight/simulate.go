package main

import (
	"fmt"
	"time"

	"github.com/trickwire/twentyeight/cmd/twentyeight/shared"
	"github.com/trickwire/twentyeight/internal/rules"
	"github.com/trickwire/twentyeight/internal/simulate"
)

// SimulateCmd plays bot-vs-bot rounds in process.
type SimulateCmd struct {
	Mode    string `kong:"default='28',help='Game variant: 28 or 56'"`
	Rounds  int    `kong:"default='1000',help='Number of rounds to play'"`
	Seed    int64  `kong:"default='0',help='RNG seed (0 for random)'"`
	Even    string `kong:"default='default',help='Strategy for the even-seat team'"`
	Odd     string `kong:"default='default',help='Strategy for the odd-seat team'"`
	Verbose bool   `kong:"help='Verbose logging'"`
}

func (c *SimulateCmd) Run() error {
	seed := c.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	level := "warn"
	if c.Verbose {
		level = "debug"
	}
	logger := shared.SetupLogger(level, "text")

	result, err := simulate.Run(simulate.Options{
		Mode:   rules.Mode(c.Mode),
		Rounds: c.Rounds,
		Seed:   seed,
		Even:   c.Even,
		Odd:    c.Odd,
		Logger: logger,
	})
	if err != nil {
		return err
	}
	fmt.Println(result.Render())
	return nil
}
