// Package simulate plays bot-vs-bot sessions in process, no server
// involved. It exists to pit strategies against each other over many
// rounds and to sanity check rule changes in bulk.
package simulate

import (
	"fmt"
	"io"
	"time"

	rand "math/rand/v2"

	"github.com/charmbracelet/log"

	"github.com/trickwire/twentyeight/internal/bot"
	"github.com/trickwire/twentyeight/internal/game"
	"github.com/trickwire/twentyeight/internal/randutil"
	"github.com/trickwire/twentyeight/internal/rules"
)

// Options configures one simulation run. Even seats play the Even
// strategy, odd seats the Odd one, which lines up with how teams are
// assigned at the table.
type Options struct {
	Mode   rules.Mode
	Rounds int
	Seed   int64
	Even   string
	Odd    string
	Logger *log.Logger
}

// TeamStats aggregates one team's results across the run.
type TeamStats struct {
	Strategy    string
	RoundsWon   int
	BidsWon     int
	BidsMade    int
	TotalPoints int
}

// Result summarizes a finished simulation.
type Result struct {
	Mode    rules.Mode
	Rounds  int
	Seed    int64
	Even    TeamStats
	Odd     TeamStats
	AvgBid  float64
	Elapsed time.Duration
}

// Run plays the configured number of rounds and reports the totals.
// The same options produce the same result.
func Run(opts Options) (*Result, error) {
	if opts.Mode == "" {
		opts.Mode = rules.Mode28
	}
	if opts.Rounds <= 0 {
		opts.Rounds = 1
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	engine, err := game.New(fmt.Sprintf("sim-%d", opts.Seed),
		game.Config{Mode: opts.Mode},
		game.WithRNG(randutil.New(opts.Seed)),
		game.WithLogger(opts.Logger))
	if err != nil {
		return nil, err
	}
	for s := 0; s < engine.Seats(); s++ {
		if _, err := engine.AddPlayer(fmt.Sprintf("sim-%d", s), fmt.Sprintf("Sim %d", s), s); err != nil {
			return nil, err
		}
	}

	evenPolicy := bot.Named(opts.Even)
	oddPolicy := bot.Named(opts.Odd)
	decisionRng := randutil.New(opts.Seed + 1)

	start := time.Now()
	for i := 0; i < opts.Rounds; i++ {
		if err := engine.StartRound(false); err != nil {
			return nil, fmt.Errorf("round %d: %w", i+1, err)
		}
		if err := playRound(engine, evenPolicy, oddPolicy, decisionRng); err != nil {
			return nil, fmt.Errorf("round %d: %w", i+1, err)
		}
	}
	elapsed := time.Since(start)

	return tally(engine, opts, elapsed), nil
}

// playRound drives every seat with its team's policy until the round
// scores. All-pass redeals happen inside the engine, so the loop only
// ever sees states it can act on.
func playRound(e *game.Engine, even, odd bot.Policy, rng *rand.Rand) error {
	for {
		view := e.DriverView()
		switch view.State {
		case game.StateBidding:
			pol := policyFor(view.Turn, even, odd)
			value := pol.Bid(bot.BidView{
				HighBid: view.HighBid,
				MinBid:  view.MinBid,
				MaxBid:  view.MaxBid,
				Hand:    view.Hand,
			}, rng)
			if err := e.PlaceBid(view.Turn, value); err != nil {
				return err
			}
		case game.StateChooseTrump:
			pol := policyFor(view.BidWinner, even, odd)
			if err := e.ChooseTrump(view.BidWinner, pol.Trump(view.Hand)); err != nil {
				return err
			}
		case game.StatePlay:
			pol := policyFor(view.Turn, even, odd)
			if err := e.PlayCard(view.Turn, pol.Play(view.Playable, rng)); err != nil {
				return err
			}
		case game.StateRoundEnd:
			return nil
		default:
			return fmt.Errorf("simulation stuck in state %s", view.State)
		}
	}
}

func policyFor(seat int, even, odd bot.Policy) bot.Policy {
	if seat%2 == 0 {
		return even
	}
	return odd
}

func tally(e *game.Engine, opts Options, elapsed time.Duration) *Result {
	res := &Result{
		Mode:    opts.Mode,
		Seed:    opts.Seed,
		Elapsed: elapsed,
		Even:    TeamStats{Strategy: strategyName(opts.Even)},
		Odd:     TeamStats{Strategy: strategyName(opts.Odd)},
	}

	var bidSum int
	for _, rec := range e.Rounds() {
		res.Rounds++
		bidSum += rec.BidValue

		bidTeamEven := rec.BidWinner%2 == 0
		if bidTeamEven {
			res.Even.BidsWon++
			if rec.BidMade {
				res.Even.BidsMade++
			}
		} else {
			res.Odd.BidsWon++
			if rec.BidMade {
				res.Odd.BidsMade++
			}
		}

		// The bidding team wins the round by making its contract; the
		// defenders win by setting it.
		if bidTeamEven == rec.BidMade {
			res.Even.RoundsWon++
		} else {
			res.Odd.RoundsWon++
		}

		res.Even.TotalPoints += rec.TeamEven
		res.Odd.TotalPoints += rec.TeamOdd
	}
	if res.Rounds > 0 {
		res.AvgBid = float64(bidSum) / float64(res.Rounds)
	}
	return res
}

func strategyName(name string) string {
	if name == "" {
		return "default"
	}
	return name
}
