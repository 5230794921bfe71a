// Package game implements the rules engine for the trick-taking card
// games 28 and 56.
//
// The main type is Engine, which owns one session's full lifecycle:
// seating, dealing, the bidding auction, concealed trump selection,
// trick play with its reveal rules, and round scoring.
//
// # Basic usage
//
// Create an engine, seat players, and run a round:
//
//	e, _ := game.New("session-1", game.Config{Mode: rules.Mode28})
//	e.AddPlayer("p1", "Alice", 0)
//	e.AddPlayer("p2", "Bob", 1)
//	e.StartRound(true) // fill the remaining seats with bots
//	e.PlaceBid(1, 16)
//
// All methods are safe for concurrent use. Mutating calls return
// errors carrying a stable Kind (see errors.go) that transports can
// hand to clients verbatim.
//
// Engines serialize with Snapshot and come back with Restore, so a
// server can persist after every accepted action and revive sessions
// on demand.
package game
