package game

import "github.com/trickwire/twentyeight/internal/rules"

// Config fixes the immutable parameters of a session. Zero values fall
// back to the mode defaults in Normalize.
type Config struct {
	Mode      rules.Mode `json:"mode"`
	MaxBid    int        `json:"max_bid"`
	TrumpMode TrumpMode  `json:"trump_mode"`
}

// Normalize fills defaults and validates the variant.
func (c Config) Normalize() (Config, error) {
	if c.Mode == "" {
		c.Mode = rules.Mode28
	}
	if !c.Mode.Valid() {
		return c, Errf(KindInvalidValue, "unknown mode %q", c.Mode)
	}
	if c.MaxBid == 0 {
		c.MaxBid = c.Mode.MaxBid()
	}
	if c.MaxBid < c.Mode.MinBid() || c.MaxBid > c.Mode.TotalPoints() {
		return c, Errf(KindInvalidValue, "max bid %d out of range for mode %s", c.MaxBid, c.Mode)
	}
	if c.TrumpMode == "" {
		c.TrumpMode = TrumpModeOnFirstNonFollow
	}
	if !c.TrumpMode.Valid() {
		return c, Errf(KindInvalidValue, "unknown trump mode %q", c.TrumpMode)
	}
	return c, nil
}

// Seats returns the seat count fixed by the mode.
func (c Config) Seats() int {
	return c.Mode.Seats()
}

// MinBid returns the opening bid floor fixed by the mode.
func (c Config) MinBid() int {
	return c.Mode.MinBid()
}
