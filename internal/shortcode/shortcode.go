// Package shortcode generates the human-friendly join codes that
// identify sessions, like "royal-turtle-65". Codes are meant to be read
// over voice chat, so the word lists avoid anything easily confused.
package shortcode

import (
	"crypto/rand"
	"encoding/binary"
	"fmt"
	"strconv"
	"strings"
)

var adjectives = []string{
	"amber", "bold", "brave", "bright", "calm", "clever", "cosmic",
	"crimson", "daring", "dusty", "eager", "fancy", "fierce", "frosty",
	"gentle", "gilded", "golden", "grand", "happy", "hasty", "hidden",
	"humble", "ivory", "jolly", "keen", "lively", "lucky", "mellow",
	"mighty", "misty", "noble", "polar", "proud", "quick", "quiet",
	"rapid", "royal", "rustic", "silent", "silver", "sly", "snowy",
	"solar", "stormy", "swift", "velvet", "vivid", "wild",
}

var animals = []string{
	"badger", "bison", "camel", "cobra", "condor", "crane", "dingo",
	"donkey", "eagle", "falcon", "ferret", "gecko", "gibbon", "heron",
	"hornet", "ibis", "jackal", "jaguar", "koala", "lemur", "leopard",
	"lizard", "llama", "magpie", "mantis", "marmot", "mole", "moose",
	"ocelot", "osprey", "otter", "panda", "parrot", "pelican", "puffin",
	"python", "rabbit", "raven", "salmon", "shrike", "sparrow", "stoat",
	"tapir", "toucan", "turtle", "walrus", "weasel", "wombat",
}

// RandSource supplies the random draws behind a code. *rand.Rand from
// math/rand/v2 satisfies it.
type RandSource interface {
	IntN(n int) int
}

// cryptoSource backs the default generator with crypto/rand.
type cryptoSource struct{}

func (cryptoSource) IntN(n int) int {
	var buf [8]byte
	if _, err := rand.Read(buf[:]); err != nil {
		panic("shortcode: crypto/rand failed: " + err.Error())
	}
	return int(binary.BigEndian.Uint64(buf[:]) % uint64(n))
}

// Generator produces join codes from a configurable random source.
type Generator struct {
	src RandSource
}

// NewGenerator creates a generator. A nil source falls back to
// crypto/rand.
func NewGenerator(src RandSource) *Generator {
	if src == nil {
		src = cryptoSource{}
	}
	return &Generator{src: src}
}

// Generate creates a code with the default crypto/rand source.
func Generate() string {
	return NewGenerator(nil).Generate()
}

// Generate creates one adjective-animal-number code. The number runs
// 10-99 so every code has the same printed width. Uniqueness is the
// caller's problem; the registry retries on collision.
func (g *Generator) Generate() string {
	adj := adjectives[g.src.IntN(len(adjectives))]
	animal := animals[g.src.IntN(len(animals))]
	n := 10 + g.src.IntN(90)
	return fmt.Sprintf("%s-%s-%d", adj, animal, n)
}

// Validate checks the adjective-animal-number shape without consulting
// the word lists, so codes survive future list edits.
func Validate(code string) error {
	parts := strings.Split(code, "-")
	if len(parts) != 3 {
		return fmt.Errorf("code %q must have three dash-separated parts", code)
	}
	for _, word := range parts[:2] {
		if word == "" {
			return fmt.Errorf("code %q has an empty word", code)
		}
		for _, r := range word {
			if r < 'a' || r > 'z' {
				return fmt.Errorf("code %q contains %q, want lowercase letters", code, r)
			}
		}
	}
	n, err := strconv.Atoi(parts[2])
	if err != nil || n < 10 || n > 99 {
		return fmt.Errorf("code %q must end in a two-digit number", code)
	}
	return nil
}
