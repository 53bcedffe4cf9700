// Package challenge manages the prompt catalog used by verification
// sessions. A session receives a fixed number of distinct prompts drawn
// uniformly at random without replacement; prompts are never reused
// across sessions for the same attempt because every session draws fresh.
package challenge

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"os"
	"strings"
)

// ErrCatalogTooSmall is returned when a draw requests more prompts than
// the catalog holds.
var ErrCatalogTooSmall = errors.New("challenge: catalog too small")

// defaultPrompts is the built-in sentence catalog.
var defaultPrompts = []string{
	"Technology is evolving every single day.",
	"The weather today is quite unpredictable.",
	"Artificial intelligence is shaping the future.",
	"A healthy diet leads to a better lifestyle.",
	"Music has the power to change your mood.",
	"Mountains offer breathtaking views and adventures.",
	"Snowfall transforms the landscape beautifully.",
	"Reading daily improves vocabulary and comprehension.",
	"Small acts of kindness can make a big difference.",
	"Social media connects people worldwide.",
	"Blockchain technology ensures secure transactions.",
}

// Catalog is an immutable set of challenge prompts.
type Catalog struct {
	prompts []string
}

// New creates a catalog from the given prompts. Blank lines are dropped
// and duplicates removed; at least one prompt must remain.
func New(prompts []string) (*Catalog, error) {
	seen := make(map[string]bool, len(prompts))
	out := make([]string, 0, len(prompts))
	for _, p := range prompts {
		p = strings.TrimSpace(p)
		if p == "" || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, errors.New("challenge: no prompts")
	}
	return &Catalog{prompts: out}, nil
}

// Default returns the built-in catalog.
func Default() *Catalog {
	c, err := New(defaultPrompts)
	if err != nil {
		panic(err) // unreachable: defaultPrompts is non-empty
	}
	return c
}

// Load reads a catalog from a file with one prompt per line.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("challenge: load %s: %w", path, err)
	}
	return New(strings.Split(string(data), "\n"))
}

// Draw samples n distinct prompts uniformly at random without replacement.
// The returned order is the order the caller must present them in.
func (c *Catalog) Draw(n int) ([]string, error) {
	if n <= 0 {
		return nil, fmt.Errorf("challenge: invalid draw size %d", n)
	}
	if n > len(c.prompts) {
		return nil, fmt.Errorf("%w: need %d, have %d", ErrCatalogTooSmall, n, len(c.prompts))
	}
	perm := rand.Perm(len(c.prompts))
	out := make([]string, n)
	for i := range out {
		out[i] = c.prompts[perm[i]]
	}
	return out, nil
}

// Len returns the number of prompts in the catalog.
func (c *Catalog) Len() int { return len(c.prompts) }

// Prompts returns a copy of the catalog contents.
func (c *Catalog) Prompts() []string {
	out := make([]string, len(c.prompts))
	copy(out, c.prompts)
	return out
}
