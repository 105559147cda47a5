// Package idgen generates order numbers and referral codes.
package idgen

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"sync"
	"time"
	"unicode/utf8"
)

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// Generator produces identifiers for purchases and referral programs.
type Generator interface {
	// OrderNumber returns a new order number such as ORD-1718000000000-4821.
	OrderNumber() string
	// ReferralCode returns a new referral code such as LVLUP-JUAN-X7K2QA.
	ReferralCode(username string) string
}

// Option configures a random generator.
type Option func(*randomGenerator)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(g *randomGenerator) {
		g.now = now
	}
}

// WithSeed makes the generator deterministic.
func WithSeed(seed1, seed2 uint64) Option {
	return func(g *randomGenerator) {
		g.rng = rand.New(rand.NewPCG(seed1, seed2))
	}
}

type randomGenerator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a timestamp plus random suffix generator.
func New(opts ...Option) Generator {
	g := &randomGenerator{
		rng: rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		now: time.Now,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *randomGenerator) OrderNumber() string {
	g.mu.Lock()
	suffix := 1000 + g.rng.IntN(9000)
	g.mu.Unlock()

	return fmt.Sprintf("ORD-%d-%d", g.now().UnixMilli(), suffix)
}

func (g *randomGenerator) ReferralCode(username string) string {
	prefix := strings.ToUpper(username)
	if utf8.RuneCountInString(prefix) > 4 {
		prefix = string([]rune(prefix)[:4])
	}

	var b strings.Builder
	b.Grow(6)

	g.mu.Lock()
	for i := 0; i < 6; i++ {
		b.WriteByte(codeAlphabet[g.rng.IntN(len(codeAlphabet))])
	}
	g.mu.Unlock()

	return "LVLUP-" + prefix + "-" + b.String()
}

// Sequence is a deterministic generator that hands out predictable values.
type Sequence struct {
	mu     sync.Mutex
	orders int
	codes  int
}

// OrderNumber returns ORD-TEST-1, ORD-TEST-2 and so on.
func (s *Sequence) OrderNumber() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.orders++
	return fmt.Sprintf("ORD-TEST-%d", s.orders)
}

// ReferralCode returns LVLUP-<USERNAME>-<n>.
func (s *Sequence) ReferralCode(username string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.codes++
	return fmt.Sprintf("LVLUP-%s-%d", strings.ToUpper(username), s.codes)
}
