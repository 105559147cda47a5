package service

import (
	"fmt"
	"testing"
	"time"

	"levelup-loyalty/internal/config"
	"levelup-loyalty/internal/idgen"
	"levelup-loyalty/internal/repository"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/mock"
)

var (
	fixedNow = time.Date(2026, 10, 16, 15, 4, 5, 0, time.UTC)
	anyCtx   = mock.Anything

	errNotFound    = fmt.Errorf("get: %w", repository.ErrNotFound)
	errDuplicate   = fmt.Errorf("insert: %w", repository.ErrDuplicateKey)
	errUnavailable = fmt.Errorf("query: %w", repository.ErrUnavailable)
)

func testDeps(m *mocks) Deps {
	return Deps{
		Repos: m.repos(),
		Hub:   NewHub(),
		IDs:   &idgen.Sequence{},
		Loyalty: config.LoyaltyConfig{
			MemberEmailDomain:     "duoc.cl",
			MemberDiscountPercent: 20,
			LeaderboardSize:       10,
		},
		Clock:  func() time.Time { return fixedNow },
		Logger: zerolog.Nop(),
	}
}

// recv waits for the next value on ch.
func recv[T any](t *testing.T, ch <-chan T) T {
	t.Helper()
	select {
	case v, ok := <-ch:
		if !ok {
			t.Fatal("channel closed")
		}
		return v
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for update")
	}
	var zero T
	return zero
}

// closed waits for ch to be closed.
func closed[T any](t *testing.T, ch <-chan T) bool {
	t.Helper()
	deadline := time.After(2 * time.Second)
	for {
		select {
		case _, ok := <-ch:
			if !ok {
				return true
			}
		case <-deadline:
			return false
		}
	}
}
