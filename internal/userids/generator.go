package userids

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
)

const (
	// Min and Max bound the seven-digit public id space, inclusive.
	Min = 1_000_000
	Max = 9_999_999

	DefaultMaxAttempts = 32
)

// ErrIDSpaceExhausted is returned when every candidate drawn was taken.
var ErrIDSpaceExhausted = errors.New("user id space exhausted")

// Checker reports whether a candidate id is already stored.
type Checker interface {
	ExistsByUserID(ctx context.Context, userID string) (bool, error)
}

// Recorder observes how many candidates each generation needed.
type Recorder interface {
	ObserveUserIDAttempts(attempts int)
}

// Generator draws random seven-digit ids until one is free in the store.
type Generator struct {
	maxAttempts int
	intN        func(n int) int
	recorder    Recorder
}

type Option func(*Generator)

// WithSource replaces the random source; intN must return a value in [0, n).
func WithSource(intN func(n int) int) Option {
	return func(g *Generator) { g.intN = intN }
}

func WithRecorder(r Recorder) Option {
	return func(g *Generator) { g.recorder = r }
}

func NewGenerator(maxAttempts int, opts ...Option) *Generator {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxAttempts
	}
	g := &Generator{maxAttempts: maxAttempts, intN: rand.IntN}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// MaxAttempts returns the candidate ceiling per Generate call.
func (g *Generator) MaxAttempts() int {
	return g.maxAttempts
}

// Generate returns an id absent from checker at the time of the check.
func (g *Generator) Generate(ctx context.Context, checker Checker) (string, error) {
	for attempt := 1; attempt <= g.maxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", err
		}
		candidate := strconv.Itoa(Min + g.intN(Max-Min+1))
		taken, err := checker.ExistsByUserID(ctx, candidate)
		if err != nil {
			return "", fmt.Errorf("checking user id: %w", err)
		}
		if !taken {
			g.observe(attempt)
			return candidate, nil
		}
	}
	g.observe(g.maxAttempts)
	return "", ErrIDSpaceExhausted
}

func (g *Generator) observe(attempts int) {
	if g.recorder != nil {
		g.recorder.ObserveUserIDAttempts(attempts)
	}
}
