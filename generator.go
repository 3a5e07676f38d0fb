package tick

import (
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// MaxBatchSize is the largest count GenerateBatch accepts.
const MaxBatchSize = 10000

// Generator issues strictly increasing Instants and encodes them as
// tokens. The zero value is not usable; construct with NewGenerator or
// NewGeneratorWithClock.
//
// Two generation paths share the same monotonic state: Generate
// serializes callers with a mutex and uses the grouped byte encoder,
// GenerateFast runs a lock-free compare-and-swap loop and encodes by
// direct bit extraction. Both produce format-identical tokens and may
// be mixed freely on one Generator.
type Generator struct {
	last uint64 // atomic: ms value of the most recently issued Instant

	mu  sync.Mutex
	now func() int64
}

// NewGenerator creates a Generator backed by the system wall clock.
func NewGenerator() *Generator {
	return NewGeneratorWithClock(func() int64 { return time.Now().UnixMilli() })
}

// NewGeneratorWithClock creates a Generator with an injected wall-clock
// read returning milliseconds since the Unix epoch. Tests use this to
// freeze or rewind time.
func NewGeneratorWithClock(now func() int64) *Generator {
	return &Generator{now: now}
}

// nextInstant reads the wall clock and bumps it past the last issued
// Instant when the clock stalled or regressed. The CAS loop retries
// when a concurrent caller or a fresher clock read moved past the
// candidate, keeping the issued sequence strictly increasing across
// goroutines.
func (g *Generator) nextInstant() (Instant, error) {
	for {
		wall := g.now()
		if wall < 0 {
			return 0, fmt.Errorf("%w: wall clock read %d ms", ErrClockUnavailable, wall)
		}

		last := atomic.LoadUint64(&g.last)
		ms := uint64(wall)
		if ms <= last {
			ms = last + 1
		}
		if atomic.CompareAndSwapUint64(&g.last, last, ms) {
			return Instant(ms), nil
		}
	}
}

// Generate returns the next token using the standard path.
func (g *Generator) Generate() (Token, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	instant, err := g.nextInstant()
	if err != nil {
		return "", err
	}
	return Encode(instant), nil
}

// GenerateFast returns the next token using the lock-free path. The
// output contract is identical to Generate.
func (g *Generator) GenerateFast() (Token, error) {
	instant, err := g.nextInstant()
	if err != nil {
		return "", err
	}
	return encodeDirect(instant), nil
}

// MustGenerate is like Generate but panics on error.
func (g *Generator) MustGenerate() Token {
	tok, err := g.Generate()
	if err != nil {
		panic(err)
	}
	return tok
}

// BatchOptions selects the generation strategy for GenerateBatch. Both
// strategies share the generator's monotonic state; the choice is a
// performance switch, not a behavioral one.
type BatchOptions struct {
	Fast bool
}

// GenerateBatch produces count tokens by invoking the selected path
// count times in sequence. Count must be in [1, MaxBatchSize].
func (g *Generator) GenerateBatch(count int, opts BatchOptions) ([]Token, error) {
	if count < 1 || count > MaxBatchSize {
		return nil, fmt.Errorf("%w: %d not in [1, %d]", ErrInvalidCount, count, MaxBatchSize)
	}

	gen := g.Generate
	if opts.Fast {
		gen = g.GenerateFast
	}

	out := make([]Token, 0, count)
	for i := 0; i < count; i++ {
		tok, err := gen()
		if err != nil {
			return nil, err
		}
		out = append(out, tok)
	}
	return out, nil
}

// Default generator instance backing the package-level functions.
var defaultGenerator = NewGenerator()

// Generate returns the next token from the default generator.
func Generate() (Token, error) {
	return defaultGenerator.Generate()
}

// GenerateFast returns the next token from the default generator using
// the lock-free path.
func GenerateFast() (Token, error) {
	return defaultGenerator.GenerateFast()
}

// MustGenerate is like Generate but panics on error.
func MustGenerate() Token {
	return defaultGenerator.MustGenerate()
}

// New returns a new token, panicking on clock failure.
func New() Token {
	return MustGenerate()
}

// GenerateBatch produces count tokens from the default generator.
func GenerateBatch(count int, opts BatchOptions) ([]Token, error) {
	return defaultGenerator.GenerateBatch(count, opts)
}

// NewBatch produces count tokens, panicking on error.
func NewBatch(count int) []Token {
	toks, err := GenerateBatch(count, BatchOptions{})
	if err != nil {
		panic(err)
	}
	return toks
}
