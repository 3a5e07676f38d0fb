// Benchmark tool for tick tokens. Compares generation throughput,
// ordering behavior and sort cost against UUID v4, ULID and KSUID.
package main

import (
	"fmt"
	"math/rand"
	"os"
	"runtime"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/segmentio/ksuid"
	"github.com/spf13/cobra"

	"github.com/tick-id/tick"
)

var iterations int

func main() {
	log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})

	rootCmd := &cobra.Command{
		Use:   "benchmark",
		Short: "tick benchmark suite",
		Long:  "Measures tick token generation against UUID v4, ULID and KSUID.",
		Run: func(cmd *cobra.Command, args []string) {
			printHeader()
			runGeneration()
			runBatch()
			runConcurrent()
			runOrdering()
			runCollision()
		},
	}
	rootCmd.PersistentFlags().IntVarP(&iterations, "iterations", "n", 500000, "iterations per generation test")

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "generation",
			Short: "Single-call generation throughput",
			Run:   func(cmd *cobra.Command, args []string) { printHeader(); runGeneration() },
		},
		&cobra.Command{
			Use:   "batch",
			Short: "Batch generation throughput",
			Run:   func(cmd *cobra.Command, args []string) { printHeader(); runBatch() },
		},
		&cobra.Command{
			Use:   "concurrent",
			Short: "Multi-goroutine generation throughput",
			Run:   func(cmd *cobra.Command, args []string) { printHeader(); runConcurrent() },
		},
		&cobra.Command{
			Use:   "ordering",
			Short: "Lexicographic ordering and sort cost",
			Run:   func(cmd *cobra.Command, args []string) { printHeader(); runOrdering() },
		},
		&cobra.Command{
			Use:   "collision",
			Short: "Uniqueness under a tight generation loop",
			Run:   func(cmd *cobra.Command, args []string) { printHeader(); runCollision() },
		},
	)

	if err := rootCmd.Execute(); err != nil {
		log.Fatal().Err(err).Msg("benchmark failed")
	}
}

func printHeader() {
	fmt.Println("tick benchmark")
	fmt.Printf("Go %s on %s/%s, %d cores\n\n",
		runtime.Version(), runtime.GOOS, runtime.GOARCH, runtime.NumCPU())
}

func runGeneration() {
	fmt.Println("Generation Performance")
	fmt.Println("----------------------")

	g := tick.NewGenerator()

	tests := []struct {
		name string
		fn   func() error
	}{
		{"tick", func() error {
			_, err := g.Generate()
			return err
		}},
		{"tick fast", func() error {
			_, err := g.GenerateFast()
			return err
		}},
		{"UUID v4", func() error {
			_ = uuid.New()
			return nil
		}},
		{"ULID", func() error {
			_ = ulid.Make()
			return nil
		}},
		{"KSUID", func() error {
			_ = ksuid.New()
			return nil
		}},
	}

	for _, test := range tests {
		// Warmup
		for i := 0; i < 1000; i++ {
			if err := test.fn(); err != nil {
				log.Fatal().Err(err).Str("test", test.name).Msg("warmup failed")
			}
		}

		start := time.Now()
		for i := 0; i < iterations; i++ {
			if err := test.fn(); err != nil {
				log.Fatal().Err(err).Str("test", test.name).Msg("generation failed")
			}
		}
		elapsed := time.Since(start)

		opsPerSec := float64(iterations) / elapsed.Seconds()
		nsPerOp := elapsed.Nanoseconds() / int64(iterations)
		fmt.Printf("%-10s %10.0f ops/sec  %6d ns/op\n", test.name, opsPerSec, nsPerOp)
	}
	fmt.Println()
}

func runBatch() {
	fmt.Println("Batch Generation")
	fmt.Println("----------------")

	sizes := []int{100, 1000, 10000}
	g := tick.NewGenerator()

	for _, size := range sizes {
		fmt.Printf("Batch size %d:\n", size)

		for _, opts := range []tick.BatchOptions{{Fast: false}, {Fast: true}} {
			start := time.Now()
			if _, err := g.GenerateBatch(size, opts); err != nil {
				log.Fatal().Err(err).Int("size", size).Msg("batch failed")
			}
			elapsed := time.Since(start)

			name := "standard"
			if opts.Fast {
				name = "fast"
			}
			fmt.Printf("  %-8s %10.0f tokens/sec\n", name, float64(size)/elapsed.Seconds())
		}
		fmt.Println()
	}
}

func runConcurrent() {
	fmt.Println("Concurrent Generation")
	fmt.Println("---------------------")

	const workers = 4
	const perWorker = 50000

	g := tick.NewGenerator()
	start := time.Now()

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if _, err := g.GenerateFast(); err != nil {
					log.Error().Err(err).Msg("concurrent generation failed")
					return
				}
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	rate := float64(workers*perWorker) / elapsed.Seconds()
	fmt.Printf("tick fast: %10.0f tokens/sec (%d workers)\n\n", rate, workers)
}

func runOrdering() {
	fmt.Println("Chronological Ordering")
	fmt.Println("----------------------")

	const count = 50000

	tokens := make([]tick.Token, count)
	uuids := make([]string, count)
	for i := 0; i < count; i++ {
		tokens[i] = tick.New()
		uuids[i] = uuid.New().String()
	}

	// Generation order must already be chronological order.
	byTime := func(i, j int) bool { return tokens[i].Less(tokens[j]) }
	ordered := sort.SliceIsSorted(tokens, byTime)
	fmt.Printf("Generated %d tokens, issued in order: %v\n", count, ordered)

	rand.Shuffle(len(tokens), func(i, j int) {
		tokens[i], tokens[j] = tokens[j], tokens[i]
	})
	rand.Shuffle(len(uuids), func(i, j int) {
		uuids[i], uuids[j] = uuids[j], uuids[i]
	})

	start := time.Now()
	sort.Slice(tokens, byTime)
	tickSort := time.Since(start)

	start = time.Now()
	sort.Strings(uuids)
	uuidSort := time.Since(start)

	fmt.Printf("tick sort (Token.Less):   %v\n", tickSort)
	fmt.Printf("UUID sort (string order): %v\n\n", uuidSort)
}

func runCollision() {
	fmt.Println("Collision Test")
	fmt.Println("--------------")

	const count = 500000
	seen := make(map[tick.Token]bool, count)
	collisions := 0

	g := tick.NewGenerator()
	start := time.Now()
	for i := 0; i < count; i++ {
		tok, err := g.GenerateFast()
		if err != nil {
			log.Fatal().Err(err).Msg("generation failed")
		}
		if seen[tok] {
			collisions++
		} else {
			seen[tok] = true
		}
	}
	elapsed := time.Since(start)

	fmt.Printf("Generated: %d tokens in %v\n", count, elapsed)
	fmt.Printf("Collisions: %d\n", collisions)
	fmt.Printf("Unique rate: %.4f%%\n\n", float64(len(seen))/float64(count)*100)
}
