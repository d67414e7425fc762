package qsim

import (
	"context"
	"encoding/binary"
	"errors"
	"math/rand/v2"
	"runtime"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

// RunConfig holds the parameters of one aggregation run.
type RunConfig struct {
	Shots int
	// Seed fixes the base seed. When nil a seed is drawn and reported in
	// Result.Seed so the run can be replayed.
	Seed *uint64
	// RequireSeed rejects a nil Seed instead of drawing one.
	RequireSeed bool
	// Workers bounds the number of shots simulated in parallel. Zero means
	// GOMAXPROCS.
	Workers int
	// Memory records each shot's outcome in Result.Memory.
	Memory bool
	// Progress, if set, is called after every completed shot from a single
	// goroutine at a time.
	Progress func(done, total int)
}

// SeedOf returns a pointer to v, for RunConfig.Seed.
func SeedOf(v uint64) *uint64 { return &v }

// Validate checks the run parameters without touching the program.
func (c RunConfig) Validate() error {
	if c.Shots <= 0 {
		return configErrorf("shot count must be positive, got %d", c.Shots)
	}
	if c.Workers < 0 {
		return configErrorf("worker count must not be negative, got %d", c.Workers)
	}
	if c.RequireSeed && c.Seed == nil {
		return configErrorf("a seed is required for a reproducible run")
	}
	return nil
}

// Result is the outcome of one aggregation run.
type Result struct {
	ID        uuid.UUID
	Counts    Counts
	Requested int
	Completed int
	Seed      uint64
	Workers   int
	// Memory holds the outcome of shot i at index i when RunConfig.Memory
	// is set. Shots that never ran are left empty.
	Memory  []string
	Elapsed time.Duration
}

// Complete reports whether every requested shot ran. A canceled run returns
// a partial result with Complete false.
func (r *Result) Complete() bool {
	return r.Completed == r.Requested
}

// Runner repeats a program over many independent shots and aggregates the
// outcomes.
type Runner struct {
	exec   *Executor
	logger zerolog.Logger
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the logger used for run lifecycle events.
func WithLogger(l zerolog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = l }
}

// WithExecutor replaces the default dense executor.
func WithExecutor(e *Executor) RunnerOption {
	return func(r *Runner) { r.exec = e }
}

// NewRunner returns a runner with a dense executor and a no-op logger
// unless overridden.
func NewRunner(opts ...RunnerOption) *Runner {
	r := &Runner{exec: NewExecutor(), logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes p for shots shots from base seed using a default runner.
func Run(ctx context.Context, p *Program, shots int, seed uint64) (*Result, error) {
	return NewRunner().Run(ctx, p, RunConfig{Shots: shots, Seed: SeedOf(seed)})
}

// ShotRand returns the random stream for one shot. It depends only on the
// base seed and the shot index, so results do not depend on which worker
// runs which shot.
func ShotRand(seed uint64, shot int) *rand.Rand {
	var key [32]byte
	binary.LittleEndian.PutUint64(key[0:8], seed)
	binary.LittleEndian.PutUint64(key[8:16], uint64(shot))
	return rand.New(rand.NewChaCha8(key))
}

// tally is the single mutation point for results coming back from workers.
type tally struct {
	mu       sync.Mutex
	counts   Counts
	memory   []string
	done     int
	total    int
	progress func(done, total int)
}

func (t *tally) record(shot int, out Outcome) {
	key := out.String()
	t.mu.Lock()
	defer t.mu.Unlock()
	t.counts[key]++
	if t.memory != nil {
		t.memory[shot] = key
	}
	t.done++
	if t.progress != nil {
		t.progress(t.done, t.total)
	}
}

// runShot executes one shot. A panic in the executor or backend becomes a
// domain error for that shot so the run aborts like any other failure.
func (r *Runner) runShot(p *Program, seed uint64, shot int) (out Outcome, err error) {
	defer func() {
		if v := recover(); v != nil {
			out, err = nil, domainErrorf("shot panicked: %v", v)
		}
	}()
	return r.exec.RunOnce(p, ShotRand(seed, shot))
}

// Run executes p cfg.Shots times. Each shot starts from a fresh state and
// draws from ShotRand(seed, shot).
//
// If ctx is canceled the run stops between shots and returns the partial
// result with a nil error; check Result.Complete. A domain error in any
// shot aborts the run and is returned as a *ShotError alongside the partial
// result. A backend too narrow for the program fails with ErrConfig and a
// nil result.
func (r *Runner) Run(ctx context.Context, p *Program, cfg RunConfig) (*Result, error) {
	if p == nil {
		return nil, configErrorf("nil program")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	seed := rand.Uint64()
	if cfg.Seed != nil {
		seed = *cfg.Seed
	}
	workers := cfg.Workers
	if workers == 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	workers = min(workers, cfg.Shots)

	res := &Result{
		ID:        uuid.New(),
		Requested: cfg.Shots,
		Seed:      seed,
		Workers:   workers,
	}
	log := r.logger.With().Str("run_id", res.ID.String()).Logger()
	log.Debug().
		Int("shots", cfg.Shots).
		Uint64("seed", seed).
		Int("workers", workers).
		Int("qubits", p.NumQubits()).
		Int("gates", p.GateCount()).
		Msg("Starting shot run")

	t := &tally{counts: make(Counts), total: cfg.Shots, progress: cfg.Progress}
	if cfg.Memory {
		t.memory = make([]string, cfg.Shots)
	}

	start := time.Now()
	g, gctx := errgroup.WithContext(ctx)
	shots := make(chan int)

	g.Go(func() error {
		defer close(shots)
		for i := range cfg.Shots {
			select {
			case shots <- i:
			case <-gctx.Done():
				return nil
			}
		}
		return nil
	})

	for range workers {
		g.Go(func() error {
			for i := range shots {
				if gctx.Err() != nil {
					return nil
				}
				out, err := r.runShot(p, seed, i)
				if errors.Is(err, ErrConfig) {
					return err
				}
				if err != nil {
					return &ShotError{Shot: i, Err: err}
				}
				t.record(i, out)
			}
			return nil
		})
	}

	err := g.Wait()
	res.Elapsed = time.Since(start)
	res.Counts = t.counts
	res.Completed = t.done
	res.Memory = t.memory

	var shotErr *ShotError
	if errors.As(err, &shotErr) {
		shotErr.Partial = res.Counts.Clone()
		log.Error().Err(shotErr.Err).Int("shot", shotErr.Shot).Int("completed", res.Completed).Msg("Shot run aborted")
		return res, shotErr
	}
	if err != nil {
		// The backend refused the program before any state was built.
		log.Error().Err(err).Msg("Shot run rejected")
		return nil, err
	}

	if !res.Complete() {
		log.Warn().
			Int("completed", res.Completed).
			Int("requested", res.Requested).
			Err(ctx.Err()).
			Msg("Shot run canceled")
		return res, nil
	}

	log.Info().
		Int("shots", res.Completed).
		Int("outcomes", len(res.Counts)).
		Dur("elapsed", res.Elapsed).
		Msg("Shot run complete")
	return res, nil
}
