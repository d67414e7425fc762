// Command qshot runs a quantum circuit for many shots and prints the
// outcome counts.
//
// Usage:
//
//	qshot run [transport|bell|file.qasm] [--shots N] [--seed S] [--workers W]
//	qshot qasm [transport|bell|file.qasm]
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"slices"
	"strings"
	"syscall"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"qshot/circuits"
	"qshot/internal/config"
	"qshot/internal/logger"
	"qshot/qsim"
	"qshot/report"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type runFlags struct {
	shots       int
	seed        uint64
	requireSeed bool
	workers     int
	backend     string
	memory      bool
	plain       bool
	out         string
	logLevel    string
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "qshot",
		Short:         "Run quantum circuits on a state-vector simulator",
		SilenceUsage:  true,
		SilenceErrors: false,
	}
	root.AddCommand(newRunCmd(), newQASMCmd())
	return root
}

func newRunCmd() *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "run [circuit|file.qasm]",
		Short: "Run a circuit for many shots and print the count table",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "transport"
			if len(args) == 1 {
				name = args[0]
			}
			return runCircuit(cmd, name, f)
		},
	}
	fl := cmd.Flags()
	fl.IntVarP(&f.shots, "shots", "n", 0, "number of shots (env QSHOT_SHOTS)")
	fl.Uint64VarP(&f.seed, "seed", "s", 0, "base seed (env QSHOT_SEED)")
	fl.BoolVar(&f.requireSeed, "require-seed", false, "fail unless a seed is set (env QSHOT_REQUIRE_SEED)")
	fl.IntVarP(&f.workers, "workers", "w", 0, "parallel workers (env QSHOT_WORKERS)")
	fl.StringVar(&f.backend, "backend", "", "state backend: dense or sparse (env QSHOT_BACKEND)")
	fl.BoolVar(&f.memory, "memory", false, "record every shot's outcome in the exported record")
	fl.BoolVar(&f.plain, "plain", false, "disable the interactive progress view")
	fl.StringVarP(&f.out, "out", "o", "", "write the run record as msgpack to this file")
	fl.StringVar(&f.logLevel, "log-level", "", "log level (env LOG_LEVEL)")
	return cmd
}

func newQASMCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "qasm [circuit|file.qasm]",
		Short: "Print a circuit as OpenQASM 2.0",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "transport"
			if len(args) == 1 {
				name = args[0]
			}
			p, err := loadProgram(name)
			if err != nil {
				return err
			}
			fmt.Fprint(cmd.OutOrStdout(), p.QASM())
			return nil
		},
	}
}

// loadProgram resolves a built-in circuit name or reads a QASM file.
func loadProgram(name string) (*qsim.Program, error) {
	if build, ok := circuits.Builtin[name]; ok {
		return build()
	}
	if !strings.HasSuffix(name, ".qasm") {
		known := make([]string, 0, len(circuits.Builtin))
		for k := range circuits.Builtin {
			known = append(known, k)
		}
		slices.Sort(known)
		return nil, fmt.Errorf("unknown circuit %q (built-in: %s, or a .qasm file)", name, strings.Join(known, ", "))
	}
	src, err := os.ReadFile(name)
	if err != nil {
		return nil, fmt.Errorf("reading circuit: %w", err)
	}
	return qsim.ParseQASM(string(src))
}

func runCircuit(cmd *cobra.Command, name string, f runFlags) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	fl := cmd.Flags()
	if fl.Changed("shots") {
		cfg.Shots = f.shots
	}
	if fl.Changed("seed") {
		cfg.Seed = qsim.SeedOf(f.seed)
	}
	if fl.Changed("require-seed") {
		cfg.RequireSeed = f.requireSeed
	}
	if fl.Changed("workers") {
		cfg.Workers = f.workers
	}
	if fl.Changed("backend") {
		cfg.Backend = f.backend
	}
	if fl.Changed("log-level") {
		cfg.LogLevel = f.logLevel
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	log := logger.New(logger.Config{Level: cfg.LogLevel, Pretty: cfg.Pretty})

	p, err := loadProgram(name)
	if err != nil {
		return err
	}
	backend, err := cfg.BackendFactory()
	if err != nil {
		return err
	}
	exec := qsim.NewExecutor(qsim.WithBackend(backend))
	rc := cfg.RunConfig()
	rc.Memory = f.memory

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	interactive := !f.plain && isatty.IsTerminal(os.Stdout.Fd())
	var res *qsim.Result
	if interactive {
		// Logs would tear the progress view; keep only errors while it is up.
		runner := qsim.NewRunner(qsim.WithExecutor(exec), qsim.WithLogger(log.Level(zerolog.ErrorLevel)))
		res, err = runInteractive(ctx, runner, name, p, rc)
	} else {
		runner := qsim.NewRunner(qsim.WithExecutor(exec), qsim.WithLogger(log))
		res, err = runner.Run(ctx, p, rc)
	}

	var shotErr *qsim.ShotError
	switch {
	case errors.As(err, &shotErr):
		log.Error().Int("shot", shotErr.Shot).Int("partial", shotErr.Partial.Total()).Msg("Run aborted")
		writeAbort(cmd.ErrOrStderr(), shotErr)
		return err
	case err != nil:
		return err
	}

	fmt.Fprint(cmd.OutOrStdout(), report.Summary(name, res))
	if f.out != "" {
		if err := writeRecord(f.out, report.NewRecord(name, p, res)); err != nil {
			return err
		}
		log.Info().Str("path", f.out).Msg("Wrote run record")
	}
	return nil
}

// runInteractive runs the shots in the background while a bubbletea
// program shows progress. Pressing q cancels the run.
func runInteractive(ctx context.Context, runner *qsim.Runner, name string, p *qsim.Program, rc qsim.RunConfig) (*qsim.Result, error) {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	prog := tea.NewProgram(newModel(name, rc.Shots, cancel))
	rc.Progress = progressSender(prog, rc.Shots)

	go func() {
		res, err := runner.Run(ctx, p, rc)
		prog.Send(runDoneMsg{res: res, err: err})
	}()

	final, err := prog.Run()
	if err != nil {
		return nil, fmt.Errorf("progress view: %w", err)
	}
	m := final.(Model)
	return m.res, m.err
}

// writeAbort shows the counts gathered before an aborted shot.
func writeAbort(w io.Writer, e *qsim.ShotError) {
	fmt.Fprintf(w, "partial counts before shot %d (%d shots):\n%s\n", e.Shot, e.Partial.Total(), report.CountTable(e.Partial))
}

func writeRecord(path string, rec report.Record) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %s: %w", path, err)
	}
	if err := report.WriteMsgpack(f, rec); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
