// Command paylensctl explains payroll contributions from the terminal.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/PayLens/internal/config"
	"github.com/MikeSquared-Agency/PayLens/internal/reconcile"
	"github.com/MikeSquared-Agency/PayLens/internal/service"
	"github.com/MikeSquared-Agency/PayLens/internal/solver/backends"
	"github.com/MikeSquared-Agency/PayLens/internal/store"
)

var (
	configPath string
	verbose    bool

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "paylensctl",
	Short: "Explain payroll contributions by the pay codes they were levied on",
	Long: `paylensctl finds the subset of pay codes whose sum, times the contribution
rate, reproduces an observed contribution amount.

Solves run in-process with the configured solver backend. Set
PAYLENS_SOLVER_BACKEND=remote and PAYLENS_SOLVER_URL to solve on a PayLens server.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		level := slog.LevelWarn
		if verbose {
			level = slog.LevelDebug
		}
		logger = slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), &slog.HandlerOptions{Level: level}))
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging to stderr")

	rootCmd.AddCommand(solveCmd, batchCmd, watchCmd, migrateCmd)
}

// newService wires a service without persistence or events; the CLI writes
// its artifacts to local files.
func newService() (*service.Service, error) {
	backend, err := backends.New(cfg.Solver, logger)
	if err != nil {
		return nil, err
	}
	rec := reconcile.New(backend, nil, logger)
	return service.New(rec, store.NewMemoryStore(), nil, nil, cfg, logger), nil
}

func run(args []string, stdout, stderr io.Writer) error {
	rootCmd.SetArgs(args)
	rootCmd.SetOut(stdout)
	rootCmd.SetErr(stderr)
	return rootCmd.Execute()
}

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}
