package main

import (
	"log/slog"

	"github.com/spf13/cobra"
)

// newRootCmd builds the command tree. Each call returns fresh flag state.
func newRootCmd() *cobra.Command {
	var logLevel string

	rootCmd := &cobra.Command{
		Use:   "robustsolve",
		Short: "Root finding and minimization for functions with restricted domains",
		Long: `RobustSolve finds roots of scalar functions by bisection and minimizes functions
of two variables by pattern search. Functions may be undefined on part of the
search region: the bracket is narrowed to the domain before bisecting, and the
pattern search backs off from undefined points.`,
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			// Setup logger
			var level slog.Level
			switch logLevel {
			case "debug":
				level = slog.LevelDebug
			case "info":
				level = slog.LevelInfo
			case "warn":
				level = slog.LevelWarn
			case "error":
				level = slog.LevelError
			default:
				level = slog.LevelInfo
			}

			opts := &slog.HandlerOptions{Level: level}
			handler := slog.NewJSONHandler(cmd.ErrOrStderr(), opts)
			slog.SetDefault(slog.New(handler))
		},
	}

	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "warn", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newBisectCmd(),
		newNarrowCmd(),
		newRootsCmd(),
		newFminCmd(),
		newServeCmd(),
		newStatusCmd(),
		newVersionCmd(),
	)
	return rootCmd
}
