package main

import (
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	applog "paramgen/internal/log"
	"paramgen/internal/version"
)

var rootCmd = &cobra.Command{
	Use:   "paramgen",
	Short: "Parameter-access code generator for firmware subsystems",
	Long: `paramgen expands C templates written in the $var$/$template$/$p-line$
template language into parameter storage, init, getter and setter code.`,
	SilenceUsage:       true,
	PersistentPreRunE:  setupLogging,
	PersistentPostRunE: closeLogging,
}

var logClosers []io.Closer

func init() {
	rootCmd.Version = version.Version

	rootCmd.AddCommand(genCmd)
	rootCmd.AddCommand(buildCmd)
	rootCmd.AddCommand(diagCmd)
	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)

	rootCmd.PersistentFlags().String("color", "auto", "colorize output (auto|on|off)")
	rootCmd.PersistentFlags().Bool("quiet", false, "suppress non-essential output")
	rootCmd.PersistentFlags().Bool("timings", false, "show timing information")
	rootCmd.PersistentFlags().Int("max-diagnostics", 100, "maximum number of diagnostics to keep per file")
	rootCmd.PersistentFlags().String("log-level", "warn", "log level (trace|debug|info|warn|error)")
	rootCmd.PersistentFlags().String("log-file", "", "also write logs to this file")
}

// main executes the root command and exits with status 1 on error.
func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func setupLogging(cmd *cobra.Command, _ []string) error {
	level, err := cmd.Root().PersistentFlags().GetString("log-level")
	if err != nil {
		return err
	}
	file, err := cmd.Root().PersistentFlags().GetString("log-file")
	if err != nil {
		return err
	}
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return err
	}
	switch colorFlag {
	case "on":
		color.NoColor = false
	case "off":
		color.NoColor = true
	}

	// Logs stay off stdout; gen may print generated code there.
	logger, closers, err := applog.Setup(applog.Options{
		Level: level,
		File:  file,
		Out:   cmd.ErrOrStderr(),
		Err:   cmd.ErrOrStderr(),
	})
	if err != nil {
		return err
	}
	logClosers = closers
	slog.SetDefault(logger)
	return nil
}

func closeLogging(*cobra.Command, []string) error {
	for _, c := range logClosers {
		if err := c.Close(); err != nil {
			return err
		}
	}
	logClosers = nil
	return nil
}

// isTerminal reports whether f is attached to a terminal.
func isTerminal(f *os.File) bool {
	return term.IsTerminal(int(f.Fd()))
}

func useColor(cmd *cobra.Command) (bool, error) {
	colorFlag, err := cmd.Root().PersistentFlags().GetString("color")
	if err != nil {
		return false, err
	}
	return colorFlag == "on" || (colorFlag == "auto" && isTerminal(os.Stdout)), nil
}
