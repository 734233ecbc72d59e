// Package cmd provides the command-line interface of threadviz.
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	"github.com/tebeka/atexit"
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "threadviz",
	Short: "threadviz draws the timeline of an accelerator/worker trace.",
	Long: `threadviz reads the task logs of a program where worker threads ` +
		`offload work to one accelerator thread, and draws what every ` +
		`thread was doing over time.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute adds all child commands to the root command and sets flags
// appropriately.
func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		atexit.Exit(1)
	}

	atexit.Exit(0)
}

func newLogger(level string) (zerolog.Logger, error) {
	l, err := zerolog.ParseLevel(strings.ToLower(level))
	if err != nil {
		return zerolog.Nop(), fmt.Errorf("invalid log level %q", level)
	}

	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(l).
		With().
		Timestamp().
		Logger(), nil
}
