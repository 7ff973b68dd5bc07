// Command pdfcmp compares two PDF files structurally and, optionally,
// visually.
//
// Exit status: 0 when the documents are equivalent, 1 when differences were
// found, 2 on any error.
package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/fatih/color"
	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/benedoc-inc/pdfcmp"
	"github.com/benedoc-inc/pdfcmp/types"
)

const (
	exitEqual     = 0
	exitDifferent = 1
	exitError     = 2
)

// errDifferent is returned by a command that ran to completion and found
// differences.
var errDifferent = errors.New("documents differ")

func main() {
	os.Exit(run(os.Args[1:], os.Stdout, os.Stderr))
}

func run(args []string, stdout, stderr io.Writer) int {
	root := newRootCmd(stdout, stderr)
	root.SetArgs(args)
	err := root.Execute()
	switch {
	case err == nil:
		return exitEqual
	case errors.Is(err, errDifferent):
		return exitDifferent
	}
	fmt.Fprintf(stderr, "%s %v\n", paint(stderr, color.FgRed).Sprint("error:"), err)
	switch {
	case types.IsToolError(err):
		fmt.Fprintln(stderr, "the visual comparison needs Ghostscript and ImageMagick; install them or run without --visual")
	case types.IsLoadError(err):
		fmt.Fprintln(stderr, "a document could not be loaded; run \"pdfcmp inspect -v <file>\" for loader diagnostics")
	}
	return exitError
}

type globalFlags struct {
	verbose bool
	logFile string
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	g := &globalFlags{}
	root := &cobra.Command{
		Use:           "pdfcmp",
		Short:         "Compare PDF documents by structure",
		Long:          `pdfcmp walks the object graphs of two PDF files side by side and reports where they differ. Pages compare by position, volatile entries such as modification dates are ignored.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "Enable debug logging")
	root.PersistentFlags().StringVar(&g.logFile, "log", "", "Path to log file (if empty, logs to stderr)")

	root.AddCommand(newCompareCmd(g), newInspectCmd(g), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the pdfcmp version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "pdfcmp %s\n", pdfcmp.Version())
		},
	}
}

// logger builds the command's logger. The returned close function releases
// the log file, if any.
func (g *globalFlags) logger(stderr io.Writer) (*slog.Logger, func(), error) {
	level := slog.LevelWarn
	if g.verbose {
		level = slog.LevelDebug
	}
	w, closeFn := stderr, func() {}
	if g.logFile != "" {
		f, err := os.Create(g.logFile)
		if err != nil {
			return nil, nil, fmt.Errorf("cannot create log file: %w", err)
		}
		w, closeFn = f, func() { f.Close() }
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})), closeFn, nil
}

// paint returns a color that is only applied when w is a terminal.
func paint(w io.Writer, attrs ...color.Attribute) *color.Color {
	c := color.New(attrs...)
	if f, ok := w.(*os.File); ok && isatty.IsTerminal(f.Fd()) {
		c.EnableColor()
	} else {
		c.DisableColor()
	}
	return c
}
