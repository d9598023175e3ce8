// Command kernelc compiles YAML kernel descriptions to CUDA, HIP or Metal
// source.
//
// Usage:
//
//	kernelc compile [flags] <input.yaml>...
//	kernelc dialects
//
// Examples:
//
//	kernelc compile kernels.yaml                     # CUDA to stdout
//	kernelc compile -d msl -o kernels.metal k.yaml   # Metal to a file
//	kernelc compile -d hip --fallback decompose k.yaml
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"
)

const kernelcVersion = "0.1.0-dev"

func main() {
	root := newRootCmd(os.Stdout, os.Stderr)
	if err := root.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "kernelc",
		Short:         "Compile GPU kernels to CUDA, HIP and Metal source",
		Version:       kernelcVersion,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)
	root.AddCommand(newCompileCmd(), newDialectsCmd())
	return root
}

// newLogger returns a text logger on w, or nil when verbose is off.
func newLogger(w io.Writer, verbose bool) *slog.Logger {
	if !verbose {
		return nil
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}
