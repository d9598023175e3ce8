// Copyright 2025 The GoGPU Authors
// SPDX-License-Identifier: MIT

package main

import (
	"fmt"
	"os"

	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/gogpu/kernelgen"
	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/irfile"
	"github.com/gogpu/kernelgen/lower"
	"github.com/gogpu/kernelgen/msl"
)

type compileFlags struct {
	dialect      string
	fallback     string
	output       string
	jobs         int
	metalVersion string
	launchBounds uint32
	noRestrict   bool
	verbose      bool
	quiet        bool
}

func newCompileCmd() *cobra.Command {
	var f compileFlags
	cmd := &cobra.Command{
		Use:   "compile [flags] <input.yaml>...",
		Short: "Compile every kernel of the inputs into one translation unit",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCompile(cmd, &f, args)
		},
	}
	flags := cmd.Flags()
	flags.StringVarP(&f.dialect, "dialect", "d", "cuda", "target dialect: cuda, hip or msl")
	flags.StringVar(&f.fallback, "fallback", "synthesize", "unsupported width fallback: synthesize or decompose")
	flags.StringVarP(&f.output, "out", "o", "", "output file (default: stdout)")
	flags.IntVarP(&f.jobs, "jobs", "j", 0, "kernels lowered at once (default: GOMAXPROCS)")
	flags.StringVar(&f.metalVersion, "metal-version", msl.Version3_1.String(), "target MSL version")
	flags.Uint32Var(&f.launchBounds, "launch-bounds", 0, "HIP __launch_bounds__ (0 omits it)")
	flags.BoolVar(&f.noRestrict, "no-restrict", false, "do not mark CUDA buffers __restrict__")
	flags.BoolVarP(&f.verbose, "verbose", "v", false, "log lowering events to stderr")
	flags.BoolVarP(&f.quiet, "quiet", "q", false, "do not print diagnostics")
	return cmd
}

func (f *compileFlags) options(cmd *cobra.Command) (kernelgen.Options, error) {
	opts := kernelgen.DefaultOptions()

	d, err := kernelgen.ParseDialect(f.dialect)
	if err != nil {
		return opts, err
	}
	opts.Dialect = d

	if opts.Fallback, err = lower.ParseFallbackPolicy(f.fallback); err != nil {
		return opts, err
	}
	if opts.MetalVersion, err = msl.ParseVersion(f.metalVersion); err != nil {
		return opts, err
	}
	opts.RestrictPointers = !f.noRestrict
	opts.LaunchBounds = f.launchBounds
	opts.Jobs = f.jobs
	opts.Logger = newLogger(cmd.ErrOrStderr(), f.verbose)
	return opts, nil
}

func runCompile(cmd *cobra.Command, f *compileFlags, inputs []string) error {
	opts, err := f.options(cmd)
	if err != nil {
		return err
	}

	var kernels []*ir.Kernel
	for _, path := range inputs {
		ks, readErr := irfile.ReadFile(path)
		if readErr != nil {
			return fmt.Errorf("%s: %w", path, readErr)
		}
		kernels = append(kernels, ks...)
	}

	res, err := kernelgen.CompileAll(cmd.Context(), kernels, opts)
	if err != nil {
		return err
	}

	if !f.quiet {
		p := newPrinter(cmd.ErrOrStderr())
		for _, d := range res.Diagnostics {
			p.print(d)
		}
	}

	if f.output == "" {
		_, err = fmt.Fprint(cmd.OutOrStdout(), res.Source)
		return err
	}
	if err := os.WriteFile(f.output, []byte(res.Source), 0o644); err != nil {
		return fmt.Errorf("write %s: %w", f.output, err)
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Compiled %d kernel(s) to %s (%s, %s)\n",
		len(res.EntryPoints), f.output, humanize.Bytes(uint64(len(res.Source))), opts.Dialect)
	return nil
}

func newDialectsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "dialects",
		Short: "List the supported dialects",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			for _, d := range kernelgen.Dialects() {
				fmt.Fprintf(cmd.OutOrStdout(), "%-5s %s\n", d, d.Extension())
			}
		},
	}
}
