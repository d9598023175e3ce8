// Package kernelgen compiles GPU compute kernels to CUDA, HIP and Metal
// source.
//
// Kernels come in as ir.Kernel values, built with ir.Builder or decoded
// from YAML by the irfile package. Each kernel is lowered once per dialect
// and rendered as a single translation unit:
//
//	k, err := b.Finish()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	res, err := kernelgen.Compile(k, kernelgen.DefaultOptions())
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Print(res.Source)
//
// For per-dialect control, use the cuda, hip and msl packages directly.
package kernelgen

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime"
	"strings"

	"github.com/cespare/xxhash/v2"
	"github.com/samber/lo"
	"golang.org/x/sync/errgroup"

	"github.com/gogpu/kernelgen/cuda"
	"github.com/gogpu/kernelgen/hip"
	"github.com/gogpu/kernelgen/ir"
	"github.com/gogpu/kernelgen/irfile"
	"github.com/gogpu/kernelgen/lower"
	"github.com/gogpu/kernelgen/msl"
)

// Dialect is a target source language.
type Dialect uint8

const (
	CUDA Dialect = iota
	HIP
	Metal
)

// Dialects returns every supported dialect.
func Dialects() []Dialect {
	return []Dialect{CUDA, HIP, Metal}
}

// String returns "cuda", "hip" or "msl".
func (d Dialect) String() string {
	switch d {
	case CUDA:
		return "cuda"
	case HIP:
		return "hip"
	case Metal:
		return "msl"
	default:
		return fmt.Sprintf("dialect(%d)", d)
	}
}

// Extension returns the conventional source file extension.
func (d Dialect) Extension() string {
	switch d {
	case CUDA:
		return ".cu"
	case HIP:
		return ".hip"
	default:
		return ".metal"
	}
}

// ParseDialect looks up a dialect by name. "metal" is accepted for Metal.
func ParseDialect(s string) (Dialect, error) {
	switch strings.ToLower(s) {
	case "cuda":
		return CUDA, nil
	case "hip":
		return HIP, nil
	case "msl", "metal":
		return Metal, nil
	default:
		return 0, fmt.Errorf("unknown dialect %q", s)
	}
}

// Options configures compilation.
type Options struct {
	// Dialect is the target language.
	Dialect Dialect

	// Fallback selects how lines without a native vector type are accessed.
	Fallback lower.FallbackPolicy

	// RestrictPointers marks CUDA buffer parameters __restrict__.
	RestrictPointers bool

	// LaunchBounds sets __launch_bounds__ on HIP kernels. Zero omits it.
	LaunchBounds uint32

	// MetalVersion is the target MSL version. Zero means 3.1.
	MetalVersion msl.Version

	// Jobs bounds how many kernels CompileAll lowers at once. Zero or less
	// means GOMAXPROCS.
	Jobs int

	// Logger receives UnsupportedWidth notes. Nil disables logging.
	Logger *slog.Logger
}

// DefaultOptions returns the default options: CUDA with restrict pointers
// and synthesized fallbacks.
func DefaultOptions() Options {
	return Options{
		Dialect:          CUDA,
		Fallback:         lower.FallbackSynthesize,
		RestrictPointers: true,
		MetalVersion:     msl.Version3_1,
	}
}

// Result is one compiled translation unit.
type Result struct {
	// Source is the generated source text.
	Source string

	// EntryPoints lists the generated kernel names in order.
	EntryPoints []string

	// Diagnostics holds the notes of every kernel, in kernel order.
	Diagnostics []lower.Diagnostic

	// Fingerprint is the xxhash of Source.
	Fingerprint uint64
}

// ErrDuplicateKernel is returned when two kernels of one unit share a name.
var ErrDuplicateKernel = errors.New("duplicate kernel name")

// Compile compiles one kernel.
func Compile(k *ir.Kernel, opts Options) (Result, error) {
	return CompileAll(context.Background(), []*ir.Kernel{k}, opts)
}

// CompileFile compiles every kernel described in the YAML file at path.
func CompileFile(ctx context.Context, path string, opts Options) (Result, error) {
	kernels, err := irfile.ReadFile(path)
	if err != nil {
		return Result{}, fmt.Errorf("%s: %w", path, err)
	}
	return CompileAll(ctx, kernels, opts)
}

// CompileAll lowers kernels concurrently and renders them, in input order,
// into one translation unit. The first lowering error cancels the rest.
func CompileAll(ctx context.Context, kernels []*ir.Kernel, opts Options) (Result, error) {
	e, err := opts.emitter()
	if err != nil {
		return Result{}, err
	}
	lopts := lower.Options{Fallback: opts.Fallback, Logger: opts.Logger}

	programs := make([]*lower.Program, len(kernels))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(opts.jobs())
	for i, k := range kernels {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			p, err := lower.Lower(k, e, lopts)
			if err != nil {
				name := "<nil>"
				if k != nil {
					name = k.Name
				}
				return fmt.Errorf("%s: kernel %s: %w", opts.Dialect, name, err)
			}
			programs[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return Result{}, err
	}

	names := lo.Map(programs, func(p *lower.Program, _ int) string { return p.Name })
	if dups := lo.FindDuplicates(names); len(dups) > 0 {
		return Result{}, fmt.Errorf("%s: %w: %s", opts.Dialect, ErrDuplicateKernel, strings.Join(dups, ", "))
	}
	res := Result{
		EntryPoints: names,
		Diagnostics: lo.FlatMap(programs, func(p *lower.Program, _ int) []lower.Diagnostic { return p.Diagnostics }),
	}
	res.Source = lower.RenderModule(programs, e)
	res.Fingerprint = xxhash.Sum64String(res.Source)
	return res, nil
}

func (o Options) emitter() (lower.Emitter, error) {
	switch o.Dialect {
	case CUDA:
		return cuda.NewEmitter(cuda.Options{RestrictPointers: o.RestrictPointers}), nil
	case HIP:
		return hip.NewEmitter(hip.Options{LaunchBounds: o.LaunchBounds}), nil
	case Metal:
		v := o.MetalVersion
		if v.Major == 0 {
			v = msl.Version3_1
		}
		return msl.NewEmitter(v), nil
	default:
		return nil, fmt.Errorf("unknown dialect %d", o.Dialect)
	}
}

func (o Options) jobs() int {
	if o.Jobs > 0 {
		return o.Jobs
	}
	return runtime.GOMAXPROCS(0)
}
