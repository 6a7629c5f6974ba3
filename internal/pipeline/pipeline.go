// Package pipeline orchestrates the model-analysis workflow stages: parse
// tree + I/O spec ingestion, subscript registry construction, the variable
// and equation readers, the analyzer, the dependency sorter, and finally the
// code emitter and listing writers. This mirrors the way the teacher's
// internal/pipeline package strings together detection, loading, and
// disassembly into one Execute call.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/retrogolib/log"

	"github.com/dvensim/vensimc/internal/analyzer"
	"github.com/dvensim/vensimc/internal/codegen"
	"github.com/dvensim/vensimc/internal/depsort"
	"github.com/dvensim/vensimc/internal/diag"
	"github.com/dvensim/vensimc/internal/eqnreader"
	"github.com/dvensim/vensimc/internal/extdata"
	"github.com/dvensim/vensimc/internal/iospec"
	"github.com/dvensim/vensimc/internal/listing"
	"github.com/dvensim/vensimc/internal/parsetree"
	"github.com/dvensim/vensimc/internal/runtime"
	"github.com/dvensim/vensimc/internal/subscript"
	"github.com/dvensim/vensimc/internal/varreader"
	"github.com/dvensim/vensimc/internal/vartable"
)

// Options configures one pipeline run.
type Options struct {
	ModelPath string // path to the JSON-encoded parse tree document
	SpecPath  string // path to the JSON I/O spec document, optional
	DataPath  string // path to the JSON external data series document, optional

	ModelName string // base name used for every emitted artifact; derived from ModelPath if empty
	OutputDir string // directory emitted artifacts are written to; defaults to the working directory
}

// Result reports every artifact path the pipeline wrote and any non-fatal
// diagnostics collected along the way.
type Result struct {
	WrittenFiles []string
	Diagnostics  []diag.Diagnostic
}

// Pipeline orchestrates one model-analysis run.
type Pipeline struct {
	logger *log.Logger
}

// New creates a pipeline that logs through logger.
func New(logger *log.Logger) *Pipeline {
	return &Pipeline{logger: logger}
}

// Execute runs every stage of the pipeline and writes the emitted artifacts
// to opts.OutputDir.
func (p *Pipeline) Execute(ctx context.Context, opts Options) (*Result, error) {
	modelName := opts.ModelName
	if modelName == "" {
		base := filepath.Base(opts.ModelPath)
		modelName = strings.TrimSuffix(base, filepath.Ext(base))
	}

	mdl, spec, extSeries, err := p.readInputs(opts)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	diags := diag.NewCollector()

	registry, err := subscript.BuildRegistry(mdl, spec, diags)
	if err != nil {
		return nil, fmt.Errorf("building subscript registry: %w", err)
	}

	table := vartable.New()
	if err := varreader.New(registry, spec).Read(mdl, table); err != nil {
		return nil, fmt.Errorf("reading variables: %w", err)
	}
	if err := eqnreader.New(spec).Read(mdl, table); err != nil {
		return nil, fmt.Errorf("reading equations: %w", err)
	}

	a := analyzer.New(table, registry, extSeries, spec, diags)
	if err := a.Run(); err != nil {
		return nil, fmt.Errorf("analyzing model: %w", err)
	}

	order, err := depsort.Sort(table)
	if err != nil {
		return nil, fmt.Errorf("ordering model: %w", err)
	}

	p.logDiagnostics(diags)

	result := &Result{Diagnostics: diags.Items()}
	if err := p.writeArtifacts(opts, modelName, table, registry, order, spec, mdl, result); err != nil {
		return nil, err
	}
	return result, nil
}

func (p *Pipeline) readInputs(opts Options) (*parsetree.Model, *iospec.Spec, extdata.Series, error) {
	mdl, err := decodeFile(opts.ModelPath, parsetree.DecodeModel)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("reading model document: %w", err)
	}

	var spec *iospec.Spec
	if opts.SpecPath != "" {
		spec, err = decodeFile(opts.SpecPath, iospec.Decode)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading I/O spec: %w", err)
		}
	}

	var extSeries extdata.Series
	if opts.DataPath != "" {
		extSeries, err = decodeFile(opts.DataPath, extdata.DecodeSeries)
		if err != nil {
			return nil, nil, nil, fmt.Errorf("reading external data: %w", err)
		}
	}

	return mdl, spec, extSeries, nil
}

func decodeFile[T any](path string, decode func(io.Reader) (T, error)) (T, error) {
	var zero T
	f, err := os.Open(path)
	if err != nil {
		return zero, fmt.Errorf("opening %q: %w", path, err)
	}
	defer func() { _ = f.Close() }()
	return decode(f)
}

func (p *Pipeline) logDiagnostics(diags *diag.Collector) {
	for _, d := range diags.Items() {
		p.logger.Warn(d.String())
	}
}

func (p *Pipeline) writeArtifacts(opts Options, modelName string, table *vartable.Table, registry *subscript.Registry,
	order depsort.Order, spec *iospec.Spec, mdl *parsetree.Model, result *Result) error {

	control := codegen.TimeControl{
		InitialTime: mdl.InitialTime,
		FinalTime:   mdl.FinalTime,
		TimeStep:    mdl.TimeStep,
		SavePer:     mdl.SavePer,
	}
	emitter := codegen.New(modelName, table, registry, order, spec, control)

	if err := p.writeFile(opts, modelName+".c", result, func(w io.Writer) error { return emitter.Write(w) }); err != nil {
		return err
	}
	if err := p.writeFile(opts, runtime.FileName, result, func(w io.Writer) error {
		_, err := io.WriteString(w, runtime.Source)
		return err
	}); err != nil {
		return err
	}

	varEntries := listing.BuildVars(table, registry)
	subEntries := listing.BuildSubs(registry)

	if err := p.writeFile(opts, modelName+"_vars.txt", result, func(w io.Writer) error { return listing.WriteVarsText(w, varEntries) }); err != nil {
		return err
	}
	if err := p.writeFile(opts, modelName+"_vars.yaml", result, func(w io.Writer) error { return listing.WriteYAML(w, varEntries) }); err != nil {
		return err
	}
	if err := p.writeFile(opts, modelName+"_vars.json", result, func(w io.Writer) error { return listing.WriteJSON(w, varEntries) }); err != nil {
		return err
	}
	if err := p.writeFile(opts, modelName+"_subs.txt", result, func(w io.Writer) error { return listing.WriteSubsText(w, subEntries) }); err != nil {
		return err
	}
	if err := p.writeFile(opts, modelName+"_subs.yaml", result, func(w io.Writer) error { return listing.WriteYAML(w, subEntries) }); err != nil {
		return err
	}
	if err := p.writeFile(opts, modelName+"_subs.json", result, func(w io.Writer) error { return listing.WriteJSON(w, subEntries) }); err != nil {
		return err
	}
	return nil
}

func (p *Pipeline) writeFile(opts Options, name string, result *Result, write func(io.Writer) error) error {
	path := name
	if opts.OutputDir != "" {
		path = filepath.Join(opts.OutputDir, name)
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating %q: %w", path, err)
	}
	if err := write(f); err != nil {
		_ = f.Close()
		return fmt.Errorf("writing %q: %w", path, err)
	}
	if err := f.Close(); err != nil {
		return fmt.Errorf("closing %q: %w", path, err)
	}

	p.logger.Info("Wrote artifact", log.String("path", path))
	result.WrittenFiles = append(result.WrittenFiles, path)
	return nil
}
