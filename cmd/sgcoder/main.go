// Command sgcoder compiles a material described in an HCL shader graph file
// to USDA and writes the textures bound to its parameters as PNG files.
package main

import (
	"bytes"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/hashicorp/go-hclog"
	"github.com/hashicorp/hcl/v2"

	"github.com/soypat/sgc/sgcaux"
	"github.com/soypat/sgc/sgfile"
	"github.com/soypat/sgc/usdbuild"
)

// ExitError is returned by run when the process should exit with a specific code.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string { return e.Message }

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			if exitErr.Message != "" {
				fmt.Fprintln(os.Stderr, exitErr.Message)
			}
			os.Exit(exitErr.Code)
		}
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type config struct {
	input       string
	output      string
	material    string
	textureDir  string
	concurrency int
	upAxis      string
	logLevel    hclog.Level
	logJSON     bool
}

func parseFlags(args []string, stderr io.Writer) (cfg config, err error) {
	flagSet := flag.NewFlagSet("sgcoder", flag.ContinueOnError)
	flagSet.SetOutput(stderr)
	flagSet.Usage = func() {
		fmt.Fprint(stderr, `sgcoder compiles an HCL shader graph to USDA.

Usage:
  sgcoder [options] FILE.hcl

Options:
`)
		flagSet.PrintDefaults()
	}
	flagSet.StringVar(&cfg.output, "o", "-", "Output USDA file. '-' writes to standard output.")
	flagSet.StringVar(&cfg.material, "material", "", "Material to compile. May be omitted if the file declares a single material.")
	flagSet.StringVar(&cfg.textureDir, "textures", "textures", "Directory textures are written to.")
	flagSet.IntVar(&cfg.concurrency, "concurrency", 0, "Maximum textures resolved at the same time. 0 uses all CPUs.")
	flagSet.StringVar(&cfg.upAxis, "up-axis", "Y", "Stage up axis, 'Y' or 'Z'.")
	logLevel := flagSet.String("log-level", "warn", "Logging level: 'trace', 'debug', 'info', 'warn' or 'error'.")
	flagSet.BoolVar(&cfg.logJSON, "log-json", false, "Log in JSON format.")

	if err := flagSet.Parse(args); err != nil {
		if err == flag.ErrHelp {
			return cfg, &ExitError{Code: 0}
		}
		return cfg, &ExitError{Code: 2, Message: err.Error()}
	}
	if flagSet.NArg() != 1 {
		flagSet.Usage()
		return cfg, &ExitError{Code: 2, Message: "expected exactly one HCL file argument"}
	}
	cfg.input = flagSet.Arg(0)
	cfg.logLevel = hclog.LevelFromString(*logLevel)
	switch {
	case cfg.logLevel == hclog.NoLevel || cfg.logLevel == hclog.Off:
		return cfg, &ExitError{Code: 2, Message: "invalid log-level: must be 'trace', 'debug', 'info', 'warn' or 'error'"}
	case cfg.upAxis != "Y" && cfg.upAxis != "Z":
		return cfg, &ExitError{Code: 2, Message: "invalid up-axis: must be 'Y' or 'Z'"}
	case cfg.concurrency < 0:
		return cfg, &ExitError{Code: 2, Message: "invalid concurrency: must not be negative"}
	}
	return cfg, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) error {
	cfg, err := parseFlags(args, stderr)
	if err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) && exitErr.Code == 0 {
			return nil
		}
		return err
	}
	log := hclog.New(&hclog.LoggerOptions{
		Name:       "sgcoder",
		Level:      cfg.logLevel,
		Output:     stderr,
		JSONFormat: cfg.logJSON,
	})

	f, diags := sgfile.Load(cfg.input)
	if len(diags) > 0 {
		wr := hcl.NewDiagnosticTextWriter(stderr, nil, 78, false)
		wr.WriteDiagnostics(diags)
	}
	if diags.HasErrors() {
		return &ExitError{Code: 1, Message: fmt.Sprintf("failed to load %s", cfg.input)}
	}
	mat, err := selectMaterial(f, cfg.material)
	if err != nil {
		return &ExitError{Code: 2, Message: err.Error()}
	}
	log.Debug("loaded shader graph", "file", cfg.input, "nodes", f.Builder.NumNodes(), "node_graphs", len(mat.NodeGraphs))

	prog := usdbuild.NewDefaultProgrammer()
	prog.UpAxis = cfg.upAxis
	var doc bytes.Buffer
	bindings, err := sgcaux.Export(ctx, f.Builder, mat, sgcaux.ExportConfig{
		USDA:        &doc,
		TextureDir:  cfg.textureDir,
		Concurrency: cfg.concurrency,
		Programmer:  prog,
		Logger:      log,
	})
	if err != nil {
		return err
	}
	for name, path := range bindings {
		log.Info("texture bound", "parameter", name, "path", path)
	}

	if cfg.output == "-" {
		_, err = stdout.Write(doc.Bytes())
		return err
	}
	err = os.WriteFile(cfg.output, doc.Bytes(), 0o644)
	if err != nil {
		return err
	}
	log.Info("wrote material", "file", cfg.output, "bytes", doc.Len())
	return nil
}

func selectMaterial(f *sgfile.File, name string) (usdbuild.Material, error) {
	if name != "" {
		mat, ok := f.Material(name)
		if !ok {
			return mat, fmt.Errorf("material %q not found", name)
		}
		return mat, nil
	}
	switch len(f.Materials) {
	case 0:
		return usdbuild.Material{}, errors.New("file declares no materials")
	case 1:
		return f.Materials[0], nil
	}
	names := make([]string, len(f.Materials))
	for i, mat := range f.Materials {
		names[i] = mat.Name
	}
	return usdbuild.Material{}, fmt.Errorf("file declares several materials, select one with -material: %s", strings.Join(names, ", "))
}
