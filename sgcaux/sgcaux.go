// Package sgcaux writes compiled materials and their textures to disk.
package sgcaux

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"image"
	"image/png"
	"io"
	"os"
	"path/filepath"
	"runtime"
	"slices"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/hashicorp/go-hclog"
	"golang.org/x/sync/errgroup"

	"github.com/soypat/sgc"
	"github.com/soypat/sgc/usdbuild"
)

// ErrInvalidEncoding is returned when the generated document is not valid UTF-8,
// which happens when names given to the builder are not UTF-8.
var ErrInvalidEncoding = errors.New("generated USDA is not valid UTF-8")

// ExportConfig configures [Export].
type ExportConfig struct {
	// USDA receives the generated document. Required.
	USDA io.Writer
	// TextureDir is the directory textures are written to as <parameter>.png.
	// It is created if it does not exist. Required if the material binds textures.
	TextureDir string
	// Concurrency bounds the amount of textures resolved at the same time.
	// Defaults to the amount of CPUs.
	Concurrency int
	// Programmer generates the document. Defaults to [usdbuild.NewDefaultProgrammer].
	Programmer *usdbuild.Programmer
	// Logger receives progress events. Defaults to a logger that discards everything.
	Logger hclog.Logger
}

// Export compiles mat, writes the document to cfg.USDA and resolves every texture
// bound to a material parameter, writing it to cfg.TextureDir. It returns the file
// each parameter was written to keyed by parameter name.
//
// Nothing is written if compilation fails; the returned error is then a *[usdbuild.GraphError]
// holding every problem found. Texture resolution is cancelled on the first failure.
// The document is written to cfg.USDA only after every texture was written, so a texture
// failure leaves cfg.USDA untouched. Textures written before the failure are left on disk.
func Export(ctx context.Context, bld *sgc.Builder, mat usdbuild.Material, cfg ExportConfig) (bindings map[string]string, err error) {
	if cfg.USDA == nil {
		return nil, errors.New("Export requires USDA writer in config")
	}
	log := cfg.Logger
	if log == nil {
		log = hclog.NewNullLogger()
	}
	log = log.With("material", mat.Name)
	prog := cfg.Programmer
	if prog == nil {
		prog = usdbuild.NewDefaultProgrammer()
	}

	watch := stopwatch()
	lines, textures, err := prog.AppendMaterialLines(nil, bld, mat)
	if err != nil {
		var gerr *usdbuild.GraphError
		if errors.As(err, &gerr) {
			for _, msg := range gerr.Messages {
				log.Error("shader graph error", "message", msg)
			}
		}
		return nil, err
	}
	doc := strings.Join(lines, "\n")
	if !utf8.ValidString(doc) {
		return nil, ErrInvalidEncoding
	}
	log.Debug("compiled material", "lines", len(lines), "textures", len(textures), "elapsed", watch())

	bindings, err = writeTextures(ctx, textures, cfg, log)
	if err != nil {
		return nil, err
	}
	n, err := io.WriteString(cfg.USDA, doc)
	if err != nil {
		return nil, fmt.Errorf("writing USDA: %w", err)
	}
	log.Info("wrote USDA", "bytes", n)
	return bindings, nil
}

func writeTextures(ctx context.Context, textures map[string]sgc.TextureSource, cfg ExportConfig, log hclog.Logger) (map[string]string, error) {
	bindings := make(map[string]string, len(textures))
	if len(textures) == 0 {
		return bindings, nil
	} else if cfg.TextureDir == "" {
		return nil, fmt.Errorf("material binds %d textures but no texture directory was configured", len(textures))
	}
	names := make([]string, 0, len(textures))
	for name := range textures {
		if !validFilename(name) {
			return nil, fmt.Errorf("texture parameter %q is not a valid file name", name)
		}
		names = append(names, name)
	}
	slices.Sort(names)
	if err := os.MkdirAll(cfg.TextureDir, 0o755); err != nil {
		return nil, err
	}

	concurrency := cfg.Concurrency
	if concurrency <= 0 {
		concurrency = runtime.NumCPU()
	}
	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(concurrency)
	for _, name := range names {
		name := name
		src := textures[name]
		path := filepath.Join(cfg.TextureDir, name+".png")
		g.Go(func() error {
			watch := stopwatch()
			img, err := src.LoadTexture(gctx)
			if err != nil {
				return fmt.Errorf("resolving texture %q: %w", name, err)
			} else if img == nil {
				return fmt.Errorf("texture %q resolved to no image", name)
			}
			if err := writePNG(path, img); err != nil {
				return fmt.Errorf("writing texture %q: %w", name, err)
			}
			log.Debug("wrote texture", "parameter", name, "path", path, "elapsed", watch())
			mu.Lock()
			bindings[name] = path
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		log.Error("texture export failed", "error", err)
		return nil, err
	}
	log.Info("wrote textures", "count", len(bindings), "dir", cfg.TextureDir)
	return bindings, nil
}

func validFilename(name string) bool {
	return name != "" && name != "." && name != ".." && !strings.ContainsAny(name, `/\`) && utf8.ValidString(name)
}

func writePNG(path string, img image.Image) (err error) {
	fp, err := os.Create(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := fp.Close(); err == nil {
			err = cerr
		}
	}()
	w := bufio.NewWriter(fp)
	if err = png.Encode(w, img); err != nil {
		return err
	}
	return w.Flush()
}

func stopwatch() func() time.Duration {
	start := time.Now()
	return func() time.Duration { return time.Since(start) }
}
