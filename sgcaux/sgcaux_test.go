package sgcaux

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/hashicorp/go-hclog"

	"github.com/soypat/sgc"
	"github.com/soypat/sgc/texture"
	"github.com/soypat/sgc/usdbuild"
)

func texturedMaterial(bld *sgc.Builder, albedo, rough sgc.TextureSource) usdbuild.Material {
	uv := bld.Texcoord()
	base := bld.Image(sgc.TextureParameter("albedo", albedo), uv, sgc.TypeColor3f)
	roughness := bld.Image(sgc.TextureParameter("roughness_map", rough), uv, sgc.TypeFloat)
	surface := bld.PBRSurface(sgc.PBRSurfaceInputs{BaseColor: base, Roughness: roughness})
	return usdbuild.Material{Name: "Textured", Surface: surface}
}

func solid(c color.Color) image.Image {
	img := image.NewNRGBA(image.Rect(0, 0, 2, 2))
	for i := 0; i < 4; i++ {
		img.Set(i%2, i/2, c)
	}
	return img
}

func TestExport(t *testing.T) {
	var bld sgc.Builder
	mat := texturedMaterial(&bld, texture.Image(solid(color.White)), texture.Image(solid(color.Black)))
	dir := filepath.Join(t.TempDir(), "textures")
	var usda bytes.Buffer
	var logs bytes.Buffer
	bindings, err := Export(context.Background(), &bld, mat, ExportConfig{
		USDA:        &usda,
		TextureDir:  dir,
		Concurrency: 1,
		Logger:      hclog.New(&hclog.LoggerOptions{Name: "test", Level: hclog.Debug, Output: &logs}),
	})
	if err != nil {
		t.Fatal(err)
	}
	want := map[string]string{
		"albedo":        filepath.Join(dir, "albedo.png"),
		"roughness_map": filepath.Join(dir, "roughness_map.png"),
	}
	if diff := cmp.Diff(want, bindings); diff != "" {
		t.Errorf("bindings mismatch (-want +got):\n%s", diff)
	}
	for _, path := range bindings {
		got, err := texture.File(path).LoadTexture(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if got.Bounds().Dx() != 2 {
			t.Errorf("%s: unexpected bounds %v", path, got.Bounds())
		}
	}
	expect, _, errs := usdbuild.Compile(&bld, mat)
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	if usda.String() != expect {
		t.Error("exported document differs from compiled document")
	}
	if !strings.Contains(logs.String(), "wrote texture") {
		t.Errorf("missing texture log events:\n%s", logs.String())
	}
}

func TestExportGraphErrors(t *testing.T) {
	var bld sgc.Builder
	surface := bld.PBRSurface(sgc.PBRSurfaceInputs{BaseColor: sgc.Error(sgc.TypeColor3f, "no color")})
	var usda bytes.Buffer
	_, err := Export(context.Background(), &bld, usdbuild.Material{Name: "M", Surface: surface}, ExportConfig{USDA: &usda})
	var gerr *usdbuild.GraphError
	if !errors.As(err, &gerr) {
		t.Fatalf("want *GraphError, got %v", err)
	}
	if diff := cmp.Diff([]string{"no color"}, gerr.Messages); diff != "" {
		t.Errorf("messages mismatch (-want +got):\n%s", diff)
	}
	if usda.Len() != 0 {
		t.Error("nothing should be written on failure")
	}
}

func TestExportInvalidEncoding(t *testing.T) {
	var bld sgc.Builder
	surface := bld.UnlitSurface(sgc.Parameter("tint\xff", sgc.Color3f{}), sgc.Value{})
	var usda bytes.Buffer
	_, err := Export(context.Background(), &bld, usdbuild.Material{Name: "M", Surface: surface}, ExportConfig{USDA: &usda})
	if !errors.Is(err, ErrInvalidEncoding) {
		t.Fatalf("want ErrInvalidEncoding, got %v", err)
	}
	if usda.Len() != 0 {
		t.Error("nothing should be written on failure")
	}
}

type failingTexture struct{ Name string }

var errUnavailable = errors.New("texture unavailable")

func (failingTexture) LoadTexture(context.Context) (image.Image, error) { return nil, errUnavailable }

func TestExportTextureFailure(t *testing.T) {
	var bld sgc.Builder
	mat := texturedMaterial(&bld, texture.Image(solid(color.White)), failingTexture{Name: "rough"})
	var usda bytes.Buffer
	_, err := Export(context.Background(), &bld, mat, ExportConfig{USDA: &usda, TextureDir: t.TempDir()})
	if !errors.Is(err, errUnavailable) {
		t.Errorf("want texture error, got %v", err)
	}
	if err == nil || !strings.Contains(err.Error(), `"roughness_map"`) {
		t.Errorf("error should name the parameter: %v", err)
	}
	if usda.Len() != 0 {
		t.Error("document should not be written when a texture fails")
	}
}

func TestExportRequiresTextureDir(t *testing.T) {
	var bld sgc.Builder
	mat := texturedMaterial(&bld, texture.Image(solid(color.White)), texture.Image(solid(color.Black)))
	if _, err := Export(context.Background(), &bld, mat, ExportConfig{USDA: new(bytes.Buffer)}); err == nil {
		t.Error("expected error without texture directory")
	}
	if _, err := Export(context.Background(), &bld, mat, ExportConfig{}); err == nil {
		t.Error("expected error without USDA writer")
	}
}

func TestExportCancelled(t *testing.T) {
	var bld sgc.Builder
	dir := t.TempDir()
	mat := texturedMaterial(&bld, texture.Image(solid(color.White)), texture.Image(solid(color.Black)))
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := Export(ctx, &bld, mat, ExportConfig{USDA: new(bytes.Buffer), TextureDir: dir})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("want canceled error, got %v", err)
	}
	entries, _ := os.ReadDir(dir)
	if len(entries) != 0 {
		t.Errorf("no texture should be written after cancellation, found %d", len(entries))
	}
}
