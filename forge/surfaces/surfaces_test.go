package surfaces

import (
	"image"
	"strings"
	"testing"

	"github.com/soypat/sgc"
	"github.com/soypat/sgc/texture"
	"github.com/soypat/sgc/usdbuild"
)

func TestTintedTexturedPBR(t *testing.T) {
	var bld sgc.Builder
	g, err := Tint(&bld, "Tint")
	if err != nil {
		t.Fatal(err)
	}
	albedo := texture.Image(image.NewRGBA(image.Rect(0, 0, 2, 2)))
	tint := Tinted(&bld, g, sgc.RGB(1, 0, 0), sgc.Parameter("strength", sgc.Float(0.5)))
	surface, err := TexturedPBR(&bld, TexturedPBRParams{
		Albedo:    albedo,
		Tint:      tint,
		Roughness: 0.35,
	})
	if err != nil {
		t.Fatal(err)
	}
	usda, textures, errs := usdbuild.Compile(&bld, usdbuild.Material{Name: "Crate", Surface: surface, NodeGraphs: []sgc.GraphID{g.ID}})
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	if len(textures) != 1 || textures["albedo"] != sgc.TextureSource(albedo) {
		t.Errorf("unexpected textures %v", textures)
	}
	lines := strings.Split(usda, "\n")
	for _, want := range []string{
		"        float inputs:roughness = 0.35",
		"        float inputs:metallic = 0",
		`        asset inputs:albedo = ""`,
		"        float inputs:strength = 0.5",
		"            references = </Root/Tint>",
		"            color3f inputs:color = (1, 0, 0)",
		"            float inputs:amount.connect = </Root/Crate.inputs:strength>",
		`            uniform token info:id = "ND_multiply_color3"`,
		`            uniform token info:id = "ND_image_color3"`,
		`        color3f inputs:color = (1, 1, 1) (colorSpace = "lin_srgb")`,
		"        float inputs:amount = 1",
		`            uniform token info:id = "ND_multiply_color3FA"`,
	} {
		if !contains(lines, want) {
			t.Errorf("missing line %q", want)
		}
	}
}

func TestTintedDefaults(t *testing.T) {
	var bld sgc.Builder
	g, err := Tint(&bld, "Tint")
	if err != nil {
		t.Fatal(err)
	}
	ref := Tinted(&bld, g, sgc.Value{}, sgc.Value{})
	if ref.Type != sgc.TypeColor3f {
		t.Errorf("want color3f output, got %s", ref.Type)
	}
	id, ok := ref.Node()
	if !ok {
		t.Fatal("want node output")
	}
	node := bld.Node(id)
	if !node.IsReference() || len(node.Inputs) != 0 {
		t.Errorf("want unwired reference node, got %+v", node)
	}
	if _, err := Tint(&bld, "Tint"); err == nil {
		t.Error("expected error redefining graph")
	}
}

func TestParamErrors(t *testing.T) {
	var bld sgc.Builder
	tex := texture.File("albedo.png")
	for _, k := range []TexturedPBRParams{
		{},
		{Albedo: tex, Roughness: 1.5},
		{Albedo: tex, Metallic: -1},
		{Albedo: tex, Tint: sgc.Scalar(1)},
	} {
		if _, err := TexturedPBR(&bld, k); err == nil {
			t.Errorf("expected error for %+v", k)
		}
	}
	for _, k := range []BobParams{
		{Amplitude: 1},
		{Amplitude: 1, Period: -2},
		{Period: 1},
	} {
		if _, err := Bob(&bld, k); err == nil {
			t.Errorf("expected error for %+v", k)
		}
	}
	if bld.NumNodes() != 0 {
		t.Errorf("invalid parameters should not add nodes, got %d", bld.NumNodes())
	}
}

func TestBob(t *testing.T) {
	var bld sgc.Builder
	gm, err := Bob(&bld, BobParams{Amplitude: 0.1, Period: 2})
	if err != nil {
		t.Fatal(err)
	}
	usda, _, errs := usdbuild.Compile(&bld, usdbuild.Material{Name: "Buoy", GeometryModifier: gm})
	if len(errs) > 0 {
		t.Fatal(errs)
	}
	for _, id := range []string{
		"ND_realitykit_geometrymodifier_vertexshader",
		"ND_multiply_vector3FA",
		"ND_sin_float",
		"ND_multiply_float",
		"ND_time_float",
	} {
		if !strings.Contains(usda, `uniform token info:id = "`+id+`"`) {
			t.Errorf("missing shader %s", id)
		}
	}
	if !strings.Contains(usda, "float3 inputs:in1 = (0, 0.1, 0)") {
		t.Error("missing amplitude literal")
	}
}

func contains(lines []string, line string) bool {
	for _, l := range lines {
		if l == line {
			return true
		}
	}
	return false
}
