// Package surfaces provides ready made node graphs, surfaces and geometry
// modifiers built on top of the sgc node library.
package surfaces

import (
	"errors"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sgc"
)

// Tint adds a node graph named name that scales a color by a float amount.
// The graph declares the inputs "color" (white in linear sRGB) and "amount" (1)
// and a single color3f output "out".
func Tint(bld *sgc.Builder, name string) (*sgc.NodeGraph, error) {
	if name == "" {
		return nil, errors.New("empty tint graph name")
	} else if _, exists := bld.FindNodeGraph(name); exists {
		return nil, errors.New("node graph " + name + " already defined")
	}
	g := bld.NewNodeGraph(name)
	color := g.AddInputDefault("color", sgc.Color3f{V: ms3.Vec{X: 1, Y: 1, Z: 1}, Space: sgc.ColorSpaceLinearSRGB})
	amount := g.AddInputDefault("amount", sgc.Float(1))
	g.AddOutput("out", bld.Multiply(color, amount))
	return g, nil
}

// Tinted instantiates a graph created by [Tint] and returns its output.
// A zero color or amount leaves the graph's default in place.
func Tinted(bld *sgc.Builder, g *sgc.NodeGraph, color, amount sgc.Value) sgc.Value {
	var inputs []sgc.Input
	if !color.IsZero() {
		inputs = append(inputs, sgc.Input{Name: "color", Type: sgc.TypeColor3f, Value: color})
	}
	if !amount.IsZero() {
		inputs = append(inputs, sgc.Input{Name: "amount", Type: sgc.TypeFloat, Value: amount})
	}
	return bld.Output(bld.Reference(g.ID, inputs), "out")
}

// TexturedPBRParams defines a physically based surface sampling its base color from a texture.
type TexturedPBRParams struct {
	Albedo     sgc.TextureSource
	AlbedoName string    // material parameter name, "albedo" if empty
	Tint       sgc.Value // optional color3f multiplied into the sampled color
	Roughness  float32   // default of the "roughness" parameter
	Metallic   float32   // default of the "metallic" parameter
}

// TexturedPBR returns a physically based surface whose base color is sampled from
// k.Albedo. Roughness and metallic are exposed as material parameters.
func TexturedPBR(bld *sgc.Builder, k TexturedPBRParams) (sgc.Value, error) {
	var err error
	switch {
	case k.Albedo == nil:
		err = errors.New("nil albedo texture")
	case k.Roughness < 0 || k.Roughness > 1:
		err = errors.New("roughness outside [0, 1]")
	case k.Metallic < 0 || k.Metallic > 1:
		err = errors.New("metallic outside [0, 1]")
	case !k.Tint.IsZero() && k.Tint.Type != sgc.TypeColor3f:
		err = errors.New("tint must be color3f, got " + k.Tint.Type.String())
	}
	if err != nil {
		return sgc.Value{}, err
	}
	name := k.AlbedoName
	if name == "" {
		name = "albedo"
	}
	color := bld.Image(sgc.TextureParameter(name, k.Albedo), sgc.Value{}, sgc.TypeColor3f)
	if !k.Tint.IsZero() {
		color = bld.Multiply(color, k.Tint)
	}
	return bld.PBRSurface(sgc.PBRSurfaceInputs{
		BaseColor: color,
		Roughness: sgc.Parameter("roughness", sgc.Float(k.Roughness)),
		Metallic:  sgc.Parameter("metallic", sgc.Float(k.Metallic)),
	}), nil
}

// BobParams defines a vertical oscillation of a mesh over time.
type BobParams struct {
	Amplitude float32 // model units
	Period    float32 // seconds
}

// Bob returns a geometry modifier that moves the model up and down
// following a sine wave of the scene time.
func Bob(bld *sgc.Builder, k BobParams) (sgc.Value, error) {
	switch {
	case !(k.Period > 0) || math32.IsInf(k.Period, 1):
		return sgc.Value{}, errors.New("bob period must be positive and finite")
	case k.Amplitude == 0:
		return sgc.Value{}, errors.New("zero bob amplitude")
	}
	phase := bld.Multiply(bld.Time(), sgc.Scalar(2*math.Pi/k.Period))
	offset := bld.Multiply(sgc.Vec3(0, k.Amplitude, 0), bld.Sin(phase))
	return bld.GeometryModifier(sgc.GeometryModifierInputs{ModelPositionOffset: offset}), nil
}
