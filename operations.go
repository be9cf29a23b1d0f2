package sgc

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// Scalar returns a float literal value.
func Scalar(f float32) Value { return Constant(Float(f)) }

// RGB returns an untagged color3f literal value.
func RGB(r, g, b float32) Value { return Constant(Color3f{V: ms3.Vec{X: r, Y: g, Z: b}}) }

// RGBA returns an untagged color4f literal value.
func RGBA(r, g, b, a float32) Value { return Constant(Color4f{V: [4]float32{r, g, b, a}}) }

// Vec2 returns a float2 literal value.
func Vec2(x, y float32) Value { return Constant(Vector2f(ms2.Vec{X: x, Y: y})) }

// Vec3 returns a float3 literal value.
func Vec3(x, y, z float32) Value { return Constant(Vector3f(ms3.Vec{X: x, Y: y, Z: z})) }

// TextureParameter promotes a texture to the material interface as name. Textures reach
// the caller only through parameters, keyed by parameter name.
func TextureParameter(name string, src TextureSource) Value {
	return Parameter(name, Texture{Source: src})
}

// in creates an input port typed after the value it is connected to.
func in(name string, v Value) Input { return Input{Name: name, Type: v.Type, Value: v} }

// op adds a node with a single output named "out" and returns that output.
func (bld *Builder) op(nodeType string, outType DataType, inputs ...Input) Value {
	id := bld.NewNode(nodeType, inputs, []Output{{Name: "out", Type: outType}})
	return bld.Output(id, "out")
}

// mtlxSuffix returns the MaterialX type suffix used in node definition names.
func mtlxSuffix(dt DataType) string {
	switch dt {
	case TypeBool:
		return "boolean"
	case TypeInt:
		return "integer"
	case TypeHalf, TypeFloat:
		return "float"
	case TypeString, TypeToken:
		return "string"
	case TypeAsset:
		return "filename"
	case TypeColor3f:
		return "color3"
	case TypeColor4f:
		return "color4"
	case TypeVector2f, TypeVector2h:
		return "vector2"
	case TypeVector3f, TypeVector3h:
		return "vector3"
	case TypeVector4f, TypeVector4h:
		return "vector4"
	case TypeVector2i:
		return "integer2"
	case TypeVector3i:
		return "integer3"
	case TypeVector4i:
		return "integer4"
	case TypeMatrix2d:
		return "matrix22"
	case TypeMatrix3d:
		return "matrix33"
	case TypeMatrix4d:
		return "matrix44"
	}
	return dt.String()
}

func isFloatVector(dt DataType) bool {
	switch dt {
	case TypeColor3f, TypeColor4f, TypeVector2f, TypeVector3f, TypeVector4f, TypeVector2h, TypeVector3h, TypeVector4h:
		return true
	}
	return false
}

func isArithmetic(dt DataType) bool {
	return dt.IsScalar() || isFloatVector(dt) || dt.IsMatrix() ||
		dt == TypeVector2i || dt == TypeVector3i || dt == TypeVector4i
}

// Add returns a + b. b may also be a float when a is a float vector or color.
func (bld *Builder) Add(a, b Value) Value { return bld.arith("add", a, b) }

// Subtract returns a - b. b may also be a float when a is a float vector or color.
func (bld *Builder) Subtract(a, b Value) Value { return bld.arith("subtract", a, b) }

// Multiply returns a * b. b may also be a float when a is a float vector or color.
func (bld *Builder) Multiply(a, b Value) Value { return bld.arith("multiply", a, b) }

// Divide returns a / b. b may also be a float when a is a float vector or color.
func (bld *Builder) Divide(a, b Value) Value { return bld.arith("divide", a, b) }

func (bld *Builder) arith(name string, a, b Value) Value {
	if a.IsZero() || b.IsZero() {
		return Error(a.Type, name+": missing operand")
	}
	var nodeType string
	switch {
	case a.Type == b.Type && isArithmetic(a.Type):
		nodeType = "ND_" + name + "_" + mtlxSuffix(a.Type)
	case b.Type == TypeFloat && isFloatVector(a.Type):
		nodeType = "ND_" + name + "_" + mtlxSuffix(a.Type) + "FA"
	default:
		return Error(a.Type, fmt.Sprintf("%s: unsupported operand types %s and %s", name, a.Type, b.Type))
	}
	return bld.op(nodeType, a.Type, in("in1", a), in("in2", b))
}

// Mix blends fg over bg by the float amount mix.
func (bld *Builder) Mix(fg, bg, mix Value) Value {
	switch {
	case fg.IsZero() || bg.IsZero() || mix.IsZero():
		return Error(fg.Type, "mix: missing operand")
	case fg.Type != bg.Type || !isArithmetic(fg.Type):
		return Error(fg.Type, fmt.Sprintf("mix: unsupported operand types %s and %s", fg.Type, bg.Type))
	case mix.Type != TypeFloat:
		return Error(fg.Type, fmt.Sprintf("mix: mix amount must be float, got %s", mix.Type))
	}
	return bld.op("ND_mix_"+mtlxSuffix(fg.Type), fg.Type, in("fg", fg), in("bg", bg), in("mix", mix))
}

// Dot returns the dot product of two float vectors of the same size.
func (bld *Builder) Dot(a, b Value) Value {
	switch a.Type {
	case TypeVector2f, TypeVector3f, TypeVector4f:
		if a.Type == b.Type {
			return bld.op("ND_dotproduct_"+mtlxSuffix(a.Type), TypeFloat, in("in1", a), in("in2", b))
		}
	}
	return Error(TypeFloat, fmt.Sprintf("dot: unsupported operand types %s and %s", a.Type, b.Type))
}

// Sin returns the sine of a float or float vector.
func (bld *Builder) Sin(a Value) Value {
	if a.Type != TypeFloat && !isFloatVector(a.Type) {
		return Error(a.Type, fmt.Sprintf("sin: unsupported operand type %s", a.Type))
	}
	return bld.op("ND_sin_"+mtlxSuffix(a.Type), a.Type, in("in", a))
}

// Time returns the scene time in seconds.
func (bld *Builder) Time() Value { return bld.op("ND_time_float", TypeFloat) }

// Texcoord returns the primary texture coordinates of the surface.
func (bld *Builder) Texcoord() Value { return bld.op("ND_texcoord_vector2", TypeVector2f) }

// Image samples the texture file at uv and returns a value of type outType.
// A zero uv samples at the default texture coordinates.
func (bld *Builder) Image(file, uv Value, outType DataType) Value {
	switch outType {
	case TypeFloat, TypeColor3f, TypeColor4f, TypeVector2f, TypeVector3f, TypeVector4f:
	default:
		return Error(outType, fmt.Sprintf("image: unsupported output type %s", outType))
	}
	if file.Type != TypeAsset {
		return Error(outType, fmt.Sprintf("image: file must be an asset, got %s", file.Type))
	}
	inputs := []Input{in("file", file)}
	if !uv.IsZero() {
		inputs = append(inputs, Input{Name: "texcoord", Type: TypeVector2f, Value: uv})
	}
	return bld.op("ND_image_"+mtlxSuffix(outType), outType, inputs...)
}

// PBRSurfaceInputs are the inputs of a physically based surface. Zero values are left unconnected.
type PBRSurfaceInputs struct {
	BaseColor          Value // color3f
	EmissiveColor      Value // color3f
	Normal             Value // float3
	Roughness          Value // float
	Metallic           Value // float
	AmbientOcclusion   Value // float
	Specular           Value // float
	Opacity            Value // float
	OpacityThreshold   Value // float
	Clearcoat          Value // float
	ClearcoatRoughness Value // float
}

// PBRSurface returns a physically based surface shader output.
func (bld *Builder) PBRSurface(si PBRSurfaceInputs) Value {
	var inputs []Input
	add := func(name string, dt DataType, v Value) {
		if !v.IsZero() {
			inputs = append(inputs, Input{Name: name, Type: dt, Value: v})
		}
	}
	add("baseColor", TypeColor3f, si.BaseColor)
	add("emissiveColor", TypeColor3f, si.EmissiveColor)
	add("normal", TypeVector3f, si.Normal)
	add("roughness", TypeFloat, si.Roughness)
	add("metallic", TypeFloat, si.Metallic)
	add("ambientOcclusion", TypeFloat, si.AmbientOcclusion)
	add("specular", TypeFloat, si.Specular)
	add("opacity", TypeFloat, si.Opacity)
	add("opacityThreshold", TypeFloat, si.OpacityThreshold)
	add("clearcoat", TypeFloat, si.Clearcoat)
	add("clearcoatRoughness", TypeFloat, si.ClearcoatRoughness)
	return bld.op("ND_realitykit_pbr_surfaceshader", TypeToken, inputs...)
}

// UnlitSurface returns a surface shader output that ignores scene lighting.
// A zero opacity leaves the surface opaque.
func (bld *Builder) UnlitSurface(color, opacity Value) Value {
	inputs := []Input{{Name: "color", Type: TypeColor3f, Value: color}}
	if !opacity.IsZero() {
		inputs = append(inputs, Input{Name: "opacity", Type: TypeFloat, Value: opacity})
	}
	return bld.op("ND_realitykit_unlit_surfaceshader", TypeToken, inputs...)
}

// GeometryModifierInputs are the inputs of a vertex stage geometry modifier. Zero values are left unconnected.
type GeometryModifierInputs struct {
	ModelPositionOffset Value // float3
	Normal              Value // float3
	Color               Value // color4f
	UV0                 Value // float2
}

// GeometryModifier returns a geometry modifier shader output.
func (bld *Builder) GeometryModifier(gi GeometryModifierInputs) Value {
	var inputs []Input
	add := func(name string, dt DataType, v Value) {
		if !v.IsZero() {
			inputs = append(inputs, Input{Name: name, Type: dt, Value: v})
		}
	}
	add("modelPositionOffset", TypeVector3f, gi.ModelPositionOffset)
	add("normal", TypeVector3f, gi.Normal)
	add("color", TypeColor4f, gi.Color)
	add("uv0", TypeVector2f, gi.UV0)
	return bld.op("ND_realitykit_geometrymodifier_vertexshader", TypeToken, inputs...)
}
