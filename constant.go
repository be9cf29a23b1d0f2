package sgc

import (
	"context"
	"fmt"
	"image"
	"math"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// ConstantValue is a literal value of a single [DataType]. There is exactly one
// concrete ConstantValue type per data type and all of them are comparable, so
// two constants are structurally equal when they compare equal with ==.
type ConstantValue interface {
	// DataType returns the data type of the literal.
	DataType() DataType
	isConstant()
}

// ColorSpace tags a color constant with the color space it was authored in.
// The zero value leaves the color untagged.
type ColorSpace string

const (
	ColorSpaceLinearSRGB      ColorSpace = "lin_srgb"
	ColorSpaceSRGB            ColorSpace = "srgb_texture"
	ColorSpaceLinearDisplayP3 ColorSpace = "lin_displayp3"
	ColorSpaceDisplayP3       ColorSpace = "srgb_displayp3"
)

// TextureSource is an opaque handle to texture data. Code generation never resolves
// a TextureSource, it only hands it back to the caller keyed by parameter name.
// Implementations must be comparable.
type TextureSource interface {
	// LoadTexture resolves the texture's image data.
	LoadTexture(ctx context.Context) (image.Image, error)
}

type (
	Bool   bool
	Int    int32
	Half   float32
	Float  float32
	String string
	Token  string
	// Texture is an asset constant. A Texture with a nil Source is the empty texture.
	Texture struct {
		Source TextureSource
	}
	Color3f struct {
		V     ms3.Vec
		Space ColorSpace
	}
	Color4f struct {
		V     [4]float32
		Space ColorSpace
	}
	Vector2f ms2.Vec
	Vector3f ms3.Vec
	Vector4f [4]float32
	Vector2h [2]Half
	Vector3h [3]Half
	Vector4h [4]Half
	Vector2i [2]int32
	Vector3i [3]int32
	Vector4i [4]int32
	Matrix2d ms2.Mat2
	Matrix3d ms3.Mat3
	Matrix4d ms3.Mat4
)

func (Bool) DataType() DataType     { return TypeBool }
func (Int) DataType() DataType      { return TypeInt }
func (Half) DataType() DataType     { return TypeHalf }
func (Float) DataType() DataType    { return TypeFloat }
func (String) DataType() DataType   { return TypeString }
func (Token) DataType() DataType    { return TypeToken }
func (Texture) DataType() DataType  { return TypeAsset }
func (Color3f) DataType() DataType  { return TypeColor3f }
func (Color4f) DataType() DataType  { return TypeColor4f }
func (Vector2f) DataType() DataType { return TypeVector2f }
func (Vector3f) DataType() DataType { return TypeVector3f }
func (Vector4f) DataType() DataType { return TypeVector4f }
func (Vector2h) DataType() DataType { return TypeVector2h }
func (Vector3h) DataType() DataType { return TypeVector3h }
func (Vector4h) DataType() DataType { return TypeVector4h }
func (Vector2i) DataType() DataType { return TypeVector2i }
func (Vector3i) DataType() DataType { return TypeVector3i }
func (Vector4i) DataType() DataType { return TypeVector4i }
func (Matrix2d) DataType() DataType { return TypeMatrix2d }
func (Matrix3d) DataType() DataType { return TypeMatrix3d }
func (Matrix4d) DataType() DataType { return TypeMatrix4d }

func (Bool) isConstant()     {}
func (Int) isConstant()      {}
func (Half) isConstant()     {}
func (Float) isConstant()    {}
func (String) isConstant()   {}
func (Token) isConstant()    {}
func (Texture) isConstant()  {}
func (Color3f) isConstant()  {}
func (Color4f) isConstant()  {}
func (Vector2f) isConstant() {}
func (Vector3f) isConstant() {}
func (Vector4f) isConstant() {}
func (Vector2h) isConstant() {}
func (Vector3h) isConstant() {}
func (Vector4h) isConstant() {}
func (Vector2i) isConstant() {}
func (Vector3i) isConstant() {}
func (Vector4i) isConstant() {}
func (Matrix2d) isConstant() {}
func (Matrix3d) isConstant() {}
func (Matrix4d) isConstant() {}

// IsEmpty reports whether t is the empty texture sentinel.
func (t Texture) IsEmpty() bool { return t.Source == nil }

// HalfOf returns f rounded to the nearest half precision value.
func HalfOf(f float32) Half { return Half(RoundHalf(f)) }

// RoundHalf rounds f to the nearest value representable as an IEEE 754 binary16
// (ties to even). Values beyond the half range round to infinity.
func RoundHalf(f float32) float32 {
	if math32.IsNaN(f) || math32.IsInf(f, 0) {
		return f
	}
	const (
		maxHalfRound = 65520  // Smallest magnitude that rounds to infinity.
		minNormal    = 0x1p-14
		dropBits     = 23 - 10
	)
	abs := math32.Abs(f)
	switch {
	case abs >= maxHalfRound:
		return math32.Copysign(math32.Inf(1), f)
	case abs < minNormal:
		// Subnormal half values are multiples of 2^-24.
		q := math.RoundToEven(float64(abs) * 0x1p24)
		return math32.Copysign(float32(q*0x1p-24), f)
	}
	bits := math32.Float32bits(f)
	lsb := (bits >> dropBits) & 1
	bits += 1<<(dropBits-1) - 1 + lsb
	bits &^= 1<<dropBits - 1
	return math32.Float32frombits(bits)
}

// WithColorSpace returns c tagged with the color space cs if c is a color constant.
// Other constants are returned unchanged.
func WithColorSpace(c ConstantValue, cs ColorSpace) ConstantValue {
	switch v := c.(type) {
	case Color3f:
		v.Space = cs
		return v
	case Color4f:
		v.Space = cs
		return v
	}
	return c
}

// NewConstant creates a numeric constant of data type dt from its scalar components.
// Matrix components are given in row-major order. Booleans are true for non-zero components.
// String, token and asset data types are not numeric and return an error.
func NewConstant(dt DataType, components []float64) (ConstantValue, error) {
	n := dt.Components()
	if n == 0 {
		return nil, fmt.Errorf("%s is not a numeric data type", dt)
	} else if len(components) != n {
		return nil, fmt.Errorf("%s requires %d components, got %d", dt, n, len(components))
	}
	var f32 [16]float32
	var i32 [4]int32
	for i, c := range components {
		if dt == TypeInt || dt == TypeVector2i || dt == TypeVector3i || dt == TypeVector4i {
			if c != math.Trunc(c) || c > math.MaxInt32 || c < math.MinInt32 {
				return nil, fmt.Errorf("%s component %d: %v is not a 32-bit integer", dt, i, c)
			}
			i32[i] = int32(c)
		}
		f32[i] = float32(c)
	}
	switch dt {
	case TypeBool:
		return Bool(components[0] != 0), nil
	case TypeInt:
		return Int(i32[0]), nil
	case TypeHalf:
		return HalfOf(f32[0]), nil
	case TypeFloat:
		return Float(f32[0]), nil
	case TypeColor3f:
		return Color3f{V: ms3.Vec{X: f32[0], Y: f32[1], Z: f32[2]}}, nil
	case TypeColor4f:
		return Color4f{V: [4]float32(f32[:4])}, nil
	case TypeVector2f:
		return Vector2f{X: f32[0], Y: f32[1]}, nil
	case TypeVector3f:
		return Vector3f{X: f32[0], Y: f32[1], Z: f32[2]}, nil
	case TypeVector4f:
		return Vector4f(f32[:4]), nil
	case TypeVector2h:
		return Vector2h{HalfOf(f32[0]), HalfOf(f32[1])}, nil
	case TypeVector3h:
		return Vector3h{HalfOf(f32[0]), HalfOf(f32[1]), HalfOf(f32[2])}, nil
	case TypeVector4h:
		return Vector4h{HalfOf(f32[0]), HalfOf(f32[1]), HalfOf(f32[2]), HalfOf(f32[3])}, nil
	case TypeVector2i:
		return Vector2i(i32[:2]), nil
	case TypeVector3i:
		return Vector3i(i32[:3]), nil
	case TypeVector4i:
		return Vector4i(i32), nil
	case TypeMatrix2d:
		return Matrix2d(ms2.NewMat2(f32[:4])), nil
	case TypeMatrix3d:
		return Matrix3d(ms3.NewMat3(f32[:9])), nil
	case TypeMatrix4d:
		return Matrix4d(ms3.NewMat4(f32[:16])), nil
	}
	return nil, fmt.Errorf("unhandled data type %s", dt)
}

// AppendComponents appends the scalar components of a numeric constant to dst
// in the order accepted by [NewConstant].
func AppendComponents(dst []float32, c ConstantValue) []float32 {
	switch v := c.(type) {
	case Bool:
		if v {
			return append(dst, 1)
		}
		return append(dst, 0)
	case Int:
		return append(dst, float32(v))
	case Half:
		return append(dst, float32(v))
	case Float:
		return append(dst, float32(v))
	case Color3f:
		return append(dst, v.V.X, v.V.Y, v.V.Z)
	case Color4f:
		return append(dst, v.V[:]...)
	case Vector2f:
		return append(dst, v.X, v.Y)
	case Vector3f:
		return append(dst, v.X, v.Y, v.Z)
	case Vector4f:
		return append(dst, v[:]...)
	case Vector2h:
		return append(dst, float32(v[0]), float32(v[1]))
	case Vector3h:
		return append(dst, float32(v[0]), float32(v[1]), float32(v[2]))
	case Vector4h:
		return append(dst, float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]))
	case Vector2i:
		return append(dst, float32(v[0]), float32(v[1]))
	case Vector3i:
		return append(dst, float32(v[0]), float32(v[1]), float32(v[2]))
	case Vector4i:
		return append(dst, float32(v[0]), float32(v[1]), float32(v[2]), float32(v[3]))
	case Matrix2d:
		arr := ms2.Mat2(v).Array()
		return append(dst, arr[:]...)
	case Matrix3d:
		arr := ms3.Mat3(v).Array()
		return append(dst, arr[:]...)
	case Matrix4d:
		arr := ms3.Mat4(v).Array()
		return append(dst, arr[:]...)
	}
	return dst
}
