package sgc

import (
	"fmt"

	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
)

// DataType is the type of a value flowing through a shader graph.
// The set of data types is closed.
type DataType uint8

const (
	typeUndefined DataType = iota
	TypeBool
	TypeInt
	TypeHalf
	TypeFloat
	TypeString
	TypeToken
	// TypeAsset is a texture handle. Its constants carry a [TextureSource].
	TypeAsset
	TypeColor3f
	TypeColor4f
	TypeVector2f
	TypeVector3f
	TypeVector4f
	TypeVector2h
	TypeVector3h
	TypeVector4h
	TypeVector2i
	TypeVector3i
	TypeVector4i
	TypeMatrix2d
	TypeMatrix3d
	TypeMatrix4d
	typeEnd
)

var typeNames = [typeEnd]string{
	typeUndefined: "<undefined>",
	TypeBool:      "bool",
	TypeInt:       "int",
	TypeHalf:      "half",
	TypeFloat:     "float",
	TypeString:    "string",
	TypeToken:     "token",
	TypeAsset:     "asset",
	TypeColor3f:   "color3f",
	TypeColor4f:   "color4f",
	TypeVector2f:  "float2",
	TypeVector3f:  "float3",
	TypeVector4f:  "float4",
	TypeVector2h:  "half2",
	TypeVector3h:  "half3",
	TypeVector4h:  "half4",
	TypeVector2i:  "int2",
	TypeVector3i:  "int3",
	TypeVector4i:  "int4",
	TypeMatrix2d:  "matrix2d",
	TypeMatrix3d:  "matrix3d",
	TypeMatrix4d:  "matrix4d",
}

// DataTypes returns every valid data type in declaration order.
func DataTypes() []DataType {
	dts := make([]DataType, 0, typeEnd-1)
	for dt := typeUndefined + 1; dt < typeEnd; dt++ {
		dts = append(dts, dt)
	}
	return dts
}

// String returns the USD scene description name of the data type, i.e: "float3" for TypeVector3f.
func (dt DataType) String() string {
	if dt >= typeEnd {
		return fmt.Sprintf("<DataType(%d)>", uint8(dt))
	}
	return typeNames[dt]
}

// IsValid reports whether dt is one of the declared data types.
func (dt DataType) IsValid() bool { return dt > typeUndefined && dt < typeEnd }

// ParseDataType returns the data type whose USD name is s.
func ParseDataType(s string) (DataType, error) {
	for dt := typeUndefined + 1; dt < typeEnd; dt++ {
		if typeNames[dt] == s {
			return dt, nil
		}
	}
	return typeUndefined, fmt.Errorf("unknown data type %q", s)
}

// Components returns the amount of scalar components in a value of the data type.
// Returns 0 for non-numeric types (string, token, asset).
func (dt DataType) Components() int {
	switch dt {
	case TypeBool, TypeInt, TypeHalf, TypeFloat:
		return 1
	case TypeVector2f, TypeVector2h, TypeVector2i:
		return 2
	case TypeColor3f, TypeVector3f, TypeVector3h, TypeVector3i:
		return 3
	case TypeColor4f, TypeVector4f, TypeVector4h, TypeVector4i, TypeMatrix2d:
		return 4
	case TypeMatrix3d:
		return 9
	case TypeMatrix4d:
		return 16
	}
	return 0
}

// IsColor reports whether dt is a color type which may carry a [ColorSpace].
func (dt DataType) IsColor() bool { return dt == TypeColor3f || dt == TypeColor4f }

// IsMatrix reports whether dt is a square matrix type.
func (dt DataType) IsMatrix() bool {
	return dt == TypeMatrix2d || dt == TypeMatrix3d || dt == TypeMatrix4d
}

// IsScalar reports whether dt is a single numeric component type.
func (dt DataType) IsScalar() bool { return dt == TypeInt || dt == TypeHalf || dt == TypeFloat }

// Default returns the canonical default value of the data type:
// false, zero, zero vectors, identity matrices, empty strings or an empty texture.
func (dt DataType) Default() ConstantValue {
	switch dt {
	case TypeBool:
		return Bool(false)
	case TypeInt:
		return Int(0)
	case TypeHalf:
		return Half(0)
	case TypeFloat:
		return Float(0)
	case TypeString:
		return String("")
	case TypeToken:
		return Token("")
	case TypeAsset:
		return Texture{}
	case TypeColor3f:
		return Color3f{}
	case TypeColor4f:
		return Color4f{}
	case TypeVector2f:
		return Vector2f{}
	case TypeVector3f:
		return Vector3f{}
	case TypeVector4f:
		return Vector4f{}
	case TypeVector2h:
		return Vector2h{}
	case TypeVector3h:
		return Vector3h{}
	case TypeVector4h:
		return Vector4h{}
	case TypeVector2i:
		return Vector2i{}
	case TypeVector3i:
		return Vector3i{}
	case TypeVector4i:
		return Vector4i{}
	case TypeMatrix2d:
		return Matrix2d(ms2.IdentityMat2())
	case TypeMatrix3d:
		return Matrix3d(ms3.IdentityMat3())
	case TypeMatrix4d:
		return Matrix4d(ms3.IdentityMat4())
	}
	panic("no default for data type " + dt.String())
}
