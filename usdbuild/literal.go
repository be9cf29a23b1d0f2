package usdbuild

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/chewxy/math32"
	"github.com/soypat/geometry/ms2"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sgc"
)

// AppendConstant appends the USDA literal form of c to b and returns the result.
//
//	bool:      1 or 0
//	scalars:   0.25, 3, nan, -inf
//	strings:   "quoted"
//	assets:    "" (texture sources are bound by parameter name, never serialized)
//	vectors:   (1, 0.5, 0)
//	matrices:  ((1, 0), (0, 1)) one tuple per row
//	colors:    (0, 0, 1) (colorSpace = "lin_srgb") when tagged
func AppendConstant(b []byte, c sgc.ConstantValue) []byte {
	switch v := c.(type) {
	case sgc.Bool:
		if v {
			return append(b, '1')
		}
		return append(b, '0')
	case sgc.Int:
		return strconv.AppendInt(b, int64(v), 10)
	case sgc.Half:
		return AppendFloat(b, float32(v))
	case sgc.Float:
		return AppendFloat(b, float32(v))
	case sgc.String:
		return strconv.AppendQuote(b, string(v))
	case sgc.Token:
		return strconv.AppendQuote(b, string(v))
	case sgc.Texture:
		return append(b, `""`...)
	case sgc.Color3f:
		b = appendFloatTuple(b, v.V.X, v.V.Y, v.V.Z)
		return appendColorSpace(b, v.Space)
	case sgc.Color4f:
		b = appendFloatTuple(b, v.V[:]...)
		return appendColorSpace(b, v.Space)
	case sgc.Matrix2d:
		arr := ms2.Mat2(v).Array()
		return appendMatrix(b, 2, arr[:])
	case sgc.Matrix3d:
		arr := ms3.Mat3(v).Array()
		return appendMatrix(b, 3, arr[:])
	case sgc.Matrix4d:
		arr := ms3.Mat4(v).Array()
		return appendMatrix(b, 4, arr[:])
	case sgc.Vector2i:
		return appendIntTuple(b, v[:]...)
	case sgc.Vector3i:
		return appendIntTuple(b, v[:]...)
	case sgc.Vector4i:
		return appendIntTuple(b, v[:]...)
	case sgc.Vector2f, sgc.Vector3f, sgc.Vector4f, sgc.Vector2h, sgc.Vector3h, sgc.Vector4h:
		return appendFloatTuple(b, sgc.AppendComponents(nil, c)...)
	case nil:
		panic("nil constant value")
	}
	panic(fmt.Sprintf("unhandled constant type %T", c))
}

func appendIntTuple(b []byte, v ...int32) []byte {
	b = append(b, '(')
	for i, x := range v {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = strconv.AppendInt(b, int64(x), 10)
	}
	return append(b, ')')
}

// AppendFloat appends the shortest decimal form of v that parses back to the same float32.
func AppendFloat(b []byte, v float32) []byte {
	switch {
	case math32.IsNaN(v):
		return append(b, "nan"...)
	case math32.IsInf(v, 1):
		return append(b, "inf"...)
	case math32.IsInf(v, -1):
		return append(b, "-inf"...)
	}
	return strconv.AppendFloat(b, float64(v), 'g', -1, 32)
}

func appendFloatTuple(b []byte, s ...float32) []byte {
	b = append(b, '(')
	for i, v := range s {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = AppendFloat(b, v)
	}
	return append(b, ')')
}

// appendMatrix appends a square matrix given in row-major order as a tuple of row tuples.
func appendMatrix(b []byte, dim int, rowmajor []float32) []byte {
	b = append(b, '(')
	for i := 0; i < dim; i++ {
		if i > 0 {
			b = append(b, ", "...)
		}
		b = appendFloatTuple(b, rowmajor[i*dim:(i+1)*dim]...)
	}
	return append(b, ')')
}

const colorSpacePrefix = "(colorSpace = "

func appendColorSpace(b []byte, cs sgc.ColorSpace) []byte {
	if cs == "" {
		return b
	}
	b = append(b, ' ')
	b = append(b, colorSpacePrefix...)
	b = strconv.AppendQuote(b, string(cs))
	return append(b, ')')
}

var errAssetLiteral = errors.New("asset literals other than the empty texture can not be resolved to a texture source")

// ParseConstant parses a literal in the form written by [AppendConstant] as a
// constant of data type dt. Asset literals only parse to the empty texture.
func ParseConstant(dt sgc.DataType, literal string) (sgc.ConstantValue, error) {
	s := strings.TrimSpace(literal)
	switch dt {
	case sgc.TypeBool:
		switch s {
		case "1", "true":
			return sgc.Bool(true), nil
		case "0", "false":
			return sgc.Bool(false), nil
		}
		return nil, fmt.Errorf("invalid bool literal %q", literal)
	case sgc.TypeString, sgc.TypeToken, sgc.TypeAsset:
		str, err := strconv.Unquote(s)
		if err != nil {
			return nil, fmt.Errorf("invalid %s literal %q: %w", dt, literal, err)
		}
		switch dt {
		case sgc.TypeString:
			return sgc.String(str), nil
		case sgc.TypeToken:
			return sgc.Token(str), nil
		}
		if str != "" {
			return nil, errAssetLiteral
		}
		return sgc.Texture{}, nil
	}
	if !dt.IsValid() {
		return nil, fmt.Errorf("invalid data type %s", dt)
	}
	var cs sgc.ColorSpace
	if dt.IsColor() {
		if idx := strings.LastIndex(s, colorSpacePrefix); idx > 0 {
			meta := strings.TrimSuffix(s[idx+len(colorSpacePrefix):], ")")
			name, err := strconv.Unquote(strings.TrimSpace(meta))
			if err != nil {
				return nil, fmt.Errorf("invalid color space in %q: %w", literal, err)
			}
			cs = sgc.ColorSpace(name)
			s = strings.TrimSpace(s[:idx])
		}
	}
	var tokens []string
	var err error
	switch {
	case dt.Components() == 1:
		tokens = []string{s}
	case dt.IsMatrix():
		tokens, err = splitMatrix(s)
	default:
		tokens, err = splitTuple(s)
	}
	if err != nil {
		return nil, fmt.Errorf("invalid %s literal %q: %w", dt, literal, err)
	}
	integer := dt == sgc.TypeInt || dt == sgc.TypeVector2i || dt == sgc.TypeVector3i || dt == sgc.TypeVector4i
	comps := make([]float64, len(tokens))
	for i, tok := range tokens {
		if integer {
			v, err := strconv.ParseInt(tok, 10, 32)
			if err != nil {
				return nil, fmt.Errorf("invalid %s literal %q: %w", dt, literal, err)
			}
			comps[i] = float64(v)
			continue
		}
		comps[i], err = strconv.ParseFloat(tok, 32)
		if err != nil {
			return nil, fmt.Errorf("invalid %s literal %q: %w", dt, literal, err)
		}
	}
	c, err := sgc.NewConstant(dt, comps)
	if err != nil {
		return nil, err
	}
	if cs != "" {
		c = sgc.WithColorSpace(c, cs)
	}
	return c, nil
}

// splitTuple splits "(a, b, c)" into its trimmed elements.
func splitTuple(s string) ([]string, error) {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, errors.New("expected parenthesized tuple")
	}
	inner := s[1 : len(s)-1]
	if strings.ContainsAny(inner, "()") {
		return nil, errors.New("unexpected nested tuple")
	}
	elems := strings.Split(inner, ",")
	for i := range elems {
		elems[i] = strings.TrimSpace(elems[i])
	}
	return elems, nil
}

// splitMatrix splits "((a, b), (c, d))" into the flattened row elements.
func splitMatrix(s string) ([]string, error) {
	if len(s) < 2 || s[0] != '(' || s[len(s)-1] != ')' {
		return nil, errors.New("expected parenthesized tuple of rows")
	}
	inner := strings.TrimSpace(s[1 : len(s)-1])
	var elems []string
	for len(inner) > 0 {
		end := strings.IndexByte(inner, ')')
		if inner[0] != '(' || end < 0 {
			return nil, errors.New("malformed matrix row")
		}
		row, err := splitTuple(inner[:end+1])
		if err != nil {
			return nil, err
		}
		elems = append(elems, row...)
		inner = strings.TrimSpace(inner[end+1:])
		if strings.HasPrefix(inner, ",") {
			inner = strings.TrimSpace(inner[1:])
		} else if len(inner) > 0 {
			return nil, errors.New("expected comma between matrix rows")
		}
	}
	return elems, nil
}
