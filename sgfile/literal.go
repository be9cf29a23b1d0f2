package sgfile

import (
	"errors"
	"fmt"

	"github.com/zclconf/go-cty/cty"
	"github.com/zclconf/go-cty/cty/convert"
	"github.com/zclconf/go-cty/cty/gocty"

	"github.com/soypat/sgc"
)

// ctyConstant converts an HCL value to a constant of data type dt. Numeric
// vectors are written as lists, matrices as lists of rows.
func ctyConstant(dt sgc.DataType, val cty.Value) (sgc.ConstantValue, error) {
	if val.IsNull() {
		return nil, errors.New("value must not be null")
	} else if !val.IsWhollyKnown() {
		return nil, errors.New("value must be known")
	}
	switch dt {
	case sgc.TypeBool:
		var b bool
		if err := decode(val, cty.Bool, &b); err != nil {
			return nil, err
		}
		return sgc.Bool(b), nil
	case sgc.TypeString, sgc.TypeToken:
		var s string
		if err := decode(val, cty.String, &s); err != nil {
			return nil, err
		}
		if dt == sgc.TypeToken {
			return sgc.Token(s), nil
		}
		return sgc.String(s), nil
	case sgc.TypeAsset:
		return nil, errors.New("textures are bound through asset parameters")
	}

	var comps []float64
	switch {
	case dt.Components() == 1:
		var f float64
		if err := decode(val, cty.Number, &f); err != nil {
			return nil, err
		}
		comps = []float64{f}
	case dt.IsMatrix():
		dim := matrixDim(dt)
		var rows [][]float64
		if err := decode(val, cty.List(cty.List(cty.Number)), &rows); err != nil {
			return nil, fmt.Errorf("expected list of rows: %w", err)
		} else if len(rows) != dim {
			return nil, fmt.Errorf("expected %d rows, got %d", dim, len(rows))
		}
		for i, row := range rows {
			if len(row) != dim {
				return nil, fmt.Errorf("row %d: expected %d components, got %d", i, dim, len(row))
			}
			comps = append(comps, row...)
		}
	default:
		if err := decode(val, cty.List(cty.Number), &comps); err != nil {
			return nil, fmt.Errorf("expected list of %d numbers: %w", dt.Components(), err)
		}
	}
	return sgc.NewConstant(dt, comps)
}

func decode(val cty.Value, ty cty.Type, dst any) error {
	v, err := convert.Convert(val, ty)
	if err != nil {
		return err
	}
	return gocty.FromCtyValue(v, dst)
}

func matrixDim(dt sgc.DataType) int {
	switch dt {
	case sgc.TypeMatrix2d:
		return 2
	case sgc.TypeMatrix3d:
		return 3
	}
	return 4
}

func parseColorSpace(s string) (sgc.ColorSpace, error) {
	switch cs := sgc.ColorSpace(s); cs {
	case "", sgc.ColorSpaceLinearSRGB, sgc.ColorSpaceSRGB, sgc.ColorSpaceLinearDisplayP3, sgc.ColorSpaceDisplayP3:
		return cs, nil
	}
	return "", fmt.Errorf("unknown color space %q", s)
}
