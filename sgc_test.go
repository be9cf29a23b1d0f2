package sgc_test

import (
	"errors"
	"testing"

	"github.com/chewxy/math32"
	"github.com/google/go-cmp/cmp"
	"github.com/soypat/geometry/ms3"
	"github.com/soypat/sgc"
)

func TestDataTypes(t *testing.T) {
	dts := sgc.DataTypes()
	if len(dts) != 21 {
		t.Fatalf("want 21 data types, got %d", len(dts))
	}
	for _, dt := range dts {
		got, err := sgc.ParseDataType(dt.String())
		if err != nil {
			t.Errorf("%s: %s", dt, err)
		} else if got != dt {
			t.Errorf("%s: parsed as %s", dt, got)
		}
		def := dt.Default()
		if def.DataType() != dt {
			t.Errorf("%s: default has data type %s", dt, def.DataType())
		}
		if n := len(sgc.AppendComponents(nil, def)); n != dt.Components() {
			t.Errorf("%s: default has %d components, want %d", dt, n, dt.Components())
		}
	}
	if _, err := sgc.ParseDataType("double"); err == nil {
		t.Error("expected error parsing unknown data type")
	}
}

func TestMatrixDefaultsAreIdentity(t *testing.T) {
	for _, test := range []struct {
		dt   sgc.DataType
		want []float32
	}{
		{dt: sgc.TypeMatrix2d, want: []float32{1, 0, 0, 1}},
		{dt: sgc.TypeMatrix3d, want: []float32{1, 0, 0, 0, 1, 0, 0, 0, 1}},
		{dt: sgc.TypeMatrix4d, want: []float32{1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1, 0, 0, 0, 0, 1}},
	} {
		got := sgc.AppendComponents(nil, test.dt.Default())
		if diff := cmp.Diff(test.want, got); diff != "" {
			t.Errorf("%s default mismatch (-want +got):\n%s", test.dt, diff)
		}
	}
}

func TestRoundHalf(t *testing.T) {
	for _, test := range []struct {
		in, want float32
	}{
		{in: 1, want: 1},
		{in: -2, want: -2},
		{in: 0.1, want: 0.0999755859375},
		{in: 65504, want: 65504},
		{in: 65519, want: 65504},
		{in: 65520, want: math32.Inf(1)},
		{in: -1e6, want: math32.Inf(-1)},
		{in: 1e-8, want: 0},
		{in: 6e-8, want: 0x1p-24},
		{in: 1 + 0x1p-11, want: 1},                // Tie rounds to even.
		{in: 1 + 3*0x1p-11, want: 1 + 2*0x1p-10}, // Tie rounds to even.
	} {
		got := sgc.RoundHalf(test.in)
		if got != test.want {
			t.Errorf("RoundHalf(%g): want %g, got %g", test.in, test.want, got)
		}
	}
	if !math32.IsNaN(sgc.RoundHalf(math32.NaN())) {
		t.Error("NaN should round to NaN")
	}
}

func TestNewConstant(t *testing.T) {
	c, err := sgc.NewConstant(sgc.TypeColor3f, []float64{0, 0, 1})
	if err != nil {
		t.Fatal(err)
	}
	if c != (sgc.Color3f{V: ms3.Vec{Z: 1}}) {
		t.Errorf("unexpected constant %v", c)
	}
	c, err = sgc.NewConstant(sgc.TypeVector2h, []float64{0.1, 2})
	if err != nil {
		t.Fatal(err)
	}
	if c != (sgc.Vector2h{sgc.HalfOf(0.1), 2}) {
		t.Errorf("unexpected constant %v", c)
	}
	for _, test := range []struct {
		dt    sgc.DataType
		comps []float64
	}{
		{dt: sgc.TypeFloat, comps: []float64{1, 2}},
		{dt: sgc.TypeInt, comps: []float64{1.5}},
		{dt: sgc.TypeVector2i, comps: []float64{1, 1 << 40}},
		{dt: sgc.TypeString, comps: nil},
		{dt: sgc.TypeMatrix2d, comps: []float64{1, 0, 0}},
	} {
		if _, err := sgc.NewConstant(test.dt, test.comps); err == nil {
			t.Errorf("%s %v: expected error", test.dt, test.comps)
		}
	}
}

func TestWithColorSpace(t *testing.T) {
	c := sgc.WithColorSpace(sgc.Color4f{V: [4]float32{1, 1, 1, 1}}, sgc.ColorSpaceLinearSRGB)
	if c.(sgc.Color4f).Space != sgc.ColorSpaceLinearSRGB {
		t.Error("color space not set")
	}
	if sgc.WithColorSpace(sgc.Float(1), sgc.ColorSpaceSRGB) != sgc.Float(1) {
		t.Error("non color constants should be returned unchanged")
	}
}

func TestTypeMismatchBecomesError(t *testing.T) {
	var bld sgc.Builder
	id := bld.NewNode("ND_custom", []sgc.Input{
		{Name: "color", Type: sgc.TypeColor3f, Value: sgc.Scalar(1)},
		{Name: "amount", Type: sgc.TypeFloat, Value: sgc.Error(sgc.TypeColor3f, "upstream failure")},
		{Name: "unconnected", Type: sgc.TypeFloat},
	}, []sgc.Output{{Name: "out", Type: sgc.TypeColor3f}})
	node := bld.Node(id)
	want := []string{`ND_custom input "color": expected color3f, got float`, "upstream failure", ""}
	for i, in := range node.Inputs {
		if in.Value.Err() != want[i] {
			t.Errorf("input %s: want error %q, got %q", in.Name, want[i], in.Value.Err())
		}
		if !in.Value.IsZero() && in.Value.Type != in.Type {
			t.Errorf("input %s: value type %s differs from port type %s", in.Name, in.Value.Type, in.Type)
		}
	}
	if diff := cmp.Diff([]string{want[0], want[1]}, bld.CollectErrors(bld.Output(id, "out"))); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestHandleMisusePanics(t *testing.T) {
	var bld sgc.Builder
	id := bld.NewNode("ND_time_float", nil, []sgc.Output{{Name: "out", Type: sgc.TypeFloat}})
	g := bld.NewNodeGraph("G")
	g.AddInput("in", sgc.TypeFloat)
	for name, fn := range map[string]func(){
		"zero node":           func() { bld.Node(0) },
		"unknown node":        func() { bld.Node(id + 100) },
		"unknown output":      func() { bld.Output(id, "missing") },
		"zero graph":          func() { bld.NodeGraph(0) },
		"duplicate graph":     func() { bld.NewNodeGraph("G") },
		"unknown graph input": func() { bld.Reference(g.ID, []sgc.Input{{Name: "x", Type: sgc.TypeFloat}}) },
		"unknown graph output": func() {
			ref := bld.Reference(g.ID, nil)
			bld.Output(ref, "out")
		},
		"duplicate graph input": func() { g.AddInput("in", sgc.TypeInt) },
		"absent graph output":   func() { g.AddOutput("out", sgc.Value{}) },
		"dangling node output": func() {
			bld.NewNode("ND_sin_float", []sgc.Input{{Name: "in", Type: sgc.TypeFloat, Value: sgc.Value{
				Type: sgc.TypeFloat, Source: sgc.NodeOutputSource{Node: 99, Output: "out"},
			}}}, nil)
		},
	} {
		if !panics(fn) {
			t.Errorf("%s: expected panic", name)
		}
	}
}

func panics(fn func()) (panicked bool) {
	defer func() { panicked = recover() != nil }()
	fn()
	return false
}

func TestReferenceOutputs(t *testing.T) {
	var bld sgc.Builder
	g := bld.NewNodeGraph("Tint")
	amount := g.AddInput("amount", sgc.TypeFloat)
	g.AddOutput("out", bld.Multiply(sgc.RGB(1, 0, 0), amount))
	ref := bld.Reference(g.ID, []sgc.Input{{Name: "amount", Type: sgc.TypeFloat, Value: sgc.Scalar(0.5)}})
	out := bld.Output(ref, "out")
	if out.Type != sgc.TypeColor3f {
		t.Errorf("reference output should take the graph output type, got %s", out.Type)
	}
	// The referenced graph's nodes are not part of the instantiating scope.
	got := bld.AppendReachable(nil, sgc.RootNodes(out)...)
	if diff := cmp.Diff([]sgc.NodeID{ref}, got); diff != "" {
		t.Errorf("reachable mismatch (-want +got):\n%s", diff)
	}
}

func TestConstantsOnlyHasNoErrors(t *testing.T) {
	var bld sgc.Builder
	surface := bld.PBRSurface(sgc.PBRSurfaceInputs{
		BaseColor: sgc.RGB(0, 0, 1),
		Roughness: sgc.Scalar(0.5),
		Metallic:  sgc.Scalar(1),
	})
	if errs := bld.CollectErrors(surface); len(errs) != 0 {
		t.Errorf("unexpected errors %v", errs)
	}
	params, err := bld.CollectParameters(sgc.ParametersStrict, sgc.RootNodes(surface)...)
	if err != nil || len(params) != 0 {
		t.Errorf("unexpected parameters %v %v", params, err)
	}
}

func TestRootErrorValue(t *testing.T) {
	var bld sgc.Builder
	surface := bld.Add(sgc.RGB(1, 1, 1), sgc.Constant(sgc.Token("oops")))
	want := []string{"add: unsupported operand types color3f and token"}
	if diff := cmp.Diff(want, bld.CollectErrors(surface)); diff != "" {
		t.Errorf("errors mismatch (-want +got):\n%s", diff)
	}
}

func TestReachableDiamond(t *testing.T) {
	var bld sgc.Builder
	shared := bld.Time()                        // 1
	left := bld.Sin(shared)                     // 2
	right := bld.Multiply(shared, sgc.Scalar(2)) // 3
	sum := bld.Add(left, right)                 // 4
	got := bld.AppendReachable(nil, sgc.RootNodes(sum, sum)...)
	if diff := cmp.Diff([]sgc.NodeID{4, 2, 3, 1}, got); diff != "" {
		t.Errorf("reachable mismatch (-want +got):\n%s", diff)
	}
	// Appending preserves the existing prefix.
	got = bld.AppendReachable([]sgc.NodeID{4}, 2)
	if diff := cmp.Diff([]sgc.NodeID{4, 2, 1}, got); diff != "" {
		t.Errorf("reachable mismatch (-want +got):\n%s", diff)
	}
}

func TestParameterDeduplication(t *testing.T) {
	var bld sgc.Builder
	red := sgc.Color3f{V: ms3.Vec{X: 1}}
	a := bld.Multiply(sgc.Parameter("tint", red), sgc.Scalar(0.5))
	b := bld.Add(sgc.Parameter("tint", red), sgc.Parameter("glow", sgc.Color3f{}))
	sum := bld.Add(a, b)
	params, err := bld.CollectParameters(sgc.ParametersStrict, sgc.RootNodes(sum)...)
	if err != nil {
		t.Fatal(err)
	}
	want := []sgc.ParameterDecl{
		{Name: "tint", Default: red},
		{Name: "glow", Default: sgc.Color3f{}},
	}
	if diff := cmp.Diff(want, params); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestParameterConflictPolicies(t *testing.T) {
	var bld sgc.Builder
	sum := bld.Add(sgc.Parameter("roughness", sgc.Float(0.2)), sgc.Parameter("roughness", sgc.Float(0.8)))
	roots := sgc.RootNodes(sum)

	params, err := bld.CollectParameters(sgc.ParametersStrict, roots...)
	var perr *sgc.ParameterConflictError
	if !errors.As(err, &perr) {
		t.Fatalf("want *ParameterConflictError, got %v", err)
	}
	wantConflict := []sgc.ParameterConflict{{Name: "roughness", First: sgc.Float(0.2), Other: sgc.Float(0.8)}}
	if diff := cmp.Diff(wantConflict, perr.Conflicts); diff != "" {
		t.Errorf("conflicts mismatch (-want +got):\n%s", diff)
	}
	wantParams := []sgc.ParameterDecl{{Name: "roughness", Default: sgc.Float(0.2)}}
	if diff := cmp.Diff(wantParams, params); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}

	params, err = bld.CollectParameters(sgc.ParametersFirstWins, roots...)
	if err != nil {
		t.Fatal(err)
	}
	if diff := cmp.Diff(wantParams, params); diff != "" {
		t.Errorf("parameters mismatch (-want +got):\n%s", diff)
	}
}

func TestArithmeticNodeTypes(t *testing.T) {
	var bld sgc.Builder
	for _, test := range []struct {
		v    sgc.Value
		want string
	}{
		{v: bld.Add(sgc.Scalar(1), sgc.Scalar(2)), want: "ND_add_float"},
		{v: bld.Multiply(sgc.RGB(1, 1, 1), sgc.Scalar(2)), want: "ND_multiply_color3FA"},
		{v: bld.Subtract(sgc.Vec3(1, 1, 1), sgc.Vec3(0, 1, 0)), want: "ND_subtract_vector3"},
		{v: bld.Divide(sgc.Vec2(1, 1), sgc.Scalar(2)), want: "ND_divide_vector2FA"},
		{v: bld.Mix(sgc.RGB(1, 0, 0), sgc.RGB(0, 0, 1), sgc.Scalar(0.5)), want: "ND_mix_color3"},
		{v: bld.Dot(sgc.Vec3(1, 0, 0), sgc.Vec3(0, 1, 0)), want: "ND_dotproduct_vector3"},
		{v: bld.Texcoord(), want: "ND_texcoord_vector2"},
	} {
		id, ok := test.v.Node()
		if !ok {
			t.Errorf("%s: not a node output: %s", test.want, test.v.Err())
			continue
		}
		if got := bld.Node(id).Type; got != test.want {
			t.Errorf("want node type %s, got %s", test.want, got)
		}
	}
	for _, v := range []sgc.Value{
		bld.Add(sgc.Scalar(1), sgc.RGB(1, 1, 1)),
		bld.Mix(sgc.Scalar(1), sgc.Scalar(0), sgc.RGB(0, 0, 0)),
		bld.Dot(sgc.Vec3(1, 0, 0), sgc.Vec2(0, 1)),
		bld.Image(sgc.Scalar(1), sgc.Value{}, sgc.TypeColor3f),
		bld.Sin(sgc.Constant(sgc.Token("x"))),
		bld.Add(sgc.Value{}, sgc.Scalar(1)),
	} {
		if v.Err() == "" {
			t.Errorf("expected error value, got %+v", v)
		}
	}
}
