// Package usdbuild generates USDA text for materials built with a [sgc.Builder].
package usdbuild

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/soypat/sgc"
)

const VersionStr = "#usda 1.0"

// Material is a top level material definition. The zero Value leaves the
// corresponding material output unconnected.
type Material struct {
	// Name of the material prim. Must not be empty.
	Name string
	// Surface is the token output of a surface shader node.
	Surface sgc.Value
	// GeometryModifier is the token output of a geometry modifier node.
	GeometryModifier sgc.Value
	// NodeGraphs are emitted as sibling definitions of the material so that
	// nodes instantiating them can reference them.
	NodeGraphs []sgc.GraphID
}

// GraphError is returned when a material can not be compiled. Messages holds
// every problem found, in discovery order.
type GraphError struct {
	Messages []string
}

func (e *GraphError) Error() string {
	if len(e.Messages) == 1 {
		return "shader graph error: " + e.Messages[0]
	}
	return fmt.Sprintf("%d shader graph errors: %s", len(e.Messages), strings.Join(e.Messages, "; "))
}

// Programmer implements USDA generation logic for materials.
type Programmer struct {
	// RootName is the name of the root Xform and the first element of every reference path.
	RootName string
	// MetersPerUnit and UpAxis are written to the stage metadata.
	MetersPerUnit float32
	UpAxis        string
	// ParameterPolicy resolves material parameters sharing a name with different defaults.
	ParameterPolicy sgc.ParameterPolicy

	scratch []byte
	nodes   []sgc.NodeID
}

// NewDefaultProgrammer returns a Programmer that emits stages readable by RealityKit.
func NewDefaultProgrammer() *Programmer {
	return &Programmer{
		RootName:        "Root",
		MetersPerUnit:   1,
		UpAxis:          "Y",
		ParameterPolicy: sgc.ParametersStrict,
	}
}

// Compile generates the USDA text of mat using a default [Programmer]. On success
// textures maps material parameter names to the texture source bound to them.
// On failure usda is empty, textures is empty and errs holds every problem found.
func Compile(bld *sgc.Builder, mat Material) (usda string, textures map[string]sgc.TextureSource, errs []string) {
	lines, textures, err := NewDefaultProgrammer().AppendMaterialLines(nil, bld, mat)
	if err != nil {
		var gerr *GraphError
		if errors.As(err, &gerr) {
			return "", map[string]sgc.TextureSource{}, gerr.Messages
		}
		return "", map[string]sgc.TextureSource{}, []string{err.Error()}
	}
	return strings.Join(lines, "\n"), textures, nil
}

// WriteMaterial writes the USDA text of mat to w. See [Programmer.AppendMaterialLines].
func (p *Programmer) WriteMaterial(w io.Writer, bld *sgc.Builder, mat Material) (n int, textures map[string]sgc.TextureSource, err error) {
	lines, textures, err := p.AppendMaterialLines(nil, bld, mat)
	if err != nil {
		return 0, nil, err
	}
	n, err = io.WriteString(w, strings.Join(lines, "\n"))
	return n, textures, err
}

// AppendMaterialLines appends the lines of the USDA stage defining mat and its node graphs
// to dst and returns the result along with the textures bound to material parameters.
// Lines carry no trailing newline.
//
// Validation runs before any line is generated: if an Error value is reachable from
// the material outputs or from the outputs of a listed node graph, if parameters
// conflict under the programmer's policy, if a material output is not a token node output
// or if a reachable node instantiates a node graph not listed in mat.NodeGraphs, dst is
// returned unmodified with a *[GraphError].
func (p *Programmer) AppendMaterialLines(dst []string, bld *sgc.Builder, mat Material) (_ []string, textures map[string]sgc.TextureSource, err error) {
	if mat.Name == "" {
		return dst, nil, errors.New("empty material name")
	}
	root := p.RootName
	if root == "" {
		root = "Root"
	}
	matRoots := sgc.RootNodes(mat.Surface, mat.GeometryModifier)

	// Validate. Every problem is reported, not just the first.
	checkRoots := []sgc.Value{mat.Surface, mat.GeometryModifier}
	var errs []string
	errs = appendOutputErrors(errs, "surface", mat.Surface)
	errs = appendOutputErrors(errs, "geometry modifier", mat.GeometryModifier)
graphs:
	for i, gid := range mat.NodeGraphs {
		g := bld.NodeGraph(gid)
		for _, prev := range mat.NodeGraphs[:i] {
			if prev == gid {
				errs = append(errs, fmt.Sprintf("node graph %q listed more than once", g.Name))
				continue graphs
			}
		}
		if g.Name == mat.Name {
			errs = append(errs, fmt.Sprintf("node graph %q has the same name as the material", g.Name))
		}
		for _, out := range g.Outputs {
			checkRoots = append(checkRoots, out.Value)
		}
	}
	errs = p.appendUnlistedReferences(errs, bld, mat, checkRoots)
	errs = append(errs, bld.CollectErrors(checkRoots...)...)
	params, err := bld.CollectParameters(p.ParameterPolicy, matRoots...)
	var perr *sgc.ParameterConflictError
	if errors.As(err, &perr) {
		errs = append(errs, perr.Messages()...)
	} else if err != nil {
		errs = append(errs, err.Error())
	}
	if len(errs) > 0 {
		return dst, nil, &GraphError{Messages: errs}
	}

	b := p.scratch[:0]
	b = append(b, "    metersPerUnit = "...)
	b = AppendFloat(b, p.MetersPerUnit)
	dst = append(dst,
		VersionStr,
		"(",
		`    defaultPrim = `+strconv.Quote(root),
		string(b),
		`    upAxis = `+strconv.Quote(p.UpAxis),
		")",
		"",
		`def Xform `+strconv.Quote(root),
		"{",
		`    reorder nameChildren = [`+strconv.Quote(mat.Name)+`]`,
		`    def Material `+strconv.Quote(mat.Name),
		"    {",
	)
	textures = make(map[string]sgc.TextureSource)
	for _, param := range params {
		b = append(b[:0], "        "...)
		b = append(b, param.Default.DataType().String()...)
		b = append(b, " inputs:"...)
		b = append(b, param.Name...)
		b = append(b, " = "...)
		b = AppendConstant(b, param.Default)
		dst = append(dst, string(b))
		if tex, ok := param.Default.(sgc.Texture); ok && !tex.IsEmpty() {
			textures[param.Name] = tex.Source
		}
	}
	b, dst = p.appendMaterialOutput(b, dst, root, mat.Name, "mtlx:surface", mat.Surface)
	b, dst = p.appendMaterialOutput(b, dst, root, mat.Name, "realitykit:vertex", mat.GeometryModifier)
	p.nodes = bld.AppendReachable(p.nodes[:0], matRoots...)
	b, dst = p.appendShaders(b, dst, bld, root, mat.Name, p.nodes)
	dst = append(dst, "    }")

	for _, gid := range mat.NodeGraphs {
		g := bld.NodeGraph(gid)
		dst = append(dst,
			`    def NodeGraph `+strconv.Quote(g.Name)+` (`,
			"        active = true",
			"    )",
			"    {",
		)
		for _, in := range g.Inputs {
			b = append(b[:0], "        "...)
			b = append(b, in.Type.String()...)
			b = append(b, " inputs:"...)
			b = append(b, in.Name...)
			b = append(b, " = "...)
			b = AppendConstant(b, in.DefaultValue())
			dst = append(dst, string(b))
		}
		for _, out := range g.Outputs {
			b = append(b[:0], "        "...)
			b = append(b, out.Value.Type.String()...)
			b = append(b, " outputs:"...)
			b = append(b, out.Name...)
			dst = append(dst, string(b))
			if out.Value.IsConnection() {
				b = append(b, ".connect"...)
			}
			b = append(b, " = "...)
			b = p.appendReference(b, bld, root, g.Name, out.Value)
			dst = append(dst, string(b))
		}
		p.nodes = bld.AppendReachable(p.nodes[:0], sgc.RootNodes(graphOutputValues(g)...)...)
		b, dst = p.appendShaders(b, dst, bld, root, g.Name, p.nodes)
		dst = append(dst, "    }")
	}
	dst = append(dst, "}")
	p.scratch = b
	return dst, textures, nil
}

func graphOutputValues(g *sgc.NodeGraph) []sgc.Value {
	values := make([]sgc.Value, len(g.Outputs))
	for i, out := range g.Outputs {
		values[i] = out.Value
	}
	return values
}

// appendOutputErrors reports a material output that is set but not driven by a token node output.
// Error values are left to error collection.
func appendOutputErrors(errs []string, slot string, v sgc.Value) []string {
	if v.IsZero() || v.Err() != "" {
		return errs
	}
	if _, ok := v.Node(); !ok {
		return append(errs, fmt.Sprintf("material %s must be a node output", slot))
	} else if v.Type != sgc.TypeToken {
		return append(errs, fmt.Sprintf("material %s must be a token, got %s", slot, v.Type))
	}
	return errs
}

// appendUnlistedReferences reports node graphs instantiated by reachable nodes
// that are not emitted alongside the material.
func (p *Programmer) appendUnlistedReferences(errs []string, bld *sgc.Builder, mat Material, roots []sgc.Value) []string {
	var reported []sgc.GraphID
	p.nodes = bld.AppendReachable(p.nodes[:0], sgc.RootNodes(roots...)...)
	for _, id := range p.nodes {
		node := bld.Node(id)
		if !node.IsReference() || slices.Contains(mat.NodeGraphs, node.Graph) || slices.Contains(reported, node.Graph) {
			continue
		}
		reported = append(reported, node.Graph)
		errs = append(errs, fmt.Sprintf("node graph %q is referenced but not listed in material %q", bld.NodeGraph(node.Graph).Name, mat.Name))
	}
	return errs
}

// appendMaterialOutput appends the material output slot line. Unset slots are declared bare.
func (p *Programmer) appendMaterialOutput(b []byte, dst []string, root, entity, slot string, v sgc.Value) ([]byte, []string) {
	b = append(b[:0], "        token outputs:"...)
	b = append(b, slot...)
	if _, ok := v.Node(); ok {
		b = append(b, ".connect = "...)
		b = p.appendReference(b, nil, root, entity, v)
	}
	return b, append(dst, string(b))
}

// appendShaders appends the shader blocks of nodes, each preceded by an empty line.
func (p *Programmer) appendShaders(b []byte, dst []string, bld *sgc.Builder, root, entity string, nodes []sgc.NodeID) ([]byte, []string) {
	for _, id := range nodes {
		node := bld.Node(id)
		name := NodeName(id)
		if node.IsReference() {
			dst = append(dst,
				"",
				`        def `+strconv.Quote(name)+` (`,
				"            active = true",
				"            instanceable = true",
				"            references = </"+root+"/"+bld.NodeGraph(node.Graph).Name+">",
				"        )",
				"        {",
			)
		} else {
			dst = append(dst,
				"",
				`        def Shader `+strconv.Quote(name),
				"        {",
				`            uniform token info:id = `+strconv.Quote(node.Type),
			)
		}
		for _, in := range node.Inputs {
			b = append(b[:0], "            "...)
			b = append(b, in.Type.String()...)
			b = append(b, " inputs:"...)
			b = append(b, in.Name...)
			if in.Value.IsConnection() {
				b = append(b, ".connect"...)
			}
			if !in.Value.IsZero() {
				b = append(b, " = "...)
				b = p.appendReference(b, bld, root, entity, in.Value)
			}
			dst = append(dst, string(b))
		}
		for _, out := range node.Outputs {
			b = append(b[:0], "            "...)
			b = append(b, out.Type.String()...)
			b = append(b, " outputs:"...)
			b = append(b, out.Name...)
			dst = append(dst, string(b))
		}
		dst = append(dst, "        }")
	}
	return b, dst
}

// appendReference appends the right hand side of an input or output assignment
// for v as seen from entity, the material or node graph being emitted.
func (p *Programmer) appendReference(b []byte, bld *sgc.Builder, root, entity string, v sgc.Value) []byte {
	switch src := v.Source.(type) {
	case sgc.ConstantSource:
		return AppendConstant(b, src.Value)
	case sgc.NodeOutputSource:
		b = append(b, "</"...)
		b = append(b, root...)
		b = append(b, '/')
		b = append(b, entity...)
		b = append(b, '/')
		b = AppendNodeName(b, src.Node)
		b = append(b, ".outputs:"...)
		b = append(b, src.Output...)
		return append(b, '>')
	case sgc.GraphInputSource:
		b = append(b, "</"...)
		b = append(b, root...)
		b = append(b, '/')
		b = append(b, bld.NodeGraph(src.Graph).Name...)
		b = append(b, ".inputs:"...)
		b = append(b, src.Input...)
		return append(b, '>')
	case sgc.ParameterSource:
		b = append(b, "</"...)
		b = append(b, root...)
		b = append(b, '/')
		b = append(b, entity...)
		b = append(b, ".inputs:"...)
		b = append(b, src.Name...)
		return append(b, '>')
	case sgc.ErrorSource:
		return strconv.AppendQuote(b, src.Message)
	}
	panic(fmt.Sprintf("unhandled value source %T", v.Source))
}

// NodeName returns the prim name of the node with handle id.
func NodeName(id sgc.NodeID) string { return string(AppendNodeName(nil, id)) }

// AppendNodeName appends the prim name of the node with handle id to b, i.e: "Node3".
func AppendNodeName(b []byte, id sgc.NodeID) []byte {
	b = append(b, "Node"...)
	return strconv.AppendUint(b, uint64(id), 10)
}
