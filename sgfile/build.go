package sgfile

import (
	"fmt"
	"path/filepath"
	"slices"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"

	"github.com/soypat/sgc"
	"github.com/soypat/sgc/texture"
	"github.com/soypat/sgc/usdbuild"
)

type loader struct {
	bld     *sgc.Builder
	baseDir string
	params  map[string]sgc.ConstantValue
	diags   hcl.Diagnostics
}

func (l *loader) errorf(subject *hcl.Range, summary, format string, args ...any) {
	l.diags = append(l.diags, &hcl.Diagnostic{
		Severity: hcl.DiagError,
		Summary:  summary,
		Detail:   fmt.Sprintf(format, args...),
		Subject:  subject,
	})
}

// checkRemain reports arguments and blocks left over after decoding a block.
func (l *loader) checkRemain(body hcl.Body) {
	if body == nil {
		return
	}
	// An empty schema reports every argument and block not consumed by decoding.
	_, diags := body.Content(&hcl.BodySchema{})
	l.diags = append(l.diags, diags...)
}

func bodyRange(body hcl.Body) *hcl.Range {
	if body == nil {
		return nil
	}
	rng := body.MissingItemRange()
	return &rng
}

// build declares parameters, then node graphs in file order, then top level
// nodes and finally materials. Node graphs must be declared before the nodes
// instantiating them.
func (l *loader) build(root *fileSchema) *File {
	for _, pb := range root.Parameters {
		l.declareParameter(pb)
	}
	for _, gb := range root.Graphs {
		l.buildGraph(gb)
	}
	top := l.newScope(nil, root.Nodes)
	top.buildAll()

	f := &File{Builder: l.bld}
	for _, mb := range root.Materials {
		l.checkRemain(mb.Remain)
		if mb.Name == "" {
			l.errorf(bodyRange(mb.Remain), "Invalid material name", "material names must not be empty")
			continue
		} else if _, exists := f.Material(mb.Name); exists {
			l.errorf(bodyRange(mb.Remain), "Duplicate material", "material %q is declared more than once", mb.Name)
			continue
		}
		f.Materials = append(f.Materials, usdbuild.Material{
			Name:             mb.Name,
			Surface:          top.evalOutput(mb.Surface, "surface"),
			GeometryModifier: top.evalOutput(mb.GeometryModifier, "geometry_modifier"),
			NodeGraphs:       l.materialGraphs(mb),
		})
	}
	return f
}

func (l *loader) declareParameter(pb *parameterBlock) {
	l.checkRemain(pb.Remain)
	subject := bodyRange(pb.Remain)
	if _, exists := l.params[pb.Name]; exists {
		l.errorf(subject, "Duplicate parameter", "parameter %q is declared more than once", pb.Name)
		return
	}
	dt, err := sgc.ParseDataType(pb.Type)
	if err != nil {
		l.errorf(subject, "Invalid parameter type", "parameter %q: %s", pb.Name, err)
		return
	}
	var def sgc.ConstantValue
	switch {
	case dt == sgc.TypeAsset:
		if isExprDefined(pb.Default) {
			l.errorf(pb.Default.Range().Ptr(), "Invalid asset default", "asset parameter %q binds its file through the texture attribute", pb.Name)
			return
		}
		def = sgc.Texture{}
		if pb.Texture != "" {
			path := pb.Texture
			if !filepath.IsAbs(path) {
				path = filepath.Join(l.baseDir, path)
			}
			def = sgc.Texture{Source: texture.File(path)}
		}
	case pb.Texture != "":
		l.errorf(subject, "Unexpected texture", "parameter %q of type %s can not bind a texture", pb.Name, dt)
		return
	default:
		var ok bool
		def, ok = l.constant(dt, pb.Default, pb.ColorSpace, subject)
		if !ok {
			return
		}
	}
	l.params[pb.Name] = def
}

// constant converts expr to a constant of data type dt. An omitted expression
// yields the data type's default.
func (l *loader) constant(dt sgc.DataType, expr hcl.Expression, colorSpace string, subject *hcl.Range) (sgc.ConstantValue, bool) {
	cs, err := parseColorSpace(colorSpace)
	if err != nil {
		l.errorf(subject, "Invalid color space", "%s", err)
		return nil, false
	} else if cs != "" && !dt.IsColor() {
		l.errorf(subject, "Invalid color space", "color space given for non-color type %s", dt)
		return nil, false
	}
	if !isExprDefined(expr) {
		return sgc.WithColorSpace(dt.Default(), cs), true
	}
	val, diags := expr.Value(nil)
	l.diags = append(l.diags, diags...)
	if diags.HasErrors() {
		return nil, false
	}
	c, err := ctyConstant(dt, val)
	if err != nil {
		l.errorf(expr.Range().Ptr(), "Invalid value", "%s value: %s", dt, err)
		return nil, false
	}
	return sgc.WithColorSpace(c, cs), true
}

func (l *loader) buildGraph(gb *graphBlock) {
	l.checkRemain(gb.Remain)
	subject := bodyRange(gb.Remain)
	if gb.Name == "" {
		l.errorf(subject, "Invalid node graph name", "node graph names must not be empty")
		return
	} else if _, exists := l.bld.FindNodeGraph(gb.Name); exists {
		l.errorf(subject, "Duplicate node graph", "node graph %q is declared more than once", gb.Name)
		return
	}
	g := l.bld.NewNodeGraph(gb.Name)
	for _, ib := range gb.Inputs {
		l.checkRemain(ib.Remain)
		isubject := bodyRange(ib.Remain)
		if _, exists := g.FindInput(ib.Name); exists {
			l.errorf(isubject, "Duplicate graph input", "node graph %q declares input %q more than once", g.Name, ib.Name)
			continue
		}
		dt, err := sgc.ParseDataType(ib.Type)
		if err != nil {
			l.errorf(isubject, "Invalid graph input type", "node graph %q input %q: %s", g.Name, ib.Name, err)
			continue
		}
		if !isExprDefined(ib.Default) && ib.ColorSpace == "" {
			g.AddInput(ib.Name, dt)
			continue
		}
		def, ok := l.constant(dt, ib.Default, ib.ColorSpace, isubject)
		if ok {
			g.AddInputDefault(ib.Name, def)
		}
	}

	s := l.newScope(g, gb.Nodes)
	s.buildAll()
	for _, ob := range gb.Outputs {
		if _, exists := g.FindOutput(ob.Name); exists {
			l.errorf(ob.Value.Range().Ptr(), "Duplicate graph output", "node graph %q declares output %q more than once", g.Name, ob.Name)
			continue
		}
		var v sgc.Value
		var ok bool
		if ob.Type != "" {
			dt, err := sgc.ParseDataType(ob.Type)
			if err != nil {
				l.errorf(ob.Value.Range().Ptr(), "Invalid graph output type", "node graph %q output %q: %s", g.Name, ob.Name, err)
				continue
			}
			v, ok = s.eval(ob.Value, dt, "")
			if ok && v.Type != dt {
				l.errorf(ob.Value.Range().Ptr(), "Graph output type mismatch", "node graph %q output %q is declared %s but its value is %s", g.Name, ob.Name, dt, v.Type)
				continue
			}
		} else {
			v, ok = s.eval(ob.Value, 0, "")
		}
		if ok {
			g.AddOutput(ob.Name, v)
		}
	}
}

func (l *loader) materialGraphs(mb *materialBlock) []sgc.GraphID {
	if !isExprDefined(mb.NodeGraphs) {
		return l.bld.NodeGraphs()
	}
	var names []string
	diags := gohcl.DecodeExpression(mb.NodeGraphs, nil, &names)
	l.diags = append(l.diags, diags...)
	if diags.HasErrors() {
		return nil
	}
	ids := make([]sgc.GraphID, 0, len(names))
	for _, name := range names {
		g, exists := l.bld.FindNodeGraph(name)
		if !exists {
			l.errorf(mb.NodeGraphs.Range().Ptr(), "Unknown node graph", "material %q lists undeclared node graph %q", mb.Name, name)
			continue
		}
		ids = append(ids, g.ID)
	}
	return ids
}

type buildState uint8

const (
	unvisited buildState = iota
	visiting
	built
	failed
)

// scope holds the nodes of the file's top level or of a single node graph.
// Nodes are built on first reference so declaration order does not matter.
type scope struct {
	l *loader
	// graph is nil for the top level scope.
	graph  *sgc.NodeGraph
	blocks map[string]*nodeBlock
	order  []*nodeBlock
	nodes  map[string]sgc.NodeID
	state  map[string]buildState
}

func (l *loader) newScope(g *sgc.NodeGraph, blocks []*nodeBlock) *scope {
	s := &scope{
		l:      l,
		graph:  g,
		blocks: make(map[string]*nodeBlock, len(blocks)),
		nodes:  make(map[string]sgc.NodeID, len(blocks)),
		state:  make(map[string]buildState, len(blocks)),
	}
	for _, nb := range blocks {
		if _, exists := s.blocks[nb.Name]; exists {
			l.errorf(bodyRange(nb.Remain), "Duplicate node", "node %q is declared more than once in %s", nb.Name, s.where())
			continue
		}
		s.blocks[nb.Name] = nb
		s.order = append(s.order, nb)
	}
	return s
}

func (s *scope) where() string {
	if s.graph == nil {
		return "the file's top level"
	}
	return "node graph " + s.graph.Name
}

func (s *scope) buildAll() {
	for _, nb := range s.order {
		s.build(nb)
	}
}

func (s *scope) build(nb *nodeBlock) (sgc.NodeID, bool) {
	switch s.state[nb.Name] {
	case built:
		return s.nodes[nb.Name], true
	case failed:
		return 0, false
	case visiting:
		s.l.errorf(bodyRange(nb.Remain), "Reference cycle", "node %q in %s depends on its own output", nb.Name, s.where())
		s.state[nb.Name] = failed
		return 0, false
	}
	s.state[nb.Name] = visiting
	id, ok := s.construct(nb)
	if !ok {
		s.state[nb.Name] = failed
		return 0, false
	}
	s.state[nb.Name] = built
	s.nodes[nb.Name] = id
	return id, true
}

func (s *scope) construct(nb *nodeBlock) (sgc.NodeID, bool) {
	s.l.checkRemain(nb.Remain)
	for _, ib := range nb.Inputs {
		s.l.checkRemain(ib.Remain)
	}
	subject := bodyRange(nb.Remain)
	switch {
	case nb.Type != "" && nb.Graph != "":
		s.l.errorf(subject, "Ambiguous node", "node %q sets both type and graph", nb.Name)
		return 0, false
	case nb.Graph != "":
		return s.constructReference(nb)
	case nb.Type == "":
		s.l.errorf(subject, "Missing node type", "node %q must set type or graph", nb.Name)
		return 0, false
	case nb.Type == sgc.ReferenceNodeType:
		s.l.errorf(subject, "Reserved node type", "node %q: use the graph attribute to instantiate node graphs", nb.Name)
		return 0, false
	}
	ok := true
	inputs := make([]sgc.Input, 0, len(nb.Inputs))
	for _, ib := range nb.Inputs {
		isubject := bodyRange(ib.Remain)
		if slices.ContainsFunc(inputs, func(in sgc.Input) bool { return in.Name == ib.Name }) {
			s.l.errorf(isubject, "Duplicate input", "node %q declares input %q more than once", nb.Name, ib.Name)
			ok = false
			continue
		}
		dt, err := sgc.ParseDataType(ib.Type)
		if err != nil {
			s.l.errorf(isubject, "Invalid input type", "node %q input %q: %s", nb.Name, ib.Name, err)
			ok = false
			continue
		}
		v, vok := s.eval(ib.Value, dt, ib.ColorSpace)
		ok = ok && vok
		inputs = append(inputs, sgc.Input{Name: ib.Name, Type: dt, Value: v})
	}
	outputs := make([]sgc.Output, 0, len(nb.Outputs))
	for _, ob := range nb.Outputs {
		if slices.ContainsFunc(outputs, func(out sgc.Output) bool { return out.Name == ob.Name }) {
			s.l.errorf(subject, "Duplicate output", "node %q declares output %q more than once", nb.Name, ob.Name)
			ok = false
			continue
		}
		dt, err := sgc.ParseDataType(ob.Type)
		if err != nil {
			s.l.errorf(subject, "Invalid output type", "node %q output %q: %s", nb.Name, ob.Name, err)
			ok = false
			continue
		}
		outputs = append(outputs, sgc.Output{Name: ob.Name, Type: dt})
	}
	if !ok {
		return 0, false
	}
	return s.l.bld.NewNode(nb.Type, inputs, outputs), true
}

func (s *scope) constructReference(nb *nodeBlock) (sgc.NodeID, bool) {
	subject := bodyRange(nb.Remain)
	g, exists := s.l.bld.FindNodeGraph(nb.Graph)
	switch {
	case !exists:
		s.l.errorf(subject, "Unknown node graph", "node %q instantiates undeclared node graph %q; node graphs must be declared before the nodes instantiating them", nb.Name, nb.Graph)
		return 0, false
	case s.graph != nil && g.ID == s.graph.ID:
		s.l.errorf(subject, "Recursive node graph", "node %q instantiates its own node graph %q", nb.Name, nb.Graph)
		return 0, false
	case len(nb.Outputs) > 0:
		s.l.errorf(subject, "Unexpected output", "node %q instantiates node graph %q and takes its outputs from it", nb.Name, nb.Graph)
		return 0, false
	}
	ok := true
	inputs := make([]sgc.Input, 0, len(nb.Inputs))
	for _, ib := range nb.Inputs {
		isubject := bodyRange(ib.Remain)
		gi, found := g.FindInput(ib.Name)
		if !found {
			s.l.errorf(isubject, "Unknown graph input", "node graph %q has no input %q", g.Name, ib.Name)
			ok = false
			continue
		} else if slices.ContainsFunc(inputs, func(in sgc.Input) bool { return in.Name == ib.Name }) {
			s.l.errorf(isubject, "Duplicate input", "node %q declares input %q more than once", nb.Name, ib.Name)
			ok = false
			continue
		}
		if ib.Type != "" {
			dt, err := sgc.ParseDataType(ib.Type)
			if err != nil || dt != gi.Type {
				s.l.errorf(isubject, "Input type mismatch", "node graph %q input %q is of type %s, got %q", g.Name, ib.Name, gi.Type, ib.Type)
				ok = false
				continue
			}
		}
		v, vok := s.eval(ib.Value, gi.Type, ib.ColorSpace)
		ok = ok && vok
		inputs = append(inputs, sgc.Input{Name: ib.Name, Type: gi.Type, Value: v})
	}
	if !ok {
		return 0, false
	}
	return s.l.bld.Reference(g.ID, inputs), true
}

// eval returns the value of expr. Omitted expressions yield the zero Value.
// Literals are converted to want and rejected if want is not a valid data type.
func (s *scope) eval(expr hcl.Expression, want sgc.DataType, colorSpace string) (sgc.Value, bool) {
	if !isExprDefined(expr) {
		return sgc.Value{}, true
	}
	if trav, diags := hcl.AbsTraversalForExpr(expr); !diags.HasErrors() {
		return s.resolve(trav, expr.Range().Ptr())
	}
	if !want.IsValid() {
		s.l.errorf(expr.Range().Ptr(), "Untyped literal", "a literal needs a declared type to be converted")
		return sgc.Value{}, false
	}
	c, ok := s.l.constant(want, expr, colorSpace, expr.Range().Ptr())
	if !ok {
		return sgc.Value{}, false
	}
	return sgc.Constant(c), true
}

// evalOutput evaluates a material output, which must be a node output.
func (s *scope) evalOutput(expr hcl.Expression, attr string) sgc.Value {
	if !isExprDefined(expr) {
		return sgc.Value{}
	} else if _, diags := hcl.AbsTraversalForExpr(expr); diags.HasErrors() {
		s.l.errorf(expr.Range().Ptr(), "Invalid material output", "%s must reference a node output", attr)
		return sgc.Value{}
	}
	v, ok := s.eval(expr, 0, "")
	if !ok {
		return sgc.Value{}
	} else if _, isNode := v.Node(); !isNode && !v.IsZero() {
		s.l.errorf(expr.Range().Ptr(), "Invalid material output", "%s must reference a node output", attr)
		return sgc.Value{}
	}
	return v
}

func (s *scope) resolve(trav hcl.Traversal, subject *hcl.Range) (sgc.Value, bool) {
	attr := func(i int) (string, bool) {
		if i >= len(trav) {
			return "", false
		}
		a, ok := trav[i].(hcl.TraverseAttr)
		return a.Name, ok
	}
	root := trav.RootName()
	name, ok := attr(1)
	output, hasOutput := attr(2)
	maxLen := 2
	if root == "node" {
		maxLen = 3
	}
	if !ok || len(trav) > maxLen || (len(trav) == 3 && !hasOutput) {
		s.l.errorf(subject, "Invalid reference", "expected node.<name>, node.<name>.<output>, param.<name> or input.<name>")
		return sgc.Value{}, false
	}
	switch root {
	case "param":
		if s.graph != nil {
			s.l.errorf(subject, "Parameter inside node graph", "node graph %q can not read material parameter %q; declare a graph input instead", s.graph.Name, name)
			return sgc.Value{}, false
		}
		def, exists := s.l.params[name]
		if !exists {
			s.l.errorf(subject, "Unknown parameter", "no parameter named %q is declared", name)
			return sgc.Value{}, false
		}
		return sgc.Parameter(name, def), true

	case "input":
		if s.graph == nil {
			s.l.errorf(subject, "Graph input outside node graph", "input.%s can only be read inside a node graph", name)
			return sgc.Value{}, false
		}
		gi, exists := s.graph.FindInput(name)
		if !exists {
			s.l.errorf(subject, "Unknown graph input", "node graph %q has no input %q", s.graph.Name, name)
			return sgc.Value{}, false
		}
		return sgc.Value{Type: gi.Type, Source: sgc.GraphInputSource{Graph: s.graph.ID, Input: name}}, true

	case "node":
		nb, exists := s.blocks[name]
		if !exists {
			s.l.errorf(subject, "Unknown node", "no node %q in %s", name, s.where())
			return sgc.Value{}, false
		}
		id, ok := s.build(nb)
		if !ok {
			return sgc.Value{}, false
		}
		names := s.outputNames(id)
		switch {
		case !hasOutput && len(names) != 1:
			s.l.errorf(subject, "Ambiguous node output", "node %q has %d outputs; name one with node.%s.<output>", name, len(names), name)
			return sgc.Value{}, false
		case !hasOutput:
			output = names[0]
		case !slices.Contains(names, output):
			s.l.errorf(subject, "Unknown node output", "node %q has no output %q", name, output)
			return sgc.Value{}, false
		}
		return s.l.bld.Output(id, output), true
	}
	s.l.errorf(subject, "Invalid reference", "unknown reference root %q; expected node, param or input", root)
	return sgc.Value{}, false
}

func (s *scope) outputNames(id sgc.NodeID) []string {
	var names []string
	node := s.l.bld.Node(id)
	if node.IsReference() {
		for _, out := range s.l.bld.NodeGraph(node.Graph).Outputs {
			names = append(names, out.Name)
		}
		return names
	}
	for _, out := range node.Outputs {
		names = append(names, out.Name)
	}
	return names
}
