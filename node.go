package sgc

// NodeID is a handle to a [Node] owned by a [Builder]. The zero NodeID is invalid.
type NodeID uint32

// GraphID is a handle to a [NodeGraph] owned by a [Builder]. The zero GraphID is invalid.
type GraphID uint32

// ReferenceNodeType is the node type of nodes that instantiate a [NodeGraph].
const ReferenceNodeType = "NodeGraphReference"

// Input is a named, typed input port of a node. An input with a zero Value is unconnected.
type Input struct {
	Name  string
	Type  DataType
	Value Value
}

// Output is a named, typed output port of a node. Output ports are declaration
// points only, a node never stores the value of its outputs.
type Output struct {
	Name string
	Type DataType
}

// Node is a single shader operation.
type Node struct {
	ID NodeID
	// Type names the shader function the node evaluates, i.e: "ND_add_float".
	Type    string
	Inputs  []Input
	Outputs []Output
	// Graph is non-zero for nodes that instantiate a node graph. Such nodes
	// have no output ports of their own, their outputs are the graph's outputs.
	Graph GraphID
}

// IsReference reports whether the node instantiates a node graph.
func (n *Node) IsReference() bool { return n.Graph != 0 }

// FindInput returns the input port named name.
func (n *Node) FindInput(name string) (Input, bool) {
	for _, in := range n.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return Input{}, false
}

// FindOutput returns the output port named name.
func (n *Node) FindOutput(name string) (Output, bool) {
	for _, out := range n.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return Output{}, false
}

// GraphInput is a declared input of a node graph.
type GraphInput struct {
	Name string
	Type DataType
	// Default is the value the input takes when not wired. A nil Default is the data type's default.
	Default ConstantValue
}

// DefaultValue returns the input's default or the data type's canonical default.
func (gi GraphInput) DefaultValue() ConstantValue {
	if gi.Default != nil {
		return gi.Default
	}
	return gi.Type.Default()
}

// GraphOutput is a declared output of a node graph.
type GraphOutput struct {
	Name  string
	Value Value
}

// NodeGraph is a named, reusable sub-network with declared inputs and outputs.
// Nodes inside the graph read its inputs through [GraphInputSource] values.
type NodeGraph struct {
	ID      GraphID
	Name    string
	Inputs  []GraphInput
	Outputs []GraphOutput
}

// AddInput declares an input with the data type's default and returns
// the value nodes inside the graph use to read it.
func (g *NodeGraph) AddInput(name string, dt DataType) Value {
	return g.addInput(GraphInput{Name: name, Type: dt})
}

// AddInputDefault declares an input with an explicit default value and returns
// the value nodes inside the graph use to read it.
func (g *NodeGraph) AddInputDefault(name string, defaultValue ConstantValue) Value {
	return g.addInput(GraphInput{Name: name, Type: defaultValue.DataType(), Default: defaultValue})
}

func (g *NodeGraph) addInput(in GraphInput) Value {
	if !in.Type.IsValid() {
		panic("node graph " + g.Name + " input " + in.Name + ": invalid data type")
	} else if _, exists := g.FindInput(in.Name); exists {
		panic("node graph " + g.Name + " input " + in.Name + " declared twice")
	}
	g.Inputs = append(g.Inputs, in)
	return Value{Type: in.Type, Source: GraphInputSource{Graph: g.ID, Input: in.Name}}
}

// AddOutput declares an output of the graph driven by v.
func (g *NodeGraph) AddOutput(name string, v Value) {
	if v.IsZero() {
		panic("node graph " + g.Name + " output " + name + ": absent value")
	} else if _, exists := g.FindOutput(name); exists {
		panic("node graph " + g.Name + " output " + name + " declared twice")
	}
	g.Outputs = append(g.Outputs, GraphOutput{Name: name, Value: v})
}

// FindInput returns the declared input named name.
func (g *NodeGraph) FindInput(name string) (GraphInput, bool) {
	for _, in := range g.Inputs {
		if in.Name == name {
			return in, true
		}
	}
	return GraphInput{}, false
}

// FindOutput returns the declared output named name.
func (g *NodeGraph) FindOutput(name string) (GraphOutput, bool) {
	for _, out := range g.Outputs {
		if out.Name == name {
			return out, true
		}
	}
	return GraphOutput{}, false
}
