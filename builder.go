package sgc

import (
	"fmt"
)

// Builder owns every node and node graph of one compilation unit and
// provides the API to wire them. Nodes and graphs are referenced through
// [NodeID] and [GraphID] handles which must not outlive the Builder.
//
// Invalid user data, such as connecting a float to a color input, never makes
// the Builder panic: the offending value is replaced with an Error value and
// reported when generating code. Misuse of handles and port names is a programmer
// error and does panic.
type Builder struct {
	nodes  []*Node
	graphs []*NodeGraph
}

// NewNode adds a node of type nodeType to the builder and returns its handle.
// Connected inputs whose data type differs from the port's are replaced with Error values.
func (bld *Builder) NewNode(nodeType string, inputs []Input, outputs []Output) NodeID {
	return bld.addNode(nodeType, inputs, outputs, 0)
}

// Reference adds a node that instantiates the node graph g, wiring inputs into
// the graph's declared inputs. Outputs of the returned node are read with [Builder.Output]
// using the graph's output names.
func (bld *Builder) Reference(g GraphID, inputs []Input) NodeID {
	graph := bld.NodeGraph(g)
	for _, in := range inputs {
		if _, ok := graph.FindInput(in.Name); !ok {
			panic(fmt.Sprintf("node graph %s has no input %q", graph.Name, in.Name))
		}
	}
	return bld.addNode(ReferenceNodeType, inputs, nil, g)
}

func (bld *Builder) addNode(nodeType string, inputs []Input, outputs []Output, g GraphID) NodeID {
	if nodeType == "" {
		panic("empty node type")
	}
	id := NodeID(len(bld.nodes) + 1)
	node := &Node{
		ID:      id,
		Type:    nodeType,
		Inputs:  append([]Input(nil), inputs...),
		Outputs: append([]Output(nil), outputs...),
		Graph:   g,
	}
	for i := range node.Inputs {
		in := &node.Inputs[i]
		if !in.Type.IsValid() {
			panic(fmt.Sprintf("%s input %q: invalid data type", nodeType, in.Name))
		}
		bld.mustResolve(in.Value)
		if !in.Value.IsZero() && in.Value.Type != in.Type {
			msg := in.Value.Err()
			if msg == "" {
				msg = fmt.Sprintf("%s input %q: expected %s, got %s", nodeType, in.Name, in.Type, in.Value.Type)
			}
			in.Value = Error(in.Type, msg)
		}
	}
	for _, out := range node.Outputs {
		if !out.Type.IsValid() {
			panic(fmt.Sprintf("%s output %q: invalid data type", nodeType, out.Name))
		}
	}
	bld.nodes = append(bld.nodes, node)
	return id
}

// mustResolve panics if v references a node, node graph or port that does not exist.
func (bld *Builder) mustResolve(v Value) {
	switch src := v.Source.(type) {
	case NodeOutputSource:
		bld.Output(src.Node, src.Output)
	case GraphInputSource:
		g := bld.NodeGraph(src.Graph)
		if _, ok := g.FindInput(src.Input); !ok {
			panic(fmt.Sprintf("node graph %s has no input %q", g.Name, src.Input))
		}
	case ParameterSource:
		if src.Default == nil {
			panic("parameter " + src.Name + " has no default value")
		}
	case ConstantSource:
		if src.Value == nil {
			panic("nil constant value")
		}
	}
}

// Node returns the node with handle id. It panics if id was not issued by bld.
func (bld *Builder) Node(id NodeID) *Node {
	if id == 0 || int(id) > len(bld.nodes) {
		panic(fmt.Sprintf("invalid node handle %d", id))
	}
	return bld.nodes[id-1]
}

// NumNodes returns the amount of nodes owned by the builder.
func (bld *Builder) NumNodes() int { return len(bld.nodes) }

// Output returns the value of node id's output port name. For nodes that
// instantiate a node graph the port is looked up among the graph's declared outputs.
// It panics if the port does not exist.
func (bld *Builder) Output(id NodeID, name string) Value {
	node := bld.Node(id)
	var dt DataType
	if node.IsReference() {
		out, ok := bld.NodeGraph(node.Graph).FindOutput(name)
		if !ok {
			panic(fmt.Sprintf("node graph %s has no output %q", bld.NodeGraph(node.Graph).Name, name))
		}
		dt = out.Value.Type
	} else {
		out, ok := node.FindOutput(name)
		if !ok {
			panic(fmt.Sprintf("node %d (%s) has no output %q", id, node.Type, name))
		}
		dt = out.Type
	}
	return Value{Type: dt, Source: NodeOutputSource{Node: id, Output: name}}
}

// NewNodeGraph adds an empty node graph named name. Graph names are unique
// within a builder, it panics if the name is taken.
func (bld *Builder) NewNodeGraph(name string) *NodeGraph {
	if name == "" {
		panic("empty node graph name")
	} else if _, exists := bld.FindNodeGraph(name); exists {
		panic("node graph " + name + " already defined")
	}
	g := &NodeGraph{ID: GraphID(len(bld.graphs) + 1), Name: name}
	bld.graphs = append(bld.graphs, g)
	return g
}

// NodeGraph returns the node graph with handle id. It panics if id was not issued by bld.
func (bld *Builder) NodeGraph(id GraphID) *NodeGraph {
	if id == 0 || int(id) > len(bld.graphs) {
		panic(fmt.Sprintf("invalid node graph handle %d", id))
	}
	return bld.graphs[id-1]
}

// FindNodeGraph returns the node graph named name.
func (bld *Builder) FindNodeGraph(name string) (*NodeGraph, bool) {
	for _, g := range bld.graphs {
		if g.Name == name {
			return g, true
		}
	}
	return nil, false
}

// NodeGraphs returns the handles of all node graphs in creation order.
func (bld *Builder) NodeGraphs() []GraphID {
	ids := make([]GraphID, len(bld.graphs))
	for i, g := range bld.graphs {
		ids[i] = g.ID
	}
	return ids
}
