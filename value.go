package sgc

// ValueSource describes where a [Value] comes from. The variants are
// [ConstantSource], [NodeOutputSource], [GraphInputSource], [ParameterSource] and [ErrorSource].
type ValueSource interface {
	isValueSource()
}

// ConstantSource is an inline literal.
type ConstantSource struct {
	Value ConstantValue
}

// NodeOutputSource references an output port of a node owned by the same [Builder].
type NodeOutputSource struct {
	Node   NodeID
	Output string
}

// GraphInputSource references a declared input of an enclosing node graph.
type GraphInputSource struct {
	Graph GraphID
	Input string
}

// ParameterSource is a named input promoted to the public interface of the material.
// Parameter sources sharing a name denote the same parameter.
type ParameterSource struct {
	Name    string
	Default ConstantValue
}

// ErrorSource stands in for a value that failed to construct. Any reachable
// ErrorSource makes code generation fail.
type ErrorSource struct {
	Message string
}

func (ConstantSource) isValueSource()   {}
func (NodeOutputSource) isValueSource() {}
func (GraphInputSource) isValueSource() {}
func (ParameterSource) isValueSource()  {}
func (ErrorSource) isValueSource()      {}

// Value is a typed reference to data in the shader graph. The zero Value is
// used to represent an absent value, i.e: an unconnected input or material output.
type Value struct {
	Type   DataType
	Source ValueSource
}

// IsZero reports whether v is the absent value.
func (v Value) IsZero() bool { return v.Source == nil }

// Node returns the node producing v and true if v is sourced by a node output.
func (v Value) Node() (NodeID, bool) {
	src, ok := v.Source.(NodeOutputSource)
	return src.Node, ok
}

// Err returns the error message of an Error value, or the empty string if v is not an error.
func (v Value) Err() string {
	if src, ok := v.Source.(ErrorSource); ok {
		return src.Message
	}
	return ""
}

// IsConnection reports whether the value references another entity
// (node output, graph input or parameter) instead of carrying a literal.
func (v Value) IsConnection() bool {
	switch v.Source.(type) {
	case NodeOutputSource, GraphInputSource, ParameterSource:
		return true
	}
	return false
}

// Constant returns a literal value of c's data type.
func Constant(c ConstantValue) Value {
	return Value{Type: c.DataType(), Source: ConstantSource{Value: c}}
}

// Parameter returns a value promoted to the material interface as name, with
// defaultValue used when the renderer does not override it.
func Parameter(name string, defaultValue ConstantValue) Value {
	return Value{Type: defaultValue.DataType(), Source: ParameterSource{Name: name, Default: defaultValue}}
}

// Error returns a placeholder value of data type dt that fails code generation with msg.
func Error(dt DataType, msg string) Value {
	return Value{Type: dt, Source: ErrorSource{Message: msg}}
}
