package sgc

import (
	"fmt"
	"strings"
)

// ParameterDecl is a named input of the material interface and its default value.
type ParameterDecl struct {
	Name    string
	Default ConstantValue
}

// ParameterPolicy selects how [Builder.CollectParameters] resolves parameters
// that share a name but declare different defaults.
type ParameterPolicy uint8

const (
	// ParametersStrict fails collection when defaults differ.
	ParametersStrict ParameterPolicy = iota
	// ParametersFirstWins keeps the default of the first parameter discovered.
	ParametersFirstWins
)

// ParameterConflict is a parameter declared with a default different from the one first discovered.
type ParameterConflict struct {
	Name  string
	First ConstantValue
	Other ConstantValue
}

// ParameterConflictError is returned by [Builder.CollectParameters] in strict mode.
type ParameterConflictError struct {
	Conflicts []ParameterConflict
}

// Messages returns one message per conflict.
func (e *ParameterConflictError) Messages() []string {
	msgs := make([]string, len(e.Conflicts))
	for i, c := range e.Conflicts {
		msgs[i] = fmt.Sprintf("parameter %q declared with conflicting defaults %s %s and %s %s",
			c.Name, c.First.DataType(), describe(c.First), c.Other.DataType(), describe(c.Other))
	}
	return msgs
}

func describe(c ConstantValue) string {
	switch v := c.(type) {
	case String:
		return fmt.Sprintf("%q", string(v))
	case Token:
		return fmt.Sprintf("%q", string(v))
	case Int:
		return fmt.Sprintf("[%d]", int32(v))
	case Vector2i:
		return fmt.Sprint(v[:])
	case Vector3i:
		return fmt.Sprint(v[:])
	case Vector4i:
		return fmt.Sprint(v[:])
	case Texture:
		if v.IsEmpty() {
			return "<empty texture>"
		}
		return fmt.Sprintf("<texture %v>", v.Source)
	}
	return fmt.Sprint(AppendComponents(nil, c))
}

func (e *ParameterConflictError) Error() string {
	return strings.Join(e.Messages(), "; ")
}

// RootNodes returns the nodes producing the argument values. Values not
// sourced from a node output are skipped, as are repeated nodes.
func RootNodes(values ...Value) []NodeID {
	var roots []NodeID
	for _, v := range values {
		id, ok := v.Node()
		if !ok {
			continue
		}
		dup := false
		for _, r := range roots {
			dup = dup || r == id
		}
		if !dup {
			roots = append(roots, id)
		}
	}
	return roots
}

// AppendReachable appends every node reachable from roots through node inputs to dst
// in breadth first discovery order and returns the result. Each node is appended once:
// a node is queued only if it was neither visited nor queued before, so shared
// sub-expressions are not repeated. Nodes instantiating a node graph are walked through
// their own inputs only, the referenced graph is not entered.
//
// This order is shared by parameter collection, error collection and code generation.
func (bld *Builder) AppendReachable(dst []NodeID, roots ...NodeID) []NodeID {
	start := len(dst)
	seen := make(map[NodeID]struct{}, len(roots))
	enqueue := func(id NodeID) {
		if _, skip := seen[id]; skip {
			return
		}
		seen[id] = struct{}{}
		dst = append(dst, id)
	}
	for _, root := range roots {
		bld.Node(root) // Validate handle.
		enqueue(root)
	}
	for next := start; next < len(dst); next++ {
		node := bld.Node(dst[next])
		for _, in := range node.Inputs {
			if id, ok := in.Value.Node(); ok {
				enqueue(id)
			}
		}
	}
	return dst
}

// CollectParameters returns the parameters read by nodes reachable from roots,
// deduplicated by name, in first discovery order. Under [ParametersStrict] a
// *[ParameterConflictError] is returned if a name is declared with differing defaults,
// alongside the parameters as resolved by first discovery.
func (bld *Builder) CollectParameters(policy ParameterPolicy, roots ...NodeID) ([]ParameterDecl, error) {
	var params []ParameterDecl
	var conflicts []ParameterConflict
	index := make(map[string]int)
	for _, id := range bld.AppendReachable(nil, roots...) {
		for _, in := range bld.Node(id).Inputs {
			src, ok := in.Value.Source.(ParameterSource)
			if !ok {
				continue
			}
			i, exists := index[src.Name]
			if !exists {
				index[src.Name] = len(params)
				params = append(params, ParameterDecl{Name: src.Name, Default: src.Default})
				continue
			}
			first := params[i].Default
			if first == src.Default || policy == ParametersFirstWins {
				continue
			}
			conflict := ParameterConflict{Name: src.Name, First: first, Other: src.Default}
			repeated := false
			for _, c := range conflicts {
				repeated = repeated || c == conflict
			}
			if !repeated {
				conflicts = append(conflicts, conflict)
			}
		}
	}
	if len(conflicts) > 0 {
		return params, &ParameterConflictError{Conflicts: conflicts}
	}
	return params, nil
}

// CollectErrors returns the messages of every Error value reachable from roots:
// first those of the root values themselves, then those on node inputs in
// [Builder.AppendReachable] order. An empty result means code generation may proceed.
func (bld *Builder) CollectErrors(roots ...Value) []string {
	var errs []string
	for _, v := range roots {
		if src, ok := v.Source.(ErrorSource); ok {
			errs = append(errs, src.Message)
		}
	}
	for _, id := range bld.AppendReachable(nil, RootNodes(roots...)...) {
		for _, in := range bld.Node(id).Inputs {
			if src, ok := in.Value.Source.(ErrorSource); ok {
				errs = append(errs, src.Message)
			}
		}
	}
	return errs
}
