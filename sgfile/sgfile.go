// Package sgfile loads shader graphs described in HCL files.
//
// A file declares material parameters, node graphs, top level nodes and materials:
//
//	parameter "tint" {
//	  type    = "color3f"
//	  default = [1, 0, 0]
//	}
//
//	node "surface" {
//	  type = "ND_realitykit_pbr_surfaceshader"
//	  input "baseColor" {
//	    type  = "color3f"
//	    value = param.tint
//	  }
//	  output "out" { type = "token" }
//	}
//
//	material "Red" {
//	  surface = node.surface
//	}
//
// Values are either literals converted to the input's data type or references:
// node.<name> for the single output of a node, node.<name>.<output> for a named
// output, param.<name> for a material parameter and input.<name> for an input of
// the enclosing node graph. Nodes may be declared in any order.
package sgfile

import (
	"os"
	"path/filepath"

	"github.com/hashicorp/hcl/v2"
	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/soypat/sgc"
	"github.com/soypat/sgc/usdbuild"
)

// File is the result of loading a graph description.
type File struct {
	// Builder owns every node and node graph declared in the file.
	Builder *sgc.Builder
	// Materials in declaration order.
	Materials []usdbuild.Material
}

// Material returns the material named name.
func (f *File) Material(name string) (usdbuild.Material, bool) {
	for _, mat := range f.Materials {
		if mat.Name == name {
			return mat, true
		}
	}
	return usdbuild.Material{}, false
}

// Load reads and builds the graph description at path. Relative texture paths
// are resolved against the file's directory.
func Load(path string) (*File, hcl.Diagnostics) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, hcl.Diagnostics{{
			Severity: hcl.DiagError,
			Summary:  "Failed to read file",
			Detail:   err.Error(),
		}}
	}
	return Parse(src, path)
}

// Parse builds the graph description in src. filename is used in diagnostics
// and its directory to resolve relative texture paths.
func Parse(src []byte, filename string) (*File, hcl.Diagnostics) {
	parser := hclparse.NewParser()
	hclFile, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, diags
	}
	var root fileSchema
	diags = append(diags, gohcl.DecodeBody(hclFile.Body, nil, &root)...)
	if diags.HasErrors() {
		return nil, diags
	}
	l := &loader{
		bld:     &sgc.Builder{},
		baseDir: filepath.Dir(filename),
		params:  make(map[string]sgc.ConstantValue),
	}
	f := l.build(&root)
	diags = append(diags, l.diags...)
	if diags.HasErrors() {
		return nil, diags
	}
	return f, diags
}

type fileSchema struct {
	Parameters []*parameterBlock `hcl:"parameter,block"`
	Graphs     []*graphBlock     `hcl:"node_graph,block"`
	Nodes      []*nodeBlock      `hcl:"node,block"`
	Materials  []*materialBlock  `hcl:"material,block"`
}

type parameterBlock struct {
	Name       string         `hcl:"name,label"`
	Type       string         `hcl:"type"`
	Default    hcl.Expression `hcl:"default,optional"`
	ColorSpace string         `hcl:"color_space,optional"`
	// Texture is the image file bound to an asset parameter.
	Texture string   `hcl:"texture,optional"`
	Remain  hcl.Body `hcl:",remain"`
}

type graphBlock struct {
	Name    string              `hcl:"name,label"`
	Inputs  []*graphInputBlock  `hcl:"input,block"`
	Nodes   []*nodeBlock        `hcl:"node,block"`
	Outputs []*graphOutputBlock `hcl:"output,block"`
	Remain  hcl.Body            `hcl:",remain"`
}

type graphInputBlock struct {
	Name       string         `hcl:"name,label"`
	Type       string         `hcl:"type"`
	Default    hcl.Expression `hcl:"default,optional"`
	ColorSpace string         `hcl:"color_space,optional"`
	Remain     hcl.Body       `hcl:",remain"`
}

type graphOutputBlock struct {
	Name  string         `hcl:"name,label"`
	Value hcl.Expression `hcl:"value"`
	// Type is required when Value is a literal.
	Type string `hcl:"type,optional"`
}

// nodeBlock is a shader node when Type is set or an instance of a node graph when Graph is set.
type nodeBlock struct {
	Name    string         `hcl:"name,label"`
	Type    string         `hcl:"type,optional"`
	Graph   string         `hcl:"graph,optional"`
	Inputs  []*inputBlock  `hcl:"input,block"`
	Outputs []*outputBlock `hcl:"output,block"`
	Remain  hcl.Body       `hcl:",remain"`
}

type inputBlock struct {
	Name string `hcl:"name,label"`
	// Type may be omitted on inputs of graph instances.
	Type       string         `hcl:"type,optional"`
	Value      hcl.Expression `hcl:"value,optional"`
	ColorSpace string         `hcl:"color_space,optional"`
	Remain     hcl.Body       `hcl:",remain"`
}

type outputBlock struct {
	Name string `hcl:"name,label"`
	Type string `hcl:"type"`
}

type materialBlock struct {
	Name             string         `hcl:"name,label"`
	Surface          hcl.Expression `hcl:"surface,optional"`
	GeometryModifier hcl.Expression `hcl:"geometry_modifier,optional"`
	// NodeGraphs lists the graphs emitted alongside the material. All graphs when omitted.
	NodeGraphs hcl.Expression `hcl:"node_graphs,optional"`
	Remain     hcl.Body       `hcl:",remain"`
}

// isExprDefined reports whether an optional attribute was present in the source.
// Omitted attributes decode to a placeholder expression with a zero-width range.
func isExprDefined(expr hcl.Expression) bool {
	if expr == nil {
		return false
	}
	rng := expr.Range()
	return rng.End.Byte > rng.Start.Byte
}
