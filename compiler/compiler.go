// Package compiler generates Go node type packages from YAML descriptions of
// parameter tables.
package compiler

import (
	"bytes"
	"embed"
	"fmt"
	"go/format"
	"path/filepath"
	"strings"
	"text/template"

	"github.com/Masterminds/sprig"
	"gopkg.in/yaml.v3"

	"github.com/vsariola/patchbay"
)

type (
	Compiler struct {
		Template *template.Template
		Package  string
	}

	// NodeSpec is one entry of a node description file.
	NodeSpec struct {
		patchbay.NodeType `yaml:",inline"`
	}
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// New returns a compiler using the default templates, generating code for the
// package named pkg.
func New(pkg string) (*Compiler, error) {
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).Funcs(goFuncs).ParseFS(templateFS, "templates/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf(`could not create templates: %v`, err)
	}
	return &Compiler{Template: tmpl, Package: pkg}, nil
}

func NewFromTemplates(pkg string, templateDirectory string) (*Compiler, error) {
	globPtrn := filepath.Join(templateDirectory, "*.tmpl")
	tmpl, err := template.New("base").Funcs(sprig.TxtFuncMap()).Funcs(goFuncs).ParseGlob(globPtrn)
	if err != nil {
		return nil, fmt.Errorf(`could not create template based on directory "%v": %v`, templateDirectory, err)
	}
	return &Compiler{Template: tmpl, Package: pkg}, nil
}

// ParseNodeSpecs reads a node description file. Components without a
// manufacturer get patchbay.DefaultManufacturer. Every type is validated.
func ParseNodeSpecs(data []byte) ([]*NodeSpec, error) {
	var specs []*NodeSpec
	if err := yaml.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("could not parse node descriptions: %w", err)
	}
	types := patchbay.NodeTypes{}
	for _, s := range specs {
		if s.Component.Manufacturer == "" {
			s.Component.Manufacturer = patchbay.DefaultManufacturer
		}
		if err := types.Add(&s.NodeType); err != nil {
			return nil, err
		}
	}
	return specs, nil
}

// NodeTypes generates one file per node type plus a file listing all of
// them. The result maps file names to gofmt'ed sources.
func (com *Compiler) NodeTypes(source string, specs []*NodeSpec) (map[string][]byte, error) {
	ret := map[string][]byte{}
	for _, s := range specs {
		data := struct {
			Package, Source string
			Type            *NodeSpec
		}{com.Package, source, s}
		code, err := com.compile("nodetype.go.tmpl", &data)
		if err != nil {
			return nil, fmt.Errorf(`could not generate node type %v: %v`, s.Name, err)
		}
		ret[FileName(s.Name)] = code
	}
	data := struct {
		Package, Source string
		Types           []*NodeSpec
	}{com.Package, source, specs}
	code, err := com.compile("types.go.tmpl", &data)
	if err != nil {
		return nil, fmt.Errorf(`could not generate type list: %v`, err)
	}
	ret["types_gen.go"] = code
	return ret, nil
}

// FileName returns the name of the file generated for a node type.
func FileName(typeName string) string {
	return strings.ToLower(typeName) + "_gen.go"
}

func (com *Compiler) compile(templateName string, data interface{}) ([]byte, error) {
	result := bytes.NewBuffer(nil)
	if err := com.Template.ExecuteTemplate(result, templateName, data); err != nil {
		return nil, err
	}
	formatted, err := format.Source(result.Bytes())
	if err != nil {
		return nil, fmt.Errorf("generated code does not parse: %v", err)
	}
	return formatted, nil
}
