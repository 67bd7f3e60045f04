// Package nodes has the node types of patchbay with typed constructors. The
// *_gen.go files are generated from nodes.yml; edit that and run go generate.
package nodes

//go:generate go run ../cmd/patchbay-gen -o . nodes.yml

import "github.com/vsariola/patchbay"

// Types returns a new set with every node type of the package.
func Types() (patchbay.NodeTypes, error) {
	ret := patchbay.NodeTypes{}
	for _, t := range generatedTypes {
		if err := ret.Add(t); err != nil {
			return nil, err
		}
	}
	return ret, nil
}
