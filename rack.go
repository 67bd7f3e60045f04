package patchbay

// Rack is what nodes are created in: the host framework and the address
// table caching its registry. All the nodes of a process should normally
// share one Rack per framework, so that every (tag, identifier) pair is
// resolved only once.
type Rack struct {
	Framework Framework
	Addresses *AddressTable
}

// NewRack returns a rack with an empty address table for framework.
func NewRack(framework Framework) *Rack {
	return &Rack{Framework: framework, Addresses: NewAddressTable(framework)}
}

// NewNode is a shorthand for NewNode(r, typ, input, defaults, opts...).
func (r *Rack) NewNode(typ *NodeType, input *Node, defaults map[string]float32, opts ...NodeOption) (*Node, error) {
	return NewNode(r, typ, input, defaults, opts...)
}
