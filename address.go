package patchbay

import (
	"fmt"
	"sync"

	"golang.org/x/sync/singleflight"
)

type (
	// Address is the stable integer handle of one parameter within a native
	// processing unit, as resolved by the unit's registry.
	Address uint64

	// AddressResolver is the registry side of the native unit interface. It
	// should return an error wrapping ErrUnknownParameter for identifiers it
	// does not know; it is never expected to return a default address.
	AddressResolver interface {
		ResolveAddress(tag, identifier string) (Address, error)
	}

	// AddressTable caches resolved addresses process-wide, keyed by (tag,
	// identifier). Every key is written once; concurrent first lookups of the
	// same key are collapsed so that only one of them reaches the resolver and
	// all of them see the same Address. Failed lookups are not cached.
	AddressTable struct {
		resolver AddressResolver
		mu       sync.RWMutex
		cache    map[addressKey]Address
		group    singleflight.Group
		checked  sync.Map // *NodeType -> error from its Validate
	}

	addressKey struct {
		tag, identifier string
	}
)

// NewAddressTable returns an empty table resolving through r.
func NewAddressTable(r AddressResolver) *AddressTable {
	return &AddressTable{resolver: r, cache: make(map[addressKey]Address)}
}

// Resolve returns the address of identifier within the units of tag.
func (t *AddressTable) Resolve(tag, identifier string) (Address, error) {
	key := addressKey{tag, identifier}
	t.mu.RLock()
	addr, ok := t.cache[key]
	t.mu.RUnlock()
	if ok {
		return addr, nil
	}
	v, err, _ := t.group.Do(tag+"\x00"+identifier, func() (interface{}, error) {
		// a racing caller may have finished between our read and Do
		t.mu.RLock()
		addr, ok := t.cache[key]
		t.mu.RUnlock()
		if ok {
			return addr, nil
		}
		addr, err := t.resolver.ResolveAddress(tag, identifier)
		if err != nil {
			return nil, err
		}
		t.mu.Lock()
		t.cache[key] = addr
		t.mu.Unlock()
		return addr, nil
	})
	if err != nil {
		return 0, fmt.Errorf("resolving %v/%v: %w", tag, identifier, err)
	}
	return v.(Address), nil
}

// validate returns the result of typ.Validate, running it only the first
// time typ is seen.
func (t *AddressTable) validate(typ *NodeType) error {
	if v, ok := t.checked.Load(typ); ok {
		if v == nil {
			return nil
		}
		return v.(error)
	}
	err := typ.Validate()
	v, _ := t.checked.LoadOrStore(typ, err)
	if v == nil {
		return nil
	}
	return v.(error)
}

// Len returns the number of cached addresses.
func (t *AddressTable) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return len(t.cache)
}
