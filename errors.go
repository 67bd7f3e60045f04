package patchbay

import "errors"

// Errors returned by the binding core. They are wrapped with context, so
// match them with errors.Is.
var (
	// ErrUnknownParameter means the native unit does not know the identifier
	// for the given tag, or a node was constructed with a default value for a
	// parameter its type does not have.
	ErrUnknownParameter = errors.New("unknown parameter")

	// ErrAlreadyBound means Bind was called twice for the same Parameter.
	// This is always a bug in the code driving the instantiation.
	ErrAlreadyBound = errors.New("parameter already bound")

	// ErrNotAutomatable is returned by RampTo on a parameter without the
	// ParameterAutomatable flag. Callers should fall back to Set.
	ErrNotAutomatable = errors.New("parameter is not automatable")

	// ErrInstantiationFailed is the error of a node whose native unit could
	// not be created. The parameters of such a node keep working on their
	// cached values only.
	ErrInstantiationFailed = errors.New("instantiation failed")

	// ErrAlreadyInstantiated is returned when a UnitHost is asked to
	// instantiate a second time.
	ErrAlreadyInstantiated = errors.New("unit host already instantiated")

	// ErrNotInstantiated is returned when binding against a host that has no
	// live native unit.
	ErrNotInstantiated = errors.New("unit host has no native unit")
)
