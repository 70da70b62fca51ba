package types

import "github.com/pkg/errors"

// Capacities shared with the proving backend. They are never encoded and
// must match the circuit exactly.
const (
	MaxNewCommitmentsPerTx                 = 64
	MaxNewNullifiersPerTx                  = 64
	MaxReadRequestsPerTx                   = 128
	MaxNullifierKeyValidationRequestsPerTx = 8

	VKTreeHeight = 3
)

// ErrCapacityExceeded means an array does not have its declared capacity, or
// holds more non-empty entries than it.
var ErrCapacityExceeded = errors.New("capacity exceeded")
