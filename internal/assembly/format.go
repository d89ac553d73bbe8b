// Package assembly reads and writes the binary descriptor of a compiled
// assembly: the declared identifier tree plus every reference it makes to
// itself and to the assemblies it was compiled against.
//
// Layout of a descriptor:
//
//	uint64 LE   offset of the reference table
//	name        assembly name (LEB128 length, one LEB128 per UTF-16 unit)
//	name        desc name
//	uint32 LE   signature
//	uleb        child count, then per child: name, uint32 LE signature
//	content     declared identifiers, depth first, ended by DeclEnd
//	uleb        reference count, then per reference: uleb assembly, uleb position
//
// Every identifier starts with a byte holding its declared kind in the high
// nibble and its access level in the low nibble, followed by its flags as
// a little-endian uint16. Bits 15 and 14 of that word mark a name and an
// overload index following it.
package assembly

import (
	"errors"
	"fmt"
)

// Ext is the file extension of assembly descriptors.
const Ext = ".tasm"

const (
	flagHasName          uint16 = 1 << 15
	flagHasOverloadIndex uint16 = 1 << 14
)

// value tags of serialized constants
const (
	valNone byte = iota
	valBool
	valInt
	valFloat
	valString
)

// base edge flags
const (
	baseVirtual byte = 1 << iota
	baseUnreal
)

// parameter flags inside inline function types
const (
	paramHasName byte = 1 << iota
	paramArray
	paramHasDefault
)

// Malformed input reasons wrapped by InvalidAssemblyError.
var (
	ErrInvalidSize      = errors.New("invalid size")
	ErrInvalidAlignment = errors.New("invalid alignment")
	ErrUnknownTag       = errors.New("unknown tag")
	ErrMissingEnd       = errors.New("missing end marker")
	ErrStaleSignature   = errors.New("signature of referenced assembly does not match")
	ErrDanglingRef      = errors.New("reference to a missing identifier")
	ErrCyclicAssembly   = errors.New("assembly references itself")
)

// InvalidAssemblyError aborts the load of one assembly. The format has no
// resynchronization points, so nothing read before the error is kept.
type InvalidAssemblyError struct {
	Assembly string
	Offset   int
	Err      error
}

func (e *InvalidAssemblyError) Error() string {
	return fmt.Sprintf("invalid assembly %q at offset %d: %v", e.Assembly, e.Offset, e.Err)
}

func (e *InvalidAssemblyError) Unwrap() error { return e.Err }
