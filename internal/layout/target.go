package layout

// Target describes the machine properties layouts depend on.
type Target struct {
	Name         string
	RegisterSize int
	PointerSize  int
	// MaxStructPow2Size is the threshold past which instance sizes round to
	// a multiple instead of the next power of two.
	MaxStructPow2Size int
}

// TargetFor returns the target of a generic machine with the given
// register width; pointers are as wide as registers.
func TargetFor(name string, registerSize int) Target {
	if registerSize <= 0 {
		registerSize = 8
	}
	return Target{
		Name:              name,
		RegisterSize:      registerSize,
		PointerSize:       registerSize,
		MaxStructPow2Size: 2 * registerSize,
	}
}

func (t Target) pointerSize() int {
	switch {
	case t.PointerSize > 0:
		return t.PointerSize
	case t.RegisterSize > 0:
		return t.RegisterSize
	}
	return 8
}
