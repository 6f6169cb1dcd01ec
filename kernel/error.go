package kernel

// Error describes a kernel error. All kernel errors are declared as global
// variables that point to an Error value; trap handlers run before (and
// underneath) the Go allocator so errors.New is not an option.
type Error struct {
	// The module where the error occurred.
	Module string

	// The error message
	Message string
}

// Error implements the error interface.
func (e *Error) Error() string {
	return e.Message
}
