package sentinel

// Compile-time check that Error implements the error interface.
var _ error = Error("")

// Error is an immutable error type backed by a string constant. Unlike
// errors.New, which returns a pointer that has to live in a var, Error
// values can be declared const, so the sentinels exported by ccmenv
// cannot be reassigned by callers.
//
// Error is comparable, so the default == comparison used by errors.Is
// matches sentinels through wrapped chains.
type Error string

// Error implements the error interface.
func (e Error) Error() string {
	return string(e)
}
