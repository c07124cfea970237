// Defines the validation interface for requests.

package dto

// Validatable is implemented by request types that can validate their fields.
// Wrap in handler_wrapper.go uses this interface as a type constraint to
// ensure all request types provide validation.
type Validatable interface {
	Validate() error
}
