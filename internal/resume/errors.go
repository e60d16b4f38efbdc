package resume

import "fmt"

// FieldError is returned when a document or one of its sections cannot be
// accepted. The API maps it to 400 like any other validation failure.
type FieldError struct {
	Field  string
	Reason string
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}
