package experience

// FieldState tells whether a proposed field was left out, explicitly cleared or given a value.
type FieldState uint8

const (
	FieldUnset FieldState = iota
	FieldCleared
	FieldSet
)

// Field is a proposed change to a single record field.
// The zero value is FieldUnset and leaves the record untouched.
type Field[T comparable] struct {
	state FieldState
	value T
}

// Unset returns a field that was not mentioned by the producer.
func Unset[T comparable]() Field[T] {
	return Field[T]{}
}

// Clear returns a field that the producer explicitly emptied.
func Clear[T comparable]() Field[T] {
	return Field[T]{state: FieldCleared}
}

// SetTo returns a field carrying a concrete value.
func SetTo[T comparable](v T) Field[T] {
	return Field[T]{state: FieldSet, value: v}
}

func (f Field[T]) State() FieldState {
	return f.state
}

// Value returns the carried value and true only for FieldSet.
func (f Field[T]) Value() (T, bool) {
	return f.value, f.state == FieldSet
}

func (f Field[T]) IsUnset() bool {
	return f.state == FieldUnset
}

// merge returns the record value after applying f on top of current.
// cleared is what an explicit clear stores for this field type.
func (f Field[T]) merge(current, cleared *T) *T {
	switch f.state {
	case FieldSet:
		v := f.value
		return &v
	case FieldCleared:
		return cleared
	default:
		return current
	}
}
