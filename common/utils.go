package common

// Coalesce returns the first argument that is not the zero value of T, or the zero value when
// all are. Descriptor fields left at zero fall through to a default this way.
func Coalesce[T comparable](values ...T) T {
	var zero T
	for _, v := range values {
		if v != zero {
			return v
		}
	}
	return zero
}
