package vkrender

// Optional holds a value that may or may not be present.
type Optional[T any] struct {
	value T
	set   bool
}

// Some returns an Optional holding v.
func Some[T any](v T) Optional[T] {
	return Optional[T]{value: v, set: true}
}

func (o *Optional[T]) Set(v T) {
	o.value = v
	o.set = true
}

func (o Optional[T]) HasValue() bool {
	return o.set
}

// Get returns the held value, or the zero value when nothing is held.
func (o Optional[T]) Get() T {
	return o.value
}

// Or returns the held value or def when nothing is held.
func (o Optional[T]) Or(def T) T {
	if o.set {
		return o.value
	}
	return def
}
