package diag

// Default window capacities.
const (
	DefaultPingWindow    = 60
	DefaultBitrateWindow = 30
)

// Window is a fixed-capacity sliding window backed by a ring buffer.
// It starts full of zero values so charts always show the same number of
// slots; Push evicts the oldest entry once the window is full.
type Window[T any] struct {
	data []T
	head int
}

// NewWindow creates a window of the given capacity pre-filled with zero values.
func NewWindow[T any](capacity int) *Window[T] {
	if capacity <= 0 {
		capacity = 1
	}
	return &Window[T]{data: make([]T, capacity)}
}

// Push appends v as the newest entry, evicting the oldest.
func (w *Window[T]) Push(v T) {
	w.data[w.head] = v
	w.head = (w.head + 1) % len(w.data)
}

// Len returns the window capacity. The window is always full.
func (w *Window[T]) Len() int {
	return len(w.data)
}

// Values returns a copy of the window contents, oldest first.
func (w *Window[T]) Values() []T {
	out := make([]T, 0, len(w.data))
	out = append(out, w.data[w.head:]...)
	out = append(out, w.data[:w.head]...)
	return out
}

// Last returns the newest entry.
func (w *Window[T]) Last() T {
	idx := (w.head - 1 + len(w.data)) % len(w.data)
	return w.data[idx]
}
