package diag

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewWindow_PreFilled(t *testing.T) {
	w := NewWindow[*float64](DefaultPingWindow)

	values := w.Values()
	assert.Len(t, values, DefaultPingWindow)
	for _, v := range values {
		assert.Nil(t, v)
	}
}

func TestWindow_KeepsLastNInOrder(t *testing.T) {
	tests := []struct {
		name     string
		capacity int
		inserts  int
	}{
		{"exactly full", 5, 5},
		{"one over", 5, 6},
		{"many wraps", 5, 23},
		{"capacity one", 1, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := NewWindow[int](tt.capacity)
			for i := 1; i <= tt.inserts; i++ {
				w.Push(i)
			}

			want := make([]int, 0, tt.capacity)
			for i := tt.inserts - tt.capacity + 1; i <= tt.inserts; i++ {
				want = append(want, i)
			}

			assert.Equal(t, tt.capacity, w.Len())
			assert.Equal(t, want, w.Values())
			assert.Equal(t, tt.inserts, w.Last())
		})
	}
}

func TestWindow_PartialFillKeepsPadding(t *testing.T) {
	w := NewWindow[int](4)
	w.Push(7)
	w.Push(8)

	assert.Equal(t, []int{0, 0, 7, 8}, w.Values())
}

func TestWindow_ValuesIsCopy(t *testing.T) {
	w := NewWindow[int](3)
	w.Push(1)

	v := w.Values()
	v[2] = 99

	assert.Equal(t, 1, w.Last())
}

func TestNewWindow_InvalidCapacity(t *testing.T) {
	w := NewWindow[int](0)
	assert.Equal(t, 1, w.Len())
}
