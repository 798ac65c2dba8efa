package strategy

import "github.com/shopspring/decimal"

// MovingWindow is a fixed-capacity ring buffer over close prices used by
// indicator strategies. Averaging over fewer than capacity samples
// averages over what exists.
type MovingWindow struct {
	capacity int
	values   []decimal.Decimal
}

// NewMovingWindow returns an empty window of the given capacity.
func NewMovingWindow(capacity int) *MovingWindow {
	return &MovingWindow{capacity: capacity, values: make([]decimal.Decimal, 0, capacity)}
}

// Update appends a new sample, evicting the oldest once capacity is exceeded.
func (w *MovingWindow) Update(v decimal.Decimal) {
	w.values = append(w.values, v)
	if len(w.values) > w.capacity {
		w.values = w.values[1:]
	}
}

// Average returns the mean of the last n values (or all values if fewer
// than n are present). Returns zero on an empty window.
func (w *MovingWindow) Average(n int) decimal.Decimal {
	if len(w.values) == 0 {
		return decimal.Zero
	}
	if n > len(w.values) {
		n = len(w.values)
	}
	start := len(w.values) - n
	sum := decimal.Zero
	for _, v := range w.values[start:] {
		sum = sum.Add(v)
	}
	return sum.Div(decimal.NewFromInt(int64(n)))
}
