package knapsack

import (
	"fmt"
	"math"
)

const (
	defaultWidth       = 8
	defaultMaxCapacity = 127
	defaultMaxCells    = 1 << 20
)

// MaxCellsCeiling is the hard upper bound on value table cells, whatever the
// configured limits say. At 8 bytes a cell it caps a table at 512 MiB.
const MaxCellsCeiling int64 = 1 << 26

// DefaultLimits returns the limits used when no options are supplied.
func DefaultLimits() Limits {
	return Limits{
		Width:       defaultWidth,
		MaxCapacity: defaultMaxCapacity,
		MaxCells:    defaultMaxCells,
	}
}

// Option configures the solver returned by New.
type Option func(*dpSolver)

// WithLimits replaces all limits at once. Non-positive fields keep their defaults.
func WithLimits(limits Limits) Option {
	return func(s *dpSolver) {
		WithWidth(limits.Width)(s)
		WithMaxCapacity(limits.MaxCapacity)(s)
		WithMaxCells(limits.MaxCells)(s)
	}
}

// WithWidth sets the signed integer width in bits. Only 8, 16, 32 and 64 are accepted.
func WithWidth(bits int) Option {
	return func(s *dpSolver) {
		switch bits {
		case 8, 16, 32, 64:
			s.limits.Width = bits
		}
	}
}

// WithMaxCapacity sets the largest capacity the solver accepts.
func WithMaxCapacity(capacity int64) Option {
	return func(s *dpSolver) {
		if capacity > 0 {
			s.limits.MaxCapacity = capacity
		}
	}
}

// WithMaxCells sets the ceiling on the number of value table cells.
// Values above MaxCellsCeiling are clamped to it.
func WithMaxCells(cells int64) Option {
	return func(s *dpSolver) {
		if cells > 0 {
			s.limits.MaxCells = min(cells, MaxCellsCeiling)
		}
	}
}

type dpSolver struct {
	limits Limits
}

// New creates a Solver based on bottom-up dynamic programming.
func New(opts ...Option) Solver {
	s := &dpSolver{limits: DefaultLimits()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Pair zips values and weights positionally into items.
func Pair(values, weights []int64) ([]Item, error) {
	if len(values) != len(weights) {
		return nil, fmt.Errorf("%w: %d values, %d weights", ErrMismatchedInput, len(values), len(weights))
	}
	items := make([]Item, len(values))
	for i := range values {
		items[i] = Item{Value: values[i], Weight: weights[i]}
	}
	return items, nil
}

func (s *dpSolver) Solve(items []Item, capacity int64) (Selection, error) {
	lo, hi := widthBounds(s.limits.Width)

	if capacity < 0 || capacity > s.limits.MaxCapacity || capacity > hi {
		return Selection{}, fmt.Errorf("%w: got %d, max %d", ErrInvalidCapacity, capacity, min(s.limits.MaxCapacity, hi))
	}
	for i, it := range items {
		if it.Weight < 0 {
			return Selection{}, fmt.Errorf("%w: item %d has weight %d", ErrInvalidWeight, i, it.Weight)
		}
		if it.Value < lo || it.Value > hi || it.Weight > hi {
			return Selection{}, &OverflowError{Stage: StageInput, Index: i, Width: s.limits.Width}
		}
	}
	if err := checkTableSize(len(items), capacity, s.limits.MaxCells); err != nil {
		return Selection{}, err
	}

	table, err := buildTable(items, capacity, s.limits.Width)
	if err != nil {
		return Selection{}, err
	}

	sel := reconstruct(items, table, capacity)
	if sel.TotalValue < lo || sel.TotalValue > hi {
		return Selection{}, &OverflowError{Stage: StageTotal, Index: -1, Width: s.limits.Width}
	}
	return sel, nil
}

// checkTableSize rejects tables with more than maxCells cells without
// computing the product, which could itself overflow.
func checkTableSize(n int, capacity, maxCells int64) error {
	maxCells = min(maxCells, MaxCellsCeiling)
	rows := int64(n) + 1
	cols := capacity + 1
	if rows > maxCells/cols {
		return fmt.Errorf("%w: %d x %d cells, max %d", ErrResourceExhausted, rows, cols, maxCells)
	}
	return nil
}

// buildTable fills table[i][w] with the best value reachable using the first
// i items under weight budget w. Column 0 is computed like any other so that
// zero-weight items count at capacity 0.
func buildTable(items []Item, capacity int64, width int) ([][]int64, error) {
	cols := int(capacity) + 1
	cells := make([]int64, (len(items)+1)*cols)
	table := make([][]int64, len(items)+1)
	for i := range table {
		table[i] = cells[i*cols : (i+1)*cols : (i+1)*cols]
	}

	for i, it := range items {
		prev, cur := table[i], table[i+1]
		for w := int64(0); w <= capacity; w++ {
			if it.Weight > w {
				cur[w] = prev[w]
				continue
			}
			with, ok := addChecked(prev[w-it.Weight], it.Value)
			if !ok {
				return nil, &OverflowError{Stage: StageTable, Index: i, Width: width}
			}
			cur[w] = max(prev[w], with)
		}
	}
	return table, nil
}

// reconstruct walks the table backwards from (N, capacity). Ties favour
// exclusion, except for items that weigh and are worth nothing.
func reconstruct(items []Item, table [][]int64, capacity int64) Selection {
	sel := Selection{
		Items:   make([]Item, 0, len(items)),
		Indices: make([]int, 0, len(items)),
	}
	w := capacity
	for i := len(items); i > 0; i-- {
		it := items[i-1]
		if table[i][w] == table[i-1][w] && (it.Weight != 0 || it.Value != 0) {
			continue
		}
		sel.Items = append(sel.Items, it)
		sel.Indices = append(sel.Indices, i-1)
		sel.TotalValue += it.Value
		sel.TotalWeight += it.Weight
		w -= it.Weight
	}
	return sel
}

func widthBounds(bits int) (int64, int64) {
	if bits <= 0 || bits >= 64 {
		return math.MinInt64, math.MaxInt64
	}
	hi := int64(1)<<(bits-1) - 1
	return -hi - 1, hi
}

func addChecked(a, b int64) (int64, bool) {
	sum := a + b
	if (b > 0 && sum < a) || (b < 0 && sum > a) {
		return 0, false
	}
	return sum, true
}
