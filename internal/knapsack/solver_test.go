package knapsack

import (
	"errors"
	"fmt"
	"math"
	"slices"
	"testing"
)

func TestSolve(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		items       []Item
		capacity    int64
		wantValue   int64
		wantIndices []int
		wantErr     error
	}{
		{
			name:        "ClassicThreeItems",
			items:       []Item{{Value: 10, Weight: 3}, {Value: 6, Weight: 2}, {Value: 4, Weight: 1}},
			capacity:    5,
			wantValue:   16,
			wantIndices: []int{0, 1},
		},
		{
			name:        "NoItems",
			items:       nil,
			capacity:    10,
			wantValue:   0,
			wantIndices: []int{},
		},
		{
			name:        "ZeroCapacity",
			items:       []Item{{Value: 5, Weight: 1}},
			capacity:    0,
			wantValue:   0,
			wantIndices: []int{},
		},
		{
			name:        "FreeWorthlessItemAtZeroCapacity",
			items:       []Item{{Value: 0, Weight: 0}},
			capacity:    0,
			wantValue:   0,
			wantIndices: []int{0},
		},
		{
			name:        "FreeValuableItemAtZeroCapacity",
			items:       []Item{{Value: 5, Weight: 1}, {Value: 7, Weight: 0}},
			capacity:    0,
			wantValue:   7,
			wantIndices: []int{1},
		},
		{
			name:        "AllTooHeavy",
			items:       []Item{{Value: 9, Weight: 6}, {Value: 3, Weight: 8}},
			capacity:    5,
			wantValue:   0,
			wantIndices: []int{},
		},
		{
			name:        "DuplicatesAreIndependent",
			items:       []Item{{Value: 4, Weight: 2}, {Value: 4, Weight: 2}, {Value: 4, Weight: 2}},
			capacity:    4,
			wantValue:   8,
			wantIndices: []int{0, 1},
		},
		{
			name:        "NegativeValueNeverChosen",
			items:       []Item{{Value: -5, Weight: 1}, {Value: 3, Weight: 1}},
			capacity:    2,
			wantValue:   3,
			wantIndices: []int{1},
		},
		{
			name:        "TieFavoursExclusionOfLaterItem",
			items:       []Item{{Value: 5, Weight: 2}, {Value: 5, Weight: 2}},
			capacity:    2,
			wantValue:   5,
			wantIndices: []int{0},
		},
		{
			name:     "NegativeCapacity",
			items:    []Item{{Value: 1, Weight: 1}},
			capacity: -1,
			wantErr:  ErrInvalidCapacity,
		},
		{
			name:     "CapacityAboveWidth",
			items:    []Item{{Value: 1, Weight: 1}},
			capacity: 128,
			wantErr:  ErrInvalidCapacity,
		},
		{
			name:     "NegativeWeight",
			items:    []Item{{Value: 1, Weight: 1}, {Value: 2, Weight: -1}},
			capacity: 3,
			wantErr:  ErrInvalidWeight,
		},
		{
			name:     "ValueOutsideWidth",
			items:    []Item{{Value: 200, Weight: 1}},
			capacity: 3,
			wantErr:  ErrArithmeticOverflow,
		},
		{
			name:     "TotalOutsideWidth",
			items:    []Item{{Value: 100, Weight: 1}, {Value: 100, Weight: 1}},
			capacity: 2,
			wantErr:  ErrArithmeticOverflow,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			got, err := New().Solve(tc.items, tc.capacity)

			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("expected error %v, got %v", tc.wantErr, err)
			}
			if tc.wantErr != nil {
				return
			}

			if got.TotalValue != tc.wantValue {
				t.Fatalf("expected total value %d, got %d", tc.wantValue, got.TotalValue)
			}
			indices := slices.Clone(got.Indices)
			slices.Sort(indices)
			if !slices.Equal(indices, tc.wantIndices) {
				t.Fatalf("expected indices %v, got %v", tc.wantIndices, indices)
			}
			if got.TotalWeight > tc.capacity {
				t.Fatalf("selection weight %d exceeds capacity %d", got.TotalWeight, tc.capacity)
			}
		})
	}
}

func TestSolve_SelectionInReverseOrder(t *testing.T) {
	t.Parallel()

	items := []Item{{Value: 1, Weight: 1}, {Value: 2, Weight: 1}, {Value: 3, Weight: 1}}
	got, err := New().Solve(items, 3)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []int{2, 1, 0}; !slices.Equal(got.Indices, want) {
		t.Fatalf("expected indices %v, got %v", want, got.Indices)
	}
	if got.Len() != 3 {
		t.Fatalf("expected 3 items, got %d", got.Len())
	}
}

func TestSolve_WiderWidthAcceptsLargerTotals(t *testing.T) {
	t.Parallel()

	items := []Item{{Value: 100, Weight: 1}, {Value: 100, Weight: 1}}

	if _, err := New(WithWidth(8)).Solve(items, 2); !errors.Is(err, ErrArithmeticOverflow) {
		t.Fatalf("expected ErrArithmeticOverflow at 8 bits, got %v", err)
	}

	got, err := New(WithWidth(16)).Solve(items, 2)
	if err != nil {
		t.Fatalf("unexpected error at 16 bits: %v", err)
	}
	if got.TotalValue != 200 {
		t.Fatalf("expected total 200, got %d", got.TotalValue)
	}
}

func TestSolve_OverflowErrorDetails(t *testing.T) {
	t.Parallel()

	_, err := New().Solve([]Item{{Value: 1, Weight: 1}, {Value: -129, Weight: 1}}, 2)

	var overflow *OverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected *OverflowError, got %T (%v)", err, err)
	}
	if overflow.Stage != StageInput || overflow.Index != 1 || overflow.Width != 8 {
		t.Fatalf("unexpected overflow details: %+v", overflow)
	}
}

func TestSolve_TableOverflowAt64Bits(t *testing.T) {
	t.Parallel()

	const huge = int64(1) << 62
	items := []Item{{Value: huge, Weight: 0}, {Value: huge, Weight: 0}, {Value: huge, Weight: 0}}

	_, err := New(WithWidth(64)).Solve(items, 0)

	var overflow *OverflowError
	if !errors.As(err, &overflow) {
		t.Fatalf("expected *OverflowError, got %T (%v)", err, err)
	}
	if overflow.Stage != StageTable || overflow.Index != 1 {
		t.Fatalf("unexpected overflow details: %+v", overflow)
	}
}

func TestSolve_ResourceExhausted(t *testing.T) {
	t.Parallel()

	items := make([]Item, 9)
	for i := range items {
		items[i] = Item{Value: 1, Weight: 1}
	}

	// 10 rows x 10 columns = 100 cells.
	if _, err := New(WithMaxCells(99)).Solve(items, 9); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if _, err := New(WithMaxCells(100)).Solve(items, 9); err != nil {
		t.Fatalf("expected table of exactly 100 cells to be accepted, got %v", err)
	}
}

func TestSolve_MaxCapacity(t *testing.T) {
	t.Parallel()

	solver := New(WithMaxCapacity(10))
	if _, err := solver.Solve(nil, 11); !errors.Is(err, ErrInvalidCapacity) {
		t.Fatalf("expected ErrInvalidCapacity, got %v", err)
	}
	if _, err := solver.Solve(nil, 10); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestSolve_HugeCapacityDoesNotPanic(t *testing.T) {
	t.Parallel()

	solver := New(WithWidth(64), WithMaxCapacity(1<<62))
	if _, err := solver.Solve([]Item{{Value: 1, Weight: 1}}, 1<<62); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
}

func TestWithMaxCellsClampsToCeiling(t *testing.T) {
	t.Parallel()

	s, ok := New(WithMaxCells(math.MaxInt64)).(*dpSolver)
	if !ok {
		t.Fatalf("expected *dpSolver")
	}
	if s.limits.MaxCells != MaxCellsCeiling {
		t.Fatalf("expected max cells clamped to %d, got %d", MaxCellsCeiling, s.limits.MaxCells)
	}
}

func TestSolve_UnboundedLimitsStillRejectOversizedTable(t *testing.T) {
	t.Parallel()

	solver := New(WithLimits(Limits{Width: 64, MaxCapacity: math.MaxInt64, MaxCells: math.MaxInt64}))
	if _, err := solver.Solve([]Item{{Value: 1, Weight: 1}}, 1<<40); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected ErrResourceExhausted, got %v", err)
	}
	if err := checkTableSize(1, 1<<40, math.MaxInt64); !errors.Is(err, ErrResourceExhausted) {
		t.Fatalf("expected checkTableSize to apply the ceiling, got %v", err)
	}
}

func TestWithLimitsKeepsDefaultsForUnsetFields(t *testing.T) {
	t.Parallel()

	s, ok := New(WithLimits(Limits{Width: 32})).(*dpSolver)
	if !ok {
		t.Fatalf("expected *dpSolver")
	}
	want := Limits{Width: 32, MaxCapacity: defaultMaxCapacity, MaxCells: defaultMaxCells}
	if s.limits != want {
		t.Fatalf("expected limits %+v, got %+v", want, s.limits)
	}
}

func TestWithWidthIgnoresUnsupportedValues(t *testing.T) {
	t.Parallel()

	for _, bits := range []int{0, 7, 12, 128, -8} {
		bits := bits
		t.Run(fmt.Sprintf("%d", bits), func(t *testing.T) {
			s := New(WithWidth(bits)).(*dpSolver)
			if s.limits.Width != defaultWidth {
				t.Fatalf("expected default width for %d, got %d", bits, s.limits.Width)
			}
		})
	}
}

func TestPair(t *testing.T) {
	t.Parallel()

	items, err := Pair([]int64{1, 2}, []int64{3, 4})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := []Item{{Value: 1, Weight: 3}, {Value: 2, Weight: 4}}
	if !slices.Equal(items, want) {
		t.Fatalf("expected %v, got %v", want, items)
	}

	if _, err := Pair([]int64{1}, []int64{1, 2}); !errors.Is(err, ErrMismatchedInput) {
		t.Fatalf("expected ErrMismatchedInput, got %v", err)
	}
}

func TestWidthBounds(t *testing.T) {
	t.Parallel()

	cases := []struct {
		bits   int
		lo, hi int64
	}{
		{8, -128, 127},
		{16, -32768, 32767},
		{32, -2147483648, 2147483647},
	}
	for _, tc := range cases {
		lo, hi := widthBounds(tc.bits)
		if lo != tc.lo || hi != tc.hi {
			t.Fatalf("width %d: expected [%d, %d], got [%d, %d]", tc.bits, tc.lo, tc.hi, lo, hi)
		}
	}
}

func BenchmarkSolveSmall(b *testing.B) {
	solver := New()
	items := []Item{{Value: 10, Weight: 3}, {Value: 6, Weight: 2}, {Value: 4, Weight: 1}}
	for i := 0; i < b.N; i++ {
		if _, err := solver.Solve(items, 5); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}

func BenchmarkSolveLarge(b *testing.B) {
	solver := New(WithWidth(32), WithMaxCapacity(10_000), WithMaxCells(1<<24))
	items := make([]Item, 500)
	for i := range items {
		items[i] = Item{Value: int64(i%50 + 1), Weight: int64(i%37 + 1)}
	}
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := solver.Solve(items, 10_000); err != nil {
			b.Fatalf("unexpected error: %v", err)
		}
	}
}
