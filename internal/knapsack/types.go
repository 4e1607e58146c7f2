package knapsack

// Item is a single selectable unit. Its position in the input list is its
// identity, so two items with equal value and weight are still distinct.
type Item struct {
	Value  int64 `json:"value"`
	Weight int64 `json:"weight"`
}

// Selection is the subset of items picked by a Solver.
// Items and Indices are in reverse input order (last considered first).
// Callers should rely only on set membership and the totals.
type Selection struct {
	Items       []Item
	Indices     []int
	TotalValue  int64
	TotalWeight int64
}

// Len returns the number of selected items.
func (s Selection) Len() int {
	return len(s.Items)
}

// Limits bound the inputs a Solver accepts. MaxCells may not exceed
// MaxCellsCeiling.
type Limits struct {
	// Width is the signed integer width, in bits, that every value, weight,
	// capacity and the reported total must fit in.
	Width       int   `json:"width" yaml:"width" validate:"oneof=8 16 32 64"`
	MaxCapacity int64 `json:"maxCapacity" yaml:"max_capacity" validate:"gt=0"`
	MaxCells    int64 `json:"maxCells" yaml:"max_cells" validate:"gt=0,lte=67108864"`
}

// Solver describes the behaviour required from a 0/1 knapsack solver.
type Solver interface {
	Solve(items []Item, capacity int64) (Selection, error)
}
