package scan

// Totals are the derived counters for a scan scope. They are recomputed
// from ledger state alone after every mutation; removing and re-adding a
// line always yields the same numbers.
type Totals struct {
	DistinctLines int            `json:"distinct_lines"`
	TotalQuantity int            `json:"total_quantity"`
	Duplicates    map[string]int `json:"duplicates"`
}

// Totals for a flat ledger. Duplicates is always empty here: the flat
// scope refuses duplicate identities by construction.
func (l *Ledger) Totals() Totals {
	t := Totals{Duplicates: map[string]int{}}
	for _, line := range l.lines {
		t.DistinctLines++
		t.TotalQuantity += line.Quantity
	}
	return t
}

// Totals for a partitioned ledger. TotalQuantity is the raw code count,
// DistinctLines the distinct code count, and Duplicates maps each code seen
// more than once (across all boxes) to its full occurrence count. The
// duplicate map is advisory, a data-quality signal shown to the user, and
// does not by itself block submission.
func (p *PartitionedLedger) Totals() Totals {
	t := Totals{Duplicates: map[string]int{}}
	seen := map[string]int{}
	for _, box := range p.boxes {
		for _, code := range box.Codes {
			seen[code]++
			t.TotalQuantity++
		}
	}
	t.DistinctLines = len(seen)
	for code, n := range seen {
		if n > 1 {
			t.Duplicates[code] = n
		}
	}
	return t
}
