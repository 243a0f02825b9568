package scan

// MergePolicy controls what a rescan of an existing identity does to its
// quantity. Both behaviors exist in the field: stock intake counts pieces
// per scan (increment), the order form re-opens a quantity dialog and the
// confirmed value wins (replace).
type MergePolicy int

const (
	MergeIncrement MergePolicy = iota
	MergeReplace
)

// Line is one entry in a flat ledger. Identity is the deduplication key
// within the scope; Ordinal is the insertion sequence number and is never
// reused, only display order changes when lines are removed.
type Line struct {
	Identity string `json:"identity"`
	Quantity int    `json:"quantity"`
	Ordinal  int    `json:"ordinal"`
}

// Ledger is the in-memory ordered collection of code/quantity lines for a
// flat scan scope. Identities are unique by construction: a second scan of
// the same identity merges per the configured policy instead of creating a
// new line. Not safe for concurrent use, the owning session serializes
// access.
type Ledger struct {
	policy      MergePolicy
	lines       []Line
	index       map[string]int
	nextOrdinal int
}

func NewLedger(policy MergePolicy) *Ledger {
	return &Ledger{policy: policy, index: make(map[string]int)}
}

// Upsert accepts a scanned identity. An unknown identity appends a new
// line; a known one merges its quantity per the merge policy.
func (l *Ledger) Upsert(identity string, quantity int) error {
	if identity == "" {
		return ErrEmptyIdentity
	}
	if quantity < 0 {
		return ErrNegativeQuantity
	}

	if i, ok := l.index[identity]; ok {
		switch l.policy {
		case MergeIncrement:
			l.lines[i].Quantity += quantity
		case MergeReplace:
			l.lines[i].Quantity = quantity
		}
		return nil
	}

	l.nextOrdinal++
	l.lines = append(l.lines, Line{Identity: identity, Quantity: quantity, Ordinal: l.nextOrdinal})
	l.index[identity] = len(l.lines) - 1
	return nil
}

// AddBlank appends an empty line for manual entry and returns its ordinal.
// Blank lines are excluded from deduplication until an identity is typed in.
func (l *Ledger) AddBlank() int {
	l.nextOrdinal++
	l.lines = append(l.lines, Line{Ordinal: l.nextOrdinal})
	return l.nextOrdinal
}

// SetQuantity replaces the quantity of the line at ordinal.
func (l *Ledger) SetQuantity(ordinal, quantity int) error {
	if quantity < 0 {
		return ErrNegativeQuantity
	}
	i, ok := l.find(ordinal)
	if !ok {
		return ErrLineNotFound
	}
	l.lines[i].Quantity = quantity
	return nil
}

// SetIdentity changes the code of the line at ordinal (the user typed over
// the field). Clearing to empty is allowed; colliding with another line's
// identity is not, the flat scope refuses duplicates by construction.
func (l *Ledger) SetIdentity(ordinal int, identity string) error {
	i, ok := l.find(ordinal)
	if !ok {
		return ErrLineNotFound
	}
	if identity != "" {
		if j, exists := l.index[identity]; exists && j != i {
			return ErrDuplicateIdentity
		}
	}
	if old := l.lines[i].Identity; old != "" {
		delete(l.index, old)
	}
	l.lines[i].Identity = identity
	if identity != "" {
		l.index[identity] = i
	}
	return nil
}

// Remove deletes the line holding identity.
func (l *Ledger) Remove(identity string) error {
	i, ok := l.index[identity]
	if !ok {
		return ErrLineNotFound
	}
	l.removeAt(i)
	return nil
}

// RemoveOrdinal deletes the line at ordinal (works for blank lines too).
func (l *Ledger) RemoveOrdinal(ordinal int) error {
	i, ok := l.find(ordinal)
	if !ok {
		return ErrLineNotFound
	}
	l.removeAt(i)
	return nil
}

// Get returns the current line for identity, used to pre-fill the quantity
// dialog on a rescan.
func (l *Ledger) Get(identity string) (Line, bool) {
	if i, ok := l.index[identity]; ok {
		return l.lines[i], true
	}
	return Line{}, false
}

// Lines returns a copy of the ledger in insertion order.
func (l *Ledger) Lines() []Line {
	out := make([]Line, len(l.lines))
	copy(out, l.lines)
	return out
}

func (l *Ledger) Len() int { return len(l.lines) }

func (l *Ledger) find(ordinal int) (int, bool) {
	for i, line := range l.lines {
		if line.Ordinal == ordinal {
			return i, true
		}
	}
	return 0, false
}

func (l *Ledger) removeAt(i int) {
	if id := l.lines[i].Identity; id != "" {
		delete(l.index, id)
	}
	l.lines = append(l.lines[:i], l.lines[i+1:]...)
	for j := i; j < len(l.lines); j++ {
		if id := l.lines[j].Identity; id != "" {
			l.index[id] = j
		}
	}
}
