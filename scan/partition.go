package scan

// Box is one named partition of a partitioned scan scope, mirroring a
// physical container. It holds presence-only raw codes; duplicates across
// boxes are permitted but flagged by the totals pass.
type Box struct {
	Ordinal int      `json:"ordinal"`
	Name    string   `json:"name"`
	Codes   []string `json:"codes"`
}

// PartitionedLedger groups raw codes into boxes with a global capacity
// ceiling on the accepted-code count. Not safe for concurrent use, the
// owning session serializes access.
type PartitionedLedger struct {
	boxes       []*Box
	capacity    int
	nextOrdinal int
}

// NewPartitionedLedger creates an empty partitioned ledger. capacity <= 0
// means no ceiling.
func NewPartitionedLedger(capacity int) *PartitionedLedger {
	return &PartitionedLedger{capacity: capacity}
}

// AddBox appends a new empty box and returns it.
func (p *PartitionedLedger) AddBox(name string) *Box {
	p.nextOrdinal++
	box := &Box{Ordinal: p.nextOrdinal, Name: name}
	p.boxes = append(p.boxes, box)
	return box
}

// AppendRaw accepts a code into the given box. The append is rejected
// outright, with no partial mutation, when it would push the global
// accepted-code count past the declared capacity.
func (p *PartitionedLedger) AppendRaw(boxOrdinal int, code string) error {
	if code == "" {
		return ErrEmptyIdentity
	}
	box, ok := p.find(boxOrdinal)
	if !ok {
		return ErrBoxNotFound
	}
	if p.capacity > 0 && p.TotalCodes()+1 > p.capacity {
		return ErrCapacityExceeded
	}
	box.Codes = append(box.Codes, code)
	return nil
}

// RemoveAt deletes the code at index within the given box.
func (p *PartitionedLedger) RemoveAt(boxOrdinal, index int) error {
	box, ok := p.find(boxOrdinal)
	if !ok {
		return ErrBoxNotFound
	}
	if index < 0 || index >= len(box.Codes) {
		return ErrCodeNotFound
	}
	box.Codes = append(box.Codes[:index], box.Codes[index+1:]...)
	return nil
}

// RemoveBox deletes an entire box and its codes.
func (p *PartitionedLedger) RemoveBox(boxOrdinal int) error {
	for i, box := range p.boxes {
		if box.Ordinal == boxOrdinal {
			p.boxes = append(p.boxes[:i], p.boxes[i+1:]...)
			return nil
		}
	}
	return ErrBoxNotFound
}

// TotalCodes is the global accepted-code count across all boxes.
func (p *PartitionedLedger) TotalCodes() int {
	total := 0
	for _, box := range p.boxes {
		total += len(box.Codes)
	}
	return total
}

// AllCodes returns every raw code currently present, in box order.
func (p *PartitionedLedger) AllCodes() []string {
	out := make([]string, 0, p.TotalCodes())
	for _, box := range p.boxes {
		out = append(out, box.Codes...)
	}
	return out
}

// Boxes returns a deep copy of the partitions in insertion order.
func (p *PartitionedLedger) Boxes() []Box {
	out := make([]Box, 0, len(p.boxes))
	for _, box := range p.boxes {
		codes := make([]string, len(box.Codes))
		copy(codes, box.Codes)
		out = append(out, Box{Ordinal: box.Ordinal, Name: box.Name, Codes: codes})
	}
	return out
}

func (p *PartitionedLedger) Capacity() int { return p.capacity }

func (p *PartitionedLedger) find(ordinal int) (*Box, bool) {
	for _, box := range p.boxes {
		if box.Ordinal == ordinal {
			return box, true
		}
	}
	return nil, false
}
