package scan

import (
	"reflect"
	"testing"
)

func TestAppendRawIntoBoxes(t *testing.T) {
	p := NewPartitionedLedger(0)
	b1 := p.AddBox("BOX-001")
	b2 := p.AddBox("BOX-002")

	if b1.Ordinal != 1 || b2.Ordinal != 2 {
		t.Fatalf("box ordinals = %d, %d, want 1, 2", b1.Ordinal, b2.Ordinal)
	}

	for _, code := range []string{"AAAAAA", "BBBBBB"} {
		if err := p.AppendRaw(1, code); err != nil {
			t.Fatal(err)
		}
	}
	if err := p.AppendRaw(2, "CCCCCC"); err != nil {
		t.Fatal(err)
	}

	if p.TotalCodes() != 3 {
		t.Errorf("TotalCodes = %d, want 3", p.TotalCodes())
	}
	boxes := p.Boxes()
	if !reflect.DeepEqual(boxes[0].Codes, []string{"AAAAAA", "BBBBBB"}) {
		t.Errorf("box 1 codes = %v", boxes[0].Codes)
	}
	if !reflect.DeepEqual(boxes[1].Codes, []string{"CCCCCC"}) {
		t.Errorf("box 2 codes = %v", boxes[1].Codes)
	}
}

func TestAppendRawUnknownBox(t *testing.T) {
	p := NewPartitionedLedger(0)
	if err := p.AppendRaw(99, "AAAAAA"); err != ErrBoxNotFound {
		t.Errorf("err = %v, want ErrBoxNotFound", err)
	}
}

func TestCapacityCeilingRejectsWholeAppend(t *testing.T) {
	// Scenario C: capacity 10, 10 codes already accepted, the 11th is
	// rejected outright with nothing mutated.
	p := NewPartitionedLedger(10)
	p.AddBox("BOX-001")
	for i := 0; i < 10; i++ {
		if err := p.AppendRaw(1, "C"+string(rune('0'+i))); err != nil {
			t.Fatal(err)
		}
	}

	before := p.Totals()
	if err := p.AppendRaw(1, "ELEVEN"); err != ErrCapacityExceeded {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	after := p.Totals()

	if after.TotalQuantity != 10 {
		t.Errorf("TotalQuantity = %d, want 10 (rejected append must not mutate)", after.TotalQuantity)
	}
	if !reflect.DeepEqual(before, after) {
		t.Errorf("totals changed across rejected append: %+v vs %+v", before, after)
	}
}

func TestCapacityFreedByRemoval(t *testing.T) {
	p := NewPartitionedLedger(2)
	p.AddBox("BOX-001")
	p.AppendRaw(1, "AAAAAA")
	p.AppendRaw(1, "BBBBBB")

	if err := p.AppendRaw(1, "CCCCCC"); err != ErrCapacityExceeded {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if err := p.RemoveAt(1, 0); err != nil {
		t.Fatal(err)
	}
	if err := p.AppendRaw(1, "CCCCCC"); err != nil {
		t.Errorf("append after removal err = %v, want nil", err)
	}
}

func TestDuplicateOccurrenceCounts(t *testing.T) {
	// [A, B, A, C, A] across two boxes reports {A: 3}.
	p := NewPartitionedLedger(0)
	p.AddBox("BOX-001")
	p.AddBox("BOX-002")
	p.AppendRaw(1, "A")
	p.AppendRaw(1, "B")
	p.AppendRaw(2, "A")
	p.AppendRaw(2, "C")
	p.AppendRaw(2, "A")

	totals := p.Totals()
	if totals.TotalQuantity != 5 {
		t.Errorf("TotalQuantity = %d, want 5", totals.TotalQuantity)
	}
	if totals.DistinctLines != 3 {
		t.Errorf("DistinctLines = %d, want 3", totals.DistinctLines)
	}
	want := map[string]int{"A": 3}
	if !reflect.DeepEqual(totals.Duplicates, want) {
		t.Errorf("Duplicates = %v, want %v", totals.Duplicates, want)
	}
}

func TestDuplicatesDoNotBlockAppend(t *testing.T) {
	p := NewPartitionedLedger(0)
	p.AddBox("BOX-001")
	if err := p.AppendRaw(1, "SAME"); err != nil {
		t.Fatal(err)
	}
	if err := p.AppendRaw(1, "SAME"); err != nil {
		t.Errorf("duplicate append err = %v, want nil (advisory only)", err)
	}
	if p.TotalCodes() != 2 {
		t.Errorf("TotalCodes = %d, want 2", p.TotalCodes())
	}
}

func TestRemoveAtBounds(t *testing.T) {
	p := NewPartitionedLedger(0)
	p.AddBox("BOX-001")
	p.AppendRaw(1, "AAAAAA")

	if err := p.RemoveAt(1, 5); err != ErrCodeNotFound {
		t.Errorf("out-of-range err = %v, want ErrCodeNotFound", err)
	}
	if err := p.RemoveAt(1, -1); err != ErrCodeNotFound {
		t.Errorf("negative index err = %v, want ErrCodeNotFound", err)
	}
	if err := p.RemoveAt(9, 0); err != ErrBoxNotFound {
		t.Errorf("unknown box err = %v, want ErrBoxNotFound", err)
	}
}

func TestRemoveBox(t *testing.T) {
	p := NewPartitionedLedger(0)
	p.AddBox("BOX-001")
	p.AddBox("BOX-002")
	p.AppendRaw(1, "AAAAAA")
	p.AppendRaw(2, "BBBBBB")

	if err := p.RemoveBox(1); err != nil {
		t.Fatal(err)
	}
	if p.TotalCodes() != 1 {
		t.Errorf("TotalCodes = %d, want 1", p.TotalCodes())
	}
	// Remaining box keeps its original ordinal.
	if boxes := p.Boxes(); len(boxes) != 1 || boxes[0].Ordinal != 2 {
		t.Errorf("boxes = %+v, want single box with ordinal 2", boxes)
	}
}

func TestBoxesReturnsCopy(t *testing.T) {
	p := NewPartitionedLedger(0)
	p.AddBox("BOX-001")
	p.AppendRaw(1, "AAAAAA")

	snapshot := p.Boxes()
	snapshot[0].Codes[0] = "MUTATED"

	if p.Boxes()[0].Codes[0] != "AAAAAA" {
		t.Error("Boxes() exposed internal code slice")
	}
}
