package reconcile

import (
	"testing"
)

func TestDiffProducts_EmptyToItems(t *testing.T) {
	desired := []Product{{ProductID: 1}, {ProductID: 2}}

	diff := DiffProducts(nil, desired)

	if len(diff.ToAdd) != 2 {
		t.Errorf("ToAdd = %d, want 2", len(diff.ToAdd))
	}
	if len(diff.ToRemove) != 0 {
		t.Errorf("ToRemove = %d, want 0", len(diff.ToRemove))
	}
}

func TestDiffProducts_ItemsToEmpty(t *testing.T) {
	current := []Entry{
		{Product: Product{ProductID: 1}, ItemID: 11},
		{Product: Product{ProductID: 2}, ItemID: 12},
	}

	diff := DiffProducts(current, nil)

	if len(diff.ToAdd) != 0 {
		t.Errorf("ToAdd = %d, want 0", len(diff.ToAdd))
	}
	if len(diff.ToRemove) != 2 {
		t.Fatalf("ToRemove = %d, want 2", len(diff.ToRemove))
	}
	// Item ids are kept for the removal call
	for _, e := range diff.ToRemove {
		if e.ItemID == 0 {
			t.Error("ToRemove entry missing ItemID")
		}
	}
}

func TestDiffProducts_NoChange(t *testing.T) {
	current := []Entry{{Product: Product{ProductID: 1}, ItemID: 11}}
	desired := []Product{{ProductID: 1}}

	if diff := DiffProducts(current, desired); !diff.IsEmpty() {
		t.Errorf("diff = %+v, want empty", diff)
	}
}

func TestDiffProducts_VariationsAreDistinct(t *testing.T) {
	current := []Entry{{Product: Product{ProductID: 1, VariationID: 10}, ItemID: 11}}
	desired := []Product{{ProductID: 1, VariationID: 20}}

	diff := DiffProducts(current, desired)

	if len(diff.ToAdd) != 1 || diff.ToAdd[0].VariationID != 20 {
		t.Errorf("ToAdd = %+v", diff.ToAdd)
	}
	if len(diff.ToRemove) != 1 || diff.ToRemove[0].VariationID != 10 {
		t.Errorf("ToRemove = %+v", diff.ToRemove)
	}
}

func TestDiffProducts_DuplicatesAndInvalid(t *testing.T) {
	desired := []Product{{ProductID: 3}, {ProductID: 0}, {ProductID: 3}, {ProductID: -1}, {ProductID: 4}}

	diff := DiffProducts(nil, desired)

	want := []int{3, 4}
	if len(diff.ToAdd) != len(want) {
		t.Fatalf("ToAdd = %+v, want %v", diff.ToAdd, want)
	}
	for i, id := range want {
		if diff.ToAdd[i].ProductID != id {
			t.Errorf("ToAdd[%d] = %d, want %d (input order)", i, diff.ToAdd[i].ProductID, id)
		}
	}
}

func TestMerge_NeverRemoves(t *testing.T) {
	current := []Entry{
		{Product: Product{ProductID: 1}, ItemID: 11},
		{Product: Product{ProductID: 2}, ItemID: 12},
	}
	guest := []Product{{ProductID: 2}, {ProductID: 5}}

	added := Merge(current, guest)
	if len(added) != 1 || added[0].ProductID != 5 {
		t.Fatalf("Merge = %+v, want [5]", added)
	}

	current = append(current, Entry{Product: Product{ProductID: 5}, ItemID: 13})
	if again := Merge(current, guest); len(again) != 0 {
		t.Errorf("second Merge = %+v, want empty", again)
	}
}
