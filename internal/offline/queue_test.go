package offline

import (
	"os"
	"path/filepath"
	"testing"
)

func testSale(table string) SalePayload {
	return SalePayload{
		OrderType:   "dine_in",
		TableNumber: table,
		Items: []SaleItem{
			{ProductName: "Nasi Goreng Spesial", UnitPrice: "28000", Quantity: 2},
		},
	}
}

func TestQueueEnqueueList(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	first, err := q.Enqueue(testSale("3"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	second, err := q.Enqueue(testSale("7"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if first.ClientRef == second.ClientRef {
		t.Fatal("records must get distinct client references")
	}
	if first.ClientRef == "" {
		t.Fatal("client reference not assigned")
	}

	records, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("expected 2 records, got %d", len(records))
	}
	if records[0].ClientRef != first.ClientRef {
		t.Error("records not listed oldest first")
	}
	if records[0].Sale.TableNumber != "3" {
		t.Errorf("sale payload not preserved: got table %q", records[0].Sale.TableNumber)
	}
	if len(records[0].Sale.Items) != 1 || records[0].Sale.Items[0].Quantity != 2 {
		t.Error("sale items not preserved")
	}
}

func TestQueueRemove(t *testing.T) {
	q, err := NewQueue(t.TempDir())
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	rec, err := q.Enqueue(testSale("1"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	if err := q.Remove(rec); err != nil {
		t.Fatalf("Remove: %v", err)
	}

	n, err := q.Len()
	if err != nil {
		t.Fatalf("Len: %v", err)
	}
	if n != 0 {
		t.Fatalf("expected empty spool after remove, got %d records", n)
	}

	// Removing twice is fine: the record may already be gone.
	if err := q.Remove(rec); err != nil {
		t.Fatalf("second Remove: %v", err)
	}
}

func TestQueueSurvivesReopen(t *testing.T) {
	dir := t.TempDir()

	q, err := NewQueue(dir)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}
	rec, err := q.Enqueue(testSale("5"))
	if err != nil {
		t.Fatalf("Enqueue: %v", err)
	}

	// Simulate a process restart by opening a fresh queue over the same dir.
	reopened, err := NewQueue(dir)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	records, err := reopened.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 || records[0].ClientRef != rec.ClientRef {
		t.Fatal("spooled record not visible after reopen")
	}
}

func TestQueueSkipsCorruptFiles(t *testing.T) {
	dir := t.TempDir()
	q, err := NewQueue(dir)
	if err != nil {
		t.Fatalf("NewQueue: %v", err)
	}

	if _, err := q.Enqueue(testSale("2")); err != nil {
		t.Fatalf("Enqueue: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "00000000000000000000-junk.json"), []byte("{not json"), 0o644); err != nil {
		t.Fatalf("write corrupt file: %v", err)
	}

	records, err := q.List()
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(records) != 1 {
		t.Fatalf("expected corrupt file skipped, got %d records", len(records))
	}
}
