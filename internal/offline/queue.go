package offline

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
)

// SaleItem is one line of a sale captured while the server was unreachable.
type SaleItem struct {
	ProductID   string `json:"product_id,omitempty"`
	ProductName string `json:"product_name,omitempty"`
	UnitPrice   string `json:"unit_price,omitempty"`
	Quantity    int32  `json:"quantity"`
	Note        string `json:"note,omitempty"`
}

// SalePayload is the sale body that will eventually be replayed to the
// server's sync endpoint.
type SalePayload struct {
	OrderType     string     `json:"order_type"`
	TableNumber   string     `json:"table_number,omitempty"`
	CustomerName  string     `json:"customer_name,omitempty"`
	CustomerPhone string     `json:"customer_phone,omitempty"`
	Items         []SaleItem `json:"items"`
}

// Record is a spooled sale. ClientRef is generated at capture time and rides
// along on every replay, so the server can detect duplicates if a submit
// succeeds but the acknowledgement is lost.
type Record struct {
	ClientRef  string      `json:"client_ref"`
	CapturedAt time.Time   `json:"captured_at"`
	Sale       SalePayload `json:"sale"`
}

// Queue is a durable spool of unsent sales, one JSON file per record. Files
// survive process restarts and power loss; a sale leaves the spool only
// after the server accepts it.
type Queue struct {
	dir string
}

// NewQueue opens (creating if needed) the spool directory.
func NewQueue(dir string) (*Queue, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create spool dir: %w", err)
	}
	return &Queue{dir: dir}, nil
}

// Enqueue assigns a client reference and persists the sale. The write goes
// through a temp file and rename so a crash never leaves a half-written
// record in the spool.
func (q *Queue) Enqueue(sale SalePayload) (Record, error) {
	rec := Record{
		ClientRef:  uuid.NewString(),
		CapturedAt: time.Now().UTC(),
		Sale:       sale,
	}

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return Record{}, fmt.Errorf("marshal record: %w", err)
	}

	tmp, err := os.CreateTemp(q.dir, ".tmp-*")
	if err != nil {
		return Record{}, fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("write record: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("close record: %w", err)
	}

	if err := os.Rename(tmpName, q.path(rec)); err != nil {
		os.Remove(tmpName)
		return Record{}, fmt.Errorf("commit record: %w", err)
	}
	return rec, nil
}

// List returns all spooled records, oldest capture first. Unreadable files
// are skipped rather than blocking the rest of the spool.
func (q *Queue) List() ([]Record, error) {
	entries, err := os.ReadDir(q.dir)
	if err != nil {
		return nil, fmt.Errorf("read spool dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		names = append(names, e.Name())
	}
	// File names start with the capture timestamp, so lexical order is
	// capture order.
	sort.Strings(names)

	records := make([]Record, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(q.dir, name))
		if err != nil {
			continue
		}
		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		records = append(records, rec)
	}
	return records, nil
}

// Remove deletes an acknowledged record from the spool.
func (q *Queue) Remove(rec Record) error {
	if err := os.Remove(q.path(rec)); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("remove record: %w", err)
	}
	return nil
}

// Len reports how many records are waiting.
func (q *Queue) Len() (int, error) {
	records, err := q.List()
	if err != nil {
		return 0, err
	}
	return len(records), nil
}

func (q *Queue) path(rec Record) string {
	name := fmt.Sprintf("%020d-%s.json", rec.CapturedAt.UnixNano(), rec.ClientRef)
	return filepath.Join(q.dir, name)
}
