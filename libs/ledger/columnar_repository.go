package ledger

import (
	"context"
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ColumnarRepository is the analytical archive: entries are appended as
// rows to date-partitioned CSV files (<root>/<YYYY>/<MM>/<DD>/ledger-*.csv)
// rather than a queryable database, trading query flexibility for a format
// any downstream analytics tool (pandas, DuckDB, spreadsheets) can read
// without a driver. No columnar or Arrow-native writer appears anywhere in
// the dependency set this module draws from, so this backend is built on
// encoding/csv rather than fabricating a parquet dependency — see
// DESIGN.md for the full justification.
//
// LatestSequence and Query scan the partition tree; this repository is not
// intended as the system of record (PostgresRepository is) but as a durable,
// append-friendly mirror for offline analysis.
type ColumnarRepository struct {
	root string
	mu   sync.Mutex
}

// NewColumnarRepository returns a repository rooted at dir. The directory is
// created lazily on first append.
func NewColumnarRepository(dir string) *ColumnarRepository {
	return &ColumnarRepository{root: dir}
}

var csvHeader = []string{"id", "sequence", "timestamp", "exchange", "asset", "amount", "entry_type", "reference_id", "meta"}

func (r *ColumnarRepository) partitionDir(ts time.Time) string {
	return filepath.Join(r.root, fmt.Sprintf("%04d", ts.Year()), fmt.Sprintf("%02d", ts.Month()), fmt.Sprintf("%02d", ts.Day()))
}

func (r *ColumnarRepository) Append(ctx context.Context, entry Entry) error {
	return r.AppendBatch(ctx, []Entry{entry})
}

func (r *ColumnarRepository) AppendBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}
	r.mu.Lock()
	defer r.mu.Unlock()

	byDay := make(map[string][]Entry)
	for _, e := range entries {
		dir := r.partitionDir(e.Timestamp)
		byDay[dir] = append(byDay[dir], e)
	}

	for dir, dayEntries := range byDay {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ledger: create partition dir %s: %w", dir, err)
		}
		path := filepath.Join(dir, fmt.Sprintf("ledger-%d-%s.csv", time.Now().UnixNano(), uuid.New().String()))
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("ledger: create partition file %s: %w", path, err)
		}
		w := csv.NewWriter(f)
		if err := w.Write(csvHeader); err != nil {
			f.Close()
			return fmt.Errorf("ledger: write csv header: %w", err)
		}
		for _, e := range dayEntries {
			if err := w.Write(entryToRow(e)); err != nil {
				f.Close()
				return fmt.Errorf("ledger: write csv row seq=%d: %w", e.Sequence, err)
			}
		}
		w.Flush()
		if err := w.Error(); err != nil {
			f.Close()
			return fmt.Errorf("ledger: flush csv file %s: %w", path, err)
		}
		if err := f.Close(); err != nil {
			return fmt.Errorf("ledger: close csv file %s: %w", path, err)
		}
	}
	return nil
}

func entryToRow(e Entry) []string {
	return []string{
		e.ID.String(),
		strconv.FormatUint(e.Sequence, 10),
		e.Timestamp.UTC().Format(time.RFC3339Nano),
		string(e.Exchange),
		string(e.Asset),
		e.Amount.String(),
		string(e.Type),
		e.ReferenceID,
		string(e.Meta),
	}
}

func rowToEntry(row []string) (Entry, error) {
	if len(row) != len(csvHeader) {
		return Entry{}, fmt.Errorf("ledger: malformed csv row, want %d columns got %d", len(csvHeader), len(row))
	}
	id, err := uuid.Parse(row[0])
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: parse entry id: %w", err)
	}
	seq, err := strconv.ParseUint(row[1], 10, 64)
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: parse sequence: %w", err)
	}
	ts, err := time.Parse(time.RFC3339Nano, row[2])
	if err != nil {
		return Entry{}, fmt.Errorf("ledger: parse timestamp: %w", err)
	}
	amount, err := parseAmount(row[5])
	if err != nil {
		return Entry{}, err
	}
	entryType, err := ParseType(row[6])
	if err != nil {
		return Entry{}, err
	}
	var meta []byte
	if row[8] != "" {
		meta = []byte(row[8])
	}
	return Entry{
		ID:          id,
		Sequence:    seq,
		Timestamp:   ts,
		Exchange:    toExchangeID(row[3]),
		Asset:       toAssetID(row[4]),
		Amount:      amount,
		Type:        entryType,
		ReferenceID: row[7],
		Meta:        meta,
	}, nil
}

// walkEntries reads every entry from every partition file under the archive
// root, oldest file first. Query and LatestSequence both scan the full tree
// since the archive favors simplicity and append throughput over query
// performance — the transactional PostgresRepository is the store callers
// should use for latency-sensitive lookups.
func (r *ColumnarRepository) walkEntries() ([]Entry, error) {
	var paths []string
	err := filepath.Walk(r.root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			if os.IsNotExist(err) {
				return nil
			}
			return err
		}
		if !info.IsDir() && filepath.Ext(path) == ".csv" {
			paths = append(paths, path)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("ledger: walk archive root %s: %w", r.root, err)
	}
	sort.Strings(paths)

	var out []Entry
	for _, path := range paths {
		f, err := os.Open(path)
		if err != nil {
			return nil, fmt.Errorf("ledger: open partition file %s: %w", path, err)
		}
		reader := csv.NewReader(f)
		rows, err := reader.ReadAll()
		f.Close()
		if err != nil {
			return nil, fmt.Errorf("ledger: read partition file %s: %w", path, err)
		}
		for i, row := range rows {
			if i == 0 {
				continue // header
			}
			entry, err := rowToEntry(row)
			if err != nil {
				return nil, fmt.Errorf("ledger: %s row %d: %w", path, i, err)
			}
			out = append(out, entry)
		}
	}
	return out, nil
}

func (r *ColumnarRepository) LatestSequence(ctx context.Context) (uint64, error) {
	entries, err := r.walkEntries()
	if err != nil {
		return 0, err
	}
	var max uint64
	for _, e := range entries {
		if e.Sequence > max {
			max = e.Sequence
		}
	}
	return max, nil
}

func (r *ColumnarRepository) Query(ctx context.Context, q Query) ([]Entry, error) {
	entries, err := r.walkEntries()
	if err != nil {
		return nil, err
	}

	filtered := entries[:0]
	for _, e := range entries {
		if q.Exchange != "" && string(e.Exchange) != q.Exchange {
			continue
		}
		if q.Asset != "" && string(e.Asset) != q.Asset {
			continue
		}
		if q.Type != "" && e.Type != q.Type {
			continue
		}
		if q.StartSeq != nil && e.Sequence < *q.StartSeq {
			continue
		}
		if q.EndSeq != nil && e.Sequence > *q.EndSeq {
			continue
		}
		if q.StartTime != nil && e.Timestamp.Before(*q.StartTime) {
			continue
		}
		if q.EndTime != nil && e.Timestamp.After(*q.EndTime) {
			continue
		}
		filtered = append(filtered, e)
	}

	sort.Slice(filtered, func(i, j int) bool {
		if q.Descending {
			return filtered[i].Sequence > filtered[j].Sequence
		}
		return filtered[i].Sequence < filtered[j].Sequence
	})

	if q.Limit > 0 && len(filtered) > q.Limit {
		filtered = filtered[:q.Limit]
	}
	return filtered, nil
}
