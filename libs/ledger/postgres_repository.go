package ledger

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"

	"jax-trading-assistant/libs/database"
)

// PostgresRepository is the transactional ledger store: one row per entry,
// primary key on sequence, unique on entry id, built on the shared
// database.DB connection pool the rest of the system already uses.
type PostgresRepository struct {
	db *database.DB
}

// NewPostgresRepository wraps an already-connected database.DB. Callers are
// expected to have run migrations that create the `ledger_entries` table
// (id uuid, sequence bigint primary key, timestamp timestamptz, exchange
// text, asset text, amount numeric, entry_type text, reference_id text,
// meta jsonb) with secondary indices on (timestamp, exchange, asset) and
// reference_id.
func NewPostgresRepository(db *database.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Append(ctx context.Context, entry Entry) error {
	return r.AppendBatch(ctx, []Entry{entry})
}

func (r *PostgresRepository) AppendBatch(ctx context.Context, entries []Entry) error {
	if len(entries) == 0 {
		return nil
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("ledger: begin append transaction: %w", err)
	}
	defer tx.Rollback()

	const stmt = `
		INSERT INTO ledger_entries
			(id, sequence, timestamp, exchange, asset, amount, entry_type, reference_id, meta)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`

	for _, e := range entries {
		var meta any
		if len(e.Meta) > 0 {
			meta = []byte(e.Meta)
		}
		if _, err := tx.ExecContext(ctx, stmt,
			e.ID, e.Sequence, e.Timestamp, string(e.Exchange), string(e.Asset),
			e.Amount.String(), string(e.Type), e.ReferenceID, meta,
		); err != nil {
			return fmt.Errorf("ledger: insert entry seq=%d: %w", e.Sequence, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("ledger: commit append transaction: %w", err)
	}
	return nil
}

func (r *PostgresRepository) LatestSequence(ctx context.Context) (uint64, error) {
	var seq sql.NullInt64
	row := r.db.QueryRowContext(ctx, `SELECT MAX(sequence) FROM ledger_entries`)
	if err := row.Scan(&seq); err != nil {
		return 0, fmt.Errorf("ledger: query latest sequence: %w", err)
	}
	if !seq.Valid {
		return 0, nil
	}
	return uint64(seq.Int64), nil
}

func (r *PostgresRepository) Query(ctx context.Context, q Query) ([]Entry, error) {
	var conditions []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}

	if q.Exchange != "" {
		conditions = append(conditions, "exchange = "+arg(q.Exchange))
	}
	if q.Asset != "" {
		conditions = append(conditions, "asset = "+arg(q.Asset))
	}
	if q.Type != "" {
		conditions = append(conditions, "entry_type = "+arg(string(q.Type)))
	}
	if q.StartSeq != nil {
		conditions = append(conditions, "sequence >= "+arg(*q.StartSeq))
	}
	if q.EndSeq != nil {
		conditions = append(conditions, "sequence <= "+arg(*q.EndSeq))
	}
	if q.StartTime != nil {
		conditions = append(conditions, "timestamp >= "+arg(*q.StartTime))
	}
	if q.EndTime != nil {
		conditions = append(conditions, "timestamp <= "+arg(*q.EndTime))
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}
	order := "ASC"
	if q.Descending {
		order = "DESC"
	}
	limit := ""
	if q.Limit > 0 {
		limit = fmt.Sprintf(" LIMIT %d", q.Limit)
	}

	sqlText := fmt.Sprintf(
		`SELECT id, sequence, timestamp, exchange, asset, amount, entry_type, reference_id, meta
		 FROM ledger_entries %s ORDER BY sequence %s%s`, where, order, limit)

	rows, err := r.db.QueryContext(ctx, sqlText, args...)
	if err != nil {
		return nil, fmt.Errorf("ledger: query entries: %w", err)
	}
	defer rows.Close()

	var out []Entry
	for rows.Next() {
		var e Entry
		var exchange, asset, entryType, amount string
		var meta []byte
		if err := rows.Scan(&e.ID, &e.Sequence, &e.Timestamp, &exchange, &asset, &amount, &entryType, &e.ReferenceID, &meta); err != nil {
			return nil, fmt.Errorf("ledger: scan entry row: %w", err)
		}
		e.Exchange = toExchangeID(exchange)
		e.Asset = toAssetID(asset)
		parsed, err := ParseType(entryType)
		if err != nil {
			return nil, err
		}
		e.Type = parsed
		if amt, err := parseAmount(amount); err != nil {
			return nil, err
		} else {
			e.Amount = amt
		}
		if len(meta) > 0 {
			e.Meta = json.RawMessage(meta)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
