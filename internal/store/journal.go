package store

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
)

// Operation is one journal row: a single phase of a blog store operation.
type Operation struct {
	ID        int64          `json:"id"`
	RequestID string         `json:"request_id"`
	Kind      string         `json:"kind"`
	Phase     string         `json:"phase"`
	Seq       int64          `json:"seq"`
	Detail    map[string]any `json:"detail,omitempty"`
	Error     string         `json:"error,omitempty"`
}

// WriteOperation appends a journal row. A second row for the same
// (request_id, phase) is silently ignored, so replayed writes are harmless.
func (s *Store) WriteOperation(ctx context.Context, op Operation) error {
	detail, err := marshalDetail(op.Detail)
	if err != nil {
		return fmt.Errorf("write operation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO operations (request_id, kind, phase, seq, detail, error)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(request_id, phase) DO NOTHING
	`,
		op.RequestID,
		op.Kind,
		op.Phase,
		op.Seq,
		detail,
		op.Error,
	)
	if err != nil {
		return fmt.Errorf("write operation: %w", err)
	}
	return nil
}

// ReadRequest returns every phase recorded for one request id.
// Returns an empty slice (not nil) when nothing matches.
func (s *Store) ReadRequest(ctx context.Context, requestID string) ([]Operation, error) {
	return s.queryOperations(ctx, `
		SELECT id, request_id, kind, phase, seq, detail, error
		FROM operations
		WHERE request_id = ?
		ORDER BY seq ASC, id ASC
	`, requestID)
}

// ListOperations returns the most recent limit rows in seq order.
// A limit <= 0 returns the whole journal.
func (s *Store) ListOperations(ctx context.Context, limit int) ([]Operation, error) {
	if limit <= 0 {
		return s.queryOperations(ctx, `
			SELECT id, request_id, kind, phase, seq, detail, error
			FROM operations
			ORDER BY seq ASC, id ASC
		`)
	}
	return s.queryOperations(ctx, `
		SELECT id, request_id, kind, phase, seq, detail, error FROM (
			SELECT id, request_id, kind, phase, seq, detail, error
			FROM operations
			ORDER BY seq DESC, id DESC
			LIMIT ?
		)
		ORDER BY seq ASC, id ASC
	`, limit)
}

// LastSeq returns the highest recorded seq, or 0 for an empty journal.
// The blog store resumes its clock from here so seqs stay monotonic across
// process restarts.
func (s *Store) LastSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM operations`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query last seq: %w", err)
	}
	return seq.Int64, nil
}

// ClearOperations truncates the journal.
func (s *Store) ClearOperations(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM operations`); err != nil {
		return fmt.Errorf("clear operations: %w", err)
	}
	return nil
}

func (s *Store) queryOperations(ctx context.Context, query string, args ...any) ([]Operation, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query operations: %w", err)
	}
	defer rows.Close()

	ops := []Operation{}
	for rows.Next() {
		var op Operation
		var detail string
		if err := rows.Scan(&op.ID, &op.RequestID, &op.Kind, &op.Phase, &op.Seq, &detail, &op.Error); err != nil {
			return nil, fmt.Errorf("scan operation: %w", err)
		}
		if op.Detail, err = unmarshalDetail(detail); err != nil {
			return nil, err
		}
		ops = append(ops, op)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate operations: %w", err)
	}
	return ops, nil
}

// marshalDetail encodes detail with sorted keys and no HTML escaping so
// identical details produce identical rows.
func marshalDetail(detail map[string]any) (string, error) {
	if len(detail) == 0 {
		return "{}", nil
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(detail); err != nil {
		return "", fmt.Errorf("marshal detail: %w", err)
	}
	return strings.TrimSpace(buf.String()), nil
}

func unmarshalDetail(data string) (map[string]any, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	dec := json.NewDecoder(strings.NewReader(data))
	dec.UseNumber()
	var m map[string]any
	if err := dec.Decode(&m); err != nil {
		return nil, fmt.Errorf("unmarshal detail: %w", err)
	}
	return m, nil
}
