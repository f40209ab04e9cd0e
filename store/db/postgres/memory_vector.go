package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

// UpsertMemoryVectors inserts or replaces memory vectors in one namespace.
func (d *DB) UpsertMemoryVectors(ctx context.Context, namespace string, vectors []vector.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	stmt := `
		INSERT INTO memory_vector (namespace, id, embedding, metadata)
		VALUES (` + placeholders(4) + `)
		ON CONFLICT (namespace, id)
		DO UPDATE SET
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata
	`

	for _, v := range vectors {
		if v.ID == "" {
			return errors.New("vector id is required")
		}
		metadata, err := json.Marshal(v.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal vector metadata")
		}
		_, err = d.db.ExecContext(ctx, stmt, namespace, v.ID, pgvector.NewVector(v.Values), metadata)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert memory vector %s", v.ID)
		}
	}
	return nil
}

// QueryMemoryVectors performs cosine similarity search with the metadata
// filter pushed down to JSONB predicates.
//
// The <=> operator computes cosine distance (1 - cosine_similarity), so
// ordering by distance ASC returns the most similar first.
func (d *DB) QueryMemoryVectors(ctx context.Context, find *store.QueryMemoryVectors) ([]vector.Match, error) {
	if err := find.Validate(); err != nil {
		return nil, err
	}

	where, args := []string{"namespace = " + placeholder(1)}, []any{find.Namespace}
	filterWhere, filterArgs := filterConditions(find.Filter, len(args))
	where = append(where, filterWhere...)
	args = append(args, filterArgs...)

	queryVector := pgvector.NewVector(find.Values)
	query := `
		SELECT id, metadata, 1 - (embedding <=> ` + placeholder(len(args)+1) + `) AS score
		FROM memory_vector
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY embedding <=> ` + placeholder(len(args)+2) + `
		LIMIT ` + placeholder(len(args)+3)
	args = append(args, queryVector, queryVector, find.TopK)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query memory vectors")
	}
	defer rows.Close()

	matches := []vector.Match{}
	for rows.Next() {
		var match vector.Match
		var metadata []byte
		if err := rows.Scan(&match.ID, &metadata, &match.Score); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory vector")
		}
		if err := json.Unmarshal(metadata, &match.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal vector metadata")
		}
		matches = append(matches, match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return matches, nil
}

// DeleteMemoryVectors deletes vectors matching the filter. A nil filter
// drops the whole namespace.
func (d *DB) DeleteMemoryVectors(ctx context.Context, namespace string, filter vector.Filter) error {
	where, args := []string{"namespace = " + placeholder(1)}, []any{namespace}
	filterWhere, filterArgs := filterConditions(filter, len(args))
	where = append(where, filterWhere...)
	args = append(args, filterArgs...)

	stmt := `DELETE FROM memory_vector WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete memory vectors")
	}
	return nil
}

// filterConditions translates a metadata filter into JSONB predicates.
// Values are compared as text via ->>, mirroring the loose equality the
// in-memory index applies, so `user_id = 7` matches whether the stored JSON
// number round-tripped as int or float.
func filterConditions(filter vector.Filter, argOffset int) ([]string, []any) {
	if len(filter) == 0 {
		return nil, nil
	}

	// Stable field order keeps generated SQL deterministic.
	fields := make([]string, 0, len(filter))
	for field := range filter {
		fields = append(fields, field)
	}
	sort.Strings(fields)

	where, args := []string{}, []any{}
	for _, field := range fields {
		cond := filter[field]
		accessor := "metadata->>" + quoteLiteral(field)
		switch {
		case cond.IsEq():
			where = append(where, accessor+" = "+placeholder(argOffset+len(args)+1))
			args = append(args, jsonText(cond.Eq))
		case cond.IsNe():
			// IS DISTINCT FROM treats an absent field (NULL) as a pass,
			// matching the in-memory filter semantics.
			where = append(where, accessor+" IS DISTINCT FROM "+placeholder(argOffset+len(args)+1))
			args = append(args, jsonText(cond.Ne))
		case len(cond.In) > 0:
			where = append(where, accessor+" = ANY("+placeholder(argOffset+len(args)+1)+")")
			values := make([]string, 0, len(cond.In))
			for _, v := range cond.In {
				values = append(values, jsonText(v))
			}
			args = append(args, pq.Array(values))
		}
	}
	return where, args
}

// jsonText renders a filter value the way ->> renders the stored one.
func jsonText(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case bool:
		if t {
			return "true"
		}
		return "false"
	default:
		return fmt.Sprint(v)
	}
}

func quoteLiteral(s string) string {
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}
