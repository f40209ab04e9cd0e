package sqlite

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/EscobozaEstrada/mrwhite-sub002/ai/vector"
	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

// Vectors are stored as BLOBs of little-endian float32 values; similarity
// and metadata filtering happen in Go after loading the namespace. SQLite
// has no vector extension here, and at single-user scale a namespace scan
// is cheap.

func float32ArrayToBLOB(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid embedding BLOB length %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vec, nil
}

// UpsertMemoryVectors inserts or replaces memory vectors in one namespace.
func (d *DB) UpsertMemoryVectors(ctx context.Context, namespace string, vectors []vector.Vector) error {
	if len(vectors) == 0 {
		return nil
	}

	stmt := `
		INSERT INTO memory_vector (namespace, id, embedding, metadata)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (namespace, id) DO UPDATE SET
			embedding = excluded.embedding,
			metadata = excluded.metadata
	`

	for _, v := range vectors {
		if v.ID == "" {
			return errors.New("vector id is required")
		}
		metadata, err := json.Marshal(v.Metadata)
		if err != nil {
			return errors.Wrap(err, "failed to marshal vector metadata")
		}
		_, err = d.db.ExecContext(ctx, stmt, namespace, v.ID, float32ArrayToBLOB(v.Values), metadata)
		if err != nil {
			return errors.Wrapf(err, "failed to upsert memory vector %s", v.ID)
		}
	}
	return nil
}

// QueryMemoryVectors loads the namespace and ranks by cosine similarity in
// the application layer.
func (d *DB) QueryMemoryVectors(ctx context.Context, find *store.QueryMemoryVectors) ([]vector.Match, error) {
	if err := find.Validate(); err != nil {
		return nil, err
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, embedding, metadata FROM memory_vector WHERE namespace = ?",
		find.Namespace,
	)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query memory vectors")
	}
	defer rows.Close()

	matches := []vector.Match{}
	for rows.Next() {
		var id string
		var blob []byte
		var metadataJSON []byte
		if err := rows.Scan(&id, &blob, &metadataJSON); err != nil {
			return nil, errors.Wrap(err, "failed to scan memory vector")
		}

		var metadata map[string]any
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal vector metadata")
		}
		if !find.Filter.Matches(metadata) {
			continue
		}

		embedding, err := blobToFloat32Array(blob)
		if err != nil {
			return nil, err
		}
		score, err := cosineSimilarity(find.Values, embedding)
		if err != nil {
			return nil, errors.Wrapf(err, "memory vector %s", id)
		}

		matches = append(matches, vector.Match{ID: id, Score: score, Metadata: metadata})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})
	if len(matches) > find.TopK {
		matches = matches[:find.TopK]
	}
	return matches, nil
}

// DeleteMemoryVectors deletes vectors matching the filter. A nil filter
// drops the whole namespace; otherwise rows are filtered in Go and deleted
// by id.
func (d *DB) DeleteMemoryVectors(ctx context.Context, namespace string, filter vector.Filter) error {
	if len(filter) == 0 {
		if _, err := d.db.ExecContext(ctx, "DELETE FROM memory_vector WHERE namespace = ?", namespace); err != nil {
			return errors.Wrap(err, "failed to delete memory vectors")
		}
		return nil
	}

	rows, err := d.db.QueryContext(ctx,
		"SELECT id, metadata FROM memory_vector WHERE namespace = ?",
		namespace,
	)
	if err != nil {
		return errors.Wrap(err, "failed to query memory vectors")
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		var metadataJSON []byte
		if err := rows.Scan(&id, &metadataJSON); err != nil {
			return errors.Wrap(err, "failed to scan memory vector")
		}
		var metadata map[string]any
		if err := json.Unmarshal(metadataJSON, &metadata); err != nil {
			return errors.Wrap(err, "failed to unmarshal vector metadata")
		}
		if filter.Matches(metadata) {
			ids = append(ids, id)
		}
	}
	if err := rows.Err(); err != nil {
		return err
	}

	stmt := "DELETE FROM memory_vector WHERE namespace = ? AND id = ?"
	for _, id := range ids {
		if _, err := d.db.ExecContext(ctx, stmt, namespace, id); err != nil {
			return errors.Wrapf(err, "failed to delete memory vector %s", id)
		}
	}
	return nil
}

func cosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, errors.Errorf("dimension mismatch: %d vs %d", len(a), len(b))
	}
	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, nil
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}
