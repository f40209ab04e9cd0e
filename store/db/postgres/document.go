package postgres

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"

	"github.com/EscobozaEstrada/mrwhite-sub002/store"
)

func (d *DB) CreateDocument(ctx context.Context, create *store.Document) (*store.Document, error) {
	stmt := `
		INSERT INTO document (user_id, filename, file_type, s3_url, is_vet_report, dog_profile_id)
		VALUES (` + placeholders(6) + `)
		RETURNING id, created_ts
	`

	var createdTs int64
	err := d.db.QueryRowContext(ctx, stmt,
		create.UserID,
		create.Filename,
		create.FileType,
		create.S3URL,
		create.IsVetReport,
		create.DogProfileID,
	).Scan(&create.ID, &createdTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to create document")
	}

	create.CreatedAt = time.Unix(createdTs, 0).UTC()
	return create, nil
}

func (d *DB) ListDocuments(ctx context.Context, find *store.FindDocument) ([]*store.Document, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *find.ID)
	}
	if find.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *find.UserID)
	}
	if find.DogProfileID != nil {
		where, args = append(where, "dog_profile_id = "+placeholder(len(args)+1)), append(args, *find.DogProfileID)
	}
	if find.IsVetReport != nil {
		where, args = append(where, "is_vet_report = "+placeholder(len(args)+1)), append(args, *find.IsVetReport)
	}

	query := `
		SELECT id, user_id, filename, file_type, s3_url, is_vet_report, dog_profile_id, created_ts
		FROM document
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT " + placeholder(len(args)+1)
		args = append(args, find.Limit)
		if find.Offset > 0 {
			query += " OFFSET " + placeholder(len(args)+1)
			args = append(args, find.Offset)
		}
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list documents")
	}
	defer rows.Close()

	return scanDocuments(rows)
}

func (d *DB) DeleteDocuments(ctx context.Context, delete *store.DeleteDocument) error {
	where, args := []string{}, []any{}

	if delete.ID != nil {
		where, args = append(where, "id = "+placeholder(len(args)+1)), append(args, *delete.ID)
	}
	if delete.UserID != nil {
		where, args = append(where, "user_id = "+placeholder(len(args)+1)), append(args, *delete.UserID)
	}
	if len(where) == 0 {
		return errors.New("delete documents requires at least one condition")
	}

	stmt := `DELETE FROM document WHERE ` + strings.Join(where, " AND ")
	if _, err := d.db.ExecContext(ctx, stmt, args...); err != nil {
		return errors.Wrap(err, "failed to delete documents")
	}
	return nil
}

func (d *DB) AttachDocumentToMessage(ctx context.Context, attach *store.AttachDocument) error {
	stmt := `
		INSERT INTO message_document (message_id, conversation_id, document_id)
		VALUES (` + placeholders(3) + `)
		ON CONFLICT (message_id, document_id) DO NOTHING
	`
	_, err := d.db.ExecContext(ctx, stmt, attach.MessageID, attach.ConversationID, attach.DocumentID)
	if err != nil {
		return errors.Wrap(err, "failed to attach document to message")
	}
	return nil
}

// FindConversationDocuments returns every document attached to a message of
// the conversation, newest first.
func (d *DB) FindConversationDocuments(ctx context.Context, conversationID, userID int64) ([]*store.Document, error) {
	query := `
		SELECT DISTINCT d.id, d.user_id, d.filename, d.file_type, d.s3_url, d.is_vet_report, d.dog_profile_id, d.created_ts
		FROM document d
		INNER JOIN message_document md ON d.id = md.document_id
		WHERE md.conversation_id = ` + placeholder(1) + `
			AND d.user_id = ` + placeholder(2) + `
		ORDER BY d.created_ts DESC
	`

	rows, err := d.db.QueryContext(ctx, query, conversationID, userID)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find conversation documents")
	}
	defer rows.Close()

	return scanDocuments(rows)
}

type rowScanner interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
}

func scanDocuments(rows rowScanner) ([]*store.Document, error) {
	list := []*store.Document{}
	for rows.Next() {
		var document store.Document
		var createdTs int64
		err := rows.Scan(
			&document.ID,
			&document.UserID,
			&document.Filename,
			&document.FileType,
			&document.S3URL,
			&document.IsVetReport,
			&document.DogProfileID,
			&createdTs,
		)
		if err != nil {
			return nil, errors.Wrap(err, "failed to scan document")
		}
		document.CreatedAt = time.Unix(createdTs, 0).UTC()
		list = append(list, &document)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return list, nil
}
