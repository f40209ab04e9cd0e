package store

import "time"

// Document represents an uploaded file record (vet reports, photos, notes).
// The chunk embeddings live in the vector index; this row is the relational
// source of truth.
type Document struct {
	CreatedAt    time.Time `json:"created_at"`
	Filename     string    `json:"filename"`
	FileType     string    `json:"file_type"`
	S3URL        string    `json:"s3_url"`
	ID           int64     `json:"id"`
	UserID       int64     `json:"user_id"`
	DogProfileID int64     `json:"dog_profile_id"`
	IsVetReport  bool      `json:"is_vet_report"`
}

// FindDocument specifies the conditions for finding documents.
type FindDocument struct {
	ID           *int64
	UserID       *int64
	DogProfileID *int64
	IsVetReport  *bool
	Limit        int
	Offset       int
}

// DeleteDocument specifies the conditions for deleting documents.
// At least one of ID and UserID must be set.
type DeleteDocument struct {
	ID     *int64
	UserID *int64
}

// AttachDocument links a document to the message it was shared in, which is
// what the conversation-document lookup joins over.
type AttachDocument struct {
	DocumentID     int64
	MessageID      int64
	ConversationID int64
}
