// Package intent provides keyword-table query classifiers for the retrieval
// pipeline. Each classifier is a pure membership test over an injectable
// keyword table, so tests can substitute small fixtures and the tables can be
// swapped for a trained classifier later without touching call sites.
package intent

import "strings"

// Tables holds the keyword lists the classifiers match against.
// All entries must be lowercase.
type Tables struct {
	// DocumentKeywords mark queries about uploaded files and their content.
	DocumentKeywords []string
	// ReferencePhrases mark queries referring back to something the user
	// already shared in the conversation.
	ReferencePhrases []string
	// ImageKeywords mark queries about photos and pictures.
	ImageKeywords []string
	// DogKeywords mark queries about breeds, training, health and other
	// dog topics that the book knowledge base can ground.
	DogKeywords []string
}

// DefaultTables returns the production keyword tables.
func DefaultTables() Tables {
	return Tables{
		DocumentKeywords: []string{
			"document", "file", "upload", "uploaded", "attachment", "attached",
			"summarize", "summary", "pdf", "report", "record", "records",
			"paperwork", "image", "photo", "picture", "scan",
		},
		ReferencePhrases: []string{
			"i shared", "i sent", "i uploaded", "i showed", "i gave you",
			"we discussed", "you have", "earlier", "that document", "that file",
			"the one i", "images of", "pictures of", "photos of",
		},
		ImageKeywords: []string{
			"image", "images", "photo", "photos", "picture", "pictures",
			"pic", "pics", "screenshot", "selfie",
		},
		DogKeywords: []string{
			"dog", "puppy", "pup", "canine", "breed", "leash", "collar",
			"training", "train", "obedience", "recall", "socialization",
			"barking", "chewing", "biting", "crate", "housebreaking",
			"vet", "veterinarian", "vaccination", "vaccinations", "vaccine",
			"neuter", "spay", "heartworm", "flea", "tick", "deworming",
			"kibble", "nutrition", "diet", "grooming", "shedding",
			"walk", "walking", "fetch", "park", "kennel", "labrador",
			"retriever", "shepherd", "terrier", "poodle", "bulldog",
			"beagle", "husky", "dachshund", "chihuahua",
		},
	}
}

// Classifier runs membership tests against its keyword tables.
type Classifier struct {
	tables Tables
}

// NewClassifier creates a classifier over the given tables.
func NewClassifier(tables Tables) *Classifier {
	return &Classifier{tables: tables}
}

// IsDocumentQuery reports whether the query targets stored documents.
func (c *Classifier) IsDocumentQuery(query string) bool {
	return containsAny(query, c.tables.DocumentKeywords)
}

// IsReferenceQuery reports whether the query refers back to content the user
// already shared, e.g. "the report i sent" or "images of my dog".
func (c *Classifier) IsReferenceQuery(query string) bool {
	return containsAny(query, c.tables.ReferencePhrases)
}

// IsImageQuery reports whether the query is about photos or pictures.
func (c *Classifier) IsImageQuery(query string) bool {
	return containsAny(query, c.tables.ImageKeywords)
}

// IsDogRelated reports whether the query touches dog topics that book
// knowledge can ground.
func (c *Classifier) IsDogRelated(query string) bool {
	return containsAny(query, c.tables.DogKeywords)
}

func containsAny(query string, keywords []string) bool {
	lower := strings.ToLower(query)
	for _, keyword := range keywords {
		if strings.Contains(lower, keyword) {
			return true
		}
	}
	return false
}
