package vectordb

import (
	"encoding/json"
	"fmt"
	"time"
)

// Kind separates the two families of embedded items.
type Kind string

const (
	KindCheckIn       Kind = "checkin"
	KindDocumentChunk Kind = "document_chunk"
)

// Kinds lists every kind the index manages.
var Kinds = []Kind{KindCheckIn, KindDocumentChunk}

// Item is one embedded check-in or document chunk.
type Item struct {
	ID        string
	Kind      Kind
	UserID    string
	Content   string
	Embedding []float32
	CreatedAt time.Time
	// Fields carries kind-specific values such as mood or document_id.
	Fields map[string]string
}

// Match is an item returned by a similarity query.
type Match struct {
	Item
	Similarity float32
}

const (
	keyUserID    = "user_id"
	keyCreatedAt = "created_at"
)

// Field keys written by ingestion and read back by retrieval.
const (
	FieldSummary      = "summary"
	FieldTranscript   = "transcript"
	FieldMood         = "mood"
	FieldEnergy       = "energy"
	FieldSymptoms     = "symptoms"
	FieldDocumentID   = "document_id"
	FieldDocumentType = "document_type"
	FieldChunkIndex   = "chunk_index"
	FieldTotalChunks  = "total_chunks"
)

// EncodeSymptoms serializes symptom names for FieldSymptoms. Names may
// contain any character, so the value is a JSON array.
func EncodeSymptoms(names []string) string {
	if names == nil {
		names = []string{}
	}
	b, _ := json.Marshal(names)
	return string(b)
}

// DecodeSymptoms reverses EncodeSymptoms. A malformed value yields nil.
func DecodeSymptoms(s string) []string {
	if s == "" {
		return nil
	}
	var names []string
	if err := json.Unmarshal([]byte(s), &names); err != nil {
		return nil
	}
	return names
}

func (it Item) validate() error {
	switch {
	case it.ID == "":
		return fmt.Errorf("item id is empty")
	case it.UserID == "":
		return fmt.Errorf("item %s has no user", it.ID)
	case len(it.Embedding) == 0:
		return fmt.Errorf("item %s has no embedding", it.ID)
	}
	return nil
}

// metadataFor flattens an item's scoping and kind-specific fields into the
// string map chromem stores alongside each vector.
func metadataFor(it Item) map[string]string {
	md := make(map[string]string, len(it.Fields)+2)
	for k, v := range it.Fields {
		md[k] = v
	}
	md[keyUserID] = it.UserID
	md[keyCreatedAt] = it.CreatedAt.UTC().Format(time.RFC3339Nano)
	return md
}

func itemFromMetadata(kind Kind, id, content string, md map[string]string) Item {
	created, _ := time.Parse(time.RFC3339Nano, md[keyCreatedAt])
	fields := make(map[string]string, len(md))
	for k, v := range md {
		if k != keyUserID && k != keyCreatedAt {
			fields[k] = v
		}
	}
	return Item{
		ID:        id,
		Kind:      kind,
		UserID:    md[keyUserID],
		Content:   content,
		CreatedAt: created,
		Fields:    fields,
	}
}
