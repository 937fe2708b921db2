package documents

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"
)

// Type classifies an uploaded health document.
type Type string

const (
	TypeLabReport    Type = "lab_report"
	TypePrescription Type = "prescription"
	TypeVisitNote    Type = "visit_note"
	TypeImaging      Type = "imaging"
	TypeOther        Type = "other"
)

var validTypes = map[Type]bool{
	TypeLabReport:    true,
	TypePrescription: true,
	TypeVisitNote:    true,
	TypeImaging:      true,
	TypeOther:        true,
}

// ParseType validates a document type string. Empty means other.
func ParseType(s string) (Type, error) {
	t := Type(strings.ToLower(strings.TrimSpace(s)))
	if t == "" {
		return TypeOther, nil
	}
	if !validTypes[t] {
		return "", fmt.Errorf("invalid document type %q", s)
	}
	return t, nil
}

// Label renders the type for humans: "lab_report" -> "Lab report".
func (t Type) Label() string {
	s := strings.ReplaceAll(string(t), "_", " ")
	if s == "" {
		return "Document"
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Document is an uploaded health record.
type Document struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id"`
	Title        string    `json:"title"`
	DocumentType Type      `json:"document_type"`
	Content      string    `json:"content,omitempty"`
	SourcePath   string    `json:"source_path,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// Chunk is one persisted, embedded slice of a document.
type Chunk struct {
	ID          string    `json:"id"`
	DocumentID  string    `json:"document_id"`
	UserID      string    `json:"user_id"`
	Content     string    `json:"content"`
	ChunkIndex  int       `json:"chunk_index"`
	TotalChunks int       `json:"total_chunks"`
	Embedding   []float32 `json:"-"`
	CreatedAt   time.Time `json:"created_at"`
}

var typeHints = []struct {
	keywords []string
	t        Type
}{
	{[]string{"lab", "blood", "panel", "cbc"}, TypeLabReport},
	{[]string{"prescription", "rx", "medication"}, TypePrescription},
	{[]string{"mri", "xray", "x-ray", "ct", "scan", "ultrasound", "imaging"}, TypeImaging},
	{[]string{"visit", "consult", "discharge", "note"}, TypeVisitNote},
}

// InferType guesses a document type from its file name.
func InferType(path string) Type {
	base := strings.ToLower(strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)))
	words := strings.FieldsFunc(base, func(r rune) bool {
		return r == '_' || r == '-' || r == ' ' || r == '.'
	})
	for _, h := range typeHints {
		for _, w := range words {
			for _, k := range h.keywords {
				if w == k {
					return h.t
				}
			}
		}
	}
	return TypeOther
}
