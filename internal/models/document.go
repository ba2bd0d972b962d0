// Package models defines core data structures for documents, chunks, and ingestion results.
package models

import (
	"database/sql/driver"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"time"
)

// Document represents a stored source document with metadata.
type Document struct {
	ID        string    `json:"id" db:"id"`
	Title     string    `json:"title" db:"title"`
	Content   string    `json:"content" db:"content"`
	URL       string    `json:"url,omitempty" db:"url"`
	Metadata  Metadata  `json:"metadata,omitempty" db:"metadata"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt time.Time `json:"updatedAt" db:"updated_at"`
}

// DocumentChunk represents a chunk of a document, the unit of embedding and retrieval.
type DocumentChunk struct {
	ID         string    `json:"id" db:"id"`
	DocumentID string    `json:"documentId" db:"document_id"`
	Content    string    `json:"content" db:"content"`
	ChunkIndex int       `json:"index" db:"chunk_index"`
	Embedding  Vector    `json:"-" db:"embedding"`
	CreatedAt  time.Time `json:"createdAt" db:"created_at"`
}

// HasEmbedding reports whether the chunk carries a vector.
func (c *DocumentChunk) HasEmbedding() bool {
	return len(c.Embedding) > 0
}

// DocumentInput is the input for ingesting a document.
type DocumentInput struct {
	Title string `json:"title" validate:"required,notblank"`
	// Content is checked by the chunker: empty or whitespace-only text is ErrEmptyContent.
	Content  string                 `json:"content"`
	URL      string                 `json:"url,omitempty" validate:"omitempty,url"`
	Version  string                 `json:"version,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Metadata is free-form document metadata stored as a JSON object.
type Metadata map[string]interface{}

// Value implements driver.Valuer.
func (m Metadata) Value() (driver.Value, error) {
	if len(m) == 0 {
		return nil, nil
	}
	b, err := json.Marshal(map[string]interface{}(m))
	if err != nil {
		return nil, fmt.Errorf("failed to marshal metadata: %w", err)
	}
	return string(b), nil
}

// Scan implements sql.Scanner.
func (m *Metadata) Scan(src interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		*m = nil
		return nil
	case string:
		data = []byte(v)
	case []byte:
		data = v
	default:
		return fmt.Errorf("unsupported metadata type %T", src)
	}
	if len(data) == 0 {
		*m = nil
		return nil
	}
	var out map[string]interface{}
	if err := json.Unmarshal(data, &out); err != nil {
		return fmt.Errorf("failed to unmarshal metadata: %w", err)
	}
	*m = out
	return nil
}

// Vector is an embedding stored as a little-endian float32 BLOB. A nil Vector is stored as NULL.
type Vector []float32

// Value implements driver.Valuer.
func (v Vector) Value() (driver.Value, error) {
	if len(v) == 0 {
		return nil, nil
	}
	const size = 4
	out := make([]byte, len(v)*size)
	for i, f := range v {
		binary.LittleEndian.PutUint32(out[i*size:(i+1)*size], math.Float32bits(f))
	}
	return out, nil
}

// Scan implements sql.Scanner.
func (v *Vector) Scan(src interface{}) error {
	switch b := src.(type) {
	case nil:
		*v = nil
		return nil
	case []byte:
		if len(b)%4 != 0 {
			return fmt.Errorf("embedding blob length %d is not a multiple of 4", len(b))
		}
		out := make(Vector, len(b)/4)
		for i := range out {
			out[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[i*4 : (i+1)*4]))
		}
		*v = out
		return nil
	default:
		return fmt.Errorf("unsupported embedding type %T", src)
	}
}
