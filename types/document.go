package types

// Chunk is the unit of embedding and retrieval: a bounded slice of a
// document's extracted text. Start/End are character offsets into the
// original text, so the id derived from them is stable across re-ingestion.
type Chunk struct {
	ID         string `json:"id" bson:"_id"`
	DocumentID string `json:"document_id" bson:"document_id"`
	Start      int    `json:"start" bson:"start"`
	End        int    `json:"end" bson:"end"`
	Text       string `json:"text" bson:"text"`
	// Important marks supplementary context-expansion chunks emitted around
	// financial/tabular/label lines. They may overlap window chunks.
	Important bool `json:"important,omitempty" bson:"important,omitempty"`
}

// DocumentMeta holds optional parser-supplied attributes for a document,
// at most one record per document id.
type DocumentMeta struct {
	DocumentID string            `json:"document_id" bson:"_id"`
	Title      string            `json:"title,omitempty" bson:"title,omitempty"`
	Author     string            `json:"author,omitempty" bson:"author,omitempty"`
	Source     string            `json:"source,omitempty" bson:"source,omitempty"`
	Custom     map[string]string `json:"custom,omitempty" bson:"custom,omitempty"`
	CreatedAt  int64             `json:"created_at,omitempty" bson:"created_at,omitempty"`
}

// ChunkerConfig contains configuration options for text chunking
type ChunkerConfig struct {
	ChunkSize int // Maximum size for text chunks, in characters
	Overlap   int // Size of overlap seeded into the next chunk
	MinLength int // Chunks shorter than this are discarded
}

// IndexConfig bounds the ingestion pipeline
type IndexConfig struct {
	MaxChunks int // Hard cap on chunks embedded per document
	BatchSize int // Embedding request batch size
}

var DefaultChunkerConfig = ChunkerConfig{
	ChunkSize: 800,
	Overlap:   120,
	MinLength: 40,
}

var DefaultIndexConfig = IndexConfig{
	MaxChunks: 1200,
	BatchSize: 4,
}

// IndexStats summarizes one ingestion run.
type IndexStats struct {
	Chunks  int `json:"chunks"`  // chunks produced by the chunker
	Indexed int `json:"indexed"` // chunks stored with a vector
	Dropped int `json:"dropped"` // chunks lost to the cap or failed batches
}

// ProgressFunc reports ingestion progress, done out of total chunks.
type ProgressFunc func(done, total int)
