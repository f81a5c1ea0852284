package types

// Retrieved pairs a chunk with its blended relevance score.
type Retrieved struct {
	Chunk Chunk   `json:"chunk"`
	Score float64 `json:"score"`
}

// Source points back at the evidence for an answer.
type Source struct {
	DocumentID string `json:"document_id"`
	Excerpt    string `json:"excerpt"`
	Range      [2]int `json:"range"`
}

// Answer is the synthesized result for a query.
type Answer struct {
	Answer  string   `json:"answer"`
	Sources []Source `json:"sources"`
}

// RetrieverConfig carries the heuristic vocabulary used for score boosting.
// Defaults match the Indonesian tax-document corpus the assistant was
// built for; deployments can override per domain.
type RetrieverConfig struct {
	TopK             int
	FeeVocabulary    []string // penalty/fee tokens, e.g. "denda"
	DomainKeywords   []string // named categories, e.g. the PKB vehicle tax
	LocationTokens   []string // administrative locations and offices
	AmountQuestions  []string // query words implying an amount question
	MinRelevance     float64  // floor below which the synthesizer gives up
	DedupBucketChars int      // coarse position bucket width for dedup
}

var DefaultRetrieverConfig = RetrieverConfig{
	TopK:             6,
	FeeVocabulary:    []string{"denda"},
	DomainKeywords:   []string{"pkb"},
	LocationTokens:   []string{"kasir", "samsat", "sewon", "bantul", "yogyakarta", "jogja", "kantor"},
	AmountQuestions:  []string{"berapa", "jumlah", "total", "harga", "biaya", "nilai"},
	MinRelevance:     0.1,
	DedupBucketChars: 200,
}
