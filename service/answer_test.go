package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokupintar/dokubot-be/types"
)

func ranked(score float64, chunks ...types.Chunk) []types.Retrieved {
	out := make([]types.Retrieved, 0, len(chunks))
	for _, ch := range chunks {
		out = append(out, types.Retrieved{Chunk: ch, Score: score})
		score -= 0.05
	}
	return out
}

func TestSynthesizeNotFoundForEmptyResults(t *testing.T) {
	s := NewAnswerService(types.DefaultRetrieverConfig)

	answer := s.Synthesize("berapa denda pkb", nil)
	assert.Equal(t, NotFoundAnswer, answer.Answer)
	require.NotNil(t, answer.Sources)
	assert.Empty(t, answer.Sources)
}

func TestSynthesizeNotFoundBelowRelevanceFloor(t *testing.T) {
	s := NewAnswerService(types.DefaultRetrieverConfig)
	results := ranked(0.05, types.Chunk{ID: "doc1-0-20", DocumentID: "doc1", Text: "Denda: Rp 15.000"})

	answer := s.Synthesize("berapa denda pkb", results)
	assert.Equal(t, NotFoundAnswer, answer.Answer)
	assert.Empty(t, answer.Sources)
}

func TestSynthesizeExtractsFeeAmount(t *testing.T) {
	s := NewAnswerService(types.DefaultRetrieverConfig)
	results := ranked(0.9,
		types.Chunk{ID: "doc1-0-60", DocumentID: "doc1", Start: 0, End: 60, Text: "PKB pokok: Rp 150.000 Denda: Rp 15.000 dibayar di kasir"},
	)

	answer := s.Synthesize("berapa denda pkb", results)
	assert.Contains(t, answer.Answer, "Rp 15.000")
	assert.NotContains(t, answer.Answer, NotFoundAnswer)
	require.Len(t, answer.Sources, 1)
	assert.Equal(t, "doc1", answer.Sources[0].DocumentID)
	assert.Equal(t, [2]int{0, 60}, answer.Sources[0].Range)
}

func TestSynthesizeExtractsLocation(t *testing.T) {
	s := NewAnswerService(types.DefaultRetrieverConfig)
	results := ranked(0.8,
		types.Chunk{ID: "doc1-0-80", DocumentID: "doc1", Text: "Pembayaran dilakukan di kasir Samsat Sewon\nLayanan tutup hari Minggu"},
	)

	answer := s.Synthesize("dimana kasir samsat", results)
	assert.Contains(t, strings.ToLower(answer.Answer), "kasir")
	assert.NotEqual(t, NotFoundAnswer, answer.Answer)
}

func TestSynthesizeExtractsTitle(t *testing.T) {
	s := NewAnswerService(types.DefaultRetrieverConfig)
	results := ranked(0.7,
		types.Chunk{ID: "doc1-0-80", DocumentID: "doc1", Text: "Judul: Panduan Pajak Kendaraan Bermotor\nisi dokumen lainnya"},
	)

	answer := s.Synthesize("apa judul dokumen ini", results)
	assert.Contains(t, answer.Answer, "Panduan Pajak Kendaraan Bermotor")
}

func TestSynthesizeFallsBackToExcerpts(t *testing.T) {
	s := NewAnswerService(types.DefaultRetrieverConfig)
	results := ranked(0.6,
		types.Chunk{ID: "doc1-0-40", DocumentID: "doc1", Text: "kalimat pertama tentang prosedur"},
		types.Chunk{ID: "doc1-40-80", DocumentID: "doc1", Text: "kalimat kedua tentang persyaratan"},
		types.Chunk{ID: "doc1-80-120", DocumentID: "doc1", Text: "kalimat ketiga tentang jadwal"},
		types.Chunk{ID: "doc1-120-160", DocumentID: "doc1", Text: "kalimat keempat tidak dikutip"},
	)

	answer := s.Synthesize("apa isi dokumen", results)
	assert.Contains(t, answer.Answer, "kalimat pertama")
	assert.Contains(t, answer.Answer, "kalimat ketiga")
	assert.NotContains(t, answer.Answer, "kalimat keempat", "fallback quotes at most three excerpts")
	assert.Len(t, answer.Sources, 4)
}

func TestSourcesAreTruncatedExcerpts(t *testing.T) {
	s := NewAnswerService(types.DefaultRetrieverConfig)
	long := strings.Repeat("kata ", 200)
	results := ranked(0.6, types.Chunk{ID: "doc1-0-999", DocumentID: "doc1", Start: 0, End: 999, Text: long})

	answer := s.Synthesize("apa isi dokumen", results)
	require.NotEmpty(t, answer.Sources)
	assert.LessOrEqual(t, len(answer.Sources[0].Excerpt), maxExcerptLen)
}
