package service

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dokupintar/dokubot-be/types"
)

func TestChunkEmptyInputYieldsSentinel(t *testing.T) {
	c := NewChunker(types.ChunkerConfig{})

	for _, text := range []string{"", "   ", "\n\n\t"} {
		chunks := c.Chunk("doc1", text)
		require.Len(t, chunks, 1)
		assert.Equal(t, "doc1-empty", chunks[0].ID)
		assert.Equal(t, "doc1", chunks[0].DocumentID)
		assert.Empty(t, chunks[0].Text)
	}
}

func TestChunkNonEmptyInputAlwaysYieldsChunk(t *testing.T) {
	c := NewChunker(types.ChunkerConfig{})

	// Shorter than the minimum chunk length: kept whole instead of dropped.
	chunks := c.Chunk("doc1", "short")
	require.Len(t, chunks, 1)
	assert.Equal(t, "short", chunks[0].Text)
	assert.Equal(t, 0, chunks[0].Start)
	assert.Equal(t, 5, chunks[0].End)
}

func TestChunkOffsetsAreValid(t *testing.T) {
	c := NewChunker(types.ChunkerConfig{ChunkSize: 120, Overlap: 20, MinLength: 10})

	var b strings.Builder
	for i := 0; i < 40; i++ {
		b.WriteString("baris teks biasa tanpa angka penting sama sekali\n")
	}
	text := b.String()

	chunks := c.Chunk("doc1", text)
	require.NotEmpty(t, chunks)
	for _, ch := range chunks {
		assert.Equal(t, "doc1", ch.DocumentID)
		assert.Less(t, ch.Start, ch.End, "chunk %s", ch.ID)
		assert.GreaterOrEqual(t, ch.Start, 0)
		assert.LessOrEqual(t, ch.End, len(text))
		assert.NotEmpty(t, ch.Text)
	}
}

func TestChunkIsDeterministic(t *testing.T) {
	c := NewChunker(types.ChunkerConfig{})
	text := "Informasi Pembayaran:\nPKB pokok: Rp 150.000\nDenda: Rp 15.000\nBayar di kasir Samsat Sewon Bantul\n"

	first := c.Chunk("doc1", text)
	second := c.Chunk("doc1", text)
	assert.Equal(t, first, second)
}

func TestChunkKeepsFeeTableTogether(t *testing.T) {
	c := NewChunker(types.ChunkerConfig{ChunkSize: 800, Overlap: 120, MinLength: 20})
	text := "Informasi Pembayaran:\nPKB pokok: Rp 150.000\nDenda: Rp 15.000\nBayar di kasir Samsat Sewon Bantul\n"

	chunks := c.Chunk("doc1", text)
	require.NotEmpty(t, chunks)

	var importantWithFee bool
	for _, ch := range chunks {
		if !ch.Important {
			continue
		}
		if strings.Contains(ch.Text, "Rp 15.000") && strings.Contains(ch.Text, "Denda") {
			importantWithFee = true
		}
	}
	assert.True(t, importantWithFee, "expected an important chunk keeping the fee line with its amount")
}

func TestOverlapTailRespectsWordBoundaries(t *testing.T) {
	assert.Equal(t, "foo", overlapTail("hello world foo", 5))
	assert.Equal(t, "", overlapTail("abcdefghij", 3), "no boundary in the tail region skips the overlap")
	assert.Equal(t, "abc", overlapTail("abc", 10), "short buffers are carried whole")
	assert.Equal(t, "", overlapTail("whatever", 0))
}

func TestIsImportantLine(t *testing.T) {
	cases := []struct {
		line string
		want bool
	}{
		{"PKB pokok: Rp 150.000", true},
		{"Denda keterlambatan", true},
		{"Bayar di kasir Samsat", true},
		{"2020 1500 300", true},
		{"Keterangan: lunas", true},
		{"DAFTAR TARIF", true},
		{"kalimat biasa tanpa sinyal apa pun", false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, isImportantLine(tc.line), "line %q", tc.line)
	}
}
