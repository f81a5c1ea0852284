package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dokupintar/dokubot-be/types"
)

var (
	whitespacePattern = regexp.MustCompile(`\s+`)
	moneyPattern      = regexp.MustCompile(`(?i)rp\s*[0-9][0-9.,]*`)
	unitAmountPattern = regexp.MustCompile(`(?i)[0-9][0-9.,]*\s*(rupiah|rb|juta|miliar)`)
	numberPattern     = regexp.MustCompile(`[0-9][0-9.,]*`)
	adminTermPattern  = regexp.MustCompile(`(?i)\b(kasir|samsat|kantor|pkb|denda)\b`)
	locationPattern   = regexp.MustCompile(`(?i)\b(kasir|samsat|kantor|sewon|bantul|yogyakarta|jogja)\b`)
	pkbPattern        = regexp.MustCompile(`(?i)\bpkb\b`)
	dendaPattern      = regexp.MustCompile(`(?i)\bdenda\b`)
)

// lineRule tags a pattern that marks a line as worth keeping intact. Rules
// live in a table so each one is testable outside the chunking loop.
type lineRule struct {
	name  string
	match func(line string) bool
}

var importantLineRules = []lineRule{
	{"money", func(l string) bool { return moneyPattern.MatchString(l) }},
	{"unit-amount", func(l string) bool { return unitAmountPattern.MatchString(l) }},
	{"pkb", func(l string) bool { return pkbPattern.MatchString(l) }},
	{"denda", func(l string) bool { return dendaPattern.MatchString(l) }},
	{"location", func(l string) bool { return locationPattern.MatchString(l) }},
	{"table-row", func(l string) bool { return len(numberPattern.FindAllString(l, -1)) >= 2 }},
	{"label", func(l string) bool { return strings.Contains(l, ":") }},
	{"header", isHeaderLine},
}

func isHeaderLine(line string) bool {
	trimmed := strings.TrimSpace(line)
	if len(trimmed) == 0 || len(trimmed) >= 50 {
		return false
	}
	hasLetter := false
	for _, r := range trimmed {
		switch {
		case r >= 'A' && r <= 'Z':
			hasLetter = true
		case r == ' ' || (r >= '0' && r <= '9'):
		default:
			return false
		}
	}
	return hasLetter
}

func isImportantLine(line string) bool {
	for _, rule := range importantLineRules {
		if rule.match(line) {
			return true
		}
	}
	return false
}

// isRelatedLine reports whether line continues the structure started by
// ref: both monetary, both administrative, both numeric (table rows), both
// labels, or both short enough to be part of one block.
func isRelatedLine(line, ref string) bool {
	if moneyPattern.MatchString(line) && moneyPattern.MatchString(ref) {
		return true
	}
	if adminTermPattern.MatchString(line) && adminTermPattern.MatchString(ref) {
		return true
	}
	if numberPattern.MatchString(line) && numberPattern.MatchString(ref) {
		return true
	}
	if strings.Contains(line, ":") && strings.Contains(ref, ":") {
		return true
	}
	return len(line) < 100 && len(ref) < 100
}

// Chunker splits extracted document text into overlapping, bounded-size
// segments, keeping financial/tabular/label lines intact by emitting
// supplementary "important" chunks with up to two related follow lines.
type Chunker struct {
	chunkSize int
	overlap   int
	minLength int
}

func NewChunker(cfg types.ChunkerConfig) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = types.DefaultChunkerConfig.ChunkSize
	}
	if cfg.Overlap < 0 || cfg.Overlap >= cfg.ChunkSize {
		cfg.Overlap = types.DefaultChunkerConfig.Overlap
	}
	if cfg.MinLength <= 0 {
		cfg.MinLength = types.DefaultChunkerConfig.MinLength
	}
	return &Chunker{
		chunkSize: cfg.ChunkSize,
		overlap:   cfg.Overlap,
		minLength: cfg.MinLength,
	}
}

// Chunk never fails on malformed text. The worst case for empty input is a
// single sentinel chunk with empty text; any non-empty input yields at
// least one chunk.
func (c *Chunker) Chunk(documentID, text string) []types.Chunk {
	if strings.TrimSpace(text) == "" {
		return []types.Chunk{{
			ID:         documentID + "-empty",
			DocumentID: documentID,
		}}
	}

	chunks := c.structuralChunks(documentID, text)
	if len(chunks) == 0 {
		chunks = c.slidingWindow(documentID, text)
	}
	if len(chunks) == 0 {
		// Pathological input (e.g. shorter than minLength): keep it whole
		// so the document is still searchable.
		chunks = []types.Chunk{{
			ID:         fmt.Sprintf("%s-0-%d", documentID, len(text)),
			DocumentID: documentID,
			Start:      0,
			End:        len(text),
			Text:       normalizeWhitespace(text),
		}}
	}
	return chunks
}

type offsetLine struct {
	text  string
	start int
}

func splitNonBlankLines(text string) []offsetLine {
	var lines []offsetLine
	start := 0
	for i := 0; i <= len(text); i++ {
		if i == len(text) || text[i] == '\n' {
			if strings.TrimSpace(text[start:i]) != "" {
				lines = append(lines, offsetLine{text: text[start:i], start: start})
			}
			start = i + 1
		}
	}
	return lines
}

func (c *Chunker) structuralChunks(documentID, text string) []types.Chunk {
	lines := splitNonBlankLines(text)
	if len(lines) == 0 {
		return nil
	}

	var chunks []types.Chunk
	current := ""
	currentStart := 0
	importantIdx := 0

	flush := func() {
		if ch, ok := c.makeChunk(documentID, current, currentStart, len(text)); ok {
			chunks = append(chunks, ch)
		}
	}

	for i, line := range lines {
		withNewline := line.text + "\n"

		if len(current)+len(withNewline) > c.chunkSize && len(current) > 0 {
			flush()
			tail := overlapTail(current, c.overlap)
			current = tail + withNewline
			currentStart = line.start - len(tail)
			if currentStart < 0 {
				currentStart = 0
			}
		} else {
			if current == "" {
				currentStart = line.start
			}
			current += withNewline
		}

		if !isImportantLine(line.text) {
			continue
		}
		// Attach up to two immediately following related lines and emit
		// the group as a supplementary chunk.
		last := line
		group := line.text
		for j := i + 1; j < len(lines) && j <= i+2; j++ {
			if !isRelatedLine(lines[j].text, line.text) {
				break
			}
			group += "\n" + lines[j].text
			last = lines[j]
		}
		trimmed := normalizeWhitespace(group)
		if len(trimmed) >= c.minLength && len(trimmed) <= c.chunkSize {
			start := line.start
			end := last.start + len(last.text)
			chunks = append(chunks, types.Chunk{
				ID:         fmt.Sprintf("%s-important-%d-%d-%d", documentID, importantIdx, start, end),
				DocumentID: documentID,
				Start:      start,
				End:        end,
				Text:       trimmed,
				Important:  true,
			})
			importantIdx++
		}
	}

	if len(current) > 0 {
		flush()
	}
	return chunks
}

func (c *Chunker) makeChunk(documentID, buf string, start, textLen int) (types.Chunk, bool) {
	trimmed := normalizeWhitespace(buf)
	if len(trimmed) < c.minLength {
		return types.Chunk{}, false
	}
	end := start + len(buf)
	if end > textLen {
		end = textLen
	}
	if start >= end {
		return types.Chunk{}, false
	}
	return types.Chunk{
		ID:         fmt.Sprintf("%s-%d-%d", documentID, start, end),
		DocumentID: documentID,
		Start:      start,
		End:        end,
		Text:       trimmed,
	}, true
}

// slidingWindow is the structure-free fallback: fixed windows with plain
// character overlap.
func (c *Chunker) slidingWindow(documentID, text string) []types.Chunk {
	var chunks []types.Chunk
	i := 0
	for i < len(text) {
		start := i
		end := start + c.chunkSize
		if end > len(text) {
			end = len(text)
		}
		trimmed := normalizeWhitespace(text[start:end])
		if len(trimmed) >= c.minLength {
			chunks = append(chunks, types.Chunk{
				ID:         fmt.Sprintf("%s-%d-%d", documentID, start, end),
				DocumentID: documentID,
				Start:      start,
				End:        end,
				Text:       trimmed,
			})
		}
		if end == len(text) {
			break
		}
		next := end - c.overlap
		if next <= start {
			// Ensure progress when overlap >= window advance
			next = end
		}
		i = next
	}
	return chunks
}

// overlapTail returns the last ~overlap characters of buf, cut at a word or
// line boundary. It never cuts mid-word: when the tail region holds a
// single unbroken token the overlap is skipped entirely.
func overlapTail(buf string, overlap int) string {
	if overlap <= 0 {
		return ""
	}
	if len(buf) <= overlap {
		return buf
	}
	for i := len(buf) - overlap; i < len(buf); i++ {
		if buf[i] == ' ' || buf[i] == '\n' {
			return buf[i+1:]
		}
	}
	return ""
}

func normalizeWhitespace(s string) string {
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(s, " "))
}
