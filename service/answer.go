package service

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/dokupintar/dokubot-be/types"
)

// NotFoundAnswer is the fixed reply for queries with no usable index state.
const NotFoundAnswer = "Maaf, tidak ditemukan informasi yang relevan dalam dokumen."

const maxExcerptLen = 300

var (
	feeAmountPattern = regexp.MustCompile(`(?i)\bdenda\b[\s:]*((rp\s*)?[0-9][0-9.,]*)`)
	titleLinePattern = regexp.MustCompile(`(?i)^(title|judul)\s*[:\-]\s*`)
	titleQueryWords  = []string{"judul", "title"}
	contextPattern   = regexp.MustCompile(`(?i)\b(pkb|denda|pokok|pajak|samsat|kasir)\b`)
	sentenceSplitter = regexp.MustCompile(`\n|\.\s+`)
)

// AnswerService turns ranked chunks into an answer: an ordered battery of
// domain extractors first, a generic excerpt answer as last resort.
type AnswerService struct {
	cfg types.RetrieverConfig
}

func NewAnswerService(cfg types.RetrieverConfig) *AnswerService {
	if cfg.MinRelevance == 0 {
		cfg.MinRelevance = types.DefaultRetrieverConfig.MinRelevance
	}
	return &AnswerService{cfg: cfg}
}

// extractor scans the whole ranked list for one kind of domain signal.
type extractor struct {
	name   string
	active func(s *AnswerService, q queryContext) bool
	run    func(s *AnswerService, q queryContext, ranked []types.Retrieved) *types.Answer
}

var extractors = []extractor{
	{
		name:   "fee-amount",
		active: func(s *AnswerService, q queryContext) bool { return len(q.hasAny(s.cfg.FeeVocabulary)) > 0 },
		run:    (*AnswerService).extractFeeAmount,
	},
	{
		name:   "generic-amount",
		active: func(s *AnswerService, q queryContext) bool { return len(q.hasAny(s.cfg.AmountQuestions)) > 0 },
		run:    (*AnswerService).extractAmount,
	},
	{
		name:   "location",
		active: func(s *AnswerService, q queryContext) bool { return len(q.hasAny(s.cfg.LocationTokens)) > 0 },
		run:    (*AnswerService).extractLocation,
	},
	{
		name:   "category-code",
		active: func(s *AnswerService, q queryContext) bool { return len(q.hasAny(s.cfg.DomainKeywords)) > 0 },
		run:    (*AnswerService).extractCategoryCode,
	},
	{
		name: "title",
		active: func(_ *AnswerService, q queryContext) bool {
			return len(q.hasAny(titleQueryWords)) > 0
		},
		run: (*AnswerService).extractTitle,
	},
}

// Synthesize builds the final answer for a query from ranked retrieval
// results. Below the relevance floor it returns the fixed not-found reply
// and never an error: a broken index must not bubble an exception to the
// chat surface.
func (s *AnswerService) Synthesize(query string, ranked []types.Retrieved) types.Answer {
	if len(ranked) == 0 || ranked[0].Score < s.cfg.MinRelevance {
		return types.Answer{Answer: NotFoundAnswer, Sources: []types.Source{}}
	}

	q := newQueryContext(query)
	for _, ex := range extractors {
		if !ex.active(s, q) {
			continue
		}
		if ans := ex.run(s, q, ranked); ans != nil {
			return *ans
		}
	}

	// Generic fallback: quote the top excerpts verbatim.
	var pieces []string
	for _, r := range ranked {
		pieces = append(pieces, "• "+strings.TrimSpace(r.Chunk.Text))
		if len(pieces) >= 3 {
			break
		}
	}
	answer := "Berikut kutipan yang paling relevan berdasarkan pertanyaan Anda:\n" + strings.Join(pieces, "\n")
	return types.Answer{Answer: answer, Sources: sourcesFrom(ranked, 6)}
}

func (s *AnswerService) extractFeeAmount(q queryContext, ranked []types.Retrieved) *types.Answer {
	feeTokens := q.hasAny(s.cfg.FeeVocabulary)
	for _, r := range ranked {
		textLower := strings.ToLower(r.Chunk.Text)
		matched := false
		for _, tok := range feeTokens {
			if strings.Contains(textLower, tok) {
				matched = true
				break
			}
		}
		if !matched {
			continue
		}
		if m := feeAmountPattern.FindString(r.Chunk.Text); m != "" {
			return &types.Answer{
				Answer:  "Berdasarkan dokumen, " + strings.TrimSpace(m),
				Sources: sourcesFrom([]types.Retrieved{r}, 1),
			}
		}
		// No "<fee>: <amount>" pattern; return the fee-related lines.
		lines := filterLines(r.Chunk.Text, func(line string) bool {
			lower := strings.ToLower(line)
			for _, tok := range feeTokens {
				if strings.Contains(lower, tok) {
					return true
				}
			}
			return moneyPattern.MatchString(line) || numberPattern.MatchString(line)
		})
		if len(lines) > 0 {
			return &types.Answer{
				Answer:  "Informasi denda yang ditemukan:\n" + strings.Join(lines, "\n"),
				Sources: sourcesFrom([]types.Retrieved{r}, 1),
			}
		}
	}
	return nil
}

func (s *AnswerService) extractAmount(q queryContext, ranked []types.Retrieved) *types.Answer {
	for _, r := range ranked {
		amounts := moneyPattern.FindAllString(r.Chunk.Text, -1)
		amounts = append(amounts, unitAmountPattern.FindAllString(r.Chunk.Text, -1)...)
		if len(amounts) == 0 || !contextPattern.MatchString(r.Chunk.Text) {
			continue
		}
		if len(amounts) > 3 {
			amounts = amounts[:3]
		}
		var b strings.Builder
		b.WriteString("Berdasarkan dokumen, ditemukan informasi:")
		for _, amount := range amounts {
			b.WriteString("\n• ")
			b.WriteString(amount)
		}
		return &types.Answer{Answer: b.String(), Sources: sourcesFrom([]types.Retrieved{r}, 1)}
	}
	return nil
}

func (s *AnswerService) extractLocation(q queryContext, ranked []types.Retrieved) *types.Answer {
	wanted := q.hasAny(s.cfg.LocationTokens)
	for _, r := range ranked {
		textLower := strings.ToLower(r.Chunk.Text)
		var found []string
		for _, loc := range wanted {
			if strings.Contains(textLower, loc) {
				found = append(found, loc)
			}
		}
		if len(found) == 0 {
			continue
		}
		lines := filterLines(r.Chunk.Text, func(line string) bool {
			lower := strings.ToLower(line)
			for _, loc := range found {
				if strings.Contains(lower, loc) {
					return true
				}
			}
			return moneyPattern.MatchString(line) || numberPattern.MatchString(line)
		})
		if len(lines) > 5 {
			lines = lines[:5]
		}
		if len(lines) > 0 {
			return &types.Answer{
				Answer:  fmt.Sprintf("Informasi terkait %s:\n%s", strings.Join(found, ", "), strings.Join(lines, "\n")),
				Sources: sourcesFrom([]types.Retrieved{r}, 1),
			}
		}
	}
	return nil
}

func (s *AnswerService) extractCategoryCode(q queryContext, ranked []types.Retrieved) *types.Answer {
	codes := q.hasAny(s.cfg.DomainKeywords)
	for _, r := range ranked {
		textLower := strings.ToLower(r.Chunk.Text)
		var code string
		for _, c := range codes {
			if strings.Contains(textLower, c) {
				code = c
				break
			}
		}
		if code == "" {
			continue
		}
		lines := filterLines(r.Chunk.Text, func(line string) bool {
			return strings.Contains(strings.ToLower(line), code) ||
				moneyPattern.MatchString(line) ||
				numberPattern.MatchString(line)
		})
		if len(lines) > 5 {
			lines = lines[:5]
		}
		if len(lines) > 0 {
			return &types.Answer{
				Answer:  fmt.Sprintf("Informasi %s yang ditemukan:\n%s", strings.ToUpper(code), strings.Join(lines, "\n")),
				Sources: sourcesFrom([]types.Retrieved{r}, 1),
			}
		}
	}
	return nil
}

func (s *AnswerService) extractTitle(q queryContext, ranked []types.Retrieved) *types.Answer {
	limit := len(ranked)
	if limit > 4 {
		limit = 4
	}
	for _, r := range ranked[:limit] {
		lines := splitSentencesOrLines(r.Chunk.Text)
		candidate := ""
		for _, line := range lines {
			if titleLinePattern.MatchString(line) {
				candidate = line
				break
			}
		}
		if candidate == "" && len(lines) > 0 {
			candidate = lines[0]
		}
		if len(candidate) >= 8 && len(candidate) <= 220 {
			cleaned := titleLinePattern.ReplaceAllString(candidate, "")
			return &types.Answer{
				Answer:  fmt.Sprintf("Judul yang terdeteksi (heuristik): %q", cleaned),
				Sources: sourcesFrom(ranked, 3),
			}
		}
	}
	return nil
}

// SourcesForAnswer exposes the source citations used by the generic
// fallback, for callers that phrase the answer elsewhere.
func SourcesForAnswer(ranked []types.Retrieved) []types.Source {
	return sourcesFrom(ranked, 6)
}

func sourcesFrom(ranked []types.Retrieved, limit int) []types.Source {
	if limit > len(ranked) {
		limit = len(ranked)
	}
	sources := make([]types.Source, 0, limit)
	for _, r := range ranked[:limit] {
		sources = append(sources, types.Source{
			DocumentID: r.Chunk.DocumentID,
			Excerpt:    excerpt(r.Chunk.Text, maxExcerptLen),
			Range:      [2]int{r.Chunk.Start, r.Chunk.End},
		})
	}
	return sources
}

func excerpt(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}

func filterLines(text string, keep func(line string) bool) []string {
	var out []string
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(line)
		if line != "" && keep(line) {
			out = append(out, line)
		}
	}
	return out
}

func splitSentencesOrLines(text string) []string {
	parts := sentenceSplitter.Split(text, -1)
	var out []string
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
