package services

import (
	"sort"
	"strings"

	"github.com/marketlens/marketlens-cli/internal/core/domain"
)

// Number of keywords per extracted topic and topics per answer.
const (
	topicKeywords = 5
	topicCount    = 3
)

// sentimentLexicon scores market-research vocabulary. Values are
// polarity weights in [-1, 1]; words absent from the lexicon are
// neutral.
var sentimentLexicon = map[string]float64{
	"growth": 0.8, "growing": 0.7, "grew": 0.6, "expand": 0.6,
	"expansion": 0.6, "increase": 0.5, "increased": 0.5, "rising": 0.5,
	"strong": 0.7, "strength": 0.6, "opportunity": 0.7, "opportunities": 0.7,
	"profit": 0.7, "profitable": 0.8, "gain": 0.6, "gains": 0.6,
	"success": 0.8, "successful": 0.8, "leading": 0.5, "leader": 0.5,
	"innovative": 0.6, "innovation": 0.5, "improve": 0.5, "improved": 0.5,
	"robust": 0.6, "positive": 0.7, "favorable": 0.6, "outperform": 0.7,
	"record": 0.4, "momentum": 0.5, "surge": 0.6, "surged": 0.6,
	"recover": 0.4, "recovery": 0.4, "upside": 0.5, "demand": 0.3,

	"decline": -0.6, "declining": -0.6, "declined": -0.6, "decrease": -0.5,
	"decreased": -0.5, "falling": -0.5, "fell": -0.5, "drop": -0.5,
	"weak": -0.6, "weakness": -0.6, "loss": -0.7, "losses": -0.7,
	"risk": -0.4, "risks": -0.4, "threat": -0.6, "threats": -0.6,
	"challenge": -0.3, "challenges": -0.3, "concern": -0.4, "concerns": -0.4,
	"negative": -0.7, "unfavorable": -0.6, "underperform": -0.7,
	"uncertainty": -0.5, "volatile": -0.4, "volatility": -0.4,
	"contraction": -0.6, "slowdown": -0.5, "recession": -0.8,
	"crisis": -0.8, "fail": -0.7, "failure": -0.7, "bankrupt": -0.9,
	"disruption": -0.3, "shortage": -0.5, "pressure": -0.3,
}

// stopwords excluded from topic keyword extraction.
var stopwords = map[string]bool{
	"a": true, "about": true, "above": true, "after": true, "again": true,
	"all": true, "also": true, "am": true, "an": true, "and": true,
	"any": true, "are": true, "as": true, "at": true, "be": true,
	"because": true, "been": true, "before": true, "being": true,
	"below": true, "between": true, "both": true, "but": true, "by": true,
	"can": true, "could": true, "did": true, "do": true, "does": true,
	"doing": true, "down": true, "during": true, "each": true, "few": true,
	"for": true, "from": true, "further": true, "had": true, "has": true,
	"have": true, "having": true, "he": true, "her": true, "here": true,
	"him": true, "his": true, "how": true, "i": true, "if": true,
	"in": true, "into": true, "is": true, "it": true, "its": true,
	"just": true, "may": true, "more": true, "most": true, "my": true,
	"no": true, "nor": true, "not": true, "now": true, "of": true,
	"off": true, "on": true, "once": true, "only": true, "or": true,
	"other": true, "our": true, "out": true, "over": true, "own": true,
	"same": true, "she": true, "should": true, "so": true, "some": true,
	"such": true, "than": true, "that": true, "the": true, "their": true,
	"them": true, "then": true, "there": true, "these": true, "they": true,
	"this": true, "those": true, "through": true, "to": true, "too": true,
	"under": true, "until": true, "up": true, "very": true, "was": true,
	"we": true, "were": true, "what": true, "when": true, "where": true,
	"which": true, "while": true, "who": true, "whom": true, "why": true,
	"will": true, "with": true, "would": true, "you": true, "your": true,
}

// AnalysisService computes lightweight text signals on answers and
// their sources: lexicon sentiment and frequency-based topic keywords.
// It holds no state and is safe for concurrent use.
type AnalysisService struct{}

// NewAnalysisService creates an analysis service.
func NewAnalysisService() *AnalysisService {
	return &AnalysisService{}
}

// Sentiment scores text polarity in [-1, 1] by averaging lexicon hits.
// Text with no scored words is neutral.
func (s *AnalysisService) Sentiment(text string) float64 {
	var sum float64
	var hits int
	for _, word := range tokenize(text) {
		if score, ok := sentimentLexicon[word]; ok {
			sum += score
			hits++
		}
	}
	if hits == 0 {
		return 0
	}
	return sum / float64(hits)
}

// Topics extracts up to three keyword clusters from the retrieved
// chunks, weighted by each cluster's share of scored terms.
func (s *AnalysisService) Topics(chunks []domain.RetrievedChunk) []domain.Topic {
	freq := make(map[string]int)
	total := 0
	for _, rc := range chunks {
		for _, word := range tokenize(rc.Chunk.Content) {
			if stopwords[word] || len(word) < 4 {
				continue
			}
			freq[word]++
			total++
		}
	}
	if total == 0 {
		return nil
	}

	type scored struct {
		word  string
		count int
	}
	ranked := make([]scored, 0, len(freq))
	for w, c := range freq {
		ranked = append(ranked, scored{w, c})
	}
	sort.Slice(ranked, func(i, j int) bool {
		if ranked[i].count != ranked[j].count {
			return ranked[i].count > ranked[j].count
		}
		return ranked[i].word < ranked[j].word
	})

	var topics []domain.Topic
	for t := 0; t < topicCount; t++ {
		lo := t * topicKeywords
		if lo >= len(ranked) {
			break
		}
		hi := lo + topicKeywords
		if hi > len(ranked) {
			hi = len(ranked)
		}
		keywords := make([]string, 0, hi-lo)
		weight := 0
		for _, s := range ranked[lo:hi] {
			keywords = append(keywords, s.word)
			weight += s.count
		}
		topics = append(topics, domain.Topic{
			Keywords: keywords,
			Weight:   float64(weight) / float64(total),
		})
	}
	return topics
}

// AnalyzeSources scores each retrieved chunk's sentiment individually.
func (s *AnalysisService) AnalyzeSources(chunks []domain.RetrievedChunk) []domain.SourceAnalysis {
	if len(chunks) == 0 {
		return nil
	}
	sources := make([]domain.SourceAnalysis, 0, len(chunks))
	for _, rc := range chunks {
		sources = append(sources, domain.SourceAnalysis{
			ChunkID:   rc.Chunk.ID,
			Sentiment: s.Sentiment(rc.Chunk.Content),
		})
	}
	return sources
}

// tokenize lowercases and splits text into letter-only words.
func tokenize(text string) []string {
	return strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !(r >= 'a' && r <= 'z') && !(r >= '0' && r <= '9')
	})
}
