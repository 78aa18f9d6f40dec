package discovery

import "sort"

const minTopicTokenLen = 4

// stopwords are dropped before frequency ranking. Short tokens (<= 3 chars)
// are dropped regardless.
var stopwords = map[string]struct{}{
	"this": {}, "that": {}, "with": {}, "from": {}, "have": {}, "been": {},
	"will": {}, "would": {}, "should": {}, "could": {}, "about": {},
	"into": {}, "over": {}, "under": {}, "when": {}, "where": {}, "which": {},
	"what": {}, "their": {}, "there": {}, "these": {}, "those": {},
	"your": {}, "just": {}, "like": {}, "also": {}, "some": {}, "more": {},
	"than": {}, "then": {}, "them": {}, "they": {}, "does": {}, "doing": {},
	"done": {}, "need": {}, "needs": {}, "after": {}, "before": {},
	"because": {}, "while": {}, "each": {}, "other": {}, "only": {},
	"very": {}, "here": {}, "make": {}, "made": {}, "using": {}, "used": {},
}

// ExtractTopics frequency-ranks the tokens of the given texts and returns the
// top N. Ties break alphabetically so the result is deterministic.
func ExtractTopics(texts []string, topN int) []string {
	if topN <= 0 {
		topN = 5
	}
	counts := make(map[string]int)
	for _, text := range texts {
		for _, tok := range Tokenize(text) {
			if len(tok) < minTopicTokenLen {
				continue
			}
			if _, ok := stopwords[tok]; ok {
				continue
			}
			counts[tok]++
		}
	}
	if len(counts) == 0 {
		return []string{}
	}

	tokens := make([]string, 0, len(counts))
	for tok := range counts {
		tokens = append(tokens, tok)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if counts[tokens[i]] != counts[tokens[j]] {
			return counts[tokens[i]] > counts[tokens[j]]
		}
		return tokens[i] < tokens[j]
	})
	if len(tokens) > topN {
		tokens = tokens[:topN]
	}
	return tokens
}

// CoherenceScore blends edge density with average edge confidence. Groups of
// zero or one member have no possible pairs and score a full 1.0.
func CoherenceScore(memberCount, edgeCount int, avgConfidence float64) float64 {
	if memberCount <= 1 {
		return 1.0
	}
	maxPairs := float64(memberCount*(memberCount-1)) / 2.0
	density := float64(edgeCount) / maxPairs
	return clamp01(0.7*density + 0.3*clamp01(avgConfidence))
}
