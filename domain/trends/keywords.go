package trends

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

var tokenPattern = regexp.MustCompile(`[\p{L}\p{N}]+`)

// stopwords is a small English list; anything heavier belongs in the
// model, not here.
var stopwords = map[string]struct{}{
	"a": {}, "an": {}, "and": {}, "are": {}, "as": {}, "at": {}, "be": {},
	"but": {}, "by": {}, "for": {}, "from": {}, "had": {}, "has": {},
	"have": {}, "he": {}, "her": {}, "his": {}, "in": {}, "is": {},
	"it": {}, "its": {}, "new": {}, "not": {}, "of": {}, "on": {},
	"or": {}, "said": {}, "says": {}, "she": {}, "that": {}, "the": {},
	"their": {}, "they": {}, "this": {}, "to": {}, "was": {}, "were": {},
	"will": {}, "with": {}, "after": {}, "more": {}, "over": {},
	"about": {}, "also": {}, "been": {}, "than": {}, "who": {},
}

// tokenize lowercases text and emits unigrams plus bigrams, dropping
// stopwords and single characters.
func tokenize(text string) []string {
	raw := tokenPattern.FindAllString(strings.ToLower(text), -1)

	var words []string
	for _, w := range raw {
		if len(w) < 2 {
			continue
		}
		if _, stop := stopwords[w]; stop {
			continue
		}
		words = append(words, w)
	}

	terms := make([]string, 0, 2*len(words))
	terms = append(terms, words...)
	for i := 0; i+1 < len(words); i++ {
		terms = append(terms, words[i]+" "+words[i+1])
	}
	return terms
}

// classKeywords computes class-TF-IDF keywords per cluster: each
// cluster is treated as one document, and terms that concentrate in a
// cluster relative to the corpus score highest. Returns topK terms per
// cluster index.
func classKeywords(clusters map[int][]string, topK int) map[int][]string {
	// Term frequency per cluster and across all clusters.
	clusterTF := make(map[int]map[string]int, len(clusters))
	corpusTF := make(map[string]int)
	totalTerms := 0

	for label, texts := range clusters {
		tf := make(map[string]int)
		for _, text := range texts {
			for _, term := range tokenize(text) {
				tf[term]++
				corpusTF[term]++
				totalTerms++
			}
		}
		clusterTF[label] = tf
	}

	if len(clusters) == 0 || totalTerms == 0 {
		return map[int][]string{}
	}

	avgTermsPerCluster := float64(totalTerms) / float64(len(clusters))

	out := make(map[int][]string, len(clusters))
	for label, tf := range clusterTF {
		type scored struct {
			term  string
			score float64
		}
		ranked := make([]scored, 0, len(tf))
		for term, count := range tf {
			idf := math.Log(1 + avgTermsPerCluster/float64(corpusTF[term]))
			ranked = append(ranked, scored{term: term, score: float64(count) * idf})
		}

		sort.Slice(ranked, func(i, j int) bool {
			if ranked[i].score != ranked[j].score {
				return ranked[i].score > ranked[j].score
			}
			return ranked[i].term < ranked[j].term
		})

		k := min(topK, len(ranked))
		keywords := make([]string, 0, k)
		for _, s := range ranked[:k] {
			keywords = append(keywords, s.term)
		}
		out[label] = keywords
	}
	return out
}

// clusterLabel joins the top two keywords into a display label.
func clusterLabel(keywords []string) string {
	if len(keywords) == 0 {
		return "untitled"
	}
	if len(keywords) == 1 {
		return keywords[0]
	}
	return keywords[0] + " / " + keywords[1]
}
