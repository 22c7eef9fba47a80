package services

import (
	"encoding/json"
	"fmt"
	"regexp"
	"sort"
	"strings"
)

// cellPromptTemplate is the per-cell instruction sent to the model. The
// placeholders are filled in by buildCellPrompt.
const cellPromptTemplate = `Generate a {format} value for column "{column_name}".

Rule: {column_rule}

CRITICAL: Return ONLY the raw value, nothing else. No explanations, no labels, no markdown, no formatting.
Perspective: {persona}

{words_to_avoid}

{return} :`

// cellSystemMessage frames every cell request.
const cellSystemMessage = "You are a synthetic data generator. You output exactly one value per request, with no commentary."

// personas bias successive rows toward different viewpoints so a run does
// not converge on one register.
var personas = []string{
	"Balanced/neutral",
	"Conservative",
	"Optimist/Maximalist",
	"Contrarian/Outlier",
	"Pessimist/Minimalist",
}

// PersonaManager rotates through the persona list, one persona per row.
type PersonaManager struct {
	current int
}

// NewPersonaManager creates a manager starting at the first persona.
func NewPersonaManager() *PersonaManager {
	return &PersonaManager{}
}

// Current returns the active persona without advancing.
func (p *PersonaManager) Current() string {
	return personas[p.current]
}

// CurrentAndRotate returns the active persona and advances to the next one.
func (p *PersonaManager) CurrentAndRotate() string {
	persona := personas[p.current]
	p.current = (p.current + 1) % len(personas)
	return persona
}

// englishStopWords are filtered out of frequency tracking so the avoid lists
// carry content words rather than connectives.
var englishStopWords = map[string]struct{}{
	"a": {}, "about": {}, "above": {}, "after": {}, "again": {}, "against": {},
	"all": {}, "am": {}, "an": {}, "and": {}, "any": {}, "are": {}, "as": {},
	"at": {}, "be": {}, "because": {}, "been": {}, "before": {}, "being": {},
	"below": {}, "between": {}, "both": {}, "but": {}, "by": {}, "can": {},
	"could": {}, "did": {}, "do": {}, "does": {}, "doing": {}, "down": {},
	"during": {}, "each": {}, "few": {}, "for": {}, "from": {}, "further": {},
	"had": {}, "has": {}, "have": {}, "having": {}, "he": {}, "her": {},
	"here": {}, "hers": {}, "him": {}, "his": {}, "how": {}, "i": {}, "if": {},
	"in": {}, "into": {}, "is": {}, "it": {}, "its": {}, "just": {}, "me": {},
	"more": {}, "most": {}, "my": {}, "no": {}, "nor": {}, "not": {}, "now": {},
	"of": {}, "off": {}, "on": {}, "once": {}, "only": {}, "or": {}, "other": {},
	"our": {}, "out": {}, "over": {}, "own": {}, "same": {}, "she": {},
	"should": {}, "so": {}, "some": {}, "such": {}, "than": {}, "that": {},
	"the": {}, "their": {}, "them": {}, "then": {}, "there": {}, "these": {},
	"they": {}, "this": {}, "those": {}, "through": {}, "to": {}, "too": {},
	"under": {}, "until": {}, "up": {}, "very": {}, "was": {}, "we": {},
	"were": {}, "what": {}, "when": {}, "where": {}, "which": {}, "while": {},
	"who": {}, "whom": {}, "why": {}, "will": {}, "with": {}, "would": {},
	"you": {}, "your": {}, "yours": {},
}

// WordFrequencyTracker counts words and 3-gram phrases per column across
// recent rows, feeding the per-prompt avoid lists. Callers reset it
// periodically so the avoid lists track a sliding window of output.
type WordFrequencyTracker struct {
	wordCounts   map[string]map[string]int
	phraseCounts map[string]map[string]int
}

// NewWordFrequencyTracker creates an empty tracker.
func NewWordFrequencyTracker() *WordFrequencyTracker {
	return &WordFrequencyTracker{
		wordCounts:   make(map[string]map[string]int),
		phraseCounts: make(map[string]map[string]int),
	}
}

// UpdateWordFrequency counts the content words of text under columnName.
// excludedKeys suppresses structural terms (e.g. JSON schema keys) that
// would otherwise dominate the counts.
func (t *WordFrequencyTracker) UpdateWordFrequency(columnName, text string, excludedKeys []string) {
	counts, ok := t.wordCounts[columnName]
	if !ok {
		counts = make(map[string]int)
		t.wordCounts[columnName] = counts
	}
	for _, word := range extractWords(text, excludedKeys) {
		counts[word]++
	}
}

// UpdatePhraseFrequency counts the 3-gram phrases of text under columnName.
func (t *WordFrequencyTracker) UpdatePhraseFrequency(columnName, text string) {
	counts, ok := t.phraseCounts[columnName]
	if !ok {
		counts = make(map[string]int)
		t.phraseCounts[columnName] = counts
	}
	for _, phrase := range extractPhrases(text, 3) {
		counts[phrase]++
	}
}

// TopWordsToAvoid returns up to 10 of the most frequent words seen for the
// column, most frequent first.
func (t *WordFrequencyTracker) TopWordsToAvoid(columnName string) []string {
	return topByCount(t.wordCounts[columnName], 10, 1)
}

// TopPhrasesToAvoid returns up to 5 phrases seen at least twice for the
// column, most frequent first.
func (t *WordFrequencyTracker) TopPhrasesToAvoid(columnName string) []string {
	return topByCount(t.phraseCounts[columnName], 5, 2)
}

// Reset clears all counts. Called on a fixed row interval so early rows do
// not permanently forbid common vocabulary.
func (t *WordFrequencyTracker) Reset() {
	t.wordCounts = make(map[string]map[string]int)
	t.phraseCounts = make(map[string]map[string]int)
}

func topByCount(counts map[string]int, limit, minCount int) []string {
	if len(counts) == 0 {
		return nil
	}

	type entry struct {
		text  string
		count int
	}
	entries := make([]entry, 0, len(counts))
	for text, count := range counts {
		if count >= minCount {
			entries = append(entries, entry{text, count})
		}
	}
	sort.Slice(entries, func(i, j int) bool {
		if entries[i].count != entries[j].count {
			return entries[i].count > entries[j].count
		}
		return entries[i].text < entries[j].text
	})

	if len(entries) > limit {
		entries = entries[:limit]
	}
	out := make([]string, len(entries))
	for i, e := range entries {
		out[i] = e.text
	}
	return out
}

func extractWords(text string, excludedKeys []string) []string {
	excluded := make(map[string]struct{}, len(excludedKeys))
	for _, k := range excludedKeys {
		excluded[strings.ToLower(k)] = struct{}{}
	}

	var words []string
	for _, raw := range strings.Fields(text) {
		word := trimNonAlphanumeric(strings.ToLower(raw))
		if word == "" || !isAlphabetic(word) {
			continue
		}
		if _, ok := englishStopWords[word]; ok {
			continue
		}
		if _, ok := excluded[word]; ok {
			continue
		}
		words = append(words, word)
	}
	return words
}

func extractPhrases(text string, nGramSize int) []string {
	var words []string
	for _, raw := range strings.Fields(text) {
		word := trimNonAlphanumeric(strings.ToLower(raw))
		if word != "" {
			words = append(words, word)
		}
	}

	if len(words) < nGramSize {
		return nil
	}

	phrases := make([]string, 0, len(words)-nGramSize+1)
	for i := 0; i+nGramSize <= len(words); i++ {
		phrases = append(phrases, strings.Join(words[i:i+nGramSize], " "))
	}
	return phrases
}

func trimNonAlphanumeric(s string) string {
	return strings.TrimFunc(s, func(r rune) bool {
		return !isAlphanumericRune(r)
	})
}

func isAlphanumericRune(r rune) bool {
	return (r >= 'a' && r <= 'z') || (r >= 'A' && r <= 'Z') || (r >= '0' && r <= '9')
}

func isAlphabetic(s string) bool {
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

var jsonKeyRegex = regexp.MustCompile(`"([^"]+)"\s*:`)

// extractJSONStructureKeys flattens the field names of a JSON type-detail
// schema. These keys are excluded from word frequency tracking for JSON
// columns since every generated value repeats them.
func extractJSONStructureKeys(typeDetails string) []string {
	var value any
	if err := json.Unmarshal([]byte(typeDetails), &value); err == nil {
		return flattenJSONKeys(value)
	}

	// Fall back to a regex scan when the schema is not strictly valid JSON.
	var keys []string
	for _, m := range jsonKeyRegex.FindAllStringSubmatch(typeDetails, -1) {
		keys = append(keys, strings.ToLower(m[1]))
	}
	return keys
}

func flattenJSONKeys(value any) []string {
	var keys []string
	switch v := value.(type) {
	case map[string]any:
		names := make([]string, 0, len(v))
		for name := range v {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			keys = append(keys, strings.ToLower(name))
			keys = append(keys, flattenJSONKeys(v[name])...)
		}
	case []any:
		for _, item := range v {
			keys = append(keys, flattenJSONKeys(item)...)
		}
	}
	return keys
}

// buildAvoidText renders the diversity section of a cell prompt, or an empty
// string when the tracker has nothing to avoid yet.
func buildAvoidText(words, phrases []string) string {
	if len(words) == 0 && len(phrases) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("\n\nFor diversity, avoid these:")
	if len(phrases) > 0 {
		b.WriteString(fmt.Sprintf("\n- Phrases: %s", strings.Join(phrases, ", ")))
	}
	if len(words) > 0 {
		b.WriteString(fmt.Sprintf("\n- Words: %s", strings.Join(words, ", ")))
	}
	return b.String()
}
