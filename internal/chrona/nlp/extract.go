package nlp

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	highPriorityRe     = regexp.MustCompile(`(?i)\b(high|important|urgent)\s+(priority|importance)\b`)
	highPriorityDashRe = regexp.MustCompile(`(?i)\b(high-priority)\b`)
	lowPriorityRe      = regexp.MustCompile(`(?i)\b(low|minor)\s+(priority|importance)\b`)
	lowPriorityDashRe  = regexp.MustCompile(`(?i)\b(low-priority)\b`)

	// taskIDPatterns are tried in order; the first numeric capture wins.
	taskIDPatterns = []*regexp.Regexp{
		regexp.MustCompile(`(?i)task\s+#?(\d+)`),
		regexp.MustCompile(`(?i)task\s+id\s+#?(\d+)`),
		regexp.MustCompile(`#(\d+)`),
	}
)

// ExtractLocation finds a location mention in text: the left-most noun phrase
// that follows an "at" or "in" preposition. Returns "" when no preposition
// is followed by a noun phrase.
func ExtractLocation(tagger Tagger, text string) string {
	tokens := tagger.Tokens(text)
	phrases := tagger.NounPhrases(text)

	best := -1
	bestText := ""
	for _, tok := range tokens {
		if tok.Dep != "prep" {
			continue
		}
		lower := strings.ToLower(tok.Text)
		if lower != "at" && lower != "in" {
			continue
		}
		for _, ph := range phrases {
			if ph.Start > tok.Index && (best < 0 || ph.Start < best) {
				best = ph.Start
				bestText = ph.Text
			}
		}
	}
	return bestText
}

// ExtractPriority returns "high", "low", or "" when no priority phrase is
// present. Callers apply the medium default.
func ExtractPriority(text string) string {
	if highPriorityRe.MatchString(text) || highPriorityDashRe.MatchString(text) {
		return "high"
	}
	if lowPriorityRe.MatchString(text) || lowPriorityDashRe.MatchString(text) {
		return "low"
	}
	return ""
}

// ExtractTaskID pulls a task identifier out of phrasings like "task 123",
// "task id #123", or "#123". Returns 0 when no identifier is found.
func ExtractTaskID(text string) int64 {
	for _, re := range taskIDPatterns {
		if m := re.FindStringSubmatch(text); m != nil {
			id, err := strconv.ParseInt(m[1], 10, 64)
			if err != nil {
				continue
			}
			return id
		}
	}
	return 0
}
