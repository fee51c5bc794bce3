package nlp

import (
	"strings"
	"unicode"
)

// Token is a single word of the input with its position and dependency role.
// Index is the token's position in the token stream, not a byte offset.
type Token struct {
	Text  string
	Index int
	// Dep is the dependency role. The only role the extractors care about is
	// "prep" (preposition); all other tokens carry an empty role.
	Dep string
}

// Phrase is a noun-phrase span over the token stream. Start and End are token
// indices ([Start, End)) and Text is the surface form joined with spaces.
type Phrase struct {
	Start int
	End   int
	Text  string
}

// Tagger produces a lightweight linguistic parse of a sentence: tokens with
// dependency roles and noun-phrase spans. Any compliant tagger implementation
// satisfies the contract; implementations must be safe for concurrent use.
type Tagger interface {
	Tokens(text string) []Token
	NounPhrases(text string) []Phrase
}

// heuristicTagger is the built-in Tagger. It has no model: tokens are
// whitespace/punctuation splits and noun phrases are maximal runs of
// determiner/noun-ish tokens. Good enough for short imperative commands;
// swap in a real tagger for anything richer.
type heuristicTagger struct{}

// NewHeuristicTagger returns the built-in lexicon-driven Tagger.
// The returned value is stateless and safe for concurrent use.
func NewHeuristicTagger() Tagger {
	return heuristicTagger{}
}

// prepositions are tokens tagged with the "prep" dependency role.
var prepositions = map[string]struct{}{
	"at": {}, "in": {}, "on": {}, "by": {}, "from": {}, "to": {},
	"with": {}, "for": {}, "about": {}, "after": {}, "before": {},
	"during": {}, "until": {},
}

// determiners may open or continue a noun phrase but never form one alone.
var determiners = map[string]struct{}{
	"a": {}, "an": {}, "the": {}, "this": {}, "that": {}, "these": {},
	"those": {}, "my": {}, "your": {}, "his": {}, "her": {}, "its": {},
	"our": {}, "their": {}, "some": {}, "any": {},
}

// verbLike tokens are command verbs and auxiliaries that terminate a noun
// phrase. The set deliberately mirrors the filler words stripped by the
// title normalizer plus the classifier's command vocabulary.
var verbLike = map[string]struct{}{
	"schedule": {}, "create": {}, "add": {}, "set": {}, "remind": {},
	"mark": {}, "complete": {}, "finish": {}, "show": {}, "list": {},
	"display": {}, "submit": {}, "update": {}, "do": {}, "make": {},
	"is": {}, "are": {}, "be": {}, "have": {}, "has": {}, "need": {},
	"want": {}, "please": {}, "me": {}, "i": {}, "we": {}, "you": {},
	"and": {}, "or": {}, "but": {},
}

// temporalWords are time expressions that must not leak into noun phrases;
// otherwise "2pm tomorrow" would win over a real location.
var temporalWords = map[string]struct{}{
	"today": {}, "tomorrow": {}, "tonight": {}, "yesterday": {},
	"next": {}, "last": {}, "week": {}, "month": {}, "year": {},
	"monday": {}, "tuesday": {}, "wednesday": {}, "thursday": {},
	"friday": {}, "saturday": {}, "sunday": {},
	"am": {}, "pm": {}, "a.m.": {}, "p.m.": {},
	"hour": {}, "hours": {}, "hr": {}, "hrs": {},
	"minute": {}, "minutes": {}, "min": {}, "mins": {},
	"day": {}, "days": {}, "noon": {}, "midnight": {},
}

// Tokens splits text into word tokens, tagging prepositions with the "prep"
// dependency role.
func (heuristicTagger) Tokens(text string) []Token {
	words := splitWords(text)
	tokens := make([]Token, 0, len(words))
	for i, w := range words {
		dep := ""
		if _, ok := prepositions[strings.ToLower(w)]; ok {
			dep = "prep"
		}
		tokens = append(tokens, Token{Text: w, Index: i, Dep: dep})
	}
	return tokens
}

// NounPhrases chunks the token stream into noun phrases: maximal runs of
// determiner or noun-ish tokens containing at least one noun-ish token.
// Determiners are kept inside the phrase text ("the park"), matching the
// behavior of full dependency taggers.
func (heuristicTagger) NounPhrases(text string) []Phrase {
	words := splitWords(text)
	var phrases []Phrase

	start := -1
	hasNoun := false
	flush := func(end int) {
		if start >= 0 && hasNoun {
			phrases = append(phrases, Phrase{
				Start: start,
				End:   end,
				Text:  strings.Join(words[start:end], " "),
			})
		}
		start = -1
		hasNoun = false
	}

	for i, w := range words {
		switch classify(w) {
		case classDet:
			if start < 0 {
				start = i
			}
		case classNoun:
			if start < 0 {
				start = i
			}
			hasNoun = true
		default:
			flush(i)
		}
	}
	flush(len(words))

	return phrases
}

type wordClass int

const (
	classOther wordClass = iota
	classDet
	classNoun
)

// classify buckets a token for the chunker. Anything that is not a
// preposition, determiner, verb, temporal word, or number is noun-ish.
func classify(w string) wordClass {
	lower := strings.ToLower(w)
	if _, ok := determiners[lower]; ok {
		return classDet
	}
	if _, ok := prepositions[lower]; ok {
		return classOther
	}
	if _, ok := verbLike[lower]; ok {
		return classOther
	}
	if _, ok := temporalWords[lower]; ok {
		return classOther
	}
	if containsDigit(lower) {
		return classOther
	}
	return classNoun
}

// splitWords tokenizes on anything that is not a letter, digit, period
// (keeps "a.m."), colon (keeps "2:30"), or apostrophe, then trims stray
// leading/trailing periods left by sentence punctuation.
func splitWords(text string) []string {
	raw := strings.FieldsFunc(text, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '.' && r != ':' && r != '\''
	})
	words := make([]string, 0, len(raw))
	for _, w := range raw {
		// "a.m." survives intact; "shop." becomes "shop".
		if !strings.Contains(strings.ToLower(w), ".m.") {
			w = strings.Trim(w, ".")
		}
		if w != "" {
			words = append(words, w)
		}
	}
	return words
}

func containsDigit(s string) bool {
	for _, r := range s {
		if unicode.IsDigit(r) {
			return true
		}
	}
	return false
}
