// internal/urdu/neutralize.go

// Package urdu rewrites customer-directed Urdu verb forms so the agent
// never assumes the caller's gender.
package urdu

import (
	"regexp"
	"strings"
)

// Replacement is one literal phrase substitution.
type Replacement struct {
	From string
	To   string
}

// Rules holds the rewrite tables. Stems followed directly by a suffix lose
// the suffix; Phrases are then replaced in order over the whole text.
type Rules struct {
	Stems    []string
	Suffixes []string
	Phrases  []Replacement
}

// DefaultRules returns the gendered future forms stripped from order text.
func DefaultRules() Rules {
	return Rules{
		Stems:    []string{"چاہیں", "کریں", "لیں", "پسند کریں"},
		Suffixes: []string{"گی", "گے"},
		Phrases: []Replacement{
			{From: "کریں گے", To: "کر دوں"},
			{From: "کریں گی", To: "کر دوں"},
			{From: "بتائیں گے", To: "بتا دوں"},
			{From: "بتائیں گی", To: "بتا دوں"},
			{From: "دیکھنا چاہوں گی", To: "دیکھنا"},
			{From: "دیکھنا چاہیں گے", To: "دیکھنا"},
		},
	}
}

// Neutralizer applies a compiled rule set. It is safe for concurrent use.
type Neutralizer struct {
	suffixPattern *regexp.Regexp
	phrases       []Replacement
}

// New compiles rules. Stems and suffixes are matched literally.
func New(rules Rules) *Neutralizer {
	n := &Neutralizer{phrases: append([]Replacement(nil), rules.Phrases...)}
	if len(rules.Stems) > 0 && len(rules.Suffixes) > 0 {
		n.suffixPattern = regexp.MustCompile("(" + alternation(rules.Stems) + ")(?:" + alternation(rules.Suffixes) + ")")
	}
	return n
}

func alternation(words []string) string {
	quoted := make([]string, len(words))
	for i, w := range words {
		quoted[i] = regexp.QuoteMeta(w)
	}
	return strings.Join(quoted, "|")
}

// Neutralize strips gendered suffixes first and then applies the phrase
// table, each entry over the output of the previous one.
func (n *Neutralizer) Neutralize(text string) string {
	if text == "" {
		return text
	}
	if n.suffixPattern != nil {
		text = n.suffixPattern.ReplaceAllString(text, "$1")
	}
	for _, r := range n.phrases {
		if r.From == "" {
			continue
		}
		text = strings.ReplaceAll(text, r.From, r.To)
	}
	return text
}

var defaultNeutralizer = New(DefaultRules())

// Neutralize applies DefaultRules to text.
func Neutralize(text string) string {
	return defaultNeutralizer.Neutralize(text)
}
