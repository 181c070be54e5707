// internal/workers/voice/order-session/farewell.go
package ordersession

import "strings"

// FarewellDetector reports whether an utterance contains a goodbye phrase.
// Matching is a case-insensitive substring test, so a phrase quoted inside
// a longer sentence also matches.
type FarewellDetector struct {
	phrases []string
}

func NewFarewellDetector(phrases []string) *FarewellDetector {
	d := &FarewellDetector{}
	for _, p := range phrases {
		if p = strings.ToLower(strings.TrimSpace(p)); p != "" {
			d.phrases = append(d.phrases, p)
		}
	}
	return d
}

func (d *FarewellDetector) Matches(text string) bool {
	text = strings.ToLower(text)
	for _, p := range d.phrases {
		if strings.Contains(text, p) {
			return true
		}
	}
	return false
}
