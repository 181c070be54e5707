// internal/workers/voice/order-session/farewell_test.go
package ordersession

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"rehmat-agent/internal/common/config"
)

func TestFarewellDetector(t *testing.T) {
	d := NewFarewellDetector(config.DefaultFarewellPhrases())

	tests := []struct {
		text string
		want bool
	}{
		{"جی ٹھیک ہے، اللہ حافظ", true},
		{"خدا حافظ", true},
		{"بس شکریہ", true},
		{"ٹھیک ہے شکریہ آپ کا", true},
		{"OK Allah Hafiz", true},
		{"KHUDA HAFIZ bhai", true},
		{"دو کلو برفی", false},
		{"شکریہ", false},
		{"", false},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, d.Matches(tt.text))
		})
	}
}

func TestFarewellDetector_IgnoresBlankPhrases(t *testing.T) {
	d := NewFarewellDetector([]string{"", "  ", "Bye"})
	assert.True(t, d.Matches("ok bye"))
	assert.False(t, d.Matches("hello"))
}
