// internal/workers/voice/order-session/instructions.go
package ordersession

import (
	_ "embed"
	"fmt"
	"strings"
	"text/template"
)

//go:embed instructions.tmpl
var instructionsText string

var instructionsTemplate = template.Must(template.New("instructions").Parse(instructionsText))

// BuildInstructions embeds the rendered catalog in the assistant prompt.
func BuildInstructions(knowledge string) (string, error) {
	var sb strings.Builder
	if err := instructionsTemplate.Execute(&sb, struct{ Knowledge string }{knowledge}); err != nil {
		return "", fmt.Errorf("render instructions: %w", err)
	}
	return sb.String(), nil
}
