// internal/workers/voice/confirm-order/handler.go
package confirmorder

import (
	"context"
	"fmt"
	"time"

	"rehmat-agent/internal/common/logger"
	"rehmat-agent/internal/common/metrics"
	"rehmat-agent/internal/urdu"
	"rehmat-agent/pkg/registry"
)

const (
	TaskType = "confirm-order"
	ToolName = "confirm_order"

	ToolDescription  = "Call this ONLY after the customer explicitly confirms the full order summary (items, address, bill)."
	ConfirmedMessage = "Order confirmed. Say goodbye and wait for customer to end call."
)

// ToolParameters is the argument schema announced to the model.
func ToolParameters() map[string]interface{} {
	return map[string]interface{}{
		"type":     "object",
		"required": []string{"details"},
		"properties": map[string]interface{}{
			"details": map[string]interface{}{
				"type":        "string",
				"description": "The confirmed order: items, quantities, delivery address and total bill.",
			},
		},
	}
}

type Handler struct {
	config      *Config
	state       *OrderToolState
	neutralizer *urdu.Neutralizer
	logger      logger.Logger
	now         func() time.Time
}

func NewHandler(config *Config, state *OrderToolState, log logger.Logger) *Handler {
	return &Handler{
		config:      config,
		state:       state,
		neutralizer: urdu.New(config.Rules),
		logger:      log.WithFields(map[string]interface{}{"taskType": TaskType}),
		now:         time.Now,
	}
}

// Tool registers the handler as the confirm_order function.
func (h *Handler) Tool() registry.Tool {
	return registry.Tool{
		Name:        ToolName,
		Description: ToolDescription,
		Parameters:  ToolParameters(),
		Handler:     h.Handle,
	}
}

// Handle is the registry entry point. A missing details argument counts as
// an empty order text.
func (h *Handler) Handle(ctx context.Context, args map[string]interface{}) (string, error) {
	var input Input
	switch v := args["details"].(type) {
	case nil:
	case string:
		input.Details = v
	default:
		input.Details = fmt.Sprint(v)
	}

	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()

	output, err := h.execute(ctx, &input)
	if err != nil {
		return "", err
	}
	return output.Message, nil
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	details := h.neutralizer.Neutralize(input.Details)
	h.state.confirm(details, h.now().UTC())
	metrics.OrdersConfirmed.Inc()

	h.logger.Info("Order confirmed", map[string]interface{}{
		"details": details,
	})
	return &Output{Message: ConfirmedMessage}, nil
}

func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	return h.execute(ctx, input)
}
