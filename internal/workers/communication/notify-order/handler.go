// internal/workers/communication/notify-order/handler.go
package notifyorder

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"text/template"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"
	"github.com/aws/aws-sdk-go-v2/service/sns"
	"github.com/google/uuid"

	appaws "rehmat-agent/internal/common/aws"
	apperrors "rehmat-agent/internal/common/errors"
	apphttp "rehmat-agent/internal/common/http"
	"rehmat-agent/internal/common/logger"
	"rehmat-agent/internal/common/metrics"
)

const (
	TaskType = "notify-order"
)

var (
	ErrInvalidInput = errors.New("INVALID_INPUT")
)

// Define interfaces for mocking
type SESService interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

type SNSService interface {
	Publish(ctx context.Context, params *sns.PublishInput, optFns ...func(*sns.Options)) (*sns.PublishOutput, error)
}

var (
	subjectTemplate = template.Must(template.New("subject").Parse(`New phone order ({{.Room}})`))
	bodyTemplate    = template.Must(template.New("body").Parse(`A customer confirmed an order on call {{.Room}}.
{{if .CallerIdentity}}Caller: {{.CallerIdentity}}
{{end}}Confirmed at: {{.ConfirmedAt}}

{{.OrderDetails}}
`))
)

type Handler struct {
	config    *Config
	logger    logger.Logger
	sesClient SESService
	snsClient SNSService
}

// NewHandler resolves AWS credentials and builds the SES and SNS clients.
func NewHandler(ctx context.Context, config *Config, httpClient *apphttp.Client, log logger.Logger) (*Handler, error) {
	var std *http.Client
	if httpClient != nil {
		std = httpClient.Standard()
	}
	awsCfg, err := appaws.LoadConfig(ctx, config.AWSRegion, std)
	if err != nil {
		return nil, err
	}
	return NewHandlerWithClients(config, appaws.NewSESClient(awsCfg), appaws.NewSNSClient(awsCfg), log), nil
}

func NewHandlerWithClients(config *Config, sesClient SESService, snsClient SNSService, log logger.Logger) *Handler {
	return &Handler{
		config:    config,
		logger:    log.WithFields(map[string]interface{}{"taskType": TaskType}),
		sesClient: sesClient,
		snsClient: snsClient,
	}
}

// Execute sends the confirmed order to the shop over every enabled channel.
// Channel failures are logged and reported in the status, never returned.
func (h *Handler) Execute(ctx context.Context, input *Input) (*Output, error) {
	ctx, cancel := context.WithTimeout(ctx, h.config.Timeout)
	defer cancel()
	return h.execute(ctx, input)
}

func (h *Handler) execute(ctx context.Context, input *Input) (*Output, error) {
	if input == nil || input.Room == "" {
		return nil, fmt.Errorf("%w: room is required", ErrInvalidInput)
	}

	sentAt := time.Now().UTC().Format(time.RFC3339)
	notificationID := uuid.New().String()
	log := h.logger.WithFields(map[string]interface{}{
		"room":           input.Room,
		"notificationId": notificationID,
	})

	subject, err := render(subjectTemplate, input)
	if err != nil {
		return nil, err
	}
	body, err := render(bodyTemplate, input)
	if err != nil {
		return nil, err
	}

	emailSent := false
	smsSent := false
	failed := false

	if h.config.EmailEnabled && h.config.ToEmail != "" {
		if err := h.sendEmail(ctx, h.config.ToEmail, subject, body); err != nil {
			failed = true
			h.recordFailure(log, ChannelEmail, err)
		} else {
			emailSent = true
			metrics.NotificationsSent.WithLabelValues(ChannelEmail, StatusSent).Inc()
		}
	}

	if h.config.SMSEnabled && h.config.PhoneNumber != "" {
		if err := h.sendSMS(ctx, h.config.PhoneNumber, smsText(input)); err != nil {
			failed = true
			h.recordFailure(log, ChannelSMS, err)
		} else {
			smsSent = true
			metrics.NotificationsSent.WithLabelValues(ChannelSMS, StatusSent).Inc()
		}
	}

	status := StatusDisabled
	switch {
	case failed:
		status = StatusFailed
	case emailSent || smsSent:
		status = StatusSent
	}

	log.Info("Order notification processed", map[string]interface{}{
		"status":    status,
		"emailSent": emailSent,
		"smsSent":   smsSent,
	})
	return &Output{
		NotificationID: notificationID,
		Status:         status,
		SentAt:         sentAt,
	}, nil
}

func (h *Handler) recordFailure(log logger.Logger, channel string, err error) {
	metrics.NotificationsSent.WithLabelValues(channel, StatusFailed).Inc()
	stdErr := apperrors.NewNotificationSendFailedError(channel, err)
	log.Error("Notification send failed", map[string]interface{}{
		"channel":   channel,
		"errorCode": stdErr.Code,
		"error":     err.Error(),
	})
}

func (h *Handler) sendEmail(ctx context.Context, to, subject, body string) error {
	_, err := h.sesClient.SendEmail(ctx, &ses.SendEmailInput{
		Destination: &types.Destination{
			ToAddresses: []string{to},
		},
		Message: &types.Message{
			Subject: &types.Content{Data: aws.String(subject), Charset: aws.String("UTF-8")},
			Body: &types.Body{
				Text: &types.Content{Data: aws.String(body), Charset: aws.String("UTF-8")},
			},
		},
		Source: aws.String(h.config.FromEmail),
	})
	return err
}

func (h *Handler) sendSMS(ctx context.Context, to, message string) error {
	_, err := h.snsClient.Publish(ctx, &sns.PublishInput{
		PhoneNumber: aws.String(to),
		Message:     aws.String(message),
	})
	return err
}

// smsText keeps the message within one concatenated SMS.
func smsText(input *Input) string {
	const limit = 600
	text := "Order " + input.Room + ": " + strings.TrimSpace(input.OrderDetails)
	if r := []rune(text); len(r) > limit {
		text = string(r[:limit-1]) + "…"
	}
	return text
}

func render(t *template.Template, input *Input) (string, error) {
	var sb strings.Builder
	if err := t.Execute(&sb, input); err != nil {
		return "", fmt.Errorf("render %s: %w", t.Name(), err)
	}
	return sb.String(), nil
}
