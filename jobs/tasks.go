package jobs

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/smtp"

	"github.com/hibiken/asynq"
)

const (
	// QueueDefault is the default queue name for background jobs.
	QueueDefault = "default"
	// TaskTypeSendEmail is the task type for sending transactional emails.
	TaskTypeSendEmail = "mail:send"
	// TaskTypeSummarizeSolution generates an AI summary for a solution.
	TaskTypeSummarizeSolution = "solution:summarize"
	// TaskTypeShareLinkPurge disables share links that expired long ago.
	TaskTypeShareLinkPurge = "sharelink:purge"
)

// SendEmailPayload describes the information required to send an email.
type SendEmailPayload struct {
	To      string `json:"to"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
}

// NewSendEmailTask constructs an Asynq task.
func NewSendEmailTask(payload SendEmailPayload) (*asynq.Task, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TaskTypeSendEmail, data), nil
}

// SMTPConfig holds the relay used for notifications.
type SMTPConfig struct {
	Addr string
	From string
}

// NewSendEmailHandler builds the mail:send handler. With an empty relay
// address the handler just logs, which keeps local development mail-free.
func NewSendEmailHandler(cfg SMTPConfig, logger *slog.Logger) asynq.HandlerFunc {
	return func(ctx context.Context, t *asynq.Task) error {
		var payload SendEmailPayload
		if err := json.Unmarshal(t.Payload(), &payload); err != nil {
			return asynq.SkipRetry
		}
		if cfg.Addr == "" {
			logger.Info("mail relay not configured, dropping email",
				slog.String("to", payload.To), slog.String("subject", payload.Subject))
			return nil
		}
		msg := []byte("To: " + payload.To + "\r\n" +
			"Subject: " + payload.Subject + "\r\n" +
			"\r\n" + payload.Body + "\r\n")
		if err := smtp.SendMail(cfg.Addr, nil, cfg.From, []string{payload.To}, msg); err != nil {
			logger.Warn("send email", slog.String("to", payload.To), slog.Any("error", err))
			return err
		}
		return nil
	}
}
