package notify

import (
	"context"
	"log/slog"
)

// LogMailer is a Mailer that only logs. It is the default sink in
// deployments without an email provider configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a logging mailer. A nil logger uses slog.Default().
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// SendEmail logs the email instead of sending it.
func (m *LogMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	m.logger.Info("email notification", "to", to, "subject", subject)
	return nil
}

// LogInApp is an InApp sink that only logs.
type LogInApp struct {
	logger *slog.Logger
}

// NewLogInApp creates a logging in-app sink. A nil logger uses slog.Default().
func NewLogInApp(logger *slog.Logger) *LogInApp {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogInApp{logger: logger}
}

// CreateNotification logs the notification instead of storing it.
func (n *LogInApp) CreateNotification(ctx context.Context, userID string, payload Notification) error {
	n.logger.Info("in-app notification",
		"userId", userID, "title", payload.Title, "chatbotId", payload.ChatbotID, "jobId", payload.JobID)
	return nil
}
