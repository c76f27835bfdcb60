package notify

import (
	"context"
	"sync"
)

// Email is one recorded SendEmail call.
type Email struct {
	To      string
	Subject string
	Body    string
}

// MockMailer is a test double for Mailer recording every send.
type MockMailer struct {
	// SendEmailFunc is called by SendEmail if set.
	SendEmailFunc func(ctx context.Context, to, subject, body string) error

	mu     sync.Mutex
	emails []Email
}

// NewMockMailer creates a mock mailer.
func NewMockMailer() *MockMailer {
	return &MockMailer{}
}

// SendEmail records the email.
func (m *MockMailer) SendEmail(ctx context.Context, to, subject, body string) error {
	m.mu.Lock()
	m.emails = append(m.emails, Email{To: to, Subject: subject, Body: body})
	m.mu.Unlock()

	if m.SendEmailFunc != nil {
		return m.SendEmailFunc(ctx, to, subject, body)
	}
	return nil
}

// Emails returns the recorded emails.
func (m *MockMailer) Emails() []Email {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.emails))
	copy(out, m.emails)
	return out
}

// InAppCall is one recorded CreateNotification call.
type InAppCall struct {
	UserID  string
	Payload Notification
}

// MockInApp is a test double for InApp recording every notification.
type MockInApp struct {
	// CreateNotificationFunc is called by CreateNotification if set.
	CreateNotificationFunc func(ctx context.Context, userID string, payload Notification) error

	mu    sync.Mutex
	calls []InAppCall
}

// NewMockInApp creates a mock in-app sink.
func NewMockInApp() *MockInApp {
	return &MockInApp{}
}

// CreateNotification records the notification.
func (m *MockInApp) CreateNotification(ctx context.Context, userID string, payload Notification) error {
	m.mu.Lock()
	m.calls = append(m.calls, InAppCall{UserID: userID, Payload: payload})
	m.mu.Unlock()

	if m.CreateNotificationFunc != nil {
		return m.CreateNotificationFunc(ctx, userID, payload)
	}
	return nil
}

// Calls returns the recorded notifications.
func (m *MockInApp) Calls() []InAppCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]InAppCall, len(m.calls))
	copy(out, m.calls)
	return out
}
