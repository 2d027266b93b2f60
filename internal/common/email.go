package common

import "sync"

// EmailSender is the delivery port for outbound notification mail.
type EmailSender interface {
	Send(to, subject, html string) error
}

// Email is a single captured message.
type Email struct {
	To      string
	Subject string
	HTML    string
}

// InMemoryEmail records messages instead of delivering them. It is safe for
// concurrent use, since task handlers may send from multiple goroutines.
type InMemoryEmail struct {
	mu     sync.Mutex
	outbox []Email
}

// Send records the email in memory.
func (m *InMemoryEmail) Send(to, subject, html string) error {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.outbox = append(m.outbox, Email{To: to, Subject: subject, HTML: html})
	return nil
}

// Sent returns a copy of the captured messages.
func (m *InMemoryEmail) Sent() []Email {
	if m == nil {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Email, len(m.outbox))
	copy(out, m.outbox)
	return out
}

// NopEmailSender discards every message, for environments without a mail
// provider configured.
type NopEmailSender struct{}

// Send implements EmailSender.
func (NopEmailSender) Send(string, string, string) error { return nil }
