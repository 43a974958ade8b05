package mailer

import (
	"sync"

	"github.com/lawlink/lawlink-api/pkg/logger"
)

// DevTransport writes emails to the log instead of sending them.
type DevTransport struct{}

func NewDevTransport() *DevTransport {
	return &DevTransport{}
}

func (d *DevTransport) Send(toEmail, toName, subject, text, html string) (string, error) {
	logger.Info("[DEV MAIL]",
		"to", toEmail,
		"name", toName,
		"subject", subject,
		"body", text,
	)
	return "dev", nil
}

// MemoryTransport records sent emails for tests. FailFor addresses reject
// their sends, which lets tests exercise partial-failure summaries.
type MemoryTransport struct {
	mu      sync.Mutex
	Sent    []MemoryMessage
	FailFor map[string]error
}

type MemoryMessage struct {
	To      string
	Name    string
	Subject string
	Text    string
	HTML    string
}

func NewMemoryTransport() *MemoryTransport {
	return &MemoryTransport{FailFor: make(map[string]error)}
}

func (m *MemoryTransport) Send(toEmail, toName, subject, text, html string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if err, ok := m.FailFor[toEmail]; ok {
		return "", err
	}
	m.Sent = append(m.Sent, MemoryMessage{To: toEmail, Name: toName, Subject: subject, Text: text, HTML: html})
	return "memory", nil
}

func (m *MemoryTransport) SentTo(email string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, msg := range m.Sent {
		if msg.To == email {
			return true
		}
	}
	return false
}
