package mailer

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/lawlink/lawlink-api/internal/utils"
	"github.com/lawlink/lawlink-api/pkg/logger"
)

// DefaultNotifyAddress receives the broadcast when no list is configured.
const DefaultNotifyAddress = "admin@lawlink.local"

const (
	StatusFulfilled = "fulfilled"
	StatusRejected  = "rejected"
)

// Outcome is the per-recipient delivery record.
type Outcome struct {
	Status    string `json:"status"`
	Recipient string `json:"recipient"`
	Detail    string `json:"detail,omitempty"`
}

// Summary aggregates one booking event's delivery outcomes: one entry per
// broadcast recipient plus an optional client confirmation. It is never
// persisted.
type Summary struct {
	Notifications []Outcome `json:"notifications"`
	Confirmation  *Outcome  `json:"confirmation,omitempty"`
}

// BookingNotice is the event fanned out to firm/admin recipients and,
// when a client address is present, echoed back as a confirmation.
type BookingNotice struct {
	ConsultationID int64
	FirmName       string
	ServiceName    string
	ContactName    string
	ContactPhone   string
	ContactEmail   string
	Message        string
	PreferredAt    time.Time

	// Recipients overrides the configured broadcast list when non-empty.
	Recipients []string
	// FirmEmail joins the broadcast set when set.
	FirmEmail string
}

// Dispatcher fans a booking event out to its recipients. Each send is
// isolated: one recipient's failure never aborts a sibling send, and the
// dispatcher itself never returns an error.
type Dispatcher struct {
	transport   Transport
	defaultList string
}

// NewDispatcher resolves its transport once. A nil transport makes the
// dispatcher inert: sends are skipped and summaries come back empty.
func NewDispatcher(transport Transport, defaultList string) *Dispatcher {
	return &Dispatcher{transport: transport, defaultList: defaultList}
}

// Recipients resolves the broadcast set: the override list when provided,
// otherwise the configured defaults (falling back to one hard default)
// unioned with the firm contact, deduplicated case-insensitively.
func (d *Dispatcher) Recipients(override []string, firmEmail string) []string {
	var candidates []string
	if len(override) > 0 {
		candidates = override
	} else {
		candidates = utils.SplitList(d.defaultList)
		if len(candidates) == 0 {
			candidates = []string{DefaultNotifyAddress}
		}
		if firmEmail != "" {
			candidates = append(candidates, firmEmail)
		}
	}

	seen := make(map[string]struct{}, len(candidates))
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		c = strings.TrimSpace(c)
		if c == "" {
			continue
		}
		key := strings.ToLower(c)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Dispatch sends the broadcast and the client confirmation and reports every
// outcome. Partial or total delivery failure is visible only in the summary.
func (d *Dispatcher) Dispatch(ctx context.Context, notice BookingNotice) *Summary {
	summary := &Summary{Notifications: []Outcome{}}

	if d.transport == nil {
		logger.DebugContext(ctx, "mail transport not configured, skipping notifications",
			"consultation_id", notice.ConsultationID)
		return summary
	}

	recipients := d.Recipients(notice.Recipients, notice.FirmEmail)
	subject, text, html := broadcastBody(notice)

	outcomes := make([]Outcome, len(recipients))
	var wg sync.WaitGroup
	for i, to := range recipients {
		wg.Add(1)
		go func(i int, to string) {
			defer wg.Done()
			outcomes[i] = d.send(to, "", subject, text, html)
		}(i, to)
	}

	var confirmation *Outcome
	if notice.ContactEmail != "" {
		wg.Add(1)
		go func() {
			defer wg.Done()
			subject, text, html := confirmationBody(notice)
			out := d.send(notice.ContactEmail, notice.ContactName, subject, text, html)
			confirmation = &out
		}()
	}

	wg.Wait()

	summary.Notifications = outcomes
	summary.Confirmation = confirmation

	for _, o := range outcomes {
		if o.Status == StatusRejected {
			logger.WarnContext(ctx, "notification delivery failed",
				"recipient", o.Recipient, "detail", o.Detail,
				"consultation_id", notice.ConsultationID)
		}
	}
	return summary
}

func (d *Dispatcher) send(to, name, subject, text, html string) Outcome {
	id, err := d.transport.Send(to, name, subject, text, html)
	if err != nil {
		return Outcome{Status: StatusRejected, Recipient: to, Detail: err.Error()}
	}
	return Outcome{Status: StatusFulfilled, Recipient: to, Detail: id}
}

func broadcastBody(n BookingNotice) (subject, text, html string) {
	subject = fmt.Sprintf("New consultation request: %s", n.FirmName)
	when := n.PreferredAt.Format("2006-01-02 15:04")
	text = fmt.Sprintf(
		"Consultation #%d\nFirm: %s\nService: %s\nClient: %s (%s)\nRequested time: %s\nMessage: %s\n",
		n.ConsultationID, n.FirmName, n.ServiceName, n.ContactName, n.ContactPhone, when, n.Message,
	)
	html = fmt.Sprintf(
		`<h3>Consultation #%d</h3>
<p><b>Firm:</b> %s<br><b>Service:</b> %s</p>
<p><b>Client:</b> %s (%s)<br><b>Requested time:</b> %s</p>
<p>%s</p>`,
		n.ConsultationID, n.FirmName, n.ServiceName, n.ContactName, n.ContactPhone, when, n.Message,
	)
	return subject, text, html
}

func confirmationBody(n BookingNotice) (subject, text, html string) {
	subject = fmt.Sprintf("Your consultation with %s is booked", n.FirmName)
	when := n.PreferredAt.Format("2006-01-02 15:04")
	text = fmt.Sprintf(
		"Hi %s,\n\nYour request for %s at %s on %s has been received. The firm will contact you shortly.\n",
		n.ContactName, n.ServiceName, n.FirmName, when,
	)
	html = fmt.Sprintf(
		`<p>Hi %s,</p><p>Your request for <b>%s</b> at <b>%s</b> on <b>%s</b> has been received. The firm will contact you shortly.</p>`,
		n.ContactName, n.ServiceName, n.FirmName, when,
	)
	return subject, text, html
}
