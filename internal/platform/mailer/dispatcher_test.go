package mailer

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"
)

func notice() BookingNotice {
	return BookingNotice{
		ConsultationID: 42,
		FirmName:       "Harbor & Lee",
		ServiceName:    "Contract review",
		ContactName:    "Zhang Wei",
		ContactPhone:   "13800138000",
		PreferredAt:    time.Now().Add(48 * time.Hour),
	}
}

func TestRecipientsDefaultsAndUnion(t *testing.T) {
	d := NewDispatcher(NewMemoryTransport(), "a@x.com, b@x.com; c@x.com")

	got := d.Recipients(nil, "firm@x.com")
	if len(got) != 4 {
		t.Fatalf("expected 4 recipients, got %v", got)
	}
	if got[3] != "firm@x.com" {
		t.Fatalf("firm contact missing from broadcast set: %v", got)
	}
}

func TestRecipientsFallbackAddress(t *testing.T) {
	d := NewDispatcher(NewMemoryTransport(), "")

	got := d.Recipients(nil, "")
	if len(got) != 1 || got[0] != DefaultNotifyAddress {
		t.Fatalf("expected hard default address, got %v", got)
	}
}

func TestRecipientsOverrideWins(t *testing.T) {
	d := NewDispatcher(NewMemoryTransport(), "a@x.com")

	got := d.Recipients([]string{"only@x.com"}, "firm@x.com")
	if len(got) != 1 || got[0] != "only@x.com" {
		t.Fatalf("override list not honored: %v", got)
	}
}

func TestRecipientsDedup(t *testing.T) {
	d := NewDispatcher(NewMemoryTransport(), "a@x.com, A@X.com; a@x.com")

	got := d.Recipients(nil, "a@x.com")
	if len(got) != 1 {
		t.Fatalf("expected deduplicated set of 1, got %v", got)
	}
}

func TestDispatchOutcomePerRecipient(t *testing.T) {
	mem := NewMemoryTransport()
	d := NewDispatcher(mem, "a@x.com, b@x.com")

	s := d.Dispatch(context.Background(), notice())

	if len(s.Notifications) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(s.Notifications))
	}
	resolved := d.Recipients(nil, "")
	for _, o := range s.Notifications {
		if o.Status != StatusFulfilled {
			t.Fatalf("expected fulfilled, got %+v", o)
		}
		found := false
		for _, r := range resolved {
			if r == o.Recipient {
				found = true
			}
		}
		if !found {
			t.Fatalf("outcome recipient %q not in resolved set %v", o.Recipient, resolved)
		}
	}
	if s.Confirmation != nil {
		t.Fatalf("no client email supplied, confirmation should be absent: %+v", s.Confirmation)
	}
}

func TestDispatchPartialFailureIsIsolated(t *testing.T) {
	mem := NewMemoryTransport()
	mem.FailFor = map[string]error{"bad@x.com": errors.New("mailbox unavailable")}
	d := NewDispatcher(mem, "good@x.com, bad@x.com")

	s := d.Dispatch(context.Background(), notice())

	if len(s.Notifications) != 2 {
		t.Fatalf("expected 2 outcomes, got %d", len(s.Notifications))
	}
	var fulfilled, rejected int
	for _, o := range s.Notifications {
		switch o.Status {
		case StatusFulfilled:
			fulfilled++
		case StatusRejected:
			rejected++
			if !strings.Contains(o.Detail, "mailbox unavailable") {
				t.Fatalf("rejected outcome missing detail: %+v", o)
			}
		}
	}
	if fulfilled != 1 || rejected != 1 {
		t.Fatalf("expected 1 fulfilled and 1 rejected, got %d/%d", fulfilled, rejected)
	}
	if !mem.SentTo("good@x.com") {
		t.Fatal("sibling send should have gone through")
	}
}

func TestDispatchClientConfirmation(t *testing.T) {
	mem := NewMemoryTransport()
	d := NewDispatcher(mem, "a@x.com")

	n := notice()
	n.ContactEmail = "client@x.com"
	s := d.Dispatch(context.Background(), n)

	if s.Confirmation == nil {
		t.Fatal("expected a client confirmation outcome")
	}
	if s.Confirmation.Status != StatusFulfilled || s.Confirmation.Recipient != "client@x.com" {
		t.Fatalf("unexpected confirmation: %+v", s.Confirmation)
	}
	if !mem.SentTo("client@x.com") {
		t.Fatal("confirmation email was not sent")
	}
}

func TestDispatchInertWithoutTransport(t *testing.T) {
	d := NewDispatcher(nil, "a@x.com")

	n := notice()
	n.ContactEmail = "client@x.com"
	s := d.Dispatch(context.Background(), n)

	if len(s.Notifications) != 0 {
		t.Fatalf("inert dispatcher must skip sends, got %v", s.Notifications)
	}
	if s.Confirmation != nil {
		t.Fatalf("inert dispatcher must not produce a confirmation, got %+v", s.Confirmation)
	}
}
