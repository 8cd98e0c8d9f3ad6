package notify

import (
	"context"
	"errors"
	"strings"
	"testing"

	"go.uber.org/zap"

	"github.com/wholetthecowsout/cowwatch/internal/models"
	"github.com/wholetthecowsout/cowwatch/internal/observability"
)

type stubChannel struct {
	name string
	err  error
	sent int
}

func (s *stubChannel) Name() string { return s.name }

func (s *stubChannel) Send(ctx context.Context, r *models.Report) error {
	s.sent++
	return s.err
}

func TestFanoutSendsToAllChannels(t *testing.T) {
	email := &stubChannel{name: "email"}
	sms := &stubChannel{name: "sms"}
	f := NewFanout(zap.NewNop(), observability.NewNoOpRegistry(), email, sms)

	f.ReportCreated(context.Background(), &models.Report{ID: "r-1"})

	if email.sent != 1 || sms.sent != 1 {
		t.Errorf("Expected one send per channel, got email=%d sms=%d", email.sent, sms.sent)
	}
}

func TestFanoutContinuesPastFailures(t *testing.T) {
	failing := &stubChannel{name: "email", err: errors.New("resend 500")}
	sms := &stubChannel{name: "sms"}
	f := NewFanout(zap.NewNop(), observability.NewNoOpRegistry(), failing, sms)

	f.ReportCreated(context.Background(), &models.Report{ID: "r-1"})

	if sms.sent != 1 {
		t.Error("Expected the SMS channel to still run after the email failure")
	}
}

func TestAlertBody(t *testing.T) {
	r := &models.Report{Location: "Veterans Way", Description: "brown cow by the trail"}
	body := alertBody(r)
	if !strings.Contains(body, "Veterans Way") {
		t.Errorf("Body missing location: %q", body)
	}
	if !strings.Contains(body, "brown cow by the trail") {
		t.Errorf("Body missing description: %q", body)
	}
	if len(body) > smsSegmentLimit {
		t.Errorf("Body exceeds one segment: %d chars", len(body))
	}
}

func TestAlertBodyTruncatesLongDescriptions(t *testing.T) {
	r := &models.Report{
		Location:    "Lake Nona Town Center",
		Description: strings.Repeat("very large cow ", 40),
	}
	body := alertBody(r)
	if len(body) > smsSegmentLimit {
		t.Errorf("Body exceeds one segment: %d chars", len(body))
	}
	if !strings.Contains(body, "...") {
		t.Errorf("Expected truncation marker in %q", body)
	}
}

func TestAlertBodyUnknownLocation(t *testing.T) {
	body := alertBody(&models.Report{})
	if !strings.Contains(body, "Unknown location") {
		t.Errorf("Unexpected body %q", body)
	}
}

func TestNewSMSChannelUnconfigured(t *testing.T) {
	if ch := NewSMSChannel("", "", "", nil); ch != nil {
		t.Error("Expected nil channel without credentials")
	}
	if ch := NewSMSChannel("sid", "token", "+15551230000", nil); ch != nil {
		t.Error("Expected nil channel without recipients")
	}
}

func TestNewEmailChannelUnconfigured(t *testing.T) {
	if ch := NewEmailChannel("", "from@example.com", []string{"ranger@example.com"}, "https://example.com", nil); ch != nil {
		t.Error("Expected nil channel without api key")
	}
	if ch := NewEmailChannel("key", "from@example.com", nil, "https://example.com", nil); ch != nil {
		t.Error("Expected nil channel without recipients")
	}
}
