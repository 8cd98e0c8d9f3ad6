package notify

import (
	"context"
	"fmt"

	"github.com/twilio/twilio-go"
	twilioapi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/wholetthecowsout/cowwatch/internal/models"
)

// smsSegmentLimit keeps alerts inside a single SMS segment to hold costs down.
const smsSegmentLimit = 160

// SMSChannel texts rangers through Twilio.
type SMSChannel struct {
	client     *twilio.RestClient
	from       string
	recipients []string
}

// NewSMSChannel builds the SMS channel. Returns nil when Twilio credentials
// or recipients are missing, so SMS degrades to "not configured".
func NewSMSChannel(accountSID, authToken, from string, recipients []string) *SMSChannel {
	if accountSID == "" || authToken == "" || from == "" || len(recipients) == 0 {
		return nil
	}
	return &SMSChannel{
		client: twilio.NewRestClientWithParams(twilio.ClientParams{
			Username: accountSID,
			Password: authToken,
		}),
		from:       from,
		recipients: recipients,
	}
}

func (s *SMSChannel) Name() string { return "sms" }

// Send texts every configured ranger. Individual delivery failures are
// collected so the remaining recipients still get their alert.
func (s *SMSChannel) Send(ctx context.Context, r *models.Report) error {
	body := alertBody(r)

	var firstErr error
	for _, to := range s.recipients {
		params := &twilioapi.CreateMessageParams{}
		params.SetTo(to)
		params.SetFrom(s.from)
		params.SetBody(body)
		if _, err := s.client.Api.CreateMessage(params); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("twilio send to %s: %w", to, err)
		}
	}
	return firstErr
}

// alertBody builds the SMS text, truncating the description so the whole
// message stays within one segment.
func alertBody(r *models.Report) string {
	location := r.Location
	if location == "" {
		location = "Unknown location"
	}
	msg := fmt.Sprintf("🐄 COW ALERT: Sighting reported at %s.", location)
	if r.Description == "" {
		return msg
	}
	room := smsSegmentLimit - len(msg) - 10
	if room <= 0 {
		return msg
	}
	desc := r.Description
	if len(desc) > room {
		return fmt.Sprintf("%s \"%s...\"", msg, desc[:room])
	}
	return fmt.Sprintf("%s \"%s\"", msg, desc)
}
