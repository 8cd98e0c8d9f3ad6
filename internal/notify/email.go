package notify

import (
	"context"
	"fmt"

	"github.com/resend/resend-go/v2"

	"github.com/wholetthecowsout/cowwatch/internal/geo"
	"github.com/wholetthecowsout/cowwatch/internal/models"
)

// EmailChannel sends ranger alert emails through Resend.
type EmailChannel struct {
	client     *resend.Client
	from       string
	recipients []string
	adminURL   string
	locations  *geo.Registry
}

// NewEmailChannel builds the email channel. Returns nil when the API key or
// recipient list is missing, so deployments without email simply skip it.
func NewEmailChannel(apiKey, from string, recipients []string, siteURL string, locations *geo.Registry) *EmailChannel {
	if apiKey == "" || len(recipients) == 0 {
		return nil
	}
	return &EmailChannel{
		client:     resend.NewClient(apiKey),
		from:       from,
		recipients: recipients,
		adminURL:   siteURL + "/admin",
		locations:  locations,
	}
}

func (e *EmailChannel) Name() string { return "email" }

// Send emails every configured ranger about the new report.
func (e *EmailChannel) Send(ctx context.Context, r *models.Report) error {
	location := r.Location
	if location == "" {
		location = "Unknown location"
	}

	details := ""
	if r.Description != "" {
		details = fmt.Sprintf(`
          <p style="margin: 0 0 8px; font-weight: 600;">Details</p>
          <p style="margin: 0; color: #374151;">%s</p>`, r.Description)
	}

	mapLink := ""
	if e.locations != nil {
		if zone, ok := e.locations.Resolve(r.Location); ok {
			mapLink = fmt.Sprintf(`
          <p style="margin: 16px 0 0;"><a href="%s" style="color: #2563eb;">View on map</a></p>`, geo.MapURL(zone))
		}
	}

	html := fmt.Sprintf(`
      <div style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; max-width: 480px; margin: 0 auto; padding: 24px;">
        <h2 style="color: #dc2626; margin: 0 0 16px;">🐄 Loose Cow Alert</h2>
        <div style="background: #fef2f2; border: 1px solid #fecaca; border-radius: 8px; padding: 16px; margin-bottom: 16px;">
          <p style="margin: 0 0 8px; font-weight: 600;">Location</p>
          <p style="margin: 0 0 16px; color: #374151;">%s</p>%s%s
        </div>
        <a href="%s" style="display: inline-block; background: #16a34a; color: white; text-decoration: none; padding: 10px 20px; border-radius: 6px; font-weight: 500;">
          View in Admin Dashboard →
        </a>
        <p style="margin-top: 24px; font-size: 12px; color: #9ca3af;">
          Report ID: %s
        </p>
      </div>`, location, details, mapLink, e.adminURL, r.ID)

	_, err := e.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    e.from,
		To:      e.recipients,
		Subject: fmt.Sprintf("🐄 Loose Cow Reported — %s", location),
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("resend send: %w", err)
	}
	return nil
}
