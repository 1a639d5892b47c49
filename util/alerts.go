package util

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/ariebrainware/api-sentinel/model"
	"gorm.io/gorm"
)

// RecipientDirectory lists alert recipient emails for a designation.
type RecipientDirectory interface {
	ListByRole(role string) ([]string, error)
}

// GormRecipientDirectory reads recipients from the alert_recipients table.
type GormRecipientDirectory struct {
	DB *gorm.DB
}

func (d *GormRecipientDirectory) ListByRole(role string) ([]string, error) {
	var emails []string
	err := d.DB.Model(&model.AlertRecipient{}).
		Where("designation = ?", role).
		Pluck("email", &emails).Error
	if err != nil {
		return nil, err
	}
	return emails, nil
}

// AlertRouter matches a log's severity against the per-role subscription
// table and dispatches at most one alert per evaluation, with the recipient
// set deduplicated by email. The subscription table is loaded once at startup
// and read-only afterwards, so a single router is safe for concurrent use.
type AlertRouter struct {
	subscriptions map[string][]string
	recipients    RecipientDirectory
	mailer        Mailer
}

func NewAlertRouter(subscriptions map[string][]string, recipients RecipientDirectory, mailer Mailer) *AlertRouter {
	return &AlertRouter{
		subscriptions: subscriptions,
		recipients:    recipients,
		mailer:        mailer,
	}
}

// Route evaluates one completed log entry. It returns whether an alert was
// dispatched. An empty recipient set is a no-op, not an error; a mail
// transport failure is surfaced to the caller, never swallowed here.
func (r *AlertRouter) Route(entry *model.APIAccessLog, fingerprint *model.ClientFingerprint) (bool, error) {
	if entry == nil {
		return false, nil
	}

	seen := make(map[string]struct{})
	for role, severities := range r.subscriptions {
		if !Contains(entry.Severity, severities) {
			continue
		}
		emails, err := r.recipients.ListByRole(role)
		if err != nil {
			return false, fmt.Errorf("failed to list recipients for role %s: %w", role, err)
		}
		for _, email := range emails {
			if email != "" {
				seen[email] = struct{}{}
			}
		}
	}

	if len(seen) == 0 {
		return false, nil
	}

	recipients := make([]string, 0, len(seen))
	for email := range seen {
		recipients = append(recipients, email)
	}
	sort.Strings(recipients)

	body, err := json.MarshalIndent(map[string]any{
		"log":         entry,
		"fingerprint": fingerprint,
	}, "", "  ")
	if err != nil {
		return false, fmt.Errorf("failed to serialize alert body: %w", err)
	}

	subject := strings.ToUpper(entry.Severity) + " API Alert"
	if err := r.mailer.Send(recipients, subject, string(body)); err != nil {
		return false, fmt.Errorf("alert dispatch failed: %w", err)
	}
	return true, nil
}
