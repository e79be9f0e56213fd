package models

import "strings"

// ContentStatus is the workflow state of a content record.
type ContentStatus string

const (
	StatusDraft      ContentStatus = "draft"
	StatusReview     ContentStatus = "review"
	StatusApproved   ContentStatus = "approved"
	StatusScheduled  ContentStatus = "scheduled"
	StatusPublishing ContentStatus = "publishing"
	StatusPublished  ContentStatus = "published"
	StatusRejected   ContentStatus = "rejected"
	StatusFailed     ContentStatus = "failed"
)

// AllStatuses lists every workflow state in display order.
var AllStatuses = []ContentStatus{
	StatusDraft,
	StatusReview,
	StatusApproved,
	StatusScheduled,
	StatusPublishing,
	StatusPublished,
	StatusRejected,
	StatusFailed,
}

// ParseStatus normalizes input and reports whether it names a known state.
func ParseStatus(input string) (ContentStatus, bool) {
	status := ContentStatus(strings.ToLower(strings.TrimSpace(input)))
	for _, known := range AllStatuses {
		if status == known {
			return status, true
		}
	}
	return status, false
}

// ContentType classifies a content record.
type ContentType string

const (
	TypeBlog       ContentType = "blog"
	TypeNewsletter ContentType = "newsletter"
	TypeSNS        ContentType = "sns"
)

// PublishLogStatus is the state of a single publish attempt.
type PublishLogStatus string

const (
	LogPending PublishLogStatus = "pending"
	LogSuccess PublishLogStatus = "success"
	LogFailed  PublishLogStatus = "failed"
)

// Trigger records who started a publish attempt.
type Trigger string

const (
	TriggerManual Trigger = "manual"
	TriggerCron   Trigger = "cron"
)
