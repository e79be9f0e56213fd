package service

import "github.com/ifuryst/contentos/internal/models"

// transitions lists the allowed target states for every source state.
var transitions = map[models.ContentStatus][]models.ContentStatus{
	models.StatusDraft:      {models.StatusReview, models.StatusApproved, models.StatusRejected},
	models.StatusReview:     {models.StatusApproved, models.StatusRejected},
	models.StatusApproved:   {models.StatusScheduled, models.StatusPublishing, models.StatusRejected},
	models.StatusScheduled:  {models.StatusPublishing, models.StatusRejected},
	models.StatusPublishing: {models.StatusPublished, models.StatusFailed, models.StatusRejected},
	models.StatusFailed:     {models.StatusDraft, models.StatusRejected},
	models.StatusRejected:   {models.StatusDraft},
	models.StatusPublished:  {},
}

// CanTransition reports whether from → to is an edge of the workflow.
func CanTransition(from, to models.ContentStatus) bool {
	for _, candidate := range transitions[from] {
		if candidate == to {
			return true
		}
	}
	return false
}

// AvailableTransitions returns the states reachable from status.
func AvailableTransitions(status models.ContentStatus) []models.ContentStatus {
	targets := transitions[status]
	out := make([]models.ContentStatus, len(targets))
	copy(out, targets)
	return out
}
