package models

// NewsletterStatus is the editorial stage of a generated newsletter issue.
type NewsletterStatus string

const (
	NewsletterDraft     NewsletterStatus = "draft"
	NewsletterReview    NewsletterStatus = "review"
	NewsletterApproved  NewsletterStatus = "approved"
	NewsletterScheduled NewsletterStatus = "scheduled"
	NewsletterReady     NewsletterStatus = "ready"
	NewsletterSent      NewsletterStatus = "sent"
	NewsletterFailed    NewsletterStatus = "failed"
)

// NewsletterStages is the linear path an issue moves along, one step at a time.
var NewsletterStages = []NewsletterStatus{
	NewsletterDraft,
	NewsletterReview,
	NewsletterApproved,
	NewsletterScheduled,
	NewsletterReady,
	NewsletterSent,
}

// Next returns the stage after s. Sent, failed and unknown values have none.
func (s NewsletterStatus) Next() (NewsletterStatus, bool) {
	for i, stage := range NewsletterStages {
		if stage == s && i < len(NewsletterStages)-1 {
			return NewsletterStages[i+1], true
		}
	}
	return "", false
}

// Newsletter is an issue produced by the generation pipeline.
type Newsletter struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	Subject        string           `gorm:"size:500;not null" json:"subject"`
	HTMLContent    string           `gorm:"type:text" json:"html_content,omitempty"`
	PlainContent   *string          `gorm:"type:text" json:"plain_content,omitempty"`
	Status         NewsletterStatus `gorm:"size:20;not null;default:'draft';index" json:"status"`
	EmailServiceID *string          `gorm:"size:255" json:"email_service_id,omitempty"`
	SentAt         *int64           `json:"sent_at"`
	CreatedAt      int64            `gorm:"autoCreateTime:false;not null;index" json:"created_at"`
}

func (Newsletter) TableName() string {
	return "newsletters"
}
