package models

import (
	"gorm.io/datatypes"
)

// PublishLogEntry is the append-only audit row for one publish attempt.
type PublishLogEntry struct {
	ID             string           `gorm:"primaryKey;size:36" json:"id"`
	ContentID      string           `gorm:"size:36;not null;index" json:"content_id"`
	PlatformID     string           `gorm:"size:100;not null;index" json:"platform_id"`
	Status         PublishLogStatus `gorm:"size:20;not null;default:'pending';index" json:"status"`
	TriggeredBy    Trigger          `gorm:"size:20;not null" json:"triggered_by"`
	ResponseStatus *int             `json:"response_status"`
	ResponseBody   *string          `gorm:"type:text" json:"response_body"`
	PublishedURL   *string          `gorm:"size:1000" json:"published_url"`
	ErrorMessage   *string          `gorm:"type:text" json:"error_message"`
	CreatedAt      int64            `gorm:"autoCreateTime:false;not null;index" json:"created_at"`
	CompletedAt    *int64           `json:"completed_at"`
}

func (PublishLogEntry) TableName() string {
	return "publish_logs"
}

// PipelineLogEntry records one ingestion or generation pipeline run.
// It is written by the collector and only read here.
type PipelineLogEntry struct {
	ID             string         `gorm:"primaryKey;size:36" json:"id"`
	PipelineName   string         `gorm:"size:100;not null;index" json:"pipeline_name"`
	Status         string         `gorm:"size:20;not null" json:"status"`
	DurationMs     *int64         `json:"duration_ms"`
	ItemsProcessed int            `gorm:"default:0" json:"items_processed"`
	ErrorMessage   *string        `gorm:"type:text" json:"error_message"`
	Metadata       datatypes.JSON `json:"metadata"`
	CreatedAt      int64          `gorm:"autoCreateTime:false;not null;index" json:"created_at"`
}

func (PipelineLogEntry) TableName() string {
	return "pipeline_logs"
}

// CollectedNews is one item gathered by the RSS collector.
type CollectedNews struct {
	ID               string `gorm:"primaryKey;size:36" json:"id"`
	Source           string `gorm:"size:255;not null;index" json:"source"`
	Title            string `gorm:"size:1000" json:"title"`
	URL              string `gorm:"size:2000" json:"url"`
	UsedInNewsletter int    `gorm:"default:0" json:"used_in_newsletter"`
	CreatedAt        int64  `gorm:"autoCreateTime:false;not null;index" json:"created_at"`
}

func (CollectedNews) TableName() string {
	return "collected_news"
}
