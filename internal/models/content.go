package models

import (
	"encoding/json"
	"strings"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/ifuryst/contentos/pkg/util"
)

// ContentMetadata is the typed view of the metadata JSON column.
type ContentMetadata struct {
	SEOTitle    string   `json:"seo_title,omitempty"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
}

// ParseMetadata decodes the metadata column. Invalid JSON yields an empty value.
// Tags may be stored either as a JSON list or as a comma separated string.
func ParseMetadata(raw []byte) ContentMetadata {
	var meta ContentMetadata
	if len(raw) == 0 {
		return meta
	}

	var loose struct {
		SEOTitle    string          `json:"seo_title"`
		Description string          `json:"description"`
		Tags        json.RawMessage `json:"tags"`
	}
	if err := json.Unmarshal(raw, &loose); err != nil {
		return meta
	}

	meta.SEOTitle = loose.SEOTitle
	meta.Description = loose.Description

	if len(loose.Tags) > 0 {
		var list []string
		var joined string
		switch {
		case json.Unmarshal(loose.Tags, &list) == nil:
			for _, tag := range list {
				if tag = strings.TrimSpace(tag); tag != "" {
					meta.Tags = append(meta.Tags, tag)
				}
			}
		case json.Unmarshal(loose.Tags, &joined) == nil:
			meta.Tags = util.ParseTags(joined)
		}
	}

	return meta
}

// JSON encodes the metadata for storage.
func (m ContentMetadata) JSON() datatypes.JSON {
	data, err := json.Marshal(m)
	if err != nil {
		return datatypes.JSON("{}")
	}
	return datatypes.JSON(data)
}

// PublishResult is one channel's entry in ContentRecord.PublishResults.
type PublishResult struct {
	Status       PublishLogStatus `json:"status"`
	LogID        string           `json:"log_id"`
	PublishedURL string           `json:"published_url,omitempty"`
	Error        string           `json:"error,omitempty"`
	At           int64            `json:"at"`
}

// ContentRecord is one row of the content queue.
type ContentRecord struct {
	ID      string      `gorm:"primaryKey;size:36" json:"id"`
	Type    ContentType `gorm:"size:32;not null;default:'blog'" json:"type"`
	Pillar  *string     `gorm:"size:100;index" json:"pillar"`
	Topic   *string     `gorm:"size:500" json:"topic"`
	Channel *string     `gorm:"size:100;index" json:"channel"`
	Project *string     `gorm:"size:100;index" json:"project"`

	Title       string          `gorm:"size:500" json:"title"`
	ContentBody string          `gorm:"type:text" json:"content_body"`
	MetadataRaw datatypes.JSON  `gorm:"column:metadata" json:"-"`
	Metadata    ContentMetadata `gorm:"-" json:"metadata"`

	Status         ContentStatus `gorm:"size:32;not null;default:'draft';index" json:"status"`
	ApprovedBy     *string       `gorm:"size:255" json:"approved_by"`
	ApprovedAt     *int64        `json:"approved_at"`
	RejectedReason *string       `gorm:"type:text" json:"rejected_reason"`
	ScheduledAt    *int64        `gorm:"index" json:"scheduled_at"`

	Priority  int   `gorm:"default:0;index" json:"priority"`
	CreatedAt int64 `gorm:"autoCreateTime:false;not null" json:"created_at"`
	UpdatedAt int64 `gorm:"autoUpdateTime:false;not null" json:"updated_at"`

	PlatformTargets datatypes.JSON `json:"platform_targets"`
	PublishResults  datatypes.JSON `json:"publish_results"`
}

func (ContentRecord) TableName() string {
	return "content_queue"
}

// AfterFind parses the metadata column once per load.
func (c *ContentRecord) AfterFind(tx *gorm.DB) error {
	c.Metadata = ParseMetadata(c.MetadataRaw)
	return nil
}

// BeforeCreate stores the typed metadata when no raw value was supplied.
func (c *ContentRecord) BeforeCreate(tx *gorm.DB) error {
	if len(c.MetadataRaw) == 0 {
		c.MetadataRaw = c.Metadata.JSON()
	}
	if len(c.PlatformTargets) == 0 {
		c.PlatformTargets = datatypes.JSON("[]")
	}
	if len(c.PublishResults) == 0 {
		c.PublishResults = datatypes.JSON("{}")
	}
	return nil
}

// ChannelName returns the destination channel or "" when unset.
func (c *ContentRecord) ChannelName() string {
	if c.Channel == nil {
		return ""
	}
	return strings.TrimSpace(*c.Channel)
}

// PillarName returns the pillar or "" when unset.
func (c *ContentRecord) PillarName() string {
	if c.Pillar == nil {
		return ""
	}
	return *c.Pillar
}

// Targets decodes platform_targets, ignoring malformed values.
func (c *ContentRecord) Targets() []string {
	var targets []string
	if len(c.PlatformTargets) == 0 {
		return targets
	}
	_ = json.Unmarshal(c.PlatformTargets, &targets)
	return targets
}

// PublishChannel is where a publish without an explicit channel goes: the
// channel column, else the first non-blank platform target.
func (c *ContentRecord) PublishChannel() string {
	if channel := c.ChannelName(); channel != "" {
		return channel
	}
	for _, target := range c.Targets() {
		if target = strings.TrimSpace(target); target != "" {
			return target
		}
	}
	return ""
}

// Results decodes publish_results, ignoring malformed values.
func (c *ContentRecord) Results() map[string]PublishResult {
	results := map[string]PublishResult{}
	if len(c.PublishResults) == 0 {
		return results
	}
	if err := json.Unmarshal(c.PublishResults, &results); err != nil {
		return map[string]PublishResult{}
	}
	return results
}

// WithResult returns publish_results with the entry for channel replaced.
func (c *ContentRecord) WithResult(channel string, result PublishResult) datatypes.JSON {
	results := c.Results()
	results[channel] = result
	data, err := json.Marshal(results)
	if err != nil {
		return c.PublishResults
	}
	return datatypes.JSON(data)
}
