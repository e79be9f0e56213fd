package service

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/ifuryst/contentos/internal/models"
)

type StatusCount struct {
	Status models.ContentStatus `json:"status"`
	Count  int64                `json:"count"`
}

type ChannelCount struct {
	Channel string `json:"channel"`
	Count   int64  `json:"count"`
}

type DailyCount struct {
	Day   string `json:"day"`
	Count int64  `json:"count"`
}

type PillarCount struct {
	Pillar string `json:"pillar"`
	Count  int64  `json:"count"`
}

type ChannelPerformance struct {
	Platform string `json:"platform"`
	Success  int64  `json:"success"`
	Failed   int64  `json:"failed"`
	Pending  int64  `json:"pending"`
}

type PipelineEfficiency struct {
	PipelineName  string  `json:"pipeline_name"`
	Runs          int64   `json:"runs"`
	Successes     int64   `json:"successes"`
	AvgDurationMs float64 `json:"avg_duration_ms"`
	Items         int64   `json:"items_processed"`
}

type SourceStat struct {
	Source   string `json:"source"`
	Total    int64  `json:"total"`
	LatestAt int64  `json:"latest_at"`
}

type NewsStats struct {
	Total  int64 `json:"total"`
	Used   int64 `json:"used"`
	Unused int64 `json:"unused"`
}

// DashboardSummary bundles every aggregation shown on a project's overview.
type DashboardSummary struct {
	Statuses    []StatusCount        `json:"statuses"`
	Channels    []ChannelCount       `json:"channels"`
	Daily       []DailyCount         `json:"daily_published"`
	Pillars     []PillarCount        `json:"pillars"`
	Performance []ChannelPerformance `json:"channel_performance"`
	Pipelines   []PipelineEfficiency `json:"pipelines"`
	Sources     []SourceStat         `json:"rss_sources"`
	News        NewsStats            `json:"news"`
}

// StatsService runs read-only aggregations over one project database.
type StatsService struct {
	db     *gorm.DB
	logger *zap.Logger
	now    func() time.Time
}

func NewStatsService(db *gorm.DB, logger *zap.Logger) *StatsService {
	return &StatsService{
		db:     db,
		logger: logger,
		now:    time.Now,
	}
}

// StatusCounts returns one entry per workflow state, zero-filled.
func (s *StatsService) StatusCounts(ctx context.Context) ([]StatusCount, error) {
	var rows []StatusCount
	if err := s.db.WithContext(ctx).
		Model(&models.ContentRecord{}).
		Select("status, COUNT(*) AS count").
		Group("status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count statuses: %w", err)
	}

	byStatus := make(map[models.ContentStatus]int64, len(rows))
	for _, row := range rows {
		byStatus[row.Status] = row.Count
	}
	counts := make([]StatusCount, 0, len(models.AllStatuses))
	for _, status := range models.AllStatuses {
		counts = append(counts, StatusCount{Status: status, Count: byStatus[status]})
	}
	return counts, nil
}

func (s *StatsService) ChannelCounts(ctx context.Context) ([]ChannelCount, error) {
	var rows []ChannelCount
	if err := s.db.WithContext(ctx).
		Model(&models.ContentRecord{}).
		Select("COALESCE(channel, 'unassigned') AS channel, COUNT(*) AS count").
		Group("COALESCE(channel, 'unassigned')").
		Order("count DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count channels: %w", err)
	}
	return rows, nil
}

// DailyPublished counts successful publish attempts per UTC day over the
// last days days, oldest first, including empty days.
func (s *StatsService) DailyPublished(ctx context.Context, days int) ([]DailyCount, error) {
	if days <= 0 {
		days = 14
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(days - 1))

	var completed []int64
	if err := s.db.WithContext(ctx).
		Model(&models.PublishLogEntry{}).
		Where("status = ? AND completed_at >= ?", models.LogSuccess, since.UnixMilli()).
		Pluck("completed_at", &completed).Error; err != nil {
		return nil, fmt.Errorf("failed to load published logs: %w", err)
	}

	buckets := make(map[string]int64, days)
	for _, ms := range completed {
		buckets[time.UnixMilli(ms).UTC().Format("2006-01-02")]++
	}

	out := make([]DailyCount, 0, days)
	for d := since; !d.After(today); d = d.AddDate(0, 0, 1) {
		key := d.Format("2006-01-02")
		out = append(out, DailyCount{Day: key, Count: buckets[key]})
	}
	return out, nil
}

func (s *StatsService) PillarDistribution(ctx context.Context) ([]PillarCount, error) {
	var rows []PillarCount
	if err := s.db.WithContext(ctx).
		Model(&models.ContentRecord{}).
		Select("pillar, COUNT(*) AS count").
		Where("pillar IS NOT NULL AND pillar <> ''").
		Group("pillar").
		Order("count DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to count pillars: %w", err)
	}
	return rows, nil
}

func (s *StatsService) ChannelPerformance(ctx context.Context) ([]ChannelPerformance, error) {
	var rows []struct {
		PlatformID string
		Status     models.PublishLogStatus
		Count      int64
	}
	if err := s.db.WithContext(ctx).
		Model(&models.PublishLogEntry{}).
		Select("platform_id, status, COUNT(*) AS count").
		Group("platform_id, status").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate publish logs: %w", err)
	}

	byPlatform := map[string]*ChannelPerformance{}
	for _, row := range rows {
		perf, ok := byPlatform[row.PlatformID]
		if !ok {
			perf = &ChannelPerformance{Platform: row.PlatformID}
			byPlatform[row.PlatformID] = perf
		}
		switch row.Status {
		case models.LogSuccess:
			perf.Success += row.Count
		case models.LogFailed:
			perf.Failed += row.Count
		case models.LogPending:
			perf.Pending += row.Count
		}
	}

	out := make([]ChannelPerformance, 0, len(byPlatform))
	for _, perf := range byPlatform {
		out = append(out, *perf)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Platform < out[j].Platform })
	return out, nil
}

func (s *StatsService) PipelineEfficiency(ctx context.Context, days int) ([]PipelineEfficiency, error) {
	if days <= 0 {
		days = 30
	}
	since := s.now().AddDate(0, 0, -days).UnixMilli()

	var rows []PipelineEfficiency
	if err := s.db.WithContext(ctx).
		Model(&models.PipelineLogEntry{}).
		Select("pipeline_name, COUNT(*) AS runs, "+
			"SUM(CASE WHEN status = 'success' THEN 1 ELSE 0 END) AS successes, "+
			"COALESCE(AVG(duration_ms), 0) AS avg_duration_ms, "+
			"COALESCE(SUM(items_processed), 0) AS items").
		Where("created_at >= ?", since).
		Group("pipeline_name").
		Order("pipeline_name").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate pipeline logs: %w", err)
	}
	return rows, nil
}

func (s *StatsService) RSSSourceStats(ctx context.Context) ([]SourceStat, error) {
	var rows []SourceStat
	if err := s.db.WithContext(ctx).
		Model(&models.CollectedNews{}).
		Select("source, COUNT(*) AS total, MAX(created_at) AS latest_at").
		Group("source").
		Order("total DESC").
		Scan(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to aggregate rss sources: %w", err)
	}
	return rows, nil
}

func (s *StatsService) NewsStats(ctx context.Context) (NewsStats, error) {
	var stats NewsStats
	if err := s.db.WithContext(ctx).
		Model(&models.CollectedNews{}).
		Select("COUNT(*) AS total, COALESCE(SUM(CASE WHEN used_in_newsletter > 0 THEN 1 ELSE 0 END), 0) AS used").
		Scan(&stats).Error; err != nil {
		return NewsStats{}, fmt.Errorf("failed to aggregate news: %w", err)
	}
	stats.Unused = stats.Total - stats.Used
	return stats, nil
}

// Summary collects every aggregation. Reporting tables owned by the collector
// may be absent; their sections are left empty and the failure is logged.
func (s *StatsService) Summary(ctx context.Context, days int) (*DashboardSummary, error) {
	summary := &DashboardSummary{}
	var err error

	if summary.Statuses, err = s.StatusCounts(ctx); err != nil {
		return nil, err
	}
	if summary.Channels, err = s.ChannelCounts(ctx); err != nil {
		return nil, err
	}
	if summary.Daily, err = s.DailyPublished(ctx, days); err != nil {
		return nil, err
	}
	if summary.Pillars, err = s.PillarDistribution(ctx); err != nil {
		return nil, err
	}
	if summary.Performance, err = s.ChannelPerformance(ctx); err != nil {
		return nil, err
	}

	if summary.Pipelines, err = s.PipelineEfficiency(ctx, 30); err != nil {
		s.logger.Warn("Pipeline stats unavailable", zap.Error(err))
		summary.Pipelines = []PipelineEfficiency{}
	}
	if summary.Sources, err = s.RSSSourceStats(ctx); err != nil {
		s.logger.Warn("RSS source stats unavailable", zap.Error(err))
		summary.Sources = []SourceStat{}
	}
	if summary.News, err = s.NewsStats(ctx); err != nil {
		s.logger.Warn("News stats unavailable", zap.Error(err))
	}

	return summary, nil
}
