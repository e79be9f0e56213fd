package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/config"
	"github.com/ifuryst/contentos/internal/service/publisher"
	"github.com/ifuryst/contentos/internal/store"
)

// Project bundles the services bound to one project database.
type Project struct {
	ID          string
	Name        string
	Store       *store.GormStore
	Workflow    *WorkflowService
	Publisher   *PublishService
	Runner      *SweepRunner
	Stats       *StatsService
	Newsletters *NewsletterService
}

// ProjectSettings configures NewProject.
type ProjectSettings struct {
	ID         string
	Name       string
	Workflow   WorkflowSettings
	SweepLimit int
}

func NewProject(settings ProjectSettings, st *store.GormStore, manager *publisher.Manager, logger *zap.Logger, opts ...WorkflowOption) *Project {
	workflow := NewWorkflowService(settings.ID, st, settings.Workflow, logger, opts...)
	pub := NewPublishService(settings.ID, st, workflow, manager, logger)

	name := settings.Name
	if name == "" {
		name = settings.ID
	}
	return &Project{
		ID:          settings.ID,
		Name:        name,
		Store:       st,
		Workflow:    workflow,
		Publisher:   pub,
		Runner:      NewSweepRunner(settings.ID, st, pub, settings.SweepLimit, logger),
		Stats:       NewStatsService(st.DB(), logger.With(zap.String("project", settings.ID))),
		Newsletters: NewNewsletterService(settings.ID, st, logger),
	}
}

// ProjectRegistry routes requests to the configured projects.
type ProjectRegistry struct {
	projects map[string]*Project
	order    []string
	logger   *zap.Logger
}

func NewProjectRegistry(logger *zap.Logger) *ProjectRegistry {
	return &ProjectRegistry{
		projects: make(map[string]*Project),
		logger:   logger,
	}
}

// OpenProjects connects every configured project database and builds its services.
func OpenProjects(cfg *config.Config, manager *publisher.Manager, logger *zap.Logger, opts ...WorkflowOption) (*ProjectRegistry, error) {
	registry := NewProjectRegistry(logger)
	settings := WorkflowSettings{
		MinScheduleLead: cfg.MinScheduleLead(),
		DefaultApprover: cfg.Workflow.DefaultApprover,
	}

	for _, pc := range cfg.Projects {
		dbCfg := pc.Database
		db, err := store.NewDatabase(&dbCfg)
		if err != nil {
			_ = registry.Close()
			return nil, fmt.Errorf("project %s: %w", pc.ID, err)
		}
		project := NewProject(ProjectSettings{
			ID:         pc.ID,
			Name:       pc.Name,
			Workflow:   settings,
			SweepLimit: cfg.Publisher.SweepLimit,
		}, store.NewGormStore(db), manager, logger, opts...)

		if err := registry.Register(project); err != nil {
			_ = registry.Close()
			return nil, err
		}
		logger.Info("Project database connected",
			zap.String("project", pc.ID),
			zap.String("type", pc.Database.Type))
	}
	return registry, nil
}

func (r *ProjectRegistry) Register(project *Project) error {
	if _, exists := r.projects[project.ID]; exists {
		return fmt.Errorf("project %s already registered", project.ID)
	}
	r.projects[project.ID] = project
	r.order = append(r.order, project.ID)
	return nil
}

func (r *ProjectRegistry) Get(id string) (*Project, error) {
	project, ok := r.projects[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProject, id)
	}
	return project, nil
}

// List returns the projects in registration order.
func (r *ProjectRegistry) List() []*Project {
	out := make([]*Project, 0, len(r.order))
	for _, id := range r.order {
		out = append(out, r.projects[id])
	}
	return out
}

// RunDueSweep sweeps every project. A project whose due list cannot be read
// is recorded in the report and does not stop the others.
func (r *ProjectRegistry) RunDueSweep(ctx context.Context, now time.Time) *SweepReport {
	report := &SweepReport{Results: []SweepItem{}}
	for _, project := range r.List() {
		projectReport, err := project.Runner.RunDueSweep(ctx, now)
		if err != nil {
			r.logger.Error("Due sweep failed",
				zap.String("project", project.ID),
				zap.Error(err))
			report.Errors = append(report.Errors, fmt.Sprintf("%s: %v", project.ID, err))
			continue
		}
		report.merge(projectReport)
	}
	return report
}

// Close releases every project database connection.
func (r *ProjectRegistry) Close() error {
	var errs []error
	for _, project := range r.projects {
		sqlDB, err := project.Store.DB().DB()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if err := sqlDB.Close(); err != nil {
			errs = append(errs, fmt.Errorf("project %s: %w", project.ID, err))
		}
	}
	return errors.Join(errs...)
}
