package server

import (
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"go.uber.org/zap"

	"github.com/ifuryst/contentos/internal/models"
	"github.com/ifuryst/contentos/internal/service"
	"github.com/ifuryst/contentos/internal/service/publisher"
	"github.com/ifuryst/contentos/internal/store"
)

const projectKey = "project"

func (s *Server) projectMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		project, err := s.Projects.Get(c.Param("project"))
		if err != nil {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": err.Error()})
			return
		}
		c.Set(projectKey, project)
		c.Next()
	}
}

func currentProject(c *gin.Context) *service.Project {
	return c.MustGet(projectKey).(*service.Project)
}

// statusFor maps domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, service.ErrUnknownProject):
		return http.StatusNotFound
	case errors.Is(err, service.ErrInvalidTransition):
		return http.StatusConflict
	case errors.Is(err, service.ErrInvalidArgument):
		return http.StatusBadRequest
	case errors.Is(err, publisher.ErrConfiguration), errors.Is(err, publisher.ErrUnknownChannel):
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) respondError(c *gin.Context, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.Logger.Error("Request failed",
			zap.String("path", c.FullPath()),
			zap.Error(err))
		c.JSON(status, gin.H{"error": "internal server error"})
		return
	}
	c.JSON(status, gin.H{"error": err.Error()})
}

// bindOptionalJSON decodes the body into dst; an empty body is allowed.
func bindOptionalJSON(c *gin.Context, dst interface{}) error {
	if err := c.ShouldBindJSON(dst); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

func (s *Server) handleListProjects(c *gin.Context) {
	type projectView struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	projects := s.Projects.List()
	views := make([]projectView, 0, len(projects))
	for _, p := range projects {
		views = append(views, projectView{ID: p.ID, Name: p.Name})
	}
	c.JSON(http.StatusOK, gin.H{"projects": views})
}

func (s *Server) handleListContent(c *gin.Context) {
	project := currentProject(c)

	filter := store.ContentFilter{
		Channel: c.Query("channel"),
		Search:  c.Query("q"),
	}
	if raw := c.Query("status"); raw != "" {
		status, ok := models.ParseStatus(raw)
		if !ok {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + strconv.Quote(raw)})
			return
		}
		filter.Status = status
	}
	if raw := c.Query("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a positive integer"})
			return
		}
		filter.Limit = limit
	}

	records, err := project.Store.ListContent(c.Request.Context(), filter)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": records})
}

func (s *Server) handleCreateContent(c *gin.Context) {
	var input service.CreateContentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	record, err := currentProject(c).Workflow.CreateContent(c.Request.Context(), input)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"content": record})
}

func (s *Server) handleGetContent(c *gin.Context) {
	project := currentProject(c)
	id := c.Param("id")

	record, err := project.Store.GetContent(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	logs, err := project.Store.ListPublishLogs(c.Request.Context(), id, 0)
	if err != nil {
		s.respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"content":     record,
		"logs":        logs,
		"transitions": service.AvailableTransitions(record.Status),
	})
}

func (s *Server) handleContentLogs(c *gin.Context) {
	logs, err := currentProject(c).Publisher.History(c.Request.Context(), c.Param("id"), 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

// respondRecord answers a successful transition with the updated record.
func (s *Server) respondRecord(c *gin.Context, id string) {
	record, err := currentProject(c).Store.GetContent(c.Request.Context(), id)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": record})
}

func (s *Server) handleRequestReview(c *gin.Context) {
	id := c.Param("id")
	if err := currentProject(c).Workflow.RequestReview(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	s.respondRecord(c, id)
}

type approveRequest struct {
	Approver string `json:"approver"`
}

func (s *Server) handleApprove(c *gin.Context) {
	var req approveRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := currentProject(c).Workflow.Approve(c.Request.Context(), id, req.Approver); err != nil {
		s.respondError(c, err)
		return
	}
	s.respondRecord(c, id)
}

type rejectRequest struct {
	Reason string `json:"reason"`
}

func (r rejectRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Reason, validation.Required, validation.Length(1, 2000)),
	)
}

func (s *Server) handleReject(c *gin.Context) {
	var req rejectRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := currentProject(c).Workflow.Reject(c.Request.Context(), id, req.Reason); err != nil {
		s.respondError(c, err)
		return
	}
	s.respondRecord(c, id)
}

func (s *Server) handleResetToDraft(c *gin.Context) {
	id := c.Param("id")
	if err := currentProject(c).Workflow.ResetToDraft(c.Request.Context(), id); err != nil {
		s.respondError(c, err)
		return
	}
	s.respondRecord(c, id)
}

type scheduleRequest struct {
	ScheduledAt int64 `json:"scheduled_at"`
}

func (r scheduleRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.ScheduledAt, validation.Required, validation.Min(int64(1))),
	)
}

func (s *Server) handleSchedule(c *gin.Context) {
	var req scheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	id := c.Param("id")
	if err := currentProject(c).Workflow.Schedule(c.Request.Context(), id, req.ScheduledAt); err != nil {
		s.respondError(c, err)
		return
	}
	s.respondRecord(c, id)
}

type publishRequest struct {
	Channel string `json:"channel"`
}

func (s *Server) handlePublish(c *gin.Context) {
	var req publishRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outcome, err := currentProject(c).Publisher.Publish(c.Request.Context(), c.Param("id"), req.Channel, models.TriggerManual)
	if err != nil {
		s.respondError(c, err)
		return
	}

	// A failed dispatch still completed the request; the outcome carries the reason.
	c.JSON(http.StatusOK, gin.H{"result": outcome})
}

type bulkRequest struct {
	IDs         []string `json:"ids"`
	Status      string   `json:"status"`
	Approver    string   `json:"approver"`
	Reason      string   `json:"reason"`
	ScheduledAt int64    `json:"scheduled_at"`
}

func (r bulkRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.IDs, validation.Required, validation.Length(1, 500)),
		validation.Field(&r.Status, validation.Required),
	)
}

func (s *Server) handleBulkTransition(c *gin.Context) {
	var req bulkRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := req.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	target, ok := models.ParseStatus(req.Status)
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown status " + strconv.Quote(req.Status)})
		return
	}

	result, err := currentProject(c).Workflow.BulkTransition(c.Request.Context(), req.IDs, target, service.BulkOptions{
		Approver:    req.Approver,
		Reason:      req.Reason,
		ScheduledAt: req.ScheduledAt,
	})
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

func (s *Server) handleScheduled(c *gin.Context) {
	records, err := currentProject(c).Store.ListScheduled(c.Request.Context(), 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"content": records})
}

func (s *Server) handlePublishLogs(c *gin.Context) {
	logs, err := currentProject(c).Store.ListPublishLogs(c.Request.Context(), "", 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (s *Server) handlePipelineLogs(c *gin.Context) {
	logs, err := currentProject(c).Store.ListPipelineLogs(c.Request.Context(), 0)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"logs": logs})
}

func (s *Server) handleListNewsletters(c *gin.Context) {
	newsletters, err := currentProject(c).Newsletters.List(c.Request.Context())
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newsletters": newsletters})
}

func (s *Server) handleGetNewsletter(c *gin.Context) {
	newsletter, err := currentProject(c).Newsletters.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newsletter": newsletter})
}

func (s *Server) handleAdvanceNewsletter(c *gin.Context) {
	newsletter, err := currentProject(c).Newsletters.Advance(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"newsletter": newsletter})
}

func (s *Server) handleChannels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"channels": currentProject(c).Publisher.Channels()})
}

func (s *Server) handleStats(c *gin.Context) {
	days := 14
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 || parsed > 365 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "days must be between 1 and 365"})
			return
		}
		days = parsed
	}

	summary, err := currentProject(c).Stats.Summary(c.Request.Context(), days)
	if err != nil {
		s.respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, summary)
}

func (s *Server) handleCronPublish(c *gin.Context) {
	report := s.Projects.RunDueSweep(c.Request.Context(), s.now())
	c.JSON(http.StatusOK, gin.H{
		"ok":        true,
		"processed": report.Processed,
		"results":   report.Results,
		"errors":    report.Errors,
	})
}
