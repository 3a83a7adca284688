package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/replaysMike/Binner-sub003/internal/bom/dto"
	"github.com/replaysMike/Binner-sub003/internal/bom/entity"
	"github.com/replaysMike/Binner-sub003/internal/bom/events"
	"github.com/replaysMike/Binner-sub003/internal/bom/repository"
	"github.com/replaysMike/Binner-sub003/internal/metrics"
)

// ProjectService 项目服务
type ProjectService struct {
	changeNotifier
	repos   *repository.Repositories
	metrics *metrics.Metrics
}

func NewProjectService(repos *repository.Repositories, cache SnapshotCache, hub *events.Hub, m *metrics.Metrics) *ProjectService {
	return &ProjectService{changeNotifier: changeNotifier{cache: cache, hub: hub}, repos: repos, metrics: m}
}

// List 获取项目列表
func (s *ProjectService) List(ctx context.Context, userID string) ([]dto.ProjectView, error) {
	summaries, err := s.repos.Project.List(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list projects: %w", err)
	}
	views := make([]dto.ProjectView, 0, len(summaries))
	for _, p := range summaries {
		views = append(views, toProjectSummaryView(p))
	}
	return views, nil
}

// Create 创建项目
func (s *ProjectService) Create(ctx context.Context, userID string, req *dto.CreateProjectRequest) (*dto.ProjectView, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if err := s.ensureUniqueName(ctx, userID, name, 0); err != nil {
		return nil, err
	}

	now := time.Now()
	project := &entity.Project{
		UserID:      userID,
		Name:        name,
		Description: req.Description,
		Location:    req.Location,
		Color:       req.Color,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := s.repos.Project.Create(ctx, project); err != nil {
		return nil, fmt.Errorf("create project: %w", err)
	}
	s.metrics.RecordOperation("create_project")

	view := toProjectView(project)
	return &view, nil
}

// Update 更新项目
func (s *ProjectService) Update(ctx context.Context, userID string, req *dto.UpdateProjectRequest) (*dto.ProjectView, error) {
	project, err := s.repos.Project.FindByID(ctx, userID, req.ProjectID)
	if err != nil {
		return nil, lookup(err, "project", req.ProjectID)
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, invalid("name is required")
	}
	if err := s.ensureUniqueName(ctx, userID, name, project.ID); err != nil {
		return nil, err
	}

	project.Name = name
	project.Description = req.Description
	project.Location = req.Location
	project.Color = req.Color
	project.UpdatedAt = time.Now()
	if err := s.repos.Project.Update(ctx, project); err != nil {
		return nil, fmt.Errorf("update project: %w", err)
	}
	s.changed(ctx, userID, req.ProjectID, "update_project")
	s.metrics.RecordOperation("update_project")

	view := toProjectView(project)
	return &view, nil
}

// Delete 删除项目 (PCBs, line items and history included)
func (s *ProjectService) Delete(ctx context.Context, userID string, projectID int64) error {
	if _, err := s.repos.Project.FindByID(ctx, userID, projectID); err != nil {
		return lookup(err, "project", projectID)
	}
	err := s.repos.Transaction(ctx, func(tx *repository.Repositories) error {
		return tx.Project.Delete(ctx, projectID)
	})
	if err != nil {
		return fmt.Errorf("delete project: %w", err)
	}
	s.changed(ctx, userID, projectID, "delete_project")
	s.metrics.RecordOperation("delete_project")
	return nil
}

func (s *ProjectService) ensureUniqueName(ctx context.Context, userID, name string, excludeID int64) error {
	exists, err := s.repos.Project.ExistsByName(ctx, userID, name, excludeID)
	if err != nil {
		return fmt.Errorf("check project name: %w", err)
	}
	if exists {
		return conflict("a project named %q already exists", name)
	}
	return nil
}
