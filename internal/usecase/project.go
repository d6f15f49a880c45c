package usecase

import (
	"context"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
)

const (
	ProjectStatusPlanned   = "planned"
	ProjectStatusActive    = "active"
	ProjectStatusCompleted = "completed"
)

var projectStatuses = []string{ProjectStatusPlanned, ProjectStatusActive, ProjectStatusCompleted}

type Project struct {
	ID      uuid.UUID
	Title   string
	Summary string
	Status  string
	Showcase
	CreatedAt time.Time
	UpdatedAt time.Time
}

type ProjectInput struct {
	Title   *string
	Summary *string
	Status  *string
	Gallery GalleryUpdate
}

func (u Usecase) ListProjects(ctx context.Context, opt ListShowcasesOption) ([]Project, int, error) {
	return u.repo.ListProjects(ctx, opt)
}

func (u Usecase) GetProjectByID(ctx context.Context, id uuid.UUID) (Project, error) {
	return u.repo.GetProjectByID(ctx, id)
}

func (u Usecase) CreateProject(ctx context.Context, in ProjectInput) (Project, error) {
	p := Project{Status: ProjectStatusPlanned}
	if err := in.apply(&p); err != nil {
		return Project{}, err
	}

	next, toDelete, err := u.reconcileShowcase(ctx, Showcase{}, in.Gallery, FolderProjects)
	if err != nil {
		return Project{}, err
	}
	p.Showcase = next

	created, err := u.repo.CreateProject(ctx, p)
	u.settle(ctx, nil, next.Owned(), toDelete, err)
	if err != nil {
		return Project{}, err
	}
	return created, nil
}

func (u Usecase) UpdateProject(ctx context.Context, id uuid.UUID, in ProjectInput) (Project, error) {
	current, err := u.repo.GetProjectByID(ctx, id)
	if err != nil {
		return Project{}, err
	}
	p := current
	if err := in.apply(&p); err != nil {
		return Project{}, err
	}

	next, toDelete, err := u.reconcileShowcase(ctx, current.Showcase, in.Gallery, FolderProjects)
	if err != nil {
		return Project{}, err
	}
	p.Showcase = next

	updated, err := u.repo.UpdateProject(ctx, p)
	u.settle(ctx, current.Owned(), next.Owned(), toDelete, err)
	if err != nil {
		return Project{}, err
	}
	return updated, nil
}

func (u Usecase) DeleteProject(ctx context.Context, id uuid.UUID) error {
	p, err := u.repo.GetProjectByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.repo.DeleteProject(ctx, id); err != nil {
		return err
	}
	u.cleaner.Release(ctx, p.Owned()...)
	return nil
}

func (in ProjectInput) apply(p *Project) error {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Summary != nil {
		p.Summary = strings.TrimSpace(*in.Summary)
	}
	if in.Status != nil {
		s := strings.ToLower(strings.TrimSpace(*in.Status))
		if !slices.Contains(projectStatuses, s) {
			return invalid("invalid_status", "status must be one of planned, active, completed")
		}
		p.Status = s
	}
	if p.Title == "" {
		return invalid("title_required", "title is required")
	}
	return nil
}
