package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Program struct {
	ID      uuid.UUID
	Title   string
	Summary string
	Body    string
	Showcase
	CreatedAt time.Time
	UpdatedAt time.Time
}

// ListShowcasesOption filters programs, projects and timeline entries.
type ListShowcasesOption struct {
	Skip   int
	Limit  int
	SortBy string
	SortIn string

	Title string
	// Status applies to projects only.
	Status string
}

type ProgramInput struct {
	Title   *string
	Summary *string
	Body    *string
	Gallery GalleryUpdate
}

func (u Usecase) ListPrograms(ctx context.Context, opt ListShowcasesOption) ([]Program, int, error) {
	return u.repo.ListPrograms(ctx, opt)
}

func (u Usecase) GetProgramByID(ctx context.Context, id uuid.UUID) (Program, error) {
	return u.repo.GetProgramByID(ctx, id)
}

func (u Usecase) CreateProgram(ctx context.Context, in ProgramInput) (Program, error) {
	var p Program
	in.apply(&p)
	if p.Title == "" {
		return Program{}, invalid("title_required", "title is required")
	}

	next, toDelete, err := u.reconcileShowcase(ctx, Showcase{}, in.Gallery, FolderPrograms)
	if err != nil {
		return Program{}, err
	}
	p.Showcase = next

	created, err := u.repo.CreateProgram(ctx, p)
	u.settle(ctx, nil, next.Owned(), toDelete, err)
	if err != nil {
		return Program{}, err
	}
	return created, nil
}

func (u Usecase) UpdateProgram(ctx context.Context, id uuid.UUID, in ProgramInput) (Program, error) {
	current, err := u.repo.GetProgramByID(ctx, id)
	if err != nil {
		return Program{}, err
	}
	p := current
	in.apply(&p)
	if p.Title == "" {
		return Program{}, invalid("title_required", "title is required")
	}

	next, toDelete, err := u.reconcileShowcase(ctx, current.Showcase, in.Gallery, FolderPrograms)
	if err != nil {
		return Program{}, err
	}
	p.Showcase = next

	updated, err := u.repo.UpdateProgram(ctx, p)
	u.settle(ctx, current.Owned(), next.Owned(), toDelete, err)
	if err != nil {
		return Program{}, err
	}
	return updated, nil
}

func (u Usecase) DeleteProgram(ctx context.Context, id uuid.UUID) error {
	p, err := u.repo.GetProgramByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.repo.DeleteProgram(ctx, id); err != nil {
		return err
	}
	u.cleaner.Release(ctx, p.Owned()...)
	return nil
}

func (in ProgramInput) apply(p *Program) {
	if in.Title != nil {
		p.Title = strings.TrimSpace(*in.Title)
	}
	if in.Summary != nil {
		p.Summary = strings.TrimSpace(*in.Summary)
	}
	if in.Body != nil {
		p.Body = *in.Body
	}
}
