package usecase

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
)

type TimelineEntry struct {
	ID          uuid.UUID
	Title       string
	Description string
	OccurredOn  time.Time
	Showcase
	CreatedAt time.Time
	UpdatedAt time.Time
}

type TimelineEntryInput struct {
	Title       *string
	Description *string
	OccurredOn  *time.Time
	Gallery     GalleryUpdate
}

func (u Usecase) ListTimelineEntries(ctx context.Context, opt ListShowcasesOption) ([]TimelineEntry, int, error) {
	if opt.SortBy == "" {
		opt.SortBy = "occurred_on"
	}
	return u.repo.ListTimelineEntries(ctx, opt)
}

func (u Usecase) GetTimelineEntryByID(ctx context.Context, id uuid.UUID) (TimelineEntry, error) {
	return u.repo.GetTimelineEntryByID(ctx, id)
}

func (u Usecase) CreateTimelineEntry(ctx context.Context, in TimelineEntryInput) (TimelineEntry, error) {
	var e TimelineEntry
	if err := in.apply(&e); err != nil {
		return TimelineEntry{}, err
	}

	next, toDelete, err := u.reconcileShowcase(ctx, Showcase{}, in.Gallery, FolderTimeline)
	if err != nil {
		return TimelineEntry{}, err
	}
	e.Showcase = next

	created, err := u.repo.CreateTimelineEntry(ctx, e)
	u.settle(ctx, nil, next.Owned(), toDelete, err)
	if err != nil {
		return TimelineEntry{}, err
	}
	return created, nil
}

func (u Usecase) UpdateTimelineEntry(ctx context.Context, id uuid.UUID, in TimelineEntryInput) (TimelineEntry, error) {
	current, err := u.repo.GetTimelineEntryByID(ctx, id)
	if err != nil {
		return TimelineEntry{}, err
	}
	e := current
	if err := in.apply(&e); err != nil {
		return TimelineEntry{}, err
	}

	next, toDelete, err := u.reconcileShowcase(ctx, current.Showcase, in.Gallery, FolderTimeline)
	if err != nil {
		return TimelineEntry{}, err
	}
	e.Showcase = next

	updated, err := u.repo.UpdateTimelineEntry(ctx, e)
	u.settle(ctx, current.Owned(), next.Owned(), toDelete, err)
	if err != nil {
		return TimelineEntry{}, err
	}
	return updated, nil
}

func (u Usecase) DeleteTimelineEntry(ctx context.Context, id uuid.UUID) error {
	e, err := u.repo.GetTimelineEntryByID(ctx, id)
	if err != nil {
		return err
	}
	if err := u.repo.DeleteTimelineEntry(ctx, id); err != nil {
		return err
	}
	u.cleaner.Release(ctx, e.Owned()...)
	return nil
}

func (in TimelineEntryInput) apply(e *TimelineEntry) error {
	if in.Title != nil {
		e.Title = strings.TrimSpace(*in.Title)
	}
	if in.Description != nil {
		e.Description = strings.TrimSpace(*in.Description)
	}
	if in.OccurredOn != nil {
		e.OccurredOn = in.OccurredOn.UTC().Truncate(24 * time.Hour)
	}
	if e.Title == "" {
		return invalid("title_required", "title is required")
	}
	if e.OccurredOn.IsZero() {
		return invalid("occurred_on_required", "occurred_on is required")
	}
	return nil
}
