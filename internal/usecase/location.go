package usecase

import (
	"context"
	"errors"
	"fmt"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/ErlanBelekov/locations-api/internal/metrics"
	"github.com/ErlanBelekov/locations-api/internal/repository"
	"github.com/ErlanBelekov/locations-api/internal/validate"
)

type LocationUsecase struct {
	repo repository.LocationRepository
}

func NewLocationUsecase(repo repository.LocationRepository) *LocationUsecase {
	return &LocationUsecase{repo: repo}
}

// schema builds the rule set. With partial set every field is optional, and
// the slug uniqueness check ignores the record identified by selfID.
func (u *LocationUsecase) schema(partial bool, selfID string) validate.Schema {
	slugInUse := func(ctx context.Context, slug string) (bool, error) {
		return u.repo.SlugExists(ctx, slug, selfID)
	}
	return validate.Schema{
		{Name: "name", Sometimes: partial, Checks: []validate.Check{validate.String(), validate.Max(255)}},
		{Name: "slug", Sometimes: partial, Checks: []validate.Check{
			validate.String(), validate.Max(255), validate.Unique(slugInUse),
		}},
		{Name: "zip", Sometimes: partial, Checks: []validate.Check{validate.String(), validate.Max(10)}},
	}
}

func (u *LocationUsecase) ListLocations(ctx context.Context) ([]*domain.Location, error) {
	locations, err := u.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list locations: %w", err)
	}
	return locations, nil
}

// CreateLocation trims string values, validates, and stores the location.
func (u *LocationUsecase) CreateLocation(ctx context.Context, in validate.Input) (*domain.Location, error) {
	in = in.TrimStrings()
	if err := u.schema(false, "").Validate(ctx, in); err != nil {
		return nil, err
	}

	name, _ := in.String("name")
	slug, _ := in.String("slug")
	zip, _ := in.String("zip")

	created, err := u.repo.Create(ctx, &domain.Location{Name: name, Slug: slug, Zip: zip})
	if err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			return nil, slugTaken()
		}
		return nil, fmt.Errorf("create location: %w", err)
	}
	metrics.LocationMutationsTotal.WithLabelValues("create").Inc()
	return created, nil
}

func (u *LocationUsecase) GetLocation(ctx context.Context, id string) (*domain.Location, error) {
	l, err := u.repo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}
	return l, nil
}

// UpdateLocation applies only the fields present in in. A missing id is
// reported before validation runs. String values are trimmed as in
// CreateLocation.
func (u *LocationUsecase) UpdateLocation(ctx context.Context, id string, in validate.Input) (*domain.Location, error) {
	if _, err := u.repo.GetByID(ctx, id); err != nil {
		return nil, fmt.Errorf("get location: %w", err)
	}

	in = in.TrimStrings()
	if err := u.schema(true, id).Validate(ctx, in); err != nil {
		return nil, err
	}

	updated, err := u.repo.Update(ctx, id, domain.LocationPatch{
		Name: in.StringPtr("name"),
		Slug: in.StringPtr("slug"),
		Zip:  in.StringPtr("zip"),
	})
	if err != nil {
		if errors.Is(err, domain.ErrSlugTaken) {
			return nil, slugTaken()
		}
		return nil, fmt.Errorf("update location: %w", err)
	}
	metrics.LocationMutationsTotal.WithLabelValues("update").Inc()
	return updated, nil
}

func (u *LocationUsecase) DeleteLocation(ctx context.Context, id string) error {
	if err := u.repo.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete location: %w", err)
	}
	metrics.LocationMutationsTotal.WithLabelValues("delete").Inc()
	return nil
}

func slugTaken() *domain.ValidationError {
	verr := domain.NewValidationError()
	verr.Add("slug", "The slug has already been taken.")
	return verr
}
