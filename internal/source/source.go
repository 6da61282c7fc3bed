// Package source supplies construction project batches from the demo set,
// a seeded generator, or a CKAN open-data endpoint.
package source

import (
	"context"
	"errors"
	"log"
	"time"

	"github.com/zulandar/buildwatch/internal/project"
)

// Source fetches a batch of assembled projects.
type Source interface {
	Name() string
	FetchProjects(ctx context.Context) ([]project.ConstructionProject, error)
}

// ErrEmpty is returned when a source answers with no usable records.
var ErrEmpty = errors.New("source: no projects returned")

// Batch is one fetch result and the source that served it.
type Batch struct {
	Projects  []project.ConstructionProject
	Source    string
	FetchedAt time.Time
	// PrimaryErr is why the fallback was served; nil when the primary
	// source answered.
	PrimaryErr error
}

// FellBack reports whether the batch came from the fallback source.
func (b Batch) FellBack() bool { return b.PrimaryErr != nil }

// Fallback serves Secondary whenever Primary fails or comes back empty.
type Fallback struct {
	Primary   Source
	Secondary Source
	Now       func() time.Time
}

// NewFallback returns a Fallback over primary and secondary.
func NewFallback(primary, secondary Source) *Fallback {
	return &Fallback{Primary: primary, Secondary: secondary, Now: time.Now}
}

// Name reports the primary source's name.
func (f *Fallback) Name() string { return f.Primary.Name() }

// FetchProjects returns the projects of FetchBatch. It only errors when both
// sources fail.
func (f *Fallback) FetchProjects(ctx context.Context) ([]project.ConstructionProject, error) {
	b, err := f.FetchBatch(ctx)
	if err != nil {
		return nil, err
	}
	return b.Projects, nil
}

// FetchBatch fetches from Primary, falling back to Secondary on error or an
// empty result. The primary error is logged and recorded on the batch.
func (f *Fallback) FetchBatch(ctx context.Context) (Batch, error) {
	now := time.Now
	if f.Now != nil {
		now = f.Now
	}

	projects, err := f.Primary.FetchProjects(ctx)
	if err == nil && len(projects) == 0 {
		err = ErrEmpty
	}
	if err == nil {
		return Batch{Projects: projects, Source: f.Primary.Name(), FetchedAt: now()}, nil
	}
	if f.Secondary == nil {
		return Batch{}, err
	}
	if ctx.Err() != nil {
		return Batch{}, ctx.Err()
	}

	log.Printf("source: %s unavailable, serving %s: %v", f.Primary.Name(), f.Secondary.Name(), err)
	fallback, ferr := f.Secondary.FetchProjects(ctx)
	if ferr != nil {
		return Batch{}, ferr
	}
	return Batch{
		Projects:   fallback,
		Source:     f.Secondary.Name(),
		FetchedAt:  now(),
		PrimaryErr: err,
	}, nil
}
