package app

import (
	"context"

	"github.com/songzhibin97/adminconsole/internal/resource"
	"github.com/songzhibin97/adminconsole/pkg/console"
)

// MentorDirectory is the mentors page: one page of mentors together with
// the full career field lookup used to label them.
type MentorDirectory struct {
	Mentors      *resource.Controller[console.Mentor]
	CareerFields *resource.Controller[console.CareerField]
}

// OpenMentorDirectory opens the controllers of the mentors page.
func (a *App) OpenMentorDirectory() *MentorDirectory {
	return &MentorDirectory{
		Mentors:      a.Mentors(),
		CareerFields: a.CareerFields(),
	}
}

// Load fetches the mentors page and the career fields concurrently. Both
// controllers are updated only when both fetches succeed.
func (d *MentorDirectory) Load(ctx context.Context, page, limit int) error {
	var (
		mentors console.ListResult[console.Mentor]
		fields  console.ListResult[console.CareerField]
	)

	err := resource.Join(ctx,
		func(ctx context.Context) error {
			var err error
			mentors, err = d.Mentors.Fetch(ctx, page, limit)
			return err
		},
		func(ctx context.Context) error {
			var err error
			fields, err = d.CareerFields.Fetch(ctx, 1, 0)
			return err
		},
	)
	if err != nil {
		return err
	}

	if err := d.Mentors.Apply(mentors, page, limit); err != nil {
		return err
	}
	return d.CareerFields.Apply(fields, 1, 0)
}

// FieldName resolves a career field identifier to its name, falling back
// to the name embedded in the mentor or the bare identifier.
func (d *MentorDirectory) FieldName(rel console.Relation) string {
	for _, f := range d.CareerFields.Current().Items {
		if f.ID == rel.ID {
			return f.Name
		}
	}
	if rel.Name != "" {
		return rel.Name
	}
	return rel.ID
}

// Close detaches both controllers.
func (d *MentorDirectory) Close() {
	d.Mentors.Close()
	d.CareerFields.Close()
}
