package headhunter

import (
	"context"
	"fmt"
	"strings"

	"github.com/mitchellh/mapstructure"
	"github.com/spigell/compass/internal/experience"
)

type Resumes struct {
	Items []*Resume
}

type Resume struct {
	Title string `mapstructure:"title"`
	ID    string `mapstructure:"id"`
}

type ResumeDetails struct {
	ID    string
	Title string
	Raw   map[string]any
}

// WorkExperience is one entry of the "experience" section of an hh.ru resume.
type WorkExperience struct {
	Position string `mapstructure:"position"`
	Company  string `mapstructure:"company"`
	Area     *struct {
		Name string `mapstructure:"name"`
	} `mapstructure:"area"`
	Start string  `mapstructure:"start"`
	End   *string `mapstructure:"end"`
}

type itemsResponse struct {
	Items []map[string]any `json:"items"`
}

func (c *Client) getResumes(ctx context.Context, id string) (*Resumes, error) {
	var response itemsResponse
	if err := c.getJSON(ctx, fmt.Sprintf("%s/resumes/%s", c.APIURL, id), &response); err != nil {
		return nil, err
	}

	var resumes []*Resume
	if err := mapstructure.Decode(response.Items, &resumes); err != nil {
		return nil, err
	}

	return &Resumes{
		Items: resumes,
	}, nil
}

func (r *Resumes) Len() int {
	return len(r.Items)
}

func (r *Resumes) Titles() []string {
	titles := make([]string, 0, len(r.Items))

	for _, v := range r.Items {
		titles = append(titles, v.Title)
	}

	return titles
}

func (r *Resumes) FindByTitle(title string) *Resume {
	for _, resume := range r.Items {
		if resume.Title == title {
			return resume
		}
	}

	return nil
}

func (c *Client) GetResumeDetails(ctx context.Context, id string) (*ResumeDetails, error) {
	if id == "" {
		return nil, fmt.Errorf("resume id is required")
	}

	var raw map[string]any
	if err := c.getJSON(ctx, fmt.Sprintf("%s/resumes/%s", c.APIURL, id), &raw); err != nil {
		return nil, err
	}

	if raw == nil {
		raw = make(map[string]any)
	}

	return &ResumeDetails{
		ID:    valueAsString(raw["id"]),
		Title: valueAsString(raw["title"]),
		Raw:   raw,
	}, nil
}

// WorkExperience decodes the experience section of the resume.
func (d *ResumeDetails) WorkExperience() ([]WorkExperience, error) {
	var items []WorkExperience
	if err := mapstructure.Decode(d.Raw["experience"], &items); err != nil {
		return nil, fmt.Errorf("decoding resume experience: %w", err)
	}

	return items, nil
}

// ExperienceOperations turns every experience entry of the resume into an ADD operation.
// Entries on hh.ru are paid employment; an open end date is left unmentioned.
func (d *ResumeDetails) ExperienceOperations() ([]experience.ProposedOperation, error) {
	items, err := d.WorkExperience()
	if err != nil {
		return nil, err
	}

	ops := make([]experience.ProposedOperation, 0, len(items))
	for _, item := range items {
		op := experience.ProposedOperation{
			Operation: experience.OperationAdd.String(),
			Title:     text(item.Position),
			Employer:  text(item.Company),
			StartDate: text(item.Start),
			PaidWork:  experience.SetTo(true),
			WorkType:  experience.SetTo(experience.WorkTypeWagedEmployee),
		}
		if item.Area != nil {
			op.Location = text(item.Area.Name)
		}
		if item.End != nil {
			op.EndDate = text(*item.End)
		}
		ops = append(ops, op)
	}

	return ops, nil
}

func text(s string) experience.Field[string] {
	if s = strings.TrimSpace(s); s == "" {
		return experience.Unset[string]()
	}
	return experience.SetTo(s)
}

func valueAsString(v any) string {
	if v == nil {
		return ""
	}

	switch typed := v.(type) {
	case string:
		return typed
	case fmt.Stringer:
		return typed.String()
	default:
		return fmt.Sprintf("%v", v)
	}
}
