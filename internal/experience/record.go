// Package experience keeps the list of work experiences collected from a conversation
// and folds producer-proposed changes into it.
package experience

import (
	"fmt"
	"strings"
)

// WorkType classifies the kind of work an experience describes.
type WorkType string

const (
	WorkTypeWagedEmployee          WorkType = "WAGED_EMPLOYEE"
	WorkTypeSelfEmployment         WorkType = "SELF_EMPLOYMENT"
	WorkTypeUnseenUnpaid           WorkType = "UNSEEN_UNPAID"
	WorkTypeFormalSectorUnpaidWork WorkType = "FORMAL_SECTOR_UNPAID_TRAINEE_WORK"
)

var workTypes = []WorkType{
	WorkTypeWagedEmployee,
	WorkTypeSelfEmployment,
	WorkTypeUnseenUnpaid,
	WorkTypeFormalSectorUnpaidWork,
}

// ParseWorkType matches raw case-insensitively against the known work types.
func ParseWorkType(raw string) (WorkType, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(raw))
	for _, wt := range workTypes {
		if string(wt) == normalized {
			return wt, true
		}
	}
	return "", false
}

// Record is a collected work experience.
// Pointer fields are nil when the value was never provided. The values they point to
// are never modified in place, so records can be copied shallowly.
type Record struct {
	Index               int    `json:"index" yaml:"index"`
	UUID                string `json:"uuid" yaml:"uuid"`
	DefinedAtTurnNumber int    `json:"defined_at_turn_number" yaml:"defined_at_turn_number"`

	Title     *string   `json:"experience_title,omitempty" yaml:"experience_title,omitempty"`
	Employer  *string   `json:"company,omitempty" yaml:"company,omitempty"`
	Location  *string   `json:"location,omitempty" yaml:"location,omitempty"`
	StartDate *string   `json:"start_date,omitempty" yaml:"start_date,omitempty"`
	EndDate   *string   `json:"end_date,omitempty" yaml:"end_date,omitempty"`
	PaidWork  *bool     `json:"paid_work,omitempty" yaml:"paid_work,omitempty"`
	WorkType  *WorkType `json:"work_type,omitempty" yaml:"work_type,omitempty"`
}

// ProposedOperation is one change suggested by a producer for the current turn.
// Index addresses the record for UPDATE, DELETE and NOOP; it is ignored by ADD.
// Decoded operations without an index carry -1.
type ProposedOperation struct {
	Operation string `mapstructure:"operation"`
	Index     int    `mapstructure:"index"`

	Title     Field[string]   `mapstructure:"experience_title"`
	Employer  Field[string]   `mapstructure:"company"`
	Location  Field[string]   `mapstructure:"location"`
	StartDate Field[string]   `mapstructure:"start_date"`
	EndDate   Field[string]   `mapstructure:"end_date"`
	PaidWork  Field[bool]     `mapstructure:"paid_work"`
	WorkType  Field[WorkType] `mapstructure:"work_type"`
}

type optional[T comparable] struct {
	set   bool
	value T
}

func optionalOf[T comparable](p *T) optional[T] {
	if p == nil {
		return optional[T]{}
	}
	return optional[T]{set: true, value: *p}
}

// facts holds every field taking part in duplicate and emptiness checks.
type facts struct {
	title, employer, location, start, end optional[string]
	paidWork                              optional[bool]
	workType                              optional[WorkType]
}

func (r Record) facts() facts {
	return facts{
		title:    optionalOf(r.Title),
		employer: optionalOf(r.Employer),
		location: optionalOf(r.Location),
		start:    optionalOf(r.StartDate),
		end:      optionalOf(r.EndDate),
		paidWork: optionalOf(r.PaidWork),
		workType: optionalOf(r.WorkType),
	}
}

// Equivalent reports whether both records describe the same facts,
// ignoring index, uuid and the turn they were defined at.
func (r Record) Equivalent(other Record) bool {
	return r.facts() == other.facts()
}

// IsEmpty reports whether no field carries a value.
func (r Record) IsEmpty() bool {
	for _, s := range []*string{r.Title, r.Employer, r.Location, r.StartDate, r.EndDate} {
		if s != nil && *s != "" {
			return false
		}
	}
	if r.PaidWork != nil {
		return false
	}
	return r.WorkType == nil || *r.WorkType == ""
}

// Label is a short human readable identifier used in logs and prompts.
func (r Record) Label() string {
	title := deref(r.Title)
	employer := deref(r.Employer)

	switch {
	case title != "" && employer != "":
		return fmt.Sprintf("%s at %s", title, employer)
	case title != "":
		return title
	case employer != "":
		return employer
	default:
		return fmt.Sprintf("experience #%d", r.Index)
	}
}

func (op ProposedOperation) applyTo(r Record) Record {
	empty := ""
	var noWorkType WorkType

	r.Title = op.Title.merge(r.Title, &empty)
	r.Employer = op.Employer.merge(r.Employer, &empty)
	r.Location = op.Location.merge(r.Location, &empty)
	r.StartDate = op.StartDate.merge(r.StartDate, &empty)
	r.EndDate = op.EndDate.merge(r.EndDate, &empty)
	r.PaidWork = op.PaidWork.merge(r.PaidWork, nil)
	r.WorkType = op.WorkType.merge(r.WorkType, &noWorkType)
	return r
}

// Ptr returns a pointer to a copy of v.
func Ptr[T any](v T) *T {
	return &v
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}
