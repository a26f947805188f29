package models

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Field names one of the free-text columns of a resume.
type Field string

const (
	FieldName          Field = "name"
	FieldEmail         Field = "email"
	FieldContact       Field = "contact"
	FieldAddress       Field = "address"
	FieldSkills        Field = "skills"
	FieldQualification Field = "qualification"
)

// AllFields lists the text fields in form order.
var AllFields = []Field{
	FieldName,
	FieldEmail,
	FieldContact,
	FieldAddress,
	FieldSkills,
	FieldQualification,
}

var ErrUnknownField = errors.New("unknown resume field")

func ParseField(s string) (Field, error) {
	for _, f := range AllFields {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownField, s)
}

type Resume struct {
	ID            uuid.UUID `gorm:"type:uuid;primary_key" json:"id"`
	Name          string    `gorm:"type:text;index" json:"name"`
	Email         string    `gorm:"type:text" json:"email"`
	Contact       string    `gorm:"type:text" json:"contact"`
	Address       string    `gorm:"type:text" json:"address"`
	Skills        string    `gorm:"type:text" json:"skills"`
	Qualification string    `gorm:"type:text" json:"qualification"`
	CreatedAt     time.Time `gorm:"type:timestamp;default:now()" json:"created_at"`
	UpdatedAt     time.Time `gorm:"type:timestamp;default:now()" json:"updated_at"`
}

func (Resume) TableName() string {
	return "resumes"
}

// NewResume builds a record with a fresh identifier from the given fields.
func NewResume(fields ResumeFields) *Resume {
	now := time.Now()
	return &Resume{
		ID:            uuid.New(),
		Name:          fields.Name,
		Email:         fields.Email,
		Contact:       fields.Contact,
		Address:       fields.Address,
		Skills:        fields.Skills,
		Qualification: fields.Qualification,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

func (r Resume) Fields() ResumeFields {
	return ResumeFields{
		Name:          r.Name,
		Email:         r.Email,
		Contact:       r.Contact,
		Address:       r.Address,
		Skills:        r.Skills,
		Qualification: r.Qualification,
	}
}

// ResumeFields holds the six user-editable values of a resume. It doubles as
// the form draft of a record that has not been created yet.
type ResumeFields struct {
	Name          string `json:"name"`
	Email         string `json:"email"`
	Contact       string `json:"contact"`
	Address       string `json:"address"`
	Skills        string `json:"skills"`
	Qualification string `json:"qualification"`
}

func (f ResumeFields) Get(field Field) string {
	switch field {
	case FieldName:
		return f.Name
	case FieldEmail:
		return f.Email
	case FieldContact:
		return f.Contact
	case FieldAddress:
		return f.Address
	case FieldSkills:
		return f.Skills
	case FieldQualification:
		return f.Qualification
	}
	return ""
}

func (f *ResumeFields) Set(field Field, value string) error {
	switch field {
	case FieldName:
		f.Name = value
	case FieldEmail:
		f.Email = value
	case FieldContact:
		f.Contact = value
	case FieldAddress:
		f.Address = value
	case FieldSkills:
		f.Skills = value
	case FieldQualification:
		f.Qualification = value
	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, field)
	}
	return nil
}

func (f ResumeFields) IsEmpty() bool {
	return f == ResumeFields{}
}

// ResumeUpdate is a partial update: only non-nil fields are written.
type ResumeUpdate struct {
	Name          *string `json:"name,omitempty"`
	Email         *string `json:"email,omitempty"`
	Contact       *string `json:"contact,omitempty"`
	Address       *string `json:"address,omitempty"`
	Skills        *string `json:"skills,omitempty"`
	Qualification *string `json:"qualification,omitempty"`
}

func (u ResumeUpdate) IsEmpty() bool {
	return u.Name == nil && u.Email == nil && u.Contact == nil &&
		u.Address == nil && u.Skills == nil && u.Qualification == nil
}

// Columns maps the set fields to their column names.
func (u ResumeUpdate) Columns() map[string]interface{} {
	columns := make(map[string]interface{})
	if u.Name != nil {
		columns[string(FieldName)] = *u.Name
	}
	if u.Email != nil {
		columns[string(FieldEmail)] = *u.Email
	}
	if u.Contact != nil {
		columns[string(FieldContact)] = *u.Contact
	}
	if u.Address != nil {
		columns[string(FieldAddress)] = *u.Address
	}
	if u.Skills != nil {
		columns[string(FieldSkills)] = *u.Skills
	}
	if u.Qualification != nil {
		columns[string(FieldQualification)] = *u.Qualification
	}
	return columns
}

// Apply writes the set fields onto r.
func (u ResumeUpdate) Apply(r *Resume) {
	if u.Name != nil {
		r.Name = *u.Name
	}
	if u.Email != nil {
		r.Email = *u.Email
	}
	if u.Contact != nil {
		r.Contact = *u.Contact
	}
	if u.Address != nil {
		r.Address = *u.Address
	}
	if u.Skills != nil {
		r.Skills = *u.Skills
	}
	if u.Qualification != nil {
		r.Qualification = *u.Qualification
	}
}
