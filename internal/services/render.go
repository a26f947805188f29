package services

import (
	"fmt"
	"io"
	"strings"

	"github.com/google/uuid"

	"alfredoptarigan/resume-registry/internal/models"
)

var fieldLabels = map[models.Field]string{
	models.FieldName:          "Name",
	models.FieldEmail:         "Email",
	models.FieldContact:       "Contact",
	models.FieldAddress:       "Address",
	models.FieldSkills:        "Skills",
	models.FieldQualification: "Qualification",
}

const separator = "----------------------------------------"

func renderResumes(w io.Writer, resumes []models.Resume, edits map[uuid.UUID]EditState) error {
	var b strings.Builder

	b.WriteString("== Resumes ==\n")
	b.WriteString(separator + "\n")

	for i, r := range resumes {
		if i > 0 {
			b.WriteString(separator + "\n")
		}
		fmt.Fprintf(&b, "ID: %s\n", r.ID)

		fields := r.Fields()
		for _, f := range models.AllFields {
			fmt.Fprintf(&b, "%s: %s\n", fieldLabels[f], fields.Get(f))
		}
		b.WriteString("[Delete] [Update Name]\n")

		if state, ok := edits[r.ID]; ok && state.Open {
			b.WriteString("  -- Update Name --\n")
			fmt.Fprintf(&b, "  > %s\n", state.Input)
			b.WriteString("  [Update] [Cancel]\n")
		}
	}

	b.WriteString(separator + "\n")

	_, err := io.WriteString(w, b.String())
	return err
}

// FieldLabel returns the form label of a field.
func FieldLabel(f models.Field) string {
	return fieldLabels[f]
}
