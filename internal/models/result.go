package models

import "github.com/google/uuid"

type CreateResumeResponse struct {
	ID string `json:"id"`
}

type ResumeListResponse struct {
	Resumes []Resume `json:"resumes"`
	Count   int      `json:"count"`
}

// ChangeOp is the kind of write that produced a change event.
type ChangeOp string

const (
	OpCreate ChangeOp = "create"
	OpUpdate ChangeOp = "update"
	OpDelete ChangeOp = "delete"
)

// ChangeEvent announces that the resume collection changed. Subscribers
// never receive it directly; it only triggers a fresh full snapshot.
type ChangeEvent struct {
	Op       ChangeOp  `json:"op"`
	ResumeID uuid.UUID `json:"resume_id"`
}
