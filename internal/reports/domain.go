package reports

import (
	"time"

	"github.com/casinha/portal/internal/rbac"
)

// Report is a document published by an area, with files kept in object storage.
type Report struct {
	ID          int64        `json:"id"`
	Title       string       `json:"title"`
	Area        rbac.Area    `json:"area"`
	Summary     string       `json:"summary"`
	AuthorID    int64        `json:"authorId"`
	CreatedAt   time.Time    `json:"createdAt"`
	Attachments []Attachment `json:"attachments"`
}

// Attachment is one file of a report. URLs are filled per response and never stored.
type Attachment struct {
	ID          int64  `json:"id"`
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	ObjectKey   string `json:"-"`
	UploadURL   string `json:"uploadUrl,omitempty"`
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// CreateInput is the payload accepted by create.
type CreateInput struct {
	Title       string            `json:"title" validate:"required,min=3,max=160"`
	Area        string            `json:"area" validate:"required"`
	Summary     string            `json:"summary" validate:"max=2000"`
	Attachments []AttachmentInput `json:"attachments" validate:"max=10,dive"`
}

// AttachmentInput declares a file the client is about to upload.
type AttachmentInput struct {
	FileName    string `json:"fileName" validate:"required,max=200"`
	ContentType string `json:"contentType" validate:"max=100"`
}
