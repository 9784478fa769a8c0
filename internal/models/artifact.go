package models

import "time"

// Artifact is the single downloadable movie produced by an export
type Artifact struct {
	Data      []byte    `json:"-"`
	MIMEType  string    `json:"mime_type"`
	Extension string    `json:"extension"`
	Filename  string    `json:"filename,omitempty"`
	Path      string    `json:"path,omitempty"`
	Size      int64     `json:"size"`
	CreatedAt time.Time `json:"created_at"`
}
