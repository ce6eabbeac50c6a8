// internal/model/dispatch.go
package model

import "strings"

// Attachment is a media payload for a send. Media is a URL or base64 data
// URI, exactly as the gateway accepts it.
type Attachment struct {
	Media    string `json:"media"`
	FileName string `json:"file_name"`
	MimeType string `json:"mime_type"`
}

// MediaType classifies the attachment for the gateway by MIME prefix:
// image, video, audio, or document for everything else.
func (a *Attachment) MediaType() string {
	switch {
	case strings.HasPrefix(a.MimeType, "image/"):
		return "image"
	case strings.HasPrefix(a.MimeType, "video/"):
		return "video"
	case strings.HasPrefix(a.MimeType, "audio/"):
		return "audio"
	default:
		return "document"
	}
}

// DispatchResult is the transient outcome of a bulk send run.
type DispatchResult struct {
	Total  int `json:"total"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}

// DispatchProgress is reported to callers after every send attempt.
type DispatchProgress struct {
	Recipient string `json:"recipient"`
	Sent      int    `json:"sent"`
	Failed    int    `json:"failed"`
	Error     string `json:"error,omitempty"`
}
