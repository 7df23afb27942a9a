package domain

import "time"

// DefaultHistoryLimit caps how many records are kept per user.
const DefaultHistoryLimit = 100

// ReferenceInfo describes the uploaded reference image of an image-to-image run.
type ReferenceInfo struct {
	Filename string `json:"filename,omitempty"`
	MIMEType string `json:"mimeType"`
	Size     int    `json:"size"`
}

// HistoryRecord is one completed generation request.
type HistoryRecord struct {
	ID             string         `json:"id"`
	UserID         string         `json:"userId"`
	Mode           Mode           `json:"mode"`
	OriginalPrompt string         `json:"originalPrompt"`
	FinalPrompt    string         `json:"finalPrompt"`
	Enhanced       bool           `json:"enhanced"`
	Fields         PromptFields   `json:"fields"`
	Reference      *ReferenceInfo `json:"reference,omitempty"`
	RequestedCount int            `json:"requestedCount"`
	GeneratedCount int            `json:"generatedCount"`
	ImageURLs      []string       `json:"imageUrls"`
	CreatedAt      time.Time      `json:"createdAt"`
}

// HistoryPage is a window over a user's history, newest first.
type HistoryPage struct {
	Records []HistoryRecord `json:"records"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}
