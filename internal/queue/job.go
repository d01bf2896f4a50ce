package queue

import (
	"time"

	"github.com/wildanal2/ocr-ecosteps/constants"
)

// Job is one screenshot submitted for step-count extraction. ReportID is
// its identity: at most one job per report id may be queued or in flight.
type Job struct {
	ReportID    string
	UserID      string
	ImageSource string
	Environment constants.Environment
	SubmittedAt time.Time
	TraceID     string
}

// Summary is the registry preview exposed on the status endpoint.
type Summary struct {
	ReportID string `json:"report_id"`
	UserID   string `json:"user_id"`
	ImgURL   string `json:"img_url"`
}
