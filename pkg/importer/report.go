package importer

import (
	"time"

	"github.com/google/uuid"
)

// ReportV1 is the machine-readable record of one import run, written
// next to the annotated spreadsheet. The webhook URL is stored redacted.
type ReportV1 struct {
	SchemaVersion  int       `json:"schema_version"`
	RunID          string    `json:"run_id"`
	Webhook        string    `json:"webhook"`
	Input          string    `json:"input"`
	Output         string    `json:"output,omitempty"`
	DuplicateCheck bool      `json:"duplicate_check"`
	DryRun         bool      `json:"dry_run"`
	StartedAt      time.Time `json:"started_at"`
	FinishedAt     time.Time `json:"finished_at"`
	Summary        Summary   `json:"summary"`
	Rows           []Outcome `json:"rows"`
}

func NewReport(redactedWebhook, input string, opts Options) *ReportV1 {
	return &ReportV1{
		SchemaVersion:  1,
		RunID:          uuid.NewString(),
		Webhook:        redactedWebhook,
		Input:          input,
		DuplicateCheck: opts.DuplicateCheck,
		DryRun:         opts.DryRun,
		StartedAt:      time.Now().UTC(),
	}
}

func (r *ReportV1) Finish(output string, outcomes []Outcome, summary Summary) {
	r.Output = output
	r.Rows = outcomes
	r.Summary = summary
	r.FinishedAt = time.Now().UTC()
}
