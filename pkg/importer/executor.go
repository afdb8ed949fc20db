package importer

import (
	"context"

	"github.com/sirupsen/logrus"

	"github.com/iota-uz/bitrix-import/pkg/bitrix"
)

// CRM is the remote side of the pipeline. *bitrix.Client satisfies it;
// tests substitute fakes.
type CRM interface {
	FindContact(ctx context.Context, email, phone string) (string, error)
	AddContact(ctx context.Context, fields map[string]any) (string, error)
}

type Status string

const (
	StatusCreated Status = "created"
	StatusSkipped Status = "skipped_duplicate"
	StatusFailed  Status = "failed"
	StatusPlanned Status = "planned" // dry run only
)

// Outcome is the terminal state of one row. Row numbering matches the
// spreadsheet: the first data row is 2.
type Outcome struct {
	Row       int    `json:"row"`
	Status    Status `json:"status"`
	ContactID string `json:"contact_id,omitempty"`
	Error     string `json:"error,omitempty"`
}

type Summary struct {
	Created int `json:"created"`
	Skipped int `json:"skipped_as_duplicate"`
	Failed  int `json:"failed"`
	Planned int `json:"planned,omitempty"`
}

func (s Summary) Total() int {
	return s.Created + s.Skipped + s.Failed + s.Planned
}

type Options struct {
	DuplicateCheck bool
	DryRun         bool
}

type Runner struct {
	crm     CRM
	mapping Mapping
	opts    Options
	log     *logrus.Logger
}

func NewRunner(crm CRM, mapping Mapping, opts Options, log *logrus.Logger) *Runner {
	return &Runner{crm: crm, mapping: mapping, opts: opts, log: log}
}

// Run walks every row in order and produces exactly one outcome per row.
// A row failure never aborts the loop; only context cancellation does.
// The returned rows are the input rows padded to the header width with
// the result ID appended, ready for spreadsheet.Save.
func (r *Runner) Run(ctx context.Context, headers []string, rows [][]string) ([]Outcome, [][]string, Summary, error) {
	outcomes := make([]Outcome, 0, len(rows))
	annotated := make([][]string, 0, len(rows))
	var summary Summary

	for i, row := range rows {
		if err := ctx.Err(); err != nil {
			return outcomes, annotated, summary, err
		}

		outcome := r.processRow(ctx, i+2, row)
		outcomes = append(outcomes, outcome)
		annotated = append(annotated, annotateRow(row, len(headers), outcome.ContactID))

		switch outcome.Status {
		case StatusCreated:
			summary.Created++
		case StatusSkipped:
			summary.Skipped++
		case StatusFailed:
			summary.Failed++
		case StatusPlanned:
			summary.Planned++
		}
	}
	return outcomes, annotated, summary, nil
}

func (r *Runner) processRow(ctx context.Context, rowNum int, row []string) Outcome {
	payload := BuildPayload(r.mapping, row)

	if r.opts.DryRun {
		return Outcome{Row: rowNum, Status: StatusPlanned}
	}

	if r.opts.DuplicateCheck {
		email := primaryValue(payload, bitrix.FieldEmail)
		phone := primaryValue(payload, bitrix.FieldPhone)
		if email != "" || phone != "" {
			existingID, err := r.crm.FindContact(ctx, email, phone)
			if err != nil {
				r.log.WithFields(logrus.Fields{"row": rowNum, "error": err}).Warn("duplicate lookup failed")
				return Outcome{Row: rowNum, Status: StatusFailed, Error: err.Error()}
			}
			if existingID != "" {
				r.log.WithFields(logrus.Fields{"row": rowNum, "contact_id": existingID}).Debug("duplicate found, skipping")
				return Outcome{Row: rowNum, Status: StatusSkipped, ContactID: existingID}
			}
		}
	}

	newID, err := r.crm.AddContact(ctx, payload)
	if err != nil {
		r.log.WithFields(logrus.Fields{"row": rowNum, "error": err}).Warn("contact create failed")
		return Outcome{Row: rowNum, Status: StatusFailed, Error: err.Error()}
	}
	r.log.WithFields(logrus.Fields{"row": rowNum, "contact_id": newID}).Debug("contact created")
	return Outcome{Row: rowNum, Status: StatusCreated, ContactID: newID}
}

// annotateRow pads a ragged row to the header width and appends the
// result cell, so the ID column is always the trailing one.
func annotateRow(row []string, width int, contactID string) []string {
	out := make([]string, width, width+1)
	copy(out, row)
	if len(row) > width {
		out = append([]string{}, row...)
	}
	return append(out, contactID)
}
