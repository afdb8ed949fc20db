package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/iota-uz/bitrix-import/pkg/bitrix"
	"github.com/iota-uz/bitrix-import/pkg/configuration"
	"github.com/iota-uz/bitrix-import/pkg/importer"
	"github.com/iota-uz/bitrix-import/pkg/spreadsheet"
)

// resultColumn is appended to the output spreadsheet; every row gets the
// created or matched contact ID, failed rows stay empty.
const resultColumn = "BITRIX_ID"

type importOptions struct {
	input          string
	mappingPath    string
	webhook        string
	duplicateCheck bool
	dryRun         bool
	verbose        bool
	reportPath     string
}

func newImportCmd() *cobra.Command {
	var opts importOptions
	cfg := configuration.Use()

	cmd := &cobra.Command{
		Use:   "import --input <spreadsheet> --mapping <mapping.json>",
		Short: "Create a contact per spreadsheet row and write the annotated copy",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input spreadsheet (.csv or .xlsx, required)")
	cmd.Flags().StringVar(&opts.mappingPath, "mapping", "", "Mapping file produced by the map command (required)")
	cmd.Flags().StringVar(&opts.webhook, "webhook", "", "Full Bitrix24 inbound webhook URL (overrides BITRIX_WEBHOOK_URL)")
	cmd.Flags().BoolVar(&opts.duplicateCheck, "duplicate-check", cfg.DuplicateCheck, "Skip rows whose email or phone already matches a contact")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "Build payloads without calling the portal")
	cmd.Flags().BoolVar(&opts.verbose, "verbose", false, "Print one JSON line per row outcome")
	cmd.Flags().StringVar(&opts.reportPath, "report", "", "Report file path (default: next to the output spreadsheet)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("mapping")

	return cmd
}

func runImport(cmd *cobra.Command, opts importOptions) error {
	ctx := cmd.Context()
	cfg := configuration.Use()

	webhook, err := resolveWebhook(opts.webhook)
	if err != nil {
		return err
	}

	headers, rows, err := spreadsheet.Load(opts.input)
	if err != nil {
		return withCode(exitValidation, err)
	}

	client, err := bitrix.NewClient(webhook)
	if err != nil {
		return withCode(exitUsage, err)
	}

	// One schema fetch per run; without it no mapping can be trusted,
	// so any failure here aborts before a single row is touched.
	fields, err := client.FetchContactFields(ctx)
	if err != nil {
		return withCode(exitRemote, err)
	}

	mapping, err := importer.LoadMapping(opts.mappingPath)
	if err != nil {
		return withCode(exitValidation, err)
	}
	if err := mapping.Validate(headers, fields); err != nil {
		return withCode(exitValidation, fmt.Errorf("mapping %s: %w", opts.mappingPath, err))
	}

	runOpts := importer.Options{DuplicateCheck: opts.duplicateCheck, DryRun: opts.dryRun}
	report := importer.NewReport(configuration.RedactWebhook(webhook), opts.input, runOpts)
	runner := importer.NewRunner(client, mapping, runOpts, cfg.Logger())

	outcomes, annotated, summary, err := runner.Run(ctx, headers, rows)
	if err != nil {
		return fmt.Errorf("import interrupted: %w", err)
	}

	if opts.verbose {
		for _, o := range outcomes {
			if err := writeJSONLine(cmd.OutOrStdout(), o); err != nil {
				return err
			}
		}
	}

	outPath := ""
	if !opts.dryRun {
		outPath, err = spreadsheet.Save(opts.input, cfg.OutputSuffix, append(headers, resultColumn), annotated)
		if err != nil {
			return withCode(exitWrite, err)
		}
	}

	report.Finish(outPath, outcomes, summary)
	reportPath := opts.reportPath
	if reportPath == "" {
		reportPath = reportPathFor(opts.input, cfg.OutputSuffix)
	}
	if err := writeJSONFile(reportPath, report); err != nil {
		return err
	}

	return writeJSONLine(cmd.OutOrStdout(), importResultLine{
		Mode:    mode(opts.dryRun),
		Rows:    summary.Total(),
		Created: summary.Created,
		Skipped: summary.Skipped,
		Failed:  summary.Failed,
		Planned: summary.Planned,
		Output:  outPath,
		Report:  reportPath,
	})
}

type importResultLine struct {
	Mode    string `json:"mode"`
	Rows    int    `json:"rows"`
	Created int    `json:"created"`
	Skipped int    `json:"skipped_as_duplicate"`
	Failed  int    `json:"failed"`
	Planned int    `json:"planned,omitempty"`
	Output  string `json:"output,omitempty"`
	Report  string `json:"report"`
}

func mode(dryRun bool) string {
	if dryRun {
		return "dry_run"
	}
	return "applied"
}

// reportPathFor puts the report next to the annotated spreadsheet:
// contacts.xlsx -> contacts_bitrix_imported_report.json.
func reportPathFor(input, suffix string) string {
	base := spreadsheet.OutputPath(input, suffix)
	ext := strings.LastIndex(base, ".")
	if ext < 0 {
		return base + "_report.json"
	}
	return base[:ext] + "_report.json"
}
