package main

import (
	"bufio"
	"fmt"
	"sort"
	"strings"

	"github.com/lithammer/fuzzysearch/fuzzy"
	"github.com/spf13/cobra"

	"github.com/iota-uz/bitrix-import/pkg/bitrix"
	"github.com/iota-uz/bitrix-import/pkg/importer"
	"github.com/iota-uz/bitrix-import/pkg/spreadsheet"
)

type mapOptions struct {
	input   string
	webhook string
	out     string
	auto    bool
}

func newMapCmd() *cobra.Command {
	var opts mapOptions

	cmd := &cobra.Command{
		Use:   "map --input <spreadsheet> --out <mapping.json>",
		Short: "Build a column-to-field mapping file for an import",
		Long: `Reads the spreadsheet header row, fetches the portal's importable
contact fields, and writes a mapping file. With --auto each column is
matched to the closest field by name; otherwise every column is prompted
for on stdin (empty input accepts the suggestion, "-" leaves the column
unmapped).`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMap(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.input, "input", "", "Input spreadsheet (.csv or .xlsx, required)")
	cmd.Flags().StringVar(&opts.out, "out", "mapping.json", "Mapping file to write")
	cmd.Flags().StringVar(&opts.webhook, "webhook", "", "Full Bitrix24 inbound webhook URL (overrides BITRIX_WEBHOOK_URL)")
	cmd.Flags().BoolVar(&opts.auto, "auto", false, "Accept fuzzy-matched suggestions without prompting")
	_ = cmd.MarkFlagRequired("input")

	return cmd
}

func runMap(cmd *cobra.Command, opts mapOptions) error {
	webhook, err := resolveWebhook(opts.webhook)
	if err != nil {
		return err
	}

	headers, _, err := spreadsheet.Load(opts.input)
	if err != nil {
		return withCode(exitValidation, err)
	}

	client, err := bitrix.NewClient(webhook)
	if err != nil {
		return withCode(exitUsage, err)
	}
	fields, err := client.FetchContactFields(cmd.Context())
	if err != nil {
		return withCode(exitRemote, err)
	}

	known := make(map[string]struct{}, len(fields))
	for _, f := range fields {
		known[f.ID] = struct{}{}
	}

	var mapping importer.Mapping
	in := bufio.NewScanner(cmd.InOrStdin())
	out := cmd.OutOrStdout()

	if !opts.auto {
		fmt.Fprintln(out, "Available fields:")
		for _, f := range fields {
			fmt.Fprintf(out, "  %-24s %s\n", f.ID, f.Label)
		}
	}

	interactive := !opts.auto
	for i, header := range headers {
		suggestion := suggestField(header, fields)
		field := suggestion

		if interactive {
			fmt.Fprintf(out, "column %d %q -> [%s]: ", i, header, orDash(suggestion))
			if !in.Scan() {
				interactive = false // EOF: accept remaining suggestions
			} else {
				switch answer := strings.ToUpper(strings.TrimSpace(in.Text())); answer {
				case "":
				case "-":
					field = ""
				default:
					if _, ok := known[answer]; !ok {
						return withCode(exitValidation, fmt.Errorf("column %d: unknown field %q", i, answer))
					}
					field = answer
				}
			}
		}

		mapping.Entries = append(mapping.Entries, importer.MappingEntry{
			Column: i,
			Header: header,
			Field:  field,
		})
	}
	if err := in.Err(); err != nil {
		return withCode(exitUsage, fmt.Errorf("read answers: %w", err))
	}

	if err := mapping.Validate(headers, fields); err != nil {
		return withCode(exitValidation, err)
	}
	if err := importer.SaveMapping(opts.out, mapping); err != nil {
		return withCode(exitWrite, err)
	}

	fmt.Fprintf(out, "wrote %s (%d of %d columns mapped)\n", opts.out, len(mapping.Mapped()), len(headers))
	return nil
}

// suggestField fuzzy-matches a column header against field labels and
// identifiers and returns the closest field ID, or "" when nothing fits.
func suggestField(header string, fields []bitrix.Field) string {
	header = strings.TrimSpace(header)
	if header == "" {
		return ""
	}

	targets := make([]string, 0, len(fields)*2)
	idByTarget := make(map[string]string, len(fields)*2)
	for _, f := range fields {
		for _, tgt := range []string{f.Label, f.ID} {
			if _, dup := idByTarget[tgt]; dup {
				continue
			}
			targets = append(targets, tgt)
			idByTarget[tgt] = f.ID
		}
	}

	ranks := fuzzy.RankFindNormalizedFold(header, targets)
	if len(ranks) == 0 {
		return ""
	}
	sort.Sort(ranks)
	return idByTarget[ranks[0].Target]
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
