package main

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/iota-uz/bitrix-import/pkg/importer"
	"github.com/iota-uz/bitrix-import/pkg/spreadsheet"
)

func newPortalServer(t *testing.T) *httptest.Server {
	t.Helper()
	nextID := 41
	mux := http.NewServeMux()

	mux.HandleFunc("/rest/1/tok/crm.contact.fields.json", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{
			"result": map[string]any{
				"NAME":  map[string]any{"type": "string", "title": "First name"},
				"EMAIL": map[string]any{"type": "crm_multifield", "title": "E-mail"},
				"PHONE": map[string]any{"type": "crm_multifield", "title": "Phone"},
			},
		})
	})

	mux.HandleFunc("/rest/1/tok/crm.contact.list.json", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Filter map[string]string `json:"filter"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Filter["EMAIL"] == "dup@x.com" {
			_ = json.NewEncoder(w).Encode(map[string]any{"result": []map[string]string{{"ID": "7"}}})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"result": []any{}})
	})

	mux.HandleFunc("/rest/1/tok/crm.contact.add.json", func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Fields map[string]any `json:"fields"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		if req.Fields["NAME"] == "Bad Row" {
			w.WriteHeader(http.StatusBadRequest)
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error":             "ERROR_CORE",
				"error_description": "required field missing",
			})
			return
		}
		nextID++
		_ = json.NewEncoder(w).Encode(map[string]any{"result": nextID})
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func writeImportFixtures(t *testing.T, dir string) (input, mappingPath string) {
	t.Helper()
	input = filepath.Join(dir, "contacts.csv")
	csv := "Name,Email,Phone\n" +
		"Jane Doe,jane@x.com,\n" +
		"Dup Person,dup@x.com,\n" +
		"Bad Row,bad@x.com,\n"
	if err := os.WriteFile(input, []byte(csv), 0o644); err != nil {
		t.Fatalf("write input: %v", err)
	}

	mappingPath = filepath.Join(dir, "mapping.json")
	m := importer.Mapping{Entries: []importer.MappingEntry{
		{Column: 0, Header: "Name", Field: "NAME"},
		{Column: 1, Header: "Email", Field: "EMAIL"},
		{Column: 2, Header: "Phone"},
	}}
	if err := importer.SaveMapping(mappingPath, m); err != nil {
		t.Fatalf("write mapping: %v", err)
	}
	return input, mappingPath
}

func TestImportCmd_EndToEnd(t *testing.T) {
	srv := newPortalServer(t)
	dir := t.TempDir()
	input, mappingPath := writeImportFixtures(t, dir)

	root := newRootCmd()
	root.SetArgs([]string{
		"import",
		"--input", input,
		"--mapping", mappingPath,
		"--webhook", srv.URL + "/rest/1/tok/",
	})
	var out strings.Builder
	root.SetOut(&out)

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var line struct {
		Mode    string `json:"mode"`
		Rows    int    `json:"rows"`
		Created int    `json:"created"`
		Skipped int    `json:"skipped_as_duplicate"`
		Failed  int    `json:"failed"`
		Output  string `json:"output"`
		Report  string `json:"report"`
	}
	if err := json.Unmarshal([]byte(out.String()), &line); err != nil {
		t.Fatalf("decode summary line: %v\n%s", err, out.String())
	}
	if line.Mode != "applied" || line.Rows != 3 || line.Created != 1 || line.Skipped != 1 || line.Failed != 1 {
		t.Fatalf("unexpected summary: %+v", line)
	}
	if line.Created+line.Skipped+line.Failed != line.Rows {
		t.Fatalf("summary counts do not add up: %+v", line)
	}

	headers, rows, err := spreadsheet.Load(line.Output)
	if err != nil {
		t.Fatalf("load output: %v", err)
	}
	if got := headers[len(headers)-1]; got != "BITRIX_ID" {
		t.Fatalf("expected trailing BITRIX_ID column, got %q", got)
	}
	if len(rows) != 3 {
		t.Fatalf("expected 3 rows, got %d", len(rows))
	}
	if rows[0][3] != "42" {
		t.Fatalf("created row should carry new id, got %q", rows[0][3])
	}
	if rows[1][3] != "7" {
		t.Fatalf("duplicate row should carry existing id, got %q", rows[1][3])
	}
	if rows[2][3] != "" {
		t.Fatalf("failed row should stay empty, got %q", rows[2][3])
	}

	var report importer.ReportV1
	b, err := os.ReadFile(line.Report)
	if err != nil {
		t.Fatalf("read report: %v", err)
	}
	if err := json.Unmarshal(b, &report); err != nil {
		t.Fatalf("decode report: %v", err)
	}
	if report.SchemaVersion != 1 || len(report.Rows) != 3 {
		t.Fatalf("unexpected report: %+v", report)
	}
	if strings.Contains(report.Webhook, "tok") {
		t.Fatalf("report webhook must be redacted: %q", report.Webhook)
	}
}

func TestImportCmd_DryRunWritesNoSpreadsheet(t *testing.T) {
	srv := newPortalServer(t)
	dir := t.TempDir()
	input, mappingPath := writeImportFixtures(t, dir)

	root := newRootCmd()
	root.SetArgs([]string{
		"import",
		"--input", input,
		"--mapping", mappingPath,
		"--webhook", srv.URL + "/rest/1/tok/",
		"--dry-run",
	})
	var out strings.Builder
	root.SetOut(&out)

	if err := root.Execute(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(out.String(), `"mode":"dry_run"`) {
		t.Fatalf("expected dry_run summary, got %s", out.String())
	}
	if _, err := os.Stat(filepath.Join(dir, "contacts_bitrix_imported.csv")); !os.IsNotExist(err) {
		t.Fatalf("dry run must not write the output spreadsheet")
	}
}

func TestImportCmd_SchemaFetchFailureAborts(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/rest/1/tok/crm.contact.fields.json", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_ = json.NewEncoder(w).Encode(map[string]any{"error": "INVALID_CREDENTIALS"})
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	dir := t.TempDir()
	input, mappingPath := writeImportFixtures(t, dir)

	root := newRootCmd()
	root.SetArgs([]string{
		"import",
		"--input", input,
		"--mapping", mappingPath,
		"--webhook", srv.URL + "/rest/1/tok/",
	})
	root.SetOut(&strings.Builder{})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := exitCode(err); got != exitRemote {
		t.Fatalf("expected exit code %d, got %d", exitRemote, got)
	}
	if _, statErr := os.Stat(filepath.Join(dir, "contacts_bitrix_imported.csv")); !os.IsNotExist(statErr) {
		t.Fatalf("aborted run must not write output")
	}
}

func TestImportCmd_BadInputFileIsValidationError(t *testing.T) {
	srv := newPortalServer(t)
	dir := t.TempDir()
	_, mappingPath := writeImportFixtures(t, dir)

	root := newRootCmd()
	root.SetArgs([]string{
		"import",
		"--input", filepath.Join(dir, "missing.csv"),
		"--mapping", mappingPath,
		"--webhook", srv.URL + "/rest/1/tok/",
	})
	root.SetOut(&strings.Builder{})

	err := root.Execute()
	if err == nil {
		t.Fatalf("expected error")
	}
	if got := exitCode(err); got != exitValidation {
		t.Fatalf("expected exit code %d, got %d", exitValidation, got)
	}
}

func TestReportPathFor(t *testing.T) {
	got := reportPathFor("/tmp/contacts.xlsx", "_bitrix_imported")
	want := "/tmp/contacts_bitrix_imported_report.json"
	if got != want {
		t.Fatalf("got %q want %q", got, want)
	}
}

func TestExitCode(t *testing.T) {
	if got := exitCode(nil); got != exitOK {
		t.Fatalf("nil error: got %d", got)
	}
	if got := exitCode(fmt.Errorf("plain")); got != 1 {
		t.Fatalf("plain error: got %d", got)
	}
	wrapped := fmt.Errorf("outer: %w", withCode(exitUsage, fmt.Errorf("inner")))
	if got := exitCode(wrapped); got != exitUsage {
		t.Fatalf("wrapped cliError: got %d", got)
	}
}
