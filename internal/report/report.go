package report

import (
	"encoding/json"
	"fmt"
	htmltemplate "html/template"
	"io"
	"text/template"
	"time"
)

// Summary contains aggregated counts about one collection run.
type Summary struct {
	RunID     string        `json:"run_id"`
	Output    string        `json:"output"`
	StartTime time.Time     `json:"start_time"`
	EndTime   time.Time     `json:"end_time"`
	Duration  time.Duration `json:"duration"`

	// Snapshot identifiers seen on the site, already stored, and left to fetch.
	Enumerated int `json:"enumerated"`
	Persisted  int `json:"persisted"`
	Pending    int `json:"pending"`

	// Outcomes of the pending snapshots.
	Appended     int      `json:"appended"`
	Empty        int      `json:"empty"`
	Failed       int      `json:"failed"`
	RowsAppended int      `json:"rows_appended"`
	FailedIDs    []string `json:"failed_ids,omitempty"`
}

// Headline returns the one-line message printed before any snapshot is
// fetched.
func Headline(output string, pending int) string {
	if pending == 0 {
		return fmt.Sprintf("All ranking dates are already present in %s.", output)
	}
	return fmt.Sprintf("Found %d new ranking dates to process.", pending)
}

// WriteJSON writes the summary to the provided writer in JSON format.
func WriteJSON(w io.Writer, summary Summary) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(summary); err != nil {
		return fmt.Errorf("encode summary: %w", err)
	}
	return nil
}

// WriteText writes a human-readable text summary to the provided writer.
func WriteText(w io.Writer, summary Summary) error {
	const textTmpl = `Rankwatch Run Summary
---------------------
Run:           {{.RunID}}
Output:        {{.Output}}
Time:          {{.StartTime.Format "2006-01-02 15:04:05"}} - {{.EndTime.Format "2006-01-02 15:04:05"}}
Duration:      {{.Duration}}

Ranking dates: {{.Enumerated}} listed, {{.Persisted}} stored, {{.Pending}} new
Appended:      {{.Appended}} ({{.RowsAppended}} rows)
Empty:         {{.Empty}}
Failed:        {{.Failed}}
{{- range .FailedIDs}}
  {{.}}
{{- end}}
`

	t, err := template.New("textReport").Parse(textTmpl)
	if err != nil {
		return fmt.Errorf("parse text template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render text summary: %w", err)
	}

	return nil
}

// WriteHTML writes a basic HTML report to the provided writer. Identifiers
// come from the remote site and are escaped.
func WriteHTML(w io.Writer, summary Summary) error {
	const htmlTmpl = `<!DOCTYPE html>
<html>
<head>
<title>Rankwatch Run Report</title>
<style>
  body { font-family: sans-serif; margin: 40px; color: #333; }
  h1 { border-bottom: 2px solid #ccc; padding-bottom: 10px; }
  .stat-card { display: inline-block; padding: 20px; margin: 10px 10px 10px 0; background: #f4f4f4; border-radius: 5px; min-width: 150px; }
  .stat-val { font-size: 24px; font-weight: bold; }
  ul { margin-top: 10px; }
</style>
</head>
<body>
  <h1>Rankwatch Run Report</h1>
  <p><strong>Run:</strong> {{.RunID}} writing to <code>{{.Output}}</code></p>
  <p><strong>Time:</strong> {{.StartTime.Format "2006-01-02 15:04:05"}} to {{.EndTime.Format "2006-01-02 15:04:05"}} ({{.Duration}})</p>

  <div class="stat-card">
    <div>New Ranking Dates</div>
    <div class="stat-val">{{.Pending}} / {{.Enumerated}}</div>
  </div>
  <div class="stat-card">
    <div>Appended</div>
    <div class="stat-val">{{.Appended}}</div>
  </div>
  <div class="stat-card">
    <div>Rows</div>
    <div class="stat-val">{{.RowsAppended}}</div>
  </div>
  <div class="stat-card">
    <div>Failed</div>
    <div class="stat-val" style="color: {{if gt .Failed 0}}red{{else}}green{{end}};">{{.Failed}}</div>
  </div>

  <h3>Failed Ranking Dates</h3>
  <ul>
    {{- range .FailedIDs}}
    <li>{{.}}</li>
    {{- else}}
    <li>None</li>
    {{- end}}
  </ul>
</body>
</html>
`
	t, err := htmltemplate.New("htmlReport").Parse(htmlTmpl)
	if err != nil {
		return fmt.Errorf("parse html template: %w", err)
	}

	if err := t.Execute(w, summary); err != nil {
		return fmt.Errorf("render html summary: %w", err)
	}

	return nil
}

// Write renders summary in the named format: text, json or html.
func Write(w io.Writer, format string, summary Summary) error {
	switch format {
	case "", "text":
		return WriteText(w, summary)
	case "json":
		return WriteJSON(w, summary)
	case "html":
		return WriteHTML(w, summary)
	default:
		return fmt.Errorf("unknown summary format %q", format)
	}
}
