package journal

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"text/template"
	"time"
)

var runOrgFuncs = template.FuncMap{
	"date": func(t time.Time) string { return t.Format("2006-01-02") },
	"ms":   func(d time.Duration) string { return fmt.Sprintf("%.1f", float64(d)/float64(time.Millisecond)) },
	"orTime": func(t time.Time) time.Time {
		if t.IsZero() {
			return time.Now()
		}
		return t
	},
}

var runOrg = template.Must(template.New("run").Funcs(runOrgFuncs).Parse(RunOrgTemplate))

type orgView struct {
	RunRecord
	Cells     int
	ErrorList []ErrorRecord
}

// WriteOrg renders r and its errors as an Org mode section.
func (r RunRecord) WriteOrg(w io.Writer, errs []ErrorRecord) error {
	return runOrg.Execute(w, orgView{RunRecord: r, Cells: r.Cells(), ErrorList: errs})
}

// WriteOrgFile writes the Org section to path.
func (r RunRecord) WriteOrgFile(path string, errs []ErrorRecord) error {
	buf := new(bytes.Buffer)
	if err := r.WriteOrg(buf, errs); err != nil {
		return err
	}
	return os.WriteFile(path, buf.Bytes(), 0644)
}

const RunOrgTemplate = `
* VALUATION: {{if .Name}}{{.Name}}{{else}}(name?){{end}} {{date .AsOf}}
:PROPERTIES:
:RUN_ID:        {{.RunID}}
:CONFIGURATION: {{if .Configuration}}{{.Configuration}}{{else}}default{{end}}
:ASOF:          {{date .AsOf}}
:TRADES:        {{.Trades}}
:DATES:         {{.Dates}}
:SAMPLES:       {{.Samples}}
:DEPTH:         {{.Depth}}
:CELLS:         {{.Cells}}
:PRECISION:     {{.Precision}}
:OBSERVATION:   {{.ObservationMode}}
:WORKERS:       {{.Workers}}
:CUBE:          {{.CubePath}}
:STATUS:        {{.Status}}
:CREATED:       [{{(orTime .Created).Format "2006-01-02 Mon 15:04"}}]
:END:
{{- if .Message }}

{{.Message}}
{{- end }}

** Timings
| Phase   | ms |
|---------+----|
| T0      | {{ms .T0}} |
| Update  | {{ms .Update}} |
| Fixing  | {{ms .Fixing}} |
| Pricing | {{ms .Pricing}} |
| Total   | {{ms .Total}} |
{{- if .ErrorList }}

** Pricing Errors ({{.Errors}})
| Trade | Calculator | Date | Sample | Error |
|-------+------------+------+--------+-------|
{{- range .ErrorList }}
| {{.TradeID}} | {{.Calculator}} | {{date .Date}} | {{.Sample}} | {{.Message}} |
{{- end }}
{{- end }}
`
