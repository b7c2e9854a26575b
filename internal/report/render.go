package report

import (
	"fmt"
	"io"
	"strconv"

	"github.com/fatih/color"

	"github.com/hazz-dev/shipcheck/internal/console"
	"github.com/hazz-dev/shipcheck/internal/probe"
)

// Render writes the summary table, the pass/fail counts and the
// recommendations to w.
func Render(w io.Writer, r *Report) error {
	console.Heading(w, "VERIFICATION SUMMARY")

	data := make([][]string, 0, 2*len(r.Outcomes))
	for _, o := range r.Outcomes {
		for _, res := range []probe.Result{o.Health, o.Functional} {
			data = append(data, []string{
				o.Endpoint.Name,
				o.Endpoint.Kind,
				string(res.Probe),
				res.Status(),
				statusCode(res),
				detail(res),
			})
		}
	}

	table, err := console.Table([]string{"ENDPOINT", "KIND", "PROBE", "RESULT", "STATUS", "DETAIL"}, data)
	if err != nil {
		return fmt.Errorf("rendering summary: %w", err)
	}
	io.WriteString(w, table) // nolint:errcheck

	passed, failed := r.Counts()
	kind := console.Success
	if failed > 0 {
		kind = console.Warning
	}
	console.Fprint(w, kind, "%d passed, %d failed", passed, failed)

	console.Heading(w, "RECOMMENDATIONS")
	for _, a := range r.Advice {
		console.Fprint(w, levelColor(a.Level), "%s", a.Text)
		for _, c := range a.Checks {
			console.Fprint(w, console.Plain, "   - %s", c)
		}
	}

	if r.Passed() {
		console.Fprint(w, console.Success, "\nVerification passed (primary endpoint %q is serving requests).", r.Primary)
	} else {
		console.Fprint(w, console.Error, "\nVerification failed (primary endpoint %q is not serving requests).", r.Primary)
	}
	return nil
}

func levelColor(l Level) color.Attribute {
	switch l {
	case LevelOK:
		return console.Success
	case LevelNote:
		return console.Warning
	default:
		return console.Error
	}
}

func statusCode(res probe.Result) string {
	if res.StatusCode == 0 {
		return "-"
	}
	return strconv.Itoa(res.StatusCode)
}

func detail(res probe.Result) string {
	if res.Success {
		return res.Snippet
	}
	if res.Detail == "" {
		return string(res.Error)
	}
	return fmt.Sprintf("%s: %s", res.Error, res.Detail)
}
