package printer

import (
	"errors"
	"fmt"
	"io"

	"github.com/fatih/color"

	errs "github.com/nightconcept/almandine/internal/errors"
	"github.com/nightconcept/almandine/internal/reconcile"
)

var (
	addedColor   = color.New(color.FgGreen)
	removedColor = color.New(color.FgRed)
	reasonColor  = color.New(color.FgHiBlack)
)

// Added writes '+ name label' in green.
func Added(w io.Writer, name, label string) {
	_, _ = fmt.Fprintln(w, addedColor.Sprintf("+ %s %s", name, label))
}

// Removed writes '- name label' in red.
func Removed(w io.Writer, name, label string) {
	_, _ = fmt.Fprintln(w, removedColor.Sprintf("- %s %s", name, label))
}

// Result writes the installed dependencies of a reconciliation followed by a progress summary to w.
// Failures are written to errW.
func Result(w io.Writer, errW io.Writer, res reconcile.Result) {
	if len(res.Installed) > 0 {
		_, _ = fmt.Fprintln(w, headingColor.Sprint("dependencies:"))
		for _, c := range res.Installed {
			_, _ = fmt.Fprintf(
				w,
				"%s %s\n",
				addedColor.Sprintf("+ %s %s", c.Name, c.Entry.Hash),
				reasonColor.Sprintf("(%s)", c.Reason),
			)
		}
	}

	failures(errW, res.Failures)

	_, _ = fmt.Fprintf(
		w,
		"Progress: installed %d, up to date %d, failed %d\n",
		len(res.Installed),
		len(res.UpToDate),
		len(res.Failures),
	)
}

// Plan writes what a reconciliation would do without doing it.
// Failures are written to errW.
func Plan(w io.Writer, errW io.Writer, plan reconcile.Plan) {
	for _, a := range plan.Actions {
		_, _ = fmt.Fprintf(w, "~ %s %s\n", a.Name, reasonColor.Sprintf("(%s)", a.Reason))
	}
	for _, name := range plan.UpToDate {
		_, _ = fmt.Fprintf(w, "= %s %s\n", name, reasonColor.Sprint("(up to date)"))
	}
	failures(errW, plan.Failures)
}

// failures writes one line per failed dependency.
// Integrity failures are followed by a tampering warning.
func failures(w io.Writer, fs []errs.DependencyError) {
	for _, f := range fs {
		Failure(w, "%s: %v", f.Name, f.Err)
		if errors.Is(f.Err, errs.ErrIntegrity) {
			Warning(w, "'%s' may have been tampered with, run 'almd update %s' only if the change is expected", f.Name, f.Name)
		}
	}
}
