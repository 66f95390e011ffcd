package printer

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/nightconcept/almandine/internal/cmd/output"
)

var _ output.Printer[DependencyStatus] = (*DependencyListPrinter)(nil)

var (
	projectNameColor    = color.New(color.FgMagenta, color.Bold, color.Underline)
	projectVersionColor = color.New(color.FgMagenta)
	projectPathColor    = color.New(color.FgHiBlack, color.Bold, color.Underline)
	headingColor        = color.New(color.FgCyan, color.Bold)
	depNameColor        = color.New(color.FgWhite)
	depHashColor        = color.New(color.FgYellow)
	depPathColor        = color.New(color.FgHiBlack)
)

// Project identifies the project a dependency listing belongs to.
type Project struct {
	Name    string
	Version string
	Dir     string
}

// DependencyListPrinter prints one line per dependency: name, locked hash and path.
type DependencyListPrinter struct {
	headerFunc output.WriteFunc[DependencyStatus]
	footerFunc output.WriteFunc[DependencyStatus]
}

func NewDependencyListPrinter(project Project) *DependencyListPrinter {
	return &DependencyListPrinter{
		headerFunc: DependencyListHeader(project),
	}
}

func (p *DependencyListPrinter) Header(w io.Writer, count int) {
	if p.headerFunc != nil {
		p.headerFunc(w, count)
	}
}

func (p *DependencyListPrinter) SetHeader(fn output.WriteFunc[DependencyStatus]) {
	p.headerFunc = fn
}

func (p *DependencyListPrinter) Item(w io.Writer, dep DependencyStatus) error {
	line := fmt.Sprintf(
		"%s %s %s",
		depNameColor.Sprint(dep.Name),
		depHashColor.Sprint(dep.LockLabel()),
		depPathColor.Sprint(dep.Path),
	)
	if dep.File != FileOK && dep.File != "" {
		line += " " + warningColor.Sprintf("(%s)", dep.File)
	}

	_, err := fmt.Fprintln(w, line)
	return err
}

func (p *DependencyListPrinter) Footer(w io.Writer, count int) {
	if p.footerFunc != nil {
		p.footerFunc(w, count)
	}
}

func (p *DependencyListPrinter) SetFooter(fn output.WriteFunc[DependencyStatus]) {
	p.footerFunc = fn
}

// DependencyListHeader prints 'name@version dir' followed by the dependencies heading.
func DependencyListHeader(project Project) output.WriteFunc[DependencyStatus] {
	return func(w io.Writer, _ int) {
		ProjectHeader(w, project)
	}
}

// ProjectHeader writes the project line and the dependencies heading.
func ProjectHeader(w io.Writer, project Project) {
	_, _ = fmt.Fprintf(
		w,
		"%s@%s %s\n\n",
		projectNameColor.Sprint(project.Name),
		projectVersionColor.Sprint(project.Version),
		projectPathColor.Sprint(project.Dir),
	)
	_, _ = fmt.Fprintln(w, headingColor.Sprint("dependencies:"))
}
