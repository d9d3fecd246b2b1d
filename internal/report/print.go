// Package report renders report query results as plain-text tables.
package report

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/muesli/termenv"

	"jobmate/hh-loader/internal/model"
	"jobmate/hh-loader/internal/pipeline"
)

type ColorMode string

const (
	ColorAuto   ColorMode = "auto"
	ColorAlways ColorMode = "always"
	ColorNever  ColorMode = "never"
)

// Printer writes reports to an output stream.
type Printer struct {
	out    io.Writer
	output *termenv.Output
	color  bool
}

// NewPrinter returns a Printer writing to w. In auto mode headings are
// styled only when w is a color-capable terminal and NO_COLOR is unset.
func NewPrinter(w io.Writer, mode ColorMode) *Printer {
	output := termenv.NewOutput(w)
	return &Printer{out: w, output: output, color: shouldEnableColor(output, mode)}
}

func shouldEnableColor(output *termenv.Output, mode ColorMode) bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	switch mode {
	case ColorAlways:
		return true
	case ColorNever:
		return false
	default:
		return output.ColorProfile() != termenv.Ascii
	}
}

// Print writes all five reports in order.
func (p *Printer) Print(rep pipeline.Reports) error {
	steps := []func(pipeline.Reports) error{
		p.printCounts,
		p.printListing,
		p.printAvg,
		func(r pipeline.Reports) error {
			return p.printVacancies("Vacancies with salary above average", r.HigherSalary)
		},
		func(r pipeline.Reports) error {
			return p.printVacancies(fmt.Sprintf("Vacancies matching %q", r.Keyword), r.KeywordMatches)
		},
	}
	for _, step := range steps {
		if err := step(rep); err != nil {
			return err
		}
	}
	return nil
}

func (p *Printer) heading(title string) {
	if p.color {
		title = p.output.String(title).Bold().Foreground(p.output.Color("4")).String()
	}
	fmt.Fprintf(p.out, "\n%s\n", title)
}

func (p *Printer) table(header []string, rows [][]string) error {
	if len(rows) == 0 {
		_, err := fmt.Fprintln(p.out, "No results.")
		return err
	}
	tw := tabwriter.NewWriter(p.out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, strings.Join(header, "\t"))
	for _, row := range rows {
		fmt.Fprintln(tw, strings.Join(row, "\t"))
	}
	return tw.Flush()
}

func (p *Printer) printCounts(r pipeline.Reports) error {
	p.heading("Companies and vacancies")
	rows := make([][]string, 0, len(r.Counts))
	for _, c := range r.Counts {
		rows = append(rows, []string{c.Employer, strconv.Itoa(c.Vacancies)})
	}
	return p.table([]string{"EMPLOYER", "VACANCIES"}, rows)
}

func (p *Printer) printListing(r pipeline.Reports) error {
	p.heading("All vacancies")
	rows := make([][]string, 0, len(r.Listing))
	for _, l := range r.Listing {
		rows = append(rows, []string{l.Employer, l.Vacancy, strings.TrimSpace(l.Salary), l.URL})
	}
	return p.table([]string{"EMPLOYER", "VACANCY", "SALARY", "URL"}, rows)
}

func (p *Printer) printAvg(r pipeline.Reports) error {
	p.heading("Average salary")
	if r.AvgSalary == nil {
		_, err := fmt.Fprintln(p.out, "No salary data.")
		return err
	}
	_, err := fmt.Fprintf(p.out, "%.2f\n", *r.AvgSalary)
	return err
}

func (p *Printer) printVacancies(title string, vacancies []model.Vacancy) error {
	p.heading(title)
	rows := make([][]string, 0, len(vacancies))
	for _, v := range vacancies {
		rows = append(rows, []string{
			strconv.Itoa(v.ID), v.Name, strconv.Itoa(v.EmployerID), FormatSalary(v.Salary), v.Town, v.URL,
		})
	}
	return p.table([]string{"ID", "VACANCY", "EMPLOYER ID", "SALARY", "TOWN", "URL"}, rows)
}

// FormatSalary renders a salary as "from-to currency", omitting unknown
// parts. A nil salary renders as "-".
func FormatSalary(s *model.Salary) string {
	if s == nil || (s.From == nil && s.To == nil) {
		return "-"
	}
	var b strings.Builder
	if s.From != nil {
		b.WriteString(strconv.Itoa(*s.From))
	}
	b.WriteString("-")
	if s.To != nil {
		b.WriteString(strconv.Itoa(*s.To))
	}
	if s.Currency != nil && *s.Currency != "" {
		b.WriteString(" ")
		b.WriteString(*s.Currency)
	}
	return b.String()
}
