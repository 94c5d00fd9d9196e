// Package ui provides the investigator-facing console dashboard: correlation
// and timeline tables, filtered record search, and report save/find dialogs.
// Every screen is a pure consumer of the session's outputs; no screen derives
// its own aggregates.
package ui

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/tracelens/trace-console/internal/artifact"
	"github.com/tracelens/trace-console/internal/correlate"
	"github.com/tracelens/trace-console/internal/report"
	"github.com/tracelens/trace-console/internal/session"
	"github.com/tracelens/trace-console/internal/view"
)

const (
	pageCorrelation = "correlation"
	pageTimeline    = "timeline"
	pageRecords     = "records"
	pageReportForm  = "report-form"
	pageReportFind  = "report-find"
	pageReportView  = "report-view"
)

// Dashboard is the terminal UI over one analysis session.
type Dashboard struct {
	app    *tview.Application
	pages  *tview.Pages
	status *tview.TextView

	correlationTable *tview.Table
	timelineTable    *tview.Table
	recordsTable     *tview.Table
	searchInput      *tview.InputField

	sess   *session.Session
	synth  *report.Synthesizer
	logger *log.Logger

	exportDir string
	filter    view.Filter

	// ctx is the Run context; every load or lookup started from a key
	// handler derives from it so no work outlives the dashboard.
	ctx context.Context

	// AfterLoad, when set, runs after each successful session load.
	AfterLoad func(ctx context.Context)
}

// NewDashboard creates the dashboard over a session and synthesizer.
func NewDashboard(sess *session.Session, synth *report.Synthesizer, exportDir string, logger *log.Logger) *Dashboard {
	if logger == nil {
		logger = log.New(os.Stderr, "[ui] ", log.LstdFlags)
	}
	d := &Dashboard{
		app:       tview.NewApplication(),
		pages:     tview.NewPages(),
		sess:      sess,
		synth:     synth,
		logger:    logger,
		exportDir: exportDir,
		ctx:       context.Background(),
	}
	d.build()
	return d
}

// Run loads the session and drives the UI until quit or ctx cancellation.
func (d *Dashboard) Run(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	d.ctx = ctx

	go func() {
		<-ctx.Done()
		d.app.Stop()
	}()

	go d.loadSession(ctx)

	return d.app.Run()
}

func (d *Dashboard) loadSession(ctx context.Context) {
	d.setStatus("Loading artifacts...")
	if err := d.sess.Load(ctx); err != nil {
		d.setStatus(fmt.Sprintf("[red]Load failed: %v (press r to retry)[-]", err))
		return
	}
	if d.AfterLoad != nil {
		d.AfterLoad(ctx)
	}
	d.app.QueueUpdateDraw(func() {
		d.refreshTables()
	})
	st, err := d.sess.Store()
	if err != nil {
		return
	}
	summary := st.Summary
	msg := fmt.Sprintf("Loaded %d messages, %d calls, %d contacts", len(st.Messages), len(st.Calls), len(st.Contacts))
	if summary.Dropped() > 0 || summary.InvalidTimestamps > 0 {
		msg += fmt.Sprintf(" [yellow](%d dropped, %d invalid timestamps)[-]", summary.Dropped(), summary.InvalidTimestamps)
	}
	d.setStatus(msg)
}

func (d *Dashboard) build() {
	d.correlationTable = d.newTable("Data Correlation")
	d.timelineTable = d.newTable("Timeline Analysis")
	d.recordsTable = d.newTable("Records")

	d.searchInput = tview.NewInputField().
		SetLabel(" Search: ").
		SetFieldWidth(40)
	d.searchInput.SetDoneFunc(func(key tcell.Key) {
		d.filter.Search = strings.TrimSpace(d.searchInput.GetText())
		d.refreshRecords()
		d.app.SetFocus(d.recordsTable)
	})

	recordsFlex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(d.searchInput, 1, 0, false).
		AddItem(d.recordsTable, 0, 1, true)

	d.status = tview.NewTextView().SetDynamicColors(true)
	d.status.SetBorder(false)

	help := tview.NewTextView().SetDynamicColors(true).
		SetText(" [yellow]1[-] correlation  [yellow]2[-] timeline  [yellow]3[-] records  [yellow]/[-] search  [yellow]u[-] suspicious only  [yellow]s[-] save report  [yellow]f[-] find report  [yellow]e[-] export  [yellow]r[-] reload  [yellow]q[-] quit")

	content := tview.NewPages()
	content.AddPage(pageCorrelation, d.correlationTable, true, true)
	content.AddPage(pageTimeline, d.timelineTable, true, false)
	content.AddPage(pageRecords, recordsFlex, true, false)
	d.pages = content

	root := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(content, 0, 1, true).
		AddItem(help, 1, 0, false).
		AddItem(d.status, 1, 0, false)

	d.app.SetRoot(root, true)
	d.app.SetInputCapture(d.handleKey)
}

func (d *Dashboard) newTable(title string) *tview.Table {
	t := tview.NewTable().
		SetBorders(false).
		SetSelectable(true, false).
		SetFixed(1, 0)
	t.SetBorder(true).SetTitle(" " + title + " ")
	return t
}

func (d *Dashboard) handleKey(event *tcell.EventKey) *tcell.EventKey {
	// Keys pass through while a form or the search box is focused.
	if _, ok := d.app.GetFocus().(*tview.InputField); ok {
		return event
	}
	if _, ok := d.app.GetFocus().(*tview.Form); ok {
		return event
	}

	switch event.Rune() {
	case '1':
		d.pages.SwitchToPage(pageCorrelation)
		d.app.SetFocus(d.correlationTable)
		return nil
	case '2':
		d.pages.SwitchToPage(pageTimeline)
		d.app.SetFocus(d.timelineTable)
		return nil
	case '3':
		d.pages.SwitchToPage(pageRecords)
		d.app.SetFocus(d.recordsTable)
		return nil
	case '/':
		d.pages.SwitchToPage(pageRecords)
		d.app.SetFocus(d.searchInput)
		return nil
	case 'u':
		d.filter.SuspiciousOnly = !d.filter.SuspiciousOnly
		d.refreshRecords()
		return nil
	case 's':
		d.showSaveReportForm()
		return nil
	case 'f':
		d.showFindReportForm()
		return nil
	case 'e':
		d.exportCurrent()
		return nil
	case 'r':
		go d.loadSession(d.ctx)
		return nil
	case 'q':
		d.app.Stop()
		return nil
	}
	return event
}

func (d *Dashboard) refreshTables() {
	d.refreshCorrelation()
	d.refreshTimeline()
	d.refreshRecords()
}

func (d *Dashboard) refreshCorrelation() {
	records, err := d.sess.Correlation()
	if err != nil {
		return
	}
	t := d.correlationTable
	t.Clear()

	headers := []string{"NUMBER", "SMS COUNT", "CALLS", "FIRST SEEN", "LAST SEEN"}
	for c, h := range headers {
		t.SetCell(0, c, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for r, rec := range records {
		first, last := identitySpan(rec)
		t.SetCell(r+1, 0, tview.NewTableCell(rec.Identity))
		t.SetCell(r+1, 1, tview.NewTableCell(fmt.Sprintf("%d", rec.SMSCount)))
		t.SetCell(r+1, 2, tview.NewTableCell(fmt.Sprintf("%d", len(rec.Calls))))
		t.SetCell(r+1, 3, tview.NewTableCell(first))
		t.SetCell(r+1, 4, tview.NewTableCell(last))
	}
}

func (d *Dashboard) refreshTimeline() {
	res, err := d.sess.Timeline()
	if err != nil {
		return
	}
	t := d.timelineTable
	t.Clear()

	headers := []string{"DATE", "MESSAGES", "SUSPICIOUS", "CALLS", "INCOMING", "OUTGOING", "MISSED"}
	for c, h := range headers {
		t.SetCell(0, c, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for r, b := range res.Buckets {
		cells := []string{
			b.Date,
			fmt.Sprintf("%d", b.TotalMessages),
			fmt.Sprintf("%d", b.SuspiciousMessages),
			fmt.Sprintf("%d", b.TotalCalls),
			fmt.Sprintf("%d", b.IncomingCalls),
			fmt.Sprintf("%d", b.OutgoingCalls),
			fmt.Sprintf("%d", b.MissedCalls),
		}
		for c, cell := range cells {
			tc := tview.NewTableCell(cell)
			if c == 2 && b.SuspiciousMessages > 0 {
				tc.SetTextColor(tcell.ColorRed)
			}
			t.SetCell(r+1, c, tc)
		}
	}
}

func (d *Dashboard) refreshRecords() {
	fv, err := d.sess.Project(d.filter)
	if err != nil {
		return
	}
	t := d.recordsTable
	t.Clear()

	headers := []string{"KIND", "NUMBER", "DATE", "DIRECTION", "CATEGORY", "SENTIMENT", "BODY"}
	for c, h := range headers {
		t.SetCell(0, c, tview.NewTableCell(h).
			SetTextColor(tcell.ColorYellow).
			SetAttributes(tcell.AttrBold).
			SetSelectable(false))
	}

	for r, row := range fv.Rows {
		ts := "(invalid)"
		if row.TimeValid {
			ts = row.Timestamp.UTC().Format("2006-01-02 15:04")
		}
		body := row.Body
		if row.Kind == view.KindCall {
			body = fmt.Sprintf("duration %ds", row.Duration)
		}
		t.SetCell(r+1, 0, tview.NewTableCell(string(row.Kind)))
		t.SetCell(r+1, 1, tview.NewTableCell(markHighlights(row.Identity, row.IdentitySpans)))
		t.SetCell(r+1, 2, tview.NewTableCell(ts))
		t.SetCell(r+1, 3, tview.NewTableCell(row.Direction))
		t.SetCell(r+1, 4, tview.NewTableCell(categoryCell(row)))
		t.SetCell(r+1, 5, tview.NewTableCell(row.SentimentEmoji))
		t.SetCell(r+1, 6, tview.NewTableCell(markHighlights(body, row.BodySpans)).SetExpansion(1))
	}

	d.setStatus(fmt.Sprintf("Showing %d of %d records", len(fv.Rows), fv.Total))
}

func (d *Dashboard) showSaveReportForm() {
	form := tview.NewForm()
	form.AddInputField("Case Number", "", 30, nil, nil).
		AddInputField("Investigator", "", 30, nil, nil).
		AddInputField("Remark", "", 60, nil, nil).
		AddButton("Save", func() {
			caseNumber := form.GetFormItemByLabel("Case Number").(*tview.InputField).GetText()
			investigator := form.GetFormItemByLabel("Investigator").(*tview.InputField).GetText()
			remark := form.GetFormItemByLabel("Remark").(*tview.InputField).GetText()
			d.closeModal(pageReportForm)
			d.saveReport(caseNumber, investigator, remark)
		}).
		AddButton("Cancel", func() {
			d.closeModal(pageReportForm)
		})
	form.SetBorder(true).SetTitle(" Save Report ")
	d.showModal(pageReportForm, form, 70, 11)
}

func (d *Dashboard) saveReport(caseNumber, investigator, remark string) {
	st, err := d.sess.Store()
	if err != nil {
		d.setStatus(fmt.Sprintf("[red]Cannot save report: %v[-]", err))
		return
	}

	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	meta := report.Meta{CaseNumber: caseNumber, Investigator: investigator, Remark: remark}
	snap, err := d.synth.CreateSnapshot(ctx, meta, st)
	if err != nil {
		if errors.Is(err, report.ErrDuplicateCase) {
			d.setStatus(fmt.Sprintf("[red]Case %s already has a report; use a new case number[-]", caseNumber))
			return
		}
		d.setStatus(fmt.Sprintf("[red]Failed to save report: %v[-]", err))
		return
	}
	d.setStatus(fmt.Sprintf("[green]Report saved for case %s (snapshot %s)[-]", snap.CaseNumber, snap.ID))
}

func (d *Dashboard) showFindReportForm() {
	form := tview.NewForm()
	form.AddInputField("Case Number", "", 30, nil, nil).
		AddButton("Find", func() {
			caseNumber := form.GetFormItemByLabel("Case Number").(*tview.InputField).GetText()
			d.closeModal(pageReportFind)
			d.findReport(caseNumber)
		}).
		AddButton("Cancel", func() {
			d.closeModal(pageReportFind)
		})
	form.SetBorder(true).SetTitle(" Find Report ")
	d.showModal(pageReportFind, form, 50, 9)
}

func (d *Dashboard) findReport(caseNumber string) {
	ctx, cancel := context.WithTimeout(d.ctx, 10*time.Second)
	defer cancel()

	snap, err := d.synth.FindSnapshot(ctx, caseNumber)
	if err != nil {
		if errors.Is(err, report.ErrNotFound) {
			d.setStatus(fmt.Sprintf("[red]No report found for case %s[-]", caseNumber))
			return
		}
		d.setStatus(fmt.Sprintf("[red]Lookup failed: %v[-]", err))
		return
	}

	text := tview.NewTextView().SetDynamicColors(false)
	text.SetText(string(view.RenderSnapshot(snap)))
	text.SetBorder(true).SetTitle(fmt.Sprintf(" Report %s ", snap.CaseNumber))
	text.SetDoneFunc(func(key tcell.Key) {
		d.closeModal(pageReportView)
	})
	d.showModal(pageReportView, text, 70, 30)
}

func (d *Dashboard) exportCurrent() {
	name, _ := d.pages.GetFrontPage()
	var (
		doc []byte
		err error
		out string
	)
	switch name {
	case pageTimeline:
		doc, err = d.sess.ExportTimeline()
		out = "timeline-analysis.txt"
	default:
		doc, err = d.sess.ExportCorrelation()
		out = "data-correlation.txt"
	}
	if err != nil {
		d.setStatus(fmt.Sprintf("[red]Export failed: %v[-]", err))
		return
	}

	path := out
	if d.exportDir != "" {
		path = d.exportDir + string(os.PathSeparator) + out
	}
	if err := os.WriteFile(path, doc, 0644); err != nil {
		d.setStatus(fmt.Sprintf("[red]Export failed: %v[-]", err))
		return
	}
	d.setStatus(fmt.Sprintf("[green]Exported %s[-]", path))
}

func (d *Dashboard) showModal(name string, p tview.Primitive, width, height int) {
	modal := tview.NewFlex().
		AddItem(nil, 0, 1, false).
		AddItem(tview.NewFlex().SetDirection(tview.FlexRow).
			AddItem(nil, 0, 1, false).
			AddItem(p, height, 0, true).
			AddItem(nil, 0, 1, false), width, 0, true).
		AddItem(nil, 0, 1, false)
	d.pages.AddPage(name, modal, true, true)
	d.app.SetFocus(p)
}

func (d *Dashboard) closeModal(name string) {
	d.pages.RemovePage(name)
}

func (d *Dashboard) setStatus(msg string) {
	d.app.QueueUpdateDraw(func() {
		d.status.SetText(" " + msg)
	})
}

// identitySpan returns the first and last valid timestamps for one
// correlation record across both sources.
func identitySpan(rec correlate.Record) (first, last string) {
	var min, max time.Time
	consider := func(ts time.Time, valid bool) {
		if !valid {
			return
		}
		if min.IsZero() || ts.Before(min) {
			min = ts
		}
		if ts.After(max) {
			max = ts
		}
	}
	for _, m := range rec.Messages {
		consider(m.Timestamp, m.TimeValid)
	}
	for _, c := range rec.Calls {
		consider(c.Timestamp, c.TimeValid)
	}
	if min.IsZero() {
		return "-", "-"
	}
	return min.UTC().Format("2006-01-02 15:04"), max.UTC().Format("2006-01-02 15:04")
}

func categoryCell(row view.Row) string {
	if row.Kind != view.KindSMS {
		return "-"
	}
	if row.Category != artifact.CategoryNormal {
		return "[red]" + string(row.Category) + "[-]"
	}
	return string(row.Category)
}

// markHighlights wraps each highlighted span in tview color tags.
func markHighlights(text string, spans []view.Span) string {
	if len(spans) == 0 {
		return tview.Escape(text)
	}
	var b strings.Builder
	prev := 0
	for _, sp := range spans {
		if sp.Start < prev || sp.End > len(text) {
			continue
		}
		b.WriteString(tview.Escape(text[prev:sp.Start]))
		b.WriteString("[black:yellow]")
		b.WriteString(tview.Escape(text[sp.Start:sp.End]))
		b.WriteString("[-:-]")
		prev = sp.End
	}
	b.WriteString(tview.Escape(text[prev:]))
	return b.String()
}
