package intakeconsole

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/errs"
	"kiccms/internal/usecase/intake"
)

const defaultMaxRows = 15

type tab int

const (
	tabDashboard tab = iota
	tabSearch
	tabForm
)

var tabTitles = []string{"Dashboard", "Search", "New intake"}

type Service interface {
	Layout() domainintake.Layout
	AttachmentsEnabled() bool
	Dashboard(ctx context.Context) (intake.DashboardView, error)
	Search(ctx context.Context, query string) (intake.SearchView, error)
	Refresh(ctx context.Context) (domainintake.Snapshot, error)
	Submit(ctx context.Context, input intake.SubmitInput) (intake.SubmitResult, error)
}

type Options struct {
	RefreshInterval time.Duration
	MaxRows         int
}

type formField struct {
	field domainintake.Field
	input textinput.Model
}

type model struct {
	ctx             context.Context
	service         Service
	layout          domainintake.Layout
	refreshInterval time.Duration
	maxRows         int

	active tab
	phase  intake.Phase
	status string
	banner string

	dashboard    intake.DashboardView
	hasDashboard bool

	query     textinput.Model
	search    intake.SearchView
	hasSearch bool

	fields      []formField
	statusIndex int
	attachment  textinput.Model
	focus       int
}

type dashboardLoadedMsg struct {
	view intake.DashboardView
	err  error
}

type searchDoneMsg struct {
	view intake.SearchView
	err  error
}

type refreshedMsg struct {
	err error
}

type submitDoneMsg struct {
	result intake.SubmitResult
	err    error
}

type tickMsg struct{}

func NewModel(ctx context.Context, service Service, options Options) tea.Model {
	interval := options.RefreshInterval
	if interval <= 0 {
		interval = intake.DefaultSnapshotTTL
	}
	maxRows := options.MaxRows
	if maxRows <= 0 {
		maxRows = defaultMaxRows
	}

	layout := service.Layout()

	query := textinput.New()
	query.Prompt = "search> "
	query.Placeholder = "case-sensitive substring"

	var fields []formField
	for _, field := range []domainintake.Field{
		domainintake.FieldReceiptNumber,
		domainintake.FieldCompany,
		domainintake.FieldDeviceName,
		domainintake.FieldDeviceSerial,
	} {
		if !layout.Has(field) {
			continue
		}
		input := textinput.New()
		input.Prompt = layout.Label(field) + ": "
		fields = append(fields, formField{field: field, input: input})
	}

	attachment := textinput.New()
	attachment.Prompt = "Attachment file: "
	attachment.Placeholder = "optional path"

	return &model{
		ctx:             logging.WithAttrs(ctx, slog.String("component", "intakeconsole")),
		service:         service,
		layout:          layout,
		refreshInterval: interval,
		maxRows:         maxRows,
		phase:           intake.PhaseIdle,
		status:          "starting",
		query:           query,
		fields:          fields,
		attachment:      attachment,
	}
}

func (m *model) Init() tea.Cmd {
	m.phase = intake.PhaseLoading
	return tea.Batch(m.loadDashboardCmd(), m.tickCmd())
}

func (m *model) Update(message tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := message.(type) {
	case tickMsg:
		return m, tea.Batch(m.loadDashboardCmd(), m.tickCmd())
	case dashboardLoadedMsg:
		if msg.err != nil {
			m.fail("load dashboard", msg.err)
			return m, nil
		}
		m.dashboard = msg.view
		m.hasDashboard = true
		m.banner = ""
		if m.phase != intake.PhaseDone {
			m.phase = intake.PhaseReady
		}
		m.status = fmt.Sprintf("loaded %d records", msg.view.Summary.Total)
		return m, nil
	case refreshedMsg:
		if msg.err != nil {
			m.fail("refresh", msg.err)
			return m, nil
		}
		return m, m.loadDashboardCmd()
	case searchDoneMsg:
		if msg.err != nil {
			m.fail("search", msg.err)
			return m, nil
		}
		m.search = msg.view
		m.hasSearch = true
		m.banner = ""
		m.phase = intake.PhaseReady
		m.status = fmt.Sprintf("%d of %d rows match", msg.view.Results.Len(), msg.view.Total)
		return m, nil
	case submitDoneMsg:
		if msg.err != nil {
			m.fail("submit", msg.err)
			return m, nil
		}
		m.phase = intake.PhaseDone
		m.banner = ""
		m.status = "saved receipt " + msg.result.Record.ReceiptNumber
		if link := msg.result.ReportLink(); link != "" {
			m.status += " with report " + link
		}
		m.resetForm()
		return m, m.loadDashboardCmd()
	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		return m, tea.Quit
	case "q":
		if m.active == tabDashboard {
			return m, tea.Quit
		}
	case "tab":
		m.switchTab((m.active + 1) % tab(len(tabTitles)))
		return m, nil
	case "shift+tab":
		m.switchTab((m.active + tab(len(tabTitles)) - 1) % tab(len(tabTitles)))
		return m, nil
	case "ctrl+r":
		m.phase = intake.PhaseLoading
		m.status = "refreshing"
		return m, m.refreshCmd()
	case "esc":
		m.banner = ""
		return m, nil
	}

	switch m.active {
	case tabSearch:
		if msg.String() == "enter" {
			m.phase = intake.PhaseLoading
			return m, m.searchCmd(m.query.Value())
		}
		var cmd tea.Cmd
		m.query, cmd = m.query.Update(msg)
		return m, cmd
	case tabForm:
		return m.handleFormKey(msg)
	}
	return m, nil
}

// Form focus runs over the text fields, then the status selector, then
// the attachment path.
func (m *model) handleFormKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	statusFocus := len(m.fields)
	attachmentFocus := len(m.fields) + 1

	switch msg.String() {
	case "up":
		if m.focus > 0 {
			m.setFocus(m.focus - 1)
		}
		return m, nil
	case "down":
		if m.focus < attachmentFocus {
			m.setFocus(m.focus + 1)
		}
		return m, nil
	case "enter":
		if m.phase == intake.PhaseSubmitting {
			return m, nil
		}
		m.phase = intake.PhaseSubmitting
		m.status = "submitting"
		return m, m.submitCmd(m.formInput(), strings.TrimSpace(m.attachment.Value()))
	}

	if m.focus == statusFocus {
		count := len(m.layout.Statuses)
		if count == 0 {
			return m, nil
		}
		switch msg.String() {
		case "left":
			m.statusIndex = (m.statusIndex + count - 1) % count
		case "right", " ":
			m.statusIndex = (m.statusIndex + 1) % count
		}
		return m, nil
	}

	var cmd tea.Cmd
	if m.focus == attachmentFocus {
		m.attachment, cmd = m.attachment.Update(msg)
		return m, cmd
	}
	m.fields[m.focus].input, cmd = m.fields[m.focus].input.Update(msg)
	return m, cmd
}

func (m *model) switchTab(next tab) {
	m.active = next
	m.query.Blur()
	m.attachment.Blur()
	for i := range m.fields {
		m.fields[i].input.Blur()
	}
	switch next {
	case tabSearch:
		m.query.Focus()
	case tabForm:
		if m.phase == intake.PhaseDone {
			m.phase = intake.PhaseReady
		}
		m.setFocus(m.focus)
	}
}

func (m *model) setFocus(index int) {
	m.focus = index
	m.attachment.Blur()
	for i := range m.fields {
		m.fields[i].input.Blur()
	}
	switch {
	case index < len(m.fields):
		m.fields[index].input.Focus()
	case index == len(m.fields)+1:
		m.attachment.Focus()
	}
}

func (m *model) formInput() intake.SubmitInput {
	var input intake.SubmitInput
	for _, field := range m.fields {
		value := field.input.Value()
		switch field.field {
		case domainintake.FieldReceiptNumber:
			input.ReceiptNumber = value
		case domainintake.FieldCompany:
			input.Company = value
		case domainintake.FieldDeviceName:
			input.DeviceName = value
		case domainintake.FieldDeviceSerial:
			input.DeviceSerial = value
		}
	}
	if len(m.layout.Statuses) > 0 {
		input.Status = m.layout.Statuses[m.statusIndex]
	}
	return input
}

func (m *model) resetForm() {
	for i := range m.fields {
		m.fields[i].input.SetValue("")
	}
	m.attachment.SetValue("")
	m.statusIndex = 0
	m.setFocus(0)
}

func (m *model) fail(action string, err error) {
	m.phase = intake.PhaseError
	m.status = action + " failed"
	m.banner = describeError(err)
	logging.Warn(m.ctx, action+" failed", slog.Any("err", errs.Loggable(err)))
}

func describeError(err error) string {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return "Check the form: " + err.Error()
	case errs.KindAuth:
		return "Not authorized for the sheet or folder: " + err.Error()
	case errs.KindSchema:
		return "Sheet header does not match the layout: " + err.Error()
	case errs.KindTransport:
		return "Could not reach the store: " + err.Error()
	default:
		return err.Error()
	}
}

func (m *model) tickCmd() tea.Cmd {
	return tea.Tick(m.refreshInterval, func(time.Time) tea.Msg {
		return tickMsg{}
	})
}

func (m *model) loadDashboardCmd() tea.Cmd {
	return func() tea.Msg {
		view, err := m.service.Dashboard(m.ctx)
		return dashboardLoadedMsg{view: view, err: err}
	}
}

func (m *model) refreshCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.service.Refresh(m.ctx)
		return refreshedMsg{err: err}
	}
}

func (m *model) searchCmd(query string) tea.Cmd {
	return func() tea.Msg {
		view, err := m.service.Search(m.ctx, query)
		return searchDoneMsg{view: view, err: err}
	}
}

func (m *model) submitCmd(input intake.SubmitInput, attachmentPath string) tea.Cmd {
	return func() tea.Msg {
		if attachmentPath != "" {
			file, err := os.Open(attachmentPath)
			if err != nil {
				return submitDoneMsg{err: errs.E(errs.KindValidation, errs.Wrap(err, "open attachment"))}
			}
			defer file.Close()
			input.Attachment = &intake.Attachment{
				Name: filepath.Base(attachmentPath),
				Body: file,
			}
		}
		result, err := m.service.Submit(m.ctx, input)
		return submitDoneMsg{result: result, err: err}
	}
}

func (m *model) View() string {
	titleStyle := lipgloss.NewStyle().Bold(true)
	sectionStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("63"))
	dimStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	activeTabStyle := lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("229")).Background(lipgloss.Color("62")).Padding(0, 1)
	tabStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("245")).Padding(0, 1)
	bannerStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("231")).Background(lipgloss.Color("160")).Padding(0, 1)

	var builder strings.Builder
	builder.WriteString(titleStyle.Render("Calibration Intake"))
	builder.WriteString("\n")

	tabs := make([]string, 0, len(tabTitles))
	for index, title := range tabTitles {
		if tab(index) == m.active {
			tabs = append(tabs, activeTabStyle.Render(title))
		} else {
			tabs = append(tabs, tabStyle.Render(title))
		}
	}
	builder.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	builder.WriteString("\n\n")

	if m.banner != "" {
		builder.WriteString(bannerStyle.Render(m.banner))
		builder.WriteString("\n\n")
	}

	switch m.active {
	case tabDashboard:
		m.viewDashboard(&builder, sectionStyle, dimStyle)
	case tabSearch:
		m.viewSearch(&builder, dimStyle)
	case tabForm:
		m.viewForm(&builder, sectionStyle, dimStyle)
	}

	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render(fmt.Sprintf("[%s] %s", m.phase, m.status)))
	builder.WriteString("\n")
	builder.WriteString(dimStyle.Render("Keys: tab/shift+tab switch  ctrl+r refresh  esc dismiss  ctrl+c quit"))
	return builder.String()
}

func (m *model) viewDashboard(builder *strings.Builder, sectionStyle lipgloss.Style, dimStyle lipgloss.Style) {
	if !m.hasDashboard {
		builder.WriteString(dimStyle.Render("- loading"))
		builder.WriteString("\n")
		return
	}
	summary := m.dashboard.Summary

	builder.WriteString(sectionStyle.Render(fmt.Sprintf("Total: %d", summary.Total)))
	builder.WriteString("\n\n")

	cardStyle := lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	cards := make([]string, 0, len(summary.StatusCounts))
	for _, item := range summary.StatusCounts {
		cards = append(cards, cardStyle.Render(fmt.Sprintf("%s\n%d", item.Value, item.Count)))
	}
	if len(cards) > 0 {
		builder.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, cards...))
		builder.WriteString("\n\n")
	}

	builder.WriteString(sectionStyle.Render("Top " + summary.GroupLabel))
	builder.WriteString("\n")
	if len(summary.TopGroups) == 0 {
		builder.WriteString(dimStyle.Render("- none"))
		builder.WriteString("\n")
	}
	builder.WriteString(renderGroupBars(summary.GroupBars()))
	builder.WriteString("\n")

	builder.WriteString(sectionStyle.Render("Recent rows"))
	builder.WriteString("\n")
	builder.WriteString(m.renderRows(m.dashboard.Snapshot, true))
	builder.WriteString("\n")
}

const groupBarWidth = 30

var groupBarStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("63"))

func renderGroupBars(bars []domainintake.GroupBar) string {
	labelWidth := 0
	for _, bar := range bars {
		labelWidth = max(labelWidth, lipgloss.Width(bar.Value))
	}
	labelStyle := lipgloss.NewStyle().Width(labelWidth)

	var builder strings.Builder
	for index, bar := range bars {
		builder.WriteString(fmt.Sprintf("%2d. %s %s %d\n",
			index+1,
			labelStyle.Render(bar.Value),
			groupBarStyle.Render(strings.Repeat("█", bar.Cells(groupBarWidth))),
			bar.Count,
		))
	}
	return builder.String()
}

func (m *model) viewSearch(builder *strings.Builder, dimStyle lipgloss.Style) {
	builder.WriteString(m.query.View())
	builder.WriteString("\n\n")
	if !m.hasSearch {
		builder.WriteString(dimStyle.Render("- press enter to search"))
		builder.WriteString("\n")
		return
	}
	builder.WriteString(fmt.Sprintf("%d of %d rows match %q\n", m.search.Results.Len(), m.search.Total, m.search.Query))
	if m.search.Results.IsEmpty() {
		builder.WriteString(dimStyle.Render("- no matches"))
		builder.WriteString("\n")
		return
	}
	builder.WriteString(m.renderRows(m.search.Results, false))
	builder.WriteString("\n")
}

func (m *model) viewForm(builder *strings.Builder, sectionStyle lipgloss.Style, dimStyle lipgloss.Style) {
	for _, field := range m.fields {
		builder.WriteString(field.input.View())
		builder.WriteString("\n")
	}

	marker := "  "
	if m.focus == len(m.fields) {
		marker = "> "
	}
	status := ""
	if len(m.layout.Statuses) > 0 {
		status = m.layout.Statuses[m.statusIndex]
	}
	builder.WriteString(fmt.Sprintf("%s%s: < %s >\n", marker, m.layout.Label(domainintake.FieldStatus), status))

	if m.service.AttachmentsEnabled() {
		builder.WriteString(m.attachment.View())
		builder.WriteString("\n")
	} else {
		builder.WriteString(dimStyle.Render("attachments disabled"))
		builder.WriteString("\n")
	}
	builder.WriteString("\n")
	builder.WriteString(sectionStyle.Render("enter submit  up/down move  left/right status"))
	builder.WriteString("\n")
}

// renderRows draws at most maxRows rows, the latest ones when tail is set.
func (m *model) renderRows(snapshot domainintake.Snapshot, tail bool) string {
	rows := snapshot.Rows
	if len(rows) > m.maxRows {
		if tail {
			rows = rows[len(rows)-m.maxRows:]
		} else {
			rows = rows[:m.maxRows]
		}
	}
	return table.New().
		Border(lipgloss.NormalBorder()).
		Headers(snapshot.Header...).
		Rows(rows...).
		Render()
}
