package cmd

import (
	"context"
	"errors"
	"html"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/microcosm-cc/bluemonday"

	"kiccms/internal/bootstrap/logging"
	domainintake "kiccms/internal/domain/intake"
	"kiccms/internal/errs"
	"kiccms/internal/usecase/intake"
)

const defaultMaxUploadBytes = 32 << 20

type intakeWebService interface {
	Layout() domainintake.Layout
	AttachmentsEnabled() bool
	Dashboard(ctx context.Context) (intake.DashboardView, error)
	Search(ctx context.Context, query string) (intake.SearchView, error)
	Refresh(ctx context.Context) (domainintake.Snapshot, error)
	Submit(ctx context.Context, input intake.SubmitInput) (intake.SubmitResult, error)
}

type intakeWebOptions struct {
	MaxUploadBytes int64
	// Metrics serves /metrics when set.
	Metrics http.Handler
}

type intakeHTTPHandler struct {
	ctx       context.Context
	svc       intakeWebService
	policy    *bluemonday.Policy
	maxUpload int64
}

type cellView struct {
	Text string
	Href string
}

type pageView struct {
	Title       string
	Active      string
	Banner      string
	Notice      string
	Summary     domainintake.Summary
	GroupBars   []domainintake.GroupBar
	Header      []string
	Rows        [][]cellView
	Query       string
	Searched    bool
	Matches     int
	Total       int
	Fields      []formFieldView
	Statuses    []string
	Status      string
	StatusLabel string
	Attachments bool
}

type formFieldView struct {
	Name  string
	Label string
	Value string
}

var intakePages = template.Must(template.New("pages").Parse(`
{{define "head"}}<!DOCTYPE html>
<html lang="en"><head><meta charset="UTF-8"><meta name="viewport" content="width=device-width,initial-scale=1">
<title>{{.Title}}</title>
<style>
body{font-family:system-ui,sans-serif;max-width:1100px;margin:1.5rem auto;padding:0 1rem;color:#222}
nav a{margin-right:1rem}nav a.active{font-weight:bold}
.banner{background:#c62828;color:#fff;padding:.6rem 1rem;border-radius:4px}
.notice{background:#2e7d32;color:#fff;padding:.6rem 1rem;border-radius:4px}
.cards{display:flex;gap:.8rem;flex-wrap:wrap}.card{border:1px solid #ddd;border-radius:6px;padding:.6rem 1rem;min-width:9rem}
.card b{display:block;font-size:1.6rem}
table{border-collapse:collapse;width:100%}td,th{border:1px solid #ddd;padding:.3rem .5rem;text-align:left}
form.inline{display:inline}
label{display:block;margin:.4rem 0}
.bars{max-width:40rem}.bar-row{display:flex;align-items:center;gap:.6rem;margin:.2rem 0}
.bar-label{flex:0 0 12rem}.bar{display:inline-block;height:1rem;min-width:2px;background:#5c6bc0}
</style></head><body>
<nav><a href="/" {{if eq .Active "dashboard"}}class="active"{{end}}>Dashboard</a><a href="/search" {{if eq .Active "search"}}class="active"{{end}}>Search</a><a href="/intake" {{if eq .Active "intake"}}class="active"{{end}}>New intake</a>
<form class="inline" method="post" action="/refresh"><button type="submit">Refresh</button></form></nav>
{{if .Banner}}<p class="banner">{{.Banner}}</p>{{end}}
{{if .Notice}}<p class="notice">{{.Notice}}</p>{{end}}
{{end}}

{{define "rows"}}<table><thead><tr>{{range .Header}}<th>{{.}}</th>{{end}}</tr></thead><tbody>
{{- range .Rows}}<tr>{{range .}}<td>{{if .Href}}<a href="{{.Href}}">{{.Text}}</a>{{else}}{{.Text}}{{end}}</td>{{end}}</tr>
{{- end}}</tbody></table>{{end}}

{{define "dashboard"}}{{template "head" .}}
<h1>Total: {{.Summary.Total}}</h1>
<div class="cards">{{range .Summary.StatusCounts}}<div class="card">{{.Value}}<b>{{.Count}}</b></div>{{end}}</div>
<h2>Top {{.Summary.GroupLabel}}</h2>
{{if .GroupBars}}<div class="bars">{{range .GroupBars}}<div class="bar-row"><span class="bar-label">{{.Value}} ({{.Count}})</span><span class="bar" style="width:{{.Percent}}%"></span></div>{{end}}</div>{{else}}<p>No data yet.</p>{{end}}
<h2>All rows</h2>
{{template "rows" .}}
</body></html>{{end}}

{{define "search"}}{{template "head" .}}
<form method="get" action="/search"><input name="q" value="{{.Query}}" placeholder="case-sensitive substring" autofocus> <button type="submit">Search</button></form>
{{if .Searched}}<p>{{.Matches}} of {{.Total}} rows match.</p>{{if .Rows}}{{template "rows" .}}{{end}}{{end}}
</body></html>{{end}}

{{define "intake"}}{{template "head" .}}
<form method="post" action="/intake" enctype="multipart/form-data">
{{range .Fields}}<label>{{.Label}} <input name="{{.Name}}" value="{{.Value}}"></label>
{{end}}<label>{{.StatusLabel}} <select name="status">{{range .Statuses}}<option {{if eq . $.Status}}selected{{end}}>{{.}}</option>{{end}}</select></label>
{{if .Attachments}}<label>Report <input type="file" name="attachment"></label>{{end}}
<button type="submit">Save</button>
</form>
</body></html>{{end}}
`))

func newIntakeHTTPHandler(ctx context.Context, svc intakeWebService, options intakeWebOptions) http.Handler {
	maxUpload := options.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = defaultMaxUploadBytes
	}
	h := &intakeHTTPHandler{
		ctx:       logging.WithAttrs(ctx, slog.String("component", "cmd.serve")),
		svc:       svc,
		policy:    bluemonday.StrictPolicy(),
		maxUpload: maxUpload,
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(h.logRequests)

	r.Get("/", h.handleDashboard)
	r.Get("/search", h.handleSearch)
	r.Get("/intake", h.handleForm)
	r.Post("/intake", h.handleSubmit)
	r.Post("/refresh", h.handleRefresh)
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_, _ = w.Write([]byte("ok\n"))
	})
	if options.Metrics != nil {
		r.Method(http.MethodGet, "/metrics", options.Metrics)
	}
	return r
}

func (h *intakeHTTPHandler) logRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		logging.Info(h.ctx, "http request",
			slog.String("method", r.Method),
			slog.String("path", r.URL.Path),
			slog.Int("status", ww.Status()),
			slog.Duration("elapsed", time.Since(started)),
			slog.String("request_id", middleware.GetReqID(r.Context())),
		)
	})
}

func (h *intakeHTTPHandler) handleDashboard(w http.ResponseWriter, r *http.Request) {
	page := h.basePage("Calibration intake", "dashboard")
	page.Notice = r.URL.Query().Get("notice")

	view, err := h.svc.Dashboard(r.Context())
	if err != nil {
		h.renderError(w, "dashboard", page, err)
		return
	}
	page.Summary = view.Summary
	page.GroupBars = view.Summary.GroupBars()
	page.Header, page.Rows = h.tableRows(view.Snapshot)
	h.render(w, http.StatusOK, "dashboard", page)
}

func (h *intakeHTTPHandler) handleSearch(w http.ResponseWriter, r *http.Request) {
	page := h.basePage("Search", "search")
	query := r.URL.Query().Get("q")
	page.Query = query
	if _, present := r.URL.Query()["q"]; !present {
		h.render(w, http.StatusOK, "search", page)
		return
	}

	view, err := h.svc.Search(r.Context(), query)
	if err != nil {
		h.renderError(w, "search", page, err)
		return
	}
	page.Searched = true
	page.Matches = view.Results.Len()
	page.Total = view.Total
	page.Header, page.Rows = h.tableRows(view.Results)
	h.render(w, http.StatusOK, "search", page)
}

func (h *intakeHTTPHandler) handleForm(w http.ResponseWriter, r *http.Request) {
	page := h.formPage(intake.SubmitInput{})
	if saved := r.URL.Query().Get("saved"); saved != "" {
		page.Notice = "Saved receipt " + saved
		if report := r.URL.Query().Get("report"); report != "" {
			page.Notice += " with report " + report
		}
	}
	h.render(w, http.StatusOK, "intake", page)
}

func (h *intakeHTTPHandler) handleSubmit(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		page := h.formPage(intake.SubmitInput{})
		h.renderError(w, "intake", page, errs.E(errs.KindValidation, errs.Wrap(err, "parse form")))
		return
	}

	input := intake.SubmitInput{
		ReceiptNumber: h.formValue(r, string(domainintake.FieldReceiptNumber)),
		Company:       h.formValue(r, string(domainintake.FieldCompany)),
		DeviceName:    h.formValue(r, string(domainintake.FieldDeviceName)),
		DeviceSerial:  h.formValue(r, string(domainintake.FieldDeviceSerial)),
		Status:        h.formValue(r, string(domainintake.FieldStatus)),
	}

	if r.MultipartForm != nil && h.svc.AttachmentsEnabled() {
		file, header, err := r.FormFile("attachment")
		switch {
		case errors.Is(err, http.ErrMissingFile):
		case err != nil:
			h.renderError(w, "intake", h.formPage(input), errs.E(errs.KindValidation, errs.Wrap(err, "read attachment")))
			return
		default:
			defer file.Close()
			// Browsers send an empty part when no file was chosen.
			if header.Filename != "" && header.Size > 0 {
				input.Attachment = &intake.Attachment{
					Name:        header.Filename,
					ContentType: header.Header.Get("Content-Type"),
					Body:        file,
				}
			}
		}
	}

	result, err := h.svc.Submit(r.Context(), input)
	if err != nil {
		h.renderError(w, "intake", h.formPage(input), err)
		return
	}

	target := url.Values{}
	target.Set("saved", result.Record.ReceiptNumber)
	if link := result.ReportLink(); link != "" {
		target.Set("report", link)
	}
	http.Redirect(w, r, "/intake?"+target.Encode(), http.StatusSeeOther)
}

func (h *intakeHTTPHandler) handleRefresh(w http.ResponseWriter, r *http.Request) {
	if _, err := h.svc.Refresh(r.Context()); err != nil {
		h.renderError(w, "dashboard", h.basePage("Calibration intake", "dashboard"), err)
		return
	}
	http.Redirect(w, r, "/?notice="+url.QueryEscape("Data refreshed"), http.StatusSeeOther)
}

// formValue strips markup from a submitted field. The sheet stores plain
// text, so entities escaped by the policy are decoded again.
func (h *intakeHTTPHandler) formValue(r *http.Request, name string) string {
	return strings.TrimSpace(html.UnescapeString(h.policy.Sanitize(r.FormValue(name))))
}

func (h *intakeHTTPHandler) basePage(title string, active string) pageView {
	return pageView{Title: title, Active: active}
}

func (h *intakeHTTPHandler) formPage(input intake.SubmitInput) pageView {
	layout := h.svc.Layout()
	page := h.basePage("New intake", "intake")
	page.Statuses = layout.Statuses
	page.Status = input.Status
	page.StatusLabel = layout.Label(domainintake.FieldStatus)
	page.Attachments = h.svc.AttachmentsEnabled()

	values := map[domainintake.Field]string{
		domainintake.FieldReceiptNumber: input.ReceiptNumber,
		domainintake.FieldCompany:       input.Company,
		domainintake.FieldDeviceName:    input.DeviceName,
		domainintake.FieldDeviceSerial:  input.DeviceSerial,
	}
	for _, field := range []domainintake.Field{
		domainintake.FieldReceiptNumber,
		domainintake.FieldCompany,
		domainintake.FieldDeviceName,
		domainintake.FieldDeviceSerial,
	} {
		if !layout.Has(field) {
			continue
		}
		page.Fields = append(page.Fields, formFieldView{
			Name:  string(field),
			Label: layout.Label(field),
			Value: values[field],
		})
	}
	return page
}

func (h *intakeHTTPHandler) tableRows(snapshot domainintake.Snapshot) ([]string, [][]cellView) {
	rows := make([][]cellView, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		cells := make([]cellView, len(row))
		for i, value := range row {
			cells[i] = cellView{Text: value}
			if strings.HasPrefix(value, "https://") || strings.HasPrefix(value, "http://") {
				cells[i].Href = value
			}
		}
		rows = append(rows, cells)
	}
	return snapshot.Header, rows
}

func (h *intakeHTTPHandler) renderError(w http.ResponseWriter, name string, page pageView, err error) {
	status := httpStatus(err)
	page.Banner = bannerText(err)
	if status >= http.StatusInternalServerError {
		logging.Error(h.ctx, "request failed", slog.String("page", name), slog.Any("err", errs.Loggable(err)))
	} else {
		logging.Warn(h.ctx, "request rejected", slog.String("page", name), slog.Any("err", errs.Loggable(err)))
	}
	h.render(w, status, name, page)
}

func (h *intakeHTTPHandler) render(w http.ResponseWriter, status int, name string, page pageView) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := intakePages.ExecuteTemplate(w, name, page); err != nil {
		logging.Error(h.ctx, "render page failed", slog.String("page", name), slog.Any("err", errs.Loggable(err)))
	}
}

func httpStatus(err error) int {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return http.StatusBadRequest
	case errs.KindAuth, errs.KindTransport:
		return http.StatusBadGateway
	case errs.KindSchema:
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

func bannerText(err error) string {
	switch errs.KindOf(err) {
	case errs.KindValidation:
		return "Check the form: " + err.Error()
	case errs.KindAuth:
		return "The server is not authorized for the sheet or folder. Check the configured credentials: " + err.Error()
	case errs.KindSchema:
		return "The sheet header does not match the configured layout: " + err.Error()
	case errs.KindTransport:
		return "The sheet could not be reached: " + err.Error()
	default:
		return "Unexpected error: " + err.Error()
	}
}
