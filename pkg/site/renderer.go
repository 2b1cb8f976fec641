package site

import (
	"bytes"
	"fmt"
	"net/url"
	"path"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/yurifrl/ynabsite/pkg/csv"
	"github.com/yurifrl/ynabsite/pkg/models"
)

// Page is one output artifact: a path relative to the site root and its
// full content.
type Page struct {
	Path string
	Body []byte
}

// RenderError aborts the whole render. One broken page means no pages: a
// partially published site of financial data is worse than a failed build.
type RenderError struct {
	Page string
	Err  error
}

func (e *RenderError) Error() string {
	return fmt.Sprintf("site: rendering %s: %v", e.Page, e.Err)
}

func (e *RenderError) Unwrap() error { return e.Err }

// Renderer turns a snapshot into the complete page set. Rendering is a
// pure function of the snapshot and the manifest; the same inputs always
// produce byte-identical output.
type Renderer struct {
	manifest *Manifest
	logger   *log.Logger
}

// New creates a renderer. A nil manifest means defaults.
func New(manifest *Manifest, logger *log.Logger) *Renderer {
	if manifest == nil {
		manifest = DefaultManifest()
	}
	if logger == nil {
		logger = log.Default()
	}
	return &Renderer{manifest: manifest, logger: logger}
}

// Render produces every page of the site. An empty snapshot still yields
// a minimal valid site; any single page failure fails the whole call.
func (r *Renderer) Render(snap *models.Snapshot) ([]Page, error) {
	var pages []Page

	index, err := r.renderIndex(snap)
	if err != nil {
		return nil, &RenderError{Page: "index.html", Err: err}
	}
	pages = append(pages, Page{Path: "index.html", Body: index})

	budget, err := budgetCSV(snap)
	if err != nil {
		return nil, &RenderError{Page: "data/budget.csv", Err: err}
	}
	pages = append(pages, Page{Path: "data/budget.csv", Body: budget})

	accounts, err := accountsCSV(snap)
	if err != nil {
		return nil, &RenderError{Page: "data/accounts.csv", Err: err}
	}
	pages = append(pages, Page{Path: "data/accounts.csv", Body: accounts})

	for _, m := range snap.Months() {
		p := path.Join("reports", m.String(), "index.html")
		body, err := r.renderReport(snap, m)
		if err != nil {
			return nil, &RenderError{Page: p, Err: err}
		}
		pages = append(pages, Page{Path: p, Body: body})
	}

	for _, redir := range r.manifest.Redirects {
		p, body, err := r.renderRedirect(redir)
		if err != nil {
			return nil, err
		}
		pages = append(pages, Page{Path: p, Body: body})
	}

	r.logger.Debug("rendered site", "pages", len(pages))
	return pages, nil
}

type categoryRow struct {
	Category string
	Total    string
}

type indexData struct {
	Title        string
	City         string
	GeneratedAt  string
	Empty        bool
	Accounts     []accountView
	LatestMonth  string
	LatestTotals []categoryRow
	TopPayees    []payeeView
	Months       []string
}

type accountView struct {
	Name    string
	Type    string
	Balance string
}

type payeeView struct {
	Payee  string
	MapURL string
	Visits int
	Spent  string
}

func (r *Renderer) renderIndex(snap *models.Snapshot) ([]byte, error) {
	data := indexData{
		Title:       r.manifest.Title,
		City:        r.manifest.City,
		GeneratedAt: snap.AsOf.Format("Jan 02, 2006"),
		Empty:       snap.Empty(),
	}

	for _, a := range snap.Accounts {
		data.Accounts = append(data.Accounts, accountView{
			Name:    a.Name,
			Type:    a.Type,
			Balance: a.Balance.String(),
		})
	}

	months := snap.Months()
	if len(months) > 0 {
		latest := months[len(months)-1]
		data.LatestMonth = latest.String()
		for _, ct := range snap.CategoryTotalsFor(latest) {
			data.LatestTotals = append(data.LatestTotals, categoryRow{
				Category: ct.Category,
				Total:    ct.Total.String(),
			})
		}
	}
	// Newest report first.
	for i := len(months) - 1; i >= 0; i-- {
		data.Months = append(data.Months, months[i].String())
	}

	for _, ps := range snap.TopPayees(r.manifest.FeaturedCategories, r.manifest.TopPayeeCount) {
		data.TopPayees = append(data.TopPayees, payeeView{
			Payee:  ps.Payee,
			MapURL: mapSearchURL(r.manifest.City, ps.Payee),
			Visits: ps.Visits,
			Spent:  ps.Spent.String(),
		})
	}

	return execute("index.html.tmpl", data)
}

func (r *Renderer) renderReport(snap *models.Snapshot, m models.Month) ([]byte, error) {
	data := struct {
		Title  string
		Month  string
		Totals []categoryRow
	}{
		Title: r.manifest.Title,
		Month: m.String(),
	}
	for _, ct := range snap.CategoryTotalsFor(m) {
		data.Totals = append(data.Totals, categoryRow{Category: ct.Category, Total: ct.Total.String()})
	}
	return execute("report.html.tmpl", data)
}

func (r *Renderer) renderRedirect(redir Redirect) (string, []byte, error) {
	clean := strings.Trim(redir.Path, "/")
	if clean == "" || strings.Contains(clean, "..") {
		return "", nil, &RenderError{
			Page: redir.Path,
			Err:  fmt.Errorf("invalid redirect path %q", redir.Path),
		}
	}
	p := path.Join(clean, "index.html")
	body, err := execute("redirect.html.tmpl", struct{ URL string }{URL: redir.URL})
	if err != nil {
		return "", nil, &RenderError{Page: p, Err: err}
	}
	return p, body, nil
}

func execute(name string, data any) ([]byte, error) {
	var buf bytes.Buffer
	if err := templates.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func mapSearchURL(city, payee string) string {
	return "https://www.google.com/maps/search/" + url.QueryEscape(city+" "+payee)
}

type budgetRow models.CategoryTotal

func (r budgetRow) Record() []string {
	return []string{
		r.Category,
		strconv.Itoa(r.Month.Year),
		strconv.Itoa(r.Month.Month),
		strconv.FormatInt(int64(r.Total), 10),
	}
}

func budgetCSV(snap *models.Snapshot) ([]byte, error) {
	totals := snap.MonthlyCategoryTotals()
	rows := make([]budgetRow, 0, len(totals))
	for _, ct := range totals {
		rows = append(rows, budgetRow(ct))
	}
	return csv.Marshal([]string{"category", "year", "month", "amount_milliunits"}, rows, nil)
}

type accountRow models.Account

func (r accountRow) Record() []string {
	return []string{
		r.Name,
		r.Type,
		strconv.FormatInt(int64(r.Balance), 10),
		strconv.FormatInt(int64(r.ClearedBalance), 10),
	}
}

func accountsCSV(snap *models.Snapshot) ([]byte, error) {
	rows := make([]accountRow, 0, len(snap.Accounts))
	for _, a := range snap.Accounts {
		rows = append(rows, accountRow(a))
	}
	return csv.Marshal([]string{"account", "type", "balance_milliunits", "cleared_milliunits"}, rows, nil)
}
