// Package views renders the bills pages.
package views

import (
	"embed"
	"fmt"
	"html/template"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"strings"

	"github.com/dvloznov/billed/internal/bills"
	"github.com/dvloznov/billed/internal/domain"
)

//go:embed templates/*.html
var templateFS embed.FS

//go:embed static
var staticFS embed.FS

// StaticPath is where the stylesheet referenced by every page is served.
const StaticPath = "/static/"

// DefaultErrorMessage is shown when an error page gets no specific message.
const DefaultErrorMessage = "Erreur"

// LoadingMessage is the placeholder rendered while bills are loading.
const LoadingMessage = "Loading..."

// ExpenseTypes are the categories offered by the new-bill form.
var ExpenseTypes = []string{
	"Transports",
	"Restaurants et bars",
	"Hôtel et logement",
	"Services en ligne",
	"IT et électronique",
	"Equipement et matériel",
	"Fournitures de bureau",
}

var funcs = template.FuncMap{
	"formatDate":   bills.FormatDate,
	"formatStatus": bills.FormatStatus,
	"formatAmount": formatAmount,
	"join":         strings.Join,
}

var (
	billsTmpl   = parse("layout.html", "bills.html")
	newBillTmpl = parse("layout.html", "newbill.html")
	statusTmpl  = parse("loading.html", "error.html")
)

func parse(files ...string) *template.Template {
	patterns := make([]string, 0, len(files))
	for _, f := range files {
		patterns = append(patterns, "templates/"+f)
	}
	return template.Must(template.New("").Funcs(funcs).ParseFS(templateFS, patterns...))
}

// StaticHandler serves the embedded assets under StaticPath.
func StaticHandler() http.Handler {
	assets, err := fs.Sub(staticFS, "static")
	if err != nil {
		panic(err)
	}
	return http.StripPrefix(StaticPath, http.FileServer(http.FS(assets)))
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// BillsPage is the data of the bills list.
type BillsPage struct {
	Session domain.Session
	Bills   []domain.Bill
	Loading bool
	// Error replaces the list with an error page when set.
	Error string
	// Preview opens the receipt overlay for this bill.
	Preview *domain.Bill
}

// BillsUI renders the bills list. Loading wins over Error, which wins over
// the list. Bills are shown most recent first.
func BillsUI(w io.Writer, p BillsPage) error {
	switch {
	case p.Loading:
		return LoadingPage(w)
	case p.Error != "":
		return ErrorPage(w, p.Error)
	}

	data := struct {
		BillsPage
		Active string
	}{BillsPage: p, Active: "bills"}
	data.Bills = bills.SortByDateDesc(p.Bills)

	if err := billsTmpl.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("BillsUI: %w", err)
	}
	return nil
}

// NewBillPage is the data of the new-bill form.
type NewBillPage struct {
	Session domain.Session
	Form    bills.NewBillForm
	// Warning is shown above the form, e.g. after a rejected file.
	Warning     string
	FieldErrors []string
	// Receipt is an already stored file carried across re-renders.
	Receipt *domain.Receipt
}

// NewBillUI renders the new-bill form.
func NewBillUI(w io.Writer, p NewBillPage) error {
	data := struct {
		NewBillPage
		Active       string
		ExpenseTypes []string
	}{NewBillPage: p, Active: "new-bill", ExpenseTypes: ExpenseTypes}

	if err := newBillTmpl.ExecuteTemplate(w, "layout", data); err != nil {
		return fmt.Errorf("NewBillUI: %w", err)
	}
	return nil
}

// LoadingPage renders the loading placeholder.
func LoadingPage(w io.Writer) error {
	if err := statusTmpl.ExecuteTemplate(w, "loading", nil); err != nil {
		return fmt.Errorf("LoadingPage: %w", err)
	}
	return nil
}

// ErrorPage renders msg in place of the page content.
func ErrorPage(w io.Writer, msg string) error {
	if msg == "" {
		msg = DefaultErrorMessage
	}
	if err := statusTmpl.ExecuteTemplate(w, "error", struct{ Error string }{msg}); err != nil {
		return fmt.Errorf("ErrorPage: %w", err)
	}
	return nil
}
