package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/dvloznov/billed/internal/api/middleware"
	"github.com/dvloznov/billed/internal/bills"
	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/jobs"
	"github.com/dvloznov/billed/internal/logger"
	"github.com/dvloznov/billed/internal/receipts"
	"github.com/dvloznov/billed/internal/session"
	"github.com/dvloznov/billed/internal/store"
	"github.com/dvloznov/billed/internal/views"
	"github.com/rs/zerolog"
)

const (
	// BillsPath is where employees land after submitting a bill.
	BillsPath = "/employee/bills"

	// maxUploadSize bounds the multipart form kept in memory.
	maxUploadSize = 10 << 20

	// refreshAfter is the Refresh header sent with the loading page, in seconds.
	refreshAfter = "2"
)

// SubmitMode selects how the new-bill form persists bills.
type SubmitMode string

const (
	// SubmitSync waits for the store before redirecting.
	SubmitSync SubmitMode = "sync"
	// SubmitAsync enqueues the update and redirects immediately.
	SubmitAsync SubmitMode = "async"
)

// Options tune the bill pages.
type Options struct {
	SubmitMode SubmitMode
	// ListTimeout bounds List; past it the loading page is shown. Zero disables it.
	ListTimeout time.Duration
}

// BillsHandler serves the employee bill pages.
type BillsHandler struct {
	store     store.BillStore
	publisher jobs.Publisher
	opts      Options
	log       zerolog.Logger
}

// NewBillsHandler creates a new bills handler. publisher may be nil unless
// opts.SubmitMode is SubmitAsync.
func NewBillsHandler(st store.BillStore, publisher jobs.Publisher, opts Options, log zerolog.Logger) *BillsHandler {
	if opts.SubmitMode == "" {
		opts.SubmitMode = SubmitSync
	}
	return &BillsHandler{
		store:     st,
		publisher: publisher,
		opts:      opts,
		log:       log,
	}
}

// BillsPage handles GET /employee/bills
func (h *BillsHandler) BillsPage(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	log := h.requestLog(r, s)

	list, err := h.listVisible(r.Context(), s)
	switch {
	case errors.Is(err, errListTimeout):
		log.Warn().Dur("timeout", h.opts.ListTimeout).Msg("Listing bills timed out")
		w.Header().Set("Refresh", refreshAfter)
		render(w, log, http.StatusOK, func(buf *bytes.Buffer) error {
			return views.BillsUI(buf, views.BillsPage{Session: s, Loading: true})
		})
		return
	case err != nil:
		log.Error().Err(err).Msg("Failed to list bills")
		h.renderStoreError(w, log, s, err)
		return
	}

	page := views.BillsPage{Session: s, Bills: list}
	if id := r.URL.Query().Get("preview"); id != "" {
		for i := range list {
			if list[i].ID == id {
				page.Preview = &list[i]
				break
			}
		}
	}

	render(w, log, http.StatusOK, func(buf *bytes.Buffer) error {
		return views.BillsUI(buf, page)
	})
}

// NewBillPage handles GET /employee/bill/new
func (h *BillsHandler) NewBillPage(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	h.renderForm(w, h.requestLog(r, s), http.StatusOK, views.NewBillPage{Session: s})
}

// SubmitNewBill handles POST /employee/bill/new
//
// A file sent with the form is checked first; a rejected file re-renders
// the form with a warning and nothing reaches the store. A receipt stored
// by an earlier attempt is looked up from the file-key and file-name fields
// and is not uploaded again. Another employee's bill is never overwritten.
func (h *BillsHandler) SubmitNewBill(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	s := currentSession(r)
	log := h.requestLog(r, s)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil && !errors.Is(err, http.ErrNotMultipart) {
		log.Warn().Err(err).Msg("Invalid new bill form")
		middleware.WriteErrorPage(w, http.StatusBadRequest, "Erreur 400")
		return
	}

	form := formFromRequest(r)
	page := views.NewBillPage{Session: s, Form: form}

	file, header, err := r.FormFile("file")
	switch {
	case err == nil:
		defer file.Close()

		if _, err := bills.ValidateFile(header.Filename); err != nil {
			log.Info().Str("file_name", header.Filename).Msg("Rejected receipt file")
			page.Warning = bills.InvalidFileMessage
			page.Receipt = nil
			h.renderForm(w, log, http.StatusBadRequest, page)
			return
		}

		receipt, err := h.store.Create(ctx, receipts.Upload{
			FileName:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Body:        file,
		})
		if err != nil {
			log.Error().Err(err).Str("file_name", header.Filename).Msg("Failed to store receipt")
			h.renderStoreError(w, log, s, err)
			return
		}
		page.Receipt = &receipt
	case !errors.Is(err, http.ErrMissingFile) && !errors.Is(err, http.ErrNotMultipart):
		log.Warn().Err(err).Msg("Unreadable receipt file")
		middleware.WriteErrorPage(w, http.StatusBadRequest, "Erreur 400")
		return
	default:
		page.Receipt = h.retainedReceipt(r, log)
	}

	if err := form.Validate(); err != nil {
		var verr *bills.ValidationError
		if !errors.As(err, &verr) {
			log.Error().Err(err).Msg("Failed to validate new bill form")
			middleware.WriteErrorPage(w, http.StatusInternalServerError, "Erreur 500")
			return
		}
		for _, f := range verr.Fields {
			page.FieldErrors = append(page.FieldErrors, f.Field)
		}
		h.renderForm(w, log, http.StatusBadRequest, page)
		return
	}

	var receipt domain.Receipt
	if page.Receipt != nil {
		receipt = *page.Receipt
	}
	bill := bills.BuildBillFromForm(form, receipt, s.Email)
	log = logger.ForBill(log, bill.ID, "")

	if err := h.checkOwner(ctx, bill); err != nil {
		log.Warn().Err(err).Msg("Refused bill submission")
		h.renderStoreError(w, log, s, err)
		return
	}

	if h.opts.SubmitMode == SubmitAsync && h.publisher != nil {
		job := &jobs.UpdateBillJob{Bill: bill}
		if err := h.publisher.PublishUpdateBill(ctx, job); err != nil {
			log.Error().Err(err).Msg("Failed to enqueue bill update")
		} else {
			log.Info().Str("job_id", job.JobID).Msg("Bill update enqueued")
		}
		http.Redirect(w, r, BillsPath, http.StatusSeeOther)
		return
	}

	if _, err := h.store.Update(ctx, bill); err != nil {
		log.Error().Err(err).Msg("Failed to store bill")
		h.renderStoreError(w, log, s, err)
		return
	}

	log.Info().Msg("Bill submitted")
	http.Redirect(w, r, BillsPath, http.StatusSeeOther)
}

// UploadReceipt handles POST /employee/bill/new/file
func (h *BillsHandler) UploadReceipt(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)
	log := h.requestLog(r, s)

	if err := r.ParseMultipartForm(maxUploadSize); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "file is required")
		return
	}
	defer file.Close()

	if _, err := bills.ValidateFile(header.Filename); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, bills.InvalidFileMessage)
		return
	}

	receipt, err := h.store.Create(r.Context(), receipts.Upload{
		FileName:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Body:        file,
	})
	if err != nil {
		log.Error().Err(err).Str("file_name", header.Filename).Msg("Failed to store receipt")
		middleware.WriteError(w, store.Code(err), store.Message(err))
		return
	}

	log.Info().Str("key", receipt.Key).Msg("Receipt uploaded")
	middleware.WriteJSON(w, http.StatusCreated, receipt)
}

var errListTimeout = errors.New("listing bills timed out")

// listVisible lists the bills the session may see.
func (h *BillsHandler) listVisible(ctx context.Context, s domain.Session) ([]domain.Bill, error) {
	parent := ctx
	if h.opts.ListTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, h.opts.ListTimeout)
		defer cancel()
	}

	list, err := h.store.List(ctx)
	if err != nil {
		if h.opts.ListTimeout > 0 && parent.Err() == nil && errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, errListTimeout
		}
		return nil, err
	}
	return bills.FilterVisible(s, list), nil
}

func (h *BillsHandler) renderStoreError(w http.ResponseWriter, log zerolog.Logger, s domain.Session, err error) {
	render(w, log, store.Code(err), func(buf *bytes.Buffer) error {
		return views.BillsUI(buf, views.BillsPage{Session: s, Error: store.Message(err)})
	})
}

func (h *BillsHandler) renderForm(w http.ResponseWriter, log zerolog.Logger, status int, page views.NewBillPage) {
	render(w, log, status, func(buf *bytes.Buffer) error {
		return views.NewBillUI(buf, page)
	})
}

func (h *BillsHandler) requestLog(r *http.Request, s domain.Session) zerolog.Logger {
	log := h.log
	if id := middleware.RequestIDFromContext(r.Context()); id != "" {
		log = log.With().Str("request_id", id).Logger()
	}
	return logger.ForBill(log, "", s.Email)
}

// render buffers a page so template errors still produce a clean 500.
func render(w http.ResponseWriter, log zerolog.Logger, status int, fn func(*bytes.Buffer) error) {
	var buf bytes.Buffer
	if err := fn(&buf); err != nil {
		log.Error().Err(err).Msg("Failed to render page")
		middleware.WriteErrorPage(w, http.StatusInternalServerError, "Erreur 500")
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}

func currentSession(r *http.Request) domain.Session {
	s, _ := session.FromContext(r.Context())
	return s
}

func formFromRequest(r *http.Request) bills.NewBillForm {
	return bills.NewBillForm{
		Type:       r.FormValue("expense-type"),
		Name:       r.FormValue("expense-name"),
		Date:       r.FormValue("datepicker"),
		Amount:     r.FormValue("amount"),
		VAT:        r.FormValue("vat"),
		Pct:        r.FormValue("pct"),
		Commentary: r.FormValue("commentary"),
	}
}

// retainedReceipt resolves a receipt stored by an earlier submission of the
// form. Only its key and file name are read from the request; the store
// decides where it lives.
func (h *BillsHandler) retainedReceipt(r *http.Request, log zerolog.Logger) *domain.Receipt {
	key := strings.TrimSpace(r.FormValue("file-key"))
	name := strings.TrimSpace(r.FormValue("file-name"))
	if key == "" {
		return nil
	}

	receipt, err := h.store.Receipt(r.Context(), key, name)
	if err != nil {
		log.Warn().Err(err).Str("key", key).Msg("Ignoring retained receipt")
		return nil
	}
	return &receipt
}

// checkOwner refuses a bill whose ID is already taken by another employee.
func (h *BillsHandler) checkOwner(ctx context.Context, b domain.Bill) error {
	if b.ID == "" {
		return nil
	}
	existing, err := h.store.Get(ctx, b.ID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		return nil
	case err != nil:
		return err
	case !strings.EqualFold(existing.Email, b.Email):
		return &store.StatusError{
			Code: http.StatusForbidden,
			Err:  fmt.Errorf("bill %s belongs to another employee", b.ID),
		}
	}
	return nil
}
