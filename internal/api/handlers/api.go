package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/dvloznov/billed/internal/api/middleware"
	"github.com/dvloznov/billed/internal/bills"
	"github.com/dvloznov/billed/internal/domain"
	"github.com/dvloznov/billed/internal/jobs"
	"github.com/dvloznov/billed/internal/receipts"
	"github.com/dvloznov/billed/internal/store"
	"github.com/rs/zerolog"
)

// ListBills handles GET /api/bills
func (h *BillsHandler) ListBills(w http.ResponseWriter, r *http.Request) {
	s := currentSession(r)

	list, err := h.listVisible(r.Context(), s)
	if err != nil {
		log := h.requestLog(r, s)
		log.Error().Err(err).Msg("Failed to list bills")
		if errors.Is(err, errListTimeout) {
			middleware.WriteError(w, http.StatusGatewayTimeout, "Erreur 504")
			return
		}
		middleware.WriteError(w, store.Code(err), store.Message(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"bills": bills.SortByDateDesc(list),
		"count": len(list),
	})
}

// GetBill handles GET /api/bills/{id}
//
// Bills the session may not see are reported as missing.
func (h *BillsHandler) GetBill(w http.ResponseWriter, r *http.Request, billID string) {
	s := currentSession(r)

	bill, err := h.store.Get(r.Context(), billID)
	if err == nil && !s.CanSee(bill) {
		err = store.ErrNotFound
	}
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			log := h.requestLog(r, s)
			log.Error().Err(err).Str("bill_id", billID).Msg("Failed to get bill")
		}
		middleware.WriteError(w, store.Code(err), store.Message(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, bill)
}

// UpdateBill handles PUT /api/bills/{id}
func (h *BillsHandler) UpdateBill(w http.ResponseWriter, r *http.Request, billID string) {
	var bill domain.Bill
	if err := json.NewDecoder(r.Body).Decode(&bill); err != nil {
		middleware.WriteError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if bill.ID != "" && bill.ID != billID {
		middleware.WriteError(w, http.StatusBadRequest, "Bill ID does not match the URL")
		return
	}
	bill.ID = billID

	stored, err := h.store.Update(r.Context(), bill)
	if err != nil {
		log := h.requestLog(r, currentSession(r))
		log.Error().Err(err).Str("bill_id", billID).Msg("Failed to update bill")
		middleware.WriteError(w, store.Code(err), store.Message(err))
		return
	}

	middleware.WriteJSON(w, http.StatusOK, stored)
}

// ReceiptsHandler serves stored receipt files.
type ReceiptsHandler struct {
	storage receipts.Storage
	log     zerolog.Logger
}

// NewReceiptsHandler creates a new receipts handler.
func NewReceiptsHandler(storage receipts.Storage, log zerolog.Logger) *ReceiptsHandler {
	return &ReceiptsHandler{
		storage: storage,
		log:     log,
	}
}

// ServeReceipt handles GET /receipts/{name}
func (h *ReceiptsHandler) ServeReceipt(w http.ResponseWriter, r *http.Request, name string) {
	if !receipts.ValidObjectName(name) {
		middleware.WriteErrorPage(w, http.StatusNotFound, "Erreur 404")
		return
	}

	body, contentType, err := h.storage.Open(r.Context(), name)
	if err != nil {
		if errors.Is(err, receipts.ErrNotFound) {
			middleware.WriteErrorPage(w, http.StatusNotFound, "Erreur 404")
			return
		}
		h.log.Error().Err(err).Str("receipt", name).Msg("Failed to open receipt")
		middleware.WriteErrorPage(w, http.StatusInternalServerError, "Erreur 500")
		return
	}
	defer body.Close()

	if contentType != "" {
		w.Header().Set("Content-Type", contentType)
	}
	w.Header().Set("Cache-Control", "private, max-age=3600")
	if _, err := io.Copy(w, body); err != nil {
		h.log.Warn().Err(err).Str("receipt", name).Msg("Receipt download interrupted")
	}
}

// JobsHandler handles job-related endpoints.
type JobsHandler struct {
	store jobs.JobStore
	log   zerolog.Logger
}

// NewJobsHandler creates a new jobs handler.
func NewJobsHandler(store jobs.JobStore, log zerolog.Logger) *JobsHandler {
	return &JobsHandler{
		store: store,
		log:   log,
	}
}

// GetJob handles GET /api/jobs/{id}
//
// Employees only see the jobs carrying their own bills.
func (h *JobsHandler) GetJob(w http.ResponseWriter, r *http.Request, jobID string) {
	job, err := h.store.GetJob(r.Context(), jobID)
	if err == nil && !currentSession(r).CanSee(job.Bill) {
		err = fmt.Errorf("job %s: %w", jobID, jobs.ErrJobNotFound)
	}
	if err != nil {
		if !errors.Is(err, jobs.ErrJobNotFound) {
			h.log.Error().Err(err).Str("job_id", jobID).Msg("Failed to get job")
			middleware.WriteError(w, http.StatusInternalServerError, "Erreur 500")
			return
		}
		h.log.Debug().Err(err).Str("job_id", jobID).Msg("Job lookup failed")
		middleware.WriteError(w, http.StatusNotFound, "Job not found")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, job)
}

// ListJobs handles GET /api/jobs
//
// The email filter is forced to the caller unless they are an admin.
func (h *JobsHandler) ListJobs(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	filter := jobs.JobFilter{
		BillID: query.Get("bill_id"),
		Email:  query.Get("email"),
		Status: jobs.JobStatus(query.Get("status")),
	}
	if s := currentSession(r); !s.IsAdmin() {
		filter.Email = s.Email
	}

	if limitStr := query.Get("limit"); limitStr != "" {
		if limit, err := strconv.Atoi(limitStr); err == nil {
			filter.Limit = limit
		}
	}

	if offsetStr := query.Get("offset"); offsetStr != "" {
		if offset, err := strconv.Atoi(offsetStr); err == nil {
			filter.Offset = offset
		}
	}

	jobsList, err := h.store.ListJobs(r.Context(), filter)
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to list jobs")
		middleware.WriteError(w, http.StatusInternalServerError, "Failed to list jobs")
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"jobs":  jobsList,
		"count": len(jobsList),
	})
}

// Health handles GET /health
func Health(w http.ResponseWriter, r *http.Request) {
	middleware.WriteJSON(w, http.StatusOK, map[string]string{
		"status": "healthy",
		"time":   time.Now().Format(time.RFC3339),
	})
}
