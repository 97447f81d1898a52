package web

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/core"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/logging"
	"github.com/muh-muhsin/Car-Sales-Analysis-Nigeria/internal/repository"
)

// formOverhead is allowed on top of the file size limit for multipart
// boundaries and the other form fields.
const formOverhead = 1 << 20

// multipartMemory is kept in memory while parsing; larger parts spill to disk.
const multipartMemory = 32 << 20

// uploadedFile is the file part of a multipart request.
type uploadedFile struct {
	name    string
	content []byte
}

// readFile parses the multipart form and reads the "file" part.
func (s *Server) readFile(w http.ResponseWriter, r *http.Request) (*uploadedFile, error) {
	limit := s.cfg.Upload.MaxFileSize + formOverhead
	if r.ContentLength > limit {
		return nil, errFileTooLarge
	}
	r.Body = http.MaxBytesReader(w, r.Body, limit)

	if err := r.ParseMultipartForm(multipartMemory); err != nil {
		var mbe *http.MaxBytesError
		if errors.As(err, &mbe) {
			return nil, errFileTooLarge
		}
		return nil, errNoFile
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		return nil, errNoFile
	}
	defer file.Close()

	content, err := io.ReadAll(file)
	if err != nil {
		return nil, err
	}
	return &uploadedFile{name: header.Filename, content: content}, nil
}

// handleUpload processes, stores and publishes one dataset.
func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	f, err := s.readFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	req := core.UploadRequest{
		Filename:    f.name,
		Content:     f.content,
		Title:       r.FormValue("title"),
		Description: r.FormValue("description"),
		Tags:        splitList(r.FormValue("tags")),
		Owner:       r.FormValue("owner"),
	}
	if v := strings.TrimSpace(r.FormValue("price")); v != "" {
		price, err := strconv.ParseFloat(v, 64)
		if err != nil {
			s.respondError(w, r, fmt.Errorf("%w: price must be a number", core.ErrInvalidUpload))
			return
		}
		req.Price = price
	}

	result, err := s.service.Upload(r.Context(), req)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	logging.FromContext(r.Context()).Info("dataset uploaded",
		"dataset_id", result.DatasetID,
		"status", result.Status,
		"records", result.RecordsCount,
		"duration_ms", result.Duration.Milliseconds(),
	)
	writeJSON(w, http.StatusCreated, result)
}

// handlePreview runs the pipeline and returns the document without rows.
func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	f, err := s.readFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	doc, err := s.service.Preview(r.Context(), f.name, f.content)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, doc)
}

// handleValidate returns the validator verdict. An invalid file is still a
// successful request.
func (s *Server) handleValidate(w http.ResponseWriter, r *http.Request) {
	f, err := s.readFile(w, r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.service.Validate(f.name, f.content))
}

func (s *Server) handleGetDataset(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, errInvalidID)
		return
	}

	d, err := s.service.GetDataset(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

// handleDownload streams the published document of a dataset, rows
// included, as fetched from the content store.
func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		s.respondError(w, r, errInvalidID)
		return
	}

	dl, err := s.service.Download(r.Context(), id)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", dl.Filename))
	w.Header().Set("Content-Length", strconv.Itoa(len(dl.Content)))
	w.Header().Set("X-Content-ID", dl.ContentID)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(dl.Content); err != nil {
		logging.FromContext(r.Context()).Warn("write download failed", "dataset_id", id, "error", err)
	}
}

func (s *Server) handleQualityMetrics(w http.ResponseWriter, r *http.Request) {
	stats, err := s.service.QualityMetrics(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}

func (s *Server) handleListings(w http.ResponseWriter, r *http.Request) {
	entries, err := s.service.Listings(r.Context())
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"entries": entries, "total": len(entries)})
}

// DatasetPage is one page of dataset records.
type DatasetPage struct {
	Datasets   []repository.Dataset `json:"datasets"`
	Total      int                  `json:"total"`
	Page       int                  `json:"page"`
	PerPage    int                  `json:"per_page"`
	TotalPages int                  `json:"total_pages"`
}

// handleListDatasets lists records filtered by search, tags and price.
func (s *Server) handleListDatasets(w http.ResponseWriter, r *http.Request) {
	params, page, err := parseListParams(r)
	if err != nil {
		s.respondError(w, r, err)
		return
	}

	datasets, total, err := s.service.ListDatasets(r.Context(), params)
	if err != nil {
		s.respondError(w, r, err)
		return
	}
	if datasets == nil {
		datasets = []repository.Dataset{}
	}

	writeJSON(w, http.StatusOK, DatasetPage{
		Datasets:   datasets,
		Total:      total,
		Page:       page,
		PerPage:    params.Limit,
		TotalPages: (total + params.Limit - 1) / params.Limit,
	})
}

// parseListParams reads the list query. Pages are 1-based.
func parseListParams(r *http.Request) (repository.ListParams, int, error) {
	q := r.URL.Query()
	p := repository.ListParams{
		Search: strings.TrimSpace(q.Get("search")),
		Tags:   splitList(q.Get("tags")),
		SortBy: q.Get("sort_by"),
		Limit:  repository.DefaultListLimit,
	}

	switch strings.ToLower(q.Get("sort_order")) {
	case "", "desc":
		p.Desc = true
	case "asc":
	default:
		return p, 0, errInvalidQuery
	}

	var err error
	if p.MinPrice, err = parsePrice(q.Get("min_price")); err != nil {
		return p, 0, err
	}
	if p.MaxPrice, err = parsePrice(q.Get("max_price")); err != nil {
		return p, 0, err
	}

	page, err := parseIntParam(q.Get("page"), 1)
	if err != nil {
		return p, 0, err
	}
	if p.Limit, err = parseIntParam(q.Get("per_page"), repository.DefaultListLimit); err != nil {
		return p, 0, err
	}
	if p.Limit > repository.MaxListLimit {
		p.Limit = repository.MaxListLimit
	}
	p.Offset = (page - 1) * p.Limit
	return p, page, nil
}

// parseIntParam parses a positive integer, using def when empty.
func parseIntParam(val string, def int) (int, error) {
	if val == "" {
		return def, nil
	}
	i, err := strconv.Atoi(val)
	if err != nil || i < 1 {
		return 0, errInvalidQuery
	}
	return i, nil
}

func parsePrice(val string) (*float64, error) {
	if val == "" {
		return nil, nil
	}
	f, err := strconv.ParseFloat(val, 64)
	if err != nil || f < 0 {
		return nil, errInvalidQuery
	}
	return &f, nil
}

// splitList splits a comma-separated form or query value.
func splitList(val string) []string {
	if strings.TrimSpace(val) == "" {
		return nil
	}
	parts := strings.Split(val, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// handleUploadQueueStatus returns the limiter state and in-flight uploads.
func (s *Server) handleUploadQueueStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, struct {
		core.UploadLimiterStatus
		Uploads []core.UploadProgress `json:"uploads"`
	}{
		UploadLimiterStatus: s.service.UploadLimiterStatus(),
		Uploads:             s.service.ActiveUploads(),
	})
}

// handleHealth reports dependency health; degraded answers 503.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	h := s.service.Health(r.Context())
	status := http.StatusOK
	if !h.Healthy() {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, h)
}
