package api

import (
	"encoding/json"
	"errors"
	"io"
	"mime"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/sells-group/readiness-cli/internal/analyzer"
	"github.com/sells-group/readiness-cli/internal/ingest"
	"github.com/sells-group/readiness-cli/internal/model"
	"github.com/sells-group/readiness-cli/internal/store"
)

// UploadRequest is the JSON form of POST /upload.
type UploadRequest struct {
	Text    string `json:"text"`
	Country string `json:"country"`
	ERP     string `json:"erp"`
}

// UploadResponse is returned by POST /upload.
type UploadResponse struct {
	UploadID string `json:"uploadId"`
}

// AnalyzeRequest is the body of POST /analyze.
type AnalyzeRequest struct {
	UploadID      string              `json:"uploadId"`
	Questionnaire model.Questionnaire `json:"questionnaire"`
}

// DatabaseStatus reports store connectivity.
type DatabaseStatus struct {
	Type      string `json:"type"`
	Connected bool   `json:"connected"`
	Error     string `json:"error,omitempty"`
}

// HealthResponse is returned by GET /health.
type HealthResponse struct {
	Status    string         `json:"status"`
	Database  DatabaseStatus `json:"database"`
	Timestamp time.Time      `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := HealthResponse{
		Status:    "ok",
		Database:  DatabaseStatus{Type: s.cfg.DBDriver, Connected: true},
		Timestamp: s.now().UTC(),
	}
	status := http.StatusOK
	if err := s.store.Ping(r.Context()); err != nil {
		resp.Status = "error"
		resp.Database.Connected = false
		resp.Database.Error = err.Error()
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleUpload(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, s.cfg.MaxUploadBytes)

	res, req, err := s.readUpload(r)
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "upload too large")
			return
		}
		writeError(w, http.StatusBadRequest, "Upload failed: "+err.Error())
		return
	}

	u := &model.Upload{
		Country:    strings.TrimSpace(req.Country),
		ERP:        strings.TrimSpace(req.ERP),
		FileType:   string(res.Format),
		RowsParsed: res.RowsParsed,
		TotalRows:  res.TotalRows,
		Records:    res.Records,
	}
	if err := s.store.CreateUpload(r.Context(), u); err != nil {
		zap.L().Error("api: create upload", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store upload")
		return
	}

	zap.L().Info("api: upload stored",
		zap.String("upload_id", u.ID),
		zap.String("format", u.FileType),
		zap.Int("rows", u.RowsParsed),
	)
	writeJSON(w, http.StatusOK, UploadResponse{UploadID: u.ID})
}

// readUpload accepts a multipart file or text field, a JSON body, or an
// url-encoded form.
func (s *Server) readUpload(r *http.Request) (*ingest.Result, UploadRequest, error) {
	var req UploadRequest
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))

	switch mediaType {
	case "multipart/form-data":
		if err := r.ParseMultipartForm(s.cfg.MaxUploadBytes); err != nil {
			return nil, req, eris.Wrap(err, "api: parse multipart form")
		}
		req.Country = r.FormValue("country")
		req.ERP = r.FormValue("erp")

		file, header, err := r.FormFile("file")
		switch {
		case err == nil:
			defer file.Close() //nolint:errcheck
			body, err := io.ReadAll(file)
			if err != nil {
				return nil, req, eris.Wrap(err, "api: read upload file")
			}
			format := ingest.DetectFormat(header.Filename, header.Header.Get("Content-Type"), body)
			res, err := ingest.Parse(format, body, s.cfg.MaxRows)
			return res, req, err
		case errors.Is(err, http.ErrMissingFile):
			req.Text = r.FormValue("text")
		default:
			return nil, req, eris.Wrap(err, "api: read upload file")
		}
	case "application/json":
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			return nil, req, eris.Wrap(err, "api: decode upload body")
		}
	default:
		if err := r.ParseForm(); err != nil {
			return nil, req, eris.Wrap(err, "api: parse form")
		}
		req.Text = r.FormValue("text")
		req.Country = r.FormValue("country")
		req.ERP = r.FormValue("erp")
	}

	res, err := ingest.ParseText(req.Text, s.cfg.MaxRows)
	return res, req, err
}

func (s *Server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	var req AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.UploadID == "" {
		writeError(w, http.StatusBadRequest, "uploadId is required")
		return
	}

	u, err := s.store.GetUpload(r.Context(), req.UploadID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusBadRequest, "Upload not found or has no data")
			return
		}
		zap.L().Error("api: get upload", zap.String("upload_id", req.UploadID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load upload")
		return
	}

	report, err := s.analyzer.Analyze(r.Context(), analyzer.FromUpload(u, req.Questionnaire))
	if err != nil {
		zap.L().Error("api: analyze", zap.String("upload_id", u.ID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "Analysis failed")
		return
	}

	if _, err := s.store.SaveReport(r.Context(), u.ID, report, s.cfg.ReportTTL); err != nil {
		zap.L().Error("api: save report", zap.String("report_id", report.ReportID), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to store report")
		return
	}

	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleGetReport(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "reportID")

	report, err := s.store.GetReport(r.Context(), id)
	switch {
	case err == nil:
		writeJSON(w, http.StatusOK, report)
	case errors.Is(err, store.ErrNotFound):
		writeError(w, http.StatusNotFound, "Report not found")
	case errors.Is(err, store.ErrExpired):
		writeError(w, http.StatusNotFound, "Report has expired")
	default:
		zap.L().Error("api: get report", zap.String("report_id", id), zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to load report")
	}
}

func (s *Server) handleListReports(w http.ResponseWriter, r *http.Request) {
	limit := s.cfg.ListLimit
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	list, err := s.store.ListReports(r.Context(), limit)
	if err != nil {
		zap.L().Error("api: list reports", zap.Error(err))
		writeError(w, http.StatusInternalServerError, "failed to list reports")
		return
	}
	if list == nil {
		list = []model.ReportSummary{}
	}
	writeJSON(w, http.StatusOK, list)
}
