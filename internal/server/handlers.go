package server

import (
	"encoding/json"
	"errors"
	"io"
	"math"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"pdf-rag/internal/models"
)

type askRequest struct {
	Question string `json:"question"`
	PDFID    string `json:"pdf_id"`
}

type askResponse struct {
	Status        string                   `json:"status"`
	Answer        string                   `json:"answer"`
	Confidence    float64                  `json:"confidence"`
	References    []string                 `json:"references"`
	HighlightInfo []models.HighlightDetail `json:"highlight_info"`
	PDFID         string                   `json:"pdf_id"`
}

type processResponse struct {
	Status  string                `json:"status"`
	Message string                `json:"message"`
	PDFID   string                `json:"pdf_id"`
	Details *models.IngestSummary `json:"details"`
}

func (s *Server) handleProcessPDF(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, maxUploadBytes)
	file, header, err := r.FormFile("file")
	if err != nil {
		s.respondError(w, http.StatusBadRequest, "No file provided")
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".pdf") {
		s.respondError(w, http.StatusBadRequest, "File must be a PDF")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		s.respondError(w, http.StatusInternalServerError, "Error processing PDF: "+err.Error())
		return
	}

	summary, err := s.svc.Ingest(r.Context(), r.FormValue("pdf_id"), data, nil)
	if err != nil {
		log.Error().Err(err).Str("file", header.Filename).Msg("Processing failed")
		s.respondError(w, http.StatusInternalServerError, "Error processing PDF: "+err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, processResponse{
		Status:  "success",
		Message: "PDF processed and indexed successfully",
		PDFID:   summary.DocumentID,
		Details: summary,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req askRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || strings.TrimSpace(req.Question) == "" {
		s.respondError(w, http.StatusBadRequest, "No question provided")
		return
	}

	answer, err := s.svc.Ask(r.Context(), req.Question, req.PDFID)
	if errors.Is(err, models.ErrNoDocumentsIndexed) {
		s.respondJSON(w, http.StatusOK, map[string]string{"status": "error", "message": models.NoDocumentsMessage})
		return
	}
	if err != nil {
		log.Error().Err(err).Msg("Ask failed")
		s.respondError(w, http.StatusInternalServerError, err.Error())
		return
	}

	s.respondJSON(w, http.StatusOK, askResponse{
		Status:        "success",
		Answer:        answer.Text,
		Confidence:    math.Round(answer.Confidence*100) / 100,
		References:    answer.Citations,
		HighlightInfo: answer.HighlightInfo,
		PDFID:         answer.DocumentID,
	})
}

func (s *Server) handleTest(w http.ResponseWriter, r *http.Request) {
	s.respondJSON(w, http.StatusOK, map[string]string{"status": "success", "message": "API is working"})
}

func (s *Server) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func (s *Server) respondError(w http.ResponseWriter, status int, message string) {
	s.respondJSON(w, status, map[string]string{"status": "error", "message": message})
}
