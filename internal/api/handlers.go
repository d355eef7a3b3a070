package api

import (
	"context"
	"errors"
	"net/http"
	"unicode/utf8"

	"legal-gateway/internal/advisor"
	"legal-gateway/internal/consultation"
	"legal-gateway/internal/feedback"
	"legal-gateway/internal/monitor"
	"legal-gateway/middleware/ratelimit"
	"legal-gateway/middleware/ratelimit/infra"

	log "github.com/sirupsen/logrus"
)

type consultationData struct {
	LegalAnalysis  string `json:"legal_analysis"`
	ConsultationID string `json:"consultation_id"`
	Category       string `json:"category"`
	Urgency        string `json:"urgency"`
	AIModel        string `json:"ai_model"`
}

type consultationMeta struct {
	Timestamp    string  `json:"timestamp"`
	ResponseTime float64 `json:"response_time"`
	QueryLength  int     `json:"query_length"`
}

type consultationResponse struct {
	Status   string           `json:"status"`
	Data     consultationData `json:"data"`
	Metadata consultationMeta `json:"metadata"`
}

func clientKey(r *http.Request) string {
	if k, ok := ratelimit.ClientKeyFromContext(r.Context()); ok {
		return k
	}
	return ratelimit.ClientIP(r)
}

func (s *Server) handleConsultation(w http.ResponseWriter, r *http.Request) {
	var req ConsultationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		s.writeValidation(w, formatValidationErrors(err))
		return
	}
	queryLength := utf8.RuneCountInString(req.Query)
	req.sanitize()

	start := s.now()
	ans, err := s.deps.Advisor.Advise(r.Context(), advisor.Question{
		Query:    req.Query,
		Category: req.Category,
		Urgency:  req.Urgency,
	})
	if err != nil {
		log.WithError(err).Error("api: advisor failed")
		s.writeError(w, http.StatusInternalServerError, "Failed to generate legal analysis")
		return
	}
	took := s.now().Sub(start)

	rec := consultation.New(req.Query, req.Category, req.Urgency, ans.Text, ans.Model, s.now()).
		WithUserIP(clientKey(r)).
		WithResponseTime(took)
	// a análise já foi gerada e a vaga consumida: grava mesmo se o cliente caiu
	if err := s.deps.Consultations.Save(context.WithoutCancel(r.Context()), rec); err != nil {
		log.WithError(err).WithField("consultation_id", rec.ID).Error("api: save consultation")
		s.writeSaveError(w, err, "Failed to save consultation")
		return
	}
	s.deps.Metrics.ObserveConsultation(rec.Category, rec.Urgency, rec.AIModel, took)

	writeJSON(w, http.StatusOK, consultationResponse{
		Status: statusSuccess,
		Data: consultationData{
			LegalAnalysis:  rec.Response,
			ConsultationID: rec.ID,
			Category:       rec.Category,
			Urgency:        rec.Urgency,
			AIModel:        rec.AIModel,
		},
		Metadata: consultationMeta{
			Timestamp:    stamp(rec.Timestamp),
			ResponseTime: took.Seconds(),
			QueryLength:  queryLength,
		},
	})
}

type feedbackResponse struct {
	Status     string `json:"status"`
	Message    string `json:"message"`
	FeedbackID string `json:"feedback_id"`
	Timestamp  string `json:"timestamp"`
}

func (s *Server) handleFeedback(w http.ResponseWriter, r *http.Request) {
	if s.deps.Feedback == nil {
		s.writeError(w, http.StatusNotFound, "Feedback is disabled")
		return
	}

	var req FeedbackRequest
	if err := decodeJSON(w, r, &req); err != nil {
		s.writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	req.normalize()
	if err := s.validate.Struct(req); err != nil {
		s.writeValidation(w, formatValidationErrors(err))
		return
	}
	req.sanitize()
	if !s.deps.Consultations.Exists(req.ConsultationID) {
		s.writeValidation(w, []ValidationError{{Field: "consultation_id", Message: "consultation_id not found"}})
		return
	}

	f := feedback.Feedback{
		ID:             consultation.NewID(),
		ConsultationID: req.ConsultationID,
		Rating:         req.Rating,
		Comment:        req.Feedback,
		Timestamp:      s.now().UTC(),
	}
	if ip := clientKey(r); ip != "" {
		f.UserIP = &ip
	}
	if err := s.deps.Feedback.Save(context.WithoutCancel(r.Context()), f); err != nil {
		log.WithError(err).WithField("feedback_id", f.ID).Error("api: save feedback")
		s.writeSaveError(w, err, "Failed to save feedback")
		return
	}
	s.deps.Metrics.ObserveFeedback(f.Rating)

	writeJSON(w, http.StatusOK, feedbackResponse{
		Status:     statusSuccess,
		Message:    "Feedback recorded",
		FeedbackID: f.ID,
		Timestamp:  stamp(f.Timestamp),
	})
}

type statisticsData struct {
	consultation.Stats
	Admission       infra.StatsSnapshot  `json:"admission"`
	AdmissionShared *infra.StatsSnapshot `json:"admission_shared,omitempty"`
	Feedback        *feedback.Summary    `json:"feedback,omitempty"`
}

type statisticsResponse struct {
	Status    string         `json:"status"`
	Data      statisticsData `json:"data"`
	Timestamp string         `json:"timestamp"`
}

func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	data := statisticsData{
		Stats:     s.deps.Consultations.Stats(),
		Admission: s.admission.Snapshot(),
	}
	if s.deps.SharedStats != nil {
		shared, err := s.deps.SharedStats.Snapshot(r.Context())
		if err != nil {
			log.WithError(err).Warn("api: shared admission stats unavailable")
		} else {
			data.AdmissionShared = &shared
		}
	}
	if s.deps.Feedback != nil {
		sum := s.deps.Feedback.Summary()
		data.Feedback = &sum
	}
	writeJSON(w, http.StatusOK, statisticsResponse{
		Status:    statusSuccess,
		Data:      data,
		Timestamp: stamp(s.now()),
	})
}

type concurrencyInfo struct {
	InUse    int `json:"in_use"`
	Capacity int `json:"capacity"`
}

type healthResponse struct {
	monitor.Report
	Concurrency *concurrencyInfo `json:"concurrency,omitempty"`
	Timestamp   string           `json:"timestamp"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{
		Report:    s.deps.Health.Report(r.Context()),
		Timestamp: stamp(s.now()),
	}
	if s.slots != nil {
		resp.Concurrency = &concurrencyInfo{InUse: s.slots.InUse(), Capacity: s.slots.Cap()}
	}
	writeJSON(w, http.StatusOK, resp)
}

type categoriesResponse struct {
	Status     string                      `json:"status"`
	Categories []consultation.CategoryInfo `json:"categories"`
	Urgencies  []string                    `json:"urgency_levels"`
}

func (s *Server) handleCategories(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, categoriesResponse{
		Status:     statusSuccess,
		Categories: consultation.Categories,
		Urgencies:  consultation.Urgencies,
	})
}

// writeSaveError distingue falha de disco de request cancelada pelo cliente.
func (s *Server) writeSaveError(w http.ResponseWriter, err error, message string) {
	if errors.Is(err, consultation.ErrPersist) || errors.Is(err, feedback.ErrPersist) {
		s.writeError(w, http.StatusInternalServerError, message)
		return
	}
	s.writeError(w, http.StatusInternalServerError, "Internal server error")
}
