// Package api serves stored scoring results over HTTP: sessions, their
// history and interval scores, summaries, timeline charts and the latest
// calibration.
package api

import (
	"errors"
	"io"
	"math"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/banshee-data/dance.report/internal/catalog"
	"github.com/banshee-data/dance.report/internal/config"
	"github.com/banshee-data/dance.report/internal/db"
	"github.com/banshee-data/dance.report/internal/diagnostics"
	"github.com/banshee-data/dance.report/internal/httputil"
	"github.com/banshee-data/dance.report/internal/report"
	"github.com/banshee-data/dance.report/internal/session"
	"github.com/banshee-data/dance.report/internal/timeline"
)

const defaultListLimit = 50

// Server exposes the results database.
type Server struct {
	db  *db.DB
	cfg *config.TuningConfig
	log *zap.Logger
}

// NewServer returns a Server. A nil cfg serves built-in defaults.
func NewServer(database *db.DB, cfg *config.TuningConfig, log *zap.Logger) *Server {
	if cfg == nil {
		cfg = config.EmptyTuningConfig()
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Server{db: database, cfg: cfg, log: log}
}

type loggingResponseWriter struct {
	http.ResponseWriter
	statusCode int
}

func (lrw *loggingResponseWriter) WriteHeader(code int) {
	lrw.statusCode = code
	lrw.ResponseWriter.WriteHeader(code)
}

// LoggingMiddleware logs method, path, status and duration.
func LoggingMiddleware(log *zap.Logger, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lrw := &loggingResponseWriter{w, http.StatusOK}
		next.ServeHTTP(lrw, r)
		log.Info("request",
			zap.String("method", r.Method),
			zap.String("uri", r.RequestURI),
			zap.Int("status", lrw.statusCode),
			zap.Float64("duration_ms", float64(time.Since(start).Nanoseconds())/1e6))
	})
}

// ServeMux returns the API routes.
func (s *Server) ServeMux() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/sessions", s.listSessions)
	mux.HandleFunc("GET /api/sessions/{id}", s.getSession)
	mux.HandleFunc("DELETE /api/sessions/{id}", s.deleteSession)
	mux.HandleFunc("GET /api/sessions/{id}/history", s.sessionHistory)
	mux.HandleFunc("GET /api/sessions/{id}/intervals", s.sessionIntervals)
	mux.HandleFunc("GET /api/sessions/{id}/summary", s.sessionSummary)
	mux.HandleFunc("GET /api/sessions/{id}/chart", s.sessionChart)
	mux.HandleFunc("GET /api/sessions/{id}/mapping", s.sessionMapping)
	mux.HandleFunc("GET /api/calibration", s.latestCalibration)
	mux.HandleFunc("GET /api/config", s.showConfig)
	return mux
}

// Handler returns ServeMux with the admin debug routes attached and request
// logging applied.
func (s *Server) Handler() (http.Handler, error) {
	mux := s.ServeMux()
	if err := s.db.AttachAdminRoutes(mux); err != nil {
		return nil, err
	}
	return LoggingMiddleware(s.log, mux), nil
}

func (s *Server) writeDBError(w http.ResponseWriter, err error) {
	if errors.Is(err, db.ErrNotFound) {
		httputil.NotFound(w, err.Error())
		return
	}
	s.log.Error("database error", zap.Error(err))
	httputil.InternalServerError(w, "database error")
}

func (s *Server) listSessions(w http.ResponseWriter, r *http.Request) {
	limit, ok := httputil.QueryInt(r, "limit", defaultListLimit)
	if !ok || limit < 0 {
		httputil.BadRequest(w, "limit must be a non-negative integer")
		return
	}
	sessions, err := s.db.ListSessions(r.Context(), limit)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	if sessions == nil {
		sessions = []db.Session{}
	}
	httputil.WriteJSONOK(w, sessions)
}

func (s *Server) getSession(w http.ResponseWriter, r *http.Request) {
	sess, err := s.db.GetSession(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	httputil.WriteJSONOK(w, sess)
}

func (s *Server) deleteSession(w http.ResponseWriter, r *http.Request) {
	if err := s.db.DeleteSession(r.Context(), r.PathValue("id")); err != nil {
		s.writeDBError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// loadHistory fetches a session and its history, writing the error response
// itself when either is missing.
func (s *Server) loadHistory(w http.ResponseWriter, r *http.Request) (*db.Session, []session.ScoredPose, bool) {
	id := r.PathValue("id")
	sess, err := s.db.GetSession(r.Context(), id)
	if err != nil {
		s.writeDBError(w, err)
		return nil, nil, false
	}
	history, err := s.db.SessionHistory(r.Context(), id)
	if err != nil {
		s.writeDBError(w, err)
		return nil, nil, false
	}
	return sess, history, true
}

func (s *Server) sessionHistory(w http.ResponseWriter, r *http.Request) {
	if _, history, ok := s.loadHistory(w, r); ok {
		httputil.WriteJSONOK(w, history)
	}
}

func (s *Server) sessionIntervals(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("id")
	if _, err := s.db.GetSession(r.Context(), id); err != nil {
		s.writeDBError(w, err)
		return
	}
	intervals, err := s.db.SessionIntervals(r.Context(), id)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	httputil.WriteJSONOK(w, intervals)
}

type summaryResponse struct {
	diagnostics.Summary
	Header      string   `json:"header"`
	WorstAngles []string `json:"worst_angles"`
}

func (s *Server) sessionSummary(w http.ResponseWriter, r *http.Request) {
	_, history, ok := s.loadHistory(w, r)
	if !ok {
		return
	}
	worst, ok := httputil.QueryInt(r, "worst", 3)
	if !ok {
		httputil.BadRequest(w, "worst must be an integer")
		return
	}
	sum := diagnostics.Summarize(history)
	resp := summaryResponse{Summary: sum, WorstAngles: diagnostics.WorstAngles(sum, worst)}
	if sum.Total.Count > 0 {
		resp.Header = sum.Grade.Header()
	}
	httputil.WriteJSONOK(w, resp)
}

func (s *Server) sessionChart(w http.ResponseWriter, r *http.Request) {
	sess, history, ok := s.loadHistory(w, r)
	if !ok {
		return
	}
	intervals, err := s.db.SessionIntervals(r.Context(), sess.ID)
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	httputil.WriteHTML(w, func(out io.Writer) error {
		return report.RenderTimelineHTML(out, sess.Title, history, intervals)
	})
}

type mappingResponse struct {
	Original float64 `json:"originalTimestamp"`
	Mapped   float64 `json:"mappedTimestamp"`
}

// sessionMapping translates the reference timestamp t into the live
// timestamp scored nearest to it.
func (s *Server) sessionMapping(w http.ResponseWriter, r *http.Request) {
	if !r.URL.Query().Has("t") {
		httputil.BadRequest(w, "t is required")
		return
	}
	t, ok := httputil.QueryFloat(r, "t", 0)
	if !ok || math.IsNaN(t) || math.IsInf(t, 0) {
		httputil.BadRequest(w, "t must be a number")
		return
	}
	_, history, ok := s.loadHistory(w, r)
	if !ok {
		return
	}
	mapped, ok := timeline.MapTimestamp(session.Mappings(history), t, s.cfg.MappingMaxDiffMs())
	if !ok {
		httputil.NotFound(w, "no scored frame near the requested timestamp")
		return
	}
	httputil.WriteJSONOK(w, mappingResponse{Original: t, Mapped: mapped})
}

func (s *Server) latestCalibration(w http.ResponseWriter, r *http.Request) {
	c, err := s.db.LatestCalibration(r.Context())
	if err != nil {
		s.writeDBError(w, err)
		return
	}
	httputil.WriteJSONOK(w, c)
}

type configResponse struct {
	Variant             string              `json:"variant"`
	ConfidenceThreshold float64             `json:"confidence_threshold"`
	OcclusionPenalty    float64             `json:"occlusion_penalty"`
	SuccessThreshold    float64             `json:"success_threshold"`
	MaxWindowMs         float64             `json:"max_window_ms"`
	MinEventGapMs       float64             `json:"min_event_gap_ms"`
	MatchToleranceMs    float64             `json:"match_tolerance_ms"`
	CalibrationOffsetMs float64             `json:"calibration_offset_ms"`
	WeakJointThreshold  float64             `json:"weak_joint_threshold"`
	Events              []float64           `json:"events"`
	Angles              []catalog.AngleSpec `json:"angles"`
}

func (s *Server) showConfig(w http.ResponseWriter, r *http.Request) {
	cat, err := s.cfg.Catalog()
	if err != nil {
		httputil.InternalServerError(w, err.Error())
		return
	}
	dc := s.cfg.DelayConfig()
	resp := configResponse{
		Variant:             string(s.cfg.GetVariant()),
		ConfidenceThreshold: s.cfg.GetConfidenceThreshold(),
		OcclusionPenalty:    s.cfg.GetOcclusionPenalty(),
		SuccessThreshold:    dc.Threshold,
		MaxWindowMs:         dc.MaxWindowMs,
		MinEventGapMs:       dc.MinEventGapMs,
		MatchToleranceMs:    s.cfg.MatchToleranceMs(),
		CalibrationOffsetMs: s.cfg.GetCalibrationOffsetMs(),
		WeakJointThreshold:  s.cfg.GetWeakJointThreshold(),
		Events:              s.cfg.GetEvents(),
		Angles:              cat.Specs(),
	}
	httputil.WriteJSONOK(w, resp)
}

// SessionURL returns the chart URL of a stored session.
func SessionURL(base, id string) string {
	return base + "/api/sessions/" + id + "/chart"
}
