package main

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mhpenta/tryon"
)

const sessionHeader = "X-Session-ID"

type server struct {
	manager  *tryon.Manager
	sessions *tryon.SessionStore
	logger   *slog.Logger

	maxUploadBytes int64
	requestTimeout time.Duration
}

type apiError struct {
	Error string `json:"error"`
	Step  string `json:"step,omitempty"`
}

type imageResponse struct {
	Image    string          `json:"image"`
	Angle    tryon.ViewAngle `json:"angle,omitempty"`
	Filename string          `json:"filename"`
	Attempts int             `json:"attempts"`
	Text     string          `json:"text,omitempty"`
	Path     string          `json:"path,omitempty"`
}

type viewsResponse struct {
	Views []imageResponse `json:"views"`
}

type modelRequest struct {
	Description string              `json:"description"`
	Profile     *tryon.ModelProfile `json:"profile,omitempty"`
}

func (s *server) routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/session", s.handleCreateSession)
	mux.HandleFunc("GET /api/session/{id}", s.handleGetSession)
	mux.HandleFunc("POST /api/analyze", s.handleAnalyze)
	mux.HandleFunc("POST /api/model", s.handleModel)
	mux.HandleFunc("POST /api/view", s.handleView)
	mux.HandleFunc("POST /api/views", s.handleViews)
	mux.HandleFunc("GET /healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	return withLogging(mux, s.logger)
}

func (s *server) handleCreateSession(w http.ResponseWriter, _ *http.Request) {
	sess := s.sessions.Create()
	writeJSON(w, http.StatusCreated, sess.Snapshot())
}

func (s *server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.sessions.Get(r.PathValue("id"))
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown session"})
		return
	}
	writeJSON(w, http.StatusOK, sess.Snapshot())
}

func (s *server) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !s.parseForm(w, r) {
		return
	}

	img, err := readImage(r, "image")
	if err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	var analysis *tryon.ClothingAnalysis
	err = s.step(sess, tryon.StateAnalyzing, func() error {
		var err error
		analysis, err = s.manager.AnalyzeClothing(ctx, img, nil)
		if err == nil && sess != nil {
			sess.SetAnalysis(img, analysis)
		}
		return err
	})
	if err != nil {
		s.writeStepError(w, tryon.StateAnalyzing, err)
		return
	}

	writeJSON(w, http.StatusOK, struct {
		*tryon.ClothingAnalysis
		Description string `json:"description"`
	}{analysis, analysis.Description()})
}

func (s *server) handleModel(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}

	var body modelRequest
	r.Body = http.MaxBytesReader(w, r.Body, 1<<20)
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil && !errors.Is(err, io.EOF) {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid JSON body"})
		return
	}
	desc := strings.TrimSpace(body.Description)
	if desc == "" && body.Profile != nil {
		desc = body.Profile.Describe()
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	var result *tryon.GenerationResult
	err := s.step(sess, tryon.StateGeneratingModel, func() error {
		var err error
		result, err = s.manager.GenerateModel(ctx, tryon.ModelRequest{Description: desc}, nil)
		if err == nil && !result.Empty() && sess != nil {
			sess.SetModel(desc, result)
		}
		return err
	})
	if err != nil {
		s.writeStepError(w, tryon.StateGeneratingModel, err)
		return
	}

	s.writeImage(r.Context(), w, sess, tryon.StateGeneratingModel, result)
}

func (s *server) handleView(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !s.parseForm(w, r) {
		return
	}

	angle, err := tryon.ParseViewAngle(r.FormValue("angle"))
	if err != nil {
		s.writeStepError(w, tryon.StateCompositing, err)
		return
	}
	req, err := s.compositeRequest(r, sess, angle)
	if err != nil {
		s.writeStepError(w, tryon.StateCompositing, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	var result *tryon.GenerationResult
	err = s.step(sess, tryon.StateCompositing, func() error {
		var err error
		result, err = s.manager.GenerateView(ctx, req, nil)
		if err == nil && !result.Empty() && sess != nil {
			sess.SetView(result)
		}
		return err
	})
	if err != nil {
		s.writeStepError(w, tryon.StateCompositing, err)
		return
	}

	s.writeImage(r.Context(), w, sess, tryon.StateCompositing, result)
}

func (s *server) handleViews(w http.ResponseWriter, r *http.Request) {
	sess, ok := s.session(w, r)
	if !ok {
		return
	}
	if !s.parseForm(w, r) {
		return
	}

	var angles []tryon.ViewAngle
	for _, raw := range splitCSV(r.FormValue("angles")) {
		a, err := tryon.ParseViewAngle(raw)
		if err != nil {
			s.writeStepError(w, tryon.StateCompositing, err)
			return
		}
		angles = append(angles, a)
	}
	req, err := s.compositeRequest(r, sess, tryon.ViewFront)
	if err != nil {
		s.writeStepError(w, tryon.StateCompositing, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), s.requestTimeout)
	defer cancel()

	var results []*tryon.GenerationResult
	err = s.step(sess, tryon.StateCompositing, func() error {
		var err error
		results, err = s.manager.GenerateViews(ctx, req, angles, nil)
		return err
	})
	if err != nil {
		s.writeStepError(w, tryon.StateCompositing, err)
		return
	}

	// all or nothing: the session only records a complete set of views
	for _, res := range results {
		if res.Empty() {
			writeJSON(w, http.StatusBadGateway, apiError{
				Error: fmt.Sprintf("%s failed: no image returned for %s view", tryon.StateCompositing.Step(), res.Angle),
				Step:  tryon.StateCompositing.Step(),
			})
			return
		}
	}

	out := viewsResponse{Views: make([]imageResponse, 0, len(results))}
	for _, res := range results {
		if sess != nil {
			sess.SetView(res)
		}
		out.Views = append(out.Views, s.imagePayload(r.Context(), sess, res))
	}
	writeJSON(w, http.StatusOK, out)
}

// session resolves the optional session header. Without a header the request is stateless.
func (s *server) session(w http.ResponseWriter, r *http.Request) (*tryon.Session, bool) {
	id := strings.TrimSpace(r.Header.Get(sessionHeader))
	if id == "" {
		return nil, true
	}
	sess, ok := s.sessions.Get(id)
	if !ok {
		writeJSON(w, http.StatusNotFound, apiError{Error: "unknown session"})
		return nil, false
	}
	return sess, true
}

// step runs fn under the session's single-step guard, if there is a session.
func (s *server) step(sess *tryon.Session, state tryon.State, fn func() error) error {
	if sess == nil {
		return fn()
	}
	return sess.Run(state, fn)
}

func (s *server) parseForm(w http.ResponseWriter, r *http.Request) bool {
	r.Body = http.MaxBytesReader(w, r.Body, s.maxUploadBytes)
	if err := r.ParseMultipartForm(s.maxUploadBytes); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "invalid multipart form"})
		return false
	}
	return true
}

// compositeRequest builds the request from the form, falling back to what the
// session already holds for any part that was not uploaded.
func (s *server) compositeRequest(r *http.Request, sess *tryon.Session, angle tryon.ViewAngle) (tryon.GenerationRequest, error) {
	clothing, err := readImage(r, "clothing")
	if err != nil {
		return tryon.GenerationRequest{}, err
	}
	model, err := readImage(r, "model")
	if err != nil {
		return tryon.GenerationRequest{}, err
	}
	req := tryon.GenerationRequest{
		Clothing:            clothing,
		Model:               model,
		ClothingDescription: strings.TrimSpace(r.FormValue("clothing_description")),
		ModelDescription:    strings.TrimSpace(r.FormValue("model_description")),
		Angle:               angle,
	}
	if sess == nil {
		return req, nil
	}

	// merged field by field; the manager reports whatever is still missing
	stored := sess.Draft(angle)
	if req.Clothing.IsEmpty() {
		req.Clothing = stored.Clothing
	}
	if req.Model.IsEmpty() {
		req.Model = stored.Model
	}
	if req.ClothingDescription == "" {
		req.ClothingDescription = stored.ClothingDescription
	}
	if req.ModelDescription == "" {
		req.ModelDescription = stored.ModelDescription
	}
	return req, nil
}

func (s *server) writeImage(ctx context.Context, w http.ResponseWriter, sess *tryon.Session, state tryon.State, res *tryon.GenerationResult) {
	if res.Empty() {
		writeJSON(w, http.StatusBadGateway, apiError{
			Error: fmt.Sprintf("%s failed: no image returned", state.Step()),
			Step:  state.Step(),
		})
		return
	}
	writeJSON(w, http.StatusOK, s.imagePayload(ctx, sess, res))
}

func (s *server) imagePayload(ctx context.Context, sess *tryon.Session, res *tryon.GenerationResult) imageResponse {
	out := imageResponse{
		Image:    dataURL(res.Image),
		Angle:    res.Angle,
		Filename: tryon.SuggestedFilename(res.Angle, res.Image.MIMEType),
		Attempts: res.Attempts,
		Text:     res.Text,
	}
	if s.manager.Storage() == nil {
		return out
	}

	prefix := "anonymous/" + time.Now().UTC().Format("20060102T150405.000")
	if sess != nil {
		prefix = sess.ID
	}
	saved, err := s.manager.SaveResult(ctx, res, prefix+"/"+out.Filename)
	if err != nil {
		s.logger.Warn("saving result failed", "filename", out.Filename, "error", err.Error())
		return out
	}
	out.Path = saved.Path
	return out
}

// writeStepError maps an error onto a status code and a message naming the failed step.
func (s *server) writeStepError(w http.ResponseWriter, state tryon.State, err error) {
	step := state.Step()
	switch {
	case errors.Is(err, tryon.ErrBusy):
		writeJSON(w, http.StatusConflict, apiError{Error: err.Error(), Step: step})
	case tryon.IsInputError(err):
		writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error(), Step: step})
	case tryon.IsRateLimitError(err):
		writeJSON(w, http.StatusTooManyRequests, apiError{Error: fmt.Sprintf("%s failed: %v", step, err), Step: step})
	case errors.Is(err, context.DeadlineExceeded):
		writeJSON(w, http.StatusGatewayTimeout, apiError{Error: fmt.Sprintf("%s timed out", step), Step: step})
	default:
		s.logger.Error("step failed", "step", step, "error", err.Error())
		writeJSON(w, http.StatusBadGateway, apiError{Error: fmt.Sprintf("%s failed: %v", step, err), Step: step})
	}
}

func readImage(r *http.Request, field string) (tryon.InputImage, error) {
	file, header, err := r.FormFile(field)
	if errors.Is(err, http.ErrMissingFile) {
		return tryon.InputImage{}, nil
	}
	if err != nil {
		return tryon.InputImage{}, &tryon.InputError{Field: field, Err: err}
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return tryon.InputImage{}, &tryon.InputError{Field: field, Err: fmt.Errorf("reading upload: %w", err)}
	}

	mimeType := stripParams(header.Header.Get("Content-Type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = stripParams(http.DetectContentType(data))
	}
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = tryon.GetMIMEType(header.Filename)
	}
	return tryon.InputImage{Data: data, MIMEType: mimeType}, nil
}

func stripParams(mimeType string) string {
	mimeType, _, _ = strings.Cut(mimeType, ";")
	return strings.TrimSpace(mimeType)
}

func dataURL(img *tryon.GeneratedImage) string {
	return "data:" + img.MIMEType + ";base64," + base64.StdEncoding.EncodeToString(img.Data)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("content-type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func splitCSV(value string) []string {
	var out []string
	for _, p := range strings.Split(value, ",") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, p)
	}
	return out
}

func withLogging(next http.Handler, logger *slog.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		logger.Info("http", "method", r.Method, "path", r.URL.Path, "dur_ms", time.Since(start).Milliseconds())
	})
}
