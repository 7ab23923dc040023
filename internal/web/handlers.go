package web

import (
	"encoding/json"
	"errors"
	"mime"
	"net/http"
	"time"

	"loan-predictor/internal/features"
	"loan-predictor/internal/ml"
	"loan-predictor/internal/storage"

	"github.com/rs/zerolog/log"
)

const maxBodyBytes = 64 << 10

// PredictResponse is the JSON API success body.
type PredictResponse struct {
	RequestID string              `json:"request_id"`
	Features  features.Row        `json:"features"`
	Result    ml.PredictionResult `json:"result"`
}

// ErrorResponse is the JSON API error body. Internal causes are never
// included.
type ErrorResponse struct {
	Error     string `json:"error"`
	Field     string `json:"field,omitempty"`
	Message   string `json:"message,omitempty"`
	RequestID string `json:"request_id,omitempty"`
}

// HealthResponse reports whether both models are loaded.
type HealthResponse struct {
	Status      string          `json:"status"`
	Models      map[string]bool `json:"models"`
	Policy      ml.Policy       `json:"policy"`
	FeedClients int             `json:"feed_clients"`
}

// ModelInfoResponse describes the loaded models and their load history.
type ModelInfoResponse struct {
	Policy      ml.Policy                 `json:"policy"`
	Models      []ml.LoadStatus           `json:"models"`
	LoadHistory []storage.ModelLoadRecord `json:"load_history,omitempty"`
}

func (s *Server) handleForm(w http.ResponseWriter, r *http.Request) {
	s.pages.render(w, http.StatusOK, "form.html", newFormView(nil, nil))
}

func (s *Server) handlePredictPage(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := r.ParseForm(); err != nil {
		s.countInvalid("form")
		s.pages.render(w, http.StatusBadRequest, "form.html",
			newFormView(nil, &features.InvalidInputError{Field: "form", Message: "could not read form submission"}))
		return
	}

	rec, _, res, err := s.predict(requestID, r.PostForm.Get)
	if err != nil {
		var invalid *features.InvalidInputError
		switch {
		case errors.As(err, &invalid):
			s.pages.render(w, http.StatusBadRequest, "form.html", newFormView(r.PostForm.Get, invalid))
		case errors.Is(err, ml.ErrModelUnavailable):
			s.pages.render(w, http.StatusServiceUnavailable, "unavailable.html", unavailableView{RequestID: requestID})
		default:
			http.Error(w, "internal error", http.StatusInternalServerError)
		}
		return
	}

	s.pages.render(w, http.StatusOK, "result.html", newResultView(requestID, rec, res))
}

func (s *Server) handlePredictAPI(w http.ResponseWriter, r *http.Request) {
	requestID := RequestIDFrom(r.Context())
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)

	get, err := requestValues(r)
	if err != nil {
		s.countInvalid("body")
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:     "invalid input",
			Field:     "body",
			Message:   err.Error(),
			RequestID: requestID,
		})
		return
	}

	_, row, res, err := s.predict(requestID, get)
	if err != nil {
		var invalid *features.InvalidInputError
		switch {
		case errors.As(err, &invalid):
			writeJSON(w, http.StatusBadRequest, ErrorResponse{
				Error:     "invalid input",
				Field:     invalid.Field,
				Message:   invalid.Message,
				RequestID: requestID,
			})
		case errors.Is(err, ml.ErrModelUnavailable):
			writeJSON(w, http.StatusServiceUnavailable, ErrorResponse{Error: "model unavailable", RequestID: requestID})
		default:
			writeJSON(w, http.StatusInternalServerError, ErrorResponse{Error: "internal error", RequestID: requestID})
		}
		return
	}

	writeJSON(w, http.StatusOK, PredictResponse{RequestID: requestID, Features: row, Result: res})
}

// predict parses and scores one applicant, logging failures and publishing
// successful decisions to the live feed.
func (s *Server) predict(requestID string, get func(string) string) (features.ApplicantRecord, features.Row, ml.PredictionResult, error) {
	rec, err := features.ParseApplicant(get)
	if err != nil {
		s.rejectInput(requestID, err)
		return rec, features.Row{}, ml.PredictionResult{}, err
	}

	row, res, err := s.scorer.ScoreApplicant(rec)
	if err != nil {
		if errors.Is(err, features.ErrInvalidInput) {
			s.rejectInput(requestID, err)
		} else {
			log.Error().Err(err).Str("request_id", requestID).Msg("Prediction failed")
		}
		return rec, row, res, err
	}

	log.Info().
		Str("request_id", requestID).
		Str("decision", string(res.Decision)).
		Str("policy", string(res.Policy)).
		Float64("lr_probability", res.LRProbability).
		Float64("dt_probability", res.DTProbability).
		Msg("Prediction served")

	if s.hub != nil {
		s.hub.Publish(NewDecisionEvent(requestID, res, time.Now()))
	}
	return rec, row, res, nil
}

func (s *Server) rejectInput(requestID string, err error) {
	var invalid *features.InvalidInputError
	if errors.As(err, &invalid) {
		s.countInvalid(invalid.Field)
	}
	log.Info().Err(err).Str("request_id", requestID).Msg("Rejected applicant input")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	models := s.scorer.Models()
	resp := HealthResponse{
		Status: "ok",
		Models: map[string]bool{
			ml.ModelLogistic: models != nil && models.Logistic != nil,
			ml.ModelTree:     models != nil && models.Tree != nil,
		},
		Policy: s.scorer.Policy(),
	}
	if s.hub != nil {
		resp.FeedClients = s.hub.ClientCount()
	}

	status := http.StatusOK
	if !s.scorer.Available() {
		resp.Status = "degraded"
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}

func (s *Server) handleModelInfo(w http.ResponseWriter, r *http.Request) {
	resp := ModelInfoResponse{
		Policy: s.scorer.Policy(),
		Models: s.scorer.Models().Status(),
	}
	if s.history != nil {
		history, err := s.history.RecentModelLoads(s.historyLimit)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to read model load history")
		} else {
			resp.LoadHistory = history
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) countInvalid(field string) {
	if s.metrics != nil {
		s.metrics.InvalidRequestsInc(field)
	}
}

// requestValues returns a field getter for a JSON or form-encoded body.
// JSON strings and numbers are both accepted; numbers keep their literal
// text so parsing matches the form path.
func requestValues(r *http.Request) (func(string) string, error) {
	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "application/json" {
		if err := r.ParseForm(); err != nil {
			return nil, errors.New("could not read form body")
		}
		return r.PostForm.Get, nil
	}

	var body map[string]json.RawMessage
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		return nil, errors.New("malformed JSON body")
	}
	return func(field string) string {
		raw, ok := body[field]
		if !ok || string(raw) == "null" {
			return ""
		}
		var str string
		if err := json.Unmarshal(raw, &str); err == nil {
			return str
		}
		var num json.Number
		if err := json.Unmarshal(raw, &num); err == nil {
			return num.String()
		}
		// Objects, arrays and booleans are passed through and fail parsing.
		return string(raw)
	}, nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
