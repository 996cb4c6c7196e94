package server

import (
	"errors"
	"net/http"

	"github.com/nao1215/datalab/assist"
)

var errNoAssistant = errors.New("no completion service configured")

// assistResponse carries a completion. Message is set when it failed.
type assistResponse struct {
	Text        string              `json:"text,omitempty"`
	Suggestions []assist.Suggestion `json:"suggestions,omitempty"`
	Message     string              `json:"message,omitempty"`
}

type assistSQLRequest struct {
	Request string `json:"request"`
}

// handleAssistSQL generates a query over the current selection. A failed
// completion is reported in the body with status 200, as the workspace
// never treats it as an error.
func (s *Server) handleAssistSQL(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, errNoAssistant)
		return
	}
	var req assistSQLRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	reply := s.assistant.GenerateSQL(r.Context(), s.ws.Selection(), req.Request)
	if !reply.Failed() {
		s.ws.UseSuggestion(reply.Text)
	}
	writeJSON(w, http.StatusOK, assistResponse{Text: reply.Text, Message: reply.Message})
}

type insightRequest struct {
	// SQL is run to produce the rows to summarize.
	SQL      string `json:"sql"`
	Question string `json:"question,omitempty"`
}

func (s *Server) handleAssistInsights(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, errNoAssistant)
		return
	}
	var req insightRequest
	if err := decode(r, &req); err != nil {
		writeError(w, http.StatusBadRequest, err)
		return
	}

	result, err := s.run(r, req.SQL)
	if err != nil {
		writeError(w, statusFor(err), err)
		return
	}
	reply := s.assistant.Insights(r.Context(), result.Rows, result.FieldNames(), req.Question)
	writeJSON(w, http.StatusOK, assistResponse{Text: reply.Text, Message: reply.Message})
}

func (s *Server) handleAssistSuggestions(w http.ResponseWriter, r *http.Request) {
	if s.assistant == nil {
		writeError(w, http.StatusServiceUnavailable, errNoAssistant)
		return
	}
	suggestions, message := s.assistant.StreamSuggestions(r.Context(), s.ws.Selection(), nil)
	writeJSON(w, http.StatusOK, assistResponse{Suggestions: suggestions, Message: message})
}
