// Radar - Editorial Intelligence Pipeline
// Copyright 2026 Radar Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomfr/radar

package feedback

import (
	"errors"
	"net/http"

	"github.com/goccy/go-json"

	"github.com/tomfr/radar/internal/logging"
	"github.com/tomfr/radar/internal/model"
)

// submitRequest is the wire shape of a POST /api/v1/feedback body.
type submitRequest struct {
	EventID          string   `json:"event_id"`
	Action           string   `json:"action"`
	Note             string   `json:"note,omitempty"`
	MergeInto        string   `json:"merge_into,omitempty"`
	SplitDocumentIDs []string `json:"split_document_ids,omitempty"`
	SplitHeadline    string   `json:"split_headline,omitempty"`
}

type apiError struct {
	Error string `json:"error"`
}

// Handler serves the Feedback Sink's HTTP surface.
type Handler struct {
	sink *Sink
}

// NewHandler wraps a Sink for HTTP use.
func NewHandler(sink *Sink) *Handler {
	return &Handler{sink: sink}
}

// Submit handles POST /api/v1/feedback: decode, delegate to the Sink, and
// report the outcome. A state-disallowed action surfaces as 409; every
// other rejection (malformed body, unknown event, bad references) surfaces
// as 400 — the sink's errors are already request-facing, not internal.
func (h *Handler) Submit(w http.ResponseWriter, r *http.Request) {
	var body submitRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "malformed request body"})
		return
	}
	if body.EventID == "" || body.Action == "" {
		writeJSON(w, http.StatusBadRequest, apiError{Error: "event_id and action are required"})
		return
	}

	req := Request{
		EventID:          body.EventID,
		Action:           model.FeedbackAction(body.Action),
		Actor:            actorFromContext(r.Context()),
		Note:             body.Note,
		MergeInto:        body.MergeInto,
		SplitDocumentIDs: body.SplitDocumentIDs,
		SplitHeadline:    body.SplitHeadline,
	}

	fe, err := h.sink.Submit(r.Context(), req)
	if err != nil {
		var notAllowed *ErrActionNotAllowed
		switch {
		case errors.As(err, &notAllowed):
			writeJSON(w, http.StatusConflict, apiError{Error: err.Error()})
		default:
			logging.Error().Err(err).Str("event_id", body.EventID).Msg("feedback: submit failed")
			writeJSON(w, http.StatusBadRequest, apiError{Error: err.Error()})
		}
		return
	}

	writeJSON(w, http.StatusAccepted, fe)
}

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		logging.Error().Err(err).Msg("feedback: failed to write response")
	}
}
