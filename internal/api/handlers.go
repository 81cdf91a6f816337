// Copyright (c) 2025 ManuGH
// Licensed under the PolyForm Noncommercial License 1.0.0
// Since v2.0.0, this software is restricted to non-commercial use only.

package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/ManuGH/ytdlq/internal/history"
	xlog "github.com/ManuGH/ytdlq/internal/log"
	"github.com/ManuGH/ytdlq/internal/media"
	"github.com/ManuGH/ytdlq/internal/validate"
)

const maxBodyBytes = 1 << 16

func decodeBody(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		v := validate.New()
		v.AddError("body", "malformed JSON: "+err.Error(), nil)
		return v.Err()
	}
	return nil
}

func (s *Server) handleAddJob(w http.ResponseWriter, r *http.Request) {
	var req addJobRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	req.URL = strings.TrimSpace(req.URL)

	v := validate.New()
	v.MediaURL("url", req.URL)
	v.NonNegative("height", req.Height)
	v.NonNegative("max_height", req.MaxHeight)
	if req.Height > 0 && req.MaxHeight > 0 {
		v.AddError("height", "cannot be combined with max_height", req.Height)
	}
	if err := v.Err(); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	id, err := s.sched.Add(r.Context(), media.NewSource(req.URL), req.selector())
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}

	logger := xlog.WithComponentFromContext(r.Context(), "api")
	logger.Info().
		Str(xlog.FieldJobID, id).
		Str(xlog.FieldURL, req.URL).
		Msg("job queued")

	job, ok := s.sched.Job(id)
	if !ok {
		// removed between Add and lookup
		writeJSON(w, http.StatusAccepted, map[string]string{"id": id})
		return
	}
	w.Header().Set("Location", "/api/v1/jobs/"+id)
	writeJSON(w, http.StatusAccepted, newJobView(job))
}

func (s *Server) handleListJobs(w http.ResponseWriter, _ *http.Request) {
	jobs := s.sched.Jobs()
	out := make([]jobView, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, newJobView(j))
	}
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetJob(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	job, ok := s.sched.Job(id)
	if !ok {
		writeNotFound(w, r)
		return
	}
	v := newJobView(job)
	v.Diagnostics, _ = s.sched.Diagnostics(id)
	writeJSON(w, http.StatusOK, v)
}

func (s *Server) handleRemoveJob(w http.ResponseWriter, r *http.Request) {
	if !s.sched.Remove(chi.URLParam(r, "id")) {
		writeNotFound(w, r)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleQueueStatus(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handlePause(w http.ResponseWriter, _ *http.Request) {
	s.sched.Pause()
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleResume(w http.ResponseWriter, _ *http.Request) {
	s.sched.Resume()
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleClear(w http.ResponseWriter, _ *http.Request) {
	s.sched.Clear()
	writeJSON(w, http.StatusOK, s.sched.Status())
}

func (s *Server) handleSetConcurrency(w http.ResponseWriter, r *http.Request) {
	var req concurrencyRequest
	if err := decodeBody(r, &req); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if err := s.sched.SetMaxConcurrent(req.MaxConcurrent); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, s.sched.Status())
}

// handleSource fetches metadata and the quality ladder without queueing.
func (s *Server) handleSource(w http.ResponseWriter, r *http.Request) {
	if s.fetch == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "metadata fetching is not configured")
		return
	}
	url := strings.TrimSpace(r.URL.Query().Get("url"))
	v := validate.New()
	v.MediaURL("url", url)
	if err := v.Err(); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	src := media.NewSource(url)
	if err := s.fetch.Fetch(r.Context(), src); err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, sourceView{URL: url, Metadata: src.Metadata()})
}

func (s *Server) handleListHistory(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "history is not enabled")
		return
	}

	q := r.URL.Query()
	opts := history.ListOptions{Status: history.Status(q.Get("status"))}
	v := validate.New()
	if opts.Status != "" && !opts.Status.Valid() {
		v.AddError("status", "unknown status", string(opts.Status))
	}
	if raw := q.Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			v.AddError("limit", "must be an integer", raw)
		} else {
			v.Range("limit", n, 1, 1000)
			opts.Limit = n
		}
	}
	if err := v.Err(); err != nil {
		s.writeFailure(w, r, err)
		return
	}

	recs, err := s.hist.List(r.Context(), opts)
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	if recs == nil {
		recs = []history.Record{}
	}
	writeJSON(w, http.StatusOK, recs)
}

func (s *Server) handleGetHistory(w http.ResponseWriter, r *http.Request) {
	if s.hist == nil {
		writeError(w, r, http.StatusServiceUnavailable, "unavailable", "history is not enabled")
		return
	}
	rec, err := s.hist.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		s.writeFailure(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

// handleEvents streams queue events as server-sent events until the client
// goes away.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	rc := http.NewResponseController(w)
	sub := s.sched.Subscribe(r.Context())
	defer sub.Close()

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	if err := rc.Flush(); err != nil {
		s.logger.Debug().Err(err).Msg("event stream cannot flush")
		return
	}

	for ev := range sub.C() {
		payload, err := json.Marshal(newEventView(ev))
		if err != nil {
			s.logger.Warn().Err(err).Str(xlog.FieldEvent, ev.Kind()).Msg("event not encodable")
			continue
		}
		if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.Kind(), payload); err != nil {
			return
		}
		if err := rc.Flush(); err != nil {
			return
		}
	}
}
