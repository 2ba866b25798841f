package server

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/leapstack-labs/condgraph/internal/export"
	"github.com/leapstack-labs/condgraph/internal/lineage"
)

// StatusResponse describes the loaded snapshot.
type StatusResponse struct {
	LoadID     string    `json:"load_id"`
	LoadedAt   time.Time `json:"loaded_at"`
	ExportFile string    `json:"export_file"`
	Jobs       int       `json:"jobs"`
	Edges      int       `json:"edges"`
	Error      string    `json:"error,omitempty"`
}

// JobsResponse lists all jobs.
type JobsResponse struct {
	Jobs  []lineage.Job `json:"jobs"`
	Total int           `json:"total"`
}

// EdgesResponse lists all edges.
type EdgesResponse struct {
	Edges []lineage.Edge `json:"edges"`
	Total int            `json:"total"`
}

// LevelsResponse groups job names by level.
type LevelsResponse struct {
	Acyclic bool       `json:"acyclic"`
	Levels  [][]string `json:"levels"`
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, format string, args ...any) {
	writeJSON(w, status, errorResponse{Error: fmt.Sprintf(format, args...)})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = w.Write([]byte("ok\n"))
}

func (s *Server) handleStatus(w http.ResponseWriter, _ *http.Request) {
	st := s.current()
	resp := StatusResponse{
		LoadID:     st.id,
		LoadedAt:   st.loadedAt,
		ExportFile: s.cfg.ExportFile,
		Jobs:       len(st.snap.Jobs),
		Edges:      len(st.snap.Edges),
	}
	if st.lastErr != nil {
		resp.Error = lineage.StatusForError(st.lastErr)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleJobs(w http.ResponseWriter, _ *http.Request) {
	snap := s.Snapshot()
	writeJSON(w, http.StatusOK, JobsResponse{Jobs: snap.Jobs, Total: len(snap.Jobs)})
}

func (s *Server) handleJob(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "name")
	job, ok := s.Snapshot().Job(name)
	if !ok {
		writeError(w, http.StatusNotFound, "job not found: %s", name)
		return
	}
	writeJSON(w, http.StatusOK, job)
}

func (s *Server) handleEdges(w http.ResponseWriter, _ *http.Request) {
	snap := s.Snapshot()
	writeJSON(w, http.StatusOK, EdgesResponse{Edges: snap.Edges, Total: len(snap.Edges)})
}

func (s *Server) handleLevels(w http.ResponseWriter, _ *http.Request) {
	snap := s.Snapshot()
	levels, acyclic := lineage.ComputeLevels(snap.Graph)

	grouped := [][]string{}
	for _, name := range snap.Graph.NodeIDs() {
		lvl := levels[name]
		for len(grouped) <= lvl {
			grouped = append(grouped, []string{})
		}
		grouped[lvl] = append(grouped[lvl], name)
	}
	writeJSON(w, http.StatusOK, LevelsResponse{Acyclic: acyclic, Levels: grouped})
}

// handleLineage answers ?seed=A&seed=B&regex=..&depth=N&format=json|dot|...
// Seeds may also be given comma-separated in one parameter.
func (s *Server) handleLineage(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	var seeds []string
	for _, v := range q["seed"] {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				seeds = append(seeds, part)
			}
		}
	}

	depth := lineage.Unbounded
	if v := q.Get("depth"); v != "" {
		d, err := strconv.Atoi(v)
		if err != nil || d < 0 {
			writeError(w, http.StatusBadRequest, "invalid depth %q", v)
			return
		}
		depth = d
	}

	format := q.Get("format")
	if format == "" {
		format = export.FormatJSON
	}

	snap := s.Snapshot()
	res := snap.Run(lineage.Query{
		Seeds:             seeds,
		Pattern:           q.Get("regex"),
		Depth:             depth,
		MaxFullGraphNodes: s.cfg.MaxFullGraphNodes,
	})
	view := export.NewView(res, snap)

	switch format {
	case export.FormatJSON:
		writeJSON(w, http.StatusOK, view)
	case export.FormatYAML:
		w.Header().Set("Content-Type", "application/yaml")
		_ = export.WriteYAML(w, view)
	case export.FormatDOT:
		w.Header().Set("Content-Type", "text/vnd.graphviz")
		_ = export.WriteDOT(w, view, s.cfg.Theme)
	case export.FormatMermaid, export.FormatMarkdown:
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		_ = export.Write(w, format, view, s.cfg.Theme)
	default:
		writeError(w, http.StatusBadRequest, "unknown format %q (valid: %s)", format, strings.Join(export.Formats, ", "))
	}
}

// handleEvents streams the ID of every new snapshot as server-sent events,
// starting with the current one.
func (s *Server) handleEvents(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, http.StatusInternalServerError, "streaming unsupported")
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	ch := s.notifier.Subscribe()
	defer s.notifier.Unsubscribe(ch)

	writeEvent := func(id string) {
		_, _ = fmt.Fprintf(w, "event: loaded\ndata: %s\n\n", id)
		flusher.Flush()
	}

	writeEvent(s.current().id)
	for {
		select {
		case <-r.Context().Done():
			return
		case id, ok := <-ch:
			if !ok {
				return
			}
			writeEvent(id)
		}
	}
}
