// Package http exposes the editor session as a JSON API over HTTP, the
// surface a graphical front end talks to.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sort"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/mooncrowned/storyed/internal/logging"
	"github.com/mooncrowned/storyed/internal/metrics"
	"github.com/mooncrowned/storyed/internal/presentation/graph"
	"github.com/mooncrowned/storyed/pkg/domain"
	"github.com/mooncrowned/storyed/pkg/editor"
	"github.com/mooncrowned/storyed/pkg/layout"
)

// Server routes editor API requests to one open session.
type Server struct {
	session *editor.Session
	stats   *metrics.Collector
	logger  *slog.Logger
}

// NewHandler builds the editor API handler.
func NewHandler(session *editor.Session, stats *metrics.Collector, logger *slog.Logger) http.Handler {
	if logger == nil {
		logger = logging.NewNop()
	}
	s := &Server{session: session, stats: stats, logger: logger}

	r := chi.NewRouter()
	r.Use(s.countRequests)

	r.Get("/story", s.getStory)
	r.Get("/nodes", s.listNodes)
	r.Get("/nodes/{id}", s.getNode)
	r.Get("/layout", s.getLayout)
	r.Post("/select", s.postSelect)
	r.Get("/graph.mmd", s.getMermaid)

	r.Post("/nodes/{id}/messages", s.addMessage)
	r.Put("/nodes/{id}/messages/{idx}", s.updateMessage)
	r.Delete("/nodes/{id}/messages/{idx}", s.removeMessage)

	r.Post("/nodes/{id}/answers", s.addAnswer)
	r.Put("/nodes/{id}/answers/{idx}", s.updateAnswer)
	r.Delete("/nodes/{id}/answers/{idx}", s.removeAnswer)
	r.Put("/nodes/{id}/answers/{idx}/target", s.setAnswerTarget)
	r.Post("/nodes/{id}/answers/{idx}/node", s.createLinkedNode)

	if stats != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(stats.Registry(), promhttp.HandlerOpts{}))
	}

	return enableCORS(r)
}

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) countRequests(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if s.stats != nil {
			route := chi.RouteContext(r.Context()).RoutePattern()
			s.stats.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(rec.status)).Inc()
		}
	})
}

func (s *Server) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		s.logger.Warn("failed to encode response", "err", err)
	}
}

// writeError maps domain errors onto HTTP statuses.
func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case errors.Is(err, domain.ErrNodeNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrIndexOutOfRange):
		status = http.StatusBadRequest
	}
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "err", err)
	}
	s.writeJSON(w, status, map[string]string{"error": err.Error()})
}

func (s *Server) pathInt(r *http.Request, key string) (int, error) {
	v, err := strconv.Atoi(chi.URLParam(r, key))
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, domain.ErrIndexOutOfRange)
	}
	return v, nil
}

func (s *Server) getStory(w http.ResponseWriter, r *http.Request) {
	s.writeJSON(w, http.StatusOK, s.session.Meta())
}

func (s *Server) listNodes(w http.ResponseWriter, r *http.Request) {
	store := s.session.Store()
	nodes := make([]*domain.Node, 0, store.Len())
	for _, id := range store.IDs() {
		if n, ok := store.Get(id); ok {
			nodes = append(nodes, n)
		}
	}
	s.writeJSON(w, http.StatusOK, nodes)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	n, ok := s.session.Node(id)
	if !ok {
		s.writeError(w, domain.ErrNodeNotFound)
		return
	}
	s.writeJSON(w, http.StatusOK, n)
}

// layoutDTO is the wire shape of a computed layout.
type layoutDTO struct {
	Root      int                 `json:"root"`
	Positions map[string]posDTO   `json:"positions"`
	Edges     []layout.Edge       `json:"edges"`
	Highlight highlightDTO        `json:"highlight"`
	Columns   [][]int             `json:"columns"`
	Parents   map[string][]int    `json:"parents"`
}

type posDTO struct {
	Column int     `json:"column"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Height float64 `json:"height"`
}

type highlightDTO struct {
	Selected    *int  `json:"selected"`
	Ancestors   []int `json:"ancestors"`
	Descendants []int `json:"descendants"`
}

func toHighlightDTO(h layout.Highlight) highlightDTO {
	dto := highlightDTO{Selected: h.Selected, Ancestors: []int{}, Descendants: []int{}}
	for id := range h.Ancestors {
		dto.Ancestors = append(dto.Ancestors, id)
	}
	for id := range h.Descendants {
		dto.Descendants = append(dto.Descendants, id)
	}
	sort.Ints(dto.Ancestors)
	sort.Ints(dto.Descendants)
	return dto
}

func (s *Server) getLayout(w http.ResponseWriter, r *http.Request) {
	res := s.session.Layout()
	dto := layoutDTO{
		Root:      res.Root,
		Positions: make(map[string]posDTO, len(res.Positions)),
		Edges:     res.Edges(),
		Highlight: toHighlightDTO(s.session.Highlight()),
		Columns:   res.Columns,
		Parents:   make(map[string][]int, len(res.Parents)),
	}
	for id, p := range res.Positions {
		dto.Positions[strconv.Itoa(id)] = posDTO{Column: p.Column, X: p.X, Y: p.Y, Height: p.Height}
	}
	for id, parents := range res.Parents {
		dto.Parents[strconv.Itoa(id)] = parents
	}
	s.writeJSON(w, http.StatusOK, dto)
}

func (s *Server) postSelect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ID *int `json:"id"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	h := s.session.Select(body.ID)
	s.writeJSON(w, http.StatusOK, toHighlightDTO(h))
}

func (s *Server) getMermaid(w http.ResponseWriter, r *http.Request) {
	store := s.session.Store()
	nodes := make([]*domain.Node, 0, store.Len())
	for _, id := range store.IDs() {
		if n, ok := store.Get(id); ok {
			nodes = append(nodes, n)
		}
	}
	h := s.session.Highlight()
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, graph.GenerateMermaid(nodes, &h))
}

func (s *Server) addMessage(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Index   int            `json:"index"`
		Message domain.Message `json:"message"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.AddMessage(id, body.Index, body.Message); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]string{"status": "ok"})
}

func (s *Server) updateMessage(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := s.pathInt(r, "idx")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var msg domain.Message
	if err := json.NewDecoder(r.Body).Decode(&msg); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.UpdateMessage(id, idx, msg); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) removeMessage(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := s.pathInt(r, "idx")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.session.RemoveMessage(id, idx); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) addAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	ans, err := s.session.AddAnswer(id)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, ans)
}

func (s *Server) updateAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := s.pathInt(r, "idx")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		Message string  `json:"message"`
		Delay   float64 `json:"delay"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.UpdateAnswer(id, idx, body.Message, body.Delay); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) removeAnswer(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := s.pathInt(r, "idx")
	if err != nil {
		s.writeError(w, err)
		return
	}
	if err := s.session.RemoveAnswer(id, idx); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) setAnswerTarget(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := s.pathInt(r, "idx")
	if err != nil {
		s.writeError(w, err)
		return
	}
	var body struct {
		NextNode *int `json:"next_node"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		http.Error(w, "Invalid request body", http.StatusBadRequest)
		return
	}
	if err := s.session.SetAnswerTarget(id, idx, body.NextNode); err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (s *Server) createLinkedNode(w http.ResponseWriter, r *http.Request) {
	id, err := s.pathInt(r, "id")
	if err != nil {
		s.writeError(w, err)
		return
	}
	idx, err := s.pathInt(r, "idx")
	if err != nil {
		s.writeError(w, err)
		return
	}
	newID, err := s.session.CreateLinkedNode(r.Context(), id, idx)
	if err != nil {
		s.writeError(w, err)
		return
	}
	s.writeJSON(w, http.StatusCreated, map[string]int{"id": newID})
}
