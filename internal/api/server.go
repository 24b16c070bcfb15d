package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"

	"elite-starscan/internal/config"
	"elite-starscan/internal/db"
	"elite-starscan/internal/export"
	"elite-starscan/internal/logger"
	"elite-starscan/internal/starscan"
)

// Server is the read-only HTTP API over an Engine and, optionally, its archive.
type Server struct {
	cfg     *config.Config
	eng     *starscan.Engine
	db      *db.DB
	started time.Time

	// Encoded snapshots, valid while both generation counters are unchanged.
	snapMu    sync.RWMutex
	snapCache map[*starscan.SystemNode]snapEntry
	group     singleflight.Group
}

type snapEntry struct {
	structure uint64
	payload   uint64
	data      []byte
}

// NewServer creates a Server. database may be nil when archiving is off.
func NewServer(cfg *config.Config, eng *starscan.Engine, database *db.DB) *Server {
	return &Server{
		cfg:       cfg,
		eng:       eng,
		db:        database,
		started:   time.Now(),
		snapCache: make(map[*starscan.SystemNode]snapEntry),
	}
}

// Handler returns the HTTP handler with all API routes and CORS middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", s.handleStatus)
	mux.HandleFunc("GET /api/config", s.handleGetConfig)
	mux.HandleFunc("GET /api/systems", s.handleListSystems)
	mux.HandleFunc("GET /api/systems/{key}", s.handleGetSystem)
	mux.HandleFunc("GET /api/systems/{key}/bodies/{id}", s.handleGetBody)
	mux.HandleFunc("GET /api/systems/{key}/find", s.handleFind)
	mux.HandleFunc("GET /api/systems/{key}/dump", s.handleDump)
	mux.HandleFunc("GET /api/systems/{key}/summary", s.handleSummary)
	mux.HandleFunc("GET /api/archive/systems", s.handleArchiveSystems)
	return corsMiddleware(mux)
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(204)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func writeJSON(w http.ResponseWriter, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, code int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// system resolves the {key} path value or writes a 404.
func (s *Server) system(w http.ResponseWriter, r *http.Request) (*starscan.SystemNode, bool) {
	key := r.PathValue("key")
	sys, ok := s.eng.System(key)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("unknown system %q", key))
		return nil, false
	}
	return sys, true
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	reg := s.eng.Registry()
	var structure, payload uint64
	for _, sys := range reg.Systems() {
		structure += sys.StructureGeneration()
		payload += sys.PayloadGeneration()
	}
	result := map[string]interface{}{
		"systems":              reg.Len(),
		"pending":              reg.PendingTotal(),
		"structure_generation": structure,
		"payload_generation":   payload,
		"uptime_seconds":       int64(time.Since(s.started).Seconds()),
	}
	if s.db != nil {
		result["archived_events"] = s.db.Count()
	}
	writeJSON(w, result)
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, s.cfg)
}

func (s *Server) handleListSystems(w http.ResponseWriter, r *http.Request) {
	reg := s.eng.Registry()
	systems := reg.Systems()
	out := make([]map[string]interface{}, 0, len(systems))
	for _, sys := range systems {
		out = append(out, map[string]interface{}{
			"name":                 sys.Name(),
			"address":              sys.Address(),
			"names":                sys.Names(),
			"counts":               sys.Counts(),
			"pending":              reg.PendingCount(sys.Address()),
			"structure_generation": sys.StructureGeneration(),
			"payload_generation":   sys.PayloadGeneration(),
		})
	}
	writeJSON(w, out)
}

func (s *Server) handleGetSystem(w http.ResponseWriter, r *http.Request) {
	sys, ok := s.system(w, r)
	if !ok {
		return
	}
	data, err := s.snapshot(sys)
	if err != nil {
		logger.Error("API", fmt.Sprintf("snapshot %s: %v", sys.Name(), err))
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.Write(data)
}

// snapshot returns the encoded snapshot of sys, rebuilding it only when a
// generation counter moved. Concurrent rebuilds of one system coalesce.
func (s *Server) snapshot(sys *starscan.SystemNode) ([]byte, error) {
	s.snapMu.RLock()
	e, ok := s.snapCache[sys]
	s.snapMu.RUnlock()
	if ok && e.structure == sys.StructureGeneration() && e.payload == sys.PayloadGeneration() {
		return e.data, nil
	}

	v, err, _ := s.group.Do(fmt.Sprintf("%p", sys), func() (interface{}, error) {
		snap := sys.Snapshot()
		data, err := json.Marshal(snap)
		if err != nil {
			return nil, err
		}
		entry := snapEntry{data: data}
		entry.structure, _ = snap["structure_generation"].(uint64)
		entry.payload, _ = snap["payload_generation"].(uint64)
		s.snapMu.Lock()
		s.snapCache[sys] = entry
		s.snapMu.Unlock()
		return data, nil
	})
	if err != nil {
		return nil, err
	}
	return v.([]byte), nil
}

func (s *Server) handleGetBody(w http.ResponseWriter, r *http.Request) {
	sys, ok := s.system(w, r)
	if !ok {
		return
	}
	id, err := strconv.Atoi(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid body id")
		return
	}
	b, ok := sys.FindByID(id)
	if !ok {
		writeError(w, http.StatusNotFound, fmt.Sprintf("no body %d in %s", id, sys.Name()))
		return
	}
	path, _ := sys.PathNames(id)
	out := bodyJSON(b)
	out["path"] = path
	writeJSON(w, out)
}

// handleFind searches by ?name= (substring), ?sub= (exact sub-name) or
// ?class=, optionally stopping at the first match with ?first=true.
func (s *Server) handleFind(w http.ResponseWriter, r *http.Request) {
	sys, ok := s.system(w, r)
	if !ok {
		return
	}
	q := r.URL.Query()
	if sub, ok := q["sub"]; ok {
		b, found := sys.FindBySubName(sub[0])
		if !found {
			writeJSON(w, []interface{}{})
			return
		}
		writeJSON(w, []map[string]interface{}{bodyJSON(b)})
		return
	}

	var preds []func(*starscan.BodyNode) bool
	if name := q.Get("name"); name != "" {
		preds = append(preds, starscan.NameContains(name))
	}
	if cls := q.Get("class"); cls != "" {
		c, ok := starscan.ParseClass(cls)
		if !ok {
			writeError(w, http.StatusBadRequest, fmt.Sprintf("unknown class %q", cls))
			return
		}
		preds = append(preds, starscan.OfClass(c))
	}
	if len(preds) == 0 {
		writeError(w, http.StatusBadRequest, "name, sub or class required")
		return
	}
	first, _ := strconv.ParseBool(q.Get("first"))

	bodies := sys.Find(func(n *starscan.BodyNode) bool {
		for _, p := range preds {
			if !p(n) {
				return false
			}
		}
		return true
	}, first)
	out := make([]map[string]interface{}, 0, len(bodies))
	for _, b := range bodies {
		out = append(out, bodyJSON(b))
	}
	writeJSON(w, out)
}

func (s *Server) handleDump(w http.ResponseWriter, r *http.Request) {
	sys, ok := s.system(w, r)
	if !ok {
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	if err := sys.Dump(w); err != nil {
		logger.Error("API", fmt.Sprintf("dump %s: %v", sys.Name(), err))
	}
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	sys, ok := s.system(w, r)
	if !ok {
		return
	}
	writeJSON(w, export.Summarize(sys))
}

func (s *Server) handleArchiveSystems(w http.ResponseWriter, r *http.Request) {
	if s.db == nil {
		writeError(w, http.StatusServiceUnavailable, "archive disabled")
		return
	}
	systems, err := s.db.Systems(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if systems == nil {
		systems = []db.ArchivedSystem{}
	}
	writeJSON(w, systems)
}

// bodyJSON flattens a body copy for responses.
func bodyJSON(b starscan.BodyNode) map[string]interface{} {
	m := map[string]interface{}{
		"name":     b.OwnName,
		"class":    b.Class.String(),
		"id":       b.BodyID,
		"children": len(b.Children()),
	}
	if b.CanonicalName != "" {
		m["canonical_name"] = b.CanonicalName
	}
	if b.FDName != "" {
		m["fd_name"] = b.FDName
	}
	if b.Scan != nil {
		m["scan"] = b.Scan
	}
	if b.Barycentre != nil {
		m["barycentre"] = b.Barycentre
	}
	if b.Ring != nil {
		m["ring"] = b.Ring
	}
	if orb := b.Orbiters(); len(orb) > 0 {
		m["orbiters"] = orb
	}
	if len(b.Signals) > 0 {
		m["signals"] = b.Signals
	}
	if len(b.Genuses) > 0 {
		m["genuses"] = b.Genuses
	}
	if len(b.Organics) > 0 {
		m["organics"] = b.Organics
	}
	if len(b.Codex) > 0 {
		m["codex"] = b.Codex
	}
	if len(b.Features) > 0 {
		m["features"] = b.Features
	}
	if b.Mapped {
		m["mapped"] = true
		m["efficiently_mapped"] = b.EfficientlyMapped
	}
	return m
}
