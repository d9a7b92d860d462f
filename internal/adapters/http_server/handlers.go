package httpserver

import (
	"crypto/sha1"
	"encoding/hex"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"marriott_mcp/internal/domain"
	"marriott_mcp/internal/mcp"
)

const (
	sessionHeader    = "Mcp-Session-Id"
	anonymousSession = "anonymous"
	maxBodyBytes     = 1 << 20
	defaultLimit     = 50
	maxLimit         = 200
)

// Handlers serves the MCP endpoint and its companion routes. Audit may be nil.
type Handlers struct {
	MCP   *mcp.Server
	Audit domain.SearchAuditLog
}

type problem struct {
	Type   string `json:"type"`
	Title  string `json:"title"`
	Status int    `json:"status"`
	Detail string `json:"detail,omitempty"`
}

type serviceInfo struct {
	Message string   `json:"message"`
	Name    string   `json:"name"`
	Version string   `json:"version"`
	Tools   []string `json:"tools"`
}

type searchesPage struct {
	SessionID string                `json:"sessionId"`
	Limit     int                   `json:"limit"`
	Searches  []domain.SearchRecord `json:"searches"`
}

func (s *Server) MountHandlers(h *Handlers) {
	s.mux.Get("/healthz", func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(200); _, _ = w.Write([]byte("ok")) })
	s.mux.Get("/", h.info)
	s.mux.Get("/.well-known/apps.json", h.manifest)
	s.mux.Post("/mcp", h.rpc)
	s.mux.Get("/mcp", h.noStream)
	s.mux.Get("/v1/sessions/{id}/searches", h.listSearches)
}

func writeProblem(w http.ResponseWriter, status int, title, detail string) {
	w.Header().Set("Content-Type", "application/problem+json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(problem{Type: "about:blank", Title: title, Status: status, Detail: detail}); err != nil {
		log.Error().Err(err).Msg("write JSON problem response failed")
	}
}

// calcETagAndBody marshals once and hashes once, returning both ETag and body.
func calcETagAndBody(v any) (string, []byte) {
	body, err := json.Marshal(v)
	if err != nil {
		log.Error().Err(err).Msg("failed to marshal object for ETag/body")
		return "", nil
	}
	sum := sha1.Sum(body)
	etag := `W/"` + hex.EncodeToString(sum[:]) + `"`
	return etag, body
}

// writeCached answers 304 when the client already holds this version.
func writeCached(w http.ResponseWriter, r *http.Request, v any) {
	etag, body := calcETagAndBody(v)
	if body == nil {
		writeProblem(w, http.StatusInternalServerError, "Internal Server Error", "could not encode response")
		return
	}
	w.Header().Set("ETag", etag)
	if inm := r.Header.Get("If-None-Match"); inm != "" && inm == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(body); err != nil {
		log.Error().Err(err).Str("path", r.URL.Path).Msg("failed to write body")
	}
}

func writeRPC(w http.ResponseWriter, status int, resp *mcp.Response) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(append(mcp.EncodeResponse(resp), '\n'))
}

func (h *Handlers) info(w http.ResponseWriter, r *http.Request) {
	i := h.MCP.Info()
	writeCached(w, r, serviceInfo{
		Message: i.Name + " MCP server is running.",
		Name:    i.Name,
		Version: i.Version,
		Tools:   h.MCP.Tools().Names(),
	})
}

func (h *Handlers) manifest(w http.ResponseWriter, r *http.Request) {
	writeCached(w, r, mcp.BuildManifest(h.MCP.Info().Name, mcp.BaseURL(r), h.MCP.Tools().Names()))
}

func (h *Handlers) noStream(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Allow", http.MethodPost)
	writeProblem(w, http.StatusMethodNotAllowed, "Method Not Allowed", "this server does not offer an SSE stream; POST JSON-RPC requests to /mcp")
}

func (h *Handlers) rpc(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		var tooBig *http.MaxBytesError
		if errors.As(err, &tooBig) {
			writeProblem(w, http.StatusRequestEntityTooLarge, "Request Too Large", "request body exceeds 1 MiB")
			return
		}
		writeProblem(w, http.StatusBadRequest, "Bad Request", "could not read request body")
		return
	}
	req, rejected := mcp.ParseRequest(raw)
	if rejected != nil {
		writeRPC(w, http.StatusBadRequest, rejected)
		return
	}

	sessionID := r.Header.Get(sessionHeader)
	if req.Method == mcp.MethodInitialize && sessionID == "" {
		sessionID = uuid.NewString()
		log.Info().Str("session", sessionID).Msg("session started")
	}
	if sessionID != "" {
		w.Header().Set(sessionHeader, sessionID)
	} else {
		sessionID = anonymousSession
	}

	resp := h.MCP.Handle(r.Context(), sessionID, req)
	if resp == nil {
		w.WriteHeader(http.StatusAccepted)
		return
	}
	writeRPC(w, http.StatusOK, resp)
}

func (h *Handlers) listSearches(w http.ResponseWriter, r *http.Request) {
	if h.Audit == nil {
		writeProblem(w, http.StatusNotFound, "Not Found", "search audit log is not enabled")
		return
	}
	id := chi.URLParam(r, "id")

	limit := defaultLimit
	if ls := r.URL.Query().Get("limit"); ls != "" {
		l, err := strconv.Atoi(ls)
		if err != nil || l <= 0 || l > maxLimit {
			writeProblem(w, http.StatusBadRequest, "Invalid limit", "limit must be an integer between 1 and 200")
			return
		}
		limit = l
	}

	recs, err := h.Audit.RecentSearches(r.Context(), id, limit)
	if err != nil {
		log.Error().Err(err).Str("session", id).Msg("list searches failed")
		writeProblem(w, http.StatusServiceUnavailable, "Service Unavailable", "search audit log unavailable")
		return
	}
	if recs == nil {
		recs = []domain.SearchRecord{}
	}
	writeCached(w, r, searchesPage{SessionID: id, Limit: limit, Searches: recs})
}
