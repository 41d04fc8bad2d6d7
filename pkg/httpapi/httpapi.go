// Package httpapi exposes the gitsync orchestrator over HTTP: a single
// POST / endpoint plus a health check, shared-secret authentication,
// JSON request/response translation, and per-request access logging.
// Grounded in the teacher's pkg/serve/httpserver: a gorilla/mux router,
// an access-log line per request (the handler passes the status it wrote
// to logAccess; no ResponseWriter wrapper tracks status or bytes), and a
// renderError-style translation from typed errors to JSON error bodies.
package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/sirupsen/logrus"

	"github.com/antgroup/gitsync/modules/objstore"
	"github.com/antgroup/gitsync/pkg/gitsync"
)

const (
	secretHeader = "x-internal-secret"
	jsonMIME     = "application/json"
)

// Deps are the collaborators the HTTP layer needs beyond the request
// itself: the configured shared secret and the two object-store
// adapters the orchestrator reads and writes through.
type Deps struct {
	Secret              string
	ReposAdapter        objstore.Adapter
	FileTransferAdapter objstore.Adapter
	Clock               func() time.Time
}

func (d Deps) syncDeps() gitsync.Deps {
	return gitsync.Deps{
		ReposAdapter:        d.ReposAdapter,
		FileTransferAdapter: d.FileTransferAdapter,
		Clock:               d.Clock,
	}
}

// NewRouter builds the mux.Router serving this system's HTTP surface.
func NewRouter(deps Deps) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/healthz", handleHealthz).Methods(http.MethodGet)
	r.HandleFunc("/", withAuth(deps, handleSync)).Methods(http.MethodPost)
	return r
}

func handleHealthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", jsonMIME)
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

func withAuth(deps Deps, next func(Deps, http.ResponseWriter, *http.Request)) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if deps.Secret == "" || r.Header.Get(secretHeader) != deps.Secret {
			renderError(w, r, http.StatusUnauthorized, "missing_auth", "")
			return
		}
		next(deps, w, r)
	}
}

func handleSync(deps Deps, w http.ResponseWriter, r *http.Request) {
	started := time.Now()

	var req gitsync.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, http.StatusBadRequest, "bad_request", err.Error())
		logAccess(r, http.StatusBadRequest, started)
		return
	}

	resp, syncErr := gitsync.Run(r.Context(), deps.syncDeps(), req)
	if syncErr != nil {
		detail := ""
		if syncErr.Err != nil {
			detail = syncErr.Err.Error()
		}
		renderError(w, r, syncErr.Status, syncErr.Code, detail)
		logAccess(r, syncErr.Status, started)
		return
	}

	w.Header().Set("Content-Type", jsonMIME)
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		logrus.Errorf("httpapi: encode response: %v", err)
	}
	logAccess(r, http.StatusOK, started)
}

type errorBody struct {
	Error  string `json:"error"`
	Detail string `json:"detail,omitempty"`
}

func renderError(w http.ResponseWriter, r *http.Request, status int, code, detail string) {
	w.Header().Set("Content-Type", jsonMIME)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(errorBody{Error: code, Detail: detail})
	if status >= http.StatusBadRequest {
		logrus.Warnf("[%s] %s %s status: %d error: %s detail: %s", remoteAddr(r), r.Method, r.RequestURI, status, code, detail)
	}
}

func logAccess(r *http.Request, status int, started time.Time) {
	logrus.Infof("[%s] %s %s status: %d spent: %v", remoteAddr(r), r.Method, r.RequestURI, status, time.Since(started))
}

func remoteAddr(r *http.Request) string {
	if addr := r.Header.Get("X-Forwarded-For"); addr != "" {
		return addr
	}
	return r.RemoteAddr
}
