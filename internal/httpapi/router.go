package httpapi

import (
	"net/http"

	"github.com/John-Robertt/submerge-go/internal/auth"
	"github.com/John-Robertt/submerge-go/internal/group"
)

func NewMux() *http.ServeMux {
	return NewMuxWithOptions(Options{})
}

func NewMuxWithOptions(opt Options) *http.ServeMux {
	opt = opt.withDefaults()
	h := apiHandler{
		opt:    opt,
		groups: group.NewService(opt.Store),
		guard:  auth.NewGuard(opt.Store, opt.AdminToken),
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /{$}", handleIndex)
	mux.HandleFunc("GET /healthz", handleHealthz)
	mux.HandleFunc("GET /metrics", handleMetrics)
	mux.HandleFunc("GET /sub/{id}", h.handleFeed)
	mux.HandleFunc("POST /api/setup", h.handleSetup)
	mux.HandleFunc("GET /api/groups", h.admin(h.handleListGroups))
	mux.HandleFunc("POST /api/groups", h.admin(h.handleCreateGroup))
	mux.HandleFunc("GET /api/groups/{id}", h.admin(h.handleGetGroup))
	mux.HandleFunc("PUT /api/groups/{id}", h.admin(h.handleUpdateGroup))
	mux.HandleFunc("DELETE /api/groups/{id}", h.admin(h.handleDeleteGroup))
	mux.HandleFunc("POST /api/groups/{id}/links", h.admin(h.handleAppendLinks))
	mux.HandleFunc("POST /api/groups/{id}/import", h.admin(h.handleImportConfig))
	return mux
}

type apiHandler struct {
	opt    Options
	groups *group.Service
	guard  *auth.Guard
}

// admin wraps a handler with the bearer-token check. Feeds stay public: a
// group ID is an unguessable capability on its own.
func (h apiHandler) admin(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := h.guard.Check(r.Context(), r.Header.Get("Authorization")); err != nil {
			writeErrorFromErr(w, err)
			return
		}
		next(w, r)
	}
}
