package api

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/loomapp/loom/internal/serverdb"
	syncgw "github.com/loomapp/loom/internal/sync"
)

// Server is the HTTP API server for loom-sync.
type Server struct {
	config  Config
	http    *http.Server
	store   *serverdb.ServerDB
	gateway *syncgw.Gateway
	metrics *Metrics
}

// NewServer creates a new Server with the given config and store.
func NewServer(cfg Config, store *serverdb.ServerDB) *Server {
	s := &Server{
		config:  cfg,
		store:   store,
		gateway: syncgw.NewGateway(store.Handle()),
		metrics: NewMetrics(),
	}

	s.http = &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      s.routes(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	return s
}

// Start begins listening for HTTP requests (non-blocking).
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", s.config.ListenAddr)
	if err != nil {
		return fmt.Errorf("listen: %w", err)
	}

	go func() {
		if err := s.http.Serve(ln); err != nil && err != http.ErrServerClosed {
			slog.Error("http server", "err", err)
		}
	}()

	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.http.Shutdown(ctx)
}

// Handler returns the fully wired HTTP handler, for embedding and tests.
func (s *Server) Handler() http.Handler {
	return s.http.Handler
}

// routes builds the HTTP handler with all routes and middleware.
func (s *Server) routes() http.Handler {
	mux := http.NewServeMux()

	// Health & metrics
	mux.HandleFunc("GET /healthz", s.handleHealth)
	mux.HandleFunc("GET /metricz", s.handleMetrics)

	// Workspaces
	mux.HandleFunc("GET /v1/workspaces", s.requireUser(s.handleListWorkspaces))
	mux.HandleFunc("POST /v1/workspaces", s.requireUser(s.handleCreateWorkspace))
	mux.HandleFunc("GET /v1/workspaces/default", s.requireUser(s.handleDefaultWorkspace))
	mux.HandleFunc("PATCH /v1/workspaces/{id}", s.requireUser(s.handleUpdateWorkspace))
	mux.HandleFunc("DELETE /v1/workspaces/{id}", s.requireUser(s.handleRemoveWorkspace))
	mux.HandleFunc("POST /v1/workspaces/{id}/activate", s.requireUser(s.handleActivateWorkspace))

	// Members
	mux.HandleFunc("GET /v1/workspaces/{id}/members", s.requireWorkspaceRole(serverdb.RoleViewer, s.handleListMembers))
	mux.HandleFunc("POST /v1/workspaces/{id}/members", s.requireWorkspaceRole(serverdb.RoleOwner, s.handleUpsertMember))
	mux.HandleFunc("PATCH /v1/workspaces/{id}/members/{userID}", s.requireWorkspaceRole(serverdb.RoleOwner, s.handleSetMemberRole))
	mux.HandleFunc("DELETE /v1/workspaces/{id}/members/{userID}", s.requireWorkspaceRole(serverdb.RoleOwner, s.handleRemoveMember))

	// Invites
	mux.HandleFunc("GET /v1/workspaces/{id}/invites", s.requireWorkspaceRole(serverdb.RoleEditor, s.handleListInvites))
	mux.HandleFunc("POST /v1/workspaces/{id}/invites", s.requireWorkspaceRole(serverdb.RoleEditor, s.handleCreateInvite))
	mux.HandleFunc("POST /v1/workspaces/{id}/invites/{inviteID}/revoke", s.requireWorkspaceRole(serverdb.RoleEditor, s.handleRevokeInvite))
	mux.HandleFunc("POST /v1/workspaces/{id}/invites/accept", s.requireUser(s.handleAcceptInvite))

	// Settings
	mux.HandleFunc("GET /v1/workspaces/{id}/settings", s.requireWorkspaceRole(serverdb.RoleViewer, s.handleListSettings))
	mux.HandleFunc("GET /v1/workspaces/{id}/settings/{key}", s.requireWorkspaceRole(serverdb.RoleViewer, s.handleGetSetting))
	mux.HandleFunc("PUT /v1/workspaces/{id}/settings/{key}", s.requireWorkspaceRole(serverdb.RoleEditor, s.handleSetSetting))

	// Sync
	mux.HandleFunc("POST /v1/workspaces/{id}/sync/push", s.requireWorkspaceRole(serverdb.RoleEditor, s.handleSyncPush))
	mux.HandleFunc("GET /v1/workspaces/{id}/sync/pull", s.requireWorkspaceRole(serverdb.RoleViewer, s.handleSyncPull))
	mux.HandleFunc("POST /v1/workspaces/{id}/sync/cursor", s.requireWorkspaceRole(serverdb.RoleViewer, s.handleSyncCursor))
	mux.HandleFunc("GET /v1/workspaces/{id}/sync/status", s.requireWorkspaceRole(serverdb.RoleViewer, s.handleSyncStatus))

	// Admin
	mux.HandleFunc("GET /v1/admin/admins", s.requireAdmin(s.handleListAdmins))
	mux.HandleFunc("POST /v1/admin/admins", s.requireAdmin(s.handleGrantAdmin))
	mux.HandleFunc("DELETE /v1/admin/admins/{userID}", s.requireAdmin(s.handleRevokeAdmin))
	mux.HandleFunc("GET /v1/admin/users", s.requireAdmin(s.handleSearchUsers))
	mux.HandleFunc("GET /v1/admin/workspaces", s.requireAdmin(s.handleAdminListWorkspaces))
	mux.HandleFunc("GET /v1/admin/workspaces/{id}", s.requireAdmin(s.handleAdminGetWorkspace))
	mux.HandleFunc("DELETE /v1/admin/workspaces/{id}", s.requireAdmin(s.handleAdminDeleteWorkspace))
	mux.HandleFunc("POST /v1/admin/workspaces/{id}/restore", s.requireAdmin(s.handleAdminRestoreWorkspace))
	mux.HandleFunc("POST /v1/admin/workspaces/{id}/gc", s.requireAdmin(s.handleAdminGC))

	return chain(mux,
		recoveryMiddleware,
		requestIDMiddleware,
		loggerMiddleware,
		metricsMiddleware(s.metrics),
		loggingMiddleware,
		maxBytesMiddleware(s.config.MaxBodyBytes),
	)
}

// handleHealth returns a health check response, pinging the database.
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if err := s.store.Ping(); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]string{"status": "error", "detail": "db unreachable"})
		return
	}
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleMetrics returns a snapshot of server metrics.
func (s *Server) handleMetrics(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.metrics.Snapshot())
}
