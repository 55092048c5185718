package http

import (
	"net/http"

	applog "gastos/internal/log"
)

// handleSignIn loads the ledger of the user the identity provider signed
// in. Signing in as someone else replaces the current session.
func (s *Server) handleSignIn(w http.ResponseWriter, r *http.Request) {
	var req sessionRequest
	if err := decodeJSON(w, r, &req); err != nil {
		ErrorFromDomain(err).Write(w)
		return
	}
	ctx := r.Context()
	userID := sanitizeInput(req.UserID)
	if err := s.store.Load(ctx, userID); err != nil {
		s.logWriteError(r, "Failed to load ledger", applog.OpLoad, err)
		ErrorFromDomain(err).Write(w)
		return
	}
	applog.FromContext(ctx).InfoContext(ctx, "User signed in", applog.FieldUserID, userID)
	s.writeSession(w)
}

func (s *Server) handleGetSession(w http.ResponseWriter, r *http.Request) {
	s.writeSession(w)
}

// handleSignOut clears every record held for the user.
func (s *Server) handleSignOut(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if userID := s.store.UserID(); userID != "" {
		applog.FromContext(ctx).InfoContext(ctx, "User signed out", applog.FieldUserID, userID)
	}
	s.store.Clear()
	NewJSONResponse().Status(http.StatusNoContent).Write(w)
}

func (s *Server) writeSession(w http.ResponseWriter) {
	userID := s.store.UserID()
	v := sessionView{UserID: userID, SignedIn: userID != ""}
	if v.SignedIn {
		v.DefaultAccountID = s.store.DefaultAccountID()
	}
	NewJSONResponse().Data(v).Write(w)
}
