package handlers

import (
	"net/http"
	"strconv"

	"github.com/google/uuid"

	"github.com/WriterGao/CoreMind/middleware"
	"github.com/WriterGao/CoreMind/utils"
)

// requireUserID pulls the authenticated user from the request context.
// Returns false after writing a 401 when no identity is present, which only
// happens if a route skipped the auth middleware.
func requireUserID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	userID := middleware.GetUserIDFromContext(r.Context())
	if userID == uuid.Nil {
		_ = utils.WriteUnauthorized(w, "")
		return uuid.Nil, false
	}
	return userID, true
}

// queryInt parses an integer query parameter, falling back to def when the
// parameter is absent or malformed
func queryInt(r *http.Request, name string, def int) int {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return v
}

// pathUUID parses a chi URL parameter as a UUID, writing a 400 on failure
func pathUUID(w http.ResponseWriter, raw string) (uuid.UUID, bool) {
	id, err := utils.ParseUUID(raw)
	if err != nil {
		_ = utils.WriteBadRequest(w, "invalid id in path", nil)
		return uuid.Nil, false
	}
	return id, true
}
