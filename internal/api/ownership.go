package api

import "net/http"

// assertOwner rejects the request with 403 unless the caller's identity id
// equals the resource's owner id. The comparison is by value; two ids are the
// same owner exactly when their string forms match.
func assertOwner(w http.ResponseWriter, ownerID, callerID string) bool {
	if ownerID == "" || callerID == "" || ownerID != callerID {
		writeError(w, http.StatusForbidden, "forbidden")
		return false
	}
	return true
}
