package handlers

import (
	"encoding/json"
	"net/http"
)

// VerifyToken reports who a valid mirror token belongs to. It sits behind
// the auth middleware, so reaching it means the token is valid.
func VerifyToken(w http.ResponseWriter, r *http.Request) {
	subject, ok := SubjectFromContext(r.Context())
	if !ok {
		subject = "anonymous"
	}

	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{
		"subject": subject,
		"status":  "valid",
	})
}
