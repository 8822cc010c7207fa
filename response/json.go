package response

import (
	"encoding/json"
	"net/http"
)

// V is the envelope for all API responses
type V struct {
	Result   interface{} `json:"result"`
	Messages []string    `json:"messages"`
}

// WriteResponse will write the result to the client as JSON with status 200
func WriteResponse(w http.ResponseWriter, r *http.Request, result interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	json.NewEncoder(w).Encode(V{
		Result:   result,
		Messages: []string{},
	})
}

// WriteError will write the error envelope to the client as JSON with the
// error's status code
func WriteError(w http.ResponseWriter, r *http.Request, e *Error) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.StatusCode)
	json.NewEncoder(w).Encode(V{
		Result:   e.Result,
		Messages: append([]string{e.Message}, e.Messages...),
	})
}
