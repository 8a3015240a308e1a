package accounts

import (
	"encoding/json"
	"net/http"
)

// Values of the "result" member of every API response.
const (
	ResultSuccess = "success"
	ResultFail    = "fail"
)

// Response is the JSON envelope of the account API:
//
//	{"result": "success", "id": "..."}
//	{"result": "fail", "error": "invalid data", "errors": {"email": ["..."]}}
type Response struct {
	Result string      `json:"result"`
	ID     string      `json:"id,omitempty"`
	Error  string      `json:"error,omitempty"`
	Errors FieldErrors `json:"errors,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeSuccess(w http.ResponseWriter, id string) {
	writeJSON(w, http.StatusOK, Response{Result: ResultSuccess, ID: id})
}

func writeFail(w http.ResponseWriter, status int, msg string, errs FieldErrors) {
	writeJSON(w, status, Response{Result: ResultFail, Error: msg, Errors: errs})
}

// invalidRequest answers methods an endpoint does not support.
func invalidRequest(w http.ResponseWriter, r *http.Request) {
	writeFail(w, http.StatusBadRequest, "invalid request: "+r.Method+" "+r.URL.Path, nil)
}
