package types

// QueryResponse is the body returned by POST /query.
type QueryResponse struct {
	Response string `json:"response"`
}

// ErrorResponse is returned on request failures.
type ErrorResponse struct {
	Error string `json:"error"`
}
