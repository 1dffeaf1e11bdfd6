package types

// QueryRequest is the body of POST /query.
type QueryRequest struct {
	Text string `json:"text"`
}
