package models

// ReverseResponse is the result of a reverse lookup.
type ReverseResponse struct {
	IP     string `json:"ip"`
	Domain string `json:"domain"`
	Source string `json:"source"` // cache, upstream or inflight
}
