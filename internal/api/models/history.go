package models

import "github.com/jroosing/revdoh/internal/history"

// HistoryResponse wraps a page of journaled lookups.
type HistoryResponse struct {
	Count   int             `json:"count"`
	Entries []history.Entry `json:"entries"`
}
