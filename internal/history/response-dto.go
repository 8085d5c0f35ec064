package history

// HistoryListResponse is an offset-paginated archive listing, newest
// first.
type HistoryListResponse struct {
	Entries []ArchiveEntry `json:"entries"`
	Total   int64          `json:"total"`
	Limit   int            `json:"limit"`
	Offset  int            `json:"offset"`
	HasMore bool           `json:"has_more"`
}

func newHistoryListResponse(entries []ArchiveEntry, total int64, limit, offset int) *HistoryListResponse {
	if entries == nil {
		entries = []ArchiveEntry{}
	}
	return &HistoryListResponse{
		Entries: entries,
		Total:   total,
		Limit:   limit,
		Offset:  offset,
		HasMore: int64(offset+len(entries)) < total,
	}
}
