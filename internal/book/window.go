package book

import "unicode/utf8"

// DefaultWindowSize keeps one slice plus its metadata under the ~100K
// character ceiling of the calling transport.
const DefaultWindowSize = 95000

// SliceRequest addresses a window of a book's text. A nil End means
// Start + window size.
type SliceRequest struct {
	Start int
	End   *int
}

// Slice is one window of a book's text with its positional metadata.
type Slice struct {
	Text        string `json:"text"`
	TotalLength int    `json:"total_length"`
	StartIndex  int    `json:"start_index"`
	EndIndex    int    `json:"end_index"`
	SliceLength int    `json:"slice_length"`
	HasMore     bool   `json:"has_more"`
}

// Validate checks the indices without touching any text.
func (r SliceRequest) Validate() error {
	if r.Start < 0 {
		return &ValidationError{Field: "start_index", Reason: "must be >= 0"}
	}
	if r.End != nil && *r.End <= r.Start {
		return &ValidationError{Field: "end_index", Reason: "must be greater than start_index"}
	}
	return nil
}

// Window cuts the requested slice out of b. windowSize <= 0 selects
// DefaultWindowSize. A start at or past the end of the text yields an empty
// slice with HasMore false.
func Window(b *Book, req SliceRequest, windowSize int) (Slice, error) {
	if err := req.Validate(); err != nil {
		return Slice{}, err
	}
	if windowSize <= 0 {
		windowSize = DefaultWindowSize
	}

	// Bounds are clamped to total before any addition so a huge start
	// cannot overflow.
	total := b.Len()
	end := total
	switch {
	case req.End != nil:
		end = min(*req.End, total)
	case req.Start < total:
		end = req.Start + min(windowSize, total-req.Start)
	}

	var text string
	if req.Start < end {
		text = string(b.runes[req.Start:end])
	}

	return Slice{
		Text:        text,
		TotalLength: total,
		StartIndex:  req.Start,
		EndIndex:    end,
		SliceLength: utf8.RuneCountInString(text),
		HasMore:     end < total,
	}, nil
}
