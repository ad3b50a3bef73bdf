package model

// Book is the normalized shape of a provider response. Metadata keeps the
// raw decoded provider payload so callers lose nothing in normalization.
type Book struct {
	ID       string         `json:"id"`
	Title    string         `json:"title"`
	Author   string         `json:"author,omitempty"`
	Content  string         `json:"content,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}
