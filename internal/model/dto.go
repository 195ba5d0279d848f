package model

import "time"

type CreateLinkRequest struct {
	OriginalURL string  `json:"original_url" binding:"required"`
	CustomAlias *string `json:"custom_alias,omitempty"`
	TagName     *string `json:"tag_name,omitempty"`
}

type UpdateLinkRequest struct {
	OriginalURL *string `json:"original_url,omitempty"`
	// TagName nil keeps the current tag, "" clears it.
	TagName *string `json:"tag_name,omitempty"`
}

type CreateLinkResponse struct {
	ShortCode   string `json:"short_code"`
	ShortURL    string `json:"short_url"`
	OriginalURL string `json:"original_url"`
}

type UpdateLinkResponse struct {
	Message     string    `json:"message"`
	ShortCode   string    `json:"short_code"`
	ShortURL    string    `json:"short_url"`
	OriginalURL string    `json:"original_url"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type SearchResult struct {
	ShortCode   string  `json:"short_code"`
	OriginalURL string  `json:"original_url"`
	TagName     *string `json:"tag_name"`
}

type LinkStats struct {
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	TagName     *string    `json:"tag_name"`
	OwnerID     *string    `json:"-"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at"`
	Clicks      int64      `json:"clicks"`
	ExpiresAt   time.Time  `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
}

func NewLinkStats(l *Link) LinkStats {
	return LinkStats{
		ShortCode:   l.ShortCode,
		OriginalURL: l.OriginalURL,
		TagName:     l.TagName,
		OwnerID:     l.OwnerID,
		CreatedAt:   l.CreatedAt,
		LastUsedAt:  l.LastUsedAt,
		Clicks:      l.ClickCount,
		ExpiresAt:   l.ExpiresAt,
		IsActive:    l.IsActive,
	}
}

// InactiveLinks is the owner's deactivated links. An empty result is a
// valid answer, not an error.
type InactiveLinks struct {
	Links []LinkStats
}

func (r InactiveLinks) None() bool {
	return len(r.Links) == 0
}
