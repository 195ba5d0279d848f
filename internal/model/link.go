package model

import "time"

type Link struct {
	ID          int64      `json:"-"`
	ShortCode   string     `json:"short_code"`
	OriginalURL string     `json:"original_url"`
	OwnerID     *string    `json:"owner_id,omitempty"`
	TagID       *int64     `json:"-"`
	TagName     *string    `json:"tag_name,omitempty"`
	ClickCount  int64      `json:"clicks"`
	CreatedAt   time.Time  `json:"created_at"`
	LastUsedAt  *time.Time `json:"last_used_at,omitempty"`
	ExpiresAt   time.Time  `json:"expires_at"`
	IsActive    bool       `json:"is_active"`
}

// ExpiredAt reports whether the link is past its expiry at now.
func (l *Link) ExpiredAt(now time.Time) bool {
	return now.After(l.ExpiresAt)
}

type Tag struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Identity is the caller as resolved by the authentication collaborator.
// The zero value is the anonymous caller.
type Identity struct {
	OwnerID string
}

func Anonymous() Identity {
	return Identity{}
}

func Owner(id string) Identity {
	return Identity{OwnerID: id}
}

func (i Identity) IsAnonymous() bool {
	return i.OwnerID == ""
}

// OwnerRef returns the stored owner reference, nil for anonymous callers.
func (i Identity) OwnerRef() *string {
	if i.IsAnonymous() {
		return nil
	}
	id := i.OwnerID
	return &id
}

type SearchFilter struct {
	OriginalURL string
	TagName     string
}
