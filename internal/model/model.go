// Package model contains domain entities and DTOs used across layers.
// I keep it lean and focused on data shapes; the little behavior here is pure.
package model

import (
	"strings"
	"time"
)

// Entry statuses.
const (
	StatusDraft     = "draft"
	StatusPublished = "published"
	StatusArchived  = "archived"
)

// Entry priorities.
const (
	PriorityLow      = "low"
	PriorityNormal   = "normal"
	PriorityHigh     = "high"
	PriorityCritical = "critical"
)

// Entry is a knowledge entry: a short article with categories, tags and a visibility flag.
type Entry struct {
	ID          int64      `json:"id"`
	Title       string     `json:"title"`
	Slug        string     `json:"slug"`
	Summary     string     `json:"summary,omitempty"`
	Content     string     `json:"content"`
	Status      string     `json:"status"`
	Priority    string     `json:"priority"`
	IsPublic    bool       `json:"is_public"`
	Featured    bool       `json:"featured"`
	AuthorID    int64      `json:"author_id"`
	Author      string     `json:"author,omitempty"`
	Categories  []string   `json:"categories"`
	Tags        []string   `json:"tags"`
	WordCount   int        `json:"word_count"`
	ReadingTime int        `json:"reading_time"`
	ViewCount   int64      `json:"view_count"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// Category groups entries. EntryCount is derived at read time.
type Category struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Description string    `json:"description,omitempty"`
	Color       string    `json:"color"`
	EntryCount  int       `json:"entry_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// User is an account. PasswordHash never leaves the service layer.
type User struct {
	ID           int64      `json:"id"`
	Username     string     `json:"username"`
	Email        string     `json:"email"`
	PasswordHash string     `json:"-"`
	IsAdmin      bool       `json:"is_admin"`
	IsActive     bool       `json:"is_active"`
	LastLogin    *time.Time `json:"last_login,omitempty"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// Principal is the caller identity passed explicitly into use cases.
// The zero value is the anonymous caller.
type Principal struct {
	UserID   int64
	Username string
	IsAdmin  bool
}

// Authenticated reports whether the principal represents a logged-in user.
func (p Principal) Authenticated() bool { return p.UserID > 0 }

// CanModify reports whether p may edit or delete e.
func (p Principal) CanModify(e Entry) bool {
	return p.IsAdmin || (p.Authenticated() && p.UserID == e.AuthorID)
}

// CanView applies the visibility rule to a single entry.
func (p Principal) CanView(e Entry) bool {
	return e.IsPublic || p.CanModify(e)
}

// Sort orders for entry listings. Every order breaks ties on id.
const (
	SortCreatedDesc = "created_desc"
	SortCreatedAsc  = "created_asc"
	SortTitleAsc    = "title_asc"
	SortTitleDesc   = "title_desc"
	SortViewsDesc   = "views_desc"
)

// NormalizeSort maps unknown values to the default order.
func NormalizeSort(s string) string {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case SortCreatedAsc:
		return SortCreatedAsc
	case SortTitleAsc:
		return SortTitleAsc
	case SortTitleDesc:
		return SortTitleDesc
	case SortViewsDesc:
		return SortViewsDesc
	default:
		return SortCreatedDesc
	}
}

// Visibility restricts which entries a listing may return.
type Visibility struct {
	// All disables the filter (admins).
	All bool
	// OwnerID additionally admits non-public entries authored by this user.
	OwnerID int64
}

// VisibilityFor derives the listing filter for p.
func VisibilityFor(p Principal) Visibility {
	if p.IsAdmin {
		return Visibility{All: true}
	}
	return Visibility{OwnerID: p.UserID}
}

// EntryFilter narrows entry listings. Zero fields do not filter.
type EntryFilter struct {
	Visibility Visibility
	Category   string
	Search     string
	AuthorID   *int64
	Status     string
	From       *time.Time
	To         *time.Time
	Sort       string
}

// Overview is the dashboard summary of the hub.
// RecentEntries counts entries created in the last RecentWindow.
type Overview struct {
	TotalEntries     int             `json:"total_entries"`
	PublishedEntries int             `json:"published_entries"`
	PublicEntries    int             `json:"public_entries"`
	RecentEntries    int             `json:"recent_entries"`
	TotalCategories  int             `json:"total_categories"`
	TotalUsers       int             `json:"total_users"`
	Categories       []CategoryCount `json:"categories"`
}

// CategoryCount is the number of public entries filed under one category.
type CategoryCount struct {
	Name  string `json:"name"`
	Slug  string `json:"slug"`
	Count int    `json:"count"`
}

// RecentWindow bounds Overview.RecentEntries.
const RecentWindow = 30 * 24 * time.Hour
