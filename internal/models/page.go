package models

import (
	"time"
)

// PageKind classifies stored artifacts
type PageKind string

const (
	PageKindListing PageKind = "listing"
	PageKindPost    PageKind = "post"
	PageKindFeed    PageKind = "feed"
	PageKindAsset   PageKind = "asset"
)

// Page is a rendered artifact held by the page store
type Page struct {
	Path        string    `json:"path" db:"path"`
	Kind        PageKind  `json:"kind" db:"kind"`
	UID         string    `json:"uid,omitempty" db:"uid"`
	ContentType string    `json:"content_type" db:"content_type"`
	Body        []byte    `json:"-" db:"body"`
	Prebuilt    bool      `json:"prebuilt" db:"prebuilt"`
	BuildID     string    `json:"build_id,omitempty" db:"build_id"`
	BuiltAt     time.Time `json:"built_at" db:"built_at"`
}

// PostPath returns the route of a post page
func PostPath(uid string) string {
	return "/post/" + uid
}

const (
	IndexPath  = "/"
	FeedPath   = "/feed.xml"
	ScriptPath = "/assets/site.js"
)
