package models

import "time"

// PageView represents a single recorded navigation event stored in the database.
// Rows are immutable once written; every tracked page render appends exactly one.
type PageView struct {
	// ID is the primary key with auto-increment functionality
	ID uint `gorm:"primaryKey"`

	// SessionID ties the view to a visitor session
	// - index: page views are constantly grouped and counted per session
	SessionID string `gorm:"index;size:64"`

	PageURL   string `gorm:"size:2048"`
	PageTitle string `gorm:"size:255"`

	// Referrer is the document that linked here; empty for direct traffic
	Referrer string `gorm:"size:2048"`

	// UserAgent stores the browser/client information from the HTTP request
	UserAgent string `gorm:"size:255"`

	// IPAddress is sized to hold both IPv4 and IPv6 addresses
	IPAddress string `gorm:"size:50"`

	Country string `gorm:"size:100"`
	City    string `gorm:"size:100"`

	// Timestamp records the exact moment the page was viewed
	Timestamp time.Time `gorm:"index"`

	// TimeOnPage is seconds spent on the page, reported by the client beacon
	TimeOnPage int

	// ScrollDepth is the percentage of the page the visitor scrolled through
	ScrollDepth int
}

// TableName keeps the historical table name used by the tracking schema.
func (PageView) TableName() string { return "page_views" }

// Session is the per-visitor summary row, keyed by the client-supplied session
// token. It is the only mutable analytics record: TotalViews increments and
// LastVisit advances on every event carrying the same SessionID.
type Session struct {
	SessionID        string `gorm:"primaryKey;size:64"`
	UserID           string `gorm:"size:64"`
	DeviceType       string `gorm:"size:50"`
	Browser          string `gorm:"size:100"`
	OS               string `gorm:"size:100"`
	ScreenResolution string `gorm:"size:20"`
	FirstVisit       time.Time
	LastVisit        time.Time
	TotalViews       int `gorm:"default:1"`
}

func (Session) TableName() string { return "sessions" }

// Conversion represents a goal completion (form submit, quote request, ...).
// Immutable once written, like PageView.
type Conversion struct {
	ID        uint   `gorm:"primaryKey"`
	SessionID string `gorm:"index;size:64"`

	// ConversionType names the goal ("contact_form", "quote_request", ...)
	ConversionType  string  `gorm:"size:100"`
	ConversionValue float64 `gorm:"default:0"`
	PageURL         string  `gorm:"size:2048"`

	// FormData carries the submitted fields as an opaque JSON blob
	FormData string

	Timestamp time.Time `gorm:"index"`
}

func (Conversion) TableName() string { return "conversions" }

// PageViewEvent is the inbound tracking payload as delivered by the HTTP
// layer. Every field is optional; missing values default to empty/zero when
// the event is persisted. There is deliberately no validation here: a
// malformed or empty session id is still stored.
type PageViewEvent struct {
	SessionID        string    `json:"session_id"`
	PageURL          string    `json:"page_url"`
	PageTitle        string    `json:"page_title"`
	Referrer         string    `json:"referrer"`
	UserAgent        string    `json:"user_agent"`
	IPAddress        string    `json:"ip_address"`
	Country          string    `json:"country"`
	City             string    `json:"city"`
	UserID           string    `json:"user_id"`
	DeviceType       string    `json:"device_type"`
	Browser          string    `json:"browser"`
	OS               string    `json:"os"`
	ScreenResolution string    `json:"screen_resolution"`
	Timestamp        time.Time `json:"timestamp"`
	TimeOnPage       int       `json:"time_on_page"`
	ScrollDepth      int       `json:"scroll_depth"`
}

// ConversionEvent is the inbound conversion payload. FormData is an opaque
// key-value blob; it is serialized as-is and never inspected.
type ConversionEvent struct {
	SessionID       string            `json:"session_id"`
	ConversionType  string            `json:"conversion_type"`
	ConversionValue float64           `json:"conversion_value"`
	PageURL         string            `json:"page_url"`
	FormData        map[string]string `json:"form_data"`
	Timestamp       time.Time         `json:"timestamp"`
}
