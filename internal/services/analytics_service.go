// Package services contains the business logic layer for the website backend
package services

import (
	"encoding/json"
	"log"
	"time"

	"github.com/westernheights/website/internal/metrics"
	"github.com/westernheights/website/internal/models"
	"github.com/westernheights/website/internal/repository"
)

// DateLayout is the calendar-date format used by reports ("2006-01-02").
const DateLayout = "2006-01-02"

// TrackResult is the outcome of a tracking call. Tracking never returns a Go
// error to its caller: a storage failure is logged, counted and reported
// through Success/Error so the host request can keep going.
type TrackResult struct {
	Success bool   `json:"success"`
	Error   string `json:"error,omitempty"`
}

// DailyReport is the aggregate view of one calendar day's traffic. It is
// recomputed from raw events on every call and never persisted.
type DailyReport struct {
	Date           string                     `json:"date"`
	UniqueVisitors int                        `json:"unique_visitors"`
	TotalVisits    int                        `json:"total_visits"`
	PageViews      int                        `json:"page_views"`
	TopPages       []repository.PageCount     `json:"top_pages"`
	TopReferrers   []repository.ReferrerCount `json:"referrers"`
	Conversions    int                        `json:"conversions"`
}

// AnalyticsService provides tracking and reporting over the analytics store.
type AnalyticsService struct {
	repo repository.AnalyticsRepository
	now  func() time.Time // injected for tests
}

// NewAnalyticsService creates and returns a new AnalyticsService.
func NewAnalyticsService(repo repository.AnalyticsRepository) *AnalyticsService {
	return &AnalyticsService{
		repo: repo,
		now:  time.Now,
	}
}

// TrackPageView persists one page-view row and upserts the session summary.
// Missing optional fields default to empty/zero; country and city fall back to
// "Unknown" and a zero timestamp to the current time. The payload is stored
// as-is, even with a malformed or empty session id.
func (s *AnalyticsService) TrackPageView(event models.PageViewEvent) TrackResult {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}
	country := event.Country
	if country == "" {
		country = "Unknown"
	}
	city := event.City
	if city == "" {
		city = "Unknown"
	}

	view := &models.PageView{
		SessionID:   event.SessionID,
		PageURL:     event.PageURL,
		PageTitle:   event.PageTitle,
		Referrer:    event.Referrer,
		UserAgent:   event.UserAgent,
		IPAddress:   event.IPAddress,
		Country:     country,
		City:        city,
		Timestamp:   ts,
		TimeOnPage:  event.TimeOnPage,
		ScrollDepth: event.ScrollDepth,
	}
	session := &models.Session{
		SessionID:        event.SessionID,
		UserID:           event.UserID,
		DeviceType:       event.DeviceType,
		Browser:          event.Browser,
		OS:               event.OS,
		ScreenResolution: event.ScreenResolution,
		FirstVisit:       ts,
		LastVisit:        ts,
		TotalViews:       1,
	}

	if err := s.repo.RecordPageView(view, session); err != nil {
		log.Printf("ERROR: Failed to track page view for session %q (url: %s): %v",
			event.SessionID, event.PageURL, err)
		metrics.TrackingFailures.WithLabelValues("page_view").Inc()
		return TrackResult{Success: false, Error: "failed to record page view"}
	}

	metrics.PageViewsTracked.Inc()
	return TrackResult{Success: true}
}

// TrackConversion persists one conversion row. The form data blob is
// serialized verbatim and never inspected.
func (s *AnalyticsService) TrackConversion(event models.ConversionEvent) TrackResult {
	ts := event.Timestamp
	if ts.IsZero() {
		ts = s.now()
	}

	var formData string
	if len(event.FormData) > 0 {
		raw, err := json.Marshal(event.FormData)
		if err != nil {
			// Unmarshalable form data is dropped, not rejected
			log.Printf("WARNING: Could not serialize form data for session %q: %v", event.SessionID, err)
		} else {
			formData = string(raw)
		}
	}

	conv := &models.Conversion{
		SessionID:       event.SessionID,
		ConversionType:  event.ConversionType,
		ConversionValue: event.ConversionValue,
		PageURL:         event.PageURL,
		FormData:        formData,
		Timestamp:       ts,
	}

	if err := s.repo.CreateConversion(conv); err != nil {
		log.Printf("ERROR: Failed to track conversion %q for session %q: %v",
			event.ConversionType, event.SessionID, err)
		metrics.TrackingFailures.WithLabelValues("conversion").Inc()
		return TrackResult{Success: false, Error: "failed to record conversion"}
	}

	metrics.ConversionsTracked.WithLabelValues(event.ConversionType).Inc()
	return TrackResult{Success: true}
}

// DailyReport computes the aggregate report for one calendar date
// ("2006-01-02"). An empty date means today. A malformed date or a storage
// failure yields an empty report with the date echoed back, never an error;
// partial query failures keep whatever portions did succeed.
func (s *AnalyticsService) DailyReport(date string) DailyReport {
	if date == "" {
		date = s.now().Format(DateLayout)
	}

	report := DailyReport{
		Date:         date,
		TopPages:     []repository.PageCount{},
		TopReferrers: []repository.ReferrerCount{},
	}

	if _, err := time.Parse(DateLayout, date); err != nil {
		log.Printf("ERROR: Invalid report date %q: %v", date, err)
		return report
	}

	unique, total, err := s.repo.VisitorCounts(date)
	if err != nil {
		log.Printf("ERROR: Failed to count visitors: %v", err)
	} else {
		report.UniqueVisitors = unique
		// "Visit" and "view" are synonyms in this report: both count raw
		// page-view rows, not sessions.
		report.TotalVisits = total
		report.PageViews = total
	}

	if pages, err := s.repo.TopPages(date, 10); err != nil {
		log.Printf("ERROR: Failed to query top pages: %v", err)
	} else if pages != nil {
		report.TopPages = pages
	}

	if referrers, err := s.repo.TopReferrers(date, 10); err != nil {
		log.Printf("ERROR: Failed to query top referrers: %v", err)
	} else if referrers != nil {
		report.TopReferrers = referrers
	}

	if conversions, err := s.repo.ConversionCount(date); err != nil {
		log.Printf("ERROR: Failed to count conversions: %v", err)
	} else {
		report.Conversions = conversions
	}

	metrics.ReportsBuilt.Inc()
	return report
}

// PopularPages returns the most viewed pages over the trailing window of the
// given number of days, with per-page distinct-session counts. Failures yield
// an empty list.
func (s *AnalyticsService) PopularPages(days, limit int) []repository.PopularPage {
	if days <= 0 {
		days = 7
	}
	if limit <= 0 {
		limit = 10
	}

	cutoff := s.now().AddDate(0, 0, -days)
	pages, err := s.repo.PopularPages(cutoff, limit)
	if err != nil {
		log.Printf("ERROR: Failed to query popular pages: %v", err)
		return []repository.PopularPage{}
	}
	if pages == nil {
		pages = []repository.PopularPage{}
	}
	return pages
}
