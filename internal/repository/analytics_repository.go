package repository

import (
	"fmt"
	"time"

	"github.com/westernheights/website/internal/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// PageCount is one row of the per-page grouping used by the daily report.
type PageCount struct {
	PageURL string `json:"page"`
	Views   int    `json:"views"`
}

// ReferrerCount is one row of the per-referrer grouping used by the daily report.
type ReferrerCount struct {
	Referrer string `json:"referrer"`
	Visits   int    `json:"visits"`
}

// PopularPage extends the per-page grouping with a distinct-session count,
// used by the windowed popular-pages query.
type PopularPage struct {
	PageURL        string `json:"page_url"`
	TotalViews     int    `json:"total_views"`
	UniqueVisitors int    `json:"unique_visitors"`
}

// AnalyticsRepository defines the data access methods of the tracking store.
type AnalyticsRepository interface {
	RecordPageView(view *models.PageView, session *models.Session) error
	CreateConversion(conv *models.Conversion) error
	UpsertSession(session *models.Session) error
	GetSession(sessionID string) (*models.Session, error)
	VisitorCounts(date string) (unique int, total int, err error)
	TopPages(date string, limit int) ([]PageCount, error)
	TopReferrers(date string, limit int) ([]ReferrerCount, error)
	ConversionCount(date string) (int, error)
	PopularPages(since time.Time, limit int) ([]PopularPage, error)
}

// GormAnalyticsRepository is the AnalyticsRepository implementation using GORM.
type GormAnalyticsRepository struct {
	db *gorm.DB
}

// NewAnalyticsRepository creates and returns a new GormAnalyticsRepository.
func NewAnalyticsRepository(db *gorm.DB) *GormAnalyticsRepository {
	return &GormAnalyticsRepository{db: db}
}

// RecordPageView appends one page_views row and upserts the matching session
// inside a single transaction, so a failure leaves neither half behind.
func (r *GormAnalyticsRepository) RecordPageView(view *models.PageView, session *models.Session) error {
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(view).Error; err != nil {
			return err
		}
		return upsertSession(tx, session)
	})
	if err != nil {
		return fmt.Errorf("failed to record page view: %w", err)
	}
	return nil
}

// CreateConversion inserts a new conversion record into the database.
func (r *GormAnalyticsRepository) CreateConversion(conv *models.Conversion) error {
	if err := r.db.Create(conv).Error; err != nil {
		return fmt.Errorf("failed to create conversion: %w", err)
	}
	return nil
}

// UpsertSession inserts the session or, when the session_id already exists,
// advances last_visit and increments total_views. The increment happens inside
// the single INSERT ... ON CONFLICT statement, never as read-modify-write, so
// concurrent writers for the same session cannot lose counts.
func (r *GormAnalyticsRepository) UpsertSession(session *models.Session) error {
	if err := upsertSession(r.db, session); err != nil {
		return fmt.Errorf("failed to upsert session %q: %w", session.SessionID, err)
	}
	return nil
}

func upsertSession(tx *gorm.DB, session *models.Session) error {
	return tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "session_id"}},
		DoUpdates: clause.Assignments(map[string]interface{}{
			"last_visit":  session.LastVisit,
			"total_views": gorm.Expr("total_views + 1"),
		}),
	}).Create(session).Error
}

// GetSession retrieves a session summary row by its session id.
func (r *GormAnalyticsRepository) GetSession(sessionID string) (*models.Session, error) {
	var session models.Session
	if err := r.db.Where("session_id = ?", sessionID).First(&session).Error; err != nil {
		return nil, err
	}
	return &session, nil
}

// VisitorCounts returns the distinct-session and raw page-view counts for one
// calendar day. The day filter uses the store's DATE() truncation, so an event
// at 23:59:59 and one at next-day 00:00:00 land in different reports.
func (r *GormAnalyticsRepository) VisitorCounts(date string) (int, int, error) {
	var row struct {
		UniqueVisitors int
		TotalVisits    int
	}
	err := r.db.Model(&models.PageView{}).
		Select("COUNT(DISTINCT session_id) AS unique_visitors, COUNT(*) AS total_visits").
		Where("DATE(timestamp) = ?", date).
		Scan(&row).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count visitors for %s: %w", date, err)
	}
	return row.UniqueVisitors, row.TotalVisits, nil
}

// TopPages groups the day's page views by URL, most viewed first.
func (r *GormAnalyticsRepository) TopPages(date string, limit int) ([]PageCount, error) {
	var rows []PageCount
	err := r.db.Model(&models.PageView{}).
		Select("page_url, COUNT(*) AS views").
		Where("DATE(timestamp) = ?", date).
		Group("page_url").
		Order("views DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top pages for %s: %w", date, err)
	}
	return rows, nil
}

// TopReferrers groups the day's page views by referrer, skipping direct
// traffic (empty referrer), most frequent first.
func (r *GormAnalyticsRepository) TopReferrers(date string, limit int) ([]ReferrerCount, error) {
	var rows []ReferrerCount
	err := r.db.Model(&models.PageView{}).
		Select("referrer, COUNT(*) AS visits").
		Where("DATE(timestamp) = ? AND referrer <> ''", date).
		Group("referrer").
		Order("visits DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query top referrers for %s: %w", date, err)
	}
	return rows, nil
}

// ConversionCount counts the day's conversions regardless of their type.
func (r *GormAnalyticsRepository) ConversionCount(date string) (int, error) {
	var count int64
	err := r.db.Model(&models.Conversion{}).
		Where("DATE(timestamp) = ?", date).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count conversions for %s: %w", date, err)
	}
	return int(count), nil
}

// PopularPages groups page views since the given cutoff date by URL and also
// reports how many distinct sessions viewed each page.
func (r *GormAnalyticsRepository) PopularPages(since time.Time, limit int) ([]PopularPage, error) {
	var rows []PopularPage
	err := r.db.Model(&models.PageView{}).
		Select("page_url, COUNT(*) AS total_views, COUNT(DISTINCT session_id) AS unique_visitors").
		Where("DATE(timestamp) >= ?", since.Format("2006-01-02")).
		Group("page_url").
		Order("total_views DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to query popular pages: %w", err)
	}
	return rows, nil
}
