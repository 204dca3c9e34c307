package services

import (
	"errors"
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/westernheights/website/internal/models"
	"github.com/westernheights/website/internal/repository"
)

func newTestAnalytics(t *testing.T) (*AnalyticsService, repository.AnalyticsRepository) {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open in-memory db: %v", err)
	}
	// Every pooled connection gets a distinct :memory: database, so keep one
	sqlDB, err := db.DB()
	if err != nil {
		t.Fatalf("underlying db: %v", err)
	}
	sqlDB.SetMaxOpenConns(1)
	if err := db.AutoMigrate(&models.PageView{}, &models.Session{}, &models.Conversion{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	repo := repository.NewAnalyticsRepository(db)
	return NewAnalyticsService(repo), repo
}

func TestDailyReportScenario(t *testing.T) {
	svc, _ := newTestAnalytics(t)

	day := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	for i, url := range []string{"/a", "/a", "/a", "/b"} {
		result := svc.TrackPageView(models.PageViewEvent{
			SessionID: "s1",
			PageURL:   url,
			Timestamp: day.Add(time.Duration(i) * time.Minute),
		})
		if !result.Success {
			t.Fatalf("track %s failed: %s", url, result.Error)
		}
	}

	report := svc.DailyReport("2024-01-05")
	if report.UniqueVisitors != 1 {
		t.Errorf("UniqueVisitors = %d, want 1", report.UniqueVisitors)
	}
	if report.TotalVisits != 4 {
		t.Errorf("TotalVisits = %d, want 4", report.TotalVisits)
	}
	if len(report.TopPages) != 2 {
		t.Fatalf("TopPages = %v, want 2 entries", report.TopPages)
	}
	if report.TopPages[0].PageURL != "/a" || report.TopPages[0].Views != 3 {
		t.Errorf("TopPages[0] = %+v, want /a with 3 views", report.TopPages[0])
	}
	if report.TopPages[1].PageURL != "/b" || report.TopPages[1].Views != 1 {
		t.Errorf("TopPages[1] = %+v, want /b with 1 view", report.TopPages[1])
	}
}

func TestTrackPageViewSessionAccumulation(t *testing.T) {
	svc, repo := newTestAnalytics(t)

	base := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	const n = 4
	var last time.Time
	for i := 0; i < n; i++ {
		last = base.Add(time.Duration(i) * time.Hour)
		svc.TrackPageView(models.PageViewEvent{SessionID: "s9", PageURL: "/", Timestamp: last})
	}

	session, err := repo.GetSession("s9")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if session.TotalViews != n {
		t.Errorf("TotalViews = %d, want %d", session.TotalViews, n)
	}
	if session.LastVisit.Unix() != last.Unix() {
		t.Errorf("LastVisit = %v, want %v", session.LastVisit, last)
	}
	if session.LastVisit.Before(base) {
		t.Errorf("LastVisit %v earlier than first event %v", session.LastVisit, base)
	}
}

func TestTrackPageViewDefaults(t *testing.T) {
	svc, _ := newTestAnalytics(t)

	// Entirely empty event: stored with defaults, never rejected
	result := svc.TrackPageView(models.PageViewEvent{})
	if !result.Success {
		t.Fatalf("empty event rejected: %s", result.Error)
	}

	today := time.Now().Format(DateLayout)
	report := svc.DailyReport(today)
	if report.TotalVisits != 1 {
		t.Errorf("TotalVisits = %d, want 1", report.TotalVisits)
	}
}

func TestDailyReportBadDate(t *testing.T) {
	svc, _ := newTestAnalytics(t)

	svc.TrackPageView(models.PageViewEvent{SessionID: "s1", PageURL: "/a"})

	for _, date := range []string{"not-a-date", "2024-13-40", "05/01/2024"} {
		report := svc.DailyReport(date)
		if report.Date != date {
			t.Errorf("report date = %q, want %q echoed", report.Date, date)
		}
		if report.TotalVisits != 0 || report.UniqueVisitors != 0 || report.Conversions != 0 {
			t.Errorf("bad date %q produced non-empty report: %+v", date, report)
		}
		if len(report.TopPages) != 0 || len(report.TopReferrers) != 0 {
			t.Errorf("bad date %q produced groupings: %+v", date, report)
		}
	}
}

func TestDailyReportConversionsAllTypes(t *testing.T) {
	svc, _ := newTestAnalytics(t)

	day := time.Date(2024, 1, 5, 15, 0, 0, 0, time.UTC)
	for _, typ := range []string{"contact_form", "quote_request", ""} {
		result := svc.TrackConversion(models.ConversionEvent{
			SessionID:      "s1",
			ConversionType: typ,
			Timestamp:      day,
			FormData:       map[string]string{"name": "Test"},
		})
		if !result.Success {
			t.Fatalf("conversion %q failed: %s", typ, result.Error)
		}
	}

	report := svc.DailyReport("2024-01-05")
	if report.Conversions != 3 {
		t.Errorf("Conversions = %d, want 3 regardless of type", report.Conversions)
	}
}

func TestPopularPagesWindow(t *testing.T) {
	svc, _ := newTestAnalytics(t)

	recent := time.Now().AddDate(0, 0, -2)
	stale := time.Now().AddDate(0, 0, -30)
	svc.TrackPageView(models.PageViewEvent{SessionID: "s1", PageURL: "/fresh", Timestamp: recent})
	svc.TrackPageView(models.PageViewEvent{SessionID: "s2", PageURL: "/fresh", Timestamp: recent})
	svc.TrackPageView(models.PageViewEvent{SessionID: "s1", PageURL: "/old", Timestamp: stale})

	pages := svc.PopularPages(7, 10)
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want only the one inside the window: %v", len(pages), pages)
	}
	if pages[0].PageURL != "/fresh" || pages[0].TotalViews != 2 || pages[0].UniqueVisitors != 2 {
		t.Errorf("page = %+v, want /fresh with 2 views from 2 sessions", pages[0])
	}
}

// failingRepo simulates an unavailable store.
type failingRepo struct{}

var errStoreDown = errors.New("store down")

func (failingRepo) RecordPageView(*models.PageView, *models.Session) error { return errStoreDown }
func (failingRepo) CreateConversion(*models.Conversion) error              { return errStoreDown }
func (failingRepo) UpsertSession(*models.Session) error                    { return errStoreDown }
func (failingRepo) GetSession(string) (*models.Session, error)             { return nil, errStoreDown }
func (failingRepo) VisitorCounts(string) (int, int, error)                 { return 0, 0, errStoreDown }
func (failingRepo) TopPages(string, int) ([]repository.PageCount, error) {
	return nil, errStoreDown
}
func (failingRepo) TopReferrers(string, int) ([]repository.ReferrerCount, error) {
	return nil, errStoreDown
}
func (failingRepo) ConversionCount(string) (int, error) { return 0, errStoreDown }
func (failingRepo) PopularPages(time.Time, int) ([]repository.PopularPage, error) {
	return nil, errStoreDown
}

func TestStorageFailureSoftResults(t *testing.T) {
	svc := NewAnalyticsService(failingRepo{})

	if result := svc.TrackPageView(models.PageViewEvent{SessionID: "s1"}); result.Success {
		t.Error("page view against a down store reported success")
	} else if result.Error == "" {
		t.Error("soft failure carries no error detail")
	}

	if result := svc.TrackConversion(models.ConversionEvent{SessionID: "s1"}); result.Success {
		t.Error("conversion against a down store reported success")
	}

	report := svc.DailyReport("2024-01-05")
	if report.TotalVisits != 0 || report.Conversions != 0 {
		t.Errorf("down store produced non-empty report: %+v", report)
	}

	if pages := svc.PopularPages(7, 10); len(pages) != 0 {
		t.Errorf("down store produced popular pages: %v", pages)
	}
}
