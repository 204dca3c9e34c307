package repository

import (
	"testing"
	"time"

	"github.com/glebarez/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/westernheights/website/internal/models"
)

func newTestRepo(t *testing.T) *GormAnalyticsRepository {
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
	return NewAnalyticsRepository(db)
}

func pageView(session, url string, ts time.Time) *models.PageView {
	return &models.PageView{
		SessionID: session,
		PageURL:   url,
		Timestamp: ts,
	}
}

func sessionRow(id string, ts time.Time) *models.Session {
	return &models.Session{
		SessionID:  id,
		FirstVisit: ts,
		LastVisit:  ts,
		TotalViews: 1,
	}
}

func TestUpsertSessionAccumulates(t *testing.T) {
	repo := newTestRepo(t)

	base := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
	const n = 5
	var last time.Time
	for i := 0; i < n; i++ {
		last = base.Add(time.Duration(i) * time.Minute)
		if err := repo.UpsertSession(sessionRow("s1", last)); err != nil {
			t.Fatalf("upsert %d: %v", i, err)
		}
	}

	got, err := repo.GetSession("s1")
	if err != nil {
		t.Fatalf("get session: %v", err)
	}
	if got.TotalViews != n {
		t.Errorf("TotalViews = %d, want %d", got.TotalViews, n)
	}
	if got.LastVisit.Unix() != last.Unix() {
		t.Errorf("LastVisit = %v, want %v", got.LastVisit, last)
	}
	if got.FirstVisit.Unix() != base.Unix() {
		t.Errorf("FirstVisit = %v, want %v", got.FirstVisit, base)
	}
}

func TestUpsertSessionKeepsFirstVisit(t *testing.T) {
	repo := newTestRepo(t)

	first := time.Date(2024, 1, 5, 8, 0, 0, 0, time.UTC)
	later := first.Add(2 * time.Hour)
	if err := repo.UpsertSession(sessionRow("s1", first)); err != nil {
		t.Fatal(err)
	}
	if err := repo.UpsertSession(sessionRow("s1", later)); err != nil {
		t.Fatal(err)
	}

	got, err := repo.GetSession("s1")
	if err != nil {
		t.Fatal(err)
	}
	if got.FirstVisit.Unix() != first.Unix() {
		t.Errorf("FirstVisit moved to %v, want %v", got.FirstVisit, first)
	}
	if got.LastVisit.Unix() != later.Unix() {
		t.Errorf("LastVisit = %v, want %v", got.LastVisit, later)
	}
}

func TestRecordPageViewWritesBothRows(t *testing.T) {
	repo := newTestRepo(t)

	ts := time.Date(2024, 1, 5, 12, 0, 0, 0, time.UTC)
	if err := repo.RecordPageView(pageView("s1", "/a", ts), sessionRow("s1", ts)); err != nil {
		t.Fatalf("record: %v", err)
	}

	unique, total, err := repo.VisitorCounts("2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if unique != 1 || total != 1 {
		t.Errorf("counts = (%d, %d), want (1, 1)", unique, total)
	}
	if _, err := repo.GetSession("s1"); err != nil {
		t.Errorf("session row missing after RecordPageView: %v", err)
	}
}

func TestVisitorCountsDateBoundary(t *testing.T) {
	repo := newTestRepo(t)

	lateNight := time.Date(2024, 1, 5, 23, 59, 59, 0, time.UTC)
	midnight := time.Date(2024, 1, 6, 0, 0, 0, 0, time.UTC)
	if err := repo.RecordPageView(pageView("s1", "/a", lateNight), sessionRow("s1", lateNight)); err != nil {
		t.Fatal(err)
	}
	if err := repo.RecordPageView(pageView("s1", "/a", midnight), sessionRow("s1", midnight)); err != nil {
		t.Fatal(err)
	}

	_, jan5, err := repo.VisitorCounts("2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	_, jan6, err := repo.VisitorCounts("2024-01-06")
	if err != nil {
		t.Fatal(err)
	}
	if jan5 != 1 {
		t.Errorf("2024-01-05 visits = %d, want 1", jan5)
	}
	if jan6 != 1 {
		t.Errorf("2024-01-06 visits = %d, want 1", jan6)
	}
}

func TestTopPagesOrderingAndLimit(t *testing.T) {
	repo := newTestRepo(t)

	ts := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	// Two pages tied at 5 views, one with 3, inserted interleaved
	views := []string{"/x", "/y", "/z", "/y", "/x", "/x", "/y", "/z", "/x", "/y", "/x", "/y", "/z"}
	for i, url := range views {
		session := "s1"
		if i%2 == 0 {
			session = "s2"
		}
		if err := repo.RecordPageView(pageView(session, url, ts), sessionRow(session, ts)); err != nil {
			t.Fatal(err)
		}
	}

	pages, err := repo.TopPages("2024-01-05", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 3 {
		t.Fatalf("got %d pages, want 3", len(pages))
	}
	for i := 1; i < len(pages); i++ {
		if pages[i].Views > pages[i-1].Views {
			t.Errorf("pages not sorted descending: %v", pages)
		}
	}
	// Both 5-view pages must come before the 3-view page
	if pages[2].PageURL != "/z" || pages[2].Views != 3 {
		t.Errorf("last page = %+v, want /z with 3 views", pages[2])
	}

	limited, err := repo.TopPages("2024-01-05", 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(limited) != 2 {
		t.Errorf("limit not applied, got %d rows", len(limited))
	}
}

func TestTopReferrersSkipsDirectTraffic(t *testing.T) {
	repo := newTestRepo(t)

	ts := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	withRef := pageView("s1", "/a", ts)
	withRef.Referrer = "https://google.com"
	direct := pageView("s1", "/a", ts)

	if err := repo.RecordPageView(withRef, sessionRow("s1", ts)); err != nil {
		t.Fatal(err)
	}
	if err := repo.RecordPageView(direct, sessionRow("s1", ts)); err != nil {
		t.Fatal(err)
	}

	refs, err := repo.TopReferrers("2024-01-05", 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(refs) != 1 {
		t.Fatalf("got %d referrers, want 1: %v", len(refs), refs)
	}
	if refs[0].Referrer != "https://google.com" || refs[0].Visits != 1 {
		t.Errorf("unexpected referrer row: %+v", refs[0])
	}
}

func TestConversionCountIgnoresType(t *testing.T) {
	repo := newTestRepo(t)

	ts := time.Date(2024, 1, 5, 9, 0, 0, 0, time.UTC)
	for _, typ := range []string{"contact_form", "quote_request", "newsletter"} {
		err := repo.CreateConversion(&models.Conversion{
			SessionID:      "s1",
			ConversionType: typ,
			Timestamp:      ts,
		})
		if err != nil {
			t.Fatal(err)
		}
	}
	err := repo.CreateConversion(&models.Conversion{
		SessionID:      "s2",
		ConversionType: "contact_form",
		Timestamp:      ts.AddDate(0, 0, 1),
	})
	if err != nil {
		t.Fatal(err)
	}

	count, err := repo.ConversionCount("2024-01-05")
	if err != nil {
		t.Fatal(err)
	}
	if count != 3 {
		t.Errorf("conversions = %d, want 3", count)
	}
}

func TestPopularPagesDistinctSessions(t *testing.T) {
	repo := newTestRepo(t)

	ts := time.Now().AddDate(0, 0, -1)
	for _, session := range []string{"s1", "s1", "s2"} {
		if err := repo.RecordPageView(pageView(session, "/a", ts), sessionRow(session, ts)); err != nil {
			t.Fatal(err)
		}
	}

	pages, err := repo.PopularPages(time.Now().AddDate(0, 0, -7), 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(pages) != 1 {
		t.Fatalf("got %d pages, want 1", len(pages))
	}
	if pages[0].TotalViews != 3 || pages[0].UniqueVisitors != 2 {
		t.Errorf("page = %+v, want 3 views from 2 sessions", pages[0])
	}
}
