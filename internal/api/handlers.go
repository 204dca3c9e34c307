package api

import (
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/westernheights/website/internal/content"
	"github.com/westernheights/website/internal/models"
	"github.com/westernheights/website/internal/services"
)

// SetupRoutes configures all Gin API routes and injects the services.
func SetupRoutes(router *gin.Engine, analytics *services.AnalyticsService, contact *services.ContactService, manager *content.Manager) {
	// Health check, used by load balancers and monitoring
	router.GET("/health", HealthCheckHandler)

	// Prometheus metrics
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// SEO sitemap generated by the content manager
	router.GET("/sitemap.xml", SitemapHandler(manager))

	api := router.Group("/api")
	{
		api.POST("/contact", ContactHandler(contact, analytics))
		api.POST("/analytics/track", TrackPageViewHandler(analytics))
		api.POST("/analytics/conversion", TrackConversionHandler(analytics))
		api.GET("/content/services", ServicesHandler(manager))
		api.GET("/content/blog", BlogPostsHandler(manager))
	}

	admin := router.Group("/admin")
	{
		admin.GET("/analytics", DailyReportHandler(analytics))
		admin.GET("/analytics/popular", PopularPagesHandler(analytics))
		admin.GET("/analytics/export", ExportHandler(analytics))
		admin.GET("/submissions", SubmissionsHandler(contact))
	}
}

// HealthCheckHandler handles the /health route to verify service status.
func HealthCheckHandler(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// TrackPageViewHandler records a page view sent by the client-side beacon.
// Tracking is best effort: missing payload fields are stored with defaults,
// and a storage failure surfaces only as success=false in the response body.
func TrackPageViewHandler(analytics *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var event models.PageViewEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
			return
		}

		// Fill what the beacon did not send from the request itself
		if event.UserAgent == "" {
			event.UserAgent = c.GetHeader("User-Agent")
		}
		if event.IPAddress == "" {
			event.IPAddress = c.ClientIP()
		}
		if event.Referrer == "" {
			event.Referrer = c.GetHeader("Referer")
		}

		c.JSON(http.StatusOK, analytics.TrackPageView(event))
	}
}

// TrackConversionHandler records a goal completion reported by the client.
func TrackConversionHandler(analytics *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var event models.ConversionEvent
		if err := c.ShouldBindJSON(&event); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": "invalid payload"})
			return
		}
		c.JSON(http.StatusOK, analytics.TrackConversion(event))
	}
}

// ContactHandler processes a contact form submission and records it as a
// conversion. Validation failures get a 400 with the full error list; a
// failed conversion write never fails the submission.
func ContactHandler(contact *services.ContactService, analytics *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var form services.ContactForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "message": "invalid payload"})
			return
		}
		form.IP = c.ClientIP()
		form.UserAgent = c.GetHeader("User-Agent")

		result := contact.ProcessForm(form)
		if !result.Success {
			c.JSON(http.StatusBadRequest, result)
			return
		}

		sessionID, err := c.Cookie("session_id")
		if err != nil {
			sessionID = "unknown"
		}
		analytics.TrackConversion(models.ConversionEvent{
			SessionID:       sessionID,
			ConversionType:  "contact_form",
			ConversionValue: 1,
			PageURL:         c.GetHeader("Referer"),
			FormData: map[string]string{
				"name":    form.Name,
				"email":   form.Email,
				"company": form.Company,
				"service": form.Service,
			},
		})

		c.JSON(http.StatusOK, result)
	}
}

// ServicesHandler lists the service pages for dynamic loading.
func ServicesHandler(manager *content.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		servicePages, err := manager.AllServices()
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "services": servicePages})
	}
}

// BlogPostsHandler lists the most recent blog posts.
func BlogPostsHandler(manager *content.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := intQuery(c, "limit", 5)
		posts, err := manager.RecentPosts(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"success": true, "posts": posts})
	}
}

// DailyReportHandler returns the aggregated report for one calendar date
// (?date=2006-01-02, default today). A bad date yields an empty report, not
// an error.
func DailyReportHandler(analytics *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, analytics.DailyReport(c.Query("date")))
	}
}

// PopularPagesHandler returns the most viewed pages over a trailing window
// (?days=7&limit=10).
func PopularPagesHandler(analytics *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		days := intQuery(c, "days", 7)
		limit := intQuery(c, "limit", 10)
		c.JSON(http.StatusOK, gin.H{"pages": analytics.PopularPages(days, limit)})
	}
}

// ExportHandler streams a serialized export of today's report plus the
// 30-day popular pages (?format=json|csv).
func ExportHandler(analytics *services.AnalyticsService) gin.HandlerFunc {
	return func(c *gin.Context) {
		format := c.DefaultQuery("format", "json")

		summary := analytics.DailyReport("")
		popular := analytics.PopularPages(30, 20)

		switch format {
		case "csv":
			c.Header("Content-Type", "text/csv; charset=utf-8")
			c.Header("Content-Disposition", `attachment; filename="analytics_export.csv"`)
		case "json":
			c.Header("Content-Type", "application/json; charset=utf-8")
		}

		if err := services.ExportReport(c.Writer, summary, popular, format); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"success": false, "error": err.Error()})
		}
	}
}

// SubmissionsHandler lists stored contact submissions, newest first.
func SubmissionsHandler(contact *services.ContactService) gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := intQuery(c, "limit", 50)
		submissions, err := contact.ListSubmissions(limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"success": false})
			return
		}
		c.JSON(http.StatusOK, gin.H{"submissions": submissions})
	}
}

// SitemapHandler serves the generated sitemap.xml.
func SitemapHandler(manager *content.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.File(filepath.Join(filepath.Dir(manager.Dir), "sitemap.xml"))
	}
}

func intQuery(c *gin.Context, name string, fallback int) int {
	value, err := strconv.Atoi(c.Query(name))
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}
