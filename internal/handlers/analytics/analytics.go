package handlers_analytics

import (
	"strconv"

	handlers_respond "portfolio/internal/handlers/respond"
	"portfolio/internal/models/pfanalytics"
	"portfolio/internal/models/pferrors"
	"portfolio/internal/pfmiddleware"

	"github.com/gin-gonic/gin"
)

type AnalyticsHandler struct {
	service    *pfanalytics.Service
	production bool
}

func NewAnalyticsHandler(service *pfanalytics.Service, production bool) *AnalyticsHandler {
	return &AnalyticsHandler{
		service:    service,
		production: production,
	}
}

type viewRequest struct {
	SessionID string `json:"session_id"`
	Referrer  string `json:"referrer"`
}

// RecordView enregistre une vue de la page
func (ah *AnalyticsHandler) RecordView(c *gin.Context) {
	var req viewRequest
	if err := handlers_respond.BindJSON(c, &req); err != nil {
		handlers_respond.Error(c, err, "Failed to track view", ah.production)
		return
	}

	referrer := c.GetHeader("Referer")
	if referrer == "" {
		referrer = req.Referrer
	}
	sessionID := req.SessionID
	if sessionID == "" {
		sessionID = pfmiddleware.SessionID(c)
	}

	visitor, err := ah.service.RecordView(c.Request.Context(), pfanalytics.ViewEvent{
		Address:      c.ClientIP(),
		ForwardedFor: c.GetHeader("X-Forwarded-For"),
		UserAgent:    c.Request.UserAgent(),
		Referrer:     referrer,
		SessionID:    sessionID,
	})
	if err != nil {
		handlers_respond.Error(c, err, "Failed to track view", ah.production)
		return
	}

	handlers_respond.OK(c, gin.H{
		"message":    "View tracked successfully",
		"visitor_id": visitor.VisitorKey,
	})
}

func (ah *AnalyticsHandler) CountViews(c *gin.Context) {
	count, err := ah.service.CountViews(c.Request.Context())
	if err != nil {
		handlers_respond.Error(c, err, "Failed to fetch view count", ah.production)
		return
	}
	handlers_respond.OK(c, gin.H{"count": count})
}

func (ah *AnalyticsHandler) CountVisitors(c *gin.Context) {
	count, err := ah.service.CountVisitors(c.Request.Context())
	if err != nil {
		handlers_respond.Error(c, err, "Failed to fetch visitor count", ah.production)
		return
	}
	handlers_respond.OK(c, gin.H{"count": count})
}

// GetAnalytics retourne les cumuls quotidiens des N derniers jours (30 par défaut)
func (ah *AnalyticsHandler) GetAnalytics(c *gin.Context) {
	days := pfanalytics.DefaultDays
	if raw := c.Query("days"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil {
			handlers_respond.Error(c, pferrors.Validation("days must be an integer"), "", ah.production)
			return
		}
		days = n
	}

	report, err := ah.service.Analytics(c.Request.Context(), days)
	if err != nil {
		handlers_respond.Error(c, err, "Failed to fetch analytics", ah.production)
		return
	}

	handlers_respond.OK(c, gin.H{
		"analytics": report.Days,
		"totals":    report.Totals,
	})
}

// GetRealtimeStats retourne les compteurs du jour
func (ah *AnalyticsHandler) GetRealtimeStats(c *gin.Context) {
	stats, err := ah.service.Realtime(c.Request.Context())
	if err != nil {
		handlers_respond.Error(c, err, "Failed to retrieve realtime stats", ah.production)
		return
	}

	handlers_respond.OK(c, gin.H{
		"date":     stats.Date,
		"views":    stats.Views,
		"visitors": stats.Visitors,
		"messages": stats.Messages,
		"source":   stats.Source,
	})
}

func (ah *AnalyticsHandler) Register(r gin.IRouter) {
	r.POST("", ah.RecordView)
	r.GET("/count", ah.CountViews)
	r.GET("/visitors/count", ah.CountVisitors)
	r.GET("/analytics", ah.GetAnalytics)
	r.GET("/realtime", ah.GetRealtimeStats)
}
