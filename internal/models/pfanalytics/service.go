package pfanalytics

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"portfolio/internal/models/pferrors"
	"portfolio/internal/models/pfmetrics"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	DefaultDays = 30
	MaxDays     = 365

	unknownUserAgent = "unknown"
	directReferrer   = "direct"
	unknownSession   = "unknown"

	realtimeTTL = 31 * 24 * time.Hour
)

// ViewEvent décrit une vue telle que reçue par le serveur
type ViewEvent struct {
	Address      string
	ForwardedFor string
	UserAgent    string
	Referrer     string
	SessionID    string
}

type Totals struct {
	Views    int64 `json:"views"`
	Visitors int64 `json:"visitors"`
	Messages int64 `json:"messages"`
}

type Report struct {
	Days   []AnalyticsDay `json:"analytics"`
	Totals Totals         `json:"totals"`
}

type RealtimeStats struct {
	Date     string `json:"date"`
	Views    int64  `json:"views"`
	Visitors int64  `json:"visitors"`
	Messages int64  `json:"messages"`
	Source   string `json:"source"`
}

type Service struct {
	db       *gorm.DB
	redis    *redis.Client
	geo      *GeoLocator
	resolver KeyResolver
	metrics  *pfmetrics.Metrics
	now      func() time.Time
}

type Option func(*Service)

func WithRedis(client *redis.Client) Option {
	return func(s *Service) { s.redis = client }
}

func WithGeo(geo *GeoLocator) Option {
	return func(s *Service) { s.geo = geo }
}

func WithResolver(r KeyResolver) Option {
	return func(s *Service) { s.resolver = r }
}

func WithMetrics(m *pfmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{
		db:       db,
		resolver: AutoResolver{},
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// RecordView enregistre la vue, met à jour le visiteur et le cumul du jour
// dans une seule transaction.
func (s *Service) RecordView(ctx context.Context, ev ViewEvent) (*Visitor, error) {
	now := s.now().UTC()
	day := Day(now)

	address := NormalizeAddress(ev.Address, ev.ForwardedFor)
	userAgent := orDefault(ev.UserAgent, unknownUserAgent)
	referrer := orDefault(ev.Referrer, directReferrer)
	sessionID := orDefault(ev.SessionID, unknownSession)
	key := s.resolver.Resolve(address, sessionID)

	view := ProfileView{
		IPAddress:  address,
		UserAgent:  userAgent,
		Referrer:   referrer,
		SessionID:  sessionID,
		VisitorKey: key,
		ViewDate:   day,
		Country:    s.geo.Country(address),
		ViewedAt:   now,
	}

	var visitor Visitor
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&view).Error; err != nil {
			return pferrors.Storage("insert profile view", err)
		}

		candidate := Visitor{
			VisitorKey: key,
			UserAgent:  userAgent,
			Referrer:   referrer,
			FirstVisit: now,
			LastVisit:  now,
			VisitCount: 1,
		}
		err := tx.Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "visitor_key"}},
			DoUpdates: clause.Assignments(map[string]any{
				"visit_count": gorm.Expr("visit_count + ?", 1),
				"last_visit":  now,
				"user_agent":  userAgent,
				"referrer":    referrer,
			}),
		}).Create(&candidate).Error
		if err != nil {
			return pferrors.Storage("upsert visitor", err)
		}
		if err := tx.Where("visitor_key = ?", key).First(&visitor).Error; err != nil {
			return pferrors.Storage("load visitor", err)
		}

		if err := bumpDay(tx, day, "total_views", now); err != nil {
			return err
		}
		return recountVisitors(tx, day, now)
	})
	if err != nil {
		s.metrics.StorageFailed("record_view")
		return nil, err
	}

	s.metrics.ViewRecorded(visitor.VisitCount == 1)
	s.trackRealtime(ctx, day, "views", key)

	log.Debug().
		Str("ip", address).
		Str("visitor_id", key).
		Int64("visits", visitor.VisitCount).
		Msg("vue enregistrée")

	return &visitor, nil
}

// BumpMessages incrémente messages_received du jour dans la transaction fournie
func BumpMessages(tx *gorm.DB, at time.Time) error {
	return bumpDay(tx, Day(at), "messages_received", at.UTC())
}

// bumpDay insère le jour avec column=1 ou incrémente column en une seule requête
func bumpDay(tx *gorm.DB, day, column string, now time.Time) error {
	row := AnalyticsDay{Date: day, UpdatedAt: now}
	switch column {
	case "total_views":
		row.TotalViews = 1
	case "messages_received":
		row.MessagesReceived = 1
	default:
		return fmt.Errorf("colonne de cumul inconnue: %s", column)
	}

	err := tx.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "date"}},
		DoUpdates: clause.Assignments(map[string]any{
			column:       gorm.Expr(column+" + ?", 1),
			"updated_at": now,
		}),
	}).Create(&row).Error
	return pferrors.Storage("upsert analytics "+column, err)
}

// recountVisitors recalcule unique_visitors depuis les vues du jour en une requête
func recountVisitors(tx *gorm.DB, day string, now time.Time) error {
	distinct := tx.Session(&gorm.Session{NewDB: true}).
		Model(&ProfileView{}).
		Select("COUNT(DISTINCT visitor_key)").
		Where("view_date = ?", day)

	err := tx.Model(&AnalyticsDay{}).
		Where("date = ?", day).
		Updates(map[string]any{
			"unique_visitors": distinct,
			"updated_at":      now,
		}).Error
	return pferrors.Storage("recount unique visitors", err)
}

func (s *Service) trackRealtime(ctx context.Context, day, field, visitorKey string) {
	if s.redis == nil {
		return
	}
	daily := realtimeDailyKey(day)
	_, err := s.redis.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.HIncrBy(ctx, daily, field, 1)
		pipe.Expire(ctx, daily, realtimeTTL)
		if visitorKey != "" {
			visitors := realtimeVisitorsKey(day)
			pipe.SAdd(ctx, visitors, visitorKey)
			pipe.Expire(ctx, visitors, realtimeTTL)
		}
		return nil
	})
	if err != nil {
		log.Warn().Err(err).Str("date", day).Msg("compteur temps réel non mis à jour")
	}
}

// TrackMessage alimente le compteur temps réel des messages
func (s *Service) TrackMessage(ctx context.Context, at time.Time) {
	s.trackRealtime(ctx, Day(at), "messages", "")
}

func realtimeDailyKey(day string) string {
	return "portfolio:analytics:daily:" + day
}

func realtimeVisitorsKey(day string) string {
	return "portfolio:analytics:visitors:" + day
}

func (s *Service) CountViews(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&ProfileView{}).Count(&n).Error
	return n, pferrors.Storage("count views", err)
}

func (s *Service) CountVisitors(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Visitor{}).Count(&n).Error
	return n, pferrors.Storage("count visitors", err)
}

// Analytics retourne les cumuls des days derniers jours, du plus récent au plus ancien
func (s *Service) Analytics(ctx context.Context, days int) (*Report, error) {
	if days < 1 || days > MaxDays {
		s.metrics.ValidationFailed("analytics")
		return nil, pferrors.Validation("days must be between 1 and %d", MaxDays)
	}
	since := Day(s.now().UTC().AddDate(0, 0, -days))
	db := s.db.WithContext(ctx)

	report := &Report{Days: []AnalyticsDay{}}
	if err := db.Where("date >= ?", since).Order("date DESC").Find(&report.Days).Error; err != nil {
		return nil, pferrors.Storage("list analytics", err)
	}
	if err := db.Model(&ProfileView{}).Count(&report.Totals.Views).Error; err != nil {
		return nil, pferrors.Storage("count views", err)
	}
	if err := db.Model(&Visitor{}).Count(&report.Totals.Visitors).Error; err != nil {
		return nil, pferrors.Storage("count visitors", err)
	}
	if err := db.Table("messages").Count(&report.Totals.Messages).Error; err != nil {
		return nil, pferrors.Storage("count messages", err)
	}
	return report, nil
}

// Realtime lit les compteurs du jour dans redis, ou dans la ligne du jour à défaut
func (s *Service) Realtime(ctx context.Context) (*RealtimeStats, error) {
	day := Day(s.now())

	if s.redis != nil {
		stats, err := s.realtimeFromRedis(ctx, day)
		if err == nil {
			return stats, nil
		}
		log.Warn().Err(err).Msg("redis indisponible, lecture du cumul en base")
	}

	var row AnalyticsDay
	err := s.db.WithContext(ctx).Where("date = ?", day).First(&row).Error
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, pferrors.Storage("load analytics day", err)
	}
	return &RealtimeStats{
		Date:     day,
		Views:    row.TotalViews,
		Visitors: row.UniqueVisitors,
		Messages: row.MessagesReceived,
		Source:   "database",
	}, nil
}

func (s *Service) realtimeFromRedis(ctx context.Context, day string) (*RealtimeStats, error) {
	var (
		fields   *redis.MapStringStringCmd
		visitors *redis.IntCmd
	)
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		fields = pipe.HGetAll(ctx, realtimeDailyKey(day))
		visitors = pipe.SCard(ctx, realtimeVisitorsKey(day))
		return nil
	})
	if err != nil && !errors.Is(err, redis.Nil) {
		return nil, err
	}

	stats := &RealtimeStats{Date: day, Visitors: visitors.Val(), Source: "redis"}
	values := fields.Val()
	stats.Views, _ = strconv.ParseInt(values["views"], 10, 64)
	stats.Messages, _ = strconv.ParseInt(values["messages"], 10, 64)
	return stats, nil
}

// Reconcile recalcule la ligne du jour day depuis les tables brutes.
// Retourne nil sans erreur pour un jour sans activité ni ligne existante.
func (s *Service) Reconcile(ctx context.Context, day string) (*AnalyticsDay, error) {
	start, err := time.Parse(dayLayout, day)
	if err != nil {
		return nil, pferrors.Validation("invalid date %q", day)
	}
	end := start.AddDate(0, 0, 1)
	now := s.now().UTC()

	row := AnalyticsDay{Date: day, UpdatedAt: now}
	skipped := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Model(&ProfileView{}).Where("view_date = ?", day).Count(&row.TotalViews).Error; err != nil {
			return pferrors.Storage("count day views", err)
		}
		err := tx.Model(&ProfileView{}).
			Where("view_date = ?", day).
			Distinct("visitor_key").
			Count(&row.UniqueVisitors).Error
		if err != nil {
			return pferrors.Storage("count day visitors", err)
		}
		err = tx.Table("messages").
			Where("created_at >= ? AND created_at < ?", start, end).
			Count(&row.MessagesReceived).Error
		if err != nil {
			return pferrors.Storage("count day messages", err)
		}

		if row.TotalViews == 0 && row.MessagesReceived == 0 {
			var existing int64
			if err := tx.Model(&AnalyticsDay{}).Where("date = ?", day).Count(&existing).Error; err != nil {
				return pferrors.Storage("load analytics day", err)
			}
			if existing == 0 {
				skipped = true
				return nil
			}
		}

		err = tx.Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "date"}},
			DoUpdates: clause.AssignmentColumns([]string{"total_views", "unique_visitors", "messages_received", "updated_at"}),
		}).Create(&row).Error
		return pferrors.Storage("upsert analytics day", err)
	})
	if err != nil || skipped {
		return nil, err
	}
	return &row, nil
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
