package pfanalytics

import "time"

const dayLayout = "2006-01-02"

// ProfileView est le journal brut des vues, jamais dédupliqué
type ProfileView struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	IPAddress  string    `gorm:"size:64;index" json:"ip_address"`
	UserAgent  string    `gorm:"type:text" json:"user_agent"`
	Referrer   string    `gorm:"type:text" json:"referrer"`
	SessionID  string    `gorm:"size:255;index" json:"session_id"`
	VisitorKey string    `gorm:"size:300;index" json:"visitor_key"`
	ViewDate   string    `gorm:"size:10;index" json:"view_date"`
	Country    string    `gorm:"size:2" json:"country,omitempty"`
	ViewedAt   time.Time `gorm:"index" json:"viewed_at"`
}

// Visitor agrège les vues d'une même clé visiteur
type Visitor struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	VisitorKey string    `gorm:"size:300;uniqueIndex;not null" json:"visitor_key"`
	UserAgent  string    `gorm:"type:text" json:"user_agent"`
	Referrer   string    `gorm:"type:text" json:"referrer"`
	FirstVisit time.Time `json:"first_visit"`
	LastVisit  time.Time `gorm:"index" json:"last_visit"`
	VisitCount int64     `gorm:"not null;default:1" json:"visit_count"`
}

// AnalyticsDay est le cumul quotidien, une ligne par jour UTC
type AnalyticsDay struct {
	ID               uint      `gorm:"primaryKey" json:"-"`
	Date             string    `gorm:"size:10;uniqueIndex;not null" json:"date"`
	TotalViews       int64     `gorm:"not null;default:0" json:"total_views"`
	UniqueVisitors   int64     `gorm:"not null;default:0" json:"unique_visitors"`
	MessagesReceived int64     `gorm:"not null;default:0" json:"messages_received"`
	UpdatedAt        time.Time `json:"-"`
}

func (ProfileView) TableName() string {
	return "profile_views"
}

func (Visitor) TableName() string {
	return "visitors"
}

func (AnalyticsDay) TableName() string {
	return "analytics"
}

// Models liste les tables gérées par le package, dans l'ordre de migration
func Models() []any {
	return []any{&ProfileView{}, &Visitor{}, &AnalyticsDay{}}
}

// Day retourne le jour calendaire UTC de t
func Day(t time.Time) string {
	return t.UTC().Format(dayLayout)
}
