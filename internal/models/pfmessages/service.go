package pfmessages

import (
	"context"
	"regexp"
	"strings"
	"time"
	"unicode/utf8"

	"portfolio/internal/models/pfanalytics"
	"portfolio/internal/models/pferrors"
	"portfolio/internal/models/pfmetrics"

	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

const (
	DefaultSubject = "No Subject"

	maxFieldLength   = 255
	maxMessageLength = 5000
)

// \s de Go ne couvre que l'ASCII: les espaces Unicode sont exclus explicitement
var emailPattern = regexp.MustCompile(`^[^\s\x0B\p{Z}\x{FEFF}@]+@[^\s\x0B\p{Z}\x{FEFF}@]+\.[^\s\x0B\p{Z}\x{FEFF}@]+$`)

// Input est la soumission brute du formulaire
type Input struct {
	Name    string `json:"name"`
	Email   string `json:"email"`
	Subject string `json:"subject"`
	Message string `json:"message"`
}

// Tracker reçoit les messages enregistrés, après validation de la transaction
type Tracker interface {
	TrackMessage(ctx context.Context, at time.Time)
}

type Service struct {
	db      *gorm.DB
	tracker Tracker
	metrics *pfmetrics.Metrics
	now     func() time.Time
}

type Option func(*Service)

func WithTracker(t Tracker) Option {
	return func(s *Service) { s.tracker = t }
}

func WithMetrics(m *pfmetrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(db *gorm.DB, opts ...Option) *Service {
	s := &Service{db: db, now: time.Now}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Validate nettoie l'entrée et applique les règles du formulaire
func Validate(in Input) (Input, error) {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	in.Subject = strings.TrimSpace(in.Subject)
	in.Message = strings.TrimSpace(in.Message)

	if in.Name == "" || in.Email == "" || in.Message == "" {
		return in, pferrors.Validation("Name, email, and message are required")
	}
	if !emailPattern.MatchString(in.Email) {
		return in, pferrors.Validation("Invalid email format")
	}
	if in.Subject == "" {
		in.Subject = DefaultSubject
	}

	for _, f := range []struct {
		label string
		value string
		max   int
	}{
		{"Name", in.Name, maxFieldLength},
		{"Email", in.Email, maxFieldLength},
		{"Subject", in.Subject, maxFieldLength},
		{"Message", in.Message, maxMessageLength},
	} {
		if utf8.RuneCountInString(f.value) > f.max {
			return in, pferrors.Validation("%s must be at most %d characters", f.label, f.max)
		}
	}
	return in, nil
}

// Submit enregistre le message et incrémente messages_received du jour
func (s *Service) Submit(ctx context.Context, in Input) (*Message, error) {
	in, err := Validate(in)
	if err != nil {
		s.metrics.ValidationFailed("submit_message")
		return nil, err
	}

	now := s.now().UTC()
	msg := Message{
		Name:      in.Name,
		Email:     in.Email,
		Subject:   in.Subject,
		Body:      in.Message,
		CreatedAt: now,
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&msg).Error; err != nil {
			return pferrors.Storage("insert message", err)
		}
		return pfanalytics.BumpMessages(tx, now)
	})
	if err != nil {
		s.metrics.StorageFailed("submit_message")
		return nil, err
	}

	s.metrics.MessageReceived()
	if s.tracker != nil {
		s.tracker.TrackMessage(ctx, now)
	}

	log.Info().
		Uint("id", msg.ID).
		Str("email", msg.Email).
		Str("subject", msg.Subject).
		Msg("message reçu")

	return &msg, nil
}

// List retourne tous les messages, du plus récent au plus ancien
func (s *Service) List(ctx context.Context) ([]Message, error) {
	messages := []Message{}
	err := s.db.WithContext(ctx).Order("created_at DESC, id DESC").Find(&messages).Error
	if err != nil {
		return nil, pferrors.Storage("list messages", err)
	}
	return messages, nil
}

func (s *Service) Count(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.WithContext(ctx).Model(&Message{}).Count(&n).Error
	return n, pferrors.Storage("count messages", err)
}

// MarkRead est idempotent, un id inconnu n'est pas une erreur
func (s *Service) MarkRead(ctx context.Context, id uint) error {
	if id == 0 {
		return pferrors.Validation("Invalid message id")
	}
	err := s.db.WithContext(ctx).Model(&Message{}).Where("id = ?", id).Update("read_status", true).Error
	return pferrors.Storage("mark message read", err)
}

// Delete est idempotent, un id inconnu n'est pas une erreur
func (s *Service) Delete(ctx context.Context, id uint) error {
	if id == 0 {
		return pferrors.Validation("Invalid message id")
	}
	err := s.db.WithContext(ctx).Delete(&Message{}, id).Error
	return pferrors.Storage("delete message", err)
}
