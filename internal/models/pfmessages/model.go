package pfmessages

import (
	"time"

	"portfolio/internal/models/pfmarkdown"

	"gorm.io/gorm"
)

const excerptLength = 160

// Message est une demande reçue par le formulaire de contact
type Message struct {
	ID         uint      `gorm:"primaryKey" json:"id"`
	Name       string    `gorm:"size:255;not null" json:"name"`
	Email      string    `gorm:"size:255;not null;index" json:"email"`
	Subject    string    `gorm:"size:255;default:'No Subject'" json:"subject"`
	Body       string    `gorm:"column:message;type:text;not null" json:"message"`
	CreatedAt  time.Time `gorm:"index" json:"created_at"`
	ReadStatus bool      `gorm:"not null;default:false;index" json:"read_status"`

	BodyHTML string `gorm:"-" json:"message_html"`
	Excerpt  string `gorm:"-" json:"excerpt"`
}

func (Message) TableName() string {
	return "messages"
}

// Hooks GORM
func (m *Message) AfterFind(tx *gorm.DB) error {
	m.BodyHTML = pfmarkdown.ToHTML(m.Body)
	m.Excerpt = pfmarkdown.Excerpt(m.Body, excerptLength)
	return nil
}

func Models() []any {
	return []any{&Message{}}
}
