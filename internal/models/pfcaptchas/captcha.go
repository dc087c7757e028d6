package pfcaptchas

import (
	"strings"

	"portfolio/internal/models/pferrors"
	"portfolio/internal/pfredis"

	"github.com/mojocn/base64Captcha"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

type Captchas struct {
	store  base64Captcha.Store
	driver base64Captcha.Driver
}

// Challenge est renvoyé au formulaire; Answer n'est rempli qu'hors production
type Challenge struct {
	ID     string `json:"captcha_id"`
	Image  string `json:"image"`
	Answer string `json:"answer,omitempty"`
}

// New utilise redis quand un client est fourni, la mémoire sinon
func New(client *redis.Client) *Captchas {
	var store base64Captcha.Store
	if client != nil {
		store = pfredis.NewCaptchaStore(client)
	} else {
		store = base64Captcha.NewMemoryStore(base64Captcha.GCLimitNumber, base64Captcha.Expiration)
	}

	driver := base64Captcha.NewDriverMath(
		80,  // hauteur
		240, // largeur
		6,   // bruit
		base64Captcha.OptionShowHollowLine,
		nil,
		nil,
		nil,
	)

	return &Captchas{
		store:  store,
		driver: driver,
	}
}

func (c *Captchas) Generate(production bool) (*Challenge, error) {
	id, b64s, answer, err := base64Captcha.NewCaptcha(c.driver, c.store).Generate()
	if err != nil {
		return nil, err
	}

	ch := &Challenge{ID: id, Image: b64s}
	if !production {
		log.Debug().Str("captcha_id", id).Str("answer", answer).Msg("captcha généré")
		ch.Answer = answer
	}
	return ch, nil
}

// Verify consomme le captcha, une réponse ne sert qu'une fois
func (c *Captchas) Verify(id, answer string) error {
	id = strings.TrimSpace(id)
	answer = strings.TrimSpace(answer)

	if id == "" || answer == "" {
		return pferrors.Validation("Captcha is required")
	}
	if !c.store.Verify(id, answer, true) {
		return pferrors.Validation("Invalid captcha")
	}
	return nil
}
