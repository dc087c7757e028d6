package handlers_messages

import (
	handlers_respond "portfolio/internal/handlers/respond"
	"portfolio/internal/models/pfcaptchas"
	"portfolio/internal/models/pfmessages"

	"github.com/gin-gonic/gin"
)

type MessagesHandler struct {
	service    *pfmessages.Service
	captchas   *pfcaptchas.Captchas
	production bool
}

// NewMessagesHandler: captchas peut être nil, le formulaire n'est alors pas protégé
func NewMessagesHandler(service *pfmessages.Service, captchas *pfcaptchas.Captchas, production bool) *MessagesHandler {
	return &MessagesHandler{
		service:    service,
		captchas:   captchas,
		production: production,
	}
}

type submitRequest struct {
	pfmessages.Input
	CaptchaID     string `json:"captcha_id"`
	CaptchaAnswer string `json:"captcha_answer"`
}

func (mh *MessagesHandler) Submit(c *gin.Context) {
	var req submitRequest
	if err := handlers_respond.BindJSON(c, &req); err != nil {
		handlers_respond.Error(c, err, "", mh.production)
		return
	}

	if mh.captchas != nil {
		if err := mh.captchas.Verify(req.CaptchaID, req.CaptchaAnswer); err != nil {
			handlers_respond.Error(c, err, "", mh.production)
			return
		}
	}

	msg, err := mh.service.Submit(c.Request.Context(), req.Input)
	if err != nil {
		handlers_respond.Error(c, err, "Failed to send message. Please try again later.", mh.production)
		return
	}

	handlers_respond.OK(c, gin.H{
		"message": "Message sent successfully",
		"id":      msg.ID,
	})
}

func (mh *MessagesHandler) List(c *gin.Context) {
	messages, err := mh.service.List(c.Request.Context())
	if err != nil {
		handlers_respond.Error(c, err, "Failed to fetch messages", mh.production)
		return
	}
	handlers_respond.OK(c, gin.H{"messages": messages})
}

func (mh *MessagesHandler) Count(c *gin.Context) {
	count, err := mh.service.Count(c.Request.Context())
	if err != nil {
		handlers_respond.Error(c, err, "Failed to fetch message count", mh.production)
		return
	}
	handlers_respond.OK(c, gin.H{"count": count})
}

func (mh *MessagesHandler) MarkRead(c *gin.Context) {
	id, err := handlers_respond.ParseID(c, "id")
	if err == nil {
		err = mh.service.MarkRead(c.Request.Context(), id)
	}
	if err != nil {
		handlers_respond.Error(c, err, "Failed to update message", mh.production)
		return
	}
	handlers_respond.OK(c, gin.H{"message": "Message marked as read"})
}

func (mh *MessagesHandler) Delete(c *gin.Context) {
	id, err := handlers_respond.ParseID(c, "id")
	if err == nil {
		err = mh.service.Delete(c.Request.Context(), id)
	}
	if err != nil {
		handlers_respond.Error(c, err, "Failed to delete message", mh.production)
		return
	}
	handlers_respond.OK(c, gin.H{"message": "Message deleted successfully"})
}

// Captcha génère un nouveau défi pour le formulaire
func (mh *MessagesHandler) Captcha(c *gin.Context) {
	if mh.captchas == nil {
		handlers_respond.OK(c, gin.H{"enabled": false})
		return
	}
	ch, err := mh.captchas.Generate(mh.production)
	if err != nil {
		handlers_respond.Error(c, err, "Failed to generate captcha", mh.production)
		return
	}
	data := gin.H{
		"enabled":    true,
		"captcha_id": ch.ID,
		"image":      ch.Image,
	}
	if ch.Answer != "" {
		data["answer"] = ch.Answer
	}
	handlers_respond.OK(c, data)
}

// Register branche les routes sous /api/messages; limiter protège uniquement l'envoi
func (mh *MessagesHandler) Register(r gin.IRouter, limiter gin.HandlerFunc) {
	r.POST("", limiter, mh.Submit)
	r.GET("", mh.List)
	r.GET("/count", mh.Count)
	r.PATCH("/:id/read", mh.MarkRead)
	r.DELETE("/:id", mh.Delete)
}
