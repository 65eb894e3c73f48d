package handlers

import (
	"encoding/xml"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/services"
)

type WhatsAppHandler struct {
	log         *logger.Logger
	assistant   services.WhatsAppAssistant
	verifyToken string
}

func NewWhatsAppHandler(log *logger.Logger, assistant services.WhatsAppAssistant, verifyToken string) *WhatsAppHandler {
	return &WhatsAppHandler{
		log:         log.With("handler", "WhatsAppHandler"),
		assistant:   assistant,
		verifyToken: strings.TrimSpace(verifyToken),
	}
}

type twimlResponse struct {
	XMLName xml.Name `xml:"Response"`
	Message string   `xml:"Message,omitempty"`
}

// GET /webhook/whatsapp
func (h *WhatsAppHandler) Verify(c *gin.Context) {
	mode := c.Query("hub.mode")
	token := c.Query("hub.verify_token")
	challenge := c.Query("hub.challenge")
	if mode == "subscribe" && h.verifyToken != "" && token == h.verifyToken {
		c.String(http.StatusOK, challenge)
		return
	}
	h.log.Warn("WhatsApp verification rejected", "mode", mode)
	c.Status(http.StatusForbidden)
}

// POST /webhook/whatsapp
//
// Twilio posts form fields and expects TwiML back. The sender always gets a
// reply, falling back to a canned text when the assistant fails.
func (h *WhatsAppHandler) Inbound(c *gin.Context) {
	in := services.InboundMessage{
		From:        c.PostForm("From"),
		Body:        c.PostForm("Body"),
		ProfileName: c.PostForm("ProfileName"),
	}
	if strings.TrimSpace(in.From) == "" || strings.TrimSpace(in.Body) == "" {
		c.XML(http.StatusOK, twimlResponse{})
		return
	}

	text := services.ReplyAssistantUnavailable
	reply, err := h.assistant.HandleInbound(c.Request.Context(), in)
	if err != nil {
		h.log.Error("WhatsApp inbound failed", "from", in.From, "error", err)
		_ = c.Error(err)
	} else if reply != nil && strings.TrimSpace(reply.Text) != "" {
		text = reply.Text
	}
	c.XML(http.StatusOK, twimlResponse{Message: text})
}
