package handlers

import (
	"math"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/http/response"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/services"
)

const (
	vapiFunctionCall    = "function-call"
	vapiStatusUpdate    = "status-update"
	vapiEndOfCallReport = "end-of-call-report"
	vapiCallEnded       = "call-ended"
	vapiTranscript      = "transcript"
)

type VapiHandler struct {
	log   *logger.Logger
	calls services.CallSyncService
}

func NewVapiHandler(log *logger.Logger, calls services.CallSyncService) *VapiHandler {
	return &VapiHandler{log: log.With("handler", "VapiHandler"), calls: calls}
}

type vapiCustomer struct {
	Number string `json:"number"`
	Name   string `json:"name"`
}

type vapiAnalysis struct {
	Summary string `json:"summary"`
}

type vapiTurn struct {
	Role    string `json:"role"`
	Message string `json:"message"`
}

type vapiCall struct {
	ID          string        `json:"id"`
	Status      string        `json:"status"`
	PhoneNumber string        `json:"phoneNumber"`
	Customer    *vapiCustomer `json:"customer"`
	Duration    float64       `json:"duration"`
	Transcript  string        `json:"transcript"`
	Summary     string        `json:"summary"`
	Analysis    *vapiAnalysis `json:"analysis"`
	Messages    []vapiTurn    `json:"messages"`
}

type vapiEvent struct {
	Type       string    `json:"type"`
	Call       *vapiCall `json:"call"`
	Role       string    `json:"role"`
	Transcript string    `json:"transcript"`
}

// vapiPayload accepts both the flat shape and the newer one nested under "message".
type vapiPayload struct {
	vapiEvent
	Message *vapiEvent `json:"message"`
}

func (p vapiPayload) event() vapiEvent {
	if p.Message != nil && p.Message.Type != "" {
		return *p.Message
	}
	return p.vapiEvent
}

func (c *vapiCall) phone() string {
	if c.Customer != nil && strings.TrimSpace(c.Customer.Number) != "" {
		return c.Customer.Number
	}
	return c.PhoneNumber
}

// POST /webhook/vapi
func (h *VapiHandler) Webhook(c *gin.Context) {
	var payload vapiPayload
	if err := c.ShouldBindJSON(&payload); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ev := payload.event()
	if ev.Call == nil {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No call data"})
		return
	}
	phone := ev.Call.phone()
	if strings.TrimSpace(phone) == "" {
		c.JSON(http.StatusOK, gin.H{"success": true, "message": "No phone number"})
		return
	}
	ctx := c.Request.Context()

	switch ev.Type {
	case vapiFunctionCall:
		cc, err := h.calls.CallContext(ctx, phone)
		if err != nil {
			h.log.Error("Call context lookup failed", "call_id", ev.Call.ID, "error", err)
			c.JSON(http.StatusOK, gin.H{"message": "No profile found"})
			return
		}
		if !cc.Found {
			c.JSON(http.StatusOK, gin.H{"message": "No profile found"})
			return
		}
		c.JSON(http.StatusOK, cc)
		return

	case vapiStatusUpdate:
		syncEv := services.CallEvent{CallID: ev.Call.ID, Phone: phone, EventType: services.CallEventStatus, Status: ev.Call.Status}
		if ev.Call.Status == "ended" {
			syncEv = services.CallEvent{CallID: ev.Call.ID, Phone: phone, EventType: services.CallEventEnded}
		}
		if _, err := h.calls.SyncCallEvent(ctx, syncEv); err != nil {
			response.RespondDomainError(c, err)
			return
		}

	case vapiEndOfCallReport, vapiCallEnded:
		if _, err := h.calls.StoreCallSummary(ctx, reportFromCall(ev.Call, phone)); err != nil {
			response.RespondDomainError(c, err)
			return
		}

	case vapiTranscript:
		syncEv := services.CallEvent{
			CallID:     ev.Call.ID,
			Phone:      phone,
			EventType:  services.CallEventTranscript,
			Transcript: ev.Call.Transcript,
		}
		if strings.EqualFold(ev.Role, "user") {
			syncEv.UserMessage = ev.Transcript
		} else {
			syncEv.AssistantMessage = ev.Transcript
		}
		if _, err := h.calls.SyncCallEvent(ctx, syncEv); err != nil {
			response.RespondDomainError(c, err)
			return
		}
	}

	c.JSON(http.StatusOK, gin.H{"success": true, "processed": ev.Type})
}

func reportFromCall(call *vapiCall, phone string) services.CallReport {
	summary := ""
	if call.Analysis != nil {
		summary = call.Analysis.Summary
	}
	if strings.TrimSpace(summary) == "" {
		summary = call.Summary
	}
	name := ""
	if call.Customer != nil {
		name = call.Customer.Name
	}
	turns := make([]services.CallTurn, 0, len(call.Messages))
	for _, m := range call.Messages {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role == "" || role == "system" || strings.TrimSpace(m.Message) == "" {
			continue
		}
		if role == "bot" {
			role = "assistant"
		}
		turns = append(turns, services.CallTurn{Role: role, Content: m.Message})
	}
	return services.CallReport{
		CallID:          call.ID,
		Phone:           types.NormalizePhone(phone),
		Name:            name,
		Transcript:      call.Transcript,
		Summary:         summary,
		DurationSeconds: int(math.Round(call.Duration)),
		Turns:           turns,
	}
}
