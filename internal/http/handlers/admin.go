package handlers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/http/response"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/services"
)

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

type AdminHandlerDeps struct {
	Log           *logger.Logger
	Identities    services.IdentityService
	Profiles      services.ProfileService
	Conversations services.ConversationService
	Memory        services.MemoryService
	Matches       services.MatchService
	Intros        services.IntroService
	Calls         services.CallSyncService
	Erasure       services.ErasureService
}

type AdminHandler struct {
	log           *logger.Logger
	identities    services.IdentityService
	profiles      services.ProfileService
	conversations services.ConversationService
	memory        services.MemoryService
	matches       services.MatchService
	intros        services.IntroService
	calls         services.CallSyncService
	erasure       services.ErasureService
}

func NewAdminHandler(deps AdminHandlerDeps) *AdminHandler {
	return &AdminHandler{
		log:           deps.Log.With("handler", "AdminHandler"),
		identities:    deps.Identities,
		profiles:      deps.Profiles,
		conversations: deps.Conversations,
		memory:        deps.Memory,
		matches:       deps.Matches,
		intros:        deps.Intros,
		calls:         deps.Calls,
		erasure:       deps.Erasure,
	}
}

func paramUUID(c *gin.Context, name string) (uuid.UUID, bool) {
	id, err := uuid.Parse(strings.TrimSpace(c.Param(name)))
	if err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_id", errs.Validation("%s must be a uuid", name))
		return uuid.Nil, false
	}
	return id, true
}

func queryInt(c *gin.Context, key string, def, max int) int {
	raw := strings.TrimSpace(c.Query(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n <= 0 {
		return def
	}
	if max > 0 && n > max {
		return max
	}
	return n
}

func queryList(c *gin.Context, key string) []string {
	var out []string
	for _, v := range c.QueryArray(key) {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

// GET /admin/identities
func (h *AdminHandler) ListIdentities(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize, maxPageSize)
	offset := queryInt(c, "offset", 0, 0)
	out, err := h.identities.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"identities": out})
}

// GET /admin/profiles
func (h *AdminHandler) ListProfiles(c *gin.Context) {
	limit := queryInt(c, "limit", defaultPageSize, maxPageSize)
	offset := queryInt(c, "offset", 0, 0)
	out, err := h.profiles.List(c.Request.Context(), limit, offset)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"profiles": out})
}

// PUT /admin/profiles/:id (identity id)
func (h *AdminHandler) UpsertProfile(c *gin.Context) {
	identityID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var fields types.ProfileFields
	if err := c.ShouldBindJSON(&fields); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	p, err := h.profiles.Upsert(c.Request.Context(), identityID, fields)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"profile": p})
}

// GET /admin/profiles/:id/matches?k=5&tags=a,b
func (h *AdminHandler) Matches(c *gin.Context) {
	profileID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	k := queryInt(c, "k", 5, 50)
	out, err := h.matches.TopK(c.Request.Context(), profileID, k, queryList(c, "tags"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"matches": out})
}

type searchRequest struct {
	Query string `json:"query"`
	Limit int    `json:"limit"`
}

// POST /admin/search
func (h *AdminHandler) Search(c *gin.Context) {
	var req searchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	out, err := h.matches.SearchByQuery(c.Request.Context(), req.Query, req.Limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"results": out})
}

type pitchRequest struct {
	Audience string `json:"audience"`
	Context  string `json:"context"`
}

// POST /admin/profiles/:id/pitch
func (h *AdminHandler) Pitch(c *gin.Context) {
	profileID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	var req pitchRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
			return
		}
	}
	out, err := h.profiles.GeneratePitch(c.Request.Context(), profileID, req.Audience, req.Context)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// POST /admin/profiles/:id/call
func (h *AdminHandler) StartCall(c *gin.Context) {
	profileID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	p, err := h.profiles.GetByID(ctx, profileID)
	if err == nil && p == nil {
		err = errs.NotFound("profile", profileID)
	}
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	call, err := h.calls.StartOutboundCall(ctx, p, p.Phone)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"call": call})
}

type createIntroRequest struct {
	FromProfileID  uuid.UUID `json:"from_profile_id"`
	ToProfileID    uuid.UUID `json:"to_profile_id"`
	Reason         string    `json:"reason"`
	RequestConsent bool      `json:"request_consent"`
}

// POST /admin/intros
//
// With request_consent the candidate is asked right away.
func (h *AdminHandler) CreateIntro(c *gin.Context) {
	var req createIntroRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	ctx := c.Request.Context()
	if req.RequestConsent {
		res, err := h.intros.Propose(ctx, req.FromProfileID, req.ToProfileID, req.Reason)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		in, err := h.intros.GetByID(ctx, res.IntroID)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		response.RespondCreated(c, gin.H{"intro": in, "consent": res})
		return
	}
	in, err := h.intros.Create(ctx, req.FromProfileID, req.ToProfileID, req.Reason)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"intro": in})
}

// POST /admin/intros/:id/consent
func (h *AdminHandler) RequestConsent(c *gin.Context) {
	introID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	res, err := h.intros.RequestConsent(c.Request.Context(), introID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"consent": res})
}

// POST /admin/intros/:id/send
func (h *AdminHandler) SendIntro(c *gin.Context) {
	introID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	in, err := h.intros.Send(c.Request.Context(), introID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"intro": in})
}

// GET /admin/intros?status=consented or ?profile_id=<uuid> for pending ones.
func (h *AdminHandler) ListIntros(c *gin.Context) {
	ctx := c.Request.Context()
	if raw := strings.TrimSpace(c.Query("profile_id")); raw != "" {
		profileID, err := uuid.Parse(raw)
		if err != nil {
			response.RespondError(c, http.StatusBadRequest, "invalid_id", errs.Validation("profile_id must be a uuid"))
			return
		}
		out, err := h.intros.GetPendingFor(ctx, profileID)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"intros": out})
		return
	}
	status := types.IntroStatus(strings.TrimSpace(c.Query("status")))
	out, err := h.intros.GetByStatus(ctx, status, queryInt(c, "limit", defaultPageSize, maxPageSize))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"intros": out})
}

// GET /admin/intros/stats
func (h *AdminHandler) IntroStats(c *gin.Context) {
	out, err := h.intros.GetStats(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// GET /admin/identities/:id/conversation?limit=50&unified=true
func (h *AdminHandler) Conversation(c *gin.Context) {
	identityID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	ctx := c.Request.Context()
	limit := queryInt(c, "limit", defaultPageSize, maxPageSize)
	if unified, _ := strconv.ParseBool(c.Query("unified")); unified {
		out, err := h.conversations.GetUnified(ctx, identityID, limit)
		if err != nil {
			response.RespondDomainError(c, err)
			return
		}
		response.RespondOK(c, gin.H{"entries": out})
		return
	}
	out, err := h.conversations.GetHistory(ctx, identityID, limit)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"messages": out})
}

// GET /admin/identities/:id/summary
func (h *AdminHandler) Summary(c *gin.Context) {
	identityID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	out, err := h.memory.GetSummary(c.Request.Context(), identityID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	if out == nil {
		response.RespondDomainError(c, errs.NotFound("summary", identityID))
		return
	}
	response.RespondOK(c, gin.H{"summary": out})
}

// GET /admin/last-interaction?phone=+15551234567
func (h *AdminHandler) LastInteraction(c *gin.Context) {
	out, err := h.conversations.LastInteractionSummary(c.Request.Context(), c.Query("phone"))
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, out)
}

// DELETE /admin/identities/:id
func (h *AdminHandler) Erase(c *gin.Context) {
	identityID, ok := paramUUID(c, "id")
	if !ok {
		return
	}
	report, err := h.erasure.Erase(c.Request.Context(), identityID)
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	h.log.Info("Identity erased", "identity_id", identityID)
	response.RespondOK(c, gin.H{"erased": report})
}

// POST /admin/reindex
func (h *AdminHandler) Reindex(c *gin.Context) {
	n, err := h.matches.Reindex(c.Request.Context())
	if err != nil {
		response.RespondDomainError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"indexed": n})
}
