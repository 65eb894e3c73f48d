package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/yungbote/superconnector-backend/internal/clients/redis"
	"github.com/yungbote/superconnector-backend/internal/data/graph"
	"github.com/yungbote/superconnector-backend/internal/data/repos"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/observability"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
)

type IntroService interface {
	// Create is idempotent per ordered pair: a repeat returns the stored
	// intro untouched.
	Create(ctx context.Context, fromProfileID, toProfileID uuid.UUID, reason string) (*types.Intro, error)
	// Propose creates the intro and asks the candidate for consent.
	Propose(ctx context.Context, fromProfileID, toProfileID uuid.UUID, reason string) (*ConsentResult, error)
	RequestConsent(ctx context.Context, introID uuid.UUID) (*ConsentResult, error)
	ParseReply(ctx context.Context, identityID uuid.UUID, text string, channel types.Channel) (*ReplyResult, error)
	// Send delivers both introductions. Only a consented intro can be sent.
	Send(ctx context.Context, introID uuid.UUID) (*types.Intro, error)
	GetByID(ctx context.Context, id uuid.UUID) (*types.Intro, error)
	GetPendingFor(ctx context.Context, profileID uuid.UUID) ([]*types.Intro, error)
	GetByStatus(ctx context.Context, status types.IntroStatus, limit int) ([]*types.Intro, error)
	GetStats(ctx context.Context) (*types.IntroStats, error)
	// ProcessDeferred sends consent requests whose quiet-hours hold expired.
	ProcessDeferred(ctx context.Context, now time.Time) (int, error)
}

type ConsentResult struct {
	IntroID   uuid.UUID     `json:"intro_id"`
	Channel   types.Channel `json:"channel"`
	Deferred  bool          `json:"deferred"`
	DeliverAt *time.Time    `json:"deliver_at,omitempty"`
}

type ReplyResult struct {
	Parsed    bool       `json:"parsed"`
	Consented bool       `json:"consented"`
	IntroID   *uuid.UUID `json:"intro_id,omitempty"`
	IntroSent bool       `json:"intro_sent"`
	Message   string     `json:"message"`
}

type IntroServiceDeps struct {
	IntroRepo      repos.IntroRepo
	ProfileRepo    repos.ProfileRepo
	Conversations  ConversationService
	Dispatcher     Dispatcher
	Queue          redis.DeferredQueue
	Graph          graph.IntroGraph
	DefaultChannel types.Channel
	Now            func() time.Time
}

type introService struct {
	log            *logger.Logger
	introRepo      repos.IntroRepo
	profileRepo    repos.ProfileRepo
	conversations  ConversationService
	dispatcher     Dispatcher
	queue          redis.DeferredQueue
	graph          graph.IntroGraph
	defaultChannel types.Channel
	now            func() time.Time
}

func NewIntroService(log *logger.Logger, deps IntroServiceDeps) IntroService {
	s := &introService{
		log:            log.With("service", "IntroService"),
		introRepo:      deps.IntroRepo,
		profileRepo:    deps.ProfileRepo,
		conversations:  deps.Conversations,
		dispatcher:     deps.Dispatcher,
		queue:          deps.Queue,
		graph:          deps.Graph,
		defaultChannel: deps.DefaultChannel,
		now:            deps.Now,
	}
	if !s.defaultChannel.Valid() {
		s.defaultChannel = types.ChannelWhatsApp
	}
	if s.now == nil {
		s.now = func() time.Time { return time.Now().UTC() }
	}
	return s
}

func (s *introService) Create(ctx context.Context, fromProfileID, toProfileID uuid.UUID, reason string) (*types.Intro, error) {
	if fromProfileID == uuid.Nil || toProfileID == uuid.Nil {
		return nil, errs.Validation("both profile ids are required")
	}
	if fromProfileID == toProfileID {
		return nil, errs.Validation("cannot introduce a profile to itself")
	}
	dbc := dbctx.Background(ctx)
	if _, _, err := s.loadPair(dbc, fromProfileID, toProfileID); err != nil {
		return nil, err
	}
	stored, created, err := s.introRepo.Create(dbc, &types.Intro{
		FromProfileID: fromProfileID,
		ToProfileID:   toProfileID,
		Status:        types.IntroPendingConsent,
		Reason:        strings.TrimSpace(reason),
	})
	if err != nil {
		return nil, fmt.Errorf("create intro: %w", err)
	}
	if created {
		s.log.Info("Intro created", "intro_id", stored.ID, "from_profile_id", fromProfileID, "to_profile_id", toProfileID)
	}
	return stored, nil
}

func (s *introService) Propose(ctx context.Context, fromProfileID, toProfileID uuid.UUID, reason string) (*ConsentResult, error) {
	in, err := s.Create(ctx, fromProfileID, toProfileID, reason)
	if err != nil {
		return nil, err
	}
	return s.RequestConsent(ctx, in.ID)
}

func (s *introService) RequestConsent(ctx context.Context, introID uuid.UUID) (*ConsentResult, error) {
	dbc := dbctx.Background(ctx)
	in, err := s.GetByID(ctx, introID)
	if err != nil {
		return nil, err
	}
	from, to, err := s.loadPair(dbc, in.FromProfileID, in.ToProfileID)
	if err != nil {
		return nil, err
	}
	if in.Status != types.IntroPendingConsent {
		return nil, errs.InvalidState("intro %s is %s, consent can only be requested while %s", in.ID, in.Status, types.IntroPendingConsent)
	}

	channel := deliveryChannel(to, s.defaultChannel)
	now := s.now()
	if qh := to.QuietHours(); IsInQuietHours(qh, now) {
		if s.queue != nil {
			deliverAt := QuietHoursEnd(qh, now)
			if err := s.queue.Schedule(ctx, redis.DeferredItem{IntroID: in.ID.String(), Channel: string(channel), DueAt: deliverAt}); err != nil {
				return nil, fmt.Errorf("schedule deferred consent: %w", err)
			}
			s.log.Info("Recipient in quiet hours, consent request deferred", "intro_id", in.ID, "deliver_at", deliverAt)
			return &ConsentResult{IntroID: in.ID, Channel: channel, Deferred: true, DeliverAt: &deliverAt}, nil
		}
		s.log.Warn("Recipient in quiet hours but no scheduler configured, sending now", "intro_id", in.ID)
	}

	text := ConsentRequestMessage(from, to, in.Reason)
	if err := s.dispatch(ctx, to, channel, text); err != nil {
		return nil, err
	}
	ok, err := s.transition(dbc, in.ID, types.IntroPendingConsent, types.IntroConsentSent, s.now())
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.InvalidState("intro %s changed while requesting consent", in.ID)
	}
	s.record(ctx, to, channel, text, in.ID, "consent_request")
	return &ConsentResult{IntroID: in.ID, Channel: channel}, nil
}

func (s *introService) ParseReply(ctx context.Context, identityID uuid.UUID, text string, channel types.Channel) (*ReplyResult, error) {
	dbc := dbctx.Background(ctx)
	prof, err := s.profileRepo.GetByIdentity(dbc, identityID)
	if err != nil {
		return nil, err
	}
	if prof == nil {
		return &ReplyResult{Message: replyNoProfile}, nil
	}
	pending, err := s.introRepo.ListPendingFor(dbc, prof.ID)
	if err != nil {
		return nil, err
	}
	if len(pending) == 0 {
		return &ReplyResult{Message: replyNoPending}, nil
	}

	intent := ClassifyReply(text)
	if intent == ReplyUnknown {
		return &ReplyResult{Message: replyClarify}, nil
	}

	in := pending[0]
	target := types.IntroDeclined
	if intent == ReplyConsent {
		target = types.IntroConsented
	}
	now := s.now()
	from := in.Status
	if from == types.IntroPendingConsent {
		// The reply arrived before the request went out (for example while
		// deferred), so the request counts as delivered.
		ok, err := s.transition(dbc, in.ID, types.IntroPendingConsent, types.IntroConsentSent, now)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, errs.InvalidState("intro %s changed while parsing reply", in.ID)
		}
		if s.queue != nil {
			if err := s.queue.Cancel(ctx, in.ID.String()); err != nil {
				s.log.Warn("Cancel deferred consent failed", "intro_id", in.ID, "error", err)
			}
		}
		from = types.IntroConsentSent
	}
	ok, err := s.transition(dbc, in.ID, from, target, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.InvalidState("intro %s changed while parsing reply", in.ID)
	}
	s.log.Info("Consent reply parsed", "intro_id", in.ID, "status", target, "channel", channel)

	id := in.ID
	if target == types.IntroDeclined {
		return &ReplyResult{Parsed: true, IntroID: &id, Message: replyDeclined}, nil
	}
	res := &ReplyResult{Parsed: true, Consented: true, IntroID: &id, Message: replyConsented}
	if _, err := s.Send(ctx, in.ID); err != nil {
		s.log.Error("Intro send after consent failed", "intro_id", in.ID, "error", err)
		res.Message = replySendFailed
		return res, nil
	}
	res.IntroSent = true
	return res, nil
}

func (s *introService) Send(ctx context.Context, introID uuid.UUID) (*types.Intro, error) {
	dbc := dbctx.Background(ctx)
	in, err := s.GetByID(ctx, introID)
	if err != nil {
		return nil, err
	}
	if in.Status != types.IntroConsented {
		return nil, errs.InvalidState("intro %s is %s, only %s intros can be sent", in.ID, in.Status, types.IntroConsented)
	}
	from, to, err := s.loadPair(dbc, in.FromProfileID, in.ToProfileID)
	if err != nil {
		return nil, err
	}

	toRequester := IntroMessage(from, to, in.Reason, true)
	toCandidate := IntroMessage(to, from, in.Reason, false)
	fromChannel := deliveryChannel(from, s.defaultChannel)
	toChannel := deliveryChannel(to, s.defaultChannel)
	if err := s.dispatch(ctx, from, fromChannel, toRequester); err != nil {
		return nil, err
	}
	if err := s.dispatch(ctx, to, toChannel, toCandidate); err != nil {
		return nil, err
	}

	now := s.now()
	ok, err := s.transition(dbc, in.ID, types.IntroConsented, types.IntroCompleted, now)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, errs.InvalidState("intro %s changed while sending", in.ID)
	}
	in.Status = types.IntroCompleted
	in.CompletedAt = &now
	in.UpdatedAt = now

	s.record(ctx, from, fromChannel, toRequester, in.ID, "intro")
	s.record(ctx, to, toChannel, toCandidate, in.ID, "intro")
	if s.graph != nil {
		if err := s.graph.UpsertIntro(ctx, in, from, to); err != nil {
			s.log.Warn("Intro graph projection failed", "intro_id", in.ID, "error", err)
		}
	}
	s.log.Info("Intro completed", "intro_id", in.ID)
	return in, nil
}

func (s *introService) GetByID(ctx context.Context, id uuid.UUID) (*types.Intro, error) {
	in, err := s.introRepo.GetByID(dbctx.Background(ctx), id)
	if err != nil {
		return nil, err
	}
	if in == nil {
		return nil, errs.NotFound("intro", id)
	}
	return in, nil
}

func (s *introService) GetPendingFor(ctx context.Context, profileID uuid.UUID) ([]*types.Intro, error) {
	return s.introRepo.ListPendingFor(dbctx.Background(ctx), profileID)
}

func (s *introService) GetByStatus(ctx context.Context, status types.IntroStatus, limit int) ([]*types.Intro, error) {
	if status != "" && !status.Valid() {
		return nil, errs.Validation("unknown intro status %q", status)
	}
	return s.introRepo.ListByStatus(dbctx.Background(ctx), status, limit)
}

func (s *introService) GetStats(ctx context.Context) (*types.IntroStats, error) {
	counts := make([]int64, len(types.AllIntroStatuses))
	g, gctx := errgroup.WithContext(ctx)
	for i, st := range types.AllIntroStatuses {
		i, st := i, st
		g.Go(func() error {
			n, err := s.introRepo.CountByStatus(dbctx.Background(gctx), st)
			if err != nil {
				return fmt.Errorf("count %s: %w", st, err)
			}
			counts[i] = n
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	by := make(map[types.IntroStatus]int64, len(counts))
	for i, st := range types.AllIntroStatuses {
		by[st] = counts[i]
	}
	return ComputeIntroStats(by), nil
}

// ComputeIntroStats derives the totals and rounded percentage rates.
func ComputeIntroStats(by map[types.IntroStatus]int64) *types.IntroStats {
	out := &types.IntroStats{ByStatus: map[types.IntroStatus]int64{}}
	for _, st := range types.AllIntroStatuses {
		out.ByStatus[st] = by[st]
		out.Total += by[st]
	}
	consented := by[types.IntroConsented] + by[types.IntroCompleted]
	if denom := consented + by[types.IntroDeclined]; denom > 0 {
		out.ConsentRate = percent(consented, denom)
	}
	if out.Total > 0 {
		out.CompletionRate = percent(by[types.IntroCompleted], out.Total)
	}
	return out
}

func percent(n, d int64) int {
	return int(math.Round(float64(n) / float64(d) * 100))
}

func (s *introService) ProcessDeferred(ctx context.Context, now time.Time) (int, error) {
	if s.queue == nil {
		return 0, nil
	}
	items, err := s.queue.Claim(ctx, now, 50)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, it := range items {
		id, err := uuid.Parse(it.IntroID)
		if err != nil {
			s.log.Warn("Dropping deferred item with bad intro id", "intro_id", it.IntroID)
			continue
		}
		res, err := s.RequestConsent(ctx, id)
		if err != nil {
			if retryableDeferred(err) {
				it.Attempts++
				it.DueAt = now.Add(deferredRetryBackoff(it.Attempts))
				if serr := s.queue.Schedule(ctx, it); serr != nil {
					s.log.Error("Requeue deferred consent failed", "intro_id", id, "error", serr)
				} else {
					s.log.Warn("Deferred consent request failed, retrying", "intro_id", id, "attempt", it.Attempts, "due_at", it.DueAt, "error", err)
				}
				continue
			}
			s.log.Warn("Deferred consent request failed", "intro_id", id, "error", err)
			continue
		}
		if !res.Deferred {
			sent++
		}
	}
	if metrics := observability.Current(); metrics != nil {
		metrics.AddDeferredProcessed(sent)
	}
	return sent, nil
}

const (
	deferredRetryBase = time.Minute
	deferredRetryMax  = time.Hour
)

// retryableDeferred reports whether a failed deferred send should stay
// queued. Intros that moved on or vanished are dropped.
func retryableDeferred(err error) bool {
	return errors.Is(err, errs.ErrDispatchFailure) ||
		errors.Is(err, context.DeadlineExceeded)
}

func deferredRetryBackoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	d := deferredRetryBase
	for i := 1; i < attempt && d < deferredRetryMax; i++ {
		d *= 2
	}
	if d > deferredRetryMax {
		d = deferredRetryMax
	}
	return d
}

func (s *introService) transition(dbc dbctx.Context, id uuid.UUID, from, to types.IntroStatus, at time.Time) (bool, error) {
	ok, err := s.introRepo.Transition(dbc, id, from, to, at)
	if err == nil && ok {
		if metrics := observability.Current(); metrics != nil {
			metrics.IncIntroTransition(string(to))
		}
	}
	return ok, err
}

func (s *introService) loadPair(dbc dbctx.Context, fromID, toID uuid.UUID) (*types.Profile, *types.Profile, error) {
	from, err := s.profileRepo.GetByID(dbc, fromID)
	if err != nil {
		return nil, nil, err
	}
	if from == nil {
		return nil, nil, errs.NotFound("profile", fromID)
	}
	to, err := s.profileRepo.GetByID(dbc, toID)
	if err != nil {
		return nil, nil, err
	}
	if to == nil {
		return nil, nil, errs.NotFound("profile", toID)
	}
	return from, to, nil
}

func (s *introService) dispatch(ctx context.Context, p *types.Profile, channel types.Channel, text string) error {
	if s.dispatcher == nil {
		return errs.DispatchFailure(string(channel), fmt.Errorf("no dispatcher configured"))
	}
	if err := s.dispatcher.Send(ctx, p, channel, text); err != nil {
		if errors.Is(err, errs.ErrDispatchFailure) {
			return err
		}
		return errs.DispatchFailure(string(channel), err)
	}
	return nil
}

// record appends a delivered text to the recipient's conversation. It is
// best effort; delivery already happened.
func (s *introService) record(ctx context.Context, p *types.Profile, channel types.Channel, text string, introID uuid.UUID, kind string) {
	if s.conversations == nil {
		return
	}
	meta := &types.MessageMetadata{Role: "assistant", Source: "intro", Type: kind, IntroID: introID.String()}
	if _, err := s.conversations.Append(ctx, p.IdentityID, channel, types.DirectionOutbound, text, meta); err != nil {
		s.log.Warn("Recording outbound intro message failed", "intro_id", introID, "error", err)
	}
}
