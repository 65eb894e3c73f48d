package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/superconnector-backend/internal/data/repos"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/domain/errs"
	"github.com/yungbote/superconnector-backend/internal/platform/dbctx"
	"github.com/yungbote/superconnector-backend/internal/platform/logger"
	"github.com/yungbote/superconnector-backend/internal/platform/vectorindex"
)

const DefaultMatchReason = "Strong profile alignment based on skills and interests"

type Match struct {
	Profile *types.Profile `json:"profile"`
	// Score is the index's native similarity, never rescaled.
	Score  float64 `json:"score"`
	Reason string  `json:"reason"`
}

type SearchResult struct {
	Profile *types.Profile `json:"profile"`
	Score   float64        `json:"score"`
}

type MatchService interface {
	// TopK ranks up to k candidates for profileID, never including profileID
	// itself. The source embedding is computed and stored when missing.
	TopK(ctx context.Context, profileID uuid.UUID, k int, filterTags []string) ([]Match, error)
	// SearchByQuery embeds free text and searches without writing anything back.
	SearchByQuery(ctx context.Context, query string, limit int) ([]SearchResult, error)
	RefreshEmbedding(ctx context.Context, p *types.Profile) error
	// Reindex pushes every stored embedding into the vector index.
	Reindex(ctx context.Context) (int, error)
	Forget(ctx context.Context, profileID uuid.UUID) error
}

type matchService struct {
	log         *logger.Logger
	profileRepo repos.ProfileRepo
	embedder    Embedder
	index       vectorindex.Index
	timeout     time.Duration
}

func NewMatchService(log *logger.Logger, profileRepo repos.ProfileRepo, embedder Embedder, index vectorindex.Index, timeout time.Duration) MatchService {
	return &matchService{
		log:         log.With("service", "MatchService"),
		profileRepo: profileRepo,
		embedder:    embedder,
		index:       index,
		timeout:     callTimeout(timeout),
	}
}

func (s *matchService) TopK(ctx context.Context, profileID uuid.UUID, k int, filterTags []string) ([]Match, error) {
	if k <= 0 {
		k = 5
	}
	dbc := dbctx.Background(ctx)
	src, err := s.profileRepo.GetByID(dbc, profileID)
	if err != nil {
		return nil, err
	}
	if src == nil {
		return nil, errs.NotFound("profile", profileID)
	}
	if !src.HasEmbedding() {
		if err := s.RefreshEmbedding(ctx, src); err != nil {
			return nil, err
		}
	}

	filter := vectorindex.Filter{AnyTags: normalizeTags(filterTags)}
	limit := k + 1
	if !filter.Empty() {
		limit = (k + 1) * 4
	}
	hits, err := s.query(ctx, src.Embedding, limit, filter)
	if err != nil {
		return nil, err
	}

	candidates, err := s.hydrate(dbc, hits, src.ID)
	if err != nil {
		return nil, err
	}
	out := make([]Match, 0, k)
	for _, c := range candidates {
		if !filter.Empty() && !sharesTag(c.Profile.Tags, filter.AnyTags) {
			continue
		}
		out = append(out, Match{Profile: c.Profile, Score: c.Score, Reason: MatchReason(src, c.Profile)})
		if len(out) == k {
			break
		}
	}
	return out, nil
}

func (s *matchService) SearchByQuery(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, errs.Validation("query is required")
	}
	if limit <= 0 {
		limit = 10
	}
	vec, err := s.embed(ctx, query)
	if err != nil {
		return nil, err
	}
	hits, err := s.query(ctx, vec, limit, vectorindex.Filter{})
	if err != nil {
		return nil, err
	}
	return s.hydrate(dbctx.Background(ctx), hits, uuid.Nil)
}

func (s *matchService) RefreshEmbedding(ctx context.Context, p *types.Profile) error {
	if p == nil {
		return errs.Validation("profile is required")
	}
	vec, err := s.embed(ctx, ProfileEmbeddingText(p))
	if err != nil {
		return err
	}
	if err := s.profileRepo.SetEmbedding(dbctx.Background(ctx), p.ID, vec); err != nil {
		return fmt.Errorf("store embedding: %w", err)
	}
	p.Embedding = vec
	if s.index != nil {
		item := vectorindex.Item{ID: p.ID.String(), Values: vec, Tags: normalizeTags(p.Tags)}
		if err := s.index.Upsert(ctx, []vectorindex.Item{item}); err != nil {
			s.log.Warn("Vector index upsert failed", "profile_id", p.ID, "error", err)
		}
	}
	return nil
}

func (s *matchService) Reindex(ctx context.Context) (int, error) {
	if s.index == nil {
		return 0, fmt.Errorf("vector index not configured")
	}
	dbc := dbctx.Background(ctx)
	after := uuid.Nil
	total := 0
	for {
		page, err := s.profileRepo.ListPage(dbc, after, 200)
		if err != nil {
			return total, err
		}
		if len(page) == 0 {
			break
		}
		items := make([]vectorindex.Item, 0, len(page))
		for _, p := range page {
			if p.HasEmbedding() {
				items = append(items, vectorindex.Item{ID: p.ID.String(), Values: p.Embedding, Tags: normalizeTags(p.Tags)})
			}
		}
		if len(items) > 0 {
			if err := s.index.Upsert(ctx, items); err != nil {
				return total, fmt.Errorf("reindex upsert: %w", err)
			}
			total += len(items)
		}
		after = page[len(page)-1].ID
	}
	s.log.Info("Vector index rebuilt", "vectors", total)
	return total, nil
}

func (s *matchService) Forget(ctx context.Context, profileID uuid.UUID) error {
	if s.index == nil || profileID == uuid.Nil {
		return nil
	}
	return s.index.Delete(ctx, []string{profileID.String()})
}

func (s *matchService) embed(ctx context.Context, text string) ([]float32, error) {
	if s.embedder == nil {
		return nil, errs.EmbeddingUnavailable(fmt.Errorf("no embedding provider configured"))
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	vecs, err := s.embedder.Embed(cctx, []string{text})
	if err != nil {
		return nil, errs.EmbeddingUnavailable(err)
	}
	if len(vecs) == 0 || len(vecs[0]) == 0 {
		return nil, errs.EmbeddingUnavailable(fmt.Errorf("empty embedding"))
	}
	return vecs[0], nil
}

func (s *matchService) query(ctx context.Context, vec []float32, limit int, filter vectorindex.Filter) ([]vectorindex.Match, error) {
	if s.index == nil {
		return nil, fmt.Errorf("vector index not configured")
	}
	cctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	hits, err := s.index.Query(cctx, vec, limit, filter)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}
	return hits, nil
}

// hydrate loads profiles for hits in rank order, dropping exclude and any
// id the index still holds after the profile was removed.
func (s *matchService) hydrate(dbc dbctx.Context, hits []vectorindex.Match, exclude uuid.UUID) ([]SearchResult, error) {
	ids := make([]uuid.UUID, 0, len(hits))
	for _, h := range hits {
		id, err := uuid.Parse(h.ID)
		if err != nil || id == exclude {
			continue
		}
		ids = append(ids, id)
	}
	if len(ids) == 0 {
		return nil, nil
	}
	rows, err := s.profileRepo.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Profile, len(rows))
	for _, r := range rows {
		byID[r.ID] = r
	}
	out := make([]SearchResult, 0, len(ids))
	for _, h := range hits {
		id, err := uuid.Parse(h.ID)
		if err != nil || id == exclude {
			continue
		}
		p := byID[id]
		if p == nil {
			s.log.Debug("Vector hit without profile", "profile_id", id)
			continue
		}
		out = append(out, SearchResult{Profile: p, Score: h.Score})
	}
	return out, nil
}

// ProfileEmbeddingText is the text a profile is embedded from.
func ProfileEmbeddingText(p *types.Profile) string {
	parts := []string{p.Name, p.Role, p.Company, p.Headline}
	for _, a := range p.Asks {
		parts = append(parts, "needs: "+a)
	}
	for _, o := range p.Offers {
		parts = append(parts, "offers: "+o)
	}
	parts = append(parts, p.Tags...)

	out := parts[:0]
	for _, s := range parts {
		if strings.TrimSpace(s) != "" {
			out = append(out, s)
		}
	}
	return strings.Join(out, " | ")
}

// MatchReason explains a match from overlapping asks, offers and tags.
func MatchReason(src, cand *types.Profile) string {
	var reasons []string
	if hits := fuzzyOverlap(cand.Offers, src.Asks); len(hits) > 0 {
		reasons = append(reasons, "They offer: "+strings.Join(hits, ", "))
	}
	if hits := fuzzyOverlap(cand.Asks, src.Offers); len(hits) > 0 {
		reasons = append(reasons, "They need: "+strings.Join(hits, ", "))
	}
	var common []string
	for _, t := range src.Tags {
		if containsFold(cand.Tags, t) {
			common = append(common, t)
		}
	}
	if len(common) > 0 {
		reasons = append(reasons, "Common interests: "+strings.Join(common, ", "))
	}
	if len(reasons) == 0 {
		return DefaultMatchReason
	}
	return strings.Join(reasons, ". ")
}

// fuzzyOverlap keeps items that contain, or are contained in, any probe,
// case-insensitively.
func fuzzyOverlap(items, probes []string) []string {
	var out []string
	for _, it := range items {
		li := strings.ToLower(strings.TrimSpace(it))
		if li == "" {
			continue
		}
		for _, p := range probes {
			lp := strings.ToLower(strings.TrimSpace(p))
			if lp == "" {
				continue
			}
			if strings.Contains(li, lp) || strings.Contains(lp, li) {
				out = append(out, it)
				break
			}
		}
	}
	return out
}

func containsFold(list []string, v string) bool {
	for _, s := range list {
		if strings.EqualFold(strings.TrimSpace(s), strings.TrimSpace(v)) {
			return true
		}
	}
	return false
}

func sharesTag(tags, want []string) bool {
	for _, w := range want {
		if containsFold(tags, w) {
			return true
		}
	}
	return false
}

func normalizeTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}
