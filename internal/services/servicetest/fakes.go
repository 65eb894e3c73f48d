// Package servicetest holds in-memory collaborators for service tests.
package servicetest

import (
	"context"
	"errors"
	"hash/fnv"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode"

	"github.com/google/uuid"

	"github.com/yungbote/superconnector-backend/internal/clients/redis"
	"github.com/yungbote/superconnector-backend/internal/clients/vapi"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/openai"
)

var ErrUnavailable = errors.New("servicetest: unavailable")

const embedDims = 64

// Embedder hashes lower-cased words into a fixed-size bag-of-words vector,
// so texts sharing words land close together.
type Embedder struct {
	mu    sync.Mutex
	Err   error
	Calls int
}

func (e *Embedder) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.Calls++
	if e.Err != nil {
		return nil, e.Err
	}
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		out[i] = BagOfWords(in)
	}
	return out, nil
}

func BagOfWords(text string) []float32 {
	v := make([]float32, embedDims)
	words := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	})
	for _, w := range words {
		h := fnv.New32a()
		_, _ = h.Write([]byte(w))
		v[h.Sum32()%embedDims]++
	}
	if len(words) == 0 {
		v[0] = 1
	}
	return v
}

// Completer returns Reply, or Err when set.
type Completer struct {
	mu       sync.Mutex
	Reply    string
	Err      error
	Requests []openai.CompletionRequest
}

func (c *Completer) Complete(ctx context.Context, req openai.CompletionRequest) (string, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Requests = append(c.Requests, req)
	if c.Err != nil {
		return "", c.Err
	}
	return c.Reply, nil
}

func (c *Completer) Count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.Requests)
}

type Sent struct {
	ProfileID uuid.UUID
	Channel   types.Channel
	Text      string
}

// Dispatcher records deliveries. Recipients in FailFor, or any recipient
// when FailAll is set, get ErrUnavailable.
type Dispatcher struct {
	mu      sync.Mutex
	Sent    []Sent
	FailAll bool
	FailFor map[uuid.UUID]bool
}

func (d *Dispatcher) Send(ctx context.Context, recipient *types.Profile, channel types.Channel, text string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.FailAll || d.FailFor[recipient.ID] {
		return ErrUnavailable
	}
	d.Sent = append(d.Sent, Sent{ProfileID: recipient.ID, Channel: channel, Text: text})
	return nil
}

func (d *Dispatcher) SentTo(profileID uuid.UUID) []Sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []Sent
	for _, s := range d.Sent {
		if s.ProfileID == profileID {
			out = append(out, s)
		}
	}
	return out
}

func (d *Dispatcher) Count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.Sent)
}

// Queue is an in-memory deferred queue keyed by intro id.
type Queue struct {
	mu    sync.Mutex
	Items map[string]redis.DeferredItem
}

var _ redis.DeferredQueue = (*Queue)(nil)

func NewQueue() *Queue { return &Queue{Items: map[string]redis.DeferredItem{}} }

func (q *Queue) Schedule(ctx context.Context, item redis.DeferredItem) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.Items[item.IntroID] = item
	return nil
}

func (q *Queue) Claim(ctx context.Context, now time.Time, limit int) ([]redis.DeferredItem, error) {
	q.mu.Lock()
	defer q.mu.Unlock()
	var due []redis.DeferredItem
	for _, it := range q.Items {
		if !it.DueAt.After(now) {
			due = append(due, it)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].DueAt.Before(due[j].DueAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}
	for _, it := range due {
		delete(q.Items, it.IntroID)
	}
	return due, nil
}

func (q *Queue) Cancel(ctx context.Context, introID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	delete(q.Items, introID)
	return nil
}

func (q *Queue) Close() error { return nil }

func (q *Queue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.Items)
}

// Voice fakes the outbound call provider.
type Voice struct {
	mu       sync.Mutex
	Err      error
	Requests []vapi.StartCallRequest
}

func (v *Voice) StartCall(ctx context.Context, req vapi.StartCallRequest) (*vapi.Call, error) {
	v.mu.Lock()
	defer v.mu.Unlock()
	v.Requests = append(v.Requests, req)
	if v.Err != nil {
		return nil, v.Err
	}
	return &vapi.Call{ID: "call_" + uuid.NewString()[:8], Status: "queued"}, nil
}
