package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/superconnector-backend/internal/data/repos/testutil"
	types "github.com/yungbote/superconnector-backend/internal/domain"
	"github.com/yungbote/superconnector-backend/internal/platform/memvec"
)

func TestWiringServesWithoutOptionalClients(t *testing.T) {
	gin.SetMode(gin.TestMode)
	log := testutil.Logger(t)
	db := testutil.DB(t)

	cfg := Config{
		DefaultChannel:          types.ChannelWhatsApp,
		TwilioValidateSignature: true,
		PublicBaseURL:           "https://hooks.example.com",
	}
	clients := Clients{
		Vector:         instrumentVectorIndex(string(VectorProviderMemory), memvec.New(log)),
		VectorProvider: string(VectorProviderMemory),
	}
	r := wireRepos(db, log)
	s := wireServices(db, log, cfg, r, clients)
	srv := wireServer(db, log, cfg, clients, s)

	cases := []struct {
		method string
		path   string
		want   int
	}{
		{http.MethodGet, "/healthz", http.StatusOK},
		// no ADMIN_JWT_SECRET configured
		{http.MethodGet, "/admin/intros", http.StatusServiceUnavailable},
		// no verify token configured
		{http.MethodGet, "/webhook/whatsapp?hub.mode=subscribe&hub.challenge=abc", http.StatusForbidden},
	}
	for _, tc := range cases {
		rec := httptest.NewRecorder()
		srv.Engine.ServeHTTP(rec, httptest.NewRequest(tc.method, tc.path, nil))
		if rec.Code != tc.want {
			t.Fatalf("%s %s: want=%d got=%d body=%s", tc.method, tc.path, tc.want, rec.Code, rec.Body.String())
		}
	}

	n, err := s.Matches.Reindex(context.Background())
	if err != nil {
		t.Fatalf("Reindex: %v", err)
	}
	if n != 0 {
		t.Fatalf("Reindex: want 0 profiles got %d", n)
	}
}
