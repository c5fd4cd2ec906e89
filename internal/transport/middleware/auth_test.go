package middleware_test

import (
	"context"
	"net/http"
	"net/http/httptest"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	"github.com/transit241/port-logistics/internal/auth"
	"github.com/transit241/port-logistics/internal/transport"
	"github.com/transit241/port-logistics/internal/transport/middleware"
	"github.com/transit241/port-logistics/pkg/logger"
)

type stubPrincipals struct {
	users map[string]*internal.User
}

func (s stubPrincipals) ValidateAccessToken(token string) (*auth.Claims, error) {
	if _, ok := s.users[token]; !ok {
		return nil, internal.ErrInvalidToken
	}
	return &auth.Claims{UserID: token}, nil
}

func (s stubPrincipals) LoadPrincipal(_ context.Context, userID string) (*internal.User, error) {
	return s.users[userID], nil
}

var _ = Describe("Auth and Permissions", func() {
	var (
		handler http.Handler
		seen    *internal.User
	)

	BeforeEach(func() {
		seen = nil
		base := transport.NewBaseHandler(logger.Discard())
		principals := stubPrincipals{users: map[string]*internal.User{
			"agent":  {ID: "agent", Permissions: []string{account.PermUpdateStatus}},
			"client": {ID: "client", Permissions: []string{account.PermTrackShipments}},
			"admin":  {ID: "admin", IsStaff: true},
		}}
		authn := middleware.NewAuth(base, principals)
		perms := middleware.NewPermissions(base, auth.NewAuthorizer())

		final := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			seen, _ = internal.UserFromContext(r.Context())
			w.WriteHeader(http.StatusOK)
		})
		handler = authn.Authenticate(perms.Require(account.PermUpdateStatus)(final))
	})

	call := func(token string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPost, "/shipments/x/status", nil)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		w := httptest.NewRecorder()
		handler.ServeHTTP(w, req)
		return w
	}

	It("rejects a request without a token", func() {
		Expect(call("").Code).To(Equal(http.StatusUnauthorized))
		Expect(seen).To(BeNil())
	})

	It("rejects an invalid token", func() {
		Expect(call("forged").Code).To(Equal(http.StatusUnauthorized))
	})

	It("forbids a principal lacking the permission", func() {
		Expect(call("client").Code).To(Equal(http.StatusForbidden))
	})

	It("passes a principal holding the permission and exposes it downstream", func() {
		Expect(call("agent").Code).To(Equal(http.StatusOK))
		Expect(seen.ID).To(Equal("agent"))
	})

	It("passes staff through the bypass", func() {
		Expect(call("admin").Code).To(Equal(http.StatusOK))
	})
})

var _ = Describe("Origin", func() {
	It("prefers the first forwarded address", func() {
		var origin internal.Origin
		h := middleware.Origin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin = internal.OriginFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Forwarded-For", "41.158.0.7, 10.0.0.1")
		req.Header.Set("User-Agent", "curl/8.0")
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(origin.IP).To(Equal("41.158.0.7"))
		Expect(origin.UserAgent).To(Equal("curl/8.0"))
	})

	It("falls back to the remote address", func() {
		var origin internal.Origin
		h := middleware.Origin(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			origin = internal.OriginFromContext(r.Context())
		}))

		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.RemoteAddr = "192.0.2.10:5555"
		h.ServeHTTP(httptest.NewRecorder(), req)

		Expect(origin.IP).To(Equal("192.0.2.10"))
	})
})

var _ = Describe("RecoveryMiddleware", func() {
	It("turns a panic into a 500 JSON error", func() {
		h := middleware.RecoveryMiddleware(logger.Discard())(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
			panic("boom")
		}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))

		Expect(w.Code).To(Equal(http.StatusInternalServerError))
		Expect(w.Body.String()).To(ContainSubstring(`"INTERNAL_ERROR"`))
		Expect(w.Body.String()).NotTo(ContainSubstring("boom"))
	})
})

var _ = Describe("RequestID", func() {
	It("echoes a caller supplied trace id", func() {
		h := middleware.RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("X-Trace-ID", "trace-123")
		w := httptest.NewRecorder()
		h.ServeHTTP(w, req)
		Expect(w.Header().Get("X-Trace-ID")).To(Equal("trace-123"))
	})

	It("mints one when absent", func() {
		h := middleware.RequestID(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
		Expect(w.Header().Get("X-Trace-ID")).To(HaveLen(36))
	})
})
