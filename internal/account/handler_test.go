package account_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	accountPostgres "github.com/transit241/port-logistics/internal/account/postgres"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/testutil"
	"github.com/transit241/port-logistics/internal/transport"
	"github.com/transit241/port-logistics/pkg/logger"
)

var _ = Describe("Account Handler", func() {
	var (
		db      *gorm.DB
		handler *account.Handler
		roleIDs map[string]int64
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		repo := accountPostgres.NewAccountRepository(db)
		roleIDs, err = repo.EnsureDefaults(context.Background())
		Expect(err).NotTo(HaveOccurred())

		service := account.NewService(repo, database.NewTransactor(db), events.Discard{}, logger.Discard())
		handler = account.NewHandler(transport.NewBaseHandler(logger.Discard()), service)

		agent := roleIDs[account.RolePortAgent]
		_, err = testutil.SeedAccountWithRole(db, "agent-1", "agentport@transit241.com", &agent)
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(testutil.Close(db)).To(Succeed())
	})

	It("returns the caller's profile with permissions on GET /users/me", func() {
		req := httptest.NewRequest(http.MethodGet, "/users/me", nil)
		req = req.WithContext(internal.ContextWithUser(req.Context(), &internal.User{
			ID:          "agent-1",
			Permissions: []string{account.PermUpdateStatus},
		}))
		w := httptest.NewRecorder()

		handler.Me(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var body map[string]interface{}
		Expect(json.NewDecoder(w.Body).Decode(&body)).To(Succeed())
		Expect(body["email"]).To(Equal("agentport@transit241.com"))
		Expect(body["role"]).To(Equal(account.RolePortAgent))
		Expect(body["permissions"]).To(ConsistOf(account.PermUpdateStatus))
		Expect(body).NotTo(HaveKey("password_hash"))
	})

	It("rejects GET /users/me without a principal", func() {
		w := httptest.NewRecorder()
		handler.Me(w, httptest.NewRequest(http.MethodGet, "/users/me", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	It("lists the port agents", func() {
		_, err := testutil.SeedAccount(db, "other", "other@transit241.com")
		Expect(err).NotTo(HaveOccurred())

		w := httptest.NewRecorder()
		handler.ListByRole(account.RolePortAgent)(w, httptest.NewRequest(http.MethodGet, "/users/agents", nil))

		Expect(w.Code).To(Equal(http.StatusOK))
		var resp account.AccountsResponse
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Total).To(Equal(int64(1)))
		Expect(resp.Accounts[0].ID).To(Equal("agent-1"))
		Expect(resp.Limit).To(Equal(20))
	})

	It("assigns a role", func() {
		payload := fmt.Sprintf(`{"role_id": %d}`, roleIDs[account.RoleCustomsOfficer])
		req := httptest.NewRequest(http.MethodPost, "/users/agent-1/assign-role", strings.NewReader(payload))
		req = testutil.WithURLParams(req, "id", "agent-1")
		w := httptest.NewRecorder()

		handler.AssignRole(w, req)

		Expect(w.Code).To(Equal(http.StatusOK))
		var acc account.Account
		Expect(json.NewDecoder(w.Body).Decode(&acc)).To(Succeed())
		Expect(acc.RoleName).To(Equal(account.RoleCustomsOfficer))
	})

	It("rejects unknown fields in the body", func() {
		req := httptest.NewRequest(http.MethodPost, "/users/agent-1/assign-role", strings.NewReader(`{"role":"Admin"}`))
		req = testutil.WithURLParams(req, "id", "agent-1")
		w := httptest.NewRecorder()

		handler.AssignRole(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("returns 404 for an unknown role id", func() {
		req := testutil.WithURLParams(httptest.NewRequest(http.MethodGet, "/roles/999", nil), "id", "999")
		w := httptest.NewRecorder()

		handler.GetRole(w, req)

		Expect(w.Code).To(Equal(http.StatusNotFound))
		var resp struct {
			Error struct {
				Code string `json:"code"`
			} `json:"error"`
		}
		Expect(json.NewDecoder(w.Body).Decode(&resp)).To(Succeed())
		Expect(resp.Error.Code).To(Equal(string(internal.ErrCodeRoleNotFound)))
	})

	It("returns 400 for a malformed role id", func() {
		req := testutil.WithURLParams(httptest.NewRequest(http.MethodGet, "/roles/abc", nil), "id", "abc")
		w := httptest.NewRecorder()

		handler.GetRole(w, req)

		Expect(w.Code).To(Equal(http.StatusBadRequest))
	})

	It("creates a role and reports a duplicate as a conflict", func() {
		body := `{"name":"Auditor","permissions":["audit.view_logs"]}`

		w := httptest.NewRecorder()
		handler.CreateRole(w, httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(body)))
		Expect(w.Code).To(Equal(http.StatusCreated))

		w = httptest.NewRecorder()
		handler.CreateRole(w, httptest.NewRequest(http.MethodPost, "/roles", strings.NewReader(body)))
		Expect(w.Code).To(Equal(http.StatusConflict))
	})

	It("deletes an account", func() {
		req := testutil.WithURLParams(httptest.NewRequest(http.MethodDelete, "/users/agent-1", nil), "id", "agent-1")
		w := httptest.NewRecorder()

		handler.Delete(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
	})
})
