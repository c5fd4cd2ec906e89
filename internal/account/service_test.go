package account_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	accountPostgres "github.com/transit241/port-logistics/internal/account/postgres"
	customsDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/customs"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/testutil"
	"github.com/transit241/port-logistics/pkg/logger"
)

var _ = Describe("Account Service", func() {
	var (
		db      *gorm.DB
		repo    *accountPostgres.AccountRepository
		service *account.Service
		roleIDs map[string]int64
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		ctx = context.Background()
		repo = accountPostgres.NewAccountRepository(db)
		roleIDs, err = repo.EnsureDefaults(ctx)
		Expect(err).NotTo(HaveOccurred())

		service = account.NewService(repo, database.NewTransactor(db), events.Discard{}, logger.Discard())
	})

	AfterEach(func() {
		Expect(testutil.Close(db)).To(Succeed())
	})

	Describe("EnsureDefaults", func() {
		It("is idempotent and grants the built-in permissions", func() {
			again, err := repo.EnsureDefaults(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(again).To(Equal(roleIDs))

			role, err := service.GetRole(ctx, roleIDs[account.RolePortAgent])
			Expect(err).NotTo(HaveOccurred())
			Expect(role.Permissions).To(ConsistOf(
				account.PermViewShipments,
				account.PermCreateShipment,
				account.PermUpdateStatus,
				account.PermValidatePickup,
			))

			perms, err := service.ListPermissions(ctx)
			Expect(err).NotTo(HaveOccurred())
			Expect(perms).To(HaveLen(len(account.AllPermissions)))
		})

		It("labels permissions for display", func() {
			Expect(accountPostgres.PermissionLabel("logistics.update_statut")).To(Equal("Logistics: Update Statut"))
			Expect(accountPostgres.PermissionLabel("standalone_code")).To(Equal("Standalone Code"))
		})
	})

	Describe("ListByRole", func() {
		It("returns only the accounts holding the role", func() {
			agent := roleIDs[account.RolePortAgent]
			client := roleIDs[account.RoleClient]
			_, err := testutil.SeedAccountWithRole(db, "a-1", "agentport@transit241.com", &agent)
			Expect(err).NotTo(HaveOccurred())
			_, err = testutil.SeedAccountWithRole(db, "c-1", "client1@transit241.com", &client)
			Expect(err).NotTo(HaveOccurred())
			_, err = testutil.SeedAccountWithRole(db, "c-2", "client2@transit241.com", &client)
			Expect(err).NotTo(HaveOccurred())

			clients, total, err := service.ListByRole(ctx, account.RoleClient, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
			Expect(clients).To(HaveLen(2))
			for _, c := range clients {
				Expect(c.RoleName).To(Equal(account.RoleClient))
			}

			agents, total, err := service.ListByRole(ctx, account.RolePortAgent, 10, 0)
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(agents[0].Email).To(Equal("agentport@transit241.com"))
		})

		It("searches by email", func() {
			_, err := testutil.SeedAccount(db, "x-1", "jean.mba@transit241.com")
			Expect(err).NotTo(HaveOccurred())
			_, err = testutil.SeedAccount(db, "x-2", "other@transit241.com")
			Expect(err).NotTo(HaveOccurred())

			found, total, err := service.List(ctx, account.Filter{Search: "MBA", Limit: 10})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(1)))
			Expect(found[0].ID).To(Equal("x-1"))
		})
	})

	Describe("AssignRole", func() {
		It("moves the account to the new role", func() {
			_, err := testutil.SeedAccount(db, "u-1", "u1@transit241.com")
			Expect(err).NotTo(HaveOccurred())

			acc, err := service.AssignRole(ctx, "u-1", account.AssignRoleDTO{RoleID: roleIDs[account.RoleCustomsOfficer]})
			Expect(err).NotTo(HaveOccurred())
			Expect(acc.RoleName).To(Equal(account.RoleCustomsOfficer))

			reloaded, err := service.GetByID(ctx, "u-1")
			Expect(err).NotTo(HaveOccurred())
			Expect(reloaded.RoleName).To(Equal(account.RoleCustomsOfficer))
		})

		It("fails for an unknown role", func() {
			_, err := testutil.SeedAccount(db, "u-1", "u1@transit241.com")
			Expect(err).NotTo(HaveOccurred())

			_, err = service.AssignRole(ctx, "u-1", account.AssignRoleDTO{RoleID: 9999})
			Expect(err).To(MatchError(internal.ErrRoleNotFound))
		})

		It("fails for an unknown account", func() {
			_, err := service.AssignRole(ctx, "missing", account.AssignRoleDTO{RoleID: roleIDs[account.RoleClient]})
			Expect(err).To(MatchError(internal.ErrAccountNotFound))
		})
	})

	Describe("Delete", func() {
		It("removes an unreferenced account and clears it from history rows", func() {
			_, err := testutil.SeedAccount(db, "u-9", "u9@transit241.com")
			Expect(err).NotTo(HaveOccurred())
			actor := "u-9"
			Expect(db.Create(&shipmentDatamodel.StatusEvent{
				ShipmentID: "s-1",
				Status:     "IN_TRANSIT",
				OccurredAt: time.Now(),
				ActorID:    &actor,
			}).Error).To(Succeed())

			Expect(service.Delete(ctx, "u-9")).To(Succeed())

			_, err = service.GetByID(ctx, "u-9")
			Expect(err).To(MatchError(internal.ErrAccountNotFound))

			var ev shipmentDatamodel.StatusEvent
			Expect(db.First(&ev).Error).To(Succeed())
			Expect(ev.ActorID).To(BeNil())
		})

		It("refuses while the account handles a declaration", func() {
			_, err := testutil.SeedAccount(db, "officer", "douanier@transit241.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Create(&customsDatamodel.Declaration{
				ShipmentID:        "s-1",
				OfficerID:         "officer",
				DeclarationNumber: "DEC-1",
				SubmittedAt:       time.Now(),
				Status:            "DRAFT",
			}).Error).To(Succeed())

			Expect(service.Delete(ctx, "officer")).To(MatchError(internal.ErrAccountProtected))
		})

		It("refuses while the account owns shipments and keeps them", func() {
			_, err := testutil.SeedAccount(db, "owner", "owner@transit241.com")
			Expect(err).NotTo(HaveOccurred())
			Expect(db.Create(&shipmentDatamodel.Shipment{
				ID:           "s-owned",
				BillOfLading: "BL000777GAB",
				Description:  "Pneus",
				WeightKg:     300,
				ArrivedAt:    time.Now(),
				ClientID:     "owner",
				Status:       "AWAITING_UNLOAD",
			}).Error).To(Succeed())

			Expect(service.Delete(ctx, "owner")).To(MatchError(internal.ErrAccountProtected))

			var count int64
			Expect(db.Model(&shipmentDatamodel.Shipment{}).Where("client_id = ?", "owner").Count(&count).Error).To(Succeed())
			Expect(count).To(Equal(int64(1)))
		})

		It("refuses to delete the caller's own account", func() {
			_, err := testutil.SeedAccount(db, "self", "admin@transit241.com")
			Expect(err).NotTo(HaveOccurred())
			selfCtx := internal.ContextWithUser(ctx, &internal.User{ID: "self"})

			Expect(service.Delete(selfCtx, "self")).To(MatchError(internal.ErrAccountProtected))
		})
	})

	Describe("roles", func() {
		It("creates, updates and deletes a role", func() {
			role, err := service.CreateRole(ctx, account.RoleDTO{
				Name:        "Auditor",
				Description: "Read-only compliance",
				Permissions: []string{account.PermViewAudit},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(role.Permissions).To(ConsistOf(account.PermViewAudit))

			_, err = service.CreateRole(ctx, account.RoleDTO{Name: "Auditor"})
			Expect(err).To(MatchError(internal.ErrDuplicateRole))

			updated, err := service.UpdateRole(ctx, role.ID, account.RoleDTO{
				Name:        "Auditor",
				Permissions: []string{account.PermViewAudit, account.PermViewPayments},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(updated.Permissions).To(ConsistOf(account.PermViewAudit, account.PermViewPayments))

			Expect(service.DeleteRole(ctx, role.ID)).To(Succeed())
			_, err = service.GetRole(ctx, role.ID)
			Expect(err).To(MatchError(internal.ErrRoleNotFound))
		})

		It("rejects unknown permission codes", func() {
			_, err := service.CreateRole(ctx, account.RoleDTO{Name: "Ghost", Permissions: []string{"nope.nothing"}})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("validates the role name", func() {
			_, err := service.CreateRole(ctx, account.RoleDTO{Name: ""})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Code).To(Equal(internal.ErrCodeValidationFailed))
		})
	})
})
