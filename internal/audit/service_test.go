package audit_test

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/audit"
	"github.com/transit241/port-logistics/internal/audit/postgres"
	auditDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/audit"
	"github.com/transit241/port-logistics/pkg/logger"
)

var _ = Describe("Audit Service", func() {
	var (
		db      *sqlx.DB
		store   *postgres.Store
		service *audit.Service
		ctx     context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = newAuditDB()
		Expect(err).NotTo(HaveOccurred())
		store = postgres.NewStore(db)
		service = audit.NewService(store, logger.Discard())
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(db.Close()).To(Succeed())
	})

	insertAt := func(at time.Time, action, resource, resourceID, origin, details string) {
		Expect(store.Insert(ctx, &auditDatamodel.Entry{
			ActionType:   action,
			ResourceName: resource,
			ResourceID:   resourceID,
			OccurredAt:   at,
			OriginIP:     origin,
			Details:      details,
		})).To(Succeed())
	}

	Describe("Record", func() {
		It("stores the entry with an id and timestamp", func() {
			entry, err := service.Record(ctx, audit.RecordDTO{
				ActorID:      "agent-1",
				ActionType:   "STATUS_CHANGED",
				ResourceName: "shipment",
				ResourceID:   "s-1",
				OriginIP:     "10.0.0.7",
				Details:      `{"to":"IN_TRANSIT"}`,
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(entry.ID).To(BeNumerically(">", 0))
			Expect(entry.OccurredAt).NotTo(BeZero())

			got, err := service.Get(ctx, entry.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(*got.ActorID).To(Equal("agent-1"))
			Expect(got.ResourceID).To(Equal("s-1"))
			Expect(got.Details).To(Equal(`{"to":"IN_TRANSIT"}`))
		})

		It("leaves the actor empty for anonymous actions", func() {
			entry, err := service.Record(ctx, audit.RecordDTO{ActionType: "LOGIN_FAILED", ResourceName: "account"})
			Expect(err).NotTo(HaveOccurred())

			got, err := service.Get(ctx, entry.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.ActorID).To(BeNil())
		})

		It("requires an action type and resource name", func() {
			_, err := service.Record(ctx, audit.RecordDTO{ResourceName: "shipment"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

			_, total, err := service.Query(ctx, audit.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())
		})
	})

	Describe("Get", func() {
		It("returns NotFound for an unknown id", func() {
			_, err := service.Get(ctx, 42)
			Expect(err).To(MatchError(internal.ErrAuditEntryNotFound))
		})
	})

	Describe("Query", func() {
		base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)

		BeforeEach(func() {
			insertAt(base, "LOGIN_SUCCESS", "account", "u-1", "192.168.1.10", "")
			insertAt(base.Add(time.Minute), "STATUS_CHANGED", "shipment", "s-1", "10.0.0.7", `{"bill_of_lading":"BL123456GAB"}`)
			insertAt(base.Add(2*time.Minute), "STATUS_CHANGED", "shipment", "s-2", "10.0.0.8", `{"bill_of_lading":"BL999"}`)
			insertAt(base.Add(3*time.Minute), "INVOICE_PAID", "invoice", "7", "10.0.0.7", "")
		})

		It("returns entries newest first", func() {
			entries, total, err := service.Query(ctx, audit.Filter{})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeEquivalentTo(4))
			Expect(entries[0].ActionType).To(Equal("INVOICE_PAID"))
			Expect(entries[3].ActionType).To(Equal("LOGIN_SUCCESS"))
		})

		It("filters by action type and resource", func() {
			entries, total, err := service.Query(ctx, audit.Filter{ActionType: "STATUS_CHANGED", ResourceName: "shipment"})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeEquivalentTo(2))
			Expect(entries[0].ResourceID).To(Equal("s-2"))
		})

		It("searches details, resource id and origin address", func() {
			entries, _, err := service.Query(ctx, audit.Filter{Search: "bl123456gab"})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
			Expect(entries[0].ResourceID).To(Equal("s-1"))

			entries, _, err = service.Query(ctx, audit.Filter{Search: "10.0.0.7"})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(2))

			entries, _, err = service.Query(ctx, audit.Filter{Search: "u-1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(HaveLen(1))
		})

		It("matches wildcard characters literally", func() {
			entries, total, err := service.Query(ctx, audit.Filter{Search: "%"})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeZero())
			Expect(entries).To(BeEmpty())

			entries, _, err = service.Query(ctx, audit.Filter{Search: "s_1"})
			Expect(err).NotTo(HaveOccurred())
			Expect(entries).To(BeEmpty())
		})

		It("paginates while reporting the full total", func() {
			entries, total, err := service.Query(ctx, audit.Filter{Limit: 2, Offset: 2})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(BeEquivalentTo(4))
			Expect(entries).To(HaveLen(2))
			Expect(entries[0].ResourceID).To(Equal("s-1"))
		})
	})
})
