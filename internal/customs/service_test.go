package customs_test

import (
	"context"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal"
	customsDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/customs"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/customs"
	customsPostgres "github.com/transit241/port-logistics/internal/customs/postgres"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/notification"
	notificationPostgres "github.com/transit241/port-logistics/internal/notification/postgres"
	"github.com/transit241/port-logistics/internal/shipment"
	shipmentPostgres "github.com/transit241/port-logistics/internal/shipment/postgres"
	"github.com/transit241/port-logistics/internal/testutil"
	"github.com/transit241/port-logistics/pkg/logger"
)

var _ = Describe("Customs Service", func() {
	var (
		db        *gorm.DB
		shipments *shipment.Service
		service   *customs.Service
		ctx       context.Context
		parcel    *shipment.Shipment
	)

	declare := func(number string) *customs.Declaration {
		d, err := service.Create(ctx, customs.CreateDeclarationDTO{
			ShipmentID:        parcel.ID,
			DeclarationNumber: number,
			DocumentRef:       "/media/customs/" + number + ".pdf",
		})
		Expect(err).NotTo(HaveOccurred())
		return d
	}

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		_, err = testutil.SeedAccount(db, "client-1", "client@example.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = testutil.SeedAccount(db, "officer-1", "douane@example.com")
		Expect(err).NotTo(HaveOccurred())

		tx := database.NewTransactor(db)
		outbox := notification.NewOutbox(notificationPostgres.NewOutboxRepository(db), nil, logger.Discard())
		shipmentRepo := shipmentPostgres.NewShipmentRepository(db)
		lifecycle := shipment.NewLifecycle(shipmentRepo, outbox, events.Discard{}, nil, logger.Discard())
		shipments = shipment.NewService(shipmentRepo, tx, lifecycle, events.Discard{}, logger.Discard())
		service = customs.NewService(customsPostgres.NewDeclarationRepository(db), tx, lifecycle, events.Discard{}, logger.Discard())

		ctx = internal.ContextWithUser(context.Background(), &internal.User{ID: "officer-1"})
		parcel, err = shipments.Create(ctx, shipment.CreateShipmentDTO{
			BillOfLading: "BL123456GAB",
			Description:  "Textiles",
			WeightKg:     300,
			ClientID:     "client-1",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(testutil.Close(db)).To(Succeed())
	})

	Describe("Create", func() {
		It("opens a draft owned by the caller", func() {
			d := declare("DD-2026-0001")
			Expect(d.Status).To(Equal(customs.StatusDraft))
			Expect(d.OfficerID).To(Equal("officer-1"))
			Expect(d.ClearedAt).To(BeNil())
		})

		It("allows one declaration per shipment", func() {
			declare("DD-2026-0001")
			_, err := service.Create(ctx, customs.CreateDeclarationDTO{ShipmentID: parcel.ID, DeclarationNumber: "DD-2026-0002"})
			Expect(err).To(MatchError(internal.ErrDeclarationAlreadyExists))
		})

		It("rejects a declaration number already in use", func() {
			declare("DD-2026-0001")
			other, err := shipments.Create(ctx, shipment.CreateShipmentDTO{
				BillOfLading: "BL-OTHER",
				Description:  "Other",
				WeightKg:     1,
				ClientID:     "client-1",
			})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, customs.CreateDeclarationDTO{ShipmentID: other.ID, DeclarationNumber: "DD-2026-0001"})
			Expect(err).To(MatchError(internal.ErrDuplicateDeclarationNumber))
		})

		It("requires an existing shipment", func() {
			_, err := service.Create(ctx, customs.CreateDeclarationDTO{ShipmentID: "missing", DeclarationNumber: "DD-1"})
			Expect(err).To(MatchError(internal.ErrShipmentNotFound))
		})
	})

	Describe("Approve", func() {
		It("clears the declaration and makes the shipment ready for pickup", func() {
			d := declare("DD-2026-0001")

			approved, err := service.Approve(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.Status).To(Equal(customs.StatusCleared))
			Expect(approved.ClearedAt).NotTo(BeNil())

			got, err := shipments.Get(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(shipment.StatusReadyForPickup))

			history, err := shipments.History(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].Status).To(Equal(shipment.StatusReadyForPickup))
			Expect(history[0].Notes).To(ContainSubstring("DD-2026-0001"))
		})

		It("fails on an already cleared declaration without touching the shipment", func() {
			d := declare("DD-2026-0001")
			_, err := service.Approve(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = shipments.AppendStatus(ctx, parcel.ID, shipment.AppendStatusDTO{Status: shipment.StatusDisputed})
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Approve(ctx, d.ID)
			Expect(err).To(MatchError(internal.ErrInvalidDeclarationStatus))

			got, err := shipments.Get(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(shipment.StatusDisputed))
		})

		It("returns NotFound for an unknown declaration", func() {
			_, err := service.Approve(ctx, 404)
			Expect(err).To(MatchError(internal.ErrDeclarationNotFound))
		})
	})

	Describe("Submit and Reject", func() {
		It("submits a draft once", func() {
			d := declare("DD-2026-0001")
			submitted, err := service.Submit(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(submitted.Status).To(Equal(customs.StatusSubmitted))

			_, err = service.Submit(ctx, d.ID)
			Expect(err).To(MatchError(internal.ErrInvalidDeclarationStatus))
		})

		It("keeps the submission timestamp stamped at creation", func() {
			d := declare("DD-2026-0001")
			stamped := time.Date(2026, 3, 1, 8, 30, 0, 0, time.UTC)
			Expect(db.Model(&customsDatamodel.Declaration{}).
				Where("id = ?", d.ID).
				Update("submitted_at", stamped).Error).To(Succeed())

			submitted, err := service.Submit(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(submitted.SubmittedAt).To(BeTemporally("==", stamped))

			stored, err := service.Get(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(stored.SubmittedAt).To(BeTemporally("==", stamped))
		})

		It("rejects with a reason and allows a later approval", func() {
			d := declare("DD-2026-0001")
			rejected, err := service.Reject(ctx, d.ID, customs.RejectDeclarationDTO{Reason: "Missing invoice"})
			Expect(err).NotTo(HaveOccurred())
			Expect(rejected.Status).To(Equal(customs.StatusRejected))
			Expect(rejected.RejectionReason).To(Equal("Missing invoice"))

			approved, err := service.Approve(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(approved.RejectionReason).To(BeEmpty())
		})

		It("cannot reject a cleared declaration", func() {
			d := declare("DD-2026-0001")
			_, err := service.Approve(ctx, d.ID)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Reject(ctx, d.ID, customs.RejectDeclarationDTO{Reason: "Too late"})
			Expect(err).To(MatchError(internal.ErrInvalidDeclarationStatus))
		})
	})
})
