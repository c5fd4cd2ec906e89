package pickup_test

import (
	"bytes"
	"context"
	"strings"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal"
	outboxDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/outbox"
	pickupDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/pickup"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/notification"
	notificationPostgres "github.com/transit241/port-logistics/internal/notification/postgres"
	"github.com/transit241/port-logistics/internal/pickup"
	pickupPostgres "github.com/transit241/port-logistics/internal/pickup/postgres"
	"github.com/transit241/port-logistics/internal/shipment"
	shipmentPostgres "github.com/transit241/port-logistics/internal/shipment/postgres"
	"github.com/transit241/port-logistics/internal/storage"
	"github.com/transit241/port-logistics/internal/testutil"
	"github.com/transit241/port-logistics/pkg/logger"
)

var _ = Describe("Pickup Service", func() {
	var (
		db        *gorm.DB
		shipments *shipment.Service
		service   *pickup.Service
		blobs     *storage.MemoryStore
		ctx       context.Context
		parcel    *shipment.Shipment
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		_, err = testutil.SeedAccount(db, "client-1", "client@example.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = testutil.SeedAccount(db, "agent-1", "agent@example.com")
		Expect(err).NotTo(HaveOccurred())

		tx := database.NewTransactor(db)
		outbox := notification.NewOutbox(notificationPostgres.NewOutboxRepository(db), nil, logger.Discard())
		shipmentRepo := shipmentPostgres.NewShipmentRepository(db)
		lifecycle := shipment.NewLifecycle(shipmentRepo, outbox, events.Discard{}, nil, logger.Discard())
		shipments = shipment.NewService(shipmentRepo, tx, lifecycle, events.Discard{}, logger.Discard())

		blobs = storage.NewMemoryStore("/media")
		service = pickup.NewService(pickupPostgres.NewPickupRepository(db), tx, lifecycle, blobs, events.Discard{}, logger.Discard())

		ctx = internal.ContextWithUser(context.Background(), &internal.User{ID: "agent-1", Email: "agent@example.com"})
		parcel, err = shipments.Create(ctx, shipment.CreateShipmentDTO{
			BillOfLading: "BL123456GAB",
			Description:  "Generator",
			WeightKg:     1200.5,
			ClientID:     "client-1",
		})
		Expect(err).NotTo(HaveOccurred())
	})

	AfterEach(func() {
		Expect(testutil.Close(db)).To(Succeed())
	})

	Describe("Create", func() {
		It("records the pickup and delivers the shipment through the ledger", func() {
			p, err := service.Create(ctx, pickup.CreatePickupDTO{
				ShipmentID:       parcel.ID,
				IdentityProofRef: "/media/identity-proofs/agent-1_20260101120000.png",
				Signature:        "data:image/png;base64,AAAA",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(p.ValidatorID).To(Equal("agent-1"))
			Expect(p.PickedUpAt).NotTo(BeZero())

			got, err := shipments.Get(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(shipment.StatusDelivered))

			history, err := shipments.History(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
			Expect(history[0].Status).To(Equal(shipment.StatusDelivered))
			Expect(*history[0].ActorID).To(Equal("agent-1"))

			var mails []outboxDatamodel.Message
			Expect(db.Find(&mails).Error).To(Succeed())
			Expect(mails).To(HaveLen(1))
			Expect(mails[0].Body).To(ContainSubstring("Delivered"))
		})

		It("refuses a second pickup of the same shipment", func() {
			dto := pickup.CreatePickupDTO{ShipmentID: parcel.ID, IdentityProofRef: "proof.png"}
			_, err := service.Create(ctx, dto)
			Expect(err).NotTo(HaveOccurred())

			_, err = service.Create(ctx, dto)
			Expect(err).To(MatchError(internal.ErrPickupAlreadyExists))

			var n int64
			Expect(db.Model(&pickupDatamodel.Pickup{}).Count(&n).Error).To(Succeed())
			Expect(n).To(Equal(int64(1)))

			history, err := shipments.History(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(1))
		})

		It("rolls back when the shipment does not exist", func() {
			_, err := service.Create(ctx, pickup.CreatePickupDTO{ShipmentID: "missing", IdentityProofRef: "proof.png"})
			Expect(err).To(MatchError(internal.ErrShipmentNotFound))

			var n int64
			Expect(db.Model(&pickupDatamodel.Pickup{}).Count(&n).Error).To(Succeed())
			Expect(n).To(BeZero())
		})

		It("requires the validator to exist", func() {
			_, err := service.Create(ctx, pickup.CreatePickupDTO{
				ShipmentID:       parcel.ID,
				ValidatorID:      "ghost",
				IdentityProofRef: "proof.png",
			})
			Expect(err).To(MatchError(internal.ErrAccountNotFound))

			got, err := shipments.Get(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(shipment.StatusAwaitingUnload))
		})

		It("requires an identity proof", func() {
			_, err := service.Create(ctx, pickup.CreatePickupDTO{ShipmentID: parcel.ID})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("lookups", func() {
		It("finds the pickup by id and by shipment", func() {
			created, err := service.Create(ctx, pickup.CreatePickupDTO{ShipmentID: parcel.ID, IdentityProofRef: "proof.png"})
			Expect(err).NotTo(HaveOccurred())

			byID, err := service.Get(ctx, created.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byID.ShipmentID).To(Equal(parcel.ID))

			byShipment, err := service.GetByShipment(ctx, parcel.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(byShipment.ID).To(Equal(created.ID))
		})

		It("returns NotFound otherwise", func() {
			_, err := service.Get(ctx, 42)
			Expect(err).To(MatchError(internal.ErrPickupNotFound))
			_, err = service.GetByShipment(ctx, parcel.ID)
			Expect(err).To(MatchError(internal.ErrPickupNotFound))
		})
	})

	Describe("UploadIdentityProof", func() {
		It("stores the file under the actor and a timestamp", func() {
			url, err := service.UploadIdentityProof(ctx, "passport.PNG", bytes.NewReader([]byte("png-bytes")))
			Expect(err).NotTo(HaveOccurred())
			Expect(url).To(MatchRegexp(`^/media/identity-proofs/agent-1_\d{14}\.png$`))

			key := strings.TrimPrefix(url, "/media/")
			data, contentType, ok := blobs.Get(key)
			Expect(ok).To(BeTrue())
			Expect(string(data)).To(Equal("png-bytes"))
			Expect(contentType).To(Equal("image/png"))
		})

		It("rejects unsupported file types", func() {
			_, err := service.UploadIdentityProof(ctx, "payload.exe", strings.NewReader("MZ"))
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			Expect(blobs.Len()).To(BeZero())
		})

		It("requires an authenticated actor", func() {
			_, err := service.UploadIdentityProof(context.Background(), "id.png", strings.NewReader("x"))
			Expect(err).To(MatchError(internal.ErrInvalidToken))
		})
	})
})
