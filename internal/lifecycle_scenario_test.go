package internal_test

import (
	"context"

	"github.com/jmoiron/sqlx"
	_ "github.com/mattn/go-sqlite3"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/audit"
	auditPostgres "github.com/transit241/port-logistics/internal/audit/postgres"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/customs"
	customsPostgres "github.com/transit241/port-logistics/internal/customs/postgres"
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

const auditSchema = `
CREATE TABLE audit_entries (
	id            INTEGER PRIMARY KEY AUTOINCREMENT,
	actor_id      TEXT,
	actor_email   TEXT NOT NULL DEFAULT '',
	action_type   TEXT NOT NULL,
	resource_name TEXT NOT NULL,
	resource_id   TEXT NOT NULL DEFAULT '',
	occurred_at   TIMESTAMP NOT NULL,
	origin_ip     TEXT NOT NULL DEFAULT '',
	details       TEXT NOT NULL DEFAULT ''
);`

var _ = Describe("Shipment lifecycle", func() {
	var (
		db         *gorm.DB
		auditDB    *sqlx.DB
		bus        *events.EventBus
		outboxRepo *notificationPostgres.OutboxRepository
		shipments  *shipment.Service
		declares   *customs.Service
		pickups    *pickup.Service
		trail      *audit.Service
		agentCtx   context.Context
		officerCtx context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())
		for id, email := range map[string]string{
			"client-1":  "client@example.com",
			"agent-1":   "agent@transit241.com",
			"officer-1": "douane@transit241.com",
		} {
			_, err = testutil.SeedAccount(db, id, email)
			Expect(err).NotTo(HaveOccurred())
		}

		auditDB, err = sqlx.Open("sqlite3", ":memory:")
		Expect(err).NotTo(HaveOccurred())
		auditDB.SetMaxOpenConns(1)
		_, err = auditDB.Exec(auditSchema)
		Expect(err).NotTo(HaveOccurred())

		lg := logger.Discard()
		bus = events.NewEventBus(lg)
		trail = audit.NewService(auditPostgres.NewStore(auditDB), lg)
		audit.NewSubscriber(trail, lg).Register(bus)

		tx := database.NewTransactor(db)
		outboxRepo = notificationPostgres.NewOutboxRepository(db)
		outbox := notification.NewOutbox(outboxRepo, nil, lg)

		shipmentRepo := shipmentPostgres.NewShipmentRepository(db)
		lifecycle := shipment.NewLifecycle(shipmentRepo, outbox, bus, nil, lg)
		shipments = shipment.NewService(shipmentRepo, tx, lifecycle, bus, lg)
		declares = customs.NewService(customsPostgres.NewDeclarationRepository(db), tx, lifecycle, bus, lg)
		pickups = pickup.NewService(pickupPostgres.NewPickupRepository(db), tx, lifecycle, storage.NewMemoryStore("/media"), bus, lg)

		agentCtx = internal.ContextWithUser(context.Background(), &internal.User{ID: "agent-1", Email: "agent@transit241.com"})
		officerCtx = internal.ContextWithUser(context.Background(), &internal.User{ID: "officer-1", Email: "douane@transit241.com"})
	})

	AfterEach(func() {
		bus.Wait()
		Expect(auditDB.Close()).To(Succeed())
		Expect(testutil.Close(db)).To(Succeed())
	})

	It("takes BL123456GAB from arrival to pickup", func() {
		By("registering the arrival")
		parcel, err := shipments.Create(agentCtx, shipment.CreateShipmentDTO{
			BillOfLading:    "bl123456gab",
			Description:     "Pièces détachées automobiles",
			WeightKg:        1200.5,
			ClientID:        "client-1",
			StorageLocation: "Zone A",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(parcel.BillOfLading).To(Equal("BL123456GAB"))
		Expect(parcel.Status).To(Equal(shipment.StatusAwaitingUnload))

		history, err := shipments.History(agentCtx, parcel.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(history).To(BeEmpty())

		By("moving it through the port")
		for _, status := range []shipment.Status{shipment.StatusInTransit, shipment.StatusCustomsClearance} {
			_, err = shipments.AppendStatus(agentCtx, parcel.ID, shipment.AppendStatusDTO{Status: status, Location: "Port d'Owendo"})
			Expect(err).NotTo(HaveOccurred())
		}

		By("clearing customs")
		decl, err := declares.Create(officerCtx, customs.CreateDeclarationDTO{
			ShipmentID:        parcel.ID,
			DeclarationNumber: "DD-2026-0001",
		})
		Expect(err).NotTo(HaveOccurred())
		Expect(decl.OfficerID).To(Equal("officer-1"))

		decl, err = declares.Approve(officerCtx, decl.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(decl.Status).To(Equal(customs.StatusCleared))

		current, err := shipments.Get(agentCtx, parcel.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(current.Status).To(Equal(shipment.StatusReadyForPickup))

		By("handing it over")
		_, err = pickups.Create(agentCtx, pickup.CreatePickupDTO{
			ShipmentID:       parcel.ID,
			IdentityProofRef: "/media/pickups/id/cni.jpg",
		})
		Expect(err).NotTo(HaveOccurred())

		_, err = pickups.Create(agentCtx, pickup.CreatePickupDTO{
			ShipmentID:       parcel.ID,
			IdentityProofRef: "/media/pickups/id/cni.jpg",
		})
		Expect(err).To(MatchError(internal.ErrPickupAlreadyExists))

		By("reading back the ledger")
		view, err := shipments.PublicView(context.Background(), parcel.ID)
		Expect(err).NotTo(HaveOccurred())
		Expect(view.Status).To(Equal(shipment.StatusDelivered))

		history, err = shipments.History(agentCtx, parcel.ID)
		Expect(err).NotTo(HaveOccurred())
		statuses := make([]shipment.Status, 0, len(history))
		for _, e := range history {
			statuses = append(statuses, e.Status)
		}
		Expect(statuses).To(Equal([]shipment.Status{
			shipment.StatusDelivered,
			shipment.StatusReadyForPickup,
			shipment.StatusCustomsClearance,
			shipment.StatusInTransit,
		}))

		pending, err := outboxRepo.CountPending(context.Background())
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(Equal(int64(4)))

		bus.Wait()
		entries, total, err := trail.Query(context.Background(), audit.Filter{ActionType: "STATUS_CHANGED"})
		Expect(err).NotTo(HaveOccurred())
		Expect(total).To(Equal(int64(4)))
		for _, e := range entries {
			Expect(e.ResourceName).To(Equal("shipment"))
			Expect(e.ResourceID).To(Equal(parcel.ID))
		}
	})
})
