package shipment_test

import (
	"context"
	"errors"
	"sync"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/account"
	billingDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/billing"
	outboxDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/outbox"
	pickupDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/pickup"
	shipmentDatamodel "github.com/transit241/port-logistics/internal/core/datamodel/shipment"
	"github.com/transit241/port-logistics/internal/core/events"
	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/metrics"
	"github.com/transit241/port-logistics/internal/notification"
	notificationPostgres "github.com/transit241/port-logistics/internal/notification/postgres"
	"github.com/transit241/port-logistics/internal/shipment"
	"github.com/transit241/port-logistics/internal/shipment/postgres"
	dbtest "github.com/transit241/port-logistics/internal/testutil"
	"github.com/transit241/port-logistics/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, ev events.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]string, 0, len(p.events))
	for _, ev := range p.events {
		out = append(out, ev.EventType())
	}
	return out
}

type failingNotifier struct{}

func (failingNotifier) Enqueue(context.Context, notification.Email) error {
	return errors.New("smtp relay unreachable")
}

const (
	clientID = "client-1"
	agentID  = "agent-1"
)

var _ = Describe("Shipment Service", func() {
	var (
		db        *gorm.DB
		repo      *postgres.ShipmentRepository
		service   *shipment.Service
		publisher *recordingPublisher
		m         *metrics.Metrics
		ctx       context.Context
	)

	build := func(notifier notification.Notifier) {
		lifecycle := shipment.NewLifecycle(repo, notifier, publisher, m, logger.Discard())
		service = shipment.NewService(repo, database.NewTransactor(db), lifecycle, publisher, logger.Discard())
	}

	create := func(bl string) *shipment.Shipment {
		s, err := service.Create(ctx, shipment.CreateShipmentDTO{
			BillOfLading: bl,
			Description:  "Machine parts",
			WeightKg:     1200.5,
			ClientID:     clientID,
		})
		Expect(err).NotTo(HaveOccurred())
		return s
	}

	outboxRows := func() []outboxDatamodel.Message {
		var rows []outboxDatamodel.Message
		Expect(db.Order("id ASC").Find(&rows).Error).To(Succeed())
		return rows
	}

	BeforeEach(func() {
		var err error
		db, err = dbtest.NewDB()
		Expect(err).NotTo(HaveOccurred())
		_, err = dbtest.SeedAccount(db, clientID, "client@example.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = dbtest.SeedAccount(db, agentID, "agent@example.com")
		Expect(err).NotTo(HaveOccurred())

		repo = postgres.NewShipmentRepository(db)
		publisher = &recordingPublisher{}
		m = metrics.New(prometheus.NewRegistry())
		outbox := notification.NewOutbox(notificationPostgres.NewOutboxRepository(db), m, logger.Discard())
		build(outbox)

		ctx = internal.ContextWithUser(context.Background(), &internal.User{
			ID:          agentID,
			Email:       "agent@example.com",
			Permissions: []string{account.PermCreateShipment, account.PermUpdateStatus, account.PermViewShipments},
		})
	})

	AfterEach(func() {
		Expect(dbtest.Close(db)).To(Succeed())
	})

	Describe("Create", func() {
		It("starts the shipment awaiting unload with an empty history", func() {
			s := create("BL123456GAB")
			Expect(s.ID).NotTo(BeEmpty())
			Expect(s.Status).To(Equal(shipment.StatusAwaitingUnload))
			Expect(s.StatusLabel).To(Equal("Awaiting unload"))
			Expect(s.WeightKg).To(Equal(1200.5))
			Expect(s.ArrivedAt).NotTo(BeZero())

			history, err := service.History(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(BeEmpty())
			Expect(publisher.types()).To(ConsistOf(events.EventTypeShipmentCreated))
		})

		It("normalizes the bill of lading and rejects a duplicate", func() {
			s := create("bl123456gab")
			Expect(s.BillOfLading).To(Equal("BL123456GAB"))

			_, err := service.Create(ctx, shipment.CreateShipmentDTO{
				BillOfLading: "BL123456GAB",
				Description:  "Another",
				WeightKg:     1,
				ClientID:     clientID,
			})
			Expect(err).To(MatchError(internal.ErrDuplicateBillOfLading))
		})

		It("requires an existing client", func() {
			_, err := service.Create(ctx, shipment.CreateShipmentDTO{
				BillOfLading: "BL999",
				Description:  "Orphan",
				WeightKg:     1,
				ClientID:     "nobody",
			})
			Expect(err).To(MatchError(internal.ErrAccountNotFound))
		})

		It("validates the payload", func() {
			_, err := service.Create(ctx, shipment.CreateShipmentDTO{
				BillOfLading: "BL 12/3",
				Description:  "Bad",
				WeightKg:     0,
				ClientID:     clientID,
			})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("AppendStatus", func() {
		var s *shipment.Shipment

		BeforeEach(func() {
			s = create("BL123456GAB")
		})

		It("records the event and mirrors the status onto the shipment", func() {
			event, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{
				Status:   shipment.StatusInTransit,
				Location: "Quay 4",
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(event.Status).To(Equal(shipment.StatusInTransit))
			Expect(event.ActorID).NotTo(BeNil())
			Expect(*event.ActorID).To(Equal(agentID))

			got, err := service.Get(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(shipment.StatusInTransit))
			Expect(testutil.ToFloat64(m.StatusTransitions.WithLabelValues("IN_TRANSIT"))).To(Equal(1.0))
			Expect(publisher.types()).To(ContainElement(events.EventTypeShipmentStatusChanged))
		})

		It("queues a status email for the client", func() {
			_, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{
				Status:   shipment.StatusCustomsClearance,
				Location: "Customs shed",
			})
			Expect(err).NotTo(HaveOccurred())

			rows := outboxRows()
			Expect(rows).To(HaveLen(1))
			Expect(rows[0].Recipient).To(Equal("client@example.com"))
			Expect(rows[0].Subject).To(ContainSubstring(s.ID))
			Expect(rows[0].Body).To(ContainSubstring("BL123456GAB"))
			Expect(rows[0].Body).To(ContainSubstring("Customs clearance"))
			Expect(rows[0].Body).To(ContainSubstring("Customs shed"))
		})

		It("keeps the status change when the notification cannot be queued", func() {
			build(failingNotifier{})

			_, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{Status: shipment.StatusDisputed})
			Expect(err).NotTo(HaveOccurred())

			got, err := service.Get(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(shipment.StatusDisputed))
		})

		It("accepts any order of statuses", func() {
			for _, st := range []shipment.Status{shipment.StatusDelivered, shipment.StatusAwaitingUnload, shipment.StatusDisputed} {
				_, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{Status: st})
				Expect(err).NotTo(HaveOccurred())
			}
			got, err := service.Get(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(got.Status).To(Equal(shipment.StatusDisputed))
		})

		It("rejects an unknown status", func() {
			_, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{Status: "LOST_AT_SEA"})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

			var n int64
			Expect(db.Model(&shipmentDatamodel.StatusEvent{}).Count(&n).Error).To(Succeed())
			Expect(n).To(BeZero())
		})

		It("returns NotFound for an unknown shipment", func() {
			_, err := service.AppendStatus(ctx, "missing", shipment.AppendStatusDTO{Status: shipment.StatusInTransit})
			Expect(err).To(MatchError(internal.ErrShipmentNotFound))
			Expect(outboxRows()).To(BeEmpty())
		})

		It("lists history newest first", func() {
			for _, st := range []shipment.Status{shipment.StatusInTransit, shipment.StatusCustomsClearance, shipment.StatusReadyForPickup} {
				_, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{Status: st})
				Expect(err).NotTo(HaveOccurred())
			}

			history, err := service.History(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(history).To(HaveLen(3))
			Expect(history[0].Status).To(Equal(shipment.StatusReadyForPickup))
			Expect(history[1].Status).To(Equal(shipment.StatusCustomsClearance))
			Expect(history[2].Status).To(Equal(shipment.StatusInTransit))
		})
	})

	Describe("PublicView", func() {
		It("exposes the description, status and history without a principal", func() {
			s := create("BL123456GAB")
			_, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{Status: shipment.StatusInTransit})
			Expect(err).NotTo(HaveOccurred())

			view, err := service.PublicView(context.Background(), s.ID)
			Expect(err).NotTo(HaveOccurred())
			Expect(view.ID).To(Equal(s.ID))
			Expect(view.Description).To(Equal("Machine parts"))
			Expect(view.Status).To(Equal(shipment.StatusInTransit))
			Expect(view.History).To(HaveLen(1))
		})

		It("returns NotFound for an unknown id", func() {
			_, err := service.PublicView(context.Background(), "missing")
			Expect(err).To(MatchError(internal.ErrShipmentNotFound))
		})
	})

	Describe("List", func() {
		var clientCtx context.Context

		BeforeEach(func() {
			_, err := dbtest.SeedAccount(db, "client-2", "other@example.com")
			Expect(err).NotTo(HaveOccurred())

			create("BL-A-1")
			create("BL-A-2")
			_, err = service.Create(ctx, shipment.CreateShipmentDTO{
				BillOfLading: "BL-B-1",
				Description:  "Someone else's",
				WeightKg:     3,
				ClientID:     "client-2",
			})
			Expect(err).NotTo(HaveOccurred())

			clientCtx = internal.ContextWithUser(context.Background(), &internal.User{
				ID:          clientID,
				Permissions: []string{account.PermTrackShipments},
			})
		})

		It("shows staff every shipment", func() {
			_, total, err := service.List(ctx, shipment.Filter{Limit: 20})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(3)))
		})

		It("restricts clients to their own shipments", func() {
			rows, total, err := service.List(clientCtx, shipment.Filter{ClientID: "client-2", Limit: 20})
			Expect(err).NotTo(HaveOccurred())
			Expect(total).To(Equal(int64(2)))
			for _, s := range rows {
				Expect(s.ClientID).To(Equal(clientID))
			}
		})

		It("hides other clients' shipments from Get", func() {
			rows, _, err := service.List(ctx, shipment.Filter{ClientID: "client-2", Limit: 20})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(1))

			_, err = service.Get(clientCtx, rows[0].ID)
			Expect(err).To(MatchError(internal.ErrShipmentNotFound))
		})

		It("filters by status", func() {
			rows, _, err := service.List(ctx, shipment.Filter{Status: shipment.StatusAwaitingUnload, Limit: 20})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(HaveLen(3))

			rows, _, err = service.List(ctx, shipment.Filter{Status: shipment.StatusDelivered, Limit: 20})
			Expect(err).NotTo(HaveOccurred())
			Expect(rows).To(BeEmpty())
		})
	})

	Describe("Delete", func() {
		var s *shipment.Shipment

		BeforeEach(func() {
			s = create("BL123456GAB")
			_, err := service.AppendStatus(ctx, s.ID, shipment.AppendStatusDTO{Status: shipment.StatusInTransit})
			Expect(err).NotTo(HaveOccurred())
		})

		It("cascades to history and the pickup record", func() {
			Expect(db.Create(&pickupDatamodel.Pickup{
				ShipmentID:       s.ID,
				ValidatorID:      agentID,
				IdentityProofRef: "identity-proofs/x.png",
			}).Error).To(Succeed())

			Expect(service.Delete(ctx, s.ID)).To(Succeed())

			var nEvents, pickups int64
			Expect(db.Model(&shipmentDatamodel.StatusEvent{}).Count(&nEvents).Error).To(Succeed())
			Expect(db.Model(&pickupDatamodel.Pickup{}).Count(&pickups).Error).To(Succeed())
			Expect(nEvents).To(BeZero())
			Expect(pickups).To(BeZero())

			_, err := service.Get(ctx, s.ID)
			Expect(err).To(MatchError(internal.ErrShipmentNotFound))
		})

		It("is refused while payment transactions reference the shipment", func() {
			Expect(db.Create(&billingDatamodel.Transaction{
				ID:            "tx-1",
				ShipmentID:    s.ID,
				AmountExclTax: 1000,
				TotalAmount:   1180,
				FeeType:       "HANDLING",
				Status:        "SUCCEEDED",
			}).Error).To(Succeed())

			Expect(service.Delete(ctx, s.ID)).To(MatchError(internal.ErrShipmentProtected))
			_, err := service.Get(ctx, s.ID)
			Expect(err).NotTo(HaveOccurred())
		})

		It("returns NotFound for an unknown shipment", func() {
			Expect(service.Delete(ctx, "missing")).To(MatchError(internal.ErrShipmentNotFound))
		})
	})
})
