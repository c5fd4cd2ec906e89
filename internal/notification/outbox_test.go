package notification_test

import (
	"context"
	"errors"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"gorm.io/gorm"

	"github.com/transit241/port-logistics/internal/database"
	"github.com/transit241/port-logistics/internal/notification"
	"github.com/transit241/port-logistics/internal/notification/postgres"
	"github.com/transit241/port-logistics/internal/testutil"
	"github.com/transit241/port-logistics/pkg/logger"
)

var _ = Describe("Outbox", func() {
	var (
		db     *gorm.DB
		repo   *postgres.OutboxRepository
		outbox *notification.Outbox
		tx     *database.Transactor
		ctx    context.Context
	)

	BeforeEach(func() {
		var err error
		db, err = testutil.NewDB()
		Expect(err).NotTo(HaveOccurred())

		repo = postgres.NewOutboxRepository(db)
		outbox = notification.NewOutbox(repo, nil, logger.Discard())
		tx = database.NewTransactor(db)
		ctx = context.Background()
	})

	AfterEach(func() {
		Expect(testutil.Close(db)).To(Succeed())
	})

	It("stores the message as pending", func() {
		Expect(outbox.Enqueue(ctx, notification.WelcomeEmail("client1@transit241.com", "Jean"))).To(Succeed())

		pending, err := repo.ListPending(ctx, 10)
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(1))
		Expect(pending[0].Kind).To(Equal(notification.KindWelcome))
		Expect(pending[0].Recipient).To(Equal("client1@transit241.com"))
		Expect(pending[0].DispatchedAt).To(BeNil())
	})

	It("rejects a message without a recipient", func() {
		err := outbox.Enqueue(ctx, notification.Email{Subject: "x"})
		Expect(err).To(MatchError(notification.ErrNoRecipient))
	})

	It("drops the message when the surrounding transaction rolls back", func() {
		boom := errors.New("boom")
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			Expect(outbox.Enqueue(ctx, notification.WelcomeEmail("a@b.c", "A"))).To(Succeed())
			return boom
		})
		Expect(err).To(MatchError(boom))

		n, err := repo.CountPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(BeZero())
	})

	It("keeps the message when the surrounding transaction commits", func() {
		err := tx.WithinTransaction(ctx, func(ctx context.Context) error {
			return outbox.Enqueue(ctx, notification.WelcomeEmail("a@b.c", "A"))
		})
		Expect(err).NotTo(HaveOccurred())

		n, err := repo.CountPending(ctx)
		Expect(err).NotTo(HaveOccurred())
		Expect(n).To(Equal(int64(1)))
	})

	Describe("templates", func() {
		It("builds the status update email", func() {
			email := notification.StatusUpdateEmail("c@x.io", "abc-123", "BL123456GAB", "Customs clearance", "Quay 4")
			Expect(email.Subject).To(Equal("PPPI: update on your shipment #abc-123"))
			Expect(email.Body).To(ContainSubstring("BL123456GAB"))
			Expect(email.Body).To(ContainSubstring("New status: Customs clearance"))
			Expect(email.Body).To(ContainSubstring("Location: Quay 4"))
		})

		It("omits the location line when none is given", func() {
			email := notification.StatusUpdateEmail("c@x.io", "abc", "BL1", "Delivered", "")
			Expect(email.Body).NotTo(ContainSubstring("Location"))
		})

		It("states the reset code lifetime", func() {
			email := notification.PasswordResetEmail("c@x.io", "042917", 15*time.Minute)
			Expect(email.Body).To(ContainSubstring("042917"))
			Expect(email.Body).To(ContainSubstring("15 minutes"))
		})

		It("names the action in the security alert", func() {
			email := notification.SecurityAlertEmail("admin@transit241.com", "c@x.io", "u-1", "REPEATED_LOGIN_FAILURE", "10.0.0.7")
			Expect(email.Subject).To(Equal("CRITICAL SECURITY ALERT - REPEATED_LOGIN_FAILURE"))
			Expect(email.Body).To(ContainSubstring("IP: 10.0.0.7"))
		})
	})
})

