package auth_test

import (
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/transit241/port-logistics/internal"
	"github.com/transit241/port-logistics/internal/auth"
)

var _ = Describe("JWTTokenGenerator", func() {
	var tokens *auth.JWTTokenGenerator

	BeforeEach(func() {
		tokens = auth.NewJWTTokenGenerator(
			"access-secret-access-secret-0123",
			"refresh-secret-refresh-secret-01",
			15*time.Minute, 24*time.Hour)
	})

	It("round-trips an access token", func() {
		tok, err := tokens.GenerateAccessToken("u-1", "client1@transit241.com")
		Expect(err).NotTo(HaveOccurred())

		claims, err := tokens.ValidateAccessToken(tok)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.UserID).To(Equal("u-1"))
		Expect(claims.Email).To(Equal("client1@transit241.com"))
		Expect(claims.Type).To(Equal(auth.TokenTypeAccess))
	})

	It("does not accept a refresh token as an access token", func() {
		tok, err := tokens.GenerateRefreshToken("u-1", "client1@transit241.com")
		Expect(err).NotTo(HaveOccurred())

		_, err = tokens.ValidateAccessToken(tok)
		Expect(err).To(MatchError(internal.ErrInvalidToken))

		claims, err := tokens.ValidateRefreshToken(tok)
		Expect(err).NotTo(HaveOccurred())
		Expect(claims.Type).To(Equal(auth.TokenTypeRefresh))
	})

	It("does not accept an access token as a refresh token", func() {
		tok, err := tokens.GenerateAccessToken("u-1", "client1@transit241.com")
		Expect(err).NotTo(HaveOccurred())

		_, err = tokens.ValidateRefreshToken(tok)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})

	It("reports expiry", func() {
		expired := auth.NewJWTTokenGenerator(
			"access-secret-access-secret-0123",
			"refresh-secret-refresh-secret-01",
			time.Minute, time.Hour)
		expired.AccessTokenTTL = -time.Minute
		tok, err := expired.GenerateAccessToken("u-1", "client1@transit241.com")
		Expect(err).NotTo(HaveOccurred())

		_, err = tokens.ValidateAccessToken(tok)
		Expect(err).To(MatchError(internal.ErrTokenExpired))
	})

	It("rejects garbage and foreign signatures", func() {
		_, err := tokens.ValidateAccessToken("not-a-token")
		Expect(err).To(MatchError(internal.ErrInvalidToken))

		other := auth.NewJWTTokenGenerator("another-access-secret-0123456789", "another-refresh-secret-012345678", time.Minute, time.Hour)
		tok, err := other.GenerateAccessToken("u-1", "x@transit241.com")
		Expect(err).NotTo(HaveOccurred())
		_, err = tokens.ValidateAccessToken(tok)
		Expect(err).To(MatchError(internal.ErrInvalidToken))
	})
})
