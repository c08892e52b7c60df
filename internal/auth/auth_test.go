package auth_test

import (
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v4"
	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/SeunOnTech/sol-stake-backend/common/fault"
	"github.com/SeunOnTech/sol-stake-backend/internal/auth"
)

var _ = Describe("Identity", func() {
	reader := auth.Identity{UserID: "u1", Role: auth.RoleUser, Permissions: []string{auth.PermReadValidators}, IsAuthenticated: true}

	It("denies anonymous callers as not authenticated", func() {
		err := auth.RequirePermission(auth.Anonymous(), auth.PermReadValidators)
		Expect(fault.KindOf(err)).To(Equal(fault.KindNotAuthenticated))

		err = auth.RequireRole(auth.Anonymous(), auth.RoleAdmin)
		Expect(fault.KindOf(err)).To(Equal(fault.KindNotAuthenticated))
	})

	It("denies missing permissions as not authorized", func() {
		Expect(auth.RequirePermission(reader, auth.PermReadValidators)).To(Succeed())

		err := auth.RequirePermission(reader, auth.PermAdminSystem)
		Expect(fault.KindOf(err)).To(Equal(fault.KindNotAuthorized))
	})

	It("checks roles", func() {
		err := auth.RequireRole(reader, auth.RoleAdmin)
		Expect(fault.KindOf(err)).To(Equal(fault.KindNotAuthorized))
		Expect(auth.RequireRole(reader, auth.RoleUser)).To(Succeed())
	})

	It("never grants permissions to an unauthenticated identity", func() {
		id := auth.Identity{Permissions: []string{auth.PermAdminSystem}}
		Expect(id.HasPermission(auth.PermAdminSystem)).To(BeFalse())
	})
})

var _ = Describe("Verifier", func() {
	var v *auth.Verifier

	BeforeEach(func() {
		v = auth.NewVerifier("test-secret")
	})

	It("round-trips a signed identity", func() {
		token, err := v.Sign(auth.Identity{UserID: "u1", Role: auth.RoleAdmin, Permissions: []string{auth.PermAdminSystem}}, time.Hour)
		Expect(err).NotTo(HaveOccurred())

		id, err := v.Verify(token)
		Expect(err).NotTo(HaveOccurred())
		Expect(id.UserID).To(Equal("u1"))
		Expect(id.Role).To(Equal(auth.RoleAdmin))
		Expect(id.IsAuthenticated).To(BeTrue())
		Expect(id.HasPermission(auth.PermAdminSystem)).To(BeTrue())
	})

	It("rejects tokens signed with another secret", func() {
		token, err := auth.NewVerifier("other").Sign(auth.Identity{UserID: "u1"}, time.Hour)
		Expect(err).NotTo(HaveOccurred())

		_, err = v.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects expired tokens", func() {
		token, err := v.Sign(auth.Identity{UserID: "u1"}, -time.Minute)
		Expect(err).NotTo(HaveOccurred())

		_, err = v.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("rejects other signing methods", func() {
		token, err := jwt.NewWithClaims(jwt.SigningMethodHS512, jwt.RegisteredClaims{Subject: "u1"}).SignedString([]byte("test-secret"))
		Expect(err).NotTo(HaveOccurred())

		_, err = v.Verify(token)
		Expect(err).To(MatchError(auth.ErrInvalidToken))
	})

	It("treats malformed headers as anonymous", func() {
		Expect(v.FromHeader("")).To(Equal(auth.Anonymous()))
		Expect(v.FromHeader("Basic abc")).To(Equal(auth.Anonymous()))
		Expect(v.FromHeader("Bearer not-a-jwt")).To(Equal(auth.Anonymous()))
	})

	It("treats everyone as anonymous without a secret", func() {
		none := auth.NewVerifier("")
		Expect(none).To(BeNil())
		Expect(none.FromHeader("Bearer x")).To(Equal(auth.Anonymous()))
	})
})

var _ = Describe("Middleware", func() {
	It("attaches the identity to the request", func() {
		gin.SetMode(gin.TestMode)
		v := auth.NewVerifier("test-secret")
		token, err := v.Sign(auth.Identity{UserID: "u9", Role: auth.RoleUser}, time.Hour)
		Expect(err).NotTo(HaveOccurred())

		var seen auth.Identity
		router := gin.New()
		router.Use(auth.Middleware(v))
		router.GET("/me", func(c *gin.Context) {
			seen = auth.FromGin(c)
			c.Status(http.StatusNoContent)
		})

		req := httptest.NewRequest(http.MethodGet, "/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)

		Expect(w.Code).To(Equal(http.StatusNoContent))
		Expect(seen.UserID).To(Equal("u9"))
		Expect(seen.IsAuthenticated).To(BeTrue())
	})
})
