// internal/middleware/middleware_test.go
package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/suite"

	"github.com/javajoker/storefront/internal/models"
	"github.com/javajoker/storefront/internal/utils"
)

type recordingAudit struct {
	mu      sync.Mutex
	entries []*models.AuditLog
	saved   chan struct{}
}

func (r *recordingAudit) RecordAudit(ctx context.Context, entry *models.AuditLog) error {
	r.mu.Lock()
	r.entries = append(r.entries, entry)
	r.mu.Unlock()
	r.saved <- struct{}{}
	return nil
}

type MiddlewareTestSuite struct {
	suite.Suite
}

func (suite *MiddlewareTestSuite) SetupSuite() {
	gin.SetMode(gin.TestMode)
	utils.SetJWTSecret("middleware-test-secret")
}

func (suite *MiddlewareTestSuite) serve(r *gin.Engine, req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func whoami(c *gin.Context) {
	identity, _ := utils.GetIdentityFromContext(c)
	c.JSON(http.StatusOK, identity)
}

func (suite *MiddlewareTestSuite) TestAuthRequiredSetsIdentity() {
	r := gin.New()
	r.GET("/me", AuthRequired(), whoami)

	token, err := utils.GenerateJWT("u1", "u1@example.com", "Uma", "customer", 1)
	suite.Require().NoError(err)

	req := httptest.NewRequest("GET", "/me", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	w := suite.serve(r, req)

	assert.Equal(suite.T(), http.StatusOK, w.Code)
	assert.Contains(suite.T(), w.Body.String(), `"email":"u1@example.com"`)
	assert.Contains(suite.T(), w.Body.String(), `"display_name":"Uma"`)
}

func (suite *MiddlewareTestSuite) TestAuthRequiredRejects() {
	r := gin.New()
	r.GET("/me", AuthRequired(), whoami)

	cases := map[string]string{
		"missing":   "",
		"malformed": "Token abc",
		"invalid":   "Bearer not-a-jwt",
	}
	for name, header := range cases {
		req := httptest.NewRequest("GET", "/me", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := suite.serve(r, req)
		assert.Equal(suite.T(), http.StatusUnauthorized, w.Code, name)
	}
}

func (suite *MiddlewareTestSuite) TestQueryTokenOnlyForWebsockets() {
	r := gin.New()
	r.GET("/me", AuthRequired(), whoami)

	token, err := utils.GenerateJWT("u1", "u1@example.com", "", "customer", 1)
	suite.Require().NoError(err)

	plain := httptest.NewRequest("GET", "/me?token="+token, nil)
	assert.Equal(suite.T(), http.StatusUnauthorized, suite.serve(r, plain).Code)

	upgrade := httptest.NewRequest("GET", "/me?token="+token, nil)
	upgrade.Header.Set("Connection", "Upgrade")
	upgrade.Header.Set("Upgrade", "websocket")
	assert.Equal(suite.T(), http.StatusOK, suite.serve(r, upgrade).Code)
}

func (suite *MiddlewareTestSuite) TestAdminRequired() {
	r := gin.New()
	r.GET("/admin", AuthRequired(), AdminRequired(), whoami)

	for role, want := range map[string]int{"customer": http.StatusForbidden, "admin": http.StatusOK} {
		token, err := utils.GenerateJWT("u-"+role, role+"@example.com", "", role, 1)
		suite.Require().NoError(err)

		req := httptest.NewRequest("GET", "/admin", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		assert.Equal(suite.T(), want, suite.serve(r, req).Code, role)
	}
}

func (suite *MiddlewareTestSuite) TestResolveLanguage() {
	assert.Equal(suite.T(), "zh_TW", resolveLanguage("zh-TW,zh;q=0.9,en;q=0.8"))
	assert.Equal(suite.T(), "en", resolveLanguage("fr-FR,en;q=0.5"))
	assert.Equal(suite.T(), "en", resolveLanguage("de"))
	assert.Equal(suite.T(), "en", resolveLanguage(""))
}

func (suite *MiddlewareTestSuite) TestRateLimiterPerClient() {
	limiter := PerMinute(60, 2)
	r := gin.New()
	r.Use(limiter.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	request := func(ip string) int {
		req := httptest.NewRequest("GET", "/ping", nil)
		req.RemoteAddr = ip + ":1234"
		return suite.serve(r, req).Code
	}

	assert.Equal(suite.T(), http.StatusNoContent, request("10.0.0.1"))
	assert.Equal(suite.T(), http.StatusNoContent, request("10.0.0.1"))
	assert.Equal(suite.T(), http.StatusTooManyRequests, request("10.0.0.1"))
	assert.Equal(suite.T(), http.StatusNoContent, request("10.0.0.2"))
}

func (suite *MiddlewareTestSuite) TestRateLimiterEvictsIdleVisitors() {
	limiter := PerMinute(60, 1)
	limiter.getVisitor("old")

	limiter.evict(time.Now().Add(visitorTTL + time.Second))

	limiter.mtx.Lock()
	defer limiter.mtx.Unlock()
	assert.Empty(suite.T(), limiter.visitors)
}

func (suite *MiddlewareTestSuite) TestAuditLogRedactsSecrets() {
	recorder := &recordingAudit{saved: make(chan struct{}, 1)}
	r := gin.New()
	r.Use(AuditLogMiddleware(recorder))
	r.POST("/v1/admin/orders/:id/cancel", func(c *gin.Context) {
		c.Set("user_id", "admin-1")
		c.Status(http.StatusOK)
	})
	r.GET("/v1/cart", func(c *gin.Context) { c.Status(http.StatusOK) })

	body := `{"reason":"fraud","password":"hunter2","payment":{"card_number":"4242"}}`
	req := httptest.NewRequest("POST", "/v1/admin/orders/ord-7/cancel", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	suite.serve(r, req)

	select {
	case <-recorder.saved:
	case <-time.After(time.Second):
		suite.FailNow("audit entry not recorded")
	}

	recorder.mu.Lock()
	defer recorder.mu.Unlock()
	suite.Require().Len(recorder.entries, 1)
	entry := recorder.entries[0]
	assert.Equal(suite.T(), "admin-1", entry.UserID)
	assert.Equal(suite.T(), "POST /v1/admin/orders/:id/cancel", entry.Action)
	assert.Equal(suite.T(), "orders", entry.ResourceType)
	assert.Equal(suite.T(), "ord-7", entry.ResourceID)
	assert.Equal(suite.T(), http.StatusOK, entry.Status)
	assert.Equal(suite.T(), "fraud", entry.NewValues["reason"])
	assert.Equal(suite.T(), redacted, entry.NewValues["password"])
	assert.Equal(suite.T(), redacted, entry.NewValues["payment"].(map[string]interface{})["card_number"])

	// reads are not audited
	suite.serve(r, httptest.NewRequest("GET", "/v1/cart", nil))
	select {
	case <-recorder.saved:
		suite.Fail("GET request was audited")
	case <-time.After(50 * time.Millisecond):
	}
}

func (suite *MiddlewareTestSuite) TestRedactWalksArrays() {
	body := map[string]interface{}{
		"note": "gift",
		"payments": []interface{}{
			map[string]interface{}{"card_number": "4242", "amount": "10.00"},
			[]interface{}{map[string]interface{}{"api_token": "t-1"}},
			"plain",
		},
	}

	redact(body)

	payments := body["payments"].([]interface{})
	first := payments[0].(map[string]interface{})
	assert.Equal(suite.T(), redacted, first["card_number"])
	assert.Equal(suite.T(), "10.00", first["amount"])
	nested := payments[1].([]interface{})[0].(map[string]interface{})
	assert.Equal(suite.T(), redacted, nested["api_token"])
	assert.Equal(suite.T(), "plain", payments[2])
	assert.Equal(suite.T(), "gift", body["note"])
}

func TestMiddlewareSuite(t *testing.T) {
	suite.Run(t, new(MiddlewareTestSuite))
}
