package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	gojwt "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kbukum/scribe/auth/jwt"
	"github.com/kbukum/scribe/component"
	apperrors "github.com/kbukum/scribe/errors"
	"github.com/kbukum/scribe/ingest"
	"github.com/kbukum/scribe/intake"
	"github.com/kbukum/scribe/jobs"
	"github.com/kbukum/scribe/ledger"
	"github.com/kbukum/scribe/logger"
	"github.com/kbukum/scribe/queue"
	"github.com/kbukum/scribe/server/middleware"
	"github.com/kbukum/scribe/supplier"
	"github.com/kbukum/scribe/transcription"
)

const jwtSecret = "0123456789abcdef0123456789abcdef"

type headerSupplier struct{}

func (headerSupplier) Name() string                     { return supplier.NameFast }
func (headerSupplier) IsAvailable(context.Context) bool { return true }
func (headerSupplier) Submit(context.Context, supplier.SubmitRequest) (supplier.Submission, error) {
	return supplier.Submission{}, nil
}
func (headerSupplier) Fetch(context.Context, string) ([]byte, bool, error) { return nil, false, nil }
func (headerSupplier) Decode([]byte) (transcription.Payload, error) {
	return transcription.Payload{}, nil
}
func (headerSupplier) SignatureHeader() string   { return "x-fast-signature" }
func (headerSupplier) Signer() *supplier.Signer { return supplier.NewSigner("") }

type fakeCallbacks struct {
	got ingest.Callback
	err error
}

func (f *fakeCallbacks) HandleCallback(_ context.Context, cb ingest.Callback) error {
	f.got = cb
	return f.err
}

type fakePreparer struct{ got intake.Request }

func (f *fakePreparer) Prepare(_ context.Context, req intake.Request) (intake.Response, error) {
	f.got = req
	return intake.Response{JobID: req.JobID, Status: jobs.StatusProcessing}, nil
}

type fakeQueue struct{ user string }

func (f *fakeQueue) ProcessOne(_ context.Context, userID string) (queue.Result, error) {
	f.user = userID
	return queue.Result{Status: queue.ResultEmpty}, nil
}

type fakeUsage struct{ user, tier string }

func (f *fakeUsage) Usage(_ context.Context, userID, tier string) (ledger.Usage, error) {
	f.user, f.tier = userID, tier
	return ledger.Usage{SubscriptionTotal: 600, Remaining: 600}, nil
}

type fixture struct {
	engine    *gin.Engine
	jwt       *jwt.Service[*jwt.Claims]
	callbacks *fakeCallbacks
	preparer  *fakePreparer
	queue     *fakeQueue
	usage     *fakeUsage
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc, err := jwt.NewService(jwt.Config{Secret: jwtSecret, Issuer: "billing"}, func() *jwt.Claims { return &jwt.Claims{} })
	require.NoError(t, err)

	f := &fixture{
		engine:    gin.New(),
		jwt:       svc,
		callbacks: &fakeCallbacks{},
		preparer:  &fakePreparer{},
		queue:     &fakeQueue{},
		usage:     &fakeUsage{},
	}
	New(Deps{
		Suppliers:   supplier.NewSet(headerSupplier{}),
		Callbacks:   f.callbacks,
		Intake:      f.preparer,
		Queue:       f.queue,
		Usage:       f.usage,
		Auth:        middleware.Auth(TokenValidator(svc)),
		ServiceName: "scribe",
		Health: func(context.Context) []component.Health {
			return []component.Health{{Name: "database", Status: component.StatusHealthy}}
		},
		Log: logger.NewNop(),
	}).Register(f.engine)
	return f
}

func (f *fixture) token(t *testing.T, subject, role, tier string) string {
	t.Helper()
	tok, err := f.jwt.Generate(&jwt.Claims{
		RegisteredClaims: gojwt.RegisteredClaims{Subject: subject},
		Role:             role,
		Tier:             tier,
	})
	require.NoError(t, err)
	return tok
}

func (f *fixture) do(req *http.Request) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	f.engine.ServeHTTP(w, req)
	return w
}

func TestCallback(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/callback/fast?job_id=j1&cb_sig=abc", strings.NewReader(`{"transcript":"hi"}`))
	req.Header.Set("x-fast-signature", "sha256=beef")

	w := f.do(req)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"ok":true}`, w.Body.String())
	assert.Equal(t, ingest.Callback{
		Supplier: "fast", JobID: "j1", Body: []byte(`{"transcript":"hi"}`), Signature: "sha256=beef", Token: "abc",
	}, f.callbacks.got)
}

func TestCallback_Errors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"bad signature", apperrors.SignatureInvalid("fast"), http.StatusUnauthorized},
		{"unknown job", apperrors.NotFound("job", "j1"), http.StatusNotFound},
		{"processing failure", apperrors.Internal(assert.AnError), http.StatusInternalServerError},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			f := newFixture(t)
			f.callbacks.err = tc.err
			w := f.do(httptest.NewRequest(http.MethodPost, "/callback/fast?job_id=j1", strings.NewReader(`{}`)))
			assert.Equal(t, tc.want, w.Code)

			var body map[string]any
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Contains(t, body, "error")
		})
	}
}

func TestPrepare_RequiresIntakeRole(t *testing.T) {
	f := newFixture(t)
	payload := `{"job_id":"j1","user_id":"u1","source_type":"direct_url","source_url":"https://x/a.mp3","user_tier":"free"}`

	w := f.do(httptest.NewRequest(http.MethodPost, "/jobs/prepare", strings.NewReader(payload)))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	req := httptest.NewRequest(http.MethodPost, "/jobs/prepare", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+f.token(t, "u1", jwt.RoleUser, "free"))
	assert.Equal(t, http.StatusForbidden, f.do(req).Code)

	req = httptest.NewRequest(http.MethodPost, "/jobs/prepare", strings.NewReader(payload))
	req.Header.Set("Authorization", "Bearer "+f.token(t, "", jwt.RoleIntake, ""))
	w = f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "j1", f.preparer.got.JobID)
	assert.Equal(t, jobs.TierFree, f.preparer.got.Tier)

	var resp struct {
		Data intake.Response `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, jobs.StatusProcessing, resp.Data.Status)
}

func TestPrepare_BadBody(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/jobs/prepare", strings.NewReader(`{`))
	req.Header.Set("Authorization", "Bearer "+f.token(t, "", jwt.RoleIntake, ""))
	assert.Equal(t, http.StatusBadRequest, f.do(req).Code)
}

func TestProcessOne(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodPost, "/process-one", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "u7", jwt.RoleUser, "paid"))

	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u7", f.queue.user)
	assert.JSONEq(t, `{"data":{"status":"empty"}}`, w.Body.String())
}

func TestUsage(t *testing.T) {
	f := newFixture(t)
	req := httptest.NewRequest(http.MethodGet, "/usage", nil)
	req.Header.Set("Authorization", "Bearer "+f.token(t, "u7", jwt.RoleUser, ""))

	w := f.do(req)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "u7", f.usage.user)
	assert.Equal(t, "free", f.usage.tier)

	var resp struct {
		Data map[string]any `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.EqualValues(t, 600, resp.Data["subscriptionTotal"])
	assert.Contains(t, resp.Data, "isUnlimited")
}

func TestHealth(t *testing.T) {
	f := newFixture(t)
	w := f.do(httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"database"`)
}
