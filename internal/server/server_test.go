package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/Veraticus/fieldwise/internal/attom"
	"github.com/Veraticus/fieldwise/internal/certs"
	"github.com/Veraticus/fieldwise/internal/common"
	"github.com/Veraticus/fieldwise/internal/enrich"
	"github.com/Veraticus/fieldwise/internal/eventlog"
	"github.com/Veraticus/fieldwise/internal/fields"
	"github.com/Veraticus/fieldwise/internal/jobber"
	"github.com/Veraticus/fieldwise/internal/model"
	"github.com/Veraticus/fieldwise/internal/storage"
	"github.com/Veraticus/fieldwise/internal/testutil"
	"github.com/Veraticus/fieldwise/internal/webhook"
)

const (
	testSessionSecret = "0123456789abcdef0123456789abcdef"
	testWebhookSecret = "client-secret"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type fakeAuth struct {
	exchangeErr error
	token       string
}

func (f *fakeAuth) AuthCodeURL(state string) string {
	return "https://platform.test/authorize?state=" + url.QueryEscape(state)
}

func (f *fakeAuth) Exchange(_ context.Context, code string) (*oauth2.Token, error) {
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	return &oauth2.Token{AccessToken: f.token + "-" + code}, nil
}

type fakeProvisioner struct {
	credentials []string
	mu          sync.Mutex
}

func (f *fakeProvisioner) ProvisionAsync(credential string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.credentials = append(f.credentials, credential)
}

func (f *fakeProvisioner) State(_ context.Context, _ string) model.ProvisioningState {
	return model.StateProvisioned
}

type fakeReceiver struct {
	deliveries []webhook.Delivery
	mu         sync.Mutex
}

func (f *fakeReceiver) Accept(d webhook.Delivery) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.deliveries = append(f.deliveries, d)
	return "delivery-1"
}

type harness struct {
	t           *testing.T
	server      *Server
	store       *storage.SQLiteStorage
	platform    *jobber.MockClient
	auth        *fakeAuth
	provisioner *fakeProvisioner
	receiver    *fakeReceiver
	events      *eventlog.Log
	cookies     []*http.Cookie
}

func newHarness(t *testing.T, verify bool) *harness {
	t.Helper()
	h := &harness{
		t:           t,
		store:       testutil.SetupTestStore(t),
		platform:    jobber.NewMockClient(),
		auth:        &fakeAuth{token: "access"},
		provisioner: &fakeProvisioner{},
		receiver:    &fakeReceiver{},
		events:      eventlog.New(10),
	}
	h.platform.AccountFn = func(_ context.Context, _ string) (*model.PlatformAccount, error) {
		return &model.PlatformAccount{ID: "acct-1", Industry: "HVAC"}, nil
	}

	srv, err := New(Options{
		Auth:             h.auth,
		Store:            h.store,
		Platform:         h.platform,
		Provisioner:      h.provisioner,
		Receiver:         h.receiver,
		Events:           h.events,
		SessionSecret:    testSessionSecret,
		WebhookSecret:    testWebhookSecret,
		VerifySignatures: verify,
	})
	require.NoError(t, err)
	h.server = srv
	return h
}

func (h *harness) do(method, target string, body []byte, headers map[string]string) *httptest.ResponseRecorder {
	h.t.Helper()
	req := httptest.NewRequest(method, target, bytes.NewReader(body))
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	for _, c := range h.cookies {
		req.AddCookie(c)
	}

	w := httptest.NewRecorder()
	h.server.Handler().ServeHTTP(w, req)

	if set := w.Result().Cookies(); len(set) > 0 {
		h.cookies = set
	}
	return w
}

// login runs the OAuth round trip and returns the callback response.
func (h *harness) login() *httptest.ResponseRecorder {
	h.t.Helper()
	w := h.do(http.MethodGet, "/auth/login", nil, nil)
	require.Equal(h.t, http.StatusFound, w.Code)

	location, err := url.Parse(w.Header().Get("Location"))
	require.NoError(h.t, err)
	state := location.Query().Get("state")
	require.NotEmpty(h.t, state)

	return h.do(http.MethodGet, "/auth/callback?code=abc&state="+url.QueryEscape(state), nil, nil)
}

func decode(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out))
	return out
}

func TestNew_RequiresCollaborators(t *testing.T) {
	_, err := New(Options{})
	assert.ErrorIs(t, err, common.ErrMissingConfig)
}

func TestHealthz(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodGet, "/healthz", nil, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "ok", decode(t, w)["status"])
}

func TestOAuthRoundTrip(t *testing.T) {
	h := newHarness(t, false)

	w := h.login()
	assert.Equal(t, http.StatusFound, w.Code)
	assert.Equal(t, "/", w.Header().Get("Location"))
	assert.Equal(t, []string{"access-abc"}, h.provisioner.credentials)
	assert.Equal(t, []string{"access-abc"}, h.platform.AccountCalls)

	testutil.SeedAccount(t, h.store, "acct-1", model.SetCredential("access-abc"))

	status := decode(t, h.do(http.MethodGet, "/api/auth/status", nil, nil))
	assert.Equal(t, true, status["authenticated"])
	assert.Equal(t, "acct-1", status["accountId"])
	assert.Equal(t, string(model.StateProvisioned), status["state"])
}

func TestCallback_RejectsBadState(t *testing.T) {
	h := newHarness(t, false)
	h.do(http.MethodGet, "/auth/login", nil, nil)

	w := h.do(http.MethodGet, "/auth/callback?code=abc&state=forged", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, h.provisioner.credentials)
}

func TestCallback_MissingCode(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodGet, "/auth/callback", nil, nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCallback_ExchangeFails(t *testing.T) {
	h := newHarness(t, false)
	h.auth.exchangeErr = errors.New("invalid_grant")

	w := h.login()
	assert.Equal(t, http.StatusBadGateway, w.Code)
	assert.Empty(t, h.provisioner.credentials)
}

func TestStatus_Anonymous(t *testing.T) {
	h := newHarness(t, false)
	status := decode(t, h.do(http.MethodGet, "/api/auth/status", nil, nil))
	assert.Equal(t, false, status["authenticated"])
}

func TestLogout_ClearsCredentialKeepsMapping(t *testing.T) {
	h := newHarness(t, false)
	h.login()
	update := model.SetCredential("access-abc")
	update.FieldMapping = map[model.FieldKey]string{fields.YearBuilt: "cf-1"}
	testutil.SeedAccount(t, h.store, "acct-1", update)

	w := h.do(http.MethodPost, "/api/auth/logout", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	account := testutil.MustGetAccount(t, h.store, "acct-1")
	assert.False(t, account.Connected())
	assert.Equal(t, "cf-1", account.FieldMapping[fields.YearBuilt])

	status := decode(t, h.do(http.MethodGet, "/api/auth/status", nil, nil))
	assert.Equal(t, false, status["authenticated"])
}

func TestDisconnect(t *testing.T) {
	h := newHarness(t, false)
	h.login()
	testutil.SeedAccount(t, h.store, "acct-1", model.SetCredential("access-abc"))

	w := h.do(http.MethodPost, "/api/auth/disconnect", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	assert.Equal(t, []string{"access-abc"}, h.platform.DisconnectCalls)
	assert.False(t, testutil.MustGetAccount(t, h.store, "acct-1").Connected())
}

func TestDisconnect_Unauthenticated(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodPost, "/api/auth/disconnect", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestWebhook_AcknowledgesAndHandsOff(t *testing.T) {
	h := newHarness(t, false)
	body := []byte(`{"itemId":"prop-1","accountId":"acct-1"}`)

	w := h.do(http.MethodPost, "/webhooks/property", body, map[string]string{
		"Content-Type":          "application/json",
		webhook.SignatureHeader: "unchecked",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, true, decode(t, w)["received"])
	require.Len(t, h.receiver.deliveries, 1)
	d := h.receiver.deliveries[0]
	assert.Equal(t, model.TopicPropertyCreate, d.DefaultTopic)
	assert.Equal(t, body, d.Body)
	assert.Equal(t, "application/json", d.Headers.ContentType)
	assert.Equal(t, "unchecked", d.Headers.Signature)
	assert.False(t, d.ReceivedAt.IsZero(), "receipt time taken by the handler")
}

func TestWebhook_DefaultTopicsPerRoute(t *testing.T) {
	h := newHarness(t, false)
	h.do(http.MethodPost, "/webhooks", []byte(`{}`), nil)
	h.do(http.MethodPost, "/webhooks/disconnect", []byte(`{}`), nil)

	require.Len(t, h.receiver.deliveries, 2)
	assert.Equal(t, "", h.receiver.deliveries[0].DefaultTopic)
	assert.Equal(t, model.TopicAppDisconnect, h.receiver.deliveries[1].DefaultTopic)
}

func TestWebhook_SignatureVerification(t *testing.T) {
	h := newHarness(t, true)
	body := []byte(`{"data":{"webHookEvent":{"topic":"PROPERTY_CREATE","accountId":"acct-1","itemId":"prop-1"}}}`)

	w := h.do(http.MethodPost, "/webhooks", body, map[string]string{webhook.SignatureHeader: "bogus"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Empty(t, h.receiver.deliveries)

	w = h.do(http.MethodPost, "/webhooks", body, map[string]string{webhook.SignatureHeader: webhook.Sign(testWebhookSecret, body)})
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Len(t, h.receiver.deliveries, 1)
}

func TestEvents_ListAndClear(t *testing.T) {
	h := newHarness(t, false)
	h.events.Append(model.WebhookEvent{Topic: model.TopicPropertyCreate, DeliveryID: "d-1"})
	h.events.Append(model.WebhookEvent{Topic: model.TopicAppDisconnect, DeliveryID: "d-2"})

	w := h.do(http.MethodGet, "/api/webhooks/events", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Events []model.WebhookEvent `json:"events"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Events, 2)
	assert.Equal(t, "d-2", resp.Events[0].DeliveryID, "most recent first")

	w = h.do(http.MethodDelete, "/api/webhooks/events", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, h.events.Len())
}

func TestAccount(t *testing.T) {
	h := newHarness(t, false)
	h.login()

	category := model.Category("HVAC")
	update := model.SetCredential("access-abc")
	update.Category = &category
	update.FieldMapping = map[model.FieldKey]string{
		fields.YearBuilt:    "cf-year",
		fields.BuildingSize: "cf-size",
	}
	testutil.SeedAccount(t, h.store, "acct-1", update)

	w := h.do(http.MethodGet, "/api/accounts/acct-1", nil, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var resp accountResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "acct-1", resp.ID)
	assert.Equal(t, category, resp.Category)
	assert.True(t, resp.Connected)
	require.Len(t, resp.Fields, 2)
	assert.Equal(t, fields.YearBuilt, resp.Fields[0].Key)
	assert.Equal(t, "Building Size", resp.Fields[1].Label)

	w = h.do(http.MethodGet, "/api/accounts/acct-2", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestAccount_RequiresSession(t *testing.T) {
	h := newHarness(t, false)
	w := h.do(http.MethodGet, "/api/accounts/acct-1", nil, nil)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

// End to end: the HTTP ack returns before enrichment finishes, and the event
// log reflects the write-back afterwards.
func TestWebhook_EndToEnd(t *testing.T) {
	store := testutil.SetupTestStore(t)
	category := model.Category("LAWN_CARE_AND_LAWN_MAINTENANCE")
	update := model.SetCredential("token-1")
	update.Category = &category
	update.FieldMapping = map[model.FieldKey]string{
		fields.LotSize:      "cf-lot",
		fields.PropertyType: "cf-type",
		fields.Zoning:       "cf-zoning",
	}
	testutil.SeedAccount(t, store, "acct-1", update)

	platform := jobber.NewMockClient()
	platform.PropertyFn = func(_ context.Context, _, id string) (*model.PropertyDetails, error) {
		return &model.PropertyDetails{ID: id, Address: testutil.SpringfieldAddress()}, nil
	}

	release := make(chan struct{})
	lookup := attom.NewMockClient()
	lookup.LookupFn = func(_ context.Context, _ model.AddressLines) (*model.PropertyAttributes, error) {
		<-release
		return testutil.LawnProperty(), nil
	}

	events := eventlog.New(10)
	receiver := webhook.NewReceiver(enrich.New(store, platform, lookup), store, events, 5*time.Second)

	srv, err := New(Options{
		Auth:          &fakeAuth{},
		Store:         store,
		Platform:      platform,
		Provisioner:   &fakeProvisioner{},
		Receiver:      receiver,
		Events:        events,
		SessionSecret: testSessionSecret,
	})
	require.NoError(t, err)

	req := httptest.NewRequest(http.MethodPost, "/webhooks/property",
		strings.NewReader(`{"data":{"webHookEvent":{"topic":"PROPERTY_CREATE","accountId":"acct-1","itemId":"prop-1"}}}`))
	w := httptest.NewRecorder()
	srv.Handler().ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, 0, events.Len(), "acknowledged before processing")

	close(release)
	receiver.Wait()

	list := events.List()
	require.Len(t, list, 1)
	assert.Equal(t, 2, list[0].FieldsWritten)

	updates := platform.Updates()
	require.Len(t, updates, 1)
	assert.Equal(t, []model.FieldValue{
		{Key: fields.PropertyType, FieldID: "cf-type", Value: "RESIDENTIAL"},
		{Key: fields.LotSize, FieldID: "cf-lot", Value: "5000 sq ft"},
	}, updates[0].Values)
}

func TestRun_ShutsDownOnCancel(t *testing.T) {
	h := newHarness(t, false)
	cert, err := certs.Localhost(t.TempDir())
	require.NoError(t, err)
	h.server.opts.TLSCertificate = &cert

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- h.server.Run(ctx, "127.0.0.1:0") }()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestRun_ListenFailure(t *testing.T) {
	h := newHarness(t, false)
	err := h.server.Run(context.Background(), "256.0.0.1:bad")
	assert.Error(t, err)
}
