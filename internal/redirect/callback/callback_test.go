package callback

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/redirect"
)

func setupTestRouter(reg *redirect.Registry) *gin.Engine {
	gin.SetMode(gin.TestMode)
	return NewRouter(reg, "checkout-test", nil)
}

func TestCallback_DeliversURL(t *testing.T) {
	reg := redirect.NewRegistry()
	id, events := reg.Register()
	router := setupTestRouter(reg)

	req := httptest.NewRequest(http.MethodGet, "/callback/"+id+"?interactionCode=PROCEED&interactionReason=OK&resultCode=00000", nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusOK, w.Code)
	var body gin.H
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, "received", body["status"])

	ev := <-events
	require.NotNil(t, ev.URL)
	assert.False(t, ev.Dismissed)
	assert.Equal(t, "http", ev.URL.Scheme)
	assert.Equal(t, "PROCEED", ev.URL.Query().Get("interactionCode"))

	res := redirect.ParseCallback(ev.URL, model.OperationCharge)
	assert.True(t, res.IsSuccess())
}

func TestCallback_UnknownCorrelationID(t *testing.T) {
	router := setupTestRouter(redirect.NewRegistry())

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback/nope?interactionCode=PROCEED", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestCallback_SecondDeliveryIsRejected(t *testing.T) {
	reg := redirect.NewRegistry()
	id, _ := reg.Register()
	router := setupTestRouter(reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodPost, "/dismiss/"+id, nil))
	assert.Equal(t, http.StatusOK, w.Code)

	w = httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/callback/"+id+"?interactionCode=PROCEED&interactionReason=OK", nil))
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestHealthz(t *testing.T) {
	reg := redirect.NewRegistry()
	reg.Register()
	router := setupTestRouter(reg)

	w := httptest.NewRecorder()
	router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"status":"ok","pending":1}`, w.Body.String())
}

// The coordinator, the listener and a real HTTP round-trip agree on the
// callback URL they hand to the presenter.
func TestServer_CoordinatorRoundTrip(t *testing.T) {
	gin.SetMode(gin.TestMode)
	reg := redirect.NewRegistry()
	srv, err := Listen("127.0.0.1:0", NewRouter(reg, "checkout-test", nil), nil)
	require.NoError(t, err)
	go func() { _ = srv.Serve() }()
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	presenter := redirect.PresenterFunc(func(_ context.Context, s redirect.Surface) error {
		go func() {
			resp, err := http.Get(s.CallbackURL + "?interactionCode=PROCEED&interactionReason=OK")
			if err == nil {
				resp.Body.Close()
			}
		}()
		return nil
	})
	coord := redirect.NewCoordinator(reg, presenter, srv.BaseURL(), nil)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	res, err := coord.Open(ctx, "https://acs.example/3ds", model.OperationCharge)
	require.NoError(t, err)
	assert.Equal(t, "PROCEED/OK", res.Interaction().String())
}
