package gateway

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yourorg/checkout-orchestrator/internal/gateway/circuitbreaker"
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/result"
)

// captureConnection records outgoing requests and replays canned answers.
type captureConnection struct {
	mu       sync.Mutex
	requests []*http.Request
	bodies   [][]byte
	respond  func(req *http.Request) ([]byte, error)
}

func (c *captureConnection) Send(ctx context.Context, req *http.Request) ([]byte, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	c.mu.Lock()
	c.requests = append(c.requests, req)
	c.bodies = append(c.bodies, body)
	c.mu.Unlock()
	return c.respond(req)
}

func newTestServer(t *testing.T, status int, body string, check func(r *http.Request)) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if check != nil {
			check(r)
		}
		w.WriteHeader(status)
		_, _ = io.WriteString(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestHTTPConnection_TimeoutLeavesCallerClientAlone(t *testing.T) {
	own := &http.Client{Timeout: time.Minute}
	conn := NewHTTPConnection(WithHTTPClient(own), WithTimeout(2*time.Second))

	assert.Equal(t, time.Minute, own.Timeout)
	assert.Equal(t, 2*time.Second, conn.client.Timeout)
	assert.NotSame(t, own, conn.client)

	assert.Same(t, own, NewHTTPConnection(WithHTTPClient(own)).client)
}

func TestExecutor_ChargeSuccess(t *testing.T) {
	srv := newTestServer(t, http.StatusOK, `{"resultInfo":"Approved","interaction":{"code":"PROCEED","reason":"OK"}}`, func(r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, MediaType, r.Header.Get("Content-Type"))
		assert.Equal(t, MediaType, r.Header.Get("Accept"))
		assert.Equal(t, "merchant-app/1.0", r.Header.Get("User-Agent"))
		body, _ := io.ReadAll(r.Body)
		assert.JSONEq(t, `{"account":{"number":"4111111111111111"},"autoRegistration":true}`, string(body))
	})

	conn := NewHTTPConnection(WithHTTPClient(srv.Client()))
	exec := NewExecutor[model.OperationResult](conn, ExecutorOptions{UserAgent: "merchant-app/1.0"})

	autoReg := true
	charge, err := NewCharge(model.Links{model.LinkOperation: srv.URL + "/charge"}, OperationBody{
		Account:          map[string]string{"number": "4111111111111111"},
		AutoRegistration: &autoReg,
	})
	require.NoError(t, err)

	res, err := exec.Do(context.Background(), charge)
	require.NoError(t, err)
	assert.Equal(t, "Approved", res.ResultInfo)
	assert.Equal(t, interaction.New(interaction.CodeProceed, interaction.ReasonOK), res.Interaction)
}

func TestExecutor_ServerErrorInfoDecoded(t *testing.T) {
	srv := newTestServer(t, http.StatusUnprocessableEntity, `{"resultInfo":"Card declined","interaction":{"code":"RETRY","reason":"INVALID_ACCOUNT"}}`, nil)
	exec := NewExecutor[model.OperationResult](NewHTTPConnection(WithHTTPClient(srv.Client())), ExecutorOptions{})

	charge, err := NewCharge(model.Links{model.LinkOperation: srv.URL}, OperationBody{})
	require.NoError(t, err)

	_, err = exec.Do(context.Background(), charge)
	var info *model.ErrorInfo
	require.ErrorAs(t, err, &info)
	assert.Equal(t, interaction.CodeRetry, info.Interaction.Code)
	assert.Equal(t, "Card declined", info.ResultInfo)
}

func TestExecutor_NonErrorInfoBodyBecomesNetworkingError(t *testing.T) {
	srv := newTestServer(t, http.StatusBadGateway, `upstream unavailable`, nil)
	exec := NewExecutor[model.ListResult](NewHTTPConnection(WithHTTPClient(srv.Client())), ExecutorOptions{})

	_, err := exec.Do(context.Background(), GetListResult{URL: srv.URL})
	var netErr *NetworkingError
	require.ErrorAs(t, err, &netErr)
	assert.Equal(t, "Non-OK response from a server", netErr.Description)
	assert.Equal(t, http.StatusBadGateway, netErr.StatusCode)
	assert.Equal(t, "upstream unavailable", netErr.Body)
}

func TestExecutor_OnSelectPostsEmptyObject(t *testing.T) {
	conn := &captureConnection{respond: func(*http.Request) ([]byte, error) {
		return []byte(`{"resultInfo":"ok","interaction":{"code":"PROCEED","reason":"OK"}}`), nil
	}}
	exec := NewExecutor[model.OperationResult](conn, ExecutorOptions{})
	onSelect, err := NewOnSelect(model.Links{model.LinkOnSelect: "https://gw.example/onselect"})
	require.NoError(t, err)

	_, err = exec.Do(context.Background(), onSelect)
	require.NoError(t, err)
	require.Len(t, conn.requests, 1)
	assert.Equal(t, "https://gw.example/onselect", conn.requests[0].URL.String())
	assert.JSONEq(t, `{}`, string(conn.bodies[0]))
}

func TestExecutor_DecodeFailure(t *testing.T) {
	conn := &captureConnection{respond: func(*http.Request) ([]byte, error) { return []byte(`not json`), nil }}
	exec := NewExecutor[model.ListResult](conn, ExecutorOptions{})

	_, err := exec.Do(context.Background(), GetListResult{URL: "https://gw.example/lists/1"})
	var decodeErr *DecodeError
	require.ErrorAs(t, err, &decodeErr)
	assert.Equal(t, "GetListResult", decodeErr.Request)
}

func TestExecutor_TransportErrorSurfacedAsIs(t *testing.T) {
	transportErr := &net.OpError{Op: "dial", Net: "tcp", Err: syscall.ECONNREFUSED}
	conn := &captureConnection{respond: func(*http.Request) ([]byte, error) { return nil, transportErr }}
	exec := NewExecutor[model.ListResult](conn, ExecutorOptions{})

	_, err := exec.Do(context.Background(), GetListResult{URL: "https://gw.example/lists/1"})
	assert.Same(t, transportErr, err)
	assert.True(t, IsRecoverable(err))
}

func TestExecutor_BuildErrorFailsFast(t *testing.T) {
	conn := &captureConnection{respond: func(*http.Request) ([]byte, error) {
		t.Fatal("connection must not be called")
		return nil, nil
	}}
	exec := NewExecutor[model.ListResult](conn, ExecutorOptions{})

	_, err := exec.Do(context.Background(), GetListResult{})
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
}

func TestExecutor_SingleFlightAndCancel(t *testing.T) {
	release := make(chan struct{})
	conn := &captureConnection{respond: func(req *http.Request) ([]byte, error) {
		select {
		case <-release:
			return []byte(`{"resultInfo":"late","interaction":{"code":"PROCEED","reason":"OK"}}`), nil
		case <-req.Context().Done():
			return nil, req.Context().Err()
		}
	}}
	exec := NewExecutor[model.OperationResult](conn, ExecutorOptions{})
	charge, err := NewCharge(model.Links{model.LinkOperation: "https://gw.example/op"}, OperationBody{})
	require.NoError(t, err)

	fired := make(chan struct{}, 1)
	require.NoError(t, exec.Execute(context.Background(), charge, func(result.Result[model.OperationResult]) {
		fired <- struct{}{}
	}))

	err = exec.Execute(context.Background(), charge, func(result.Result[model.OperationResult]) {})
	assert.ErrorIs(t, err, ErrRequestInFlight)

	exec.Cancel()
	close(release)

	select {
	case <-fired:
		t.Fatal("completion fired after Cancel")
	case <-time.After(100 * time.Millisecond):
	}

	// The executor is reusable once the previous request was cancelled.
	done := make(chan result.Result[model.OperationResult], 1)
	require.NoError(t, exec.Execute(context.Background(), charge, func(r result.Result[model.OperationResult]) { done <- r }))
	select {
	case r := <-done:
		v, err := r.Get()
		require.NoError(t, err)
		assert.Equal(t, "late", v.ResultInfo)
	case <-time.After(2 * time.Second):
		t.Fatal("completion was not delivered")
	}
}

func TestExecutor_DoHonoursContextCancellation(t *testing.T) {
	conn := &captureConnection{respond: func(req *http.Request) ([]byte, error) {
		<-req.Context().Done()
		return nil, req.Context().Err()
	}}
	exec := NewExecutor[model.ListResult](conn, ExecutorOptions{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err := exec.Do(ctx, GetListResult{URL: "https://gw.example/lists/1"})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNewExecutor_PanicsOnNilConnection(t *testing.T) {
	assert.Panics(t, func() { NewExecutor[model.ListResult](nil, ExecutorOptions{}) })
}

func TestRequests_MissingLinksAreBuildErrors(t *testing.T) {
	_, err := NewCharge(model.Links{}, OperationBody{})
	var buildErr *BuildError
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "Charge", buildErr.Request)

	_, err = NewOnSelect(nil)
	require.ErrorAs(t, err, &buildErr)

	_, err = NewDeleteAccount(model.Links{model.LinkOperation: "https://gw.example/op"}, nil)
	require.ErrorAs(t, err, &buildErr)
	assert.Equal(t, "Links.self is missing in account object", buildErr.Reason)

	_, err = Charge{}.Build(context.Background())
	assert.ErrorAs(t, err, &buildErr)
}

func TestOnSelect_FallsBackToOperationLink(t *testing.T) {
	r, err := NewOnSelect(model.Links{model.LinkOperation: "https://gw.example/op"})
	require.NoError(t, err)
	assert.Equal(t, "https://gw.example/op", r.URL())
}

func TestDeleteAccount_NoBodyLeavesScopeToServer(t *testing.T) {
	conn := &captureConnection{respond: func(*http.Request) ([]byte, error) {
		return []byte(`{"resultInfo":"deleted","interaction":{"code":"PROCEED","reason":"OK"}}`), nil
	}}
	exec := NewExecutor[model.OperationResult](conn, ExecutorOptions{})

	del, err := NewDeleteAccount(model.Links{model.LinkSelf: "https://gw.example/accounts/42"}, nil)
	require.NoError(t, err)

	res, err := exec.Do(context.Background(), del)
	require.NoError(t, err)
	assert.Equal(t, "deleted", res.ResultInfo)

	require.Len(t, conn.requests, 1)
	assert.Equal(t, http.MethodDelete, conn.requests[0].Method)
	assert.Empty(t, conn.bodies[0], "no body must be sent when scope is inferred")
	assert.Equal(t, DeletionScope{Recurrence: true}, InferDeletionScope(del.Body(), ChannelRecurring))
}

func TestDeleteAccount_ExplicitBody(t *testing.T) {
	conn := &captureConnection{respond: func(*http.Request) ([]byte, error) {
		return []byte(`{"resultInfo":"deleted","interaction":{"code":"PROCEED","reason":"OK"}}`), nil
	}}
	exec := NewExecutor[model.OperationResult](conn, ExecutorOptions{})
	yes := true
	del, err := NewDeleteAccount(model.Links{model.LinkSelf: "https://gw.example/accounts/42"}, &DeletionBody{DeleteRegistration: &yes, DeleteRecurrence: &yes})
	require.NoError(t, err)

	_, err = exec.Do(context.Background(), del)
	require.NoError(t, err)
	assert.JSONEq(t, `{"deleteRegistration":true,"deleteRecurrence":true}`, string(conn.bodies[0]))
}

func TestInferDeletionScope_Table(t *testing.T) {
	yes, no := true, false
	tests := []struct {
		name    string
		body    *DeletionBody
		channel string
		want    DeletionScope
	}{
		{"absent body, recurring channel", nil, "RECURRING", DeletionScope{Recurrence: true}},
		{"absent body, other channel", nil, "WEB_ORDER", DeletionScope{Registration: true}},
		{"absent body, empty channel", nil, "", DeletionScope{Registration: true}},
		{"registration only", &DeletionBody{DeleteRegistration: &yes}, "RECURRING", DeletionScope{Registration: true}},
		{"recurrence only", &DeletionBody{DeleteRecurrence: &yes, DeleteRegistration: &no}, "", DeletionScope{Recurrence: true}},
		{"both", &DeletionBody{DeleteRegistration: &yes, DeleteRecurrence: &yes}, "", DeletionScope{Registration: true, Recurrence: true}},
		{"empty body", &DeletionBody{}, "RECURRING", DeletionScope{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, InferDeletionScope(tt.body, tt.channel))
		})
	}
}

func TestIsRecoverable(t *testing.T) {
	assert.False(t, IsRecoverable(nil))
	assert.False(t, IsRecoverable(context.Canceled))
	assert.False(t, IsRecoverable(errors.New("bad certificate")))
	assert.False(t, IsRecoverable(&BuildError{Request: "Charge", Reason: "x"}))

	assert.True(t, IsRecoverable(context.DeadlineExceeded))
	assert.True(t, IsRecoverable(io.ErrUnexpectedEOF))
	assert.True(t, IsRecoverable(&net.OpError{Op: "read", Err: syscall.ECONNRESET}))
	assert.True(t, IsRecoverable(&net.OpError{Op: "dial", Err: errors.New("no route")}))
	assert.True(t, IsRecoverable(&net.DNSError{Err: "timeout", IsTimeout: true}))
	assert.True(t, IsRecoverable(ErrCircuitOpen))
}

func TestHTTPConnection_BreakerOpensOnRecoverableFailures(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	addr := srv.URL
	srv.Close() // every dial is refused from now on

	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 2, ResetTimeout: time.Minute})
	conn := NewHTTPConnection(WithBreaker(cb), WithTimeout(time.Second))

	send := func() error {
		req, err := http.NewRequest(http.MethodGet, addr, nil)
		require.NoError(t, err)
		_, err = conn.Send(context.Background(), req)
		return err
	}

	assert.True(t, IsRecoverable(send()))
	assert.True(t, IsRecoverable(send()))

	err := send()
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.True(t, IsRecoverable(err))
}

func TestHTTPConnection_ServerErrorsDoNotTripBreaker(t *testing.T) {
	srv := newTestServer(t, http.StatusInternalServerError, `{}`, nil)
	cb := circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{FailureThreshold: 1})
	conn := NewHTTPConnection(WithHTTPClient(srv.Client()), WithBreaker(cb))

	for i := 0; i < 3; i++ {
		req, err := http.NewRequest(http.MethodGet, srv.URL, nil)
		require.NoError(t, err)
		_, err = conn.Send(context.Background(), req)
		var statusErr *StatusError
		require.ErrorAs(t, err, &statusErr)
		assert.Equal(t, http.StatusInternalServerError, statusErr.StatusCode)
	}
	state, _ := cb.GetHostStatus(srv.Listener.Addr().String())
	assert.Equal(t, circuitbreaker.StateClosed, state)
}
