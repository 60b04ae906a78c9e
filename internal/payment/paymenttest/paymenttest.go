// Package paymenttest provides stub services and a scripted gateway
// connection for tests of code that drives payment services.
package paymenttest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"

	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/interaction"
	"github.com/yourorg/checkout-orchestrator/internal/model"
	"github.com/yourorg/checkout-orchestrator/internal/payment"
)

// StubService is a payment.Service whose behaviour is set per test.
// Without SendFunc or DeleteFunc it answers PROCEED/OK.
type StubService struct {
	Name       string
	SendFunc   func(ctx context.Context, req payment.OperationRequest) payment.Outcome
	DeleteFunc func(ctx context.Context, req payment.DeletionRequest) payment.Outcome

	mu        sync.Mutex
	sent      []payment.OperationRequest
	deletions []payment.DeletionRequest
}

func NewStubService(name string) *StubService {
	return &StubService{Name: name}
}

func (s *StubService) Send(ctx context.Context, req payment.OperationRequest) payment.Outcome {
	s.mu.Lock()
	s.sent = append(s.sent, req)
	s.mu.Unlock()
	if s.SendFunc != nil {
		return s.SendFunc(ctx, req)
	}
	return Proceed(fmt.Sprintf("%s processed %s", s.Name, req.NetworkCode))
}

func (s *StubService) Delete(ctx context.Context, req payment.DeletionRequest) payment.Outcome {
	s.mu.Lock()
	s.deletions = append(s.deletions, req)
	s.mu.Unlock()
	if s.DeleteFunc != nil {
		return s.DeleteFunc(ctx, req)
	}
	return Proceed("deleted")
}

// Sent returns a copy of every request passed to Send.
func (s *StubService) Sent() []payment.OperationRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.OperationRequest(nil), s.sent...)
}

func (s *StubService) Deletions() []payment.DeletionRequest {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]payment.DeletionRequest(nil), s.deletions...)
}

// Descriptor registers s for networks accepted by supports. Every
// CreateService call returns the same stub.
func (s *StubService) Descriptor(supports payment.SupportFunc) payment.ServiceDescriptor {
	return payment.ServiceDescriptor{
		Name:     s.Name,
		Supports: supports,
		New:      func(payment.Deps) payment.Service { return s },
	}
}

// Proceed is a PROCEED/OK success outcome.
func Proceed(info string) payment.Outcome {
	return payment.Outcome{Result: model.Success(model.OperationResult{
		ResultInfo:  info,
		Interaction: interaction.New(interaction.CodeProceed, interaction.ReasonOK),
	})}
}

// Fail is a failure outcome with the given interaction.
func Fail(code interaction.Code, reason interaction.Reason, info string) payment.Outcome {
	return payment.Outcome{Result: model.Failure(model.NewErrorInfo(info, interaction.New(code, reason), nil))}
}

// Exchange is one scripted gateway answer.
type Exchange struct {
	Body []byte
	Err  error
}

// Call is one recorded request.
type Call struct {
	Method string
	URL    string
	Header http.Header
	Body   []byte
}

// Connection answers requests by URL. Unscripted URLs fail.
type Connection struct {
	mu     sync.Mutex
	routes map[string][]Exchange
	calls  []Call
}

func NewConnection() *Connection {
	return &Connection{routes: make(map[string][]Exchange)}
}

// On queues answers for url. The last answer repeats once the queue drains.
func (c *Connection) On(url string, answers ...Exchange) *Connection {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.routes[url] = append(c.routes[url], answers...)
	return c
}

// OnJSON queues a successful JSON body for url.
func (c *Connection) OnJSON(url, body string) *Connection {
	return c.On(url, Exchange{Body: []byte(body)})
}

// OnStatus queues a non-OK gateway response for url.
func (c *Connection) OnStatus(url string, status int, body string) *Connection {
	return c.On(url, Exchange{Err: &gateway.StatusError{StatusCode: status, Body: []byte(body)}})
}

func (c *Connection) Send(ctx context.Context, req *http.Request) ([]byte, error) {
	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	url := req.URL.String()

	c.mu.Lock()
	c.calls = append(c.calls, Call{Method: req.Method, URL: url, Header: req.Header.Clone(), Body: body})
	queue := c.routes[url]
	var ex Exchange
	found := len(queue) > 0
	if found {
		ex = queue[0]
		if len(queue) > 1 {
			c.routes[url] = queue[1:]
		}
	}
	c.mu.Unlock()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("paymenttest: no answer scripted for %s %s", req.Method, url)
	}
	return ex.Body, ex.Err
}

// Calls returns the recorded requests in order.
func (c *Connection) Calls() []Call {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]Call(nil), c.calls...)
}
