package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/yourorg/checkout-orchestrator/internal/classifier"
	"github.com/yourorg/checkout-orchestrator/internal/config"
	"github.com/yourorg/checkout-orchestrator/internal/gateway"
	"github.com/yourorg/checkout-orchestrator/internal/gateway/circuitbreaker"
	"github.com/yourorg/checkout-orchestrator/internal/logger"
	"github.com/yourorg/checkout-orchestrator/internal/monitor"
	"github.com/yourorg/checkout-orchestrator/internal/payment"
	"github.com/yourorg/checkout-orchestrator/internal/payment/wallet"
	"github.com/yourorg/checkout-orchestrator/internal/policy"
	"github.com/yourorg/checkout-orchestrator/internal/preset"
	"github.com/yourorg/checkout-orchestrator/internal/redirect"
	"github.com/yourorg/checkout-orchestrator/internal/redirect/callback"
	"github.com/yourorg/checkout-orchestrator/internal/session"
	"github.com/yourorg/checkout-orchestrator/internal/telemetry"
)

const version = "1.0.0"

// app holds the collaborators shared by all commands.
type app struct {
	cfg        *config.Config
	log        logger.Interface
	out        io.Writer
	payments   *payment.Registry
	resolver   *session.Resolver
	classifier *classifier.Classifier
	translate  classifier.Translator

	redirects   *redirect.Registry
	coordinator *redirect.Coordinator
	listener    *callback.Server
	serveErr    chan error

	shutdownTracer telemetry.ShutdownFunc
}

type appOptions struct {
	configFile   string
	messagesFile string
	in           io.Reader
	out          io.Writer
	logOut       io.Writer
	// conn replaces the HTTP connection, for tests.
	conn gateway.Connection
	// initTracer defaults to telemetry.InitTracer.
	initTracer func(ctx context.Context, serviceName, version string, w io.Writer, enabled bool) (telemetry.ShutdownFunc, error)
}

func newApp(ctx context.Context, opts appOptions) (_ *app, err error) {
	cfg, err := config.Load(opts.configFile)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}

	log := logger.New(opts.logOut, logger.Config{Level: cfg.Logger.Level, Format: cfg.Logger.Format})

	initTracer := opts.initTracer
	if initTracer == nil {
		initTracer = telemetry.InitTracer
	}
	shutdown, err := initTracer(ctx, cfg.Telemetry.ServiceName, version, opts.logOut, cfg.Telemetry.Enabled)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize tracing: %w", err)
	}
	defer func() {
		if err == nil {
			return
		}
		if serr := shutdown(ctx); serr != nil {
			log.Warn("tracer shutdown failed", "error", serr)
		}
	}()

	conn := opts.conn
	if conn == nil {
		connOpts := []gateway.ConnectionOption{
			gateway.WithTimeout(cfg.Gateway.Timeout),
			gateway.WithConnectionLogger(log),
		}
		if cfg.Gateway.Breaker.FailureThreshold > 0 {
			connOpts = append(connOpts, gateway.WithBreaker(circuitbreaker.NewCircuitBreaker(circuitbreaker.Config{
				FailureThreshold: cfg.Gateway.Breaker.FailureThreshold,
				ResetTimeout:     cfg.Gateway.Breaker.ResetTimeout,
			})))
		}
		conn = gateway.NewHTTPConnection(connOpts...)
	}

	rules := make([]policy.Rule, 0, len(cfg.Classifier.Rules))
	for _, r := range cfg.Classifier.Rules {
		rules = append(rules, policy.Rule{Name: r.Name, Expression: r.Expression, Route: r.Route})
	}
	enforcer, err := policy.NewEnforcer(rules)
	if err != nil {
		return nil, fmt.Errorf("failed to compile classifier rules: %w", err)
	}

	translate, err := loadMessages(opts.messagesFile)
	if err != nil {
		return nil, err
	}

	execOpts := gateway.ExecutorOptions{UserAgent: cfg.Gateway.UserAgent, Logger: log}
	deps := payment.Deps{Conn: conn, Executor: execOpts, Logger: log, Contract: monitor.OperationResultContract()}
	payments := payment.NewRegistry(deps, wallet.Descriptor(newPromptTokenizer(opts.in, opts.out)))

	return &app{
		cfg:      cfg,
		log:      log,
		out:      opts.out,
		payments: payments,
		resolver: session.NewResolver(conn, payments,
			session.WithContract(monitor.ListResultContract()),
			session.WithExecutorOptions(execOpts),
			session.WithLogger(log),
		),
		classifier:     classifier.New(enforcer, log),
		translate:      translate,
		redirects:      redirect.NewRegistry(),
		shutdownTracer: shutdown,
	}, nil
}

// startRedirects brings up the callback listener and the coordinator that
// presents redirect URLs on the terminal.
func (a *app) startRedirects() error {
	if a.coordinator != nil {
		return nil
	}
	handler := callback.NewRouter(a.redirects, a.cfg.Telemetry.ServiceName, a.log)
	srv, err := callback.Listen(a.cfg.Callback.Addr, handler, a.log)
	if err != nil {
		return fmt.Errorf("failed to start callback listener: %w", err)
	}
	a.listener = srv
	a.serveErr = make(chan error, 1)
	go func() { a.serveErr <- srv.Serve() }()

	baseURL := a.cfg.Callback.BaseURL
	if baseURL == "" {
		baseURL = srv.BaseURL()
	}
	a.coordinator = redirect.NewCoordinator(a.redirects, terminalPresenter{out: a.out}, baseURL, a.log)
	return nil
}

func (a *app) presetService() (*preset.Service, error) {
	if err := a.startRedirects(); err != nil {
		return nil, err
	}
	return preset.NewService(a.resolver, a.payments, a.coordinator,
		preset.WithClassifier(a.classifier),
		preset.WithLogger(a.log),
	), nil
}

func (a *app) close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if a.listener != nil {
		if err := a.listener.Shutdown(ctx); err != nil {
			a.log.Warn("callback listener shutdown failed", "error", err)
		}
		if err := <-a.serveErr; err != nil {
			a.log.Warn("callback listener stopped with an error", "error", err)
		}
	}
	if err := a.shutdownTracer(ctx); err != nil {
		a.log.Warn("tracer shutdown failed", "error", err)
	}
}

// terminalPresenter prints the redirect URL and where it must return to.
type terminalPresenter struct {
	out io.Writer
}

func (p terminalPresenter) Present(_ context.Context, s redirect.Surface) error {
	_, err := fmt.Fprintf(p.out,
		"Open this URL to continue the payment:\n  %s\nThe payment page returns to %s\nTo abandon it, open %s\n",
		s.URL, s.CallbackURL, s.DismissURL)
	return err
}

// promptTokenizer asks the operator for a wallet nonce on the terminal.
type promptTokenizer struct {
	mu  sync.Mutex
	in  *bufio.Reader
	out io.Writer
}

func newPromptTokenizer(in io.Reader, out io.Writer) *promptTokenizer {
	if in == nil {
		in = os.Stdin
	}
	return &promptTokenizer{in: bufio.NewReader(in), out: out}
}

func (t *promptTokenizer) Tokenize(_ context.Context, req wallet.TokenRequest) (string, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	fmt.Fprintf(t.out, "Wallet payment of %s %s (merchant %q).\nEnter the nonce returned by the wallet: ",
		req.Amount, req.CurrencyCode, req.MerchantID)
	line, err := t.in.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", fmt.Errorf("read nonce: %w", err)
	}
	return strings.TrimSpace(line), nil
}

// loadMessages reads a flat JSON object of localization keys. An empty path
// yields no translations.
func loadMessages(path string) (classifier.Translator, error) {
	if path == "" {
		return nil, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read messages: %w", err)
	}
	var messages map[string]string
	if err := json.Unmarshal(data, &messages); err != nil {
		return nil, fmt.Errorf("failed to parse messages %s: %w", path, err)
	}
	return func(key string) string { return messages[key] }, nil
}
