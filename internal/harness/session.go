package harness

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/google/uuid"

	"github.com/roach88/crosscheck/internal/apiclient"
	"github.com/roach88/crosscheck/internal/auth"
	"github.com/roach88/crosscheck/internal/config"
	"github.com/roach88/crosscheck/internal/store"
	"github.com/roach88/crosscheck/internal/testutil"
)

// RunIDGenerator produces the ID that tags a run's log lines.
type RunIDGenerator interface {
	Generate() string
}

// UUIDv7Generator generates time-sortable run IDs.
type UUIDv7Generator struct{}

// Generate returns a new UUIDv7 string.
func (UUIDv7Generator) Generate() string {
	return uuid.Must(uuid.NewV7()).String()
}

// Session is the state shared by every check of a run: one token, one
// database connection, one HTTP client.
//
// A Session is not safe for concurrent use. Checks run one at a time so
// they all observe the same database session.
type Session struct {
	RunID  string
	Token  auth.Token
	Store  *store.Store
	HTTP   *http.Client
	Logger *slog.Logger

	seq   *testutil.Sequence
	trace []TraceEvent
}

// Option customizes Open.
type Option func(*openOptions)

type openOptions struct {
	runIDs RunIDGenerator
	http   *http.Client
}

// WithRunIDGenerator overrides UUIDv7 run IDs.
func WithRunIDGenerator(g RunIDGenerator) Option {
	return func(o *openOptions) { o.runIDs = g }
}

// WithHTTPClient overrides the HTTP client used for authentication and checks.
func WithHTTPClient(c *http.Client) Option {
	return func(o *openOptions) { o.http = c }
}

// Open authenticates and pins the database connection. Failures are
// returned as *SetupError; nothing is left open on error.
func Open(ctx context.Context, cfg config.Config, logger *slog.Logger, opts ...Option) (*Session, error) {
	o := openOptions{runIDs: UUIDv7Generator{}}
	for _, opt := range opts {
		opt(&o)
	}
	if o.http == nil {
		o.http = &http.Client{Timeout: cfg.HTTP.Timeout()}
	}

	runID := o.runIDs.Generate()
	logger = logger.With("run_id", runID)

	tok, err := auth.New(cfg.Auth, o.http, logger).Authenticate(ctx)
	if err != nil {
		return nil, &SetupError{Kind: SetupAuth, Err: err}
	}

	logger.Info("opening database", "driver", cfg.Database.Driver)
	st, err := store.Open(ctx, cfg.Database)
	if err != nil {
		return nil, &SetupError{Kind: SetupDatabase, Err: err}
	}

	s := NewSession(tok, st, o.http, logger)
	s.RunID = runID
	return s, nil
}

// NewSession assembles a Session from parts that are already set up.
func NewSession(tok auth.Token, st *store.Store, client *http.Client, logger *slog.Logger) *Session {
	if client == nil {
		client = http.DefaultClient
	}
	return &Session{
		Token:  tok,
		Store:  st,
		HTTP:   client,
		Logger: logger,
		seq:    testutil.NewSequence(),
	}
}

// Close releases the database connection.
func (s *Session) Close() error {
	if s.Store == nil {
		return nil
	}
	return s.Store.Close()
}

// Ping verifies the pinned connection still answers.
func (s *Session) Ping(ctx context.Context) error {
	if err := s.Store.Ping(ctx); err != nil {
		return &SetupError{Kind: SetupDatabase, Err: err}
	}
	return nil
}

func (s *Session) client(t Target) *apiclient.Client {
	return &apiclient.Client{BaseURL: t.BaseURL, Token: s.Token.Value, HTTPClient: s.HTTP}
}

func (s *Session) record(ev TraceEvent) {
	ev.Seq = s.seq.Next()
	s.trace = append(s.trace, ev)
}

// takeTrace returns the events recorded since the last call.
func (s *Session) takeTrace() []TraceEvent {
	t := s.trace
	s.trace = nil
	if t == nil {
		t = []TraceEvent{}
	}
	return t
}
