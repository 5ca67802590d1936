// Package auth resolves the three TrainingSoft login flows into a normalized
// identity.Identity. Each call performs exactly one HTTP round trip and never
// retries.
package auth

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/sstasesores/trainingsoft/internal/identity"
)

const (
	pathCompanyLogin    = "/auth/login"
	pathPersonalLogin   = "/auth/login-personal"
	pathInstructorLogin = "/auth/login-instructor"

	maxBodyBytes = 1 << 20
)

// Recorder receives one observation per login attempt.
type Recorder interface {
	ObserveLogin(role, outcome string, elapsed time.Duration)
}

type flow struct {
	role     identity.Role
	path     string
	fallback string
	fields   fieldTable
}

var (
	companyFlow    = flow{role: identity.RoleCompany, path: pathCompanyLogin, fallback: MsgCompanyFallback, fields: companyFields}
	traineeFlow    = flow{role: identity.RoleTrainee, path: pathPersonalLogin, fallback: MsgTraineeFallback, fields: traineeFields}
	instructorFlow = flow{role: identity.RoleInstructor, path: pathInstructorLogin, fallback: MsgInstructorFallback, fields: instructorFields}
)

// Resolver talks to the login endpoints of the backend.
type Resolver struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
	recorder   Recorder
}

// Option customises a Resolver.
type Option func(*Resolver)

// WithHTTPClient replaces the default client.
func WithHTTPClient(c *http.Client) Option {
	return func(r *Resolver) {
		if c != nil {
			r.httpClient = c
		}
	}
}

// WithLogger sets the logger; passwords and tokens are never logged.
func WithLogger(l *slog.Logger) Option {
	return func(r *Resolver) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithRecorder attaches a metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Resolver) { r.recorder = rec }
}

// NewResolver constructs a Resolver for baseURL.
func NewResolver(baseURL string, opts ...Option) *Resolver {
	r := &Resolver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// AuthenticateCompany logs a company in with its RUC and password.
func (r *Resolver) AuthenticateCompany(ctx context.Context, taxID, password string) (identity.Identity, error) {
	payload := map[string]string{"ruc": taxID, "password": password}
	return r.authenticate(ctx, companyFlow, payload, identity.Fields{TaxID: taxID})
}

// AuthenticatePersonal logs a trainee in with the document number alone.
func (r *Resolver) AuthenticatePersonal(ctx context.Context, documentNumber string) (identity.Identity, error) {
	payload := map[string]string{"documento": documentNumber}
	return r.authenticate(ctx, traineeFlow, payload, identity.Fields{ID: documentNumber, DocumentNumber: documentNumber})
}

// AuthenticateInstructor logs an instructor in. The submitted username stands
// in for the id when the server omits one.
func (r *Resolver) AuthenticateInstructor(ctx context.Context, username, password string) (identity.Identity, error) {
	payload := map[string]string{"username": username, "password": password}
	return r.authenticate(ctx, instructorFlow, payload, identity.Fields{ID: username, Username: username})
}

func (r *Resolver) authenticate(ctx context.Context, f flow, payload map[string]string, submitted identity.Fields) (identity.Identity, error) {
	start := time.Now()
	id, err := r.roundTrip(ctx, f, payload, submitted)
	r.observe(f.role, err, time.Since(start))
	return id, err
}

func (r *Resolver) roundTrip(ctx context.Context, f flow, payload map[string]string, submitted identity.Fields) (identity.Identity, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("auth: encode payload: %w", err)
	}
	endpoint := r.baseURL + f.path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return identity.Identity{}, fmt.Errorf("auth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	r.logger.Debug("login attempt", slog.String("role", string(f.role)), slog.String("endpoint", endpoint))

	resp, err := r.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return identity.Identity{}, ctxErr
		}
		r.logger.Warn("login endpoint unreachable", slog.String("role", string(f.role)), slog.Any("error", err))
		return identity.Identity{}, &Error{Kind: KindNetworkUnreachable, Message: MsgNetworkUnreachable, Err: err}
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		msg := f.fallback
		if readErr == nil {
			msg = ResponseMessage(raw, f.fallback)
		}
		r.logger.Info("login rejected", slog.String("role", string(f.role)), slog.Int("status", resp.StatusCode))
		return identity.Identity{}, &Error{Kind: KindRejected, Message: msg, Status: resp.StatusCode, Err: readErr}
	}
	if readErr != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return identity.Identity{}, ctxErr
		}
		return identity.Identity{}, &Error{Kind: KindMalformed, Message: MsgMalformed, Status: resp.StatusCode, Err: readErr}
	}

	id, err := normalize(f, raw, submitted)
	if err != nil {
		r.logger.Warn("login response malformed", slog.String("role", string(f.role)), slog.Any("error", err))
		return identity.Identity{}, &Error{Kind: KindMalformed, Message: MsgMalformed, Status: resp.StatusCode, Err: err}
	}
	return id, nil
}

var errNoUser = errors.New("auth: response has no user object")

// normalize turns a 2xx body into an Identity for flow f.
func normalize(f flow, raw []byte, submitted identity.Fields) (identity.Identity, error) {
	body, err := decodeObject(raw)
	if err != nil {
		return identity.Identity{}, fmt.Errorf("auth: decode response: %w", err)
	}
	user, ok := body["user"].(map[string]any)
	if !ok {
		return identity.Identity{}, errNoUser
	}
	fields := extractFields(f.fields, user, submitted)
	fields.Role = f.role
	fields.SessionToken = extractToken(body, user)
	return identity.New(fields)
}

// ResponseMessage picks the text shown for a non-2xx answer: a JSON
// message or error field, else raw text, else the role fallback.
func ResponseMessage(raw []byte, fallback string) string {
	text := strings.TrimSpace(string(raw))
	if text == "" {
		return fallback
	}
	var decoded any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return text
	}
	obj, ok := decoded.(map[string]any)
	if !ok {
		return fallback
	}
	for _, key := range []string{"message", "error"} {
		if s, ok := obj[key].(string); ok && strings.TrimSpace(s) != "" {
			return s
		}
	}
	return fallback
}

func decodeObject(raw []byte) (map[string]any, error) {
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var obj map[string]any
	if err := dec.Decode(&obj); err != nil {
		return nil, err
	}
	if obj == nil {
		return nil, errors.New("auth: empty response body")
	}
	return obj, nil
}

func (r *Resolver) observe(role identity.Role, err error, elapsed time.Duration) {
	if r.recorder == nil {
		return
	}
	outcome := "success"
	if err != nil {
		switch KindOf(err) {
		case KindNetworkUnreachable:
			outcome = "network"
		case KindRejected:
			outcome = "rejected"
		case KindMalformed:
			outcome = "malformed"
		default:
			outcome = "error"
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				outcome = "canceled"
			}
		}
	}
	r.recorder.ObserveLogin(string(role), outcome, elapsed)
}
