package registration

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"
)

/*
Two-phase LTI 1.3 dynamic registration (tool side).

Phase one (Initiate): a platform opens the tool's registration URL with its
OpenID configuration endpoint and an optional registration token. The tool
records a pending registration keyed by that endpoint and returns a form
asking the operator to name the integration.

Phase two (Complete): the operator submits the form. The tool consumes the
pending entry (single use), fetches the platform's OpenID configuration,
POSTs a dynamic client registration, generates a signing key pair, and
persists the platform under (issuer, client_id).

State machine per configuration endpoint:

    NotStarted -> Pending -> Consumed -> {Registered | Failed}

Consumption happens before any network call, so a failed completion is a
dead end: the flow must be re-initiated from phase one. Nothing here retries
automatically.
*/

// Service coordinates the registration flow across the two stores, the key
// provider, and the platform's HTTP endpoints.
type Service struct {
	Pending   PendingStore
	Platforms PlatformStore
	Keys      KeyProvider
	Tool      Tool

	// HTTP performs the configuration fetch and the registration POST.
	HTTP *http.Client

	Log *zap.SugaredLogger
}

// InitiateRequest is the phase-one input.
type InitiateRequest struct {
	ConfigurationEndpoint string
	RegistrationToken     string // optional
}

// Continuation is the phase-one result: the caller renders it as the form
// that carries the endpoint plus an operator-supplied tool name to Complete.
type Continuation struct {
	ConfigurationEndpoint string
}

// CompleteRequest is the phase-two input.
type CompleteRequest struct {
	ConfigurationEndpoint string
	ToolName              string
}

// Initiate validates the inbound request and records a pending registration.
// A prior pending entry for the same endpoint is overwritten: only the latest
// token is honored. No network calls are made in this phase.
func (s *Service) Initiate(ctx context.Context, req InitiateRequest) (Continuation, error) {
	if !isHTTPURL(req.ConfigurationEndpoint) {
		return Continuation{}, fmt.Errorf("%w: openid_configuration must be an absolute http(s) URL", ErrValidation)
	}
	if err := s.Pending.Set(ctx, PendingRegistration{
		ConfigurationEndpoint: req.ConfigurationEndpoint,
		RegistrationToken:     req.RegistrationToken,
	}); err != nil {
		return Continuation{}, fmt.Errorf("registration: store pending: %w", err)
	}
	return Continuation{ConfigurationEndpoint: req.ConfigurationEndpoint}, nil
}

// Complete runs phase two and returns the persisted record. All failures are
// terminal for this attempt; the pending entry is never restored.
func (s *Service) Complete(ctx context.Context, req CompleteRequest) (PlatformRecord, error) {
	if !isHTTPURL(req.ConfigurationEndpoint) {
		return PlatformRecord{}, fmt.Errorf("%w: endpoint must be an absolute http(s) URL", ErrValidation)
	}
	if strings.TrimSpace(req.ToolName) == "" {
		return PlatformRecord{}, fmt.Errorf("%w: tool_name is required", ErrValidation)
	}

	// Single-use: the entry is gone before any external call happens.
	pending, err := s.Pending.Consume(ctx, req.ConfigurationEndpoint)
	if err != nil {
		if errors.Is(err, ErrPendingNotFound) {
			return PlatformRecord{}, ErrNotStarted
		}
		return PlatformRecord{}, fmt.Errorf("registration: consume pending: %w", err)
	}

	cfg, err := s.fetchConfiguration(ctx, req.ConfigurationEndpoint)
	if err != nil {
		return PlatformRecord{}, err
	}

	regReq := BuildRegistrationRequest(s.Tool, cfg.ClaimsSupported)
	clientID, err := s.register(ctx, cfg.RegistrationEndpoint, pending.RegistrationToken, regReq)
	if err != nil {
		return PlatformRecord{}, err
	}

	kid, err := s.Keys.GenerateKeyPair(ctx)
	if err != nil {
		return PlatformRecord{}, fmt.Errorf("%w: %v", ErrKeyGeneration, err)
	}

	rec := PlatformRecord{
		PlatformURL:            cfg.Issuer,
		ClientID:               clientID,
		Name:                   cfg.LTI.ProductFamilyCode,
		ToolName:               req.ToolName,
		AuthenticationEndpoint: cfg.AuthorizationEndpoint,
		AccessTokenEndpoint:    cfg.TokenEndpoint,
		AuthConfig:             AuthConfig{Method: "JWK_SET", Key: cfg.JWKSURI},
		KID:                    kid,
		CreatedAt:              time.Now().UTC(),
	}

	exists, err := s.Platforms.Exists(ctx, rec.PlatformURL, rec.ClientID)
	if err != nil {
		return PlatformRecord{}, fmt.Errorf("registration: platform lookup: %w", err)
	}
	if exists {
		// The upstream client created in this attempt is orphaned here;
		// cleanup on the platform side is left to the operator.
		s.log().Warnw("duplicate registration, upstream client orphaned",
			"platform", rec.PlatformURL, "client_id", rec.ClientID)
		return PlatformRecord{}, ErrDuplicate
	}
	if err := s.Platforms.Put(ctx, rec); err != nil {
		return PlatformRecord{}, err
	}

	s.log().Infow("new platform registered",
		"platform", rec.PlatformURL,
		"client_id", rec.ClientID,
		"name", rec.Name,
		"tool_name", rec.ToolName,
		"kid", rec.KID)
	return rec, nil
}

// fetchConfiguration GETs and strictly parses the platform's OpenID document.
func (s *Service) fetchConfiguration(ctx context.Context, endpoint string) (PlatformConfiguration, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return PlatformConfiguration{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return PlatformConfiguration{}, fmt.Errorf("%w: fetch configuration: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return PlatformConfiguration{}, fmt.Errorf("%w: configuration endpoint returned %d", ErrUpstream, resp.StatusCode)
	}

	var cfg PlatformConfiguration
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&cfg); err != nil {
		return PlatformConfiguration{}, fmt.Errorf("%w: parse configuration: %v", ErrUpstream, err)
	}
	if err := cfg.validate(); err != nil {
		return PlatformConfiguration{}, fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	return cfg, nil
}

// register POSTs the dynamic registration request, authorized with the
// consumed registration token as a bearer credential.
func (s *Service) register(ctx context.Context, endpoint, token string, regReq ClientRegistrationRequest) (string, error) {
	body, err := json.Marshal(regReq)
	if err != nil {
		return "", fmt.Errorf("registration: marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := s.httpClient().Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: register: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return "", fmt.Errorf("%w: registration endpoint returned %d", ErrUpstream, resp.StatusCode)
	}

	var out clientRegistrationResponse
	if err := json.NewDecoder(io.LimitReader(resp.Body, 1<<20)).Decode(&out); err != nil {
		return "", fmt.Errorf("%w: parse registration response: %v", ErrUpstream, err)
	}
	if strings.TrimSpace(out.ClientID) == "" {
		return "", fmt.Errorf("%w: registration response missing client_id", ErrUpstream)
	}
	return out.ClientID, nil
}

func (s *Service) httpClient() *http.Client {
	if s.HTTP != nil {
		return s.HTTP
	}
	return &http.Client{Timeout: 15 * time.Second}
}

func (s *Service) log() *zap.SugaredLogger {
	if s.Log != nil {
		return s.Log
	}
	return zap.NewNop().Sugar()
}

func isHTTPURL(s string) bool {
	u, err := url.Parse(s)
	if err != nil {
		return false
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return false
	}
	return u.Host != ""
}
