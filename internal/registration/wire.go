package registration

import (
	"fmt"
	"strings"
)

const (
	msgTypeResourceLink = "LtiResourceLinkRequest"
	msgTypeDeepLink     = "LtiDeepLinkingRequest"
)

// Scopes requested from every platform, space-joined into the registration
// request's "scope" member.
var registrationScopes = []string{
	"https://purl.imsglobal.org/spec/lti-ags/scope/lineitem.readonly",
	"https://purl.imsglobal.org/spec/lti-ags/scope/lineitem",
	"https://purl.imsglobal.org/spec/lti-ags/scope/score",
	"https://purl.imsglobal.org/spec/lti-ags/scope/result.readonly",
	"https://purl.imsglobal.org/spec/lti-nrps/scope/contextmembership.readonly",
}

// PlatformConfiguration is the strict view of the platform's OpenID
// configuration document. Missing required fields fail the completion attempt.
type PlatformConfiguration struct {
	Issuer                string   `json:"issuer"`
	TokenEndpoint         string   `json:"token_endpoint"`
	JWKSURI               string   `json:"jwks_uri"`
	AuthorizationEndpoint string   `json:"authorization_endpoint"`
	RegistrationEndpoint  string   `json:"registration_endpoint"`
	ClaimsSupported       []string `json:"claims_supported"`

	LTI struct {
		ProductFamilyCode string `json:"product_family_code"`
	} `json:"https://purl.imsglobal.org/spec/lti-platform-configuration"`
}

func (c PlatformConfiguration) validate() error {
	required := map[string]string{
		"issuer":                 c.Issuer,
		"token_endpoint":         c.TokenEndpoint,
		"jwks_uri":               c.JWKSURI,
		"authorization_endpoint": c.AuthorizationEndpoint,
		"registration_endpoint":  c.RegistrationEndpoint,
	}
	for name, v := range required {
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("configuration missing %s", name)
		}
	}
	return nil
}

// ClientRegistrationRequest is the OAuth dynamic-registration payload POSTed
// to the platform's registration endpoint.
type ClientRegistrationRequest struct {
	ApplicationType         string   `json:"application_type"`
	GrantTypes              []string `json:"grant_types"`
	ResponseTypes           []string `json:"response_types"`
	RedirectURIs            []string `json:"redirect_uris"`
	InitiateLoginURI        string   `json:"initiate_login_uri"`
	ClientName              string   `json:"client_name"`
	JWKSURI                 string   `json:"jwks_uri"`
	LogoURI                 string   `json:"logo_uri"`
	TokenEndpointAuthMethod string   `json:"token_endpoint_auth_method"`
	Scope                   string   `json:"scope"`

	ToolConfiguration ToolConfiguration `json:"https://purl.imsglobal.org/spec/lti-tool-configuration"`
}

// ToolConfiguration is the LTI extension block nested in the request.
type ToolConfiguration struct {
	Domain           string            `json:"domain"`
	Description      string            `json:"description"`
	TargetLinkURI    string            `json:"target_link_uri"`
	CustomParameters map[string]string `json:"custom_parameters"`
	Claims           []string          `json:"claims"`
	Messages         []ToolMessage     `json:"messages"`
}

type ToolMessage struct {
	Type          string `json:"type"`
	TargetLinkURI string `json:"target_link_uri,omitempty"`
}

// clientRegistrationResponse is the subset of the platform's reply we need.
type clientRegistrationResponse struct {
	ClientID string `json:"client_id"`
}

// Tool is this service's identity as presented to platforms.
type Tool struct {
	// PublicURL is the tool's base URL without a trailing slash.
	PublicURL   string
	Name        string
	Description string
	LogoURL     string
}

func (t Tool) endpoint(path string) string {
	return strings.TrimSuffix(t.PublicURL, "/") + "/" + path
}

func (t Tool) LaunchURL() string   { return t.endpoint("launch") }
func (t Tool) DeepLinkURL() string { return t.endpoint("deep-link-launch") }
func (t Tool) LoginURL() string    { return t.endpoint("login") }
func (t Tool) KeysURL() string     { return t.endpoint("keys") }

// BuildRegistrationRequest constructs the registration payload for a platform.
// The result is deterministic for a given tool identity and claim set:
// redirect_uris is always [launch, deep-link] in that order and scope is the
// fixed set joined by single spaces.
func BuildRegistrationRequest(tool Tool, claimsSupported []string) ClientRegistrationRequest {
	return ClientRegistrationRequest{
		ApplicationType:         "web",
		GrantTypes:              []string{"implicit", "client_credentials"},
		ResponseTypes:           []string{"id_token"},
		RedirectURIs:            []string{tool.LaunchURL(), tool.DeepLinkURL()},
		InitiateLoginURI:        tool.LoginURL(),
		ClientName:              tool.Name,
		JWKSURI:                 tool.KeysURL(),
		LogoURI:                 tool.LogoURL,
		TokenEndpointAuthMethod: "private_key_jwt",
		Scope:                   strings.Join(registrationScopes, " "),
		ToolConfiguration: ToolConfiguration{
			Domain:           tool.PublicURL,
			Description:      tool.Description,
			TargetLinkURI:    tool.LaunchURL(),
			CustomParameters: map[string]string{},
			Claims:           claimsSupported,
			Messages: []ToolMessage{
				{Type: msgTypeResourceLink},
				{Type: msgTypeDeepLink, TargetLinkURI: tool.DeepLinkURL()},
			},
		},
	}
}
