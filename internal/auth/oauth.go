package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// googleUserInfoURL is the OpenID Connect userinfo endpoint.
const googleUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleProfile is the portion of Google's userinfo response we care about.
type GoogleProfile struct {
	Subject   string `json:"sub"`        // stable Google account id
	Email     string `json:"email"`      // may be empty if the scope was refused
	Name      string `json:"name"`       // full display name
	GivenName string `json:"given_name"` // first name, used to seed usernames
	Picture   string `json:"picture"`    // avatar URL
	Profile   string `json:"profile"`    // public profile URL, kept as the initial bio
}

// OAuthProvider is the identity provider seen by the OAuth handler. The
// Google implementation below is the production one; tests substitute a
// fake that skips the network round-trip.
type OAuthProvider interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*GoogleProfile, error)
}

// GoogleProvider wraps golang.org/x/oauth2 for Google's Authorization Code
// flow.
//
// OAUTH 2.0 AUTHORIZATION CODE FLOW:
//  1. We redirect the browser to Google's consent screen with our client id,
//     the requested scopes and a signed state value.
//  2. Google redirects back to the fixed, pre-registered redirect URI with a
//     short-lived "code".
//  3. We exchange the code for an access token (server-to-server, using the
//     client secret) and fetch the userinfo document with it.
type GoogleProvider struct {
	config      *oauth2.Config
	userInfoURL string
}

// NewGoogleProvider creates a GoogleProvider. redirectURL must match the
// URI registered in the Google Cloud console exactly; it is never derived
// from the incoming request.
func NewGoogleProvider(clientID, clientSecret, redirectURL string) *GoogleProvider {
	return &GoogleProvider{
		config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Scopes:       []string{"openid", "email", "profile"},
			Endpoint:     google.Endpoint,
		},
		userInfoURL: googleUserInfoURL,
	}
}

// AuthURL returns the consent screen URL carrying state.
func (p *GoogleProvider) AuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOnline)
}

// Exchange trades the authorization code for the user's Google profile.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*GoogleProfile, error) {
	oauthToken, err := p.config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("auth: exchanging OAuth code: %w", err)
	}

	// The returned client adds "Authorization: Bearer <token>" to every call.
	client := p.config.Client(ctx, oauthToken)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("auth: building userinfo request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("auth: calling Google userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("auth: Google userinfo returned status %d", resp.StatusCode)
	}

	var profile GoogleProfile
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("auth: decoding Google userinfo: %w", err)
	}

	return &profile, nil
}
