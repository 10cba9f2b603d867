package auth

import (
	"fmt"

	"github.com/rs/xid"
)

// OAuthState is what a Google login attempt carries from /auth/google/login
// to the callback: the origin to hand the session back to, and a nonce that
// is also stored in the oauth_state cookie of the browser that started it.
type OAuthState struct {
	ReturnTo string
	Nonce    string
}

// IssueState signs a short-lived oauth_state token for returnTo with a
// fresh nonce. The token travels in the provider's "state" parameter, so no
// server-side session store is needed between the two legs of the flow.
func (s *TokenService) IssueState(returnTo string) (token string, state OAuthState, err error) {
	state = OAuthState{ReturnTo: returnTo, Nonce: xid.New().String()}

	token, err = s.sign(claims{
		Kind:     KindOAuthState,
		ReturnTo: state.ReturnTo,
		Nonce:    state.Nonce,
	}, "oauth", s.ttls[KindOAuthState])
	if err != nil {
		return "", OAuthState{}, err
	}
	return token, state, nil
}

// DecodeState verifies an oauth_state token and checks that its nonce
// matches the one held in the caller's cookie.
func (s *TokenService) DecodeState(token, cookieNonce string) (OAuthState, error) {
	c, err := s.parse(token, KindOAuthState)
	if err != nil {
		return OAuthState{}, err
	}
	if c.Nonce == "" || c.Nonce != cookieNonce {
		return OAuthState{}, fmt.Errorf("%w: state nonce mismatch", ErrInvalidToken)
	}
	return OAuthState{ReturnTo: c.ReturnTo, Nonce: c.Nonce}, nil
}
