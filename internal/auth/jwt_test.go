package auth

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// newTestTokenService creates a TokenService for testing.
// It uses a fixed, known secret so tests are deterministic.
func newTestTokenService(t *testing.T, opts ...TokenOption) *TokenService {
	t.Helper()
	ts, err := NewTokenService("test-secret-at-least-16-chars!!", opts...)
	if err != nil {
		t.Fatalf("NewTokenService: %v", err)
	}
	return ts
}

// =========================================================================
// TOKEN SERVICE CONSTRUCTION TESTS
// =========================================================================

func TestNewTokenService_ShortSecret(t *testing.T) {
	_, err := NewTokenService("short")
	if err == nil {
		t.Fatal("NewTokenService() should reject secrets shorter than 16 chars")
	}
}

func TestNewTokenService_DefaultTTLs(t *testing.T) {
	ts := newTestTokenService(t)

	if got := ts.TTL(KindAccess); got != 15*time.Minute {
		t.Errorf("TTL(access) = %v, want 15m", got)
	}
	if got := ts.TTL(KindRefresh); got != 7*24*time.Hour {
		t.Errorf("TTL(refresh) = %v, want 168h", got)
	}
}

func TestWithTTL_OverridesAndIgnoresZero(t *testing.T) {
	ts := newTestTokenService(t, WithTTL(KindAccess, time.Minute), WithTTL(KindRefresh, 0))

	if got := ts.TTL(KindAccess); got != time.Minute {
		t.Errorf("TTL(access) = %v, want 1m", got)
	}
	if got := ts.TTL(KindRefresh); got != DefaultRefreshTTL {
		t.Errorf("zero override should keep default, got %v", got)
	}
}

// =========================================================================
// ISSUE / DECODE TESTS
// =========================================================================

func TestIssue_LooksLikeJWT(t *testing.T) {
	ts := newTestTokenService(t)

	token, err := ts.Issue("user-123", KindAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}
	if parts := strings.Split(token, "."); len(parts) != 3 {
		t.Errorf("Issue() token has %d parts, want 3", len(parts))
	}
}

func TestDecode_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	for _, kind := range []Kind{KindAccess, KindRefresh} {
		t.Run(string(kind), func(t *testing.T) {
			token, err := ts.Issue("user-abc", kind)
			if err != nil {
				t.Fatalf("Issue() error = %v", err)
			}
			sub, err := ts.Decode(token, kind)
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if sub != "user-abc" {
				t.Errorf("Decode() subject = %q, want user-abc", sub)
			}
		})
	}
}

func TestDecode_WrongKindRejected(t *testing.T) {
	ts := newTestTokenService(t)

	refresh, _ := ts.Issue("user-1", KindRefresh)
	if _, err := ts.Decode(refresh, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("refresh token accepted as access: err = %v", err)
	}

	access, _ := ts.Issue("user-1", KindAccess)
	if _, err := ts.Decode(access, KindRefresh); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("access token accepted as refresh: err = %v", err)
	}
}

func TestDecode_Expired(t *testing.T) {
	ts := newTestTokenService(t)
	issued := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	ts.now = func() time.Time { return issued }

	token, err := ts.Issue("user-1", KindAccess)
	if err != nil {
		t.Fatalf("Issue() error = %v", err)
	}

	ts.now = func() time.Time { return issued.Add(DefaultAccessTTL + time.Second) }
	_, err = ts.Decode(token, KindAccess)
	if !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("Decode() error = %v, want ErrInvalidToken", err)
	}
	if !strings.Contains(err.Error(), "expired") {
		t.Errorf("Decode() error = %v, want mention of expiry", err)
	}
}

func TestDecode_Garbage(t *testing.T) {
	ts := newTestTokenService(t)

	for _, tok := range []string{"", "not.a.jwt", "abc"} {
		if _, err := ts.Decode(tok, KindAccess); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("Decode(%q) error = %v, want ErrInvalidToken", tok, err)
		}
	}
}

func TestDecode_WrongSecret(t *testing.T) {
	signer := newTestTokenService(t)
	other, err := NewTokenService("a-completely-different-secret")
	if err != nil {
		t.Fatal(err)
	}

	token, _ := signer.Issue("user-1", KindAccess)
	if _, err := other.Decode(token, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("token signed with another secret accepted: %v", err)
	}
}

func TestDecode_RejectsNoneAlgorithm(t *testing.T) {
	ts := newTestTokenService(t)

	unsigned := jwt.NewWithClaims(jwt.SigningMethodNone, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "attacker",
			Issuer:    issuer,
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Kind: KindAccess,
	})
	token, err := unsigned.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("signing none token: %v", err)
	}

	if _, err := ts.Decode(token, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("alg=none token accepted: %v", err)
	}
}

// =========================================================================
// OAUTH STATE TESTS
// =========================================================================

func TestState_RoundTrip(t *testing.T) {
	ts := newTestTokenService(t)

	token, state, err := ts.IssueState("https://app.example.com")
	if err != nil {
		t.Fatalf("IssueState() error = %v", err)
	}
	if state.Nonce == "" {
		t.Fatal("IssueState() returned empty nonce")
	}

	got, err := ts.DecodeState(token, state.Nonce)
	if err != nil {
		t.Fatalf("DecodeState() error = %v", err)
	}
	if got.ReturnTo != "https://app.example.com" {
		t.Errorf("ReturnTo = %q", got.ReturnTo)
	}
}

func TestState_NonceMismatch(t *testing.T) {
	ts := newTestTokenService(t)
	token, _, _ := ts.IssueState("https://app.example.com")

	if _, err := ts.DecodeState(token, "someone-elses-nonce"); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("DecodeState() with wrong nonce error = %v, want ErrInvalidToken", err)
	}
	if _, err := ts.DecodeState(token, ""); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("DecodeState() without cookie error = %v, want ErrInvalidToken", err)
	}
}

func TestState_NotUsableAsAccessToken(t *testing.T) {
	ts := newTestTokenService(t)
	token, _, _ := ts.IssueState("")

	if _, err := ts.Decode(token, KindAccess); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("state token accepted as access token: %v", err)
	}
}
