package token_test

import (
	"errors"
	"testing"
	"time"

	"github.com/ErlanBelekov/locations-api/internal/domain"
	"github.com/ErlanBelekov/locations-api/internal/token"
	"github.com/golang-jwt/jwt/v5"
)

const testKey = "token-test-secret-at-least-32-chars!"

func newIssuer() *token.Issuer {
	return token.NewIssuer([]byte(testKey), time.Hour, 24*time.Hour)
}

func TestMint_VerifyRoundTrip(t *testing.T) {
	iss := newIssuer()

	raw, minted, err := iss.Mint("user-1", domain.TokenUseAccess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	got, err := iss.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if got.UserID != "user-1" || got.Use != domain.TokenUseAccess {
		t.Errorf("claims = %+v", got)
	}
	if got.TokenID == "" || got.TokenID != minted.TokenID {
		t.Errorf("jti = %q, minted %q", got.TokenID, minted.TokenID)
	}
}

func TestMint_ExpiryNotBeforeNowPlusTTL(t *testing.T) {
	iss := newIssuer()

	before := time.Now()
	_, c, err := iss.Mint("user-1", domain.TokenUseAccess)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.ExpiresAt.Before(before.Add(time.Hour)) {
		t.Errorf("exp %v is before call time + TTL %v", c.ExpiresAt, before.Add(time.Hour))
	}
}

func TestMint_EachTokenHasUniqueID(t *testing.T) {
	iss := newIssuer()
	_, a, _ := iss.Mint("user-1", domain.TokenUseAccess)
	_, b, _ := iss.Mint("user-1", domain.TokenUseID)
	if a.TokenID == b.TokenID {
		t.Error("access and id tokens share a jti")
	}
}

func TestVerify_Expired_ReturnsErrTokenInvalid(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	raw, _, _ := newIssuer().WithClock(func() time.Time { return past }).Mint("user-1", domain.TokenUseAccess)

	if _, err := newIssuer().Verify(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_WrongKey_ReturnsErrTokenInvalid(t *testing.T) {
	other := token.NewIssuer([]byte("another-secret-that-is-32-chars!!"), time.Hour, time.Hour)
	raw, _, _ := other.Mint("user-1", domain.TokenUseAccess)

	if _, err := newIssuer().Verify(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_Garbage_ReturnsErrTokenInvalid(t *testing.T) {
	if _, err := newIssuer().Verify("not.a.jwt"); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestVerify_NoneAlgorithm_Rejected(t *testing.T) {
	tok := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.RegisteredClaims{
		Subject:   "user-1",
		ID:        "jti-1",
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
	})
	raw, err := tok.SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := newIssuer().Verify(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyForRefresh_ExpiredWithinWindow_Accepted(t *testing.T) {
	past := time.Now().Add(-2 * time.Hour)
	raw, _, _ := newIssuer().WithClock(func() time.Time { return past }).Mint("user-1", domain.TokenUseAccess)

	c, err := newIssuer().VerifyForRefresh(raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if c.UserID != "user-1" {
		t.Errorf("sub = %q", c.UserID)
	}
}

func TestVerifyForRefresh_PastWindow_Rejected(t *testing.T) {
	past := time.Now().Add(-25 * time.Hour)
	raw, _, _ := newIssuer().WithClock(func() time.Time { return past }).Mint("user-1", domain.TokenUseAccess)

	if _, err := newIssuer().VerifyForRefresh(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestVerifyForRefresh_WrongKey_Rejected(t *testing.T) {
	other := token.NewIssuer([]byte("another-secret-that-is-32-chars!!"), time.Hour, time.Hour)
	raw, _, _ := other.Mint("user-1", domain.TokenUseAccess)

	if _, err := newIssuer().VerifyForRefresh(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("want ErrTokenInvalid, got %v", err)
	}
}

func TestRenew_KeepsSessionStart(t *testing.T) {
	start := time.Now()
	now := start
	iss := newIssuer().WithClock(func() time.Time { return now })

	_, first, err := iss.Mint("user-1", domain.TokenUseAccess)
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	now = start.Add(3 * time.Hour)
	raw, renewed, err := iss.Renew(first, domain.TokenUseAccess)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}
	if !renewed.SessionStart.Equal(first.SessionStart) {
		t.Errorf("session start = %v, want %v", renewed.SessionStart, first.SessionStart)
	}
	if !renewed.IssuedAt.After(first.IssuedAt) {
		t.Errorf("iat %v not after first iat %v", renewed.IssuedAt, first.IssuedAt)
	}

	got, err := iss.Verify(raw)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !got.SessionStart.Equal(first.SessionStart) {
		t.Errorf("orig_iat lost on the wire: %v", got.SessionStart)
	}
	if want := first.SessionStart.Add(24 * time.Hour); !iss.RefreshDeadline(got).Equal(want) {
		t.Errorf("deadline = %v, want %v", iss.RefreshDeadline(got), want)
	}
}

func TestVerifyForRefresh_RenewedTokenPastOriginalWindow_Rejected(t *testing.T) {
	start := time.Now()
	now := start
	iss := newIssuer().WithClock(func() time.Time { return now })

	_, first, _ := iss.Mint("user-1", domain.TokenUseAccess)
	now = start.Add(20 * time.Hour)
	raw, _, err := iss.Renew(first, domain.TokenUseAccess)
	if err != nil {
		t.Fatalf("renew: %v", err)
	}

	// Five hours after the renewal, but 25 after login.
	now = start.Add(25 * time.Hour)
	if _, err := iss.VerifyForRefresh(raw); !errors.Is(err, domain.ErrTokenInvalid) {
		t.Errorf("err = %v, want ErrTokenInvalid", err)
	}
}
