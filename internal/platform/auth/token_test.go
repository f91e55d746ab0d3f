package auth

import (
	"testing"
	"time"
)

func TestTokenIssuer_RoundTrip(t *testing.T) {
	ti := NewTokenIssuer(testSigningKey, "kaga-hospital", time.Hour)
	fixed := time.Now().Truncate(time.Second)
	ti.now = func() time.Time { return fixed }

	token, exp, err := ti.Issue("user-42", "Dr. Ben Kato", RoleDoctor)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if !exp.Equal(fixed.Add(time.Hour)) {
		t.Errorf("expected expiry %v, got %v", fixed.Add(time.Hour), exp)
	}

	claims, err := ti.Verify(token)
	if err != nil {
		t.Fatalf("Verify() error: %v", err)
	}
	if claims.Subject != "user-42" || claims.Name != "Dr. Ben Kato" {
		t.Errorf("unexpected claims %+v", claims)
	}
	if len(claims.Roles) != 1 || claims.Roles[0] != RoleDoctor {
		t.Errorf("unexpected roles %v", claims.Roles)
	}
}

func TestTokenIssuer_ExpiredToken(t *testing.T) {
	ti := NewTokenIssuer(testSigningKey, "kaga-hospital", time.Minute)
	ti.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }

	token, _, err := ti.Issue("user-42", "", RolePatient)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := ti.Verify(token); err == nil {
		t.Error("expected expired token to fail verification")
	}
}

func TestTokenIssuer_OtherIssuerRejected(t *testing.T) {
	a := NewTokenIssuer(testSigningKey, "kaga-hospital", time.Hour)
	b := NewTokenIssuer(testSigningKey, "elsewhere", time.Hour)

	token, _, err := b.Issue("user-1", "", RolePatient)
	if err != nil {
		t.Fatalf("Issue() error: %v", err)
	}
	if _, err := a.Verify(token); err == nil {
		t.Error("expected token from another issuer to be rejected")
	}
}
