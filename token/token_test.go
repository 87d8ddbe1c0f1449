package token

import (
	"strings"
	"testing"
	"time"

	"github.com/certledger/certledger/certerr"
)

var testSecret = []byte("a-shared-secret-used-only-in-tests")

var testClaims = Claims{
	InstitutionID:          "inst1",
	CandidateID:            "cand1",
	CandidateName:          "Alice",
	IssuedAt:               1700000000,
	ExternalProofReference: "5h3kXq9fproof",
}

func fixedClock() time.Time {
	return time.Unix(1700000100, 0)
}

func mint(t *testing.T, secret []byte, claims Claims) string {
	t.Helper()
	issuer, err := NewIssuer(secret, WithClock(fixedClock))
	if err != nil {
		t.Fatalf("could not create issuer: %v", err)
	}
	tok, err := issuer.Mint(claims)
	if err != nil {
		t.Fatalf("could not mint token: %v", err)
	}
	return tok
}

func TestRoundTrip(t *testing.T) {
	tok := mint(t, testSecret, testClaims)
	verified, err := Verify(tok, testSecret)
	if err != nil {
		t.Fatalf("verification failed: %v", err)
	}
	if verified.Claims != testClaims {
		t.Errorf("claims differ: expected %+v, got %+v", testClaims, verified.Claims)
	}
	if !verified.MintedAt.Equal(fixedClock()) {
		t.Errorf("unexpected mint time %s", verified.MintedAt)
	}
}

func TestTamperDetection(t *testing.T) {
	tok := mint(t, testSecret, testClaims)
	v, err := NewVerifier(testSecret)
	if err != nil {
		t.Fatal(err)
	}
	replacements := []byte{'A', 'B', '_', '-', '.', '0'}
	for i := 0; i < len(tok); i++ {
		for _, r := range replacements {
			if tok[i] == r {
				continue
			}
			tampered := tok[:i] + string(r) + tok[i+1:]
			_, err = v.Verify(tampered)
			if !certerr.Is(err, certerr.KindForgery) {
				t.Fatalf("altering byte %d to %q was not detected as forgery: %v", i, r, err)
			}
		}
	}
}

func TestWrongSecret(t *testing.T) {
	tok := mint(t, testSecret, testClaims)
	_, err := Verify(tok, []byte("some-other-secret"))
	if !certerr.Is(err, certerr.KindForgery) {
		t.Errorf("expected forgery error, got %v", err)
	}
}

func TestIdempotentVerification(t *testing.T) {
	tok := mint(t, testSecret, testClaims)
	v, _ := NewVerifier(testSecret)
	first, err1 := v.Verify(tok)
	second, err2 := v.Verify(tok)
	if err1 != nil || err2 != nil {
		t.Fatalf("unexpected errors: %v, %v", err1, err2)
	}
	if *first != *second {
		t.Errorf("verification results differ: %+v vs %+v", first, second)
	}
}

func TestMintDeterministic(t *testing.T) {
	if mint(t, testSecret, testClaims) != mint(t, testSecret, testClaims) {
		t.Error("same claims, secret, and mint time must produce the same token")
	}
}

func TestCrossCheck(t *testing.T) {
	tok := mint(t, testSecret, testClaims)
	forged := mint(t, []byte("wrong-secret"), testClaims)
	v, _ := NewVerifier(testSecret)

	tests := []struct {
		name    string
		claimed string
		token   string
		outcome Outcome
		kind    certerr.Kind
	}{
		{
			name:    "verified",
			claimed: "Alice",
			token:   tok,
			outcome: OutcomeVerified,
		},
		{
			name:    "name mismatch",
			claimed: "Alicia",
			token:   tok,
			outcome: OutcomeNameMismatch,
			kind:    certerr.KindNameMismatch,
		},
		{
			name:    "forged",
			claimed: "Alice",
			token:   forged,
			outcome: OutcomeForged,
			kind:    certerr.KindForgery,
		},
		{
			name:    "missing name",
			claimed: "",
			token:   tok,
			outcome: OutcomeIncompleteExtraction,
			kind:    certerr.KindIncompleteExtraction,
		},
		{
			name:    "missing token",
			claimed: "Alice",
			token:   "",
			outcome: OutcomeIncompleteExtraction,
			kind:    certerr.KindIncompleteExtraction,
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				_, outcome, err := v.CrossCheck(test.claimed, test.token)
				if outcome != test.outcome {
					t.Errorf("expected outcome %s, got %s", test.outcome, outcome)
				}
				if test.outcome == OutcomeVerified {
					if err != nil {
						t.Errorf("unexpected error: %v", err)
					}
					return
				}
				if !certerr.Is(err, test.kind) {
					t.Errorf("expected error kind %s, got %v", test.kind, err)
				}
			},
		)
	}
}

func TestMissingSecret(t *testing.T) {
	issuer, err := NewIssuer(nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, err = issuer.Mint(testClaims); !certerr.Is(err, certerr.KindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
	v, _ := NewVerifier(nil)
	if _, err = v.Verify("a.b.c"); !certerr.Is(err, certerr.KindConfiguration) {
		t.Errorf("expected configuration error, got %v", err)
	}
}

func TestMintValidation(t *testing.T) {
	issuer, _ := NewIssuer(testSecret)
	tests := []struct {
		name   string
		mutate func(c *Claims)
	}{
		{
			name:   "missing institution",
			mutate: func(c *Claims) { c.InstitutionID = "" },
		},
		{
			name:   "zero issuedAt",
			mutate: func(c *Claims) { c.IssuedAt = 0 },
		},
		{
			name:   "long candidate id",
			mutate: func(c *Claims) { c.CandidateID = strings.Repeat("c", MaxCandidateIDLen+1) },
		},
		{
			name:   "missing proof",
			mutate: func(c *Claims) { c.ExternalProofReference = "" },
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				c := testClaims
				test.mutate(&c)
				if _, err := issuer.Mint(c); !certerr.Is(err, certerr.KindValidation) {
					t.Errorf("expected validation error, got %v", err)
				}
			},
		)
	}
}

func TestMalformedTokens(t *testing.T) {
	v, _ := NewVerifier(testSecret)
	for _, tok := range []string{
		"",
		"abc",
		"a.b",
		"a.b.c.d",
		"..",
		"eyJhbGciOiJub25lIn0.e30.",
	} {
		if _, err := v.Verify(tok); !certerr.Is(err, certerr.KindForgery) {
			t.Errorf("expected forgery error for %q, got %v", tok, err)
		}
	}
}
