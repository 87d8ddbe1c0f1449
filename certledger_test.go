package certledger

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/attestation"
	"github.com/certledger/certledger/extraction"
	"github.com/certledger/certledger/issuance"
	"github.com/certledger/certledger/render"
	"github.com/certledger/certledger/storage"
	"github.com/certledger/certledger/token"
	"github.com/certledger/certledger/verification"
)

var testSecret = []byte("0123456789abcdef0123456789abcdef")

type extractorFunc func(ctx context.Context, file extraction.File) (*extraction.Result, error)

func (f extractorFunc) Extract(ctx context.Context, file extraction.File) (*extraction.Result, error) {
	return f(ctx, file)
}

type testEnv struct {
	cl        *CertLedger
	ledger    *attestation.LocalLedger
	extracted extraction.Result
}

func newTestEnv(t *testing.T, secret []byte, opts Options) *testEnv {
	t.Helper()
	st, err := storage.NewStorage(
		storage.Config{
			Driver:  storage.DriverSQLite,
			DataDir: t.TempDir(),
			PasswordHashing: storage.Argon2idParams{
				Time:        1,
				MemoryKiB:   1024,
				Parallelism: 1,
				KeyLen:      32,
				SaltLen:     16,
			},
		},
	)
	require.NoError(t, err)
	backs := st.Backends()
	ledger, err := attestation.NewLocalLedger(attestation.LocalLedgerConfig{})
	require.NoError(t, err)
	t.Cleanup(func() { _ = ledger.Close() })

	issuer, err := token.NewIssuer(secret)
	require.NoError(t, err)
	verifier, err := token.NewVerifier(secret)
	require.NoError(t, err)

	env := &testEnv{ledger: ledger}
	extractor := extractorFunc(
		func(context.Context, extraction.File) (*extraction.Result, error) {
			res := env.extracted
			return &res, nil
		},
	)
	orchestrator := issuance.NewOrchestrator(
		issuer, ledger, issuance.Stores{
			Institutions: backs.Institutions,
			Certificates: backs.Certificates,
			Issuances:    backs.Issuances,
		},
	)
	env.cl, err = New(
		ServerConf{}, Services{
			Backends:     backs,
			Orchestrator: orchestrator,
			Reconciler:   issuance.NewReconciler(orchestrator, backs.KV, 0),
			Verification: verification.NewService(verifier, extractor, verification.WithAuditLog(backs.Verifications)),
			Verifier:     verifier,
			Bridge:       ledger,
			Renderer:     render.Renderer{LookupURL: "https://certs.example.org/t/"},
			Sessions:     NewSessions([]byte("session-secret"), 0),
		}, opts,
	)
	require.NoError(t, err)
	return env
}

func (env *testEnv) do(t *testing.T, req *http.Request) (int, []byte) {
	t.Helper()
	res, err := env.cl.server.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, data
}

func (env *testEnv) json(t *testing.T, method, path string, body any, bearer string) (int, []byte) {
	t.Helper()
	var r io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		require.NoError(t, err)
		r = bytes.NewReader(data)
	}
	req := httptest.NewRequest(method, path, r)
	req.Header.Set("Content-Type", "application/json")
	if bearer != "" {
		req.Header.Set("Authorization", "Bearer "+bearer)
	}
	return env.do(t, req)
}

func (env *testEnv) upload(t *testing.T, field, contentType string) (int, []byte) {
	t.Helper()
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="%s"; filename="cert.png"`, field))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write([]byte("\x89PNG document"))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	req := httptest.NewRequest(http.MethodPost, "/api/v1/verify", &buf)
	req.Header.Set("Content-Type", w.FormDataContentType())
	return env.do(t, req)
}

func (env *testEnv) register(t *testing.T, name string) string {
	t.Helper()
	status, body := env.json(
		t, http.MethodPost, "/api/v1/institutions", map[string]string{
			"name":     name,
			"password": "correct horse",
		}, "",
	)
	require.Equal(t, http.StatusCreated, status, string(body))
	var res struct {
		Institution struct {
			ID string `json:"id"`
		} `json:"institution"`
	}
	require.NoError(t, json.Unmarshal(body, &res))
	return res.Institution.ID
}

type certificateResponse struct {
	Certificate struct {
		ID                     string `json:"id"`
		InstitutionID          string `json:"institutionId"`
		CandidateID            string `json:"candidateId"`
		CandidateName          string `json:"candidateName"`
		IssuedAt               int64  `json:"issuedAt"`
		Description            string `json:"description"`
		ExternalProofReference string `json:"externalProofReference"`
		LedgerAddress          string `json:"ledgerAddress"`
		Token                  string `json:"token"`
		Verification           string `json:"verification"`
	} `json:"certificate"`
	Institution struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	} `json:"institution"`
}

func (env *testEnv) issue(t *testing.T, institutionID string) certificateResponse {
	t.Helper()
	status, body := env.json(t, http.MethodPost, "/api/v1/certificates", issueBody(institutionID), "")
	require.Equal(t, http.StatusOK, status, string(body))
	var res certificateResponse
	require.NoError(t, json.Unmarshal(body, &res))
	return res
}

func issueBody(institutionID string) map[string]any {
	return map[string]any{
		"institutionId": institutionID,
		"candidateId":   "cand1",
		"candidateName": "Alice",
		"issuedAt":      1700000000,
		"description":   "Completed course",
	}
}

func TestIssueAndLookup(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{})
	instID := env.register(t, "Test University")

	issued := env.issue(t, instID)
	cert := issued.Certificate
	assert.Equal(t, instID, cert.InstitutionID)
	assert.Equal(t, "Alice", cert.CandidateName)
	assert.Equal(t, int64(1700000000), cert.IssuedAt)
	assert.Equal(t, "unverified", cert.Verification)
	assert.NotEmpty(t, cert.ExternalProofReference)

	verifier, err := token.NewVerifier(testSecret)
	require.NoError(t, err)
	tok, err := verifier.Verify(cert.Token)
	require.NoError(t, err)
	assert.Equal(
		t, token.Claims{
			InstitutionID:          instID,
			CandidateID:            "cand1",
			CandidateName:          "Alice",
			IssuedAt:               1700000000,
			ExternalProofReference: cert.ExternalProofReference,
		}, tok.Claims,
	)

	for i := 0; i < 2; i++ {
		status, body := env.json(t, http.MethodGet, "/api/v1/certificates/by-token/"+cert.Token, nil, "")
		require.Equal(t, http.StatusOK, status, string(body))
		var found certificateResponse
		require.NoError(t, json.Unmarshal(body, &found))
		assert.Equal(t, "Alice", found.Certificate.CandidateName)
		assert.Equal(t, "Test University", found.Institution.Name)
		assert.Equal(t, instID, found.Institution.ID)
	}

	status, body := env.json(t, http.MethodPost, "/api/v1/certificates", issueBody(instID), "")
	assert.Equal(t, http.StatusConflict, status, string(body))

	status, body = env.json(t, http.MethodGet, "/api/v1/certificates?institutionId="+instID, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), cert.LedgerAddress)
}

func TestIssueErrors(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{})
	instID := env.register(t, "Test University")

	body := issueBody(instID)
	body["candidateName"] = strings.Repeat("a", 65)
	status, _ := env.json(t, http.MethodPost, "/api/v1/certificates", body, "")
	assert.Equal(t, http.StatusBadRequest, status)

	status, _ = env.json(t, http.MethodPost, "/api/v1/certificates", issueBody("unknown"), "")
	assert.Equal(t, http.StatusNotFound, status)

	status, _ = env.json(
		t, http.MethodPost, "/api/v1/institutions", map[string]string{
			"name":     "Test University",
			"password": "another password",
		}, "",
	)
	assert.Equal(t, http.StatusConflict, status)
}

func TestIssueMissingSecret(t *testing.T) {
	env := newTestEnv(t, nil, Options{})
	instID := env.register(t, "Test University")

	status, body := env.json(t, http.MethodPost, "/api/v1/certificates", issueBody(instID), "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, string(body), "configuration_error")

	entries, err := env.ledger.FetchAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, entries, "nothing may be recorded without a secret")
}

func TestInstitutionAuth(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{RequireInstitutionAuth: true})
	instID := env.register(t, "Test University")
	env.register(t, "Other University")

	status, _ := env.json(t, http.MethodPost, "/api/v1/certificates", issueBody(instID), "")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = env.json(
		t, http.MethodPost, "/api/v1/institutions/login", map[string]string{
			"name":     "Test University",
			"password": "wrong password",
		}, "",
	)
	assert.Equal(t, http.StatusUnauthorized, status)

	login := func(name string) string {
		status, body := env.json(
			t, http.MethodPost, "/api/v1/institutions/login", map[string]string{
				"name":     name,
				"password": "correct horse",
			}, "",
		)
		require.Equal(t, http.StatusOK, status, string(body))
		var res loginResponse
		require.NoError(t, json.Unmarshal(body, &res))
		require.NotEmpty(t, res.Token)
		return res.Token
	}

	status, _ = env.json(t, http.MethodPost, "/api/v1/certificates", issueBody(instID), login("Other University"))
	assert.Equal(t, http.StatusForbidden, status)
	status, body := env.json(
		t, http.MethodPost, "/api/v1/certificates", issueBody(instID), login("Test University"),
	)
	assert.Equal(t, http.StatusOK, status, string(body))
}

func TestVerifyUpload(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{})
	instID := env.register(t, "Test University")
	cert := env.issue(t, instID).Certificate
	forged := cert.Token[:len(cert.Token)-1] + "A"
	if forged == cert.Token {
		forged = cert.Token[:len(cert.Token)-1] + "B"
	}
	otherIssuer, err := token.NewIssuer([]byte("another-secret-another-secret-an"))
	require.NoError(t, err)
	wrongSecret, err := otherIssuer.Mint(
		token.Claims{
			InstitutionID:          cert.InstitutionID,
			CandidateID:            cert.CandidateID,
			CandidateName:          cert.CandidateName,
			IssuedAt:               cert.IssuedAt,
			ExternalProofReference: cert.NFTHash,
		},
	)
	require.NoError(t, err)

	tests := []struct {
		name      string
		extracted extraction.Result
		status    int
		outcome   token.Outcome
	}{
		{
			name:      "verified",
			extracted: extraction.Result{Name: "Alice", Token: cert.Token},
			status:    http.StatusOK,
			outcome:   token.OutcomeVerified,
		},
		{
			name:      "forged",
			extracted: extraction.Result{Name: "Alice", Token: forged},
			status:    http.StatusBadRequest,
			outcome:   token.OutcomeForged,
		},
		{
			name:      "signed with another secret",
			extracted: extraction.Result{Name: "Alice", Token: wrongSecret},
			status:    http.StatusBadRequest,
			outcome:   token.OutcomeForged,
		},
		{
			name:      "name mismatch",
			extracted: extraction.Result{Name: "Alicia", Token: cert.Token},
			status:    http.StatusConflict,
			outcome:   token.OutcomeNameMismatch,
		},
		{
			name:      "incomplete",
			extracted: extraction.Result{Token: cert.Token},
			status:    http.StatusUnprocessableEntity,
			outcome:   token.OutcomeIncompleteExtraction,
		},
	}
	for _, test := range tests {
		t.Run(
			test.name, func(t *testing.T) {
				env.extracted = test.extracted
				status, body := env.upload(t, "file", "image/png")
				require.Equal(t, test.status, status, string(body))
				var res verification.Result
				require.NoError(t, json.Unmarshal(body, &res))
				assert.Equal(t, test.outcome, res.Outcome)
			},
		)
	}

	env.extracted = extraction.Result{Name: "Alice", Token: cert.Token}
	status, _ := env.upload(t, "certificate", "image/png")
	assert.Equal(t, http.StatusOK, status, "the certificate field is accepted as well")
	status, _ = env.upload(t, "file", "text/plain")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = env.upload(t, "document", "image/png")
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestTokensVerify(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{})
	cert := env.issue(t, env.register(t, "Test University")).Certificate

	status, body := env.json(
		t, http.MethodPost, "/api/v1/tokens/verify", map[string]string{"token": cert.Token}, "",
	)
	require.Equal(t, http.StatusOK, status, string(body))
	assert.Contains(t, string(body), `"candidateName":"Alice"`)

	status, body = env.json(
		t, http.MethodPost, "/api/v1/tokens/verify", map[string]string{"token": cert.Token, "name": "Bob"}, "",
	)
	assert.Equal(t, http.StatusConflict, status)
	assert.Contains(t, string(body), `"outcome":"name_mismatch"`)

	status, body = env.json(
		t, http.MethodPost, "/api/v1/tokens/verify", map[string]string{"token": "not.a.token"}, "",
	)
	assert.Equal(t, http.StatusBadRequest, status)
	assert.Contains(t, string(body), `"outcome":"forged"`)
}

func TestLookupErrors(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{LookupVerifySignature: true})

	status, _ := env.json(t, http.MethodGet, "/api/v1/certificates/by-token/not.a.token", nil, "")
	assert.Equal(t, http.StatusBadRequest, status)

	issuer, err := token.NewIssuer(testSecret)
	require.NoError(t, err)
	unknown, err := issuer.Mint(
		token.Claims{
			InstitutionID:          "inst1",
			CandidateID:            "cand1",
			CandidateName:          "Alice",
			IssuedAt:               1700000000,
			ExternalProofReference: "sig",
		},
	)
	require.NoError(t, err)
	status, _ = env.json(t, http.MethodGet, "/api/v1/certificates/by-token/"+unknown, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}

func TestRenderEndpoints(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{})
	cert := env.issue(t, env.register(t, "Test University")).Certificate

	status, body := env.json(t, http.MethodGet, "/api/v1/certificates/by-token/"+cert.Token+"/pdf", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(body, []byte("%PDF-")))

	status, body = env.json(t, http.MethodGet, "/api/v1/certificates/by-token/"+cert.Token+"/qr", nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.True(t, bytes.HasPrefix(body, []byte("\x89PNG")))
}

func TestLedgerEndpoints(t *testing.T) {
	env := newTestEnv(t, testSecret, Options{})
	instID := env.register(t, "Test University")
	cert := env.issue(t, instID).Certificate

	// recorded on the ledger only, e.g. by another instance
	_, err := env.ledger.Submit(
		context.Background(), attestation.Record{
			InstitutionID:   instID,
			InstitutionName: "Test University",
			CandidateID:     "cand2",
			CandidateName:   "Bob",
			IssuedAt:        1700000000,
			Description:     "Completed course",
		},
	)
	require.NoError(t, err)

	var listed struct {
		Certificates []attestation.Entry `json:"certificates"`
	}
	status, body := env.json(t, http.MethodGet, "/api/v1/ledger/certificates", nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &listed))
	assert.Len(t, listed.Certificates, 2)

	status, body = env.json(t, http.MethodGet, "/api/v1/ledger/certificates?anchored=true", nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Certificates, 1)
	assert.Equal(t, cert.LedgerAddress, listed.Certificates[0].Address)

	status, body = env.json(t, http.MethodGet, "/api/v1/ledger/certificates?anchored=false", nil, "")
	require.Equal(t, http.StatusOK, status)
	require.NoError(t, json.Unmarshal(body, &listed))
	require.Len(t, listed.Certificates, 1)
	assert.Equal(t, "Bob", listed.Certificates[0].CandidateName)

	for _, value := range []string{"foo", "1", "TRUE"} {
		status, _ = env.json(t, http.MethodGet, "/api/v1/ledger/certificates?anchored="+value, nil, "")
		assert.Equal(t, http.StatusBadRequest, status, value)
	}

	status, body = env.json(t, http.MethodGet, "/api/v1/ledger/certificates/"+cert.LedgerAddress, nil, "")
	require.Equal(t, http.StatusOK, status)
	assert.Contains(t, string(body), `"candidateName":"Alice"`)

	missing, err := env.ledger.Address(attestation.Key{InstitutionID: instID, CandidateID: "cand3", IssuedAt: 1})
	require.NoError(t, err)
	status, _ = env.json(t, http.MethodGet, "/api/v1/ledger/certificates/"+missing, nil, "")
	assert.Equal(t, http.StatusNotFound, status)
}
