package adminapi

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/certledger/certledger/attestation"
	"github.com/certledger/certledger/issuance"
	"github.com/certledger/certledger/storage"
	"github.com/certledger/certledger/storage/model"
	"github.com/certledger/certledger/token"
)

func newTestApp(t *testing.T, withReconciler bool) (*fiber.App, model.Backends) {
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

	var reconciler *issuance.Reconciler
	if withReconciler {
		ledger, err := attestation.NewLocalLedger(attestation.LocalLedgerConfig{})
		require.NoError(t, err)
		t.Cleanup(func() { _ = ledger.Close() })
		issuer, err := token.NewIssuer([]byte("0123456789abcdef0123456789abcdef"))
		require.NoError(t, err)
		o := issuance.NewOrchestrator(
			issuer, ledger, issuance.Stores{
				Institutions: backs.Institutions,
				Certificates: backs.Certificates,
				Issuances:    backs.Issuances,
			},
		)
		reconciler = issuance.NewReconciler(o, backs.KV, 0)
	}

	app := fiber.New()
	require.NoError(t, Register(app.Group("/admin"), backs, reconciler, nil))
	return app, backs
}

func do(t *testing.T, app *fiber.App, method, path, body string, auth ...string) (int, string) {
	t.Helper()
	var r io.Reader
	if body != "" {
		r = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, r)
	if body != "" {
		req.Header.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	}
	if len(auth) == 2 {
		req.SetBasicAuth(auth[0], auth[1])
	}
	res, err := app.Test(req, -1)
	require.NoError(t, err)
	data, err := io.ReadAll(res.Body)
	require.NoError(t, err)
	return res.StatusCode, string(data)
}

func TestAuthMiddleware(t *testing.T) {
	app, backs := newTestApp(t, false)

	status, _ := do(t, app, http.MethodGet, "/admin/institutions", "")
	assert.Equal(t, http.StatusOK, status, "admin api must be open without operators")

	_, err := backs.Operators.Create("admin", "pw")
	require.NoError(t, err)

	status, _ = do(t, app, http.MethodGet, "/admin/institutions", "")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = do(t, app, http.MethodGet, "/admin/institutions", "", "admin", "wrong")
	assert.Equal(t, http.StatusUnauthorized, status)
	status, _ = do(t, app, http.MethodGet, "/admin/institutions", "", "admin", "pw")
	assert.Equal(t, http.StatusOK, status)

	require.NoError(t, backs.Operators.SetDisabled("admin", true))
	status, _ = do(t, app, http.MethodGet, "/admin/institutions", "", "admin", "pw")
	assert.Equal(t, http.StatusUnauthorized, status)

	status, _ = do(t, app, http.MethodGet, "/admin/openapi.yaml", "")
	assert.Equal(t, http.StatusOK, status, "docs are public")
}

func TestInstitutionVerification(t *testing.T) {
	app, backs := newTestApp(t, false)
	inst, err := backs.Institutions.Create("Uni", "password")
	require.NoError(t, err)

	status, body := do(
		t, app, http.MethodPut, "/admin/institutions/"+inst.ID+"/verification", `{"verification":"verified"}`,
	)
	require.Equal(t, http.StatusOK, status, body)
	var got model.Institution
	require.NoError(t, json.Unmarshal([]byte(body), &got))
	assert.Equal(t, model.VerificationVerified, got.Verification)

	status, _ = do(t, app, http.MethodPut, "/admin/institutions/unknown/verification", `{"verification":"verified"}`)
	assert.Equal(t, http.StatusNotFound, status)
	status, _ = do(
		t, app, http.MethodPut, "/admin/institutions/"+inst.ID+"/verification", `{"verification":"maybe"}`,
	)
	assert.Equal(t, http.StatusBadRequest, status)
}

func TestIssuances(t *testing.T) {
	app, backs := newTestApp(t, true)
	require.NoError(
		t, backs.Issuances.Create(
			&model.Issuance{
				LedgerAddress: "addr1",
				State:         model.IssuancePartial,
				InstitutionID: "inst",
			},
		),
	)
	require.NoError(
		t, backs.Issuances.Create(
			&model.Issuance{
				LedgerAddress: "addr2",
				State:         model.IssuancePersisted,
				InstitutionID: "inst",
			},
		),
	)

	status, body := do(t, app, http.MethodGet, "/admin/issuances?state=partial", "")
	require.Equal(t, http.StatusOK, status)
	var list []model.Issuance
	require.NoError(t, json.Unmarshal([]byte(body), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "addr1", list[0].LedgerAddress)

	status, _ = do(t, app, http.MethodGet, "/admin/issuances?state=nonsense", "")
	assert.Equal(t, http.StatusBadRequest, status)
	status, _ = do(t, app, http.MethodGet, "/admin/issuances/addr2", "")
	assert.Equal(t, http.StatusOK, status)

	status, _ = do(t, app, http.MethodGet, "/admin/issuances/reconcile/last", "")
	assert.Equal(t, http.StatusNotFound, status)
	status, body = do(t, app, http.MethodPost, "/admin/issuances/reconcile", "")
	require.Equal(t, http.StatusOK, status, body)
	var summary issuance.Summary
	require.NoError(t, json.Unmarshal([]byte(body), &summary))
	assert.Zero(t, summary.Scanned)
	status, _ = do(t, app, http.MethodGet, "/admin/issuances/reconcile/last", "")
	assert.Equal(t, http.StatusOK, status)
}

func TestReconcileDisabled(t *testing.T) {
	app, _ := newTestApp(t, false)
	status, body := do(t, app, http.MethodPost, "/admin/issuances/reconcile", "")
	assert.Equal(t, http.StatusInternalServerError, status)
	assert.Contains(t, body, "configuration_error")
}

func TestOperators(t *testing.T) {
	app, _ := newTestApp(t, false)
	status, _ := do(t, app, http.MethodPost, "/admin/operators", `{"username":"admin","password":"pw"}`)
	require.Equal(t, http.StatusCreated, status)
	status, _ = do(t, app, http.MethodPost, "/admin/operators", `{"username":"admin","password":"pw"}`, "admin", "pw")
	assert.Equal(t, http.StatusConflict, status)
	status, _ = do(t, app, http.MethodPut, "/admin/operators/nobody", `{"disabled":true}`, "admin", "pw")
	assert.Equal(t, http.StatusNotFound, status)
	status, body := do(t, app, http.MethodGet, "/admin/operators", "", "admin", "pw")
	require.Equal(t, http.StatusOK, status)
	assert.NotContains(t, body, "argon2id")
}

func TestAdaptServerURLPort(t *testing.T) {
	tests := map[string]string{
		"https://certs.example.org":      "https://certs.example.org:8081",
		"https://certs.example.org:8443": "https://certs.example.org:8081",
		"":                               "",
	}
	for in, want := range tests {
		assert.Equal(t, want, adaptServerURLPort(in, 8081))
	}
}
