package server

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"ca-recon-service/internal/reconciler"
)

func newTestServer(t *testing.T) *Server {
	t.Helper()

	service, err := reconciler.NewReconciliationService(nil, nil, nil, nil)
	require.NoError(t, err)

	srv, err := NewServer(DefaultConfig(), service)
	require.NoError(t, err)
	return srv
}

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func performRequest(srv *Server, method, path string, body []byte) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	recorder := httptest.NewRecorder()
	srv.Router().ServeHTTP(recorder, req)
	return recorder
}

func TestNewServerValidation(t *testing.T) {
	service, err := reconciler.NewReconciliationService(nil, nil, nil, nil)
	require.NoError(t, err)

	_, err = NewServer(&Config{Port: -1}, service)
	assert.Error(t, err, "negative port must be rejected")

	_, err = NewServer(DefaultConfig(), nil)
	assert.Error(t, err, "nil service must be rejected")
}

func TestHealthEndpoint(t *testing.T) {
	srv := newTestServer(t)

	recorder := performRequest(srv, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "healthy")
}

func TestReconcileWithInlinePayments(t *testing.T) {
	srv := newTestServer(t)
	ledger := writeTempCSV(t, "ledger.csv", `invoice_no,details,qty,unit_price
INV-001,Consulting services,1,1000.00
`)

	body, err := json.Marshal(map[string]interface{}{
		"ledger": ledger,
		"payments": []map[string]string{
			{"amount": "1000.00", "reference": "NEFT INV-001 consulting services"},
		},
	})
	require.NoError(t, err)

	recorder := performRequest(srv, http.MethodPost, "/api/v1/reconcile", body)
	require.Equal(t, http.StatusOK, recorder.Code, recorder.Body.String())

	var result reconciler.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))

	assert.Equal(t, reconciler.StatusSuccess, result.Status)
	require.Len(t, result.Proposals, 1)
	assert.Equal(t, "single", string(result.Proposals[0].MatchType))
	assert.Equal(t, "INV-001", result.Proposals[0].Invoice.InvoiceNo)
}

func TestReconcileNoPaymentsListsInvoices(t *testing.T) {
	srv := newTestServer(t)
	ledger := writeTempCSV(t, "ledger.csv", `invoice_no,details,qty,unit_price
INV-001,Widgets,2,50.00
INV-002,Gadgets,1,75.00
`)

	body, _ := json.Marshal(map[string]string{"ledger": ledger})

	recorder := performRequest(srv, http.MethodPost, "/api/v1/reconcile", body)
	require.Equal(t, http.StatusOK, recorder.Code)

	var result reconciler.Result
	require.NoError(t, json.Unmarshal(recorder.Body.Bytes(), &result))
	assert.Equal(t, 2, result.InvoicesCount)
	assert.Len(t, result.Invoices, 2)
	assert.Empty(t, result.Proposals)
}

func TestReconcileMissingFilesTolerated(t *testing.T) {
	srv := newTestServer(t)

	body, _ := json.Marshal(map[string]string{
		"ledger":        filepath.Join(t.TempDir(), "absent.csv"),
		"payments_file": filepath.Join(t.TempDir(), "absent-too.csv"),
	})

	recorder := performRequest(srv, http.MethodPost, "/api/v1/reconcile", body)
	assert.Equal(t, http.StatusOK, recorder.Code, "missing input files are an empty run, not an error")
}

func TestReconcileMalformedBody(t *testing.T) {
	srv := newTestServer(t)

	recorder := performRequest(srv, http.MethodPost, "/api/v1/reconcile", []byte("{not json"))
	assert.Equal(t, http.StatusBadRequest, recorder.Code)
	assert.Contains(t, recorder.Body.String(), "bad_request")
}

func TestRequestIDHeader(t *testing.T) {
	srv := newTestServer(t)

	recorder := performRequest(srv, http.MethodGet, "/health", nil)
	assert.NotEmpty(t, recorder.Header().Get("X-Request-ID"), "request id is generated when absent")

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	req.Header.Set("X-Request-ID", "caller-supplied-id")
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, req)
	assert.Equal(t, "caller-supplied-id", rec.Header().Get("X-Request-ID"))
}

func TestConcurrentReconcileRequests(t *testing.T) {
	srv := newTestServer(t)
	ledger := writeTempCSV(t, "ledger.csv", `invoice_no,details,qty,unit_price
INV-001,Widgets,1,500.00
`)

	body, _ := json.Marshal(map[string]interface{}{
		"ledger": ledger,
		"payments": []map[string]string{
			{"amount": "500.00", "reference": "INV-001 widgets"},
		},
	})

	// Each request builds its own invoice pool, so every one matches.
	done := make(chan int, 8)
	for i := 0; i < 8; i++ {
		go func() {
			recorder := performRequest(srv, http.MethodPost, "/api/v1/reconcile", body)
			done <- recorder.Code
		}()
	}
	for i := 0; i < 8; i++ {
		assert.Equal(t, http.StatusOK, <-done)
	}
}
