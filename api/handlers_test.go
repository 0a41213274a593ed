package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kegtracer/engine/ledger"
	"github.com/kegtracer/engine/store/sqlite"
)

// newTestServer spins up the full router over an in-memory SQLite store.
func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()

	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	svc := ledger.NewService(db)
	h := NewHandler(svc, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(h, zerolog.Nop(), []string{"*"}))
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url string, body any, out any) int {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()

	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func createClient(t *testing.T, srv *httptest.Server, name string) ClientDTO {
	t.Helper()
	var c ClientDTO
	status := doJSON(t, http.MethodPost, srv.URL+"/api/clients", CreateClientRequest{Name: name}, &c)
	require.Equal(t, http.StatusCreated, status)
	return c
}

func createBeer(t *testing.T, srv *httptest.Server, name, price string) BeerDTO {
	t.Helper()
	var b BeerDTO
	status := doJSON(t, http.MethodPost, srv.URL+"/api/beers", CreateBeerRequest{
		Name:         name,
		VolumeLiters: 20,
		PriceTTC:     price,
	}, &b)
	require.Equal(t, http.StatusCreated, status)
	return b
}

// =============================================================================
// HEALTH
// =============================================================================

func TestHealthz(t *testing.T) {
	srv := newTestServer(t)

	var body map[string]string
	status := doJSON(t, http.MethodGet, srv.URL+"/api/healthz", nil, &body)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, "ok", body["status"])
}

// =============================================================================
// CLIENTS
// =============================================================================

func TestClientEndpoints(t *testing.T) {
	srv := newTestServer(t)

	created := createClient(t, srv, "Le Zinc")
	assert.NotZero(t, created.ID)

	// Duplicate name -> 409
	status := doJSON(t, http.MethodPost, srv.URL+"/api/clients", CreateClientRequest{Name: "Le Zinc"}, nil)
	assert.Equal(t, http.StatusConflict, status)

	// Blank name -> 400
	status = doJSON(t, http.MethodPost, srv.URL+"/api/clients", CreateClientRequest{Name: "  "}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var clients []ClientDTO
	status = doJSON(t, http.MethodGet, srv.URL+"/api/clients", nil, &clients)
	assert.Equal(t, http.StatusOK, status)
	require.Len(t, clients, 1)
	assert.Equal(t, "Le Zinc", clients[0].Name)

	// Delete, then deleting again -> 404
	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/clients/%d", srv.URL, created.ID), nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/clients/%d", srv.URL, created.ID), nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestDeleteClientWithMovementsConflicts(t *testing.T) {
	srv := newTestServer(t)
	client := createClient(t, srv, "Le Zinc")
	beer := createBeer(t, srv, "Coreff IPA 20L", "85.00")

	status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", CreateMovementRequest{
		Date:     "2024-03-15",
		Type:     "delivery",
		ClientID: client.ID,
		BeerID:   beer.ID,
		Quantity: 1,
	}, nil)
	require.Equal(t, http.StatusCreated, status)

	status = doJSON(t, http.MethodDelete, fmt.Sprintf("%s/api/clients/%d", srv.URL, client.ID), nil, nil)
	assert.Equal(t, http.StatusConflict, status)
}

// =============================================================================
// BEERS
// =============================================================================

func TestBeerEndpoints(t *testing.T) {
	srv := newTestServer(t)

	// Deposit omitted -> standard consigne
	beer := createBeer(t, srv, "Coreff IPA 20L", "85.00")
	assert.Equal(t, "85.00", beer.PriceTTC)
	assert.Equal(t, "30.00", beer.DepositPerKeg)

	// Malformed price -> 400
	status := doJSON(t, http.MethodPost, srv.URL+"/api/beers", CreateBeerRequest{
		Name: "Broken", PriceTTC: "not-a-price",
	}, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	var beers []BeerDTO
	status = doJSON(t, http.MethodGet, srv.URL+"/api/beers", nil, &beers)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, beers, 1)
}

// =============================================================================
// MOVEMENTS
// =============================================================================

func TestMovementEndpoints(t *testing.T) {
	srv := newTestServer(t)
	client := createClient(t, srv, "Le Zinc")
	beer := createBeer(t, srv, "Coreff IPA 20L", "85.00")

	var m MovementDTO
	status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", CreateMovementRequest{
		Date:     "2024-03-15",
		Type:     "delivery",
		ClientID: client.ID,
		BeerID:   beer.ID,
		Quantity: 3,
		Note:     "livraison du vendredi",
	}, &m)
	require.Equal(t, http.StatusCreated, status)
	assert.NotEmpty(t, m.ID)
	assert.Equal(t, "85.00", m.PricePerKeg)
	assert.Equal(t, "30.00", m.DepositPerKeg)
	assert.Equal(t, "2024-03-15", m.Date)

	var got MovementDTO
	status = doJSON(t, http.MethodGet, srv.URL+"/api/movements/"+m.ID, nil, &got)
	assert.Equal(t, http.StatusOK, status)
	assert.Equal(t, m.ID, got.ID)

	status = doJSON(t, http.MethodDelete, srv.URL+"/api/movements/"+m.ID, nil, nil)
	assert.Equal(t, http.StatusNoContent, status)
	status = doJSON(t, http.MethodGet, srv.URL+"/api/movements/"+m.ID, nil, nil)
	assert.Equal(t, http.StatusNotFound, status)
}

func TestCreateMovementErrors(t *testing.T) {
	srv := newTestServer(t)
	client := createClient(t, srv, "Le Zinc")
	beer := createBeer(t, srv, "Coreff IPA 20L", "85.00")

	base := CreateMovementRequest{
		Date:     "2024-03-15",
		Type:     "delivery",
		ClientID: client.ID,
		BeerID:   beer.ID,
		Quantity: 1,
	}

	t.Run("malformed date is rejected, not replaced with today", func(t *testing.T) {
		req := base
		req.Date = "15/03/2024"
		status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", req, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown type", func(t *testing.T) {
		req := base
		req.Type = "pickup"
		status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", req, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("zero quantity", func(t *testing.T) {
		req := base
		req.Quantity = 0
		status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", req, nil)
		assert.Equal(t, http.StatusBadRequest, status)
	})

	t.Run("unknown client", func(t *testing.T) {
		req := base
		req.ClientID = 9999
		status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", req, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})

	t.Run("unknown beer", func(t *testing.T) {
		req := base
		req.BeerID = 9999
		status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", req, nil)
		assert.Equal(t, http.StatusNotFound, status)
	})
}

func TestDuplicatePostWithIdempotencyKey(t *testing.T) {
	srv := newTestServer(t)
	client := createClient(t, srv, "Le Zinc")
	beer := createBeer(t, srv, "Coreff IPA 20L", "85.00")

	req := CreateMovementRequest{
		Date:           "2024-03-15",
		Type:           "delivery",
		ClientID:       client.ID,
		BeerID:         beer.ID,
		Quantity:       2,
		IdempotencyKey: "order-42",
	}

	var first, second MovementDTO
	status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", req, &first)
	require.Equal(t, http.StatusCreated, status)
	status = doJSON(t, http.MethodPost, srv.URL+"/api/movements", req, &second)
	require.Equal(t, http.StatusCreated, status)

	assert.Equal(t, first.ID, second.ID)

	var movements []MovementDTO
	status = doJSON(t, http.MethodGet, srv.URL+"/api/movements", nil, &movements)
	assert.Equal(t, http.StatusOK, status)
	assert.Len(t, movements, 1)
}

func TestLegacyReturnTypeMapsToEmptyReturn(t *testing.T) {
	srv := newTestServer(t)
	client := createClient(t, srv, "Le Zinc")
	beer := createBeer(t, srv, "Coreff IPA 20L", "85.00")

	var m MovementDTO
	status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", CreateMovementRequest{
		Date:     "2024-03-15",
		Type:     "return",
		ClientID: client.ID,
		BeerID:   beer.ID,
		Quantity: 1,
	}, &m)
	require.Equal(t, http.StatusCreated, status)
	assert.Equal(t, "return_empty", m.Type)
}

// =============================================================================
// REPORTS
// =============================================================================

func TestReportEndpoint(t *testing.T) {
	srv := newTestServer(t)
	client := createClient(t, srv, "Le Zinc")
	beer := createBeer(t, srv, "Coreff IPA 20L", "85.00")

	post := func(mtype string, qty int) {
		status := doJSON(t, http.MethodPost, srv.URL+"/api/movements", CreateMovementRequest{
			Date:     "2024-03-15",
			Type:     mtype,
			ClientID: client.ID,
			BeerID:   beer.ID,
			Quantity: qty,
		}, nil)
		require.Equal(t, http.StatusCreated, status)
	}
	post("delivery", 3)
	post("return_empty", 1)

	var report ReportResponse
	status := doJSON(t, http.MethodGet,
		srv.URL+"/api/reports?from=2024-03-01&to=2024-03-31", nil, &report)
	require.Equal(t, http.StatusOK, status)

	assert.Equal(t, int64(3), report.Totals.Delivered)
	assert.Equal(t, int64(2), report.Totals.OutstandingEmpties)
	assert.Equal(t, "90.00", report.Totals.DepositCharged)
	assert.Equal(t, "30.00", report.Totals.DepositRefunded)
	assert.Equal(t, "60.00", report.Totals.DepositBalance)
	assert.Equal(t, "170.00", report.Totals.GoodsTotal)

	require.Len(t, report.ByClient, 1)
	assert.Equal(t, "Le Zinc", report.ByClient[0].ClientName)
	require.Len(t, report.ByBeer, 1)
	assert.Equal(t, "Coreff IPA 20L", report.ByBeer[0].BeerName)

	// An empty scope still returns explicit zero totals
	var empty ReportResponse
	status = doJSON(t, http.MethodGet,
		srv.URL+"/api/reports?from=2023-01-01&to=2023-01-31", nil, &empty)
	require.Equal(t, http.StatusOK, status)
	assert.Equal(t, "0.00", empty.Totals.DepositBalance)
	assert.Empty(t, empty.ByClient)
}

func TestReportFilterValidation(t *testing.T) {
	srv := newTestServer(t)

	// from without to
	status := doJSON(t, http.MethodGet, srv.URL+"/api/reports?from=2024-03-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// inverted range
	status = doJSON(t, http.MethodGet, srv.URL+"/api/reports?from=2024-03-10&to=2024-03-01", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// malformed months_back
	status = doJSON(t, http.MethodGet, srv.URL+"/api/reports?months_back=zero", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)

	// months_back is valid on reports
	status = doJSON(t, http.MethodGet, srv.URL+"/api/reports?months_back=1", nil, nil)
	assert.Equal(t, http.StatusOK, status)

	// but not on the movement list
	status = doJSON(t, http.MethodGet, srv.URL+"/api/movements?months_back=1", nil, nil)
	assert.Equal(t, http.StatusBadRequest, status)
}
