package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/bher20/billmanager/internal/billing"
	"github.com/bher20/billmanager/internal/storage"
)

func testMux() *http.ServeMux {
	svc := billing.NewServiceWithStorage(storage.NewMemory())
	mux := http.NewServeMux()
	registerBillRoutes(mux, svc)
	registerTariffRoutes(mux)
	return mux
}

func postBill(t *testing.T, mux *http.ServeMux, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/bills", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	return rr
}

func TestPostBill(t *testing.T) {
	mux := testMux()

	rr := postBill(t, mux, `{
		"category": "DS1D",
		"units": 120,
		"days": 30,
		"load_descriptor": "TL=5, DL=3",
		"previous_due": 0
	}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rr.Code, rr.Body.String())
	}

	var res billing.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.ID == "" {
		t.Error("response has no record ID")
	}
	if res.Category != "DS1D" {
		t.Errorf("category = %q, want DS1D", res.Category)
	}
	if res.Breakdown.FinalAmountDue <= 0 {
		t.Errorf("final amount due = %.2f, want positive", res.Breakdown.FinalAmountDue)
	}
	if len(res.Notices) != 0 {
		t.Errorf("unexpected notices: %v", res.Notices)
	}
}

func TestPostBillSoftDefaultsReturnNotices(t *testing.T) {
	mux := testMux()

	rr := postBill(t, mux, `{
		"category": "COMMERCIAL",
		"units": 120,
		"days": 30,
		"load_descriptor": "gibberish",
		"previous_due": 0
	}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201; body: %s", rr.Code, rr.Body.String())
	}

	var res billing.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &res); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if res.Category != "DS2D" {
		t.Errorf("category = %q, want fallback DS2D", res.Category)
	}
	if len(res.Notices) != 2 {
		t.Errorf("got %d notices, want 2: %v", len(res.Notices), res.Notices)
	}
}

func TestPostBillBadRequests(t *testing.T) {
	mux := testMux()

	cases := []struct {
		name string
		body string
	}{
		{"not json", `not json`},
		{"missing units", `{"category":"DS1D","days":30,"load_descriptor":"5,3","previous_due":0}`},
		{"missing previous_due", `{"category":"DS1D","units":100,"days":30,"load_descriptor":"5,3"}`},
		{"zero days", `{"category":"DS1D","units":100,"days":0,"load_descriptor":"5,3","previous_due":0}`},
		{"negative units", `{"category":"DS1D","units":-1,"days":30,"load_descriptor":"5,3","previous_due":0}`},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			rr := postBill(t, mux, tc.body)
			if rr.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400; body: %s", rr.Code, rr.Body.String())
			}
		})
	}
}

func TestGetBill(t *testing.T) {
	mux := testMux()

	rr := postBill(t, mux, `{"category":"DS2D","units":200,"days":30,"load_descriptor":"4,4","previous_due":50}`)
	if rr.Code != http.StatusCreated {
		t.Fatalf("setup POST status = %d", rr.Code)
	}
	var created billing.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &created); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bills/"+created.ID, nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rr.Code)
	}
	var got billing.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if got.ID != created.ID {
		t.Errorf("ID = %q, want %q", got.ID, created.ID)
	}
	if got.Breakdown != created.Breakdown {
		t.Errorf("breakdown mismatch:\n got %+v\nwant %+v", got.Breakdown, created.Breakdown)
	}

	req = httptest.NewRequest(http.MethodGet, "/api/v1/bills/no-such-id", nil)
	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET missing status = %d, want 404", rr.Code)
	}
}

func TestListBills(t *testing.T) {
	mux := testMux()

	req := httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil)
	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, req)
	if rr.Code != http.StatusOK {
		t.Fatalf("GET status = %d, want 200", rr.Code)
	}
	if strings.TrimSpace(rr.Body.String()) != "[]" {
		t.Errorf("empty list body = %q, want []", rr.Body.String())
	}

	postBill(t, mux, `{"category":"DS1D","units":100,"days":30,"load_descriptor":"2,2","previous_due":0}`)
	postBill(t, mux, `{"category":"DS2D","units":250,"days":30,"load_descriptor":"5,4","previous_due":0}`)

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/bills", nil))
	var list []billing.Result
	if err := json.Unmarshal(rr.Body.Bytes(), &list); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(list) != 2 {
		t.Errorf("list has %d entries, want 2", len(list))
	}
}

func TestTariffEndpoints(t *testing.T) {
	mux := testMux()

	rr := httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tariffs", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/tariffs status = %d, want 200", rr.Code)
	}
	var entries []tariffEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &entries); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(entries) != 2 {
		t.Errorf("got %d tariff entries, want 2", len(entries))
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tariffs/DS1D", nil))
	if rr.Code != http.StatusOK {
		t.Fatalf("GET /api/v1/tariffs/DS1D status = %d, want 200", rr.Code)
	}
	var entry tariffEntry
	if err := json.Unmarshal(rr.Body.Bytes(), &entry); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if entry.Config.MonthlyLimit != 50 {
		t.Errorf("DS1D monthly limit = %g, want 50", entry.Config.MonthlyLimit)
	}

	rr = httptest.NewRecorder()
	mux.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/api/v1/tariffs/DS9X", nil))
	if rr.Code != http.StatusNotFound {
		t.Errorf("GET unknown tariff status = %d, want 404", rr.Code)
	}
}
