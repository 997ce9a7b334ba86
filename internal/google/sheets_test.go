package google

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	"github.com/shopspring/decimal"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

func setupMockServer(ctx context.Context) (*http.ServeMux, *httptest.Server, *SheetsService) {
	mux := http.NewServeMux()
	server := httptest.NewServer(mux)
	srv, _ := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	return mux, server, newSheetsService(srv, "orders_tid", nil)
}

func sampleOrder(id string) *models.Order {
	created := time.Date(2024, 1, 9, 16, 0, 0, 0, time.UTC)
	return &models.Order{
		ID:             id,
		Branch:         "lwr",
		SlotStart:      "2024-01-10T09:00:00-06:00",
		CustomerName:   "Jane Doe",
		VehicleSize:    models.SizeSmallMidSUV,
		Vehicle:        "2020 HONDA Civic",
		Package:        models.PackageInterior,
		PriceBeforeTax: decimal.RequireFromString("269"),
		PriceAfterTax:  decimal.RequireFromString("295.9"),
		Paid:           true,
		Status:         models.OrderStatusPaid,
		CreatedAt:      created,
		UpdatedAt:      created,
	}
}

func TestSheetsService_TestConnection(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	if err := s.TestConnection(ctx); err != nil {
		t.Errorf("TestConnection failed: %v", err)
	}
}

func TestSheetsService_WarmUpCache(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{
			Values: [][]interface{}{{"ID"}, {"ord-1"}, {}, {"ord-3"}},
		})
	})
	if err := s.WarmUpCache(ctx); err != nil {
		t.Fatalf("WarmUpCache failed: %v", err)
	}
	if row, ok := s.getCachedRow("ord-1"); !ok || row != 2 {
		t.Errorf("Expected row 2 for ord-1, got %d", row)
	}
	if row, ok := s.getCachedRow("ord-3"); !ok || row != 4 {
		t.Errorf("Expected row 4 for ord-3, got %d", row)
	}
	if _, ok := s.getCachedRow("ID"); ok {
		t.Errorf("header row must not be cached")
	}
}

func TestSheetsService_AppendOrder(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{
			Updates: &sheets.UpdateValuesResponse{UpdatedRange: "Orders!A10:Q10"},
		})
	})
	if err := s.AppendOrder(ctx, sampleOrder("ord-9")); err != nil {
		t.Fatalf("AppendOrder failed: %v", err)
	}
	if row, _ := s.getCachedRow("ord-9"); row != 10 {
		t.Errorf("Expected cached row 10, got %d", row)
	}
}

func TestSheetsService_UpsertOrder(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	var body sheets.ValueRange
	s.setCachedRow("ord-1", 2)
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A2:Q2", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.UpsertOrder(ctx, sampleOrder("ord-1")); err != nil {
		t.Fatalf("UpsertOrder failed: %v", err)
	}
	if len(body.Values) != 1 || body.Values[0][0] != "ord-1" {
		t.Fatalf("unexpected row written: %+v", body.Values)
	}
	if err := s.UpsertOrder(ctx, nil); err == nil {
		t.Fatalf("expected error for nil order")
	}
}

func TestSheetsService_UpsertOrderAppendsMissing(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	appended := false
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}}})
	})
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A:A:append", func(w http.ResponseWriter, r *http.Request) {
		appended = true
		_ = json.NewEncoder(w).Encode(sheets.AppendValuesResponse{})
	})

	if err := s.UpsertOrder(ctx, sampleOrder("ord-2")); err != nil {
		t.Fatalf("UpsertOrder failed: %v", err)
	}
	if !appended {
		t.Fatalf("expected missing row to be appended")
	}
}

func TestSheetsService_UpdateOrderStatus(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	s.setCachedRow("ord-1", 5)
	var body sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!P5:Q5", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	if err := s.UpdateOrderStatus(ctx, "ord-1", models.OrderStatusPaid); err != nil {
		t.Fatalf("UpdateOrderStatus failed: %v", err)
	}
	if len(body.Values) != 1 || body.Values[0][0] != models.OrderStatusPaid {
		t.Fatalf("unexpected status write: %+v", body.Values)
	}
}

func TestSheetsService_ReplaceOrdersSheet(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()

	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A:Q:clear", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ClearValuesResponse{})
	})
	var body sheets.ValueRange
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A1", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&body)
		_ = json.NewEncoder(w).Encode(sheets.UpdateValuesResponse{})
	})

	orders := []*models.Order{sampleOrder("ord-1"), sampleOrder("ord-2")}
	if err := s.ReplaceOrdersSheet(ctx, orders); err != nil {
		t.Fatalf("ReplaceOrdersSheet failed: %v", err)
	}
	if len(body.Values) != 3 || body.Values[0][0] != "ID" {
		t.Fatalf("expected headers plus 2 rows, got %+v", body.Values)
	}
	if row, _ := s.getCachedRow("ord-2"); row != 3 {
		t.Errorf("expected ord-2 cached at row 3, got %d", row)
	}
}

func TestSheetsService_FindOrderRowNotFound(t *testing.T) {
	ctx := context.Background()
	mux, server, s := setupMockServer(ctx)
	defer server.Close()
	mux.HandleFunc("/v4/spreadsheets/orders_tid/values/Orders!A:A", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(sheets.ValueRange{Values: [][]interface{}{{"ID"}, {"other"}}})
	})

	if _, err := s.FindOrderRow(ctx, "missing"); err != ErrRowNotFound {
		t.Fatalf("expected ErrRowNotFound, got %v", err)
	}
	if _, err := s.FindOrderRow(ctx, ""); err == nil {
		t.Fatalf("expected error for empty id")
	}
}

func TestOrderRowValues(t *testing.T) {
	values := orderRowValues(sampleOrder("ord-1"))

	if len(values) != len(orderHeaders) {
		t.Fatalf("expected %d values, got %d", len(orderHeaders), len(values))
	}
	expect := map[int]interface{}{
		0:  "ord-1",
		1:  "2024-01-09 16:00:00",
		9:  "Small/Mid-SUV",
		12: "269.00",
		13: "295.90",
		14: "yes",
		15: "paid",
	}
	for i, want := range expect {
		if values[i] != want {
			t.Errorf("At index %d: expected %v, got %v", i, want, values[i])
		}
	}
}

func TestRowFromRange(t *testing.T) {
	if row, ok := rowFromRange("Orders!A12:Q12"); !ok || row != 12 {
		t.Errorf("expected 12, got %d", row)
	}
	if _, ok := rowFromRange("garbage"); ok {
		t.Errorf("expected no row for garbage")
	}
}

func TestCacheOperations(t *testing.T) {
	s := newSheetsService(nil, "x", nil)
	s.setCachedRow("a", 2)
	if row, ok := s.getCachedRow("a"); !ok || row != 2 {
		t.Fatalf("expected cached row 2")
	}
	s.ClearCache()
	if _, ok := s.getCachedRow("a"); ok {
		t.Fatalf("expected cache cleared")
	}
}

func TestGetServiceAccountEmail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "creds.json")
	if err := os.WriteFile(path, []byte(`{"client_email":"bot@project.iam.gserviceaccount.com"}`), 0o600); err != nil {
		t.Fatal(err)
	}
	email, err := GetServiceAccountEmail(path)
	if err != nil || email != "bot@project.iam.gserviceaccount.com" {
		t.Fatalf("unexpected email %q err %v", email, err)
	}
	if _, err := GetServiceAccountEmail(filepath.Join(t.TempDir(), "missing.json")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}
