package pricing

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/detailongo/dotg-team/internal/config"
	"github.com/detailongo/dotg-team/internal/gateway"
	"github.com/detailongo/dotg-team/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockTaxClient struct {
	mock.Mock
}

func (m *mockTaxClient) QuoteTax(ctx context.Context, req gateway.TaxRequest) (gateway.TaxResponse, error) {
	args := m.Called(ctx, req)
	return args.Get(0).(gateway.TaxResponse), args.Error(1)
}

func fullContact() models.Contact {
	return models.Contact{
		Phone:   "785-555-0100",
		Address: "1 Main St, Lawrence, KS 66044",
		Parts:   models.AddressParts{Street: "1 Main St", City: "Lawrence", State: "KS", Postal: "66044"},
	}
}

func quoteOf(amount string) models.PriceQuote {
	return models.PriceQuote{PriceBeforeTax: dec(amount)}.WithoutTax()
}

func TestComputeTaxSuccess(t *testing.T) {
	client := new(mockTaxClient)
	client.On("QuoteTax", mock.Anything, mock.MatchedBy(func(r gateway.TaxRequest) bool {
		return r.AddressCountry == "US" && r.Amount.String() == "100" && r.AddressPostal == "66044"
	})).Return(gateway.TaxResponse{
		TotalBeforeTax: dec("100"),
		TaxRate:        dec("9.5"),
		TotalTax:       dec("9.50"),
		TotalAfterTax:  dec("109.50"),
	}, nil)

	q := NewTaxQuoter(client, nil).ComputeTax(context.Background(), fullContact(), quoteOf("100"))
	assert.True(t, q.TaxKnown)
	assert.True(t, q.PriceAfterTax.Equal(dec("109.50")))
	assert.True(t, q.TaxAmount.Equal(dec("9.50")))
	assert.True(t, q.PriceAfterTax.GreaterThanOrEqual(q.PriceBeforeTax))
	client.AssertExpectations(t)
}

func TestComputeTaxFallback(t *testing.T) {
	tests := []struct {
		name    string
		contact models.Contact
		resp    gateway.TaxResponse
		err     error
	}{
		{name: "Network", contact: fullContact(), err: fmt.Errorf("%w: dial", gateway.ErrInternal)},
		{name: "Status", contact: fullContact(), err: fmt.Errorf("%w: 500", gateway.ErrUnexpectedStatus)},
		{name: "ErrorBody", contact: fullContact(), err: fmt.Errorf("%w: bad address", gateway.ErrRejected)},
		{name: "Malformed", contact: fullContact(), err: gateway.ErrInvalidResponse},
		{name: "Inconsistent", contact: fullContact(), resp: gateway.TaxResponse{TotalTax: dec("5"), TotalAfterTax: dec("90")}},
		{name: "ZeroTotals", contact: fullContact(), resp: gateway.TaxResponse{}},
		{name: "MissingAddress", contact: models.Contact{Phone: "1"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := new(mockTaxClient)
			client.On("QuoteTax", mock.Anything, mock.Anything).Return(tt.resp, tt.err).Maybe()

			q := NewTaxQuoter(client, nil).ComputeTax(context.Background(), tt.contact, quoteOf("100.00"))
			assert.False(t, q.TaxKnown)
			assert.True(t, q.PriceAfterTax.Equal(dec("100.00")))
			assert.Equal(t, "(to be calculated)", q.TaxRateLabel())
		})
	}
}

func TestComputeTaxEmptyServiceBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{}`))
	}))
	defer srv.Close()
	client := gateway.NewClient(config.ServicesConfig{TaxURL: srv.URL, Timeout: time.Second}, nil)

	q := NewTaxQuoter(client, nil).ComputeTax(context.Background(), fullContact(), quoteOf("100.00"))
	assert.False(t, q.TaxKnown)
	assert.True(t, q.PriceAfterTax.Equal(dec("100.00")))
	assert.True(t, q.TaxAmount.IsZero())
	assert.Equal(t, "(to be calculated)", q.TaxRateLabel())
}

func TestComputeTaxZeroAmountSkipsService(t *testing.T) {
	client := new(mockTaxClient)
	q := NewTaxQuoter(client, nil).ComputeTax(context.Background(), fullContact(), quoteOf("0"))
	assert.False(t, q.TaxKnown)
	client.AssertNotCalled(t, "QuoteTax", mock.Anything, mock.Anything)
}

func TestReasonFor(t *testing.T) {
	assert.Equal(t, "error_body", reasonFor(gateway.ErrRejected))
	assert.Equal(t, "request_failed", reasonFor(errors.New("x")))
}
