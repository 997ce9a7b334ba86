package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"sync"
	"time"

	"github.com/detailongo/dotg-team/internal/models"

	"github.com/rs/zerolog"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

const (
	ordersSheet   = "Orders"
	lastColumn    = "Q"
	timeLayout    = "2006-01-02 15:04:05"
	statusColumn  = "P"
	updatedColumn = "Q"
)

var ErrRowNotFound = errors.New("order row not found")

var orderHeaders = []interface{}{
	"ID", "Created At", "Branch", "Slot", "Customer", "Email", "Phone", "Address",
	"Vehicle", "Size", "Package", "Add-ons", "Before Tax", "After Tax", "Paid", "Status", "Updated At",
}

// SheetsService mirrors the order journal into a spreadsheet. Rows are
// located by order ID in column A; the row index is cached.
type SheetsService struct {
	service       *sheets.Service
	spreadsheetID string
	rowCache      map[string]int
	cacheMu       sync.RWMutex
	logger        *zerolog.Logger
}

func NewSheetsService(ctx context.Context, credentialsFile, spreadsheetID string, logger *zerolog.Logger) (*SheetsService, error) {
	credentialsJSON, err := os.ReadFile(credentialsFile)
	if err != nil {
		return nil, fmt.Errorf("unable to read credentials file: %w", err)
	}

	config, err := google.JWTConfigFromJSON(credentialsJSON, sheets.SpreadsheetsScope)
	if err != nil {
		return nil, fmt.Errorf("unable to parse credentials: %w", err)
	}

	srv, err := sheets.NewService(ctx, option.WithHTTPClient(config.Client(ctx)))
	if err != nil {
		return nil, fmt.Errorf("unable to create Sheets service: %w", err)
	}

	return newSheetsService(srv, spreadsheetID, logger), nil
}

func newSheetsService(srv *sheets.Service, spreadsheetID string, logger *zerolog.Logger) *SheetsService {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	l := logger.With().Str("component", "sheets").Logger()
	return &SheetsService{
		service:       srv,
		spreadsheetID: spreadsheetID,
		rowCache:      make(map[string]int),
		logger:        &l,
	}
}

// StartCacheRefresh warms the row cache and refreshes it every interval
// until ctx is done.
func (s *SheetsService) StartCacheRefresh(ctx context.Context, interval time.Duration) {
	refresh := func() {
		rctx, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()
		if err := s.WarmUpCache(rctx); err != nil {
			s.logger.Warn().Err(err).Msg("row cache refresh failed")
		}
	}

	refresh()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			refresh()
		}
	}
}

// TestConnection reads the header cell of the orders sheet.
func (s *SheetsService) TestConnection(ctx context.Context) error {
	_, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, ordersSheet+"!A1").Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("connection test failed: %w", err)
	}
	return nil
}

// GetServiceAccountEmail returns the client_email of a service account key.
func GetServiceAccountEmail(credentialsFile string) (string, error) {
	file, err := os.ReadFile(credentialsFile)
	if err != nil {
		return "", err
	}

	var creds struct {
		ClientEmail string `json:"client_email"`
	}
	if err := json.Unmarshal(file, &creds); err != nil {
		return "", err
	}
	return creds.ClientEmail, nil
}

// WarmUpCache populates the row index cache by reading the ID column.
func (s *SheetsService) WarmUpCache(ctx context.Context) error {
	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, ordersSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return err
	}

	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)

	for i, row := range resp.Values {
		// Row 1 holds the headers.
		if i == 0 || len(row) == 0 {
			continue
		}
		if id := cellString(row[0]); id != "" {
			s.rowCache[id] = i + 1
		}
	}
	return nil
}

// AppendOrder adds a new row for order.
func (s *SheetsService) AppendOrder(ctx context.Context, order *models.Order) error {
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{orderRowValues(order)},
	}

	resp, err := s.service.Spreadsheets.Values.Append(s.spreadsheetID, ordersSheet+"!A:A", valueRange).
		ValueInputOption("RAW").
		InsertDataOption("INSERT_ROWS").
		Context(ctx).
		Do()
	if err != nil {
		return err
	}

	if resp.Updates != nil {
		if row, ok := rowFromRange(resp.Updates.UpdatedRange); ok {
			s.setCachedRow(order.ID, row)
		}
	}
	return nil
}

// UpsertOrder rewrites the order's row or appends one if it is missing.
func (s *SheetsService) UpsertOrder(ctx context.Context, order *models.Order) error {
	if order == nil {
		return errors.New("order is nil")
	}

	rowIdx, err := s.FindOrderRow(ctx, order.ID)
	if err != nil {
		if errors.Is(err, ErrRowNotFound) {
			return s.AppendOrder(ctx, order)
		}
		return err
	}

	rangeData := fmt.Sprintf("%s!A%d:%s%d", ordersSheet, rowIdx, lastColumn, rowIdx)
	valueRange := &sheets.ValueRange{
		Values: [][]interface{}{orderRowValues(order)},
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, valueRange).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	return err
}

// UpdateOrderStatus updates the status and updated-at cells of a row.
func (s *SheetsService) UpdateOrderStatus(ctx context.Context, orderID, status string) error {
	rowIdx, err := s.FindOrderRow(ctx, orderID)
	if err != nil {
		return err
	}

	rangeData := fmt.Sprintf("%s!%s%d:%s%d", ordersSheet, statusColumn, rowIdx, updatedColumn, rowIdx)
	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, rangeData, &sheets.ValueRange{
		Values: [][]interface{}{{status, time.Now().UTC().Format(timeLayout)}},
	}).ValueInputOption("RAW").Context(ctx).Do()
	return err
}

// FindOrderRow locates the 1-based row of orderID in column A.
func (s *SheetsService) FindOrderRow(ctx context.Context, orderID string) (int, error) {
	if orderID == "" {
		return 0, errors.New("order id is required")
	}

	if row, ok := s.getCachedRow(orderID); ok {
		return row, nil
	}

	resp, err := s.service.Spreadsheets.Values.Get(s.spreadsheetID, ordersSheet+"!A:A").Context(ctx).Do()
	if err != nil {
		return 0, err
	}

	for i, row := range resp.Values {
		if len(row) == 0 {
			continue
		}
		if cellString(row[0]) == orderID {
			rowIdx := i + 1
			s.setCachedRow(orderID, rowIdx)
			return rowIdx, nil
		}
	}
	return 0, ErrRowNotFound
}

// ReplaceOrdersSheet clears the sheet and writes headers plus orders.
func (s *SheetsService) ReplaceOrdersSheet(ctx context.Context, orders []*models.Order) error {
	_, err := s.service.Spreadsheets.Values.Clear(s.spreadsheetID, ordersSheet+"!A:"+lastColumn, &sheets.ClearValuesRequest{}).
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to clear orders sheet: %w", err)
	}

	values := [][]interface{}{orderHeaders}
	for _, o := range orders {
		values = append(values, orderRowValues(o))
	}

	_, err = s.service.Spreadsheets.Values.Update(s.spreadsheetID, ordersSheet+"!A1", &sheets.ValueRange{Values: values}).
		ValueInputOption("RAW").
		Context(ctx).
		Do()
	if err != nil {
		return fmt.Errorf("failed to update orders sheet: %w", err)
	}

	s.cacheMu.Lock()
	s.rowCache = make(map[string]int, len(orders))
	for i, o := range orders {
		s.rowCache[o.ID] = i + 2
	}
	s.cacheMu.Unlock()
	return nil
}

// ClearCache clears the row index cache.
func (s *SheetsService) ClearCache() {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache = make(map[string]int)
}

func (s *SheetsService) getCachedRow(id string) (int, bool) {
	s.cacheMu.RLock()
	defer s.cacheMu.RUnlock()
	row, ok := s.rowCache[id]
	return row, ok
}

func (s *SheetsService) setCachedRow(id string, row int) {
	s.cacheMu.Lock()
	defer s.cacheMu.Unlock()
	s.rowCache[id] = row
}

func orderRowValues(o *models.Order) []interface{} {
	paid := "no"
	if o.Paid {
		paid = "yes"
	}
	return []interface{}{
		o.ID,
		o.CreatedAt.UTC().Format(timeLayout),
		o.Branch,
		o.SlotStart,
		o.CustomerName,
		o.Email,
		o.Phone,
		o.Address,
		o.Vehicle,
		string(o.VehicleSize),
		string(o.Package),
		o.Addons,
		o.PriceBeforeTax.StringFixed(2),
		o.PriceAfterTax.StringFixed(2),
		paid,
		o.Status,
		o.UpdatedAt.UTC().Format(timeLayout),
	}
}

func cellString(v interface{}) string {
	switch c := v.(type) {
	case string:
		return c
	case float64:
		return strconv.FormatFloat(c, 'f', -1, 64)
	default:
		return ""
	}
}

var updatedRangeRe = regexp.MustCompile(`![A-Z]+(\d+)`)

// rowFromRange extracts the first row number of an A1 range such as
// "Orders!A10:Q10".
func rowFromRange(a1 string) (int, bool) {
	m := updatedRangeRe.FindStringSubmatch(a1)
	if m == nil {
		return 0, false
	}
	row, err := strconv.Atoi(m[1])
	if err != nil {
		return 0, false
	}
	return row, true
}
