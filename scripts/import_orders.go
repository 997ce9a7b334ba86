package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/detailongo/dotg-team/internal/database"
	"github.com/detailongo/dotg-team/internal/models"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// importedOrder is one row of an orders backfill file.
type importedOrder struct {
	ID            string `yaml:"id"`
	Branch        string `yaml:"branch"`
	SlotStart     string `yaml:"slot_start"`
	CustomerName  string `yaml:"customer_name"`
	Email         string `yaml:"email"`
	Phone         string `yaml:"phone"`
	Address       string `yaml:"address"`
	VehicleSize   string `yaml:"vehicle_size"`
	Vehicle       string `yaml:"vehicle"`
	Package       string `yaml:"package"`
	Addons        string `yaml:"addons"`
	PriceBefore   string `yaml:"price_before_tax"`
	PriceAfter    string `yaml:"price_after_tax"`
	Paid          bool   `yaml:"paid"`
	Status        string `yaml:"status"`
	CreatedAt     string `yaml:"created_at"`
}

type ordersFile struct {
	Orders []importedOrder `yaml:"orders"`
}

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	var (
		ordersPath = flag.String("orders", "configs/orders.yaml", "path to orders backfill yaml")
		dbPath     = flag.String("db", "./data/orders.db", "path to sqlite db")
	)
	flag.Parse()

	data, err := os.ReadFile(*ordersPath)
	if err != nil {
		return fmt.Errorf("read orders: %w", err)
	}
	var file ordersFile
	if err = yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse orders: %w", err)
	}
	if len(file.Orders) == 0 {
		return fmt.Errorf("no orders in yaml")
	}

	db, err := database.NewDB(*dbPath, &logger)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer db.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	created := 0
	skipped := 0
	for _, row := range file.Orders {
		if row.ID == "" {
			continue
		}
		_, err = db.GetOrder(ctx, row.ID)
		if err == nil {
			skipped++
			continue
		}
		if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("get %s: %w", row.ID, err)
		}

		order, convErr := row.toOrder()
		if convErr != nil {
			return fmt.Errorf("order %s: %w", row.ID, convErr)
		}
		if err = db.CreateOrder(ctx, order); err != nil {
			return fmt.Errorf("create %s: %w", row.ID, err)
		}
		created++
	}

	fmt.Printf("done: created=%d skipped=%d\n", created, skipped)
	return nil
}

func (r importedOrder) toOrder() (*models.Order, error) {
	before, err := parseAmount(r.PriceBefore)
	if err != nil {
		return nil, fmt.Errorf("price_before_tax: %w", err)
	}
	after, err := parseAmount(r.PriceAfter)
	if err != nil {
		return nil, fmt.Errorf("price_after_tax: %w", err)
	}
	if after.IsZero() {
		after = before
	}

	createdAt := time.Now()
	if r.CreatedAt != "" {
		if createdAt, err = time.Parse(time.RFC3339, r.CreatedAt); err != nil {
			return nil, fmt.Errorf("created_at: %w", err)
		}
	}

	status := r.Status
	if status == "" {
		status = models.OrderStatusSubmitted
		if r.Paid {
			status = models.OrderStatusPaid
		}
	}

	return &models.Order{
		ID:             r.ID,
		Branch:         r.Branch,
		SlotStart:      r.SlotStart,
		CustomerName:   r.CustomerName,
		Email:          r.Email,
		Phone:          r.Phone,
		Address:        r.Address,
		VehicleSize:    models.SizeClass(r.VehicleSize),
		Vehicle:        r.Vehicle,
		Package:        models.Package(r.Package),
		Addons:         r.Addons,
		PriceBeforeTax: before,
		PriceAfterTax:  after,
		Paid:           r.Paid,
		Status:         status,
		CreatedAt:      createdAt,
		UpdatedAt:      createdAt,
	}, nil
}

func parseAmount(s string) (decimal.Decimal, error) {
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}
