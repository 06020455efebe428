package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/shopspring/decimal"

	"github.com/ledgerbook/ledger/internal/app"
	"github.com/ledgerbook/ledger/internal/ledger/model"
	"github.com/ledgerbook/ledger/internal/ledger/repository"
	"github.com/ledgerbook/ledger/internal/ledger/store/postgres"
	"github.com/ledgerbook/ledger/internal/platform/db"
)

func main() {
	cfg, err := app.LoadConfig()
	if err != nil {
		slog.Default().Error("load config", slog.Any("error", err))
		os.Exit(1)
	}
	logger := app.NewLogger(cfg)
	ctx := context.Background()

	pool, err := db.New(ctx, cfg.PGDSN)
	if err != nil {
		logger.Error("connect postgres", slog.Any("error", err))
		os.Exit(1)
	}
	defer pool.Close()

	if err := db.Migrate(ctx, pool, logger); err != nil {
		logger.Error("migrate", slog.Any("error", err))
		os.Exit(1)
	}

	repos := repository.New(postgres.New(pool).Gateways(), repository.Options{Logger: logger})
	if err := seed(ctx, repos, time.Now()); err != nil {
		logger.Error("seed ledger", slog.Any("error", err))
		os.Exit(1)
	}
	logger.Info("seed completed")
}

type demoProduct struct {
	name  string
	price int64
}

var demoProducts = []demoProduct{
	{"Es Teh", 5000},
	{"Nasi Goreng", 18000},
	{"Mie Ayam", 15000},
	{"Kopi Susu", 12000},
}

// seed writes demo customers, products and queues through the coordinators, so balances are
// settled the same way live writes settle them.
func seed(ctx context.Context, repos *repository.Repositories, now time.Time) error {
	customers := map[string]int64{}
	for _, c := range []model.Customer{{Name: "Ayu", Balance: 100000}, {Name: "Budi", Balance: 20000}, {Name: "Citra"}} {
		id, err := repos.Customers.Add(ctx, c)
		if err != nil {
			return fmt.Errorf("customer %s: %w", c.Name, err)
		}
		customers[c.Name] = id
	}

	products := make([]model.Product, 0, len(demoProducts))
	for _, p := range demoProducts {
		product := model.Product{Name: p.name, Price: p.price}
		id, err := repos.Products.Add(ctx, product)
		if err != nil {
			return fmt.Errorf("product %s: %w", p.name, err)
		}
		product.ID = model.Int64(id)
		products = append(products, product)
	}

	queues := []model.Queue{
		demoQueue(customers["Ayu"], model.QueueStatusCompleted, model.PaymentMethodAccountBalance, now.AddDate(0, 0, -2), products[0], products[1]),
		demoQueue(customers["Budi"], model.QueueStatusUnpaid, model.PaymentMethodCash, now.AddDate(0, 0, -1), products[2]),
		demoQueue(customers["Citra"], model.QueueStatusInQueue, model.PaymentMethodCash, now, products[3], products[0]),
	}
	for _, q := range queues {
		if _, err := repos.Queues.Add(ctx, q); err != nil {
			return fmt.Errorf("queue of customer %d: %w", *q.CustomerID, err)
		}
	}
	return nil
}

func demoQueue(customerID int64, status model.QueueStatus, method model.PaymentMethod, date time.Time, items ...model.Product) model.Queue {
	q := model.Queue{CustomerID: model.Int64(customerID), Status: status, PaymentMethod: method, Date: date}
	for _, p := range items {
		total := decimal.NewFromInt(p.Price)
		q.ProductOrders = append(q.ProductOrders, model.NewProductOrder(model.ProductOrderParams{
			ProductID:    p.ID,
			ProductName:  model.String(p.Name),
			ProductPrice: model.Int64(p.Price),
			Quantity:     1,
			TotalPrice:   &total,
		}))
	}
	return q
}
