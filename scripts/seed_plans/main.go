package main

import (
	"context"
	"flag"
	"log"

	"github.com/golangci/golangci-billing/pkg/billing/app"
	"github.com/golangci/golangci-billing/pkg/billing/models"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
)

func main() {
	id := flag.String("id", "", "processor plan (price) id")
	name := flag.String("name", "", "plan name")
	level := flag.Int("level", 0, "plan level, higher is better")
	price := flag.String("price", "", "price per billing cycle, e.g. 19.90")
	currency := flag.String("currency", "USD", "price currency")
	frequency := flag.Int("frequency", 1, "billing cycle in months")
	migrate := flag.Bool("migrate", false, "create billing tables first")
	flag.Parse()

	if *id == "" || *price == "" {
		log.Fatalf("Must set --id and --price")
	}

	p, err := decimal.NewFromString(*price)
	if err != nil {
		log.Fatalf("Invalid --price %q: %s", *price, err)
	}

	plan := models.Plan{
		ProcessorID:      *id,
		Name:             *name,
		Level:            *level,
		Price:            p,
		Currency:         *currency,
		BillingFrequency: *frequency,
	}
	if err := seedPlan(plan, *migrate); err != nil {
		log.Fatalf("Failed to seed plan: %s", err)
	}

	log.Printf("Successfully saved plan %#v", plan)
}

func seedPlan(plan models.Plan, migrate bool) error {
	a := app.NewApp()
	defer a.Close()

	if migrate {
		if err := a.Migrate(); err != nil {
			return errors.Wrap(err, "can't migrate")
		}
	}

	return a.Catalog().Save(context.Background(), plan)
}
