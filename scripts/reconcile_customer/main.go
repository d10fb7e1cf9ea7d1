package main

import (
	"context"
	"flag"
	"log"

	"github.com/golangci/golangci-billing/pkg/billing/app"
	_ "github.com/joho/godotenv/autoload"
	"github.com/pkg/errors"
)

func main() {
	customerID := flag.String("customer", "", "customer id")
	flag.Parse()

	if *customerID == "" {
		log.Fatalf("Must set --customer")
	}

	if err := reconcileCustomer(*customerID); err != nil {
		log.Fatalf("Failed to reconcile: %s", err)
	}

	log.Printf("Successfully reconciled customer %s", *customerID)
}

func reconcileCustomer(customerID string) error {
	a := app.NewApp()
	defer a.Close()

	c, err := a.Customers().Reconcile(context.Background(), customerID)
	if err != nil {
		return errors.Wrapf(err, "can't reconcile customer %s", customerID)
	}

	a.Log().Infof("Customer %s is at version %d: %#v", c.ID, c.Version, c)
	return nil
}
