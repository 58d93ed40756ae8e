package main

import (
	"context"
	"flag"
	"log"
	"time"

	"appointly/internal/config"
	"appointly/internal/database"
)

func main() {
	dayFlag := flag.String("day", "", "day to open availability on, YYYY-MM-DD (default tomorrow)")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal(err)
	}

	day := time.Now().UTC().AddDate(0, 0, 1)
	if *dayFlag != "" {
		day, err = time.Parse("2006-01-02", *dayFlag)
		if err != nil {
			log.Fatal("invalid -day:", err)
		}
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatal("DB connection failed:", err)
	}

	log.Println("Running AutoMigrate...")
	if err := database.Migrate(db); err != nil {
		log.Fatal("AutoMigrate failed:", err)
	}

	demo, err := database.SeedDemo(context.Background(), db, day)
	if err != nil {
		log.Fatal("Seeding failed:", err)
	}

	log.Println("Seed completed")
	log.Printf("Business:  %s (%s)", demo.Business.ID, demo.Business.Name)
	log.Printf("Owner:     %s", demo.Owner.ID)
	log.Printf("Customer:  %s", demo.Customer.ID)
	log.Printf("Staff:     %s (profile %s)", demo.Staff.ID, demo.StaffProfile.ID)
	log.Printf("Services:  haircut=%s colouring=%s", demo.Haircut.ID, demo.Colouring.ID)
	log.Printf("Open:      %s 09:00-18:00 UTC", demo.Day.Format("2006-01-02"))
}
