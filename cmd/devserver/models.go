package main

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Owner owns cars.
type Owner struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"not null;uniqueIndex" iommi:"freetext"`
}

// Car is the model the demo page lists.
type Car struct {
	ID           uint            `gorm:"primaryKey"`
	Make         string          `gorm:"not null" iommi:"freetext"`
	Model        string          `gorm:"not null" iommi:"freetext"`
	Year         int             `gorm:"not null"`
	Price        decimal.Decimal `gorm:"type:decimal(10,2)"`
	Electric     bool
	RegisteredAt time.Time `iommi:"label=Registered"`
	OwnerID      *uint
	Owner        *Owner `iommi:"lookup=name"`
}

func sampleOwners() []Owner {
	return []Owner{
		{Name: "alice"},
		{Name: "bob"},
		{Name: "carol"},
	}
}

func sampleCars(owners []Owner) []Car {
	date := func(y int, m time.Month, d int) time.Time { return time.Date(y, m, d, 0, 0, 0, 0, time.UTC) }
	return []Car{
		{Make: "Volvo", Model: "XC40", Year: 2021, Price: decimal.RequireFromString("41990.00"), Electric: true, RegisteredAt: date(2021, 3, 14), OwnerID: &owners[0].ID},
		{Make: "Volvo", Model: "V70", Year: 2008, Price: decimal.RequireFromString("6500.00"), RegisteredAt: date(2008, 6, 1), OwnerID: &owners[1].ID},
		{Make: "Toyota", Model: "Prius", Year: 2015, Price: decimal.RequireFromString("12900.00"), RegisteredAt: date(2015, 9, 30), OwnerID: &owners[0].ID},
		{Make: "Toyota", Model: "Corolla", Year: 2019, Price: decimal.RequireFromString("17450.50"), RegisteredAt: date(2019, 1, 21)},
		{Make: "Ford", Model: "Mustang Mach-E", Year: 2022, Price: decimal.RequireFromString("48900.00"), Electric: true, RegisteredAt: date(2022, 11, 5), OwnerID: &owners[2].ID},
		{Make: "Ford", Model: "Focus", Year: 2012, Price: decimal.RequireFromString("5200.00"), RegisteredAt: date(2012, 2, 29), OwnerID: &owners[1].ID},
	}
}

// seedDatabase drops and recreates the demo tables with sample data.
func seedDatabase(db *gorm.DB) error {
	if err := db.Migrator().DropTable(&Car{}, &Owner{}); err != nil {
		return fmt.Errorf("failed to drop tables: %w", err)
	}
	if err := db.AutoMigrate(&Owner{}, &Car{}); err != nil {
		return fmt.Errorf("failed to migrate database: %w", err)
	}

	owners := sampleOwners()
	if err := db.Create(&owners).Error; err != nil {
		return fmt.Errorf("failed to seed owners: %w", err)
	}
	cars := sampleCars(owners)
	if err := db.Create(&cars).Error; err != nil {
		return fmt.Errorf("failed to seed cars: %w", err)
	}
	return nil
}
