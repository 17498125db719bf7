package database

import (
	"log"

	"neelgund-backend/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

// NewConnection initializes a new connection pool using GORM
func NewConnection(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{TranslateError: true})
	if err != nil {
		return nil, err
	}

	if err := Migrate(db); err != nil {
		log.Println("WARNING: Failed to auto-migrate models:", err)
	}

	return db, nil
}

// Migrate creates or updates every table the ledger uses.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&model.User{},
		&model.DeviceToken{},
		&model.Project{},
		&model.Plot{},
		&model.PaymentPhase{},
		&model.Lead{},
		&model.LeadProject{},
		&model.PlotAssignment{},
		&model.PhasePayment{},
		&model.AgentCommission{},
		&model.WithdrawalRequest{},
		&model.WithdrawalAllocation{},
		&model.Notification{},
	)
}
