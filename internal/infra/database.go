package infra

import (
	"time"

	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewSourceDB opens a read-only style GORM connection to the on-prem POS
// SQL Server. The agent never writes to this database and never migrates it:
// the schema belongs to the POS vendor, the adapters only run raw SELECTs.
func NewSourceDB(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlserver.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	// POS databases tend to run on modest hardware next to the tills;
	// keep the footprint small.
	sqlDB.SetMaxOpenConns(4)
	sqlDB.SetMaxIdleConns(2)
	sqlDB.SetConnMaxIdleTime(5 * time.Minute)

	return db, nil
}
