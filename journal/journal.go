package journal

import (
	"fmt"
	"log"

	"gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlserver"
	"gorm.io/gorm"

	"intake-app/config"
)

// Journal is the audit-trail store. A nil Journal (or one opened without a
// database) swallows every write, the scan pipeline must never depend on it.
type Journal struct {
	DB *gorm.DB
}

// Open connects to the journal database using the configured driver and
// migrates the audit tables.
func Open() (*Journal, error) {
	dialector, err := getDialector(config.DBJournal)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{})
	if err != nil {
		return nil, err
	}

	if err := db.AutoMigrate(&ScanEvent{}, &SubmissionLog{}); err != nil {
		return nil, err
	}

	return &Journal{DB: db}, nil
}

func getDialector(dbName string) (gorm.Dialector, error) {
	switch config.DBDriver {
	case "postgres":
		dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
			config.DBHost, config.DBUser, config.DBPassword, dbName, config.DBPort)
		return postgres.Open(dsn), nil
	case "mysql":
		dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=Local",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort, dbName)
		return mysql.Open(dsn), nil
	case "mssql":
		dsn := fmt.Sprintf("sqlserver://%s:%s@%s:%s?database=%s",
			config.DBUser, config.DBPassword, config.DBHost, config.DBPort, dbName)
		return sqlserver.Open(dsn), nil
	default:
		return nil, fmt.Errorf("unsupported DB_DRIVER: %s", config.DBDriver)
	}
}

// RecordScan writes one scan-attempt row. Failures are logged and dropped.
func (j *Journal) RecordScan(e ScanEvent) {
	if j == nil || j.DB == nil {
		return
	}
	if err := j.DB.Create(&e).Error; err != nil {
		log.Println("journal: failed to record scan:", err)
	}
}

// RecordSubmission writes one submission-result row.
func (j *Journal) RecordSubmission(l SubmissionLog) {
	if j == nil || j.DB == nil {
		return
	}
	if err := j.DB.Create(&l).Error; err != nil {
		log.Println("journal: failed to record submission:", err)
	}
}
