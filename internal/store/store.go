// Package store persists analysis results in a SQL database through gorm.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/glebarez/sqlite"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/jackc/pgx/v5/stdlib"
	"go.uber.org/zap"
	gormmysql "gorm.io/driver/mysql"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/ludo-technologies/solscan/domain"
	"github.com/ludo-technologies/solscan/internal/config"
	"github.com/ludo-technologies/solscan/internal/constants"
	"github.com/ludo-technologies/solscan/internal/logging"
)

// scanResult is one row of the scan_results table
type scanResult struct {
	ID            int64     `gorm:"primaryKey;autoIncrement"`
	ContractName  string    `gorm:"size:255;index"`
	SourceHash    string    `gorm:"size:66;index"`
	RiskScore     float64
	RiskLevel     string `gorm:"size:16"`
	TotalFindings int
	ResultJSON    string
	CreatedAt     time.Time `gorm:"index"`
}

func (scanResult) TableName() string { return "scan_results" }

// SQLStore implements domain.ResultStore on top of gorm
type SQLStore struct {
	db     *gorm.DB
	driver string
	logger *zap.Logger
}

// Open connects to the database named by driver and dsn and migrates the schema.
// Every connection opened here is closed again when Open fails.
func Open(ctx context.Context, driver, dsn string, logger *zap.Logger) (*SQLStore, error) {
	dialector, conn, err := dialectorFor(driver, dsn)
	if err != nil {
		return nil, err
	}

	db, err := gorm.Open(dialector, &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, domain.NewStorageError(fmt.Sprintf("failed to open %s database", driver), err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		if conn != nil {
			conn.Close()
		}
		return nil, domain.NewStorageError("failed to access connection pool", err)
	}
	if driver == constants.DriverSQLite {
		// one writer; also keeps an in-memory database alive across calls
		sqlDB.SetMaxOpenConns(1)
	} else {
		sqlDB.SetMaxOpenConns(25)
		sqlDB.SetMaxIdleConns(5)
		sqlDB.SetConnMaxLifetime(5 * time.Minute)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := sqlDB.PingContext(pingCtx); err != nil {
		sqlDB.Close()
		return nil, domain.NewStorageError(fmt.Sprintf("%s ping failed", driver), err)
	}

	s, err := New(ctx, db, driver, logger)
	if err != nil {
		sqlDB.Close()
		return nil, err
	}
	return s, nil
}

// OpenFromConfig opens the store configured in cfg
func OpenFromConfig(ctx context.Context, cfg config.StorageConfig, logger *zap.Logger) (*SQLStore, error) {
	return Open(ctx, cfg.Driver, cfg.DSN, logger)
}

// New wraps an open gorm connection and migrates the schema
func New(ctx context.Context, db *gorm.DB, driver string, logger *zap.Logger) (*SQLStore, error) {
	if err := db.WithContext(ctx).AutoMigrate(&scanResult{}); err != nil {
		return nil, domain.NewStorageError("schema migration failed", err)
	}
	s := &SQLStore{db: db, driver: driver, logger: logging.OrNop(logger)}
	s.logger.Info("result store ready", zap.String("driver", driver))
	return s, nil
}

// dialectorFor also returns the pool it opened itself, nil for sqlite
func dialectorFor(driver, dsn string) (gorm.Dialector, *sql.DB, error) {
	if dsn == "" {
		return nil, nil, domain.NewStorageError("storage dsn is required", nil)
	}
	switch driver {
	case constants.DriverSQLite:
		return sqlite.Open(dsn), nil, nil
	case constants.DriverMySQL:
		conn, err := sql.Open("mysql", dsn)
		if err != nil {
			return nil, nil, domain.NewStorageError("invalid mysql dsn", err)
		}
		return gormmysql.New(gormmysql.Config{Conn: conn}), conn, nil
	case constants.DriverPostgres:
		conn, err := sql.Open("pgx", dsn)
		if err != nil {
			return nil, nil, domain.NewStorageError("invalid postgres dsn", err)
		}
		return postgres.New(postgres.Config{Conn: conn}), conn, nil
	default:
		return nil, nil, domain.NewStorageError(fmt.Sprintf("unsupported storage driver: %s", driver), nil)
	}
}

// Save stores a successful result
func (s *SQLStore) Save(ctx context.Context, result *domain.AnalysisResult) error {
	if result == nil || !result.Success {
		return domain.NewStorageError("only successful results are stored", nil)
	}

	payload, err := json.Marshal(result)
	if err != nil {
		return domain.NewStorageError("failed to encode result", err)
	}

	row := scanResult{
		ContractName:  result.ContractName,
		SourceHash:    result.SourceHash,
		TotalFindings: len(result.Vulnerabilities),
		ResultJSON:    string(payload),
	}
	if result.Metrics != nil {
		row.RiskScore = result.Metrics.OverallRiskScore
		row.RiskLevel = string(result.Metrics.RiskLevel)
	}

	if err := s.db.WithContext(ctx).Create(&row).Error; err != nil {
		return domain.NewStorageError("failed to save result", err)
	}

	s.logger.Debug("result stored",
		zap.Int64("id", row.ID),
		zap.String("contract", row.ContractName),
		zap.Float64("risk_score", row.RiskScore),
	)
	return nil
}

// History returns stored results newest first. An empty contract name
// matches every contract; a non-positive limit uses the default.
func (s *SQLStore) History(ctx context.Context, contractName string, limit int) ([]domain.ScanRecord, error) {
	if limit <= 0 {
		limit = config.DefaultHistoryLimit
	}

	q := s.db.WithContext(ctx).Order("created_at DESC").Order("id DESC").Limit(limit)
	if contractName != "" {
		q = q.Where("contract_name = ?", contractName)
	}

	var rows []scanResult
	if err := q.Find(&rows).Error; err != nil {
		return nil, domain.NewStorageError("failed to query history", err)
	}

	records := make([]domain.ScanRecord, 0, len(rows))
	for _, row := range rows {
		var result domain.AnalysisResult
		if err := json.Unmarshal([]byte(row.ResultJSON), &result); err != nil {
			return nil, domain.NewStorageError(fmt.Sprintf("corrupt result %d", row.ID), err)
		}
		records = append(records, domain.ScanRecord{
			ID:            row.ID,
			ContractName:  row.ContractName,
			SourceHash:    row.SourceHash,
			RiskScore:     row.RiskScore,
			RiskLevel:     domain.RiskLevel(row.RiskLevel),
			TotalFindings: row.TotalFindings,
			Result:        &result,
			CreatedAt:     row.CreatedAt,
		})
	}
	return records, nil
}

// Driver returns the configured driver name
func (s *SQLStore) Driver() string {
	return s.driver
}

// Close closes the underlying connection pool
func (s *SQLStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

var _ domain.ResultStore = (*SQLStore)(nil)
