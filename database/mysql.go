package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"latidos/config"
	"latidos/models"

	"github.com/apex/log"
	_ "github.com/go-sql-driver/mysql"
)

const createReportsTable = `
	CREATE TABLE IF NOT EXISTS pet_reports (
		seq INT NOT NULL AUTO_INCREMENT,
		id VARCHAR(64) NOT NULL,
		kind ENUM('LOST', 'FOUND') NOT NULL,
		reporter_id VARCHAR(255) NOT NULL,
		reporter_name VARCHAR(255) NOT NULL,
		image_ref MEDIUMTEXT NOT NULL,
		breed VARCHAR(255) NOT NULL,
		color VARCHAR(255) NOT NULL,
		size VARCHAR(64) NOT NULL,
		description TEXT NOT NULL,
		latitude DOUBLE NOT NULL,
		longitude DOUBLE NOT NULL,
		created_at TIMESTAMP NOT NULL,
		PRIMARY KEY (seq),
		UNIQUE INDEX id_index (id)
	) CHARACTER SET utf8mb4 COLLATE utf8mb4_unicode_ci`

const selectReportColumns = `id, kind, reporter_id, reporter_name, image_ref, breed, color, size, description, latitude, longitude, created_at`

// MySQLStore is a Repository backed by the pet_reports table.
type MySQLStore struct {
	db *sql.DB
}

// NewMySQLStore opens and pings the database described by cfg.
func NewMySQLStore(cfg *config.Config) (*MySQLStore, error) {
	dsn := fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?parseTime=true&multiStatements=true",
		cfg.DBUser, cfg.DBPassword, cfg.DBHost, cfg.DBPort, cfg.DBName)

	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Test connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Set connection pool settings
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	log.Infof("Database connected successfully to %s:%s/%s", cfg.DBHost, cfg.DBPort, cfg.DBName)

	return NewMySQLStoreFromDB(db), nil
}

// NewMySQLStoreFromDB wraps an already opened handle.
func NewMySQLStoreFromDB(db *sql.DB) *MySQLStore {
	return &MySQLStore{db: db}
}

// Close closes the database connection
func (s *MySQLStore) Close() error {
	return s.db.Close()
}

// EnsureSchema creates the reports table when missing.
func (s *MySQLStore) EnsureSchema(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, createReportsTable); err != nil {
		return fmt.Errorf("failed to create pet_reports table: %w", err)
	}
	return nil
}

// Seed inserts reports when the table is empty. reports[0] ends up listed first.
func (s *MySQLStore) Seed(ctx context.Context, reports []models.Report) error {
	var count int
	if err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM pet_reports").Scan(&count); err != nil {
		return fmt.Errorf("failed to count reports: %w", err)
	}
	if count > 0 {
		log.Infof("Skipping seed, pet_reports already holds %d reports", count)
		return nil
	}
	for i := len(reports) - 1; i >= 0; i-- {
		if err := s.Append(ctx, reports[i]); err != nil {
			return err
		}
	}
	log.Infof("Seeded %d reports", len(reports))
	return nil
}

func (s *MySQLStore) List(ctx context.Context) ([]models.Report, error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+selectReportColumns+" FROM pet_reports ORDER BY seq DESC")
	if err != nil {
		return nil, fmt.Errorf("failed to query reports: %w", err)
	}
	defer rows.Close()

	reports := []models.Report{}
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		reports = append(reports, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate reports: %w", err)
	}
	return reports, nil
}

func (s *MySQLStore) Append(ctx context.Context, r models.Report) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO pet_reports (id, kind, reporter_id, reporter_name, image_ref, breed, color, size, description, latitude, longitude, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, string(r.Kind), r.ReporterID, r.ReporterName, r.ImageRef, r.Breed, r.Color, r.Size, r.Description,
		r.Location.Lat, r.Location.Lng, r.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert report %s: %w", r.ID, err)
	}
	return nil
}

func (s *MySQLStore) Replace(ctx context.Context, id string, patch models.ReportPatch) (models.Report, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return models.Report{}, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, "SELECT "+selectReportColumns+" FROM pet_reports WHERE id = ? FOR UPDATE", id)
	current, err := scanReport(row)
	if errors.Is(err, sql.ErrNoRows) {
		return models.Report{}, ErrNotFound
	}
	if err != nil {
		return models.Report{}, err
	}

	updated := patch.Apply(current)
	if patch.ImageRef != nil {
		if _, err := tx.ExecContext(ctx, "UPDATE pet_reports SET image_ref = ? WHERE id = ?", updated.ImageRef, id); err != nil {
			return models.Report{}, fmt.Errorf("failed to update report %s: %w", id, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return models.Report{}, fmt.Errorf("failed to commit report %s: %w", id, err)
	}
	return updated, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(row scanner) (models.Report, error) {
	var r models.Report
	var kind string
	err := row.Scan(&r.ID, &kind, &r.ReporterID, &r.ReporterName, &r.ImageRef, &r.Breed, &r.Color, &r.Size,
		&r.Description, &r.Location.Lat, &r.Location.Lng, &r.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return r, err
	}
	if err != nil {
		return r, fmt.Errorf("failed to scan report: %w", err)
	}
	r.Kind = models.Kind(kind)
	return r, nil
}
