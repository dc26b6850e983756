package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/apex/log"
	"github.com/go-sql-driver/mysql"

	"health-report-service/apperr"
	"health-report-service/config"
	"health-report-service/models"
)

// MySQL server error numbers the store reacts to.
const (
	errNoSuchTable       = 1146
	errBadNullError      = 1048
	errNoDefaultForField = 1364
)

const connectAttempts = 5

// Database is the report store.
type Database struct {
	db       *sql.DB
	selfHeal bool
}

// NewDatabase opens the MySQL pool and waits for the server to answer.
func NewDatabase(ctx context.Context, cfg *config.Config) (*Database, error) {
	db, err := sql.Open("mysql", cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(10)
	db.SetConnMaxLifetime(3 * time.Minute)

	waitInterval := time.Second
	for attempt := 1; ; attempt++ {
		err := db.PingContext(ctx)
		if err == nil {
			break
		}
		if attempt == connectAttempts {
			db.Close()
			return nil, fmt.Errorf("failed to connect to database after %d attempts: %w", attempt, err)
		}
		log.Warnf("Database connection failed, retrying in %v: %v", waitInterval, err)
		select {
		case <-ctx.Done():
			db.Close()
			return nil, ctx.Err()
		case <-time.After(waitInterval):
		}
		waitInterval *= 2
	}

	return New(db, cfg.DBSelfHeal), nil
}

// New wraps an existing handle.
func New(db *sql.DB, selfHeal bool) *Database {
	return &Database{db: db, selfHeal: selfHeal}
}

// Close closes the database connection
func (d *Database) Close() error {
	return d.db.Close()
}

// Ping checks that the database is reachable.
func (d *Database) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// EnsureSchema creates the reports table if it doesn't exist.
func (d *Database) EnsureSchema(ctx context.Context) error {
	if _, err := d.db.ExecContext(ctx, createReportsTable); err != nil {
		return apperr.Wrap(apperr.KindPersistence, err, "failed to create reports table")
	}
	log.Info("Reports table ready")
	return nil
}

// Create inserts a report and returns it as stored. A missing table is created and the
// insert retried once when self-heal is enabled.
func (d *Database) Create(ctx context.Context, f models.ReportFields) (*models.Report, error) {
	id, err := d.insert(ctx, f)
	if err != nil && d.selfHeal && mysqlErrorNumber(err) == errNoSuchTable {
		log.Warn("Reports table missing, creating it and retrying insert")
		if schemaErr := d.EnsureSchema(ctx); schemaErr != nil {
			return nil, schemaErr
		}
		id, err = d.insert(ctx, f)
	}
	if err != nil {
		return nil, classify(err)
	}

	// The row is saved from here on; a failed read-back must not fail the submission.
	report, err := d.GetByID(ctx, id)
	if err == nil && report == nil {
		err = fmt.Errorf("report %d not found after insert", id)
	}
	if err != nil {
		log.WithError(err).WithField("id", id).Warn("Could not read back inserted report, returning submitted fields")
		return insertedReport(id, f), nil
	}
	return report, nil
}

// insertedReport mirrors what insert stored for f, with empty values as NULL.
func insertedReport(id int64, f models.ReportFields) *models.Report {
	r := &models.Report{
		ID:            id,
		Name:          f.Name,
		Phone:         f.Phone,
		Facility:      f.Facility,
		Gender:        f.Gender,
		Description:   f.Description,
		WoundScore:    f.WoundScore,
		EvidenceImage: f.EvidenceImage,
		CreatedAt:     time.Now().UTC(),
	}
	if v := nullStringPtr(f.Email); v.Valid {
		r.Email = &v.String
	}
	if v := nullStringPtr(f.IncidentDate); v.Valid {
		r.IncidentDate = &v.String
	}
	if v := nullStringPtr(f.WoundImage); v.Valid {
		r.WoundImage = &v.String
	}
	return r
}

func (d *Database) insert(ctx context.Context, f models.ReportFields) (int64, error) {
	res, err := d.db.ExecContext(ctx, insertReport,
		nullString(f.Name),
		nullString(f.Phone),
		nullStringPtr(f.Email),
		nullString(f.Facility),
		nullString(string(f.Gender)),
		nullString(f.Description),
		nullStringPtr(f.IncidentDate),
		nullStringPtr(f.WoundImage),
		nullInt(f.WoundScore),
		nullString(f.EvidenceImage),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// GetByID returns the report with the given id, or nil when there is none.
func (d *Database) GetByID(ctx context.Context, id int64) (*models.Report, error) {
	var (
		r                                       models.Report
		phone, facility, gender, desc, evidence sql.NullString
		email, date, wound                      sql.NullString
		score                                   sql.NullInt64
	)

	err := d.db.QueryRowContext(ctx, selectReport, id).Scan(
		&r.ID, &r.Name, &phone, &email, &facility, &gender, &desc,
		&date, &wound, &score, &evidence, &r.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Wrap(apperr.KindPersistence, err, "failed to get report %d", id)
	}

	r.Phone = phone.String
	r.Facility = facility.String
	r.Gender = models.Gender(gender.String)
	r.Description = desc.String
	r.EvidenceImage = evidence.String
	if email.Valid {
		r.Email = &email.String
	}
	if date.Valid {
		r.IncidentDate = &date.String
	}
	if wound.Valid {
		r.WoundImage = &wound.String
	}
	if score.Valid {
		v := int(score.Int64)
		r.WoundScore = &v
	}
	return &r, nil
}

func classify(err error) error {
	switch mysqlErrorNumber(err) {
	case errBadNullError, errNoDefaultForField:
		return apperr.Wrap(apperr.KindValidation, err, "missing required field")
	default:
		return apperr.Wrap(apperr.KindPersistence, err, "failed to insert report")
	}
}

func mysqlErrorNumber(err error) uint16 {
	var me *mysql.MySQLError
	if errors.As(err, &me) {
		return me.Number
	}
	return 0
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullStringPtr(s *string) sql.NullString {
	if s == nil {
		return sql.NullString{}
	}
	return nullString(*s)
}

func nullInt(v *int) sql.NullInt64 {
	if v == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*v), Valid: true}
}
