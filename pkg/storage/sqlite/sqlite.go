// Package sqlite implements the interaction log on an embedded SQLite
// database with pooled connections.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/chatcore-ai/chatcore/pkg/errs"
	"github.com/chatcore-ai/chatcore/pkg/models"
	"github.com/chatcore-ai/chatcore/pkg/storage"
)

const createTable = `
CREATE TABLE IF NOT EXISTS interactions (
	id TEXT PRIMARY KEY,
	user_id TEXT NOT NULL,
	content TEXT NOT NULL,
	response TEXT NOT NULL,
	model TEXT,
	usage TEXT,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_interactions_user_time ON interactions(user_id, created_at);
`

// Repository stores interactions in a SQLite database.
type Repository struct {
	path   string
	db     *sql.DB
	logger *zap.Logger
}

var _ storage.Repository = (*Repository)(nil)

// New creates a Repository for the given database file. Connections are
// opened by Startup.
func New(path string, logger *zap.Logger) *Repository {
	return &Repository{path: path, logger: logger}
}

// Startup opens the connection pool and runs auto-migration.
func (r *Repository) Startup(ctx context.Context) error {
	db, err := sql.Open("sqlite", r.path)
	if err != nil {
		return errs.Storage(fmt.Errorf("open db: %w", err))
	}
	db.SetMaxOpenConns(8)
	db.SetConnMaxIdleTime(5 * time.Minute)

	if _, err := db.ExecContext(ctx, createTable); err != nil {
		_ = db.Close()
		return errs.Storage(fmt.Errorf("migrate db: %w", err))
	}

	r.db = db
	r.logger.Info("sqlite repository ready", zap.String("path", r.path))
	return nil
}

// Shutdown closes the connection pool.
func (r *Repository) Shutdown(ctx context.Context) error {
	if r.db == nil {
		return nil
	}
	err := r.db.Close()
	r.db = nil
	return err
}

// Save appends one interaction. A second save with the same id is a
// no-op: the id primary key plus INSERT OR IGNORE makes caller retries
// safe without duplicating rows.
func (r *Repository) Save(ctx context.Context, in *models.Interaction) error {
	if err := storage.ValidateForSave(in); err != nil {
		return err
	}
	if r.db == nil {
		return errs.Storagef("repository not started")
	}

	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now().UTC()
	}

	var usageJSON any
	if in.Usage != nil {
		data, err := json.Marshal(in.Usage)
		if err != nil {
			return errs.Storage(fmt.Errorf("encode usage: %w", err))
		}
		usageJSON = string(data)
	}

	res, err := r.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO interactions (id, user_id, content, response, model, usage, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		in.ID, in.UserID, in.Content, in.Response, in.Model, usageJSON, in.CreatedAt,
	)
	if err != nil {
		return errs.Storage(fmt.Errorf("save interaction: %w", err))
	}

	if rows, err := res.RowsAffected(); err == nil && rows == 0 {
		r.logger.Debug("duplicate interaction id ignored", zap.String("id", in.ID))
	}
	return nil
}

// GetHistory returns up to limit interactions for userID, newest first.
// The rowid tie-break keeps insertion order for writes within the same
// timestamp granularity.
func (r *Repository) GetHistory(ctx context.Context, userID string, limit int) ([]models.Interaction, error) {
	if r.db == nil {
		return nil, errs.Storagef("repository not started")
	}
	if limit <= 0 {
		limit = storage.DefaultHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, content, response, model, usage, created_at
		 FROM interactions
		 WHERE user_id = ?
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ?`,
		userID, limit,
	)
	if err != nil {
		return nil, errs.Storage(fmt.Errorf("query history: %w", err))
	}
	defer rows.Close()

	history := make([]models.Interaction, 0, limit)
	for rows.Next() {
		var in models.Interaction
		var model, usageJSON sql.NullString
		if err := rows.Scan(&in.ID, &in.UserID, &in.Content, &in.Response, &model, &usageJSON, &in.CreatedAt); err != nil {
			return nil, errs.Storage(fmt.Errorf("scan history: %w", err))
		}
		in.Model = model.String
		if usageJSON.Valid {
			var u models.Usage
			if err := json.Unmarshal([]byte(usageJSON.String), &u); err == nil {
				in.Usage = &u
			}
		}
		history = append(history, in)
	}
	if err := rows.Err(); err != nil {
		return nil, errs.Storage(fmt.Errorf("iterate history: %w", err))
	}
	return history, nil
}

// HealthCheck runs a trivial query and reports false on any error.
func (r *Repository) HealthCheck(ctx context.Context) bool {
	if r.db == nil {
		return false
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	var one int
	if err := r.db.QueryRowContext(ctx, `SELECT 1`).Scan(&one); err != nil {
		r.logger.Warn("sqlite health check failed", zap.Error(err))
		return false
	}
	return true
}
