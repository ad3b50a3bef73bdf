package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/maktabahq/maktaba/internal/model"
)

// appRow maps 1:1 to the apps table. The libraries_json column stores the
// JSON-encoded []model.Library.
type appRow struct {
	ID            string    `db:"id"`
	UserID        string    `db:"user_id"`
	Name          string    `db:"name"`
	Description   string    `db:"description"`
	LibrariesJSON string    `db:"libraries_json"`
	CreatedAt     time.Time `db:"created_at"`
	UpdatedAt     time.Time `db:"updated_at"`
}

func appRowFromModel(app *model.App) (appRow, error) {
	librariesJSON, err := json.Marshal(app.Libraries)
	if err != nil {
		return appRow{}, fmt.Errorf("marshal libraries: %w", err)
	}
	return appRow{
		ID:            app.ID,
		UserID:        app.UserID,
		Name:          app.Name,
		Description:   app.Description,
		LibrariesJSON: string(librariesJSON),
		CreatedAt:     app.CreatedAt,
		UpdatedAt:     app.UpdatedAt,
	}, nil
}

func (r appRow) toModel() (model.App, error) {
	var libraries []model.Library
	if r.LibrariesJSON != "" {
		if err := json.Unmarshal([]byte(r.LibrariesJSON), &libraries); err != nil {
			return model.App{}, fmt.Errorf("unmarshal libraries: %w", err)
		}
	}
	if libraries == nil {
		libraries = []model.Library{}
	}
	return model.App{
		ID:          r.ID,
		UserID:      r.UserID,
		Name:        r.Name,
		Description: r.Description,
		Libraries:   libraries,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}, nil
}

// CreateApp inserts a new app. The ID, CreatedAt, and UpdatedAt fields are
// populated on success.
func (s *Store) CreateApp(ctx context.Context, app *model.App) error {
	if app.ID == "" {
		app.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	app.CreatedAt = now
	app.UpdatedAt = now

	row, err := appRowFromModel(app)
	if err != nil {
		return err
	}

	const q = `INSERT INTO apps
		(id, user_id, name, description, libraries_json, created_at, updated_at)
		VALUES
		(:id, :user_id, :name, :description, :libraries_json, :created_at, :updated_at)`

	if _, err := s.db.NamedExecContext(ctx, q, row); err != nil {
		return fmt.Errorf("insert app: %w", err)
	}
	return nil
}

// GetAppForOwner returns an app by ID, but only when it belongs to userID.
// A missing row and a row owned by someone else both come back as
// ErrNotFound: the ownership check happens in the query itself.
func (s *Store) GetAppForOwner(ctx context.Context, userID, appID string) (*model.App, error) {
	var row appRow
	q := s.db.Rebind("SELECT * FROM apps WHERE id = ? AND user_id = ?")
	if err := s.db.GetContext(ctx, &row, q, appID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get app: %w", err)
	}
	app, err := row.toModel()
	if err != nil {
		return nil, err
	}
	return &app, nil
}

// ListAppsByOwner returns all apps owned by userID, newest first.
func (s *Store) ListAppsByOwner(ctx context.Context, userID string) ([]model.App, error) {
	var rows []appRow
	q := s.db.Rebind("SELECT * FROM apps WHERE user_id = ? ORDER BY created_at DESC")
	if err := s.db.SelectContext(ctx, &rows, q, userID); err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}

	apps := make([]model.App, 0, len(rows))
	for _, r := range rows {
		app, err := r.toModel()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// ListApps returns every app on the instance, newest first. Operator-facing;
// the HTTP API only ever exposes owner-scoped listings.
func (s *Store) ListApps(ctx context.Context) ([]model.App, error) {
	var rows []appRow
	if err := s.db.SelectContext(ctx, &rows, "SELECT * FROM apps ORDER BY created_at DESC"); err != nil {
		return nil, fmt.Errorf("list apps: %w", err)
	}

	apps := make([]model.App, 0, len(rows))
	for _, r := range rows {
		app, err := r.toModel()
		if err != nil {
			return nil, err
		}
		apps = append(apps, app)
	}
	return apps, nil
}

// DeleteAppForOwner removes an app owned by userID. Associated api_keys rows
// are cascade deleted by the foreign key constraint.
func (s *Store) DeleteAppForOwner(ctx context.Context, userID, appID string) error {
	q := s.db.Rebind("DELETE FROM apps WHERE id = ? AND user_id = ?")
	result, err := s.db.ExecContext(ctx, q, appID, userID)
	if err != nil {
		return fmt.Errorf("delete app: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete app rows affected: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
