package sqlite

import (
	"context"
	"database/sql"
)

func migrate(ctx context.Context, db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS user_profiles (
			id TEXT PRIMARY KEY,
			full_name TEXT NOT NULL,
			role TEXT NOT NULL,
			avatar_url TEXT,
			preferences TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS clients (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL,
			contact_email TEXT,
			contact_phone TEXT,
			created_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS statuses (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			color TEXT NOT NULL,
			icon TEXT,
			order_index INTEGER NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS labels (
			id TEXT PRIMARY KEY,
			name TEXT NOT NULL UNIQUE,
			color TEXT NOT NULL,
			created_at TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS parrillas (
			id TEXT PRIMARY KEY,
			title TEXT NOT NULL,
			description TEXT,
			status_id TEXT NOT NULL REFERENCES statuses(id),
			client_id TEXT NOT NULL REFERENCES clients(id),
			due_date TEXT,
			priority TEXT NOT NULL DEFAULT 'medium',
			created_by TEXT,
			created_at TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_parrillas_status ON parrillas(status_id);`,
		`CREATE INDEX IF NOT EXISTS idx_parrillas_client ON parrillas(client_id);`,
		`CREATE TABLE IF NOT EXISTS parrilla_assignees (
			parrilla_id TEXT NOT NULL REFERENCES parrillas(id) ON DELETE CASCADE,
			user_id TEXT NOT NULL REFERENCES user_profiles(id) ON DELETE CASCADE,
			assigned_at TEXT NOT NULL,
			PRIMARY KEY (parrilla_id, user_id)
		);`,
		`CREATE TABLE IF NOT EXISTS parrilla_labels (
			parrilla_id TEXT NOT NULL REFERENCES parrillas(id) ON DELETE CASCADE,
			label_id TEXT NOT NULL REFERENCES labels(id) ON DELETE CASCADE,
			PRIMARY KEY (parrilla_id, label_id)
		);`,
		`CREATE TABLE IF NOT EXISTS parrilla_images (
			id TEXT PRIMARY KEY,
			parrilla_id TEXT NOT NULL REFERENCES parrillas(id) ON DELETE CASCADE,
			image_url TEXT NOT NULL,
			caption TEXT,
			order_index INTEGER NOT NULL DEFAULT 0,
			uploaded_by TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_images_parrilla ON parrilla_images(parrilla_id, order_index);`,
		`CREATE TABLE IF NOT EXISTS parrilla_comments (
			id TEXT PRIMARY KEY,
			parrilla_id TEXT NOT NULL REFERENCES parrillas(id) ON DELETE CASCADE,
			image_id TEXT REFERENCES parrilla_images(id) ON DELETE SET NULL,
			content TEXT NOT NULL,
			attachment_url TEXT,
			created_by TEXT,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_comments_parrilla ON parrilla_comments(parrilla_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS notifications (
			id TEXT PRIMARY KEY,
			user_id TEXT NOT NULL,
			title TEXT NOT NULL,
			message TEXT NOT NULL,
			type TEXT NOT NULL DEFAULT 'info',
			link TEXT,
			is_read INTEGER NOT NULL DEFAULT 0,
			created_at TEXT NOT NULL
		);`,
		`CREATE INDEX IF NOT EXISTS idx_notifications_user ON notifications(user_id, created_at);`,
		`CREATE TABLE IF NOT EXISTS agency_settings (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL,
			updated_at TEXT NOT NULL
		);`,
	}
	for _, stmt := range stmts {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
