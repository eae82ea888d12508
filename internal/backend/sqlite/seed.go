package sqlite

import (
	"context"
	"database/sql"

	"parrillas/internal/model"
)

type seedStatus struct {
	Name  string
	Color string
	Icon  string
}

// DefaultStatuses are the board columns a fresh workspace starts with, in order.
var DefaultStatuses = []seedStatus{
	{Name: "Contenido", Color: "#3b82f6", Icon: "contenido"},
	{Name: "Diseño", Color: "#f59e0b", Icon: "diseno"},
	{Name: "Cambios", Color: "#f97316", Icon: "cambios"},
	{Name: "Entrega Final", Color: "#22c55e", Icon: "entrega-final"},
}

var DefaultLabels = []struct {
	Name  string
	Color string
}{
	{"Post", "#3b82f6"},
	{"Story", "#a855f7"},
	{"Reel", "#ec4899"},
	{"Carrusel", "#06b6d4"},
	{"Urgente", "#ef4444"},
	{"Instagram", "#d946ef"},
	{"Facebook", "#6366f1"},
	{"TikTok", "#64748b"},
}

// DemoClients are inserted by Seed when demo data is requested.
var DemoClients = []model.NewClient{
	{Name: "Café Aroma", Color: "#8B4513"},
	{Name: "TechStart", Color: "#6366f1"},
	{Name: "Fitness Pro", Color: "#22c55e"},
	{Name: "Beauty Glow", Color: "#ec4899"},
	{Name: "Urban Style", Color: "#1f2937"},
	{Name: "Fresh Foods", Color: "#84cc16"},
}

type SeedResult struct {
	Statuses int `json:"statuses"`
	Labels   int `json:"labels"`
	Clients  int `json:"clients"`
}

// Seed inserts the default statuses and labels into empty tables. With demo set it
// also inserts sample clients when none exist. Seed is idempotent.
func (d *DB) Seed(ctx context.Context, demo bool) (SeedResult, error) {
	var res SeedResult
	err := d.withTx(ctx, func(tx *sql.Tx) error {
		res = SeedResult{}
		_, ts := d.stamp()

		var n int
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM statuses`).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			for i, s := range DefaultStatuses {
				if _, err := tx.ExecContext(ctx, `INSERT INTO statuses(id, name, color, icon, order_index, created_at) VALUES(?, ?, ?, ?, ?, ?)`,
					d.newID(), s.Name, s.Color, s.Icon, i, ts); err != nil {
					return err
				}
				res.Statuses++
			}
		}

		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM labels`).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			for _, l := range DefaultLabels {
				if _, err := tx.ExecContext(ctx, `INSERT INTO labels(id, name, color, created_at) VALUES(?, ?, ?, ?)`,
					d.newID(), l.Name, l.Color, ts); err != nil {
					return err
				}
				res.Labels++
			}
		}

		if !demo {
			return nil
		}
		if err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM clients`).Scan(&n); err != nil {
			return err
		}
		if n == 0 {
			for _, c := range DemoClients {
				if _, err := tx.ExecContext(ctx, `INSERT INTO clients(id, name, color, created_at, updated_at) VALUES(?, ?, ?, ?, ?)`,
					d.newID(), c.Name, c.Color, ts, ts); err != nil {
					return err
				}
				res.Clients++
			}
		}
		return nil
	})
	return res, err
}
