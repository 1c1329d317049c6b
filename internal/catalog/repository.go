package catalog

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

var (
	// ErrHotspotNotFound indicates no hotspot exists for the identifier.
	ErrHotspotNotFound = errors.New("hotspot not found")
	// ErrPlanNotFound indicates no plan exists for the identifier.
	ErrPlanNotFound = errors.New("plan not found")
)

// Repository persists hotspot and plan metadata.
type Repository interface {
	CreateHotspot(ctx context.Context, h Hotspot) error
	GetHotspot(ctx context.Context, id string) (Hotspot, error)
	ListHotspots(ctx context.Context) ([]Hotspot, error)
	SetAvailability(ctx context.Context, id string, online, salesPaused bool) error
	CreatePlan(ctx context.Context, p Plan) error
	GetPlan(ctx context.Context, id string) (Plan, error)
	ListPlans(ctx context.Context, hotspotID string) ([]Plan, error)
}

// PostgresRepository stores the catalog in PostgreSQL.
type PostgresRepository struct {
	db *pgxpool.Pool
}

// NewPostgresRepository builds a repository backed by PostgreSQL.
func NewPostgresRepository(db *pgxpool.Pool) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// CreateHotspot inserts a hotspot record.
func (r *PostgresRepository) CreateHotspot(ctx context.Context, h Hotspot) error {
	id, err := uuid.Parse(h.ID)
	if err != nil {
		return err
	}
	hostID, err := uuid.Parse(h.HostID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO hotspots (id, host_id, name, latitude, longitude, online, sales_paused, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		id, hostID, h.Name, h.Latitude, h.Longitude, h.Online, h.SalesPaused, h.CreatedAt.UTC())
	return err
}

// GetHotspot fetches a hotspot by identifier.
func (r *PostgresRepository) GetHotspot(ctx context.Context, id string) (Hotspot, error) {
	hid, err := uuid.Parse(id)
	if err != nil {
		return Hotspot{}, ErrHotspotNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, host_id, name, latitude, longitude, online, sales_paused, created_at
        FROM hotspots WHERE id = $1`, hid)
	return scanHotspot(row)
}

// ListHotspots returns all hotspots.
func (r *PostgresRepository) ListHotspots(ctx context.Context) ([]Hotspot, error) {
	rows, err := r.db.Query(ctx, `SELECT id, host_id, name, latitude, longitude, online, sales_paused, created_at
        FROM hotspots ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Hotspot
	for rows.Next() {
		h, err := scanHotspot(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, h)
	}
	return out, rows.Err()
}

// SetAvailability updates the online and sales-paused flags.
func (r *PostgresRepository) SetAvailability(ctx context.Context, id string, online, salesPaused bool) error {
	hid, err := uuid.Parse(id)
	if err != nil {
		return ErrHotspotNotFound
	}
	cmd, err := r.db.Exec(ctx, `UPDATE hotspots SET online = $2, sales_paused = $3 WHERE id = $1`, hid, online, salesPaused)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return ErrHotspotNotFound
	}
	return nil
}

// CreatePlan inserts a plan record.
func (r *PostgresRepository) CreatePlan(ctx context.Context, p Plan) error {
	id, err := uuid.Parse(p.ID)
	if err != nil {
		return err
	}
	hid, err := uuid.Parse(p.HotspotID)
	if err != nil {
		return err
	}
	_, err = r.db.Exec(ctx, `INSERT INTO plans (id, hotspot_id, name, price, duration_seconds, data_cap_mb, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		id, hid, p.Name, p.Price, int64(p.Duration.Seconds()), p.DataCapMB, p.CreatedAt.UTC())
	return err
}

// GetPlan fetches a plan by identifier.
func (r *PostgresRepository) GetPlan(ctx context.Context, id string) (Plan, error) {
	pid, err := uuid.Parse(id)
	if err != nil {
		return Plan{}, ErrPlanNotFound
	}
	row := r.db.QueryRow(ctx, `SELECT id, hotspot_id, name, price, duration_seconds, data_cap_mb, created_at
        FROM plans WHERE id = $1`, pid)
	return scanPlan(row)
}

// ListPlans returns the plans sold at a hotspot.
func (r *PostgresRepository) ListPlans(ctx context.Context, hotspotID string) ([]Plan, error) {
	hid, err := uuid.Parse(hotspotID)
	if err != nil {
		return nil, ErrHotspotNotFound
	}
	rows, err := r.db.Query(ctx, `SELECT id, hotspot_id, name, price, duration_seconds, data_cap_mb, created_at
        FROM plans WHERE hotspot_id = $1 ORDER BY price`, hid)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Plan
	for rows.Next() {
		p, err := scanPlan(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

func scanHotspot(row pgx.Row) (Hotspot, error) {
	var (
		h         Hotspot
		id, host  uuid.UUID
		createdAt time.Time
	)
	if err := row.Scan(&id, &host, &h.Name, &h.Latitude, &h.Longitude, &h.Online, &h.SalesPaused, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Hotspot{}, ErrHotspotNotFound
		}
		return Hotspot{}, err
	}
	h.ID = id.String()
	h.HostID = host.String()
	h.CreatedAt = createdAt.UTC()
	return h, nil
}

func scanPlan(row pgx.Row) (Plan, error) {
	var (
		p               Plan
		id, hotspot     uuid.UUID
		durationSeconds int64
		createdAt       time.Time
	)
	if err := row.Scan(&id, &hotspot, &p.Name, &p.Price, &durationSeconds, &p.DataCapMB, &createdAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Plan{}, ErrPlanNotFound
		}
		return Plan{}, err
	}
	p.ID = id.String()
	p.HotspotID = hotspot.String()
	p.Duration = time.Duration(durationSeconds) * time.Second
	p.CreatedAt = createdAt.UTC()
	return p, nil
}
