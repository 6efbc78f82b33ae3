package database

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/jthadison/bmad4-wyck-vol-sub011/models"
)

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// New creates a new database connection
func New(params ConnectionParams) (*DB, error) {
	connStr := fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		params.Host, params.Port, params.User, params.Password, params.DBName, params.SSLMode,
	)

	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}

	if err := db.Ping(); err != nil {
		return nil, err
	}

	if err := createTables(db); err != nil {
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(db *sql.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS campaigns (
			id UUID PRIMARY KEY,
			symbol TEXT NOT NULL,
			asset_class TEXT NOT NULL,
			state TEXT NOT NULL,
			current_phase TEXT NOT NULL,
			pattern_sequence TEXT NOT NULL,
			entry_price DOUBLE PRECISION NOT NULL,
			stop_loss DOUBLE PRECISION NOT NULL,
			exit_price DOUBLE PRECISION,
			r_multiple DOUBLE PRECISION,
			exit_reason TEXT,
			risk_pct DOUBLE PRECISION NOT NULL,
			duration_bars INT NOT NULL,
			started_at TIMESTAMP NOT NULL,
			closed_at TIMESTAMP
		)
	`)
	return err
}

// SaveCampaign upserts a campaign snapshot. The return series is
// transient state for the risk engine and is not persisted.
func (db *DB) SaveCampaign(c *models.Campaign) error {
	patterns := make([]string, len(c.PatternSequence))
	for i, p := range c.PatternSequence {
		patterns[i] = string(p.Type)
	}

	var exitPrice, rMultiple sql.NullFloat64
	var exitReason sql.NullString
	var closedAt sql.NullTime
	if c.State != models.CampaignActive {
		exitPrice = sql.NullFloat64{Float64: c.ExitPrice, Valid: true}
		rMultiple = sql.NullFloat64{Float64: c.RMultiple, Valid: true}
		exitReason = sql.NullString{String: c.ExitReason, Valid: c.ExitReason != ""}
		closedAt = sql.NullTime{Time: c.ClosedAt, Valid: !c.ClosedAt.IsZero()}
	}

	_, err := db.Exec(`
		INSERT INTO campaigns (
			id, symbol, asset_class, state, current_phase, pattern_sequence,
			entry_price, stop_loss, exit_price, r_multiple, exit_reason,
			risk_pct, duration_bars, started_at, closed_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
		ON CONFLICT (id)
		DO UPDATE SET
			state = EXCLUDED.state,
			current_phase = EXCLUDED.current_phase,
			pattern_sequence = EXCLUDED.pattern_sequence,
			exit_price = EXCLUDED.exit_price,
			r_multiple = EXCLUDED.r_multiple,
			exit_reason = EXCLUDED.exit_reason,
			duration_bars = EXCLUDED.duration_bars,
			closed_at = EXCLUDED.closed_at
	`,
		c.ID, c.Symbol, string(c.AssetClass), string(c.State), string(c.CurrentPhase),
		strings.Join(patterns, ","), c.EntryPrice, c.StopLoss, exitPrice, rMultiple,
		exitReason, c.RiskPct, c.DurationBars, c.StartedAt, closedAt)

	return err
}

// LoadCampaigns retrieves the stored campaigns for a symbol, newest first.
// Pattern sequences come back as bare types; the full candidate detail is
// not reconstructed from storage.
func (db *DB) LoadCampaigns(symbol string) ([]*models.Campaign, error) {
	rows, err := db.Query(`
		SELECT
			id, symbol, asset_class, state, current_phase, pattern_sequence,
			entry_price, stop_loss, exit_price, r_multiple, exit_reason,
			risk_pct, duration_bars, started_at, closed_at
		FROM campaigns
		WHERE symbol = $1
		ORDER BY started_at DESC
	`, symbol)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	defer rows.Close()

	var campaigns []*models.Campaign
	for rows.Next() {
		var c models.Campaign
		var id, assetClass, state, phase, patterns string
		var exitPrice, rMultiple sql.NullFloat64
		var exitReason sql.NullString
		var closedAt sql.NullTime

		if err := rows.Scan(
			&id, &c.Symbol, &assetClass, &state, &phase, &patterns,
			&c.EntryPrice, &c.StopLoss, &exitPrice, &rMultiple, &exitReason,
			&c.RiskPct, &c.DurationBars, &c.StartedAt, &closedAt,
		); err != nil {
			return nil, err
		}

		parsed, err := uuid.Parse(id)
		if err != nil {
			return nil, fmt.Errorf("campaign row has invalid id %q: %w", id, err)
		}
		c.ID = parsed
		c.AssetClass = models.AssetClass(assetClass)
		c.State = models.CampaignState(state)
		c.CurrentPhase = models.Phase(phase)
		for _, p := range strings.Split(patterns, ",") {
			if p == "" {
				continue
			}
			c.PatternSequence = append(c.PatternSequence, models.PatternCandidate{
				Type:   models.PatternType(p),
				Symbol: c.Symbol,
			})
		}
		if exitPrice.Valid {
			c.ExitPrice = exitPrice.Float64
		}
		if rMultiple.Valid {
			c.RMultiple = rMultiple.Float64
		}
		if exitReason.Valid {
			c.ExitReason = exitReason.String
		}
		if closedAt.Valid {
			c.ClosedAt = closedAt.Time
		}
		campaigns = append(campaigns, &c)
	}

	return campaigns, rows.Err()
}
