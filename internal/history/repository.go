package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"lorikeet/internal/colorspace"
	"lorikeet/internal/deltae"
	"lorikeet/internal/sampler"
	"lorikeet/internal/scheme"
)

var ErrSchemeNotFound = errors.New("scheme not found")

const (
	defaultListLimit = 50
	maxListLimit     = 500
)

// SavedColor keeps the exact channels; Hex is for display. Rows written
// before the channel columns existed have nil channels.
type SavedColor struct {
	Position  int      `json:"position"`
	Hex       string   `json:"hex"`
	Red       *float64 `json:"r,omitempty"`
	Green     *float64 `json:"g,omitempty"`
	Blue      *float64 `json:"b,omitempty"`
	Alpha     float64  `json:"alpha"`
	Threshold float64  `json:"threshold"`
}

type Scheme struct {
	ID          int64          `json:"id"`
	SeedHex     string         `json:"seedHex"`
	SeedAlpha   float64        `json:"seedAlpha"`
	Algorithm   string         `json:"algorithm"`
	Weights     deltae.Weights `json:"weights"`
	Strategy    sampler.Config `json:"strategy"`
	Options     scheme.Options `json:"options"`
	TargetCount int            `json:"targetCount"`
	Attempts    int            `json:"attempts"`
	Decays      int            `json:"decays"`
	Colors      []SavedColor   `json:"colors"`
	CreatedAt   string         `json:"createdAt"`
}

// Entry is what a finished generation hands to Save.
type Entry struct {
	Algorithm   deltae.Algorithm
	Strategy    sampler.Config
	Options     scheme.Options
	TargetCount int
	Result      scheme.Result
}

type Repository struct {
	db *sql.DB
}

func NewRepository(database *sql.DB) *Repository {
	return &Repository{db: database}
}

func (r *Repository) Save(ctx context.Context, entry Entry) (Scheme, error) {
	if len(entry.Result.Colors) == 0 {
		return Scheme{}, errors.New("scheme has no colors")
	}

	weightsJSON, err := json.Marshal(entry.Algorithm.EffectiveWeights())
	if err != nil {
		return Scheme{}, fmt.Errorf("encode weights: %w", err)
	}
	strategyJSON, err := json.Marshal(entry.Strategy)
	if err != nil {
		return Scheme{}, fmt.Errorf("encode strategy: %w", err)
	}
	optionsJSON, err := json.Marshal(entry.Options)
	if err != nil {
		return Scheme{}, fmt.Errorf("encode options: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return Scheme{}, fmt.Errorf("start save scheme tx: %w", err)
	}
	defer tx.Rollback()

	seed := entry.Result.Colors[0]
	result, err := tx.ExecContext(
		ctx,
		`INSERT INTO schemes(seed_hex, seed_alpha, algorithm, weights_json, strategy_json, options_json, target_count, attempts, decays)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		seed.Hex(),
		seed.Alpha(),
		entry.Algorithm.Name(),
		string(weightsJSON),
		string(strategyJSON),
		string(optionsJSON),
		entry.TargetCount,
		entry.Result.Stats.Attempts,
		entry.Result.Stats.Decays,
	)
	if err != nil {
		return Scheme{}, fmt.Errorf("insert scheme: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return Scheme{}, fmt.Errorf("read scheme id: %w", err)
	}

	for position, c := range entry.Result.Colors {
		threshold := 0.0
		if position < len(entry.Result.Stats.Thresholds) {
			threshold = entry.Result.Stats.Thresholds[position]
		}
		red, green, blue, alpha := c.Channels()
		if _, err := tx.ExecContext(
			ctx,
			"INSERT INTO scheme_colors(scheme_id, position, hex, red, green, blue, alpha, threshold) VALUES (?, ?, ?, ?, ?, ?, ?, ?)",
			id,
			position,
			c.Hex(),
			red,
			green,
			blue,
			alpha,
			threshold,
		); err != nil {
			return Scheme{}, fmt.Errorf("insert scheme color %d: %w", position, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return Scheme{}, fmt.Errorf("commit scheme: %w", err)
	}

	return r.GetByID(ctx, id)
}

func (r *Repository) List(ctx context.Context, limit int, offset int) ([]Scheme, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	if limit > maxListLimit {
		limit = maxListLimit
	}
	if offset < 0 {
		offset = 0
	}

	rows, err := r.db.QueryContext(
		ctx,
		`SELECT id, seed_hex, seed_alpha, algorithm, weights_json, strategy_json, options_json, target_count, attempts, decays, created_at
		FROM schemes ORDER BY id DESC LIMIT ? OFFSET ?`,
		limit,
		offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list schemes: %w", err)
	}

	schemes := make([]Scheme, 0)
	for rows.Next() {
		saved, err := scanScheme(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		schemes = append(schemes, saved)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, fmt.Errorf("iterate scheme rows: %w", err)
	}
	rows.Close()

	for index := range schemes {
		colors, err := r.loadColors(ctx, schemes[index].ID)
		if err != nil {
			return nil, err
		}
		schemes[index].Colors = colors
	}

	return schemes, nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (Scheme, error) {
	row := r.db.QueryRowContext(
		ctx,
		`SELECT id, seed_hex, seed_alpha, algorithm, weights_json, strategy_json, options_json, target_count, attempts, decays, created_at
		FROM schemes WHERE id = ?`,
		id,
	)

	saved, err := scanScheme(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Scheme{}, ErrSchemeNotFound
		}
		return Scheme{}, fmt.Errorf("get scheme %d: %w", id, err)
	}

	colors, err := r.loadColors(ctx, id)
	if err != nil {
		return Scheme{}, err
	}
	saved.Colors = colors
	return saved, nil
}

func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.db.ExecContext(ctx, "DELETE FROM schemes WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("delete scheme %d: %w", id, err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("read deleted scheme count: %w", err)
	}
	if rowsAffected == 0 {
		return ErrSchemeNotFound
	}

	return nil
}

// Palette rebuilds the stored colors.
func (s Scheme) Palette() ([]colorspace.Color, error) {
	colors := make([]colorspace.Color, 0, len(s.Colors))
	for _, saved := range s.Colors {
		rebuilt, err := saved.Color()
		if err != nil {
			return nil, err
		}
		colors = append(colors, rebuilt)
	}
	return colors, nil
}

// Color rebuilds one stored color from its exact channels, or from hex for
// rows that predate them.
func (c SavedColor) Color() (colorspace.Color, error) {
	if c.Red != nil && c.Green != nil && c.Blue != nil {
		return colorspace.FromRGBA(*c.Red, *c.Green, *c.Blue, c.Alpha)
	}
	return colorspace.ParseHexAlpha(c.Hex, c.Alpha)
}

// AlgorithmSpec rebuilds the metric the scheme was generated with.
func (s Scheme) AlgorithmSpec() (deltae.Algorithm, error) {
	algorithm, err := deltae.ParseAlgorithm(s.Algorithm, nil)
	if err != nil {
		return deltae.Algorithm{}, err
	}
	switch algorithm.Kind {
	case deltae.KindAdvancedCIE94, deltae.KindAdvancedCIE2000:
		weights := s.Weights
		return deltae.ParseAlgorithm(s.Algorithm, &weights)
	default:
		return algorithm, nil
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanScheme(row rowScanner) (Scheme, error) {
	var saved Scheme
	var weightsJSON, strategyJSON, optionsJSON string
	if err := row.Scan(
		&saved.ID,
		&saved.SeedHex,
		&saved.SeedAlpha,
		&saved.Algorithm,
		&weightsJSON,
		&strategyJSON,
		&optionsJSON,
		&saved.TargetCount,
		&saved.Attempts,
		&saved.Decays,
		&saved.CreatedAt,
	); err != nil {
		return Scheme{}, err
	}

	if err := json.Unmarshal([]byte(weightsJSON), &saved.Weights); err != nil {
		return Scheme{}, fmt.Errorf("decode weights of scheme %d: %w", saved.ID, err)
	}
	if err := json.Unmarshal([]byte(strategyJSON), &saved.Strategy); err != nil {
		return Scheme{}, fmt.Errorf("decode strategy of scheme %d: %w", saved.ID, err)
	}
	if err := json.Unmarshal([]byte(optionsJSON), &saved.Options); err != nil {
		return Scheme{}, fmt.Errorf("decode options of scheme %d: %w", saved.ID, err)
	}

	return saved, nil
}

func (r *Repository) loadColors(ctx context.Context, id int64) ([]SavedColor, error) {
	rows, err := r.db.QueryContext(
		ctx,
		"SELECT position, hex, red, green, blue, alpha, threshold FROM scheme_colors WHERE scheme_id = ? ORDER BY position",
		id,
	)
	if err != nil {
		return nil, fmt.Errorf("list colors of scheme %d: %w", id, err)
	}
	defer rows.Close()

	colors := make([]SavedColor, 0)
	for rows.Next() {
		var saved SavedColor
		var red, green, blue sql.NullFloat64
		if err := rows.Scan(&saved.Position, &saved.Hex, &red, &green, &blue, &saved.Alpha, &saved.Threshold); err != nil {
			return nil, fmt.Errorf("scan scheme color row: %w", err)
		}
		if red.Valid && green.Valid && blue.Valid {
			saved.Red, saved.Green, saved.Blue = &red.Float64, &green.Float64, &blue.Float64
		}
		colors = append(colors, saved)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate scheme color rows: %w", err)
	}

	return colors, nil
}
