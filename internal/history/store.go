package history

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"

	"github.com/mohammad-safakhou/polisight/internal/predict"
)

// Store is the durable collaborator for long-horizon state: prediction
// baselines, the append-only forecast history and coalition stability records.
type Store struct {
	DB *sql.DB
}

// PredictionRecord is one appended forecast.
type PredictionRecord struct {
	ID          string
	Type        predict.Type
	Baseline    float64
	Predicted   float64
	HorizonDays int
	Confidence  float64
	Result      json.RawMessage
	CreatedAt   time.Time
}

// HistoryFilter narrows a history query. Zero values match everything.
type HistoryFilter struct {
	Type  predict.Type
	Since time.Time
	Until time.Time
	Limit int
}

// New constructs the Store from DATABASE_URL or the POSTGRES_* variables.
func New(ctx context.Context) (*Store, error) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		host := getenvDefault("POSTGRES_HOST", "localhost")
		port := getenvDefault("POSTGRES_PORT", "5432")
		user := os.Getenv("POSTGRES_USER")
		pass := os.Getenv("POSTGRES_PASSWORD")
		db := os.Getenv("POSTGRES_DB")
		ssl := getenvDefault("POSTGRES_SSLMODE", "disable")
		dsn = fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s", user, pass, host, port, db, ssl)
	}
	return NewWithDSN(ctx, dsn)
}

// NewWithDSN constructs the Store using an explicit Postgres DSN.
func NewWithDSN(ctx context.Context, dsn string) (*Store, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, err
	}
	if err := db.PingContext(ctx); err != nil {
		return nil, err
	}
	return &Store{DB: db}, nil
}

func getenvDefault(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

// Close releases the underlying connection pool.
func (s *Store) Close() error { return s.DB.Close() }

// Baseline operations. Baselines are keyed by (kind, name): kind groups the
// metric ("support_rating", "vote_share"), name is the subject (party id or
// "cabinet").

func (s *Store) SaveBaseline(ctx context.Context, kind, name string, value float64) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO baselines (kind, name, value, updated_at) VALUES ($1,$2,$3,NOW())
		ON CONFLICT (kind, name) DO UPDATE SET value=EXCLUDED.value, updated_at=NOW()`,
		kind, name, value)
	return err
}

func (s *Store) LoadBaseline(ctx context.Context, kind, name string) (float64, error) {
	var v float64
	err := s.DB.QueryRowContext(ctx, `SELECT value FROM baselines WHERE kind=$1 AND name=$2`, kind, name).Scan(&v)
	return v, err
}

// LoadBaselines returns every baseline of the given kind as name -> value.
func (s *Store) LoadBaselines(ctx context.Context, kind string) (map[string]float64, error) {
	rows, err := s.DB.QueryContext(ctx, `SELECT name, value FROM baselines WHERE kind=$1`, kind)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	out := make(map[string]float64)
	for rows.Next() {
		var name string
		var value float64
		if err := rows.Scan(&name, &value); err != nil {
			return nil, err
		}
		out[name] = value
	}
	return out, rows.Err()
}

// AppendPrediction records one forecast in the append-only history.
func (s *Store) AppendPrediction(ctx context.Context, rec PredictionRecord) (string, error) {
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO prediction_history (id, type, baseline, predicted, horizon_days, confidence, result, created_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,NOW())`,
		rec.ID, string(rec.Type), rec.Baseline, rec.Predicted, rec.HorizonDays, rec.Confidence, []byte(rec.Result))
	return rec.ID, err
}

// QueryPredictions returns history records matching the filter, newest first.
func (s *Store) QueryPredictions(ctx context.Context, f HistoryFilter) ([]PredictionRecord, error) {
	query := `SELECT id, type, baseline, predicted, horizon_days, confidence, result, created_at
		FROM prediction_history WHERE 1=1`
	var args []interface{}
	if f.Type != "" {
		args = append(args, string(f.Type))
		query += fmt.Sprintf(" AND type=$%d", len(args))
	}
	if !f.Since.IsZero() {
		args = append(args, f.Since)
		query += fmt.Sprintf(" AND created_at >= $%d", len(args))
	}
	if !f.Until.IsZero() {
		args = append(args, f.Until)
		query += fmt.Sprintf(" AND created_at <= $%d", len(args))
	}
	query += " ORDER BY created_at DESC"
	if f.Limit > 0 {
		args = append(args, f.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}

	rows, err := s.DB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []PredictionRecord
	for rows.Next() {
		var rec PredictionRecord
		var typ string
		var result []byte
		if err := rows.Scan(&rec.ID, &typ, &rec.Baseline, &rec.Predicted,
			&rec.HorizonDays, &rec.Confidence, &result, &rec.CreatedAt); err != nil {
			return nil, err
		}
		rec.Type = predict.Type(typ)
		rec.Result = result
		out = append(out, rec)
	}
	return out, rows.Err()
}

// coalitionKey gives a grouping a stable identity regardless of party order.
func coalitionKey(parties []string) string {
	sorted := append([]string(nil), parties...)
	sort.Strings(sorted)
	return strings.Join(sorted, "+")
}

// SaveCoalitionStability records the historical stability score for a grouping.
func (s *Store) SaveCoalitionStability(ctx context.Context, parties []string, stability float64) error {
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO coalition_stability (parties, stability, updated_at) VALUES ($1,$2,NOW())
		ON CONFLICT (parties) DO UPDATE SET stability=EXCLUDED.stability, updated_at=NOW()`,
		coalitionKey(parties), stability)
	return err
}

// CoalitionStability implements predict.StabilityLookup.
func (s *Store) CoalitionStability(parties []string) (float64, bool) {
	var v float64
	err := s.DB.QueryRow(`SELECT stability FROM coalition_stability WHERE parties=$1`,
		coalitionKey(parties)).Scan(&v)
	if err != nil {
		return 0, false
	}
	return v, true
}

// User operations
func (s *Store) CreateUser(ctx context.Context, email, hash string) error {
	_, err := s.DB.ExecContext(ctx, `INSERT INTO users (email, password_hash) VALUES ($1,$2)`, email, hash)
	return err
}

func (s *Store) GetUserByEmail(ctx context.Context, email string) (id string, hash string, err error) {
	err = s.DB.QueryRowContext(ctx, `SELECT id, password_hash FROM users WHERE email=$1`, email).Scan(&id, &hash)
	return
}
