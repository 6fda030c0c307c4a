package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/cory-johannsen/arena/internal/game/match"
)

// ErrResultNotFound is returned when a result lookup yields no rows.
var ErrResultNotFound = errors.New("match result not found")

// ErrResultExists is returned when saving a result for an already recorded match.
var ErrResultExists = errors.New("match result already recorded")

// Standing is a genome's aggregate record over all recorded matches.
type Standing struct {
	GenomeID string
	Wins     int
	Losses   int
	Draws    int
	Aborted  int
}

// ResultRepository persists match results. It implements match.ResultRecorder.
type ResultRepository struct {
	db *pgxpool.Pool
}

// NewResultRepository creates a ResultRepository backed by the given pool.
//
// Precondition: db must be a valid, open connection pool.
func NewResultRepository(db *pgxpool.Pool) *ResultRepository {
	return &ResultRepository{db: db}
}

const resultColumns = `match_id, seed, draws, genomes, winner, reason, detail, ticks,
	final_hp0, final_hp1, started_at, ended_at`

// SaveResult inserts r. The seed is stored bit-for-bit in a signed BIGINT.
//
// Precondition: r.MatchID must be set.
// Postcondition: Returns nil, ErrResultExists on a duplicate match ID, or a wrapped error.
func (r *ResultRepository) SaveResult(ctx context.Context, res match.Result) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO match_results
			(match_id, seed, draws, fighter0_id, fighter1_id, genomes, winner, reason, detail,
			 ticks, final_hp0, final_hp1, started_at, ended_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)`,
		res.MatchID, int64(res.Seed), int64(res.Draws),
		res.Genomes[0].ID, res.Genomes[1].ID, res.Genomes,
		res.Winner, string(res.Reason), res.Detail, res.Ticks,
		res.FinalHP[0], res.FinalHP[1], res.StartedAt, res.EndedAt,
	)
	if err != nil {
		if isDuplicateKeyError(err) {
			return fmt.Errorf("%w: %s", ErrResultExists, res.MatchID)
		}
		return fmt.Errorf("inserting match result: %w", err)
	}
	return nil
}

// Get retrieves the result for a match.
//
// Postcondition: Returns the Result or ErrResultNotFound.
func (r *ResultRepository) Get(ctx context.Context, id uuid.UUID) (match.Result, error) {
	row := r.db.QueryRow(ctx, `SELECT `+resultColumns+` FROM match_results WHERE match_id = $1`, id)
	res, err := scanResult(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return match.Result{}, ErrResultNotFound
		}
		return match.Result{}, fmt.Errorf("querying match result: %w", err)
	}
	return res, nil
}

// ListRecent returns up to limit results, most recently ended first.
//
// Precondition: limit must be > 0.
// Postcondition: Returns a slice (may be empty) or a non-nil error.
func (r *ResultRepository) ListRecent(ctx context.Context, limit int) ([]match.Result, error) {
	rows, err := r.db.Query(ctx, `SELECT `+resultColumns+` FROM match_results ORDER BY ended_at DESC LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing match results: %w", err)
	}
	defer rows.Close()

	out := make([]match.Result, 0)
	for rows.Next() {
		res, err := scanResult(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning match result row: %w", err)
		}
		out = append(out, res)
	}
	return out, rows.Err()
}

// Standing aggregates every recorded match the genome fought in.
//
// Postcondition: A genome with no matches has a zero Standing.
func (r *ResultRepository) Standing(ctx context.Context, genomeID string) (Standing, error) {
	s := Standing{GenomeID: genomeID}
	err := r.db.QueryRow(ctx, `
		SELECT
			COUNT(*) FILTER (WHERE reason <> 'aborted' AND
				((fighter0_id = $1 AND winner = 0) OR (fighter1_id = $1 AND winner = 1))),
			COUNT(*) FILTER (WHERE reason <> 'aborted' AND
				((fighter0_id = $1 AND winner = 1) OR (fighter1_id = $1 AND winner = 0))),
			COUNT(*) FILTER (WHERE reason <> 'aborted' AND winner = -1),
			COUNT(*) FILTER (WHERE reason = 'aborted')
		FROM match_results
		WHERE fighter0_id = $1 OR fighter1_id = $1`,
		genomeID,
	).Scan(&s.Wins, &s.Losses, &s.Draws, &s.Aborted)
	if err != nil {
		return Standing{}, fmt.Errorf("querying standing: %w", err)
	}
	return s, nil
}

func scanResult(row pgx.Row) (match.Result, error) {
	var (
		res         match.Result
		seed, draws int64
		reason      string
	)
	err := row.Scan(
		&res.MatchID, &seed, &draws, &res.Genomes, &res.Winner, &reason, &res.Detail, &res.Ticks,
		&res.FinalHP[0], &res.FinalHP[1], &res.StartedAt, &res.EndedAt,
	)
	if err != nil {
		return match.Result{}, err
	}
	res.Seed = uint64(seed)
	res.Draws = uint64(draws)
	res.Reason = match.Reason(reason)
	return res, nil
}

// isDuplicateKeyError checks if a pgx error is a unique constraint violation.
func isDuplicateKeyError(err error) bool {
	// SQLSTATE 23505 is unique_violation.
	var pgErr interface{ SQLState() string }
	if errors.As(err, &pgErr) {
		return pgErr.SQLState() == "23505"
	}
	return false
}
