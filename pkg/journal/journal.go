// Package journal provides a SQLite log of classified measurements.
package journal

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/runningwild/tripcurve/pkg/characteristic"
)

// Entry is one journaled classification.
type Entry struct {
	ID             uuid.UUID                     `json:"id"`
	Label          string                        `json:"label,omitempty"`
	Measurement    characteristic.Measurement    `json:"measurement"`
	Classification characteristic.Classification `json:"classification"`
	CreatedAt      time.Time                     `json:"created_at"`
}

type row struct {
	ID           uuid.UUID `db:"id"`
	Label        string    `db:"label"`
	Restraint    float64   `db:"restraint"`
	Differential float64   `db:"differential"`
	Threshold    float64   `db:"threshold"`
	Decision     string    `db:"decision"`
	CreatedNs    int64     `db:"created_ns"`
}

// Journal wraps a SQLite connection.
type Journal struct {
	conn *sqlx.DB
	now  func() time.Time
}

// Open opens or creates a journal at path.
func Open(path string) (*Journal, error) {
	conn, err := sqlx.Open("sqlite", path+"?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	// SQLite allows a single writer.
	conn.SetMaxOpenConns(1)

	j := &Journal{conn: conn, now: time.Now}
	if err := j.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return j, nil
}

func (j *Journal) Close() error {
	return j.conn.Close()
}

func (j *Journal) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS classifications (
		seq INTEGER PRIMARY KEY AUTOINCREMENT,
		id TEXT NOT NULL UNIQUE,
		label TEXT NOT NULL,
		restraint REAL NOT NULL,
		differential REAL NOT NULL,
		threshold REAL NOT NULL,
		decision TEXT NOT NULL,
		created_ns INTEGER NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_classifications_decision ON classifications(decision);
	`
	_, err := j.conn.Exec(schema)
	return err
}

// Record appends entries in a single transaction. Missing IDs and timestamps
// are filled in; the completed entries are returned.
func (j *Journal) Record(ctx context.Context, entries ...Entry) ([]Entry, error) {
	tx, err := j.conn.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	out := make([]Entry, 0, len(entries))
	for _, e := range entries {
		if e.ID == uuid.Nil {
			e.ID = uuid.New()
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = j.now()
		}
		_, err := tx.NamedExecContext(ctx, `INSERT INTO classifications
			(id, label, restraint, differential, threshold, decision, created_ns)
			VALUES (:id, :label, :restraint, :differential, :threshold, :decision, :created_ns)`,
			row{
				ID:           e.ID,
				Label:        e.Label,
				Restraint:    e.Measurement.Restraint,
				Differential: e.Measurement.Differential,
				Threshold:    e.Classification.Threshold,
				Decision:     e.Classification.Decision.String(),
				CreatedNs:    e.CreatedAt.UnixNano(),
			})
		if err != nil {
			return nil, fmt.Errorf("insert %s: %w", e.ID, err)
		}
		out = append(out, e)
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return out, nil
}

// Recent returns the most recent entries, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]Entry, error) {
	var rows []row
	err := j.conn.SelectContext(ctx, &rows,
		`SELECT id, label, restraint, differential, threshold, decision, created_ns
		 FROM classifications ORDER BY seq DESC LIMIT ?`, limit)
	if err != nil {
		return nil, err
	}
	return toEntries(rows)
}

// Counts returns the number of journaled entries per decision.
func (j *Journal) Counts(ctx context.Context) (map[characteristic.Decision]int, error) {
	var rows []struct {
		Decision string `db:"decision"`
		N        int    `db:"n"`
	}
	err := j.conn.SelectContext(ctx, &rows,
		"SELECT decision, COUNT(*) AS n FROM classifications GROUP BY decision")
	if err != nil {
		return nil, err
	}

	out := make(map[characteristic.Decision]int, len(rows))
	for _, r := range rows {
		var d characteristic.Decision
		if err := d.UnmarshalText([]byte(r.Decision)); err != nil {
			return nil, err
		}
		out[d] = r.N
	}
	return out, nil
}

func toEntries(rows []row) ([]Entry, error) {
	out := make([]Entry, 0, len(rows))
	for _, r := range rows {
		var d characteristic.Decision
		if err := d.UnmarshalText([]byte(r.Decision)); err != nil {
			return nil, fmt.Errorf("entry %s: %w", r.ID, err)
		}
		out = append(out, Entry{
			ID:             r.ID,
			Label:          r.Label,
			Measurement:    characteristic.Measurement{Restraint: r.Restraint, Differential: r.Differential},
			Classification: characteristic.Classification{Decision: d, Threshold: r.Threshold},
			CreatedAt:      time.Unix(0, r.CreatedNs),
		})
	}
	return out, nil
}
