package sqlite

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Open opens (creating if needed) the archive database at path and ensures
// the baseline schema exists. Use MigrateUp for versioned schema changes on
// long-lived deployments.
func Open(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS cluster_archives (
			archive_id        TEXT PRIMARY KEY,
			dataset           TEXT NOT NULL,
			created_at_ns     BIGINT NOT NULL,
			cutoff_frac       DOUBLE NOT NULL,
			params_json       TEXT NOT NULL
		);
		CREATE TABLE IF NOT EXISTS archive_results (
			archive_id        TEXT NOT NULL,
			param_index       BIGINT NOT NULL,
			min_pts           BIGINT NOT NULL,
			output_json       TEXT NOT NULL,
			PRIMARY KEY (archive_id, param_index),
			FOREIGN KEY (archive_id) REFERENCES cluster_archives(archive_id)
		);
		CREATE INDEX IF NOT EXISTS idx_cluster_archives_dataset
			ON cluster_archives(dataset, created_at_ns);
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("create archive schema: %w", err)
	}

	return db, nil
}

// Archive describes one persisted sweep, without its per-parameter payloads.
type Archive struct {
	ArchiveID   string          `json:"archive_id"`
	Dataset     string          `json:"dataset"`
	CreatedAtNs int64           `json:"created_at_ns"`
	CutoffFrac  float64         `json:"cutoff_frac"`
	ParamsJSON  json.RawMessage `json:"params_json"`
}

// archiveParams is the sweep metadata stored alongside the archive row.
type archiveParams struct {
	SensitivityParams []int `json:"sensitivity_params"`
	UsedTraces        []int `json:"used_traces"`
	DroppedTraces     []int `json:"dropped_traces,omitempty"`
}

// ArchiveStore provides persistence for clustering sweep results.
type ArchiveStore struct {
	db *sql.DB
}

// NewArchiveStore creates an ArchiveStore backed by the given database.
func NewArchiveStore(db *sql.DB) *ArchiveStore {
	return &ArchiveStore{db: db}
}

// SaveResults writes the complete sweep as one new archive and returns the
// generated archive ID. The write is transactional: either every parameter's
// output lands or none do.
func (s *ArchiveStore) SaveResults(res *ResultsEnvelope) (string, error) {
	archiveID := uuid.New().String()
	createdAt := time.Now().UnixNano()

	params, err := json.Marshal(archiveParams{
		SensitivityParams: res.SensitivityParams(),
		UsedTraces:        res.UsedTraces,
		DroppedTraces:     res.DroppedTraces,
	})
	if err != nil {
		return "", fmt.Errorf("marshal archive params: %w", err)
	}

	tx, err := s.db.Begin()
	if err != nil {
		return "", fmt.Errorf("begin archive tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.Exec(
		`INSERT INTO cluster_archives (archive_id, dataset, created_at_ns, cutoff_frac, params_json)
		 VALUES (?, ?, ?, ?, ?)`,
		archiveID, res.Dataset, createdAt, res.CutoffFrac, string(params),
	)
	if err != nil {
		return "", fmt.Errorf("insert archive: %w", err)
	}

	for i := range res.Outputs {
		blob, err := json.Marshal(&res.Outputs[i])
		if err != nil {
			return "", fmt.Errorf("marshal output %d: %w", i, err)
		}
		_, err = tx.Exec(
			`INSERT INTO archive_results (archive_id, param_index, min_pts, output_json)
			 VALUES (?, ?, ?, ?)`,
			archiveID, i, res.Outputs[i].MinPts, string(blob),
		)
		if err != nil {
			return "", fmt.Errorf("insert archive result %d: %w", i, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("commit archive: %w", err)
	}
	return archiveID, nil
}

// LoadResults reads one archive back in full.
func (s *ArchiveStore) LoadResults(archiveID string) (*ResultsEnvelope, error) {
	var dataset string
	var cutoff float64
	var paramsJSON string
	err := s.db.QueryRow(
		`SELECT dataset, cutoff_frac, params_json FROM cluster_archives WHERE archive_id = ?`,
		archiveID,
	).Scan(&dataset, &cutoff, &paramsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("archive not found: %s", archiveID)
	}
	if err != nil {
		return nil, fmt.Errorf("get archive: %w", err)
	}

	var params archiveParams
	if err := json.Unmarshal([]byte(paramsJSON), &params); err != nil {
		return nil, fmt.Errorf("parse archive params: %w", err)
	}

	res := &ResultsEnvelope{
		Dataset:       dataset,
		CutoffFrac:    cutoff,
		UsedTraces:    params.UsedTraces,
		DroppedTraces: params.DroppedTraces,
	}

	rows, err := s.db.Query(
		`SELECT output_json FROM archive_results WHERE archive_id = ? ORDER BY param_index`,
		archiveID,
	)
	if err != nil {
		return nil, fmt.Errorf("list archive results: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var blob string
		if err := rows.Scan(&blob); err != nil {
			return nil, fmt.Errorf("scan archive result: %w", err)
		}
		var out Output
		if err := json.Unmarshal([]byte(blob), &out); err != nil {
			return nil, fmt.Errorf("parse archive result: %w", err)
		}
		res.Outputs = append(res.Outputs, out)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archive results: %w", err)
	}

	return res, nil
}

// LatestArchive returns the most recent archive header for a dataset.
func (s *ArchiveStore) LatestArchive(dataset string) (*Archive, error) {
	var a Archive
	var paramsJSON string
	err := s.db.QueryRow(
		`SELECT archive_id, dataset, created_at_ns, cutoff_frac, params_json
		 FROM cluster_archives WHERE dataset = ?
		 ORDER BY created_at_ns DESC LIMIT 1`,
		dataset,
	).Scan(&a.ArchiveID, &a.Dataset, &a.CreatedAtNs, &a.CutoffFrac, &paramsJSON)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("no archives for dataset: %s", dataset)
	}
	if err != nil {
		return nil, fmt.Errorf("get latest archive: %w", err)
	}
	a.ParamsJSON = json.RawMessage(paramsJSON)
	return &a, nil
}

// ListArchives returns the archive headers for a dataset, newest first.
// An empty dataset lists everything.
func (s *ArchiveStore) ListArchives(dataset string) ([]*Archive, error) {
	query := `SELECT archive_id, dataset, created_at_ns, cutoff_frac, params_json
		 FROM cluster_archives`
	var args []interface{}
	if dataset != "" {
		query += ` WHERE dataset = ?`
		args = append(args, dataset)
	}
	query += ` ORDER BY created_at_ns DESC`

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("list archives: %w", err)
	}
	defer rows.Close()

	var archives []*Archive
	for rows.Next() {
		var a Archive
		var paramsJSON string
		if err := rows.Scan(&a.ArchiveID, &a.Dataset, &a.CreatedAtNs, &a.CutoffFrac, &paramsJSON); err != nil {
			return nil, fmt.Errorf("scan archive: %w", err)
		}
		a.ParamsJSON = json.RawMessage(paramsJSON)
		archives = append(archives, &a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate archives: %w", err)
	}
	return archives, nil
}
