// Package repository persists completed therapy abstractions. The engine
// itself is storage-free; this layer is used by the orchestrating server to
// keep an auditable history of runs per patient.
package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/therapy-abstraction-server/internal/domain"
)

// AbstractionRun is one persisted engine invocation: the full output plus the
// metadata needed to attribute it to an engine and knowledge base release.
type AbstractionRun struct {
	ID                   uuid.UUID                  `json:"id"`
	PatientID            string                     `json:"patient_id"`
	EngineVersion        string                     `json:"engine_version"`
	KnowledgeBaseVersion string                     `json:"knowledge_base_version"`
	LineCount            int                        `json:"line_count"`
	WarningCount         int                        `json:"warning_count"`
	GeneratedAt          time.Time                  `json:"generated_at"`
	Abstraction          *domain.TherapyAbstraction `json:"abstraction"`
	CreatedAt            time.Time                  `json:"created_at"`
}

// AbstractionRepository handles abstraction run persistence
type AbstractionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewAbstractionRepository creates a new abstraction repository
func NewAbstractionRepository(db *pgxpool.Pool, logger *logrus.Logger) *AbstractionRepository {
	return &AbstractionRepository{
		db:  db,
		log: logger,
	}
}

// Create inserts a completed abstraction run
func (r *AbstractionRepository) Create(ctx context.Context, abstraction *domain.TherapyAbstraction) (*AbstractionRun, error) {
	payload, err := json.Marshal(abstraction)
	if err != nil {
		return nil, fmt.Errorf("marshaling abstraction: %w", err)
	}

	run := &AbstractionRun{
		ID:                   uuid.New(),
		PatientID:            abstraction.PatientID,
		EngineVersion:        abstraction.EngineVersion,
		KnowledgeBaseVersion: abstraction.KnowledgeBaseVersion,
		LineCount:            len(abstraction.LinesOfTherapy),
		WarningCount:         len(abstraction.Warnings),
		GeneratedAt:          abstraction.GeneratedAt,
		Abstraction:          abstraction,
	}

	query := `
		INSERT INTO abstraction_runs (
			id, patient_id, engine_version, knowledge_base_version,
			line_count, warning_count, generated_at, payload
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8
		) RETURNING created_at`

	err = r.db.QueryRow(ctx, query,
		run.ID,
		run.PatientID,
		run.EngineVersion,
		run.KnowledgeBaseVersion,
		run.LineCount,
		run.WarningCount,
		run.GeneratedAt,
		payload,
	).Scan(&run.CreatedAt)

	if err != nil {
		r.log.WithFields(logrus.Fields{
			"patient_id": run.PatientID,
			"error":      err,
		}).Error("Failed to persist abstraction run")
		return nil, fmt.Errorf("creating abstraction run: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"run_id":     run.ID,
		"patient_id": run.PatientID,
		"lines":      run.LineCount,
		"warnings":   run.WarningCount,
	}).Info("Abstraction run persisted")

	return run, nil
}

// GetByID retrieves an abstraction run by its ID
func (r *AbstractionRepository) GetByID(ctx context.Context, id uuid.UUID) (*AbstractionRun, error) {
	query := `
		SELECT id, patient_id, engine_version, knowledge_base_version,
			   line_count, warning_count, generated_at, payload, created_at
		FROM abstraction_runs
		WHERE id = $1`

	run, err := r.scanRun(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("abstraction run not found: %w", domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"run_id": id,
			"error":  err,
		}).Error("Failed to load abstraction run")
		return nil, fmt.Errorf("getting abstraction run: %w", err)
	}
	return run, nil
}

// GetLatestByPatient retrieves the most recently generated run for a patient
func (r *AbstractionRepository) GetLatestByPatient(ctx context.Context, patientID string) (*AbstractionRun, error) {
	query := `
		SELECT id, patient_id, engine_version, knowledge_base_version,
			   line_count, warning_count, generated_at, payload, created_at
		FROM abstraction_runs
		WHERE patient_id = $1
		ORDER BY generated_at DESC, created_at DESC
		LIMIT 1`

	run, err := r.scanRun(r.db.QueryRow(ctx, query, patientID))
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, fmt.Errorf("no abstraction runs for patient: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting latest abstraction run: %w", err)
	}
	return run, nil
}

// ListByPatient returns the run history for one patient, newest first
func (r *AbstractionRepository) ListByPatient(ctx context.Context, patientID string, limit int) ([]*AbstractionRun, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, patient_id, engine_version, knowledge_base_version,
			   line_count, warning_count, generated_at, payload, created_at
		FROM abstraction_runs
		WHERE patient_id = $1
		ORDER BY generated_at DESC, created_at DESC
		LIMIT $2`

	rows, err := r.db.Query(ctx, query, patientID, limit)
	if err != nil {
		return nil, fmt.Errorf("listing abstraction runs: %w", err)
	}
	defer rows.Close()

	var runs []*AbstractionRun
	for rows.Next() {
		run, err := r.scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning abstraction run: %w", err)
		}
		runs = append(runs, run)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating abstraction runs: %w", err)
	}
	return runs, nil
}

// DeleteByPatient removes all stored runs for a patient, e.g. after an
// upstream data correction invalidates the timeline they were computed from.
func (r *AbstractionRepository) DeleteByPatient(ctx context.Context, patientID string) (int64, error) {
	tag, err := r.db.Exec(ctx, `DELETE FROM abstraction_runs WHERE patient_id = $1`, patientID)
	if err != nil {
		return 0, fmt.Errorf("deleting abstraction runs: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"patient_id": patientID,
		"deleted":    tag.RowsAffected(),
	}).Info("Deleted abstraction runs for patient")

	return tag.RowsAffected(), nil
}

// scanRun maps one row onto an AbstractionRun, decoding the stored payload.
func (r *AbstractionRepository) scanRun(row pgx.Row) (*AbstractionRun, error) {
	var run AbstractionRun
	var payload []byte

	err := row.Scan(
		&run.ID,
		&run.PatientID,
		&run.EngineVersion,
		&run.KnowledgeBaseVersion,
		&run.LineCount,
		&run.WarningCount,
		&run.GeneratedAt,
		&payload,
		&run.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(payload, &run.Abstraction); err != nil {
		return nil, fmt.Errorf("decoding abstraction payload: %w", err)
	}
	return &run, nil
}
