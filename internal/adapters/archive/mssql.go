package archive

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log"
	"sync"
	"time"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server driver

	"github.com/fra-atlas/platform/internal/legacy"
	"github.com/fra-atlas/platform/internal/shared/config"
	"github.com/fra-atlas/platform/internal/shared/errors"
	"github.com/fra-atlas/platform/internal/shared/types"
)

// MSSQLAdapter polls the archive's SQL Server for extraction job updates
// and applies them to the digitization workflow
type MSSQLAdapter struct {
	db       *sql.DB
	config   config.ArchiveConfig
	workflow *legacy.Workflow

	jobTable string

	running  bool
	mu       sync.RWMutex
	cancel   context.CancelFunc
	lastPoll time.Time
	wg       sync.WaitGroup
}

// NewMSSQLAdapter creates an adapter bound to the digitization workflow
func NewMSSQLAdapter(cfg config.ArchiveConfig, workflow *legacy.Workflow) *MSSQLAdapter {
	return &MSSQLAdapter{
		config:   cfg,
		workflow: workflow,
		jobTable: "dbo.ExtractionJobs",
	}
}

var _ Adapter = (*MSSQLAdapter)(nil)

// Start opens the connection and begins polling
func (a *MSSQLAdapter) Start(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.running {
		return fmt.Errorf("archive adapter already running")
	}

	connStr := fmt.Sprintf("server=%s;port=%d;database=%s;user id=%s;password=%s",
		a.config.Host,
		a.config.Port,
		a.config.Database,
		a.config.User,
		a.config.Password,
	)
	if a.config.SSLMode != "disable" {
		connStr += ";encrypt=true;TrustServerCertificate=true"
	}

	db, err := sql.Open("sqlserver", connStr)
	if err != nil {
		return fmt.Errorf("failed to open archive database: %w", err)
	}

	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return fmt.Errorf("failed to ping archive database: %w", err)
	}

	a.db = db
	a.running = true
	a.lastPoll = time.Now().Add(-a.config.PollInterval)

	pollCtx, cancel := context.WithCancel(ctx)
	a.cancel = cancel

	a.wg.Add(1)
	go a.pollLoop(pollCtx)

	return nil
}

// Stop halts polling and closes the connection
func (a *MSSQLAdapter) Stop(ctx context.Context) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if !a.running {
		return nil
	}

	if a.cancel != nil {
		a.cancel()
	}

	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		return ctx.Err()
	}

	if a.db != nil {
		a.db.Close()
	}

	a.running = false
	return nil
}

// Health checks archive database connectivity
func (a *MSSQLAdapter) Health(ctx context.Context) error {
	a.mu.RLock()
	defer a.mu.RUnlock()

	if !a.running {
		return fmt.Errorf("archive adapter not running")
	}
	return a.db.PingContext(ctx)
}

// IsConnected reports connection status
func (a *MSSQLAdapter) IsConnected() bool {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return a.running && a.db != nil
}

// SourceSystem returns the archive system name
func (a *MSSQLAdapter) SourceSystem() string {
	return "nic-archive"
}

// pollLoop polls for job updates on the configured interval
func (a *MSSQLAdapter) pollLoop(ctx context.Context) {
	defer a.wg.Done()

	ticker := time.NewTicker(a.config.PollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.mu.Lock()
			lastPoll := a.lastPoll
			a.lastPoll = time.Now()
			a.mu.Unlock()

			if err := a.pollJobs(ctx, lastPoll); err != nil {
				log.Printf("Error polling extraction jobs: %v", err)
			}
		}
	}
}

// pollJobs fetches jobs modified since lastPoll and applies each update
// to the workflow. Out-of-date updates are ignored: the workflow's own
// transition guards reject moves the record has already made.
func (a *MSSQLAdapter) pollJobs(ctx context.Context, since time.Time) error {
	query := fmt.Sprintf(`
		SELECT JobID, RecordID, Status, ResultPayload, FailureReason, LastModified
		FROM %s
		WHERE LastModified > @since
		ORDER BY LastModified ASC
	`, a.jobTable)

	rows, err := a.db.QueryContext(ctx, query, sql.Named("since", since))
	if err != nil {
		return err
	}
	defer rows.Close()

	for rows.Next() {
		var job Job
		var recordID string
		var payload, reason sql.NullString

		if err := rows.Scan(&job.ID, &recordID, &job.Status, &payload, &reason, &job.LastModified); err != nil {
			log.Printf("Failed to scan extraction job: %v", err)
			continue
		}

		id, err := types.ParseID(recordID)
		if err != nil {
			log.Printf("Extraction job %s has malformed record id %q", job.ID, recordID)
			continue
		}
		job.RecordID = id
		if payload.Valid {
			job.ResultPayload = []byte(payload.String)
		}
		if reason.Valid {
			job.FailureReason = reason.String
		}

		if err := a.applyJob(ctx, job); err != nil {
			log.Printf("Failed to apply extraction job %s: %v", job.ID, err)
		}
	}

	return rows.Err()
}

// applyJob maps a job status onto the legacy record lifecycle
func (a *MSSQLAdapter) applyJob(ctx context.Context, job Job) error {
	switch job.Status {
	case JobStatusRunning:
		err := a.workflow.StartExtraction(ctx, job.RecordID)
		if errors.IsInvalidTransition(err) {
			return nil // already past uploaded
		}
		return err

	case JobStatusCompleted:
		result, err := parseResult(job.ResultPayload)
		if err != nil {
			return fmt.Errorf("malformed result payload: %w", err)
		}
		// A completed job for a record still in uploaded means the
		// running update was missed between polls
		if startErr := a.workflow.StartExtraction(ctx, job.RecordID); startErr != nil && !errors.IsInvalidTransition(startErr) {
			return startErr
		}
		err = a.workflow.CompleteExtraction(ctx, job.RecordID, result)
		if errors.IsInvalidTransition(err) {
			return nil
		}
		return err

	case JobStatusFailed:
		if startErr := a.workflow.StartExtraction(ctx, job.RecordID); startErr != nil && !errors.IsInvalidTransition(startErr) {
			return startErr
		}
		err := a.workflow.FailExtraction(ctx, job.RecordID, job.FailureReason)
		if errors.IsInvalidTransition(err) {
			return nil
		}
		return err

	case JobStatusQueued:
		return nil

	default:
		return fmt.Errorf("unknown job status %q", job.Status)
	}
}

func parseResult(payload []byte) (*legacy.ExtractionResult, error) {
	if len(payload) == 0 {
		return &legacy.ExtractionResult{}, nil
	}
	var result legacy.ExtractionResult
	if err := json.Unmarshal(payload, &result); err != nil {
		return nil, err
	}
	return &result, nil
}
