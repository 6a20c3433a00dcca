package manifest

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/bandreports/bandreports/internal/errors"
)

// ErrNotFound is returned when a report or run does not exist.
var ErrNotFound = errors.New("not found")

// Report statuses.
const (
	StatusRendered    = "rendered"
	StatusCategorized = "categorized"
)

// Report is the manifest entry for one group's PDF.
type Report struct {
	GroupID    string
	Position   int
	FileName   string
	Topic      string
	Subject    string
	ImageRef   string
	Answers    int
	BlobStatus string
	BlobPath   string
	BlurHash   string
	Pages      int
	Status     string
	OutputPath string
	RunID      string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

const reportColumns = `group_id, position, file_name, topic, subject, image_ref, answers,
	blob_status, blob_path, blur_hash, pages, status, output_path, run_id, created_at, updated_at`

// PutReport inserts or replaces the entry for r.GroupID. CreatedAt survives updates.
func (s *Store) PutReport(ctx context.Context, r *Report) error {
	now := formatTime(s.now())
	if r.Status == "" {
		r.Status = StatusRendered
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO reports (`+reportColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(group_id) DO UPDATE SET
			position = excluded.position,
			file_name = excluded.file_name,
			topic = excluded.topic,
			subject = excluded.subject,
			image_ref = excluded.image_ref,
			answers = excluded.answers,
			blob_status = excluded.blob_status,
			blob_path = excluded.blob_path,
			blur_hash = excluded.blur_hash,
			pages = excluded.pages,
			status = excluded.status,
			output_path = excluded.output_path,
			run_id = excluded.run_id,
			updated_at = excluded.updated_at`,
		r.GroupID, r.Position, r.FileName, r.Topic, r.Subject, r.ImageRef, r.Answers,
		r.BlobStatus, nullString(r.BlobPath), nullString(r.BlurHash), r.Pages, r.Status, r.OutputPath,
		nullString(r.RunID), now, now,
	)
	if err != nil {
		return fmt.Errorf("put report %s: %w", r.GroupID, err)
	}
	return nil
}

// Report returns the entry for a group ID.
func (s *Store) Report(ctx context.Context, groupID string) (*Report, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+reportColumns+` FROM reports WHERE group_id = ?`, groupID)
	r, err := scanReport(row)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get report %s: %w", groupID, err)
	}
	return r, nil
}

// Reports returns every entry ordered by position.
func (s *Store) Reports(ctx context.Context) ([]*Report, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+reportColumns+` FROM reports ORDER BY position, group_id`)
	if err != nil {
		return nil, fmt.Errorf("list reports: %w", err)
	}
	defer rows.Close()

	var out []*Report
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scan report: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// MarkCategorized records that a report now lives at outputPath.
func (s *Store) MarkCategorized(ctx context.Context, groupID, outputPath string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE reports SET status = ?, output_path = ?, updated_at = ?
		WHERE group_id = ?`,
		StatusCategorized, outputPath, formatTime(s.now()), groupID,
	)
	if err != nil {
		return fmt.Errorf("mark categorized %s: %w", groupID, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// PruneReports deletes entries not written by runID and returns how many went.
// Rendering calls it so groups that disappeared from the input do not linger.
func (s *Store) PruneReports(ctx context.Context, runID string) (int64, error) {
	res, err := s.db.ExecContext(ctx, `DELETE FROM reports WHERE run_id IS NULL OR run_id != ?`, runID)
	if err != nil {
		return 0, fmt.Errorf("prune reports: %w", err)
	}
	n, _ := res.RowsAffected()
	if n > 0 {
		s.logger.Debug("pruned stale reports", "count", n)
	}
	return n, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(sc scanner) (*Report, error) {
	var (
		r                    Report
		blobPath, blurHash   sql.NullString
		runID                sql.NullString
		createdAt, updatedAt string
	)
	err := sc.Scan(
		&r.GroupID, &r.Position, &r.FileName, &r.Topic, &r.Subject, &r.ImageRef, &r.Answers,
		&r.BlobStatus, &blobPath, &blurHash, &r.Pages, &r.Status, &r.OutputPath, &runID,
		&createdAt, &updatedAt,
	)
	if err != nil {
		return nil, err
	}

	r.BlobPath = blobPath.String
	r.BlurHash = blurHash.String
	r.RunID = runID.String
	if r.CreatedAt, err = parseTime(createdAt); err != nil {
		return nil, fmt.Errorf("parse created_at: %w", err)
	}
	if r.UpdatedAt, err = parseTime(updatedAt); err != nil {
		return nil, fmt.Errorf("parse updated_at: %w", err)
	}
	return &r, nil
}
