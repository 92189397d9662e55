package postgres

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"github.com/sghealthtrack/healthtrack-api/internal/model"
)

// eligible builds the archive predicate for t starting at placeholder $first.
func eligible(t model.ArchiveTable, cutoff time.Time, first int) (string, []interface{}) {
	conds := []string{
		fmt.Sprintf("%s < $%d", pq.QuoteIdentifier(t.DateColumn), first),
		"archived_at IS NULL",
	}
	args := []interface{}{cutoff.UTC()}
	for _, f := range t.Filters {
		args = append(args, f.Value)
		conds = append(conds, fmt.Sprintf("%s = $%d", pq.QuoteIdentifier(f.Column), first+len(args)-1))
	}
	return strings.Join(conds, " AND "), args
}

func (r *archiveRepository) CountEligible(ctx context.Context, t model.ArchiveTable, cutoff time.Time) (int64, error) {
	where, args := eligible(t, cutoff, 1)
	query := fmt.Sprintf(`SELECT COUNT(*) FROM %s WHERE %s`, pq.QuoteIdentifier(t.Name), where)

	var count int64
	if err := r.db.GetContext(ctx, &count, query, args...); err != nil {
		return 0, fmt.Errorf("%s: %w", t.Name, err)
	}
	return count, nil
}

func (r *archiveRepository) StampTable(ctx context.Context, t model.ArchiveTable, cutoff, at time.Time) (int64, error) {
	where, args := eligible(t, cutoff, 2)
	query := fmt.Sprintf(`UPDATE %s SET archived_at = $1 WHERE %s`, pq.QuoteIdentifier(t.Name), where)

	result, err := r.db.ExecContext(ctx, query, append([]interface{}{at.UTC()}, args...)...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", t.Name, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", t.Name, err)
	}
	return rows, nil
}

func (r *archiveRepository) CountXrayFiles(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `
		SELECT COUNT(*) FROM xray_results
		WHERE updated_at < $1 AND archived_at IS NULL AND file_path IS NOT NULL
	`
	var count int64
	if err := r.db.GetContext(ctx, &count, query, cutoff.UTC()); err != nil {
		return 0, fmt.Errorf("xray_results: %w", err)
	}
	return count, nil
}

func (r *archiveRepository) ListXrayFiles(ctx context.Context, cutoff time.Time, limit int) ([]model.XrayArchiveRow, error) {
	query := `
		SELECT id, file_path FROM xray_results
		WHERE updated_at < $1 AND archived_at IS NULL AND file_path IS NOT NULL
		ORDER BY updated_at ASC
		LIMIT $2
	`
	rows := []model.XrayArchiveRow{}
	if err := r.db.SelectContext(ctx, &rows, query, cutoff.UTC(), limit); err != nil {
		return nil, fmt.Errorf("xray_results: %w", err)
	}
	return rows, nil
}

func (r *archiveRepository) ArchiveXrayFile(ctx context.Context, id uuid.UUID, filePath string, at time.Time) error {
	query := `UPDATE xray_results SET file_path = $1, archived_at = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, filePath, at.UTC(), id)
	if err != nil {
		return err
	}
	return checkAffected(result)
}

func (r *archiveRepository) StampXrayWithoutFile(ctx context.Context, cutoff, at time.Time) (int64, error) {
	query := `
		UPDATE xray_results SET archived_at = $1
		WHERE updated_at < $2 AND archived_at IS NULL AND file_path IS NULL
	`
	result, err := r.db.ExecContext(ctx, query, at.UTC(), cutoff.UTC())
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
