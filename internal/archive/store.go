package archive

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sys/unix"
	_ "modernc.org/sqlite"

	"rigdna/internal/config"
	"rigdna/internal/dna"
	"rigdna/internal/fileutil"
	"rigdna/internal/services"
)

// Trigger records which operation produced an archive entry.
type Trigger string

// Calibrate and overwrite entries are written by the pipeline before it
// touches the rig file; manual entries come from explicit snapshots.
const (
	TriggerCalibrate Trigger = "calibrate"
	TriggerOverwrite Trigger = "overwrite"
	TriggerManual    Trigger = "manual"
)

// Entry is one archived document revision.
type Entry struct {
	ID            string
	RigName       string
	SourcePath    string
	BlobPath      string
	Trigger       Trigger
	LowConfidence int
	CreatedAt     time.Time
}

// statfsFunc allows tests to stub filesystem stats.
type statfsFunc func(path string) (total uint64, free uint64, err error)

// Store manages archived rig revisions: an SQLite index plus blob copies
// under the archive directory.
type Store struct {
	db      *sql.DB
	path    string
	blobDir string
	keep    int
	minFree uint64
	statfs  statfsFunc
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// timestampLayout is RFC3339 with fixed-width nanoseconds so the text
// ordering SQLite applies to created_at matches chronology.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

// Open initializes or connects to the archive database.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}

	dbPath := filepath.Join(cfg.Paths.DataDir, "archive.db")
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{
		db:      db,
		path:    dbPath,
		blobDir: cfg.Paths.ArchiveDir,
		keep:    cfg.Archive.Keep,
		minFree: uint64(cfg.Archive.MinFreeMiB) * 1024 * 1024,
		statfs:  realStatfs,
	}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}

	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database location.
func (s *Store) Path() string { return s.path }

// Add copies the document at sourcePath into the archive and records the
// entry. Callers invoke it before mutating the source, so the archived
// bytes are always the pre-edit revision. lowConfidence counts the flagged
// vertices the revision carried.
func (s *Store) Add(ctx context.Context, rigName, sourcePath string, trigger Trigger, lowConfidence int) (*Entry, error) {
	switch trigger {
	case TriggerCalibrate, TriggerOverwrite, TriggerManual:
	default:
		return nil, fmt.Errorf("archive: unknown trigger %q", trigger)
	}

	info, err := os.Stat(sourcePath)
	if err != nil {
		return nil, fmt.Errorf("archive: stat source: %w", err)
	}
	if err := s.ensureCapacity(uint64(info.Size())); err != nil {
		return nil, err
	}
	if err := os.MkdirAll(s.blobDir, 0o755); err != nil {
		return nil, fmt.Errorf("archive: create blob dir: %w", err)
	}

	now := time.Now().UTC()
	id := uuid.NewString()
	blobPath := filepath.Join(s.blobDir, blobName(rigName, sourcePath, now, id))
	if err := fileutil.CopyFileVerified(sourcePath, blobPath); err != nil {
		return nil, fmt.Errorf("archive: copy blob: %w", err)
	}

	entry := &Entry{
		ID:            id,
		RigName:       rigName,
		SourcePath:    sourcePath,
		BlobPath:      blobPath,
		Trigger:       trigger,
		LowConfidence: lowConfidence,
		CreatedAt:     now,
	}
	if _, err := s.execWithRetry(
		ctx,
		`INSERT INTO archive_entries (id, rig_name, source_path, blob_path, trigger_op, low_confidence, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?)`,
		entry.ID,
		entry.RigName,
		entry.SourcePath,
		entry.BlobPath,
		string(entry.Trigger),
		entry.LowConfidence,
		now.Format(timestampLayout),
	); err != nil {
		_ = os.Remove(blobPath)
		return nil, fmt.Errorf("archive: record entry: %w", err)
	}
	return entry, nil
}

// GetByID returns one entry, or nil when the id is unknown.
func (s *Store) GetByID(ctx context.Context, id string) (*Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM archive_entries WHERE id = ?`, id)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get entry: %w", err)
	}
	return entry, nil
}

// LatestForRig returns the newest entry for a rig, or nil when the rig has
// never been archived.
func (s *Store) LatestForRig(ctx context.Context, rigName string) (*Entry, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT `+entryColumns+` FROM archive_entries WHERE rig_name = ? ORDER BY created_at DESC, id DESC LIMIT 1`,
		rigName,
	)
	entry, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("latest for rig: %w", err)
	}
	return entry, nil
}

// List returns entries newest first, filtered to one rig when rigName is
// non-empty.
func (s *Store) List(ctx context.Context, rigName string) ([]*Entry, error) {
	var (
		rows *sql.Rows
		err  error
	)

	baseQuery := `SELECT ` + entryColumns + ` FROM archive_entries`
	orderClause := ` ORDER BY created_at DESC, id DESC`

	if rigName == "" {
		rows, err = s.db.QueryContext(ctx, baseQuery+orderClause)
	} else {
		rows, err = s.db.QueryContext(ctx, baseQuery+` WHERE rig_name = ?`+orderClause, rigName)
	}
	if err != nil {
		return nil, fmt.Errorf("list archive entries: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

// Prune removes every revision beyond the newest keep per rig, deleting
// both the index rows and the blob copies. A keep of zero or less falls
// back to the configured retention. Returns the number of entries removed.
func (s *Store) Prune(ctx context.Context, keep int) (int64, error) {
	if keep <= 0 {
		keep = s.keep
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT `+entryColumns+` FROM archive_entries ORDER BY rig_name, created_at DESC, id DESC`,
	)
	if err != nil {
		return 0, fmt.Errorf("list for prune: %w", err)
	}

	var (
		victims    []*Entry
		currentRig string
		count      int
	)
	for rows.Next() {
		entry, err := scanEntry(rows)
		if err != nil {
			rows.Close()
			return 0, err
		}
		if entry.RigName != currentRig {
			currentRig = entry.RigName
			count = 0
		}
		count++
		if count > keep {
			victims = append(victims, entry)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return 0, err
	}
	rows.Close()

	if len(victims) == 0 {
		return 0, nil
	}

	ids := make([]any, len(victims))
	for i, v := range victims {
		ids[i] = v.ID
	}
	query := `DELETE FROM archive_entries WHERE id IN (` + makePlaceholders(len(ids)) + `)`
	res, err := s.execWithRetry(ctx, query, ids...)
	if err != nil {
		return 0, fmt.Errorf("prune entries: %w", err)
	}
	removed, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}

	var blobErrs []error
	for _, v := range victims {
		if err := os.Remove(v.BlobPath); err != nil && !os.IsNotExist(err) {
			blobErrs = append(blobErrs, fmt.Errorf("remove blob %s: %w", v.BlobPath, err))
		}
	}
	return removed, errors.Join(blobErrs...)
}

// Restore copies an archived revision back over targetPath after verifying
// the blob still decodes. An empty targetPath restores to the entry's
// original source path. The copy is byte-exact; the decode only proves the
// blob was not corrupted at rest.
func (s *Store) Restore(ctx context.Context, id, targetPath string) (*Entry, error) {
	entry, err := s.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if entry == nil {
		return nil, services.Wrap(services.ErrNotFound, "archive", "restore", fmt.Sprintf("no entry %s", id), nil)
	}

	if _, err := dna.Load(entry.BlobPath); err != nil {
		return nil, services.Wrap(services.ErrValidation, "archive", "restore", "archived blob no longer decodes", err)
	}

	target := targetPath
	if target == "" {
		target = entry.SourcePath
	}
	if dir := filepath.Dir(target); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("archive: create target dir: %w", err)
		}
	}
	if err := fileutil.CopyFileVerified(entry.BlobPath, target); err != nil {
		return nil, fmt.Errorf("archive: restore copy: %w", err)
	}
	return entry, nil
}

// Stats returns a count of entries grouped by trigger.
func (s *Store) Stats(ctx context.Context) (map[Trigger]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT trigger_op, COUNT(1) FROM archive_entries GROUP BY trigger_op`)
	if err != nil {
		return nil, fmt.Errorf("archive stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Trigger]int)
	for rows.Next() {
		var trigger string
		var count int
		if err := rows.Scan(&trigger, &count); err != nil {
			return nil, err
		}
		stats[Trigger(trigger)] = count
	}
	return stats, rows.Err()
}

func (s *Store) ensureCapacity(need uint64) error {
	if s.minFree == 0 {
		return nil
	}
	_, free, err := s.statfs(s.blobDir)
	if err != nil {
		return fmt.Errorf("archive: statfs: %w", err)
	}
	if free < need+s.minFree {
		msg := fmt.Sprintf("%d MiB free under %s, need %d MiB headroom",
			free/(1024*1024), s.blobDir, (need+s.minFree)/(1024*1024))
		return services.Wrap(services.ErrCapacity, "archive", "add", msg, nil)
	}
	return nil
}

const entryColumns = "id, rig_name, source_path, blob_path, trigger_op, low_confidence, created_at"

func scanEntry(scanner interface{ Scan(dest ...any) error }) (*Entry, error) {
	var (
		id            string
		rigName       string
		sourcePath    string
		blobPath      string
		triggerOp     string
		lowConfidence sql.NullInt64
		createdRaw    string
	)

	if err := scanner.Scan(&id, &rigName, &sourcePath, &blobPath, &triggerOp, &lowConfidence, &createdRaw); err != nil {
		return nil, err
	}

	entry := &Entry{
		ID:         id,
		RigName:    rigName,
		SourcePath: sourcePath,
		BlobPath:   blobPath,
		Trigger:    Trigger(triggerOp),
	}
	if lowConfidence.Valid {
		entry.LowConfidence = int(lowConfidence.Int64)
	}
	if created, err := parseTimeString(createdRaw); err == nil {
		entry.CreatedAt = created
	}
	return entry, nil
}

func blobName(rigName, sourcePath string, ts time.Time, id string) string {
	slug := sanitizeRigName(rigName)
	ext := strings.ToLower(filepath.Ext(sourcePath))
	if ext == "" {
		ext = ".dna"
	}
	short := id
	if len(short) > 8 {
		short = short[:8]
	}
	return fmt.Sprintf("%s_%s_%s%s", slug, ts.Format("20060102_150405"), short, ext)
}

func sanitizeRigName(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	var b strings.Builder
	lastDash := false
	for _, r := range name {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			lastDash = false
		default:
			if !lastDash && b.Len() > 0 {
				b.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "rig"
	}
	return slug
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}

func ensureContext(ctx context.Context) context.Context {
	if ctx != nil {
		return ctx
	}
	return context.Background()
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := 0; attempt < busyRetryAttempts; attempt++ {
		lastErr = op()
		if lastErr == nil {
			return nil
		}
		if !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		if next := delay * 2; next <= busyRetryMaxBackoff {
			delay = next
		}
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	ctx = ensureContext(ctx)
	var (
		res     sql.Result
		execErr error
	)
	if err := retryOnBusy(ctx, func() error {
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	}); err != nil {
		return nil, err
	}
	return res, nil
}

func realStatfs(path string) (uint64, uint64, error) {
	var stat unix.Statfs_t
	if err := unix.Statfs(path, &stat); err != nil {
		return 0, 0, err
	}
	total := stat.Blocks * uint64(stat.Bsize)
	free := stat.Bavail * uint64(stat.Bsize)
	return total, free, nil
}
