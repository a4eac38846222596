package calibrate

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"time"
	"unicode"

	"github.com/gofrs/flock"

	"rigdna/internal/archive"
	"rigdna/internal/config"
	"rigdna/internal/dna"
	"rigdna/internal/logging"
	"rigdna/internal/services"
	"rigdna/internal/snapshot"
)

const componentName = "calibrate"

// lockRetryDelay paces the polling under TryLockContext while another
// process holds the rig.
const lockRetryDelay = 100 * time.Millisecond

// Service applies captures to rig files on disk: it locks the rig file,
// archives the stored revision, derives the new document, and writes the
// result, with each run teed into a dedicated operation log.
type Service struct {
	cfg    *config.Config
	store  *archive.Store
	logger *slog.Logger
	logDir string
}

// NewService wires a calibration service. The archive store may be nil
// when archiving is disabled; a nil logger falls back to a no-op.
func NewService(cfg *config.Config, store *archive.Store, logger *slog.Logger) (*Service, error) {
	if cfg == nil {
		return nil, errors.New("calibrate: config is required")
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	logDir := ""
	if cfg.Paths.LogDir != "" {
		logDir = filepath.Join(cfg.Paths.LogDir, "rigs")
	}
	return &Service{cfg: cfg, store: store, logger: logger, logDir: logDir}, nil
}

// Result summarizes one service run.
type Result struct {
	OutputPath string
	// Entry is the archive record of the pre-edit revision, nil when
	// archiving is disabled.
	Entry *archive.Entry
	// Report is set for overwrite runs.
	Report *Report
	// LogPath is the operation log written for this run, empty when no
	// log directory is configured.
	LogPath string
}

// CalibrateFile derives a document from the rig at rigPath and the capture
// at snapPath, preserving vertex indices, and writes it to outPath. An
// empty outPath rewrites the rig file in place.
func (s *Service) CalibrateFile(ctx context.Context, rigPath, snapPath, outPath string) (*Result, error) {
	return s.run(ctx, rigPath, snapPath, outPath, archive.TriggerCalibrate)
}

// OverwriteFile derives a document from the rig at rigPath and the capture
// at snapPath through the UV correspondence, and writes it to outPath. An
// empty outPath rewrites the rig file in place.
func (s *Service) OverwriteFile(ctx context.Context, rigPath, snapPath, outPath string) (*Result, error) {
	return s.run(ctx, rigPath, snapPath, outPath, archive.TriggerOverwrite)
}

func (s *Service) run(ctx context.Context, rigPath, snapPath, outPath string, trigger archive.Trigger) (*Result, error) {
	mode := string(trigger)
	if outPath == "" {
		outPath = rigPath
	}

	unlock, err := s.lockRig(ctx, rigPath, mode)
	if err != nil {
		return nil, err
	}
	defer unlock()

	doc, err := dna.Load(rigPath)
	if err != nil {
		return nil, wrapLoadError(mode, "load document", err)
	}
	snap, err := snapshot.Load(snapPath)
	if err != nil {
		return nil, wrapLoadError(mode, "load capture", err)
	}

	rig := doc.Meta().Name
	logger, logPath, closeLog := s.operationLogger(ctx, rig, mode)
	defer closeLog()

	logger.Info("run started",
		logging.String("source", rigPath),
		logging.String("capture", snapPath),
		logging.String("output", outPath),
	)

	var (
		derived *dna.Document
		report  *Report
	)
	switch trigger {
	case archive.TriggerCalibrate:
		derived, err = Calibrate(doc, snap)
	default:
		derived, report, err = Overwrite(ctx, doc, snap, s.cfg.UVTolerance())
	}
	if err != nil {
		logger.Error("derivation failed", logging.Error(err))
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return nil, err
		}
		return nil, services.Wrap(services.ErrValidation, componentName, mode, "derive document", err)
	}

	res := &Result{OutputPath: outPath, Report: report, LogPath: logPath}
	if s.store != nil && s.cfg.Archive.Enabled {
		entry, archiveErr := s.store.Add(ctx, rig, rigPath, trigger, len(doc.Meta().LowConfidence))
		if archiveErr != nil {
			logger.Error("archive failed", logging.Error(archiveErr))
			return nil, fmt.Errorf("archive revision: %w", archiveErr)
		}
		res.Entry = entry
		if pruned, pruneErr := s.store.Prune(ctx, 0); pruneErr != nil {
			logger.Warn("archive prune failed", logging.Error(pruneErr))
		} else if pruned > 0 {
			logger.Debug("archive pruned", logging.Int64("entries", pruned))
		}
	}

	if err := dna.Save(outPath, derived); err != nil {
		logger.Error("write failed", logging.Error(err))
		return nil, services.Wrap(services.ErrTransient, componentName, mode, "write output", err)
	}

	if report != nil && len(report.LowConfidence) > 0 {
		logger.Warn("low-confidence vertices flagged",
			logging.Int("vertices", len(report.LowConfidence)),
			logging.String("output", outPath),
		)
	}
	logger.Info("run complete",
		logging.String("output", outPath),
		logging.Int("joints", derived.JointCount()),
		logging.Int("lods", derived.MeshCount()),
	)
	return res, nil
}

// lockRig serializes edits per rig file through a sidecar flock. The lock
// file persists after release, which is how flock semantics want it.
func (s *Service) lockRig(ctx context.Context, rigPath, mode string) (func(), error) {
	lock := flock.New(rigPath + ".lock")
	lockCtx, cancel := context.WithTimeout(ctx, s.cfg.ArchiveLockTimeout())
	defer cancel()

	ok, err := lock.TryLockContext(lockCtx, lockRetryDelay)
	switch {
	case ok:
		return func() { _ = lock.Unlock() }, nil
	case errors.Is(err, context.Canceled):
		return nil, err
	case err == nil || errors.Is(err, context.DeadlineExceeded):
		return nil, services.Wrap(services.ErrLocked, componentName, mode,
			fmt.Sprintf("rig file %s is being edited by another process", rigPath), nil)
	default:
		return nil, services.Wrap(services.ErrTransient, componentName, mode, "acquire rig lock", err)
	}
}

// operationLogger tees the service logger into a dedicated log file for
// this run, with the rig and operation stamped on every record.
func (s *Service) operationLogger(ctx context.Context, rig, mode string) (*slog.Logger, string, func()) {
	ctx = services.WithRig(ctx, rig)
	ctx = services.WithOperation(ctx, mode)

	base := logging.WithContext(ctx, logging.NewComponentLogger(s.logger, componentName))
	if s.logDir == "" {
		return base, "", func() {}
	}

	name := fmt.Sprintf("%s-%s-%s.log", time.Now().UTC().Format("20060102T150405"), rigSlug(rig), mode)
	path := filepath.Join(s.logDir, name)
	fileLogger, closer, err := logging.NewFileLogger(path, s.cfg.Logging.Level, "json")
	if err != nil {
		base.Warn("operation log unavailable", logging.Error(err))
		return base, "", func() {}
	}
	teed := logging.TeeLogger(logging.NewComponentLogger(s.logger, componentName), fileLogger.Handler())
	return logging.WithContext(ctx, teed), path, func() { _ = closer.Close() }
}

func wrapLoadError(mode, message string, err error) error {
	marker := services.ErrValidation
	if errors.Is(err, fs.ErrNotExist) {
		marker = services.ErrNotFound
	}
	return services.Wrap(marker, componentName, mode, message, err)
}

func rigSlug(value string) string {
	value = strings.TrimSpace(value)
	var builder strings.Builder
	builder.Grow(len(value))
	lastDash := false
	for _, r := range value {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			builder.WriteRune(r)
			lastDash = false
		case r >= 'A' && r <= 'Z':
			builder.WriteRune(unicode.ToLower(r))
			lastDash = false
		default:
			if !lastDash {
				builder.WriteByte('-')
				lastDash = true
			}
		}
	}
	slug := strings.Trim(builder.String(), "-")
	if slug == "" {
		return "rig"
	}
	return slug
}
