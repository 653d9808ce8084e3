// Package backup creates, lists and restores plain SQL dumps of the database
// using the PostgreSQL client binaries.
package backup

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"regexp"
	"sort"
	"strconv"
	"strings"
	"time"

	"storekeep/internal/apierror"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog/log"
	"gorm.io/gorm"
)

// ErrBinaryNotFound is wrapped in a ToolError when pg_dump or psql cannot be located.
var ErrBinaryNotFound = errors.New("binary not found in search path or $PATH")

const maxNameAttempts = 1000

var fileNamePattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9_.-]*\.sql$`)

// Info describes one backup file.
type Info struct {
	Filename  string
	SizeBytes int64
	CreatedAt time.Time
}

// Tool is the backup collaborator used by the admin surface and the workers.
type Tool interface {
	CreateBackup(ctx context.Context) (string, error)
	// ListBackups returns backups newest first.
	ListBackups() ([]Info, error)
	RestoreBackup(ctx context.Context, filename string) error
	DeleteBackup(filename string) error
	BackupSize(filename string) (int64, error)
}

// PgTool runs pg_dump / psql against the database named by a connection URL.
type PgTool struct {
	dir      string
	dsn      string
	binPaths []string
	db       *gorm.DB
	now      func() time.Time
}

// NewPgTool returns a Tool writing into dir. binPaths are searched before $PATH.
// db, when set, is used to terminate other sessions before a restore.
func NewPgTool(dir, dsn string, binPaths []string, db *gorm.DB) *PgTool {
	return &PgTool{dir: dir, dsn: dsn, binPaths: binPaths, db: db, now: time.Now}
}

func (t *PgTool) Dir() string { return t.dir }

// FileName returns the backup name for instant at, to the millisecond.
func FileName(at time.Time) string {
	return fmt.Sprintf("backup_%s_%03d.sql", at.Format("20060102_150405"), at.Nanosecond()/int(time.Millisecond))
}

// ValidateFilename rejects names that are not plain .sql files inside the backup directory.
func ValidateFilename(name string) error {
	if name == "" || filepath.Base(name) != name || strings.Contains(name, "..") || !fileNamePattern.MatchString(name) {
		return apierror.Validation("invalid backup file name")
	}
	return nil
}

func (t *PgTool) CreateBackup(ctx context.Context) (string, error) {
	conn, err := pgconn.ParseConfig(t.dsn)
	if err != nil {
		return "", fmt.Errorf("parse database url: %w", err)
	}
	bin, err := t.findBinary("pg_dump")
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(t.dir, 0o755); err != nil {
		return "", fmt.Errorf("create backup dir: %w", err)
	}

	name, err := t.reserve(t.now())
	if err != nil {
		return "", err
	}
	path := filepath.Join(t.dir, name)
	args := append(connArgs(conn), "-f", path, "-w")
	if err := run(ctx, "pg_dump", bin, args, conn.Password); err != nil {
		_ = os.Remove(path)
		return "", err
	}
	log.Info().Str("file", name).Msg("backup created")
	return name, nil
}

// reserve creates an empty file under a backup name nobody holds yet, stepping
// forward a millisecond at a time while names are taken.
func (t *PgTool) reserve(at time.Time) (string, error) {
	for i := 0; i < maxNameAttempts; i++ {
		name := FileName(at.Add(time.Duration(i) * time.Millisecond))
		f, err := os.OpenFile(filepath.Join(t.dir, name), os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o644)
		if err == nil {
			return name, f.Close()
		}
		if !errors.Is(err, os.ErrExist) {
			return "", fmt.Errorf("create backup file: %w", err)
		}
	}
	return "", errors.New("create backup file: no free name")
}

func (t *PgTool) ListBackups() ([]Info, error) {
	entries, err := os.ReadDir(t.dir)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return []Info{}, nil
		}
		return nil, fmt.Errorf("read backup dir: %w", err)
	}
	out := make([]Info, 0, len(entries))
	for _, e := range entries {
		if !e.Type().IsRegular() || filepath.Ext(e.Name()) != ".sql" {
			continue
		}
		fi, err := e.Info()
		if err != nil {
			continue
		}
		out = append(out, Info{Filename: e.Name(), SizeBytes: fi.Size(), CreatedAt: fi.ModTime().UTC()})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Filename > out[j].Filename })
	return out, nil
}

func (t *PgTool) RestoreBackup(ctx context.Context, filename string) error {
	path, err := t.existing(filename)
	if err != nil {
		return err
	}
	conn, err := pgconn.ParseConfig(t.dsn)
	if err != nil {
		return fmt.Errorf("parse database url: %w", err)
	}
	bin, err := t.findBinary("psql")
	if err != nil {
		return err
	}

	if t.db != nil && t.db.Dialector.Name() == "postgres" {
		err := t.db.WithContext(ctx).Exec(
			"SELECT pg_terminate_backend(pid) FROM pg_stat_activity WHERE datname = ? AND pid <> pg_backend_pid()",
			conn.Database,
		).Error
		if err != nil {
			return fmt.Errorf("terminate sessions: %w", err)
		}
	}

	args := append(connArgs(conn), "-f", path, "-w")
	if err := run(ctx, "psql", bin, args, conn.Password); err != nil {
		return err
	}
	log.Info().Str("file", filename).Msg("backup restored")
	return nil
}

func (t *PgTool) DeleteBackup(filename string) error {
	path, err := t.existing(filename)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil {
		return fmt.Errorf("delete backup: %w", err)
	}
	return nil
}

// BackupSize returns 0 for files that do not exist.
func (t *PgTool) BackupSize(filename string) (int64, error) {
	if err := ValidateFilename(filename); err != nil {
		return 0, err
	}
	fi, err := os.Stat(filepath.Join(t.dir, filename))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return 0, nil
		}
		return 0, err
	}
	return fi.Size(), nil
}

func (t *PgTool) existing(filename string) (string, error) {
	if err := ValidateFilename(filename); err != nil {
		return "", err
	}
	path := filepath.Join(t.dir, filename)
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return "", apierror.NotFound("backup")
		}
		return "", err
	}
	return path, nil
}

// findBinary looks in the configured directories first, then $PATH.
func (t *PgTool) findBinary(name string) (string, error) {
	for _, dir := range t.binPaths {
		candidate := filepath.Join(dir, name)
		if fi, err := os.Stat(candidate); err == nil && fi.Mode().IsRegular() && fi.Mode()&0o111 != 0 {
			return candidate, nil
		}
	}
	if p, err := exec.LookPath(name); err == nil {
		return p, nil
	}
	return "", &apierror.ToolError{Tool: name, ExitCode: -1, Err: ErrBinaryNotFound}
}

func connArgs(c *pgconn.Config) []string {
	return []string{
		"-h", c.Host,
		"-p", strconv.Itoa(int(c.Port)),
		"-U", c.User,
		"-d", c.Database,
	}
}

func run(ctx context.Context, tool, bin string, args []string, password string) error {
	cmd := exec.CommandContext(ctx, bin, args...)
	cmd.Env = append(os.Environ(), "PGPASSWORD="+password)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			return &apierror.ToolError{
				Tool:     tool,
				ExitCode: exitErr.ExitCode(),
				Stderr:   strings.TrimSpace(stderr.String()),
				Err:      err,
			}
		}
		return &apierror.ToolError{Tool: tool, ExitCode: -1, Err: err}
	}
	return nil
}
