package gallery

import (
	"bufio"
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	stderrors "errors"
	"fmt"
	"io"

	"github.com/hpungsan/frag/internal/collab"
	"github.com/hpungsan/frag/internal/errors"
)

// BackupSchemaVersion is written to the header line of every backup.
const BackupSchemaVersion = "1.0"

// RestoreMode controls what happens when a backed-up id already exists.
type RestoreMode string

const (
	RestoreModeError   RestoreMode = "error"   // fail on collision (atomic)
	RestoreModeReplace RestoreMode = "replace" // overwrite on collision
	RestoreModeRename  RestoreMode = "rename"  // new id on collision
)

// BackupRecord is one line of a JSONL backup. The first line is a header
// with only the underscore field, schema version and export time set.
// Data is Base64 in JSON.
type BackupRecord struct {
	FragBackup    bool   `json:"_frag_backup,omitempty"`
	SchemaVersion string `json:"schema_version,omitempty"`
	ExportedAt    int64  `json:"exported_at,omitempty"`

	ID        string `json:"id,omitempty"`
	MimeType  string `json:"mime_type,omitempty"`
	ByteSize  int    `json:"byte_size,omitempty"` // IGNORED on restore, recomputed
	Digest    string `json:"digest,omitempty"`
	Data      []byte `json:"data,omitempty"`
	CreatedAt int64  `json:"created_at,omitempty"`
	DeletedAt *int64 `json:"deleted_at,omitempty"`
}

// RestoreResult summarizes a restore.
type RestoreResult struct {
	Imported int            `json:"imported"`
	Skipped  int            `json:"skipped"`
	Errors   []RestoreError `json:"errors"`
}

// RestoreError describes one line that was not restored.
type RestoreError struct {
	Line    int    `json:"line"`
	ID      string `json:"id,omitempty"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// AssetToBackupRecord converts an asset for backup.
func AssetToBackupRecord(a *Asset) *BackupRecord {
	return &BackupRecord{
		ID:        a.ID,
		MimeType:  a.MimeType,
		ByteSize:  a.ByteSize,
		Digest:    a.Digest,
		Data:      a.Data,
		CreatedAt: a.CreatedAt,
		DeletedAt: a.DeletedAt,
	}
}

// ToAsset converts a record back, recomputing size and dimensions. A digest
// that does not match the data is an integrity error.
func (r *BackupRecord) ToAsset() (*Asset, error) {
	data := r.Data
	if data == nil {
		data = []byte{}
	}
	got := DigestBytes(data)
	if r.Digest != "" && r.Digest != got {
		return nil, errors.NewIntegrityMismatch(r.Digest, got)
	}

	a := &Asset{
		ID:        r.ID,
		MimeType:  r.MimeType,
		ByteSize:  len(data),
		Digest:    got,
		Data:      data,
		CreatedAt: r.CreatedAt,
		DeletedAt: r.DeletedAt,
	}
	if w, h, ok := collab.ImageSize(data); ok {
		a.Width, a.Height = w, h
	}
	return a, nil
}

// Backup writes a header line followed by one line per asset, oldest first.
// It returns the number of assets written.
func (s *Store) Backup(ctx context.Context, w io.Writer, includeDeleted bool) (int, error) {
	enc := json.NewEncoder(w)
	header := BackupRecord{FragBackup: true, SchemaVersion: BackupSchemaVersion, ExportedAt: s.clock().Unix()}
	if err := enc.Encode(header); err != nil {
		return 0, errors.WrapIO("write backup", err)
	}

	rows, err := StreamForBackup(ctx, s.DB, includeDeleted)
	if err != nil {
		return 0, err
	}
	defer rows.Close()

	count := 0
	for rows.Next() {
		select {
		case <-ctx.Done():
			return count, errors.NewCancelled("backup")
		default:
		}

		a, err := scanAsset(rows)
		if err != nil {
			return count, errors.NewInternal(err)
		}
		if err := enc.Encode(AssetToBackupRecord(a)); err != nil {
			return count, errors.WrapIO("write backup", err)
		}
		count++
	}
	if err := rows.Err(); err != nil {
		return count, errors.NewInternal(err)
	}
	return count, nil
}

// Restore reads a backup written by Backup. In error mode nothing is
// written unless every line parses and no id collides.
func (s *Store) Restore(ctx context.Context, r io.Reader, mode RestoreMode) (*RestoreResult, error) {
	if mode == "" {
		mode = RestoreModeError
	}
	if mode != RestoreModeError && mode != RestoreModeReplace && mode != RestoreModeRename {
		return nil, errors.NewInvalidArgument("mode must be one of: error, replace, rename")
	}

	records, lines, parseErrors := parseBackup(r)
	result := &RestoreResult{Errors: []RestoreError{}}

	if mode == RestoreModeError {
		if len(parseErrors) > 0 {
			result.Errors = parseErrors
			return result, nil
		}
		return s.restoreAtomic(ctx, records, lines)
	}

	result.Errors = append(result.Errors, parseErrors...)
	result.Skipped = len(parseErrors)

	for i, a := range records {
		exists, err := Exists(ctx, s.DB, a.ID)
		if err != nil {
			return nil, err
		}
		replace := false
		if exists {
			if mode == RestoreModeReplace {
				replace = true
			} else if a.ID, err = NewID(); err != nil {
				return nil, errors.NewInternal(err)
			}
		}

		if err := insertAsset(ctx, s.DB, a, replace); err != nil {
			result.Errors = append(result.Errors, RestoreError{
				Line: lines[i], ID: a.ID, Code: "INSERT_FAILED", Message: err.Error(),
			})
			result.Skipped++
			continue
		}
		result.Imported++
	}
	return result, nil
}

func (s *Store) restoreAtomic(ctx context.Context, records []*Asset, lines []int) (*RestoreResult, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, errors.NewInternal(err)
	}
	defer tx.Rollback() //nolint:errcheck

	for i, a := range records {
		var one int
		err := tx.QueryRowContext(ctx, `SELECT 1 FROM assets WHERE id = ?`, a.ID).Scan(&one)
		if err == nil {
			return &RestoreResult{Errors: []RestoreError{{
				Line: lines[i], ID: a.ID, Code: "ID_COLLISION",
				Message: fmt.Sprintf("asset with id %q already exists", a.ID),
			}}}, nil
		}
		if !stderrors.Is(err, sql.ErrNoRows) {
			return nil, errors.NewInternal(err)
		}
		if err := insertAsset(ctx, tx, a, false); err != nil {
			return nil, err
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, errors.NewInternal(err)
	}
	return &RestoreResult{Imported: len(records), Errors: []RestoreError{}}, nil
}

// parseBackup reads every line, skipping the header. Lines are read whole
// since an image line can be far longer than a scanner token.
func parseBackup(r io.Reader) ([]*Asset, []int, []RestoreError) {
	var (
		assets  []*Asset
		lines   []int
		errs    []RestoreError
		lineNum int
	)

	br := bufio.NewReader(r)
	for {
		line, readErr := br.ReadBytes('\n')
		if len(line) > 0 {
			lineNum++
			a, rErr := parseBackupLine(line)
			switch {
			case rErr != nil:
				rErr.Line = lineNum
				errs = append(errs, *rErr)
			case a != nil:
				assets = append(assets, a)
				lines = append(lines, lineNum)
			}
		}
		if readErr == io.EOF {
			break
		}
		if readErr != nil {
			errs = append(errs, RestoreError{
				Line: lineNum, Code: "READ_ERROR", Message: fmt.Sprintf("failed to read backup: %v", readErr),
			})
			break
		}
	}
	return assets, lines, errs
}

// parseBackupLine returns nil, nil for the header and blank lines.
func parseBackupLine(line []byte) (*Asset, *RestoreError) {
	if len(bytes.TrimSpace(line)) == 0 {
		return nil, nil
	}

	var rec BackupRecord
	if err := json.Unmarshal(line, &rec); err != nil {
		return nil, &RestoreError{Code: "PARSE_ERROR", Message: fmt.Sprintf("invalid JSON: %v", err)}
	}
	if rec.FragBackup {
		return nil, nil
	}
	if rec.ID == "" {
		return nil, &RestoreError{Code: "INVALID_RECORD", Message: "missing id field"}
	}

	a, err := rec.ToAsset()
	if err != nil {
		fErr, _ := errors.As(err)
		return nil, &RestoreError{ID: rec.ID, Code: string(fErr.Code), Message: fErr.Message}
	}
	return a, nil
}
