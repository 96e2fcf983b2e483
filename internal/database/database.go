package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/mattn/go-sqlite3"

	"rgit-go/internal/model"
	"rgit-go/internal/rgit"
)

type dialect int

const (
	dialectSQLite dialect = iota
	dialectPostgres
)

// DBTX is the subset of database/sql shared by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// SQLDatabase implements rgit.Database over database/sql. Queries are written
// with ? placeholders and rebound for PostgreSQL.
type SQLDatabase struct {
	db      *sql.DB
	dialect dialect
	path    string
}

var _ rgit.Database = (*SQLDatabase)(nil)

// DB exposes the underlying connection pool.
func (s *SQLDatabase) DB() *sql.DB {
	return s.db
}

func (s *SQLDatabase) Close() error {
	return s.db.Close()
}

// rebind rewrites ? placeholders to $1, $2, ... for PostgreSQL.
func (s *SQLDatabase) rebind(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteString("$" + strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

func (s *SQLDatabase) exec(ctx context.Context, q DBTX, query string, args ...any) (sql.Result, error) {
	return q.ExecContext(ctx, s.rebind(query), args...)
}

func (s *SQLDatabase) query(ctx context.Context, q DBTX, query string, args ...any) (*sql.Rows, error) {
	return q.QueryContext(ctx, s.rebind(query), args...)
}

func (s *SQLDatabase) queryRow(ctx context.Context, q DBTX, query string, args ...any) *sql.Row {
	return q.QueryRowContext(ctx, s.rebind(query), args...)
}

// withTx runs fn in a transaction, committing on success and rolling back on
// error or panic.
func (s *SQLDatabase) withTx(ctx context.Context, fn func(tx DBTX) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("starting transaction: %w", err)
	}
	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		err = tx.Commit()
	}()
	return fn(tx)
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

// Resume operations

func (s *SQLDatabase) CreateResume(ctx context.Context, resume *model.Resume, main *model.Branch) error {
	return s.withTx(ctx, func(tx DBTX) error {
		if _, err := s.exec(ctx, tx,
			`INSERT INTO resumes (id, owner_id, title, created_at, updated_at) VALUES (?, ?, ?, ?, ?)`,
			resume.ID, resume.OwnerID, resume.Title, resume.CreatedAt, resume.UpdatedAt); err != nil {
			return fmt.Errorf("inserting resume: %w", err)
		}
		if err := s.insertBranch(ctx, tx, main); err != nil {
			return fmt.Errorf("inserting main branch: %w", err)
		}
		return nil
	})
}

const resumeColumns = `id, owner_id, title, created_at, updated_at`

func scanResume(row interface{ Scan(...any) error }) (*model.Resume, error) {
	var r model.Resume
	if err := row.Scan(&r.ID, &r.OwnerID, &r.Title, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return nil, err
	}
	return &r, nil
}

func (s *SQLDatabase) GetResume(ctx context.Context, id string) (*model.Resume, error) {
	r, err := scanResume(s.queryRow(ctx, s.db, `SELECT `+resumeColumns+` FROM resumes WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding resume: %w", err)
	}
	return r, nil
}

func (s *SQLDatabase) ListResumes(ctx context.Context, ownerID string) ([]*model.Resume, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+resumeColumns+` FROM resumes WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("listing resumes: %w", err)
	}
	defer rows.Close()

	var out []*model.Resume
	for rows.Next() {
		r, err := scanResume(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning resume: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func (s *SQLDatabase) DeleteResume(ctx context.Context, id string) error {
	return s.withTx(ctx, func(tx DBTX) error {
		for _, q := range []string{
			`DELETE FROM working_blocks WHERE resume_id = ?`,
			`DELETE FROM workspaces WHERE resume_id = ?`,
			`DELETE FROM branches WHERE resume_id = ?`,
			`DELETE FROM commits WHERE resume_id = ?`,
			`DELETE FROM resumes WHERE id = ?`,
		} {
			if _, err := s.exec(ctx, tx, q, id); err != nil {
				return fmt.Errorf("deleting resume %s: %w", id, err)
			}
		}
		return nil
	})
}

// Branch operations

const branchColumns = `id, resume_id, name, description, parent_branch_id, fork_commit_id, tip_commit_id, is_main, created_at`

func (s *SQLDatabase) insertBranch(ctx context.Context, q DBTX, b *model.Branch) error {
	_, err := s.exec(ctx, q,
		`INSERT INTO branches (`+branchColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		b.ID, b.ResumeID, b.Name, b.Description, nullString(b.ParentBranchID),
		nullString(b.ForkCommitID), nullString(b.TipCommitID), b.IsMain, b.CreatedAt)
	return err
}

func scanBranch(row interface{ Scan(...any) error }) (*model.Branch, error) {
	var (
		b                    model.Branch
		parent, fork, tipCol sql.NullString
	)
	if err := row.Scan(&b.ID, &b.ResumeID, &b.Name, &b.Description, &parent, &fork, &tipCol, &b.IsMain, &b.CreatedAt); err != nil {
		return nil, err
	}
	b.ParentBranchID = parent.String
	b.ForkCommitID = fork.String
	b.TipCommitID = tipCol.String
	return &b, nil
}

// CreateBranch inserts the branch. A unique violation means another writer
// created a branch with the same name first.
func (s *SQLDatabase) CreateBranch(ctx context.Context, branch *model.Branch) error {
	if err := s.insertBranch(ctx, s.db, branch); err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", model.ErrDuplicateName, branch.Name)
		}
		return fmt.Errorf("inserting branch: %w", err)
	}
	return nil
}

func (s *SQLDatabase) getBranchWhere(ctx context.Context, where string, args ...any) (*model.Branch, error) {
	b, err := scanBranch(s.queryRow(ctx, s.db, `SELECT `+branchColumns+` FROM branches WHERE `+where, args...))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding branch: %w", err)
	}
	return b, nil
}

func (s *SQLDatabase) GetBranch(ctx context.Context, resumeID, name string) (*model.Branch, error) {
	return s.getBranchWhere(ctx, `resume_id = ? AND name = ?`, resumeID, name)
}

func (s *SQLDatabase) GetMainBranch(ctx context.Context, resumeID string) (*model.Branch, error) {
	return s.getBranchWhere(ctx, `resume_id = ? AND is_main = ?`, resumeID, true)
}

func (s *SQLDatabase) ListBranches(ctx context.Context, resumeID string) ([]*model.Branch, error) {
	rows, err := s.query(ctx, s.db,
		`SELECT `+branchColumns+` FROM branches WHERE resume_id = ? ORDER BY is_main DESC, name`, resumeID)
	if err != nil {
		return nil, fmt.Errorf("listing branches: %w", err)
	}
	defer rows.Close()

	var out []*model.Branch
	for rows.Next() {
		b, err := scanBranch(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning branch: %w", err)
		}
		out = append(out, b)
	}
	return out, rows.Err()
}

func (s *SQLDatabase) DeleteBranch(ctx context.Context, branchID string, moveTo *model.Workspace) error {
	return s.withTx(ctx, func(tx DBTX) error {
		if _, err := s.exec(ctx, tx, `DELETE FROM branches WHERE id = ?`, branchID); err != nil {
			return fmt.Errorf("deleting branch: %w", err)
		}
		if moveTo == nil {
			return nil
		}
		return s.upsertWorkspace(ctx, tx, moveTo)
	})
}

// Commit operations

const commitColumns = `id, resume_id, branch_name, parent_id, snapshot_hash, message, author_id, hash, depth, created_at`

func scanCommit(row interface{ Scan(...any) error }) (*model.Commit, error) {
	var (
		c      model.Commit
		parent sql.NullString
	)
	if err := row.Scan(&c.ID, &c.ResumeID, &c.BranchName, &parent, &c.SnapshotHash, &c.Message,
		&c.AuthorID, &c.Hash, &c.Depth, &c.CreatedAt); err != nil {
		return nil, err
	}
	c.ParentID = parent.String
	return &c, nil
}

// CreateCommit inserts the commit and swaps the branch tip from expectedTip
// to the new commit. Zero rows affected by the swap means another commit won
// the race; the transaction is rolled back.
func (s *SQLDatabase) CreateCommit(ctx context.Context, c *model.Commit, branchID, expectedTip string) error {
	return s.withTx(ctx, func(tx DBTX) error {
		if _, err := s.exec(ctx, tx,
			`INSERT INTO commits (`+commitColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
			c.ID, c.ResumeID, c.BranchName, nullString(c.ParentID), c.SnapshotHash, c.Message,
			c.AuthorID, c.Hash, c.Depth, c.CreatedAt); err != nil {
			return fmt.Errorf("inserting commit: %w", err)
		}

		res, err := s.exec(ctx, tx,
			`UPDATE branches SET tip_commit_id = ? WHERE id = ? AND COALESCE(tip_commit_id, '') = ?`,
			c.ID, branchID, expectedTip)
		if err != nil {
			return fmt.Errorf("advancing branch tip: %w", err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("rows affected: %w", err)
		}
		switch n {
		case 1:
			return nil
		case 0:
			return model.ErrConcurrentModification
		default:
			return fmt.Errorf("unexpected rows affected: %d", n)
		}
	})
}

func (s *SQLDatabase) GetCommit(ctx context.Context, id string) (*model.Commit, error) {
	c, err := scanCommit(s.queryRow(ctx, s.db, `SELECT `+commitColumns+` FROM commits WHERE id = ?`, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding commit: %w", err)
	}
	return c, nil
}

func (s *SQLDatabase) FindCommitsByHashPrefix(ctx context.Context, resumeID, prefix string) ([]*model.Commit, error) {
	// Hashes are lowercase hex; anything else cannot match and could carry
	// LIKE wildcards.
	prefix = strings.ToLower(prefix)
	if strings.Trim(prefix, "0123456789abcdef") != "" {
		return nil, nil
	}
	rows, err := s.query(ctx, s.db,
		`SELECT `+commitColumns+` FROM commits WHERE resume_id = ? AND hash LIKE ? ORDER BY depth DESC`,
		resumeID, prefix+"%")
	if err != nil {
		return nil, fmt.Errorf("finding commits by hash: %w", err)
	}
	defer rows.Close()

	var out []*model.Commit
	for rows.Next() {
		c, err := scanCommit(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning commit: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// Snapshot operations

func (s *SQLDatabase) CreateSnapshotRecord(ctx context.Context, r *model.SnapshotRecord) error {
	if _, err := s.exec(ctx, s.db,
		`INSERT INTO snapshots (hash, block_count, size, encrypted, created_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (hash) DO NOTHING`,
		r.Hash, r.BlockCount, r.Size, r.Encrypted, r.CreatedAt); err != nil {
		return fmt.Errorf("inserting snapshot: %w", err)
	}
	return nil
}

func (s *SQLDatabase) GetSnapshotRecord(ctx context.Context, hash string) (*model.SnapshotRecord, error) {
	var r model.SnapshotRecord
	err := s.queryRow(ctx, s.db,
		`SELECT hash, block_count, size, encrypted, created_at FROM snapshots WHERE hash = ?`, hash).
		Scan(&r.Hash, &r.BlockCount, &r.Size, &r.Encrypted, &r.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("finding snapshot: %w", err)
	}
	return &r, nil
}

// Workspace operations

func (s *SQLDatabase) GetWorkspace(ctx context.Context, resumeID string) (*model.Workspace, []model.Block, error) {
	var (
		ws   model.Workspace
		base sql.NullString
	)
	err := s.queryRow(ctx, s.db,
		`SELECT resume_id, branch_name, base_commit_id, dirty, updated_at FROM workspaces WHERE resume_id = ?`, resumeID).
		Scan(&ws.ResumeID, &ws.BranchName, &base, &ws.Dirty, &ws.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, nil
		}
		return nil, nil, fmt.Errorf("finding workspace: %w", err)
	}
	ws.BaseCommitID = base.String

	rows, err := s.query(ctx, s.db,
		`SELECT id, parent_id, type, order_index, layout, content FROM working_blocks
		 WHERE resume_id = ? ORDER BY id`, resumeID)
	if err != nil {
		return nil, nil, fmt.Errorf("listing working blocks: %w", err)
	}
	defer rows.Close()

	var blocks []model.Block
	for rows.Next() {
		var (
			b               model.Block
			parent          sql.NullString
			typ             string
			layout, content string
		)
		if err := rows.Scan(&b.ID, &parent, &typ, &b.OrderIndex, &layout, &content); err != nil {
			return nil, nil, fmt.Errorf("scanning working block: %w", err)
		}
		b.ParentID = parent.String
		b.Type = model.BlockType(typ)
		if err := json.Unmarshal([]byte(layout), &b.Layout); err != nil {
			return nil, nil, fmt.Errorf("decoding layout of block %s: %w", b.ID, err)
		}
		if err := json.Unmarshal([]byte(content), &b.Content); err != nil {
			return nil, nil, fmt.Errorf("decoding content of block %s: %w", b.ID, err)
		}
		blocks = append(blocks, b)
	}
	if err := rows.Err(); err != nil {
		return nil, nil, err
	}
	return &ws, blocks, nil
}

func (s *SQLDatabase) upsertWorkspace(ctx context.Context, q DBTX, ws *model.Workspace) error {
	if _, err := s.exec(ctx, q,
		`INSERT INTO workspaces (resume_id, branch_name, base_commit_id, dirty, updated_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT (resume_id) DO UPDATE SET
			branch_name = excluded.branch_name,
			base_commit_id = excluded.base_commit_id,
			dirty = excluded.dirty,
			updated_at = excluded.updated_at`,
		ws.ResumeID, ws.BranchName, nullString(ws.BaseCommitID), ws.Dirty, ws.UpdatedAt); err != nil {
		return fmt.Errorf("saving workspace: %w", err)
	}
	return nil
}

func (s *SQLDatabase) SaveWorkspace(ctx context.Context, ws *model.Workspace, blocks []model.Block) error {
	return s.withTx(ctx, func(tx DBTX) error {
		if err := s.upsertWorkspace(ctx, tx, ws); err != nil {
			return err
		}

		if _, err := s.exec(ctx, tx, `DELETE FROM working_blocks WHERE resume_id = ?`, ws.ResumeID); err != nil {
			return fmt.Errorf("clearing working blocks: %w", err)
		}
		for _, b := range blocks {
			layout, err := json.Marshal(b.Layout)
			if err != nil {
				return fmt.Errorf("encoding layout of block %s: %w", b.ID, err)
			}
			content, err := json.Marshal(b.Content)
			if err != nil {
				return fmt.Errorf("encoding content of block %s: %w", b.ID, err)
			}
			if _, err := s.exec(ctx, tx,
				`INSERT INTO working_blocks (resume_id, id, parent_id, type, order_index, layout, content)
				 VALUES (?, ?, ?, ?, ?, ?, ?)`,
				ws.ResumeID, b.ID, nullString(b.ParentID), string(b.Type), b.OrderIndex, string(layout), string(content)); err != nil {
				return fmt.Errorf("inserting working block %s: %w", b.ID, err)
			}
		}
		return nil
	})
}

// Operation log

func (s *SQLDatabase) CreateOperation(ctx context.Context, operation, parameters string) (*model.Operation, error) {
	op := &model.Operation{
		Operation:  operation,
		Parameters: parameters,
		Status:     "running",
		StartedAt:  time.Now().UTC(),
	}
	err := s.queryRow(ctx, s.db,
		`INSERT INTO operations (operation, parameters, status, started_at) VALUES (?, ?, ?, ?) RETURNING id`,
		op.Operation, op.Parameters, op.Status, op.StartedAt).Scan(&op.ID)
	if err != nil {
		return nil, fmt.Errorf("inserting operation: %w", err)
	}
	return op, nil
}

func (s *SQLDatabase) FinishOperation(ctx context.Context, id int64, status string) error {
	if _, err := s.exec(ctx, s.db,
		`UPDATE operations SET status = ?, finished_at = ? WHERE id = ?`,
		status, time.Now().UTC(), id); err != nil {
		return fmt.Errorf("finishing operation: %w", err)
	}
	return nil
}

func (s *SQLDatabase) ListOperations(ctx context.Context, limit int) ([]*model.Operation, error) {
	if limit <= 0 {
		limit = math.MaxInt32
	}
	rows, err := s.query(ctx, s.db,
		`SELECT id, operation, parameters, status, started_at, finished_at FROM operations ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing operations: %w", err)
	}
	defer rows.Close()

	var out []*model.Operation
	for rows.Next() {
		var (
			op       model.Operation
			finished sql.NullTime
		)
		if err := rows.Scan(&op.ID, &op.Operation, &op.Parameters, &op.Status, &op.StartedAt, &finished); err != nil {
			return nil, fmt.Errorf("scanning operation: %w", err)
		}
		if finished.Valid {
			t := finished.Time
			op.FinishedAt = &t
		}
		out = append(out, &op)
	}
	return out, rows.Err()
}

// isUniqueViolation reports whether err is a unique constraint failure from
// either driver.
func isUniqueViolation(err error) bool {
	var sqliteErr sqlite3.Error
	if errors.As(err, &sqliteErr) {
		return sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique ||
			sqliteErr.ExtendedCode == sqlite3.ErrConstraintPrimaryKey
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
