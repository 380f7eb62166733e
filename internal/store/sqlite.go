package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"slicemeow/internal/auth"
	"slicemeow/internal/catalog"
	"slicemeow/pkg/database"
	"slicemeow/pkg/models"
)

// SQLite keeps catalog documents as JSON rows in one table.
type SQLite struct {
	DB  *sql.DB
	now func() time.Time
}

func NewSQLite(db *sql.DB) *SQLite {
	return &SQLite{DB: db, now: func() time.Time { return time.Now().UTC() }}
}

// OpenSQLite opens the database file and applies the schema.
func OpenSQLite(path string) (*SQLite, error) {
	db, err := database.Open(database.Config{Path: path})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return NewSQLite(db), nil
}

func (s *SQLite) Ping(ctx context.Context) error {
	return s.DB.PingContext(ctx)
}

func (s *SQLite) Close() error {
	return s.DB.Close()
}

func (s *SQLite) Create(ctx context.Context, coll models.Collection, rec models.CatalogRecord) (*models.CatalogRecord, error) {
	now := s.now()
	rec.ID = uuid.NewString()
	rec.CreatedAt = now
	rec.UpdatedAt = now
	rec.EnsureSlices()

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, catalog.WrapStoreError("encode record", err)
	}

	_, err = s.DB.ExecContext(ctx, `
		INSERT INTO documents (collection, id, title, body, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, string(coll), rec.ID, rec.Title, string(body), now.UnixNano(), now.UnixNano())
	if err != nil {
		return nil, catalog.WrapStoreError("insert record", err)
	}
	return &rec, nil
}

func (s *SQLite) Get(ctx context.Context, coll models.Collection, id string) (*models.CatalogRecord, error) {
	rec, err := getDocument(ctx, s.DB, coll, id)
	if err != nil {
		return nil, catalog.WrapStoreError("get record", err)
	}
	return rec, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func getDocument(ctx context.Context, q queryRower, coll models.Collection, id string) (*models.CatalogRecord, error) {
	row := q.QueryRowContext(ctx, `
		SELECT body FROM documents
		WHERE collection = ? AND id = ?
	`, string(coll), id)

	var body string
	if err := row.Scan(&body); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, catalog.ErrNotFound
		}
		return nil, fmt.Errorf("scan record: %w", err)
	}
	return decodeRecord(body)
}

func decodeRecord(body string) (*models.CatalogRecord, error) {
	var rec models.CatalogRecord
	if err := json.Unmarshal([]byte(body), &rec); err != nil {
		return nil, fmt.Errorf("decode record: %w", err)
	}
	rec.EnsureSlices()
	return &rec, nil
}

func (s *SQLite) List(ctx context.Context, coll models.Collection, q catalog.ListQuery) (catalog.Page, error) {
	q = q.Normalized()
	page := catalog.Page{Items: []models.CatalogRecord{}, Limit: q.Limit, Offset: q.Offset}

	total, err := s.Count(ctx, coll)
	if err != nil {
		return page, err
	}
	page.Total = total

	order := "created_at DESC, rowid DESC"
	if q.Sort == catalog.SortTitle {
		order = "title COLLATE NOCASE ASC, rowid ASC"
	}

	rows, err := s.DB.QueryContext(ctx, `
		SELECT body FROM documents
		WHERE collection = ?
		ORDER BY `+order+`
		LIMIT ? OFFSET ?
	`, string(coll), q.Limit, q.Offset)
	if err != nil {
		return page, catalog.WrapStoreError("list records", err)
	}
	defer rows.Close()

	for rows.Next() {
		var body string
		if err := rows.Scan(&body); err != nil {
			return page, catalog.WrapStoreError("list scan", err)
		}
		rec, err := decodeRecord(body)
		if err != nil {
			return page, catalog.WrapStoreError("list decode", err)
		}
		page.Items = append(page.Items, *rec)
	}
	if err := rows.Err(); err != nil {
		return page, catalog.WrapStoreError("list rows", err)
	}
	return page, nil
}

// Update replaces the whole document inside a transaction; concurrent
// writers race with last-write-wins.
func (s *SQLite) Update(ctx context.Context, coll models.Collection, id string, patch models.RecordPatch) (*models.CatalogRecord, error) {
	tx, err := s.DB.BeginTx(ctx, nil)
	if err != nil {
		return nil, catalog.WrapStoreError("begin update", err)
	}
	defer func() { _ = tx.Rollback() }()

	rec, err := getDocument(ctx, tx, coll, id)
	if err != nil {
		return nil, catalog.WrapStoreError("load record", err)
	}

	patch.Apply(rec)
	rec.UpdatedAt = s.now()
	rec.EnsureSlices()

	body, err := json.Marshal(rec)
	if err != nil {
		return nil, catalog.WrapStoreError("encode record", err)
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE documents
		SET title = ?, body = ?, updated_at = ?
		WHERE collection = ? AND id = ?
	`, rec.Title, string(body), rec.UpdatedAt.UnixNano(), string(coll), id); err != nil {
		return nil, catalog.WrapStoreError("update record", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, catalog.WrapStoreError("commit update", err)
	}
	return rec, nil
}

func (s *SQLite) Delete(ctx context.Context, coll models.Collection, id string) error {
	res, err := s.DB.ExecContext(ctx, `
		DELETE FROM documents
		WHERE collection = ? AND id = ?
	`, string(coll), id)
	if err != nil {
		return catalog.WrapStoreError("delete record", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return catalog.WrapStoreError("delete rows", err)
	}
	if n == 0 {
		return catalog.ErrNotFound
	}
	return nil
}

func (s *SQLite) Count(ctx context.Context, coll models.Collection) (int, error) {
	var n int
	err := s.DB.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM documents WHERE collection = ?
	`, string(coll)).Scan(&n)
	if err != nil {
		return 0, catalog.WrapStoreError("count records", err)
	}
	return n, nil
}

// MigrateLegacyFields rewrites documents stored in an older field layout
// (see upgradeLegacyDocument). It returns the number of rewritten documents.
func (s *SQLite) MigrateLegacyFields(ctx context.Context) (int, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT collection, id, body FROM documents
	`)
	if err != nil {
		return 0, catalog.WrapStoreError("scan legacy fields", err)
	}

	type pending struct {
		coll, id string
		body     []byte
	}
	var todo []pending
	for rows.Next() {
		var p pending
		var body string
		if err := rows.Scan(&p.coll, &p.id, &body); err != nil {
			rows.Close()
			return 0, catalog.WrapStoreError("scan legacy fields", err)
		}
		doc := map[string]any{}
		if err := json.Unmarshal([]byte(body), &doc); err != nil {
			continue
		}
		if !upgradeLegacyDocument(models.Collection(p.coll), doc) {
			continue
		}
		if p.body, err = json.Marshal(doc); err != nil {
			continue
		}
		todo = append(todo, p)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return 0, catalog.WrapStoreError("scan legacy fields", err)
	}

	for _, p := range todo {
		if _, err := s.DB.ExecContext(ctx, `
			UPDATE documents SET body = ? WHERE collection = ? AND id = ?
		`, string(p.body), p.coll, p.id); err != nil {
			return 0, catalog.WrapStoreError("rewrite legacy fields", err)
		}
	}
	return len(todo), nil
}

// --- admin credentials --------------------------------------------------

func (s *SQLite) GetByEmail(ctx context.Context, email string) (*auth.User, error) {
	email = strings.TrimSpace(strings.ToLower(email))
	row := s.DB.QueryRowContext(ctx, `
		SELECT email, password_hash, role, created_at, updated_at
		FROM verification
		WHERE email = ?
	`, email)

	var (
		u                auth.User
		created, updated int64
	)
	if err := row.Scan(&u.Email, &u.PasswordHash, &u.Role, &created, &updated); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get by email: %w", err)
	}
	u.CreatedAt = time.Unix(0, created).UTC()
	u.UpdatedAt = time.Unix(0, updated).UTC()
	return &u, nil
}

func (s *SQLite) UpsertUser(ctx context.Context, u auth.User) error {
	now := s.now().UnixNano()
	_, err := s.DB.ExecContext(ctx, `
		INSERT INTO verification (email, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(email) DO UPDATE SET
			password_hash = excluded.password_hash,
			role = excluded.role,
			updated_at = excluded.updated_at
	`, strings.TrimSpace(strings.ToLower(u.Email)), u.PasswordHash, u.Role, now, now)
	if err != nil {
		return fmt.Errorf("upsert user: %w", err)
	}
	return nil
}

func (s *SQLite) ListUsers(ctx context.Context) ([]auth.User, error) {
	rows, err := s.DB.QueryContext(ctx, `
		SELECT email, password_hash, role, created_at, updated_at
		FROM verification
		ORDER BY email
	`)
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []auth.User
	for rows.Next() {
		var (
			u                auth.User
			created, updated int64
		)
		if err := rows.Scan(&u.Email, &u.PasswordHash, &u.Role, &created, &updated); err != nil {
			return nil, fmt.Errorf("list users scan: %w", err)
		}
		u.CreatedAt = time.Unix(0, created).UTC()
		u.UpdatedAt = time.Unix(0, updated).UTC()
		out = append(out, u)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows err: %w", err)
	}
	return out, nil
}

func (s *SQLite) UpdatePasswordHash(ctx context.Context, email, hash string) error {
	res, err := s.DB.ExecContext(ctx, `
		UPDATE verification
		SET password_hash = ?, updated_at = ?
		WHERE email = ?
	`, hash, s.now().UnixNano(), strings.TrimSpace(strings.ToLower(email)))
	if err != nil {
		return fmt.Errorf("update password: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update password rows: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("update password: user not found")
	}
	return nil
}
