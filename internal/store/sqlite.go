package store

import (
	"context"
	"database/sql"
	"errors"

	"github.com/rotisserie/eris"
	sqlite3 "modernc.org/sqlite"

	"github.com/sells-group/mailsync/internal/model"
)

// SQLiteStore implements Store using modernc.org/sqlite.
type SQLiteStore struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at the given path and configures WAL mode.
func NewSQLite(dsn string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: open")
	}
	for _, pragma := range []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout=5000",
		"PRAGMA synchronous=NORMAL",
		"PRAGMA foreign_keys=ON",
	} {
		if _, err := db.Exec(pragma); err != nil {
			db.Close()
			return nil, eris.Wrapf(err, "sqlite: exec %s", pragma)
		}
	}
	return &SQLiteStore{db: db}, nil
}

const sqliteMigration = `
CREATE TABLE IF NOT EXISTS company_entity (
	id         TEXT PRIMARY KEY,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	company    TEXT NOT NULL,
	phone_num  TEXT NOT NULL DEFAULT '',
	position   TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE TABLE IF NOT EXISTS mail_history (
	id                 TEXT PRIMARY KEY,
	message_id         TEXT NOT NULL UNIQUE,
	title              TEXT NOT NULL,
	original_content   TEXT NOT NULL,
	summarized_content TEXT NOT NULL,
	received_date      DATETIME,
	company_entity_id  TEXT NOT NULL REFERENCES company_entity(id),
	receiver_mail      TEXT NOT NULL DEFAULT '',
	created_at         DATETIME NOT NULL DEFAULT (datetime('now'))
);

CREATE INDEX IF NOT EXISTS idx_company_entity_email ON company_entity(email);
CREATE INDEX IF NOT EXISTS idx_mail_history_entity_id ON mail_history(company_entity_id);
CREATE INDEX IF NOT EXISTS idx_mail_history_message_id ON mail_history(message_id);
`

func (s *SQLiteStore) Migrate(ctx context.Context) error {
	_, err := s.db.ExecContext(ctx, sqliteMigration)
	return eris.Wrap(err, "sqlite: migrate")
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// SQLITE_CONSTRAINT_UNIQUE and SQLITE_CONSTRAINT_PRIMARYKEY extended codes.
const (
	sqliteConstraintUnique     = 2067
	sqliteConstraintPrimaryKey = 1555
)

func isUniqueViolation(err error) bool {
	var serr *sqlite3.Error
	if errors.As(err, &serr) {
		return serr.Code() == sqliteConstraintUnique || serr.Code() == sqliteConstraintPrimaryKey
	}
	return false
}

func checkRowsAffected(res sql.Result, id string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return eris.Wrapf(err, "sqlite: rows affected for %s", id)
	}
	if n == 0 {
		return eris.Wrapf(ErrEntityNotFound, "sqlite: %s", id)
	}
	return nil
}

func (s *SQLiteStore) GetEntityByEmail(ctx context.Context, email string) (*model.Entity, error) {
	var e model.Entity
	err := s.db.QueryRowContext(ctx,
		`SELECT id, email, name, company, phone_num, position, category, created_at FROM company_entity WHERE email = ?`,
		email,
	).Scan(&e.ID, &e.Email, &e.Name, &e.Company, &e.Phone, &e.Position, &e.Category, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "sqlite: get entity %s", email)
	}
	return &e, nil
}

func (s *SQLiteStore) InsertEntity(ctx context.Context, entity *model.Entity) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO company_entity (id, email, name, company, phone_num, position, category, created_at) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entity.ID, entity.Email, entity.Name, entity.Company,
		entity.Phone, entity.Position, entity.Category, entity.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return ErrDuplicateEmail
		}
		return eris.Wrapf(err, "sqlite: insert entity %s", entity.Email)
	}
	return nil
}

func (s *SQLiteStore) UpdateEntityFields(ctx context.Context, entityID string, patch EntityPatch) error {
	if patch.IsZero() {
		return nil
	}

	query := `UPDATE company_entity SET`
	args := []any{}

	if patch.Phone != "" {
		query += ` phone_num = ?,`
		args = append(args, patch.Phone)
	}
	if patch.Position != "" {
		query += ` position = ?,`
		args = append(args, patch.Position)
	}
	if patch.Category != "" {
		query += ` category = ?,`
		args = append(args, patch.Category)
	}

	query = query[:len(query)-1] + ` WHERE id = ?`
	args = append(args, entityID)

	res, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "sqlite: update entity %s", entityID)
	}
	return checkRowsAffected(res, entityID)
}

func (s *SQLiteStore) ListEntities(ctx context.Context, limit int) ([]model.Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, email, name, company, phone_num, position, category, created_at
		 FROM company_entity ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list entities")
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Email, &e.Name, &e.Company, &e.Phone, &e.Position, &e.Category, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan entity")
		}
		entities = append(entities, e)
	}
	return entities, eris.Wrap(rows.Err(), "sqlite: list entities iterate")
}

func (s *SQLiteStore) MailRecordExists(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM mail_history WHERE message_id = ?)`,
		messageID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "sqlite: mail record exists %s", messageID)
	}
	return exists, nil
}

func (s *SQLiteStore) InsertMailRecord(ctx context.Context, rec *model.MailRecord) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT OR IGNORE INTO mail_history (id, message_id, title, original_content, summarized_content, received_date, company_entity_id, receiver_mail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.MessageID, rec.Title, rec.OriginalContent, rec.SummarizedContent,
		rec.ReceivedDate, rec.EntityID, rec.ReceiverMail, rec.CreatedAt,
	)
	return eris.Wrapf(err, "sqlite: insert mail record %s", rec.MessageID)
}

func (s *SQLiteStore) ListMailRecords(ctx context.Context, limit int) ([]model.MailRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, message_id, title, original_content, summarized_content, received_date, company_entity_id, receiver_mail, created_at
		 FROM mail_history ORDER BY created_at DESC LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "sqlite: list mail records")
	}
	defer rows.Close()

	var records []model.MailRecord
	for rows.Next() {
		var r model.MailRecord
		if err := rows.Scan(&r.ID, &r.MessageID, &r.Title, &r.OriginalContent, &r.SummarizedContent,
			&r.ReceivedDate, &r.EntityID, &r.ReceiverMail, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "sqlite: scan mail record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "sqlite: list mail records iterate")
}
