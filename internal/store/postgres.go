package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rotisserie/eris"

	"github.com/sells-group/mailsync/internal/db"
	"github.com/sells-group/mailsync/internal/model"
)

// PostgresStore implements Store using pgxpool.
type PostgresStore struct {
	pool    db.Pool
	closeFn func()
}

// PoolConfig holds optional connection pool tuning parameters.
type PoolConfig struct {
	MaxConns int32 `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns int32 `yaml:"min_conns" mapstructure:"min_conns"`
}

// preparedStatements lists queries to prepare on each new connection for
// faster execution of the most frequently used store operations.
var preparedStatements = map[string]string{
	"get_entity_by_email": `SELECT id, email, name, company, phone_num, position, category, created_at FROM company_entity WHERE email = $1`,
	"insert_entity":       `INSERT INTO company_entity (id, email, name, company, phone_num, position, category, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
	"mail_record_exists":  `SELECT EXISTS (SELECT 1 FROM mail_history WHERE message_id = $1)`,
	"insert_mail_record":  `INSERT INTO mail_history (id, message_id, title, original_content, summarized_content, received_date, company_entity_id, receiver_mail, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9) ON CONFLICT (message_id) DO NOTHING`,
}

// NewPostgres creates a PostgresStore with a connection pool.
func NewPostgres(ctx context.Context, connString string, poolCfg *PoolConfig) (*PostgresStore, error) {
	pgxCfg, err := pgxpool.ParseConfig(connString)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: parse config")
	}

	maxConns := int32(10)
	minConns := int32(2)
	if poolCfg != nil {
		if poolCfg.MaxConns > 0 {
			maxConns = poolCfg.MaxConns
		}
		if poolCfg.MinConns > 0 {
			minConns = poolCfg.MinConns
		}
	}
	pgxCfg.MaxConns = maxConns
	pgxCfg.MinConns = minConns
	pgxCfg.MaxConnLifetime = 30 * time.Minute
	pgxCfg.MaxConnIdleTime = 5 * time.Minute

	// Prepare frequently-used statements on each new connection.
	pgxCfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		for name, sql := range preparedStatements {
			if _, err := conn.Prepare(ctx, name, sql); err != nil {
				return eris.Wrapf(err, "postgres: prepare %s", name)
			}
		}
		return nil
	}

	pool, err := pgxpool.NewWithConfig(ctx, pgxCfg)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: create pool")
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, eris.Wrap(err, "postgres: ping")
	}
	return &PostgresStore{pool: pool, closeFn: pool.Close}, nil
}

const postgresMigration = `
CREATE TABLE IF NOT EXISTS company_entity (
	id         TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	email      TEXT NOT NULL UNIQUE,
	name       TEXT NOT NULL,
	company    TEXT NOT NULL,
	phone_num  TEXT NOT NULL DEFAULT '',
	position   TEXT NOT NULL DEFAULT '',
	category   TEXT NOT NULL DEFAULT '',
	created_at TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE TABLE IF NOT EXISTS mail_history (
	id                 TEXT PRIMARY KEY DEFAULT gen_random_uuid()::text,
	message_id         TEXT NOT NULL UNIQUE,
	title              TEXT NOT NULL,
	original_content   TEXT NOT NULL,
	summarized_content TEXT NOT NULL,
	received_date      TIMESTAMPTZ,
	company_entity_id  TEXT NOT NULL REFERENCES company_entity(id),
	receiver_mail      TEXT NOT NULL DEFAULT '',
	created_at         TIMESTAMPTZ NOT NULL DEFAULT now()
);

CREATE INDEX IF NOT EXISTS idx_company_entity_email ON company_entity(email);
CREATE INDEX IF NOT EXISTS idx_mail_history_entity_id ON mail_history(company_entity_id);
CREATE INDEX IF NOT EXISTS idx_mail_history_message_id ON mail_history(message_id);
CREATE INDEX IF NOT EXISTS idx_mail_history_received ON mail_history(received_date DESC);
`

func (s *PostgresStore) Ping(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, "SELECT 1")
	return eris.Wrap(err, "postgres: ping")
}

func (s *PostgresStore) Migrate(ctx context.Context) error {
	_, err := s.pool.Exec(ctx, postgresMigration)
	return eris.Wrap(err, "postgres: migrate")
}

func (s *PostgresStore) Close() error {
	if s.closeFn != nil {
		s.closeFn()
	}
	return nil
}

func (s *PostgresStore) GetEntityByEmail(ctx context.Context, email string) (*model.Entity, error) {
	var e model.Entity
	err := s.pool.QueryRow(ctx,
		`SELECT id, email, name, company, phone_num, position, category, created_at FROM company_entity WHERE email = $1`,
		email,
	).Scan(&e.ID, &e.Email, &e.Name, &e.Company, &e.Phone, &e.Position, &e.Category, &e.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, eris.Wrapf(err, "postgres: get entity %s", email)
	}
	return &e, nil
}

func (s *PostgresStore) InsertEntity(ctx context.Context, entity *model.Entity) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO company_entity (id, email, name, company, phone_num, position, category, created_at) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		entity.ID, entity.Email, entity.Name, entity.Company,
		entity.Phone, entity.Position, entity.Category, entity.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return ErrDuplicateEmail
		}
		return eris.Wrapf(err, "postgres: insert entity %s", entity.Email)
	}
	return nil
}

func (s *PostgresStore) UpdateEntityFields(ctx context.Context, entityID string, patch EntityPatch) error {
	if patch.IsZero() {
		return nil
	}

	query := `UPDATE company_entity SET`
	args := []any{}
	argIdx := 1

	if patch.Phone != "" {
		query += fmt.Sprintf(` phone_num = $%d,`, argIdx)
		args = append(args, patch.Phone)
		argIdx++
	}
	if patch.Position != "" {
		query += fmt.Sprintf(` position = $%d,`, argIdx)
		args = append(args, patch.Position)
		argIdx++
	}
	if patch.Category != "" {
		query += fmt.Sprintf(` category = $%d,`, argIdx)
		args = append(args, patch.Category)
		argIdx++
	}

	query = query[:len(query)-1] + fmt.Sprintf(` WHERE id = $%d`, argIdx)
	args = append(args, entityID)

	tag, err := s.pool.Exec(ctx, query, args...)
	if err != nil {
		return eris.Wrapf(err, "postgres: update entity %s", entityID)
	}
	if tag.RowsAffected() == 0 {
		return eris.Wrapf(ErrEntityNotFound, "postgres: %s", entityID)
	}
	return nil
}

func (s *PostgresStore) ListEntities(ctx context.Context, limit int) ([]model.Entity, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, email, name, company, phone_num, position, category, created_at
		 FROM company_entity ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list entities")
	}
	defer rows.Close()

	var entities []model.Entity
	for rows.Next() {
		var e model.Entity
		if err := rows.Scan(&e.ID, &e.Email, &e.Name, &e.Company, &e.Phone, &e.Position, &e.Category, &e.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan entity")
		}
		entities = append(entities, e)
	}
	return entities, eris.Wrap(rows.Err(), "postgres: list entities iterate")
}

func (s *PostgresStore) MailRecordExists(ctx context.Context, messageID string) (bool, error) {
	var exists bool
	err := s.pool.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM mail_history WHERE message_id = $1)`,
		messageID,
	).Scan(&exists)
	if err != nil {
		return false, eris.Wrapf(err, "postgres: mail record exists %s", messageID)
	}
	return exists, nil
}

func (s *PostgresStore) InsertMailRecord(ctx context.Context, rec *model.MailRecord) error {
	_, err := s.pool.Exec(ctx,
		`INSERT INTO mail_history (id, message_id, title, original_content, summarized_content, received_date, company_entity_id, receiver_mail, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (message_id) DO NOTHING`,
		rec.ID, rec.MessageID, rec.Title, rec.OriginalContent, rec.SummarizedContent,
		rec.ReceivedDate, rec.EntityID, rec.ReceiverMail, rec.CreatedAt,
	)
	return eris.Wrapf(err, "postgres: insert mail record %s", rec.MessageID)
}

func (s *PostgresStore) ListMailRecords(ctx context.Context, limit int) ([]model.MailRecord, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := s.pool.Query(ctx,
		`SELECT id, message_id, title, original_content, summarized_content, received_date, company_entity_id, receiver_mail, created_at
		 FROM mail_history ORDER BY created_at DESC LIMIT $1`,
		limit,
	)
	if err != nil {
		return nil, eris.Wrap(err, "postgres: list mail records")
	}
	defer rows.Close()

	var records []model.MailRecord
	for rows.Next() {
		var r model.MailRecord
		if err := rows.Scan(&r.ID, &r.MessageID, &r.Title, &r.OriginalContent, &r.SummarizedContent,
			&r.ReceivedDate, &r.EntityID, &r.ReceiverMail, &r.CreatedAt); err != nil {
			return nil, eris.Wrap(err, "postgres: scan mail record")
		}
		records = append(records, r)
	}
	return records, eris.Wrap(rows.Err(), "postgres: list mail records iterate")
}
