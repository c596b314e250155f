package pgstore

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"

	"service-dispatch/internal/store"
)

// notifyChannel carries the collection name of every insert.
const notifyChannel = "dispatch_events"

// schemaLockKey serializes concurrent migrations.
const schemaLockKey = 7215093

// Every table carries the appending transaction id and a sequence. Feeds read
// rows ordered by (tx_id, seq) and only up to the oldest transaction still in
// flight, so a row committed late can never be skipped by a cursor.
var schema = []string{
	`CREATE TABLE IF NOT EXISTS announcements (
		seq               BIGINT GENERATED ALWAYS AS IDENTITY,
		tx_id             BIGINT NOT NULL DEFAULT (pg_current_xact_id()::text::bigint),
		id                TEXT PRIMARY KEY,
		pickup            TEXT NOT NULL,
		dropoff           TEXT NOT NULL,
		reward            DOUBLE PRECISION NOT NULL,
		status            TEXT NOT NULL,
		chosen_courier_id TEXT,
		created_at        TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS candidatures (
		seq             BIGINT GENERATED ALWAYS AS IDENTITY,
		tx_id           BIGINT NOT NULL DEFAULT (pg_current_xact_id()::text::bigint),
		id              TEXT PRIMARY KEY,
		announcement_id TEXT NOT NULL,
		courier_id      TEXT NOT NULL,
		courier_name    TEXT NOT NULL,
		eta             INTEGER NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS selections (
		seq             BIGINT GENERATED ALWAYS AS IDENTITY,
		tx_id           BIGINT NOT NULL DEFAULT (pg_current_xact_id()::text::bigint),
		id              TEXT PRIMARY KEY,
		announcement_id TEXT NOT NULL,
		courier_id      TEXT NOT NULL,
		status          TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS notifications (
		seq             BIGINT GENERATED ALWAYS AS IDENTITY,
		tx_id           BIGINT NOT NULL DEFAULT (pg_current_xact_id()::text::bigint),
		id              TEXT PRIMARY KEY,
		courier_id      TEXT NOT NULL,
		type            TEXT NOT NULL,
		announcement_id TEXT NOT NULL,
		created_at      TIMESTAMPTZ NOT NULL
	)`,
	`CREATE UNIQUE INDEX IF NOT EXISTS ` + store.IndexUniqueSelection + ` ON selections (announcement_id)`,
	`CREATE INDEX IF NOT EXISTS ` + store.IndexCandidaturesByETA + ` ON candidatures (announcement_id, eta, created_at, id)`,
	`CREATE INDEX IF NOT EXISTS ` + store.IndexAnnouncementsByStatus + ` ON announcements (status, created_at DESC)`,
	`CREATE INDEX IF NOT EXISTS ` + store.IndexNotificationsByCourier + ` ON notifications (courier_id, tx_id, seq)`,
	`CREATE INDEX IF NOT EXISTS announcements_feed ON announcements (tx_id, seq)`,
	`CREATE INDEX IF NOT EXISTS candidatures_feed ON candidatures (announcement_id, tx_id, seq)`,
	`CREATE INDEX IF NOT EXISTS selections_feed ON selections (tx_id, seq)`,
	`CREATE OR REPLACE FUNCTION dispatch_notify() RETURNS trigger LANGUAGE plpgsql AS $$
	BEGIN
		PERFORM pg_notify('` + notifyChannel + `', TG_TABLE_NAME);
		RETURN NULL;
	END $$`,
}

var notifiedTables = []string{
	store.Announcements, store.Candidatures, store.Selections, store.Notifications,
}

// EnsureIndexes creates the tables, indexes and notify triggers. It is
// idempotent and safe to run from several processes at once.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	return s.withTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, schemaLockKey); err != nil {
			return fmt.Errorf("lock schema: %w", err)
		}
		for _, stmt := range schema {
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("apply schema: %w", err)
			}
		}
		for _, table := range notifiedTables {
			trigger := table + "_notify"
			if _, err := tx.Exec(ctx, fmt.Sprintf(`DROP TRIGGER IF EXISTS %s ON %s`, trigger, table)); err != nil {
				return fmt.Errorf("drop trigger %s: %w", trigger, err)
			}
			stmt := fmt.Sprintf(`CREATE TRIGGER %s AFTER INSERT ON %s FOR EACH STATEMENT EXECUTE FUNCTION dispatch_notify()`, trigger, table)
			if _, err := tx.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("create trigger %s: %w", trigger, err)
			}
		}
		return nil
	})
}

// withTx opens a transaction and executes fn within it.
func (s *Store) withTx(ctx context.Context, fn func(tx pgx.Tx) error) (err error) {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback(ctx)
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(ctx); rbErr != nil {
			return fmt.Errorf("rollback tx: %w (original error: %s)", rbErr, err.Error())
		}
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit tx: %w", err)
	}
	return nil
}
