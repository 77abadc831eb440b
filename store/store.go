package store

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"go.uber.org/zap"
)

const maxTxRetries = 3

// PGStore keeps the activity list and tokens in Postgres, for people who sync
// from several machines into one GPX directory.
// Rows are scoped to the API client id, like the tokens.
type PGStore struct {
	pool     *pgxpool.Pool
	clientID int
	logger   *zap.Logger
}

func New(ctx context.Context, connectionURL string, clientID int, logger *zap.Logger) (*PGStore, error) {
	pool, err := pgxpool.New(ctx, connectionURL)
	if err != nil {
		return nil, errors.Wrap(err, "store: failed to connect")
	}
	_, err = pool.Exec(ctx, createSchema)
	if err != nil {
		pool.Close()
		return nil, errors.Wrap(err, "store: failed to create schema")
	}
	return &PGStore{
		pool:     pool,
		clientID: clientID,
		logger:   logger.Named("store"),
	}, nil
}

func (s *PGStore) ActivityList(ctx context.Context) ([]Activity, error) {
	rows, err := s.pool.Query(ctx, selectActivityList, s.clientID)
	if err != nil {
		return nil, errors.Wrap(err, "store: failed to query activity list")
	}
	defer rows.Close()

	var activities []Activity
	for rows.Next() {
		var a Activity
		var start *time.Time
		if err := rows.Scan(&a.ID, &a.TypeCode, &start, &a.Name); err != nil {
			return nil, errors.Wrap(err, "store: failed to scan activity")
		}
		if start != nil {
			a.StartDate = *start
		}
		activities = append(activities, a)
	}
	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "store: failed to read activity list")
	}
	return activities, nil
}

// StoreActivityList replaces the stored order of the activity list. Concurrent
// syncs can conflict on the serializable transaction, which is retried.
func (s *PGStore) StoreActivityList(ctx context.Context, activities []Activity) error {
	return retrySerialization(s.logger, func() error {
		return s.storeActivityList(ctx, activities)
	})
}

// retrySerialization runs fn again while it fails with a serialization
// failure or deadlock, up to maxTxRetries times.
func retrySerialization(logger *zap.Logger, fn func() error) error {
	retries := 0
	for {
		err := fn()
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && (pgErr.Code == "40001" || pgErr.Code == "40P01") && retries < maxTxRetries {
			retries++
			logger.Warn("serialization error, retrying",
				zap.String("code", pgErr.Code),
				zap.Int("retry", retries))
			continue
		}
		return err
	}
}

func (s *PGStore) storeActivityList(ctx context.Context, activities []Activity) error {
	tx, err := s.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return errors.Wrap(err, "store: error beginning transaction")
	}
	defer func() {
		err := tx.Rollback(ctx)
		if err != nil && err != pgx.ErrTxClosed {
			s.logger.Error("failed to rollback transaction", zap.Error(err))
		}
	}()

	batch := &pgx.Batch{}
	for i, a := range activities {
		var start *time.Time
		if !a.StartDate.IsZero() {
			start = &a.StartDate
		}
		batch.Queue(upsertActivityQuery, s.clientID, a.ID, a.TypeCode, start, a.Name, i)
	}
	results := tx.SendBatch(ctx, batch)
	for range activities {
		if _, err := results.Exec(); err != nil {
			results.Close()
			return errors.Wrap(err, "store: failed to store activity")
		}
	}
	if err := results.Close(); err != nil {
		return errors.Wrap(err, "store: failed to store activity list")
	}

	err = tx.Commit(ctx)
	if err != nil {
		return errors.Wrap(err, "store: error committing transaction")
	}
	return nil
}

func (s *PGStore) StoreSkipped(ctx context.Context, ids []int64) error {
	if ids == nil {
		ids = []int64{}
	}
	_, err := s.pool.Exec(ctx, markSkippedQuery, s.clientID, ids)
	if err != nil {
		return errors.Wrap(err, "store: failed to mark skipped activities")
	}
	return nil
}

func (s *PGStore) GetTokens(ctx context.Context) (*Tokens, error) {
	row := s.pool.QueryRow(ctx, selectTokensQuery, s.clientID)
	var t Tokens
	err := row.Scan(&t.AccessToken, &t.RefreshToken, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "store: failed to get tokens")
	}
	return &t, nil
}

func (s *PGStore) StoreTokens(ctx context.Context, tokens Tokens) error {
	_, err := s.pool.Exec(ctx, upsertTokensQuery, s.clientID, tokens.AccessToken, tokens.RefreshToken, tokens.ExpiresAt)
	if err != nil {
		return errors.Wrap(err, "store: failed to store tokens")
	}
	return nil
}

func (s *PGStore) Close() error {
	s.pool.Close()
	return nil
}
