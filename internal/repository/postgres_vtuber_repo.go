package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/guregu/null"

	"github.com/hitoshi/vtboard/internal/model"
)

// PostgresVtuberRepo はvtubersテーブルのPostgreSQL実装。
type PostgresVtuberRepo struct {
	db *sql.DB
}

// NewPostgresVtuberRepo はPostgresVtuberRepoを生成する。
func NewPostgresVtuberRepo(db *sql.DB) *PostgresVtuberRepo {
	return &PostgresVtuberRepo{db: db}
}

// List は配信者をcreated_at降順で返す。
func (r *PostgresVtuberRepo) List(ctx context.Context) ([]*model.Vtuber, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, name, channel_url, created_at FROM vtubers ORDER BY created_at DESC`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list vtubers: %w", err)
	}
	defer rows.Close()

	var vtubers []*model.Vtuber
	for rows.Next() {
		v := &model.Vtuber{}
		if err := rows.Scan(&v.ID, &v.Name, &v.ChannelURL, &v.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan vtuber: %w", err)
		}
		vtubers = append(vtubers, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate vtubers: %w", err)
	}
	return vtubers, nil
}

// Create は配信者を登録する。ログイン済みであれば誰でも登録できる。
func (r *PostgresVtuberRepo) Create(ctx context.Context, name string, channelURL null.String) (*model.Vtuber, error) {
	if _, err := requireCaller(ctx); err != nil {
		return nil, err
	}

	v := &model.Vtuber{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO vtubers (name, channel_url)
		 VALUES ($1, $2)
		 RETURNING id, name, channel_url, created_at`,
		name, channelURL,
	).Scan(&v.ID, &v.Name, &v.ChannelURL, &v.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert vtuber: %w", err)
	}
	return v, nil
}

// Delete は配信者を削除する。投稿のvtuber_idは外部キーによりNULLになる。
func (r *PostgresVtuberRepo) Delete(ctx context.Context, id string) error {
	if _, err := requireCaller(ctx); err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM vtubers WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete vtuber: %w", err)
	}
	return expectAffected(result)
}

// expectAffected は削除対象が1行もなかった場合にErrNoRowsAffectedを返す。
func expectAffected(result sql.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if n == 0 {
		return model.ErrNoRowsAffected
	}
	return nil
}

var _ VtuberRepository = (*PostgresVtuberRepo)(nil)
