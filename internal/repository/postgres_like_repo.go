package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/vtboard/internal/model"
)

// PostgresLikeRepo はlikesテーブルのPostgreSQL実装。
type PostgresLikeRepo struct {
	db *sql.DB
}

// NewPostgresLikeRepo はPostgresLikeRepoを生成する。
func NewPostgresLikeRepo(db *sql.DB) *PostgresLikeRepo {
	return &PostgresLikeRepo{db: db}
}

// ListByPostIDs は指定投稿群に対するいいねを返す。
func (r *PostgresLikeRepo) ListByPostIDs(ctx context.Context, postIDs []string) ([]*model.Like, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, post_id, user_id FROM likes WHERE post_id = ANY($1::uuid[])`,
		pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list likes: %w", err)
	}
	defer rows.Close()

	var likes []*model.Like
	for rows.Next() {
		l := &model.Like{}
		if err := rows.Scan(&l.ID, &l.PostID, &l.UserID); err != nil {
			return nil, fmt.Errorf("failed to scan like: %w", err)
		}
		likes = append(likes, l)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate likes: %w", err)
	}
	return likes, nil
}

// FindByPostAndUser は指定ユーザーのいいねを返す。見つからない場合はnilを返す。
func (r *PostgresLikeRepo) FindByPostAndUser(ctx context.Context, postID, userID string) (*model.Like, error) {
	l := &model.Like{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, post_id, user_id FROM likes WHERE post_id = $1 AND user_id = $2`,
		postID, userID,
	).Scan(&l.ID, &l.PostID, &l.UserID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find like: %w", err)
	}
	return l, nil
}

// Create はいいねを作成する。同一ユーザーの二重いいねは一意制約違反になる。
func (r *PostgresLikeRepo) Create(ctx context.Context, postID, userID string) (*model.Like, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}

	l := &model.Like{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO likes (post_id, user_id) VALUES ($1, $2)
		 RETURNING id, post_id, user_id`,
		postID, userID,
	).Scan(&l.ID, &l.PostID, &l.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to insert like: %w", err)
	}
	return l, nil
}

// Delete は本人のいいねのみ削除する。
func (r *PostgresLikeRepo) Delete(ctx context.Context, id string) error {
	caller, err := requireCaller(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM likes WHERE id = $1 AND user_id = $2`,
		id, caller,
	)
	if err != nil {
		return fmt.Errorf("failed to delete like: %w", err)
	}
	return expectAffected(result)
}

var _ LikeRepository = (*PostgresLikeRepo)(nil)
