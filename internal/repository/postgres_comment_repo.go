package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/hitoshi/vtboard/internal/model"
)

// PostgresCommentRepo はcommentsテーブルのPostgreSQL実装。
type PostgresCommentRepo struct {
	db *sql.DB
}

// NewPostgresCommentRepo はPostgresCommentRepoを生成する。
func NewPostgresCommentRepo(db *sql.DB) *PostgresCommentRepo {
	return &PostgresCommentRepo{db: db}
}

// ListByPostIDs は指定投稿群のコメントをcreated_at昇順で返す。
func (r *PostgresCommentRepo) ListByPostIDs(ctx context.Context, postIDs []string) ([]*model.Comment, error) {
	if len(postIDs) == 0 {
		return nil, nil
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.post_id, c.user_id, c.body, c.created_at, pr.nickname, pr.avatar_url
		 FROM comments c
		 LEFT JOIN profiles pr ON pr.id = c.user_id
		 WHERE c.post_id = ANY($1::uuid[])
		 ORDER BY c.created_at ASC`,
		pq.Array(postIDs),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list comments: %w", err)
	}
	defer rows.Close()

	var comments []*model.Comment
	for rows.Next() {
		c := &model.Comment{}
		if err := rows.Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.CreatedAt, &c.AuthorNickname, &c.AuthorAvatarURL); err != nil {
			return nil, fmt.Errorf("failed to scan comment: %w", err)
		}
		comments = append(comments, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comments: %w", err)
	}
	return comments, nil
}

// Create は呼び出し元本人のコメントを作成する。
func (r *PostgresCommentRepo) Create(ctx context.Context, postID, userID, body string) (*model.Comment, error) {
	if err := requireSelf(ctx, userID); err != nil {
		return nil, err
	}

	c := &model.Comment{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO comments (post_id, user_id, body) VALUES ($1, $2, $3)
		 RETURNING id, post_id, user_id, body, created_at`,
		postID, userID, body,
	).Scan(&c.ID, &c.PostID, &c.UserID, &c.Body, &c.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert comment: %w", err)
	}
	return c, nil
}

var _ CommentRepository = (*PostgresCommentRepo)(nil)
