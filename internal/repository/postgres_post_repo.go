package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/hitoshi/vtboard/internal/model"
)

// PostgresPostRepo はpostsテーブルのPostgreSQL実装。
type PostgresPostRepo struct {
	db *sql.DB
}

// NewPostgresPostRepo はPostgresPostRepoを生成する。
func NewPostgresPostRepo(db *sql.DB) *PostgresPostRepo {
	return &PostgresPostRepo{db: db}
}

const postSelect = `
	SELECT p.id, p.vtuber_id, p.title, p.body, p.user_id, p.created_at,
	       v.name, pr.nickname, pr.avatar_url
	FROM posts p
	LEFT JOIN vtubers v ON v.id = p.vtuber_id
	LEFT JOIN profiles pr ON pr.id = p.user_id`

// List は投稿をcreated_at降順で返す。vtuberIDが空文字列なら全件を返す。
func (r *PostgresPostRepo) List(ctx context.Context, vtuberID string) ([]*model.Post, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if vtuberID == "" {
		rows, err = r.db.QueryContext(ctx, postSelect+` ORDER BY p.created_at DESC`)
	} else {
		rows, err = r.db.QueryContext(ctx, postSelect+` WHERE p.vtuber_id = $1 ORDER BY p.created_at DESC`, vtuberID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to list posts: %w", err)
	}
	defer rows.Close()

	var posts []*model.Post
	for rows.Next() {
		p := &model.Post{}
		if err := rows.Scan(
			&p.ID, &p.VtuberID, &p.Title, &p.Body, &p.UserID, &p.CreatedAt,
			&p.VtuberName, &p.AuthorNickname, &p.AuthorAvatarURL,
		); err != nil {
			return nil, fmt.Errorf("failed to scan post: %w", err)
		}
		posts = append(posts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate posts: %w", err)
	}
	return posts, nil
}

// Create は呼び出し元本人を作者として投稿を作成する。
func (r *PostgresPostRepo) Create(ctx context.Context, in model.NewPost) (*model.Post, error) {
	if err := requireSelf(ctx, in.UserID); err != nil {
		return nil, err
	}

	p := &model.Post{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO posts (vtuber_id, title, body, user_id)
		 VALUES ($1, $2, $3, $4)
		 RETURNING id, vtuber_id, title, body, user_id, created_at`,
		in.VtuberID, in.Title, in.Body, in.UserID,
	).Scan(&p.ID, &p.VtuberID, &p.Title, &p.Body, &p.UserID, &p.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to insert post: %w", err)
	}
	return p, nil
}

// Delete は作者本人の投稿のみ削除する。
// 他人の投稿や存在しない投稿はErrNoRowsAffectedになる。
func (r *PostgresPostRepo) Delete(ctx context.Context, id string) error {
	caller, err := requireCaller(ctx)
	if err != nil {
		return err
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM posts WHERE id = $1 AND user_id = $2`,
		id, caller,
	)
	if err != nil {
		return fmt.Errorf("failed to delete post: %w", err)
	}
	return expectAffected(result)
}

var _ PostRepository = (*PostgresPostRepo)(nil)
