package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/hitoshi/vtboard/internal/model"
)

// PostgresProfileRepo はprofilesテーブルのPostgreSQL実装。
type PostgresProfileRepo struct {
	db *sql.DB
}

// NewPostgresProfileRepo はPostgresProfileRepoを生成する。
func NewPostgresProfileRepo(db *sql.DB) *PostgresProfileRepo {
	return &PostgresProfileRepo{db: db}
}

// FindByID は指定IDのプロフィールを取得する。見つからない場合はnilを返す。
func (r *PostgresProfileRepo) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	p := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`SELECT id, nickname, avatar_url FROM profiles WHERE id = $1`,
		id,
	).Scan(&p.ID, &p.Nickname, &p.AvatarURL)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find profile: %w", err)
	}
	return p, nil
}

// Create は本人のプロフィールを作成する。
func (r *PostgresProfileRepo) Create(ctx context.Context, profile *model.Profile) (*model.Profile, error) {
	if err := requireSelf(ctx, profile.ID); err != nil {
		return nil, err
	}

	created := &model.Profile{}
	err := r.db.QueryRowContext(ctx,
		`INSERT INTO profiles (id, nickname, avatar_url)
		 VALUES ($1, $2, $3)
		 RETURNING id, nickname, avatar_url`,
		profile.ID, profile.Nickname, profile.AvatarURL,
	).Scan(&created.ID, &created.Nickname, &created.AvatarURL)
	if err != nil {
		return nil, fmt.Errorf("failed to insert profile: %w", err)
	}
	return created, nil
}

var _ ProfileRepository = (*PostgresProfileRepo)(nil)
