package repository

import "database/sql"

// NewPostgresBackend はPostgreSQLを使う全テーブルのリポジトリを生成する。
func NewPostgresBackend(db *sql.DB) *Backend {
	return &Backend{
		Profiles: NewPostgresProfileRepo(db),
		Vtubers:  NewPostgresVtuberRepo(db),
		Posts:    NewPostgresPostRepo(db),
		Likes:    NewPostgresLikeRepo(db),
		Comments: NewPostgresCommentRepo(db),
	}
}
