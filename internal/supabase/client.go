// Package supabase はSupabase（PostgREST / GoTrue）をバックエンドとするアダプターを提供する。
//
// 呼び出し元のアクセストークンをそのままBearerとして渡すため、
// 行ポリシー(RLS)の判定はSupabase側で行われる。
package supabase

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	jsoniter "github.com/json-iterator/go"

	"github.com/hitoshi/vtboard/internal/metrics"
	"github.com/hitoshi/vtboard/internal/model"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

const (
	restPrefix = "/rest/v1/"
	authPrefix = "/auth/v1/"

	// maxErrorBody はエラーレスポンスとして読み込む上限バイト数。
	maxErrorBody = 64 << 10
)

// Client はSupabaseのHTTP APIクライアント。
type Client struct {
	baseURL    string
	anonKey    string
	httpClient *http.Client
	metrics    metrics.MetricsCollector
}

// NewClient はClientを生成する。baseURLの末尾スラッシュは除去済みであること。
func NewClient(baseURL, anonKey string, httpClient *http.Client, collector metrics.MetricsCollector) *Client {
	return &Client{
		baseURL:    baseURL,
		anonKey:    anonKey,
		httpClient: httpClient,
		metrics:    collector,
	}
}

// call は1回のAPI呼び出しを表す。
type call struct {
	method string
	path   string // "/rest/v1/posts" 形式
	query  url.Values
	body   any
	prefer string
	// bearer が空の場合はcontextのセッション、なければanonキーを使う。
	bearer string
	// label はメトリクスのtableラベル。
	label string
}

// do はAPIを呼び出し、2xxであればレスポンスをoutにデコードする。
func (c *Client) do(ctx context.Context, cl call, out any) error {
	return c.doChecked(ctx, cl, out, nil)
}

// doChecked はdoに加えて、デコード後にcheckで結果を検証する。
// RLSで0行になった変更をdeniedとして記録するため、メトリクスはcheckの後に記録する。
func (c *Client) doChecked(ctx context.Context, cl call, out any, check func() error) (err error) {
	start := time.Now()
	defer func() {
		c.metrics.RecordBackendRequest(cl.label, cl.method, outcomeOf(err), time.Since(start))
	}()

	if err := c.send(ctx, cl, out); err != nil {
		return err
	}
	if check != nil {
		return check()
	}
	return nil
}

func (c *Client) send(ctx context.Context, cl call, out any) error {
	u := c.baseURL + cl.path
	if len(cl.query) > 0 {
		u += "?" + cl.query.Encode()
	}

	var body io.Reader
	if cl.body != nil {
		b, err := json.Marshal(cl.body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, cl.method, u, body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("apikey", c.anonKey)
	req.Header.Set("Authorization", "Bearer "+c.bearerFor(ctx, cl.bearer))
	req.Header.Set("Accept", "application/json")
	if cl.body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if cl.prefer != "" {
		req.Header.Set("Prefer", cl.prefer)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		slog.Warn("supabase request failed",
			slog.String("method", cl.method),
			slog.String("path", cl.path),
			slog.String("error", err.Error()),
		)
		return fmt.Errorf("%s %s: %w", cl.method, cl.path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := decodeError(resp)
		slog.Warn("supabase returned error status",
			slog.String("method", cl.method),
			slog.String("path", cl.path),
			slog.Int("status", resp.StatusCode),
			slog.String("error", apiErr.Error()),
		)
		return apiErr
	}
	if out == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", cl.path, err)
	}
	return nil
}

func (c *Client) bearerFor(ctx context.Context, explicit string) string {
	if explicit != "" {
		return explicit
	}
	if s := model.SessionFromContext(ctx); s != nil && s.AccessToken != "" {
		return s.AccessToken
	}
	return c.anonKey
}

func outcomeOf(err error) string {
	switch {
	case err == nil:
		return metrics.OutcomeSuccess
	case errors.Is(err, model.ErrPermissionDenied), errors.Is(err, model.ErrNoRowsAffected):
		return metrics.OutcomeDenied
	default:
		return metrics.OutcomeError
	}
}

// Health はGoTrueのヘルスチェックエンドポイントを呼び出す。
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, call{
		method: http.MethodGet,
		path:   authPrefix + "health",
		bearer: c.anonKey,
		label:  "auth",
	}, nil)
}
