// Package wechat wraps the code2session exchange with the WeChat identity
// provider. The exchange is treated as an external collaborator: it either
// yields a stable subject identifier or fails as an upstream auth error.
package wechat

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"time"

	"github.com/lawlink/lawlink-api/internal/domain"
)

const endpoint = "https://api.weixin.qq.com/sns/jscode2session"

type Session struct {
	OpenID     string
	UnionID    string
	SessionKey string
}

type Client interface {
	Exchange(ctx context.Context, code string) (*Session, error)
}

type HTTPClient struct {
	appID  string
	secret string
	http   *http.Client
}

func NewHTTPClient(appID, secret string) *HTTPClient {
	return &HTTPClient{
		appID:  appID,
		secret: secret,
		http:   &http.Client{Timeout: 10 * time.Second},
	}
}

type sessionResponse struct {
	OpenID     string `json:"openid"`
	UnionID    string `json:"unionid"`
	SessionKey string `json:"session_key"`
	ErrCode    int    `json:"errcode"`
	ErrMsg     string `json:"errmsg"`
}

// Exchange trades a one-time login code for the caller's open-id. Provider
// rejections (invalid code, rate limit) surface as UpstreamAuthError so the
// handler can map them to 502 rather than 400.
func (c *HTTPClient) Exchange(ctx context.Context, code string) (*Session, error) {
	if c.appID == "" || c.secret == "" {
		return nil, &domain.UpstreamAuthError{Detail: "wechat provider is not configured"}
	}

	q := url.Values{}
	q.Set("appid", c.appID)
	q.Set("secret", c.secret)
	q.Set("js_code", code)
	q.Set("grant_type", "authorization_code")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}

	res, err := c.http.Do(req)
	if err != nil {
		return nil, &domain.UpstreamAuthError{Detail: err.Error()}
	}
	defer res.Body.Close()

	var body sessionResponse
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return nil, &domain.UpstreamAuthError{Detail: fmt.Sprintf("malformed provider response: %v", err)}
	}

	if body.ErrCode != 0 || body.OpenID == "" {
		return nil, &domain.UpstreamAuthError{
			Detail: fmt.Sprintf("code2session errcode=%d errmsg=%s", body.ErrCode, body.ErrMsg),
		}
	}

	return &Session{
		OpenID:     body.OpenID,
		UnionID:    body.UnionID,
		SessionKey: body.SessionKey,
	}, nil
}
