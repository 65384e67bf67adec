// Package auth guards the admin API with a single bearer token. The token
// comes from the environment or, after initial setup, from the store; until
// one exists the service is "unconfigured" and only setup is permitted.
package auth

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"

	"github.com/John-Robertt/submerge-go/internal/model"
	"github.com/John-Robertt/submerge-go/internal/store"
)

// ConfigKey is the store key holding the service configuration record.
const ConfigKey = "SUBS_CONFIG"

type configRecord struct {
	Token string `json:"token"`
}

type AuthError struct {
	Status   int
	AppError model.AppError
}

func (e *AuthError) Error() string {
	if e == nil {
		return "<nil>"
	}
	return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
}

type Guard struct {
	store store.Store

	// envToken, when set, takes precedence over the stored token and
	// disables the setup flow.
	envToken string
}

func NewGuard(st store.Store, envToken string) *Guard {
	return &Guard{store: st, envToken: strings.TrimSpace(envToken)}
}

func (g *Guard) token(ctx context.Context) (string, bool, error) {
	if g.envToken != "" {
		return g.envToken, true, nil
	}
	value, ok, err := g.store.Get(ctx, ConfigKey)
	if err != nil {
		return "", false, err
	}
	if !ok {
		return "", false, nil
	}
	var rec configRecord
	if err := json.Unmarshal([]byte(value), &rec); err != nil {
		return "", false, &AuthError{Status: http.StatusInternalServerError, AppError: model.AppError{
			Code:    "CONFIG_CORRUPT",
			Message: "服务配置存储内容损坏",
			Stage:   "auth",
		}}
	}
	if strings.TrimSpace(rec.Token) == "" {
		return "", false, nil
	}
	return rec.Token, true, nil
}

// Setup stores the admin token. It is only valid in the unconfigured state;
// once a token exists it cannot be replaced through the API.
func (g *Guard) Setup(ctx context.Context, token string) error {
	token = strings.TrimSpace(token)
	if len(token) < 8 {
		return &AuthError{Status: http.StatusBadRequest, AppError: model.AppError{
			Code:    "INVALID_ARGUMENT",
			Message: "token 至少需要 8 个字符",
			Stage:   "auth",
		}}
	}
	_, configured, err := g.token(ctx)
	if err != nil {
		return err
	}
	if configured {
		return &AuthError{Status: http.StatusConflict, AppError: model.AppError{
			Code:    "ALREADY_CONFIGURED",
			Message: "服务已完成初始化",
			Stage:   "auth",
		}}
	}
	value, err := json.Marshal(configRecord{Token: token})
	if err != nil {
		return err
	}
	return g.store.Put(ctx, ConfigKey, string(value))
}

// Check validates an Authorization header against the configured token.
// In the unconfigured state every admin call fails with SETUP_REQUIRED.
func (g *Guard) Check(ctx context.Context, authorization string) error {
	want, configured, err := g.token(ctx)
	if err != nil {
		return err
	}
	if !configured {
		return &AuthError{Status: http.StatusServiceUnavailable, AppError: model.AppError{
			Code:    "SETUP_REQUIRED",
			Message: "服务尚未初始化，请先调用 /api/setup",
			Stage:   "auth",
		}}
	}

	const prefix = "Bearer "
	if !strings.HasPrefix(authorization, prefix) {
		return unauthorized()
	}
	got := strings.TrimSpace(strings.TrimPrefix(authorization, prefix))
	if subtle.ConstantTimeCompare([]byte(got), []byte(want)) != 1 {
		return unauthorized()
	}
	return nil
}

func unauthorized() error {
	return &AuthError{Status: http.StatusUnauthorized, AppError: model.AppError{
		Code:    "UNAUTHORIZED",
		Message: "管理接口需要有效的 Bearer token",
		Stage:   "auth",
	}}
}
