package providers

import (
	"encoding/hex"
	"fmt"

	"github.com/samber/do/v2"

	"github.com/guidepostapp/guidepost-server/internal/auth"
	"github.com/guidepostapp/guidepost-server/internal/config"
	"github.com/guidepostapp/guidepost-server/internal/logger"
)

// AuthKey is the symmetric key behind both token minting and verification.
// It persists in the data dir next to the database, so issued tokens
// survive restarts.
type AuthKey []byte

// ProvideAuthKey loads the token key from the data dir, generating one on
// first boot.
func ProvideAuthKey(i do.Injector) (AuthKey, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	// Zero or negative lifetimes would mint tokens that are expired on
	// arrival; refuse to start instead.
	if cfg.Auth.AccessTokenDuration <= 0 || cfg.Auth.RefreshTokenDuration <= 0 {
		return nil, fmt.Errorf("token lifetimes must be positive (access %s, refresh %s)",
			cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
	}

	key, err := auth.LoadOrGenerateKey(cfg.Data.BasePath)
	if err != nil {
		return nil, fmt.Errorf("load auth key: %w", err)
	}

	// Downstream consumers read the key through the config.
	cfg.Auth.AccessTokenKey = key

	log.Info("Authentication key ready",
		"access_token_duration", cfg.Auth.AccessTokenDuration,
		"refresh_token_duration", cfg.Auth.RefreshTokenDuration,
	)

	return AuthKey(key), nil
}

// ProvideTokenService provides the PASETO token service.
func ProvideTokenService(i do.Injector) (*auth.TokenService, error) {
	cfg := do.MustInvoke[*config.Config](i)
	authKey := do.MustInvoke[AuthKey](i)

	keyHex := hex.EncodeToString([]byte(authKey))
	return auth.NewTokenService(keyHex, cfg.Auth.AccessTokenDuration, cfg.Auth.RefreshTokenDuration)
}
