package config

import (
	"fmt"
	"os"
)

// Configはアプリ全体の設定
type Config struct {
	Port string // サーバーポート（8080）

	JWTSecret string // JWT署名シークレット

	MPAccessToken   string // Mercado Pagoのアクセストークン
	MPPublicKey     string // フロントに渡す公開キー
	CallbackBaseURL string // 決済後の復帰URLのベース

	RedisAddr     string // 空ならキャッシュ無効
	RedisPassword string

	GoEnv string // dev/prod
	FEURL string // フロントURL（CORSなどで使う）
}

// Loadは環境変数
func Load() (Config, error) {
	cfg := Config{
		Port: getenv("PORT", "8080"),

		JWTSecret: os.Getenv("JWT_SECRET"),

		MPAccessToken:   os.Getenv("MP_ACCESS_TOKEN"),
		MPPublicKey:     os.Getenv("MP_PUBLIC_KEY"),
		CallbackBaseURL: os.Getenv("CALLBACK_BASE_URL"),

		RedisAddr:     os.Getenv("REDIS_ADDR"),
		RedisPassword: os.Getenv("REDIS_PASSWORD"),

		GoEnv: getenv("GO_ENV", "dev"),
		FEURL: os.Getenv("FE_URL"),
	}

	//必須チェック
	if cfg.JWTSecret == "" {
		return Config{}, fmt.Errorf("JWT_SECRET is required")
	}
	if cfg.MPAccessToken == "" {
		return Config{}, fmt.Errorf("MP_ACCESS_TOKEN is required")
	}
	if cfg.CallbackBaseURL == "" {
		return Config{}, fmt.Errorf("CALLBACK_BASE_URL is required")
	}

	return cfg, nil
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}
