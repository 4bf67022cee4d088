package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/go-playground/validator/v10"
	json "github.com/goccy/go-json"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

// ConfigFileEnv は設定ファイルのパスを指定する環境変数
const ConfigFileEnv = "MINIHTTPD_CONFIG"

// Config はアプリケーション全体の設定を保持する構造体
type Config struct {
	Server ServerConfig `mapstructure:"server" yaml:"server" toml:"server" json:"server"`
	Static StaticConfig `mapstructure:"static" yaml:"static" toml:"static" json:"static"`
	Admin  AdminConfig  `mapstructure:"admin" yaml:"admin" toml:"admin" json:"admin"`
	Log    LogConfig    `mapstructure:"log" yaml:"log" toml:"log" json:"log"`
}

// ServerConfig はHTTPサーバーの設定
type ServerConfig struct {
	Host string `mapstructure:"host" yaml:"host" toml:"host" json:"host"`                                  // リッスンするホスト
	Port int    `mapstructure:"port" yaml:"port" toml:"port" json:"port" validate:"gte=0,lte=65535"` // リッスンするポート番号 (0 はテスト用のランダムポート)

	// タイムアウト設定 (0 は無制限)
	ReadTimeout     time.Duration `mapstructure:"read_timeout" yaml:"read_timeout" toml:"read_timeout" json:"read_timeout" validate:"gte=0"`
	WriteTimeout    time.Duration `mapstructure:"write_timeout" yaml:"write_timeout" toml:"write_timeout" json:"write_timeout" validate:"gte=0"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout" toml:"shutdown_timeout" json:"shutdown_timeout" validate:"gte=0"`

	// 同時に処理する接続数の上限 (0 は無制限)
	MaxConnections int `mapstructure:"max_connections" yaml:"max_connections" toml:"max_connections" json:"max_connections" validate:"gte=0"`

	// リクエスト読み込み用バッファサイズ
	ReadBufferSize int `mapstructure:"read_buffer_size" yaml:"read_buffer_size" toml:"read_buffer_size" json:"read_buffer_size" validate:"gt=0"`

	// リクエストラインのトークン長の上限
	MaxTokenLength int `mapstructure:"max_token_length" yaml:"max_token_length" toml:"max_token_length" json:"max_token_length" validate:"gt=0"`
	MaxPathLength  int `mapstructure:"max_path_length" yaml:"max_path_length" toml:"max_path_length" json:"max_path_length" validate:"gt=0"`
}

// StaticConfig は静的ファイル配信の設定
type StaticConfig struct {
	Root      string `mapstructure:"root" yaml:"root" toml:"root" json:"root" validate:"required"` // 公開ディレクトリ
	ChunkSize int    `mapstructure:"chunk_size" yaml:"chunk_size" toml:"chunk_size" json:"chunk_size" validate:"gt=0"`
}

// AdminConfig は管理用APIの設定
type AdminConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled" toml:"enabled" json:"enabled"`
	Addr    string `mapstructure:"addr" yaml:"addr" toml:"addr" json:"addr" validate:"required_if=Enabled true"`
}

// LogConfig はログ出力の設定
type LogConfig struct {
	Level string `mapstructure:"level" yaml:"level" toml:"level" json:"level" validate:"omitempty,oneof=debug info warn warning error"`
}

// Default はデフォルト設定を返す
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            80,
			ReadTimeout:     10 * time.Second,
			WriteTimeout:    10 * time.Second,
			ShutdownTimeout: 5 * time.Second,
			MaxConnections:  1024,
			ReadBufferSize:  4096,
			MaxTokenLength:  16,
			MaxPathLength:   2048,
		},
		Static: StaticConfig{
			Root:      "./static",
			ChunkSize: 1024,
		},
		Admin: AdminConfig{
			Enabled: false,
			Addr:    "127.0.0.1:8081",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load は設定を読み込む
// 優先順位: 環境変数 > 設定ファイル > デフォルト値
// path が空の場合は MINIHTTPD_CONFIG を参照し、それも空ならファイルは読まない
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v, Default())

	// 環境変数のバインド
	envs := map[string][]string{
		"server.host":            {"SERVER_HOST"},
		"server.port":            {"SERVER_PORT", "PORT"},
		"server.max_connections": {"MAX_CONNECTIONS"},
		"static.root":            {"STATIC_ROOT"},
		"admin.enabled":          {"ADMIN_ENABLED"},
		"admin.addr":             {"ADMIN_ADDR"},
		"log.level":              {"LOG_LEVEL"},
	}
	for key, names := range envs {
		if err := v.BindEnv(append([]string{key}, names...)...); err != nil {
			return nil, fmt.Errorf("環境変数のバインドに失敗: %w", err)
		}
	}

	if path == "" {
		path = os.Getenv(ConfigFileEnv)
	}
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("設定ファイルの読み込みに失敗: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("設定の展開に失敗: %w", err)
	}

	// 設定の検証
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("設定の検証に失敗: %w", err)
	}

	return &cfg, nil
}

// setDefaults はデフォルト値をviperに登録する
func setDefaults(v *viper.Viper, d *Config) {
	v.SetDefault("server.host", d.Server.Host)
	v.SetDefault("server.port", d.Server.Port)
	v.SetDefault("server.read_timeout", d.Server.ReadTimeout)
	v.SetDefault("server.write_timeout", d.Server.WriteTimeout)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)
	v.SetDefault("server.max_connections", d.Server.MaxConnections)
	v.SetDefault("server.read_buffer_size", d.Server.ReadBufferSize)
	v.SetDefault("server.max_token_length", d.Server.MaxTokenLength)
	v.SetDefault("server.max_path_length", d.Server.MaxPathLength)
	v.SetDefault("static.root", d.Static.Root)
	v.SetDefault("static.chunk_size", d.Static.ChunkSize)
	v.SetDefault("admin.enabled", d.Admin.Enabled)
	v.SetDefault("admin.addr", d.Admin.Addr)
	v.SetDefault("log.level", d.Log.Level)
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Validate は設定の妥当性を検証する
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) && len(verrs) > 0 {
			fe := verrs[0]
			return fmt.Errorf("無効な設定値 %s=%v (%s)", fe.Namespace(), fe.Value(), fe.Tag())
		}
		return err
	}
	return nil
}

// ServerAddress はサーバーのリッスンアドレスを返す
func (c *Config) ServerAddress() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Encode は設定を指定フォーマット (yaml, toml, json) で出力する
func (c *Config) Encode(format string) ([]byte, error) {
	switch format {
	case "yaml", "yml", "":
		return yaml.Marshal(c)
	case "toml":
		var buf bytes.Buffer
		if err := toml.NewEncoder(&buf).Encode(c); err != nil {
			return nil, err
		}
		return buf.Bytes(), nil
	case "json":
		return json.MarshalIndent(c, "", "  ")
	default:
		return nil, fmt.Errorf("未対応のフォーマット: %s", format)
	}
}
