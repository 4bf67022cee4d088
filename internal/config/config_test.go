package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestConfigLoad は設定の読み込みをテストする
func TestConfigLoad(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	// 設定を読み込む
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	// 基本的な設定値を検証
	if cfg == nil {
		t.Fatal("設定がnilです")
	}

	// サーバー設定の検証
	if cfg.Server.Host == "" {
		t.Error("サーバーホストが設定されていません")
	}
	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		t.Errorf("無効なポート番号: %d", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout <= 0 {
		t.Error("読み込みタイムアウトが設定されていません")
	}
	if cfg.Server.WriteTimeout < 0 {
		t.Error("書き込みタイムアウトが負の値です")
	}
	if cfg.Server.ReadBufferSize != 4096 {
		t.Errorf("読み込みバッファサイズ: got %d, want 4096", cfg.Server.ReadBufferSize)
	}

	// 静的ファイル設定の検証
	if cfg.Static.Root != "./static" {
		t.Errorf("公開ディレクトリ: got %s, want ./static", cfg.Static.Root)
	}
	if cfg.Static.ChunkSize != 1024 {
		t.Errorf("チャンクサイズ: got %d, want 1024", cfg.Static.ChunkSize)
	}

	if cfg.Admin.Enabled {
		t.Error("管理APIはデフォルトで無効であるべきです")
	}
}

// TestConfigValidation は設定の検証をテストする
func TestConfigValidation(t *testing.T) {
	valid := func(mutate func(c *Config)) *Config {
		c := Default()
		mutate(c)
		return c
	}

	testCases := []struct {
		name      string
		config    *Config
		expectErr bool
	}{
		{
			name:      "正常な設定",
			config:    Default(),
			expectErr: false,
		},
		{
			name:      "無効なポート番号",
			config:    valid(func(c *Config) { c.Server.Port = 99999 }),
			expectErr: true,
		},
		{
			name:      "負のポート番号",
			config:    valid(func(c *Config) { c.Server.Port = -1 }),
			expectErr: true,
		},
		{
			name:      "バッファサイズ0",
			config:    valid(func(c *Config) { c.Server.ReadBufferSize = 0 }),
			expectErr: true,
		},
		{
			name:      "チャンクサイズ0",
			config:    valid(func(c *Config) { c.Static.ChunkSize = 0 }),
			expectErr: true,
		},
		{
			name:      "公開ディレクトリなし",
			config:    valid(func(c *Config) { c.Static.Root = "" }),
			expectErr: true,
		},
		{
			name:      "負のタイムアウト",
			config:    valid(func(c *Config) { c.Server.ReadTimeout = -time.Second }),
			expectErr: true,
		},
		{
			name:      "接続数無制限",
			config:    valid(func(c *Config) { c.Server.MaxConnections = 0 }),
			expectErr: false,
		},
		{
			name: "管理APIのアドレスなし",
			config: valid(func(c *Config) {
				c.Admin.Enabled = true
				c.Admin.Addr = ""
			}),
			expectErr: true,
		},
		{
			name:      "不明なログレベル",
			config:    valid(func(c *Config) { c.Log.Level = "verbose" }),
			expectErr: true,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.config.Validate()
			if tc.expectErr && err == nil {
				t.Error("エラーが期待されましたが、エラーが発生しませんでした")
			}
			if !tc.expectErr && err != nil {
				t.Errorf("予期しないエラーが発生しました: %v", err)
			}
		})
	}
}

// TestServerAddress はサーバーアドレスの生成をテストする
func TestServerAddress(t *testing.T) {
	cfg := &Config{
		Server: ServerConfig{
			Host: "192.168.1.100",
			Port: 9090,
		},
	}

	expected := "192.168.1.100:9090"
	actual := cfg.ServerAddress()

	if actual != expected {
		t.Errorf("サーバーアドレスが一致しません: got %s, want %s", actual, expected)
	}
}

// TestEnvironmentVariables は環境変数の処理をテストする
func TestEnvironmentVariables(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")
	t.Setenv("SERVER_HOST", "test.example.com")
	t.Setenv("SERVER_PORT", "9999")
	t.Setenv("STATIC_ROOT", "/srv/www")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Host != "test.example.com" {
		t.Errorf("環境変数のホストが反映されていません: got %s, want test.example.com", cfg.Server.Host)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("環境変数のポートが反映されていません: got %d, want 9999", cfg.Server.Port)
	}
	if cfg.Static.Root != "/srv/www" {
		t.Errorf("環境変数の公開ディレクトリが反映されていません: got %s", cfg.Static.Root)
	}
}

// TestConfigFile はYAML設定ファイルの読み込みをテストする
func TestConfigFile(t *testing.T) {
	t.Setenv(ConfigFileEnv, "")

	dir := t.TempDir()
	path := filepath.Join(dir, "minihttpd.yaml")
	content := `server:
  port: 8088
  read_timeout: 3s
  max_connections: 16
static:
  root: /var/www
log:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("設定ファイルの作成に失敗しました: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("設定の読み込みに失敗しました: %v", err)
	}

	if cfg.Server.Port != 8088 {
		t.Errorf("ポート: got %d, want 8088", cfg.Server.Port)
	}
	if cfg.Server.ReadTimeout != 3*time.Second {
		t.Errorf("読み込みタイムアウト: got %v, want 3s", cfg.Server.ReadTimeout)
	}
	if cfg.Server.MaxConnections != 16 {
		t.Errorf("最大接続数: got %d, want 16", cfg.Server.MaxConnections)
	}
	if cfg.Static.Root != "/var/www" {
		t.Errorf("公開ディレクトリ: got %s, want /var/www", cfg.Static.Root)
	}
	// ファイルに無い値はデフォルトのまま
	if cfg.Static.ChunkSize != 1024 {
		t.Errorf("チャンクサイズ: got %d, want 1024", cfg.Static.ChunkSize)
	}
	if cfg.Log.Level != "debug" {
		t.Errorf("ログレベル: got %s, want debug", cfg.Log.Level)
	}
}

// TestConfigFileMissing は存在しない設定ファイルがエラーになることをテストする
func TestConfigFileMissing(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("存在しない設定ファイルでエラーが期待されました")
	}
}

// TestEncode は設定の出力フォーマットをテストする
func TestEncode(t *testing.T) {
	cfg := Default()

	testCases := []struct {
		format string
		want   string
	}{
		{"yaml", "chunk_size: 1024"},
		{"toml", "chunk_size = 1024"},
		{"json", `"chunk_size": 1024`},
	}

	for _, tc := range testCases {
		t.Run(tc.format, func(t *testing.T) {
			out, err := cfg.Encode(tc.format)
			if err != nil {
				t.Fatalf("出力に失敗しました: %v", err)
			}
			if !strings.Contains(string(out), tc.want) {
				t.Errorf("出力に %q が含まれていません:\n%s", tc.want, out)
			}
		})
	}

	if _, err := cfg.Encode("xml"); err == nil {
		t.Error("未対応のフォーマットでエラーが期待されました")
	}
}
