// Package config loads the s4admin configuration from an INI file.
package config

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/ini.v1"

	"github.com/slmtnm/s4admin/internal/auth"
)

// FileName is the name of the configuration file.
const FileName = ".s4admin"

// Environment overrides.
const (
	EnvAPIBase = "S4ADMIN_API_BASE"
	EnvToken   = "S4ADMIN_TOKEN"
)

// Config holds the client configuration and, for the development server,
// the storage and server sections.
type Config struct {
	Path string // file the configuration was loaded from, if any

	APIBase   string
	Token     string
	TokenFile string
	Timeout   time.Duration

	LogLevel  string
	LogFormat string
	LogFile   string

	Storage StorageConfig
	Server  ServerConfig
}

// StorageConfig holds the S3 settings used by the development media API.
// The keys follow s3cmd's .s3cfg.
type StorageConfig struct {
	AccessKey string
	SecretKey string
	HostBase  string
	UseHTTPS  bool
	Region    string
	Bucket    string
	PublicURL string
}

// ServerConfig holds the development media API settings.
type ServerConfig struct {
	Listen    string
	Database  string
	JWTSecret string
}

// Default returns the configuration used when no file exists.
func Default() *Config {
	return &Config{
		APIBase:   "http://localhost:8080",
		TokenFile: "~/.s4admin_token",
		Timeout:   30 * time.Second,
		LogLevel:  "info",
		LogFormat: "console",
		Storage: StorageConfig{
			HostBase: "s3.amazonaws.com",
			UseHTTPS: true,
			Region:   "us-east-1",
		},
		Server: ServerConfig{
			Listen:   ":8080",
			Database: "s4admin.db",
		},
	}
}

// SearchPaths lists the locations checked by Find, in order.
func SearchPaths() []string {
	paths := []string{FileName}
	if home, err := os.UserHomeDir(); err == nil {
		paths = append(paths, filepath.Join(home, FileName))
	}
	return append(paths, "/etc/s4admin")
}

// Find returns the first existing configuration file, or "".
func Find() string {
	for _, path := range SearchPaths() {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}
	return ""
}

// Load reads the configuration from path, or from the first file in
// SearchPaths when path is empty. A missing file yields the defaults; the
// environment overrides are applied either way.
func Load(path string) (*Config, error) {
	if path == "" {
		path = Find()
	}

	cfg := Default()
	if path != "" {
		loaded, err := LoadFile(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	cfg.applyEnv()
	return cfg, nil
}

// LoadFile reads one configuration file without environment overrides.
func LoadFile(path string) (*Config, error) {
	file, err := ini.Load(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load %s: %w", path, err)
	}

	def := Default()
	section := file.Section("default")
	storage := file.Section("storage")
	server := file.Section("server")

	cfg := &Config{
		Path:      path,
		APIBase:   strings.TrimRight(section.Key("api_base").MustString(def.APIBase), "/"),
		Token:     section.Key("token").String(),
		TokenFile: section.Key("token_file").MustString(def.TokenFile),
		Timeout:   section.Key("timeout").MustDuration(def.Timeout),
		LogLevel:  section.Key("log_level").MustString(def.LogLevel),
		LogFormat: section.Key("log_format").MustString(def.LogFormat),
		LogFile:   section.Key("log_file").String(),
		Storage: StorageConfig{
			AccessKey: storage.Key("access_key").String(),
			SecretKey: storage.Key("secret_key").String(),
			HostBase:  storage.Key("host_base").MustString(def.Storage.HostBase),
			UseHTTPS:  storage.Key("use_https").MustBool(def.Storage.UseHTTPS),
			Region:    storage.Key("bucket_location").MustString(def.Storage.Region),
			Bucket:    storage.Key("bucket").String(),
			PublicURL: strings.TrimRight(storage.Key("public_url").String(), "/"),
		},
		Server: ServerConfig{
			Listen:    server.Key("listen").MustString(def.Server.Listen),
			Database:  server.Key("database").MustString(def.Server.Database),
			JWTSecret: server.Key("jwt_secret").String(),
		},
	}

	if cfg.APIBase == "" {
		return nil, fmt.Errorf("api_base must not be empty in %s", path)
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := strings.TrimSpace(os.Getenv(EnvAPIBase)); v != "" {
		c.APIBase = strings.TrimRight(v, "/")
	}
}

// TokenSource returns the bearer token lookup: the S4ADMIN_TOKEN variable,
// then the inline token, then the token file.
func (c *Config) TokenSource() auth.TokenSource {
	return auth.Chain{auth.Env(EnvToken), auth.Static(c.Token), auth.File(c.TokenFile)}
}

// EndpointURL returns the S3 endpoint URL for the storage section.
func (s StorageConfig) EndpointURL() string {
	protocol := "https"
	if !s.UseHTTPS {
		protocol = "http"
	}
	return fmt.Sprintf("%s://%s", protocol, s.HostBase)
}

// Configured reports whether S3 credentials and a bucket are present.
func (s StorageConfig) Configured() bool {
	return s.AccessKey != "" && s.SecretKey != "" && s.Bucket != ""
}

// Save writes c to path.
func Save(c *Config, path string) error {
	file := ini.Empty()

	section := file.Section("default")
	section.Key("api_base").SetValue(c.APIBase)
	if c.Token != "" {
		section.Key("token").SetValue(c.Token)
	}
	section.Key("token_file").SetValue(c.TokenFile)
	section.Key("timeout").SetValue(c.Timeout.String())
	section.Key("log_level").SetValue(c.LogLevel)
	section.Key("log_format").SetValue(c.LogFormat)
	if c.LogFile != "" {
		section.Key("log_file").SetValue(c.LogFile)
	}

	if c.Storage.Configured() {
		storage := file.Section("storage")
		storage.Key("access_key").SetValue(c.Storage.AccessKey)
		storage.Key("secret_key").SetValue(c.Storage.SecretKey)
		storage.Key("host_base").SetValue(c.Storage.HostBase)
		if c.Storage.UseHTTPS {
			storage.Key("use_https").SetValue("True")
		} else {
			storage.Key("use_https").SetValue("False")
		}
		storage.Key("bucket_location").SetValue(c.Storage.Region)
		storage.Key("bucket").SetValue(c.Storage.Bucket)
		if c.Storage.PublicURL != "" {
			storage.Key("public_url").SetValue(c.Storage.PublicURL)
		}
	}

	return file.SaveTo(path)
}

// InteractiveSetup asks for the client settings on in and writes prompts to
// out. It returns the configuration without saving it.
func InteractiveSetup(in io.Reader, out io.Writer) (*Config, error) {
	scanner := bufio.NewScanner(in)
	cfg := Default()

	ask := func(prompt, def string) (string, error) {
		if def != "" {
			fmt.Fprintf(out, "%s (default: %s): ", prompt, def)
		} else {
			fmt.Fprintf(out, "%s: ", prompt)
		}
		if !scanner.Scan() {
			if err := scanner.Err(); err != nil {
				return "", fmt.Errorf("failed to read input: %w", err)
			}
			return "", fmt.Errorf("failed to read input")
		}
		answer := strings.TrimSpace(scanner.Text())
		if answer == "" {
			return def, nil
		}
		return answer, nil
	}

	fmt.Fprintln(out, "s4admin setup")
	fmt.Fprintln(out, "=============")
	fmt.Fprintln(out)

	apiBase, err := ask("Admin API base URL", cfg.APIBase)
	if err != nil {
		return nil, err
	}
	if !strings.HasPrefix(apiBase, "http://") && !strings.HasPrefix(apiBase, "https://") {
		return nil, fmt.Errorf("api base must start with http:// or https://")
	}
	cfg.APIBase = strings.TrimRight(apiBase, "/")

	tokenFile, err := ask("Token file", cfg.TokenFile)
	if err != nil {
		return nil, err
	}
	cfg.TokenFile = tokenFile

	fmt.Fprintln(out)
	fmt.Fprintf(out, "Configuration summary:\n")
	fmt.Fprintf(out, "  API base: %s\n", cfg.APIBase)
	fmt.Fprintf(out, "  Token file: %s\n", cfg.TokenFile)
	return cfg, nil
}
