package core

import (
	"fmt"
	"log"
	"net"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

const (
	EngineSqlite   = "sqlite"
	EnginePostgres = "postgres"

	StorageLocal = "local"
	StorageS3    = "s3"
)

type (
	Config struct {
		AppName           string
		Env               string // DEV (local; default), TEST, QA, PROD
		Build             string
		Debug             bool
		TestMode          bool
		SecretKey         string
		FrontendBaseURL   string
		SecureSSL         bool
		DefaultSiteDomain string
		WorkDir           string
		RollbarToken      string

		PasswordResetTimeoutDelta time.Duration

		defaultFromEmail string

		Server   ServerConfig
		Database DatabaseConfig
		Mail     MailConfig
		Storage  StorageConfig
	}

	ServerConfig struct {
		Address                   string
		DebugAddress              string
		Host                      string
		JWTExpirationDelta        time.Duration
		JWTRefreshExpirationDelta time.Duration
		ShutdownTimeout           time.Duration
		DisableReqLogs            bool
	}

	DatabaseConfig struct {
		Engine        string
		Host          string
		Port          string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		DisableTLS    bool
		Path          string // sqlite only
	}

	MailConfig struct {
		SendgridAPIKey          string
		NewsletterRatePerSecond float64
		NewsletterConcurrency   int
	}

	StorageConfig struct {
		Backend       string
		LocalRoot     string
		S3Bucket      string
		S3Region      string
		S3Endpoint    string
		MaxResumeSize int64
		MaxMediaSize  int64
	}
)

func (c DatabaseConfig) Address() string {
	return net.JoinHostPort(c.Host, c.Port)
}

// DefaultFromEmail parses the configured sender; falls back to noreply@localhost.
func (c *Config) DefaultFromEmail() mail.Address {
	addr, err := mail.ParseAddress(c.defaultFromEmail)
	if err != nil {
		return mail.Address{Address: "noreply@localhost"}
	}
	return *addr
}

func (c *Config) Validate() error {
	if c.SecretKey == "" || (c.Env == "PROD" && c.SecretKey == defaultSecretKey) {
		return errors.New("config: a secret key must be set")
	}
	switch c.Database.Engine {
	case EnginePostgres, EngineSqlite:
	default:
		return errors.Errorf("config: unknown database engine %q", c.Database.Engine)
	}
	switch c.Storage.Backend {
	case StorageLocal:
	case StorageS3:
		if c.Storage.S3Bucket == "" {
			return errors.New("config: s3 storage requires a bucket")
		}
	default:
		return errors.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	return nil
}

const defaultSecretKey = "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy"

func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "Habari")
	v.SetDefault("build", "develop")
	v.SetDefault("secretKey", defaultSecretKey)
	v.SetDefault("defaultFromEmail", "Habari <noreply@localhost>")
	v.SetDefault("frontendBaseURL", "http://localhost:8080")
	v.SetDefault("secureSSL", false)
	v.SetDefault("defaultSiteDomain", "localhost")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("passwordResetTimeoutDelta", 3*24*time.Hour)

	v.SetDefault("server_address", ":8000")
	v.SetDefault("server_debugAddress", ":4000")
	v.SetDefault("server_host", "localhost")
	v.SetDefault("server_jwtExpirationDelta", 4*time.Hour)
	v.SetDefault("server_jwtRefreshExpirationDelta", 7*24*time.Hour)
	v.SetDefault("server_shutdownTimeout", 5*time.Second)
	v.SetDefault("server_disableReqLogs", false)

	v.SetDefault("database_engine", EngineSqlite)
	v.SetDefault("database_host", "localhost")
	v.SetDefault("database_port", "5432")
	v.SetDefault("database_name", "habari")
	v.SetDefault("database_user", "habari")
	v.SetDefault("database_password", "")
	v.SetDefault("database_adminUser", "postgres")
	v.SetDefault("database_adminPassword", "")
	v.SetDefault("database_disableTLS", true)
	v.SetDefault("database_path", "habari.db")

	v.SetDefault("mail_sendgridAPIKey", "")
	v.SetDefault("mail_newsletterRatePerSecond", 10.0)
	v.SetDefault("mail_newsletterConcurrency", 4)

	v.SetDefault("storage_backend", StorageLocal)
	v.SetDefault("storage_localRoot", "media")
	v.SetDefault("storage_s3Bucket", "")
	v.SetDefault("storage_s3Region", "us-east-1")
	v.SetDefault("storage_s3Endpoint", "")
	v.SetDefault("storage_maxResumeSize", int64(5<<20))
	v.SetDefault("storage_maxMediaSize", int64(20<<20))

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
		v.SetDefault("database_path", ":memory:")
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	wd := Getwd()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:                   v.GetString("appName"),
		Env:                       env,
		Build:                     v.GetString("build"),
		Debug:                     v.GetBool("debug"),
		TestMode:                  v.GetBool("testMode"),
		SecretKey:                 v.GetString("secretKey"),
		FrontendBaseURL:           strings.TrimRight(v.GetString("frontendBaseURL"), "/"),
		SecureSSL:                 v.GetBool("secureSSL"),
		DefaultSiteDomain:         v.GetString("defaultSiteDomain"),
		WorkDir:                   wd,
		RollbarToken:              v.GetString("rollbarToken"),
		PasswordResetTimeoutDelta: v.GetDuration("passwordResetTimeoutDelta"),
		defaultFromEmail:          v.GetString("defaultFromEmail"),
		Server: ServerConfig{
			Address:                   v.GetString("server_address"),
			DebugAddress:              v.GetString("server_debugAddress"),
			Host:                      v.GetString("server_host"),
			JWTExpirationDelta:        v.GetDuration("server_jwtExpirationDelta"),
			JWTRefreshExpirationDelta: v.GetDuration("server_jwtRefreshExpirationDelta"),
			ShutdownTimeout:           v.GetDuration("server_shutdownTimeout"),
			DisableReqLogs:            v.GetBool("server_disableReqLogs"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("database_engine"),
			Host:          v.GetString("database_host"),
			Port:          v.GetString("database_port"),
			Name:          v.GetString("database_name"),
			User:          v.GetString("database_user"),
			Password:      v.GetString("database_password"),
			AdminUser:     v.GetString("database_adminUser"),
			AdminPassword: v.GetString("database_adminPassword"),
			DisableTLS:    v.GetBool("database_disableTLS"),
			Path:          v.GetString("database_path"),
		},
		Mail: MailConfig{
			SendgridAPIKey:          v.GetString("mail_sendgridAPIKey"),
			NewsletterRatePerSecond: v.GetFloat64("mail_newsletterRatePerSecond"),
			NewsletterConcurrency:   v.GetInt("mail_newsletterConcurrency"),
		},
		Storage: StorageConfig{
			Backend:       v.GetString("storage_backend"),
			LocalRoot:     v.GetString("storage_localRoot"),
			S3Bucket:      v.GetString("storage_s3Bucket"),
			S3Region:      v.GetString("storage_s3Region"),
			S3Endpoint:    v.GetString("storage_s3Endpoint"),
			MaxResumeSize: v.GetInt64("storage_maxResumeSize"),
			MaxMediaSize:  v.GetInt64("storage_maxMediaSize"),
		},
	}
}

// NewTestConfig returns a Config suitable for tests: in-memory sqlite, local storage, no debug output.
func NewTestConfig() *Config {
	conf := NewConfig()
	conf.Env = "TEST"
	conf.TestMode = true
	conf.Debug = false
	conf.SecretKey = "secret"
	conf.Database.Engine = EngineSqlite
	conf.Database.Path = ":memory:"
	conf.Storage.Backend = StorageLocal
	conf.Storage.LocalRoot = filepath.Join(os.TempDir(), fmt.Sprintf("habari-test-%d", os.Getpid()))
	conf.Server.DisableReqLogs = true
	conf.Mail.NewsletterRatePerSecond = 0 // unlimited
	return conf
}
