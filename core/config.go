package core

import (
	"fmt"
	"log"
	"net/mail"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	Config struct {
		Debug     bool
		TestMode  bool
		Env       string // DEV (default), TEST, QA, PROD
		Build     string
		AppName   string
		SecretKey string

		// Languages are the display languages exercise content may be
		// cached in. Invalidation fans out over all of them.
		Languages []string

		DefaultFromEmail mail.Address
		TechErrorEmail   string // fallback recipient for grader failures
		SendgridApiKey   string
		RollbarToken     string

		Server   ServerConfig
		Database DatabaseConfig
		Cache    CacheConfig
	}

	ServerConfig struct {
		Host      string
		DebugHost string
		// BaseURL is the absolute address of this deployment; callback URLs
		// sent to exercise services are built on it.
		BaseURL string
		// OverrideSubmissionHost replaces BaseURL in grader callback URLs
		// when set (useful behind internal load balancers).
		OverrideSubmissionHost string
		ShutdownTimeout        time.Duration
		GraderTimeout          time.Duration
		GraderTokenExpiration  time.Duration
	}

	DatabaseConfig struct {
		Engine        string
		Name          string
		User          string
		Password      string
		AdminUser     string
		AdminPassword string
		Host          string
		Port          string
		DisableTLS    bool
	}

	CacheConfig struct {
		// Backend is one of "memory" or "memcached".
		Backend        string
		MemcachedAddrs []string
	}
)

func (c DatabaseConfig) Address() string {
	return fmt.Sprintf("%s:%s", c.Host, c.Port)
}

// NewConfig loads the app configuration from the environment with sane
// defaults. A config/.env.<env> file is loaded first if it exists.
func NewConfig() *Config {
	v := viper.New()
	v.SetTypeByDefaultValue(true)

	// defaults
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Mazoezi")
	v.SetDefault("build", "dev")
	v.SetDefault("secretKey", "w#05h*yl0pa9&5e+9!y4-mz4e$19)s^1!b3f(dei7^tw=e_y+m")
	v.SetDefault("languages", []string{"en"})
	v.SetDefault("defaultFromEmail", "noreply@localhost")
	v.SetDefault("techErrorEmail", "")
	v.SetDefault("sendgridApiKey", "")
	v.SetDefault("rollbarToken", "")

	v.SetDefault("serverHost", "0.0.0.0:8000")
	v.SetDefault("serverDebugHost", "0.0.0.0:4000")
	v.SetDefault("serverBaseURL", "http://localhost:8000")
	v.SetDefault("serverOverrideSubmissionHost", "")
	v.SetDefault("serverShutdownTimeout", 5*time.Second)
	v.SetDefault("graderTimeout", 20*time.Second)
	v.SetDefault("graderTokenExpiration", 4*time.Hour)

	v.SetDefault("databaseEngine", "postgres")
	v.SetDefault("databaseName", "mazoezi")
	v.SetDefault("databaseUser", "")
	v.SetDefault("databasePassword", "")
	v.SetDefault("databaseAdminUser", "")
	v.SetDefault("databaseAdminPassword", "")
	v.SetDefault("databaseHost", "localhost")
	v.SetDefault("databasePort", "5432")
	v.SetDefault("databaseDisableTLS", true)

	v.SetDefault("cacheBackend", "memory")
	v.SetDefault("memcachedAddrs", []string{"localhost:11211"})

	env := strings.ToUpper(os.Getenv("ENV"))
	if env == "" {
		env = "DEV"
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err = godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	conf := &Config{
		Debug:     v.GetBool("debug"),
		TestMode:  env == "TEST",
		Env:       env,
		Build:     v.GetString("build"),
		AppName:   v.GetString("appName"),
		SecretKey: v.GetString("secretKey"),
		Languages: v.GetStringSlice("languages"),
		DefaultFromEmail: mail.Address{
			Name:    v.GetString("appName"),
			Address: v.GetString("defaultFromEmail"),
		},
		TechErrorEmail: v.GetString("techErrorEmail"),
		SendgridApiKey: v.GetString("sendgridApiKey"),
		RollbarToken:   v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:                   v.GetString("serverHost"),
			DebugHost:              v.GetString("serverDebugHost"),
			BaseURL:                strings.TrimRight(v.GetString("serverBaseURL"), "/"),
			OverrideSubmissionHost: strings.TrimRight(v.GetString("serverOverrideSubmissionHost"), "/"),
			ShutdownTimeout:        v.GetDuration("serverShutdownTimeout"),
			GraderTimeout:          v.GetDuration("graderTimeout"),
			GraderTokenExpiration:  v.GetDuration("graderTokenExpiration"),
		},
		Database: DatabaseConfig{
			Engine:        v.GetString("databaseEngine"),
			Name:          v.GetString("databaseName"),
			User:          v.GetString("databaseUser"),
			Password:      v.GetString("databasePassword"),
			AdminUser:     v.GetString("databaseAdminUser"),
			AdminPassword: v.GetString("databaseAdminPassword"),
			Host:          v.GetString("databaseHost"),
			Port:          v.GetString("databasePort"),
			DisableTLS:    v.GetBool("databaseDisableTLS"),
		},
		Cache: CacheConfig{
			Backend:        v.GetString("cacheBackend"),
			MemcachedAddrs: v.GetStringSlice("memcachedAddrs"),
		},
	}
	return conf
}
