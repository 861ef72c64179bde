package core

import (
	"net/mail"
	"time"
)

type nopLogger struct{}

var _ Logger = (*nopLogger)(nil)

func (nopLogger) Debug(msg string, args ...interface{}) {}
func (nopLogger) Info(msg string, args ...interface{})  {}
func (nopLogger) Warn(msg string, args ...interface{})  {}
func (nopLogger) Error(msg string, args ...interface{}) {}
func (nopLogger) Fatal(msg string, args ...interface{}) {}

// NewNopLogger returns a Logger that drops everything.
func NewNopLogger() Logger { return nopLogger{} }

// NewTestConfig returns a fixed Config for tests; the environment is not
// consulted.
func NewTestConfig() *Config {
	return &Config{
		TestMode:         true,
		Env:              "TEST",
		Build:            "test",
		AppName:          "Mazoezi",
		SecretKey:        "s3cr3t",
		Languages:        []string{"en", "fi"},
		DefaultFromEmail: mail.Address{Name: "Mazoezi", Address: "noreply@test.cd"},
		TechErrorEmail:   "errors@test.cd",
		Server: ServerConfig{
			Host:                  "localhost:8000",
			BaseURL:               "http://localhost:8000",
			ShutdownTimeout:       5 * time.Second,
			GraderTimeout:         5 * time.Second,
			GraderTokenExpiration: time.Hour,
		},
		Cache: CacheConfig{Backend: "memory"},
	}
}
