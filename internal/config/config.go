// Package config loads the intake server settings from the environment.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Addr           string
	BackendURL     string
	SubmitPath     string
	CSRFCookie     string
	SubmitTimeout  time.Duration
	AllowedOrigins []string
	InsecureDev    bool
	MaxConnsPerIP  int
	MaxConns       int
	LogLevel       string
	LogFormat      string
}

// Load reads an optional .env file and then the process environment.
// Variables already set in the environment win over the file.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the process environment only.
func FromEnv() *Config {
	return &Config{
		Addr:           getEnv("INTAKE_ADDR", ":3000"),
		BackendURL:     getEnv("INTAKE_BACKEND_URL", "http://localhost:5000"),
		SubmitPath:     getEnv("INTAKE_SUBMIT_PATH", "/new_case"),
		CSRFCookie:     getEnv("INTAKE_CSRF_COOKIE", "csrf_token"),
		SubmitTimeout:  getEnvAsDuration("INTAKE_SUBMIT_TIMEOUT", 0),
		AllowedOrigins: getEnvAsList("INTAKE_ALLOWED_ORIGINS"),
		InsecureDev:    getEnvAsBool("INTAKE_INSECURE_DEV", false),
		MaxConnsPerIP:  getEnvAsInt("INTAKE_MAX_CONNS_PER_IP", 20),
		MaxConns:       getEnvAsInt("INTAKE_MAX_CONNS", 1000),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", "info")),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}
}

// Validate reports settings the server cannot start with.
func (c *Config) Validate() error {
	var errs []error

	u, err := url.Parse(c.BackendURL)
	switch {
	case err != nil:
		errs = append(errs, fmt.Errorf("backend url: %w", err))
	case u.Scheme != "http" && u.Scheme != "https":
		errs = append(errs, fmt.Errorf("backend url %q: scheme must be http or https", c.BackendURL))
	case u.Host == "":
		errs = append(errs, fmt.Errorf("backend url %q: missing host", c.BackendURL))
	}

	if !strings.HasPrefix(c.SubmitPath, "/") {
		errs = append(errs, fmt.Errorf("submit path %q must start with /", c.SubmitPath))
	}
	if c.SubmitTimeout < 0 {
		errs = append(errs, errors.New("submit timeout must not be negative"))
	}
	if c.MaxConnsPerIP < 1 || c.MaxConns < 1 {
		errs = append(errs, errors.New("connection limits must be positive"))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errs = append(errs, fmt.Errorf("log format %q: want text or json", c.LogFormat))
	}

	return errors.Join(errs...)
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsList splits a comma separated variable, dropping blanks.
func getEnvAsList(key string) []string {
	var out []string
	for _, part := range strings.Split(getEnv(key, ""), ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
