package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Header constants.
const (
	HEADER_KEY_X_USER_ID   = "X-User-Id"
	HEADER_KEY_X_CLIENT_ID = "X-Client-Id"
	HEADER_KEY_X_UID       = "X-Uid"

	// HEADER_KEY_X_AUTH_REDIRECT tells the client where to re-authenticate.
	HEADER_KEY_X_AUTH_REDIRECT   = "X-Auth-Redirect"
	// HEADER_KEY_X_AUTH_REDIRECTED is sent back by a client that already
	// followed a re-authentication redirect.
	HEADER_KEY_X_AUTH_REDIRECTED = "X-Auth-Redirected"
)

const (
	ENV_KEY_APP_ENV      = "APP_ENV"
	ENV_KEY_PORT         = "PORT"
	ENV_KEY_LOG_LEVEL    = "LOG_LEVEL"
	ENV_KEY_SERVICE_NAME = "SERVICE_NAME"
	ENV_KEY_CLIENT_ID    = "CLIENT_ID"
	ENV_KEY_LOGIN_PATH   = "LOGIN_PATH"

	ENV_KEY_DB_DATABASE             = "DB_DATABASE"
	ENV_KEY_DB_PASSWORD             = "DB_PASSWORD"
	ENV_KEY_DB_USER                 = "DB_USER"
	ENV_KEY_DB_PORT                 = "DB_PORT"
	ENV_KEY_DB_HOST                 = "DB_HOST"
	ENV_KEY_DB_MAX_OPEN_CONNECTIONS = "DB_MAX_OPEN_CONNECTIONS"

	ENV_KEY_REDIS_HOST         = "REDIS_HOST"
	ENV_KEY_REDIS_PORT         = "REDIS_PORT"
	ENV_KEY_REDIS_PASSWORD     = "REDIS_PASSWORD"
	ENV_KEY_WORKER_CONCURRENCY = "WORKER_CONCURRENCY"
	ENV_KEY_SWEEP_CRON         = "SWEEP_CRON"
	ENV_KEY_SWEEP_GRACE_PERIOD = "SWEEP_GRACE_PERIOD"
	ENV_KEY_SWEEP_REPORT_TO    = "SWEEP_REPORT_TO"

	ENV_KEY_STORAGE_BACKEND = "STORAGE_BACKEND"

	ENV_KEY_MINIO_BUCKET      = "MINIO_BUCKET"
	ENV_KEY_MINIO_PUBLIC_PATH = "MINIO_PUBLIC_PATH"
	ENV_KEY_MINIO_ENDPOINT    = "MINIO_ENDPOINT"
	ENV_KEY_MINIO_ACCESS_KEY  = "MINIO_ACCESS_KEY"
	ENV_KEY_MINIO_SECRET_KEY  = "MINIO_SECRET_KEY"

	ENV_KEY_S3_BUCKET      = "S3_BUCKET"
	ENV_KEY_S3_REGION      = "S3_REGION"
	ENV_KEY_S3_PUBLIC_PATH = "S3_PUBLIC_PATH"
	ENV_KEY_S3_PUBLIC_URL  = "S3_PUBLIC_URL"

	ENV_KEY_GCS_BUCKET           = "GCS_BUCKET"
	ENV_KEY_GCS_CREDENTIALS_PATH = "GCS_CREDENTIALS_PATH"
	ENV_KEY_CDN_DOMAIN           = "CDN_DOMAIN"

	ENV_KEY_LOCAL_STORAGE_PATH     = "LOCAL_STORAGE_PATH"
	ENV_KEY_LOCAL_STORAGE_BASE_URL = "LOCAL_STORAGE_BASE_URL"

	ENV_KEY_STAGING_DIR           = "STAGING_DIR"
	ENV_KEY_MAX_UPLOAD_BYTES      = "MAX_UPLOAD_BYTES"
	ENV_KEY_MAX_IMAGE_BYTES       = "MAX_IMAGE_BYTES"
	ENV_KEY_UPLOAD_CONCURRENCY    = "UPLOAD_CONCURRENCY"
	ENV_KEY_DELETE_RATE_PER_SEC   = "DELETE_RATE_PER_SEC"
	ENV_KEY_REMOTE_DELETE_TIMEOUT = "REMOTE_DELETE_TIMEOUT"

	ENV_KEY_SMTP_HOST     = "SMTP_HOST"
	ENV_KEY_SMTP_PORT     = "SMTP_PORT"
	ENV_KEY_SMTP_USERNAME = "SMTP_USERNAME"
	ENV_KEY_SMTP_PASSWORD = "SMTP_PASSWORD"
	ENV_KEY_MAIL_FROM     = "MAIL_FROM"

	ENV_KEY_FIREBASE_SERVICE_ACCOUNT_KEY_PATH = "FIREBASE_SERVICE_ACCOUNT_KEY_PATH"

	ENV_KEY_OTEL_EXPORTER_OTLP_ENDPOINT = "OTEL_EXPORTER_OTLP_ENDPOINT"
)

// Defaults.
const (
	DEFAULT_MAX_UPLOAD_BYTES      = 200 << 20
	DEFAULT_MAX_IMAGE_BYTES       = 20 << 20
	DEFAULT_UPLOAD_CONCURRENCY    = 4
	DEFAULT_DELETE_RATE_PER_SEC   = 10
	DEFAULT_REMOTE_DELETE_TIMEOUT = 30 * time.Second
	DEFAULT_SWEEP_CRON            = "@daily"
	DEFAULT_SWEEP_GRACE_PERIOD    = 24 * time.Hour
	DEFAULT_LOGIN_PATH            = "/login"
	DEFAULT_STAGING_DIR           = "tmp/staging"
)

// Task types.
const (
	TASK_TYPE_SWEEP_ORPHANS = "assets:sweep"
)

type ContextKey uint

const (
	_ ContextKey = iota
	CTX_KEY_USER_ID
	CTX_KEY_USER_ROLE
	CTX_KEY_SESSION
)

// IsLocal reports whether APP_ENV is "local".
func IsLocal() bool {
	return os.Getenv(ENV_KEY_APP_ENV) == "local"
}

// Int reads an integer env value, falling back to def when unset or invalid.
func Int(key string, def int) int {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func Int64(key string, def int64) int64 {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil || n <= 0 {
		return def
	}
	return n
}

func Duration(key string, def time.Duration) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}

func String(key, def string) string {
	if v := strings.TrimSpace(os.Getenv(key)); v != "" {
		return v
	}
	return def
}
