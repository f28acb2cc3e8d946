// Package config loads relay and client configuration from the environment,
// an optional YAML file, and explicit overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/piyushdolas8/skillswap/internal/storage"
)

const (
	StorageLocal = "local"
	StorageS3    = "s3"

	defaultPort           = 3005
	defaultMaxUploadBytes = 10 << 20
)

// RelayConfig holds relay server configuration.
type RelayConfig struct {
	// Addr is the listen address for the HTTP(S) server.
	Addr           string
	MasterSecret   string
	Debug          bool
	AllowedOrigins []string
	// PublicURL is how clients reach this relay. Local file URLs are built
	// on it.
	PublicURL string

	Storage        StorageConfig
	MaxUploadBytes int64

	// Metrics mounts /metrics.
	Metrics bool
	// Advertise announces the relay on the LAN over mDNS.
	Advertise    bool
	MDNSInstance string

	// TLS holds HTTPS configuration. If nil, the relay runs in plain HTTP
	// mode.
	TLS *TLSConfig
}

// StorageConfig selects where shared files go.
type StorageConfig struct {
	// Backend is StorageLocal or StorageS3.
	Backend  string
	LocalDir string
	S3       storage.S3Config
}

// TLSConfig holds file paths for serving HTTPS directly from the relay.
type TLSConfig struct {
	// CertFile is a PEM-encoded certificate chain.
	CertFile string
	// KeyFile is a PEM-encoded private key.
	KeyFile string
}

// RelayOverrides optionally overrides values from environment variables.
//
// A nil pointer means "use the environment/default value".
type RelayOverrides struct {
	Addr           *string
	MasterSecret   *string
	Debug          *bool
	PublicURL      *string
	StorageBackend *string
	Advertise      *bool
	TLS            *TLSConfig
}

// LoadRelay loads relay configuration from environment variables and applies
// any explicit overrides.
func LoadRelay(overrides RelayOverrides) (*RelayConfig, error) {
	port := defaultPort
	if portStr := os.Getenv("PORT"); portStr != "" {
		p, err := strconv.Atoi(portStr)
		if err != nil {
			return nil, fmt.Errorf("invalid PORT %q: %w", portStr, err)
		}
		port = p
	}

	addr := fmt.Sprintf(":%d", port)
	if overrides.Addr != nil {
		addr = *overrides.Addr
	}

	masterSecret := os.Getenv("SKILLSWAP_MASTER_SECRET")
	if overrides.MasterSecret != nil {
		masterSecret = *overrides.MasterSecret
	}
	if masterSecret == "" {
		return nil, fmt.Errorf("SKILLSWAP_MASTER_SECRET environment variable is required")
	}

	debug := envBool("DEBUG", false)
	if overrides.Debug != nil {
		debug = *overrides.Debug
	}

	publicURL := os.Getenv("SKILLSWAP_PUBLIC_URL")
	if overrides.PublicURL != nil {
		publicURL = *overrides.PublicURL
	}
	if publicURL == "" {
		scheme := "http"
		if overrides.TLS != nil {
			scheme = "https"
		}
		publicURL = fmt.Sprintf("%s://localhost%s", scheme, hostPort(addr))
	}
	publicURL = strings.TrimSuffix(publicURL, "/")

	origins := splitList(os.Getenv("SKILLSWAP_ALLOWED_ORIGINS"))
	if len(origins) == 0 {
		origins = []string{"*"}
	}

	st, err := loadStorage(overrides)
	if err != nil {
		return nil, err
	}

	maxUpload := int64(defaultMaxUploadBytes)
	if mb := os.Getenv("SKILLSWAP_MAX_UPLOAD_MB"); mb != "" {
		n, err := strconv.Atoi(mb)
		if err != nil || n <= 0 {
			return nil, fmt.Errorf("invalid SKILLSWAP_MAX_UPLOAD_MB %q", mb)
		}
		maxUpload = int64(n) << 20
	}

	advertise := envBool("SKILLSWAP_MDNS", false)
	if overrides.Advertise != nil {
		advertise = *overrides.Advertise
	}

	return &RelayConfig{
		Addr:           addr,
		MasterSecret:   masterSecret,
		Debug:          debug,
		AllowedOrigins: origins,
		PublicURL:      publicURL,
		Storage:        st,
		MaxUploadBytes: maxUpload,
		Metrics:        envBool("SKILLSWAP_METRICS", true),
		Advertise:      advertise,
		MDNSInstance:   os.Getenv("SKILLSWAP_MDNS_INSTANCE"),
		TLS:            overrides.TLS,
	}, nil
}

func loadStorage(overrides RelayOverrides) (StorageConfig, error) {
	backend := os.Getenv("SKILLSWAP_STORAGE")
	if overrides.StorageBackend != nil {
		backend = *overrides.StorageBackend
	}
	if backend == "" {
		backend = StorageLocal
	}

	st := StorageConfig{Backend: backend}
	switch backend {
	case StorageLocal:
		st.LocalDir = os.Getenv("SKILLSWAP_STORAGE_DIR")
		if st.LocalDir == "" {
			st.LocalDir = "./uploads"
		}
	case StorageS3:
		st.S3 = storage.S3Config{
			Bucket:          os.Getenv("S3_BUCKET"),
			Region:          os.Getenv("AWS_REGION"),
			Endpoint:        os.Getenv("S3_ENDPOINT"),
			Prefix:          os.Getenv("S3_PREFIX"),
			AccessKeyID:     os.Getenv("AWS_ACCESS_KEY_ID"),
			SecretAccessKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
			UsePathStyle:    envBool("S3_USE_PATH_STYLE", false),
			PublicBaseURL:   os.Getenv("S3_PUBLIC_URL"),
		}
		if st.S3.Bucket == "" {
			return StorageConfig{}, fmt.Errorf("S3_BUCKET is required for the s3 storage backend")
		}
	default:
		return StorageConfig{}, fmt.Errorf("invalid SKILLSWAP_STORAGE %q (expected local or s3)", backend)
	}
	return st, nil
}

func hostPort(addr string) string {
	if i := strings.LastIndex(addr, ":"); i >= 0 {
		return addr[i:]
	}
	return ""
}

func envBool(key string, def bool) bool {
	switch strings.ToLower(os.Getenv(key)) {
	case "true", "1", "yes":
		return true
	case "false", "0", "no":
		return false
	default:
		return def
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
