package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
	"github.com/wichananm65/recommender-web/internal/model"
)

// Config holds environment-driven configuration.
type Config struct {
	Addr             string        `koanf:"addr"`
	DatabaseURL      string        `koanf:"database_url"`
	JWTSecret        string        `koanf:"jwt_secret"`
	TokenTTL         time.Duration `koanf:"token_ttl"`
	OperatorUser     string        `koanf:"operator_user"`
	OperatorPassword string        `koanf:"operator_password"`
	RecommendURL     string        `koanf:"recommend_url"`
	ParamsFile       string        `koanf:"params_file"`
	RatingsCSV       string        `koanf:"ratings_csv"`
	SuggestionSource string        `koanf:"suggestion_source"`
	SuggestionLimit  int           `koanf:"suggestion_limit"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	LogLevel         string        `koanf:"log_level"`
	LogFormat        string        `koanf:"log_format"`
	Model            model.Params  `koanf:"model"`
}

// envKeys maps the environment variables we read onto koanf paths.
var envKeys = map[string]string{
	"APP_ADDR":          "addr",
	"DATABASE_URL":      "database_url",
	"JWT_SECRET":        "jwt_secret",
	"TOKEN_TTL":         "token_ttl",
	"OPERATOR_USER":     "operator_user",
	"OPERATOR_PASSWORD": "operator_password",
	"RECOMMEND_URL":     "recommend_url",
	"PARAMS_FILE":       "params_file",
	"RATINGS_CSV":       "ratings_csv",
	"SUGGESTION_SOURCE": "suggestion_source",
	"SUGGESTION_LIMIT":  "suggestion_limit",
	"SESSION_TTL":       "session_ttl",
	"LOG_LEVEL":         "log_level",
	"LOG_FORMAT":        "log_format",
	"MIN_RATING":        "model.min_rating",
	"MAX_RATING":        "model.max_rating",
}

func defaults() Config {
	return Config{
		Addr:             ":8080",
		TokenTTL:         72 * time.Hour,
		ParamsFile:       "params/params.yaml",
		SuggestionSource: "static",
		SuggestionLimit:  10,
		SessionTTL:       30 * time.Minute,
		LogLevel:         "info",
		LogFormat:        "json",
		Model:            model.DefaultParams(),
	}
}

// Load reads defaults, then the optional params file, then environment
// variables (a .env file is loaded first when present).
func Load() (Config, error) {
	_ = godotenv.Load()

	k := koanf.New(".")
	if err := k.Load(structs.Provider(defaults(), "koanf"), nil); err != nil {
		return Config{}, fmt.Errorf("load defaults: %w", err)
	}

	paramsFile := k.String("params_file")
	if v := os.Getenv("PARAMS_FILE"); v != "" {
		paramsFile = v
	}
	if paramsFile != "" {
		if _, err := os.Stat(paramsFile); err == nil {
			// the params file only carries model parameters
			if err := k.Load(file.Provider(paramsFile), yaml.Parser(), koanf.WithMergeFunc(mergeUnder("model"))); err != nil {
				return Config{}, fmt.Errorf("load params file %s: %w", paramsFile, err)
			}
		}
	}

	if err := k.Load(env.Provider("", ".", envTransform), nil); err != nil {
		return Config{}, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}
	if cfg.RecommendURL == "" {
		cfg.RecommendURL = localRecommendURL(cfg.Addr)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// localRecommendURL points the form at this server's own /recommend route.
// Wildcard and empty hosts are reached over loopback.
func localRecommendURL(addr string) string {
	host, port, err := net.SplitHostPort(addr)
	if err != nil || port == "" {
		return ""
	}
	switch host {
	case "", "0.0.0.0", "::":
		host = "127.0.0.1"
	}
	return "http://" + net.JoinHostPort(host, port) + "/recommend"
}

func envTransform(s string) string {
	return envKeys[s]
}

// mergeUnder nests the loaded keys below prefix before merging into dest.
func mergeUnder(prefix string) func(src, dest map[string]interface{}) error {
	return func(src, dest map[string]interface{}) error {
		sub, ok := dest[prefix].(map[string]interface{})
		if !ok {
			sub = map[string]interface{}{}
			dest[prefix] = sub
		}
		for key, v := range src {
			sub[strings.ToLower(key)] = v
		}
		return nil
	}
}

// Validate checks settings that would otherwise fail later at runtime.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if c.JWTSecret == "" {
		errs = append(errs, errors.New("jwt_secret is required"))
	}
	if c.RecommendURL == "" {
		errs = append(errs, errors.New("recommend_url is required"))
	}
	switch c.SuggestionSource {
	case "static", "store":
	default:
		errs = append(errs, fmt.Errorf("suggestion_source must be static or store, got %q", c.SuggestionSource))
	}
	if c.SuggestionLimit <= 0 {
		errs = append(errs, errors.New("suggestion_limit must be positive"))
	}
	if c.SessionTTL <= 0 {
		errs = append(errs, errors.New("session_ttl must be positive"))
	}
	if c.OperatorUser != "" && c.OperatorPassword == "" {
		errs = append(errs, errors.New("operator_password is required when operator_user is set"))
	}
	if c.TokenTTL <= 0 {
		errs = append(errs, errors.New("token_ttl must be positive"))
	}
	if c.Model.MaxRating <= c.Model.MinRating {
		errs = append(errs, errors.New("model max_rating must be greater than min_rating"))
	}
	return errors.Join(errs...)
}
