package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const ConfigFileEnv = "DANMAKU_CONFIG"

type Config struct {
	Env       string          `yaml:"env"`
	Logging   LoggingConfig   `yaml:"logging"`
	Input     InputConfig     `yaml:"input"`
	Output    OutputConfig    `yaml:"output"`
	Lexicon   LexiconConfig   `yaml:"lexicon"`
	Analysis  AnalysisConfig  `yaml:"analysis"`
	Sentiment SentimentConfig `yaml:"sentiment"`
	Sinks     SinksConfig     `yaml:"sinks"`
}

type LoggingConfig struct {
	Level string `yaml:"level"`
	File  string `yaml:"file"`
}

type InputConfig struct {
	Path       string `yaml:"path"`
	TextColumn string `yaml:"text_column"`
	IDColumn   string `yaml:"id_column"`
	Sheet      string `yaml:"sheet"`
}

type OutputConfig struct {
	Dir string `yaml:"dir"`
}

type LexiconConfig struct {
	UserDict     string   `yaml:"user_dict"`
	Stopwords    []string `yaml:"stopwords"`
	JiebaDictDir string   `yaml:"jieba_dict_dir"`
}

type AnalysisConfig struct {
	MinLength    int    `yaml:"min_length"`
	NormalForm   string `yaml:"normal_form"`
	KeywordsTopK int    `yaml:"keywords_top_k"`
	FrequencyTop int    `yaml:"frequency_top"`
	Workers      int    `yaml:"workers"`
}

type SentimentConfig struct {
	Backend       string        `yaml:"backend"`
	ModelName     string        `yaml:"model_name"`
	ModelDir      string        `yaml:"model_dir"`
	ModelPath     string        `yaml:"model_path"`
	OnnxFilename  string        `yaml:"onnx_filename"`
	Runtime       string        `yaml:"runtime"`
	OrtLibrary    string        `yaml:"ort_library"`
	Download      bool          `yaml:"download"`
	NegativeLabel string        `yaml:"negative_label"`
	PositiveLabel string        `yaml:"positive_label"`
	MaxTokens     int           `yaml:"max_tokens"`
	Workers       int           `yaml:"workers"`
	Endpoint      string        `yaml:"endpoint"`
	Timeout       time.Duration `yaml:"timeout"`
	CacheAddress  string        `yaml:"cache_address"`
	CachePassword string        `yaml:"cache_password"`
	CacheTLS      bool          `yaml:"cache_tls"`
	CacheTTL      time.Duration `yaml:"cache_ttl"`
}

type SinksConfig struct {
	Enabled     []string `yaml:"enabled"`
	SQLitePath  string   `yaml:"sqlite_path"`
	DynamoTable string   `yaml:"dynamodb_table"`
	AWSRegion   string   `yaml:"aws_region"`
	AWSEndpoint string   `yaml:"aws_endpoint"`
	KafkaBroker string   `yaml:"kafka_broker"`
	KafkaTopic  string   `yaml:"kafka_topic"`
	// KafkaTimeout bounds transactional init, commit and abort.
	KafkaTimeout time.Duration `yaml:"kafka_timeout"`
}

func getEnv(key, defaultValue string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	v, err := strconv.Atoi(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvBool(key string, defaultValue bool) bool {
	v, err := strconv.ParseBool(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	v, err := time.ParseDuration(os.Getenv(key))
	if err != nil {
		return defaultValue
	}
	return v
}

func getEnvList(key string, defaultValue []string) []string {
	raw, ok := os.LookupEnv(key)
	if !ok {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// Load builds the configuration from the environment and then overlays the
// YAML file named by DANMAKU_CONFIG, when set. Keys present in the file win.
func Load() (Config, error) {
	cfg := Config{
		Env: getEnv("APP_ENV", "dev"),
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
			File:  getEnv("LOG_FILE", ""),
		},
		Input: InputConfig{
			Path:       getEnv("INPUT_PATH", ""),
			TextColumn: getEnv("INPUT_TEXT_COLUMN", "内容"),
			IDColumn:   getEnv("INPUT_ID_COLUMN", ""),
			Sheet:      getEnv("INPUT_SHEET", ""),
		},
		Output: OutputConfig{
			Dir: getEnv("OUTPUT_DIR", "output"),
		},
		Lexicon: LexiconConfig{
			UserDict:     getEnv("LEXICON_USER_DICT", "stop_dict/keep_words.txt"),
			Stopwords:    getEnvList("LEXICON_STOPWORDS", []string{"stop_dict/stopwords_hit.txt", "stop_dict/mystopwords.txt"}),
			JiebaDictDir: getEnv("JIEBA_DICT_DIR", ""),
		},
		Analysis: AnalysisConfig{
			MinLength:    getEnvInt("MIN_TEXT_LENGTH", 4),
			NormalForm:   getEnv("NORMAL_FORM", "nfc"),
			KeywordsTopK: getEnvInt("KEYWORDS_TOP_K", 50),
			FrequencyTop: getEnvInt("FREQUENCY_TOP_N", 20),
			Workers:      getEnvInt("WORKERS", 0),
		},
		Sentiment: SentimentConfig{
			Backend:       getEnv("SENTIMENT_BACKEND", "hugot"),
			ModelName:     getEnv("SENTIMENT_MODEL_NAME", "uer/roberta-base-finetuned-jd-binary-chinese"),
			ModelDir:      getEnv("SENTIMENT_MODEL_DIR", "./models"),
			ModelPath:     getEnv("SENTIMENT_MODEL_PATH", ""),
			OnnxFilename:  getEnv("SENTIMENT_ONNX_FILE", ""),
			Runtime:       getEnv("SENTIMENT_RUNTIME", "ort"),
			OrtLibrary:    getEnv("ORT_LIBRARY_PATH", ""),
			Download:      getEnvBool("SENTIMENT_DOWNLOAD", true),
			NegativeLabel: getEnv("SENTIMENT_NEGATIVE_LABEL", ""),
			PositiveLabel: getEnv("SENTIMENT_POSITIVE_LABEL", ""),
			MaxTokens:     getEnvInt("SENTIMENT_MAX_TOKENS", 128),
			Workers:       getEnvInt("SENTIMENT_WORKERS", 1),
			Endpoint:      getEnv("SENTIMENT_ENDPOINT", ""),
			Timeout:       getEnvDuration("SENTIMENT_TIMEOUT", 60*time.Second),
			CacheAddress:  getEnv("VALKEY_INIT_ADDRESS", ""),
			CachePassword: getEnv("VALKEY_PASSWORD", ""),
			CacheTLS:      getEnvBool("VALKEY_TLS", false),
			CacheTTL:      getEnvDuration("SENTIMENT_CACHE_TTL", 24*time.Hour),
		},
		Sinks: SinksConfig{
			Enabled:      getEnvList("SINKS", []string{"csv", "xlsx"}),
			SQLitePath:   getEnv("SQLITE_PATH", ""),
			DynamoTable:  getEnv("DYNAMODB_TABLE", "DanmakuSentiment"),
			AWSRegion:    getEnv("AWS_REGION", "us-west-2"),
			AWSEndpoint:  getEnv("AWS_ENDPOINT", ""),
			KafkaBroker:  getEnv("KAFKA_BROKER", "localhost:29092"),
			KafkaTopic:   getEnv("KAFKA_SENTIMENT_TOPIC", "danmaku-sentiment"),
			KafkaTimeout: getEnvDuration("KAFKA_INIT_TIMEOUT", 10*time.Second),
		},
	}

	if path := os.Getenv(ConfigFileEnv); path != "" {
		if err := cfg.overlayYAML(path); err != nil {
			return cfg, err
		}
	}

	return cfg, nil
}

func (c *Config) overlayYAML(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parse config file %s: %w", path, err)
	}
	return nil
}

// SinkEnabled reports whether the named output sink was requested.
func (c Config) SinkEnabled(name string) bool {
	for _, s := range c.Sinks.Enabled {
		if strings.EqualFold(s, name) {
			return true
		}
	}
	return false
}

// SQLitePath is the store file for the sqlite sink, defaulting to
// danmaku.db inside the output dir.
func (c Config) SQLitePath() string {
	if c.Sinks.SQLitePath != "" {
		return c.Sinks.SQLitePath
	}
	return filepath.Join(c.Output.Dir, "danmaku.db")
}

var knownSinks = map[string]bool{"csv": true, "xlsx": true, "sqlite": true, "dynamodb": true, "kafka": true}

// Validate checks the settings every run needs. Lexicon and model paths are
// checked by the stages that load them, so a bad model path only fails the
// sentiment stage.
func (c Config) Validate() error {
	var errs []error
	if c.Input.Path == "" {
		errs = append(errs, errors.New("input path is required"))
	}
	if c.Input.TextColumn == "" {
		errs = append(errs, errors.New("input text column is required"))
	}
	if c.Output.Dir == "" {
		errs = append(errs, errors.New("output dir is required"))
	}
	if c.Analysis.MinLength < 0 {
		errs = append(errs, fmt.Errorf("min length must not be negative, got %d", c.Analysis.MinLength))
	}
	if c.Analysis.KeywordsTopK <= 0 {
		errs = append(errs, fmt.Errorf("keywords top k must be positive, got %d", c.Analysis.KeywordsTopK))
	}
	switch strings.ToLower(c.Analysis.NormalForm) {
	case "", "none", "nfc", "nfkc":
	default:
		errs = append(errs, fmt.Errorf("unknown normal form %q", c.Analysis.NormalForm))
	}
	switch c.Sentiment.Backend {
	case "hugot", "remote", "vader":
	default:
		errs = append(errs, fmt.Errorf("unknown sentiment backend %q", c.Sentiment.Backend))
	}
	if c.Sentiment.MaxTokens < 3 {
		errs = append(errs, fmt.Errorf("sentiment max tokens must be at least 3, got %d", c.Sentiment.MaxTokens))
	}
	for _, s := range c.Sinks.Enabled {
		if !knownSinks[strings.ToLower(s)] {
			errs = append(errs, fmt.Errorf("unknown sink %q", s))
		}
	}
	return errors.Join(errs...)
}
