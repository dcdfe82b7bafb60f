package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from env, optionally seeded from a local .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App       AppConfig
	DB        DBConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Vapi      VapiConfig
	OpenAI    OpenAIConfig
	Telegram  TelegramConfig
	Payments  PaymentsConfig
	RateLimit RateLimitConfig
	Pipeline  PipelineConfig
	Tracing   TracingConfig
}

type AppConfig struct {
	Env     string
	Port    int
	Version string

	// CORSOrigins is the static browser origin allowlist.
	CORSOrigins []string

	// DefaultCallQuota seeds calls_remaining for users without a quota row.
	DefaultCallQuota int
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

type RedisConfig struct {
	Host string
	Port int
}

// AuthConfig describes the identity provider tokens we accept.
// Tokens are HS256-signed by the provider with the shared project secret.
type AuthConfig struct {
	JWTSecret   string
	JWTIssuer   string
	JWTAudience string

	// AccessTokenTTL is only used when this service mints tokens itself (service tooling, tests).
	AccessTokenTTL time.Duration
}

type VapiConfig struct {
	APIKey        string
	BaseURL       string
	Timeout       time.Duration
	WebhookSecret string

	// Demo calls from the public landing page use a fixed assistant and caller id.
	DemoAssistantID   string
	DemoPhoneNumberID string

	// CostPerMinute converts provider cost metadata into an estimated duration.
	CostPerMinute float64
}

type OpenAIConfig struct {
	APIKey  string
	BaseURL string
	Model   string
	Timeout time.Duration

	// ClassifierMode is "model" or "keywords".
	ClassifierMode string
}

type TelegramConfig struct {
	BotToken string
	ChatID   string
	BaseURL  string
}

type PaymentsConfig struct {
	SecretKey   string
	BaseURL     string
	Currency    string
	Amount      float64
	RedirectURL string
	// Title is shown on the hosted payment page.
	Title string
}

type RateLimitConfig struct {
	// Backend is "memory" (process-local) or "redis" (shared fixed window).
	Backend string

	DemoWindow time.Duration
	DemoMax    int

	PublicWindow time.Duration
	PublicMax    int

	SweepInterval time.Duration
}

// TracingConfig selects the span exporter. "none" keeps the global no-op provider.
type TracingConfig struct {
	Exporter     string // none, stdout, otlp
	OTLPEndpoint string
	OTLPInsecure bool
	SampleRatio  float64
}

type PipelineConfig struct {
	Workers     int
	QueueSize   int
	TaskTimeout time.Duration
}

func Load() (Config, error) {
	var parseErrs []error

	// A missing .env is normal outside local development.
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		parseErrs = append(parseErrs, fmt.Errorf(".env: %w", err))
	}

	c := Config{}

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.Version = strings.TrimSpace(os.Getenv("APP_VERSION"))
	c.App.CORSOrigins = splitList(os.Getenv("CORS_ALLOWED_ORIGINS"))
	{
		n, err := optionalInt("DEFAULT_CALL_QUOTA")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.DefaultCallQuota = n
	}

	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	{
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	{
		n, err := mustInt("REDIS_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Redis.Port = n
	}

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")

	c.Vapi.APIKey = os.Getenv("VAPI_API_KEY")
	c.Vapi.BaseURL = strings.TrimSpace(os.Getenv("VAPI_BASE_URL"))
	c.Vapi.Timeout = mustDuration("VAPI_TIMEOUT")
	c.Vapi.WebhookSecret = os.Getenv("VAPI_WEBHOOK_SECRET")
	c.Vapi.DemoAssistantID = strings.TrimSpace(os.Getenv("VAPI_DEMO_ASSISTANT_ID"))
	c.Vapi.DemoPhoneNumberID = strings.TrimSpace(os.Getenv("VAPI_DEMO_PHONE_NUMBER_ID"))
	{
		f, err := optionalFloat("VAPI_COST_PER_MINUTE")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Vapi.CostPerMinute = f
	}

	c.OpenAI.APIKey = os.Getenv("OPENAI_API_KEY")
	c.OpenAI.BaseURL = strings.TrimSpace(os.Getenv("OPENAI_BASE_URL"))
	c.OpenAI.Model = strings.TrimSpace(os.Getenv("OPENAI_MODEL"))
	c.OpenAI.Timeout = mustDuration("OPENAI_TIMEOUT")
	c.OpenAI.ClassifierMode = strings.TrimSpace(os.Getenv("CLASSIFIER_MODE"))

	c.Telegram.BotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	c.Telegram.ChatID = strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID"))
	c.Telegram.BaseURL = strings.TrimSpace(os.Getenv("TELEGRAM_BASE_URL"))

	c.Payments.SecretKey = os.Getenv("PAYMENTS_SECRET_KEY")
	c.Payments.BaseURL = strings.TrimSpace(os.Getenv("PAYMENTS_BASE_URL"))
	c.Payments.Currency = strings.TrimSpace(os.Getenv("PAYMENTS_CURRENCY"))
	c.Payments.RedirectURL = strings.TrimSpace(os.Getenv("PAYMENTS_REDIRECT_URL"))
	c.Payments.Title = strings.TrimSpace(os.Getenv("PAYMENTS_TITLE"))
	{
		f, err := optionalFloat("PAYMENTS_AMOUNT")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Payments.Amount = f
	}

	c.RateLimit.Backend = strings.TrimSpace(os.Getenv("RATE_LIMIT_BACKEND"))
	c.RateLimit.DemoWindow = mustDuration("RATE_LIMIT_DEMO_WINDOW")
	c.RateLimit.PublicWindow = mustDuration("RATE_LIMIT_PUBLIC_WINDOW")
	c.RateLimit.SweepInterval = mustDuration("RATE_LIMIT_SWEEP_INTERVAL")
	{
		n, err := optionalInt("RATE_LIMIT_DEMO_MAX")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.RateLimit.DemoMax = n
	}
	{
		n, err := optionalInt("RATE_LIMIT_PUBLIC_MAX")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.RateLimit.PublicMax = n
	}

	{
		n, err := optionalInt("PIPELINE_WORKERS")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Pipeline.Workers = n
	}
	{
		n, err := optionalInt("PIPELINE_QUEUE_SIZE")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.Pipeline.QueueSize = n
	}
	c.Pipeline.TaskTimeout = mustDuration("PIPELINE_TASK_TIMEOUT")

	c.Tracing.Exporter = strings.TrimSpace(os.Getenv("TRACING_EXPORTER"))
	c.Tracing.OTLPEndpoint = strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"))
	c.Tracing.OTLPInsecure = strings.EqualFold(strings.TrimSpace(os.Getenv("OTEL_EXPORTER_OTLP_INSECURE")), "true")
	{
		f, err := optionalFloat("TRACING_SAMPLE_RATIO")
		if err != nil {
			parseErrs = append(parseErrs, err)
		}
		c.Tracing.SampleRatio = f
	}

	if err := joinErrors(parseErrs); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate checks required values and fills defaults in place.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.Version == "" {
		c.App.Version = "dev"
	}
	if c.App.DefaultCallQuota < 0 {
		errs = append(errs, fmt.Errorf("DEFAULT_CALL_QUOTA must be >= 0, got %d", c.App.DefaultCallQuota))
	}

	if c.DB.Host == "" {
		errs = append(errs, errors.New("DB_HOST is required"))
	}
	if c.DB.Port <= 0 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
	}
	if c.DB.User == "" {
		errs = append(errs, errors.New("DB_USER is required"))
	}
	if c.DB.Name == "" {
		errs = append(errs, errors.New("DB_NAME is required"))
	}
	if strings.TrimSpace(c.DB.SSLMode) == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("DB_SSLMODE is required in production"))
		} else {
			c.DB.SSLMode = "disable"
		}
	}
	if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
		errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
	}

	if c.Redis.Host == "" {
		errs = append(errs, errors.New("REDIS_HOST is required"))
	}
	if c.Redis.Port <= 0 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = time.Hour
	}

	if c.Vapi.BaseURL == "" {
		c.Vapi.BaseURL = "https://api.vapi.ai"
	}
	if c.Vapi.Timeout <= 0 {
		c.Vapi.Timeout = 30 * time.Second
	}
	if c.Vapi.CostPerMinute < 0 {
		errs = append(errs, fmt.Errorf("VAPI_COST_PER_MINUTE must be >= 0, got %v", c.Vapi.CostPerMinute))
	}
	if c.Vapi.CostPerMinute == 0 {
		c.Vapi.CostPerMinute = 0.05
	}
	if c.IsProduction() && c.Vapi.APIKey == "" {
		errs = append(errs, errors.New("VAPI_API_KEY is required in production"))
	}
	// Unsigned webhooks can create leads and trigger notifications.
	if c.IsProduction() && c.Vapi.WebhookSecret == "" {
		errs = append(errs, errors.New("VAPI_WEBHOOK_SECRET is required in production"))
	}

	if c.OpenAI.Model == "" {
		c.OpenAI.Model = "gpt-4o-mini"
	}
	if c.OpenAI.Timeout <= 0 {
		c.OpenAI.Timeout = 10 * time.Second
	}
	switch c.OpenAI.ClassifierMode {
	case "":
		if c.OpenAI.APIKey != "" {
			c.OpenAI.ClassifierMode = "model"
		} else {
			c.OpenAI.ClassifierMode = "keywords"
		}
	case "keywords":
	case "model":
		if c.OpenAI.APIKey == "" {
			errs = append(errs, errors.New("OPENAI_API_KEY is required when CLASSIFIER_MODE=model"))
		}
	default:
		errs = append(errs, fmt.Errorf("CLASSIFIER_MODE must be one of model, keywords, got %q", c.OpenAI.ClassifierMode))
	}

	if c.Telegram.BaseURL == "" {
		c.Telegram.BaseURL = "https://api.telegram.org"
	}
	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		errs = append(errs, errors.New("TELEGRAM_CHAT_ID is required when TELEGRAM_BOT_TOKEN is set"))
	}

	if c.Payments.BaseURL == "" {
		c.Payments.BaseURL = "https://api.flutterwave.com"
	}
	if c.Payments.Currency == "" {
		c.Payments.Currency = "NGN"
	}
	if c.Payments.Title == "" {
		c.Payments.Title = "Voice AI receptionist"
	}
	if c.Payments.Amount < 0 {
		errs = append(errs, fmt.Errorf("PAYMENTS_AMOUNT must be >= 0, got %v", c.Payments.Amount))
	}

	switch c.RateLimit.Backend {
	case "":
		c.RateLimit.Backend = "memory"
	case "memory", "redis":
	default:
		errs = append(errs, fmt.Errorf("RATE_LIMIT_BACKEND must be one of memory, redis, got %q", c.RateLimit.Backend))
	}
	if c.RateLimit.DemoWindow <= 0 {
		c.RateLimit.DemoWindow = time.Hour
	}
	if c.RateLimit.DemoMax <= 0 {
		c.RateLimit.DemoMax = 3
	}
	if c.RateLimit.PublicWindow <= 0 {
		c.RateLimit.PublicWindow = 15 * time.Minute
	}
	if c.RateLimit.PublicMax <= 0 {
		c.RateLimit.PublicMax = 100
	}
	if c.RateLimit.SweepInterval <= 0 {
		c.RateLimit.SweepInterval = time.Minute
	}

	if c.Pipeline.Workers <= 0 {
		c.Pipeline.Workers = 4
	}
	if c.Pipeline.QueueSize <= 0 {
		c.Pipeline.QueueSize = 256
	}
	if c.Pipeline.TaskTimeout <= 0 {
		c.Pipeline.TaskTimeout = 15 * time.Second
	}

	switch c.Tracing.Exporter {
	case "":
		c.Tracing.Exporter = "none"
	case "none", "stdout":
	case "otlp":
		if c.Tracing.OTLPEndpoint == "" {
			errs = append(errs, errors.New("OTEL_EXPORTER_OTLP_ENDPOINT is required when TRACING_EXPORTER=otlp"))
		}
	default:
		errs = append(errs, fmt.Errorf("TRACING_EXPORTER must be one of none, stdout, otlp, got %q", c.Tracing.Exporter))
	}
	if c.Tracing.SampleRatio < 0 || c.Tracing.SampleRatio > 1 {
		errs = append(errs, fmt.Errorf("TRACING_SAMPLE_RATIO must be within [0,1], got %v", c.Tracing.SampleRatio))
	}
	if c.Tracing.SampleRatio == 0 {
		c.Tracing.SampleRatio = 1
	}

	return joinErrors(errs)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(key string) (int, error) {
	if strings.TrimSpace(os.Getenv(key)) == "" {
		return 0, nil
	}
	return mustInt(key)
}

func optionalFloat(key string) (float64, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number, got %q", key, v)
	}
	return f, nil
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}

func joinErrors(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	if len(errs) == 1 {
		return errs[0]
	}
	var b strings.Builder
	b.WriteString("config errors:\n")
	for _, e := range errs {
		b.WriteString("- ")
		b.WriteString(e.Error())
		b.WriteString("\n")
	}
	return errors.New(strings.TrimSpace(b.String()))
}
