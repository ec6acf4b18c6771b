package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Env string

const (
	Dev        Env = "development"
	Test       Env = "test"
	Preview    Env = "preview"
	Production Env = "production"
)

type RabbitMQConfig struct {
	URL             string
	Exchange        string
	Queue           string
	RoutingKey      string
	Prefetch        int
	DeclareTopology bool
}

type TursoConfig struct {
	DSN   string
	Path  string
	Token string
}

type InngestConfig struct {
	AppID      string
	SigningKey string
	Dev        string
	ServeHost  string
	ServePath  string
}

// ResolverConfig tunes the hop loop and the outbound fetcher.
type ResolverConfig struct {
	MaxHops        int
	MaxRedirects   int
	Timeout        time.Duration
	UserAgent      string
	AcceptLanguage string
	MaxBodyBytes   int64
	RatePerSecond  float64
	RateBurst      int
	CacheTTL       time.Duration
}

type ShortenerConfig struct {
	ShortDomain       string
	DefaultExpiryDays int
	SqidsAlphabet     string
}

type AuthConfig struct {
	JWTSecret string
	JWTIssuer string
}

type AmazonConfig struct {
	AccessKey   string
	SecretKey   string
	PartnerTag  string
	Marketplace string
	Region      string
}

type MercadoLivreConfig struct {
	ClientID     string
	ClientSecret string
	APIBaseURL   string
}

// APIRateLimitConfig bounds inbound requests per client IP. Needs Redis.
type APIRateLimitConfig struct {
	Requests int
	Window   time.Duration
}

type OtelConfig struct {
	Endpoint    string
	ServiceName string
}

type Config struct {
	AppName string
	ENV     Env
	AppPort int

	LogLevel string

	CORSAllowedOrigins []string

	// Postgres (optional; enabled only when DBHost + DBName are set).
	DBUser     string
	DBPassword string
	DBHost     string
	DBPort     int
	DBName     string

	// Redis (optional; enabled only when RedisHost is set).
	RedisUser     string
	RedisPassword string
	RedisHost     string
	RedisPort     int
	RedisScheme   string

	RabbitMQ     RabbitMQConfig
	Turso        TursoConfig
	Inngest      InngestConfig
	Resolver     ResolverConfig
	Shortener    ShortenerConfig
	Auth         AuthConfig
	Amazon       AmazonConfig
	MercadoLivre MercadoLivreConfig
	APIRateLimit APIRateLimitConfig
	Otel         OtelConfig
}

func NewViper() *viper.Viper {
	// .env is optional; real environment variables always win.
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("APP_NAME", "affiliate-link-resolver")
	v.SetDefault("APP_ENV", string(Dev))
	v.SetDefault("APP_PORT", 8080)
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "https://envia.link")

	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_SCHEME", "redis")

	v.SetDefault("RABBITMQ_EXCHANGE", "events")
	v.SetDefault("RABBITMQ_QUEUE", "resolver.url.requested.v1")
	v.SetDefault("RABBITMQ_ROUTING_KEY", "resolver.url.requested.v1")
	v.SetDefault("RABBITMQ_PREFETCH", 4)
	v.SetDefault("RABBITMQ_DECLARE_TOPOLOGY", true)

	v.SetDefault("INNGEST_SERVE_PATH", "/api/inngest")

	v.SetDefault("RESOLVER_MAX_HOPS", 5)
	v.SetDefault("RESOLVER_MAX_REDIRECTS", 10)
	v.SetDefault("RESOLVER_TIMEOUT", 10*time.Second)
	v.SetDefault("RESOLVER_USER_AGENT", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36")
	v.SetDefault("RESOLVER_ACCEPT_LANGUAGE", "pt-BR,pt;q=0.9,en-US;q=0.8,en;q=0.7")
	v.SetDefault("RESOLVER_MAX_BODY_BYTES", 2*1024*1024)
	v.SetDefault("RESOLVER_RATE_PER_SECOND", 2.0)
	v.SetDefault("RESOLVER_RATE_BURST", 4)
	v.SetDefault("RESOLVER_CACHE_TTL", 6*time.Hour)

	v.SetDefault("SHORT_DOMAIN", "promo.envia.link")
	v.SetDefault("SHORTENER_DEFAULT_EXPIRY_DAYS", 30)
	v.SetDefault("SHORTENER_SQIDS_ALPHABET", "k3G7QAe51FCsiWrNOYBUwM6XzZvdLT4j9JhyHKg2cVbxfERq0mSoI8lDpunPat")

	v.SetDefault("JWT_ISSUER", "affiliate-link-resolver")

	v.SetDefault("AMAZON_MARKETPLACE", "www.amazon.com.br")
	v.SetDefault("AMAZON_REGION", "us-east-1")

	v.SetDefault("MERCADOLIVRE_API_BASE_URL", "https://api.mercadolibre.com")

	v.SetDefault("API_RATE_LIMIT_REQUESTS", 60)
	v.SetDefault("API_RATE_LIMIT_WINDOW", time.Minute)

	v.SetDefault("OTEL_SERVICE_NAME", "affiliate-link-resolver")

	return v
}

func NewConfig(v *viper.Viper) (*Config, error) {
	cfg := &Config{
		AppName: v.GetString("APP_NAME"),
		ENV:     Env(strings.ToLower(strings.TrimSpace(v.GetString("APP_ENV")))),
		AppPort: v.GetInt("APP_PORT"),

		LogLevel: v.GetString("LOG_LEVEL"),

		CORSAllowedOrigins: splitList(v.GetString("CORS_ALLOWED_ORIGINS")),

		DBUser:     v.GetString("DB_USER"),
		DBPassword: v.GetString("DB_PASSWORD"),
		DBHost:     v.GetString("DB_HOST"),
		DBPort:     v.GetInt("DB_PORT"),
		DBName:     v.GetString("DB_NAME"),

		RedisUser:     v.GetString("REDIS_USER"),
		RedisPassword: v.GetString("REDIS_PASSWORD"),
		RedisHost:     v.GetString("REDIS_HOST"),
		RedisPort:     v.GetInt("REDIS_PORT"),
		RedisScheme:   v.GetString("REDIS_SCHEME"),

		RabbitMQ: RabbitMQConfig{
			URL:             v.GetString("RABBITMQ_URL"),
			Exchange:        v.GetString("RABBITMQ_EXCHANGE"),
			Queue:           v.GetString("RABBITMQ_QUEUE"),
			RoutingKey:      v.GetString("RABBITMQ_ROUTING_KEY"),
			Prefetch:        v.GetInt("RABBITMQ_PREFETCH"),
			DeclareTopology: v.GetBool("RABBITMQ_DECLARE_TOPOLOGY"),
		},
		Turso: TursoConfig{
			DSN:   v.GetString("TURSO_SQLITE_DSN"),
			Path:  v.GetString("TURSO_SQLITE_PATH"),
			Token: v.GetString("TURSO_SQLITE_TOKEN"),
		},
		Inngest: InngestConfig{
			AppID:      v.GetString("INNGEST_APP_ID"),
			SigningKey: v.GetString("INNGEST_SIGNING_KEY"),
			Dev:        v.GetString("INNGEST_DEV"),
			ServeHost:  v.GetString("INNGEST_SERVE_HOST"),
			ServePath:  v.GetString("INNGEST_SERVE_PATH"),
		},
		Resolver: ResolverConfig{
			MaxHops:        v.GetInt("RESOLVER_MAX_HOPS"),
			MaxRedirects:   v.GetInt("RESOLVER_MAX_REDIRECTS"),
			Timeout:        v.GetDuration("RESOLVER_TIMEOUT"),
			UserAgent:      v.GetString("RESOLVER_USER_AGENT"),
			AcceptLanguage: v.GetString("RESOLVER_ACCEPT_LANGUAGE"),
			MaxBodyBytes:   v.GetInt64("RESOLVER_MAX_BODY_BYTES"),
			RatePerSecond:  v.GetFloat64("RESOLVER_RATE_PER_SECOND"),
			RateBurst:      v.GetInt("RESOLVER_RATE_BURST"),
			CacheTTL:       v.GetDuration("RESOLVER_CACHE_TTL"),
		},
		Shortener: ShortenerConfig{
			ShortDomain:       v.GetString("SHORT_DOMAIN"),
			DefaultExpiryDays: v.GetInt("SHORTENER_DEFAULT_EXPIRY_DAYS"),
			SqidsAlphabet:     v.GetString("SHORTENER_SQIDS_ALPHABET"),
		},
		Auth: AuthConfig{
			JWTSecret: v.GetString("JWT_SECRET"),
			JWTIssuer: v.GetString("JWT_ISSUER"),
		},
		Amazon: AmazonConfig{
			AccessKey:   v.GetString("AMAZON_ACCESS_KEY"),
			SecretKey:   v.GetString("AMAZON_SECRET_KEY"),
			PartnerTag:  v.GetString("AMAZON_PARTNER_TAG"),
			Marketplace: v.GetString("AMAZON_MARKETPLACE"),
			Region:      v.GetString("AMAZON_REGION"),
		},
		MercadoLivre: MercadoLivreConfig{
			ClientID:     v.GetString("MERCADOLIVRE_CLIENT_ID"),
			ClientSecret: v.GetString("MERCADOLIVRE_CLIENT_SECRET"),
			APIBaseURL:   v.GetString("MERCADOLIVRE_API_BASE_URL"),
		},
		APIRateLimit: APIRateLimitConfig{
			Requests: v.GetInt("API_RATE_LIMIT_REQUESTS"),
			Window:   v.GetDuration("API_RATE_LIMIT_WINDOW"),
		},
		Otel: OtelConfig{
			Endpoint:    v.GetString("OTEL_EXPORTER_OTLP_ENDPOINT"),
			ServiceName: v.GetString("OTEL_SERVICE_NAME"),
		},
	}

	switch cfg.ENV {
	case Dev, Test, Preview, Production:
	default:
		return nil, fmt.Errorf("invalid APP_ENV %q", cfg.ENV)
	}

	if cfg.AppPort <= 0 || cfg.AppPort > 65535 {
		return nil, fmt.Errorf("invalid APP_PORT %d", cfg.AppPort)
	}
	if cfg.DBPort <= 0 || cfg.DBPort > 65535 {
		return nil, fmt.Errorf("invalid DB_PORT %d", cfg.DBPort)
	}
	if cfg.RedisPort <= 0 || cfg.RedisPort > 65535 {
		return nil, fmt.Errorf("invalid REDIS_PORT %d", cfg.RedisPort)
	}
	if cfg.Resolver.MaxHops <= 0 {
		return nil, fmt.Errorf("invalid RESOLVER_MAX_HOPS %d", cfg.Resolver.MaxHops)
	}
	if cfg.Resolver.MaxRedirects < 0 {
		return nil, fmt.Errorf("invalid RESOLVER_MAX_REDIRECTS %d", cfg.Resolver.MaxRedirects)
	}
	if cfg.Resolver.Timeout <= 0 {
		return nil, fmt.Errorf("invalid RESOLVER_TIMEOUT %s", cfg.Resolver.Timeout)
	}
	if cfg.Shortener.DefaultExpiryDays <= 0 {
		return nil, fmt.Errorf("invalid SHORTENER_DEFAULT_EXPIRY_DAYS %d", cfg.Shortener.DefaultExpiryDays)
	}

	return cfg, nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
