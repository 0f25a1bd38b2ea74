package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort     string `mapstructure:"APP_PORT"`
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	Env         string `mapstructure:"ENV"`
	JWTSecret   string `mapstructure:"JWT_SECRET"`
	LogLevel    string `mapstructure:"LOG_LEVEL"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisCacheDB  int    `mapstructure:"REDIS_CACHE_DB"`
	RedisCodeDB   int    `mapstructure:"REDIS_CODE_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Firebase service account for FCM pushes.
	FirebaseCredentialsFile string `mapstructure:"FIREBASE_CREDENTIALS_FILE"`

	// MTN Mobile Money.
	MTNBaseURL         string `mapstructure:"MTN_BASE_URL"`
	MTNSubscriptionKey string `mapstructure:"MTN_SUBSCRIPTION_KEY"`
	MTNAPIUser         string `mapstructure:"MTN_API_USER"`
	MTNAPIKey          string `mapstructure:"MTN_API_KEY"`
	MTNEnvironment     string `mapstructure:"MTN_ENVIRONMENT"`

	// Orange Money.
	OrangeBaseURL      string `mapstructure:"ORANGE_BASE_URL"`
	OrangeClientID     string `mapstructure:"ORANGE_CLIENT_ID"`
	OrangeClientSecret string `mapstructure:"ORANGE_CLIENT_SECRET"`
	OrangeMerchantKey  string `mapstructure:"ORANGE_MERCHANT_KEY"`

	// pawaPay.
	PawaPayBaseURL  string `mapstructure:"PAWAPAY_BASE_URL"`
	PawaPayAPIToken string `mapstructure:"PAWAPAY_API_TOKEN"`

	// When set, reconciliation only touches records of this provider.
	ExclusiveProvider string `mapstructure:"EXCLUSIVE_PROVIDER"`

	// Payments/payouts older than this in a non-terminal state get re-queried.
	ReconcileStaleAfter time.Duration `mapstructure:"RECONCILE_STALE_AFTER"`
	ReconcileInterval   time.Duration `mapstructure:"RECONCILE_INTERVAL"`

	// Payout retry policy.
	MaxPayoutRetries   int           `mapstructure:"MAX_PAYOUT_RETRIES"`
	PayoutRetryBackoff time.Duration `mapstructure:"PAYOUT_RETRY_BACKOFF"`

	// Driver settlement rates (fractions of gross).
	TransactionFeeRate float64 `mapstructure:"TRANSACTION_FEE_RATE"`
	CommissionRate     float64 `mapstructure:"COMMISSION_RATE"`

	// Verification code lifetime.
	VerificationCodeTTL time.Duration `mapstructure:"VERIFICATION_CODE_TTL"`

	DefaultCurrency string `mapstructure:"DEFAULT_CURRENCY"`
}

var AppConfig Config

func LoadConfig() {
	// Look for a config file named "config.yaml" in the current and "config" directory.
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("./config")
	// Automatically use environment variables where available.
	viper.AutomaticEnv()

	// Set default values.
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("ENV", "development")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("REDIS_ADDR", "localhost:6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_CACHE_DB", 0)
	viper.SetDefault("REDIS_CODE_DB", 2)
	viper.SetDefault("REDIS_QUEUE_DB", 3)
	viper.SetDefault("DATABASE_URL", "mongodb://localhost:27017")
	viper.SetDefault("MTN_BASE_URL", "https://proxy.momoapi.mtn.com")
	viper.SetDefault("MTN_ENVIRONMENT", "mtncameroon")
	viper.SetDefault("ORANGE_BASE_URL", "https://api.orange.com")
	viper.SetDefault("PAWAPAY_BASE_URL", "https://api.pawapay.cloud")
	viper.SetDefault("EXCLUSIVE_PROVIDER", "")
	viper.SetDefault("RECONCILE_STALE_AFTER", 5*time.Minute)
	viper.SetDefault("RECONCILE_INTERVAL", 2*time.Minute)
	viper.SetDefault("MAX_PAYOUT_RETRIES", 3)
	viper.SetDefault("PAYOUT_RETRY_BACKOFF", 10*time.Minute)
	viper.SetDefault("TRANSACTION_FEE_RATE", 0.02)
	viper.SetDefault("COMMISSION_RATE", 0.10)
	viper.SetDefault("VERIFICATION_CODE_TTL", 24*time.Hour)
	viper.SetDefault("DEFAULT_CURRENCY", "XAF")

	if err := viper.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	if err := viper.Unmarshal(&AppConfig); err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
