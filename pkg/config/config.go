package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration. Every timeout, threshold and
// pattern the pipeline relies on lives here so values can be overridden per
// deployment instead of hiding as process-wide constants.
type Config struct {
	ServerPort string
	LogLevel   string
	APIKey     string

	// Default digest query.
	QueryTerm      string
	LanguageCode   string
	CountryCode    string
	LocationCode   int
	DaysToLookBack int

	// Feed fetcher.
	FeedBaseURL            string
	FeedFetchTimeout       time.Duration
	InternationalFeed      bool
	InternationalCountries []string

	// URL resolver.
	ResolverHeadless            bool
	ResolverUserAgent           string
	ResolverNavigationTimeout   time.Duration
	ResolverFinalURLTimeout     time.Duration
	ResolverConsentClickTimeout time.Duration
	ResolverIndirectionPattern  string
	ResolverConsentHostPattern  string
	ResolverConsentSelectors    []string

	// Content extractor.
	ExtractWorkers        int
	ExtractRequestTimeout time.Duration
	ExtractMinTextLength  int
	ExtractUserAgent      string
	ExtractReferer        string

	// Text completion.
	CompletionEndpoint string
	CompletionModel    string
	CompletionAPIKey   string
	CompletionTimeout  time.Duration

	// Search API path (used instead of feed+resolver when credentials are set).
	SearchAPIURL      string
	SearchAPILogin    string
	SearchAPIPassword string

	// Distribution.
	ArchiveEnabled   bool
	ArchiveBaseURL   string
	PostgresHost     string
	PostgresPort     string
	PostgresUser     string
	PostgresPassword string
	PostgresDB       string

	EmailEnabled     bool
	EmailRecipients  []string
	SendGridAPIKey   string
	SenderEmail      string
	FromNameTemplate string

	ForumEnabled       bool
	ForumSubreddit     string
	ForumFlairID       string
	RedditClientID     string
	RedditClientSecret string
	RedditRefreshToken string
	RedditUserAgent    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	// Debug snapshots of intermediate artifacts.
	SaveIntermediate bool
	ExportsDir       string
}

const browserUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/110.0.0.0 Safari/537.36"

// Load loads configuration from environment variables.
func Load() *Config {
	return &Config{
		ServerPort: getEnv("SERVER_PORT", "8080"),
		LogLevel:   getEnv("LOG_LEVEL", "info"),
		APIKey:     getEnv("INTERNAL_API_KEY", ""),

		QueryTerm:      getEnv("DIGEST_QUERY_TERM", ""),
		LanguageCode:   getEnv("DIGEST_LANGUAGE_CODE", ""),
		CountryCode:    getEnv("DIGEST_COUNTRY_CODE", ""),
		LocationCode:   getEnvAsInt("DIGEST_LOCATION_CODE", 0),
		DaysToLookBack: getEnvAsInt("DAYS_TO_LOOK_BACK", 1),

		FeedBaseURL:            getEnv("FEED_BASE_URL", "https://news.google.com/rss/search"),
		FeedFetchTimeout:       getEnvAsDuration("FEED_FETCH_TIMEOUT_SECONDS", 20),
		InternationalFeed:      getEnvAsBool("DIGEST_INTERNATIONAL", false),
		InternationalCountries: getEnvAsSlice("INTERNATIONAL_COUNTRY_CODES", defaultCountryCodes),

		ResolverHeadless:            getEnvAsBool("RESOLVER_HEADLESS", true),
		ResolverUserAgent:           getEnv("RESOLVER_USER_AGENT", browserUserAgent),
		ResolverNavigationTimeout:   getEnvAsDuration("RESOLVER_NAVIGATION_TIMEOUT_SECONDS", 15),
		ResolverFinalURLTimeout:     getEnvAsDuration("RESOLVER_FINAL_URL_TIMEOUT_SECONDS", 15),
		ResolverConsentClickTimeout: getEnvAsDuration("RESOLVER_CONSENT_CLICK_TIMEOUT_SECONDS", 10),
		ResolverIndirectionPattern:  getEnv("RESOLVER_INDIRECTION_PATTERN", `^(https?://)?([a-z0-9-]+\.)*google\.`),
		ResolverConsentHostPattern:  getEnv("RESOLVER_CONSENT_HOST_PATTERN", `^https?://consent\.google\.`),
		ResolverConsentSelectors: getEnvAsSlice("RESOLVER_CONSENT_SELECTORS", []string{
			`button[aria-label="Accept all"]`,
			`#L2AGLb`,
			`form[action*="consent"] button[type="submit"]`,
		}),

		ExtractWorkers:        getEnvAsInt("EXTRACT_WORKERS", 2),
		ExtractRequestTimeout: getEnvAsDuration("EXTRACT_REQUEST_TIMEOUT_SECONDS", 15),
		ExtractMinTextLength:  getEnvAsInt("EXTRACT_MIN_TEXT_LENGTH", 150),
		ExtractUserAgent:      getEnv("EXTRACT_USER_AGENT", browserUserAgent),
		ExtractReferer:        getEnv("EXTRACT_REFERER", "https://www.google.com/"),

		CompletionEndpoint: getEnv("COMPLETION_ENDPOINT", "https://api.openai.com/v1/chat/completions"),
		CompletionModel:    getEnv("COMPLETION_MODEL", "gpt-4o-mini"),
		CompletionAPIKey:   getEnv("COMPLETION_API_KEY", ""),
		CompletionTimeout:  getEnvAsDuration("COMPLETION_TIMEOUT_SECONDS", 120),

		SearchAPIURL:      getEnv("SEARCH_API_URL", "https://api.dataforseo.com/v3/serp/google/news/live/advanced"),
		SearchAPILogin:    getEnv("SEARCH_API_LOGIN", ""),
		SearchAPIPassword: getEnv("SEARCH_API_PASSWORD", ""),

		ArchiveEnabled:   getEnvAsBool("DISTRIBUTION_ARCHIVE_ENABLED", false),
		ArchiveBaseURL:   getEnv("ARCHIVE_PUBLIC_BASE_URL", ""),
		PostgresHost:     getEnv("POSTGRES_HOST", "localhost"),
		PostgresPort:     getEnv("POSTGRES_PORT", "5432"),
		PostgresUser:     getEnv("POSTGRES_USER", "user"),
		PostgresPassword: getEnv("POSTGRES_PASSWORD", "password"),
		PostgresDB:       getEnv("POSTGRES_DB", "digests"),

		EmailEnabled:     getEnvAsBool("DISTRIBUTION_EMAIL_ENABLED", false),
		EmailRecipients:  getEnvAsSlice("DISTRIBUTION_EMAIL_RECIPIENTS", nil),
		SendGridAPIKey:   getEnv("SENDGRID_API_KEY", ""),
		SenderEmail:      getEnv("VERIFIED_SENDER_EMAIL", ""),
		FromNameTemplate: getEnv("EMAIL_FROM_NAME_TEMPLATE", "{query_term} Daily"),

		ForumEnabled:       getEnvAsBool("DISTRIBUTION_REDDIT_ENABLED", false),
		ForumSubreddit:     getEnv("DISTRIBUTION_REDDIT_SUBREDDIT", ""),
		ForumFlairID:       getEnv("DISTRIBUTION_REDDIT_FLAIR_ID", ""),
		RedditClientID:     getEnv("REDDIT_CLIENT_ID", ""),
		RedditClientSecret: getEnv("REDDIT_CLIENT_SECRET", ""),
		RedditRefreshToken: getEnv("REDDIT_REFRESH_TOKEN", ""),
		RedditUserAgent:    getEnv("REDDIT_USER_AGENT", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvAsInt("REDIS_DB", 0),

		SaveIntermediate: getEnvAsBool("SAVE_INTERMEDIATE_FILES", false),
		ExportsDir:       getEnv("EXPORTS_DIR", "exports"),
	}
}

// defaultCountryCodes is the country set the international fetch variant
// unions over: Europe, Eurasia, North Africa, the Gulf, and the main
// football/transfer-market countries elsewhere.
var defaultCountryCodes = []string{
	"AL", "AD", "AT", "BY", "BE", "BA", "BG", "HR", "CZ", "DK",
	"EE", "FI", "FR", "DE", "HU", "IS", "IE", "IT", "LV", "LI",
	"LT", "LU", "MT", "MD", "MC", "ME", "NL", "MK", "NO", "PL", "PT",
	"RO", "SM", "RS", "SK", "SI", "ES", "SE", "CH", "UA", "GB",
	"RU", "TR",
	"DZ", "EG", "LY", "MA", "TN",
	"BH", "IR", "IQ", "IL", "JO", "KW", "LB", "OM", "QA", "SA", "AE",
	"AR", "BR", "CO", "MX", "NG", "SN", "US", "UY", "AU",
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(strings.ToLower(valueStr)); err == nil {
		return value
	}
	return fallback
}

func getEnvAsDuration(key string, fallbackSeconds int) time.Duration {
	return time.Duration(getEnvAsInt(key, fallbackSeconds)) * time.Second
}

func getEnvAsSlice(key string, fallback []string) []string {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return fallback
	}
	parts := strings.Split(valueStr, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	if len(out) == 0 {
		return fallback
	}
	return out
}
