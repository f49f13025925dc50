package config

import (
	"log"
	"time"

	"github.com/kelseyhightower/envconfig"
)

// AppConfig описывает конфигурацию сервисов.
type AppConfig struct {
	AppEnv string `envconfig:"APP_ENV" default:"dev"`
	Port   int    `envconfig:"PORT" default:"8080"`

	MetricsAddr string `envconfig:"METRICS_ADDR" default:":9090"`

	PGDSN     string `envconfig:"PG_DSN"`
	RedisAddr string `envconfig:"REDIS_ADDR"`

	MediaDir string `envconfig:"MEDIA_DIR" default:"./media"`

	OpenAI struct {
		APIKey         string        `envconfig:"OPENAI_API_KEY"`
		BaseURL        string        `envconfig:"OPENAI_BASE_URL"`
		Model          string        `envconfig:"OPENAI_MODEL" default:"gpt-3.5-turbo"`
		EmbeddingModel string        `envconfig:"OPENAI_EMBEDDING_MODEL" default:"text-embedding-3-small"`
		ImageModel     string        `envconfig:"OPENAI_IMAGE_MODEL" default:"gpt-image-1"`
		ImageSize      string        `envconfig:"OPENAI_IMAGE_SIZE" default:"1024x1024"`
		Temperature    float64       `envconfig:"OPENAI_TEMPERATURE" default:"0.7"`
		ChatTimeout    time.Duration `envconfig:"OPENAI_CHAT_TIMEOUT" default:"45s"`
		ImageTimeout   time.Duration `envconfig:"OPENAI_IMAGE_TIMEOUT" default:"60s"`
	} `envconfig:""`

	Site struct {
		Name    string `envconfig:"SITE_NAME"`
		BaseURL string `envconfig:"SITE_BASE_URL"`
	} `envconfig:""`

	Generator struct {
		Enabled            bool   `envconfig:"GENERATOR_ENABLED" default:"true"`
		GlobalInstructions string `envconfig:"GENERATOR_GLOBAL_INSTRUCTIONS"`
		ContentTemplate    string `envconfig:"GENERATOR_CONTENT_TEMPLATE"`
		DefaultCategoryID  int64  `envconfig:"GENERATOR_DEFAULT_CATEGORY"`
		DefaultPostStatus  string `envconfig:"GENERATOR_POST_STATUS" default:"draft"`
		AuthorID           int64  `envconfig:"GENERATOR_AUTHOR_ID" default:"1"`
	} `envconfig:""`

	SEO struct {
		TitleFormat string `envconfig:"SEO_TITLE_FORMAT"`
		MetaPrompt  string `envconfig:"SEO_META_PROMPT"`
	} `envconfig:""`

	Queue struct {
		Backend string `envconfig:"QUEUE_BACKEND" default:"redis"`
		Key     string `envconfig:"GENERATION_QUEUE_KEY" default:"generation_jobs"`
		AMQPURL string `envconfig:"AMQP_URL"`
	} `envconfig:""`

	Telegram struct {
		Token       string `envconfig:"TG_BOT_TOKEN"`
		AdminChatID int64  `envconfig:"TG_ADMIN_CHAT_ID"`
	} `envconfig:""`
}

// Load загружает конфиг из окружения.
func Load() AppConfig {
	var cfg AppConfig
	if err := envconfig.Process("", &cfg); err != nil {
		log.Fatalf("не удалось загрузить конфиг: %v", err)
	}
	return cfg
}
