package config

import (
	"flag"
	"log"
	"os"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env        string     `yaml:"env" env-required:"true" env-default:"production"`
	HTTPServer HTTPServer `yaml:"http_server" env-required:"true"`
	JWTSecret  string     `yaml:"jwt_secret" env-required:"true" env-default:"super_secret_key"`
	MinIO      MinIO      `yaml:"minio" env-required:"true"`
	Media      Media      `yaml:"media"`
	Redis      Redis      `yaml:"redis"`
	TagSuggest TagSuggest `yaml:"tag_suggest"`
	Admin      Admin      `yaml:"admin"`
}

type HTTPServer struct {
	Address string `yaml:"address" env-required:"true" env-default:"localhost:8080"`
}

type MinIO struct {
	Endpoint        string `yaml:"endpoint" env:"MINIO_ENDPOINT" env-default:"localhost:9000"`
	AccessKeyID     string `yaml:"access_key_id" env:"MINIO_ACCESS_KEY_ID" env-default:"minioadmin"`
	SecretAccessKey string `yaml:"secret_access_key" env:"MINIO_SECRET_ACCESS_KEY" env-default:"minioadmin"`
	UseSSL          bool   `yaml:"use_ssl" env:"MINIO_USE_SSL" env-default:"false"`
	BucketName      string `yaml:"bucket_name" env:"MINIO_BUCKET_NAME" env-default:"media"`
}

type Media struct {
	MaxFileSize      int64    `yaml:"max_file_size" env-default:"10485760"`
	AllowedMimeTypes []string `yaml:"allowed_mime_types" env-default:"image/jpeg,image/png,image/gif"`
}

type Redis struct {
	Address  string `yaml:"address" env:"REDIS_ADDRESS" env-default:"localhost:6379"`
	Password string `yaml:"password" env:"REDIS_PASSWORD" env-default:""`
	DB       int    `yaml:"db" env:"REDIS_DB" env-default:"0"`
}

type TagSuggest struct {
	Endpoint       string `yaml:"endpoint" env:"TAG_SUGGEST_ENDPOINT"`
	APIKey         string `yaml:"api_key" env:"TAG_SUGGEST_API_KEY"`
	TimeoutSeconds int    `yaml:"timeout_seconds" env-default:"15"`
}

// Admin optionally seeds one administrator account at startup. Admin tokens
// carry an admin claim; regular signups never do.
type Admin struct {
	Username string `yaml:"username" env:"ADMIN_USERNAME"`
	Password string `yaml:"password" env:"ADMIN_PASSWORD"`
}

func MustLoad() *Config {
	var configPath string

	configPath = os.Getenv("CONFIG_PATH")

	if configPath == "" {
		flags := flag.String("config", "", "Path to config file")
		flag.Parse()
		configPath = *flags

		if configPath == "" {
			log.Fatal("config path must be provided")
		}
	}

	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		log.Fatalf("config file does not exist at path: %s", configPath)
	}

	var cfg Config

	err := cleanenv.ReadConfig(configPath, &cfg)

	if err != nil {
		log.Fatalf("failed to read config: %s", err)
	}

	return &cfg
}
