package config

import (
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

type Config struct {
	Server       Server
	Database     Database
	Redis        Redis
	Minio        Minio
	Attempt      Attempt
	GeminiApiKey string
}

type Server struct {
	Port string
}

type Database struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

type Redis struct {
	Addr     string
	Password string
	DB       int
}

type Minio struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	PublicURL string
}

// Attempt holds tuning knobs for the in-progress attempt runtime.
type Attempt struct {
	FlushIntervalSeconds int
	LowTimeThresholdSecs int
	MaxAudioUploadBytes  int64
}

func NewConfig() (*Config, error) {
	viper.SetConfigName(".env")
	viper.SetConfigType("env")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()

	viper.SetDefault("ANSWER_FLUSH_INTERVAL_SECONDS", 15)
	viper.SetDefault("LOW_TIME_THRESHOLD_SECONDS", 300)
	viper.SetDefault("MAX_AUDIO_UPLOAD_BYTES", 25<<20)
	viper.SetDefault("MINIO_BUCKET", "speaking-audio")

	if err := viper.ReadInConfig(); err != nil {
		log.Warn().Err(err).Msg("Error reading config file")
	}

	var config Config

	config.Server.Port = viper.GetString("SERVER_PORT")
	config.Database.Host = viper.GetString("DATABASE_HOST")
	config.Database.Port = viper.GetString("DATABASE_PORT")
	config.Database.User = viper.GetString("DATABASE_USER")
	config.Database.Password = viper.GetString("DATABASE_PASSWORD")
	config.Database.Name = viper.GetString("DATABASE_NAME")

	config.Redis.Addr = viper.GetString("REDIS_ADDR")
	config.Redis.Password = viper.GetString("REDIS_PASSWORD")
	config.Redis.DB = viper.GetInt("REDIS_DB")

	config.Minio.Endpoint = viper.GetString("MINIO_ENDPOINT")
	config.Minio.AccessKey = viper.GetString("MINIO_ACCESS_KEY")
	config.Minio.SecretKey = viper.GetString("MINIO_SECRET_KEY")
	config.Minio.Bucket = viper.GetString("MINIO_BUCKET")
	config.Minio.UseSSL = viper.GetBool("MINIO_USE_SSL")
	config.Minio.PublicURL = viper.GetString("MINIO_PUBLIC_URL")

	config.Attempt.FlushIntervalSeconds = viper.GetInt("ANSWER_FLUSH_INTERVAL_SECONDS")
	config.Attempt.LowTimeThresholdSecs = viper.GetInt("LOW_TIME_THRESHOLD_SECONDS")
	config.Attempt.MaxAudioUploadBytes = viper.GetInt64("MAX_AUDIO_UPLOAD_BYTES")

	config.GeminiApiKey = viper.GetString("GEMINI_API_KEY")

	log.Info().Str("port", config.Server.Port).Str("redis", config.Redis.Addr).Msg("Config loaded")
	return &config, nil
}
