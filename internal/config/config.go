package config

import (
	"log"
	"os"

	"github.com/joho/godotenv"
)

// Config carries the environment-driven settings of the relay service.
type Config struct {
	Port         string
	DataDir      string
	UploadDir    string
	DBDSN        string // when set, snapshots go to Postgres instead of the data dir
	AMQPURL      string
	Exchange     string
	AuditRouting string
	Environment  string
	OTLPEndpoint string
}

// Load reads an optional .env file and the process environment.
func Load() Config {
	if err := godotenv.Load(); err == nil {
		log.Println("loaded .env")
	}

	return Config{
		Port:         getEnv("PORT", "3000"),
		DataDir:      getEnv("DATA_DIR", "data"),
		UploadDir:    getEnv("UPLOAD_DIR", "uploads"),
		DBDSN:        getEnv("DB_DSN", ""),
		AMQPURL:      getEnv("AMQP_URL", ""),
		Exchange:     getEnv("AMQP_EXCHANGE", "relay.events"),
		AuditRouting: getEnv("AUDIT_ROUTING_KEY", "audit.relay"),
		Environment:  getEnv("ENVIRONMENT", "dev"),
		OTLPEndpoint: getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}
