package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	MongoURI       string
	DBName         string
	JWTSecret      string
	AccessTokenTTL time.Duration

	// Delivery fee schedule (LSL).
	StandardDeliveryFee float64
	UrgentDeliveryFee   float64

	// Mobile-money provider simulation.
	PaymentSimLatency     time.Duration
	MpesaSuccessRate      float64
	DeliveryEstimateDelay time.Duration
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		MongoURI:              getEnvOrDefault("MONGO_URI", ""),
		DBName:                getEnvOrDefault("DB_NAME", "lesmarket"),
		JWTSecret:             getEnvOrDefault("JWT_SECRET", ""),
		AccessTokenTTL:        getDurationEnv("ACCESS_TOKEN_TTL", 20, time.Minute),
		StandardDeliveryFee:   getFloatEnv("STANDARD_DELIVERY_FEE", 15.0),
		UrgentDeliveryFee:     getFloatEnv("URGENT_DELIVERY_FEE", 25.0),
		PaymentSimLatency:     getDurationEnv("PAYMENT_SIM_LATENCY_MS", 1500, time.Millisecond),
		MpesaSuccessRate:      getFloatEnv("MPESA_SUCCESS_RATE", 0.9),
		DeliveryEstimateDelay: getDurationEnv("DELIVERY_ESTIMATE_MINUTES", 30, time.Minute),
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}
