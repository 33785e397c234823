package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// Config carries the process-level settings. DatabaseURL empty means the
// volatile in-memory engine: state is discarded on restart and the demo
// dataset is seeded at startup.
type Config struct {
	ServerAddr  string
	DatabaseURL string
	BcryptCost  int
	DisableSeed bool
}

func Load() Config {
	if err := godotenv.Load(); err != nil {
		log.Println("[INFO] Load: no .env file found, using environment variables")
	}

	cfg := Config{
		ServerAddr:  os.Getenv("SERVER_ADDR"),
		DatabaseURL: os.Getenv("DATABASE_URL"),
	}
	if cfg.ServerAddr == "" {
		cfg.ServerAddr = ":8080"
	}

	if val := os.Getenv("BCRYPT_COST"); val != "" {
		cost, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("[ERROR] Load: invalid BCRYPT_COST %q: %v", val, err)
		}
		cfg.BcryptCost = cost
	}

	if val := os.Getenv("DISABLE_SEED"); val != "" {
		disabled, err := strconv.ParseBool(val)
		if err != nil {
			log.Fatalf("[ERROR] Load: invalid DISABLE_SEED %q: %v", val, err)
		}
		cfg.DisableSeed = disabled
	}

	return cfg
}
