package app

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

type Config struct {
	EthRPCURL      string `env:"ETH_RPC_URL,required"`
	ExplorerAPIURL string `env:"EXPLORER_API_URL,required"`
	ExplorerAPIKey string `env:"EXPLORER_API_KEY,required"`
	PostgresURL    string `env:"POSTGRES_URL,required"`

	ListenAddr   string `env:"LISTEN_ADDR"`
	SMTPAddr     string `env:"SMTP_ADDR"`
	SMTPUser     string `env:"SMTP_USER"`
	SMTPPassword string `env:"SMTP_PASSWORD"`
	SMTPFrom     string `env:"SMTP_FROM"`

	BalancePollInterval time.Duration `env:"BALANCE_POLL_INTERVAL"`
	HistoryTTL          time.Duration `env:"HISTORY_TTL"`
	HistoryLimit        int           `env:"HISTORY_LIMIT"`
	GasDebounce         time.Duration `env:"GAS_DEBOUNCE"`
	ConfirmTimeout      time.Duration `env:"CONFIRM_TIMEOUT"`
	OTPTTL              time.Duration `env:"OTP_TTL"`
}

func LoadConfig() (Config, error) {
	err := godotenv.Load()
	if err != nil {
		fmt.Println("Warning: .env file not found, relying on environment variables")
	}

	config := Config{
		ListenAddr:          ":3000",
		BalancePollInterval: 15 * time.Second,
		HistoryTTL:          5 * time.Minute,
		HistoryLimit:        10,
		GasDebounce:         300 * time.Millisecond,
		ConfirmTimeout:      2 * time.Minute,
		OTPTTL:              5 * time.Minute,
	}

	if err := env.Parse(&config); err != nil {
		return Config{}, err
	}

	return config, nil
}
