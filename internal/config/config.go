package config

import (
	"errors"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/caarlos0/env/v11"
)

// LedgerConfig настройки сервиса балансов. Значения из окружения имеют приоритет
// над флагами.
type LedgerConfig struct {
	RunAddress     string   `env:"RUN_ADDRESS"`
	DatabaseDSN    string   `env:"DATABASE_URI"`
	MigrationsDir  string   `env:"MIGRATIONS_DIR"`
	JWTUserSecret  string   `env:"JWT_USER_SECRET"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	KafkaGroupID   string   `env:"KAFKA_GROUP_ID"`
	InitialBalance string   `env:"INITIAL_BALANCE"`
}

func LoadLedgerConfig() (*LedgerConfig, error) {
	var envConfig LedgerConfig
	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	flagsConfig := loadLedgerFlags()

	conf := &LedgerConfig{
		RunAddress:     defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:    defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:  defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		JWTUserSecret:  defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret),
		KafkaBrokers:   defaultIfEmpty(envConfig.KafkaBrokers, flagsConfig.KafkaBrokers),
		KafkaGroupID:   defaultIfBlank(envConfig.KafkaGroupID, flagsConfig.KafkaGroupID),
		InitialBalance: defaultIfBlank(envConfig.InitialBalance, flagsConfig.InitialBalance),
	}
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTUserSecret == "" {
		return nil, errors.New("JWT secret is not set")
	}
	return conf, nil
}

func MustLoadLedgerConfig() *LedgerConfig {
	config, err := LoadLedgerConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadLedgerFlags() *LedgerConfig {
	var conf LedgerConfig
	var brokers string

	fs := flag.NewFlagSet("ledger", flag.ExitOnError)
	fs.StringVar(&conf.RunAddress, "a", "localhost:8081", "Run address in format host:port")
	fs.StringVar(&conf.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&conf.MigrationsDir, "m", "internal/db/migrations/ledger", "Database migrations directory")
	fs.StringVar(&conf.JWTUserSecret, "j", "", "JWT secret key")
	fs.StringVar(&brokers, "k", "localhost:9092", "Kafka brokers, comma separated")
	fs.StringVar(&conf.KafkaGroupID, "g", "ledger-service", "Kafka consumer group id")
	fs.StringVar(&conf.InitialBalance, "i", "100", "Initial balance granted on registration")
	_ = fs.Parse(os.Args[1:]) //nolint:errcheck

	conf.KafkaBrokers = splitBrokers(brokers)
	return &conf
}

// OrdersConfig настройки сервиса заказов. Адреса соседних сервисов обязательны:
// оплата ходит в сервис балансов синхронно.
type OrdersConfig struct {
	RunAddress     string   `env:"RUN_ADDRESS"`
	DatabaseDSN    string   `env:"DATABASE_URI"`
	MigrationsDir  string   `env:"MIGRATIONS_DIR"`
	JWTUserSecret  string   `env:"JWT_USER_SECRET"`
	KafkaBrokers   []string `env:"KAFKA_BROKERS" envSeparator:","`
	LedgerAddress  string   `env:"LEDGER_ADDRESS"`
	CartAddress    string   `env:"CART_ADDRESS"`
	CatalogAddress string   `env:"CATALOG_ADDRESS"`
}

func LoadOrdersConfig() (*OrdersConfig, error) {
	var envConfig OrdersConfig
	if envParseErr := env.Parse(&envConfig); envParseErr != nil {
		return nil, fmt.Errorf("parse env config: %s", envParseErr.Error())
	}

	flagsConfig := loadOrdersFlags()

	conf := &OrdersConfig{
		RunAddress:     defaultIfBlank(envConfig.RunAddress, flagsConfig.RunAddress),
		DatabaseDSN:    defaultIfBlank(envConfig.DatabaseDSN, flagsConfig.DatabaseDSN),
		MigrationsDir:  defaultIfBlank(envConfig.MigrationsDir, flagsConfig.MigrationsDir),
		JWTUserSecret:  defaultIfBlank(envConfig.JWTUserSecret, flagsConfig.JWTUserSecret),
		KafkaBrokers:   defaultIfEmpty(envConfig.KafkaBrokers, flagsConfig.KafkaBrokers),
		LedgerAddress:  defaultIfBlank(envConfig.LedgerAddress, flagsConfig.LedgerAddress),
		CartAddress:    defaultIfBlank(envConfig.CartAddress, flagsConfig.CartAddress),
		CatalogAddress: defaultIfBlank(envConfig.CatalogAddress, flagsConfig.CatalogAddress),
	}
	if conf.DatabaseDSN == "" {
		return nil, errors.New("database DSN is not set")
	}
	if conf.JWTUserSecret == "" {
		return nil, errors.New("JWT secret is not set")
	}
	if conf.LedgerAddress == "" {
		return nil, errors.New("ledger address is not set")
	}
	return conf, nil
}

func MustLoadOrdersConfig() *OrdersConfig {
	config, err := LoadOrdersConfig()
	if err != nil {
		panic(err)
	}
	return config
}

func loadOrdersFlags() *OrdersConfig {
	var conf OrdersConfig
	var brokers string

	fs := flag.NewFlagSet("orders", flag.ExitOnError)
	fs.StringVar(&conf.RunAddress, "a", "localhost:8082", "Run address in format host:port")
	fs.StringVar(&conf.DatabaseDSN, "d", "", "Database DSN")
	fs.StringVar(&conf.MigrationsDir, "m", "internal/db/migrations/orders", "Database migrations directory")
	fs.StringVar(&conf.JWTUserSecret, "j", "", "JWT secret key")
	fs.StringVar(&brokers, "k", "localhost:9092", "Kafka brokers, comma separated")
	fs.StringVar(&conf.LedgerAddress, "l", "", "Ledger service address")
	fs.StringVar(&conf.CartAddress, "c", "", "Cart service address")
	fs.StringVar(&conf.CatalogAddress, "p", "", "Catalog service address")
	_ = fs.Parse(os.Args[1:]) //nolint:errcheck

	conf.KafkaBrokers = splitBrokers(brokers)
	return &conf
}

func splitBrokers(brokers string) []string {
	if brokers == "" {
		return nil
	}
	parts := strings.Split(brokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func defaultIfBlank(value string, defaultValue string) string {
	if value == "" {
		return defaultValue
	}
	return value
}

func defaultIfEmpty(value []string, defaultValue []string) []string {
	if len(value) == 0 {
		return defaultValue
	}
	return value
}
