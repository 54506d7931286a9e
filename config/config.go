package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"slices"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	configFileEnvName = "STOREFRONT_CONFIG_FILE"
	envPrefix         = "STOREFRONT"
	defaultConfigFile = "/config.yaml"
)

const (
	CartStorageMemory   = "memory"
	CartStoragePostgres = "postgres"
	CartStorageRedis    = "redis"
)

type cart struct {
	Storage       string        `mapstructure:"storage"`
	IdleTimeout   time.Duration `mapstructure:"idle_timeout"`
	SweepInterval time.Duration `mapstructure:"sweep_interval"`
}

type redis struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

type payment struct {
	SecretKey string `mapstructure:"secret_key"`
	Currency  string `mapstructure:"currency"`
}

type cms struct {
	ProjectID     string `mapstructure:"project_id"`
	Dataset       string `mapstructure:"dataset"`
	APIVersion    string `mapstructure:"api_version"`
	Token         string `mapstructure:"token"`
	BaseURL       string `mapstructure:"base_url"`
	RetryAttempts int    `mapstructure:"retry_attempts"`
}

type auth struct {
	HMACSecret       string `mapstructure:"hmac_secret"`
	RSAPublicKeyFile string `mapstructure:"rsa_public_key_file"`
	Issuer           string `mapstructure:"issuer"`
}

type tlsFiles struct {
	CA   string `mapstructure:"ca"`
	Cert string `mapstructure:"cert"`
	Key  string `mapstructure:"key"`
}

type topics struct {
	CheckoutEvents string `mapstructure:"checkout_events"`
}

type consumers struct {
	CheckoutTrackerGroup string `mapstructure:"checkout_tracker_group"`
}

type broker struct {
	SeedBrokers        []string  `mapstructure:"seed_brokers"`
	SchemaRegistryURLs []string  `mapstructure:"schema_registry_urls"`
	TLS                tlsFiles  `mapstructure:"tls"`
	Topics             topics    `mapstructure:"topics"`
	Consumers          consumers `mapstructure:"consumers"`
}

type Config struct {
	LogLevel       string   `mapstructure:"log_level"`
	HTTPServerAddr string   `mapstructure:"http_server_addr"`
	BaseURL        string   `mapstructure:"base_url"`
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	SQLDB          string   `mapstructure:"sql_db"`
	Cart           cart     `mapstructure:"cart"`
	Redis          redis    `mapstructure:"redis"`
	Payment        payment  `mapstructure:"payment"`
	CMS            cms      `mapstructure:"cms"`
	Auth           auth     `mapstructure:"auth"`
	Broker         broker   `mapstructure:"broker"`
}

// Load reads the config file named by --config or STOREFRONT_CONFIG_FILE,
// applies STOREFRONT_* env overrides and exits the process on failure.
func Load() Config {
	cfg, err := load(os.Args[1:], os.LookupEnv)
	if err != nil {
		die(err)
	}
	return cfg
}

func load(
	args []string, lookupEnv func(string) (string, bool),
) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	path, explicit := getConfigFilepath(args, lookupEnv)
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		var notExist *os.PathError
		if explicit || !errors.As(err, &notExist) {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.UnmarshalExact(&cfg); err != nil {
		return Config{}, err
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("http_server_addr", ":8000")
	v.SetDefault("base_url", "http://localhost:3000")
	v.SetDefault("allowed_origins", []string{"http://localhost:3000"})
	v.SetDefault("sql_db", "")

	v.SetDefault("cart.storage", CartStorageMemory)
	v.SetDefault("cart.idle_timeout", 30*time.Minute)
	v.SetDefault("cart.sweep_interval", time.Minute)

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 7*24*time.Hour)

	v.SetDefault("payment.secret_key", "")
	v.SetDefault("payment.currency", "usd")

	v.SetDefault("cms.project_id", "")
	v.SetDefault("cms.dataset", "production")
	v.SetDefault("cms.api_version", "2024-01-01")
	v.SetDefault("cms.token", "")
	v.SetDefault("cms.base_url", "")
	v.SetDefault("cms.retry_attempts", 3)

	v.SetDefault("auth.hmac_secret", "")
	v.SetDefault("auth.rsa_public_key_file", "")
	v.SetDefault("auth.issuer", "")

	v.SetDefault("broker.seed_brokers", []string{})
	v.SetDefault("broker.schema_registry_urls", []string{})
	v.SetDefault("broker.tls.ca", "")
	v.SetDefault("broker.tls.cert", "")
	v.SetDefault("broker.tls.key", "")
	v.SetDefault("broker.topics.checkout_events", "checkout-events")
	v.SetDefault("broker.consumers.checkout_tracker_group", "checkout-tracker")
}

// getConfigFilepath reports whether the path was asked for explicitly.
// A missing default file is not an error.
func getConfigFilepath(
	args []string, lookupEnv func(string) (string, bool),
) (string, bool) {
	cmdLine := pflag.NewFlagSet("storefront", pflag.ContinueOnError)
	cmdLine.ParseErrorsWhitelist.UnknownFlags = true
	arg := cmdLine.String("config", defaultConfigFile, "config file")
	_ = cmdLine.Parse(args)

	if env, ok := lookupEnv(configFileEnvName); ok && env != "" {
		return env, true
	}
	return *arg, cmdLine.Changed("config")
}

func (c Config) validate() error {
	var errs []error

	if _, err := c.SlogLevel(); err != nil {
		errs = append(errs, fmt.Errorf("log_level: %w", err))
	}

	storages := []string{CartStorageMemory, CartStoragePostgres, CartStorageRedis}
	if !slices.Contains(storages, c.Cart.Storage) {
		errs = append(errs, fmt.Errorf(
			"cart.storage: %q is not one of %q", c.Cart.Storage, storages,
		))
	}
	if c.Cart.Storage == CartStoragePostgres && c.SQLDB == "" {
		errs = append(errs, errors.New("sql_db: required for postgres cart storage"))
	}
	if c.Cart.IdleTimeout <= 0 || c.Cart.SweepInterval <= 0 {
		errs = append(errs, errors.New("cart: idle_timeout and sweep_interval must be positive"))
	}

	if c.Payment.SecretKey == "" {
		errs = append(errs, errors.New("payment.secret_key: required"))
	}
	if c.CMS.ProjectID == "" && c.CMS.BaseURL == "" {
		errs = append(errs, errors.New("cms: project_id or base_url required"))
	}
	if c.Auth.HMACSecret == "" && c.Auth.RSAPublicKeyFile == "" {
		errs = append(errs, errors.New("auth: hmac_secret or rsa_public_key_file required"))
	}

	tls := c.Broker.TLS
	if (tls.CA != "" || tls.Cert != "" || tls.Key != "") &&
		(tls.CA == "" || tls.Cert == "" || tls.Key == "") {
		errs = append(errs, errors.New("broker.tls: ca, cert and key go together"))
	}
	if len(c.Broker.SeedBrokers) != 0 && len(c.Broker.SchemaRegistryURLs) == 0 {
		errs = append(errs, errors.New("broker.schema_registry_urls: required with seed_brokers"))
	}

	return errors.Join(errs...)
}

// SlogLevel parses LogLevel.
func (c Config) SlogLevel() (slog.Level, error) {
	var l slog.Level
	err := l.UnmarshalText([]byte(c.LogLevel))
	return l, err
}

// BrokerEnabled reports whether checkout events are streamed.
func (c Config) BrokerEnabled() bool {
	return len(c.Broker.SeedBrokers) != 0
}

// BrokerTLSEnabled reports whether broker certificates are configured.
func (c Config) BrokerTLSEnabled() bool {
	return c.Broker.TLS.CA != ""
}

func die(err error) {
	fmt.Printf("failed to load config file: %v\n", err)
	os.Exit(2)
}

func mask(secret string) string {
	if secret == "" {
		return ""
	}
	return "***"
}

func maskDSN(dsn string) string {
	at := strings.LastIndex(dsn, "@")
	scheme := strings.Index(dsn, "://")
	if at == -1 || scheme == -1 || scheme > at {
		return dsn
	}
	return dsn[:scheme+3] + "***" + dsn[at:]
}

func (c Config) Print() {
	tamplate := `
	General:
	LogLevel=%q
	HTTPServerAddr=%q
	BaseURL=%q
	AllowedOrigins=%q
	SQLDB=%q

	Cart:
	Storage=%q
	IdleTimeout=%s
	SweepInterval=%s

	Redis:
	Addr=%q
	Password=%q
	DB=%d
	TTL=%s

	Payment:
	SecretKey=%q
	Currency=%q

	CMS:
	ProjectID=%q
	Dataset=%q
	APIVersion=%q
	Token=%q
	BaseURL=%q
	RetryAttempts=%d

	Auth:
	HMACSecret=%q
	RSAPublicKeyFile=%q
	Issuer=%q

	BrokerConfig:
	SeedBrokers=%q
	SchemaRegistryURLs=%q
	TLS:
		CA=%q
		Cert=%q
		Key=%q
	Topics:
		CheckoutEvents=%q
	Consumers:
		CheckoutTrackerGroup=%q

`
	fmt.Println("Loaded config:")
	fmt.Printf(
		strings.TrimLeft(tamplate, "\n"),
		c.LogLevel,
		c.HTTPServerAddr,
		c.BaseURL,
		c.AllowedOrigins,
		maskDSN(c.SQLDB),
		c.Cart.Storage,
		c.Cart.IdleTimeout,
		c.Cart.SweepInterval,
		c.Redis.Addr,
		mask(c.Redis.Password),
		c.Redis.DB,
		c.Redis.TTL,
		mask(c.Payment.SecretKey),
		c.Payment.Currency,
		c.CMS.ProjectID,
		c.CMS.Dataset,
		c.CMS.APIVersion,
		mask(c.CMS.Token),
		c.CMS.BaseURL,
		c.CMS.RetryAttempts,
		mask(c.Auth.HMACSecret),
		c.Auth.RSAPublicKeyFile,
		c.Auth.Issuer,
		c.Broker.SeedBrokers,
		c.Broker.SchemaRegistryURLs,
		c.Broker.TLS.CA,
		c.Broker.TLS.Cert,
		c.Broker.TLS.Key,
		c.Broker.Topics.CheckoutEvents,
		c.Broker.Consumers.CheckoutTrackerGroup,
	)
}
