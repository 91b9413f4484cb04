package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

type Config struct {
	AppEnv     string `mapstructure:"APP_ENV"`
	AppName    string `mapstructure:"APP_NAME"`
	AppVersion string `mapstructure:"APP_VERSION"`
	TLS        struct {
		Enable   bool   `mapstructure:"ENABLE"`
		CertPath string `mapstructure:"CERT_PATH"`
		KeyPath  string `mapstructure:"KEY_PATH"`
	} `mapstructure:"TLS"`
	Server struct {
		Addr         string        `mapstructure:"ADDR"`
		ReadTimeout  time.Duration `mapstructure:"READ_TIMEOUT"`
		WriteTimeout time.Duration `mapstructure:"WRITE_TIMEOUT"`
		IdleTimeout  time.Duration `mapstructure:"IDLE_TIMEOUT"`
	} `mapstructure:"HTTP_SERVER"`
	Database struct {
		Type           string `mapstructure:"TYPE"`
		Host           string `mapstructure:"HOST"`
		Port           string `mapstructure:"PORT"`
		DBNAME         string `mapstructure:"DBNAME"`
		User           string `mapstructure:"USER"`
		Password       string `mapstructure:"PASSWORD"`
		SSLMode        string `mapstructure:"SSLMODE"`
		Timezone       string `mapstructure:"TIMEZONE"`
		ConnectionPool struct {
			MaxIdleConn     int           `mapstructure:"MAX_IDLE_CONN"`
			MaxOpenConns    int           `mapstructure:"MAX_OPEN_CONNS"`
			ConnMaxLifetime time.Duration `mapstructure:"CONN_MAX_LIFETIME"`
			ConnMaxIdleTime time.Duration `mapstructure:"CONN_MAX_IDLE_TIME"`
		} `mapstructure:"CONNECTION_POOL"`
	} `mapstructure:"DATABASE"`
	Redis struct {
		Addr        string        `mapstructure:"ADDR"`
		Password    string        `mapstructure:"PASSWORD"`
		DB          int           `mapstructure:"DB"`
		PoolSize    int           `mapstructure:"POOL_SIZE"`
		PoolTimeout time.Duration `mapstructure:"POOL_TIMEOUT"`
	} `mapstructure:"REDIS"`
	Auth struct {
		JWTSecret   string        `mapstructure:"JWT_SECRET"`
		Issuer      string        `mapstructure:"ISSUER"`
		Audience    string        `mapstructure:"AUDIENCE"`
		TokenTTL    time.Duration `mapstructure:"TOKEN_TTL"`
		KeyIDPrefix string        `mapstructure:"KEY_ID_PREFIX"`
	} `mapstructure:"AUTH"`
	Cache struct {
		ClassListTTL time.Duration `mapstructure:"CLASS_LIST_TTL"`
	} `mapstructure:"CACHE"`
	Reservation struct {
		TxTimeout time.Duration `mapstructure:"TX_TIMEOUT"`
	} `mapstructure:"RESERVATION"`
}

var Module = fx.Module("config", fx.Provide(LoadConfig))

// LoadConfig reads configuration from the environment, with an optional
// config.yaml in the working directory providing file-based overrides.
func LoadConfig() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		zap.L().Debug("no config file found, using environment only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("APP_NAME", "studiobook")
	v.SetDefault("HTTP_SERVER.ADDR", "8080")
	v.SetDefault("HTTP_SERVER.READ_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.WRITE_TIMEOUT", 15*time.Second)
	v.SetDefault("HTTP_SERVER.IDLE_TIMEOUT", 60*time.Second)
	v.SetDefault("DATABASE.TYPE", "postgres")
	v.SetDefault("DATABASE.SSLMODE", "disable")
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_IDLE_CONN", 5)
	v.SetDefault("DATABASE.CONNECTION_POOL.MAX_OPEN_CONNS", 25)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_LIFETIME", 30*time.Minute)
	v.SetDefault("DATABASE.CONNECTION_POOL.CONN_MAX_IDLE_TIME", 5*time.Minute)
	v.SetDefault("REDIS.ADDR", "127.0.0.1:6379")
	v.SetDefault("REDIS.POOL_SIZE", 10)
	v.SetDefault("REDIS.POOL_TIMEOUT", 30*time.Second)
	v.SetDefault("AUTH.ISSUER", "studio-management-api")
	v.SetDefault("AUTH.AUDIENCE", "cooperators")
	v.SetDefault("AUTH.TOKEN_TTL", time.Hour)
	v.SetDefault("AUTH.KEY_ID_PREFIX", "sbk_live_")
	v.SetDefault("CACHE.CLASS_LIST_TTL", 5*time.Minute)
	v.SetDefault("RESERVATION.TX_TIMEOUT", 10*time.Second)
}
