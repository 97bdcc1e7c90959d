package config

import (
	"os"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"
)

type Configuration struct {
	Logs      LogsSettings     `mapstructure:"logs"`
	App       Application      `mapstructure:"app"`
	Database  Database         `mapstructure:"database"`
	Queue     QueueConfig      `mapstructure:"queue"`
	Redis     Redis            `mapstructure:"redis"`
	Security  SecuritySettings `mapstructure:"security"`
	Server    ServerSettings   `mapstructure:"server"`
	Dashboard DashboardConfig  `mapstructure:"dashboard"`
	Cache     CacheConfig      `mapstructure:"cache"`
}

type LogsSettings struct {
	Level            string `mapstructure:"level"`
	Path             string `mapstructure:"log-path"`
	EnableJSONOutput bool   `mapstructure:"enable-json-output"`
}

type Application struct {
	Name     string `mapstructure:"name"`
	Timeout  int    `mapstructure:"timeout"`
	Version  string `mapstructure:"version"`
	Timezone string `mapstructure:"timezone"`
}

type Database struct {
	Url         string      `mapstructure:"url"`
	DbName      string      `mapstructure:"dbname"`
	Collections Collections `mapstructure:"collections"`
	Timeout     int         `mapstructure:"timeout"`
}

type Collections struct {
	Sessions      string `mapstructure:"sessions"`
	Cancellations string `mapstructure:"cancellations"`
	Workers       string `mapstructure:"workers"`
	TempBadges    string `mapstructure:"temp-badges"`
	Posts         string `mapstructure:"posts"`
	SubLines      string `mapstructure:"sub-lines"`
	Products      string `mapstructure:"products"`
	Operations    string `mapstructure:"operations"`
	Parts         string `mapstructure:"parts"`
	PostConfigs   string `mapstructure:"post-configs"`
	Devices       string `mapstructure:"devices"`
}

type QueueConfig struct {
	RabbitMQ RabbitMQConfig `mapstructure:"rabbitmq"`
}

type RabbitMQConfig struct {
	Url            string `mapstructure:"url"`
	Exchange       string `mapstructure:"exchange"`
	ExchangeType   string `mapstructure:"exchange-type"`
	RoutingKey     string `mapstructure:"routing-key"`
	ReconnectDelay int    `mapstructure:"reconnect-delay"`
	Timeout        int    `mapstructure:"timeout"`
	Durable        bool   `mapstructure:"durable"`
	AutoDelete     bool   `mapstructure:"auto-delete"`
	Internal       bool   `mapstructure:"internal"`
	NoWait         bool   `mapstructure:"no-wait"`
}

type Redis struct {
	Url      string `mapstructure:"url"`
	Password string `mapstructure:"password"`
	Db       int    `mapstructure:"db"`
}

type SecuritySettings struct {
	DeviceJwtKey string `mapstructure:"device-jwt-key"`
}

type ServerSettings struct {
	Port         string `mapstructure:"port"`
	Mode         string `mapstructure:"mode"`
	ReadTimeout  int    `mapstructure:"read-timeout"`
	WriteTimeout int    `mapstructure:"write-timeout"`
	IdleTimeout  int    `mapstructure:"idle-timeout"`
}

type DashboardConfig struct {
	SubLineCapacity int `mapstructure:"sub-line-capacity"`
	ThrottleSeconds int `mapstructure:"throttle-seconds"`
}

type CacheConfig struct {
	SnapshotKey               string `mapstructure:"snapshot-key"`
	SnapshotExpirationSeconds int    `mapstructure:"snapshot-expiration-seconds"`
}

func Load() *Configuration {
	cfg := read()
	logrus.Info("Configuration loaded")

	// Override with environment variables
	mongoUri := os.Getenv("MONGODB_URL")
	if mongoUri != "" {
		cfg.Database.Url = mongoUri
	}

	dbName := os.Getenv("DB_NAME")
	if dbName != "" {
		cfg.Database.DbName = dbName
	}

	redisUrl := os.Getenv("REDIS_URL")
	if redisUrl != "" {
		cfg.Redis.Url = redisUrl
	}

	redisDB := os.Getenv("REDIS_DB")
	if redisDB != "" {
		if db, err := strconv.Atoi(redisDB); err == nil {
			cfg.Redis.Db = db
		}
	}

	rabbitmqUrl := os.Getenv("RABBITMQ_URL")
	if rabbitmqUrl != "" {
		cfg.Queue.RabbitMQ.Url = rabbitmqUrl
	}

	deviceKey := os.Getenv("DEVICE_JWT_KEY")
	if deviceKey != "" {
		cfg.Security.DeviceJwtKey = deviceKey
	}

	port := os.Getenv("PORT")
	if port != "" {
		cfg.Server.Port = port
	}

	return cfg
}

// Location resolves the production-site timezone. Session timestamps and the
// daily quantity metric are computed in this zone, not in UTC.
func (c *Configuration) Location() *time.Location {
	loc, err := time.LoadLocation(c.App.Timezone)
	if err != nil {
		logrus.WithError(err).Warnf("Invalid timezone %q, falling back to local", c.App.Timezone)
		return time.Local
	}
	return loc
}

func read() *Configuration {
	viper.SetConfigFile("src/internal/config/cfg.yml")
	viper.AutomaticEnv()
	viper.SetConfigType("yml")

	var config Configuration

	err := viper.ReadInConfig()
	if err != nil {
		logrus.Panicf("Error reading config file, %s", err)
	}

	err = viper.Unmarshal(&config)
	if err != nil {
		logrus.Panicf("Error unmarshalling config file, %s", err)
	}

	return &config
}
