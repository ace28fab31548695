// config/config.go
package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Configuration stores all the configurations
type Configuration struct {
	Server        ServerConfiguration
	Storage       StorageConfiguration
	Neo4j         DatabaseConfiguration
	Redis         RedisConfiguration
	Elasticsearch ElasticsearchConfiguration
	Channel       ChannelConfiguration
}

// ServerConfiguration stores the port and other web server settings
type ServerConfiguration struct {
	Port string
}

// StorageConfiguration selects the participant store backend
type StorageConfiguration struct {
	Driver string // "neo4j" or "memory"
}

// DatabaseConfiguration stores data for database connection
type DatabaseConfiguration struct {
	URI      string
	Username string
	Password string
}

// RedisConfiguration stores data for Redis connection and cache TTLs
type RedisConfiguration struct {
	Addr          string
	ListCacheTTL  time.Duration
	PointCacheTTL time.Duration
}

// ElasticsearchConfiguration stores data for Elasticsearch connection
type ElasticsearchConfiguration struct {
	URL string
}

// ChannelConfiguration stores reconnect tuning for the client event channel
type ChannelConfiguration struct {
	BaseDelay   time.Duration
	MaxDelay    time.Duration
	MaxAttempts int
	BufferSize  int
}

var config *Configuration

func InitConfig() error {
	viper.AddConfigPath("config") // path to look for the config file in
	viper.SetConfigName("config") // name of the config file (without extension)
	viper.SetConfigType("yaml")

	viper.AutomaticEnv() // read in environment variables that match

	// Set default configurations
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("storage.driver", "neo4j")
	viper.SetDefault("neo4j.uri", "bolt://localhost:7687")
	viper.SetDefault("redis.addr", "localhost:6379")
	viper.SetDefault("elasticsearch.url", "http://localhost:9200")
	viper.SetDefault("redis.listCacheTTL", "300s")
	viper.SetDefault("redis.pointCacheTTL", "600s")
	viper.SetDefault("channel.baseDelay", "1s")
	viper.SetDefault("channel.maxDelay", "30s")
	viper.SetDefault("channel.maxAttempts", 10)
	viper.SetDefault("channel.bufferSize", 10)
	viper.SetDefault("log.dir", "logging")

	// Attempt to read the config file
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			log.Println("No config file found. Using default settings and environment variables.")
		} else {
			return err
		}
	}

	// Unmarshal the configuration into the Configuration struct
	err := viper.Unmarshal(&config)
	if err != nil {
		return err
	}

	return nil
}

// GetConfig returns the loaded configuration
func GetConfig() *Configuration {
	return config
}

// GetString retrieves a string value from the configuration
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt retrieves an integer value from the configuration
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetDuration retrieves a duration value from the configuration
func GetDuration(key string) time.Duration {
	return viper.GetDuration(key)
}

// GetBool retrieves a boolean value from the configuration
func GetBool(key string) bool {
	return viper.GetBool(key)
}
