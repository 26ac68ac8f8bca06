package client

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/viper"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"
)

type Config struct {
	Host     string
	Port     string
	Username string
	Password string
	Database string
	PoolSize uint64
}

func ReadConfig() *Config {
	viper.BindEnv("mongo.host", "MONGO_HOST")
	viper.BindEnv("mongo.port", "MONGO_PORT")
	viper.BindEnv("mongo.username", "MONGO_USERNAME")
	viper.BindEnv("mongo.password", "MONGO_PASSWORD")
	viper.BindEnv("mongo.database", "MONGO_DATABASE")

	return &Config{
		Host:     viper.GetString("mongo.host"),
		Port:     viper.GetString("mongo.port"),
		Username: viper.GetString("mongo.username"),
		Password: viper.GetString("mongo.password"),
		Database: viper.GetString("mongo.database"),
		PoolSize: viper.GetUint64("mongo.pool_size"),
	}
}

func (c *Config) uri() string {
	if c.Username != "" {
		return fmt.Sprintf("mongodb://%s:%s@%s:%s", c.Username, c.Password, c.Host, c.Port)
	}
	return fmt.Sprintf("mongodb://%s:%s", c.Host, c.Port)
}

// Open connects to the document store and verifies the connection.
func Open(cfg *Config) (*mongo.Database, error) {
	opts := options.Client().ApplyURI(cfg.uri())
	if cfg.PoolSize > 0 {
		opts = opts.SetMaxPoolSize(cfg.PoolSize)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, err
	}

	return client.Database(cfg.Database), nil
}
