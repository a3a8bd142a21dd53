// Package config loads typed configuration from the environment.
//
// Structs declare their variables with caarlos0/env tags; Load fills them,
// reading ./.env through godotenv first when it exists. Process variables
// always win over dotenv values.
//
//	type Config struct {
//		MongoURL string `env:"MONGODB_URL" envDefault:"mongodb://localhost:27017"`
//		Redis    redis.Config
//	}
//
//	cfg, err := config.Load[Config]()
//
// Tests pass WithEnvironment to parse from a map without touching the
// process environment.
package config
