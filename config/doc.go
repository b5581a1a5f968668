// Package config loads reqkit configuration with Viper.
//
// Values come from a YAML file (explicit path or searched in standard
// locations), an optional .env file loaded with godotenv, and environment
// variables. Environment variables carrying the service prefix override file
// values, with underscores mapped onto nested keys:
//
//	REQKIT_CLIENT_BASE_URL=https://api.example.com  ->  client.base_url
//
// # Usage
//
//	var cfg apiclient.Config
//	err := config.LoadConfig("reqkit", &cfg, config.WithConfigFile("config.yml"))
package config
