package config

import (
	"fmt"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds runtime configuration values for the API service.
type Config struct {
	AppName             string
	AppEnv              string
	AppPort             string
	DatabaseURL         string
	StorageDriver       string
	StorageRoot         string
	StorageBaseURL      string
	StorageFolder       string
	CloudinaryCloudName string
	CloudinaryAPIKey    string
	CloudinaryAPISecret string
	CORSAllowOrigins    string
	PageSize            int
}

// HTTPAddress returns the address the HTTP server should listen on.
func (c Config) HTTPAddress() string {
	if strings.HasPrefix(c.AppPort, ":") {
		return c.AppPort
	}

	return fmt.Sprintf(":%s", c.AppPort)
}

// Load reads configuration values from environment variables and optional .env file.
func Load() (Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix("SISWA")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	v.SetDefault("app.name", "Siswa API")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.port", "8080")
	v.SetDefault("storage.driver", "local")
	v.SetDefault("storage.root", "storage/public")
	v.SetDefault("storage.base_url", "/storage")
	v.SetDefault("storage.folder", "students")
	v.SetDefault("cors.allow_origins", "*")
	v.SetDefault("page.size", 10)

	cfg := Config{
		AppName:             v.GetString("app.name"),
		AppEnv:              v.GetString("app.env"),
		AppPort:             v.GetString("app.port"),
		DatabaseURL:         v.GetString("database.url"),
		StorageDriver:       strings.ToLower(v.GetString("storage.driver")),
		StorageRoot:         v.GetString("storage.root"),
		StorageBaseURL:      v.GetString("storage.base_url"),
		StorageFolder:       v.GetString("storage.folder"),
		CloudinaryCloudName: v.GetString("cloudinary.cloud_name"),
		CloudinaryAPIKey:    v.GetString("cloudinary.api_key"),
		CloudinaryAPISecret: v.GetString("cloudinary.api_secret"),
		CORSAllowOrigins:    v.GetString("cors.allow_origins"),
		PageSize:            v.GetInt("page.size"),
	}

	if cfg.DatabaseURL == "" {
		return Config{}, fmt.Errorf("database url must be provided")
	}

	switch cfg.StorageDriver {
	case "local", "cloudinary":
	default:
		return Config{}, fmt.Errorf("unknown storage driver: %s", cfg.StorageDriver)
	}

	if cfg.PageSize <= 0 {
		cfg.PageSize = 10
	}

	return cfg, nil
}
