package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/viper"
)

// LoadConfig loads configuration from file and environment variables.
func LoadConfig() (*Config, error) {
	setDefaults()

	env := strings.ToLower(os.Getenv("APP_ENV"))
	if env == "" {
		env = "development"
	}
	viper.SetDefault("server.environment", env)

	if path := os.Getenv("CONFIG_PATH"); path != "" {
		viper.SetConfigFile(path)
	} else {
		viper.SetConfigName(fmt.Sprintf("config.%s", env))
		viper.SetConfigType("yaml")
		viper.AddConfigPath("./configs")
		viper.AddConfigPath(".")
		viper.AddConfigPath("/etc/role-service")
	}

	viper.SetEnvPrefix("ROLE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// A missing config file is fine, the environment takes over.
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	return &config, nil
}

func setDefaults() {
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.shutdown_timeout", "15s")
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")
	viper.SetDefault("database.sslmode", "disable")
	viper.SetDefault("database.migrations_path", "migrations/sql")
	viper.SetDefault("roles.default_list_limit", 100)
	viper.SetDefault("roles.max_list_limit", 1000)
	viper.SetDefault("roles.system_roles_enabled", true)
	viper.SetDefault("roles.system_roles", []string{"Administrator", "Everyone"})
	viper.SetDefault("roles.admin_role_name", "Administrator")
	viper.SetDefault("roles.everyone_role_name", "Everyone")
	viper.SetDefault("roles.reserved_role_prefix", "system_")
	viper.SetDefault("kafka.producer.topic", "role.events")
	viper.SetDefault("directory.base_url", "http://directory-service:8080")
	viper.SetDefault("directory.timeout", "5s")
}
