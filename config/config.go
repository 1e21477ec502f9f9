package config

import (
	"bytes"
	_ "embed"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/glasscast/glasscast/internal/types"
)

//go:embed config.yml
var embeddedConfig []byte

type Config struct {
	Mode   string `mapstructure:"mode"`
	Dotenv string `mapstructure:"dotenv"`

	Supabase struct {
		URL     string `mapstructure:"url"`
		AnonKey string `mapstructure:"anonKey"`
	} `mapstructure:"supabase"`

	OpenWeather struct {
		APIKey  string `mapstructure:"apiKey"`
		BaseURL string `mapstructure:"baseURL"`
	} `mapstructure:"openWeather"`

	Favorites struct {
		// Backend selects the favorites store: "supabase" (default) talks to
		// the hosted row store, "postgres" connects straight to a self-hosted
		// database.
		Backend string `mapstructure:"backend"`
	} `mapstructure:"favorites"`

	Repositories struct {
		Postgres struct {
			Host     string `mapstructure:"host"`
			Password string `mapstructure:"password"`
			Port     string `mapstructure:"port"`
			Username string `mapstructure:"username"`
			DB       string `mapstructure:"db"`
			SSLMode  string `mapstructure:"sslmode"`
		} `mapstructure:"postgres"`
	} `mapstructure:"repositories"`

	Search struct {
		Debounce time.Duration `mapstructure:"debounce"`
	} `mapstructure:"search"`

	Debug struct {
		Port string `mapstructure:"port"`
	} `mapstructure:"debug"`

	Settings struct {
		Path string `mapstructure:"path"`
	} `mapstructure:"settings"`
}

func InitConfig() (Config, error) {
	var config Config
	v := viper.New()

	v.AddConfigPath(".")
	v.AddConfigPath("config")

	v.SetConfigName("config")
	v.SetConfigType("yml")

	// Fall back to the embedded defaults when no file-based config is found.
	err := v.ReadInConfig()
	if err != nil {
		if err = v.ReadConfig(bytes.NewReader(embeddedConfig)); err != nil {
			return Config{}, fmt.Errorf("failed to read embedded config: %w", err)
		}
	}

	// Credentials come from the environment, matching the keys the mobile app
	// reads from its bundle.
	_ = v.BindEnv("supabase.url", "SUPABASE_URL")
	_ = v.BindEnv("supabase.anonKey", "SUPABASE_ANON_KEY")
	_ = v.BindEnv("openWeather.apiKey", "OPENWEATHER_API_KEY")
	_ = v.BindEnv("mode", "APP_ENV")

	if err = v.Unmarshal(&config); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	return config, nil
}

// Validate fails fast when any required external credential is absent; no
// partial operation is attempted without them.
func (c *Config) Validate() error {
	var missing []string
	if strings.TrimSpace(c.Supabase.URL) == "" {
		missing = append(missing, "SUPABASE_URL")
	}
	if strings.TrimSpace(c.Supabase.AnonKey) == "" {
		missing = append(missing, "SUPABASE_ANON_KEY")
	}
	if strings.TrimSpace(c.OpenWeather.APIKey) == "" {
		missing = append(missing, "OPENWEATHER_API_KEY")
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %s", types.ErrNotConfigured, strings.Join(missing, ", "))
	}
	return nil
}
