package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	APIConfig struct {
		BaseURL string
		Timeout time.Duration
		Locale  string
	}

	SettingsConfig struct {
		Path string
	}

	SearchConfig struct {
		Debounce  time.Duration
		MinLength int
	}

	MessagingConfig struct {
		PollInterval time.Duration
	}

	MockAPIConfig struct {
		Address            string
		SecretKey          string
		JWTExpirationDelta time.Duration
		AdminUsername      string
		AdminPassword      string
		ShutdownTimeout    time.Duration
	}

	Config struct {
		AppName      string
		Env          string
		Build        string
		Debug        bool
		TestMode     bool
		RollbarToken string

		API       APIConfig
		Settings  SettingsConfig
		Search    SearchConfig
		Messaging MessagingConfig
		MockAPI   MockAPIConfig
	}
)

// NewConfig reads the configuration from defaults, an optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased env, eg. DEV_API_BASEURL.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("appName", "Madrasa Admin")
	v.SetDefault("build", "develop")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("api.baseURL", "http://localhost:8000/api")
	v.SetDefault("api.timeout", 30*time.Second)
	v.SetDefault("api.locale", "ar")
	v.SetDefault("settings.path", filepath.Join(userConfigDir(), "madrasa", "settings.db"))
	v.SetDefault("search.debounce", 300*time.Millisecond)
	v.SetDefault("search.minLength", 2)
	v.SetDefault("messaging.pollInterval", 2*time.Second)
	v.SetDefault("mockapi.address", ":8000")
	v.SetDefault("mockapi.secretKey", "poq5-wer)enb$+57=dz&uoxh2(h!x)#*c2(#yg4h^$cegm2emy")
	v.SetDefault("mockapi.jwtExpirationDelta", 7*24*time.Hour)
	v.SetDefault("mockapi.adminUsername", "admin")
	v.SetDefault("mockapi.adminPassword", "admin")
	v.SetDefault("mockapi.shutdownTimeout", 5*time.Second)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join("config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		AppName:      v.GetString("appName"),
		Env:          env,
		Build:        v.GetString("build"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		RollbarToken: v.GetString("rollbarToken"),
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("api.baseURL"), "/"),
			Timeout: v.GetDuration("api.timeout"),
			Locale:  v.GetString("api.locale"),
		},
		Settings: SettingsConfig{
			Path: v.GetString("settings.path"),
		},
		Search: SearchConfig{
			Debounce:  v.GetDuration("search.debounce"),
			MinLength: v.GetInt("search.minLength"),
		},
		Messaging: MessagingConfig{
			PollInterval: v.GetDuration("messaging.pollInterval"),
		},
		MockAPI: MockAPIConfig{
			Address:            v.GetString("mockapi.address"),
			SecretKey:          v.GetString("mockapi.secretKey"),
			JWTExpirationDelta: v.GetDuration("mockapi.jwtExpirationDelta"),
			AdminUsername:      v.GetString("mockapi.adminUsername"),
			AdminPassword:      v.GetString("mockapi.adminPassword"),
			ShutdownTimeout:    v.GetDuration("mockapi.shutdownTimeout"),
		},
	}
}

func userConfigDir() string {
	dir, err := os.UserConfigDir()
	if err != nil {
		return "."
	}
	return dir
}
