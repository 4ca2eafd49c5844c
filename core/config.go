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

var Conf *Config

type (
	ServerConfig struct {
		Host            string
		Addr            string
		ReadTimeout     time.Duration
		WriteTimeout    time.Duration
		ShutdownTimeout time.Duration
	}

	SessionConfig struct {
		CookieName string
		Secure     bool // cookie only sent over HTTPS
		TTL        time.Duration
		RedisAddr  string // empty: in-memory sessions
		RedisDB    int
	}

	CarouselConfig struct {
		Interval time.Duration
		MaxWidth int // 0: images are served as received
	}

	Config struct {
		Env            string
		Build          string
		Debug          bool
		TestMode       bool
		AppName        string
		SecretKey      string
		APIURL         string
		RequestTimeout time.Duration
		RollbarToken   string
		Server         ServerConfig
		Session        SessionConfig
		Carousel       CarouselConfig
	}
)

func init() {
	Conf = LoadConfig()
}

// LoadConfig reads the configuration from the environment (and `config/.env.<env>` if it exists).
func LoadConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("build", "dev")
	v.SetDefault("appName", "CBTA")
	v.SetDefault("secretKey", "qz7-f$eln3+w5=ob&u9xh2(k!x)#*b1(#rt4h^$dfgm8kmt")
	v.SetDefault("apiURL", "http://localhost:3000/")
	v.SetDefault("requestTimeout", 10*time.Second)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("server.host", "localhost")
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.readTimeout", 15*time.Second)
	v.SetDefault("server.writeTimeout", 30*time.Second)
	v.SetDefault("server.shutdownTimeout", 10*time.Second)
	v.SetDefault("session.cookieName", "cbta_session")
	v.SetDefault("session.secure", false)
	v.SetDefault("session.ttl", 12*time.Hour)
	v.SetDefault("session.redisAddr", "")
	v.SetDefault("session.redisDB", 0)
	v.SetDefault("carousel.interval", 3*time.Second)
	v.SetDefault("carousel.maxWidth", 0)

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
		Env:            env,
		Build:          v.GetString("build"),
		Debug:          v.GetBool("debug"),
		TestMode:       v.GetBool("testMode"),
		AppName:        v.GetString("appName"),
		SecretKey:      v.GetString("secretKey"),
		APIURL:         NormalizeBaseURL(v.GetString("apiURL")),
		RequestTimeout: v.GetDuration("requestTimeout"),
		RollbarToken:   v.GetString("rollbarToken"),
		Server: ServerConfig{
			Host:            v.GetString("server.host"),
			Addr:            v.GetString("server.addr"),
			ReadTimeout:     v.GetDuration("server.readTimeout"),
			WriteTimeout:    v.GetDuration("server.writeTimeout"),
			ShutdownTimeout: v.GetDuration("server.shutdownTimeout"),
		},
		Session: SessionConfig{
			CookieName: v.GetString("session.cookieName"),
			Secure:     v.GetBool("session.secure"),
			TTL:        v.GetDuration("session.ttl"),
			RedisAddr:  v.GetString("session.redisAddr"),
			RedisDB:    v.GetInt("session.redisDB"),
		},
		Carousel: CarouselConfig{
			Interval: v.GetDuration("carousel.interval"),
			MaxWidth: v.GetInt("carousel.maxWidth"),
		},
	}
}

// NormalizeBaseURL makes sure the API base URL ends with a slash, endpoints are appended to it as is.
func NormalizeBaseURL(u string) string {
	u = CleanString(u)
	if u != "" && !strings.HasSuffix(u, "/") {
		u += "/"
	}
	return u
}
