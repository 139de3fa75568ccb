package config

import (
	"flag"
	"os"
	"time"

	"github.com/ilyakaznacheev/cleanenv"
)

type Config struct {
	Env       string          `yaml:"env" env:"ENV" env-default:"local"`
	HTTP      HTTPConfig      `yaml:"http"`
	WebRTC    WebRTCConfig    `yaml:"webrtc"`
	Signaling SignalingConfig `yaml:"signaling"`
	Auth      AuthConfig      `yaml:"auth"`
	Database  DatabaseConfig  `yaml:"database"`
}

type HTTPConfig struct {
	Address        string   `yaml:"address" env:"HTTP_ADDRESS" env-default:""`
	AllowedOrigins []string `yaml:"allowed_origins"`
}

type WebRTCConfig struct {
	STUNServers []string `yaml:"stun_servers"`
}

// SignalingConfig carries every tunable of the room/relay core. Capacity is
// fixed at 2 by design but still lives here so nothing in the core hardcodes
// it.
type SignalingConfig struct {
	RoomCapacity       int           `yaml:"room_capacity" env-default:"2"`
	MaxRoomKeyLength   int           `yaml:"max_room_key_length" env-default:"64"`
	MaxChatLength      int           `yaml:"max_chat_length" env-default:"500"`
	SweepInterval      time.Duration `yaml:"sweep_interval" env-default:"1m"`
	EmptyRoomRetention time.Duration `yaml:"empty_room_retention" env-default:"5m"`
	ReadLimit          int64         `yaml:"read_limit" env-default:"32768"`
}

type AuthConfig struct {
	Mode  string `yaml:"mode" env:"AUTH_MODE" env-default:"none"`
	Token string `yaml:"token" env:"AUTH_TOKEN"`
}

type DatabaseConfig struct {
	DSN string `yaml:"dsn" env:"DATABASE_DSN"`
}

func MustLoad() *Config {
	configPath := fetchConfigPath()
	if configPath == "" {
		panic("config path is empty")
	}

	return MustLoadPath(configPath)
}

func MustLoadPath(configPath string) *Config {
	if _, err := os.Stat(configPath); os.IsNotExist(err) {
		panic("config file does not exist: " + configPath)
	}

	var cfg Config

	if err := cleanenv.ReadConfig(configPath, &cfg); err != nil {
		panic("cannot read config: " + err.Error())
	}

	cfg.setDefaults()

	return &cfg
}

func fetchConfigPath() string {
	var res string

	flag.StringVar(&res, "config", "", "path to config file")
	flag.Parse()

	if res == "" {
		res = os.Getenv("CONFIG_PATH")
	}

	if res == "" {
		res = "config/local.yaml"
	}

	return res
}

func (c *Config) setDefaults() {
	if c.HTTP.Address == "" {
		c.HTTP.Address = ":8080"
	}
	if len(c.HTTP.AllowedOrigins) == 0 {
		c.HTTP.AllowedOrigins = []string{"http://localhost:3000"}
	}
	if len(c.WebRTC.STUNServers) == 0 {
		c.WebRTC.STUNServers = []string{"stun:stun.l.google.com:19302"}
	}
	if c.Signaling.RoomCapacity <= 0 {
		c.Signaling.RoomCapacity = 2
	}
	if c.Signaling.MaxRoomKeyLength <= 0 {
		c.Signaling.MaxRoomKeyLength = 64
	}
	if c.Signaling.MaxChatLength <= 0 {
		c.Signaling.MaxChatLength = 500
	}
	if c.Signaling.SweepInterval <= 0 {
		c.Signaling.SweepInterval = time.Minute
	}
	if c.Signaling.EmptyRoomRetention <= 0 {
		c.Signaling.EmptyRoomRetention = 5 * time.Minute
	}
	if c.Signaling.ReadLimit <= 0 {
		c.Signaling.ReadLimit = 32768
	}
}
