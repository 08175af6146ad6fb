package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config 全局配置结构
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	MySQL    MySQLConfig    `mapstructure:"mysql"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Kafka    KafkaConfig    `mapstructure:"kafka"`
	Business BusinessConfig `mapstructure:"business"`
}

type ServerConfig struct {
	Port int `mapstructure:"port"`
}

type MySQLConfig struct {
	Host         string `mapstructure:"host"`
	Port         int    `mapstructure:"port"`
	User         string `mapstructure:"user"`
	Password     string `mapstructure:"password"`
	Database     string `mapstructure:"database"`
	MaxOpenConns int    `mapstructure:"max_open_conns"`
	MaxIdleConns int    `mapstructure:"max_idle_conns"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type KafkaConfig struct {
	Brokers []string         `mapstructure:"brokers"`
	Topic   KafkaTopicConfig `mapstructure:"topic"`
}

type KafkaTopicConfig struct {
	EconomyEvents string `mapstructure:"economy_events"`
}

// BusinessConfig 经济系统业务参数
type BusinessConfig struct {
	AllowanceAmount         int64 `mapstructure:"allowance_amount"`          // 每次零花钱金额
	AllowanceCooldownHours  int   `mapstructure:"allowance_cooldown_hours"`  // 零花钱领取冷却（小时）
	LowBalanceThreshold     int64 `mapstructure:"low_balance_threshold"`     // 余额预警线
	RecentTransactionCount  int   `mapstructure:"recent_transaction_count"`  // 摘要中返回的最近流水条数
	LeaderboardSize         int   `mapstructure:"leaderboard_size"`          // 排行榜默认长度
	LeaderboardCacheSeconds int   `mapstructure:"leaderboard_cache_seconds"` // 排行榜快照缓存时长
	MaxRetryCount           int   `mapstructure:"max_retry_count"`           // 发件箱消息最大重试次数
}

// AllowanceCooldown 零花钱冷却时长
func (c *BusinessConfig) AllowanceCooldown() time.Duration {
	return time.Duration(c.AllowanceCooldownHours) * time.Hour
}

var GlobalConfig *Config

// LoadConfig 加载配置文件
func LoadConfig(configPath string) *Config {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")

	if err := viper.ReadInConfig(); err != nil {
		log.Fatalf("读取配置文件失败: %v", err)
	}

	config := &Config{}
	if err := viper.Unmarshal(config); err != nil {
		log.Fatalf("解析配置文件失败: %v", err)
	}

	GlobalConfig = config
	return config
}
