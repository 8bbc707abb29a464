package config

import (
	"fmt"
	"os"

	"go.yaml.in/yaml/v4"
)

type Config struct {
	Database   DatabaseConfig   `yaml:"database"`
	Kafka      KafkaConfig      `yaml:"kafka"`
	Redis      RedisConfig      `yaml:"redis"`
	VaultTrack VaultTrackConfig `yaml:"vaulttrack"`
}

type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	DBName   string `yaml:"name"`
	SSLMode  string `yaml:"ssl_mode"`
}

type KafkaConfig struct {
	Host                     string `yaml:"host"`
	Port                     int    `yaml:"port"`
	CourierUpdatesTopicName  string `yaml:"courier_updates_topic_name"`
	ShipmentUpdatedTopicName string `yaml:"shipment_updated_topic_name"`
}

type RedisConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

type VaultTrackConfig struct {
	HTTPAddr           string `yaml:"http_addr"`
	KafkaConsumerGroup string `yaml:"kafka_consumer_group"`

	// UseMemoryStore swaps postgres for the in-memory store. Local dev only.
	UseMemoryStore bool `yaml:"use_memory_store"`

	// StrictStatusTransitions rejects courier updates that would move a
	// shipment out of delivered/secured instead of just logging them.
	StrictStatusTransitions bool `yaml:"strict_status_transitions"`

	AdminListTTLSeconds      int `yaml:"admin_list_ttl_seconds"`
	LookupRateLimitPerMinute int `yaml:"lookup_rate_limit_per_minute"`
}

func LoadConfig(filename string) (*Config, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	var config Config
	err = yaml.Unmarshal(data, &config)
	if err != nil {
		return nil, fmt.Errorf("failed to unmarshal YAML: %w", err)
	}

	return &config, nil
}
