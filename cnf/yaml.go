package cnf

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// YamlConfig mirrors the optional config.yaml layout. Values present in the
// YAML file override the ones loaded from config.cfg.
type YamlConfig struct {
	HTTP struct {
		Addr string `yaml:"addr"`
	} `yaml:"http"`
	Database struct {
		Type     string `yaml:"type"`
		Postgres struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
		} `yaml:"postgresql"`
		MySQL struct {
			Host     string `yaml:"host"`
			Port     int    `yaml:"port"`
			User     string `yaml:"user"`
			Password string `yaml:"password"`
			DBName   string `yaml:"dbname"`
		} `yaml:"mysql"`
		SQLite struct {
			Path string `yaml:"path"`
		} `yaml:"sqlite"`
	} `yaml:"database"`
	Search struct {
		Fuzzy               *bool    `yaml:"fuzzy"`
		FuzzyBlend          *bool    `yaml:"fuzzy_blend"`
		SimilarityThreshold *float64 `yaml:"similarity_threshold"`
		DefaultLimit        *int     `yaml:"default_limit"`
		MaxLimit            *int     `yaml:"max_limit"`
	} `yaml:"search"`
}

// ApplyYAMLOverlay merges config.yaml on top of the cfg map. A missing file
// is not an error.
func ApplyYAMLOverlay(path string, cfg map[string]string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil
		}
		return fmt.Errorf("error reading YAML configuration: %w", err)
	}

	var y YamlConfig
	if err := yaml.Unmarshal(data, &y); err != nil {
		return fmt.Errorf("error decoding YAML configuration: %w", err)
	}

	setIf(cfg, "HTTP_ADDR", y.HTTP.Addr)
	setIf(cfg, "DB_ENGINE", y.Database.Type)
	switch y.Database.Type {
	case "postgres":
		setIf(cfg, "DB_HOST", y.Database.Postgres.Host)
		if y.Database.Postgres.Port > 0 {
			cfg["DB_PORT"] = strconv.Itoa(y.Database.Postgres.Port)
		}
		setIf(cfg, "DB_USR", y.Database.Postgres.User)
		setIf(cfg, "DB_PASS", y.Database.Postgres.Password)
		setIf(cfg, "DB_NAME", y.Database.Postgres.DBName)
	case "mysql":
		setIf(cfg, "DB_HOST", y.Database.MySQL.Host)
		if y.Database.MySQL.Port > 0 {
			cfg["DB_PORT"] = strconv.Itoa(y.Database.MySQL.Port)
		}
		setIf(cfg, "DB_USR", y.Database.MySQL.User)
		setIf(cfg, "DB_PASS", y.Database.MySQL.Password)
		setIf(cfg, "DB_NAME", y.Database.MySQL.DBName)
	case "sqlite":
		setIf(cfg, "DB_PATH", y.Database.SQLite.Path)
	}

	if y.Search.Fuzzy != nil {
		cfg["SEARCH_FUZZY"] = strconv.FormatBool(*y.Search.Fuzzy)
	}
	if y.Search.FuzzyBlend != nil {
		cfg["SEARCH_FUZZY_BLEND"] = strconv.FormatBool(*y.Search.FuzzyBlend)
	}
	if y.Search.SimilarityThreshold != nil {
		cfg["SEARCH_SIMILARITY_THRESHOLD"] = strconv.FormatFloat(*y.Search.SimilarityThreshold, 'f', -1, 64)
	}
	if y.Search.DefaultLimit != nil {
		cfg["SEARCH_DEFAULT_LIMIT"] = strconv.Itoa(*y.Search.DefaultLimit)
	}
	if y.Search.MaxLimit != nil {
		cfg["SEARCH_MAX_LIMIT"] = strconv.Itoa(*y.Search.MaxLimit)
	}

	return nil
}

func setIf(cfg map[string]string, key, val string) {
	if val != "" {
		cfg[key] = val
	}
}
