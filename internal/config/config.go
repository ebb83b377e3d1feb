package config

import (
	"reflect"
	"strings"

	"github.com/spf13/viper"

	"github.com/zhukov-alex/s3facade/pkg/storage"
)

// Config is the s3facade runtime configuration.
type Config struct {
	Region          string         `mapstructure:"region"`
	AccessKeyID     string         `mapstructure:"access_key_id"`
	SecretAccessKey string         `mapstructure:"secret_access_key"`
	Endpoint        string         `mapstructure:"endpoint"`
	UsePathStyle    bool           `mapstructure:"use_path_style"`
	Transfer        TransferConfig `mapstructure:"transfer"`
	Demo            DemoConfig     `mapstructure:"demo"`
}

// TransferConfig mirrors storage.TransferConfig. Zero sizes keep the
// transfer manager defaults.
type TransferConfig struct {
	MultipartThreshold int64 `mapstructure:"multipart_threshold"`
	MultipartChunkSize int64 `mapstructure:"multipart_chunk_size"`
	MaxConcurrency     int   `mapstructure:"max_concurrency"`
	UseThreads         bool  `mapstructure:"use_threads"`
}

// DemoConfig names the object the post-demo command uploads.
type DemoConfig struct {
	Bucket string `mapstructure:"bucket"`
	Object string `mapstructure:"object"`
}

func DefaultConfig() *Config {
	return &Config{
		Transfer: TransferConfig{UseThreads: true},
		Demo: DemoConfig{
			Bucket: "BUCKET_NAME",
			Object: "OBJECT_NAME",
		},
	}
}

// Load reads configuration from an optional config.yaml in the working
// directory and from environment variables. Environment variables use the
// prefix "S3FACADE" with dots replaced by underscores, so "transfer.max_concurrency"
// becomes "S3FACADE_TRANSFER_MAX_CONCURRENCY".
func Load() (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.SetEnvPrefix("S3FACADE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	bindEnvs(v, cfg)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// S3 returns the connection settings for storage.NewClient.
func (c *Config) S3() storage.S3Config {
	return storage.S3Config{
		Region:       c.Region,
		AccessKey:    c.AccessKeyID,
		SecretKey:    c.SecretAccessKey,
		Endpoint:     c.Endpoint,
		UsePathStyle: c.UsePathStyle,
	}
}

func (c *Config) TransferOptions() storage.TransferConfig {
	return storage.NewTransferConfig(
		storage.WithMultipartThreshold(c.Transfer.MultipartThreshold),
		storage.WithMultipartChunkSize(c.Transfer.MultipartChunkSize),
		storage.WithMaxConcurrency(c.Transfer.MaxConcurrency),
		storage.WithUseThreads(c.Transfer.UseThreads),
	)
}

// bindEnvs registers every key within cfg so viper looks up the matching
// environment variable when unmarshalling.
func bindEnvs(v *viper.Viper, cfg any, parts ...string) {
	val := reflect.ValueOf(cfg)
	typ := reflect.TypeOf(cfg)
	if typ.Kind() == reflect.Ptr {
		val = val.Elem()
		typ = typ.Elem()
	}
	for i := 0; i < typ.NumField(); i++ {
		f := typ.Field(i)
		tag := f.Tag.Get("mapstructure")
		if tag == "" {
			tag = strings.ToLower(f.Name)
		}
		key := append(parts, tag)
		if f.Type.Kind() == reflect.Struct {
			bindEnvs(v, val.Field(i).Interface(), key...)
			continue
		}
		_ = v.BindEnv(strings.Join(key, "."))
	}
}
