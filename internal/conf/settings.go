package conf

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Setting struct {
	vp *viper.Viper
}

func NewSetting(configPath ...string) (*Setting, error) {
	vp := viper.New()
	vp.SetConfigName("config")
	vp.AddConfigPath(".")
	vp.AddConfigPath("custom/")
	for _, path := range configPath {
		if path != "" {
			vp.AddConfigPath(path)
		}
	}
	vp.SetConfigType("yaml")
	err := vp.ReadInConfig()
	if err != nil {
		return nil, err
	}
	return &Setting{vp}, nil
}

func (s *Setting) ReadSection(k string, v interface{}) error {
	return s.vp.UnmarshalKey(k, v)
}

func (s *Setting) Unmarshal(objects map[string]interface{}) error {
	for k, v := range objects {
		if err := s.ReadSection(k, v); err != nil {
			return err
		}
	}
	return nil
}

func (s *Setting) FeaturesFrom(k string) *FeaturesSettingS {
	sub := s.vp.Sub(k)
	if sub == nil {
		return newFeatures(map[string][]string{}, map[string]string{})
	}
	suites := make(map[string][]string)
	kv := make(map[string]string)
	for key := range sub.AllSettings() {
		val := sub.Get(key)
		switch item := val.(type) {
		case []interface{}:
			names := make([]string, 0, len(item))
			for _, n := range item {
				names = append(names, fmt.Sprintf("%v", n))
			}
			suites[key] = names
		default:
			kv[key] = fmt.Sprintf("%v", item)
		}
	}
	return newFeatures(suites, kv)
}

type FeaturesSettingS struct {
	kv       map[string]string
	suites   map[string][]string
	features map[string]string
}

func newFeatures(suites map[string][]string, kv map[string]string) *FeaturesSettingS {
	features := &FeaturesSettingS{
		suites: make(map[string][]string, len(suites)),
		kv:     make(map[string]string, len(kv)),
	}
	for k, v := range suites {
		features.suites[strings.ToLower(k)] = v
	}
	for k, v := range kv {
		features.kv[strings.ToLower(k)] = v
	}
	features.UseDefault()
	return features
}

func (f *FeaturesSettingS) UseDefault() {
	_ = f.Use([]string{"default"}, true)
}

func (f *FeaturesSettingS) Use(suite []string, noDefault bool) error {
	if noDefault || f.features == nil {
		f.features = make(map[string]string)
	}
	for _, name := range suite {
		name = strings.ToLower(strings.TrimSpace(name))
		items, exist := f.suites[name]
		if !exist {
			continue
		}
		f.features[name] = ""
		for _, item := range items {
			item = strings.ToLower(strings.TrimSpace(item))
			f.features[item] = f.kv[item]
		}
	}
	return nil
}

// Cfg get value by key if exist
func (f *FeaturesSettingS) Cfg(key string) (string, bool) {
	key = strings.ToLower(key)
	value, exist := f.features[key]
	return value, exist
}

// CfgIf check expression is true. expression is either a bare feature name
// or a "Name = Value" form.
func (f *FeaturesSettingS) CfgIf(expression string) bool {
	kv := strings.Split(expression, "=")
	key := strings.ToLower(strings.TrimSpace(kv[0]))
	value, exist := f.features[key]
	switch len(kv) {
	case 1:
		return exist
	case 2:
		return exist && strings.TrimSpace(kv[1]) == value
	}
	return false
}

type LoggerSettingS struct {
	Level string
}

type LoggerFileSettingS struct {
	SavePath string
	FileName string
	FileExt  string
	MaxSize  int
	MaxAge   int
}

type AppSettingS struct {
	RunMode         string
	LocalDomain     string
	FriendServers   []string
	DefaultPageSize int
	MaxPageSize     int
}

// IsFriendServer reports whether domain is configured as a federation
// friend, which unlocks the local-public visibility markers.
func (s *AppSettingS) IsFriendServer(domain string) bool {
	for _, friend := range s.FriendServers {
		if strings.EqualFold(friend, domain) {
			return true
		}
	}
	return false
}

type RedisSettingS struct {
	Host     string
	Password string
	DB       int
}

type MongoDBSettingS struct {
	User     string
	Password string
	Host     string
	DBName   string
}

func (s *MongoDBSettingS) Dsn() string {
	if s.User == "" {
		return fmt.Sprintf("mongodb://%s", s.Host)
	}
	return fmt.Sprintf("mongodb://%s:%s@%s", s.User, s.Password, s.Host)
}

type FanoutSettingS struct {
	Workers       int
	BatchSize     int
	MaxRetries    int
	RetryBackoff  time.Duration
	MaxFeedLength int
	// RateLimitPerMin bounds broadcast fan-outs per author per minute.
	RateLimitPerMin int
}

type JobQueueSettingS struct {
	Concurrency int
	Queue       string
}

type NotifySettingS struct {
	Gateway string
}

type FilterCacheSettingS struct {
	ExpireInSecond   time.Duration
	HardMaxCacheSize int
	Verbose          bool
}
