package engine

import (
	"os"
	"reflect"
	"strconv"
	"strings"

	"github.com/spf13/viper"
	"golang.org/x/time/rate"
	"gopkg.in/yaml.v2"
)

const (
	ForbidRuntimeChange uint8 = 1 << iota
	NeedRateReset
)

type Config struct {
	BloomHashes           uint64  `yaml:"BloomHashes"`
	CuckooHashes          uint64  `yaml:"CuckooHashes"`
	CuckooSlots           uint64  `yaml:"CuckooSlots"`
	CuckooUtil            float64 `yaml:"CuckooUtil"`
	CuckooSorted          bool    `yaml:"CuckooSorted"`
	ResolveRate           string  `yaml:"ResolveRate"`
	AllowRuntimeConfigure bool    `yaml:"AllowRuntimeConfigure"`
}

func InitConf(specPath string) (*Config, error) {

	viper.SetConfigName("probset")
	viper.AddConfigPath("/etc/probset/")
	viper.AddConfigPath("/etc/")
	viper.AddConfigPath("$HOME/.probset")
	viper.AddConfigPath(".")

	viper.SetDefault("BloomHashes", 0)
	viper.SetDefault("CuckooHashes", 2)
	viper.SetDefault("CuckooSlots", 4)
	viper.SetDefault("CuckooUtil", 0.95)
	viper.SetDefault("CuckooSorted", false)
	viper.SetDefault("ResolveRate", "unlimited")
	viper.SetDefault("AllowRuntimeConfigure", true)

	// user specific config path
	if stat, err := os.Stat(specPath); stat != nil && err == nil {
		viper.SetConfigFile(specPath)
	}

	configExists := true
	if err := viper.ReadInConfig(); err != nil {
		if strings.Contains(err.Error(), "Not Found") {
			configExists = false
			if specPath == "" {
				specPath = "./probset.yaml"
			}
			viper.SetConfigFile(specPath)
		} else {
			return nil, err
		}
	}

	c := &Config{}
	viper.Unmarshal(c)

	if changed := c.Normalize(); changed {
		viper.Set("CuckooHashes", c.CuckooHashes)
		viper.Set("CuckooSlots", c.CuckooSlots)
		viper.Set("CuckooUtil", c.CuckooUtil)
	}

	cf := viper.ConfigFileUsed()
	log.Println("selected config file:", cf)
	if !configExists {
		if err := c.WriteYaml(); err != nil {
			return nil, err
		}
		log.Println("config file written:", cf)
	}

	return c, nil
}

// Normalize clamps hyperparameters the solvers have preconditions on.
// The solvers themselves never reject input, so bad values are caught
// here. Reports whether anything was changed.
func (c *Config) Normalize() bool {
	var changed bool
	if c.CuckooHashes < 1 {
		c.CuckooHashes = 2
		changed = true
	}
	if c.CuckooSlots < 1 {
		c.CuckooSlots = 4
		changed = true
	}
	if c.CuckooUtil <= 0 || c.CuckooUtil > 1 {
		c.CuckooUtil = 0.95
		changed = true
	}
	if changed {
		log.Println("invalid hyperparameters reset to defaults")
	}
	return changed
}

// Validate compares against an incoming runtime config and reports what
// the change requires.
func (c *Config) Validate(nc *Config) uint8 {
	var status uint8
	if c.AllowRuntimeConfigure != nc.AllowRuntimeConfigure {
		status |= ForbidRuntimeChange
	}
	if c.ResolveRate != nc.ResolveRate {
		status |= NeedRateReset
	}
	return status
}

func (c *Config) SyncViper(nc Config) {
	cv := reflect.ValueOf(*c)
	nv := reflect.ValueOf(nc)
	typeOfC := cv.Type()
	for i := 0; i < typeOfC.NumField(); i++ {
		if cv.Field(i).Interface() != nv.Field(i).Interface() {
			name := typeOfC.Field(i).Name
			oval := cv.Field(i).Interface()
			val := nv.Field(i).Interface()
			viper.Set(name, val)
			log.Println("config updated ", name, ": ", oval, " -> ", val)
		}
	}
}

func (c *Config) WriteYaml() error {
	cf := viper.ConfigFileUsed()
	d, err := yaml.Marshal(c)
	if err != nil {
		return err
	}
	return os.WriteFile(cf, d, 0666)
}

// Cuckoo returns the configured cuckoo hyperparameters.
func (c *Config) Cuckoo() CuckooConfig {
	return CuckooConfig{
		Hashes: c.CuckooHashes,
		Slots:  c.CuckooSlots,
		Util:   c.CuckooUtil,
		Sorted: c.CuckooSorted,
	}
}

// ForcedHashes returns the configured bloom hash count, nil when the
// optimum is inferred.
func (c *Config) ForcedHashes() *uint64 {
	if c.BloomHashes == 0 {
		return nil
	}
	h := c.BloomHashes
	return &h
}

// ResolveLimiter builds the API rate limiter from the configured rate,
// either a preset or a requests-per-second figure.
func (c *Config) ResolveLimiter() *rate.Limiter {
	l, err := rateLimiter(c.ResolveRate)
	if err != nil {
		log.Printf("RateLimit [%s] unreconized, set as unlimited", c.ResolveRate)
		c.ResolveRate = ""
		return rate.NewLimiter(rate.Inf, 0)
	}
	return l
}

func rateLimiter(rstr string) (*rate.Limiter, error) {
	var rps int
	rstr = strings.ToLower(strings.TrimSpace(rstr))
	switch rstr {
	case "low":
		// ~2 req/s
		rps = 2
	case "medium":
		// ~20 req/s
		rps = 20
	case "high":
		// ~200 req/s
		rps = 200
	case "unlimited", "0", "":
		// unlimited
		return rate.NewLimiter(rate.Inf, 0), nil
	default:
		v, err := strconv.Atoi(rstr)
		if err != nil {
			return nil, err
		}
		if v <= 0 {
			return rate.NewLimiter(rate.Inf, 0), nil
		}
		rps = v
	}
	return rate.NewLimiter(rate.Limit(rps), rps*3), nil
}
