package config

import (
	"errors"
	"log"
	"strings"
	"sync/atomic"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// AlertPolicy configures budget alert thresholds. The account pool threshold is
// fixed at 0.8 and not configurable; only the default allocation threshold is.
type AlertPolicy struct {
	DefaultThresholdPct float64 `mapstructure:"defaultThresholdPct"`
}

func DefaultAlertPolicy() AlertPolicy {
	return AlertPolicy{
		DefaultThresholdPct: 0.8,
	}
}

// AlertPolicyHolder serves the current alert policy and hot-reloads it from
// an optional alerts.yml.
type AlertPolicyHolder struct {
	current atomic.Value // holds AlertPolicy
}

func NewAlertPolicyHolder() (*AlertPolicyHolder, error) {
	v := viper.New()

	v.SetConfigName("alerts")
	v.SetConfigType("yml")
	v.AddConfigPath("/var/lib/scopeline/config")
	v.AddConfigPath("/etc/scopeline")
	v.AddConfigPath(".")

	v.SetEnvPrefix("SCOPELINE")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
		defaults := DefaultAlertPolicy()
		v.SetDefault("alerts.defaultThresholdPct", defaults.DefaultThresholdPct)
	}

	var policy AlertPolicy
	if err := v.UnmarshalKey("alerts", &policy); err != nil {
		return nil, err
	}
	if policy.DefaultThresholdPct == 0 {
		policy = DefaultAlertPolicy()
	}
	if err := validateAlertPolicy(policy); err != nil {
		return nil, err
	}

	holder := &AlertPolicyHolder{}
	holder.current.Store(policy)

	v.WatchConfig()
	v.OnConfigChange(func(e fsnotify.Event) {
		var updated AlertPolicy
		if err := v.UnmarshalKey("alerts", &updated); err != nil {
			log.Printf("[alert-policy] reload failed: %v", err)
			return
		}
		if err := validateAlertPolicy(updated); err != nil {
			log.Printf("[alert-policy] invalid config ignored: %v", err)
			return
		}
		holder.current.Store(updated)
		log.Printf("[alert-policy] reloaded from %s", e.Name)
	})

	return holder, nil
}

// StaticAlertPolicyHolder returns a holder pinned to the given policy, with no
// file watching. Used where hot reload is unwanted.
func StaticAlertPolicyHolder(policy AlertPolicy) *AlertPolicyHolder {
	holder := &AlertPolicyHolder{}
	holder.current.Store(policy)
	return holder
}

func (h *AlertPolicyHolder) Get() AlertPolicy {
	return h.current.Load().(AlertPolicy)
}

func validateAlertPolicy(policy AlertPolicy) error {
	if policy.DefaultThresholdPct <= 0 || policy.DefaultThresholdPct > 1 {
		return errors.New("alerts.defaultThresholdPct must be in (0, 1]")
	}
	return nil
}
