package circuitbreaker

import (
	"fmt"

	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	CBEnabled                  = "CB_ENABLED"
	CBName                     = "CB_NAME"
	CBFailureRateThreshold     = "CB_FAILURE_RATE_THRESHOLD"
	CBFailureRateMinimumWindow = "CB_FAILURE_RATE_MINIMUM_WINDOW"
	CBFailureRateWindowInMs    = "CB_FAILURE_RATE_WINDOW_IN_MS"
	CBFailureCountThreshold    = "CB_FAILURE_COUNT_THRESHOLD"
	CBFailureCountWindow       = "CB_FAILURE_COUNT_WINDOW"
	CBSuccessCountThreshold    = "CB_SUCCESS_COUNT_THRESHOLD"
	CBSuccessCountWindow       = "CB_SUCCESS_COUNT_WINDOW"
	CBWithDelayInMS            = "CB_WITH_DELAY_IN_MS"
)

// Config controls a circuit breaker guarding calls to one server.
type Config struct {
	// Enabled false makes every call pass through.
	Enabled bool
	Name    string

	// FailureRateThreshold is a percentage (1-100) of failures within FailureRateWindowInMs that opens
	// the breaker, once at least FailureRateMinimumWindow executions were recorded.
	FailureRateThreshold     int
	FailureRateMinimumWindow int
	FailureRateWindowInMs    int

	// FailureCountThreshold out of the last FailureCountWindow executions opens the breaker. Used only
	// when no rate threshold is set.
	FailureCountThreshold int
	FailureCountWindow    int

	// SuccessCountThreshold out of SuccessCountWindow trial executions in half-open closes it again.
	SuccessCountThreshold int
	SuccessCountWindow    int

	// WithDelayInMS is how long the breaker stays open before allowing trial executions.
	WithDelayInMS int
}

// BuildConfig reads a Config from viper keys under prefix, e.g. prefix + "CB_ENABLED". A disabled
// breaker needs no other keys.
func BuildConfig(prefix string) (*Config, error) {
	config := &Config{}
	if !viper.GetBool(prefix + CBEnabled) {
		return config, nil
	}
	config.Enabled = true
	config.Name = viper.GetString(prefix + CBName)
	config.FailureRateThreshold = viper.GetInt(prefix + CBFailureRateThreshold)
	config.FailureRateMinimumWindow = viper.GetInt(prefix + CBFailureRateMinimumWindow)
	config.FailureRateWindowInMs = viper.GetInt(prefix + CBFailureRateWindowInMs)
	config.FailureCountThreshold = viper.GetInt(prefix + CBFailureCountThreshold)
	config.FailureCountWindow = viper.GetInt(prefix + CBFailureCountWindow)
	config.SuccessCountThreshold = viper.GetInt(prefix + CBSuccessCountThreshold)
	config.SuccessCountWindow = viper.GetInt(prefix + CBSuccessCountWindow)
	config.WithDelayInMS = viper.GetInt(prefix + CBWithDelayInMS)
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", prefix, err)
	}
	return config, nil
}

// Validate checks that an enabled Config defines a name, a complete failure threshold and a
// success threshold.
func (c *Config) Validate() error {
	if c == nil || !c.Enabled {
		return nil
	}
	var err error
	if len(c.Name) == 0 {
		err = multierr.Append(err, fmt.Errorf("%s not set", CBName))
	}
	rateBased := c.FailureRateThreshold > 0 && c.FailureRateMinimumWindow > 0 && c.FailureRateWindowInMs > 0
	countBased := c.FailureCountThreshold > 0 && c.FailureCountWindow > 0
	if !rateBased && !countBased {
		err = multierr.Append(err, fmt.Errorf("neither time-based nor count-based failure thresholds are fully defined"))
	}
	if c.FailureRateThreshold > 100 {
		err = multierr.Append(err, fmt.Errorf("%s must be at most 100, got %d", CBFailureRateThreshold, c.FailureRateThreshold))
	}
	if c.SuccessCountThreshold <= 0 || c.SuccessCountWindow <= 0 {
		err = multierr.Append(err, fmt.Errorf("%s and %s must be positive", CBSuccessCountThreshold, CBSuccessCountWindow))
	}
	if c.WithDelayInMS < 0 {
		err = multierr.Append(err, fmt.Errorf("%s must not be negative", CBWithDelayInMS))
	}
	return err
}
