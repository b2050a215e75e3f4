package tfserving

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/api"
	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/circuitbreaker"
	"github.com/spf13/viper"
	"go.uber.org/multierr"
)

const (
	Host                = "HOST"
	Port                = "PORT"
	SignatureName       = "SIGNATURE_NAME"
	DeadlineMS          = "DEADLINE_MS"
	ConnectTimeoutMS    = "CONNECT_TIMEOUT_MS"
	PlainText           = "PLAINTEXT"
	LoadBalancingPolicy = "LOAD_BALANCING_POLICY"
	CallerID            = "CALLER_ID"

	DefaultSignatureName    = "serving_default"
	DefaultDeadlineMS       = 0
	DefaultConnectTimeoutMS = 0
	DefaultPlainText        = true
)

var (
	errHostnameNotProvided = errors.New("hostname not provided")
	errPortNotProvided     = errors.New("port not provided")
)

type ClientConfig struct {
	Host          string `json:"Host"`
	Port          uint16 `json:"Port"`
	SignatureName string `json:"SignatureName"`
	// DeadlineMS bounds every call. Zero leaves the caller's context as the only deadline.
	DeadlineMS int `json:"DeadlineMS"`
	// ConnectTimeoutMS makes client creation wait for a ready connection. Zero connects lazily.
	ConnectTimeoutMS    int                    `json:"ConnectTimeoutMS"`
	PlainText           bool                   `json:"PlainText"`
	LoadBalancingPolicy string                 `json:"LoadBalancingPolicy"`
	CallerId            string                 `json:"CallerId"`
	CircuitBreaker      *circuitbreaker.Config `json:"CircuitBreaker,omitempty"`
}

func defaultClientConfig() *ClientConfig {
	return &ClientConfig{
		SignatureName:    DefaultSignatureName,
		DeadlineMS:       DefaultDeadlineMS,
		ConnectTimeoutMS: DefaultConnectTimeoutMS,
		PlainText:        DefaultPlainText,
	}
}

func getClientConfigs(prefix string) (*ClientConfig, error) {
	conf := defaultClientConfig()

	if viper.IsSet(prefix + Host) {
		conf.Host = viper.GetString(prefix + Host)
	}
	if viper.IsSet(prefix + Port) {
		port := viper.GetInt(prefix + Port)
		if port <= 0 || port > math.MaxUint16 {
			return nil, api.NewConfigError(fmt.Sprintf("tfserving port is invalid, configured value: %v", viper.Get(prefix+Port)), nil)
		}
		conf.Port = uint16(port)
	}
	if viper.IsSet(prefix + SignatureName) {
		conf.SignatureName = viper.GetString(prefix + SignatureName)
	}
	if viper.IsSet(prefix + DeadlineMS) {
		conf.DeadlineMS = viper.GetInt(prefix + DeadlineMS)
	}
	if viper.IsSet(prefix + ConnectTimeoutMS) {
		conf.ConnectTimeoutMS = viper.GetInt(prefix + ConnectTimeoutMS)
	}
	if viper.IsSet(prefix + PlainText) {
		conf.PlainText = viper.GetBool(prefix + PlainText)
	}
	if viper.IsSet(prefix + LoadBalancingPolicy) {
		conf.LoadBalancingPolicy = viper.GetString(prefix + LoadBalancingPolicy)
	}
	if viper.IsSet(prefix + CallerID) {
		conf.CallerId = viper.GetString(prefix + CallerID)
	}
	cbConfig, err := circuitbreaker.BuildConfig(prefix)
	if err != nil {
		return nil, api.NewConfigError("tfserving circuit breaker config is invalid", err)
	}
	conf.CircuitBreaker = cbConfig

	if valid, err := validConfigs(conf); !valid {
		return nil, err
	}
	return conf, nil
}

// LoadClientConfig reads the viper settings of version, the way InitClient does, without
// connecting.
func LoadClientConfig(version int) (*ClientConfig, error) {
	prefix := prefixFor(version)
	if prefix == "" {
		return nil, api.NewConfigError(fmt.Sprintf("client version %d not supported", version), nil)
	}
	return getClientConfigs(prefix)
}

func getClientConfigsFromJSON(configBytes []byte) (*ClientConfig, error) {
	conf := defaultClientConfig()
	if err := json.Unmarshal(configBytes, conf); err != nil {
		return nil, api.NewConfigError("tfserving config is not valid JSON", err)
	}
	if valid, err := validConfigs(conf); !valid {
		return nil, err
	}
	return conf, nil
}

func validConfigs(configs *ClientConfig) (bool, error) {
	if configs == nil {
		return false, api.NewConfigError("tfserving config is nil", nil)
	}
	if err := validateEndpoint(configs.Host, configs.Port != 0); err != nil {
		return false, err
	}
	var err error
	if configs.DeadlineMS < 0 {
		err = multierr.Append(err, fmt.Errorf("tfserving deadline is invalid, configured value: %v", configs.DeadlineMS))
	}
	if configs.ConnectTimeoutMS < 0 {
		err = multierr.Append(err, fmt.Errorf("tfserving connect timeout is invalid, configured value: %v", configs.ConnectTimeoutMS))
	}
	err = multierr.Append(err, configs.CircuitBreaker.Validate())
	if err != nil {
		return false, api.NewConfigError(err.Error(), err)
	}
	return true, nil
}

// validateEndpoint reports every missing endpoint field in one ConfigError, hostname first.
func validateEndpoint(host string, portSet bool) error {
	var err error
	if host == "" {
		err = multierr.Append(err, errHostnameNotProvided)
	}
	if !portSet {
		err = multierr.Append(err, errPortNotProvided)
	}
	if err != nil {
		return api.NewConfigError(err.Error(), err)
	}
	return nil
}
