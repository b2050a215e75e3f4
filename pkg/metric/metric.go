package metric

import (
	"sync"
	"time"

	"github.com/DataDog/datadog-go/v5/statsd"
	"github.com/rs/zerolog/log"
	"github.com/spf13/viper"
)

const (
	ExternalApiRequestCount   = "external_api_request_count"
	ExternalApiRequestLatency = "external_api_request_latency"
	ExternalApiRequestError   = "external_api_request_error"
	ImageDecodeLatency        = "image_decode_latency"
	CircuitBreakerStateChange = "circuit_breaker_state_changed"
)

var (
	// it is safe to use one client from multiple goroutines simultaneously
	statsDClient = getDefaultClient()

	samplingRate    = 1.0
	telegrafAddress = "localhost:8125"
	appName         = ""
	mu              sync.Mutex
	initialized     = false
)

// Init initializes the metrics client from APP_NAME, APP_ENV, APP_METRIC_SAMPLING_RATE and
// APP_METRIC_ADDRESS. Calling it again is a no-op.
func Init() {
	mu.Lock()
	defer mu.Unlock()
	if initialized {
		log.Debug().Msgf("Metrics already initialized!")
		return
	}
	if viper.IsSet("APP_METRIC_SAMPLING_RATE") {
		samplingRate = viper.GetFloat64("APP_METRIC_SAMPLING_RATE")
	}
	if viper.IsSet("APP_METRIC_ADDRESS") {
		telegrafAddress = viper.GetString("APP_METRIC_ADDRESS")
	}
	appName = viper.GetString("APP_NAME")
	globalTags := getGlobalTags()

	client, err := statsd.New(telegrafAddress, statsd.WithTags(globalTags))
	if err != nil {
		log.Warn().Err(err).Msg("StatsD client initialization failed, metrics are disabled")
		statsDClient = &statsd.NoOpClient{}
		initialized = true
		return
	}
	statsDClient = client
	log.Info().Msgf("Metrics client initialized with telegraf address - %s, global tags - %v, and "+
		"sampling rate - %f", telegrafAddress, globalTags, samplingRate)
	initialized = true
}

// Disable routes every metric to a no-op client.
func Disable() {
	mu.Lock()
	defer mu.Unlock()
	statsDClient = &statsd.NoOpClient{}
	initialized = true
}

func getDefaultClient() statsd.ClientInterface {
	client, err := statsd.New(telegrafAddress)
	if err != nil {
		return &statsd.NoOpClient{}
	}
	return client
}

func getGlobalTags() []string {
	env := viper.GetString("APP_ENV")
	if len(env) == 0 {
		log.Warn().Msg("APP_ENV is not set")
	}
	return []string{
		TagAsString(TagEnv, env),
		TagAsString(TagService, appName),
	}
}

func client() statsd.ClientInterface {
	mu.Lock()
	defer mu.Unlock()
	return statsDClient
}

// Timing sends timing information
func Timing(name string, value time.Duration, tags []string) {
	if err := client().Timing(name, value, tags, samplingRate); err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd timing")
	}
}

// TimingWithStart can be deferred at the start of a function: defer metric.TimingWithStart(name, time.Now(), tags)
func TimingWithStart(name string, startTime time.Time, tags []string) {
	Timing(name, time.Since(startTime), tags)
}

// Count Increases metric counter by value
func Count(name string, value int64, tags []string) {
	if err := client().Count(name, value, tags, samplingRate); err != nil {
		log.Warn().Err(err).Msg("Error occurred while doing statsd count")
	}
}

// Incr Increases metric counter by 1
func Incr(name string, tags []string) {
	Count(name, 1, tags)
}
