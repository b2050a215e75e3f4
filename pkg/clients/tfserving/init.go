package tfserving

import (
	"context"
	"sync"

	"github.com/Meesho/BharatMLStack/tfserving-client/pkg/metric"
	"github.com/rs/zerolog/log"
)

const (
	Version1 = 1
)

var (
	registry = make(map[int]Client)
	onceMap  = make(map[int]*sync.Once)
	mu       sync.Mutex
)

// InitClient builds the client for version from TFSERVING_CLIENT_V1_* settings and registers it.
// It panics if the settings are invalid, the server is unreachable or the version is unknown.
func InitClient(version int) Client {
	return initClient(version, func() (*ClientConfig, error) {
		return getClientConfigs(prefixFor(version))
	})
}

// InitClientFromConfig is InitClient with explicit settings.
func InitClientFromConfig(version int, conf *ClientConfig) Client {
	return initClient(version, func() (*ClientConfig, error) {
		if valid, err := validConfigs(conf); !valid {
			return nil, err
		}
		return conf, nil
	})
}

// InitClientFromJSON is InitClient with settings decoded from a JSON ClientConfig.
func InitClientFromJSON(version int, configBytes []byte) Client {
	return initClient(version, func() (*ClientConfig, error) {
		return getClientConfigsFromJSON(configBytes)
	})
}

func initClient(version int, load func() (*ClientConfig, error)) Client {
	mu.Lock()
	once, exists := onceMap[version]
	if !exists {
		once = &sync.Once{}
		onceMap[version] = once
	}
	mu.Unlock()

	once.Do(func() {
		if prefixFor(version) == "" {
			log.Panic().Msgf("Client version %d not supported", version)
		}
		metric.Init()
		conf, err := load()
		if err != nil {
			log.Panic().Err(err).Msgf("Invalid TensorFlow Serving client configs for version %d", version)
		}
		client, err := NewClientFromConfig(context.Background(), conf)
		if err != nil {
			log.Panic().Err(err).Msgf("Error creating TensorFlow Serving client for version %d", version)
		}
		mu.Lock()
		registry[version] = client
		mu.Unlock()
	})
	return GetInstance(version)
}

func GetInstance(version int) Client {
	mu.Lock()
	client := registry[version]
	mu.Unlock()
	if client == nil {
		log.Panic().Msgf("Client for version %d not initialised", version)
	}
	return client
}

func prefixFor(version int) string {
	switch version {
	case Version1:
		return V1Prefix
	default:
		return ""
	}
}
