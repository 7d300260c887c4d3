package config

import (
	"encoding/json"
	"fmt"
)

// Manages the configuration for the http front-end that receives routed
// requests over HTTP/2 and forwards them as Diameter or Radius packets.
type HttpHandlerConfigurationManager struct {
	cm                       ConfigurationManager
	currentHttpHandlerConfig HandlerConfig
}

var httpHandlerConfigs []*HttpHandlerConfigurationManager = make([]*HttpHandlerConfigurationManager, 0)

// Adds a HttpHandler configuration object with the specified name
func InitHttpHandlerConfigInstance(bootstrapFile string, instanceName string, isDefault bool) *HttpHandlerConfigurationManager {

	for i := range httpHandlerConfigs {
		if httpHandlerConfigs[i].cm.instanceName == instanceName {
			panic(instanceName + " already initalized")
		}
	}

	httpHandlerConfig := HttpHandlerConfigurationManager{cm: NewConfigurationManager(bootstrapFile, instanceName)}
	httpHandlerConfigs = append(httpHandlerConfigs, &httpHandlerConfig)

	if isDefault {
		initLogger(&httpHandlerConfig.cm)
		initDictionaries(&httpHandlerConfig.cm)
	}

	httpHandlerConfig.UpdateHttpHandlerConfig()

	return &httpHandlerConfig
}

// Retrieves a specific configuration instance
func GetHttpHandlerConfigInstance(instanceName string) *HttpHandlerConfigurationManager {

	for i := range httpHandlerConfigs {
		if httpHandlerConfigs[i].cm.instanceName == instanceName {
			return httpHandlerConfigs[i]
		}
	}

	panic("configuraton instance <" + instanceName + "> not configured")
}

// Retrieves the default configuration instance
func GetHttpHandlerConfig() *HttpHandlerConfigurationManager {
	return httpHandlerConfigs[0]
}

// Retrieves the http handler configuration, forcing a refresh
func (c *HttpHandlerConfigurationManager) getHttpHandlerConfig() (HandlerConfig, error) {
	hc := HandlerConfig{}
	h, err := c.cm.GetConfigObject("httpHandler.json", true)
	if err != nil {
		return hc, err
	}
	if err := json.Unmarshal(h.RawBytes, &hc); err != nil {
		return hc, err
	}
	return hc, nil
}

// Updates the global variable with the http handler configuration
func (c *HttpHandlerConfigurationManager) UpdateHttpHandlerConfig() error {
	hc, err := c.getHttpHandlerConfig()
	if err != nil {
		return fmt.Errorf("could not retrieve the HttpHandler configuration: %w", err)
	}
	c.currentHttpHandlerConfig = hc
	return nil
}

// Retrieves the current http handler configuration
func (c *HttpHandlerConfigurationManager) HttpHandlerConf() HandlerConfig {
	return c.currentHttpHandlerConfig
}
