package config

// Set FREEDIAMETERD_CONFIG_BASE environment variable to the absolute location of the
// resource directory (finishing in a slash), otherwise file resources are looked up
// relative to the executing directory.

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"regexp"
	"strings"
	"sync"

	_ "github.com/go-sql-driver/mysql"
)

// A search rule maps object names matching NameRegex to a location prefix (Base).
// Base may be a filesystem directory, an http(s) URL prefix or a mysql:// DSN,
// in which case the object is read from a database table instead of a file.
type searchRule struct {
	NameRegex string
	Base      string
	Regex     *regexp.Regexp `json:"-"`
}

type searchRules []searchRule

// RawConfigObject holds both the raw bytes retrieved for a configuration object
// and, when the contents parse as JSON, the decoded value.
type RawConfigObject struct {
	RawBytes []byte
	Json     interface{}
}

// ConfigurationManager resolves named configuration objects (dictionaries, peer
// tables, routing rules, handler settings...) against a set of search rules read
// from a bootstrap file, caching the results until explicitly refreshed.
type ConfigurationManager struct {
	instanceName string

	sRules searchRules

	cacheMutex  sync.RWMutex
	objectCache map[string]RawConfigObject
}

// NewConfigurationManager reads the search rules from bootstrapFile and returns a
// ConfigurationManager bound to instanceName, which is tried as a path segment
// before falling back to the rule's base location.
func NewConfigurationManager(bootstrapFile string, instanceName string) ConfigurationManager {

	cm := ConfigurationManager{
		instanceName: instanceName,
		objectCache:  make(map[string]RawConfigObject),
	}

	rulesText, err := readResource(bootstrapFile)
	if err != nil {
		panic("could not retrieve the bootstrap file in " + bootstrapFile + ": " + err.Error())
	}

	if err := json.Unmarshal(rulesText, &cm.sRules); err != nil {
		panic("could not decode the search rules in " + bootstrapFile + ": " + err.Error())
	}
	if len(cm.sRules) == 0 {
		panic("no search rules found in " + bootstrapFile)
	}

	for i, sr := range cm.sRules {
		re, err := regexp.Compile(sr.NameRegex)
		if err != nil {
			panic("could not compile search rule regex " + sr.NameRegex + ": " + err.Error())
		}
		cm.sRules[i].Regex = re
	}

	return cm
}

// GetConfigObject retrieves a configuration object by name, forcing a fresh read
// when refresh is true.
func (c *ConfigurationManager) GetConfigObject(objectName string, refresh bool) (RawConfigObject, error) {

	if !refresh {
		c.cacheMutex.RLock()
		obj, found := c.objectCache[objectName]
		c.cacheMutex.RUnlock()
		if found {
			return obj, nil
		}
	}

	obj, err := c.readConfigObject(objectName)
	if err != nil {
		return RawConfigObject{}, err
	}

	c.cacheMutex.Lock()
	c.objectCache[objectName] = obj
	c.cacheMutex.Unlock()

	return obj, nil
}

// GetConfigObjectAsText returns the raw contents of the named object as a string.
func (c *ConfigurationManager) GetConfigObjectAsText(objectName string, refresh bool) (string, error) {
	obj, err := c.GetConfigObject(objectName, refresh)
	if err != nil {
		return "", err
	}
	return string(obj.RawBytes), nil
}

// GetBytesConfigObject returns the raw contents of the named object, always
// forcing a fresh read.
func (c *ConfigurationManager) GetBytesConfigObject(objectName string) ([]byte, error) {
	obj, err := c.GetConfigObject(objectName, true)
	if err != nil {
		return nil, err
	}
	return obj.RawBytes, nil
}

// BuildJSONConfigObject reads the named object, forcing a fresh read, and
// unmarshals it into target.
func (c *ConfigurationManager) BuildJSONConfigObject(objectName string, target interface{}) error {
	obj, err := c.GetConfigObject(objectName, true)
	if err != nil {
		return err
	}
	return json.Unmarshal(obj.RawBytes, target)
}

// InvalidateConfigObject removes an object from the cache, forcing the next
// access to reread it.
func (c *ConfigurationManager) InvalidateConfigObject(objectName string) {
	c.cacheMutex.Lock()
	delete(c.objectCache, objectName)
	c.cacheMutex.Unlock()
}

// readConfigObject resolves objectName against the search rules and reads it,
// trying the instance-specific location before the shared one.
func (c *ConfigurationManager) readConfigObject(objectName string) (RawConfigObject, error) {

	var base, innerName string
	for _, rule := range c.sRules {
		matches := rule.Regex.FindStringSubmatch(objectName)
		if matches != nil {
			base = rule.Base
			if len(matches) > 1 {
				innerName = matches[1]
			} else {
				innerName = objectName
			}
		}
	}
	if base == "" {
		return RawConfigObject{}, fmt.Errorf("object name %s does not match any search rule", objectName)
	}

	if strings.HasPrefix(base, "mysql://") {
		return readDatabaseObject(base, innerName)
	}

	if c.instanceName != "" {
		if bytes, err := readResource(base + c.instanceName + "/" + innerName); err == nil {
			return newRawConfigObject(bytes), nil
		}
	}

	bytes, err := readResource(base + innerName)
	if err != nil {
		return RawConfigObject{}, err
	}
	return newRawConfigObject(bytes), nil
}

// readResource reads the configuration item from the specified location, which
// may be a filesystem path (relative to FREEDIAMETERD_CONFIG_BASE) or an http(s) URL.
func readResource(location string) ([]byte, error) {
	if strings.HasPrefix(location, "http") {
		resp, err := http.Get(location)
		if err != nil {
			return nil, err
		}
		defer resp.Body.Close()
		return io.ReadAll(resp.Body)
	}

	return os.ReadFile(os.Getenv("FREEDIAMETERD_CONFIG_BASE") + location)
}

// readDatabaseObject loads a map-shaped configuration object from a mysql table.
// The table is expected to expose an object_key and a json_value column; the
// result is assembled into a JSON object keyed by object_key.
func readDatabaseObject(dsn string, table string) (RawConfigObject, error) {
	db, err := sql.Open("mysql", strings.TrimPrefix(dsn, "mysql://"))
	if err != nil {
		return RawConfigObject{}, err
	}
	defer db.Close()

	rows, err := db.Query(fmt.Sprintf("SELECT object_key, json_value FROM %s", table))
	if err != nil {
		return RawConfigObject{}, err
	}
	defer rows.Close()

	out := make(map[string]json.RawMessage)
	for rows.Next() {
		var key string
		var value []byte
		if err := rows.Scan(&key, &value); err != nil {
			return RawConfigObject{}, err
		}
		out[key] = json.RawMessage(value)
	}
	if err := rows.Err(); err != nil {
		return RawConfigObject{}, err
	}

	raw, err := json.Marshal(out)
	if err != nil {
		return RawConfigObject{}, err
	}
	return newRawConfigObject(raw), nil
}

func newRawConfigObject(raw []byte) RawConfigObject {
	obj := RawConfigObject{RawBytes: raw}
	json.Unmarshal(raw, &obj.Json)
	return obj
}
