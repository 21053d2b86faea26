// Package useragent classifies raw User-Agent strings into the browser, OS
// and device class fields stored on event metadata. Rules live in embedded
// YAML files and are matched with PCRE, first match wins.
package useragent

import (
	"embed"
	"fmt"
	"strings"
	"sync"

	"go.elara.ws/pcre"
	"gopkg.in/yaml.v3"
)

//go:embed database/browsers.yml
//go:embed database/oss.yml
//go:embed database/devices.yml
//go:embed database/bots.yml
var ruleFiles embed.FS

// UserAgent is the classification result for a single User-Agent string.
type UserAgent struct {
	Raw       string
	Browser   string
	BrowserVn string
	OS        string
	OSVersion string
	Device    string
	Bot       bool
}

type clientRule struct {
	Regex   string `yaml:"regex"`
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type deviceRule struct {
	Regex  string `yaml:"regex"`
	Device string `yaml:"device"`
}

type botRule struct {
	Regex string `yaml:"regex"`
	Name  string `yaml:"name"`
}

// regexCache compiles patterns lazily and reuses them across calls.
type regexCache struct {
	compiled map[string]*pcre.Regexp
	mutex    sync.RWMutex
}

func newRegexCache() *regexCache {
	return &regexCache{compiled: make(map[string]*pcre.Regexp)}
}

func (rc *regexCache) get(pattern string) (*pcre.Regexp, error) {
	rc.mutex.RLock()
	if regex, exists := rc.compiled[pattern]; exists {
		rc.mutex.RUnlock()
		return regex, nil
	}
	rc.mutex.RUnlock()

	rc.mutex.Lock()
	defer rc.mutex.Unlock()

	if regex, exists := rc.compiled[pattern]; exists {
		return regex, nil
	}

	regex, err := pcre.Compile(pattern)
	if err != nil {
		return nil, err
	}
	rc.compiled[pattern] = regex
	return regex, nil
}

type classifier struct {
	browsers []clientRule
	oss      []clientRule
	devices  []deviceRule
	bots     []botRule
	cache    *regexCache
}

var (
	instance *classifier
	once     sync.Once
)

func getClassifier() *classifier {
	once.Do(func() {
		instance = &classifier{cache: newRegexCache()}

		if data, err := ruleFiles.ReadFile("database/browsers.yml"); err == nil {
			if err := yaml.Unmarshal(data, &instance.browsers); err != nil {
				fmt.Printf("Error parsing browsers.yml: %v\n", err)
			}
		}
		if data, err := ruleFiles.ReadFile("database/oss.yml"); err == nil {
			if err := yaml.Unmarshal(data, &instance.oss); err != nil {
				fmt.Printf("Error parsing oss.yml: %v\n", err)
			}
		}
		if data, err := ruleFiles.ReadFile("database/devices.yml"); err == nil {
			if err := yaml.Unmarshal(data, &instance.devices); err != nil {
				fmt.Printf("Error parsing devices.yml: %v\n", err)
			}
		}
		if data, err := ruleFiles.ReadFile("database/bots.yml"); err == nil {
			if err := yaml.Unmarshal(data, &instance.bots); err != nil {
				fmt.Printf("Error parsing bots.yml: %v\n", err)
			}
		}
	})
	return instance
}

func (c *classifier) matchClient(rules []clientRule, userAgent string) (string, string) {
	for _, rule := range rules {
		regex, err := c.cache.get(rule.Regex)
		if err != nil {
			continue
		}
		matches := regex.FindStringSubmatch(userAgent)
		if matches == nil {
			continue
		}
		version := ""
		if rule.Version != "" && len(matches) > 1 {
			version = rule.Version
			for i, match := range matches[1:] {
				placeholder := fmt.Sprintf("$%d", i+1)
				version = strings.ReplaceAll(version, placeholder, match)
			}
			version = strings.ReplaceAll(version, "_", ".")
		}
		return rule.Name, version
	}
	return "Unknown", ""
}

func (c *classifier) matchBot(userAgent string) string {
	for _, rule := range c.bots {
		if regex, err := c.cache.get(rule.Regex); err == nil {
			if regex.MatchString(userAgent) {
				return rule.Name
			}
		}
	}
	return ""
}

func (c *classifier) matchDevice(userAgent string) string {
	for _, rule := range c.devices {
		if regex, err := c.cache.get(rule.Regex); err == nil {
			if regex.MatchString(userAgent) {
				return rule.Device
			}
		}
	}
	return "desktop"
}

// Parse classifies a User-Agent string. Bots are reported with Device "bot"
// and the bot name in Browser; an empty input yields Unknown fields.
func Parse(userAgent string) UserAgent {
	c := getClassifier()

	if botName := c.matchBot(userAgent); botName != "" {
		return UserAgent{
			Raw:     userAgent,
			Browser: botName,
			OS:      "Unknown",
			Device:  "bot",
			Bot:     true,
		}
	}

	browser, browserVn := c.matchClient(c.browsers, userAgent)
	osName, osVersion := c.matchClient(c.oss, userAgent)

	return UserAgent{
		Raw:       userAgent,
		Browser:   browser,
		BrowserVn: browserVn,
		OS:        osName,
		OSVersion: osVersion,
		Device:    c.matchDevice(userAgent),
	}
}
