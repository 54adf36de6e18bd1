package config

import (
	"strconv"

	"github.com/ghodss/yaml"

	"github.com/sidkik/pishow/pkg/errors"
)

// DefaultDelay is the number of seconds between slides that's used before a
// slideshow config has ever been loaded.
const DefaultDelay = 10.0

// Slideshow is the config that's edited remotely, alongside the images.
// Unknown fields are ignored so that the file can be shared with other
// tools.
type Slideshow struct {
	// Delay is the number of seconds between slide transitions.
	Delay float64 `json:"delay"`
}

// DelayArg formats the delay for passing on the command line.
func (s Slideshow) DelayArg() string {
	return strconv.FormatFloat(s.Delay, 'f', -1, 64)
}

// UnmarshalSlideshow parses the contents of a slideshow config. `path` is
// only used in error messages.
func UnmarshalSlideshow(path string, configBytes []byte) (Slideshow, error) {
	var raw struct {
		Delay *float64 `json:"delay"`
	}
	if err := yaml.Unmarshal(configBytes, &raw); err != nil {
		return Slideshow{}, errors.NewFriendlyError(parseConfigErrTemplate, path, err)
	}

	if raw.Delay == nil {
		return Slideshow{}, errors.MissingFieldError{Field: "delay"}
	}

	if *raw.Delay <= 0 {
		return Slideshow{}, errors.NewFriendlyError(
			"The delay in %q must be positive, but got %v.", path, *raw.Delay)
	}
	return Slideshow{Delay: *raw.Delay}, nil
}
