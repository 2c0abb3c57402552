package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/rollfed/gangrun/pkg/impose"
	"github.com/rollfed/gangrun/pkg/plan"
)

// configFileName is the config file gangrun looks for under the config dir.
const configFileName = "gangrun.toml"

// fileConfig is the on-disk shape of gangrun.toml. Every section and field
// is optional; zero values fall back to the house defaults.
//
//	[weights]
//	material = 0.5
//	print = 0.3
//	labor = 0.2
//
//	[policy]
//	max_overrun = 0.05
//	qty_per_roll = 5000
//
//	[impose]
//	poll_interval_seconds = 2
//	poll_timeout_seconds = 90
//	max_consecutive_failures = 3
//	inter_run_delay_ms = 500
//	include_dielines = true
type fileConfig struct {
	Weights plan.Weights `toml:"weights"`
	Policy  plan.Policy  `toml:"policy"`
	Impose  imposeConfig `toml:"impose"`
}

// imposeConfig holds the orchestrator knobs. Durations are spelled as
// integers with the unit in the key, so the file stays obvious to edit.
type imposeConfig struct {
	PollIntervalSeconds    int  `toml:"poll_interval_seconds"`
	PollTimeoutSeconds     int  `toml:"poll_timeout_seconds"`
	RequestTimeoutSeconds  int  `toml:"request_timeout_seconds"`
	MaxConsecutiveFailures int  `toml:"max_consecutive_failures"`
	InterRunDelayMS        int  `toml:"inter_run_delay_ms"`
	IncludeDielines        bool `toml:"include_dielines"`
}

// loadConfig reads the config file and returns it with the path that was
// actually read (empty when running on pure defaults).
//
// Resolution order: the explicit path, then $GANGRUN_CONFIG, then
// gangrun.toml under the config dir. A missing default file is not an
// error; a missing explicit path is.
func loadConfig(explicit string) (*fileConfig, string, error) {
	path := explicit
	if path == "" {
		path = os.Getenv(envConfig)
	}
	required := path != ""
	if path == "" {
		dir, err := configDir()
		if err != nil {
			return &fileConfig{}, "", nil
		}
		path = filepath.Join(dir, configFileName)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) && !required {
			return &fileConfig{}, "", nil
		}
		return nil, "", fmt.Errorf("read config %s: %w", path, err)
	}

	var cfg fileConfig
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, "", fmt.Errorf("parse config %s: %w", path, err)
	}
	return &cfg, path, nil
}

// weights returns the configured scoring weights, or the house defaults
// when the section is absent. Having defaults filled in here lets a flag
// override one coefficient without zeroing the others.
func (c *fileConfig) weights() plan.Weights {
	if c.Weights.IsZero() {
		return plan.DefaultWeights()
	}
	return c.Weights
}

// executePolicy maps the impose section onto orchestrator policy. Zero
// fields stay zero and default inside the orchestrator.
func (c *fileConfig) executePolicy() impose.ExecutePolicy {
	ic := c.Impose
	return impose.ExecutePolicy{
		PollInterval:           time.Duration(ic.PollIntervalSeconds) * time.Second,
		PollTimeout:            time.Duration(ic.PollTimeoutSeconds) * time.Second,
		RequestTimeout:         time.Duration(ic.RequestTimeoutSeconds) * time.Second,
		MaxConsecutiveFailures: ic.MaxConsecutiveFailures,
		InterRunDelay:          time.Duration(ic.InterRunDelayMS) * time.Millisecond,
		IncludeDielines:        ic.IncludeDielines,
	}
}
