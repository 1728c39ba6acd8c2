package cli

import (
	"bytes"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Job is a declarative recovery job: everything the run command takes
// as flags, in one YAML file. Explicit flags override job values;
// list-valued fields are concatenated.
type Job struct {
	Database       string   `yaml:"database"`
	PassphraseFile string   `yaml:"passphrase_file"`
	Passphrases    []string `yaml:"passphrases"`
	KeyfileDir     string   `yaml:"keyfile_dir"`
	Keyfiles       []string `yaml:"keyfiles"`
	TokenSlots     []int    `yaml:"token_slots"`

	IncludeNoPassphrase *bool `yaml:"include_no_passphrase"`
	IncludeNoKeyfile    *bool `yaml:"include_no_keyfile"`
	IncludeNoToken      *bool `yaml:"include_no_token"`

	Timeout      string `yaml:"timeout"` // Go duration, e.g. "30s"
	ProgressFile string `yaml:"progress_file"`
	Ledger       string `yaml:"ledger"`
}

// LoadJob reads and parses a job YAML file. Unknown fields are
// rejected so a typo fails loudly instead of silently dropping a
// wordlist.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read job file: %w", err)
	}

	var job Job
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&job); err != nil {
		return nil, fmt.Errorf("parse job file %s: %w", path, err)
	}

	if job.Timeout != "" {
		if _, err := time.ParseDuration(job.Timeout); err != nil {
			return nil, fmt.Errorf("job file %s: invalid timeout: %w", path, err)
		}
	}
	return &job, nil
}

// TimeoutDuration returns the parsed timeout, or zero when unset.
// LoadJob has already validated the syntax.
func (j *Job) TimeoutDuration() time.Duration {
	if j.Timeout == "" {
		return 0
	}
	d, _ := time.ParseDuration(j.Timeout)
	return d
}
