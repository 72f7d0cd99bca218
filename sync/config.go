package sync

import (
	"fmt"
	"strings"
	"time"

	"go.uber.org/config"
)

const (
	JobImportPeople = "import-people"
	JobImportEvents = "import-events"
	JobImportRSVPs  = "import-rsvps"
	JobSyncMailing  = "sync-mailing"
)

type Config struct {
	// Job is one of the Job* constants; it selects the per-job config overlay.
	Job            string
	API            APISettings
	Log            LogSettings
	Schedule       ScheduleSettings
	Paging         PagingSettings
	Concurrency    int
	Mapping        MappingSettings
	Mailing        MailingSettings
	DiffPolicies   map[string]DiffPolicySettings
	MetricsAddr    string
	RecordRequests bool
}

type APISettings struct {
	Keys struct {
		NationBuilder string `yaml:"nationBuilder"`
		Mailtrain     string `yaml:"mailtrain"`
	} `yaml:"keys"`
	Auth struct {
		User     string `yaml:"user"`
		Password string `yaml:"password"`
	} `yaml:"auth"`
	Ids struct {
		NationSlug    string `yaml:"nationSlug"`
		MailtrainList string `yaml:"mailtrainList"`
	} `yaml:"ids"`
	Endpoints struct {
		API           string `yaml:"api"`
		NationBuilder string `yaml:"nationBuilder"`
		Mailtrain     string `yaml:"mailtrain"`
	} `yaml:"endpoints"`
}

// NationBuilderEndpoint falls back to the nation's hosted domain.
func (a APISettings) NationBuilderEndpoint() string {
	if a.Endpoints.NationBuilder != "" {
		return a.Endpoints.NationBuilder
	}
	return fmt.Sprintf("https://%s.nationbuilder.com", a.Ids.NationSlug)
}

type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

type ScheduleSettings struct {
	Forever bool   `yaml:"forever"`
	Delay   string `yaml:"delay"`
}

func (s ScheduleSettings) CycleDelay() (time.Duration, error) {
	if s.Delay == "" {
		return 0, nil
	}
	return time.ParseDuration(s.Delay)
}

type PagingSettings struct {
	PageSize          int     `yaml:"pageSize"`
	RSVPPageSize      int     `yaml:"rsvpPageSize"`
	RequestsPerSecond float64 `yaml:"requestsPerSecond"`
	LowWater          int     `yaml:"lowWater"`
}

type MappingSettings struct {
	PhoneRegion string `yaml:"phoneRegion"`
}

type MailingSettings struct {
	Tags TagFilter `yaml:"tags"`
}

// DiffPolicySettings is the yaml form of a DiffPolicy.
type DiffPolicySettings struct {
	Compare string   `yaml:"compare"` // mapped | full
	Write   string   `yaml:"write"`   // full | sparse
	Owned   []string `yaml:"owned"`
}

func (d DiffPolicySettings) Policy() (DiffPolicy, error) {
	var result DiffPolicy
	switch d.Compare {
	case "", "mapped":
		result.Compare = CompareMapped
	case "full":
		result.Compare = CompareFull
	default:
		return result, fmt.Errorf("unsupported compare mode %q", d.Compare)
	}
	switch d.Write {
	case "", "full":
		result.Write = WriteFull
	case "sparse":
		result.Write = WriteSparse
	default:
		return result, fmt.Errorf("unsupported write mode %q", d.Write)
	}
	result.Owned = d.Owned
	return result, nil
}

// Policies converts every configured policy, keyed by resource.
func (c Config) Policies() (map[string]DiffPolicy, error) {
	result := make(map[string]DiffPolicy, len(c.DiffPolicies))
	for resource, settings := range c.DiffPolicies {
		p, err := settings.Policy()
		if err != nil {
			return nil, fmt.Errorf("diff policy for %s: %w", resource, err)
		}
		result[resource] = p
	}
	return result, nil
}

// Validate rejects configs missing the credentials the selected job needs.
func (c Config) Validate() error {
	var missing []string
	require := func(name, value string) {
		if value == "" {
			missing = append(missing, name)
		}
	}

	switch c.Job {
	case JobImportPeople, JobImportEvents, JobImportRSVPs:
		require("NB_SLUG", c.API.Ids.NationSlug)
		require("NB_API_KEY", c.API.Keys.NationBuilder)
	case JobSyncMailing:
		require("MAILTRAIN_ENDPOINT", c.API.Endpoints.Mailtrain)
		require("MAILTRAIN_KEY", c.API.Keys.Mailtrain)
		require("MAILTRAIN_LIST", c.API.Ids.MailtrainList)
	default:
		return fmt.Errorf("unsupported job %q", c.Job)
	}
	require("API_ENDPOINT", c.API.Endpoints.API)
	require("AUTH_USER", c.API.Auth.User)
	require("AUTH_PASSWORD", c.API.Auth.Password)

	if len(missing) > 0 {
		return fmt.Errorf("missing configuration for %s: %s", c.Job, strings.Join(missing, ", "))
	}
	if c.Paging.PageSize <= 0 {
		return fmt.Errorf("page size must be positive, have %d", c.Paging.PageSize)
	}
	if c.Concurrency <= 0 {
		return fmt.Errorf("concurrency must be positive, have %d", c.Concurrency)
	}
	if _, err := c.Schedule.CycleDelay(); err != nil {
		return fmt.Errorf("invalid cycle delay %w", err)
	}
	if _, err := c.Policies(); err != nil {
		return err
	}
	return nil
}

type CompositeEnvVar interface {
	LookupEnv(key string) (string, bool)
}

type YAMLConfigUnmarshaler struct{}

func (u YAMLConfigUnmarshaler) Unmarshal(compev CompositeEnvVar, sources ...ConfigFile) (Config, error) {
	var result Config
	var options []config.YAMLOption
	for _, s := range sources {
		if s.Length > 0 {
			options = append(options, config.Source(s.Reader))
		}
	}
	options = append(options, config.Expand(compev.LookupEnv))
	yaml, err := config.NewYAML(options...)
	if err != nil {
		return result, fmt.Errorf("failed to read yaml config %w", err)
	}
	readError := func(key string, cause error) error {
		return fmt.Errorf("failed to read '%s' from yaml config %w", key, cause)
	}
	key := "api"
	err = yaml.Get(key).Populate(&result.API)
	if err != nil {
		return result, readError(key, err)
	}
	key = "log"
	err = yaml.Get(key).Populate(&result.Log)
	if err != nil {
		return result, readError(key, err)
	}
	key = "schedule"
	err = yaml.Get(key).Populate(&result.Schedule)
	if err != nil {
		return result, readError(key, err)
	}
	key = "paging"
	err = yaml.Get(key).Populate(&result.Paging)
	if err != nil {
		return result, readError(key, err)
	}
	key = "concurrency"
	err = yaml.Get(key).Populate(&result.Concurrency)
	if err != nil {
		return result, readError(key, err)
	}
	key = "mapping"
	err = yaml.Get(key).Populate(&result.Mapping)
	if err != nil {
		return result, readError(key, err)
	}
	key = "mailing"
	err = yaml.Get(key).Populate(&result.Mailing)
	if err != nil {
		return result, readError(key, err)
	}
	key = "diffPolicies"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.DiffPolicies)
		if err != nil {
			return result, readError(key, err)
		}
	}
	key = "metricsAddr"
	result.MetricsAddr = yaml.Get(key).String()
	key = "recordRequests"
	if yaml.Get(key).HasValue() {
		err = yaml.Get(key).Populate(&result.RecordRequests)
		if err != nil {
			return result, readError(key, err)
		}
	}

	return result, nil
}
