package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"service-dispatch/internal/apperr"
	"service-dispatch/internal/service/courier"
	"service-dispatch/internal/service/matching"
)

// Job defaults used by the CLI and by jobs with missing fields.
const (
	DefaultPickup  = "Restaurant A"
	DefaultDropoff = "Client Z"
	DefaultReward  = 6.5
)

// JobSpec is one job of a jobs or fleet file.
type JobSpec struct {
	Pickup      string   `koanf:"pickup"`
	Dropoff     string   `koanf:"dropoff"`
	Reward      *float64 `koanf:"reward"`
	WaitSeconds float64  `koanf:"wait_seconds"`
}

// Job converts the spec, filling in missing fields with the defaults.
func (s JobSpec) Job() (matching.Job, error) {
	job := matching.Job{
		Pickup:  strings.TrimSpace(s.Pickup),
		Dropoff: strings.TrimSpace(s.Dropoff),
		Reward:  DefaultReward,
	}
	if job.Pickup == "" {
		job.Pickup = DefaultPickup
	}
	if job.Dropoff == "" {
		job.Dropoff = DefaultDropoff
	}
	if s.Reward != nil {
		job.Reward = *s.Reward
	}
	if s.WaitSeconds < 0 {
		return matching.Job{}, fmt.Errorf("%w: wait_seconds must be non-negative", apperr.ErrInvalid)
	}
	job.Window = time.Duration(s.WaitSeconds * float64(time.Second))
	return job, nil
}

// Fleet is the content of a fleet file: couriers to launch and an optional
// batch of jobs to publish once they are listening.
type Fleet struct {
	Couriers        []courier.Profile `koanf:"couriers"`
	Jobs            []JobSpec         `koanf:"jobs"`
	IntervalSeconds *float64          `koanf:"interval_seconds"`
}

// Interval returns the pause between jobs, or -1 to use the engine default.
func (f Fleet) Interval() time.Duration {
	if f.IntervalSeconds == nil {
		return -1
	}
	return time.Duration(*f.IntervalSeconds * float64(time.Second))
}

// MatchingJobs converts every job spec.
func (f Fleet) MatchingJobs() ([]matching.Job, error) {
	jobs := make([]matching.Job, 0, len(f.Jobs))
	for i, spec := range f.Jobs {
		job, err := spec.Job()
		if err != nil {
			return nil, fmt.Errorf("job %d: %w", i, err)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}

// LoadFleet reads a YAML or JSON fleet file. Couriers without an accept rate
// get courier.DefaultAcceptRate.
func LoadFleet(path string) (*Fleet, error) {
	k := koanf.New(".")
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("%w: unsupported fleet file format %q", apperr.ErrInvalid, ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load fleet file: %w", err)
	}

	var fleet Fleet
	if err := k.Unmarshal("", &fleet); err != nil {
		return nil, fmt.Errorf("decode fleet file: %w", err)
	}
	// a missing accept_rate decodes as 0; only the raw document tells it apart from an explicit 0
	for i := range fleet.Couriers {
		if !rawHasKey(k, i, "accept_rate") {
			fleet.Couriers[i].AcceptRate = courier.DefaultAcceptRate
		}
	}
	if err := fleet.Validate(); err != nil {
		return nil, err
	}
	return &fleet, nil
}

func rawHasKey(k *koanf.Koanf, idx int, key string) bool {
	list, ok := k.Get("couriers").([]any)
	if !ok || idx >= len(list) {
		return false
	}
	m, ok := list[idx].(map[string]any)
	if !ok {
		return false
	}
	_, ok = m[key]
	return ok
}

// Validate checks profiles, duplicate ids and the interval.
func (f Fleet) Validate() error {
	var errs []error
	seen := make(map[string]struct{}, len(f.Couriers))
	for i, p := range f.Couriers {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("courier %d: %w", i, err))
			continue
		}
		if _, dup := seen[p.ID]; dup {
			errs = append(errs, fmt.Errorf("%w: duplicate courier id %q", apperr.ErrInvalid, p.ID))
		}
		seen[p.ID] = struct{}{}
	}
	if f.IntervalSeconds != nil && *f.IntervalSeconds < 0 {
		errs = append(errs, fmt.Errorf("%w: interval_seconds must be non-negative", apperr.ErrInvalid))
	}
	return errors.Join(errs...)
}
