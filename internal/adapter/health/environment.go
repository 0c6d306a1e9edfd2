package health

import (
	"os"
	"strings"
	"time"

	"github.com/vidra-project/vidra/internal/env"
)

// Environment names the deployment class the monitor adapts to. Constrained
// hosts (VPS, containers) get longer intervals, doubled timeouts and a
// higher failure threshold so shared-tenancy jitter does not flap health.
type Environment string

const (
	EnvironmentStandard    Environment = "standard"
	EnvironmentConstrained Environment = "constrained"
)

const (
	standardInterval    = 30 * time.Second
	constrainedInterval = 60 * time.Second

	standardThreshold    = 3
	constrainedThreshold = 5
)

// DetectEnvironment classifies the host from environment variables and the
// container marker file.
func DetectEnvironment() Environment {
	if env.GetEnvBoolOrDefault("IS_VPS", false) {
		return EnvironmentConstrained
	}
	switch strings.ToLower(env.GetEnvOrDefault("DEPLOYMENT_TYPE", "")) {
	case "vps", "server", "container", "cloud":
		return EnvironmentConstrained
	}
	if _, err := os.Stat("/.dockerenv"); err == nil {
		return EnvironmentConstrained
	}
	return EnvironmentStandard
}

// interval returns the probe interval, honouring an explicit config value.
func (e Environment) interval(configured time.Duration) time.Duration {
	if configured > 0 {
		return configured
	}
	if e == EnvironmentConstrained {
		return constrainedInterval
	}
	return standardInterval
}

// timeout doubles the configured probe timeout on constrained hosts.
func (e Environment) timeout(configured time.Duration) time.Duration {
	if configured <= 0 {
		configured = standardInterval
	}
	if e == EnvironmentConstrained {
		return configured * 2
	}
	return configured
}

// failureThreshold returns the consecutive-failure count that marks a
// service unhealthy.
func (e Environment) failureThreshold(configured int) int {
	if configured > 0 {
		return configured
	}
	if e == EnvironmentConstrained {
		return constrainedThreshold
	}
	return standardThreshold
}
