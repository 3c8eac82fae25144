// Package telemetry sends opt-in, anonymous command usage events.
package telemetry

import (
	"net"
	"net/http"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/denisbrodbeck/machineid"
	"github.com/posthog/posthog-go"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// OptOutEnvVar disables telemetry regardless of settings when set to any value.
const OptOutEnvVar = "WHOWROTE_TELEMETRY_OPTOUT"

const eventCommandExecuted = "cli_command_executed"

var (
	// PostHogAPIKey is set at build time for production
	PostHogAPIKey = "phc_development_key"
	// PostHogEndpoint is set at build time for production
	PostHogEndpoint = "https://eu.i.posthog.com"
)

// Client records command usage.
type Client interface {
	TrackCommand(cmd *cobra.Command, repoEnabled bool)
	Close()
}

// NoOpClient is used whenever telemetry is not opted into.
type NoOpClient struct{}

// TrackCommand does nothing.
func (*NoOpClient) TrackCommand(*cobra.Command, bool) {}

// Close does nothing.
func (*NoOpClient) Close() {}

// silentLogger suppresses PostHog log output - expected for CLI best-effort telemetry
type silentLogger struct{}

func (silentLogger) Logf(_ string, _ ...interface{})   {}
func (silentLogger) Debugf(_ string, _ ...interface{}) {}
func (silentLogger) Warnf(_ string, _ ...interface{})  {}
func (silentLogger) Errorf(_ string, _ ...interface{}) {}

// PostHogClient enqueues events to PostHog.
type PostHogClient struct {
	client    posthog.Client
	machineID string
}

// NewClient returns a PostHog client when the user opted in through
// settings and has not set OptOutEnvVar. nil means not configured, which is
// treated as disabled.
//
//nolint:ireturn // returns NoOpClient or PostHogClient based on settings
func NewClient(version string, telemetryEnabled *bool) Client {
	if os.Getenv(OptOutEnvVar) != "" {
		return &NoOpClient{}
	}
	if telemetryEnabled == nil || !*telemetryEnabled {
		return &NoOpClient{}
	}

	id, err := machineid.ProtectedID("whowrote")
	if err != nil {
		return &NoOpClient{}
	}

	// Telemetry must never hold up the CLI or a git hook.
	transport := &http.Transport{
		DialContext: (&net.Dialer{
			Timeout: 100 * time.Millisecond,
		}).DialContext,
		TLSHandshakeTimeout:   100 * time.Millisecond,
		ResponseHeaderTimeout: 100 * time.Millisecond,
	}

	client, err := posthog.NewWithConfig(PostHogAPIKey, posthog.Config{
		Endpoint:           PostHogEndpoint,
		ShutdownTimeout:    100 * time.Millisecond,
		BatchUploadTimeout: 200 * time.Millisecond,
		Transport:          transport,
		Logger:             silentLogger{},
		DisableGeoIP:       posthog.Ptr(true),
		DefaultEventProperties: posthog.NewProperties().
			Set("cli_version", version).
			Set("os", runtime.GOOS).
			Set("arch", runtime.GOARCH),
	})
	if err != nil {
		return &NoOpClient{}
	}
	return &PostHogClient{client: client, machineID: id}
}

// CommandProperties describes a command invocation: its path, whether the
// repository has whowrote enabled, and the names (never values) of the
// flags that were set.
func CommandProperties(cmd *cobra.Command, repoEnabled bool) posthog.Properties {
	var flags []string
	cmd.Flags().Visit(func(flag *pflag.Flag) {
		flags = append(flags, flag.Name)
	})

	props := posthog.NewProperties().
		Set("command", cmd.CommandPath()).
		Set("repo_enabled", repoEnabled)
	if len(flags) > 0 {
		props.Set("flags", strings.Join(flags, ","))
	}
	return props
}

// TrackCommand enqueues a command event. Hidden commands (hooks) are skipped.
func (p *PostHogClient) TrackCommand(cmd *cobra.Command, repoEnabled bool) {
	if cmd == nil || cmd.Hidden || p.client == nil {
		return
	}
	//nolint:errcheck // Best-effort telemetry, failures should not affect CLI
	_ = p.client.Enqueue(posthog.Capture{
		DistinctId: p.machineID,
		Event:      eventCommandExecuted,
		Properties: CommandProperties(cmd, repoEnabled),
	})
}

// Close flushes pending events.
func (p *PostHogClient) Close() {
	if p.client != nil {
		_ = p.client.Close()
	}
}
