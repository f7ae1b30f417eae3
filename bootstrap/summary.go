package bootstrap

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/kbukum/diconfig/di"
	"github.com/kbukum/diconfig/version"
)

// TelemetryInfo describes the telemetry pipeline set up at startup.
type TelemetryInfo struct {
	Name     string
	Endpoint string
	Enabled  bool
}

// SourceInfo describes one dependency map applied to the container.
type SourceInfo struct {
	Name    string
	Kind    string // "map" or "document"
	Entries int
}

// Summary tracks and displays the application bootstrap process.
type Summary struct {
	serviceName     string
	version         string
	startupDuration time.Duration
	telemetry       []TelemetryInfo
	sources         []SourceInfo
	build           version.Info
	out             io.Writer
}

// NewSummary creates a new bootstrap summary tracker writing to stdout.
func NewSummary(serviceName, serviceVersion string) *Summary {
	return &Summary{
		serviceName: serviceName,
		version:     serviceVersion,
		telemetry:   make([]TelemetryInfo, 0),
		sources:     make([]SourceInfo, 0),
		build:       version.Get(),
		out:         os.Stdout,
	}
}

// SetOutput redirects the summary.
func (s *Summary) SetOutput(w io.Writer) {
	s.out = w
}

// SetStartupDuration records the total startup time.
func (s *Summary) SetStartupDuration(d time.Duration) {
	s.startupDuration = d
}

// TrackTelemetry records the telemetry pipeline.
func (s *Summary) TrackTelemetry(name, endpoint string, enabled bool) {
	s.telemetry = append(s.telemetry, TelemetryInfo{
		Name:     name,
		Endpoint: endpoint,
		Enabled:  enabled,
	})
}

// TrackSource records a dependency map applied to the container.
func (s *Summary) TrackSource(name, kind string, entries int) {
	s.sources = append(s.sources, SourceInfo{
		Name:    name,
		Kind:    kind,
		Entries: entries,
	})
}

// Sources returns the dependency maps tracked so far.
func (s *Summary) Sources() []SourceInfo {
	return s.sources
}

// DisplaySummary prints the bootstrap summary including the registrations of c.
func (s *Summary) DisplaySummary(c *di.Container) {
	w := s.out

	fmt.Fprintf(w, "\n")
	fmt.Fprintf(w, "🚀 %s v%s started in %.2fs\n",
		s.serviceName, s.version, s.startupDuration.Seconds())
	fmt.Fprintf(w, "   build %s\n\n", s.build)

	if len(s.telemetry) > 0 {
		fmt.Fprintf(w, "📊 Telemetry\n")
		for i, t := range s.telemetry {
			icon := "✅"
			if !t.Enabled {
				icon = "⏸️"
			}
			fmt.Fprintf(w, "   %s %s %s: %s\n", treePrefix(i, len(s.telemetry)), icon, t.Name, t.Endpoint)
		}
		fmt.Fprintf(w, "\n")
	}

	if len(s.sources) > 0 {
		fmt.Fprintf(w, "📄 Dependencies\n")
		for i, src := range s.sources {
			fmt.Fprintf(w, "   %s %s [%s] (%d entries)\n", treePrefix(i, len(s.sources)), src.Name, src.Kind, src.Entries)
		}
		fmt.Fprintf(w, "\n")
	}

	if c == nil {
		return
	}

	regs := c.Registrations()
	if len(regs) == 0 {
		fmt.Fprintf(w, "   └── No services registered\n\n")
		return
	}

	fmt.Fprintf(w, "📦 Services (%d)\n", len(regs))
	built := 0
	for i, r := range regs {
		prefix := treePrefix(i, len(regs))
		if r.Target != "" {
			fmt.Fprintf(w, "   %s 🔗 %s → %s\n", prefix, r.Key, r.Target)
			continue
		}
		if r.Initialized {
			built++
		}
		fmt.Fprintf(w, "   %s %s %s (%s)\n", prefix, serviceIcon(r), r.Key, serviceMode(r))
	}
	fmt.Fprintf(w, "\n✅ Container %s compiled (%d built)\n\n", c.ID(), built)
}

func treePrefix(i, n int) string {
	if i == n-1 {
		return "└──"
	}
	return "├──"
}

func serviceIcon(r di.RegistrationInfo) string {
	switch {
	case r.Synthetic && !r.Initialized:
		return "⏸️"
	case r.Initialized:
		return "✅"
	default:
		return "⚡"
	}
}

func serviceMode(r di.RegistrationInfo) string {
	mode := "shared"
	if !r.Shared {
		mode = "prototype"
	}
	if r.Synthetic {
		mode = "synthetic"
	}
	if r.Private {
		mode += ", private"
	}
	return mode
}
