// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
)

// DependencyStatus is the health of one dependency.
type DependencyStatus struct {
	Name       string
	Healthy    bool
	Message    string
	LastUpdate time.Time
}

// StatusComponent renders dependency health.
type StatusComponent struct {
	statuses map[string]DependencyStatus
}

// NewStatusComponent creates a new status component.
func NewStatusComponent() *StatusComponent {
	return &StatusComponent{
		statuses: make(map[string]DependencyStatus),
	}
}

// Update records a dependency's status.
func (s *StatusComponent) Update(status DependencyStatus) {
	s.statuses[status.Name] = status
}

// Healthy reports whether every known dependency is healthy.
func (s *StatusComponent) Healthy() bool {
	for _, st := range s.statuses {
		if !st.Healthy {
			return false
		}
	}
	return true
}

// View renders one line per dependency, sorted by name.
func (s *StatusComponent) View() string {
	if len(s.statuses) == 0 {
		return lipgloss.NewStyle().Foreground(lipgloss.Color("#6B7280")).Render("No dependencies reported")
	}

	names := make([]string, 0, len(s.statuses))
	for name := range s.statuses {
		names = append(names, name)
	}
	sort.Strings(names)

	ok := lipgloss.NewStyle().Foreground(lipgloss.Color("#10B981"))
	bad := lipgloss.NewStyle().Foreground(lipgloss.Color("#EF4444"))

	var b strings.Builder
	for _, name := range names {
		st := s.statuses[name]
		if st.Healthy {
			b.WriteString(ok.Render("● " + name))
		} else {
			b.WriteString(bad.Render("○ " + name))
			if st.Message != "" {
				b.WriteString(fmt.Sprintf(" (%s)", st.Message))
			}
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}
