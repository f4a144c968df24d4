package zoom

import (
	"fmt"
	"os"
	"time"
	_ "time/tzdata"

	"gopkg.in/yaml.v3"
)

// LoadMeetingDefaults reads a YAML meeting template and overlays it on the
// built-in defaults. Keys absent from the file keep their built-in value.
func LoadMeetingDefaults(path string) (MeetingDefaults, error) {
	defaults := DefaultMeetingDefaults()

	data, err := os.ReadFile(path)
	if err != nil {
		return defaults, fmt.Errorf("failed to read meeting defaults file: %w", err)
	}

	if err := yaml.Unmarshal(data, &defaults); err != nil {
		return defaults, fmt.Errorf("failed to parse meeting defaults: %w", err)
	}

	if err := defaults.Validate(); err != nil {
		return defaults, fmt.Errorf("invalid meeting defaults: %w", err)
	}

	return defaults, nil
}

// Validate checks the template against the values the create-meeting API accepts.
func (d MeetingDefaults) Validate() error {
	switch d.Type {
	case 1, 2, 3, 8:
	default:
		return fmt.Errorf("type must be one of 1, 2, 3, 8, got %d", d.Type)
	}
	if d.Duration <= 0 {
		return fmt.Errorf("duration must be greater than 0")
	}
	if d.Timezone == "" {
		return fmt.Errorf("timezone cannot be empty")
	}
	if _, err := time.LoadLocation(d.Timezone); err != nil {
		return fmt.Errorf("invalid timezone %q: %w", d.Timezone, err)
	}
	if d.Settings.ApprovalType < 0 || d.Settings.ApprovalType > 2 {
		return fmt.Errorf("settings.approval_type must be 0, 1 or 2")
	}
	switch d.Settings.Audio {
	case "both", "telephony", "voip", "thirdParty":
	default:
		return fmt.Errorf("settings.audio must be one of both, telephony, voip, thirdParty")
	}
	switch d.Settings.AutoRecording {
	case "none", "local", "cloud":
	default:
		return fmt.Errorf("settings.auto_recording must be one of none, local, cloud")
	}
	return nil
}
