package catalog

import (
	"fmt"
	"sort"
	"strings"

	"github.com/bakano/consultancy-backend/internal/models"
	"gopkg.in/yaml.v3"
)

// CalendarRoute maps a booking calendar to the expert and meeting type it books
type CalendarRoute struct {
	Name        string             `yaml:"name"`
	Expert      string             `yaml:"expert"`
	MeetingType models.MeetingType `yaml:"meetingType"`
}

// Calendars is the allow-list of booking calendars
type Calendars struct {
	routes map[string]CalendarRoute
}

type calendarsFile struct {
	Calendars []CalendarRoute `yaml:"calendars"`
}

// ParseCalendars decodes and validates a calendar allow-list
func ParseCalendars(data []byte) (*Calendars, error) {
	var file calendarsFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return nil, fmt.Errorf("failed to parse calendars: %w", err)
	}

	c := &Calendars{routes: make(map[string]CalendarRoute, len(file.Calendars))}
	for _, route := range file.Calendars {
		key := calendarKey(route.Name)
		if key == "" || route.Expert == "" {
			return nil, fmt.Errorf("calendar entries need a name and an expert")
		}
		if !route.MeetingType.IsValid() {
			return nil, fmt.Errorf("calendar %q has unknown meeting type %q", route.Name, route.MeetingType)
		}
		if _, exists := c.routes[key]; exists {
			return nil, fmt.Errorf("calendar %q listed twice", route.Name)
		}
		c.routes[key] = route
	}
	return c, nil
}

// LoadCalendars parses the embedded calendar allow-list
func LoadCalendars() (*Calendars, error) {
	data, err := files.ReadFile("calendars.yaml")
	if err != nil {
		return nil, fmt.Errorf("failed to read calendars.yaml: %w", err)
	}
	return ParseCalendars(data)
}

// Lookup resolves a calendar display name, ignoring case and surrounding space
func (c *Calendars) Lookup(calendarName string) (CalendarRoute, bool) {
	route, ok := c.routes[calendarKey(calendarName)]
	return route, ok
}

func calendarKey(name string) string {
	return strings.ToLower(strings.Join(strings.Fields(name), " "))
}

// ExpertFor returns the expert of the first calendar booking the meeting type
func (c *Calendars) ExpertFor(meetingType models.MeetingType) (string, bool) {
	names := make([]string, 0, len(c.routes))
	for key := range c.routes {
		names = append(names, key)
	}
	sort.Strings(names)
	for _, key := range names {
		if route := c.routes[key]; route.MeetingType == meetingType {
			return route.Expert, true
		}
	}
	return "", false
}
