package tools

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"
)

const (
	// DefaultNominatimURL is the OpenStreetMap geocoding search endpoint.
	DefaultNominatimURL = "https://nominatim.openstreetmap.org/search"

	facilityLimit = 3
)

// FacilityTool helps locate hospitals, clinics and pharmacies. It lists a
// few matches from OpenStreetMap when reachable, and always includes the
// standard guidance for finding care in India.
type FacilityTool struct {
	web     *webClient
	baseURL string
}

// NewFacilityTool creates the facility locator. An empty baseURL uses the
// public Nominatim instance.
func NewFacilityTool(baseURL string, timeout time.Duration) *FacilityTool {
	if baseURL == "" {
		baseURL = DefaultNominatimURL
	}
	return &FacilityTool{web: newWebClient(timeout), baseURL: baseURL}
}

func (t *FacilityTool) Metadata() ToolMetadata {
	return ToolMetadata{
		Name:        NameFacilities,
		Description: "Help find nearby healthcare facilities like hospitals, clinics, or pharmacies.",
		Parameters: []ToolParameter{
			{Name: "location", ParamType: TypeString, Description: "City, district, or area name", Required: true},
			{Name: "facility_type", ParamType: TypeString, Description: "Type of facility (hospital, clinic, pharmacy, diagnostic_center)", Default: "hospital"},
		},
	}
}

type nominatimPlace struct {
	DisplayName string `json:"display_name"`
}

func (t *FacilityTool) Execute(ctx context.Context, args Args) (ToolResult, error) {
	location, facility := args.String("location"), args.String("facility_type")

	params := url.Values{
		"q":      {fmt.Sprintf("%s in %s", strings.ReplaceAll(facility, "_", " "), location)},
		"format": {"json"},
		"limit":  {fmt.Sprint(facilityLimit)},
	}
	var places []nominatimPlace
	if err := t.web.getJSON(ctx, t.baseURL+"?"+params.Encode(), &places); err != nil {
		return ToolResult{}, err
	}

	guidance := facilityGuidance(location, facility)
	if len(places) == 0 {
		return SuccessResult(guidance), nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "Possible %ss near %s (OpenStreetMap):\n", facility, location)
	for i, p := range places {
		if i == facilityLimit {
			break
		}
		fmt.Fprintf(&b, "%d. %s\n", i+1, p.DisplayName)
	}
	b.WriteString("\n")
	b.WriteString(guidance)
	return SuccessResult(b.String()), nil
}

func (t *FacilityTool) Degrade(args Args, err error) string {
	return fmt.Sprintf("Live facility lookup unavailable (%s).\n\n%s",
		FailureClass(err), facilityGuidance(args.String("location"), args.String("facility_type")))
}

func facilityGuidance(location, facility string) string {
	return fmt.Sprintf(`To find %[2]ss near %[1]s:

1. Google Maps: Search "%[2]s near %[1]s"
2. Call 108 (Ambulance) - they can direct you to nearest facility
3. Use Practo or 1mg app for hospitals/clinics/pharmacies
4. Government Health Helpline: 104 (medical advice)

For Primary Health Centers (PHC):
- Visit your local PHC for free/subsidized care
- Ask your village Sarpanch for nearest PHC location

For emergencies, call 102 or 108 immediately.`, location, facility)
}
