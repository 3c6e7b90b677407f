package acuity

// Status classifies a visual acuity reading.
type Status string

const (
	StatusNormal          Status = "Normal"
	StatusSlightlyReduced Status = "Slightly reduced"
	StatusReduced         Status = "Reduced"
	StatusSeverelyReduced Status = "Severely reduced"
)

// statusSets are disjoint; a fraction in none of them is Severely reduced.
var statusSets = []struct {
	status    Status
	fractions []string
}{
	{StatusNormal, []string{"6/3", "6/4", "6/4.5", "6/5", "6/6", "6/7.5", "6/9"}},
	{StatusSlightlyReduced, []string{"6/12", "6/15"}},
	{StatusReduced, []string{"6/18", "6/21", "6/24", "6/30", "6/36"}},
	{StatusSeverelyReduced, []string{"6/48", "6/60"}},
}

// Decimal thresholds used for computed (expected) acuity.
const (
	normalThreshold          = 0.8
	slightlyReducedThreshold = 0.5
	reducedThreshold         = 0.25
)

// imperialToMetric maps 20 ft Snellen denominators to their 6 m equivalent.
var imperialToMetric = map[string]string{
	"20/10":  "6/3",
	"20/15":  "6/4.5",
	"20/16":  "6/5",
	"20/20":  "6/6",
	"20/25":  "6/7.5",
	"20/30":  "6/9",
	"20/40":  "6/12",
	"20/50":  "6/15",
	"20/60":  "6/18",
	"20/70":  "6/21",
	"20/80":  "6/24",
	"20/100": "6/30",
	"20/120": "6/36",
	"20/160": "6/48",
	"20/200": "6/60",
	"20/400": "6/120",
}

var metricToImperial = func() map[string]string {
	m := make(map[string]string, len(imperialToMetric))
	for imperial, metric := range imperialToMetric {
		m[metric] = imperial
	}
	return m
}()

// snellenSteps are the standard lines an expected acuity snaps to,
// best to worst.
var snellenSteps = []struct {
	decimal  float64
	fraction string
}{
	{1.0, "6/6"},
	{0.8, "6/7.5"},
	{0.67, "6/9"},
	{0.5, "6/12"},
	{0.4, "6/15"},
	{0.33, "6/18"},
	{0.25, "6/24"},
	{0.1, "6/60"},
}

// NearValues is the enumerated set of N-notation near acuities.
var NearValues = []string{"N5", "N6", "N8", "N10", "N12", "N18", "N24"}

// NearDefault is the near-vision notation used when no N-value is chosen.
const NearDefault = "N"

// DistanceDefault is the placeholder a distance acuity field starts with.
const DistanceDefault = "6/"
