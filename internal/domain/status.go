package domain

import "strings"

// Status says whether current stock covers expected demand.
type Status string

const (
	StatusOK            Status = "OK"
	StatusNeedsPurchase Status = "needs purchase"
)

// UrgencyBand buckets a record by its runway in days.
type UrgencyBand string

const (
	BandCritical UrgencyBand = "critical"
	BandWatch    UrgencyBand = "watch"
	BandNormal   UrgencyBand = "normal"
	BandExcess   UrgencyBand = "excess"
)

var statusLabels = map[Status]string{
	StatusOK:            "OK",
	StatusNeedsPurchase: "Comprar",
}

var bandLabels = map[UrgencyBand]string{
	BandCritical: "Urgente",
	BandWatch:    "Atenção",
	BandNormal:   "Normal",
	BandExcess:   "Excesso",
}

var bandCodes = map[string]UrgencyBand{
	"critical": BandCritical,
	"urgente":  BandCritical,
	"watch":    BandWatch,
	"atencao":  BandWatch,
	"atenção":  BandWatch,
	"normal":   BandNormal,
	"excess":   BandExcess,
	"excesso":  BandExcess,
}

// Label returns the report label for a status.
func (s Status) Label() string {
	if label, ok := statusLabels[s]; ok {
		return label
	}

	return string(s)
}

// Label returns the report label for an urgency band.
func (b UrgencyBand) Label() string {
	if label, ok := bandLabels[b]; ok {
		return label
	}

	return string(b)
}

// ParseUrgencyBand returns the band for a name or label (case-insensitive).
func ParseUrgencyBand(label string) (UrgencyBand, bool) {
	band, ok := bandCodes[strings.ToLower(strings.TrimSpace(label))]

	return band, ok
}
