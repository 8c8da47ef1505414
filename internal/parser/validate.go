package parser

import (
	"errors"
	"fmt"

	"github.com/jgoulah/billscraper/pkg/models"
)

// ErrNoRelevantData classifies a statement that decoded fine but carried
// neither a consumption total nor any rate tier
var ErrNoRelevantData = errors.New("no relevant data found")

// DiscardError reports which statement was discarded
type DiscardError struct {
	SourceIdentifier string
}

func (e *DiscardError) Error() string {
	return fmt.Sprintf("%s: %s", ErrNoRelevantData, e.SourceIdentifier)
}

// Is lets errors.Is(err, ErrNoRelevantData) match
func (e *DiscardError) Is(target error) bool {
	return target == ErrNoRelevantData
}

// Validate builds the record for id when fields carry a consumption total or
// at least one rate tier. Otherwise it returns a *DiscardError.
func Validate(id string, fields ParsedFields) (models.MunicipalRecord, error) {
	if fields.TotalConsumptionKWh == nil && len(fields.RateTiers) == 0 {
		return models.MunicipalRecord{}, &DiscardError{SourceIdentifier: id}
	}

	tiers := make([]models.RateTier, len(fields.RateTiers))
	copy(tiers, fields.RateTiers)

	return models.MunicipalRecord{
		SourceIdentifier:    id,
		TotalConsumptionKWh: fields.TotalConsumptionKWh,
		RateTiers:           tiers,
		DailyAverageKWh:     fields.DailyAverageKWh,
		TotalCharge:         fields.TotalCharge,
		Period:              fields.Period,
	}, nil
}
