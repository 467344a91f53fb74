package pipeline

import (
	"context"
	"log/slog"

	"github.com/couchcryptid/city-weather-etl/internal/domain"
)

// ObservationTransformer implements Transformer by decoding the weather API
// body and normalizing it with the domain rules.
type ObservationTransformer struct {
	logger *slog.Logger
}

// NewTransformer creates an ObservationTransformer.
func NewTransformer(logger *slog.Logger) *ObservationTransformer {
	return &ObservationTransformer{logger: logger}
}

func (t *ObservationTransformer) Transform(_ context.Context, body []byte) (domain.NormalizedObservation, error) {
	raw, err := domain.ParseRawObservation(body)
	if err != nil {
		return domain.NormalizedObservation{}, err
	}

	if raw.Coord != nil {
		t.logger.Debug("raw observation decoded",
			"city_id", raw.ID,
			"lat", raw.Coord.Lat,
			"lon", raw.Coord.Lon,
		)
	}

	return domain.Normalize(raw)
}
