package panorama

import (
	"context"
	"errors"
	"fmt"

	"github.com/susu3304/geoguess/internal/game"
)

//go:generate mockgen -destination=mock_lookup.go -package=panorama github.com/susu3304/geoguess/internal/panorama Lookup

// ErrNotFound means there is no imagery within the search radius.
var ErrNotFound = errors.New("no panorama found")

// Lookup finds the panorama nearest to a point.
type Lookup interface {
	LookupPanorama(ctx context.Context, near game.Coordinate, radiusMeters int) (game.PanoramaCandidate, error)
}

// ServiceError is a transient failure of the imagery service.
type ServiceError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *ServiceError) Error() string {
	switch {
	case e.Err != nil && e.StatusCode != 0:
		return fmt.Sprintf("imagery %s: status %d: %v", e.Op, e.StatusCode, e.Err)
	case e.Err != nil:
		return fmt.Sprintf("imagery %s: %v", e.Op, e.Err)
	default:
		return fmt.Sprintf("imagery %s: status %d", e.Op, e.StatusCode)
	}
}

func (e *ServiceError) Unwrap() error {
	return e.Err
}

// IsServiceError reports whether err came from a transient imagery failure.
func IsServiceError(err error) bool {
	var se *ServiceError
	return errors.As(err, &se)
}
