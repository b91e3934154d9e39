package services

import (
	"context"
	"errors"
	"regexp"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/domain"
	"github.com/textcast/textcast/internal/core/ports"
)

// defaultResolveTimeout bounds the remote three-word address resolution.
const defaultResolveTimeout = 5 * time.Second

var (
	// coordinatePattern matches two signed decimals separated by a comma,
	// with optional parentheses, degree symbols, and per-axis cardinal
	// suffixes (N/S after the latitude, E/W after the longitude).
	coordinatePattern = regexp.MustCompile(
		`^\(?\s*([+-]?\d+(?:\.\d+)?)\s*°?\s*([NSns])?\s*,\s*([+-]?\d+(?:\.\d+)?)\s*°?\s*([EWew])?\s*\)?$`)

	// wordsPattern matches exactly three alphabetic words joined by dots,
	// after any leading slashes have been stripped.
	wordsPattern = regexp.MustCompile(`^[a-zA-Z]+\.[a-zA-Z]+\.[a-zA-Z]+$`)
)

type locationParser struct {
	resolver       ports.WordsResolver
	resolveTimeout time.Duration
	logger         *zap.Logger
}

// NewLocationParser creates the parser that turns inbound message text into
// coordinates. The resolver is only consulted for three-word addresses; a
// zero timeout falls back to the default resolution bound.
func NewLocationParser(resolver ports.WordsResolver, resolveTimeout time.Duration, logger *zap.Logger) ports.LocationParser {
	if resolveTimeout <= 0 {
		resolveTimeout = defaultResolveTimeout
	}

	return &locationParser{
		resolver:       resolver,
		resolveTimeout: resolveTimeout,
		logger:         logger,
	}
}

// Parse converts raw message text into coordinates. A decimal pair is
// validated and returned without any network call. A three-word address is
// resolved remotely under a bounded timeout. Input matching neither shape
// returns (zero, false, nil) so the caller can answer with guidance text
// instead of an error.
func (p *locationParser) Parse(ctx context.Context, raw string) (domain.Coordinates, bool, error) {
	input := strings.TrimSpace(raw)
	input = strings.TrimLeft(input, "/")
	input = strings.TrimSpace(input)

	if m := coordinatePattern.FindStringSubmatch(input); m != nil {
		return p.parseDecimalPair(m)
	}

	if wordsPattern.MatchString(input) {
		return p.resolveWords(ctx, input)
	}

	return domain.Coordinates{}, false, nil
}

func (p *locationParser) parseDecimalPair(m []string) (domain.Coordinates, bool, error) {
	lat, err := strconv.ParseFloat(m[1], 64)

	if err != nil {
		return domain.Coordinates{}, false, &domain.LocationFormatError{Message: "could not read the latitude value"}
	}

	lng, err := strconv.ParseFloat(m[3], 64)

	if err != nil {
		return domain.Coordinates{}, false, &domain.LocationFormatError{Message: "could not read the longitude value"}
	}

	if strings.EqualFold(m[2], "S") {
		lat = -lat
	}

	if strings.EqualFold(m[4], "W") {
		lng = -lng
	}

	coords := domain.Coordinates{Latitude: lat, Longitude: lng}

	if err := coords.Validate(); err != nil {
		p.logger.Debug("coordinate pair out of range", zap.String("input", m[0]))

		return domain.Coordinates{}, false, &domain.LocationFormatError{Message: err.Error()}
	}

	return coords, true, nil
}

func (p *locationParser) resolveWords(ctx context.Context, words string) (domain.Coordinates, bool, error) {
	resolveCtx, cancel := context.WithTimeout(ctx, p.resolveTimeout)
	defer cancel()

	coords, err := p.resolver.Resolve(resolveCtx, words)

	if err != nil {
		p.logger.Info("three word address resolution failed",
			zap.String("words", words),
			zap.Error(err))

		var lookupErr *domain.LocationLookupError

		if errors.As(err, &lookupErr) {
			return domain.Coordinates{}, false, err
		}

		if errors.Is(err, context.DeadlineExceeded) {
			return domain.Coordinates{}, false, &domain.LocationLookupError{
				Message: "the three word address lookup timed out, please try again",
				Cause:   err,
			}
		}

		return domain.Coordinates{}, false, &domain.LocationLookupError{
			Message: "could not look up that three word address",
			Cause:   err,
		}
	}

	// The resolution service answers for any syntactically valid address,
	// so a coordinate outside the valid ranges is a broken upstream
	// response, not a caller mistake.
	if err := coords.Validate(); err != nil {
		return domain.Coordinates{}, false, &domain.LocationLookupError{
			Message: "malformed upstream response",
			Cause:   err,
		}
	}

	return coords, true, nil
}
