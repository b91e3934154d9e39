package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/textcast/textcast/internal/core/ports"
)

// GuidanceReply is the answer to any message that is not a location at all.
const GuidanceReply = `Send a location to get a forecast: coordinates like "51.5074,-0.1278" or a three word address like ///index.home.raft`

// defaultReplyTTL bounds how long a formatted reply is reused for the same
// rounded coordinate. Short enough that conditions stay fresh; this is reply
// caching, not forecast history.
const defaultReplyTTL = 5 * time.Minute

type messageService struct {
	parser           ports.LocationParser
	manager          ports.ForecastManager
	cache            ports.CacheService
	replyTTL         time.Duration
	defaultPreferred string
	logger           *zap.Logger
}

// NewMessageService wires the parser, the provider manager, and the reply
// cache into the core entry point. defaultPreferred names the provider tried
// first when the inbound request carries no preference; it may be empty.
func NewMessageService(
	parser ports.LocationParser,
	manager ports.ForecastManager,
	cache ports.CacheService,
	replyTTL time.Duration,
	defaultPreferred string,
	logger *zap.Logger,
) ports.MessageService {
	if replyTTL <= 0 {
		replyTTL = defaultReplyTTL
	}

	return &messageService{
		parser:           parser,
		manager:          manager,
		cache:            cache,
		replyTTL:         replyTTL,
		defaultPreferred: defaultPreferred,
		logger:           logger,
	}
}

// HandleMessage resolves the message text to coordinates and answers with a
// formatted forecast. Text matching no location shape gets the guidance reply
// as a success. Parser and manager errors propagate to the caller, which maps
// them to user-facing strings.
func (s *messageService) HandleMessage(ctx context.Context, sender, text, preferred string) (string, error) {
	coords, ok, err := s.parser.Parse(ctx, text)

	if err != nil {
		s.logger.Info("location parsing failed",
			zap.String("sender", sender),
			zap.Error(err))

		return "", err
	}

	if !ok {
		s.logger.Debug("message is not a location", zap.String("sender", sender))

		return GuidanceReply, nil
	}

	if preferred == "" {
		preferred = s.defaultPreferred
	}

	key := replyCacheKey(preferred, coords.Latitude, coords.Longitude)

	if cached, err := s.cache.Get(ctx, key); err == nil {
		s.logger.Debug("reply served from cache", zap.String("key", key))

		return string(cached), nil
	}

	reply, err := s.manager.GetForecast(ctx, coords, preferred)

	if err != nil {
		return "", err
	}

	if err := s.cache.Set(ctx, key, []byte(reply), s.replyTTL); err != nil {
		s.logger.Warn("failed to cache reply", zap.String("key", key), zap.Error(err))
	}

	s.logger.Info("forecast reply produced",
		zap.Float64("latitude", coords.Latitude),
		zap.Float64("longitude", coords.Longitude),
		zap.String("provider", s.manager.ActiveProvider()))

	return reply, nil
}

// replyCacheKey quantizes coordinates to 0.01 degrees (roughly a kilometer)
// so nearby requests share a cached reply.
func replyCacheKey(preferred string, lat, lng float64) string {
	return fmt.Sprintf("reply:%s:%.2f,%.2f", preferred, lat, lng)
}
