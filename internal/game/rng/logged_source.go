package rng

import "go.uber.org/zap"

// LoggedSource wraps a Source and logs every draw at debug level with the
// seed and draw index, so a recorded match can be audited draw by draw.
type LoggedSource struct {
	src    Source
	logger *zap.Logger
}

// NewLoggedSource creates a LoggedSource around src.
//
// Precondition: src and logger must be non-nil.
func NewLoggedSource(src Source, logger *zap.Logger) *LoggedSource {
	return &LoggedSource{src: src, logger: logger}
}

// Seed reseeds the wrapped source and logs the new seed.
func (l *LoggedSource) Seed(v uint64) {
	l.src.Seed(v)
	l.logger.Debug("rng seeded", zap.Uint64("seed", v))
}

// Draw draws from the wrapped source and logs the value.
func (l *LoggedSource) Draw() float64 {
	v := l.src.Draw()
	l.logger.Debug("rng draw",
		zap.Uint64("seed", l.src.CurrentSeed()),
		zap.Uint64("index", l.src.Draws()),
		zap.Float64("value", v),
	)
	return v
}

func (l *LoggedSource) CurrentSeed() uint64 { return l.src.CurrentSeed() }

func (l *LoggedSource) Draws() uint64 { return l.src.Draws() }
