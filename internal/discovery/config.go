package discovery

import (
	"time"

	"github.com/threadline-hq/threadline-backend/internal/platform/envutil"
	"github.com/threadline-hq/threadline-backend/internal/platform/logger"
)

// Config is immutable once the engine is constructed. Threshold and shadow
// flags are injected here rather than read from ambient state so concurrent
// runs can never observe a half-updated flag set.
type Config struct {
	DetThreshold float64
	MLThreshold  float64
	MLEnabled    bool
	MLShadowMode bool

	// StrongLinkThreshold splits weak_contextual from strong_contextual on
	// the final score of a created link.
	StrongLinkThreshold float64

	MaxCandidates   int
	CandidateWindow time.Duration

	// LockTTL (15s) is deliberately shorter than TxTimeout (30s), matching
	// the reference deployment. A lease can therefore expire mid-transaction
	// and admit a second worker; the upsert monotonicity rule keeps that race
	// idempotent. Align the two via env if the intent changes.
	LockTTL   time.Duration
	TxMaxWait time.Duration
	TxTimeout time.Duration

	SplitCoherenceThreshold float64
	SplitMinSize            int
	TopicCount              int
}

func DefaultConfig() Config {
	return Config{
		DetThreshold:            0.7,
		MLThreshold:             0.85,
		MLEnabled:               true,
		MLShadowMode:            true,
		StrongLinkThreshold:     0.85,
		MaxCandidates:           25,
		CandidateWindow:         30 * 24 * time.Hour,
		LockTTL:                 15 * time.Second,
		TxMaxWait:               5 * time.Second,
		TxTimeout:               30 * time.Second,
		SplitCoherenceThreshold: 0.4,
		SplitMinSize:            5,
		TopicCount:              5,
	}
}

func LoadConfig(log *logger.Logger) Config {
	cfg := DefaultConfig()
	cfg.DetThreshold = envutil.GetEnvAsFloat("DISCOVERY_DET_THRESHOLD", cfg.DetThreshold, log)
	cfg.MLThreshold = envutil.GetEnvAsFloat("DISCOVERY_ML_THRESHOLD", cfg.MLThreshold, log)
	cfg.MLEnabled = envutil.GetEnvAsBool("DISCOVERY_ML_ENABLED", cfg.MLEnabled, log)
	cfg.MLShadowMode = envutil.GetEnvAsBool("DISCOVERY_ML_SHADOW_MODE", cfg.MLShadowMode, log)
	cfg.MaxCandidates = envutil.GetEnvAsInt("DISCOVERY_MAX_CANDIDATES", cfg.MaxCandidates, log)
	cfg.CandidateWindow = time.Duration(envutil.GetEnvAsInt("DISCOVERY_CANDIDATE_WINDOW_DAYS", 30, log)) * 24 * time.Hour
	cfg.LockTTL = time.Duration(envutil.GetEnvAsInt("DISCOVERY_LOCK_TTL_SECONDS", 15, log)) * time.Second
	cfg.TxMaxWait = time.Duration(envutil.GetEnvAsInt("DISCOVERY_TX_MAX_WAIT_SECONDS", 5, log)) * time.Second
	cfg.TxTimeout = time.Duration(envutil.GetEnvAsInt("DISCOVERY_TX_TIMEOUT_SECONDS", 30, log)) * time.Second
	return cfg
}
