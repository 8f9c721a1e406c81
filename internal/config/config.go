// Package config defines the in-memory configuration surface enumerated
// in the specification (§6) as plain structs with validator tags,
// checked once at CoreContext construction. Loading from a file or the
// environment is an external collaborator's concern and out of core
// scope; only the surface and its validation live here, mirroring how
// internal/config/manager.go in the reference corpus centralizes
// validated config structs behind a single entry point.
package config

import (
	"time"

	"github.com/go-playground/validator/v10"
)

// Detection is the detection-side configuration surface.
type Detection struct {
	EnableDetection       bool    `validate:"-"`
	DetectionThreshold    float64 `validate:"gte=0,lte=1"`
	MempoolAnalysisDepth  int     `validate:"gt=0"`
	MinProfitUSD          float64 `validate:"gte=0"`
	MinConfidence         float64 `validate:"gte=0,lte=1"`
	MaxGasCostRatio       float64 `validate:"gte=0"`
	SandwichWindowBlocks  int     `validate:"gte=0"`
	ArbitrageWindowBlocks int     `validate:"gte=0"`

	// ProtectionThreatThresholdUSD is the §4.4.8 profitability override:
	// an opportunity whose estimated sandwich loss to the victim meets
	// this bar is retained even when it fails the net-profit test, since
	// the point of surfacing it is protection, not execution.
	ProtectionThreatThresholdUSD float64 `validate:"gte=0"`
}

// Relays holds the two named relay configurations the spec calls out
// explicitly (flashbots, jito); other relays are registered dynamically
// through internal/relay and are not part of the static surface.
type Relays struct {
	Flashbots []string `validate:"-"`
	Jito      []string `validate:"-"`
}

// Protection is the protection-side configuration surface.
type Protection struct {
	EnableProtection      bool     `validate:"-"`
	DefaultProtectionLevel string  `validate:"oneof=None Basic Standard High Maximum"`
	PreferredStrategies    []string `validate:"-"`
	MaxProtectionCostUSD   float64 `validate:"gte=0"`
	PrivateMempoolURLs     []string `validate:"-"`
	Relays                 Relays
}

// RiskLimits is the risk-limit configuration surface. Symbols carried
// as a slice here (rather than riskmgr.Limits' map) so this package has
// no dependency on riskmgr; corectx translates between the two at
// wiring time.
type RiskLimits struct {
	MaxPortfolioValue   float64  `validate:"gte=0"`
	MaxDailyLoss        float64  `validate:"gte=0"`
	MaxDrawdownPct      float64  `validate:"gte=0,lte=1"`
	MaxPositionSizeUSD  float64  `validate:"gte=0"`
	MaxPositionSizePct  float64  `validate:"gte=0,lte=1"`
	MaxPortfolioVaR     float64  `validate:"gte=0"`
	MaxLeverageRatio    float64  `validate:"gte=0"`
	MaxConcentrationPct float64  `validate:"gte=0,lte=1"`
	MaxSingleTradeUSD   float64  `validate:"gte=0"`
	BlacklistedSymbols  []string `validate:"-"`
}

// Concurrency is the worker/latency budget configuration surface.
type Concurrency struct {
	WorkerThreadCount    int           `validate:"gt=0"`
	MaxConcurrentAnalysis int          `validate:"gt=0"`
	MaxProtectionLatency time.Duration `validate:"gt=0"`
	MonitoringFrequency  time.Duration `validate:"gt=0"`
}

// Stealth is the obfuscation configuration surface.
type Stealth struct {
	StealthEnabled             bool          `validate:"-"`
	TimingRandomizationEnabled bool          `validate:"-"`
	MaxTimingDelay             time.Duration `validate:"gte=0"`
}

// Config is the complete in-memory configuration surface.
type Config struct {
	Detection   Detection
	Protection  Protection
	RiskLimits  RiskLimits
	Concurrency Concurrency
	Stealth     Stealth
}

// Default returns the reference corpus's defaults (mempool_analysis_depth
// = 100, worker_thread_count = 4, monitoring_frequency = 1s, etc.),
// assembled from the spec's named defaults and comprehensive_risk_manager's
// default risk limits.
func Default() Config {
	return Config{
		Detection: Detection{
			EnableDetection:       true,
			DetectionThreshold:    0.5,
			MempoolAnalysisDepth:  100,
			MinProfitUSD:          10,
			MinConfidence:         0.5,
			MaxGasCostRatio:       0.3,
			SandwichWindowBlocks:  2,
			ArbitrageWindowBlocks: 3,
			ProtectionThreatThresholdUSD: 1_000_000,
		},
		Protection: Protection{
			EnableProtection:       true,
			DefaultProtectionLevel: "Standard",
			PreferredStrategies:    []string{"PrivateMempool", "BundleSubmission"},
			MaxProtectionCostUSD:   50,
			Relays: Relays{
				Flashbots: []string{"https://relay.flashbots.net"},
				Jito:      []string{"https://mainnet.block-engine.jito.wtf"},
			},
		},
		RiskLimits: RiskLimits{
			MaxPortfolioValue:   10_000_000,
			MaxDailyLoss:        100_000,
			MaxDrawdownPct:      0.20,
			MaxPositionSizeUSD:  500_000,
			MaxPositionSizePct:  0.10,
			MaxPortfolioVaR:     50_000,
			MaxLeverageRatio:    3.0,
			MaxConcentrationPct: 0.25,
			MaxSingleTradeUSD:   100_000,
		},
		Concurrency: Concurrency{
			WorkerThreadCount:     4,
			MaxConcurrentAnalysis: 50,
			MaxProtectionLatency:  100 * time.Millisecond,
			MonitoringFrequency:   time.Second,
		},
		Stealth: Stealth{
			StealthEnabled:             false,
			TimingRandomizationEnabled: true,
			MaxTimingDelay:             2 * time.Second,
		},
	}
}

var validate = validator.New()

// Validate runs struct-tag validation over each section of the surface,
// returning the first section's error. No cross-field constraints are
// checked beyond what the per-field tags express.
func Validate(c Config) error {
	if err := validate.Struct(c.Detection); err != nil {
		return err
	}
	if err := validate.Struct(c.Protection); err != nil {
		return err
	}
	if err := validate.Struct(c.RiskLimits); err != nil {
		return err
	}
	if err := validate.Struct(c.Concurrency); err != nil {
		return err
	}
	if err := validate.Struct(c.Stealth); err != nil {
		return err
	}
	return nil
}
