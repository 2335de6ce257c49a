package domain

// Action is the discrete decision produced by the signal generator.
type Action string

const (
	ActionLong           Action = "LONG"
	ActionShort          Action = "SHORT"
	ActionWait           Action = "WAIT"
	ActionWaitCompressed Action = "WAIT_COMPRESSED"
	ActionNoSignal       Action = "NO_SIGNAL"
)

// IsTradeable reports whether the action can open a position.
func (a Action) IsTradeable() bool {
	return a == ActionLong || a == ActionShort
}

// Bias represents the directional lean inferred from moving-average ordering.
type Bias string

const (
	BiasBullish Bias = "BULLISH"
	BiasBearish Bias = "BEARISH"
	BiasNeutral Bias = "NEUTRAL"
)

// TrendClass buckets ADX readings into strength classes.
type TrendClass string

const (
	TrendWeak       TrendClass = "DEBIL"
	TrendModerate   TrendClass = "MODERADA"
	TrendStrong     TrendClass = "FUERTE"
	TrendVeryStrong TrendClass = "MUY_FUERTE"
)

// Confidence is a coarse label derived from strength and confluence.
type Confidence string

const (
	ConfidenceHigh   Confidence = "HIGH"
	ConfidenceMedium Confidence = "MEDIUM"
	ConfidenceLow    Confidence = "LOW"
)

// EntryTiming tells a consumer whether to act immediately or wait for confirmation.
type EntryTiming string

const (
	EntryImmediate      EntryTiming = "IMMEDIATE"
	EntryOnConfirmation EntryTiming = "ON_CONFIRMATION"
)

// ExitReason indicates why a simulated trade was closed.
// The string values are part of the export format.
type ExitReason string

const (
	ExitTarget1      ExitReason = "TARGET_1"
	ExitTarget2      ExitReason = "TARGET_2"
	ExitStopLoss     ExitReason = "STOP_LOSS"
	ExitInvalidation ExitReason = "INVALIDATION"
	ExitTimeLimit    ExitReason = "TIME_LIMIT"
	ExitEndOfTest    ExitReason = "END_OF_TEST"
)

// ExitReasons lists every valid exit reason in precedence order.
var ExitReasons = []ExitReason{
	ExitStopLoss,
	ExitTarget2,
	ExitTarget1,
	ExitInvalidation,
	ExitTimeLimit,
	ExitEndOfTest,
}

// Valid reports whether r is one of the enumerated exit reasons.
func (r ExitReason) Valid() bool {
	for _, known := range ExitReasons {
		if r == known {
			return true
		}
	}
	return false
}
