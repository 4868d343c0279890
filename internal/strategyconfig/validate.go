package strategyconfig

import (
	"errors"
	"fmt"
)

// minHistory mirrors the classifiers' 60-bar floor
const minHistory = 60

// Validate checks thresholds and window offsets
func Validate(cfg *Config) error {
	var errs []error

	m := cfg.MA5Support
	if m.AccumulationRatio <= 0 {
		errs = append(errs, fmt.Errorf("ma5_support.accumulation_ratio must be > 0"))
	}
	if m.ShakeSpikeMultiple <= 0 {
		errs = append(errs, fmt.Errorf("ma5_support.shake_spike_multiple must be > 0"))
	}
	if m.MinBreakoutDays < 1 || m.MinBreakoutDays > 10 {
		errs = append(errs, fmt.Errorf("ma5_support.min_breakout_days must be within 1..10"))
	}
	if m.MA5Tolerance < 1 {
		errs = append(errs, fmt.Errorf("ma5_support.ma5_tolerance must be >= 1"))
	}

	v := cfg.VolumeBreakout
	if v.AccumulationRatio <= 0 {
		errs = append(errs, fmt.Errorf("volume_breakout.accumulation_ratio must be > 0"))
	}
	if v.MinBreakoutDays < 1 || v.MinBreakoutDays > 10 {
		errs = append(errs, fmt.Errorf("volume_breakout.min_breakout_days must be within 1..10"))
	}
	if v.MA5Tolerance < 1 {
		errs = append(errs, fmt.Errorf("volume_breakout.ma5_tolerance must be >= 1"))
	}
	if v.KeyLookback < 2 || v.KeyLookback > minHistory-1 {
		errs = append(errs, fmt.Errorf("volume_breakout.key_lookback must be within 2..%d", minHistory-1))
	}
	if v.KeyScanOrder != ScanEarliest && v.KeyScanOrder != ScanLatest {
		errs = append(errs, fmt.Errorf("volume_breakout.key_scan_order must be %q or %q", ScanEarliest, ScanLatest))
	}

	b := cfg.BreakoutPullback
	if b.BearishLookback < 1 || b.BearishLookback > minHistory {
		errs = append(errs, fmt.Errorf("breakout_pullback.bearish_lookback must be within 1..%d", minHistory))
	}
	if b.BearishRunLimit < 1 {
		errs = append(errs, fmt.Errorf("breakout_pullback.bearish_run_limit must be >= 1"))
	}
	if b.AccumulationRatio <= 0 {
		errs = append(errs, fmt.Errorf("breakout_pullback.accumulation_ratio must be > 0"))
	}
	if b.ExpansionDays < 1 || b.ExpansionDays > minHistory-19 {
		errs = append(errs, fmt.Errorf("breakout_pullback.expansion_days must be within 1..%d", minHistory-19))
	}
	if b.MinExpansionDays < 0 || b.MinExpansionDays > b.ExpansionDays {
		errs = append(errs, fmt.Errorf("breakout_pullback.min_expansion_days must be within 0..expansion_days"))
	}
	// crash day sits at offset start+3 and must exist inside the series
	if b.CrashScanEnd > -3 {
		errs = append(errs, fmt.Errorf("breakout_pullback.crash_scan_end must be <= -3"))
	}
	if b.CrashScanStart >= b.CrashScanEnd || b.CrashScanStart < -minHistory {
		errs = append(errs, fmt.Errorf("breakout_pullback.crash_scan_start must be within -%d..crash_scan_end-1", minHistory))
	}
	if b.CrashDropMin >= b.CrashDropMax {
		errs = append(errs, fmt.Errorf("breakout_pullback.crash_drop_min must be < crash_drop_max"))
	}
	if b.RecoveryMultiple <= 0 || b.RecoveryDays < 1 {
		errs = append(errs, fmt.Errorf("breakout_pullback.recovery_multiple and recovery_days must be positive"))
	}
	if b.KeyLookback < 1 || b.KeyLookback > minHistory {
		errs = append(errs, fmt.Errorf("breakout_pullback.key_lookback must be within 1..%d", minHistory))
	}

	return errors.Join(errs...)
}
