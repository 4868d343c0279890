package strategyconfig

// Config는 패턴 분류기 3종의 임계값 전체 설정
// ⭐ SSOT: 분류기 파라미터는 이 구조체에서만
type Config struct {
	Meta             Meta             `yaml:"meta" json:"meta"`
	MA5Support       MA5Support       `yaml:"ma5_support" json:"ma5_support"`
	VolumeBreakout   VolumeBreakout   `yaml:"volume_breakout" json:"volume_breakout"`
	BreakoutPullback BreakoutPullback `yaml:"breakout_pullback" json:"breakout_pullback"`
}

// Meta 메타 정보
type Meta struct {
	Name    string `yaml:"name" json:"name"`
	Version string `yaml:"version" json:"version"`
}

// MA5Support 중선(MA5 지지) 전략
type MA5Support struct {
	AccumulationRatio  float64 `yaml:"accumulation_ratio" json:"accumulation_ratio"`     // red vol > green vol * ratio
	ShakeSpikeMultiple float64 `yaml:"shake_spike_multiple" json:"shake_spike_multiple"` // vs avg volume of [-60:-10]
	BreakoutPct        float64 `yaml:"breakout_pct" json:"breakout_pct"`
	MinBreakoutDays    int     `yaml:"min_breakout_days" json:"min_breakout_days"`
	MA5Tolerance       float64 `yaml:"ma5_tolerance" json:"ma5_tolerance"` // low <= MA5 * tolerance
}

// VolumeBreakout 거래량 돌파 전략 (정리 구간 없음)
type VolumeBreakout struct {
	AccumulationRatio float64 `yaml:"accumulation_ratio" json:"accumulation_ratio"`
	BreakoutPct       float64 `yaml:"breakout_pct" json:"breakout_pct"`
	MinBreakoutDays   int     `yaml:"min_breakout_days" json:"min_breakout_days"`
	MA5Tolerance      float64 `yaml:"ma5_tolerance" json:"ma5_tolerance"`
	KeyLookback       int     `yaml:"key_lookback" json:"key_lookback"`     // scan [-lookback:-1]
	KeyScanOrder      string  `yaml:"key_scan_order" json:"key_scan_order"` // earliest | latest
}

// BreakoutPullback 돌파 후 눌림 전략 (v3.2)
type BreakoutPullback struct {
	BearishLookback   int     `yaml:"bearish_lookback" json:"bearish_lookback"`
	BearishRunLimit   int     `yaml:"bearish_run_limit" json:"bearish_run_limit"`
	AccumulationRatio float64 `yaml:"accumulation_ratio" json:"accumulation_ratio"`

	ExpansionDays    int     `yaml:"expansion_days" json:"expansion_days"`
	MinExpansionDays int     `yaml:"min_expansion_days" json:"min_expansion_days"`
	MaxVolumeRatio   float64 `yaml:"max_volume_ratio" json:"max_volume_ratio"`

	CrashScanStart   int     `yaml:"crash_scan_start" json:"crash_scan_start"`
	CrashScanEnd     int     `yaml:"crash_scan_end" json:"crash_scan_end"` // exclusive
	RisingGainPct    float64 `yaml:"rising_gain_pct" json:"rising_gain_pct"`
	CrashVolumeRatio float64 `yaml:"crash_volume_ratio" json:"crash_volume_ratio"`
	CrashDropMin     float64 `yaml:"crash_drop_min" json:"crash_drop_min"` // exclusive, e.g. -7
	CrashDropMax     float64 `yaml:"crash_drop_max" json:"crash_drop_max"` // exclusive, e.g. -3
	RecoveryMultiple float64 `yaml:"recovery_multiple" json:"recovery_multiple"`
	RecoveryDays     int     `yaml:"recovery_days" json:"recovery_days"`
	KeyLookback      int     `yaml:"key_lookback" json:"key_lookback"`
}

const (
	ScanEarliest = "earliest"
	ScanLatest   = "latest"
)

// Default returns the thresholds the strategies were tuned with
func Default() *Config {
	return &Config{
		Meta: Meta{Name: "default", Version: "v3.2"},
		MA5Support: MA5Support{
			AccumulationRatio:  1.5,
			ShakeSpikeMultiple: 2.5,
			BreakoutPct:        4.0,
			MinBreakoutDays:    2,
			MA5Tolerance:       1.015,
		},
		VolumeBreakout: VolumeBreakout{
			AccumulationRatio: 1.5,
			BreakoutPct:       4.0,
			MinBreakoutDays:   1,
			MA5Tolerance:      1.015,
			KeyLookback:       30,
			KeyScanOrder:      ScanEarliest,
		},
		BreakoutPullback: BreakoutPullback{
			BearishLookback:   20,
			BearishRunLimit:   4,
			AccumulationRatio: 1.3,
			ExpansionDays:     5,
			MinExpansionDays:  3,
			MaxVolumeRatio:    3.0,
			CrashScanStart:    -20,
			CrashScanEnd:      -3,
			RisingGainPct:     3.0,
			CrashVolumeRatio:  0.8,
			CrashDropMin:      -7,
			CrashDropMax:      -3,
			RecoveryMultiple:  1.02,
			RecoveryDays:      3,
			KeyLookback:       5,
		},
	}
}
