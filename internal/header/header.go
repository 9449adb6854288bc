// Package header maps the many spellings firmware versions have used for
// their blackbox header keys onto one canonical record.
package header

import (
	"fmt"
	"maps"
	"strconv"
	"strings"
)

// Canonical keys.
const (
	TempFile              = "tempFile"
	CraftName             = "craftName"
	FirmwareType          = "fwType"
	Version               = "version"
	Date                  = "date"
	RCRate                = "rcRate"
	RCExpo                = "rcExpo"
	Rates                 = "rates"
	RollPID               = "rollPID"
	PitchPID              = "pitchPID"
	YawPID                = "yawPID"
	DeadBand              = "deadBand"
	YawDeadBand           = "yawDeadBand"
	LogNum                = "logNum"
	TPABreakpoint         = "tpa_breakpoint"
	MinThrottle           = "minThrottle"
	MaxThrottle           = "maxThrottle"
	TPAPercent            = "tpa_percent"
	FeedforwardWeight     = "feedforward_weight"
	VbatComp              = "vbatComp"
	GyroLPF               = "gyro_lpf"
	GyroLowpassType       = "gyro_lowpass_type"
	GyroLowpassHz         = "gyro_lowpass_hz"
	GyroNotchHz           = "gyro_notch_hz"
	GyroNotchCutoff       = "gyro_notch_cutoff"
	DtermFilterType       = "dterm_filter_type"
	DtermLPFHz            = "dterm_lpf_hz"
	YawLPFHz              = "yaw_lpf_hz"
	DtermNotchHz          = "dterm_notch_hz"
	DtermNotchCutoff      = "dterm_notch_cutoff"
	DebugMode             = "debug_mode"
	DMin                  = "d_min"
	DMinGain              = "d_min_gain"
	DMinAdvance           = "d_min_advance"
	FeedforwardTransition = "feedforward_transition"
	DynThrottle           = "dynThrottle"
)

type field struct {
	key   string
	value string
}

// defaults lists every canonical key with the value used when a session
// does not provide it.
var defaults = []field{
	{TempFile, ""},
	{CraftName, ""},
	{FirmwareType, ""},
	{Version, ""},
	{Date, ""},
	{RCRate, ""},
	{RCExpo, ""},
	{Rates, ""},
	{RollPID, ""},
	{PitchPID, ""},
	{YawPID, ""},
	{DeadBand, ""},
	{YawDeadBand, ""},
	{LogNum, ""},
	{TPABreakpoint, "0"},
	{MinThrottle, ""},
	{MaxThrottle, ""},
	{TPAPercent, ""},
	{FeedforwardWeight, ""},
	{VbatComp, ""},
	{GyroLPF, ""},
	{GyroLowpassType, ""},
	{GyroLowpassHz, ""},
	{GyroNotchHz, ""},
	{GyroNotchCutoff, ""},
	{DtermFilterType, ""},
	{DtermLPFHz, ""},
	{YawLPFHz, ""},
	{DtermNotchHz, ""},
	{DtermNotchCutoff, ""},
	{DebugMode, ""},
	{DMin, ""},
	{DMinGain, ""},
	{DMinAdvance, ""},
	{FeedforwardTransition, ""},
	{DynThrottle, ""},
}

// aliases maps raw header names to canonical keys. It is applied in order
// and a later entry overwrites an earlier one for the same canonical key,
// so "rc_rates" beats "rc_rate" beats "rcRate". Canonical spellings that
// never appear in logs are listed too so a normalized record normalizes to
// itself.
var aliases = []field{
	{"dynThrPID", DynThrottle},
	{DynThrottle, DynThrottle},
	{"Craft name", CraftName},
	{CraftName, CraftName},
	{"Firmware type", FirmwareType},
	{FirmwareType, FirmwareType},
	{"Firmware revision", Version},
	{Version, Version},
	{"Firmware date", Date},
	{Date, Date},
	{"rcRate", RCRate}, {"rc_rate", RCRate}, {"rc_rates", RCRate},
	{"rcExpo", RCExpo}, {"rc_expo", RCExpo},
	{"rates", Rates},
	{"rollPID", RollPID},
	{"pitchPID", PitchPID},
	{"yawPID", YawPID},
	{"deadband", DeadBand},
	{DeadBand, DeadBand},
	{"yaw_deadband", YawDeadBand},
	{YawDeadBand, YawDeadBand},
	{"tpa_breakpoint", TPABreakpoint},
	{"minthrottle", MinThrottle},
	{MinThrottle, MinThrottle},
	{"maxthrottle", MaxThrottle},
	{MaxThrottle, MaxThrottle},
	{"tpa_percent", TPAPercent}, {"tpa_rate", TPAPercent},
	{"feedforward_weight", FeedforwardWeight},
	{"vbat_pid_compensation", VbatComp}, {"vbat_pid_gain", VbatComp},
	{VbatComp, VbatComp},
	{"gyro_lpf", GyroLPF}, {"gyro_hardware_lpf", GyroLPF},
	{"gyro_lowpass_type", GyroLowpassType},
	{"gyro_lowpass_hz", GyroLowpassHz}, {"gyro_lpf_hz", GyroLowpassHz},
	{"gyro_notch_hz", GyroNotchHz},
	{"gyro_notch_cutoff", GyroNotchCutoff},
	{"dterm_filter_type", DtermFilterType},
	{"dterm_lpf_hz", DtermLPFHz}, {"dterm_lowpass_hz", DtermLPFHz},
	{"yaw_lpf_hz", YawLPFHz}, {"yaw_lowpass_hz", YawLPFHz},
	{"dterm_notch_hz", DtermNotchHz},
	{"dterm_notch_cutoff", DtermNotchCutoff},
	{"debug_mode", DebugMode},
	{"d_min", DMin},
	{"d_min_gain", DMinGain},
	{"d_min_advance", DMinAdvance},
	{"feedforward_transition", FeedforwardTransition},
	{TempFile, TempFile},
	{LogNum, LogNum},
}

// Record is a normalized header.
type Record map[string]string

// Normalize builds a record from raw decoder headers. Unknown raw keys are
// dropped and absent canonical keys take their default.
func Normalize(raw map[string]string) Record {
	r := make(Record, len(defaults))
	for _, d := range defaults {
		r[d.key] = d.value
	}

	for _, a := range aliases {
		if v, ok := raw[a.key]; ok {
			r[a.value] = v
		}
	}

	return r
}

// WithSession returns a copy of r carrying the scratch file and ordinal of
// the session it was read from.
func (r Record) WithSession(tempFile string, logNum int) Record {
	out := maps.Clone(r)
	out[TempFile] = tempFile
	out[LogNum] = strconv.Itoa(logNum)
	return out
}

func (r Record) Get(key string) string {
	return r[key]
}

// Float parses the value of key as a number.
func (r Record) Float(key string) (float64, error) {
	v := strings.TrimSpace(r[key])
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("header %s: %w", key, err)
	}
	return f, nil
}

// FirstFloat parses the first element of a comma separated value such as
// a "P,I,D" triplet.
func (r Record) FirstFloat(key string) (float64, error) {
	first, _, _ := strings.Cut(r[key], ",")
	f, err := strconv.ParseFloat(strings.TrimSpace(first), 64)
	if err != nil {
		return 0, fmt.Errorf("header %s: %w", key, err)
	}
	return f, nil
}
