package analysis

// Options holds the numerical parameters of the analysis. Durations are in
// seconds, frequencies in Hz and bin widths in bins.
type Options struct {
	// Step response windows.
	ResponseFrame  float64 `yaml:"responseFrame" json:"responseFrame"`
	ResponseLength float64 `yaml:"responseLength" json:"responseLength"`
	InputCutoff    float64 `yaml:"inputCutoff" json:"inputCutoff"`
	Superposition  int     `yaml:"superposition" json:"superposition"`

	// Input magnitude classification, in deg/s of the windowed input.
	HighThreshold  float64 `yaml:"highThreshold" json:"highThreshold"`
	LowThreshold   float64 `yaml:"lowThreshold" json:"lowThreshold"`
	MinHighWindows int     `yaml:"minHighWindows" json:"minHighWindows"`

	// Response density field.
	ResponseMin   float64 `yaml:"responseMin" json:"responseMin"`
	ResponseMax   float64 `yaml:"responseMax" json:"responseMax"`
	ResponseBins  int     `yaml:"responseBins" json:"responseBins"`
	ResponseSigma float64 `yaml:"responseSigma" json:"responseSigma"`

	// Noise maps.
	NoiseFrame         float64 `yaml:"noiseFrame" json:"noiseFrame"`
	NoiseSuperposition int     `yaml:"noiseSuperposition" json:"noiseSuperposition"`
	// LandingCut is the trailing time dropped from the noise maps. Zero
	// means the default; a negative value keeps the whole trace.
	LandingCut         float64 `yaml:"landingCut" json:"landingCut"`
	ThrottleBins       int     `yaml:"throttleBins" json:"throttleBins"`
	ThrottleSigma      float64 `yaml:"throttleSigma" json:"throttleSigma"`
	FreqDecimation     int     `yaml:"freqDecimation" json:"freqDecimation"`
	NoiseFloorFreq     float64 `yaml:"noiseFloorFreq" json:"noiseFloorFreq"`

	// Throttle usage histogram.
	UsageBins int `yaml:"usageBins" json:"usageBins"`
}

// DefaultOptions returns the parameters the analysis is tuned for.
func DefaultOptions() Options {
	return Options{
		ResponseFrame:  1.0,
		ResponseLength: 0.5,
		InputCutoff:    25,
		Superposition:  16,

		HighThreshold:  500,
		LowThreshold:   20,
		MinHighWindows: 10,

		ResponseMin:   -1.5,
		ResponseMax:   3.5,
		ResponseBins:  1000,
		ResponseSigma: 7,

		NoiseFrame:         0.3,
		NoiseSuperposition: 16,
		LandingCut:         2,
		ThrottleBins:       101,
		ThrottleSigma:      3,
		FreqDecimation:     4,
		NoiseFloorFreq:     100,

		UsageBins: 100,
	}
}

// withDefaults fills zero fields from DefaultOptions.
func (o Options) withDefaults() Options {
	d := DefaultOptions()

	setFloat := func(v *float64, def float64) {
		if *v == 0 {
			*v = def
		}
	}
	setInt := func(v *int, def int) {
		if *v <= 0 {
			*v = def
		}
	}

	setFloat(&o.ResponseFrame, d.ResponseFrame)
	setFloat(&o.ResponseLength, d.ResponseLength)
	setFloat(&o.InputCutoff, d.InputCutoff)
	setInt(&o.Superposition, d.Superposition)
	setFloat(&o.HighThreshold, d.HighThreshold)
	setFloat(&o.LowThreshold, d.LowThreshold)
	setInt(&o.MinHighWindows, d.MinHighWindows)
	setInt(&o.ResponseBins, d.ResponseBins)
	setFloat(&o.ResponseSigma, d.ResponseSigma)
	setFloat(&o.NoiseFrame, d.NoiseFrame)
	setInt(&o.NoiseSuperposition, d.NoiseSuperposition)
	setFloat(&o.LandingCut, d.LandingCut)
	setInt(&o.ThrottleBins, d.ThrottleBins)
	setFloat(&o.ThrottleSigma, d.ThrottleSigma)
	setInt(&o.FreqDecimation, d.FreqDecimation)
	setFloat(&o.NoiseFloorFreq, d.NoiseFloorFreq)
	setInt(&o.UsageBins, d.UsageBins)

	if o.ResponseMin == 0 && o.ResponseMax == 0 {
		o.ResponseMin, o.ResponseMax = d.ResponseMin, d.ResponseMax
	}

	return o
}
