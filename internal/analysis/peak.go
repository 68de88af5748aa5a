package analysis

// PeakDetector flags onsets from the energy of a frequency band, using an
// adaptive cutoff that jumps above each detected peak and decays back toward
// the threshold.
type PeakDetector struct {
	Low, High     float64
	Threshold     float64
	FramesPerPeak int
	DecayRate     float64
	CutoffMult    float64

	cutoff     float64
	prevEnergy float64
	sinceLast  int
	energy     float64
	detected   bool
}

// NewPeakDetector scans 40..20000 Hz with the given threshold in [0,1].
func NewPeakDetector(threshold float64) *PeakDetector {
	return &PeakDetector{
		Low:           40,
		High:          20000,
		Threshold:     threshold,
		FramesPerPeak: 20,
		DecayRate:     0.95,
		CutoffMult:    1.5,
	}
}

// Update consumes one frame and reports whether it holds a peak.
func (d *PeakDetector) Update(f Frame) bool {
	nrg := f.Energy(d.Low, d.High) / 255
	d.energy = nrg

	if nrg > d.cutoff && nrg > d.Threshold && nrg-d.prevEnergy > 0 {
		d.detected = true
		d.cutoff = nrg * d.CutoffMult
		d.sinceLast = 0
	} else {
		d.detected = false
		if d.sinceLast <= d.FramesPerPeak {
			d.sinceLast++
		} else {
			d.cutoff *= d.DecayRate
			if d.cutoff < d.Threshold {
				d.cutoff = d.Threshold
			}
		}
	}

	d.prevEnergy = nrg
	return d.detected
}

func (d *PeakDetector) Detected() bool  { return d.detected }
func (d *PeakDetector) Energy() float64 { return d.energy }
func (d *PeakDetector) Cutoff() float64 { return d.cutoff }
