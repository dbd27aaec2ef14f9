package audio

// span describes a stretch of a synthetic test track.
type span struct {
	ms        int
	amplitude float32
}

// buildTrack renders spans into a mono track. Non-zero spans are a square wave of the
// given amplitude, so their RMS equals the amplitude exactly.
func buildTrack(sampleRate int, spans ...span) *Track {
	var samples []float32
	for _, s := range spans {
		n := s.ms * sampleRate / 1000
		for i := 0; i < n; i++ {
			v := s.amplitude
			if i%2 == 1 {
				v = -v
			}
			samples = append(samples, v)
		}
	}
	return NewTrack(sampleRate, 1, samples)
}

func tone(ms int) span    { return span{ms: ms, amplitude: 0.5} }
func silence(ms int) span { return span{ms: ms} }
