package tracker

const appearanceBufferSize = 10

// appearanceMemory is a track's ring buffer of 128-d L2-normalised Re-ID
// features, matched by the mean of the buffer per spec §4.6.
type appearanceMemory struct {
	features [][]float64
}

func (m *appearanceMemory) add(feature []float64) {
	if feature == nil {
		return
	}
	m.features = append(m.features, feature)
	if len(m.features) > appearanceBufferSize {
		m.features = m.features[len(m.features)-appearanceBufferSize:]
	}
}

func (m *appearanceMemory) mean() []float64 {
	if len(m.features) == 0 {
		return nil
	}
	dim := len(m.features[0])
	out := make([]float64, dim)
	for _, f := range m.features {
		for i := 0; i < dim && i < len(f); i++ {
			out[i] += f[i]
		}
	}
	for i := range out {
		out[i] /= float64(len(m.features))
	}
	return out
}
