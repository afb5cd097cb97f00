package monitor

import (
	"math"
	"sort"
	"time"
)

// Metrics is a dumb data point computed from a history of Results.
type Metrics struct {
	PacketsSent int           `json:"packetsSent"` // number of packets sent
	PacketsLost int           `json:"packetsLost"` // number of packets lost
	Best        time.Duration `json:"best"`        // best rtt
	Worst       time.Duration `json:"worst"`       // worst rtt
	Median      time.Duration `json:"median"`      // median rtt
	Mean        time.Duration `json:"mean"`        // mean rtt
	StdDev      time.Duration `json:"stddev"`      // std deviation
}

// Loss returns the fraction of lost packets.
func (m *Metrics) Loss() float64 {
	if m == nil || m.PacketsSent == 0 {
		return 0
	}
	return float64(m.PacketsLost) / float64(m.PacketsSent)
}

func compute(results []Result) *Metrics {
	numFailure := 0
	numTotal := len(results)

	if numTotal == 0 {
		return nil
	}

	data := make([]float64, 0, numTotal)
	var best, worst, stddev, median time.Duration
	var total, sumSquares, mean float64
	var extremeFound bool

	for i := range results {
		curr := &results[i]
		if !curr.Success {
			numFailure++
			continue
		}

		data = append(data, float64(curr.Latency))

		if !extremeFound || curr.Latency < best {
			best = curr.Latency
		}
		if !extremeFound || curr.Latency > worst {
			worst = curr.Latency
		}

		extremeFound = true
		total += float64(curr.Latency)
	}

	if numFailure < numTotal {
		size := numTotal - numFailure
		mean = total / float64(size)
		for _, rtt := range data {
			sumSquares += math.Pow(rtt-mean, 2)
		}
		stddev = time.Duration(math.Sqrt(sumSquares / float64(size)))

		sort.Float64s(data)
		if size%2 == 0 {
			median = time.Duration((data[size/2-1] + data[size/2]) / 2)
		} else {
			median = time.Duration(data[size/2])
		}
	}

	return &Metrics{
		PacketsSent: numTotal,
		PacketsLost: numFailure,
		Best:        best,
		Worst:       worst,
		Median:      median,
		Mean:        time.Duration(mean),
		StdDev:      stddev,
	}
}
