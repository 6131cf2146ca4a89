package match

import "github.com/crowdwisdom/marketfuse/internal/domain"

// Summarize finalizes a group: it picks the representative title and
// computes the group confidence.
//
// The title comes from the centroid member, the one whose summed similarity
// to every other member is highest; ties break to the shortest title, then
// lexicographic order. Confidence is the mean pairwise similarity over all
// member pairs, clamped to [0,1]. A singleton has no pairs, so its
// confidence is the configured policy value rather than a division by zero.
func (e *Engine) Summarize(g domain.Group) domain.Group {
	n := len(g.Members)
	if n == 0 {
		return g
	}
	if n == 1 {
		g.Title = g.Members[0].Raw.Title
		g.Confidence = e.cfg.singletonConfidence()
		return g
	}

	totals := make([]float64, n)
	var sum float64
	var pairCount int
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			s := e.scorer.Score(g.Members[i], g.Members[j])
			totals[i] += s
			totals[j] += s
			sum += s
			pairCount++
		}
	}

	best := 0
	for i := 1; i < n; i++ {
		if betterCentroid(totals[i], g.Members[i].Raw.Title, totals[best], g.Members[best].Raw.Title) {
			best = i
		}
	}

	conf := sum / float64(pairCount)
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}

	g.Title = g.Members[best].Raw.Title
	g.Confidence = conf
	return g
}

// betterCentroid reports whether candidate (total, title) beats the current
// best under the centroid ordering: higher aggregate similarity, then
// shorter title, then lexicographically smaller title.
func betterCentroid(total float64, title string, bestTotal float64, bestTitle string) bool {
	if total != bestTotal {
		return total > bestTotal
	}
	if len(title) != len(bestTitle) {
		return len(title) < len(bestTitle)
	}
	return title < bestTitle
}
