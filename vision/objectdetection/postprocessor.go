package objectdetection

import (
	"sort"
	"strings"
)

// Postprocessor defines a function that filters/modifies on an incoming array of Detections.
type Postprocessor func(DetectionSet) DetectionSet

// NewAreaFilter returns a function that filters out detections below a certain area.
func NewAreaFilter(area float64) Postprocessor {
	return func(in DetectionSet) DetectionSet {
		out := make(DetectionSet, 0, len(in))
		for _, d := range in {
			if d.BoundingBox.Area() >= area {
				out = append(out, d)
			}
		}
		return out
	}
}

// NewScoreFilter returns a function that filters out detections below a certain confidence.
// Categories below the threshold are removed from each detection; a detection left with no
// categories is dropped.
func NewScoreFilter(conf float64) Postprocessor {
	return func(in DetectionSet) DetectionSet {
		out := make(DetectionSet, 0, len(in))
		for _, d := range in {
			kept := make([]Category, 0, len(d.Categories))
			for _, c := range d.Categories {
				if c.Score >= conf {
					kept = append(kept, c)
				}
			}
			if len(kept) == 0 {
				continue
			}
			out = append(out, Detection{BoundingBox: d.BoundingBox, Categories: kept})
		}
		return out
	}
}

// NewLabelFilter returns a function that keeps only categories whose label is in the allowlist,
// compared case-insensitively. An empty allowlist keeps everything.
func NewLabelFilter(allowlist []string) Postprocessor {
	if len(allowlist) == 0 {
		return func(in DetectionSet) DetectionSet { return in }
	}
	allowed := make(map[string]struct{}, len(allowlist))
	for _, l := range allowlist {
		allowed[strings.ToLower(l)] = struct{}{}
	}
	return func(in DetectionSet) DetectionSet {
		out := make(DetectionSet, 0, len(in))
		for _, d := range in {
			kept := make([]Category, 0, len(d.Categories))
			for _, c := range d.Categories {
				if _, ok := allowed[strings.ToLower(c.Label)]; ok {
					kept = append(kept, c)
				}
			}
			if len(kept) == 0 {
				continue
			}
			out = append(out, Detection{BoundingBox: d.BoundingBox, Categories: kept})
		}
		return out
	}
}

// SortByScore orders categories within each detection, then detections by their top score.
// The sort is stable so equal scores keep the detector's order.
func SortByScore(in DetectionSet) DetectionSet {
	for _, d := range in {
		sort.SliceStable(d.Categories, func(i, j int) bool {
			return d.Categories[i].Score > d.Categories[j].Score
		})
	}
	sort.SliceStable(in, func(i, j int) bool {
		return in[i].Score() > in[j].Score()
	})
	return in
}

// NewMaxResults returns a function that keeps the first n detections.
func NewMaxResults(n int) Postprocessor {
	return func(in DetectionSet) DetectionSet {
		if n < 0 || len(in) <= n {
			return in
		}
		return in[:n]
	}
}

// Chain applies the postprocessors in order.
func Chain(filters ...Postprocessor) Postprocessor {
	return func(in DetectionSet) DetectionSet {
		for _, f := range filters {
			if f != nil {
				in = f(in)
			}
		}
		return in
	}
}

// Postprocess is the filter every detector applies before handing results out: score threshold,
// category allowlist, descending score order and the result cap from cfg.
func Postprocess(set DetectionSet, cfg Config) DetectionSet {
	out := Chain(
		NewScoreFilter(cfg.ScoreThreshold),
		NewLabelFilter(cfg.CategoryAllowlist),
		SortByScore,
		NewMaxResults(cfg.MaxResults),
	)(set)
	if out == nil {
		return DetectionSet{}
	}
	return out
}
