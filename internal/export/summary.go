package export

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	"elite-starscan/internal/starscan"
)

// Summary holds per-system statistics over the scanned bodies.
type Summary struct {
	System           string         `json:"system" yaml:"system"`
	Address          int64          `json:"address" yaml:"address"`
	Bodies           int            `json:"bodies" yaml:"bodies"`
	Scanned          int            `json:"scanned" yaml:"scanned"`
	Classes          map[string]int `json:"classes" yaml:"classes"`
	MeanDistanceLS   float64        `json:"mean_distance_ls" yaml:"mean_distance_ls"`
	StdDistanceLS    float64        `json:"std_distance_ls" yaml:"std_distance_ls"`
	MedianDistanceLS float64        `json:"median_distance_ls" yaml:"median_distance_ls"`
	MaxDistanceLS    float64        `json:"max_distance_ls" yaml:"max_distance_ls"`
	Progress         float64        `json:"progress" yaml:"progress"`
	AllBodiesFound   bool           `json:"all_bodies_found" yaml:"all_bodies_found"`
	StructureGen     uint64         `json:"structure_generation" yaml:"structure_generation"`
	PayloadGen       uint64         `json:"payload_generation" yaml:"payload_generation"`
}

// Summarize computes the Summary of one system.
func Summarize(sys *starscan.SystemNode) Summary {
	rows := Rows(sys)
	counts := sys.Counts()
	sum := Summary{
		System:         sys.Name(),
		Address:        sys.Address(),
		Bodies:         len(rows),
		Classes:        make(map[string]int),
		Progress:       counts.Progress,
		AllBodiesFound: counts.AllBodiesFound,
		StructureGen:   sys.StructureGeneration(),
		PayloadGen:     sys.PayloadGeneration(),
	}

	var dist []float64
	for _, r := range rows {
		sum.Classes[r.Class]++
		if !r.Scanned {
			continue
		}
		sum.Scanned++
		dist = append(dist, r.DistanceLS)
		if r.DistanceLS > sum.MaxDistanceLS {
			sum.MaxDistanceLS = r.DistanceLS
		}
	}
	if len(dist) == 0 {
		return sum
	}
	sum.MeanDistanceLS, sum.StdDistanceLS = stat.MeanStdDev(dist, nil)
	if len(dist) == 1 {
		sum.StdDistanceLS = 0
	}
	sorted := append([]float64(nil), dist...)
	sort.Float64s(sorted)
	sum.MedianDistanceLS = stat.Quantile(0.5, stat.Empirical, sorted, nil)
	return sum
}
