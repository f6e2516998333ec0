// Package results derives chart and table projections from a prediction batch.
// Everything here is a pure function of the record slice.
package results

import (
	"math"

	"github.com/agenthands/cogniscan/internal/model"
)

var classes = []int{model.ClassNormal, model.ClassImpaired, model.ClassMCI, model.ClassDementia}

type ClassShare struct {
	Class      int     `json:"class"`
	Name       string  `json:"name"`
	Label      string  `json:"label"`
	Count      int     `json:"count"`
	Percentage float64 `json:"percentage"`
}

type Bucket struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type Breakdown struct {
	Class int      `json:"class"`
	Label string   `json:"label"`
	Size  int      `json:"size"`
	Sex   []Bucket `json:"sexDistribution"`
	Age   []Bucket `json:"ageGroupDistribution"`
}

type ageGroup struct {
	label    string
	min, max int // half-open [min, max)
}

var ageGroups = []ageGroup{
	{label: "Below 60", min: 0, max: 60},
	{label: "60-69", min: 60, max: 70},
	{label: "70-79", min: 70, max: 80},
	{label: "80 or above", min: 80, max: math.MaxInt},
}

// Distribution counts records per diagnostic class. Records with a label
// outside 1..4 are left out of both the counts and the total.
func Distribution(records []model.PredictionRecord) []ClassShare {
	counts := make(map[int]int, len(classes))
	total := 0
	for _, r := range records {
		if !r.ValidClass() {
			continue
		}
		counts[r.ClassLabel]++
		total++
	}

	shares := make([]ClassShare, 0, len(classes))
	for _, c := range classes {
		share := ClassShare{
			Class: c,
			Name:  model.ClassName(c),
			Label: model.ClassLabel(c),
			Count: counts[c],
		}
		if total > 0 {
			share.Percentage = float64(counts[c]) / float64(total) * 100
		}
		shares = append(shares, share)
	}
	return shares
}

// Breakdowns partitions each non-empty class by sex and by age group. A record
// missing an attribute only drops out of that attribute's buckets.
func Breakdowns(records []model.PredictionRecord) []Breakdown {
	members := make(map[int][]model.PredictionRecord, len(classes))
	for _, r := range records {
		if r.ValidClass() {
			members[r.ClassLabel] = append(members[r.ClassLabel], r)
		}
	}

	var out []Breakdown
	for _, c := range classes {
		group := members[c]
		if len(group) == 0 {
			continue
		}
		out = append(out, Breakdown{
			Class: c,
			Label: model.ClassLabel(c),
			Size:  len(group),
			Sex:   sexBuckets(group),
			Age:   ageBuckets(group),
		})
	}
	return out
}

func sexBuckets(group []model.PredictionRecord) []Bucket {
	male, female := 0, 0
	for _, r := range group {
		if r.Sex == nil {
			continue
		}
		switch *r.Sex {
		case model.SexMale:
			male++
		case model.SexFemale:
			female++
		}
	}
	return []Bucket{{Category: "Male", Count: male}, {Category: "Female", Count: female}}
}

func ageBuckets(group []model.PredictionRecord) []Bucket {
	buckets := make([]Bucket, len(ageGroups))
	for i, g := range ageGroups {
		buckets[i].Category = g.label
	}
	for _, r := range group {
		if r.Age == nil {
			continue
		}
		for i, g := range ageGroups {
			if *r.Age >= g.min && *r.Age < g.max {
				buckets[i].Count++
				break
			}
		}
	}
	return buckets
}
