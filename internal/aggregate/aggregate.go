package aggregate

// Aggregate is the derived pair stored on an item
type Aggregate struct {
	AverageRating float64 `json:"averageRating"`
	TotalReviews  int     `json:"totalReviews"`
}

// Compute derives the aggregate from the rating sum and count of an item's
// reviews. No rounding is applied; that is left to presentation.
func Compute(sum int64, count int) Aggregate {
	if count <= 0 {
		return Aggregate{}
	}
	return Aggregate{
		AverageRating: float64(sum) / float64(count),
		TotalReviews:  count,
	}
}

// FromRatings computes the aggregate of a full rating population
func FromRatings(ratings []int) Aggregate {
	var sum int64
	for _, r := range ratings {
		sum += int64(r)
	}
	return Compute(sum, len(ratings))
}
