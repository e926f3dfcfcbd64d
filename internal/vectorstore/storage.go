package vectorstore

// Index holds a run's vectors by position and answers neighbourhood queries.
type Index interface {
	Init(dimension int) error
	Upsert(vectors [][]float64) error
	Len() int
	Within(i int, radius float64) []int
	KNearestDistance(i, k int) float64
	Clear() error
}
