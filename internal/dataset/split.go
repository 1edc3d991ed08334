package dataset

import (
	"fmt"
	"math/rand"
)

const (
	TrainRatio = 0.6
	ValRatio   = 0.2
)

// MinRows is the smallest table Split turns into three non-empty partitions.
const MinRows = 5

// partitionSizes returns the train and validation sizes for n rows; the test
// partition takes the remainder.
func partitionSizes(n int) (nTrain, nVal int) {
	return int(float64(n) * TrainRatio), int(float64(n) * ValRatio)
}

// CheckSplittable reports whether n rows yield non-empty train, validation
// and test partitions.
func CheckSplittable(n int) error {
	nTrain, nVal := partitionSizes(n)
	if nTrain == 0 || nVal == 0 || n-nTrain-nVal == 0 {
		return fmt.Errorf("dataset has %d rows, need at least %d to split into train/validation/test", n, MinRows)
	}
	return nil
}

// Split partitions t into train/validation/test tables using a seeded
// permutation. The same seed always yields the same partitions.
func Split(t *Table, seed int64) (train, val, test *Table) {
	perm := rand.New(rand.NewSource(seed)).Perm(t.Len())
	nTrain, nVal := partitionSizes(t.Len())

	train = t.Take(perm[:nTrain])
	val = t.Take(perm[nTrain : nTrain+nVal])
	test = t.Take(perm[nTrain+nVal:])
	return train, val, test
}
