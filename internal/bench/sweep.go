package bench

import (
	"sort"

	"gonum.org/v1/gonum/stat"

	segeval "github.com/jamesainslie/go-segeval"
	"github.com/jamesainslie/go-segeval/tensor"
)

// SweepResult holds scores for one threshold value.
type SweepResult struct {
	Threshold float32
	Result    *segeval.Result
	MeanDice  float64 // mean over the selected classes
}

// SweepThresholds generates threshold values from min to max with given step.
func SweepThresholds(min, max, step float32) []float32 {
	var thresholds []float32
	if step <= 0 {
		return thresholds
	}
	for t := min; t < max; t += step {
		thresholds = append(thresholds, t)
	}
	return thresholds
}

// Sweep evaluates preds against labels at each threshold and returns results
// sorted by mean Dice, best first. Ties keep threshold order.
func Sweep(preds, labels *tensor.Tensor, classes []int, thresholds []float32, opts ...segeval.Option) ([]SweepResult, error) {
	results := make([]SweepResult, 0, len(thresholds))

	for _, threshold := range thresholds {
		ev := segeval.NewEvaluator(append(opts[:len(opts):len(opts)], segeval.WithThreshold(threshold))...)
		res, err := ev.Evaluate(preds, labels, classes)
		if err != nil {
			return nil, err
		}
		results = append(results, SweepResult{
			Threshold: threshold,
			Result:    res,
			MeanDice:  stat.Mean(res.Means, nil),
		})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].MeanDice > results[j].MeanDice
	})

	return results, nil
}
