package dataframe

import (
	"context"
	"math"

	"gonum.org/v1/gonum/stat"
	"hermannm.dev/datasetquery/db"
)

func (dataset *Dataset) Correlate(
	ctx context.Context,
	filters []db.FilterSpec,
	correlate db.CorrelateSpec,
) (db.RawResult, error) {
	frame, err := dataset.filtered(filters)
	if err != nil {
		return db.RawResult{}, err
	}

	columnA, err := dataset.column(frame, correlate.FieldA)
	if err != nil {
		return db.RawResult{}, err
	}
	columnB, err := dataset.column(frame, correlate.FieldB)
	if err != nil {
		return db.RawResult{}, err
	}

	// Rows where either value is blank are skipped, like SQL corr
	var valuesA, valuesB []float64
	for row := 0; row < frame.Nrow(); row++ {
		a, aIsNA, err := columnA.float(row)
		if err != nil {
			return db.RawResult{}, err
		}
		b, bIsNA, err := columnB.float(row)
		if err != nil {
			return db.RawResult{}, err
		}
		if aIsNA || bIsNA {
			continue
		}

		valuesA = append(valuesA, a)
		valuesB = append(valuesB, b)
	}

	return db.NewCorrelationResult(correlate, pearson(valuesA, valuesB)), nil
}

// pearson returns the Pearson correlation coefficient rounded to 4 decimals, or nil if it is
// undefined (fewer than 2 pairs, or a constant series).
func pearson(valuesA []float64, valuesB []float64) any {
	if len(valuesA) < 2 {
		return nil
	}

	coefficient := stat.Correlation(valuesA, valuesB, nil)
	if math.IsNaN(coefficient) || math.IsInf(coefficient, 0) {
		return nil
	}
	return roundTo(coefficient, 4)
}
