package forecast

import (
	"fmt"
	"sort"
	"time"

	"github.com/andresuchdata/stockcast/backend-go/internal/domain"
)

// Normalize turns raw sales observations into a gap-free TimeSeries at
// the requested cadence. Observations falling into the same bucket are
// summed; buckets with no observations between the earliest and latest
// bucket are filled with zero demand. The sum of quantities is
// preserved and buckets come out strictly increasing.
func Normalize(productCode string, cadence domain.Cadence, obs []domain.SalesObservation) (domain.TimeSeries, error) {
	if len(obs) == 0 {
		return domain.TimeSeries{}, fmt.Errorf("normalize %s: %w", productCode, domain.ErrEmptyHistory)
	}

	byBucket := make(map[int64]float64, len(obs))
	var minKey, maxKey int64
	for i, o := range obs {
		if o.QtySold < 0 {
			return domain.TimeSeries{}, fmt.Errorf("normalize %s: negative quantity %.2f at %s",
				productCode, o.QtySold, o.MoveDate.Format("2006-01-02"))
		}
		key := cadence.Truncate(o.MoveDate).Unix()
		byBucket[key] += o.QtySold
		if i == 0 || key < minKey {
			minKey = key
		}
		if i == 0 || key > maxKey {
			maxKey = key
		}
	}

	keys := make([]int64, 0, len(byBucket))
	for k := range byBucket {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(a, b int) bool { return keys[a] < keys[b] })

	series := domain.TimeSeries{ProductCode: productCode, Cadence: cadence}
	cursor := time.Unix(minKey, 0).UTC()
	idx := 0
	for {
		key := cursor.Unix()
		qty := 0.0
		if idx < len(keys) && keys[idx] == key {
			qty = byBucket[key]
			idx++
		}
		series.Points = append(series.Points, domain.Point{Period: cursor, Qty: qty})
		if key == maxKey {
			break
		}
		cursor = cadence.Next(cursor)
	}

	return series, nil
}
