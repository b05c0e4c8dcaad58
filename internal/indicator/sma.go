package indicator

// SMA calculates Simple Moving Average
// Returns slice of length: len(prices) - period + 1
func SMA(prices []float64, period int) []float64 {
	if period <= 0 || len(prices) < period {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-period+1)

	// Calculate first SMA
	var sum float64
	for i := 0; i < period; i++ {
		sum += prices[i]
	}
	result = append(result, sum/float64(period))

	// Rolling calculation
	for i := period; i < len(prices); i++ {
		sum = sum - prices[i-period] + prices[i]
		result = append(result, sum/float64(period))
	}

	return result
}

// Returns calculates period-over-period fractional changes.
// Returns slice of length: len(prices) - 1. Entries following a zero
// price are undefined and reported as 0.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}

	result := make([]float64, 0, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] == 0 {
			result = append(result, 0)
			continue
		}
		result = append(result, prices[i]/prices[i-1]-1)
	}
	return result
}
