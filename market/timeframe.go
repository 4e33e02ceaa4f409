package market

import (
	"fmt"
	"strconv"
	"strings"
)

// TimeframeSeconds converts MT5-style timeframe names (M1, M5, M15, M30, H1,
// H4, D1, W1) to seconds per bar.
func TimeframeSeconds(tf string) (int64, error) {
	tf = strings.ToUpper(strings.TrimSpace(tf))
	if len(tf) < 2 {
		return 0, fmt.Errorf("bad timeframe %q", tf)
	}

	n, err := strconv.Atoi(tf[1:])
	if err != nil || n <= 0 {
		return 0, fmt.Errorf("bad timeframe %q", tf)
	}

	var unit int64
	switch tf[0] {
	case 'M':
		unit = 60
	case 'H':
		unit = 3600
	case 'D':
		unit = 86400
	case 'W':
		unit = 7 * 86400
	default:
		return 0, fmt.Errorf("bad timeframe %q", tf)
	}
	return int64(n) * unit, nil
}
