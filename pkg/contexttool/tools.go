package contexttool

import (
	"fmt"
	"strconv"
)

// invokeTool executes a named tool against arguments. Unrecognized tool
// names are reported as a warning, not an error — the call still
// succeeds with empty outputs.
func invokeTool(toolName string, arguments map[string]string) (outputs map[string][]byte, warnings []string) {
	switch toolName {
	case "compute_pricing":
		return computePricing(arguments), nil
	default:
		return map[string][]byte{}, []string{fmt.Sprintf("Tool '%s' not recognized", toolName)}
	}
}

// computePricing implements the recommended_price = max(0, 100 - 0.1 *
// stock_count) default pricing tool. A missing or unparseable
// stock_count is treated as zero.
func computePricing(arguments map[string]string) map[string][]byte {
	stock, _ := strconv.Atoi(arguments["stock_count"])

	price := 100.0 - 0.1*float64(stock)
	if price < 0 {
		price = 0
	}

	return map[string][]byte{
		"recommended_price": []byte(strconv.FormatFloat(price, 'f', 1, 64)),
	}
}
