package extraction

import (
	"fmt"
	"strings"
)

const extractInstructions = `You are a mortgage rate-sheet analyst. Extract every loan program on the
sheet into the JSON schema below. Respond with JSON only, no commentary.

{
  "effective_date": "YYYY-MM-DD",
  "programs": [
    {
      "name": "program name as printed",
      "min_rate": 0.0, "max_rate": 0.0,
      "min_points": 0.0, "max_points": 0.0,
      "lender_fee": 0.0,
      "min_fico": 0, "max_ltv": 0.0, "min_dscr": null,
      "min_loan": 0.0, "max_loan": 0.0,
      "io_offered": false, "ysp_available": false,
      "notes": "",
      "adjustments": [
        {"kind": "fico_ltv", "row_min": 700, "row_max": 719, "col_min": 60, "col_max": 70, "points": -0.25},
        {"kind": "lock_period", "value_key": "30", "points": 0.0},
        {"kind": "loan_amount", "value_key": "500k-1m", "points": -0.125}
      ]
    }
  ]
}

Rules:
- kind is one of: fico_ltv, purpose, occupancy, property_type, loan_amount, lock_period, state.
- fico_ltv entries carry row (FICO) and column (LTV) bounds exactly as printed.
- All other kinds carry value_key instead of bounds.
- Points are signed: negative values are costs, positive are credits.
- Rates, points, and LTV are percentages as printed (7.125, not 0.07125).
- Omit nothing. Every adjustment cell on the sheet becomes one entry.`

const extractRetrySuffix = `

The previous response was not valid JSON for this schema. Respond again
with nothing but a single JSON object matching the schema exactly.`

func composePrompt(in Input, transcript string, retry bool) string {
	var b strings.Builder
	b.WriteString(extractInstructions)
	if retry {
		b.WriteString(extractRetrySuffix)
	}
	fmt.Fprintf(&b, "\n\nLender: %s\nFile: %s\n\nRate sheet transcript:\n%s\n", in.LenderName, in.Filename, transcript)
	return b.String()
}
