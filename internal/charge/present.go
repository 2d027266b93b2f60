package charge

import "strconv"

// Presentation is the human-readable rendering of a terminal failure.
type Presentation struct {
	Icon        string `json:"icon"`
	Title       string `json:"title"`
	Description string `json:"description"`
}

// Present maps a failure reason to its display copy. The mapping is total:
// any reason outside the known set falls back to the generic bucket.
func Present(reason FailureReason) Presentation {
	switch reason {
	case ReasonUserCancelled:
		return Presentation{
			Icon:        "🚫",
			Title:       "payment cancelled",
			Description: "the payment was cancelled during checkout; you can try again any time",
		}
	case ReasonInsufficientFunds:
		return Presentation{
			Icon:        "💸",
			Title:       "insufficient funds",
			Description: "check the account balance or card limit, then try again",
		}
	case ReasonInvalidInstrument:
		return Presentation{
			Icon:        "💳",
			Title:       "invalid card",
			Description: "check the card details or use a different payment method",
		}
	case ReasonNetworkError:
		return Presentation{
			Icon:        "📡",
			Title:       "network error",
			Description: "check the connection and try again",
		}
	case ReasonValidation:
		return Presentation{
			Icon:        "❌",
			Title:       "invalid amount",
			Description: "pick one of the offered top-up amounts and try again",
		}
	case ReasonProcessorUnavailable:
		return Presentation{
			Icon:        "❌",
			Title:       "checkout could not start",
			Description: "the payment provider is unavailable; pick an amount to try again",
		}
	case ReasonMalformedCallback:
		return Presentation{
			Icon:        "❌",
			Title:       "payment could not be verified",
			Description: "the payment result was incomplete; if you were charged, contact support",
		}
	case ReasonConfirmationRejected:
		return Presentation{
			Icon:        "❌",
			Title:       "payment declined",
			Description: "the charge was declined during confirmation; start a new attempt if needed",
		}
	case ReasonConfirmationUnreachable:
		return Presentation{
			Icon:        "📡",
			Title:       "confirmation unreachable",
			Description: "the result could not be confirmed; you may start a new attempt",
		}
	default:
		return Presentation{
			Icon:        "❌",
			Title:       "payment could not be completed",
			Description: "try again in a moment or contact support if the problem persists",
		}
	}
}

// FormatAmount renders an amount with thousands separators, e.g. 30000 ->
// "30,000".
func FormatAmount(n int64) string {
	raw := strconv.FormatInt(n, 10)
	neg := false
	if len(raw) > 0 && raw[0] == '-' {
		neg = true
		raw = raw[1:]
	}
	if len(raw) <= 3 {
		if neg {
			return "-" + raw
		}
		return raw
	}
	var out []byte
	lead := len(raw) % 3
	if lead > 0 {
		out = append(out, raw[:lead]...)
	}
	for i := lead; i < len(raw); i += 3 {
		if len(out) > 0 {
			out = append(out, ',')
		}
		out = append(out, raw[i:i+3]...)
	}
	if neg {
		return "-" + string(out)
	}
	return string(out)
}
