package derive

import (
	"math"

	"finscrape/internal/value"
)

// Sign-transition markers appended when current and previous operands
// disagree in sign and the growth is computed on absolute values.
const (
	signNegToPos = "- -> +"
	signPosToNeg = "+ -> -"
)

// Growth computes a growth rate between two period values as a formatted
// percentage. previous of zero yields absent, never a division. Opposite
// signs switch to absolute values and append the transition marker. For
// periods over a year the rate is compounded (CAGR); otherwise simple.
func (e *Engine) Growth(current, previous float64, periodYears int) value.Value {
	if previous == 0 {
		return value.Absent()
	}

	sign := ""
	if current*previous < 0 {
		if current > 0 {
			sign = signNegToPos
		} else {
			sign = signPosToNeg
		}
		current = math.Abs(current)
		previous = math.Abs(previous)
	}

	var rate float64
	if periodYears > 1 {
		rate = math.Pow(current/previous, 1/float64(periodYears)) - 1
	} else {
		rate = (current - previous) / previous
	}
	if math.IsNaN(rate) || math.IsInf(rate, 0) {
		return value.Absent()
	}

	out := value.FormatFloat(rate*100, e.precision) + "%"
	if sign != "" {
		out += " (" + sign + ")"
	}
	return value.Of(out)
}

// growthValue is Growth over optional operands: any absent operand yields
// absent.
func (e *Engine) growthValue(current float64, curOK bool, previous float64, prevOK bool, periodYears int) value.Value {
	if !curOK || !prevOK {
		return value.Absent()
	}
	return e.Growth(current, previous, periodYears)
}

// ratio divides with a guard: an absent operand or zero denominator yields
// absent.
func (e *Engine) ratio(num float64, numOK bool, den float64, denOK bool) value.Value {
	if !numOK || !denOK || den == 0 {
		return value.Absent()
	}
	return value.Of(value.FormatFloat(num/den, e.precision))
}

// percent is ratio scaled to a percentage string.
func (e *Engine) percent(num float64, numOK bool, den float64, denOK bool) value.Value {
	if !numOK || !denOK || den == 0 {
		return value.Absent()
	}
	return value.Of(value.FormatFloat(num/den*100, e.precision) + "%")
}
