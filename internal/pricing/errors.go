package pricing

import "fmt"

// InvalidQuantityError reports a negative quantity in a cost request.
type InvalidQuantityError struct {
	Field string
	Value int
}

func (e *InvalidQuantityError) Error() string {
	return fmt.Sprintf("invalid quantity for %s: %d (must be >= 0)", e.Field, e.Value)
}

// UnknownTierError reports a pricing lookup miss.
type UnknownTierError struct {
	Kind ResourceKind
	Tier Tier
}

func (e *UnknownTierError) Error() string {
	return fmt.Sprintf("unknown %s pricing tier %q", e.Kind, e.Tier)
}
