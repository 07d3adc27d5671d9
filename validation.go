package sentifolio

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks the order for programmer errors and returns a copy with
// quick fixes applied (symbol trimmed).
func (o Order) Validate() (Order, error) {
	var errs error
	o.Symbol = strings.TrimSpace(o.Symbol)
	if o.Symbol == "" {
		errs = errors.Join(errs, errors.New("symbol is missing"))
	}
	switch o.Action {
	case Buy, Sell:
		if !o.Quantity.IsPositive() {
			errs = errors.Join(errs, fmt.Errorf("%s quantity must be positive, got %s", o.Action, o.Quantity))
		}
	case Hold:
		if o.Quantity.IsNegative() {
			errs = errors.Join(errs, fmt.Errorf("negative quantity %s", o.Quantity))
		}
	default:
		errs = errors.Join(errs, fmt.Errorf("unknown action %q", o.Action))
	}
	if errs != nil {
		return o, fmt.Errorf("%w: %w", ErrInvalidOrder, errs)
	}
	return o, nil
}
