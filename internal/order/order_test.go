package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/petertoman80/trade-frame/internal/instrument"
	"github.com/petertoman80/trade-frame/pkg/errors"
)

var testInstrument = &instrument.Instrument{
	InstrumentID: "GC",
	Symbol:       "GC",
	Exchange:     "NYMEX",
	Multiplier:   100,
	MinTick:      decimal.RequireFromString("0.1"),
}

func mustNewMarket(t *testing.T, qty int64) *Order {
	t.Helper()
	o, err := New(testInstrument, TypeMarket, SideBuy, qty, decimal.Zero, decimal.Zero, 1)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return o
}

func TestNewValidation(t *testing.T) {
	price := decimal.RequireFromString("100.5")

	tests := []struct {
		name      string
		orderType Type
		qty       int64
		price1    decimal.Decimal
		price2    decimal.Decimal
		wantCode  errors.Code
	}{
		{"market ok", TypeMarket, 100, decimal.Zero, decimal.Zero, errors.CodeOK},
		{"limit ok", TypeLimit, 100, price, decimal.Zero, errors.CodeOK},
		{"stop ok", TypeStop, 100, price, decimal.Zero, errors.CodeOK},
		{"stop limit ok", TypeStopLimit, 100, price, price, errors.CodeOK},
		{"zero quantity", TypeMarket, 0, decimal.Zero, decimal.Zero, errors.CodeInvalidQuantity},
		{"negative quantity", TypeLimit, -5, price, decimal.Zero, errors.CodeInvalidQuantity},
		{"market with price", TypeMarket, 100, price, decimal.Zero, errors.CodeInvalidPrice},
		{"limit without price", TypeLimit, 100, decimal.Zero, decimal.Zero, errors.CodeInvalidPrice},
		{"limit with negative price", TypeLimit, 100, price.Neg(), decimal.Zero, errors.CodeInvalidPrice},
		{"limit with second price", TypeLimit, 100, price, price, errors.CodeInvalidPrice},
		{"stop limit missing second price", TypeStopLimit, 100, price, decimal.Zero, errors.CodeInvalidPrice},
		{"unknown type", Type(9), 100, price, decimal.Zero, errors.CodeInvalidParam},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o, err := New(testInstrument, tt.orderType, SideBuy, tt.qty, tt.price1, tt.price2, 1)
			if tt.wantCode == errors.CodeOK {
				if err != nil {
					t.Fatalf("expected success, got %v", err)
				}
				if o.Status != StatusCreated {
					t.Fatalf("expected CREATED, got %s", o.Status)
				}
				if o.QuantityRemaining != tt.qty || o.QuantityFilled != 0 {
					t.Fatalf("expected remaining=%d filled=0, got remaining=%d filled=%d",
						tt.qty, o.QuantityRemaining, o.QuantityFilled)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error")
			}
			if errors.CodeOf(err) != tt.wantCode {
				t.Fatalf("expected code %s, got %s", tt.wantCode, errors.CodeOf(err))
			}
		})
	}
}

func TestNewRequiresInstrument(t *testing.T) {
	_, err := New(nil, TypeMarket, SideBuy, 100, decimal.Zero, decimal.Zero, 1)
	if errors.CodeOf(err) != errors.CodeInvalidParam {
		t.Fatalf("expected INVALID_PARAM, got %v", err)
	}
}

func TestFillAggregation(t *testing.T) {
	o := mustNewMarket(t, 100)
	if err := o.MarkSubmitted(time.Now()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	// 60 @ 10.0 -> partial
	status, err := o.ApplyExecution(NewExecution(o.OrderID, 60, decimal.RequireFromString("10.0"), time.Now()))
	if err != nil {
		t.Fatalf("first execution: %v", err)
	}
	if status != StatusPartiallyFilled {
		t.Fatalf("expected PARTIALLY_FILLED, got %s", status)
	}
	if o.QuantityFilled != 60 || o.QuantityRemaining != 40 {
		t.Fatalf("expected filled=60 remaining=40, got filled=%d remaining=%d", o.QuantityFilled, o.QuantityRemaining)
	}
	if !o.AverageFillPrice.Equal(decimal.RequireFromString("10.0")) {
		t.Fatalf("expected avg 10.0, got %s", o.AverageFillPrice)
	}

	// 40 @ 11.0 -> filled, avg (60*10 + 40*11)/100 = 10.4
	status, err = o.ApplyExecution(NewExecution(o.OrderID, 40, decimal.RequireFromString("11.0"), time.Now()))
	if err != nil {
		t.Fatalf("second execution: %v", err)
	}
	if status != StatusFilled {
		t.Fatalf("expected FILLED, got %s", status)
	}
	if o.QuantityFilled != 100 || o.QuantityRemaining != 0 {
		t.Fatalf("expected filled=100 remaining=0, got filled=%d remaining=%d", o.QuantityFilled, o.QuantityRemaining)
	}
	if !o.AverageFillPrice.Equal(decimal.RequireFromString("10.4")) {
		t.Fatalf("expected avg 10.4, got %s", o.AverageFillPrice)
	}
	if o.DateTimeClosed.IsZero() {
		t.Fatal("expected closed timestamp on full fill")
	}
}

func TestFillInvariantHolds(t *testing.T) {
	o := mustNewMarket(t, 100)
	if err := o.MarkSubmitted(time.Now()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	for _, qty := range []int64{10, 25, 5, 40} {
		if _, err := o.ApplyExecution(NewExecution(o.OrderID, qty, decimal.RequireFromString("9.5"), time.Now())); err != nil {
			t.Fatalf("execution %d: %v", qty, err)
		}
		if o.QuantityFilled+o.QuantityRemaining != o.Quantity {
			t.Fatalf("invariant violated: filled=%d remaining=%d requested=%d",
				o.QuantityFilled, o.QuantityRemaining, o.Quantity)
		}
	}
}

func TestOverfillRejected(t *testing.T) {
	o := mustNewMarket(t, 10)
	if err := o.MarkSubmitted(time.Now()); err != nil {
		t.Fatalf("submit: %v", err)
	}

	_, err := o.ApplyExecution(NewExecution(o.OrderID, 11, decimal.RequireFromString("10"), time.Now()))
	if errors.CodeOf(err) != errors.CodeOverfill {
		t.Fatalf("expected OVERFILL, got %v", err)
	}
	if o.QuantityFilled != 0 || o.QuantityRemaining != 10 {
		t.Fatal("rejected execution must not mutate the order")
	}
}

func TestExecutionBeforePlaceRejected(t *testing.T) {
	o := mustNewMarket(t, 10)
	_, err := o.ApplyExecution(NewExecution(o.OrderID, 5, decimal.RequireFromString("10"), time.Now()))
	if errors.CodeOf(err) != errors.CodeOrderNotPlaced {
		t.Fatalf("expected ORDER_NOT_PLACED, got %v", err)
	}
}

func TestTerminalStatesRejectMutation(t *testing.T) {
	now := time.Now()

	// Filled
	o := mustNewMarket(t, 10)
	o.MarkSubmitted(now)
	if _, err := o.ApplyExecution(NewExecution(o.OrderID, 10, decimal.RequireFromString("10"), now)); err != nil {
		t.Fatalf("fill: %v", err)
	}
	if _, err := o.ApplyExecution(NewExecution(o.OrderID, 1, decimal.RequireFromString("10"), now)); errors.CodeOf(err) != errors.CodeTerminalState {
		t.Fatalf("expected TERMINAL_STATE after fill, got %v", err)
	}
	if err := o.MarkCancelled(now); errors.CodeOf(err) != errors.CodeTerminalState {
		t.Fatalf("expected TERMINAL_STATE cancel after fill, got %v", err)
	}
	if err := o.ApplyError(ErrorRejected, now); errors.CodeOf(err) != errors.CodeTerminalState {
		t.Fatalf("expected TERMINAL_STATE error after fill, got %v", err)
	}

	// Cancelled
	o = mustNewMarket(t, 10)
	o.MarkSubmitted(now)
	if err := o.MarkCancelled(now); err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if err := o.MarkSubmitted(now); errors.CodeOf(err) != errors.CodeTerminalState {
		t.Fatalf("expected TERMINAL_STATE submit after cancel, got %v", err)
	}

	// Error
	o = mustNewMarket(t, 10)
	o.MarkSubmitted(now)
	if err := o.ApplyError(ErrorDisconnected, now); err != nil {
		t.Fatalf("error: %v", err)
	}
	if !o.IsTerminal() {
		t.Fatal("expected terminal after error")
	}
	if err := o.MarkCancelled(now); errors.CodeOf(err) != errors.CodeTerminalState {
		t.Fatalf("expected TERMINAL_STATE cancel after error, got %v", err)
	}
}

func TestCancelBeforePlaceRejected(t *testing.T) {
	o := mustNewMarket(t, 10)
	if err := o.MarkCancelled(time.Now()); err == nil {
		t.Fatal("expected error cancelling a CREATED order")
	}
}

func TestCancelRejectKeepsOrderLive(t *testing.T) {
	now := time.Now()
	o := mustNewMarket(t, 10)
	o.MarkSubmitted(now)

	if err := o.ApplyError(ErrorCancelReject, now); err != nil {
		t.Fatalf("cancel reject: %v", err)
	}
	if o.Status != StatusSubmitted {
		t.Fatalf("expected order to remain SUBMITTED, got %s", o.Status)
	}

	// still fillable
	if _, err := o.ApplyExecution(NewExecution(o.OrderID, 10, decimal.RequireFromString("10"), now)); err != nil {
		t.Fatalf("fill after cancel reject: %v", err)
	}
}

func TestErrorFromCreated(t *testing.T) {
	o := mustNewMarket(t, 10)
	if err := o.ApplyError(ErrorInstrument, time.Now()); err != nil {
		t.Fatalf("error from created: %v", err)
	}
	if o.Status != StatusError {
		t.Fatalf("expected ERROR, got %s", o.Status)
	}
}

func TestStatusString(t *testing.T) {
	if StatusPartiallyFilled.String() != "PARTIALLY_FILLED" {
		t.Fatalf("unexpected: %s", StatusPartiallyFilled)
	}
	if Status(42).String() != "UNKNOWN" {
		t.Fatalf("unexpected: %s", Status(42))
	}
}
