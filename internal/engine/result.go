package engine

import "copytrader/internal/models"

// Status is the outcome class of one mirrored trade. The four non-success
// outcomes are deliberately distinct: a quantity that rounds to zero, a
// risk denial, a skip, and a broker failure mean different things to an
// operator reading the run record.
type Status string

const (
	StatusExecuted     Status = "executed"
	StatusBelowMinimum Status = "below_minimum"
	StatusDenied       Status = "denied"
	StatusSkipped      Status = "skipped"
	StatusFailed       Status = "failed"
)

// TradeResult attributes an outcome to a specific source trade with a
// specific reason.
type TradeResult struct {
	Trade  models.SourceTrade
	Status Status
	Reason string
	Fill   *models.Fill
	Err    error
}

func executed(t models.SourceTrade, fill *models.Fill) TradeResult {
	return TradeResult{Trade: t, Status: StatusExecuted, Fill: fill}
}

func belowMinimum(t models.SourceTrade, reason string) TradeResult {
	return TradeResult{Trade: t, Status: StatusBelowMinimum, Reason: reason}
}

func denied(t models.SourceTrade, reason string) TradeResult {
	return TradeResult{Trade: t, Status: StatusDenied, Reason: reason}
}

func skipped(t models.SourceTrade, reason string) TradeResult {
	return TradeResult{Trade: t, Status: StatusSkipped, Reason: reason}
}

func failed(t models.SourceTrade, err error) TradeResult {
	return TradeResult{Trade: t, Status: StatusFailed, Reason: err.Error(), Err: err}
}
