package core

// applyMovement validates and applies one state transition to a stock record and its line item.
// All preconditions are checked before either value is touched, so a failed transition leaves
// both unchanged.
//
//	reserve:   onHand -= q, reserved += q, item.reserved += q
//	unreserve: reserved -= q, onHand += q, item.reserved -= q
//	issue:     reserved -= q,              item.reserved -= q, item.issued += q
//	return:    onHand += q,                item.issued -= q
func applyMovement(stock *StockRecord, item *LineItem, kind MovementType, qty int64) error {
	if qty <= 0 {
		return NewValidationError(ErrMsgQuantityPositive)
	}

	switch kind {
	case MovementReserve:
		if stock.OnHand < qty {
			return NewInsufficientQuantityf(ErrMsgInsufficientOnHand, stock.OnHand, qty)
		}
		stock.OnHand -= qty
		stock.Reserved += qty
		item.QtyReserved += qty

	case MovementUnreserve, MovementIssue:
		if item.QtyReserved < qty {
			return NewInsufficientQuantityf(ErrMsgInsufficientReserved, item.QtyReserved, qty)
		}
		if stock.Reserved < qty {
			return NewInsufficientQuantityf(ErrMsgInsufficientReserved, stock.Reserved, qty)
		}
		stock.Reserved -= qty
		item.QtyReserved -= qty
		if kind == MovementUnreserve {
			stock.OnHand += qty
		} else {
			item.QtyIssued += qty
		}

	case MovementReturn:
		if item.QtyIssued < qty {
			return NewInsufficientQuantityf(ErrMsgInsufficientIssued, item.QtyIssued, qty)
		}
		stock.OnHand += qty
		item.QtyIssued -= qty

	default:
		return NewValidationError("unknown movement type " + string(kind))
	}
	return nil
}
