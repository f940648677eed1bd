package order

import (
	"context"

	"github.com/go-faster/errors"
)

// Ownership selects which ownership rule guards a lifecycle operation:
// buyer-facing operations check the receipt's buyer, seller-facing ones
// check the owner of the shop on the detail.
type Ownership int

const (
	BuyerOwned Ownership = iota
	ShopOwned
)

// guardOwnership enforces the ownership rule for a loaded detail. The two
// rules fail with distinct errors: "Invalid user!" for buyer-owned checks,
// "Invalid ownership!" for shop-owned ones.
func guardOwnership(rule Ownership, d *DetailSnapshot, actor Account) error {
	switch rule {
	case ShopOwned:
		if d.ShopOwnerID != actor.ID {
			return ErrInvalidOwnership
		}
	default:
		if d.BuyerID != actor.ID {
			return ErrInvalidUser
		}
	}
	return nil
}

// loadDetail fetches the lifecycle snapshot for a detail or reports
// "Order detail not found!".
func (s *Service) loadDetail(ctx context.Context, detailID int64) (*DetailSnapshot, error) {
	d, err := s.details.FindByID(ctx, detailID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, ErrDetailNotFound
	}
	return d, nil
}

// Cancel voids a pending sub-order on the buyer's request. Only the buyer
// who owns the parent receipt may cancel, and only from PENDING. The parent
// receipt is touched so its audit timestamp reflects the change.
func (s *Service) Cancel(ctx context.Context, detailID int64, reason string, actor Account) error {
	d, err := s.loadDetail(ctx, detailID)
	if err != nil {
		return err
	}
	if err := guardOwnership(BuyerOwned, d, actor); err != nil {
		return err
	}
	if d.Status != StatusPending {
		return ErrInvalidStatus
	}

	next := d.WithStatus(StatusCancelled)
	next.Note = reason

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.details.Save(ctx, &next); err != nil {
			return errors.Wrap(err, "save detail")
		}
		if err := s.receipts.Touch(ctx, d.ReceiptID, s.now()); err != nil {
			return errors.Wrap(err, "touch receipt")
		}
		return s.publish(ctx, Event{
			Type:      EventOrderCancelled,
			ReceiptID: d.ReceiptID,
			DetailID:  d.ID,
			BuyerID:   d.BuyerID,
		})
	})
}

// Refund reverses a completed sub-order. Allowed only for the owning buyer,
// only from COMPLETED, and only while the receipt's last modification is
// within the refund window. The detail alone is persisted; the receipt keeps
// its timestamp so the window stays anchored to the completion.
func (s *Service) Refund(ctx context.Context, detailID int64, reason string, actor Account) error {
	d, err := s.loadDetail(ctx, detailID)
	if err != nil {
		return err
	}
	if err := guardOwnership(BuyerOwned, d, actor); err != nil {
		return err
	}
	if d.Status != StatusCompleted {
		return ErrInvalidStatus
	}

	now := s.now()
	if d.ReceiptLastModified.Before(now.Add(-s.refundWindow)) || d.ReceiptLastModified.After(now) {
		return ErrInvalidDate
	}

	next := d.WithStatus(StatusRefunded)
	next.Note = reason

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.details.Save(ctx, &next); err != nil {
			return errors.Wrap(err, "save detail")
		}
		return s.publish(ctx, Event{
			Type:      EventOrderRefunded,
			ReceiptID: d.ReceiptID,
			DetailID:  d.ID,
			BuyerID:   d.BuyerID,
		})
	})
}

// Confirm marks a shipping sub-order as received. The status guard runs
// before the payment lookup; the ownership guard runs after it, and the
// payment must be settled before the transition is allowed.
func (s *Service) Confirm(ctx context.Context, detailID int64, actor Account) error {
	d, err := s.loadDetail(ctx, detailID)
	if err != nil {
		return err
	}
	if d.Status != StatusShipping {
		return ErrInvalidStatus
	}

	payment, err := s.payments.FindByReceipt(ctx, d.ReceiptID)
	if err != nil {
		return err
	}
	if err := guardOwnership(BuyerOwned, d, actor); err != nil {
		return err
	}
	if payment == nil || payment.Status != PaymentPaid {
		return ErrInvalidPaymentStatus
	}

	next := d.WithStatus(StatusCompleted)

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.details.Save(ctx, &next); err != nil {
			return errors.Wrap(err, "save detail")
		}
		return s.publish(ctx, Event{
			Type:      EventOrderCompleted,
			ReceiptID: d.ReceiptID,
			DetailID:  d.ID,
			BuyerID:   d.BuyerID,
		})
	})
}

// ChangeStatus is the seller-facing transition (e.g. PENDING to SHIPPING).
// Ownership is evaluated against the shop owner, not the buyer, and no
// further status guard applies. Both the detail and the parent receipt are
// persisted.
func (s *Service) ChangeStatus(ctx context.Context, detailID int64, status Status, actor Account) error {
	d, err := s.loadDetail(ctx, detailID)
	if err != nil {
		return err
	}
	if err := guardOwnership(ShopOwned, d, actor); err != nil {
		return err
	}

	next := d.WithStatus(status)

	return s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.details.Save(ctx, &next); err != nil {
			return errors.Wrap(err, "save detail")
		}
		if err := s.receipts.Touch(ctx, d.ReceiptID, s.now()); err != nil {
			return errors.Wrap(err, "touch receipt")
		}
		return s.publish(ctx, Event{
			Type:      EventOrderStatusChanged,
			ReceiptID: d.ReceiptID,
			DetailID:  d.ID,
			BuyerID:   d.BuyerID,
		})
	})
}
