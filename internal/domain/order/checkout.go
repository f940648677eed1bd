package order

import (
	"context"

	"github.com/go-faster/errors"
	"github.com/google/uuid"
)

// Checkout turns a cart into a persisted receipt.
//
// The ordering is part of the contract: captcha verification, then catalog
// and stock validation, then the address upsert, then coupon validation.
// The address is the one intentional partial commit — it is saved even when
// a later coupon error aborts the checkout. Everything after coupon
// validation (receipt graph, payment row, coupon usage marks, outbox event)
// commits atomically or not at all.
func (s *Service) Checkout(ctx context.Context, req CheckoutRequest, rc RequestContext, buyer Account) (*ReceiptView, error) {
	if err := s.captcha.Verify(ctx, rc.CaptchaToken, rc.CaptchaSource, rc.RemoteIP); err != nil {
		return nil, err
	}

	pr, err := s.price(ctx, req.CalculateRequest)
	if err != nil {
		return nil, err
	}

	addr := &Address{
		Name:        req.Address.Name,
		CompanyName: req.Address.CompanyName,
		Phone:       req.Address.Phone,
		City:        req.Address.City,
		Address:     req.Address.Address,
	}
	if err := s.addresses.Save(ctx, addr); err != nil {
		return nil, errors.Wrap(err, "save address")
	}

	orderDiscount, usages, err := s.applyCoupons(ctx, pr, req.Coupon, buyer)
	if err != nil {
		return nil, err
	}

	receipt := s.assemble(pr, orderDiscount, buyer)
	receipt.CouponCode = req.Coupon
	receipt.Address.ID = addr.ID
	receipt.LastModified = s.now()

	err = s.tx.InTx(ctx, func(ctx context.Context) error {
		if err := s.receipts.Save(ctx, receipt); err != nil {
			return errors.Wrap(err, "save receipt")
		}

		payment := &PaymentInfo{
			ReceiptID: receipt.ID,
			Type:      req.PaymentMethod,
			Amount:    receipt.Total,
			Status:    PaymentPending,
		}
		if err := s.payments.Save(ctx, payment); err != nil {
			return errors.Wrap(err, "save payment")
		}

		for _, u := range usages {
			if err := s.coupons.MarkUsed(ctx, u.UserID, u.CouponID); err != nil {
				return errors.Wrap(err, "mark coupon used")
			}
		}

		return s.publish(ctx, Event{
			Type:      EventOrderCreated,
			ReceiptID: receipt.ID,
			BuyerID:   buyer.ID,
			Total:     receipt.Total,
		})
	})
	if err != nil {
		return nil, err
	}

	view := ViewOf(receipt)
	return &view, nil
}

// publish stamps and records a domain event through the outbox port.
func (s *Service) publish(ctx context.Context, e Event) error {
	e.ID = uuid.New().String()
	e.At = s.now()
	if err := s.events.Publish(ctx, e); err != nil {
		return errors.Wrap(err, "publish event")
	}
	return nil
}
