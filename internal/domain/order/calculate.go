package order

import (
	"context"
	"strings"

	"github.com/go-faster/errors"
	"github.com/shopspring/decimal"

	"github.com/treocaynho01629/ring-bookstore/internal/domain/coupon"
)

// pricing is the output of the stock/price phase of the calculation engine:
// one priced detail per shop group, before any coupon is applied.
type pricing struct {
	groups  []CartGroupRequest
	details []Detail
	states  []coupon.CartState
	address AddressRequest
}

// price bulk-fetches the cart's shops and books, validates quantities against
// live stock, and builds the priced (coupon-free) detail per shop group.
// Item prices and discounts are snapshotted from the fetched books.
func (s *Service) price(ctx context.Context, req CalculateRequest) (*pricing, error) {
	if len(req.Cart) == 0 {
		return nil, ErrEmptyCart
	}

	shopIDs := make([]int64, 0, len(req.Cart))
	seenShops := make(map[int64]bool, len(req.Cart))
	var bookIDs []int64
	seenBooks := make(map[int64]bool)

	for _, group := range req.Cart {
		if !seenShops[group.ShopID] {
			seenShops[group.ShopID] = true
			shopIDs = append(shopIDs, group.ShopID)
		}
		for _, item := range group.Items {
			if item.Quantity <= 0 {
				return nil, ErrInvalidQuantity
			}
			if !seenBooks[item.BookID] {
				seenBooks[item.BookID] = true
				bookIDs = append(bookIDs, item.BookID)
			}
		}
	}

	shops, err := s.catalog.FindShopsByIDs(ctx, shopIDs)
	if err != nil {
		return nil, errors.Wrap(err, "fetch shops")
	}
	books, err := s.catalog.FindBooksByIDs(ctx, bookIDs)
	if err != nil {
		return nil, errors.Wrap(err, "fetch books")
	}

	shopSet := make(map[int64]bool, len(shops))
	for _, sh := range shops {
		shopSet[sh.ID] = true
	}
	bookMap := make(map[int64]int, len(books))
	for i, b := range books {
		bookMap[b.ID] = i
	}

	pr := &pricing{
		groups:  req.Cart,
		details: make([]Detail, 0, len(req.Cart)),
		states:  make([]coupon.CartState, 0, len(req.Cart)),
		address: req.Address,
	}

	for _, group := range req.Cart {
		if !shopSet[group.ShopID] {
			return nil, ErrShopNotFound
		}

		shippingType := group.ShippingType
		if shippingType == "" {
			shippingType = ShippingStandard
		}

		subtotal := decimal.Zero
		itemDiscount := decimal.Zero
		totalQuantity := 0
		items := make([]Item, 0, len(group.Items))

		for _, item := range group.Items {
			idx, ok := bookMap[item.BookID]
			if !ok {
				return nil, ErrBookNotFound
			}
			book := books[idx]
			if item.Quantity > book.Amount {
				return nil, ErrOutOfStock
			}

			qty := decimal.NewFromInt(int64(item.Quantity))
			subtotal = subtotal.Add(book.Price.Mul(qty))
			itemDiscount = itemDiscount.Add(book.Price.Mul(book.Discount).Mul(qty))
			totalQuantity += item.Quantity

			items = append(items, Item{
				BookID:   book.ID,
				Quantity: item.Quantity,
				Price:    book.Price,
				Discount: book.Discount,
			})
		}

		fee := ShippingFee(shippingType)
		pr.details = append(pr.details, Detail{
			ShopID:        group.ShopID,
			Status:        StatusPending,
			TotalPrice:    subtotal.Round(2),
			ShippingFee:   fee,
			Discount:      itemDiscount.Round(2),
			TotalQuantity: totalQuantity,
			ShippingType:  shippingType,
			Note:          group.Note,
			CouponCode:    group.Coupon,
			Items:         items,
		})
		pr.states = append(pr.states, coupon.CartState{
			TotalPrice:    subtotal,
			ShippingFee:   fee,
			TotalQuantity: totalQuantity,
		})
	}

	return pr, nil
}

// applyCoupons resolves every coupon code in the cart (one buyer-wide plus at
// most one per shop group), enforces the fixed validation order
// (code found, then usage, then applicability), and folds the discounts into
// the priced details. It returns the receipt-level discount from the
// buyer-wide coupon and the usages to mark consumed at checkout.
//
// Codes match case-insensitively, same as the stored lookup, and each code
// may appear at most once per cart: a repeated code would double-apply its
// discount, so it is rejected as invalid.
func (s *Service) applyCoupons(ctx context.Context, pr *pricing, orderCode string, buyer Account) (coupon.Discount, []CouponUsage, error) {
	codes := make([]string, 0, len(pr.groups)+1)
	seen := make(map[string]bool, len(pr.groups)+1)
	groupCodes := make([]string, len(pr.groups))
	for i, group := range pr.groups {
		if group.Coupon == "" {
			continue
		}
		code := strings.ToUpper(group.Coupon)
		if seen[code] {
			return coupon.Discount{}, nil, ErrInvalidCoupon
		}
		seen[code] = true
		groupCodes[i] = code
		codes = append(codes, code)
	}
	orderCode = strings.ToUpper(orderCode)
	if orderCode != "" {
		if seen[orderCode] {
			return coupon.Discount{}, nil, ErrInvalidCoupon
		}
		codes = append(codes, orderCode)
	}

	found, err := s.coupons.FindByCodes(ctx, codes)
	if err != nil {
		return coupon.Discount{}, nil, errors.Wrap(err, "fetch coupons")
	}
	byCode := make(map[string]coupon.Coupon, len(found))
	for _, c := range found {
		byCode[strings.ToUpper(c.Code)] = c
	}

	var usages []CouponUsage

	for i, group := range pr.groups {
		if groupCodes[i] == "" {
			continue
		}
		c, ok := byCode[groupCodes[i]]
		if !ok {
			return coupon.Discount{}, nil, ErrInvalidCoupon
		}
		// Shop coupons only apply to their own shop's group.
		if c.ShopID != nil && *c.ShopID != group.ShopID {
			return coupon.Discount{}, nil, ErrInvalidCoupon
		}

		disc, err := s.resolveDiscount(ctx, c, pr.states[i], buyer)
		if err != nil {
			return coupon.Discount{}, nil, err
		}

		d := &pr.details[i]
		d.Discount = d.Discount.Add(disc.Value).Round(2)
		d.ShippingDiscount = decimal.Min(disc.ShippingValue, d.ShippingFee).Round(2)
		usages = append(usages, CouponUsage{UserID: buyer.ID, CouponID: c.ID})
	}

	if orderCode == "" {
		return coupon.Discount{}, usages, nil
	}

	c, ok := byCode[orderCode]
	if !ok {
		return coupon.Discount{}, nil, ErrInvalidCoupon
	}
	// The buyer-wide coupon must be platform scoped.
	if c.ShopID != nil {
		return coupon.Discount{}, nil, ErrInvalidCoupon
	}

	state := coupon.CartState{}
	for _, st := range pr.states {
		state.TotalPrice = state.TotalPrice.Add(st.TotalPrice)
		state.ShippingFee = state.ShippingFee.Add(st.ShippingFee)
		state.TotalQuantity += st.TotalQuantity
	}

	disc, err := s.resolveDiscount(ctx, c, state, buyer)
	if err != nil {
		return coupon.Discount{}, nil, err
	}
	usages = append(usages, CouponUsage{UserID: buyer.ID, CouponID: c.ID})

	return *disc, usages, nil
}

// resolveDiscount runs the usage check before applicability: a coupon the
// buyer already consumed reports "Coupon expired!" even when it would not
// have applied to this cart anyway.
func (s *Service) resolveDiscount(ctx context.Context, c coupon.Coupon, state coupon.CartState, buyer Account) (*coupon.Discount, error) {
	used, err := s.coupons.HasUserUsed(ctx, buyer.ID, c.ID)
	if err != nil {
		return nil, errors.Wrap(err, "check coupon usage")
	}
	if used {
		return nil, ErrCouponExpired
	}

	disc, err := s.applier.Apply(ctx, c, state, buyer.ID)
	if err != nil {
		return nil, errors.Wrap(err, "apply coupon")
	}
	if disc == nil {
		return nil, ErrInvalidCoupon
	}
	return disc, nil
}

// assemble folds the priced details and the buyer-wide discount into an
// unsaved receipt graph. Total = ProductsPrice + ShippingFee - TotalDiscount,
// floored at zero and rounded to 2 decimal places.
func (s *Service) assemble(pr *pricing, orderDiscount coupon.Discount, buyer Account) *Receipt {
	productsPrice := decimal.Zero
	shippingFee := decimal.Zero
	totalDiscount := orderDiscount.Value.Add(orderDiscount.ShippingValue)

	for _, d := range pr.details {
		productsPrice = productsPrice.Add(d.TotalPrice)
		shippingFee = shippingFee.Add(d.ShippingFee)
		totalDiscount = totalDiscount.Add(d.Discount).Add(d.ShippingDiscount)
	}
	totalDiscount = totalDiscount.Round(2)

	total := productsPrice.Add(shippingFee).Sub(totalDiscount)
	if total.IsNegative() {
		total = decimal.Zero
	}

	return &Receipt{
		UserID: buyer.ID,
		Email:  buyer.Email,
		Address: Address{
			Name:        pr.address.Name,
			CompanyName: pr.address.CompanyName,
			Phone:       pr.address.Phone,
			City:        pr.address.City,
			Address:     pr.address.Address,
		},
		Total:         total.Round(2),
		ProductsPrice: productsPrice.Round(2),
		ShippingFee:   shippingFee.Round(2),
		TotalDiscount: totalDiscount,
		CouponCode:    "",
		Details:       pr.details,
	}
}

// Calculate prices a cart, applies coupons, and returns the resulting
// receipt projection without persisting anything.
func (s *Service) Calculate(ctx context.Context, req CalculateRequest, buyer Account) (*ReceiptView, error) {
	pr, err := s.price(ctx, req)
	if err != nil {
		return nil, err
	}

	orderDiscount, _, err := s.applyCoupons(ctx, pr, req.Coupon, buyer)
	if err != nil {
		return nil, err
	}

	receipt := s.assemble(pr, orderDiscount, buyer)
	receipt.CouponCode = req.Coupon
	view := ViewOf(receipt)
	return &view, nil
}
