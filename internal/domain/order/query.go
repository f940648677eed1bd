package order

import (
	"context"

	"github.com/go-faster/errors"
)

// scopeUser returns the user filter for a query: admins see everything,
// everyone else is scoped to their own account.
func scopeUser(actor Account) *int64 {
	if actor.HasRole(RoleAdmin) {
		return nil
	}
	id := actor.ID
	return &id
}

// GetReceipt loads a full receipt graph by ID.
func (s *Service) GetReceipt(ctx context.Context, id int64) (*ReceiptView, error) {
	r, err := s.receipts.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil {
		return nil, ErrReceiptNotFound
	}
	view := ViewOf(r)
	return &view, nil
}

// GetAllReceipts lists receipts with their details, filtered by shop, status
// and free-text search, scoped to the actor unless they are an admin.
func (s *Service) GetAllReceipts(ctx context.Context, actor Account, shopID *int64, status *Status, keyword string, p PageRequest) (Page[ReceiptView], error) {
	p = p.Normalize()

	receipts, total, err := s.receipts.FindPage(ctx, ReceiptFilter{
		UserID:  scopeUser(actor),
		ShopID:  shopID,
		Status:  status,
		Keyword: keyword,
	}, p)
	if err != nil {
		return Page[ReceiptView]{}, errors.Wrap(err, "find receipts")
	}

	ids := make([]int64, len(receipts))
	for i := range receipts {
		ids[i] = receipts[i].ID
	}
	details, err := s.details.FindAllByReceiptIDs(ctx, ids)
	if err != nil {
		return Page[ReceiptView]{}, errors.Wrap(err, "find details")
	}

	byReceipt := make(map[int64][]Detail, len(receipts))
	for _, d := range details {
		byReceipt[d.ReceiptID] = append(byReceipt[d.ReceiptID], d)
	}

	views := make([]ReceiptView, len(receipts))
	for i := range receipts {
		receipts[i].Details = byReceipt[receipts[i].ID]
		views[i] = ViewOf(&receipts[i])
	}
	return NewPage(views, total, p), nil
}

// GetSummaries lists compact receipt summaries for dashboards.
func (s *Service) GetSummaries(ctx context.Context, actor Account, shopID, bookID *int64, p PageRequest) (Page[ReceiptSummary], error) {
	p = p.Normalize()

	summaries, total, err := s.receipts.FindSummaryPage(ctx, SummaryFilter{
		ShopID: shopID,
		UserID: scopeUser(actor),
		BookID: bookID,
	}, p)
	if err != nil {
		return Page[ReceiptSummary]{}, errors.Wrap(err, "find summaries")
	}
	return NewPage(summaries, total, p), nil
}

// GetOrdersByBookID lists the sub-orders that contain a given book.
func (s *Service) GetOrdersByBookID(ctx context.Context, bookID int64, p PageRequest) (Page[DetailView], error) {
	p = p.Normalize()

	details, total, err := s.details.FindPageByBookID(ctx, bookID, p)
	if err != nil {
		return Page[DetailView]{}, errors.Wrap(err, "find orders by book")
	}
	views, err := s.attachItems(ctx, details)
	if err != nil {
		return Page[DetailView]{}, err
	}
	return NewPage(views, total, p), nil
}

// GetOrdersByUser lists the actor's own sub-orders, optionally filtered by
// status and free-text search.
func (s *Service) GetOrdersByUser(ctx context.Context, actor Account, status *Status, keyword string, p PageRequest) (Page[DetailView], error) {
	p = p.Normalize()

	details, total, err := s.details.FindPageByUser(ctx, actor.ID, status, keyword, p)
	if err != nil {
		return Page[DetailView]{}, errors.Wrap(err, "find orders by user")
	}
	views, err := s.attachItems(ctx, details)
	if err != nil {
		return Page[DetailView]{}, err
	}
	return NewPage(views, total, p), nil
}

// GetOrderDetail loads a single sub-order with its items. Non-admin actors
// only see sub-orders that belong to them.
func (s *Service) GetOrderDetail(ctx context.Context, detailID int64, actor Account) (*DetailView, error) {
	view, err := s.details.FindView(ctx, detailID, scopeUser(actor))
	if err != nil {
		return nil, err
	}
	if view == nil {
		return nil, ErrDetailNotFound
	}

	items, err := s.items.FindAllByDetailIDs(ctx, []int64{detailID})
	if err != nil {
		return nil, errors.Wrap(err, "find items")
	}
	view.Items = make([]ItemView, len(items))
	for i, it := range items {
		view.Items[i] = viewOfItem(it)
	}
	return view, nil
}

// GetAnalytics returns the sales stat for a shop (or the whole platform for
// admins when shopID is nil).
func (s *Service) GetAnalytics(ctx context.Context, actor Account, shopID *int64) (*SalesStat, error) {
	stat, err := s.details.SalesAnalytics(ctx, shopID, scopeUser(actor))
	if err != nil {
		return nil, errors.Wrap(err, "sales analytics")
	}
	return stat, nil
}

// GetMonthlySales returns the 12-bucket revenue chart for a year.
func (s *Service) GetMonthlySales(ctx context.Context, actor Account, shopID *int64, year int) ([]ChartPoint, error) {
	points, err := s.receipts.MonthlySales(ctx, shopID, scopeUser(actor), year)
	if err != nil {
		return nil, errors.Wrap(err, "monthly sales")
	}
	return points, nil
}

// attachItems bulk-loads items for a page of details and maps to views.
func (s *Service) attachItems(ctx context.Context, details []Detail) ([]DetailView, error) {
	ids := make([]int64, len(details))
	for i := range details {
		ids[i] = details[i].ID
	}
	items, err := s.items.FindAllByDetailIDs(ctx, ids)
	if err != nil {
		return nil, errors.Wrap(err, "find items")
	}

	byDetail := make(map[int64][]Item, len(details))
	for _, it := range items {
		byDetail[it.DetailID] = append(byDetail[it.DetailID], it)
	}

	views := make([]DetailView, len(details))
	for i := range details {
		details[i].Items = byDetail[details[i].ID]
		views[i] = viewOfDetail(details[i])
	}
	return views, nil
}
