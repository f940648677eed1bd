package order

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetReceipt_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.GetReceipt(context.Background(), 42)
	require.ErrorIs(t, err, ErrReceiptNotFound)
}

func TestGetReceipt_Success(t *testing.T) {
	env := newTestEnv()
	env.receipts.byID = &Receipt{
		ID:     1,
		UserID: 1,
		Email:  "test@example.com",
		Total:  dec("100"),
		Details: []Detail{{
			ID:        1,
			ReceiptID: 1,
			ShopID:    1,
			Status:    StatusPending,
			Items:     []Item{{ID: 1, DetailID: 1, BookID: 1, Quantity: 1, Price: dec("100")}},
		}},
	}

	view, err := env.svc.GetReceipt(context.Background(), 1)
	require.NoError(t, err)
	assert.Equal(t, int64(1), view.ID)
	require.Len(t, view.Details, 1)
	require.Len(t, view.Details[0].Items, 1)
}

func TestGetAllReceipts_GroupsDetails(t *testing.T) {
	env := newTestEnv()
	env.receipts.page = []Receipt{{ID: 1}, {ID: 2}}
	env.receipts.pageTotal = 2
	env.details.byReceipt = []Detail{
		{ID: 10, ReceiptID: 1},
		{ID: 11, ReceiptID: 1},
		{ID: 12, ReceiptID: 2},
	}

	page, err := env.svc.GetAllReceipts(context.Background(), testBuyer, nil, nil, "", PageRequest{})
	require.NoError(t, err)

	assert.Equal(t, int64(2), page.TotalElements)
	require.Len(t, page.Content, 2)
	assert.Len(t, page.Content[0].Details, 2)
	assert.Len(t, page.Content[1].Details, 1)
}

func TestGetAllReceipts_AdminSeesAll(t *testing.T) {
	env := newTestEnv()
	admin := Account{ID: 9, Roles: []Role{RoleAdmin}}

	assert.Nil(t, scopeUser(admin))

	_, err := env.svc.GetAllReceipts(context.Background(), admin, nil, nil, "", PageRequest{})
	require.NoError(t, err)
}

func TestScopeUser_NonAdmin(t *testing.T) {
	user := Account{ID: 7, Roles: []Role{RoleUser}}

	scoped := scopeUser(user)
	require.NotNil(t, scoped)
	assert.Equal(t, int64(7), *scoped)
}

func TestGetOrderDetail_NotFound(t *testing.T) {
	env := newTestEnv()

	_, err := env.svc.GetOrderDetail(context.Background(), 42, testBuyer)
	require.ErrorIs(t, err, ErrDetailNotFound)
	assert.Zero(t, env.items.calls)
}

func TestGetOrderDetail_AttachesItems(t *testing.T) {
	env := newTestEnv()
	env.details.view = &DetailView{ID: 1, ReceiptID: 1, Status: StatusPending}
	env.items.items = []Item{
		{ID: 1, DetailID: 1, BookID: 1, Quantity: 2, Price: dec("50")},
	}

	view, err := env.svc.GetOrderDetail(context.Background(), 1, testBuyer)
	require.NoError(t, err)
	require.Len(t, view.Items, 1)
	assert.Equal(t, 2, view.Items[0].Quantity)
	assert.Equal(t, 1, env.items.calls)
}

func TestGetOrdersByUser_Paginates(t *testing.T) {
	env := newTestEnv()
	env.details.page = []Detail{{ID: 1, ReceiptID: 1}}
	env.details.pageTotal = 25

	page, err := env.svc.GetOrdersByUser(context.Background(), testBuyer, nil, "", PageRequest{Page: 2, Size: 10})
	require.NoError(t, err)

	assert.Equal(t, int64(25), page.TotalElements)
	assert.Equal(t, 2, page.Page)
	assert.Equal(t, 10, page.Size)
	require.Len(t, page.Content, 1)
}

func TestGetOrdersByBookID_AttachesItems(t *testing.T) {
	env := newTestEnv()
	env.details.page = []Detail{{ID: 5, ReceiptID: 3}}
	env.details.pageTotal = 1
	env.items.items = []Item{{ID: 1, DetailID: 5, BookID: 9, Quantity: 1, Price: dec("10")}}

	page, err := env.svc.GetOrdersByBookID(context.Background(), 9, PageRequest{})
	require.NoError(t, err)
	require.Len(t, page.Content, 1)
	require.Len(t, page.Content[0].Items, 1)
	assert.Equal(t, int64(9), page.Content[0].Items[0].BookID)
}

func TestGetAnalytics(t *testing.T) {
	env := newTestEnv()
	env.details.stat = &SalesStat{TotalOrders: 3, TotalRevenue: dec("300")}

	stat, err := env.svc.GetAnalytics(context.Background(), testBuyer, nil)
	require.NoError(t, err)
	assert.Equal(t, int64(3), stat.TotalOrders)
	assert.True(t, dec("300").Equal(stat.TotalRevenue))
}

func TestGetMonthlySales(t *testing.T) {
	env := newTestEnv()
	env.receipts.chart = []ChartPoint{{Month: 1, Revenue: dec("10")}, {Month: 2, Revenue: dec("20")}}

	points, err := env.svc.GetMonthlySales(context.Background(), testBuyer, nil, 2026)
	require.NoError(t, err)
	require.Len(t, points, 2)
	assert.Equal(t, 2, points[1].Month)
}

func TestPageRequest_Normalize(t *testing.T) {
	p := PageRequest{}.Normalize()
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, 10, p.Size)
	assert.Equal(t, "id", p.SortBy)
	assert.Equal(t, "desc", p.SortDir)

	p = PageRequest{Page: -1, Size: 1000, SortDir: "up"}.Normalize()
	assert.Equal(t, 0, p.Page)
	assert.Equal(t, 100, p.Size)
	assert.Equal(t, "desc", p.SortDir)

	p = PageRequest{Page: 3, Size: 20, SortBy: "total", SortDir: "asc"}.Normalize()
	assert.Equal(t, 60, p.Offset())
	assert.Equal(t, "asc", p.SortDir)
}
