package export

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/joseph-ayodele/warranty-tracker/internal/entity"
)

type fakeProducts struct {
	rows []entity.Product
	err  error
}

func (f fakeProducts) ListForUser(context.Context, uuid.UUID) ([]entity.Product, error) {
	return f.rows, f.err
}

func day(s string) *time.Time {
	t, err := time.Parse(time.DateOnly, s)
	if err != nil {
		panic(err)
	}
	return &t
}

func readRows(t *testing.T, data []byte) [][]string {
	t.Helper()
	f, err := excelize.OpenReader(bytes.NewReader(data))
	require.NoError(t, err)
	defer func() { _ = f.Close() }()
	rows, err := f.GetRows(sheet)
	require.NoError(t, err)
	return rows
}

func TestProductsXLSX(t *testing.T) {
	products := []entity.Product{
		{
			Title:        "냉장고",
			Store:        entity.Ptr("하이마트"),
			Amount:       entity.Ptr(int64(1290000)),
			PurchaseDate: day("2024-03-02"),
			ASContact:    entity.Ptr("문의 010-1234-5678"),
			OrderID:      entity.Ptr("카드 1234-5678-9012-3456"),
			ImagePath:    "/data/a.png",
		},
		{Title: "TV", PurchaseDate: day("2023-12-31"), ImagePath: "/data/b.pdf"},
		{Title: "미분류 제품", ImagePath: "/data/c.jpg"},
	}
	svc := NewService(fakeProducts{rows: products}, false, nil)

	tests := []struct {
		name      string
		from, to  *time.Time
		wantTitle []string
	}{
		{name: "all", wantTitle: []string{"냉장고", "TV", "미분류 제품"}},
		{name: "from only", from: day("2024-01-01"), wantTitle: []string{"냉장고"}},
		{name: "to only", to: day("2023-12-31"), wantTitle: []string{"TV"}},
		{name: "window", from: day("2023-01-01"), to: day("2024-12-31"), wantTitle: []string{"냉장고", "TV"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			data, err := svc.ProductsXLSX(context.Background(), uuid.New(), tt.from, tt.to)
			require.NoError(t, err)
			rows := readRows(t, data)
			require.Len(t, rows, len(tt.wantTitle)+1)
			assert.Equal(t, headers, rows[0])
			for i, want := range tt.wantTitle {
				assert.Equal(t, want, rows[i+1][1])
			}
		})
	}

	t.Run("cells are redacted", func(t *testing.T) {
		data, err := svc.ProductsXLSX(context.Background(), uuid.New(), nil, nil)
		require.NoError(t, err)
		first := readRows(t, data)[1]
		assert.Equal(t, "2024-03-02", first[0])
		assert.Equal(t, "1290000", first[4])
		assert.NotContains(t, first[5], "1234-5678-9012")
		assert.Contains(t, first[5], "3456")
		assert.NotContains(t, first[8], "010-1234")
	})
}

func TestProductsXLSX_ListError(t *testing.T) {
	svc := NewService(fakeProducts{err: errors.New("db down")}, false, nil)
	_, err := svc.ProductsXLSX(context.Background(), uuid.New(), nil, nil)
	require.ErrorContains(t, err, "query products")
}
