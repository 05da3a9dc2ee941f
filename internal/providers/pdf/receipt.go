// Package pdf renders downloadable expense receipts.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
	expensedomain "github.com/tabshare/tabshare/internal/expense/domain"
	groupdomain "github.com/tabshare/tabshare/internal/group/domain"
	"go.uber.org/zap"
)

type Provider struct {
	log *zap.Logger
}

func NewProvider(log *zap.Logger) *Provider {
	return &Provider{log: log.Named("pdf")}
}

// ReceiptData carries one expense plus display names resolved by the
// caller.
type ReceiptData struct {
	Group     *groupdomain.Group
	Expense   *expensedomain.Expense
	UserNames map[string]string
}

func (d ReceiptData) nameFor(id fmt.Stringer) string {
	if name, ok := d.UserNames[id.String()]; ok {
		return name
	}
	return id.String()
}

// GenerateReceipt renders an expense with its items and per-user shares.
func (p *Provider) GenerateReceipt(_ context.Context, data ReceiptData) (io.Reader, error) {
	if data.Expense == nil || data.Group == nil {
		return nil, fmt.Errorf("receipt requires group and expense")
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(8, "Expense receipt", props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
		text.NewCol(4, data.Group.Name, props.Text{
			Size:  12,
			Align: align.Right,
			Top:   4,
		}),
	)

	m.AddRow(18,
		col.New(8).Add(
			text.New(data.Expense.Description, props.Text{Style: fontstyle.Bold}),
			text.New("Paid by "+data.nameFor(data.Expense.PaidBy), props.Text{Top: 5, Size: 9}),
			text.New(data.Expense.CreatedAt.Format("Jan 2, 2006"), props.Text{Top: 9, Size: 9}),
		),
		text.NewCol(4, data.Expense.Amount.String()+" "+data.Group.Currency, props.Text{
			Size:  14,
			Style: fontstyle.Bold,
			Align: align.Right,
		}),
	)

	if len(data.Expense.Items) > 0 {
		m.AddRow(8,
			text.NewCol(6, "Item", props.Text{Style: fontstyle.Bold, Size: 9}),
			text.NewCol(2, "Qty", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Price", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
			text.NewCol(2, "Shared", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
		)
		for _, item := range data.Expense.Items {
			shared := ""
			if item.SharedCost {
				shared = "yes"
			}
			m.AddRow(8,
				text.NewCol(6, item.Name, props.Text{Size: 9}),
				text.NewCol(2, fmt.Sprintf("%d", item.Quantity), props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, item.Price.String(), props.Text{Size: 9, Align: align.Right}),
				text.NewCol(2, shared, props.Text{Size: 9, Align: align.Right}),
			)
		}
		m.AddRow(4, line.NewCol(12))
	}

	m.AddRow(8,
		text.NewCol(8, "Owed by", props.Text{Style: fontstyle.Bold, Size: 9}),
		text.NewCol(4, "Share", props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right}),
	)
	for _, share := range data.Expense.Splits {
		m.AddRow(8,
			text.NewCol(8, data.nameFor(share.UserID), props.Text{Size: 9}),
			text.NewCol(4, share.Amount.String(), props.Text{Size: 9, Align: align.Right}),
		)
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("render receipt: %w", err)
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
