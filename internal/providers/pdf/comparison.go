package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

const dateLayout = "2006-01-02 15:04"

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateComparison(ctx context.Context, sheet ComparisonSheet) (io.Reader, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(12,
		text.NewCol(12, sheet.Title, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Left,
		}),
	)
	m.AddRow(8,
		col.New(6).Add(
			text.New("Items: "+sheet.Kind, props.Text{Size: 9}),
		),
		col.New(6).Add(
			text.New("Generated: "+sheet.GeneratedAt.UTC().Format(dateLayout), props.Text{Size: 9, Align: align.Right}),
		),
	)

	if len(sheet.Items) == 0 {
		m.AddRow(10, text.NewCol(12, "No items in scope.", props.Text{Size: 10, Top: 3}))
	}

	for _, item := range sheet.Items {
		m.AddRow(10,
			text.NewCol(6, item.Name, props.Text{Size: 11, Style: fontstyle.Bold, Top: 3}),
			text.NewCol(3, item.Organization, props.Text{Size: 9, Top: 4}),
			text.NewCol(3, fmt.Sprintf("%d %s", item.Quantity, item.Unit), props.Text{Size: 9, Top: 4, Align: align.Right}),
		)

		if len(item.Quotes) == 0 {
			m.AddRow(7, col.New(1), text.NewCol(11, "No quotes yet.", props.Text{Size: 8, Style: fontstyle.Italic}))
			continue
		}

		m.AddRow(7,
			col.New(1),
			text.NewCol(4, "Supplier", props.Text{Style: fontstyle.Bold, Size: 8}),
			text.NewCol(3, "Manufacturer", props.Text{Style: fontstyle.Bold, Size: 8}),
			text.NewCol(2, "Price", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
			text.NewCol(2, "Updated", props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Right}),
		)
		for _, quote := range item.Quotes {
			m.AddRow(6,
				col.New(1),
				text.NewCol(4, quote.Supplier, props.Text{Size: 8}),
				text.NewCol(3, quote.Manufacturer, props.Text{Size: 8}),
				text.NewCol(2, quote.Price, props.Text{Size: 8, Align: align.Right}),
				text.NewCol(2, quote.Updated.UTC().Format(dateLayout), props.Text{Size: 8, Align: align.Right}),
			)
		}
	}

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}

	return bytes.NewReader(doc.GetBytes()), nil
}
