package service

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/procura/internal/authorization"
	"github.com/smallbiznis/procura/internal/clock"
	"github.com/smallbiznis/procura/internal/comparison/domain"
	"github.com/smallbiznis/procura/internal/config"
	pricedomain "github.com/smallbiznis/procura/internal/price/domain"
	productdomain "github.com/smallbiznis/procura/internal/product/domain"
	"github.com/smallbiznis/procura/internal/providers/pdf"
	"github.com/smallbiznis/procura/pkg/db/pagination"
	"go.uber.org/fx"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type Params struct {
	fx.In

	DB          *gorm.DB
	Log         *zap.Logger
	Clock       clock.Clock
	Settings    *config.ProcurementHolder
	Authz       authorization.Service
	ProductRepo productdomain.Repository
	PriceRepo   pricedomain.Repository
	PDF         pdf.Provider
}

type Service struct {
	db          *gorm.DB
	log         *zap.Logger
	clock       clock.Clock
	settings    *config.ProcurementHolder
	authz       authorization.Service
	productRepo productdomain.Repository
	priceRepo   pricedomain.Repository
	pdf         pdf.Provider
}

func New(p Params) domain.Service {
	return &Service{
		db:          p.DB,
		log:         p.Log.Named("comparison.service"),
		clock:       p.Clock,
		settings:    p.Settings,
		authz:       p.Authz,
		productRepo: p.ProductRepo,
		priceRepo:   p.PriceRepo,
		pdf:         p.PDF,
	}
}

func (s *Service) List(ctx context.Context, actor authorization.Actor, rawKind string, req domain.ListRequest) (domain.ListResponse, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return domain.ListResponse{}, err
	}
	kind, err := productdomain.ParseKind(rawKind)
	if err != nil {
		return domain.ListResponse{Items: []domain.Item{}}, nil
	}

	page := pagination.Pagination{PageToken: req.PageToken, PageSize: s.settings.PageSize(req.PageSize)}
	return s.project(ctx, actor, kind, page)
}

func (s *Service) ExportPDF(ctx context.Context, actor authorization.Actor, rawKind string) (io.Reader, error) {
	if err := authorization.RequireActor(actor); err != nil {
		return nil, err
	}

	sheet := pdf.ComparisonSheet{
		Title:       s.settings.Get().ComparisonTitle,
		Kind:        rawKind,
		GeneratedAt: s.clock.Now(),
	}

	if kind, err := productdomain.ParseKind(rawKind); err == nil {
		sheet.Kind = string(kind)
		page := pagination.Pagination{PageSize: s.settings.Get().MaxPageSize}
		for {
			resp, err := s.project(ctx, actor, kind, page)
			if err != nil {
				return nil, err
			}
			for _, item := range resp.Items {
				sheet.Items = append(sheet.Items, toSheetItem(item))
			}
			if !resp.HasMore {
				break
			}
			page.PageToken = resp.NextPageToken
		}
	}

	doc, err := s.pdf.GenerateComparison(ctx, sheet)
	if err != nil {
		s.log.Error("failed to render comparison sheet", zap.Error(err), zap.String("kind", sheet.Kind))
		return nil, err
	}
	return doc, nil
}

func (s *Service) project(ctx context.Context, actor authorization.Actor, kind productdomain.Kind, page pagination.Pagination) (domain.ListResponse, error) {
	visible := s.authz.Visible(actor, kind.Object())
	if visible.Empty() {
		return domain.ListResponse{Items: []domain.Item{}}, nil
	}

	items, err := s.productRepo.List(ctx, s.db, kind, visible, productdomain.ListFilter{}, page)
	if err != nil {
		return domain.ListResponse{}, err
	}
	items, pageInfo := pagination.BuildCursorPageInfo(items, page.PageSize, func(item *productdomain.Item) pagination.Cursor {
		return pagination.Cursor{ID: item.ID.Int64(), CreatedAt: item.CreatedAt}
	})

	resp := domain.ListResponse{PageInfo: pageInfo, Items: make([]domain.Item, 0, len(items))}
	if len(items) == 0 {
		return resp, nil
	}

	itemIDs := make([]snowflake.ID, 0, len(items))
	orgIDs := make([]snowflake.ID, 0, len(items))
	for _, item := range items {
		itemIDs = append(itemIDs, item.ID)
		orgIDs = append(orgIDs, item.OrganizationID)
	}

	// Every quote on a visible item is shown, whichever organization the supplier belongs to.
	quotes, err := s.priceRepo.ListByItems(ctx, s.db, kind, itemIDs)
	if err != nil {
		return domain.ListResponse{}, err
	}
	byItem := make(map[snowflake.ID][]domain.Quote, len(items))
	for _, quote := range quotes {
		byItem[quote.ItemID] = append(byItem[quote.ItemID], toQuote(quote))
	}

	orgNames, err := s.organizationNames(ctx, orgIDs)
	if err != nil {
		return domain.ListResponse{}, err
	}

	for _, item := range items {
		prices := byItem[item.ID]
		if prices == nil {
			prices = []domain.Quote{}
		}
		resp.Items = append(resp.Items, domain.Item{
			ID:                  item.ID.String(),
			Kind:                kind,
			OrganizationID:      item.OrganizationID.String(),
			OrganizationName:    orgNames[item.OrganizationID],
			Name:                item.Name,
			Quantity:            item.Quantity,
			Unit:                item.Unit,
			Type:                item.Type,
			ExciseStampRequired: item.ExciseStampRequired,
			LastUpdated:         item.LastUpdated,
			Prices:              prices,
		})
	}
	return resp, nil
}

func (s *Service) organizationNames(ctx context.Context, ids []snowflake.ID) (map[snowflake.ID]string, error) {
	var rows []struct {
		ID   snowflake.ID
		Name string
	}
	err := s.db.WithContext(ctx).Table("organizations").Select("id, name").Where("id IN ?", ids).Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	names := make(map[snowflake.ID]string, len(rows))
	for _, row := range rows {
		names[row.ID] = row.Name
	}
	return names, nil
}

func toQuote(quote *pricedomain.Quote) domain.Quote {
	out := domain.Quote{
		ID:           quote.ID.String(),
		Manufacturer: quote.Manufacturer,
		DateUpdated:  quote.DateUpdated,
		SupplierID:   quote.SupplierID.String(),
		SupplierName: quote.SupplierName,
	}
	if quote.Price.Valid {
		price := quote.Price.Decimal
		out.Price = &price
	}
	return out
}

func toSheetItem(item domain.Item) pdf.ComparisonItem {
	out := pdf.ComparisonItem{
		Name:         item.Name,
		Organization: item.OrganizationName,
		Quantity:     item.Quantity,
		Unit:         item.Unit,
		Quotes:       make([]pdf.ComparisonQuote, 0, len(item.Prices)),
	}
	for _, quote := range item.Prices {
		row := pdf.ComparisonQuote{Supplier: quote.SupplierName, Price: "n/a", Updated: quote.DateUpdated}
		if quote.Price != nil {
			row.Price = quote.Price.StringFixed(2)
		}
		if quote.Manufacturer != nil {
			row.Manufacturer = *quote.Manufacturer
		}
		out.Quotes = append(out.Quotes, row)
	}
	return out
}
