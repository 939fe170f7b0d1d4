package domain

import (
	"errors"
	"strings"

	"github.com/smallbiznis/procura/internal/authorization"
)

// Kind selects between the grocery and alcohol item families.
type Kind string

const (
	KindProduct Kind = "product"
	KindAlcohol Kind = "alcohol"
)

var ErrInvalidKind = errors.New("invalid_kind")

func ParseKind(raw string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "product", "products":
		return KindProduct, nil
	case "alcohol", "alcohol_product", "alcohol-products", "alcohol_products":
		return KindAlcohol, nil
	default:
		return "", ErrInvalidKind
	}
}

func (k Kind) Table() string {
	if k == KindAlcohol {
		return "alcohol_products"
	}
	return "products"
}

func (k Kind) Object() authorization.Object {
	if k == KindAlcohol {
		return authorization.ObjectAlcoholProduct
	}
	return authorization.ObjectProduct
}

// PriceTable is the quote history table for items of this kind.
func (k Kind) PriceTable() string {
	if k == KindAlcohol {
		return "price_alcohol"
	}
	return "prices"
}

// ItemColumn names the item foreign key in quote and request tables.
func (k Kind) ItemColumn() string {
	if k == KindAlcohol {
		return "alcohol_id"
	}
	return "product_id"
}

// ProductTypes lists the accepted grocery categories.
var ProductTypes = []string{"boevka", "grocery", "desserts", "ice", "milk", "sh", "other"}

const DefaultProductType = "other"
