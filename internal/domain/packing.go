package domain

import "errors"

var ErrNothingToPack = errors.New("order has nothing left to pack")

// PackageType represents the suggested packaging
type PackageType string

const (
	PackageTypeEnvelope PackageType = "envelope"
	PackageTypeSmallBox PackageType = "small_box"
	PackageTypeBox      PackageType = "box"
	PackageTypeLargeBox PackageType = "large_box"
)

// PackingLine is one order line reconciled against its back-order state
type PackingLine struct {
	SKU            string  `json:"sku"`
	LineQuantity   int     `json:"lineQuantity"`
	QuantityToPack int     `json:"quantityToPack"`
	AlreadyShipped int     `json:"alreadyShipped"`
	UnitPrice      float64 `json:"unitPrice"`
}

// PackingInfo carries weight, volume and box suggestions for the plan
type PackingInfo struct {
	TotalUnits    int         `json:"totalUnits"`
	TotalWeightKg float64     `json:"totalWeightKg"`
	TotalVolume   float64     `json:"totalVolumeCm3"`
	SuggestedBox  PackageType `json:"suggestedBox"`
}

// PackingPlan is the output of packing reconciliation for one order
type PackingPlan struct {
	OrderID string        `json:"orderId"`
	Lines   []PackingLine `json:"items"`
	Packing PackingInfo   `json:"packingInfo"`
}

// BuildPackingPlan reconciles each order line against its back orders and
// computes what remains to be packed. The computation is pure: identical
// inputs always yield an identical plan, and nothing is written.
//
// Classification per line:
//   - back order picking/picked/packed: pack the remainder the floor is
//     working on, quantityToPack = backOrderQty - backOrderFulfilled
//   - back order pending/allocated: pack the shortfall-adjusted quantity,
//     quantityToPack = lineQty - outstanding back-order quantity
//   - back order fulfilled: nothing left, the whole line already shipped
//   - no back order: pack the whole line
func BuildPackingPlan(order *Order, backOrders []*BackOrder) (*PackingPlan, error) {
	bySKU := make(map[string]*BackOrder, len(backOrders))
	for _, bo := range backOrders {
		if bo.OrderID == order.OrderID {
			bySKU[bo.SKU] = bo
		}
	}

	lines := make([]PackingLine, 0, len(order.Lines))
	info := PackingInfo{}

	for _, line := range order.Lines {
		toPack := line.Quantity
		shipped := 0

		if bo, ok := bySKU[line.SKU]; ok {
			switch {
			case bo.Status.InProgress():
				toPack = bo.QuantityBackOrdered - bo.QuantityFulfilled
				shipped = line.Quantity - toPack
			case bo.Status == BackOrderStatusFulfilled:
				toPack = 0
				shipped = line.Quantity
			default: // pending or allocated
				toPack = line.Quantity - bo.Outstanding()
			}
		}

		if toPack <= 0 {
			continue
		}

		lines = append(lines, PackingLine{
			SKU:            line.SKU,
			LineQuantity:   line.Quantity,
			QuantityToPack: toPack,
			AlreadyShipped: shipped,
			UnitPrice:      line.UnitPrice,
		})
		info.TotalUnits += toPack
		info.TotalWeightKg += line.UnitWeightKg * float64(toPack)
		info.TotalVolume += line.UnitVolumeCm3 * float64(toPack)
	}

	if len(lines) == 0 {
		return nil, ErrNothingToPack
	}

	info.SuggestedBox = suggestPackageType(info.TotalWeightKg, info.TotalVolume)

	return &PackingPlan{
		OrderID: order.OrderID,
		Lines:   lines,
		Packing: info,
	}, nil
}

func suggestPackageType(weightKg, volumeCm3 float64) PackageType {
	switch {
	case weightKg < 0.5 && volumeCm3 < 1000:
		return PackageTypeEnvelope
	case volumeCm3 < 8000:
		return PackageTypeSmallBox
	case volumeCm3 < 40000:
		return PackageTypeBox
	default:
		return PackageTypeLargeBox
	}
}
