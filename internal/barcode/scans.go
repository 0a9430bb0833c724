package barcode

import (
	"strconv"
	"time"
)

const pickupLayout = "20060102150405"

// PickupRoute is the 54 character pickup-route checksheet.
type PickupRoute struct {
	Plant       string    `json:"plant"`
	Dock        string    `json:"dock"`
	Supplier    string    `json:"supplier"`
	OrderNumber string    `json:"order"`
	Route       string    `json:"route"`
	PickupAt    time.Time `json:"pickup_at"`
}

func DecodePickupRoute(raw string) (PickupRoute, error) {
	f, err := Decode(KindPickupRoute, raw)
	if err != nil {
		return PickupRoute{}, err
	}

	pickup, err := parsePickup(f[FieldPickup])
	if err != nil {
		return PickupRoute{}, err
	}

	return PickupRoute{
		Plant:       f[FieldPlant],
		Dock:        f[FieldDock],
		Supplier:    f[FieldSupplier],
		OrderNumber: f[FieldOrder],
		Route:       f[FieldRoute],
		PickupAt:    pickup,
	}, nil
}

// Pickup times are printed in plant local time without a zone; they are kept
// as UTC wall-clock values so decoding stays independent of the host zone.
func parsePickup(value string) (time.Time, error) {
	invalid := &DecodeError{Kind: KindPickupRoute, Field: FieldPickup, Value: value, Err: ErrInvalidTimestamp}
	if len(value) != len(pickupLayout) {
		return time.Time{}, invalid
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return time.Time{}, invalid
		}
	}
	t, err := time.ParseInLocation(pickupLayout, value, time.UTC)
	if err != nil {
		return time.Time{}, invalid
	}
	return t, nil
}

// Manifest is the 44 character Toyota skid manifest.
type Manifest struct {
	Plant         string `json:"plant"`
	Supplier      string `json:"supplier"`
	Dock          string `json:"dock"`
	OrderNumber   string `json:"order"`
	LoadID        string `json:"load_id"`
	Palletization string `json:"palletization"`
	MROS          string `json:"mros"`
	SkidID        string `json:"skid_id"`
	SkidNumber    string `json:"skid_number"`
	SkidSide      string `json:"skid_side"`
}

func DecodeManifest(raw string) (Manifest, error) {
	f, err := Decode(KindManifest, raw)
	if err != nil {
		return Manifest{}, err
	}

	number, side := SplitSkidID(f[FieldSkidID])

	return Manifest{
		Plant:         f[FieldPlant],
		Supplier:      f[FieldSupplier],
		Dock:          f[FieldDock],
		OrderNumber:   f[FieldOrder],
		LoadID:        f[FieldLoadID],
		Palletization: f[FieldPalletization],
		MROS:          f[FieldMROS],
		SkidID:        f[FieldSkidID],
		SkidNumber:    number,
		SkidSide:      side,
	}, nil
}

// SplitSkidID splits a skid id into its number (all but the last character)
// and side (the last character).
func SplitSkidID(skidID string) (number, side string) {
	if len(skidID) < 2 {
		return skidID, ""
	}
	return skidID[:len(skidID)-1], skidID[len(skidID)-1:]
}

// Kanban is the long Toyota kanban label.
type Kanban struct {
	Plant        string `json:"plant"`
	Supplier     string `json:"supplier"`
	Dock         string `json:"dock"`
	KanbanNumber string `json:"kanban"`
	PartNumber   string `json:"part_number"`
	QtyPerBox    int    `json:"qty_per_box"`
	OrderNumber  string `json:"order"`
	BoxSequence  string `json:"box_sequence"`
}

func DecodeKanban(raw string) (Kanban, error) {
	f, err := Decode(KindKanban, raw)
	if err != nil {
		return Kanban{}, err
	}

	qty, err := strconv.Atoi(f[FieldQtyPerBox])
	if err != nil || qty < 0 {
		return Kanban{}, &DecodeError{Kind: KindKanban, Field: FieldQtyPerBox, Value: f[FieldQtyPerBox], Err: ErrInvalidQuantity}
	}

	return Kanban{
		Plant:        f[FieldPlant],
		Supplier:     f[FieldSupplier],
		Dock:         f[FieldDock],
		KanbanNumber: f[FieldKanban],
		PartNumber:   f[FieldPart],
		QtyPerBox:    qty,
		OrderNumber:  f[FieldOrder],
		BoxSequence:  f[FieldBoxSequence],
	}, nil
}

// InternalKanban is the supplier's own label scanned next to the Toyota kanban.
type InternalKanban struct {
	PartNumber   string `json:"part_number"`
	KanbanNumber string `json:"kanban"`
	Serial       string `json:"serial"`
}

func DecodeInternalKanban(raw string) (InternalKanban, error) {
	f, err := Decode(KindInternalKanban, raw)
	if err != nil {
		return InternalKanban{}, err
	}

	return InternalKanban{
		PartNumber:   f[FieldPart],
		KanbanNumber: f[FieldKanban],
		Serial:       f[FieldSerial],
	}, nil
}
