package barcode

import (
	"fmt"
	"strings"
)

type Kind string

const (
	KindPickupRoute    Kind = "pickup_route"
	KindManifest       Kind = "toyota_manifest"
	KindKanban         Kind = "toyota_kanban"
	KindInternalKanban Kind = "internal_kanban"
)

// FieldSpec describes one fixed-position slice of a scan.
type FieldSpec struct {
	Name     string
	Start    int
	Length   int
	Trim     bool
	Required bool
}

func (f FieldSpec) end() int {
	return f.Start + f.Length
}

type Layout struct {
	Kind   Kind
	Length int
	Fields []FieldSpec
}

const (
	FieldPlant         = "plant"
	FieldDock          = "dock"
	FieldSupplier      = "supplier"
	FieldUnused        = "unused"
	FieldOrder         = "order"
	FieldRoute         = "route"
	FieldFiller        = "filler"
	FieldPickup        = "pickup_datetime"
	FieldLoadID        = "load_id"
	FieldPalletization = "palletization"
	FieldMROS          = "mros"
	FieldSkidID        = "skid_id"
	FieldKanban        = "kanban"
	FieldPart          = "part_number"
	FieldQtyPerBox     = "qty_per_box"
	FieldBoxSequence   = "box_sequence"
	FieldSerial        = "serial"
)

var layouts = map[Kind]Layout{
	KindPickupRoute: {
		Kind:   KindPickupRoute,
		Length: 54,
		Fields: []FieldSpec{
			{Name: FieldPlant, Start: 0, Length: 5, Trim: true, Required: true},
			{Name: FieldDock, Start: 5, Length: 2, Trim: true, Required: true},
			{Name: FieldSupplier, Start: 7, Length: 5, Trim: true, Required: true},
			{Name: FieldUnused, Start: 12, Length: 3},
			{Name: FieldOrder, Start: 15, Length: 12, Trim: true, Required: true},
			{Name: FieldRoute, Start: 27, Length: 9, Trim: true, Required: true},
			{Name: FieldFiller, Start: 36, Length: 4},
			{Name: FieldPickup, Start: 40, Length: 14, Trim: true, Required: true},
		},
	},
	KindManifest: {
		Kind:   KindManifest,
		Length: 44,
		Fields: []FieldSpec{
			{Name: FieldPlant, Start: 0, Length: 5, Trim: true, Required: true},
			{Name: FieldSupplier, Start: 5, Length: 5, Trim: true, Required: true},
			{Name: FieldDock, Start: 10, Length: 2, Trim: true, Required: true},
			{Name: FieldOrder, Start: 12, Length: 12, Trim: true, Required: true},
			{Name: FieldLoadID, Start: 24, Length: 12, Trim: true},
			{Name: FieldPalletization, Start: 36, Length: 2, Trim: true, Required: true},
			{Name: FieldMROS, Start: 38, Length: 2, Trim: true},
			{Name: FieldSkidID, Start: 40, Length: 4, Trim: true, Required: true},
		},
	},
	KindKanban: {
		Kind:   KindKanban,
		Length: 60,
		Fields: []FieldSpec{
			{Name: FieldPlant, Start: 0, Length: 5, Trim: true, Required: true},
			{Name: FieldSupplier, Start: 5, Length: 5, Trim: true, Required: true},
			{Name: FieldDock, Start: 10, Length: 2, Trim: true, Required: true},
			{Name: FieldKanban, Start: 12, Length: 4, Trim: true, Required: true},
			{Name: FieldPart, Start: 16, Length: 12, Trim: true, Required: true},
			{Name: FieldQtyPerBox, Start: 28, Length: 5, Trim: true, Required: true},
			{Name: FieldOrder, Start: 33, Length: 12, Trim: true, Required: true},
			{Name: FieldBoxSequence, Start: 45, Length: 5, Trim: true},
			{Name: FieldFiller, Start: 50, Length: 10},
		},
	},
	KindInternalKanban: {
		Kind:   KindInternalKanban,
		Length: 30,
		Fields: []FieldSpec{
			{Name: FieldPart, Start: 0, Length: 12, Trim: true, Required: true},
			{Name: FieldKanban, Start: 12, Length: 4, Trim: true, Required: true},
			{Name: FieldSerial, Start: 16, Length: 10, Trim: true, Required: true},
			{Name: FieldFiller, Start: 26, Length: 4},
		},
	},
}

// LayoutFor returns the fixed layout registered for kind.
func LayoutFor(kind Kind) (Layout, bool) {
	l, ok := layouts[kind]
	return l, ok
}

// Fields holds the sliced values of one scan keyed by field name.
type Fields map[string]string

// Decode slices raw according to the layout of kind. It never returns a
// partially filled result: on any error the Fields value is nil.
func Decode(kind Kind, raw string) (Fields, error) {
	layout, ok := layouts[kind]
	if !ok {
		return nil, &DecodeError{Kind: kind, Err: ErrUnknownKind}
	}

	if len(raw) < layout.Length {
		return nil, &DecodeError{Kind: kind, Err: ErrWrongLength, Want: layout.Length, Got: len(raw)}
	}

	fields := make(Fields, len(layout.Fields))
	for _, field := range layout.Fields {
		value := raw[field.Start:field.end()]
		var blank bool
		if field.Trim {
			value = strings.TrimSpace(value)
			blank = value == ""
		} else {
			blank = strings.TrimSpace(value) == ""
		}
		if field.Required && blank {
			return nil, &DecodeError{Kind: kind, Field: field.Name, Err: ErrMissingRequiredField}
		}
		fields[field.Name] = value
	}

	return fields, nil
}

// DetectKind guesses the barcode class from its length. Kanban scans are
// usually sent as a pair and are never guessed here.
func DetectKind(raw string) (Kind, bool) {
	switch len(raw) {
	case layouts[KindPickupRoute].Length:
		return KindPickupRoute, true
	case layouts[KindManifest].Length:
		return KindManifest, true
	default:
		return "", false
	}
}

// Encode renders fields back into the fixed layout of kind, left-justifying
// each value and padding with spaces. A value longer than its slot is an
// error.
func Encode(kind Kind, fields Fields) (string, error) {
	layout, ok := layouts[kind]
	if !ok {
		return "", fmt.Errorf("encode %s: %w", kind, ErrUnknownKind)
	}

	buf := []byte(strings.Repeat(" ", layout.Length))
	for _, field := range layout.Fields {
		value := fields[field.Name]
		if len(value) > field.Length {
			return "", fmt.Errorf("encode %s: %s %q is %d characters, slot holds %d: %w",
				kind, field.Name, value, len(value), field.Length, ErrFieldTooLong)
		}
		copy(buf[field.Start:field.end()], value)
	}
	return string(buf), nil
}

// MustEncode is Encode for fixed inputs such as test fixtures. It panics on
// error.
func MustEncode(kind Kind, fields Fields) string {
	raw, err := Encode(kind, fields)
	if err != nil {
		panic(err)
	}
	return raw
}
