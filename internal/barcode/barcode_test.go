package barcode

import (
	"errors"
	"math/rand"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleManifest = "02TMI02806V82023080205  IDVV01      LB05001A"

func TestDecodeManifest(t *testing.T) {
	m, err := DecodeManifest(sampleManifest)
	require.NoError(t, err)

	assert.Equal(t, Manifest{
		Plant:         "02TMI",
		Supplier:      "02806",
		Dock:          "V8",
		OrderNumber:   "2023080205",
		LoadID:        "IDVV01",
		Palletization: "LB",
		MROS:          "05",
		SkidID:        "001A",
		SkidNumber:    "001",
		SkidSide:      "A",
	}, m)
}

func TestDecodeIsDeterministic(t *testing.T) {
	first, err := Decode(KindManifest, sampleManifest)
	require.NoError(t, err)

	for i := 0; i < 10; i++ {
		again, err := Decode(KindManifest, sampleManifest)
		require.NoError(t, err)
		assert.Equal(t, first, again)
	}
}

func TestDecodeWrongLength(t *testing.T) {
	for _, kind := range []Kind{KindPickupRoute, KindManifest, KindKanban, KindInternalKanban} {
		layout, _ := LayoutFor(kind)
		for n := 0; n < layout.Length; n++ {
			raw := strings.Repeat("X", n)
			fields, err := Decode(kind, raw)
			assert.Nil(t, fields, "kind %s length %d", kind, n)
			assert.ErrorIs(t, err, ErrWrongLength, "kind %s length %d", kind, n)
		}
	}
}

func TestDecodeLongerInputIsAccepted(t *testing.T) {
	m, err := DecodeManifest(sampleManifest + "TRAILING")
	require.NoError(t, err)
	assert.Equal(t, "001A", m.SkidID)
}

func TestDecodeMissingRequiredField(t *testing.T) {
	tests := []struct {
		name  string
		raw   string
		field string
	}{
		{
			name:  "blank order",
			raw:   "02TMI02806V8            IDVV01      LB05001A",
			field: FieldOrder,
		},
		{
			name:  "blank skid id",
			raw:   "02TMI02806V82023080205  IDVV01      LB05    ",
			field: FieldSkidID,
		},
		{
			name:  "blank palletization",
			raw:   "02TMI02806V82023080205  IDVV01        05001A",
			field: FieldPalletization,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := DecodeManifest(tt.raw)
			require.ErrorIs(t, err, ErrMissingRequiredField)

			var decodeErr *DecodeError
			require.True(t, errors.As(err, &decodeErr))
			assert.Equal(t, tt.field, decodeErr.Field)
			assert.Contains(t, decodeErr.Error(), tt.field)
		})
	}
}

func TestDecodeManifestOptionalFieldsMayBeBlank(t *testing.T) {
	m, err := DecodeManifest("02TMI02806V82023080205              LB  001A")
	require.NoError(t, err)
	assert.Empty(t, m.LoadID)
	assert.Empty(t, m.MROS)
}

func TestDecodePickupRoute(t *testing.T) {
	raw := "02TMIV802806   2023080205  IDVV01       20230802143000"
	require.Len(t, raw, 54)

	r, err := DecodePickupRoute(raw)
	require.NoError(t, err)

	assert.Equal(t, "02TMI", r.Plant)
	assert.Equal(t, "V8", r.Dock)
	assert.Equal(t, "02806", r.Supplier)
	assert.Equal(t, "2023080205", r.OrderNumber)
	assert.Equal(t, "IDVV01", r.Route)
	assert.Equal(t, time.Date(2023, 8, 2, 14, 30, 0, 0, time.UTC), r.PickupAt)
}

func TestDecodePickupRouteInvalidTimestamp(t *testing.T) {
	tests := []struct {
		name   string
		pickup string
	}{
		{"month out of range", "20231302143000"},
		{"letters", "2023080214300X"},
		{"embedded space", "20230802 43000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw := "02TMIV802806   2023080205  IDVV01       " + tt.pickup
			_, err := DecodePickupRoute(raw)
			require.ErrorIs(t, err, ErrInvalidTimestamp)
			assert.NotErrorIs(t, err, ErrWrongLength)
		})
	}
}

func TestDecodeKanbanPair(t *testing.T) {
	kanbanRaw := MustEncode(KindKanban, Fields{
		FieldPlant:       "02TMI",
		FieldSupplier:    "02806",
		FieldDock:        "V8",
		FieldKanban:      "A123",
		FieldPart:        "681010E01000",
		FieldQtyPerBox:   "00010",
		FieldOrder:       "2023080205",
		FieldBoxSequence: "00001",
	})
	k, err := DecodeKanban(kanbanRaw)
	require.NoError(t, err)
	assert.Equal(t, "681010E01000", k.PartNumber)
	assert.Equal(t, "A123", k.KanbanNumber)
	assert.Equal(t, 10, k.QtyPerBox)
	assert.Equal(t, "2023080205", k.OrderNumber)

	internalRaw := MustEncode(KindInternalKanban, Fields{
		FieldPart:   "681010E01000",
		FieldKanban: "A123",
		FieldSerial: "0000012345",
	})
	ik, err := DecodeInternalKanban(internalRaw)
	require.NoError(t, err)
	assert.Equal(t, "0000012345", ik.Serial)
	assert.Equal(t, k.PartNumber, ik.PartNumber)
}

func TestDecodeKanbanInvalidQuantity(t *testing.T) {
	raw := MustEncode(KindKanban, Fields{
		FieldPlant:     "02TMI",
		FieldSupplier:  "02806",
		FieldDock:      "V8",
		FieldKanban:    "A123",
		FieldPart:      "681010E01000",
		FieldQtyPerBox: "1O",
		FieldOrder:     "2023080205",
	})
	_, err := DecodeKanban(raw)
	assert.ErrorIs(t, err, ErrInvalidQuantity)
}

func TestSplitSkidID(t *testing.T) {
	tests := []struct {
		in     string
		number string
		side   string
	}{
		{"001A", "001", "A"},
		{"012B", "012", "B"},
		{"7", "7", ""},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			number, side := SplitSkidID(tt.in)
			assert.Equal(t, tt.number, number)
			assert.Equal(t, tt.side, side)
		})
	}
}

func TestManifestRoundTripOnOffsets(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	layout, _ := LayoutFor(KindManifest)
	alphabet := "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

	for i := 0; i < 200; i++ {
		buf := make([]byte, layout.Length)
		for j := range buf {
			buf[j] = alphabet[rng.Intn(len(alphabet))]
		}
		raw := string(buf)

		fields, err := Decode(KindManifest, raw)
		require.NoError(t, err)
		encoded, err := Encode(KindManifest, fields)
		require.NoError(t, err)
		assert.Equal(t, raw, encoded)

		for _, field := range layout.Fields {
			assert.Equal(t, raw[field.Start:field.Start+field.Length], fields[field.Name])
		}
	}
}

func TestDetectKind(t *testing.T) {
	kind, ok := DetectKind(sampleManifest)
	assert.True(t, ok)
	assert.Equal(t, KindManifest, kind)

	_, ok = DetectKind("short")
	assert.False(t, ok)
}

func TestEncodeRejectsOversizedValues(t *testing.T) {
	tests := []struct {
		name    string
		kind    Kind
		fields  Fields
		wantErr error
	}{
		{
			name:    "order longer than its slot",
			kind:    KindManifest,
			fields:  Fields{FieldOrder: "2023080205123", FieldSkidID: "001A"},
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "kanban longer than its slot",
			kind:    KindInternalKanban,
			fields:  Fields{FieldPart: "681010E01000", FieldKanban: "A1234"},
			wantErr: ErrFieldTooLong,
		},
		{
			name:    "unknown kind",
			kind:    Kind("qr"),
			wantErr: ErrUnknownKind,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := Encode(tt.kind, tt.fields)
			assert.ErrorIs(t, err, tt.wantErr)
			assert.Empty(t, raw)
		})
	}

	assert.Panics(t, func() { MustEncode(KindManifest, Fields{FieldSkidID: "001AB"}) })
}
