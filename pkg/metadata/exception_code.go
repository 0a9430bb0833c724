package metadata

import (
	"fmt"
	"sort"
)

type ExceptionCode string

// Skid level codes must name the skid they refer to.
const (
	ExceptionShortShipment ExceptionCode = "short_shipment"
	ExceptionOverShipment  ExceptionCode = "over_shipment"
	ExceptionDamagedSkid   ExceptionCode = "damaged_skid"
	ExceptionMissingSkid   ExceptionCode = "missing_skid"
	ExceptionManifestLabel ExceptionCode = "manifest_label_issue"
	ExceptionPartialSkid   ExceptionCode = "partial_skid"
)

// Trailer level codes apply to the whole order or trailer.
const (
	ExceptionLatePickup    ExceptionCode = "late_pickup"
	ExceptionEarlyPickup   ExceptionCode = "early_pickup"
	ExceptionTrailerSwap   ExceptionCode = "trailer_swap"
	ExceptionRouteChange   ExceptionCode = "route_change"
	ExceptionSealMismatch  ExceptionCode = "seal_mismatch"
	ExceptionExtraTrailer  ExceptionCode = "extra_trailer"
	ExceptionCarrierChange ExceptionCode = "carrier_change"
)

type ExceptionScope string

const (
	ScopeSkid    ExceptionScope = "skid"
	ScopeTrailer ExceptionScope = "trailer"
)

var exceptionScopes = map[ExceptionCode]ExceptionScope{
	ExceptionShortShipment: ScopeSkid,
	ExceptionOverShipment:  ScopeSkid,
	ExceptionDamagedSkid:   ScopeSkid,
	ExceptionMissingSkid:   ScopeSkid,
	ExceptionManifestLabel: ScopeSkid,
	ExceptionPartialSkid:   ScopeSkid,
	ExceptionLatePickup:    ScopeTrailer,
	ExceptionEarlyPickup:   ScopeTrailer,
	ExceptionTrailerSwap:   ScopeTrailer,
	ExceptionRouteChange:   ScopeTrailer,
	ExceptionSealMismatch:  ScopeTrailer,
	ExceptionExtraTrailer:  ScopeTrailer,
	ExceptionCarrierChange: ScopeTrailer,
}

// MaxExceptionComments bounds the free text stored with an exception.
const MaxExceptionComments = 250

func NewExceptionCode(value string) (ExceptionCode, error) {
	code := ExceptionCode(value)
	if _, ok := exceptionScopes[code]; !ok {
		return "", fmt.Errorf("unknown exception code %q", value)
	}
	return code, nil
}

func (c ExceptionCode) Scope() ExceptionScope {
	return exceptionScopes[c]
}

func (c ExceptionCode) IsValid() bool {
	_, ok := exceptionScopes[c]
	return ok
}

func (c ExceptionCode) String() string {
	return string(c)
}

// ExceptionCodes lists the vocabulary for a scope in a stable order.
func ExceptionCodes(scope ExceptionScope) []ExceptionCode {
	var codes []ExceptionCode
	for code, s := range exceptionScopes {
		if s == scope {
			codes = append(codes, code)
		}
	}
	sort.Slice(codes, func(i, j int) bool { return codes[i] < codes[j] })
	return codes
}
