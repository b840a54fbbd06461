package model

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"golang.org/x/text/unicode/norm"
)

// DomainSourceWindow prefixes source window digests. The version suffix
// leaves room for a different encoding later.
const DomainSourceWindow = "osmigrate/source-window/v1"

// SourceDigest fingerprints an aggregated window: the ordered order ids and
// their line counts. Two runs over an unchanged source produce the same
// digest.
//
// Format: SHA256(domain + 0x00 + for each aggregate: NFC(order_id) 0x1f count 0x1e)
func SourceDigest(aggs []ServiceOrderAggregate) string {
	h := sha256.New()
	h.Write([]byte(DomainSourceWindow))
	h.Write([]byte{0x00})
	for _, agg := range aggs {
		h.Write([]byte(norm.NFC.String(agg.OrderID)))
		h.Write([]byte{0x1f})
		h.Write([]byte(strconv.Itoa(len(agg.Lines))))
		h.Write([]byte{0x1e})
	}
	return hex.EncodeToString(h.Sum(nil))
}
