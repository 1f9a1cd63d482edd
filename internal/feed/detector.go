package feed

import "github.com/samvad-hq/wiredove-notifier/internal/domain"

// Classification is the Change Detector verdict. Marker is set only when
// IsNew is true.
type Classification struct {
	IsNew  bool
	Marker *domain.DedupMarker
}

// Classify compares the record against the stored marker, by identifier when
// the record carries one and by fingerprint otherwise.
func Classify(rec domain.ContentRecord, stored domain.DedupMarker) Classification {
	if rec.Identifier != "" {
		if rec.Identifier == stored.LastSeenIdentifier {
			return Classification{}
		}
		return Classification{
			IsNew:  true,
			Marker: &domain.DedupMarker{LastSeenIdentifier: rec.Identifier},
		}
	}

	fp := rec.Fingerprint
	if fp == "" {
		fp = Fingerprint([]byte(rec.RawText))
	}
	if fp == stored.LastSeenFingerprint {
		return Classification{}
	}
	return Classification{
		IsNew:  true,
		Marker: &domain.DedupMarker{LastSeenFingerprint: fp},
	}
}
