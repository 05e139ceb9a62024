package drive

import "github.com/bismurphy/redumper/internal/drive/mmc"

// Handle is the opaque transport this module issues typed MMC operations
// against. Concrete backends (drive_windows.go, drive_unix.go) wrap a real
// device handle; tests use a fake implementing the same interface.
type Handle interface {
	Inquiry() (mmc.InquiryData, error)
	ReadTOC() ([]byte, error)
	ReadFullTOC() ([]byte, error)
	ReadCDText() ([]byte, error)

	// ReadRaw issues a single multi-sector raw read starting at lba for
	// count sectors, returning count sectors' worth of raw bytes laid out
	// per layout (the byte-order layout of one sector's worth of data
	// repeated count times). method selects READ CD vs the vendor D8 path.
	ReadRaw(method ReadMethod, layout Layout, lba, count int) ([]byte, error)

	FlushCache() error
	Close() error
}

// LeadinCapable is implemented by handles that can service Plextor-style
// multi-session lead-in prefetch (quirks.CapturePlextorLeadin).
type LeadinCapable interface {
	ReadLeadin(startLBA, count int) ([]byte, error)
}

// LeadoutCacheCapable is implemented by handles that can scrape an
// LG/ASUS drive's internal read cache for lead-out overread.
type LeadoutCacheCapable interface {
	ReadLeadoutCache(lba int) ([]byte, error)
}
