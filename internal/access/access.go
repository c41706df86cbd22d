// Package access decides how a visitor reached a menu and resolves the
// business and menu data behind it.
//
// A path under /m/ came from a QR code; everything else is a direct slug
// visit. QR resolution falls back step by step:
//
//	scan registration → embedded menu → lookup by business id → lookup by slug
//
// Only when every step fails is the resolution Failed.
package access

import (
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/menugr/menugr/config"
	"github.com/menugr/menugr/internal/menu"
)

// QRPrefix is the first path segment of QR-code links.
const QRPrefix = "m"

// Mode is how the visitor reached the menu.
type Mode string

const (
	ModeDirect Mode = "direct"
	ModeQR     Mode = "qr"
)

// State is the step a Resolution reached.
type State string

const (
	StateUnresolved      State = "unresolved"
	StateResolvingQR     State = "resolving_qr"
	StateResolvingDirect State = "resolving_direct"
	StateResolved        State = "resolved"
	StateFailed          State = "failed"
)

// Route is a classified navigation path.
type Route struct {
	Path string
	Mode Mode
	Slug string
}

// Classify splits path into mode and slug. The slug is the last non-empty
// segment after the optional /m/ or /menu/ prefix; it defaults to
// DEFAULT_SLUG when absent.
func Classify(path string) Route {
	segs := splitPath(path)
	r := Route{Path: path, Mode: ModeDirect}

	if len(segs) > 0 && segs[0] == QRPrefix {
		r.Mode = ModeQR
		segs = segs[1:]
	} else if len(segs) > 0 && segs[0] == "menu" {
		segs = segs[1:]
	}
	if len(segs) > 0 {
		r.Slug = segs[len(segs)-1]
	}
	if r.Slug == "" {
		r.Slug = config.DefaultSlug()
	}
	return r
}

func splitPath(path string) []string {
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	var out []string
	for _, s := range strings.Split(path, "/") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Context is what the view may show about how the menu was reached. Table
// and location are display-only.
type Context struct {
	Mode         Mode   `json:"mode"`
	Slug         string `json:"slug"`
	BusinessID   string `json:"business_id,omitempty"`
	BusinessSlug string `json:"business_slug,omitempty"`
	QRName       string `json:"qr_name,omitempty"`
	TableNumber  int    `json:"table_number,omitempty"`
	Location     string `json:"location,omitempty"`
}

// IsQR reports whether the visit came from a QR code.
func (c Context) IsQR() bool { return c.Mode == ModeQR }

// NewScanMetadata builds the metadata sent with a scan registration.
func NewScanMetadata(sessionID, userAgent string, now time.Time) menu.ScanMetadata {
	if sessionID == "" {
		sessionID = uuid.NewString()
	}
	return menu.ScanMetadata{
		SessionID:  sessionID,
		UserAgent:  userAgent,
		DeviceType: DeviceType(userAgent),
		AccessedAt: now.UTC(),
	}
}

// DeviceType classifies a user agent as mobile, tablet or desktop.
func DeviceType(userAgent string) string {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "ipad") || strings.Contains(ua, "tablet"):
		return menu.DeviceTablet
	case strings.Contains(ua, "android") && !strings.Contains(ua, "mobile"):
		return menu.DeviceTablet
	case strings.Contains(ua, "mobi") || strings.Contains(ua, "iphone") || strings.Contains(ua, "android"):
		return menu.DeviceMobile
	default:
		return menu.DeviceDesktop
	}
}
