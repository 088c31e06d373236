package deps

import (
	"time"

	"github.com/MrSnakeDoc/annotate/internal/index"
	"github.com/MrSnakeDoc/annotate/internal/layout"
	"github.com/MrSnakeDoc/annotate/internal/logger"
	"github.com/MrSnakeDoc/annotate/internal/store"
)

type Deps struct {
	Logger       logger.Logger
	StartTime    time.Time
	Version      string
	Commit       string
	BuildDate    string
	GoVersion    string
	TimeNow      func() time.Time // for testing, defaults to time.Now
	AllowedHosts []string         // Host headers allowed on admin routes
	AllowedCIDRS []string         // IPs allowed on admin routes
	TrustProxy   bool             // true if running behind a trusted reverse proxy (e.g., cloudflared)
	CORSOrigins  []string         // browser origins allowed to call the API

	RateBurst     int // public write routes: burst per client
	RatePerMinute int // public write routes: refill per client per minute

	Store        store.Store        // annotations, shares and render cache
	StoreBackend string             // "redis" | "memory", reported by /infra
	MemoryIndex  *index.MemoryIndex // articles loaded from the content directory
	Renderer     *layout.Renderer   // marker card renderer
	PublicURL    string             // base of share permalinks
	RenderTTL    time.Duration      // lifetime of cached annotated renders

	ReloadTrigger chan struct{} // Channel to trigger manual content reload
}

// Now returns the current time from TimeNow, or time.Now when unset.
func (d Deps) Now() time.Time {
	if d.TimeNow != nil {
		return d.TimeNow()
	}
	return time.Now()
}
