package mockserver

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/prince4597/society-management-software-sub001/internal/logging"
	"github.com/prince4597/society-management-software-sub001/internal/realtime"
)

var demoNotices = []struct{ title, body string }{
	{"Visitor at gate", "A visitor is waiting at the main gate."},
	{"Maintenance due", "Quarterly maintenance invoices were issued."},
	{"Water supply", "Tank cleaning scheduled for tomorrow 10:00."},
	{"Staff check-in", "Security shift B checked in."},
	{"Complaint raised", "Lift in tower C reported out of order."},
}

// Feed periodically publishes demo notices to every society room and to
// the platform room.
type Feed struct {
	broadcaster *Broadcaster
	societies   []string
	interval    time.Duration
	now         func() time.Time
	log         *zap.Logger
}

// NewFeed builds a feed for the societies the seeded accounts belong to.
func NewFeed(b *Broadcaster, accounts *Accounts, interval time.Duration, log *zap.Logger) *Feed {
	seen := make(map[string]bool)
	var societies []string
	for _, id := range accounts.Identities() {
		if id.SocietyID != "" && !seen[id.SocietyID] {
			seen[id.SocietyID] = true
			societies = append(societies, id.SocietyID)
		}
	}
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Feed{
		broadcaster: b,
		societies:   societies,
		interval:    interval,
		now:         time.Now,
		log:         logging.OrNop(log).Named("feed"),
	}
}

// Run publishes until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	ticker := time.NewTicker(f.interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			f.tick(n)
		}
	}
}

func (f *Feed) tick(n int) {
	pick := demoNotices[n%len(demoNotices)]
	f.log.Debug("publishing demo notice", zap.String("title", pick.title))
	for _, soc := range f.societies {
		room := realtime.SocietyRoom(soc)
		f.broadcaster.Publish(room, realtime.EventNotice, realtime.Notice{
			Room:  room,
			Title: pick.title,
			Body:  pick.body,
			At:    f.now(),
		})
	}
	f.broadcaster.Publish(realtime.PlatformRoom, realtime.EventNotice, realtime.Notice{
		Room:  realtime.PlatformRoom,
		Title: "Platform heartbeat",
		Body:  fmt.Sprintf("%d societies online, %d console connections", len(f.societies), f.broadcaster.ClientCount()),
		At:    f.now(),
	})
}
