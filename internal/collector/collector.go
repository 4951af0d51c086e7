package collector

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/jeff-is-working/wa-bill-tracker-dev/internal/bill"
)

// Options configures a Collector.
type Options struct {
	Year         int
	Biennium     string
	SessionStart string
	SessionEnd   string
	// MeetingDays is how far ahead committee meetings are fetched.
	MeetingDays int
}

// Result is one collection run.
type Result struct {
	Doc      bill.Document
	Meetings []Meeting
	Stats    Stats
}

// Collector runs the fetch, merge and classify pipeline.
type Collector struct {
	client *Client
	opts   Options
	log    *zap.Logger
	now    func() time.Time
}

// New creates a Collector.
func New(client *Client, opts Options, log *zap.Logger) *Collector {
	if log == nil {
		log = zap.NewNop()
	}
	if opts.MeetingDays <= 0 {
		opts.MeetingDays = 14
	}
	return &Collector{client: client, opts: opts, log: log.Named("collector"), now: time.Now}
}

// GetLegislationByYear lists every bill summary for year.
func (c *Client) GetLegislationByYear(ctx context.Context, year int) ([]LegislationInfo, error) {
	raw, err := c.Call(ctx, LegislationService, "GetLegislationByYear",
		Param{"year", fmt.Sprint(year)})
	if err != nil {
		return nil, err
	}
	return decodeAll[LegislationInfo](raw, "LegislationInfo")
}

// GetLegislativeStatusChangesByDateRange lists status changes in a
// biennium between begin and end.
func (c *Client) GetLegislativeStatusChangesByDateRange(ctx context.Context, biennium string, begin, end time.Time) ([]LegislativeStatus, error) {
	raw, err := c.Call(ctx, LegislationService, "GetLegislativeStatusChangesByDateRange",
		Param{"biennium", biennium},
		Param{"beginDate", begin.Format(TimestampLayout)},
		Param{"endDate", end.Format(TimestampLayout)})
	if err != nil {
		return nil, err
	}
	return decodeAll[LegislativeStatus](raw, "LegislativeStatus")
}

// GetCommitteeMeetings lists committee meetings between begin and end.
func (c *Client) GetCommitteeMeetings(ctx context.Context, begin, end time.Time) ([]CommitteeMeeting, error) {
	raw, err := c.Call(ctx, CommitteeMeetingService, "GetCommitteeMeetings",
		Param{"beginDate", begin.Format(TimestampLayout)},
		Param{"endDate", end.Format(TimestampLayout)})
	if err != nil {
		return nil, err
	}
	return decodeAll[CommitteeMeeting](raw, "CommitteeMeeting")
}

// Collect fetches bills, their latest statuses and upcoming meetings, then
// merges them into existing. Bill enumeration failing aborts the run; status
// changes and meetings failing only degrade it.
func (c *Collector) Collect(ctx context.Context, existing bill.Document) (Result, error) {
	now := c.now()

	infos, err := c.client.GetLegislationByYear(ctx, c.opts.Year)
	if err != nil {
		return Result{}, fmt.Errorf("get legislation by year: %w", err)
	}
	if len(infos) == 0 {
		c.log.Warn("no legislation returned", zap.Int("year", c.opts.Year))
	}

	begin := time.Date(c.opts.Year, time.January, 1, 0, 0, 0, 0, now.Location())
	changes, err := c.client.GetLegislativeStatusChangesByDateRange(ctx, c.opts.Biennium, begin, now)
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.log.Warn("status changes unavailable", zap.Error(err))
	}
	latest := LatestStatusMap(changes)

	var meetings []Meeting
	today := civilDay(now)
	raw, err := c.client.GetCommitteeMeetings(ctx, today, today.AddDate(0, 0, c.opts.MeetingDays))
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		c.log.Warn("committee meetings unavailable", zap.Error(err))
	}
	for _, m := range raw {
		if mt, ok := ParseCommitteeMeeting(m); ok {
			meetings = append(meetings, mt)
		}
	}

	fresh := make([]bill.Bill, 0, len(infos))
	skipped := 0
	for _, info := range infos {
		b, ok := BuildRecord(info, latest, c.opts.Year, now)
		if !ok {
			skipped++
			continue
		}
		fresh = append(fresh, b)
	}

	bills := Merge(existing.Bills, fresh)
	AttachHearings(bills, meetings)
	SortBills(bills)

	doc := bill.Document{
		LastSync:     now.Format(TimestampLayout),
		SessionYear:  c.opts.Year,
		Biennium:     c.opts.Biennium,
		SessionStart: firstNonBlank(c.opts.SessionStart, existing.SessionStart),
		SessionEnd:   firstNonBlank(c.opts.SessionEnd, existing.SessionEnd),
		TotalBills:   len(bills),
		Bills:        bills,
		Metadata: &bill.Metadata{
			Source:          "Washington State Legislative Web Services",
			Endpoint:        c.client.baseURL + LegislationService,
			UpdateFrequency: "daily",
			DataVersion:     "2.0.0",
		},
	}

	c.log.Info("collected bills",
		zap.Int("fetched", len(fresh)),
		zap.Int("skipped", skipped),
		zap.Int("statusChanges", len(latest)),
		zap.Int("meetings", len(meetings)),
		zap.Int("total", len(bills)))

	return Result{Doc: doc, Meetings: meetings, Stats: ComputeStats(bills, meetings, now)}, nil
}
